package model

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/alimasry/go-collab-cms/crdt"
)

// Kind tags a file variant. It is also the collection type the file
// belongs to.
type Kind string

const (
	KindPage     Kind = "page"
	KindPost     Kind = "post"
	KindTemplate Kind = "template"
	KindPartial  Kind = "partial"
	KindText     Kind = "text"
	KindAsset    Kind = "asset"
)

// ParseKind returns the Kind for a collection type tag.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindPage, KindPost, KindTemplate, KindPartial, KindText, KindAsset:
		return k, nil
	}
	return "", fmt.Errorf("unknown file type %q", s)
}

// Keys of a file's metadata map.
const (
	MetaKey = "meta"

	KeyID       = "id"
	KeyName     = "name"
	KeyVersion  = "version"
	KeyType     = "type"
	KeySchema   = "pm_schema"
	KeyTitle    = "title"
	KeyURL      = "url"
	KeyAlt      = "alt"
	KeyMimeType = "mime_type"
)

// File is one of *Page, *Post, *Template, *Partial, *Text or *Asset.
// A file is either full, backed by its own document, or cache backed,
// carrying only the metadata cached in its collection.
type File interface {
	ID() string
	Name() (string, error)
	SetName(name string) error
	Version() int64
	Type() Kind
	Meta() *crdt.Map
	Document() *crdt.Doc
	IsFull() bool
	GetField(key string) (any, error)
	SetField(key string, v any) error
	ToJSON() map[string]any

	base() *fileBase
}

// Capabilities. Use the free functions of the same name to reach them.
type (
	HasTitle interface {
		File
		titled()
	}
	HasURL interface {
		File
		linked()
	}
	HasContent interface {
		File
		plain()
	}
	HasRichText interface {
		File
		rich()
	}
	HasAlt interface {
		File
		described()
	}
	HasMimeType interface {
		File
		typed()
	}
)

type (
	Page     struct{ fileBase }
	Post     struct{ fileBase }
	Template struct{ fileBase }
	Partial  struct{ fileBase }
	Text     struct{ fileBase }
	Asset    struct{ fileBase }
)

func (*Page) titled() {}
func (*Page) linked() {}
func (*Page) rich()   {}

func (*Post) titled() {}
func (*Post) linked() {}
func (*Post) rich()   {}

func (*Template) plain() {}
func (*Partial) plain()  {}
func (*Text) plain()     {}

func (*Asset) linked()    {}
func (*Asset) described() {}
func (*Asset) typed()     {}

func newFile(kind Kind, doc *crdt.Doc, meta *crdt.Map) (File, error) {
	b := fileBase{kind: kind, doc: doc, meta: meta}
	switch kind {
	case KindPage:
		return &Page{b}, nil
	case KindPost:
		return &Post{b}, nil
	case KindTemplate:
		return &Template{b}, nil
	case KindPartial:
		return &Partial{b}, nil
	case KindText:
		return &Text{b}, nil
	case KindAsset:
		return &Asset{b}, nil
	}
	return nil, fmt.Errorf("unknown file type %q", kind)
}

type fileBase struct {
	kind Kind
	doc  *crdt.Doc // nil when cache backed
	meta *crdt.Map
}

func (f *fileBase) base() *fileBase { return f }

func (f *fileBase) ID() string {
	id, _ := f.meta.GetString(KeyID)
	return id
}

func (f *fileBase) Name() (string, error) { return f.str(KeyName) }

func (f *fileBase) SetName(name string) error { return f.set(KeyName, name) }

func (f *fileBase) Version() int64 {
	v, _ := f.meta.Get(KeyVersion)
	n, _ := parseVersion(v)
	return n
}

func (f *fileBase) Type() Kind { return f.kind }

// Meta returns the file's metadata map: the "meta" map of its document,
// or the cached collection entry for cache-backed files.
func (f *fileBase) Meta() *crdt.Map { return f.meta }

func (f *fileBase) Document() *crdt.Doc { return f.doc }

func (f *fileBase) IsFull() bool { return f.doc != nil }

// GetField returns a metadata value as a JSON value.
func (f *fileBase) GetField(key string) (any, error) {
	v, ok := f.meta.Get(key)
	if !ok {
		return nil, notFound("field", key)
	}
	return jsonValue(key, v)
}

func (f *fileBase) SetField(key string, v any) error {
	if err := f.meta.Set(key, v); err != nil {
		if errors.Is(err, crdt.ErrUnsupportedValue) {
			return &UnsupportedValueError{Field: key}
		}
		return err
	}
	f.commit()
	return nil
}

func (f *fileBase) ToJSON() map[string]any {
	out := map[string]any{
		"id":              f.ID(),
		"collection_type": string(f.kind),
		"name":            f.optional(KeyName),
	}
	switch f.kind {
	case KindPage, KindPost:
		out["title"] = f.optional(KeyTitle)
		out["url"] = f.optional(KeyURL)
	case KindAsset:
		out["url"] = f.optional(KeyURL)
		out["mime_type"] = f.optional(KeyMimeType)
		out["alt"] = f.optional(KeyAlt)
	}
	return out
}

func (f *fileBase) str(key string) (string, error) {
	s, ok := f.meta.GetString(key)
	if !ok {
		return "", &MissingFieldError{Field: key}
	}
	return s, nil
}

func (f *fileBase) optional(key string) string {
	s, _ := f.meta.GetString(key)
	return s
}

func (f *fileBase) set(key string, v any) error {
	if err := f.meta.Set(key, v); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	f.commit()
	return nil
}

func (f *fileBase) commit() {
	if f.doc != nil {
		f.doc.Commit()
	}
}

func Title(f HasTitle) (string, error) { return f.base().str(KeyTitle) }

func SetTitle(f HasTitle, s string) error { return f.base().set(KeyTitle, s) }

func URL(f HasURL) (string, error) { return f.base().str(KeyURL) }

func SetURL(f HasURL, s string) error { return f.base().set(KeyURL, s) }

func Alt(f HasAlt) (string, error) { return f.base().str(KeyAlt) }

func SetAlt(f HasAlt, s string) error { return f.base().set(KeyAlt, s) }

func MimeType(f HasMimeType) (string, error) { return f.base().str(KeyMimeType) }

func SetMimeType(f HasMimeType, s string) error { return f.base().set(KeyMimeType, s) }

func parseVersion(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		return n, err == nil
	}
	return 0, false
}

func jsonValue(key string, v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, float64, int64:
		return t, nil
	case *crdt.Text:
		return t.String(), nil
	case *crdt.List:
		return jsonList(key, t.Values())
	case []any:
		return jsonList(key, t)
	}
	return nil, &UnsupportedValueError{Field: key}
}

func jsonList(key string, items []any) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		v, err := jsonValue(key, item)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
