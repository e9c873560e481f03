package model

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alimasry/go-collab-cms/crdt"
	"github.com/alimasry/go-collab-cms/richtext"
)

// Loader hydrates a file document by id.
type Loader interface {
	Load(ctx context.Context, id string) (*crdt.Doc, error)
}

// Builder assembles a File. Errors from With* calls are kept and returned
// by Build.
type Builder struct {
	kind       Kind
	collection string
	id         string
	doc        *crdt.Doc
	meta       *crdt.Map
	ext        *crdt.Map
	loader     Loader
	err        error
}

// BuilderFor returns a builder for kind with no id and no store.
func BuilderFor(kind Kind) *Builder {
	return &Builder{kind: kind, collection: string(kind)}
}

func (b *Builder) Kind() Kind { return b.kind }

// Collection names the collection the file is meant for.
func (b *Builder) Collection() string { return b.collection }

// ID returns the pending id, "" if none is known yet.
func (b *Builder) ID() string {
	if b.id != "" {
		return b.id
	}
	if b.meta != nil {
		id, _ := b.meta.GetString(KeyID)
		return id
	}
	return ""
}

// WithMeta takes id, name and version (and pm_schema if present) from
// ext, typically the metadata cached in a collection. The values are
// written into the store at build time.
func (b *Builder) WithMeta(ext *crdt.Map) *Builder {
	if b.err != nil {
		return b
	}
	if ext == nil {
		b.err = ErrMissingID
		return b
	}
	for _, key := range []string{KeyID, KeyName, KeyVersion} {
		if _, ok := ext.Get(key); !ok {
			b.err = &MissingFieldError{Field: key}
			return b
		}
	}
	id, ok := ext.GetString(KeyID)
	if !ok || id == "" {
		b.err = ErrMissingID
		return b
	}
	b.id = id
	b.ext = ext
	return b
}

func (b *Builder) WithID(id string) *Builder {
	if b.err != nil {
		return b
	}
	b.id = id
	if b.meta != nil {
		b.setMeta(KeyID, id)
	}
	return b
}

func (b *Builder) WithName(name string) *Builder { return b.setStored(KeyName, name) }

func (b *Builder) WithVersion(v int64) *Builder { return b.setStored(KeyVersion, v) }

func (b *Builder) WithSchema(s richtext.Schema) *Builder {
	return b.setStored(KeySchema, s.String())
}

// WithDoc makes doc the file's full-document store.
func (b *Builder) WithDoc(doc *crdt.Doc) *Builder {
	b.doc = doc
	b.meta = doc.Map(MetaKey)
	return b
}

func (b *Builder) WithLoader(l Loader) *Builder {
	b.loader = l
	return b
}

func (b *Builder) setStored(key string, v any) *Builder {
	if b.err != nil {
		return b
	}
	if b.meta == nil {
		b.err = ErrNoStore
		return b
	}
	b.setMeta(key, v)
	return b
}

func (b *Builder) setMeta(key string, v any) {
	if err := b.meta.Set(key, v); err != nil {
		b.err = err
	}
}

// Build hydrates, initialises and returns the file.
func (b *Builder) Build(ctx context.Context) (File, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.meta == nil {
		b.hydrate(ctx)
	}

	if id, _ := b.meta.GetString(KeyID); id == "" {
		id = b.id
		if id == "" {
			id = uuid.NewString()
		}
		if err := b.meta.Set(KeyID, id); err != nil {
			return nil, &BuildError{Kind: b.kind, Err: err}
		}
	}
	if _, ok := b.meta.Get(KeyVersion); !ok {
		if err := b.meta.Set(KeyVersion, int64(0)); err != nil {
			return nil, &BuildError{Kind: b.kind, Err: err}
		}
	}

	f, err := newFile(b.kind, b.doc, b.meta)
	if err != nil {
		return nil, &BuildError{Kind: b.kind, Err: err}
	}
	if err := initFile(f.base(), b.ext); err != nil {
		return nil, &BuildError{Kind: b.kind, Err: err}
	}
	f.base().commit()
	return f, nil
}

// hydrate loads the document for the pending id. On failure the file is
// built fresh: cache backed on a copy of the external metadata when there
// is some, otherwise on a new document. The external map itself is never
// written to.
func (b *Builder) hydrate(ctx context.Context) {
	if b.id != "" && b.loader != nil {
		doc, err := b.loader.Load(ctx, b.id)
		if err == nil {
			b.WithDoc(doc)
			return
		}
		slog.Warn("builder: hydrate failed, building fresh",
			"kind", b.kind,
			"id", b.id,
			"error", err)
	}
	if b.ext != nil {
		b.meta = crdt.NewMap()
		return
	}
	b.WithDoc(crdt.NewDoc())
}

// initFile records the type, seeds the body structure, then copies
// external metadata over the file's own.
func initFile(f *fileBase, ext *crdt.Map) error {
	if err := f.meta.Set(KeyType, string(f.kind)); err != nil {
		return err
	}

	keys := []string{KeyID, KeyName}
	switch f.kind {
	case KindPage, KindPost:
		keys = append(keys, KeyTitle, KeyURL)
		if err := adopt(f.meta, ext, KeySchema); err != nil {
			return err
		}
		if f.doc != nil {
			s, _ := f.meta.GetString(KeySchema)
			schema, err := richtext.ParseSchema(s)
			if err != nil {
				return err
			}
			if err := richtext.InitRichText(f.doc, schema); err != nil {
				return err
			}
		}
	case KindTemplate, KindPartial, KindText:
		if f.doc != nil {
			if err := richtext.InitPlainText(f.doc); err != nil {
				return err
			}
		}
	case KindAsset:
		keys = append(keys, KeyURL, KeyMimeType, KeyAlt)
	}

	if err := adopt(f.meta, ext, keys...); err != nil {
		return err
	}
	return adoptVersion(f.meta, ext)
}

func adopt(dst, src *crdt.Map, keys ...string) error {
	if src == nil || src == dst {
		return nil
	}
	for _, key := range keys {
		v, ok := src.Get(key)
		if !ok {
			continue
		}
		switch v.(type) {
		case string, bool, int64, float64:
			if err := dst.Set(key, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// adoptVersion takes the external version unless the document is already
// ahead of it.
func adoptVersion(dst, src *crdt.Map) error {
	if src == nil || src == dst {
		return nil
	}
	raw, _ := src.Get(KeyVersion)
	ext, ok := parseVersion(raw)
	if !ok {
		return nil
	}
	cur, _ := dst.Get(KeyVersion)
	if own, ok := parseVersion(cur); ok && own > ext {
		return nil
	}
	return dst.Set(KeyVersion, ext)
}
