// Package richtext bridges documents built from crdt containers and the
// step-based editor protocol: it seeds document structure, resolves
// absolute editor positions, applies steps and renders the editor JSON.
package richtext

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alimasry/go-collab-cms/crdt"
)

// Keys of the node structure inside a document.
const (
	RootKey       = "doc"
	AttributesKey = "attributes"
	ChildrenKey   = "children"
	ContentKey    = "content"
	NodeNameKey   = "nodeName"

	styleRootKey  = "__meta"
	textStylesKey = "textStyles"
)

// ErrMalformedDocument is returned when a document lacks the structure an
// operation needs.
var ErrMalformedDocument = errors.New("malformed document")

// InitRichText seeds doc with a root node holding one empty paragraph and
// records the text style policy for the schema's marks. Documents that
// already have a children list keep their content.
func InitRichText(doc *crdt.Doc, schema Schema) error {
	if len(schema.Marks) > 0 {
		if err := ConfigureTextStyles(doc, schema); err != nil {
			return err
		}
	}

	root := doc.Map(RootKey)
	if err := root.Set(NodeNameKey, RootKey); err != nil {
		return err
	}
	root.GetOrCreateMap(AttributesKey)
	if _, ok := root.GetList(ChildrenKey); ok {
		return nil
	}
	children := root.GetOrCreateList(ChildrenKey)
	_, err := newParagraph(children, 0)
	return err
}

func newParagraph(list *crdt.List, at int) (*crdt.Text, error) {
	para, err := list.InsertMap(at)
	if err != nil {
		return nil, fmt.Errorf("insert paragraph: %w", err)
	}
	if err := para.Set(NodeNameKey, "paragraph"); err != nil {
		return nil, err
	}
	para.GetOrCreateMap(AttributesKey)
	text, err := para.GetOrCreateList(ChildrenKey).InsertText(0)
	if err != nil {
		return nil, fmt.Errorf("insert paragraph text: %w", err)
	}
	return text, nil
}

// InitPlainText seeds doc with a root node holding a single text.
func InitPlainText(doc *crdt.Doc) error {
	root := doc.Map(RootKey)
	if err := root.Set(NodeNameKey, RootKey); err != nil {
		return err
	}
	root.GetOrCreateMap(AttributesKey)
	root.GetOrCreateText(ContentKey)
	return nil
}

// PlainText returns the text of a plain-text document.
func PlainText(doc *crdt.Doc) (*crdt.Text, error) {
	if !doc.HasMap(RootKey) {
		return nil, fmt.Errorf("%w: no %q root", ErrMalformedDocument, RootKey)
	}
	text, ok := doc.Map(RootKey).GetText(ContentKey)
	if !ok {
		return nil, fmt.Errorf("%w: no %q text", ErrMalformedDocument, ContentKey)
	}
	return text, nil
}

// ConfigureTextStyles records, per mark, whether formatting expands to
// text typed at its end: "after" for inclusive marks and "none"
// otherwise. Editors read the policy; step application does not.
func ConfigureTextStyles(doc *crdt.Doc, schema Schema) error {
	styles := crdt.NewMap()
	for name, mark := range schema.Marks {
		expand := "none"
		if mark.Inclusive {
			expand = "after"
		}
		b, err := json.Marshal(map[string]string{"expand": expand})
		if err != nil {
			return err
		}
		if err := styles.Set(name, string(b)); err != nil {
			return err
		}
	}
	return doc.Map(styleRootKey).Set(textStylesKey, styles)
}

// TextStyles returns the recorded expand policy per mark name.
func TextStyles(doc *crdt.Doc) map[string]string {
	out := make(map[string]string)
	if !doc.HasMap(styleRootKey) {
		return out
	}
	styles, ok := doc.Map(styleRootKey).GetMap(textStylesKey)
	if !ok {
		return out
	}
	styles.Range(func(name string, v any) bool {
		s, _ := v.(string)
		var cfg struct {
			Expand string `json:"expand"`
		}
		if json.Unmarshal([]byte(s), &cfg) == nil {
			out[name] = cfg.Expand
		}
		return true
	})
	return out
}

// SetText replaces the body of a rich-text document with a single
// paragraph holding s.
func SetText(doc *crdt.Doc, s string) error {
	root := doc.Map(RootKey)
	children, ok := root.GetList(ChildrenKey)
	if !ok {
		return fmt.Errorf("%w: no %q list", ErrMalformedDocument, ChildrenKey)
	}
	if err := children.Delete(0, children.Len()); err != nil {
		return err
	}
	text, err := newParagraph(children, 0)
	if err != nil {
		return err
	}
	if err := text.Insert(0, s); err != nil {
		return err
	}
	doc.Commit()
	return nil
}
