package model

import (
	"fmt"
	"log/slog"

	"github.com/alimasry/go-collab-cms/crdt"
	"github.com/alimasry/go-collab-cms/richtext"
)

func plainText(f HasContent) (*crdt.Text, error) {
	b := f.base()
	if b.doc == nil {
		return nil, ErrNoDocument
	}
	text, err := richtext.PlainText(b.doc)
	if err != nil {
		return nil, fmt.Errorf("content of %s: %w", b.ID(), err)
	}
	return text, nil
}

// Content returns the plain-text body of a template, partial or text file.
func Content(f HasContent) (string, error) {
	text, err := plainText(f)
	if err != nil {
		return "", err
	}
	return text.String(), nil
}

// InsertContent inserts s at pos, counted in code points.
func InsertContent(f HasContent, s string, pos int) error {
	text, err := plainText(f)
	if err != nil {
		return err
	}
	if err := text.Insert(pos, s); err != nil {
		return fmt.Errorf("insert content: %w", err)
	}
	f.base().commit()
	return nil
}

// DeleteContent removes n code points starting at pos.
func DeleteContent(f HasContent, pos, n int) error {
	text, err := plainText(f)
	if err != nil {
		return err
	}
	if err := text.Delete(pos, n); err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	f.base().commit()
	return nil
}

// SetContent replaces the whole body with s.
func SetContent(f HasContent, s string) error {
	text, err := plainText(f)
	if err != nil {
		return err
	}
	if err := text.Delete(0, text.Len()); err != nil {
		return fmt.Errorf("set content: %w", err)
	}
	if err := text.Insert(0, s); err != nil {
		return fmt.Errorf("set content: %w", err)
	}
	f.base().commit()
	return nil
}

// ApplySteps applies an editor step batch to a page or post and returns
// the new version. The batch is all or nothing. A clientVersion that does
// not match the file is logged and the steps are applied anyway.
func ApplySteps(f HasRichText, steps []richtext.Step, clientVersion int64) (int64, error) {
	b := f.base()
	version := b.Version()
	if b.doc == nil {
		return version, ErrNoDocument
	}
	if len(steps) == 0 {
		return version, nil
	}
	if clientVersion != version {
		slog.Warn("apply steps: version mismatch",
			"file", b.ID(),
			"client_version", clientVersion,
			"version", version)
	}

	if _, err := richtext.ApplySteps(b.doc, steps); err != nil {
		return version, fmt.Errorf("apply steps to %s: %w", b.ID(), err)
	}
	version++
	if err := b.set(KeyVersion, version); err != nil {
		return version - 1, err
	}
	return version, nil
}

// DocumentJSON renders the rich-text body in the editor's JSON form.
func DocumentJSON(f HasRichText) (map[string]any, error) {
	b := f.base()
	if b.doc == nil {
		return nil, ErrNoDocument
	}
	return richtext.DocToJSON(b.doc)
}

// SetBody replaces the rich-text body with a single paragraph of s.
func SetBody(f HasRichText, s string) error {
	b := f.base()
	if b.doc == nil {
		return ErrNoDocument
	}
	if err := richtext.SetText(b.doc, s); err != nil {
		return fmt.Errorf("set body of %s: %w", b.ID(), err)
	}
	return nil
}

// Schema returns the editor schema the file was created with.
func Schema(f HasRichText) (richtext.Schema, error) {
	s, _ := f.base().meta.GetString(KeySchema)
	return richtext.ParseSchema(s)
}
