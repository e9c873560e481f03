package ot

import (
	"fmt"
	"maps"
)

// Document is an attributed text together with the number of changes
// applied to it.
type Document struct {
	Runs    []Run
	Version int
}

// NewDocument creates a new document with the given initial content.
func NewDocument(content string) *Document {
	return &Document{Runs: Normalize([]Run{{Text: content}})}
}

// Apply applies an operation to the document.
func (d *Document) Apply(op Operation) error {
	if op.IsNoop() {
		return nil
	}
	result, err := Apply(d.Runs, op)
	if err != nil {
		return fmt.Errorf("apply to document v%d: %w", d.Version, err)
	}
	d.Runs = result
	d.Version++
	return nil
}

// Len returns the document length in code points.
func (d *Document) Len() int { return Len(d.Runs) }

func (d *Document) String() string { return Text(d.Runs) }

// Delta returns the document as a list of insert components, one per run.
func (d *Document) Delta() []Component {
	out := make([]Component, 0, len(d.Runs))
	for _, r := range d.Runs {
		out = append(out, Component{Insert: r.Text, Attributes: maps.Clone(r.Attrs)})
	}
	return out
}

// Clone returns a deep copy of the runs. Attribute values are shared.
func (d *Document) Clone() *Document {
	runs := make([]Run, len(d.Runs))
	for i, r := range d.Runs {
		runs[i] = Run{Text: r.Text, Attrs: maps.Clone(r.Attrs)}
	}
	return &Document{Runs: runs, Version: d.Version}
}
