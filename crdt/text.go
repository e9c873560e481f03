package crdt

import (
	"fmt"

	"github.com/alimasry/go-collab-cms/ot"
)

// Text is a sequence of attributed code points.
type Text struct {
	doc *Doc
	buf *ot.Document
}

// NewText creates a detached, empty text.
func NewText() *Text { return &Text{buf: ot.NewDocument("")} }

// Len returns the length in code points.
func (t *Text) Len() int { return t.buf.Len() }

func (t *Text) String() string { return t.buf.String() }

// Insert inserts s at pos without attributes.
func (t *Text) Insert(pos int, s string) error {
	n := t.Len()
	if pos < 0 || pos > n {
		return fmt.Errorf("text insert at %d of %d: %w", pos, n, ErrOutOfRange)
	}
	return t.ApplyDelta(ot.NewInsert(pos, s, n))
}

// Delete removes n code points starting at pos.
func (t *Text) Delete(pos, n int) error {
	size := t.Len()
	if pos < 0 || n < 0 || pos+n > size {
		return fmt.Errorf("text delete [%d,%d) of %d: %w", pos, pos+n, size, ErrOutOfRange)
	}
	return t.ApplyDelta(ot.NewDelete(pos, n, size))
}

// Mark sets key to value over [from, to). A nil value removes the key.
func (t *Text) Mark(from, to int, key string, value any) error {
	if from < 0 || to < from || to > t.Len() {
		return fmt.Errorf("text mark [%d,%d) of %d: %w", from, to, t.Len(), ErrOutOfRange)
	}
	return t.ApplyDelta(ot.NewFormat(from, to-from, ot.Attributes{key: value}))
}

// ApplyDelta applies a retain/insert/delete operation.
func (t *Text) ApplyDelta(op ot.Operation) error {
	before := t.buf.Version
	if err := t.buf.Apply(op); err != nil {
		return err
	}
	if t.buf.Version != before {
		t.doc.touch()
	}
	return nil
}

// Delta returns the current content as insert components, one per run of
// equal attributes.
func (t *Text) Delta() []ot.Component { return t.buf.Delta() }

// Runs returns a copy of the attributed runs.
func (t *Text) Runs() []ot.Run { return t.buf.Clone().Runs }

func (t *Text) cloneValue() any { return &Text{buf: t.buf.Clone()} }

func (t *Text) attach(d *Doc) { t.doc = d }
