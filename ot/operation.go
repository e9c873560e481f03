package ot

import (
	"fmt"
	"maps"
	"reflect"
	"unicode/utf8"
)

// Attributes is the formatting attached to a run of text. In an operation
// a nil value removes the attribute.
type Attributes map[string]any

// Compose returns a merged with b applied on top. Nil values in b delete.
func (a Attributes) Compose(b Attributes) Attributes {
	out := make(Attributes, len(a)+len(b))
	maps.Copy(out, a)
	for k, v := range b {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Equal reports whether both attribute sets carry the same values.
func (a Attributes) Equal(b Attributes) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Component is a single step in an operation.
// Exactly one of Retain, Insert or Delete should be set.
type Component struct {
	Retain     int        `json:"retain,omitempty"` // keep N code points, optionally reformatting them
	Insert     string     `json:"insert,omitempty"` // insert text at cursor
	Delete     int        `json:"delete,omitempty"` // remove N code points at cursor
	Attributes Attributes `json:"attributes,omitempty"`
}

func (c Component) IsRetain() bool { return c.Retain > 0 && c.Insert == "" && c.Delete == 0 }
func (c Component) IsInsert() bool { return c.Insert != "" }
func (c Component) IsDelete() bool { return c.Delete > 0 && c.Insert == "" }

// Operation is a sequence of components that transforms a text.
// Components are applied left-to-right, advancing a cursor through the input.
// Anything past the last component is retained unchanged.
type Operation struct {
	Ops []Component `json:"ops"`
}

// Retain appends a retain of n code points. Non-nil attrs reformat them.
func (op Operation) Retain(n int, attrs Attributes) Operation {
	if n <= 0 {
		return op
	}
	op.Ops = append(op.Ops[:len(op.Ops):len(op.Ops)], Component{Retain: n, Attributes: attrs})
	return op
}

// Insert appends an insertion carrying attrs.
func (op Operation) Insert(text string, attrs Attributes) Operation {
	if text == "" {
		return op
	}
	op.Ops = append(op.Ops[:len(op.Ops):len(op.Ops)], Component{Insert: text, Attributes: attrs})
	return op
}

// Delete appends a deletion of n code points.
func (op Operation) Delete(n int) Operation {
	if n <= 0 {
		return op
	}
	op.Ops = append(op.Ops[:len(op.Ops):len(op.Ops)], Component{Delete: n})
	return op
}

// BaseLen returns the minimum input length the operation addresses.
func (op Operation) BaseLen() int {
	n := 0
	for _, c := range op.Ops {
		if c.IsRetain() {
			n += c.Retain
		} else if c.IsDelete() {
			n += c.Delete
		}
	}
	return n
}

// TargetLen returns the length of the addressed range after the operation.
func (op Operation) TargetLen() int {
	n := 0
	for _, c := range op.Ops {
		if c.IsRetain() {
			n += c.Retain
		} else if c.IsInsert() {
			n += utf8.RuneCountInString(c.Insert)
		}
	}
	return n
}

// IsNoop returns true if the operation makes no changes.
func (op Operation) IsNoop() bool {
	for _, c := range op.Ops {
		if c.IsInsert() || c.IsDelete() {
			return false
		}
		if c.IsRetain() && len(c.Attributes) > 0 {
			return false
		}
	}
	return true
}

// Apply applies the operation to a sequence of runs and returns the
// normalized result. The input is not modified.
func Apply(runs []Run, op Operation) ([]Run, error) {
	if n := Len(runs); n < op.BaseLen() {
		return nil, fmt.Errorf("text length %d < operation base length %d", n, op.BaseLen())
	}
	it := &cursor{runs: runs}
	var out []Run
	for _, c := range op.Ops {
		switch {
		case c.IsRetain():
			for _, r := range it.take(c.Retain) {
				if c.Attributes != nil {
					r.Attrs = r.Attrs.Compose(c.Attributes)
				}
				out = append(out, r)
			}
		case c.IsInsert():
			out = append(out, Run{Text: c.Insert, Attrs: Attributes(nil).Compose(c.Attributes)})
		case c.IsDelete():
			it.take(c.Delete)
		}
	}
	out = append(out, it.rest()...)
	return Normalize(out), nil
}

// NewInsert creates an operation that inserts text at pos in a text of docLen.
func NewInsert(pos int, text string, docLen int) Operation {
	op := Operation{}.Retain(pos, nil).Insert(text, nil)
	return op.Retain(docLen-pos, nil)
}

// NewDelete creates an operation that deletes count code points at pos in a
// text of docLen.
func NewDelete(pos, count, docLen int) Operation {
	op := Operation{}.Retain(pos, nil).Delete(count)
	return op.Retain(docLen-pos-count, nil)
}

// NewFormat creates an operation that applies attrs to count code points at
// pos.
func NewFormat(pos, count int, attrs Attributes) Operation {
	return Operation{}.Retain(pos, nil).Retain(count, attrs)
}
