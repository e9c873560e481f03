package crdt

import "fmt"

// List is an ordered sequence container.
type List struct {
	doc   *Doc
	items []any
}

// NewList creates a detached list.
func NewList() *List { return &List{} }

// Len returns the number of items.
func (l *List) Len() int { return len(l.items) }

// Get returns the item at i.
func (l *List) Get(i int) (any, bool) {
	if i < 0 || i >= len(l.items) {
		return nil, false
	}
	return l.items[i], true
}

// Insert places v at index i, shifting later items right.
func (l *List) Insert(i int, v any) error {
	if i < 0 || i > len(l.items) {
		return fmt.Errorf("list insert at %d of %d: %w", i, len(l.items), ErrOutOfRange)
	}
	nv, err := normalize(v)
	if err != nil {
		return fmt.Errorf("list insert: %w", err)
	}
	attachAny(nv, l.doc)
	l.items = append(l.items, nil)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = nv
	l.doc.touch()
	return nil
}

// Push appends v.
func (l *List) Push(v any) error { return l.Insert(len(l.items), v) }

// InsertMap inserts a new map at i and returns it.
func (l *List) InsertMap(i int) (*Map, error) {
	m := NewMap()
	if err := l.Insert(i, m); err != nil {
		return nil, err
	}
	return m, nil
}

// InsertText inserts a new text at i and returns it.
func (l *List) InsertText(i int) (*Text, error) {
	t := NewText()
	if err := l.Insert(i, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes n items starting at i.
func (l *List) Delete(i, n int) error {
	if i < 0 || n < 0 || i+n > len(l.items) {
		return fmt.Errorf("list delete [%d,%d) of %d: %w", i, i+n, len(l.items), ErrOutOfRange)
	}
	if n == 0 {
		return nil
	}
	l.items = append(l.items[:i], l.items[i+n:]...)
	l.doc.touch()
	return nil
}

// Values returns a shallow copy of the items.
func (l *List) Values() []any {
	out := make([]any, len(l.items))
	copy(out, l.items)
	return out
}

func (l *List) cloneValue() any {
	cp := &List{items: make([]any, len(l.items))}
	for i, v := range l.items {
		cp.items[i] = cloneAny(v)
	}
	return cp
}

func (l *List) attach(d *Doc) {
	l.doc = d
	for _, v := range l.items {
		attachAny(v, d)
	}
}
