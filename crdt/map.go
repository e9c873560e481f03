package crdt

import (
	"fmt"
	"sort"
)

// Map is an associative container. Values are nil, bool, int64, float64,
// string, plain JSON objects/arrays, or nested containers.
type Map struct {
	doc     *Doc
	entries map[string]any
}

// NewMap creates a detached map. It attaches to a document when stored in
// an attached container.
func NewMap() *Map {
	return &Map{entries: make(map[string]any)}
}

// Attached reports whether the map belongs to a document.
func (m *Map) Attached() bool { return m.doc != nil }

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// GetString returns the value under key if it is a string.
func (m *Map) GetString(key string) (string, bool) {
	s, ok := m.entries[key].(string)
	return s, ok
}

// GetMap returns the value under key if it is a map container.
func (m *Map) GetMap(key string) (*Map, bool) {
	c, ok := m.entries[key].(*Map)
	return c, ok
}

// GetList returns the value under key if it is a list container.
func (m *Map) GetList(key string) (*List, bool) {
	c, ok := m.entries[key].(*List)
	return c, ok
}

// GetText returns the value under key if it is a text container.
func (m *Map) GetText(key string) (*Text, bool) {
	c, ok := m.entries[key].(*Text)
	return c, ok
}

// GetTree returns the value under key if it is a tree container.
func (m *Map) GetTree(key string) (*Tree, bool) {
	c, ok := m.entries[key].(*Tree)
	return c, ok
}

// Set stores v under key. Detached containers become part of m's document.
func (m *Map) Set(key string, v any) error {
	nv, err := normalize(v)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	attachAny(nv, m.doc)
	m.entries[key] = nv
	m.doc.touch()
	return nil
}

// Delete removes key.
func (m *Map) Delete(key string) {
	if _, ok := m.entries[key]; !ok {
		return
	}
	delete(m.entries, key)
	m.doc.touch()
}

// GetOrCreateMap returns the map under key, creating it if the key is
// unset or holds something else.
func (m *Map) GetOrCreateMap(key string) *Map {
	if c, ok := m.GetMap(key); ok {
		return c
	}
	c := NewMap()
	_ = m.Set(key, c)
	return c
}

// GetOrCreateList returns the list under key, creating it if needed.
func (m *Map) GetOrCreateList(key string) *List {
	if c, ok := m.GetList(key); ok {
		return c
	}
	c := NewList()
	_ = m.Set(key, c)
	return c
}

// GetOrCreateText returns the text under key, creating it if needed.
func (m *Map) GetOrCreateText(key string) *Text {
	if c, ok := m.GetText(key); ok {
		return c
	}
	c := NewText()
	_ = m.Set(key, c)
	return c
}

// GetOrCreateTree returns the tree under key, creating it if needed.
func (m *Map) GetOrCreateTree(key string) *Tree {
	if c, ok := m.GetTree(key); ok {
		return c
	}
	c := NewTree()
	_ = m.Set(key, c)
	return c
}

// Keys returns the keys in sorted order.
func (m *Map) Keys() []string {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.entries) }

// Range calls fn for each entry in key order until fn returns false.
func (m *Map) Range(fn func(key string, v any) bool) {
	for _, k := range m.Keys() {
		if !fn(k, m.entries[k]) {
			return
		}
	}
}

// Clone returns a detached deep copy.
func (m *Map) Clone() *Map { return m.clone() }

func (m *Map) clone() *Map {
	cp := &Map{entries: make(map[string]any, len(m.entries))}
	for k, v := range m.entries {
		cp.entries[k] = cloneAny(v)
	}
	return cp
}

func (m *Map) cloneValue() any { return m.clone() }

func (m *Map) attach(d *Doc) {
	m.doc = d
	for _, v := range m.entries {
		attachAny(v, d)
	}
}
