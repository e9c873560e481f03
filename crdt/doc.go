// Package crdt provides the container model documents are built from:
// maps, lists, attributed text and ordered trees rooted in a Doc, with a
// byte snapshot for persistence. It is a single-replica engine; merging
// concurrent replicas is left to the layer that exchanges snapshots.
package crdt

import (
	"errors"
	"sort"
)

var (
	// ErrOutOfRange is returned when an index or position is past the end
	// of a container.
	ErrOutOfRange = errors.New("crdt: index out of range")
	// ErrUnsupportedValue is returned for values a container cannot hold.
	ErrUnsupportedValue = errors.New("crdt: unsupported value")
	// ErrNodeNotFound is returned for unknown tree nodes.
	ErrNodeNotFound = errors.New("crdt: tree node not found")
)

// Doc is a set of named root maps. Containers reached from a Doc report
// their changes to it; Commit folds pending changes into the version.
type Doc struct {
	roots   map[string]*Map
	pending int
	version uint64
}

// NewDoc creates an empty document.
func NewDoc() *Doc {
	return &Doc{roots: make(map[string]*Map)}
}

// Map returns the root map called name, creating it if needed.
func (d *Doc) Map(name string) *Map {
	m, ok := d.roots[name]
	if !ok {
		m = &Map{doc: d, entries: make(map[string]any)}
		d.roots[name] = m
	}
	return m
}

// HasMap reports whether a root map called name exists.
func (d *Doc) HasMap(name string) bool {
	_, ok := d.roots[name]
	return ok
}

// Roots returns the root map names in sorted order.
func (d *Doc) Roots() []string {
	names := make([]string, 0, len(d.roots))
	for name := range d.roots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Commit folds pending changes into a new version. It reports whether
// there was anything to commit.
func (d *Doc) Commit() bool {
	if d.pending == 0 {
		return false
	}
	d.pending = 0
	d.version++
	return true
}

// Version returns the number of commits made to the document.
func (d *Doc) Version() uint64 { return d.version }

// Pending returns the number of uncommitted changes.
func (d *Doc) Pending() int { return d.pending }

// Clone returns a deep copy of the document.
func (d *Doc) Clone() *Doc {
	cp := &Doc{roots: make(map[string]*Map, len(d.roots)), pending: d.pending, version: d.version}
	for name, m := range d.roots {
		c := m.clone()
		c.attach(cp)
		cp.roots[name] = c
	}
	return cp
}

// Restore replaces the content of d with that of src. Root maps keep
// their identity; containers nested in them that were obtained before the
// call are detached from d.
func (d *Doc) Restore(src *Doc) {
	cp := src.Clone()
	for name := range d.roots {
		if _, ok := cp.roots[name]; !ok {
			delete(d.roots, name)
		}
	}
	for name, m := range cp.roots {
		if root, ok := d.roots[name]; ok {
			root.entries = m.entries
			m = root
		} else {
			d.roots[name] = m
		}
		m.attach(d)
	}
	d.pending = src.pending
	d.version = src.version
}

func (d *Doc) touch() {
	if d != nil {
		d.pending++
	}
}

// container is implemented by every container type.
type container interface {
	attach(d *Doc)
	cloneValue() any
}

// normalize converts v to the canonical scalar types the containers hold,
// or returns it unchanged if it is a container.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, int64, float64, string:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case float32:
		return float64(t), nil
	case *Map, *List, *Text, *Tree:
		return t, nil
	case map[string]any, []any:
		return cloneJSON(t), nil
	default:
		return nil, ErrUnsupportedValue
	}
}

// cloneJSON deep copies plain JSON-shaped values.
func cloneJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneJSON(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneJSON(e)
		}
		return out
	default:
		return t
	}
}

func cloneAny(v any) any {
	if c, ok := v.(container); ok {
		return c.cloneValue()
	}
	return cloneJSON(v)
}

func attachAny(v any, d *Doc) {
	if c, ok := v.(container); ok {
		c.attach(d)
	}
}
