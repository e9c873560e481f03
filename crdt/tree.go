package crdt

import (
	"fmt"
	"strconv"
)

// TreeID identifies a node within a Tree. The zero value denotes the
// (virtual) root.
type TreeID string

type treeNode struct {
	parent   TreeID
	children []TreeID
	meta     *Map
}

// Tree is an ordered tree of nodes, each carrying a metadata map.
type Tree struct {
	doc   *Doc
	nodes map[TreeID]*treeNode
	roots []TreeID
	next  int
}

// NewTree creates a detached, empty tree.
func NewTree() *Tree {
	return &Tree{nodes: make(map[TreeID]*treeNode)}
}

// Create appends a new node under parent ("" for the top level).
func (t *Tree) Create(parent TreeID) (TreeID, error) {
	if parent != "" {
		if _, ok := t.nodes[parent]; !ok {
			return "", fmt.Errorf("create under %q: %w", parent, ErrNodeNotFound)
		}
	}
	t.next++
	id := TreeID("n" + strconv.Itoa(t.next))
	meta := NewMap()
	meta.attach(t.doc)
	t.nodes[id] = &treeNode{parent: parent, meta: meta}
	if parent == "" {
		t.roots = append(t.roots, id)
	} else {
		p := t.nodes[parent]
		p.children = append(p.children, id)
	}
	t.doc.touch()
	return id, nil
}

// Contains reports whether id is a node of the tree.
func (t *Tree) Contains(id TreeID) bool {
	_, ok := t.nodes[id]
	return ok
}

// Meta returns the metadata map of a node.
func (t *Tree) Meta(id TreeID) (*Map, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("meta of %q: %w", id, ErrNodeNotFound)
	}
	return n.meta, nil
}

// Parent returns the parent of id, "" for top-level nodes.
func (t *Tree) Parent(id TreeID) (TreeID, error) {
	n, ok := t.nodes[id]
	if !ok {
		return "", fmt.Errorf("parent of %q: %w", id, ErrNodeNotFound)
	}
	return n.parent, nil
}

// Children returns the ordered children of parent ("" for the top level).
func (t *Tree) Children(parent TreeID) []TreeID {
	var src []TreeID
	if parent == "" {
		src = t.roots
	} else if n, ok := t.nodes[parent]; ok {
		src = n.children
	}
	out := make([]TreeID, len(src))
	copy(out, src)
	return out
}

// Nodes returns every node in depth-first pre-order.
func (t *Tree) Nodes() []TreeID {
	out := make([]TreeID, 0, len(t.nodes))
	var walk func(ids []TreeID)
	walk = func(ids []TreeID) {
		for _, id := range ids {
			out = append(out, id)
			walk(t.nodes[id].children)
		}
	}
	walk(t.roots)
	return out
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

func (t *Tree) cloneValue() any {
	cp := NewTree()
	cp.next = t.next
	cp.roots = append([]TreeID(nil), t.roots...)
	for id, n := range t.nodes {
		cp.nodes[id] = &treeNode{
			parent:   n.parent,
			children: append([]TreeID(nil), n.children...),
			meta:     n.meta.clone(),
		}
	}
	return cp
}

func (t *Tree) attach(d *Doc) {
	t.doc = d
	for _, n := range t.nodes {
		n.meta.attach(d)
	}
}
