package crdt

import (
	"errors"
	"fmt"

	"github.com/ugorji/go/codec"

	"github.com/alimasry/go-collab-cms/ot"
)

const snapshotFormat = 1

// ErrBadSnapshot is returned by Import for payloads it cannot decode.
var ErrBadSnapshot = errors.New("crdt: malformed snapshot")

var mh codec.MsgpackHandle

const (
	kindNull uint8 = iota
	kindBool
	kindInt
	kindFloat
	kindString
	kindObject // plain JSON object
	kindArray  // plain JSON array
	kindMap
	kindList
	kindText
	kindTree
)

type node struct {
	K uint8            `codec:"k"`
	B bool             `codec:"b,omitempty"`
	I int64            `codec:"i,omitempty"`
	F float64          `codec:"f,omitempty"`
	S string           `codec:"s,omitempty"`
	M map[string]*node `codec:"m,omitempty"`
	L []*node          `codec:"l,omitempty"`
	R []textRun        `codec:"r,omitempty"`
	T []treeEntry      `codec:"t,omitempty"`
	N int              `codec:"n,omitempty"`
}

type textRun struct {
	Text  string           `codec:"x"`
	Attrs map[string]*node `codec:"a,omitempty"`
}

type treeEntry struct {
	ID     string `codec:"id"`
	Parent string `codec:"p,omitempty"`
	Meta   *node  `codec:"m"`
}

type snapshot struct {
	Format  int              `codec:"f"`
	Version uint64           `codec:"v"`
	Roots   map[string]*node `codec:"r"`
}

// Export encodes the whole document, including uncommitted changes.
func (d *Doc) Export() ([]byte, error) {
	snap := snapshot{Format: snapshotFormat, Version: d.version, Roots: make(map[string]*node, len(d.roots))}
	for name, m := range d.roots {
		snap.Roots[name] = encodeValue(m)
	}
	var b []byte
	if err := codec.NewEncoderBytes(&b, &mh).Encode(&snap); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return b, nil
}

// Import replaces the content of d with an exported snapshot.
func (d *Doc) Import(data []byte) error {
	var snap snapshot
	if err := codec.NewDecoderBytes(data, &mh).Decode(&snap); err != nil {
		return fmt.Errorf("import: %w: %v", ErrBadSnapshot, err)
	}
	if snap.Format != snapshotFormat {
		return fmt.Errorf("import: %w: format %d", ErrBadSnapshot, snap.Format)
	}
	roots := make(map[string]*Map, len(snap.Roots))
	for name, n := range snap.Roots {
		v, err := decodeValue(n)
		if err != nil {
			return fmt.Errorf("import root %q: %w", name, err)
		}
		m, ok := v.(*Map)
		if !ok {
			return fmt.Errorf("import root %q: %w: not a map", name, ErrBadSnapshot)
		}
		roots[name] = m
	}
	d.roots = roots
	for _, m := range d.roots {
		m.attach(d)
	}
	d.version = snap.Version
	d.pending = 0
	return nil
}

// FromBytes creates a document from an exported snapshot.
func FromBytes(data []byte) (*Doc, error) {
	d := NewDoc()
	if err := d.Import(data); err != nil {
		return nil, err
	}
	return d, nil
}

func encodeValue(v any) *node {
	switch t := v.(type) {
	case nil:
		return &node{K: kindNull}
	case bool:
		return &node{K: kindBool, B: t}
	case int64:
		return &node{K: kindInt, I: t}
	case int:
		return &node{K: kindInt, I: int64(t)}
	case float64:
		return &node{K: kindFloat, F: t}
	case string:
		return &node{K: kindString, S: t}
	case map[string]any:
		return &node{K: kindObject, M: encodeEntries(t)}
	case ot.Attributes:
		return &node{K: kindObject, M: encodeEntries(t)}
	case []any:
		n := &node{K: kindArray, L: make([]*node, len(t))}
		for i, e := range t {
			n.L[i] = encodeValue(e)
		}
		return n
	case *Map:
		return &node{K: kindMap, M: encodeEntries(t.entries)}
	case *List:
		n := &node{K: kindList, L: make([]*node, len(t.items))}
		for i, e := range t.items {
			n.L[i] = encodeValue(e)
		}
		return n
	case *Text:
		n := &node{K: kindText}
		for _, r := range t.buf.Runs {
			n.R = append(n.R, textRun{Text: r.Text, Attrs: encodeEntries(r.Attrs)})
		}
		return n
	case *Tree:
		n := &node{K: kindTree, N: t.next}
		for _, id := range t.Nodes() {
			tn := t.nodes[id]
			n.T = append(n.T, treeEntry{ID: string(id), Parent: string(tn.parent), Meta: encodeValue(tn.meta)})
		}
		return n
	default:
		return &node{K: kindNull}
	}
}

func encodeEntries[M ~map[string]any](m M) map[string]*node {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]*node, len(m))
	for k, v := range m {
		out[k] = encodeValue(v)
	}
	return out
}

func decodeValue(n *node) (any, error) {
	if n == nil {
		return nil, nil
	}
	switch n.K {
	case kindNull:
		return nil, nil
	case kindBool:
		return n.B, nil
	case kindInt:
		return n.I, nil
	case kindFloat:
		return n.F, nil
	case kindString:
		return n.S, nil
	case kindObject:
		return decodeEntries(n.M)
	case kindArray:
		out := make([]any, len(n.L))
		for i, e := range n.L {
			v, err := decodeValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case kindMap:
		entries, err := decodeEntries(n.M)
		if err != nil {
			return nil, err
		}
		return &Map{entries: entries}, nil
	case kindList:
		l := &List{items: make([]any, len(n.L))}
		for i, e := range n.L {
			v, err := decodeValue(e)
			if err != nil {
				return nil, err
			}
			l.items[i] = v
		}
		return l, nil
	case kindText:
		runs := make([]ot.Run, 0, len(n.R))
		for _, r := range n.R {
			attrs, err := decodeEntries(r.Attrs)
			if err != nil {
				return nil, err
			}
			run := ot.Run{Text: r.Text}
			if len(attrs) > 0 {
				run.Attrs = ot.Attributes(attrs)
			}
			runs = append(runs, run)
		}
		return &Text{buf: &ot.Document{Runs: ot.Normalize(runs)}}, nil
	case kindTree:
		return decodeTree(n)
	default:
		return nil, fmt.Errorf("%w: value kind %d", ErrBadSnapshot, n.K)
	}
}

func decodeEntries(m map[string]*node) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, e := range m {
		v, err := decodeValue(e)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func decodeTree(n *node) (*Tree, error) {
	t := NewTree()
	t.next = n.N
	for _, e := range n.T {
		v, err := decodeValue(e.Meta)
		if err != nil {
			return nil, err
		}
		meta, ok := v.(*Map)
		if !ok {
			meta = NewMap()
		}
		id, parent := TreeID(e.ID), TreeID(e.Parent)
		t.nodes[id] = &treeNode{parent: parent, meta: meta}
		if parent == "" {
			t.roots = append(t.roots, id)
			continue
		}
		p, ok := t.nodes[parent]
		if !ok {
			return nil, fmt.Errorf("%w: tree node %q before its parent %q", ErrBadSnapshot, id, parent)
		}
		p.children = append(p.children, id)
	}
	return t, nil
}
