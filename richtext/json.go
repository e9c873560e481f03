package richtext

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/alimasry/go-collab-cms/crdt"
	"github.com/alimasry/go-collab-cms/ot"
)

// DocToJSON renders the document in the editor's JSON form:
//
//	{"type": "doc", "attrs": ..., "content": [...]}
//
// Element nodes carry type, attrs and content; text runs become
// {"type": "text", "text": ..., "marks": ...} and an empty text yields
// one empty text node. Values that have no JSON counterpart are dropped,
// as are element nodes without a name.
func DocToJSON(doc *crdt.Doc) (map[string]any, error) {
	if !doc.HasMap(RootKey) {
		return nil, fmt.Errorf("%w: no %q root", ErrMalformedDocument, RootKey)
	}
	root := doc.Map(RootKey)
	name, ok := root.GetString(NodeNameKey)
	if !ok {
		return nil, fmt.Errorf("%w: root has no %s", ErrMalformedDocument, NodeNameKey)
	}

	children, ok := root.GetList(ChildrenKey)
	if !ok {
		return nil, fmt.Errorf("%w: root has no %s", ErrMalformedDocument, ChildrenKey)
	}
	content := append([]any{}, listToJSON(children)...)
	return map[string]any{
		"type":    name,
		"attrs":   attrsToJSON(root),
		"content": content,
	}, nil
}

func listToJSON(list *crdt.List) []any {
	var out []any
	for _, v := range list.Values() {
		switch n := v.(type) {
		case *crdt.Text:
			runs := n.Runs()
			if len(runs) == 0 {
				out = append(out, map[string]any{"type": "text", "text": "", "marks": nil})
				continue
			}
			for _, run := range runs {
				out = append(out, map[string]any{
					"type":  "text",
					"text":  run.Text,
					"marks": marksToJSON(run.Attrs),
				})
			}
		case *crdt.Map:
			node, err := nodeToJSON(n)
			if err != nil {
				slog.Warn("doc to json: skipping node", "error", err)
				continue
			}
			out = append(out, node)
		}
	}
	return out
}

func nodeToJSON(m *crdt.Map) (map[string]any, error) {
	name, ok := m.GetString(NodeNameKey)
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: node has no %s", ErrMalformedDocument, NodeNameKey)
	}
	node := map[string]any{
		"type":  name,
		"attrs": attrsToJSON(m),
	}
	if children, ok := m.GetList(ChildrenKey); ok {
		if content := listToJSON(children); len(content) > 0 {
			node["content"] = content
		} else {
			node["content"] = nil
		}
	}
	return node, nil
}

func attrsToJSON(m *crdt.Map) map[string]any {
	attrs, ok := m.GetMap(AttributesKey)
	if !ok {
		return nil
	}
	out := make(map[string]any)
	attrs.Range(func(k string, v any) bool {
		if jv, ok := scalar(v); ok {
			out[k] = jv
		}
		return true
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

func marksToJSON(attrs ot.Attributes) []any {
	if len(attrs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	marks := make([]any, 0, len(keys))
	for _, k := range keys {
		mark := map[string]any{"type": k}
		switch v := attrs[k].(type) {
		case map[string]any:
			mark["attrs"] = v
		default:
			if jv, ok := scalar(v); ok {
				mark["attrs"] = jv
			}
		}
		marks = append(marks, mark)
	}
	return marks
}

func scalar(v any) (any, bool) {
	switch t := v.(type) {
	case string, bool, int64, float64:
		return t, true
	case int:
		return int64(t), true
	default:
		return nil, false
	}
}
