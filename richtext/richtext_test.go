package richtext

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alimasry/go-collab-cms/crdt"
)

func newRichDoc(t *testing.T) *crdt.Doc {
	t.Helper()
	doc := crdt.NewDoc()
	require.NoError(t, InitRichText(doc, DefaultSchema()))
	doc.Commit()
	return doc
}

func textOf(t *testing.T, node map[string]any) string {
	t.Helper()
	var b strings.Builder
	var walk func(n map[string]any)
	walk = func(n map[string]any) {
		if n["type"] == "text" {
			b.WriteString(n["text"].(string))
		}
		content, _ := n["content"].([]any)
		for _, c := range content {
			walk(c.(map[string]any))
		}
	}
	walk(node)
	return b.String()
}

func insert(from int, text string) Step {
	return Step{
		StepType: StepReplace,
		From:     from,
		To:       from,
		Slice:    &Slice{Content: []SliceNode{{Type: "text", Text: text}}},
	}
}

func TestInitRichText(t *testing.T) {
	doc := newRichDoc(t)

	out, err := DocToJSON(doc)
	require.NoError(t, err)
	assert.Equal(t, "doc", out["type"])
	assert.Nil(t, out["attrs"])

	content := out["content"].([]any)
	require.Len(t, content, 1)
	para := content[0].(map[string]any)
	assert.Equal(t, "paragraph", para["type"])
	assert.Equal(t, []any{map[string]any{"type": "text", "text": "", "marks": nil}}, para["content"])

	// Re-initializing keeps existing content.
	_, err = ApplySteps(doc, []Step{insert(0, "x")})
	require.NoError(t, err)
	require.NoError(t, InitRichText(doc, DefaultSchema()))
	out, err = DocToJSON(doc)
	require.NoError(t, err)
	assert.Len(t, out["content"], 1)
	assert.Equal(t, "x", textOf(t, out))
}

func TestInitPlainText(t *testing.T) {
	doc := crdt.NewDoc()
	require.NoError(t, InitPlainText(doc))

	text, err := PlainText(doc)
	require.NoError(t, err)
	assert.Equal(t, 0, text.Len())

	_, err = PlainText(crdt.NewDoc())
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestTextStyles(t *testing.T) {
	schema, err := ParseSchema(`{"marks":{"bold":{"inclusive":true},"link":{"inclusive":false}},"nodes":{}}`)
	require.NoError(t, err)
	assert.Equal(t, "doc", schema.TopNode)

	doc := crdt.NewDoc()
	require.NoError(t, InitRichText(doc, schema))
	assert.Equal(t, map[string]string{"bold": "after", "link": "none"}, TextStyles(doc))

	plain := newRichDoc(t)
	assert.Empty(t, TextStyles(plain))
	assert.False(t, plain.HasMap("__meta"))
}

func TestParseSchemaYAML(t *testing.T) {
	schema, err := ParseSchemaYAML([]byte("marks:\n  em:\n    inclusive: true\n"))
	require.NoError(t, err)
	assert.True(t, schema.Marks["em"].Inclusive)
	assert.NotNil(t, schema.Nodes)

	again, err := ParseSchema(schema.String())
	require.NoError(t, err)
	assert.Equal(t, schema, again)

	_, err = ParseSchema("{")
	assert.Error(t, err)
}

func TestFindTextAt(t *testing.T) {
	doc := newRichDoc(t)
	_, err := ApplySteps(doc, []Step{insert(0, "ab")})
	require.NoError(t, err)

	p, err := FindTextAt(doc, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Offset)
	assert.Equal(t, "ab", p.Text.String())

	p, err = FindTextAt(doc, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Offset)

	_, err = FindTextAt(doc, 3)
	assert.ErrorIs(t, err, ErrPositionNotFound)
	var pnf *PositionNotFoundError
	require.ErrorAs(t, err, &pnf)
	assert.Equal(t, 3, pnf.Pos)
}

func TestFindTextAt_SecondParagraph(t *testing.T) {
	doc := newRichDoc(t)
	children, _ := doc.Map(RootKey).GetList(ChildrenKey)
	text, err := newParagraph(children, 1)
	require.NoError(t, err)
	require.NoError(t, text.Insert(0, "cd"))
	first, _ := FindTextAt(doc, 0)
	require.NoError(t, first.Text.Insert(0, "ab"))

	// "ab" spans [0,2], the boundary costs 1, "cd" spans [3,5].
	p, err := FindTextAt(doc, 4)
	require.NoError(t, err)
	assert.Equal(t, "cd", p.Text.String())
	assert.Equal(t, 3, p.Start)
	assert.Equal(t, 1, p.Offset)

	_, err = FindTextAt(doc, 6)
	assert.ErrorIs(t, err, ErrPositionNotFound)
}

func TestApplySteps_RoundTrip(t *testing.T) {
	doc := newRichDoc(t)
	changed, err := ApplySteps(doc, []Step{insert(0, "Hello")})
	require.NoError(t, err)
	assert.True(t, changed)

	first, err := DocToJSON(doc)
	require.NoError(t, err)
	assert.Equal(t, "Hello", textOf(t, first))

	second, err := DocToJSON(doc)
	require.NoError(t, err)
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.JSONEq(t, string(a), string(b))
}

func TestApplySteps_ReplaceRange(t *testing.T) {
	doc := newRichDoc(t)
	_, err := ApplySteps(doc, []Step{insert(0, "Hello")})
	require.NoError(t, err)

	_, err = ApplySteps(doc, []Step{{
		StepType: StepReplace, From: 1, To: 4,
		Slice: &Slice{Content: []SliceNode{{Type: "text", Text: "EL"}, {Type: "text", Text: "!"}}},
	}})
	require.NoError(t, err)

	out, _ := DocToJSON(doc)
	assert.Equal(t, "HEL!o", textOf(t, out))

	// Deletion is clipped to the end of the container.
	_, err = ApplySteps(doc, []Step{{StepType: StepReplace, From: 3, To: 99}})
	require.NoError(t, err)
	out, _ = DocToJSON(doc)
	assert.Equal(t, "HEL", textOf(t, out))
}

func TestApplySteps_MarkedInsert(t *testing.T) {
	doc := newRichDoc(t)
	_, err := ApplySteps(doc, []Step{{
		StepType: StepReplace,
		Slice: &Slice{Content: []SliceNode{{
			Type:  "text",
			Text:  "hi",
			Marks: []Mark{{Type: "link", Attrs: map[string]any{"href": "/x"}}, {Type: "bold"}},
		}}},
	}})
	require.NoError(t, err)

	out, _ := DocToJSON(doc)
	para := out["content"].([]any)[0].(map[string]any)
	run := para["content"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{
		map[string]any{"type": "bold", "attrs": map[string]any{"value": true}},
		map[string]any{"type": "link", "attrs": map[string]any{"href": "/x"}},
	}, run["marks"])
}

func TestApplySteps_AddRemoveMark(t *testing.T) {
	doc := newRichDoc(t)
	_, err := ApplySteps(doc, []Step{insert(0, "Hello")})
	require.NoError(t, err)

	_, err = ApplySteps(doc, []Step{{StepType: StepAddMark, From: 0, To: 3, Mark: &Mark{Type: "bold"}}})
	require.NoError(t, err)
	out, _ := DocToJSON(doc)
	runs := out["content"].([]any)[0].(map[string]any)["content"].([]any)
	require.Len(t, runs, 2)
	assert.Equal(t, "Hel", runs[0].(map[string]any)["text"])
	assert.NotNil(t, runs[0].(map[string]any)["marks"])

	_, err = ApplySteps(doc, []Step{
		{StepType: StepAddMark, From: 0, To: 5, Mark: &Mark{Type: "bold"}},
		{StepType: StepRemoveMark, From: 0, To: 5, Mark: &Mark{Type: "bold"}},
	})
	require.NoError(t, err)
	out, _ = DocToJSON(doc)
	runs = out["content"].([]any)[0].(map[string]any)["content"].([]any)
	require.Len(t, runs, 1)
	assert.Equal(t, "Hello", runs[0].(map[string]any)["text"])
	assert.Nil(t, runs[0].(map[string]any)["marks"])
}

func TestApplySteps_AtomicBatch(t *testing.T) {
	doc := newRichDoc(t)
	_, err := ApplySteps(doc, []Step{insert(0, "ab")})
	require.NoError(t, err)
	version := doc.Version()

	_, err = ApplySteps(doc, []Step{insert(0, "zz"), insert(50, "x")})
	assert.ErrorIs(t, err, ErrPositionNotFound)
	assert.Equal(t, version, doc.Version())

	out, _ := DocToJSON(doc)
	assert.Equal(t, "ab", textOf(t, out))
}

func TestApplySteps_IgnoresUnknown(t *testing.T) {
	doc := newRichDoc(t)
	changed, err := ApplySteps(doc, []Step{{StepType: "replaceAround", From: 40}})
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = ApplySteps(doc, nil)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestStep_JSON(t *testing.T) {
	var steps []Step
	raw := `[{"stepType":"addMark","from":1,"to":3,"mark":{"type":"em"}},
		{"stepType":"replace","from":0,"to":0,"slice":{"content":[{"type":"text","text":"a"}]}}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &steps))
	require.Len(t, steps, 2)
	assert.Equal(t, "em", steps[0].Mark.Type)
	assert.Nil(t, steps[0].Mark.Attrs)
	assert.Equal(t, "a", steps[1].Slice.Content[0].Text)
}

func TestSetText(t *testing.T) {
	doc := newRichDoc(t)
	_, err := ApplySteps(doc, []Step{insert(0, "old")})
	require.NoError(t, err)

	require.NoError(t, SetText(doc, "new body"))
	out, _ := DocToJSON(doc)
	assert.Len(t, out["content"], 1)
	assert.Equal(t, "new body", textOf(t, out))
}

func TestDocToJSON_Attributes(t *testing.T) {
	doc := newRichDoc(t)
	children, _ := doc.Map(RootKey).GetList(ChildrenKey)
	v, _ := children.Get(0)
	para := v.(*crdt.Map)
	attrs, _ := para.GetMap(AttributesKey)
	require.NoError(t, attrs.Set("level", 2))
	require.NoError(t, attrs.Set("align", "left"))
	require.NoError(t, attrs.Set("nested", crdt.NewList()))

	out, err := DocToJSON(doc)
	require.NoError(t, err)
	p := out["content"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{"level": int64(2), "align": "left"}, p["attrs"])

	_, err = DocToJSON(crdt.NewDoc())
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestDocToJSON_RootWithoutChildren(t *testing.T) {
	doc := crdt.NewDoc()
	require.NoError(t, doc.Map(RootKey).Set(NodeNameKey, "doc"))

	out, err := DocToJSON(doc)
	assert.ErrorIs(t, err, ErrMalformedDocument)
	assert.Nil(t, out)
}

func TestDocToJSON_SkipsUnnamedNodes(t *testing.T) {
	doc := newRichDoc(t)
	children, _ := doc.Map(RootKey).GetList(ChildrenKey)
	require.NoError(t, children.Insert(children.Len(), crdt.NewMap()))

	out, err := DocToJSON(doc)
	require.NoError(t, err)
	content := out["content"].([]any)
	require.Len(t, content, 1)
	assert.Equal(t, "paragraph", content[0].(map[string]any)["type"])
}
