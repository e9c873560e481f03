package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alimasry/go-collab-cms/model"
	"github.com/alimasry/go-collab-cms/richtext"
	"github.com/alimasry/go-collab-cms/store"
)

func insert(pos int, s string) richtext.Step {
	return richtext.Step{
		StepType: richtext.StepReplace,
		From:     pos,
		To:       pos,
		Slice:    &richtext.Slice{Content: []richtext.SliceNode{{Type: "text", Text: s}}},
	}
}

func initialized(t *testing.T, st store.Store, opts ...Option) (*Workspace, string, string) {
	t.Helper()
	w := New(st, opts...)
	out, err := w.InitDefault(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "initialized", out["status"])
	return w, out["siteId"].(string), out["themeId"].(string)
}

// fileID returns the id of the file called name in collection.
func fileID(t *testing.T, w *Workspace, kind model.ProjectKind, collection, name string) string {
	t.Helper()
	files, err := w.Files(context.Background(), kind, collection)
	require.NoError(t, err)
	for _, f := range files {
		j := f.(map[string]any)
		if j["name"] == name {
			return j["id"].(string)
		}
	}
	t.Fatalf("no file %q in %s", name, collection)
	return ""
}

func TestWorkspace_NoActiveProject(t *testing.T) {
	w := New(nil)

	_, err := w.Site()
	assert.ErrorIs(t, err, ErrNoActiveProject)
	_, err = w.Collections(model.ProjectTheme)
	assert.ErrorIs(t, err, ErrNoActiveProject)
	_, err = w.LoadState(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrNoActiveProject)
	_, err = w.Collections(model.ProjectKind("blog"))
	assert.Error(t, err)
}

func TestWorkspace_InitDefault(t *testing.T) {
	w, siteID, themeID := initialized(t, nil)

	site, err := w.Site()
	require.NoError(t, err)
	assert.Equal(t, siteID, site["id"])
	assert.Equal(t, themeID, site["themeId"])
	assert.Equal(t, "New Site", site["name"])

	theme, err := w.Theme()
	require.NoError(t, err)
	assert.Equal(t, themeID, theme["id"])
	assert.NotContains(t, theme, "themeId")

	cols, err := w.Collections(model.ProjectSite)
	require.NoError(t, err)
	var names []string
	for _, c := range cols {
		names = append(names, c.(map[string]any)["name"].(string))
	}
	assert.Equal(t, []string{"asset", "page", "post"}, names)

	col, err := w.Collection(model.ProjectTheme, "template")
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"name": "content", "type": "text", "required": true}}, col["fields"])

	_, err = w.Collection(model.ProjectTheme, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestWorkspace_CreateProjects(t *testing.T) {
	w := New(nil)
	ctx := context.Background()

	theme, err := w.CreateTheme(ctx, "Minimal")
	require.NoError(t, err)
	assert.Equal(t, "Minimal", theme["name"])

	site, err := w.CreateSite(ctx, "Blog", theme["id"].(string))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": site["id"], "name": "Blog", "themeId": theme["id"]}, site)

	got, err := w.Site()
	require.NoError(t, err)
	assert.Equal(t, "Blog", got["name"])

	_, err = w.CreateSite(ctx, "Orphan", "")
	assert.ErrorIs(t, err, model.ErrMissingField)
}

func TestWorkspace_CreateAndUpdateFile(t *testing.T) {
	w, _, _ := initialized(t, nil)
	ctx := context.Background()

	created, err := w.CreateFile(ctx, model.ProjectSite, "page", "about")
	require.NoError(t, err)
	id := created["id"].(string)
	assert.Equal(t, "page", created["collection_type"])

	for _, u := range []Update{
		{Kind: UpdateSetTitle, Value: "About us"},
		{Kind: UpdateSetURL, Value: "/about"},
		{Kind: UpdateSetName, Value: "about-page"},
		{Kind: UpdateSetField, Name: "template", Value: "index"},
	} {
		out, err := w.UpdateFile(ctx, model.ProjectSite, "page", id, u)
		require.NoError(t, err, u.Kind)
		assert.Equal(t, "updated", out["status"])
	}

	f, err := w.File(ctx, model.ProjectSite, "page", id)
	require.NoError(t, err)
	assert.Equal(t, "About us", f["title"])
	assert.Equal(t, "/about", f["url"])
	assert.Equal(t, "about-page", f["name"])

	// The listing reads the collection's cached metadata.
	assert.Equal(t, id, fileID(t, w, model.ProjectSite, "page", "about-page"))

	_, err = w.UpdateFile(ctx, model.ProjectSite, "page", "nope", Update{Kind: UpdateSetName, Value: "x"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestWorkspace_UpdateSupportMatrix(t *testing.T) {
	w, _, _ := initialized(t, nil)
	ctx := context.Background()

	asset, err := w.CreateFile(ctx, model.ProjectSite, "asset", "logo")
	require.NoError(t, err)
	assetID := asset["id"].(string)
	pageID := fileID(t, w, model.ProjectSite, "page", "main")
	indexID := fileID(t, w, model.ProjectTheme, "template", "index")

	cases := []struct {
		kind       model.ProjectKind
		collection string
		id         string
		update     Update
		supported  bool
	}{
		{model.ProjectSite, "page", pageID, Update{Kind: UpdateSetBody, Value: "text"}, true},
		{model.ProjectSite, "page", pageID, Update{Kind: UpdateSetContent, Value: "x"}, false},
		{model.ProjectSite, "page", pageID, Update{Kind: UpdateSetAlt, Value: "x"}, false},
		{model.ProjectSite, "asset", assetID, Update{Kind: UpdateSetMimeType, Value: "image/png"}, true},
		{model.ProjectSite, "asset", assetID, Update{Kind: UpdateSetAlt, Value: "Logo"}, true},
		{model.ProjectSite, "asset", assetID, Update{Kind: UpdateSetURL, Value: "/logo.png"}, true},
		{model.ProjectSite, "asset", assetID, Update{Kind: UpdateSetTitle, Value: "x"}, false},
		{model.ProjectTheme, "template", indexID, Update{Kind: UpdateSetContent, Value: "<p/>"}, true},
		{model.ProjectTheme, "template", indexID, Update{Kind: UpdateSetBody, Value: "x"}, false},
		{model.ProjectTheme, "template", indexID, Update{Kind: UpdateSetURL, Value: "x"}, false},
	}
	for _, tc := range cases {
		_, err := w.UpdateFile(ctx, tc.kind, tc.collection, tc.id, tc.update)
		if tc.supported {
			assert.NoError(t, err, "%s on %s", tc.update.Kind, tc.collection)
		} else {
			assert.ErrorIs(t, err, model.ErrUnsupportedValue, "%s on %s", tc.update.Kind, tc.collection)
		}
	}

	f, err := w.File(ctx, model.ProjectSite, "asset", assetID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", f["mime_type"])
	assert.Equal(t, "Logo", f["alt"])

	doc, err := w.Document(ctx, model.ProjectTheme, "template", indexID)
	require.NoError(t, err)
	assert.Equal(t, "<p/>", doc["content"])
}

func TestWorkspace_InvalidUpdate(t *testing.T) {
	w, _, _ := initialized(t, nil)
	pageID := fileID(t, w, model.ProjectSite, "page", "main")

	_, err := w.UpdateFile(context.Background(), model.ProjectSite, "page", pageID, Update{Kind: UpdateSetField, Value: "x"})
	assert.Error(t, err)
	_, err = w.UpdateFile(context.Background(), model.ProjectSite, "page", pageID, Update{Kind: "rename"})
	assert.Error(t, err)
}

func TestWorkspace_Document(t *testing.T) {
	w, _, _ := initialized(t, nil)
	ctx := context.Background()

	indexID := fileID(t, w, model.ProjectTheme, "template", "index")
	doc, err := w.Document(ctx, model.ProjectTheme, "template", indexID)
	require.NoError(t, err)
	assert.Equal(t, model.TemplateContent, doc["content"])

	pageID := fileID(t, w, model.ProjectSite, "page", "main")
	doc, err = w.Document(ctx, model.ProjectSite, "page", pageID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), doc["version"])
	assert.Equal(t, "doc", doc["doc"].(map[string]any)["type"])

	asset, err := w.CreateFile(ctx, model.ProjectSite, "asset", "logo")
	require.NoError(t, err)
	_, err = w.Document(ctx, model.ProjectSite, "asset", asset["id"].(string))
	assert.ErrorIs(t, err, model.ErrUnsupportedValue)
}

func TestWorkspace_ApplySteps(t *testing.T) {
	w, _, _ := initialized(t, nil)
	ctx := context.Background()
	pageID := fileID(t, w, model.ProjectSite, "page", "main")

	v, err := w.ApplySteps(ctx, model.ProjectSite, "page", pageID, []richtext.Step{insert(0, "Hi")}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	// The collection cache follows the document.
	f, err := w.File(ctx, model.ProjectSite, "page", pageID)
	require.NoError(t, err)
	assert.Equal(t, "main", f["name"])

	doc, err := w.Document(ctx, model.ProjectSite, "page", pageID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc["version"])
	para := doc["doc"].(map[string]any)["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "Hi", para["content"].([]any)[0].(map[string]any)["text"])

	indexID := fileID(t, w, model.ProjectTheme, "template", "index")
	_, err = w.ApplySteps(ctx, model.ProjectTheme, "template", indexID, []richtext.Step{insert(0, "x")}, 0)
	assert.ErrorIs(t, err, model.ErrUnsupportedValue)

	v, err = w.ApplySteps(ctx, model.ProjectSite, "page", pageID, []richtext.Step{insert(99, "x")}, 1)
	assert.ErrorIs(t, err, model.ErrPositionNotFound)
	assert.Equal(t, int64(1), v)
}

func TestWorkspace_SaveAndLoadState(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	w, siteID, themeID := initialized(t, st)

	pageID := fileID(t, w, model.ProjectSite, "page", "main")
	_, err := w.UpdateFile(ctx, model.ProjectSite, "page", pageID, Update{Kind: UpdateSetTitle, Value: "Saved"})
	require.NoError(t, err)
	_, err = w.ApplySteps(ctx, model.ProjectSite, "page", pageID, []richtext.Step{insert(0, "Body")}, 0)
	require.NoError(t, err)

	for _, kind := range []model.ProjectKind{model.ProjectSite, model.ProjectTheme} {
		out, err := w.SaveState(ctx, kind)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"status": "saved", "project_type": string(kind)}, out)
	}

	fresh := New(st)
	out, err := fresh.LoadState(ctx, siteID, themeID)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "loaded", "siteId": siteID, "themeId": themeID}, out)

	f, err := fresh.File(ctx, model.ProjectSite, "page", pageID)
	require.NoError(t, err)
	assert.Equal(t, "Saved", f["title"])

	doc, err := fresh.Document(ctx, model.ProjectSite, "page", pageID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc["version"])

	// Reporting the active projects needs no ids.
	out, err = fresh.LoadState(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, siteID, out["siteId"])

	_, err = New(st).LoadState(ctx, themeID, "")
	assert.Error(t, err)
	_, err = New(st).LoadState(ctx, "missing", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWorkspace_SaveWithoutStore(t *testing.T) {
	w, siteID, _ := initialized(t, nil)
	_, err := w.SaveState(context.Background(), model.ProjectSite)
	assert.ErrorIs(t, err, ErrNoStore)
	_, err = w.LoadState(context.Background(), siteID, "")
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestWorkspace_Autosave(t *testing.T) {
	st := store.NewMemoryStore()
	w, siteID, _ := initialized(t, st, WithAutosave(true))

	_, err := st.Load(context.Background(), model.ProjectsNamespace, siteID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = w.CreateFile(context.Background(), model.ProjectSite, "post", "second")
	require.NoError(t, err)
	_, err = st.Load(context.Background(), model.ProjectsNamespace, siteID)
	assert.NoError(t, err)
}

func TestWorkspace_ExportImport(t *testing.T) {
	w, _, themeID := initialized(t, nil)

	data, err := w.Export(model.ProjectTheme)
	require.NoError(t, err)

	created := time.UnixMilli(1_700_000_000_000)
	other := New(nil)
	out, err := other.Import(data, themeID, model.ProjectTheme, created, created)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": themeID, "name": "New Theme"}, out)

	cols, err := other.Collections(model.ProjectTheme)
	require.NoError(t, err)
	assert.Len(t, cols, 4)

	_, err = other.Import([]byte("garbage"), "x", model.ProjectSite, created, created)
	assert.Error(t, err)
	_, err = other.Export(model.ProjectSite)
	assert.ErrorIs(t, err, ErrNoActiveProject)
}

func TestWorkspace_SchemaAndCollections(t *testing.T) {
	ctx := context.Background()
	schema, err := richtext.ParseSchemaYAML([]byte("marks:\n  em:\n    inclusive: true\n"))
	require.NoError(t, err)
	w, _, _ := initialized(t, nil,
		WithSchema(schema),
		WithCollections(model.CollectionSpec{Name: "events", Kind: model.KindPost}))

	out, err := w.CreateFile(ctx, model.ProjectSite, "events", "launch")
	require.NoError(t, err)

	c, err := w.site.p.Collection("events")
	require.NoError(t, err)
	f, err := c.GetFile(ctx, out["id"].(string), model.KindPost)
	require.NoError(t, err)
	got, err := model.Schema(f.(model.HasRichText))
	require.NoError(t, err)
	assert.Contains(t, got.Marks, "em")

	_, err = w.theme.p.Collection("events")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
