package model

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alimasry/go-collab-cms/crdt"
	"github.com/alimasry/go-collab-cms/richtext"
)

// Project metadata keys.
const (
	KeyThemeID = "themeId"

	keyKind    = "kind"
	keyCreated = "created"
	keyUpdated = "updated"
)

// DefaultTitle is the title of the seed page and post of a new site.
const DefaultTitle = "Hello World Title!"

// DefaultStyle is the content of the seed style sheet of a new theme.
const DefaultStyle = `* {
  font-family: sans-serif;
}

h1 {
  font-size: 2rem;
  font-weight: bold;
}

h2 {
  font-size: 1.5rem;
  font-weight: bold;
}

img {
  width: 80%;
}`

// TemplateContent is the content of the seed index template of a new
// theme.
const TemplateContent = `<!DOCTYPE html>
<html lang="en">

<head>
<link rel="stylesheet" href="style.css" />
<title>{{title}}</title>
</head>

<body>
<h1>{{title}}</h1>
{{{content}}}
</body>
</html>`

// Project is a site or a theme: a document of collections plus the arena
// of its file documents.
type Project struct {
	id      string
	kind    ProjectKind
	created time.Time
	updated time.Time
	doc     *crdt.Doc
	arena   *Arena
}

type Option func(*options)

type options struct {
	persistence Persistence
	schema      richtext.Schema
	collections []CollectionSpec
}

// WithPersistence makes the project hydrate file documents it has not
// loaded yet from p.
func WithPersistence(p Persistence) Option {
	return func(o *options) { o.persistence = p }
}

// WithEditorSchema sets the schema the seed page and post are created
// with.
func WithEditorSchema(s richtext.Schema) Option {
	return func(o *options) { o.schema = s }
}

// WithCollections declares extra collections on a new project. Specs for
// the other project kind are ignored.
func WithCollections(specs ...CollectionSpec) Option {
	return func(o *options) { o.collections = append(o.collections, specs...) }
}

func newOptions(opts []Option) options {
	o := options{schema: richtext.DefaultSchema()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewProject creates a project with its default collections and seed
// files. A site requires themeID.
func NewProject(ctx context.Context, kind ProjectKind, themeID string, opts ...Option) (*Project, error) {
	if kind == ProjectSite && themeID == "" {
		return nil, &MissingFieldError{Field: KeyThemeID}
	}
	o := newOptions(opts)
	now := time.Now()
	p := &Project{
		id:      uuid.NewString(),
		kind:    kind,
		created: now,
		updated: now,
		doc:     crdt.NewDoc(),
		arena:   NewArena(o.persistence),
	}
	p.doc.Map(CollectionsKey)
	if err := p.meta().Set(KeyID, p.id); err != nil {
		return nil, err
	}

	var err error
	switch kind {
	case ProjectTheme:
		err = p.initTheme(ctx)
	case ProjectSite:
		err = p.initSite(ctx, themeID, o.schema)
	default:
		err = fmt.Errorf("unknown project type %q", kind)
	}
	if err == nil {
		err = p.addCollections(o.collections)
	}
	if err != nil {
		return nil, fmt.Errorf("new %s: %w", kind, err)
	}
	p.doc.Commit()
	slog.Debug("project: created", "id", p.id, "kind", kind)
	return p, nil
}

func (p *Project) initTheme(ctx context.Context) error {
	if err := p.meta().Set(KeyName, "New Theme"); err != nil {
		return err
	}
	for _, kind := range []Kind{KindTemplate, KindPartial, KindText} {
		if _, err := p.AddCollection(string(kind), kind, NewModel().Add("content", FieldText, true)); err != nil {
			return err
		}
	}
	if _, err := p.AddCollection(string(KindAsset), KindAsset, NewModel().Add("mime_type", FieldString, true)); err != nil {
		return err
	}

	seeds := []struct {
		name, collection, content string
	}{
		{"index", string(KindTemplate), TemplateContent},
		{"style", string(KindText), DefaultStyle},
	}
	for _, s := range seeds {
		b, err := p.CreateFile(s.name, s.collection)
		if err != nil {
			return err
		}
		f, err := p.AttachFile(ctx, b)
		if err != nil {
			return err
		}
		if err := InsertContent(f.(HasContent), s.content, 0); err != nil {
			return err
		}
	}
	return nil
}

func (p *Project) addCollections(specs []CollectionSpec) error {
	for _, spec := range specs {
		if spec.project() != p.kind {
			continue
		}
		if _, err := p.AddCollection(spec.Name, spec.Kind, NewModel(spec.Fields...)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Project) initSite(ctx context.Context, themeID string, schema richtext.Schema) error {
	if err := p.meta().Set(KeyName, "New Site"); err != nil {
		return err
	}
	if err := p.meta().Set(KeyThemeID, themeID); err != nil {
		return err
	}

	page := NewModel().
		Add("template", FieldString, true).
		Add("title", FieldString, true).
		Add("body", FieldRichText, true)
	post := NewModel().
		Add("title", FieldString, true).
		Add("body", FieldRichText, true)
	asset := NewModel().Add("mime_type", FieldString, true)
	if _, err := p.AddCollection(string(KindPage), KindPage, page); err != nil {
		return err
	}
	if _, err := p.AddCollection(string(KindPost), KindPost, post); err != nil {
		return err
	}
	if _, err := p.AddCollection(string(KindAsset), KindAsset, asset); err != nil {
		return err
	}

	seeds := []struct{ name, collection string }{
		{"main", string(KindPage)},
		{"test_post", string(KindPost)},
	}
	for _, s := range seeds {
		b, err := p.CreateFile(s.name, s.collection)
		if err != nil {
			return err
		}
		f, err := p.AttachFile(ctx, b.WithSchema(schema))
		if err != nil {
			return err
		}
		if err := SetTitle(f.(HasTitle), DefaultTitle); err != nil {
			return err
		}
		c, _ := p.Collection(s.collection)
		if err := c.SyncMeta(f); err != nil {
			return err
		}
	}
	return nil
}

// ImportProject restores a project from an exported snapshot.
func ImportProject(data []byte, id string, kind ProjectKind, created, updated time.Time, opts ...Option) (*Project, error) {
	doc, err := crdt.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("import project %s: %w", id, err)
	}
	o := newOptions(opts)
	return &Project{
		id:      id,
		kind:    kind,
		created: created,
		updated: updated,
		doc:     doc,
		arena:   NewArena(o.persistence),
	}, nil
}

// LoadProject reads a project saved with Save. File documents are
// hydrated from persistence on demand.
func LoadProject(ctx context.Context, persistence Persistence, id string) (*Project, error) {
	data, err := persistence.Load(ctx, ProjectsNamespace, id)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", id, err)
	}
	doc, err := crdt.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", id, err)
	}
	meta := doc.Map(MetaKey)
	k, _ := meta.GetString(keyKind)
	kind, err := ParseProjectKind(k)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", id, err)
	}
	return &Project{
		id:      id,
		kind:    kind,
		created: millis(meta, keyCreated),
		updated: millis(meta, keyUpdated),
		doc:     doc,
		arena:   NewArena(persistence),
	}, nil
}

func millis(m *crdt.Map, key string) time.Time {
	v, _ := m.Get(key)
	n, _ := parseVersion(v)
	return time.UnixMilli(n)
}

// Save writes the project document and every loaded file document.
func (p *Project) Save(ctx context.Context, persistence Persistence) error {
	meta := p.meta()
	if err := meta.Set(keyKind, string(p.kind)); err != nil {
		return err
	}
	if err := meta.Set(keyCreated, p.created.UnixMilli()); err != nil {
		return err
	}
	if err := meta.Set(keyUpdated, p.updated.UnixMilli()); err != nil {
		return err
	}
	p.doc.Commit()

	data, err := p.Export()
	if err != nil {
		return err
	}
	if err := persistence.Save(ctx, ProjectsNamespace, p.id, data); err != nil {
		return fmt.Errorf("save project %s: %w", p.id, err)
	}
	return p.SaveFiles(ctx, persistence)
}

// SaveFiles writes every loaded file document under the files namespace.
func (p *Project) SaveFiles(ctx context.Context, persistence Persistence) error {
	return p.arena.Save(ctx, persistence)
}

func (p *Project) Export() ([]byte, error) {
	data, err := p.doc.Export()
	if err != nil {
		return nil, fmt.Errorf("export project %s: %w", p.id, err)
	}
	return data, nil
}

func (p *Project) ID() string { return p.id }
func (p *Project) Kind() ProjectKind { return p.kind }
func (p *Project) Created() time.Time { return p.created }
func (p *Project) Updated() time.Time { return p.updated }
func (p *Project) Document() *crdt.Doc { return p.doc }

// Files returns the arena of loaded file documents.
func (p *Project) Files() *Arena { return p.arena }

func (p *Project) meta() *crdt.Map { return p.doc.Map(MetaKey) }

func (p *Project) Name() (string, error) {
	name, ok := p.meta().GetString(KeyName)
	if !ok {
		return "", &MissingFieldError{Field: KeyName}
	}
	return name, nil
}

func (p *Project) SetName(name string) error { return p.setMeta(KeyName, name) }

// ThemeID returns the theme a site uses, "" for themes.
func (p *Project) ThemeID() (string, bool) {
	id, ok := p.meta().GetString(KeyThemeID)
	return id, ok
}

func (p *Project) SetThemeID(id string) error { return p.setMeta(KeyThemeID, id) }

func (p *Project) setMeta(key string, v any) error {
	if err := p.meta().Set(key, v); err != nil {
		return fmt.Errorf("project %s: set %s: %w", p.id, key, err)
	}
	p.doc.Commit()
	p.touch()
	return nil
}

// Touch marks the project as updated now.
func (p *Project) Touch() { p.touch() }

func (p *Project) touch() {
	now := time.Now()
	if !now.After(p.updated) {
		now = p.updated.Add(time.Millisecond)
	}
	p.updated = now
}

// AddCollection declares a collection of kind holding the fields of
// model. Declaring an existing collection adds or replaces its fields.
func (p *Project) AddCollection(name string, kind Kind, model *Model) (*Collection, error) {
	if name == "" {
		return nil, &MissingFieldError{Field: KeyName}
	}
	for _, f := range model.Fields() {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("collection %s: field %q: %w", name, f.Name, err)
		}
	}

	collections := p.doc.Map(CollectionsKey)
	m := collections.GetOrCreateMap(name)
	if err := m.Set(KeyName, name); err != nil {
		return nil, err
	}
	if err := m.Set(TypeKey, string(kind)); err != nil {
		return nil, err
	}
	m.GetOrCreateMap(FieldsKey)
	m.GetOrCreateTree(FilesKey)

	c := p.view(name, m)
	for _, f := range model.Fields() {
		if err := c.AddField(f.Name, f.Type, f.Required); err != nil {
			return nil, err
		}
	}
	p.doc.Commit()
	p.touch()
	return c, nil
}

func (p *Project) view(name string, m *crdt.Map) *Collection {
	return &Collection{name: name, m: m, doc: p.doc, arena: p.arena}
}

// Collection returns the collection called name.
func (p *Project) Collection(name string) (*Collection, error) {
	m, ok := p.doc.Map(CollectionsKey).GetMap(name)
	if !ok {
		return nil, notFound("collection", name)
	}
	return p.view(name, m), nil
}

// Collections returns every collection sorted by name.
func (p *Project) Collections() []*Collection {
	var out []*Collection
	p.doc.Map(CollectionsKey).Range(func(key string, v any) bool {
		if m, ok := v.(*crdt.Map); ok {
			out = append(out, p.view(key, m))
		}
		return true
	})
	return sortedCollections(out)
}

// CreateFile returns a builder for a new file in collection.
func (p *Project) CreateFile(name, collection string) (*Builder, error) {
	c, err := p.Collection(collection)
	if err != nil {
		return nil, err
	}
	kind := c.Kind()
	if kind == "" {
		kind = Kind(collection)
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, fmt.Errorf("create file in %s: %w", collection, err)
	}
	return c.CreateFile(name, kind), nil
}

// AttachFile attaches b to the collection it was created for.
func (p *Project) AttachFile(ctx context.Context, b *Builder) (File, error) {
	c, err := p.Collection(b.Collection())
	if err != nil {
		return nil, err
	}
	f, err := c.AttachFile(ctx, b, "")
	if err != nil {
		return nil, err
	}
	p.touch()
	return f, nil
}
