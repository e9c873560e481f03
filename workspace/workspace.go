// Package workspace holds the active site and theme of an editing session
// and runs the commands the gateway exposes against them.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alimasry/go-collab-cms/model"
	"github.com/alimasry/go-collab-cms/richtext"
	"github.com/alimasry/go-collab-cms/store"
)

var (
	ErrNoActiveProject = errors.New("no active project")
	ErrNoStore         = errors.New("workspace has no store")
)

// slot holds one active project. Its mutex serializes every operation on
// the project, which is not safe for concurrent use.
type slot struct {
	mu sync.Mutex
	p  *model.Project
}

// Workspace holds one active site and one active theme.
type Workspace struct {
	store       store.Store
	autosave    bool
	schema      richtext.Schema
	collections []model.CollectionSpec

	site  slot
	theme slot
}

type Option func(*Workspace)

// WithAutosave saves a project to the store after every mutation.
func WithAutosave(on bool) Option {
	return func(w *Workspace) { w.autosave = on }
}

// New returns an empty workspace persisting to st. st may be nil, in which
// case save and load fail.
// WithSchema sets the editor schema new pages and posts are created with.
func WithSchema(s richtext.Schema) Option {
	return func(w *Workspace) { w.schema = s }
}

// WithCollections declares extra collections on every new project.
func WithCollections(specs ...model.CollectionSpec) Option {
	return func(w *Workspace) { w.collections = append(w.collections, specs...) }
}

func New(st store.Store, opts ...Option) *Workspace {
	w := &Workspace{store: st, schema: richtext.DefaultSchema()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workspace) slot(kind model.ProjectKind) (*slot, error) {
	switch kind {
	case model.ProjectSite:
		return &w.site, nil
	case model.ProjectTheme:
		return &w.theme, nil
	}
	return nil, fmt.Errorf("invalid project type %q", kind)
}

func (w *Workspace) options() []model.Option {
	opts := []model.Option{
		model.WithEditorSchema(w.schema),
		model.WithCollections(w.collections...),
	}
	if w.store != nil {
		opts = append(opts, model.WithPersistence(w.store))
	}
	return opts
}

// with runs fn on the active project of kind while holding its lock.
func (w *Workspace) with(kind model.ProjectKind, fn func(p *model.Project) error) error {
	s, err := w.slot(kind)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p == nil {
		return fmt.Errorf("%s: %w", kind, ErrNoActiveProject)
	}
	return fn(s.p)
}

// mutate is with plus bookkeeping: the project is touched and, with
// autosave on, written to the store.
func (w *Workspace) mutate(ctx context.Context, kind model.ProjectKind, fn func(p *model.Project) error) error {
	return w.with(kind, func(p *model.Project) error {
		if err := fn(p); err != nil {
			return err
		}
		p.Touch()
		if w.autosave && w.store != nil {
			if err := p.Save(ctx, w.store); err != nil {
				slog.Error("workspace: autosave failed", "project", p.ID(), "error", err)
			}
		}
		return nil
	})
}

func (w *Workspace) set(kind model.ProjectKind, p *model.Project) {
	s, _ := w.slot(kind)
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
}

// InitDefault creates a fresh theme and a site using it, and makes both
// active.
func (w *Workspace) InitDefault(ctx context.Context) (map[string]any, error) {
	theme, err := model.NewProject(ctx, model.ProjectTheme, "", w.options()...)
	if err != nil {
		return nil, fmt.Errorf("init default: %w", err)
	}
	site, err := model.NewProject(ctx, model.ProjectSite, theme.ID(), w.options()...)
	if err != nil {
		return nil, fmt.Errorf("init default: %w", err)
	}
	w.set(model.ProjectTheme, theme)
	w.set(model.ProjectSite, site)
	slog.Info("workspace: initialized", "site", site.ID(), "theme", theme.ID())
	return map[string]any{
		"status":  "initialized",
		"siteId":  site.ID(),
		"themeId": theme.ID(),
	}, nil
}

// CreateSite creates a site bound to themeID and makes it active.
func (w *Workspace) CreateSite(ctx context.Context, name, themeID string) (map[string]any, error) {
	p, err := model.NewProject(ctx, model.ProjectSite, themeID, w.options()...)
	if err != nil {
		return nil, fmt.Errorf("create site: %w", err)
	}
	if err := p.SetName(name); err != nil {
		return nil, fmt.Errorf("create site: %w", err)
	}
	w.set(model.ProjectSite, p)
	return map[string]any{"id": p.ID(), "name": name, "themeId": themeID}, nil
}

// CreateTheme creates a theme and makes it active.
func (w *Workspace) CreateTheme(ctx context.Context, name string) (map[string]any, error) {
	p, err := model.NewProject(ctx, model.ProjectTheme, "", w.options()...)
	if err != nil {
		return nil, fmt.Errorf("create theme: %w", err)
	}
	if err := p.SetName(name); err != nil {
		return nil, fmt.Errorf("create theme: %w", err)
	}
	w.set(model.ProjectTheme, p)
	return map[string]any{"id": p.ID(), "name": name}, nil
}

// Site describes the active site.
func (w *Workspace) Site() (map[string]any, error) {
	var out map[string]any
	err := w.with(model.ProjectSite, func(p *model.Project) error {
		out = describe(p, "Unnamed")
		return nil
	})
	return out, err
}

// Theme describes the active theme.
func (w *Workspace) Theme() (map[string]any, error) {
	var out map[string]any
	err := w.with(model.ProjectTheme, func(p *model.Project) error {
		out = describe(p, "Unnamed")
		return nil
	})
	return out, err
}

func describe(p *model.Project, fallback string) map[string]any {
	name, err := p.Name()
	if err != nil {
		name = fallback
	}
	out := map[string]any{"id": p.ID(), "name": name}
	if p.Kind() == model.ProjectSite {
		themeID, _ := p.ThemeID()
		out["themeId"] = themeID
	}
	return out
}

// Collection returns {name, fields} of a collection of the active project.
func (w *Workspace) Collection(kind model.ProjectKind, name string) (map[string]any, error) {
	var out map[string]any
	err := w.with(kind, func(p *model.Project) error {
		c, err := p.Collection(name)
		if err != nil {
			return fmt.Errorf("get collection: %w", err)
		}
		out, err = c.ToJSON()
		return err
	})
	return out, err
}

// Collections lists every collection of the active project.
func (w *Workspace) Collections(kind model.ProjectKind) ([]any, error) {
	var out []any
	err := w.with(kind, func(p *model.Project) error {
		out = []any{}
		for _, c := range p.Collections() {
			j, err := c.ToJSON()
			if err != nil {
				return fmt.Errorf("list collections: %w", err)
			}
			out = append(out, j)
		}
		return nil
	})
	return out, err
}

// CreateFile builds and attaches a new file to collection.
func (w *Workspace) CreateFile(ctx context.Context, kind model.ProjectKind, collection, name string) (map[string]any, error) {
	var out map[string]any
	err := w.mutate(ctx, kind, func(p *model.Project) error {
		b, err := p.CreateFile(name, collection)
		if err != nil {
			return fmt.Errorf("create file: %w", err)
		}
		if k := b.Kind(); k == model.KindPage || k == model.KindPost {
			b = b.WithSchema(w.schema)
		}
		f, err := p.AttachFile(ctx, b)
		if err != nil {
			return fmt.Errorf("create file: %w", err)
		}
		out = f.ToJSON()
		return nil
	})
	return out, err
}

// file finds fileID in collection.
func file(ctx context.Context, p *model.Project, collection, fileID string) (*model.Collection, model.File, error) {
	c, err := p.Collection(collection)
	if err != nil {
		return nil, nil, err
	}
	kind := c.Kind()
	if kind == "" {
		kind = model.Kind(collection)
	}
	f, err := c.GetFile(ctx, fileID, kind)
	if err != nil {
		return nil, nil, err
	}
	return c, f, nil
}

// File returns the JSON form of a file.
func (w *Workspace) File(ctx context.Context, kind model.ProjectKind, collection, fileID string) (map[string]any, error) {
	var out map[string]any
	err := w.with(kind, func(p *model.Project) error {
		_, f, err := file(ctx, p, collection, fileID)
		if err != nil {
			return fmt.Errorf("get file: %w", err)
		}
		out = f.ToJSON()
		return nil
	})
	return out, err
}

// Files lists the files of a collection.
func (w *Workspace) Files(ctx context.Context, kind model.ProjectKind, collection string) ([]any, error) {
	var out []any
	err := w.with(kind, func(p *model.Project) error {
		c, err := p.Collection(collection)
		if err != nil {
			return fmt.Errorf("list files: %w", err)
		}
		k := c.Kind()
		if k == "" {
			k = model.Kind(collection)
		}
		files, err := c.GetFiles(ctx, k)
		if err != nil {
			return fmt.Errorf("list files: %w", err)
		}
		out = make([]any, 0, len(files))
		for _, f := range files {
			out = append(out, f.ToJSON())
		}
		return nil
	})
	return out, err
}

// UpdateFile applies u to a file and refreshes the collection's cached
// metadata.
func (w *Workspace) UpdateFile(ctx context.Context, kind model.ProjectKind, collection, fileID string, u Update) (map[string]any, error) {
	err := w.mutate(ctx, kind, func(p *model.Project) error {
		c, f, err := file(ctx, p, collection, fileID)
		if err != nil {
			return fmt.Errorf("update file: %w", err)
		}
		if err := u.Apply(f); err != nil {
			return fmt.Errorf("update file %s: %w", fileID, err)
		}
		return c.SyncMeta(f)
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "updated"}, nil
}

// Document returns the editable body of a file: the rich-text tree for
// pages and posts, the plain content for templates, partials and texts.
func (w *Workspace) Document(ctx context.Context, kind model.ProjectKind, collection, fileID string) (map[string]any, error) {
	var out map[string]any
	err := w.with(kind, func(p *model.Project) error {
		_, f, err := file(ctx, p, collection, fileID)
		if err != nil {
			return fmt.Errorf("get document: %w", err)
		}
		switch v := f.(type) {
		case model.HasRichText:
			doc, err := model.DocumentJSON(v)
			if err != nil {
				return fmt.Errorf("get document %s: %w", fileID, err)
			}
			out = map[string]any{"fileId": fileID, "version": f.Version(), "doc": doc}
		case model.HasContent:
			content, err := model.Content(v)
			if err != nil {
				return fmt.Errorf("get document %s: %w", fileID, err)
			}
			out = map[string]any{"fileId": fileID, "version": f.Version(), "content": content}
		default:
			return &model.UnsupportedValueError{Field: "document"}
		}
		return nil
	})
	return out, err
}

// ApplySteps applies an editor step batch to a page or post and returns
// the new version.
func (w *Workspace) ApplySteps(ctx context.Context, kind model.ProjectKind, collection, fileID string, steps []richtext.Step, version int64) (int64, error) {
	var next int64
	err := w.mutate(ctx, kind, func(p *model.Project) error {
		c, f, err := file(ctx, p, collection, fileID)
		if err != nil {
			return fmt.Errorf("apply steps: %w", err)
		}
		rt, ok := f.(model.HasRichText)
		if !ok {
			return &model.UnsupportedValueError{Field: "steps"}
		}
		next, err = model.ApplySteps(rt, steps, version)
		if err != nil {
			return err
		}
		return c.SyncMeta(f)
	})
	return next, err
}

// SaveState writes the active project of kind and its loaded files.
func (w *Workspace) SaveState(ctx context.Context, kind model.ProjectKind) (map[string]any, error) {
	if w.store == nil {
		return nil, ErrNoStore
	}
	err := w.with(kind, func(p *model.Project) error {
		return p.Save(ctx, w.store)
	})
	if err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}
	return map[string]any{"status": "saved", "project_type": string(kind)}, nil
}

// LoadState makes the saved projects siteID and themeID active. An empty
// id keeps the active project of that kind. With no ids at all it reports
// the active projects.
func (w *Workspace) LoadState(ctx context.Context, siteID, themeID string) (map[string]any, error) {
	if siteID != "" || themeID != "" {
		if w.store == nil {
			return nil, ErrNoStore
		}
	}
	for _, l := range []struct {
		kind model.ProjectKind
		id   string
	}{{model.ProjectSite, siteID}, {model.ProjectTheme, themeID}} {
		if l.id == "" {
			continue
		}
		p, err := model.LoadProject(ctx, w.store, l.id)
		if err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
		if p.Kind() != l.kind {
			return nil, fmt.Errorf("load state: project %s is a %s, not a %s", l.id, p.Kind(), l.kind)
		}
		w.set(l.kind, p)
	}

	out := map[string]any{"status": "loaded"}
	for _, a := range []struct {
		kind model.ProjectKind
		key  string
	}{{model.ProjectSite, "siteId"}, {model.ProjectTheme, "themeId"}} {
		err := w.with(a.kind, func(p *model.Project) error {
			out[a.key] = p.ID()
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
	}
	return out, nil
}

// Export returns the snapshot of the active project of kind.
func (w *Workspace) Export(kind model.ProjectKind) ([]byte, error) {
	var data []byte
	err := w.with(kind, func(p *model.Project) error {
		var err error
		data, err = p.Export()
		return err
	})
	return data, err
}

// Import restores a project from a snapshot and makes it active.
func (w *Workspace) Import(data []byte, id string, kind model.ProjectKind, created, updated time.Time) (map[string]any, error) {
	if _, err := w.slot(kind); err != nil {
		return nil, err
	}
	p, err := model.ImportProject(data, id, kind, created, updated, w.options()...)
	if err != nil {
		return nil, err
	}
	w.set(kind, p)
	fallback := "Imported Theme"
	if kind == model.ProjectSite {
		fallback = "Imported Site"
	}
	return describe(p, fallback), nil
}
