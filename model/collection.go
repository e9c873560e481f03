package model

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/alimasry/go-collab-cms/crdt"
)

// Keys of a collection map.
const (
	CollectionsKey = "collections"
	FieldsKey      = "fields"
	FilesKey       = "files"
	TypeKey        = "type"

	fieldTypeKey = "field_type"
	requiredKey  = "required"
)

var untypedMatches atomic.Int64

// UntypedNodeMatches reports how many times GetFiles returned a node with
// no cached type.
func UntypedNodeMatches() int64 { return untypedMatches.Load() }

// Collection is a view of one collection map inside a project document.
type Collection struct {
	name  string
	m     *crdt.Map
	doc   *crdt.Doc
	arena *Arena
}

func (c *Collection) Name() string { return c.name }

// Kind returns the file kind the collection holds.
func (c *Collection) Kind() Kind {
	t, _ := c.m.GetString(TypeKey)
	return Kind(t)
}

func (c *Collection) fields() *crdt.Map { return c.m.GetOrCreateMap(FieldsKey) }

func (c *Collection) files() *crdt.Tree { return c.m.GetOrCreateTree(FilesKey) }

// AddField declares a field, replacing any earlier field of the same name.
func (c *Collection) AddField(name string, t FieldType, required bool) error {
	def := FieldDefinition{Name: name, Type: t, Required: required}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("collection %s: field %q: %w", c.name, name, err)
	}
	fm := crdt.NewMap()
	if err := fm.Set(KeyName, name); err != nil {
		return err
	}
	if err := fm.Set(fieldTypeKey, string(t)); err != nil {
		return err
	}
	if err := fm.Set(requiredKey, required); err != nil {
		return err
	}
	if err := c.fields().Set(name, fm); err != nil {
		return err
	}
	c.doc.Commit()
	return nil
}

// Field returns the definition of name.
func (c *Collection) Field(name string) (FieldDefinition, error) {
	fm, ok := c.fields().GetMap(name)
	if !ok {
		return FieldDefinition{}, notFound("field", name)
	}
	return fieldFromMap(name, fm)
}

// Fields returns the field definitions sorted by name.
func (c *Collection) Fields() ([]FieldDefinition, error) {
	var out []FieldDefinition
	for _, name := range c.fields().Keys() {
		def, err := c.Field(name)
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}

func fieldFromMap(name string, fm *crdt.Map) (FieldDefinition, error) {
	tag, _ := fm.GetString(fieldTypeKey)
	t, err := ParseFieldType(tag)
	if err != nil {
		return FieldDefinition{}, fmt.Errorf("field %q: %w", name, err)
	}
	v, _ := fm.Get(requiredKey)
	required, _ := v.(bool)
	return FieldDefinition{Name: name, Type: t, Required: required}, nil
}

// CreateFile returns a builder for a new file named name, backed by a
// fresh document with a new id and version 0. The file is not attached.
func (c *Collection) CreateFile(name string, kind Kind) *Builder {
	b := BuilderFor(kind).
		WithDoc(crdt.NewDoc()).
		WithID(uuid.NewString()).
		WithName(name).
		WithVersion(0).
		WithLoader(c.arena)
	b.collection = c.name
	return b
}

// AttachFile builds b and records it in the files tree, under parent when
// parent is not empty. The built document joins the project's arena.
func (c *Collection) AttachFile(ctx context.Context, b *Builder, parent crdt.TreeID) (File, error) {
	id := b.ID()
	if id == "" {
		return nil, ErrMissingID
	}
	tree := c.files()
	if parent != "" && !tree.Contains(parent) {
		return nil, notFound("parent", string(parent))
	}
	if b.loader == nil {
		b.WithLoader(c.arena)
	}

	f, err := b.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("attach to %s: %w", c.name, err)
	}
	node, err := tree.Create(parent)
	if err != nil {
		return nil, fmt.Errorf("attach to %s: %w", c.name, err)
	}
	nm, err := tree.Meta(node)
	if err != nil {
		return nil, fmt.Errorf("attach to %s: %w", c.name, err)
	}
	if err := cacheMeta(nm, f, KeyID, KeyName, KeyType, KeyVersion); err != nil {
		return nil, fmt.Errorf("attach to %s: %w", c.name, err)
	}
	if doc := f.Document(); doc != nil {
		c.arena.Put(f.ID(), doc)
	}
	c.doc.Commit()
	return f, nil
}

// NodeOf returns the files-tree node that caches id.
func (c *Collection) NodeOf(id string) (crdt.TreeID, error) {
	tree := c.files()
	for _, node := range tree.Nodes() {
		nm, _ := tree.Meta(node)
		if nid, _ := nm.GetString(KeyID); nid == id {
			return node, nil
		}
	}
	return "", notFound("file", id)
}

// GetFile finds the file with id anywhere in the files tree. Its document
// comes from the arena or persistence; without one the file is cache
// backed.
func (c *Collection) GetFile(ctx context.Context, id string, kind Kind) (File, error) {
	node, err := c.NodeOf(id)
	if err != nil {
		return nil, err
	}
	nm, _ := c.files().Meta(node)
	f, err := BuilderFor(kind).WithMeta(nm).WithLoader(c.arena).Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", id, err)
	}
	return f, nil
}

// GetFiles returns every file whose cached type is kind, in tree order.
// Nodes with no cached type are included and counted.
func (c *Collection) GetFiles(ctx context.Context, kind Kind) ([]File, error) {
	tree := c.files()
	var out []File
	for _, node := range tree.Nodes() {
		nm, _ := tree.Meta(node)
		t, ok := nm.GetString(KeyType)
		if ok && Kind(t) != kind {
			continue
		}
		if !ok {
			untypedMatches.Add(1)
			slog.Warn("collection: untyped file node matched",
				"collection", c.name,
				"node", node,
				"kind", kind)
		}
		f, err := BuilderFor(kind).WithMeta(nm).WithLoader(c.arena).Build(ctx)
		if err != nil {
			return nil, fmt.Errorf("get files of %s: %w", c.name, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// SyncMeta refreshes the cached metadata of f's node from f.
func (c *Collection) SyncMeta(f File) error {
	node, err := c.NodeOf(f.ID())
	if err != nil {
		return err
	}
	nm, _ := c.files().Meta(node)
	if nm == f.Meta() {
		return nil
	}
	keys := []string{KeyName, KeyVersion}
	switch f.Type() {
	case KindPage, KindPost:
		keys = append(keys, KeyTitle, KeyURL)
	case KindAsset:
		keys = append(keys, KeyURL, KeyMimeType, KeyAlt)
	}
	if err := cacheMeta(nm, f, keys...); err != nil {
		return err
	}
	c.doc.Commit()
	return nil
}

func cacheMeta(dst *crdt.Map, f File, keys ...string) error {
	src := f.Meta()
	for _, key := range keys {
		v, ok := src.Get(key)
		if !ok {
			continue
		}
		if err := dst.Set(key, v); err != nil {
			return err
		}
	}
	return nil
}

// ToJSON returns {name, fields: [{name, type, required}]}.
func (c *Collection) ToJSON() (map[string]any, error) {
	defs, err := c.Fields()
	if err != nil {
		return nil, err
	}
	fields := make([]any, 0, len(defs))
	for _, d := range defs {
		fields = append(fields, map[string]any{
			"name":     d.Name,
			"type":     string(d.Type),
			"required": d.Required,
		})
	}
	return map[string]any{"name": c.name, "fields": fields}, nil
}

func sortedCollections(cs []*Collection) []*Collection {
	sort.Slice(cs, func(i, j int) bool { return cs[i].name < cs[j].name })
	return cs
}
