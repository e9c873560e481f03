package model

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/alimasry/go-collab-cms/crdt"
)

// Persistence namespaces.
const (
	FilesNamespace    = "files"
	ProjectsNamespace = "projects"
)

// Persistence is the key/byte store documents are saved to.
type Persistence interface {
	Load(ctx context.Context, namespace, key string) ([]byte, error)
	Save(ctx context.Context, namespace, key string, data []byte) error
}

// Arena holds the documents of one project's files, keyed by file id.
// Misses are hydrated from the backing persistence, if any.
type Arena struct {
	mu      sync.RWMutex
	docs    map[string]*crdt.Doc
	backing Persistence
}

func NewArena(backing Persistence) *Arena {
	return &Arena{docs: make(map[string]*crdt.Doc), backing: backing}
}

func (a *Arena) Get(id string) (*crdt.Doc, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	doc, ok := a.docs[id]
	return doc, ok
}

func (a *Arena) Put(id string, doc *crdt.Doc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.docs[id] = doc
}

func (a *Arena) Delete(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.docs, id)
}

// IDs returns the ids of the loaded documents in sorted order.
func (a *Arena) IDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]string, 0, len(a.docs))
	for id := range a.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.docs)
}

// Load implements Loader.
func (a *Arena) Load(ctx context.Context, id string) (*crdt.Doc, error) {
	if doc, ok := a.Get(id); ok {
		return doc, nil
	}
	if a.backing == nil {
		return nil, notFound("file", id)
	}
	data, err := a.backing.Load(ctx, FilesNamespace, id)
	if err != nil {
		return nil, fmt.Errorf("load file %s: %w", id, err)
	}
	doc, err := crdt.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("load file %s: %w", id, err)
	}
	a.Put(id, doc)
	return doc, nil
}

// Save writes every loaded document to p under the files namespace.
func (a *Arena) Save(ctx context.Context, p Persistence) error {
	for _, id := range a.IDs() {
		doc, ok := a.Get(id)
		if !ok {
			continue
		}
		data, err := doc.Export()
		if err != nil {
			return fmt.Errorf("export file %s: %w", id, err)
		}
		if err := p.Save(ctx, FilesNamespace, id, data); err != nil {
			return fmt.Errorf("save file %s: %w", id, err)
		}
	}
	return nil
}
