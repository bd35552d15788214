package registry

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Sethyshola20/T-itw/internal/models"
	"github.com/Sethyshola20/T-itw/internal/types"
)

var ErrNotFound = errors.New("document not found")

// MemoryRegistry keeps document records in process memory.
type MemoryRegistry struct {
	mu   sync.RWMutex
	docs map[string]models.Document
	now  func() time.Time
}

var _ types.Registry = (*MemoryRegistry)(nil)

func NewMemory() *MemoryRegistry {
	return &MemoryRegistry{docs: make(map[string]models.Document), now: time.Now}
}

func (r *MemoryRegistry) Save(_ context.Context, doc models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	if existing, ok := r.docs[doc.ID]; ok && doc.CreatedAt.IsZero() {
		doc.CreatedAt = existing.CreatedAt
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.Status == "" {
		doc.Status = models.StatusUnindexed
	}
	doc.UpdatedAt = now
	r.docs[doc.ID] = doc
	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, id string) (models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok {
		return models.Document{}, ErrNotFound
	}
	return doc, nil
}

func (r *MemoryRegistry) List(_ context.Context) ([]models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]models.Document, 0, len(r.docs))
	for _, d := range r.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

func (r *MemoryRegistry) SetStatus(_ context.Context, id string, status models.Status, chunkCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	doc, ok := r.docs[id]
	if !ok {
		doc = models.Document{ID: id, CreatedAt: now}
	}
	doc.Status = status
	doc.ChunkCount = chunkCount
	doc.UpdatedAt = now
	r.docs[id] = doc
	return nil
}

func (r *MemoryRegistry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[id]; !ok {
		return ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

func (r *MemoryRegistry) Close() error {
	return nil
}
