package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Sethyshola20/T-itw/internal/models"
	"github.com/Sethyshola20/T-itw/internal/types"
	"github.com/Sethyshola20/T-itw/internal/vecmath"
)

// MemoryStore is a brute-force cosine index held in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.Record
}

var _ types.VectorIndex = (*MemoryStore)(nil)

func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.Record)}
}

func (s *MemoryStore) Upsert(_ context.Context, records []models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		s.records[rec.ID] = cloneRecord(rec)
	}
	return nil
}

func (s *MemoryStore) Query(_ context.Context, vector []float32, topK int, filter types.Filter) ([]models.Match, error) {
	if filter.DocumentID == "" {
		return nil, ErrMissingFilter
	}
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	matches := make([]models.Match, 0)
	for _, rec := range s.records {
		if rec.Metadata.DocumentID != filter.DocumentID {
			continue
		}
		rec = cloneRecord(rec)
		matches = append(matches, models.Match{
			ID:       rec.ID,
			Score:    vecmath.Cosine(vector, rec.Vector),
			Vector:   rec.Vector,
			Metadata: rec.Metadata,
		})
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *MemoryStore) DeleteByDocument(_ context.Context, documentID string) (int, error) {
	if documentID == "" {
		return 0, ErrMissingFilter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, rec := range s.records {
		if rec.Metadata.DocumentID == documentID {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) Close() {}

func cloneRecord(rec models.Record) models.Record {
	rec.Vector = append([]float32(nil), rec.Vector...)
	if rec.Metadata.Extra != nil {
		extra := make(map[string]any, len(rec.Metadata.Extra))
		for k, v := range rec.Metadata.Extra {
			extra[k] = v
		}
		rec.Metadata.Extra = extra
	}
	return rec
}
