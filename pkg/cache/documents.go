package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Sethyshola20/T-itw/internal/models"
	"github.com/Sethyshola20/T-itw/internal/types"
	"github.com/Sethyshola20/T-itw/pkg/logging"
)

const (
	documentPrefix     = "document:"
	DefaultDocumentTTL = 30 * time.Minute
)

func DocumentKey(id string) string {
	return documentPrefix + id
}

// DocumentCache keeps recently used document records with the same best-effort semantics as EmbeddingCache.
type DocumentCache struct {
	backend types.Cache
	ttl     time.Duration
	logger  *log.Logger
}

func NewDocumentCache(backend types.Cache, ttl time.Duration, logger *log.Logger) *DocumentCache {
	if ttl <= 0 {
		ttl = DefaultDocumentTTL
	}
	return &DocumentCache{
		backend: backend,
		ttl:     ttl,
		logger:  logging.Component(logger, "document-cache"),
	}
}

func (c *DocumentCache) Get(ctx context.Context, id string) (models.Document, bool) {
	if c == nil || c.backend == nil {
		return models.Document{}, false
	}

	key := DocumentKey(id)
	data, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "err", err)
		return models.Document{}, false
	}
	if !ok {
		return models.Document{}, false
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		c.logger.Warn("discarding corrupt cache entry", "key", key, "err", err)
		return models.Document{}, false
	}
	return doc, true
}

func (c *DocumentCache) Put(ctx context.Context, doc models.Document) {
	if c == nil || c.backend == nil {
		return
	}

	key := DocumentKey(doc.ID)
	data, err := json.Marshal(doc)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "err", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("cache write failed", "key", key, "err", err)
	}
}

func (c *DocumentCache) Invalidate(ctx context.Context, id string) {
	if c == nil || c.backend == nil {
		return
	}
	if err := c.backend.Delete(ctx, DocumentKey(id)); err != nil {
		c.logger.Warn("cache delete failed", "key", DocumentKey(id), "err", err)
	}
}
