package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Sethyshola20/T-itw/internal/types"
	"github.com/Sethyshola20/T-itw/pkg/logging"
)

const (
	embeddingPrefix     = "embedding:"
	DefaultEmbeddingTTL = time.Hour
)

var newlineReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// NormalizeText is the canonical form of text sent to the embedding model and hashed for cache keys.
func NormalizeText(text string) string {
	return strings.TrimSpace(newlineReplacer.Replace(text))
}

// EmbeddingKey derives the cache key for text. Identical text always maps to the same key.
func EmbeddingKey(text string) string {
	sum := sha256.Sum256([]byte(NormalizeText(text)))
	return embeddingPrefix + hex.EncodeToString(sum[:])
}

// EmbeddingCache is a best-effort content-addressed store of embedding vectors.
// A nil backend behaves as a cache that always misses.
type EmbeddingCache struct {
	backend types.Cache
	ttl     time.Duration
	logger  *log.Logger
}

func NewEmbeddingCache(backend types.Cache, ttl time.Duration, logger *log.Logger) *EmbeddingCache {
	if ttl <= 0 {
		ttl = DefaultEmbeddingTTL
	}
	return &EmbeddingCache{
		backend: backend,
		ttl:     ttl,
		logger:  logging.Component(logger, "embedding-cache"),
	}
}

func (c *EmbeddingCache) Get(ctx context.Context, text string) ([]float32, bool) {
	if c == nil || c.backend == nil {
		return nil, false
	}

	key := EmbeddingKey(text)
	data, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil {
		c.logger.Warn("discarding corrupt cache entry", "key", key, "err", err)
		return nil, false
	}
	return vector, true
}

func (c *EmbeddingCache) Put(ctx context.Context, text string, vector []float32) {
	if c == nil || c.backend == nil {
		return
	}

	key := EmbeddingKey(text)
	data, err := json.Marshal(vector)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "err", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("cache write failed", "key", key, "err", err)
	}
}
