package embedder

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/Sethyshola20/T-itw/internal/types"
	"github.com/Sethyshola20/T-itw/pkg/cache"
	"github.com/Sethyshola20/T-itw/pkg/logging"
)

type EmbedderConfig struct {
	Timeout          time.Duration // per model call
	CacheConcurrency int           // parallel cache lookups in EmbedMany
}

// Embedder turns text into vectors, consulting the embedding cache before the model.
type Embedder struct {
	config EmbedderConfig
	model  types.EmbeddingModel
	cache  *cache.EmbeddingCache
	logger *log.Logger
}

var _ types.Embedder = (*Embedder)(nil)

func NewWithConfig(config EmbedderConfig, model types.EmbeddingModel, c *cache.EmbeddingCache, logger *log.Logger) *Embedder {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.CacheConcurrency <= 0 {
		config.CacheConcurrency = 16
	}

	return &Embedder{
		config: config,
		model:  model,
		cache:  c,
		logger: logging.Component(logger, "embedder"),
	}
}

func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	text = cache.NormalizeText(text)

	if vector, ok := e.cache.Get(ctx, text); ok {
		return vector, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	vector, err := e.model.Embed(callCtx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}

	e.cache.Put(ctx, text, vector)
	return vector, nil
}

// EmbedMany returns one vector per input, in input order. Only cache misses reach the model,
// in a single batched call.
func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	normalized := make([]string, len(texts))
	for i, t := range texts {
		normalized[i] = cache.NormalizeText(t)
	}

	out := make([][]float32, len(texts))
	hits := make([]bool, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.CacheConcurrency)
	for i := range normalized {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if vector, ok := e.cache.Get(gctx, normalized[i]); ok {
				out[i] = vector
				hits[i] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to read embedding cache: %w", err)
	}

	var missIdx []int
	var missTexts []string
	for i, hit := range hits {
		if !hit {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, normalized[i])
		}
	}

	e.logger.Debug("embedding batch", "total", len(texts), "cached", len(texts)-len(missIdx))
	if len(missIdx) == 0 {
		return out, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	vectors, err := e.model.EmbedBatch(callCtx, missTexts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d texts: %w", len(missTexts), err)
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("embedding model returned %d vectors for %d texts", len(vectors), len(missTexts))
	}

	for j, i := range missIdx {
		out[i] = vectors[j]
		e.cache.Put(ctx, missTexts[j], vectors[j])
	}

	return out, nil
}
