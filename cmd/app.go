package main

import (
	"context"
	"fmt"

	"github.com/Sethyshola20/T-itw/internal/types"
	"github.com/Sethyshola20/T-itw/pkg/cache"
	"github.com/Sethyshola20/T-itw/pkg/chunker"
	"github.com/Sethyshola20/T-itw/pkg/config"
	"github.com/Sethyshola20/T-itw/pkg/embedder"
	"github.com/Sethyshola20/T-itw/pkg/extractor"
	"github.com/Sethyshola20/T-itw/pkg/indexer"
	"github.com/Sethyshola20/T-itw/pkg/llm"
	"github.com/Sethyshola20/T-itw/pkg/rag"
	"github.com/Sethyshola20/T-itw/pkg/registry"
	"github.com/Sethyshola20/T-itw/pkg/retriever"
	"github.com/Sethyshola20/T-itw/pkg/store"
	"github.com/charmbracelet/log"
)

// app holds the wired components and the resources to release on exit.
type app struct {
	service *rag.Service
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, logger *log.Logger, onProgress func(stage string, done, total int)) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.Close()
		return nil, err
	}

	// Cache
	var backend types.Cache
	switch cfg.Cache.Backend {
	case "redis":
		rc, err := cache.NewRedisWithConfig(cache.RedisConfig{URL: cfg.Cache.URL})
		if err != nil {
			return fail(fmt.Errorf("failed to initialize cache: %w", err))
		}
		if err := rc.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, cache lookups will miss", "err", err)
		}
		backend = rc
	case "memory":
		mc, err := cache.NewMemory(cfg.Cache.Size)
		if err != nil {
			return fail(fmt.Errorf("failed to initialize cache: %w", err))
		}
		backend = mc
	}
	if backend != nil {
		a.closers = append(a.closers, func() { backend.Close() })
	}
	embeddingCache := cache.NewEmbeddingCache(backend, cfg.Cache.EmbeddingTTL, logger)
	documentCache := cache.NewDocumentCache(backend, cfg.Cache.DocumentTTL, logger)

	// Vector index
	var index types.VectorIndex
	switch cfg.Vector.Backend {
	case "pgvector":
		vs, err := store.NewWithConfig(ctx, store.VectorStoreConfig{
			ConnString: cfg.Database.URL,
			TableName:  cfg.Database.TableName,
			VectorDim:  cfg.Embedding.Dimensions,
			BatchSize:  cfg.Database.BatchSize,
			IVFLists:   cfg.Database.IVFLists,
		})
		if err != nil {
			return fail(fmt.Errorf("failed to initialize vector store: %w", err))
		}
		index = vs
	default:
		logger.Warn("using in-memory vector index; indexed documents are lost on exit")
		index = store.NewMemory()
	}
	a.closers = append(a.closers, index.Close)

	// Registry
	var reg types.Registry
	switch cfg.Registry.Backend {
	case "sqlite":
		sr, err := registry.NewSQLite(ctx, cfg.Registry.Path)
		if err != nil {
			return fail(fmt.Errorf("failed to initialize registry: %w", err))
		}
		reg = sr
	default:
		reg = registry.NewMemory()
	}
	a.closers = append(a.closers, func() { reg.Close() })

	// Models
	model, err := llm.NewEmbeddingModel(llm.EmbedderConfig{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return fail(fmt.Errorf("failed to initialize embedding model: %w", err))
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
	})
	if err != nil {
		return fail(fmt.Errorf("failed to initialize chat engine: %w", err))
	}

	emb := embedder.NewWithConfig(embedder.EmbedderConfig{
		Timeout:          cfg.Embedding.Timeout,
		CacheConcurrency: cfg.Embedding.CacheConcurrency,
	}, model, embeddingCache, logger)

	scoreMode, err := retriever.ParseScoreMode(cfg.Retrieval.ScoreMode)
	if err != nil {
		return fail(err)
	}

	pdf := extractor.NewPDF(cfg.Extractor.MaxBytes)
	web := extractor.NewWebWithConfig(extractor.WebConfig{
		RateLimit: cfg.Extractor.RateLimit,
		Timeout:   cfg.Extractor.Timeout,
		MaxBytes:  cfg.Extractor.MaxBytes,
	}, pdf)

	pipeline := indexer.NewWithConfig(indexer.PipelineConfig{
		PreviewLength: cfg.Retrieval.PreviewLength,
		OnProgress:    onProgress,
	}, chunker.NewWithConfig(chunker.ChunkerConfig{
		Size:    cfg.Chunker.Size,
		Overlap: cfg.Chunker.Overlap,
	}), emb, index, reg, logger)

	ret := retriever.NewWithConfig(retriever.RetrieverConfig{
		ScoreMode: scoreMode,
		OverFetch: cfg.Retrieval.OverFetch,
	}, emb, index, logger)

	a.service = rag.NewWithConfig(rag.ServiceConfig{
		Threshold: cfg.Retrieval.Threshold,
		TopK:      cfg.Retrieval.TopK,
	}, rag.Dependencies{
		Extractor: extractor.New(pdf, web),
		Generator: chatEngine,
		Pipeline:  pipeline,
		Retriever: ret,
		Index:     index,
		Registry:  reg,
		Documents: documentCache,
		Logger:    logger,
	})

	return a, nil
}
