package types

import (
	"context"
	"time"

	"github.com/Sethyshola20/T-itw/internal/models"
)

// Core interfaces
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type EmbeddingModel interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

type Filter struct {
	DocumentID string
}

type VectorIndex interface {
	Upsert(ctx context.Context, records []models.Record) error
	Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]models.Match, error)
	DeleteByDocument(ctx context.Context, documentID string) (int, error)
	Close()
}

type Registry interface {
	Save(ctx context.Context, doc models.Document) error
	Get(ctx context.Context, id string) (models.Document, error)
	List(ctx context.Context) ([]models.Document, error)
	SetStatus(ctx context.Context, id string, status models.Status, chunkCount int) error
	Delete(ctx context.Context, id string) error
	Close() error
}

type Source struct {
	FilePath string
	Data     []byte
	URL      string
}

type TextExtractor interface {
	Extract(ctx context.Context, src Source) (string, error)
}

type Generator interface {
	Answer(ctx context.Context, systemPrompt, question string) (string, error)
	ExtractMetadata(ctx context.Context, text string) (models.DocumentMetadata, error)
}
