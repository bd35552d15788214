package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/Sethyshola20/T-itw/internal/types"
)

// EmbedderConfig represents the configuration for an embedding model.
type EmbedderConfig struct {
	Provider   string // "ollama" or "openai"
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
}

// NewEmbeddingModel builds the embedding model named by config.Provider.
func NewEmbeddingModel(config EmbedderConfig) (types.EmbeddingModel, error) {
	switch config.Provider {
	case "", "ollama":
		return NewEmbedderWithConfig(config)
	case "openai":
		return NewOpenAIEmbedderWithConfig(config)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", config.Provider)
	}
}

type embeddingClient interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// OllamaEmbedder produces embeddings from a local Ollama server.
type OllamaEmbedder struct {
	config EmbedderConfig
	client embeddingClient
}

var _ types.EmbeddingModel = (*OllamaEmbedder)(nil)

func NewEmbedderWithConfig(config EmbedderConfig) (*OllamaEmbedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest" // Default Ollama model
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	if config.Dimensions == 0 {
		config.Dimensions = 768
	}

	emb, err := ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
	}

	return &OllamaEmbedder{
		config: config,
		client: emb,
	}, nil
}

func (e *OllamaEmbedder) Dimensions() int {
	return e.config.Dimensions
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := e.client.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	if err := checkVectors(vectors, len(texts), e.config.Dimensions); err != nil {
		return nil, err
	}
	return vectors, nil
}

func checkVectors(vectors [][]float32, want, dims int) error {
	if len(vectors) != want {
		return fmt.Errorf("embedding model returned %d vectors for %d inputs", len(vectors), want)
	}
	for i, v := range vectors {
		if dims > 0 && len(v) != dims {
			return fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(v), dims)
		}
	}
	return nil
}
