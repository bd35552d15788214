package config

import (
	"fmt"
	"net/url"

	"github.com/Sethyshola20/T-itw/pkg/store"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if !oneOf(c.LLM.Provider, "ollama", "openai") {
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unsupported provider: %s", c.LLM.Provider),
		})
	}

	if c.LLM.Provider == "ollama" && c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	}

	if c.LLM.Provider == "openai" && c.LLM.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.api_key",
			Message: "api_key is required for the openai provider",
		})
	}

	if c.LLM.BaseURL != "" {
		if _, err := url.Parse(c.LLM.BaseURL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "invalid base URL",
			})
		}
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 16384 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 16384",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 1",
		})
	}

	// Validate Embedding config
	if !oneOf(c.Embedding.Provider, "ollama", "openai") {
		errors = append(errors, ValidationError{
			Field:   "embedding.provider",
			Message: fmt.Sprintf("unsupported provider: %s", c.Embedding.Provider),
		})
	}

	if c.Embedding.Provider == "openai" && c.Embedding.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "embedding.api_key",
			Message: "api_key is required for the openai provider",
		})
	}

	if c.Embedding.Dimensions < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.dimensions",
			Message: "dimensions must be positive",
		})
	}

	if c.Embedding.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.timeout",
			Message: "timeout must be positive",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if !store.ValidTableName(c.Database.TableName) {
		errors = append(errors, ValidationError{
			Field:   "database.table_name",
			Message: fmt.Sprintf("invalid table name: %s", c.Database.TableName),
		})
	}

	if c.Database.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	// Validate Vector config
	switch c.Vector.Backend {
	case "memory":
	case "pgvector":
		if c.Database.URL == "" {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "database URL is required for the pgvector backend",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "vector.backend",
			Message: fmt.Sprintf("unsupported backend: %s", c.Vector.Backend),
		})
	}

	// Validate Cache config
	switch c.Cache.Backend {
	case "memory", "none":
	case "redis":
		if c.Cache.URL == "" {
			errors = append(errors, ValidationError{
				Field:   "cache.url",
				Message: "cache URL is required for the redis backend",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "cache.backend",
			Message: fmt.Sprintf("unsupported backend: %s", c.Cache.Backend),
		})
	}

	if c.Cache.EmbeddingTTL < 0 || c.Cache.DocumentTTL < 0 {
		errors = append(errors, ValidationError{
			Field:   "cache.ttl",
			Message: "TTLs must not be negative",
		})
	}

	// Validate Chunker config
	if c.Chunker.Size < 1 {
		errors = append(errors, ValidationError{
			Field:   "chunker.size",
			Message: "size must be positive",
		})
	}

	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size {
		errors = append(errors, ValidationError{
			Field:   "chunker.overlap",
			Message: "overlap must be non-negative and less than size",
		})
	}

	// Validate Retrieval config
	if c.Retrieval.Threshold < -1 || c.Retrieval.Threshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.threshold",
			Message: "threshold must be between -1 and 1",
		})
	}

	if c.Retrieval.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.top_k",
			Message: "top_k must be positive",
		})
	}

	if c.Retrieval.OverFetch < 1 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.over_fetch",
			Message: "over_fetch must be at least 1",
		})
	}

	if !oneOf(c.Retrieval.ScoreMode, "native", "cosine") {
		errors = append(errors, ValidationError{
			Field:   "retrieval.score_mode",
			Message: fmt.Sprintf("unsupported score mode: %s", c.Retrieval.ScoreMode),
		})
	}

	// Validate Extractor config
	if c.Extractor.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "extractor.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	// Validate Registry config
	switch c.Registry.Backend {
	case "memory":
	case "sqlite":
		if c.Registry.Path == "" {
			errors = append(errors, ValidationError{
				Field:   "registry.path",
				Message: "path is required for the sqlite backend",
			})
		}
		if c.Vector.Backend == "memory" {
			errors = append(errors, ValidationError{
				Field:   "registry.backend",
				Message: "a persistent registry requires a persistent vector backend; use registry.backend memory with vector.backend memory",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "registry.backend",
			Message: fmt.Sprintf("unsupported backend: %s", c.Registry.Backend),
		})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "port must be between 1 and 65535",
		})
	}

	if !oneOf(c.Log.Format, "text", "json") {
		errors = append(errors, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("unsupported format: %s", c.Log.Format),
		})
	}

	return errors
}
