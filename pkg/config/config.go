package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type EmbeddingConfig struct {
	Provider         string        `yaml:"provider"`
	BaseURL          string        `yaml:"base_url"`
	Model            string        `yaml:"model"`
	APIKey           string        `yaml:"api_key"`
	Dimensions       int           `yaml:"dimensions"`
	Timeout          time.Duration `yaml:"timeout"`
	CacheConcurrency int           `yaml:"cache_concurrency"`
}

type DatabaseConfig struct {
	URL       string `yaml:"url"`
	TableName string `yaml:"table_name"`
	BatchSize int    `yaml:"batch_size"`
	IVFLists  int    `yaml:"ivf_lists"`
}

type VectorConfig struct {
	Backend string `yaml:"backend"` // pgvector or memory
}

type CacheConfig struct {
	Backend      string        `yaml:"backend"` // redis, memory or none
	URL          string        `yaml:"url"`
	Size         int           `yaml:"size"`
	EmbeddingTTL time.Duration `yaml:"embedding_ttl"`
	DocumentTTL  time.Duration `yaml:"document_ttl"`
}

type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type RetrievalConfig struct {
	Threshold     float64 `yaml:"threshold"`
	TopK          int     `yaml:"top_k"`
	OverFetch     int     `yaml:"over_fetch"`
	ScoreMode     string  `yaml:"score_mode"` // native or cosine
	PreviewLength int     `yaml:"preview_length"`
}

type ExtractorConfig struct {
	RateLimit float64       `yaml:"rate_limit"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes"`
}

type RegistryConfig struct {
	Backend string `yaml:"backend"` // sqlite or memory
	Path    string `yaml:"path"`
}

type ServerConfig struct {
	Port           int   `yaml:"port"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Database  DatabaseConfig  `yaml:"database"`
	Vector    VectorConfig    `yaml:"vector"`
	Cache     CacheConfig     `yaml:"cache"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Registry  RegistryConfig  `yaml:"registry"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/docrag/config.yaml"),
			"/etc/docrag/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := newConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Merge with environment variables
	mergeWithEnv(config)

	// Apply defaults for unset values
	applyDefaults(config)

	return config, nil
}

func getDefaultConfig() *Config {
	config := newConfig()
	mergeWithEnv(config)
	applyDefaults(config)
	return config
}

// newConfig presets the values for which zero is a valid setting, so that an explicit
// zero in the file survives while an absent key keeps the default.
func newConfig() *Config {
	config := &Config{}
	config.LLM.Temperature = 0.2
	config.Chunker.Overlap = 20
	config.Retrieval.Threshold = 0.5
	return config
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "ollama"
	}
	if config.LLM.Model == "" {
		if config.LLM.Provider == "openai" {
			config.LLM.Model = "gpt-4o-mini"
		} else {
			config.LLM.Model = "mistral"
		}
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Embedding.Provider == "" {
		config.Embedding.Provider = "ollama"
	}
	if config.Embedding.Model == "" {
		if config.Embedding.Provider == "openai" {
			config.Embedding.Model = "text-embedding-3-small"
		} else {
			config.Embedding.Model = "nomic-embed-text:latest"
		}
	}
	if config.Embedding.BaseURL == "" && config.Embedding.Provider == "ollama" {
		if config.LLM.Provider == "ollama" {
			config.Embedding.BaseURL = config.LLM.BaseURL
		}
		if config.Embedding.BaseURL == "" {
			config.Embedding.BaseURL = "http://localhost:11434"
		}
	}
	if config.Embedding.APIKey == "" {
		config.Embedding.APIKey = config.LLM.APIKey
	}
	if config.Embedding.Dimensions == 0 {
		config.Embedding.Dimensions = 768
	}
	if config.Embedding.Timeout == 0 {
		config.Embedding.Timeout = 10 * time.Second
	}
	if config.Embedding.CacheConcurrency == 0 {
		config.Embedding.CacheConcurrency = 16
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "engineering_docs"
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}
	if config.Database.IVFLists == 0 {
		config.Database.IVFLists = 100
	}

	if config.Vector.Backend == "" {
		if config.Database.URL != "" {
			config.Vector.Backend = "pgvector"
		} else {
			config.Vector.Backend = "memory"
		}
	}

	if config.Cache.Backend == "" {
		if config.Cache.URL != "" {
			config.Cache.Backend = "redis"
		} else {
			config.Cache.Backend = "memory"
		}
	}
	if config.Cache.Size == 0 {
		config.Cache.Size = 10000
	}
	if config.Cache.EmbeddingTTL == 0 {
		config.Cache.EmbeddingTTL = time.Hour
	}
	if config.Cache.DocumentTTL == 0 {
		config.Cache.DocumentTTL = 30 * time.Minute
	}

	if config.Chunker.Size == 0 {
		config.Chunker.Size = 500
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 5
	}
	if config.Retrieval.OverFetch == 0 {
		config.Retrieval.OverFetch = 2
	}
	if config.Retrieval.ScoreMode == "" {
		config.Retrieval.ScoreMode = "native"
	}
	if config.Retrieval.PreviewLength == 0 {
		config.Retrieval.PreviewLength = 200
	}

	if config.Extractor.RateLimit == 0 {
		config.Extractor.RateLimit = 2.0
	}
	if config.Extractor.Timeout == 0 {
		config.Extractor.Timeout = 30 * time.Second
	}
	if config.Extractor.MaxBytes == 0 {
		config.Extractor.MaxBytes = 100 << 20
	}

	// the registry only outlives the process when the index does too
	if config.Registry.Backend == "" {
		if config.Vector.Backend == "memory" {
			config.Registry.Backend = "memory"
		} else {
			config.Registry.Backend = "sqlite"
		}
	}
	if config.Registry.Path == "" {
		config.Registry.Path = "docrag.db"
	}

	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.MaxUploadBytes == 0 {
		config.Server.MaxUploadBytes = config.Extractor.MaxBytes
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		if isOllama(config.LLM.Provider) {
			config.LLM.BaseURL = baseURL
		}
		if isOllama(config.Embedding.Provider) {
			config.Embedding.BaseURL = baseURL
		}
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
		config.Embedding.APIKey = apiKey
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.Cache.URL = redisURL
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}

// isOllama reports whether provider resolves to Ollama; an empty provider defaults to it.
func isOllama(provider string) bool {
	return provider == "" || provider == "ollama"
}
