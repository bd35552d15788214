package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/Sethyshola20/T-itw/internal/types"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider         string // "ollama" or "openai"
	Model            string
	Temperature      float64
	MaxTokens        int
	BaseURL          string
	APIKey           string
	MaxMetadataChars int // input cut-off for metadata extraction
}

// ChatEngine answers grounded questions and extracts document metadata using an LLM.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

var _ types.Generator = (*ChatEngine)(nil)

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	config, err := applyChatDefaults(config)
	if err != nil {
		return nil, err
	}

	var model llms.Model
	switch config.Provider {
	case "ollama":
		model, err = ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
	case "openai":
		opts := []lcopenai.Option{lcopenai.WithToken(config.APIKey), lcopenai.WithModel(config.Model)}
		if config.BaseURL != "" {
			opts = append(opts, lcopenai.WithBaseURL(config.BaseURL))
		}
		model, err = lcopenai.New(opts...)
	default:
		return nil, fmt.Errorf("unknown chat provider %q", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{config: config, llm: model}, nil
}

// NewWithModel wraps an already constructed model.
func NewWithModel(config ChatConfig, model llms.Model) (*ChatEngine, error) {
	config, err := applyChatDefaults(config)
	if err != nil {
		return nil, err
	}
	return &ChatEngine{config: config, llm: model}, nil
}

func applyChatDefaults(config ChatConfig) (ChatConfig, error) {
	if config.Provider == "" {
		config.Provider = "ollama"
	}
	if config.Model == "" {
		config.Model = "mistral" // Default Ollama model
	}
	if config.Temperature < 0 || config.Temperature > 1 {
		return config, fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return config, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.Provider == "ollama" && config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	if config.MaxMetadataChars == 0 {
		config.MaxMetadataChars = 20000
	}
	return config, nil
}

// Answer sends the grounding instruction and the user question and returns the model's reply.
func (ce *ChatEngine) Answer(ctx context.Context, systemPrompt, question string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, question),
	}

	return ce.generate(ctx, content,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	)
}

func (ce *ChatEngine) generate(ctx context.Context, content []llms.MessageContent, opts ...llms.CallOption) (string, error) {
	response, err := ce.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return "", fmt.Errorf("chat error: no response from LLM")
	}
	return strings.TrimSpace(response.Choices[0].Content), nil
}
