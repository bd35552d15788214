package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/Sethyshola20/T-itw/internal/models"
)

var metadataInstruction = `You extract structured metadata from engineering deliverables.
Reply with a single JSON object and nothing else, using these keys:
  projectName (string), clientName (string), engineeringFirm (string),
  documentType (one of: ` + strings.Join(models.DocumentTypes, ", ") + `),
  designPhase (one of: ` + strings.Join(models.DesignPhases, ", ") + `),
  submissionDate (string, ISO date when known), scopeDescription (string),
  keyMetrics (array of {name, value, unit}), deliverables (array of strings),
  signatures (array of {name, role, date}), remarks (string).
Use an empty string or empty array when a value is not present in the document.`

// ExtractMetadata asks the model for the deliverable summary of text.
func (ce *ChatEngine) ExtractMetadata(ctx context.Context, text string) (models.DocumentMetadata, error) {
	runes := []rune(text)
	if len(runes) > ce.config.MaxMetadataChars {
		text = string(runes[:ce.config.MaxMetadataChars])
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, metadataInstruction),
		llms.TextParts(llms.ChatMessageTypeHuman, "DOCUMENT:\n"+text),
	}

	raw, err := ce.generate(ctx, content, llms.WithJSONMode(), llms.WithTemperature(0))
	if err != nil {
		return models.DocumentMetadata{}, fmt.Errorf("failed to extract metadata: %w", err)
	}

	return parseMetadata(raw)
}

func parseMetadata(raw string) (models.DocumentMetadata, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return models.DocumentMetadata{}, fmt.Errorf("failed to parse metadata: no JSON object in response")
	}

	var meta models.DocumentMetadata
	if err := json.Unmarshal([]byte(raw[start:end+1]), &meta); err != nil {
		return models.DocumentMetadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	meta.Normalize()
	return meta, nil
}
