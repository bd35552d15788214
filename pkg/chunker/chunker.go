package chunker

import (
	"strings"

	"github.com/Sethyshola20/T-itw/internal/models"
)

type ChunkerConfig struct {
	Size    int // window length in characters
	Overlap int // characters shared by consecutive windows
}

type Chunker struct {
	config ChunkerConfig
}

func NewWithConfig(config ChunkerConfig) Chunker {
	if config.Size <= 0 {
		config.Size = 500
	}
	if config.Overlap < 0 {
		config.Overlap = 0
	}
	if config.Overlap >= config.Size {
		config.Overlap = config.Size - 1
	}

	return Chunker{
		config: config,
	}
}

func New() Chunker {
	return NewWithConfig(ChunkerConfig{Size: 500, Overlap: 20})
}

func (c Chunker) Config() ChunkerConfig {
	return c.config
}

// Normalize collapses runs of whitespace into single spaces and trims the result.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Split returns the overlapping windows of the normalized text.
func (c Chunker) Split(text string) []string {
	spans := c.spans(Normalize(text))
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.text
	}
	return out
}

// Chunks splits text and tags every span with its owning document and position.
func (c Chunker) Chunks(documentID, text string) []models.Chunk {
	spans := c.spans(Normalize(text))
	chunks := make([]models.Chunk, len(spans))
	for i, s := range spans {
		chunks[i] = models.Chunk{
			DocumentID: documentID,
			Index:      i,
			Offset:     s.offset,
			Text:       s.text,
		}
	}
	return chunks
}

type span struct {
	offset int
	text   string
}

func (c Chunker) spans(normalized string) []span {
	runes := []rune(normalized)
	if len(runes) == 0 {
		return nil
	}

	step := c.config.Size - c.config.Overlap
	if step < 1 {
		step = 1
	}

	var spans []span
	for start := 0; start < len(runes); start += step {
		end := start + c.config.Size
		if end > len(runes) {
			end = len(runes)
		}
		spans = append(spans, span{offset: start, text: string(runes[start:end])})
		if end == len(runes) {
			break
		}
	}

	return spans
}
