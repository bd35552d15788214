package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Sethyshola20/T-itw/internal/models"
	"github.com/Sethyshola20/T-itw/internal/types"
	"github.com/Sethyshola20/T-itw/pkg/chunker"
	"github.com/Sethyshola20/T-itw/pkg/logging"
)

var ErrEmptyDocument = errors.New("document has no indexable text")

// StatusRecorder receives lifecycle transitions of a document.
type StatusRecorder interface {
	SetStatus(ctx context.Context, id string, status models.Status, chunkCount int) error
}

type PipelineConfig struct {
	PreviewLength int
	OnProgress    func(stage string, done, total int)
}

type Pipeline struct {
	config   PipelineConfig
	chunker  chunker.Chunker
	embedder types.Embedder
	index    types.VectorIndex
	status   StatusRecorder
	logger   *log.Logger
}

type Result struct {
	DocumentID string
	Chunks     int
	Replaced   int // records removed before the upsert
	Duration   time.Duration
}

// NewWithConfig builds a pipeline. status may be nil.
func NewWithConfig(config PipelineConfig, c chunker.Chunker, embedder types.Embedder, index types.VectorIndex, status StatusRecorder, logger *log.Logger) *Pipeline {
	if config.PreviewLength <= 0 {
		config.PreviewLength = 200
	}

	return &Pipeline{
		config:   config,
		chunker:  c,
		embedder: embedder,
		index:    index,
		status:   status,
		logger:   logging.Component(logger, "indexer"),
	}
}

// Index chunks, embeds and stores fullText under documentID. Records from a previous run
// are deleted first, so the index ends up holding exactly the chunks of this text.
func (p *Pipeline) Index(ctx context.Context, documentID, fullText string, extra map[string]any) (Result, error) {
	start := time.Now()
	if documentID == "" {
		return Result{}, fmt.Errorf("failed to index document: documentId is required")
	}

	chunks := p.chunker.Chunks(documentID, fullText)
	if len(chunks) == 0 {
		return Result{}, fmt.Errorf("failed to index %s: %w", documentID, ErrEmptyDocument)
	}

	if err := p.setStatus(ctx, documentID, models.StatusIndexing, 0); err != nil {
		return Result{}, err
	}

	result, err := p.run(ctx, documentID, chunks, extra)
	if err != nil {
		if serr := p.setStatus(ctx, documentID, models.StatusFailed, 0); serr != nil {
			p.logger.Warn("failed to record failure", "documentId", documentID, "err", serr)
		}
		p.logger.Error("indexing failed", "documentId", documentID, "err", err)
		return Result{}, err
	}

	if err := p.setStatus(ctx, documentID, models.StatusIndexed, result.Chunks); err != nil {
		return Result{}, err
	}

	result.Duration = time.Since(start)
	p.logger.Info("document indexed",
		"documentId", documentID,
		"chunks", result.Chunks,
		"replaced", result.Replaced,
		"duration", result.Duration)

	return result, nil
}

func (p *Pipeline) run(ctx context.Context, documentID string, chunks []models.Chunk, extra map[string]any) (Result, error) {
	total := len(chunks)
	p.progress("chunk", total, total)

	texts := make([]string, total)
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return Result{}, fmt.Errorf("failed to embed chunks of %s: %w", documentID, err)
	}
	if len(vectors) != total {
		return Result{}, fmt.Errorf("failed to embed chunks of %s: got %d vectors for %d chunks", documentID, len(vectors), total)
	}
	p.progress("embed", total, total)

	records := make([]models.Record, total)
	for i, c := range chunks {
		records[i] = models.Record{
			ID:     models.RecordID(documentID, c.Index),
			Vector: vectors[i],
			Metadata: models.RecordMetadata{
				DocumentID:  documentID,
				ChunkIndex:  c.Index,
				TextPreview: c.Preview(p.config.PreviewLength),
				Extra:       descriptiveFields(extra),
			},
		}
	}

	replaced, err := p.index.DeleteByDocument(ctx, documentID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to clear previous chunks of %s: %w", documentID, err)
	}

	if err := p.index.Upsert(ctx, records); err != nil {
		return Result{}, fmt.Errorf("failed to upsert chunks of %s: %w", documentID, err)
	}
	p.progress("upsert", total, total)

	return Result{DocumentID: documentID, Chunks: total, Replaced: replaced}, nil
}

func (p *Pipeline) setStatus(ctx context.Context, id string, status models.Status, chunkCount int) error {
	if p.status == nil {
		return nil
	}
	if err := p.status.SetStatus(ctx, id, status, chunkCount); err != nil {
		return fmt.Errorf("failed to set status of %s to %s: %w", id, status, err)
	}
	return nil
}

func (p *Pipeline) progress(stage string, done, total int) {
	if p.config.OnProgress != nil {
		p.config.OnProgress(stage, done, total)
	}
}

// descriptiveFields copies caller metadata without the keys reserved for required fields.
func descriptiveFields(extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(extra))
	for k, v := range extra {
		switch k {
		case models.KeyDocumentID, models.KeyChunkIndex, models.KeyTextPreview:
			continue
		}
		out[k] = v
	}
	return out
}
