package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Sethyshola20/T-itw/internal/models"
	"github.com/Sethyshola20/T-itw/internal/types"
	"github.com/Sethyshola20/T-itw/pkg/cache"
	"github.com/Sethyshola20/T-itw/pkg/indexer"
	"github.com/Sethyshola20/T-itw/pkg/logging"
	"github.com/Sethyshola20/T-itw/pkg/retriever"
)

var (
	ErrMissingQuestion   = errors.New("query is required")
	ErrMissingDocumentID = retriever.ErrMissingDocumentID
)

type ServiceConfig struct {
	Threshold float64
	TopK      int
}

// Service ties extraction, indexing and retrieval together for the API and CLI.
type Service struct {
	config    ServiceConfig
	extractor types.TextExtractor
	generator types.Generator
	pipeline  *indexer.Pipeline
	retriever *retriever.Retriever
	index     types.VectorIndex
	registry  types.Registry
	documents *cache.DocumentCache
	logger    *log.Logger
}

type Dependencies struct {
	Extractor types.TextExtractor
	Generator types.Generator
	Pipeline  *indexer.Pipeline
	Retriever *retriever.Retriever
	Index     types.VectorIndex
	Registry  types.Registry
	Documents *cache.DocumentCache
	Logger    *log.Logger
}

func NewWithConfig(config ServiceConfig, deps Dependencies) *Service {
	if config.Threshold == 0 {
		config.Threshold = 0.5
	}
	if config.TopK <= 0 {
		config.TopK = 5
	}

	return &Service{
		config:    config,
		extractor: deps.Extractor,
		generator: deps.Generator,
		pipeline:  deps.Pipeline,
		retriever: deps.Retriever,
		index:     deps.Index,
		registry:  deps.Registry,
		documents: deps.Documents,
		logger:    logging.Component(deps.Logger, "rag"),
	}
}

type IngestRequest struct {
	DocumentID string
	Title      string
	FilePath   string
	Data       []byte
	URL        string
}

// Ingest extracts the text and metadata of a document and indexes it. The document is
// reported as indexed only when every step succeeded.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (models.Document, error) {
	if req.DocumentID == "" {
		req.DocumentID = uuid.NewString()
	}
	source := req.FilePath
	if source == "" {
		source = req.URL
	}
	logger := s.logger.With("documentId", req.DocumentID)

	doc := models.Document{
		ID:     req.DocumentID,
		Title:  req.Title,
		Source: source,
		Status: models.StatusUnindexed,
	}
	if existing, err := s.registry.Get(ctx, doc.ID); err == nil {
		doc.CreatedAt = existing.CreatedAt
	}
	if err := s.registry.Save(ctx, doc); err != nil {
		return models.Document{}, err
	}
	// a cached copy of a previous version must not report the document ready while it is re-indexed
	s.documents.Invalidate(ctx, doc.ID)

	fail := func(err error) (models.Document, error) {
		if serr := s.registry.SetStatus(ctx, doc.ID, models.StatusFailed, 0); serr != nil {
			logger.Warn("failed to record failure", "err", serr)
		}
		s.documents.Invalidate(ctx, doc.ID)
		return models.Document{}, err
	}

	text, err := s.extractor.Extract(ctx, types.Source{FilePath: req.FilePath, Data: req.Data, URL: req.URL})
	if err != nil {
		return fail(fmt.Errorf("failed to extract text: %w", err))
	}
	logger.Info("text extracted", "chars", len(text))

	meta, err := s.generator.ExtractMetadata(ctx, text)
	if err != nil {
		return fail(err)
	}
	doc.Metadata = meta
	if doc.Title == "" {
		doc.Title = meta.ProjectName
	}
	if err := s.registry.Save(ctx, doc); err != nil {
		return fail(err)
	}

	if _, err := s.pipeline.Index(ctx, doc.ID, text, meta.IndexFields(source)); err != nil {
		return fail(err)
	}

	stored, err := s.registry.Get(ctx, doc.ID)
	if err != nil {
		return models.Document{}, err
	}
	s.documents.Put(ctx, stored)
	return stored, nil
}

type Answer struct {
	Text     string   `json:"answer"`
	Passages []string `json:"passages"`
	Fallback bool     `json:"fallback"`
}

// Ask answers question from the passages of documentID. When nothing relevant is found,
// or retrieval fails, the fixed fallback answer is returned and the model is not called.
func (s *Service) Ask(ctx context.Context, documentID, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, ErrMissingQuestion
	}
	if strings.TrimSpace(documentID) == "" {
		return Answer{}, ErrMissingDocumentID
	}

	passages, err := s.retriever.Search(ctx, question, documentID, s.config.Threshold, s.config.TopK)
	if err != nil {
		s.logger.Error("retrieval failed", "documentId", documentID, "err", err)
		return fallback(), nil
	}
	if len(passages) == 0 {
		return fallback(), nil
	}

	prompt := retriever.BuildPrompt(retriever.BuildContext(passages))
	text, err := s.generator.Answer(ctx, prompt, question)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to generate answer: %w", err)
	}

	return Answer{Text: text, Passages: passages}, nil
}

func fallback() Answer {
	return Answer{Text: retriever.FallbackAnswer, Passages: []string{}, Fallback: true}
}

// Search returns the scored passages of documentID for query with the configured threshold and topK.
func (s *Service) Search(ctx context.Context, documentID, query string) ([]retriever.Result, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, ErrMissingDocumentID
	}
	return s.retriever.SearchResults(ctx, query, documentID, s.config.Threshold, s.config.TopK)
}

func (s *Service) Document(ctx context.Context, id string) (models.Document, error) {
	if doc, ok := s.documents.Get(ctx, id); ok {
		return doc, nil
	}
	doc, err := s.registry.Get(ctx, id)
	if err != nil {
		return models.Document{}, err
	}
	s.documents.Put(ctx, doc)
	return doc, nil
}

func (s *Service) Documents(ctx context.Context) ([]models.Document, error) {
	return s.registry.List(ctx)
}

// Delete removes the index records, registry row and cached copy of a document.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.registry.Get(ctx, id); err != nil {
		return err
	}
	n, err := s.index.DeleteByDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete chunks of %s: %w", id, err)
	}
	if err := s.registry.Delete(ctx, id); err != nil {
		return err
	}
	s.documents.Invalidate(ctx, id)
	s.logger.Info("document deleted", "documentId", id, "chunks", n)
	return nil
}
