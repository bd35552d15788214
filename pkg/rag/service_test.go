package rag_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sethyshola20/T-itw/internal/models"
	"github.com/Sethyshola20/T-itw/internal/types"
	"github.com/Sethyshola20/T-itw/pkg/cache"
	"github.com/Sethyshola20/T-itw/pkg/chunker"
	"github.com/Sethyshola20/T-itw/pkg/embedder"
	"github.com/Sethyshola20/T-itw/pkg/indexer"
	"github.com/Sethyshola20/T-itw/pkg/rag"
	"github.com/Sethyshola20/T-itw/pkg/registry"
	"github.com/Sethyshola20/T-itw/pkg/retriever"
	"github.com/Sethyshola20/T-itw/pkg/store"
)

// keywordModel embeds text by the presence of a few domain words.
type keywordModel struct {
	err error
}

var keywords = []string{"load", "bearing", "drainage"}

func (m *keywordModel) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *keywordModel) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, len(keywords))
		for k, w := range keywords {
			if strings.Contains(strings.ToLower(t), w) {
				v[k] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

func (m *keywordModel) Dimensions() int { return len(keywords) }

type fakeGenerator struct {
	prompts   []string
	questions []string
	metaErr   error
}

func (g *fakeGenerator) Answer(_ context.Context, systemPrompt, question string) (string, error) {
	g.prompts = append(g.prompts, systemPrompt)
	g.questions = append(g.questions, question)
	return "The load rating is 40 kN.", nil
}

func (g *fakeGenerator) ExtractMetadata(context.Context, string) (models.DocumentMetadata, error) {
	if g.metaErr != nil {
		return models.DocumentMetadata{}, g.metaErr
	}
	return models.DocumentMetadata{
		ProjectName:     "Route 9 Bridge",
		EngineeringFirm: "Acme Structural",
		DocumentType:    "Inspection Report",
	}, nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (e fakeExtractor) Extract(context.Context, types.Source) (string, error) {
	return e.text, e.err
}

// hookExtractor runs hook while the document is being extracted.
type hookExtractor struct {
	text string
	hook func()
}

func (e *hookExtractor) Extract(context.Context, types.Source) (string, error) {
	if e.hook != nil {
		e.hook()
	}
	return e.text, nil
}

const reportText = "Section 1 describes the drainage system of the deck. " +
	"Section 2 states the load rating of the main girders is 40 kN per lane. " +
	"Section 3 covers elastomeric bearing replacement."

type fixture struct {
	service   *rag.Service
	index     *store.MemoryStore
	registry  *registry.MemoryRegistry
	generator *fakeGenerator
	docCache  *cache.DocumentCache
}

func newFixture(t *testing.T, model *keywordModel, ext types.TextExtractor) fixture {
	t.Helper()

	backend, err := cache.NewMemory(256)
	require.NoError(t, err)

	idx := store.NewMemory()
	reg := registry.NewMemory()
	gen := &fakeGenerator{}
	docs := cache.NewDocumentCache(backend, time.Minute, nil)

	emb := embedder.NewWithConfig(embedder.EmbedderConfig{}, model, cache.NewEmbeddingCache(backend, time.Hour, nil), nil)
	pipeline := indexer.NewWithConfig(indexer.PipelineConfig{},
		chunker.NewWithConfig(chunker.ChunkerConfig{Size: 60, Overlap: 5}), emb, idx, reg, nil)
	ret := retriever.NewWithConfig(retriever.RetrieverConfig{}, emb, idx, nil)

	svc := rag.NewWithConfig(rag.ServiceConfig{Threshold: 0.9, TopK: 3}, rag.Dependencies{
		Extractor: ext,
		Generator: gen,
		Pipeline:  pipeline,
		Retriever: ret,
		Index:     idx,
		Registry:  reg,
		Documents: docs,
	})

	return fixture{service: svc, index: idx, registry: reg, generator: gen, docCache: docs}
}

func TestIngestAndAsk(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &keywordModel{}, fakeExtractor{text: reportText})

	doc, err := f.service.Ingest(ctx, rag.IngestRequest{DocumentID: "doc-1", FilePath: "uploads/route9.pdf"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusIndexed, doc.Status)
	assert.Equal(t, "Route 9 Bridge", doc.Title)
	assert.Greater(t, doc.ChunkCount, 1)
	assert.Equal(t, doc.ChunkCount, f.index.Len())

	cached, ok := f.docCache.Get(ctx, "doc-1")
	require.True(t, ok)
	assert.Equal(t, "Inspection Report", cached.Metadata.DocumentType)

	matches, err := f.index.Query(ctx, []float32{1, 0, 0}, 1, types.Filter{DocumentID: "doc-1"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "uploads/route9.pdf", matches[0].Metadata.Extra["filePath"])
	assert.Equal(t, "Acme Structural", matches[0].Metadata.Extra["engineeringFirm"])

	answer, err := f.service.Ask(ctx, "doc-1", "what is the load rating")
	require.NoError(t, err)
	assert.False(t, answer.Fallback)
	assert.Equal(t, "The load rating is 40 kN.", answer.Text)
	require.NotEmpty(t, answer.Passages)
	for _, p := range answer.Passages {
		assert.Contains(t, strings.ToLower(p), "load")
	}

	require.Len(t, f.generator.prompts, 1)
	assert.True(t, strings.HasPrefix(f.generator.prompts[0], "Answer ONLY from CONTEXT below; if absent, say so. CONTEXT: "))
	assert.Contains(t, f.generator.prompts[0], strings.Join(answer.Passages, "\n\n"))
	assert.Equal(t, []string{"what is the load rating"}, f.generator.questions)
}

func TestAskFallbackWithoutRelevantPassages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &keywordModel{}, fakeExtractor{text: reportText})

	_, err := f.service.Ingest(ctx, rag.IngestRequest{DocumentID: "doc-1"})
	require.NoError(t, err)

	answer, err := f.service.Ask(ctx, "doc-1", "who signed the cover letter")
	require.NoError(t, err)
	assert.True(t, answer.Fallback)
	assert.Equal(t, "I could not find relevant information for that question in this document.", answer.Text)
	assert.Empty(t, answer.Passages)
	assert.Empty(t, f.generator.prompts)

	answer, err = f.service.Ask(ctx, "doc-unknown", "what is the load rating")
	require.NoError(t, err)
	assert.True(t, answer.Fallback)
}

func TestAskFallbackOnRetrievalFailure(t *testing.T) {
	f := newFixture(t, &keywordModel{err: errors.New("embedding timeout")}, fakeExtractor{text: reportText})

	answer, err := f.service.Ask(context.Background(), "doc-1", "what is the load rating")
	require.NoError(t, err)
	assert.True(t, answer.Fallback)
	assert.Empty(t, f.generator.prompts)
}

func TestAskValidation(t *testing.T) {
	f := newFixture(t, &keywordModel{}, fakeExtractor{text: reportText})

	_, err := f.service.Ask(context.Background(), "doc-1", "  ")
	assert.ErrorIs(t, err, rag.ErrMissingQuestion)

	_, err = f.service.Ask(context.Background(), "", "what is the load rating")
	assert.ErrorIs(t, err, rag.ErrMissingDocumentID)
}

func TestIngestFailuresMarkDocumentFailed(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		model *keywordModel
		ext   fakeExtractor
	}{
		{"extraction", &keywordModel{}, fakeExtractor{err: errors.New("no text could be extracted")}},
		{"embedding", &keywordModel{err: errors.New("model unavailable")}, fakeExtractor{text: reportText}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.model, tt.ext)

			_, err := f.service.Ingest(ctx, rag.IngestRequest{DocumentID: "doc-1"})
			require.Error(t, err)

			doc, err := f.registry.Get(ctx, "doc-1")
			require.NoError(t, err)
			assert.Equal(t, models.StatusFailed, doc.Status)
			assert.False(t, doc.Ready())
			assert.Zero(t, f.index.Len())
		})
	}
}

func TestIngestAssignsID(t *testing.T) {
	f := newFixture(t, &keywordModel{}, fakeExtractor{text: reportText})

	doc, err := f.service.Ingest(context.Background(), rag.IngestRequest{URL: "https://example.com/report.pdf"})
	require.NoError(t, err)
	assert.Len(t, doc.ID, 36)
	assert.Equal(t, "https://example.com/report.pdf", doc.Source)
}

func TestDocumentLookupAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &keywordModel{}, fakeExtractor{text: reportText})

	_, err := f.service.Ingest(ctx, rag.IngestRequest{DocumentID: "doc-1"})
	require.NoError(t, err)

	f.docCache.Invalidate(ctx, "doc-1")
	doc, err := f.service.Document(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	_, ok := f.docCache.Get(ctx, "doc-1")
	assert.True(t, ok)

	docs, err := f.service.Documents(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	require.NoError(t, f.service.Delete(ctx, "doc-1"))
	assert.Zero(t, f.index.Len())
	_, err = f.service.Document(ctx, "doc-1")
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.ErrorIs(t, f.service.Delete(ctx, "doc-1"), registry.ErrNotFound)
}

func TestSearchRequiresDocument(t *testing.T) {
	f := newFixture(t, &keywordModel{}, fakeExtractor{text: reportText})

	_, err := f.service.Search(context.Background(), "", "load")
	assert.ErrorIs(t, err, rag.ErrMissingDocumentID)
}

func TestReingestDoesNotServeStaleCachedDocument(t *testing.T) {
	ctx := context.Background()
	ext := &hookExtractor{text: reportText}
	f := newFixture(t, &keywordModel{}, ext)

	_, err := f.service.Ingest(ctx, rag.IngestRequest{DocumentID: "doc-1", FilePath: "route9.pdf"})
	require.NoError(t, err)
	cached, ok := f.docCache.Get(ctx, "doc-1")
	require.True(t, ok)
	require.Equal(t, models.StatusIndexed, cached.Status)

	var (
		during    models.Document
		duringErr error
	)
	ext.hook = func() {
		during, duringErr = f.service.Document(ctx, "doc-1")
	}

	doc, err := f.service.Ingest(ctx, rag.IngestRequest{DocumentID: "doc-1", FilePath: "route9.pdf"})
	require.NoError(t, err)
	require.NoError(t, duringErr)
	assert.Equal(t, models.StatusUnindexed, during.Status)
	assert.Equal(t, models.StatusIndexed, doc.Status)

	cached, ok = f.docCache.Get(ctx, "doc-1")
	require.True(t, ok)
	assert.Equal(t, models.StatusIndexed, cached.Status)
}
