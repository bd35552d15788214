package retriever_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sethyshola20/T-itw/internal/models"
	"github.com/Sethyshola20/T-itw/internal/types"
	"github.com/Sethyshola20/T-itw/pkg/retriever"
	"github.com/Sethyshola20/T-itw/pkg/store"
)

type countingEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (e *countingEmbedder) EmbedOne(context.Context, string) ([]float32, error) {
	e.calls++
	return e.vector, e.err
}

func (e *countingEmbedder) EmbedMany(context.Context, []string) ([][]float32, error) {
	e.calls++
	return nil, errors.New("not used")
}

type fakeIndex struct {
	matches []models.Match
	err     error
	calls   int
	topK    int
	filter  types.Filter
}

func (f *fakeIndex) Upsert(context.Context, []models.Record) error { return nil }

func (f *fakeIndex) Query(_ context.Context, _ []float32, topK int, filter types.Filter) ([]models.Match, error) {
	f.calls++
	f.topK = topK
	f.filter = filter
	return f.matches, f.err
}

func (f *fakeIndex) DeleteByDocument(context.Context, string) (int, error) { return 0, nil }
func (f *fakeIndex) Close()                                                 {}

func match(docID string, i int, score float64, text string) models.Match {
	return models.Match{
		ID:    models.RecordID(docID, i),
		Score: score,
		Metadata: models.RecordMetadata{
			DocumentID:  docID,
			ChunkIndex:  i,
			TextPreview: text,
		},
	}
}

func TestSearchThresholdAndOrder(t *testing.T) {
	emb := &countingEmbedder{vector: []float32{1, 0}}
	idx := &fakeIndex{matches: []models.Match{
		match("doc-1", 0, 0.3, "bearing pads"),
		match("doc-1", 1, 0.9, "load rating is 40 kN"),
		match("doc-1", 2, 0.6, "live load HL-93"),
	}}
	r := retriever.NewWithConfig(retriever.RetrieverConfig{}, emb, idx, nil)

	passages, err := r.Search(context.Background(), "what is the load rating", "doc-1", 0.5, 5)
	require.NoError(t, err)

	assert.Equal(t, []string{"load rating is 40 kN", "live load HL-93"}, passages)
	assert.Equal(t, 10, idx.topK)
	assert.Equal(t, types.Filter{DocumentID: "doc-1"}, idx.filter)
}

func TestSearchDocumentIsolation(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Upsert(ctx, []models.Record{
		{ID: "doc-1_0", Vector: []float32{0.9, 0.43589}, Metadata: models.RecordMetadata{DocumentID: "doc-1", ChunkIndex: 0, TextPreview: "a"}},
		{ID: "doc-1_1", Vector: []float32{0.6, 0.8}, Metadata: models.RecordMetadata{DocumentID: "doc-1", ChunkIndex: 1, TextPreview: "b"}},
		{ID: "doc-1_2", Vector: []float32{0.3, 0.95394}, Metadata: models.RecordMetadata{DocumentID: "doc-1", ChunkIndex: 2, TextPreview: "c"}},
		{ID: "doc-2_0", Vector: []float32{0.95, 0.31225}, Metadata: models.RecordMetadata{DocumentID: "doc-2", ChunkIndex: 0, TextPreview: "other"}},
		{ID: "doc-2_1", Vector: []float32{0.95, 0.31225}, Metadata: models.RecordMetadata{DocumentID: "doc-2", ChunkIndex: 1, TextPreview: "other"}},
	}))

	for _, mode := range []retriever.ScoreMode{retriever.ScoreNative, retriever.ScoreCosine} {
		t.Run(string(mode), func(t *testing.T) {
			r := retriever.NewWithConfig(retriever.RetrieverConfig{ScoreMode: mode},
				&countingEmbedder{vector: []float32{1, 0}}, mem, nil)

			results, err := r.SearchResults(ctx, "what is the load rating", "doc-1", 0.5, 5)
			require.NoError(t, err)
			require.Len(t, results, 2)
			assert.Equal(t, "a", results[0].Text)
			assert.InDelta(t, 0.9, results[0].Score, 1e-4)
			assert.Equal(t, "b", results[1].Text)
			assert.InDelta(t, 0.6, results[1].Score, 1e-4)
		})
	}
}

func TestSearchEmptyQueryShortCircuits(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t"} {
		emb := &countingEmbedder{vector: []float32{1}}
		idx := &fakeIndex{}
		r := retriever.NewWithConfig(retriever.RetrieverConfig{}, emb, idx, nil)

		passages, err := r.Search(context.Background(), q, "doc-1", 0.5, 5)
		require.NoError(t, err)
		assert.NotNil(t, passages)
		assert.Empty(t, passages)
		assert.Zero(t, emb.calls)
		assert.Zero(t, idx.calls)
	}
}

func TestSearchRequiresDocumentID(t *testing.T) {
	emb := &countingEmbedder{vector: []float32{1}}
	idx := &fakeIndex{}
	r := retriever.NewWithConfig(retriever.RetrieverConfig{}, emb, idx, nil)

	_, err := r.Search(context.Background(), "load rating", " ", 0.5, 5)
	assert.ErrorIs(t, err, retriever.ErrMissingDocumentID)
	assert.Zero(t, emb.calls)
	assert.Zero(t, idx.calls)
}

func TestSearchThresholdMonotonic(t *testing.T) {
	idx := &fakeIndex{matches: []models.Match{
		match("d", 0, 0.91, "a"),
		match("d", 1, 0.75, "b"),
		match("d", 2, 0.5, "c"),
		match("d", 3, 0.49, "d"),
		match("d", 4, -0.2, "e"),
	}}
	r := retriever.NewWithConfig(retriever.RetrieverConfig{}, &countingEmbedder{vector: []float32{1}}, idx, nil)

	prev := -1
	for _, threshold := range []float64{1, 0.91, 0.75, 0.5, 0.49, 0, -1} {
		passages, err := r.Search(context.Background(), "q", "d", threshold, 10)
		require.NoError(t, err)
		if prev >= 0 {
			assert.GreaterOrEqual(t, len(passages), prev, "threshold %v", threshold)
		}
		prev = len(passages)
	}

	// inclusive comparison
	passages, err := r.Search(context.Background(), "q", "d", 0.5, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, passages)
}

func TestSearchTopKAndStableTies(t *testing.T) {
	idx := &fakeIndex{matches: []models.Match{
		match("d", 0, 0.7, "first"),
		match("d", 1, 0.8, "best"),
		match("d", 2, 0.7, "second"),
		match("d", 3, 0.7, "third"),
	}}
	r := retriever.NewWithConfig(retriever.RetrieverConfig{OverFetch: 3}, &countingEmbedder{vector: []float32{1}}, idx, nil)

	passages, err := r.Search(context.Background(), "q", "d", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"best", "first", "second"}, passages)
	assert.Equal(t, 9, idx.topK)
}

func TestSearchCosineModeIgnoresNativeScore(t *testing.T) {
	m := match("d", 0, 0.99, "orthogonal")
	m.Vector = []float32{0, 1}
	idx := &fakeIndex{matches: []models.Match{m}}

	native := retriever.NewWithConfig(retriever.RetrieverConfig{ScoreMode: retriever.ScoreNative}, &countingEmbedder{vector: []float32{1, 0}}, idx, nil)
	cosine := retriever.NewWithConfig(retriever.RetrieverConfig{ScoreMode: retriever.ScoreCosine}, &countingEmbedder{vector: []float32{1, 0}}, idx, nil)

	passages, err := native.Search(context.Background(), "q", "d", 0.5, 5)
	require.NoError(t, err)
	assert.Len(t, passages, 1)

	passages, err = cosine.Search(context.Background(), "q", "d", 0.5, 5)
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestSearchDropsForeignDocuments(t *testing.T) {
	idx := &fakeIndex{matches: []models.Match{
		match("doc-2", 0, 0.95, "leak"),
		match("doc-1", 0, 0.6, "own"),
	}}
	r := retriever.NewWithConfig(retriever.RetrieverConfig{}, &countingEmbedder{vector: []float32{1}}, idx, nil)

	passages, err := r.Search(context.Background(), "q", "doc-1", 0.5, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"own"}, passages)
}

func TestSearchMissingPreview(t *testing.T) {
	idx := &fakeIndex{matches: []models.Match{{ID: "d_0", Score: 0.9}}}
	r := retriever.NewWithConfig(retriever.RetrieverConfig{}, &countingEmbedder{vector: []float32{1}}, idx, nil)

	passages, err := r.Search(context.Background(), "q", "d", 0.5, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, passages)
}

func TestSearchPropagatesErrors(t *testing.T) {
	embErr := errors.New("embedding timeout")
	r := retriever.NewWithConfig(retriever.RetrieverConfig{}, &countingEmbedder{err: embErr}, &fakeIndex{}, nil)
	_, err := r.Search(context.Background(), "q", "d", 0.5, 5)
	assert.ErrorIs(t, err, embErr)

	idxErr := errors.New("index unavailable")
	r = retriever.NewWithConfig(retriever.RetrieverConfig{}, &countingEmbedder{vector: []float32{1}}, &fakeIndex{err: idxErr}, nil)
	_, err = r.Search(context.Background(), "q", "d", 0.5, 5)
	assert.ErrorIs(t, err, idxErr)
}

func TestParseScoreMode(t *testing.T) {
	mode, err := retriever.ParseScoreMode("")
	require.NoError(t, err)
	assert.Equal(t, retriever.ScoreNative, mode)

	mode, err = retriever.ParseScoreMode("COSINE")
	require.NoError(t, err)
	assert.Equal(t, retriever.ScoreCosine, mode)

	_, err = retriever.ParseScoreMode("dot")
	assert.Error(t, err)
}

func TestBuildPrompt(t *testing.T) {
	joined := retriever.BuildContext([]string{"first passage", "second passage"})
	assert.Equal(t, "first passage\n\nsecond passage", joined)
	assert.Equal(t,
		"Answer ONLY from CONTEXT below; if absent, say so. CONTEXT: first passage\n\nsecond passage",
		retriever.BuildPrompt(joined))
	assert.Equal(t, "", retriever.BuildContext(nil))
}
