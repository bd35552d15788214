package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/Sethyshola20/T-itw/internal/types"
	"github.com/Sethyshola20/T-itw/internal/vecmath"
	"github.com/Sethyshola20/T-itw/pkg/logging"
)

var ErrMissingDocumentID = errors.New("documentId is required")

// ScoreMode selects where candidate similarity comes from. A deployment uses one mode;
// thresholds calibrated for one are not meaningful for the other.
type ScoreMode string

const (
	// ScoreNative trusts the relevance score reported by the vector index.
	ScoreNative ScoreMode = "native"
	// ScoreCosine recomputes cosine similarity from the returned vectors.
	ScoreCosine ScoreMode = "cosine"
)

func ParseScoreMode(s string) (ScoreMode, error) {
	switch ScoreMode(strings.ToLower(s)) {
	case "", ScoreNative:
		return ScoreNative, nil
	case ScoreCosine:
		return ScoreCosine, nil
	default:
		return "", fmt.Errorf("unknown score mode %q", s)
	}
}

type RetrieverConfig struct {
	ScoreMode ScoreMode
	OverFetch int // candidates requested per result slot
}

type Retriever struct {
	config   RetrieverConfig
	embedder types.Embedder
	index    types.VectorIndex
	logger   *log.Logger
}

// Result is a passage that cleared the similarity threshold.
type Result struct {
	ID         string  `json:"id"`
	ChunkIndex int     `json:"chunkIndex"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

func NewWithConfig(config RetrieverConfig, embedder types.Embedder, index types.VectorIndex, logger *log.Logger) *Retriever {
	if config.ScoreMode == "" {
		config.ScoreMode = ScoreNative
	}
	if config.OverFetch < 1 {
		config.OverFetch = 2
	}

	return &Retriever{
		config:   config,
		embedder: embedder,
		index:    index,
		logger:   logging.Component(logger, "retriever"),
	}
}

// Search returns the text previews of the best passages of documentID for query, best first.
func (r *Retriever) Search(ctx context.Context, query, documentID string, threshold float64, topK int) ([]string, error) {
	results, err := r.SearchResults(ctx, query, documentID, threshold, topK)
	if err != nil {
		return nil, err
	}

	passages := make([]string, len(results))
	for i, res := range results {
		passages[i] = res.Text
	}
	return passages, nil
}

// SearchResults is Search with scores and chunk positions attached.
func (r *Retriever) SearchResults(ctx context.Context, query, documentID string, threshold float64, topK int) ([]Result, error) {
	if strings.TrimSpace(query) == "" || topK <= 0 {
		return []Result{}, nil
	}
	if strings.TrimSpace(documentID) == "" {
		return nil, ErrMissingDocumentID
	}

	vector, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	candidates := topK * r.config.OverFetch
	matches, err := r.index.Query(ctx, vector, candidates, types.Filter{DocumentID: documentID})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		// the index filter is authoritative, this guards against a misbehaving backend
		if m.Metadata.DocumentID != "" && m.Metadata.DocumentID != documentID {
			continue
		}

		score := m.Score
		if r.config.ScoreMode == ScoreCosine {
			score = vecmath.Cosine(vector, m.Vector)
		}
		if score < threshold {
			continue
		}

		results = append(results, Result{
			ID:         m.ID,
			ChunkIndex: m.Metadata.ChunkIndex,
			Score:      score,
			Text:       m.Metadata.TextPreview,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}

	r.logger.Debug("search complete",
		"documentId", documentID,
		"candidates", len(matches),
		"results", len(results),
		"mode", r.config.ScoreMode)

	return results, nil
}
