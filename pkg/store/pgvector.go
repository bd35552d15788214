package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/Sethyshola20/T-itw/internal/models"
	"github.com/Sethyshola20/T-itw/internal/types"
)

var (
	ErrMissingFilter = errors.New("query requires a documentId filter")

	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ValidTableName reports whether name can be interpolated into SQL as a table identifier.
func ValidTableName(name string) bool {
	return identifierPattern.MatchString(name)
}

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	BatchSize  int
	IVFLists   int
}

// PGVectorStore keeps chunk vectors in a single PostgreSQL table partitioned by document_id.
type PGVectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

var _ types.VectorIndex = (*PGVectorStore)(nil)

func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*PGVectorStore, error) {
	if config.TableName == "" {
		config.TableName = "engineering_docs"
	}
	if !ValidTableName(config.TableName) {
		return nil, fmt.Errorf("invalid table name %q", config.TableName)
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if config.IVFLists == 0 {
		config.IVFLists = 100
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &PGVectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *PGVectorStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	if _, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			text_preview TEXT,
			embedding vector(%d),
			metadata JSONB
		)`, vs.config.TableName, vs.config.VectorDim)

	if _, err := vs.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createDocIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_document_id_idx ON %s (document_id)`,
		vs.config.TableName, vs.config.TableName)

	if _, err := vs.pool.Exec(ctx, createDocIndex); err != nil {
		return fmt.Errorf("failed to create document index: %w", err)
	}

	createVectorIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = %d)`,
		vs.config.TableName, vs.config.TableName, vs.config.IVFLists)

	if _, err := vs.pool.Exec(ctx, createVectorIndex); err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	return nil
}

// Upsert writes all records in one transaction. An existing id is fully replaced.
func (vs *PGVectorStore) Upsert(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, chunk_index, text_preview, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			chunk_index = EXCLUDED.chunk_index,
			text_preview = EXCLUDED.text_preview,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		vs.config.TableName)

	for start := 0; start < len(records); start += vs.config.BatchSize {
		end := start + vs.config.BatchSize
		if end > len(records) {
			end = len(records)
		}

		batch := &pgx.Batch{}
		for _, rec := range records[start:end] {
			meta := rec.Metadata
			meta.TextPreview = sanitizeUTF8(meta.TextPreview)
			meta.Extra = sanitizeExtra(meta.Extra)

			metaJSON, err := json.Marshal(meta)
			if err != nil {
				return fmt.Errorf("failed to encode metadata for %s: %w", rec.ID, err)
			}

			batch.Queue(stmt,
				rec.ID,
				meta.DocumentID,
				meta.ChunkIndex,
				meta.TextPreview,
				pgvector.NewVector(rec.Vector),
				metaJSON,
			)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to upsert records: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Query returns the topK records of filter.DocumentID closest to vector by cosine distance.
// Score is the cosine similarity (1 - distance).
func (vs *PGVectorStore) Query(ctx context.Context, vector []float32, topK int, filter types.Filter) ([]models.Match, error) {
	if filter.DocumentID == "" {
		return nil, ErrMissingFilter
	}
	if topK <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, 1 - (embedding <=> $1) AS score, embedding, metadata
		FROM %s
		WHERE document_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(vector), filter.DocumentID, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var (
			m         models.Match
			embedding pgvector.Vector
			metaJSON  []byte
		)
		if err := rows.Scan(&m.ID, &m.Score, &embedding, &metaJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &m.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata for %s: %w", m.ID, err)
			}
		}
		m.Vector = embedding.Slice()
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return matches, nil
}

func (vs *PGVectorStore) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	if documentID == "" {
		return 0, ErrMissingFilter
	}

	tag, err := vs.pool.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", vs.config.TableName), documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (vs *PGVectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

// sanitizeExtra returns a copy of extra with keys and string values passed through sanitizeUTF8.
func sanitizeExtra(extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return extra
	}
	out := make(map[string]any, len(extra))
	for k, v := range extra {
		out[sanitizeUTF8(k)] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case string:
		return sanitizeUTF8(val)
	case []string:
		out := make([]string, len(val))
		for i, s := range val {
			out[i] = sanitizeUTF8(s)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	case map[string]any:
		return sanitizeExtra(val)
	default:
		return v
	}
}

// sanitizeUTF8 drops invalid byte sequences and NUL characters, which PostgreSQL text rejects.
func sanitizeUTF8(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
