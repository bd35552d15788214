package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Sethyshola20/T-itw/internal/models"
	"github.com/Sethyshola20/T-itw/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	metadata    TEXT NOT NULL DEFAULT '{}',
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_created_at_idx ON documents (created_at);
`

// SQLiteRegistry persists document records in a local SQLite database.
type SQLiteRegistry struct {
	db  *sql.DB
	now func() time.Time
}

var _ types.Registry = (*SQLiteRegistry)(nil)

func NewSQLite(ctx context.Context, path string) (*SQLiteRegistry, error) {
	if path == "" {
		path = "docrag.db"
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create registry schema: %w", err)
	}

	return &SQLiteRegistry{db: db, now: time.Now}, nil
}

func (r *SQLiteRegistry) Save(ctx context.Context, doc models.Document) error {
	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if doc.Status == "" {
		doc.Status = models.StatusUnindexed
	}

	now := r.now().UTC()
	created := doc.CreatedAt
	if created.IsZero() {
		created = now
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, source, status, chunk_count, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			source = excluded.source,
			status = excluded.status,
			chunk_count = excluded.chunk_count,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		doc.ID, doc.Title, doc.Source, string(doc.Status), doc.ChunkCount, string(meta),
		created.UnixNano(), now.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
	}
	return nil
}

func (r *SQLiteRegistry) Get(ctx context.Context, id string) (models.Document, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, source, status, chunk_count, metadata, created_at, updated_at
		FROM documents WHERE id = ?`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Document{}, ErrNotFound
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to load document %s: %w", id, err)
	}
	return doc, nil
}

func (r *SQLiteRegistry) List(ctx context.Context) ([]models.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, source, status, chunk_count, metadata, created_at, updated_at
		FROM documents ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]models.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *SQLiteRegistry) SetStatus(ctx context.Context, id string, status models.Status, chunkCount int) error {
	now := r.now().UTC().UnixNano()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (id, status, chunk_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			chunk_count = excluded.chunk_count,
			updated_at = excluded.updated_at`,
		id, string(status), chunkCount, now, now)
	if err != nil {
		return fmt.Errorf("failed to set status of %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRegistry) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (models.Document, error) {
	var (
		doc              models.Document
		status, meta     string
		created, updated int64
	)
	if err := s.Scan(&doc.ID, &doc.Title, &doc.Source, &status, &doc.ChunkCount, &meta, &created, &updated); err != nil {
		return models.Document{}, err
	}
	if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
		return models.Document{}, fmt.Errorf("failed to decode metadata: %w", err)
	}
	doc.Status = models.Status(status)
	doc.CreatedAt = time.Unix(0, created).UTC()
	doc.UpdatedAt = time.Unix(0, updated).UTC()
	return doc, nil
}
