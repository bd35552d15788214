package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sethyshola20/T-itw/internal/models"
	"github.com/Sethyshola20/T-itw/internal/types"
)

func testRegistry(t *testing.T, r types.Registry) {
	ctx := context.Background()

	doc := models.Document{
		ID:     "doc-1",
		Title:  "Route 9 inspection",
		Source: "uploads/route9.pdf",
		Metadata: models.DocumentMetadata{
			ProjectName:  "Route 9 Bridge",
			DocumentType: "Inspection Report",
			KeyMetrics:   []models.KeyMetric{{Name: "Load rating", Value: "40", Unit: "kN"}},
		},
	}
	require.NoError(t, r.Save(ctx, doc))

	got, err := r.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnindexed, got.Status)
	assert.Equal(t, doc.Metadata, got.Metadata)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.Ready())

	require.NoError(t, r.SetStatus(ctx, "doc-1", models.StatusIndexing, 0))
	require.NoError(t, r.SetStatus(ctx, "doc-1", models.StatusIndexed, 7))

	got, err = r.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, got.Ready())
	assert.Equal(t, 7, got.ChunkCount)
	assert.Equal(t, "Route 9 inspection", got.Title)

	require.NoError(t, r.SetStatus(ctx, "doc-2", models.StatusIndexing, 0))
	docs, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	require.NoError(t, r.Delete(ctx, "doc-1"))
	_, err = r.Get(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, r.Delete(ctx, "doc-1"), ErrNotFound)
}

func TestMemoryRegistry(t *testing.T) {
	testRegistry(t, NewMemory())
}

func TestSQLiteRegistry(t *testing.T) {
	r, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	defer r.Close()

	testRegistry(t, r)
}

func TestSQLiteRegistryKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	r, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	defer r.Close()

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }
	require.NoError(t, r.Save(ctx, models.Document{ID: "d"}))

	clock = clock.Add(time.Hour)
	require.NoError(t, r.SetStatus(ctx, "d", models.StatusIndexed, 2))

	got, err := r.Get(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), got.CreatedAt)
	assert.Equal(t, time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC), got.UpdatedAt)
}
