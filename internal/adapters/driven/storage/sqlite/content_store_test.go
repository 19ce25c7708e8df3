package sqlite

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loreweave/loreweave/internal/core/domain"
)

// ==================== ContentStore Tests ====================

func TestContentStore_SaveAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	contents := store.ContentStore()

	content := &domain.Content{
		ID:       "content-1",
		OwnerID:  "owner-1",
		Text:     "Sourdough starters need regular feeding.",
		Title:    "Sourdough Notes",
		Category: "baking",
		Context:  "from my recipe journal",
		URL:      "https://example.com/sourdough",
	}
	require.NoError(t, contents.SaveContent(ctx, content))

	got, err := contents.GetContent(ctx, "owner-1", "content-1")
	require.NoError(t, err)
	assert.Equal(t, content.Text, got.Text)
	assert.Equal(t, content.Title, got.Title)
	assert.Equal(t, content.Category, got.Category)
	assert.Equal(t, content.Context, got.Context)
	assert.Equal(t, content.URL, got.URL)
	assertRecentTime(t, got.CreatedAt)

	_, err = contents.GetContent(ctx, "owner-2", "content-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContentStore_SaveUpdatesExisting(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	contents := store.ContentStore()

	content := &domain.Content{
		ID:      "content-1",
		OwnerID: "owner-1",
		Text:    "first draft",
		Title:   "Draft",
	}
	require.NoError(t, contents.SaveContent(ctx, content))

	content.Text = "second draft with more detail"
	require.NoError(t, contents.SaveContent(ctx, content))

	got, err := contents.GetContent(ctx, "owner-1", "content-1")
	require.NoError(t, err)
	assert.Equal(t, "second draft with more detail", got.Text)

	// The keyword index follows the update: the old text no longer
	// matches and the new text does.
	hits, err := contents.SearchText(ctx, "owner-1", "detail", "", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	var indexed int
	err = store.db.QueryRow("SELECT COUNT(*) FROM content_fts WHERE content_id = ?", "content-1").Scan(&indexed)
	require.NoError(t, err)
	assert.Equal(t, 1, indexed, "update must not duplicate the index entry")
}

func TestContentStore_SaveAndGetChunks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	contents := store.ContentStore()
	createTestContent(t, store, "owner-1", "content-1")

	chunks := []domain.Chunk{
		{ID: uuid.NewString(), SourceID: "content-1", OwnerID: "owner-1", Position: 0,
			Text: "first chunk", Embedding: []float32{0.1, 0.2, 0.3}},
		{ID: uuid.NewString(), SourceID: "content-1", OwnerID: "owner-1", Position: 1,
			Text: "overlap second chunk", OverlapLen: 8, Embedding: []float32{0.4, 0.5, 0.6}},
	}
	require.NoError(t, contents.SaveChunks(ctx, chunks))

	got, err := contents.GetChunks(ctx, "owner-1", "content-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Position)
	assert.Equal(t, "first chunk", got[0].Text)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got[0].Embedding)
	assert.Equal(t, 8, got[1].OverlapLen)

	single, err := contents.GetChunk(ctx, "owner-1", chunks[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "overlap second chunk", single.Text)
}

func TestContentStore_SaveChunksReplaces(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	contents := store.ContentStore()
	createTestContent(t, store, "owner-1", "content-1")

	first := []domain.Chunk{
		{ID: uuid.NewString(), SourceID: "content-1", OwnerID: "owner-1", Position: 0, Text: "stale"},
	}
	require.NoError(t, contents.SaveChunks(ctx, first))

	second := []domain.Chunk{
		{ID: uuid.NewString(), SourceID: "content-1", OwnerID: "owner-1", Position: 0, Text: "fresh a"},
		{ID: uuid.NewString(), SourceID: "content-1", OwnerID: "owner-1", Position: 1, Text: "fresh b"},
	}
	require.NoError(t, contents.SaveChunks(ctx, second))

	got, err := contents.GetChunks(ctx, "owner-1", "content-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "fresh a", got[0].Text)
}

func TestContentStore_DeleteContent(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	contents := store.ContentStore()
	createTestContent(t, store, "owner-1", "content-1")

	chunks := []domain.Chunk{
		{ID: uuid.NewString(), SourceID: "content-1", OwnerID: "owner-1", Position: 0, Text: "chunk"},
	}
	require.NoError(t, contents.SaveChunks(ctx, chunks))

	require.NoError(t, contents.DeleteContent(ctx, "owner-1", "content-1"))

	_, err := contents.GetContent(ctx, "owner-1", "content-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Chunks go with the content, and so does the index entry.
	got, err := contents.GetChunks(ctx, "owner-1", "content-1")
	require.NoError(t, err)
	assert.Empty(t, got)

	hits, err := contents.SearchText(ctx, "owner-1", "content", "", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestContentStore_DeleteMissingContent(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	err := store.ContentStore().DeleteContent(ctx, "owner-1", "no-such-content")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContentStore_SearchText(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	contents := store.ContentStore()

	require.NoError(t, contents.SaveContent(ctx, &domain.Content{
		ID: "content-bread", OwnerID: "owner-1",
		Title: "Sourdough Basics",
		Text:  "A sourdough starter is a culture of wild yeast used to leaven bread.",
	}))
	require.NoError(t, contents.SaveContent(ctx, &domain.Content{
		ID: "content-kernel", OwnerID: "owner-1",
		Title: "Scheduler Notes",
		Text:  "The kernel scheduler distributes runnable threads across cores.",
	}))

	hits, err := contents.SearchText(ctx, "owner-1", "sourdough starter", "", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "content-bread", hits[0].ContentID)
	assert.Greater(t, hits[0].Score, 0.0)
	require.NotEmpty(t, hits[0].Highlights)
	assert.Contains(t, hits[0].Highlights[0], "[sourdough]")
}

func TestContentStore_SearchTextCategoryScoped(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	contents := store.ContentStore()

	require.NoError(t, contents.SaveContent(ctx, &domain.Content{
		ID: "content-recipe", OwnerID: "owner-1", Category: "cooking",
		Text: "sourdough takes patience",
	}))
	require.NoError(t, contents.SaveContent(ctx, &domain.Content{
		ID: "content-journal", OwnerID: "owner-1", Category: "journal",
		Text: "sourdough attempt number three failed again",
	}))

	hits, err := contents.SearchText(ctx, "owner-1", "sourdough", "cooking", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "content-recipe", hits[0].ContentID)

	// An empty category searches everything.
	hits, err = contents.SearchText(ctx, "owner-1", "sourdough", "", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestContentStore_SearchTextOwnerScoped(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	contents := store.ContentStore()

	require.NoError(t, contents.SaveContent(ctx, &domain.Content{
		ID: "content-1", OwnerID: "owner-1", Text: "shared secret phrase",
	}))

	hits, err := contents.SearchText(ctx, "owner-2", "secret", "", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestContentStore_SearchTextPunctuation(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	contents := store.ContentStore()

	require.NoError(t, contents.SaveContent(ctx, &domain.Content{
		ID: "content-1", OwnerID: "owner-1", Text: "notes about the scheduler",
	}))

	// Raw FTS operator syntax in a query must not error.
	hits, err := contents.SearchText(ctx, "owner-1", `scheduler AND "NOT(`, "", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = contents.SearchText(ctx, "owner-1", "   ", "", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestContentStore_SearchChunkVectors(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	contents := store.ContentStore()
	createTestContent(t, store, "owner-1", "content-1")

	chunks := []domain.Chunk{
		{ID: "chunk-near", SourceID: "content-1", OwnerID: "owner-1", Position: 0,
			Text: "near", Embedding: []float32{1, 0, 0}},
		{ID: "chunk-far", SourceID: "content-1", OwnerID: "owner-1", Position: 1,
			Text: "far", Embedding: []float32{0, 1, 0}},
	}
	require.NoError(t, contents.SaveChunks(ctx, chunks))

	hits, err := contents.SearchChunkVectors(ctx, "owner-1", []float32{1, 0, 0}, "", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "chunk-near", hits[0].ID)
	assert.Equal(t, "content-1", hits[0].SourceID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	assert.Greater(t, hits[0].Similarity, hits[1].Similarity)

	hits, err = contents.SearchChunkVectors(ctx, "owner-2", []float32{1, 0, 0}, "", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestContentStore_SearchChunkVectorsCategoryScoped(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	contents := store.ContentStore()

	require.NoError(t, contents.SaveContent(ctx, &domain.Content{
		ID: "content-cook", OwnerID: "owner-1", Category: "cooking", Text: "a",
	}))
	require.NoError(t, contents.SaveContent(ctx, &domain.Content{
		ID: "content-work", OwnerID: "owner-1", Category: "work", Text: "b",
	}))
	require.NoError(t, contents.SaveChunks(ctx, []domain.Chunk{
		{ID: "chunk-cook", SourceID: "content-cook", OwnerID: "owner-1", Position: 0,
			Text: "cook", Embedding: []float32{1, 0, 0}},
		{ID: "chunk-work", SourceID: "content-work", OwnerID: "owner-1", Position: 0,
			Text: "work", Embedding: []float32{1, 0, 0}},
	}))

	// The out-of-category chunk must not consume the result budget,
	// even with a perfect similarity score.
	hits, err := contents.SearchChunkVectors(ctx, "owner-1", []float32{1, 0, 0}, "work", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "chunk-work", hits[0].ID)
}

func TestContentStore_SearchChunkVectorsDimensionMismatch(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	contents := store.ContentStore()
	createTestContent(t, store, "owner-1", "content-1")

	chunks := []domain.Chunk{
		{ID: "chunk-1", SourceID: "content-1", OwnerID: "owner-1", Position: 0,
			Text: "stored with three dims", Embedding: []float32{1, 0, 0}},
	}
	require.NoError(t, contents.SaveChunks(ctx, chunks))

	// A stale vector with the wrong dimensionality fails loudly rather
	// than being silently truncated or padded.
	_, err := contents.SearchChunkVectors(ctx, "owner-1", []float32{1, 0, 0, 0}, "", 10)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestContentStore_ListCategories(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	contents := store.ContentStore()

	for _, category := range []string{"notes", "papers", "notes", ""} {
		require.NoError(t, contents.SaveContent(ctx, &domain.Content{
			ID: uuid.NewString(), OwnerID: "owner-1",
			Text: "text", Category: category,
		}))
	}

	categories, err := contents.ListCategories(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"notes", "papers"}, categories)
}

// ==================== FileRef Tests ====================

func TestContentStore_FileRefs(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	contents := store.ContentStore()

	ref := &domain.FileRef{
		ID:       "file-1",
		OwnerID:  "owner-1",
		SHA256:   "abc123",
		Path:     "/data/files/abc123.pdf",
		FileName: "paper.pdf",
		MIMEType: "application/pdf",
	}
	require.NoError(t, contents.SaveFileRef(ctx, ref))

	got, err := contents.GetFileRef(ctx, "owner-1", "file-1")
	require.NoError(t, err)
	assert.Equal(t, "paper.pdf", got.FileName)
	assert.Equal(t, "application/pdf", got.MIMEType)

	byHash, err := contents.FindFileRefBySHA256(ctx, "owner-1", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "file-1", byHash.ID)

	_, err = contents.FindFileRefBySHA256(ctx, "owner-2", "abc123")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContentStore_FileRefHashUniquePerOwner(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	contents := store.ContentStore()

	require.NoError(t, contents.SaveFileRef(ctx, &domain.FileRef{
		ID: "file-1", OwnerID: "owner-1", SHA256: "samehash", Path: "/a",
	}))

	// Same hash for the same owner violates the unique constraint.
	err := contents.SaveFileRef(ctx, &domain.FileRef{
		ID: "file-2", OwnerID: "owner-1", SHA256: "samehash", Path: "/b",
	})
	assert.Error(t, err)

	// Same hash for a different owner is fine.
	require.NoError(t, contents.SaveFileRef(ctx, &domain.FileRef{
		ID: "file-3", OwnerID: "owner-2", SHA256: "samehash", Path: "/c",
	}))
}
