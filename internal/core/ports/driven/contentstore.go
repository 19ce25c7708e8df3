package driven

import (
	"context"

	"github.com/loreweave/loreweave/internal/core/domain"
)

// ContentStore persists content records, their chunks and stored file
// references. Backed by SQLite with an FTS5 index over content text.
type ContentStore interface {
	// SaveContent stores or updates a content record and its keyword
	// index entry.
	SaveContent(ctx context.Context, content *domain.Content) error

	// GetContent retrieves a content record by ID, scoped to the owner.
	GetContent(ctx context.Context, ownerID, id string) (*domain.Content, error)

	// SaveChunks stores chunks for a content record, replacing any
	// previous set.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChunks retrieves all chunks for a content record in position
	// order.
	GetChunks(ctx context.Context, ownerID, sourceID string) ([]domain.Chunk, error)

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, ownerID, id string) (*domain.Chunk, error)

	// DeleteContent removes a content record, its chunks and its keyword
	// index entry. Used for retry cleanup of partial pipeline output.
	DeleteContent(ctx context.Context, ownerID, id string) error

	// SearchText performs a BM25 keyword search over the owner's
	// content, best match first. A non-empty category restricts the
	// search to that category's content.
	SearchText(ctx context.Context, ownerID, query, category string, limit int) ([]TextHit, error)

	// SearchChunkVectors finds the owner's chunks nearest to the query
	// vector, restricted to a category when one is given. Returns
	// domain.ErrDimensionMismatch if a stored vector's length differs
	// from the query's.
	SearchChunkVectors(ctx context.Context, ownerID string, query []float32, category string, limit int) ([]VectorHit, error)

	// ListCategories returns the owner's distinct content categories.
	ListCategories(ctx context.Context, ownerID string) ([]string, error)

	// SaveFileRef stores a file reference.
	SaveFileRef(ctx context.Context, ref *domain.FileRef) error

	// GetFileRef retrieves a file reference by ID, scoped to the owner.
	GetFileRef(ctx context.Context, ownerID, id string) (*domain.FileRef, error)

	// FindFileRefBySHA256 retrieves the owner's file reference with the
	// given content hash, or domain.ErrNotFound.
	FindFileRefBySHA256(ctx context.Context, ownerID, hash string) (*domain.FileRef, error)
}

// TextHit represents a keyword search result.
type TextHit struct {
	// ContentID is the matched content record.
	ContentID string

	// Score is the BM25 relevance score, higher is better.
	Score float64

	// Highlights contains snippets with matched terms marked.
	Highlights []string
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ID is the matched record (chunk or entity).
	ID string

	// SourceID is the parent content record, where applicable.
	SourceID string

	// Similarity is the cosine similarity score (0-1).
	Similarity float64
}
