package driving

import (
	"context"

	"github.com/loreweave/loreweave/internal/core/domain"
)

// QueryService provides hybrid retrieval over the owner's knowledge.
type QueryService interface {
	// Query runs vector and keyword search in parallel, fuses the
	// rankings, optionally expands across the knowledge graph and
	// optionally reranks the top window.
	Query(ctx context.Context, ownerID, query string, opts domain.QueryOptions) ([]domain.QueryResult, error)

	// ListCategories returns the owner's distinct content categories.
	ListCategories(ctx context.Context, ownerID string) ([]string, error)
}
