package driven

import "context"

// Reranker re-orders a candidate window by relevance to the query.
// This is an optional service - when nil, the rank fusion order stands.
type Reranker interface {
	// Rerank scores the documents against the query and returns indices
	// into the input slice, most relevant first.
	Rerank(ctx context.Context, query string, documents []string) ([]RerankHit, error)

	// ModelName returns the name of the reranker model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}

// RerankHit is a reranked candidate.
type RerankHit struct {
	// Index positions the hit in the input documents slice.
	Index int

	// Score is the reranker's relevance score, higher is better.
	Score float64
}
