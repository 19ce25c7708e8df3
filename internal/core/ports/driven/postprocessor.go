package driven

import (
	"context"

	"github.com/loreweave/loreweave/internal/core/domain"
)

// Chunker splits content text into overlapping chunks for embedding and
// retrieval. Chunking is deterministic: the same text and configuration
// always produce the same chunks.
type Chunker interface {
	// Name returns the chunker name for logging and configuration.
	Name() string

	// Chunk splits the content's text into ordered chunks. Each chunk
	// records how many of its leading bytes overlap the previous chunk,
	// so the source text can be reconstructed exactly.
	Chunk(ctx context.Context, content *domain.Content) ([]domain.Chunk, error)
}
