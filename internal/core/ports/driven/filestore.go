package driven

import (
	"context"

	"github.com/loreweave/loreweave/internal/core/domain"
)

// FileStore persists uploaded file bytes on disk, deduplicated by
// content hash. Metadata lives in the ContentStore as FileRefs.
type FileStore interface {
	// Store writes the file bytes and returns a FileRef. Storing bytes
	// the owner already holds returns the existing reference.
	Store(ctx context.Context, ownerID, fileName string, data []byte) (*domain.FileRef, error)

	// Read returns the stored bytes for a file reference.
	Read(ctx context.Context, ref *domain.FileRef) ([]byte, error)

	// Delete removes the stored bytes for a file reference.
	Delete(ctx context.Context, ref *domain.FileRef) error
}
