package domain

import "time"

// Content is the canonical normalised representation of an ingested
// payload. It is the provenance root for its chunks and for the entities
// extracted from it: their SourceID is the content's ID.
type Content struct {
	// ID is the unique identifier for the content.
	ID string

	// OwnerID scopes the content to one owner.
	OwnerID string

	// Text is the full plain text after normalisation.
	Text string

	// Title is the human-readable title, when the normaliser found one.
	Title string

	// Category classifies the content, copied from the payload.
	Category string

	// Context is the owner-supplied free-text instructions.
	Context string

	// URL is set when the content was fetched from a web page.
	URL string

	// FileID references the stored file the content came from, if any.
	FileID string

	// CreatedAt is when normalisation first succeeded.
	CreatedAt time.Time

	// UpdatedAt is when the content was last updated.
	UpdatedAt time.Time
}

// Chunk is a bounded span of content text, the unit of embedding and
// retrieval. Chunks are immutable and deleted in cascade with their
// content.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// SourceID links to the parent Content.
	SourceID string

	// OwnerID scopes the chunk to one owner.
	OwnerID string

	// Position is the ordinal position within the content.
	Position int

	// Text is the chunk's span of the source text, including the
	// leading overlap carried over from the previous chunk.
	Text string

	// OverlapLen is the number of leading bytes of Text shared with the
	// previous chunk. Stripping it from every chunk and concatenating
	// reconstructs the source text.
	OverlapLen int

	// Embedding is the vector representation for similarity search.
	// Its length must equal the configured embedding dimension.
	Embedding []float32
}

// FileRef describes a stored file, deduplicated by content hash.
type FileRef struct {
	// ID is the unique identifier for the file reference.
	ID string

	// OwnerID scopes the file to one owner.
	OwnerID string

	// SHA256 is the hex content hash. Unique per owner: resubmitting an
	// identical file reuses the existing record.
	SHA256 string

	// Path is the storage location on disk.
	Path string

	// FileName is the original name of the uploaded file.
	FileName string

	// MIMEType is the detected content type (e.g. "application/pdf").
	MIMEType string

	// CreatedAt is when the file was first stored.
	CreatedAt time.Time
}
