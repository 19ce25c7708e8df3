package driven

import (
	"context"

	"github.com/loreweave/loreweave/internal/core/domain"
)

// RawInput is the material handed to a normaliser: the payload plus, for
// file payloads, the stored bytes.
type RawInput struct {
	// Payload is the submitted ingestion payload.
	Payload domain.Payload

	// OwnerID scopes the input to one owner.
	OwnerID string

	// Data is the raw file bytes for file payloads, nil otherwise.
	Data []byte

	// MIMEType is the detected content type for file payloads.
	MIMEType string

	// FileName is the original file name for file payloads.
	FileName string
}

// NormaliseResult contains the output of normalisation: the plain text
// plus any metadata the normaliser recovered. Chunking happens later in
// the pipeline.
type NormaliseResult struct {
	// Text is the extracted plain text.
	Text string

	// Title is the recovered title, if any.
	Title string

	// URL is the final URL after redirects, for URL payloads.
	URL string
}

// Normaliser transforms raw input into plain text.
// Each normaliser handles specific payload kinds or MIME types.
type Normaliser interface {
	// Name returns the normaliser name for logging.
	Name() string

	// Supports reports whether this normaliser can handle the input.
	Supports(input *RawInput) bool

	// Priority returns the selection priority (higher = preferred).
	// Kind-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise transforms the input into plain text.
	// Returns domain.ErrNoReadableContent when nothing can be extracted,
	// and domain.ErrUnsupportedType for formats it cannot parse.
	Normalise(ctx context.Context, input *RawInput) (*NormaliseResult, error)
}

// NormaliserRegistry selects the appropriate normaliser for an input.
// It maintains a priority-ordered list of normalisers.
type NormaliserRegistry interface {
	// Normalise transforms the input using the best matching normaliser.
	// Returns domain.ErrUnsupportedType when no normaliser supports it.
	Normalise(ctx context.Context, input *RawInput) (*NormaliseResult, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)
}
