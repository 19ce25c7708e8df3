// Package image provides a Normaliser implementation for image files.
// A vision-capable model turns the image into searchable text.
package image

import (
	"context"
	"fmt"
	"strings"

	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// visionInstructions is the fixed prompt for image normalisation. It
// covers the three cases we see in practice: screenshots of text,
// photographs, and mixed content such as annotated diagrams.
const visionInstructions = "If the image is primarily text, transcribe it verbatim. " +
	"If it is primarily visual, describe it in detail. " +
	"If it mixes both, describe the visual content first, then transcribe any visible text."

// Normaliser handles image file payloads.
type Normaliser struct {
	llm driven.LLMService
}

// New creates a new image normaliser. The LLM service may be nil when
// no provider is configured; normalisation then fails with a
// configuration error rather than at startup.
func New(llm driven.LLMService) *Normaliser {
	return &Normaliser{llm: llm}
}

// Name returns the normaliser name for logging.
func (n *Normaliser) Name() string {
	return "image"
}

// Supports reports whether this normaliser can handle the input.
func (n *Normaliser) Supports(input *driven.RawInput) bool {
	return input.Payload.Kind == domain.PayloadFile &&
		strings.HasPrefix(input.MIMEType, "image/")
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Kind-specific normaliser
}

// Normalise asks the vision model to transcribe or describe the image.
func (n *Normaliser) Normalise(ctx context.Context, input *driven.RawInput) (*driven.NormaliseResult, error) {
	if input == nil || len(input.Data) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if n.llm == nil {
		return nil, domain.Configuration(fmt.Errorf("image ingestion needs a vision model: %w", domain.ErrLLMUnavailable))
	}

	description, err := n.llm.DescribeImage(ctx, input.Data, input.MIMEType, visionInstructions)
	if err != nil {
		return nil, domain.Transient(fmt.Errorf("describe image: %w", err))
	}

	description = strings.TrimSpace(description)
	if description == "" {
		return nil, domain.Validation(fmt.Errorf("image %s: %w", input.FileName, domain.ErrNoReadableContent))
	}

	return &driven.NormaliseResult{
		Text:  description,
		Title: input.FileName,
	}, nil
}
