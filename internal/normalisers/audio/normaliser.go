// Package audio provides a Normaliser implementation for audio files,
// backed by the LLM service's transcription capability.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles audio file payloads.
type Normaliser struct {
	llm driven.LLMService
}

// New creates a new audio normaliser. The LLM service may be nil when
// no provider is configured.
func New(llm driven.LLMService) *Normaliser {
	return &Normaliser{llm: llm}
}

// Name returns the normaliser name for logging.
func (n *Normaliser) Name() string {
	return "audio"
}

// Supports reports whether this normaliser can handle the input.
func (n *Normaliser) Supports(input *driven.RawInput) bool {
	return input.Payload.Kind == domain.PayloadFile &&
		strings.HasPrefix(input.MIMEType, "audio/")
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Kind-specific normaliser
}

// Normalise transcribes the audio. A provider without a transcription
// API (e.g. Ollama) surfaces as a configuration failure so the task is
// not retried pointlessly.
func (n *Normaliser) Normalise(ctx context.Context, input *driven.RawInput) (*driven.NormaliseResult, error) {
	if input == nil || len(input.Data) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if n.llm == nil {
		return nil, domain.Configuration(fmt.Errorf("audio ingestion needs a transcription model: %w", domain.ErrLLMUnavailable))
	}

	transcript, err := n.llm.Transcribe(ctx, input.Data, input.FileName)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedType) {
			return nil, domain.Configuration(fmt.Errorf("transcribe audio: %w", err))
		}
		return nil, domain.Transient(fmt.Errorf("transcribe audio: %w", err))
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, domain.Validation(fmt.Errorf("audio %s: %w", input.FileName, domain.ErrNoReadableContent))
	}

	return &driven.NormaliseResult{
		Text:  transcript,
		Title: input.FileName,
	}, nil
}
