package text

import (
	"context"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles inline text payloads and plain-text file payloads.
type Normaliser struct{}

// New creates a new text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Name returns the normaliser name for logging.
func (n *Normaliser) Name() string {
	return "text"
}

// Supports reports whether this normaliser can handle the input.
func (n *Normaliser) Supports(input *driven.RawInput) bool {
	switch input.Payload.Kind {
	case domain.PayloadText:
		return true
	case domain.PayloadFile:
		return isTextMIME(input.MIMEType)
	default:
		return false
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise passes the text through unchanged apart from whitespace
// trimming. For file payloads the stored bytes must be valid UTF-8.
func (n *Normaliser) Normalise(_ context.Context, input *driven.RawInput) (*driven.NormaliseResult, error) {
	if input == nil {
		return nil, domain.ErrInvalidInput
	}

	var content, title string
	switch input.Payload.Kind {
	case domain.PayloadText:
		content = input.Payload.Text
	case domain.PayloadFile:
		if !utf8.Valid(input.Data) {
			return nil, domain.Validation(domain.ErrUnsupportedType)
		}
		content = string(input.Data)
		title = titleFromFileName(input.FileName)
	default:
		return nil, domain.Validation(domain.ErrUnsupportedType)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.Validation(domain.ErrNoReadableContent)
	}

	return &driven.NormaliseResult{
		Text:  content,
		Title: title,
	}, nil
}

// isTextMIME reports whether the MIME type carries plain readable text.
func isTextMIME(mimeType string) bool {
	// Strip parameters such as "; charset=utf-8".
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	mimeType = strings.TrimSpace(mimeType)

	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml", "application/x-yaml":
		return true
	}
	return false
}

// titleFromFileName derives a human-readable title from a file name.
func titleFromFileName(fileName string) string {
	if fileName == "" {
		return ""
	}
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	return strings.TrimSpace(base)
}
