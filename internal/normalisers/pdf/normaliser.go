// Package pdf provides a Normaliser implementation for PDF files. It
// extracts the embedded text layer; scanned PDFs without one are
// rejected rather than passed through OCR.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	ledongthuc "github.com/ledongthuc/pdf"

	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
	"github.com/loreweave/loreweave/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles PDF file payloads.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Name returns the normaliser name for logging.
func (n *Normaliser) Name() string {
	return "pdf"
}

// Supports reports whether this normaliser can handle the input.
func (n *Normaliser) Supports(input *driven.RawInput) bool {
	return input.Payload.Kind == domain.PayloadFile && input.MIMEType == "application/pdf"
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Kind-specific normaliser
}

// Normalise extracts the embedded text layer page by page. Unreadable
// pages are skipped; a document with no readable text at all is
// rejected as an unsupported format.
func (n *Normaliser) Normalise(_ context.Context, input *driven.RawInput) (*driven.NormaliseResult, error) {
	if input == nil || len(input.Data) == 0 {
		return nil, domain.ErrInvalidInput
	}

	readerAt := bytes.NewReader(input.Data)
	reader, err := ledongthuc.NewReader(readerAt, int64(readerAt.Len()))
	if err != nil {
		return nil, domain.Validation(fmt.Errorf("parse pdf: %w", err))
	}

	var buf bytes.Buffer
	fonts := make(map[string]*ledongthuc.Font)
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		// Cache fonts so we don't continually parse charmaps.
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Debug("Skipping unreadable pdf page %d: %v", i, err)
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(text)
	}

	content := buf.String()
	if content == "" {
		return nil, domain.Validation(fmt.Errorf("pdf has no embedded text layer: %w", domain.ErrUnsupportedType))
	}

	return &driven.NormaliseResult{
		Text:  content,
		Title: titleFromFileName(input.FileName),
	}, nil
}

// titleFromFileName derives a human-readable title from a file name.
func titleFromFileName(fileName string) string {
	if fileName == "" {
		return ""
	}
	base := strings.TrimSuffix(fileName, ".pdf")
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	return strings.TrimSpace(base)
}
