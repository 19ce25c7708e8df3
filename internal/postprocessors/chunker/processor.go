// Package chunker provides a boundary-aware text chunking processor.
package chunker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/loreweave/loreweave/internal/core/domain"
)

// DefaultChunkSize is the default number of bytes per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping bytes.
const DefaultChunkOverlap = 200

// boundaryWindow is the fraction of the chunk size scanned backwards
// from the target end when looking for a natural break.
const boundaryWindow = 0.25

// Processor splits content text into overlapping chunks, preferring
// paragraph and sentence boundaries over hard cuts. Splitting is
// deterministic: the same text and configuration always produce the
// same chunk boundaries.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in bytes.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in bytes.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Chunk splits the content's text into ordered chunks. Each chunk spans
// its share of the source plus the tail of the previous chunk, and
// records that tail's length as OverlapLen. Stripping OverlapLen bytes
// from every chunk and concatenating reconstructs the source exactly.
func (p *Processor) Chunk(ctx context.Context, content *domain.Content) ([]domain.Chunk, error) {
	text := content.Text
	if text == "" {
		// Empty content produces no chunks
		return nil, nil
	}

	textLen := len(text)
	estimatedChunks := (textLen / (p.chunkSize - p.overlap)) + 1
	chunks := make([]domain.Chunk, 0, estimatedChunks)

	position := 0
	pos := 0 // start of unconsumed source text

	for pos < textLen {
		overlapLen := p.overlap
		if overlapLen > pos {
			overlapLen = pos
		}
		chunkStart := pos - overlapLen

		end := chunkStart + p.chunkSize
		if end >= textLen {
			end = textLen
		} else {
			end = p.cutPoint(text, pos, end)
		}

		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			SourceID:   content.ID,
			OwnerID:    content.OwnerID,
			Position:   position,
			Text:       text[chunkStart:end],
			OverlapLen: overlapLen,
		})
		position++
		pos = end
	}

	return chunks, nil
}

// cutPoint picks where to end a chunk whose hard limit is end. It scans
// a window backwards from end for a paragraph break, then a sentence
// break, then falls back to the nearest rune boundary at or before end.
// The result always lands past minEnd so every chunk consumes source.
func (p *Processor) cutPoint(text string, minEnd, end int) int {
	window := int(float64(p.chunkSize) * boundaryWindow)
	floor := end - window
	if floor <= minEnd {
		floor = minEnd + 1
	}

	if cut := lastBoundary(text, floor, end, "\n\n"); cut > 0 {
		return cut
	}
	for _, sep := range []string{". ", "! ", "? ", "\n"} {
		if cut := lastBoundary(text, floor, end, sep); cut > 0 {
			return cut
		}
	}

	// Hard cut, nudged back off a partial UTF-8 sequence.
	for end > minEnd+1 && !utf8.RuneStart(text[end]) {
		end--
	}
	return end
}

// lastBoundary returns the position just after the last occurrence of
// sep within text[floor:end], or 0 when none fits.
func lastBoundary(text string, floor, end int, sep string) int {
	idx := strings.LastIndex(text[floor:end], sep)
	if idx < 0 {
		return 0
	}
	return floor + idx + len(sep)
}
