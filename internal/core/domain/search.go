package domain

// MatchKind identifies which retrieval channel produced a result.
type MatchKind string

// Available match kinds.
const (
	// MatchKindVector means the result came from vector similarity only.
	MatchKindVector MatchKind = "vector"

	// MatchKindFullText means the result came from keyword search only.
	MatchKindFullText MatchKind = "full_text"

	// MatchKindBoth means the result appeared in both channels.
	MatchKindBoth MatchKind = "both"

	// MatchKindGraphExpanded means the result was pulled in via a
	// relationship from a directly matched entity. Graph-expanded
	// results are appended after ranked results and are not re-ranked.
	MatchKindGraphExpanded MatchKind = "graph_expanded"
)

// String returns the string representation.
func (k MatchKind) String() string {
	return string(k)
}

// ResultKind identifies what record a query result refers to.
type ResultKind string

// Available result kinds.
const (
	// ResultKindChunk is a content chunk hit.
	ResultKindChunk ResultKind = "chunk"

	// ResultKindContent is a whole content record hit.
	ResultKindContent ResultKind = "content"

	// ResultKindEntity is a knowledge entity hit.
	ResultKindEntity ResultKind = "entity"
)

// QueryOptions configures a retrieval query.
type QueryOptions struct {
	// Limit is the maximum number of ranked results. Zero means the
	// default limit.
	Limit int

	// Category restricts results to a single content category.
	Category string

	// ExpandGraph enables pulling in one-hop relationship neighbours of
	// matched entities.
	ExpandGraph bool

	// Rerank enables the optional reranking stage over the fused
	// candidate window.
	Rerank bool
}

// QueryResult is a single retrieval hit.
type QueryResult struct {
	// ID identifies the underlying record (chunk, content or entity).
	ID string

	// Kind says what the record is.
	Kind ResultKind

	// Match says which channel produced the hit.
	Match MatchKind

	// Title is the display title: the content title, or the entity name.
	Title string

	// Text is the matched text: chunk text, content excerpt, or entity
	// description.
	Text string

	// Category is the content category, empty for entities.
	Category string

	// SourceID is the originating content record, where applicable.
	SourceID string

	// Score is the fused relevance score. Graph-expanded results carry a
	// zero score.
	Score float64

	// Highlights contains keyword snippets with matched terms, populated
	// for full-text hits.
	Highlights []string

	// Via names the entity that linked a graph-expanded result in.
	Via string
}

// RankedHit is an intermediate (id, rank) pair from one retrieval
// channel, feeding rank fusion. Rank is zero-based.
type RankedHit struct {
	ID   string
	Rank int
}
