package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
	"github.com/loreweave/loreweave/internal/core/ports/driving"
	"github.com/loreweave/loreweave/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// rrfK is the rank fusion constant, preventing top ranks from dominating.
const rrfK = 60

// defaultQueryLimit is used when the caller does not set a limit.
const defaultQueryLimit = 20

// candidate holds an intermediate retrieval result before hydration.
// Candidates are keyed by record: content records absorb their chunk
// hits so the two channels fuse at the same granularity.
type candidate struct {
	contentID string // set for content candidates
	entityID  string // set for entity candidates

	chunkID    string // best matching chunk, for content candidates from vector search
	highlights []string

	score    float64
	bestRank int // best zero-based rank across channels
	order    int // arrival order, for stable ties
	inVector bool
	inText   bool
}

func (c *candidate) key() string {
	if c.entityID != "" {
		return "e:" + c.entityID
	}
	return "c:" + c.contentID
}

func (c *candidate) matchKind() domain.MatchKind {
	switch {
	case c.inVector && c.inText:
		return domain.MatchKindBoth
	case c.inVector:
		return domain.MatchKindVector
	default:
		return domain.MatchKindFullText
	}
}

// QueryService provides hybrid retrieval over stored knowledge.
type QueryService struct {
	contentStore     driven.ContentStore
	graphStore       driven.GraphStore
	embeddingService driven.EmbeddingService
	reranker         driven.Reranker
	rerankTopN       int
}

// NewQueryService creates a new query service.
// The embeddingService and reranker parameters are optional (can be nil).
func NewQueryService(
	contentStore driven.ContentStore,
	graphStore driven.GraphStore,
	embeddingService driven.EmbeddingService,
	reranker driven.Reranker,
) *QueryService {
	return &QueryService{
		contentStore:     contentStore,
		graphStore:       graphStore,
		embeddingService: embeddingService,
		reranker:         reranker,
		rerankTopN:       20,
	}
}

// SetRerankTopN sets the size of the candidate window passed to the
// reranker.
func (s *QueryService) SetRerankTopN(n int) {
	if n > 0 {
		s.rerankTopN = n
	}
}

// Query runs vector and keyword search in parallel, fuses the rankings
// with reciprocal rank fusion, optionally expands across the knowledge
// graph and optionally reranks the top window.
func (s *QueryService) Query(
	ctx context.Context, ownerID, query string, opts domain.QueryOptions,
) ([]domain.QueryResult, error) {
	logger.Section("Query Execution")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.QueryResult{}, nil
	}
	if ownerID == "" {
		return nil, fmt.Errorf("query: %w", domain.ErrInvalidInput)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	// Request more results internally so fusion has enough overlap to
	// work with.
	internalLimit := limit * 2
	logger.Debug("Limit: %d, internal limit: %d", limit, internalLimit)

	// Run the two channels in parallel.
	var vectorList, textList []candidate
	var vectorErr, textErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		vectorList, vectorErr = s.vectorSearch(ctx, ownerID, query, opts.Category, internalLimit)
	}()

	go func() {
		defer wg.Done()
		textList, textErr = s.textSearch(ctx, ownerID, query, opts.Category, internalLimit)
	}()

	wg.Wait()

	// Degrade gracefully if one channel fails.
	if vectorErr != nil && textErr != nil {
		logger.Warn("Both retrieval channels failed")
		return nil, fmt.Errorf("query: vector=%w, text=%w", vectorErr, textErr)
	}
	if vectorErr != nil {
		logger.Warn("Vector search failed, using keyword results only: %v", vectorErr)
		vectorList = nil
	}
	if textErr != nil {
		logger.Warn("Keyword search failed, using vector results only: %v", textErr)
		textList = nil
	}

	logger.Debug("Fusing %d vector + %d keyword candidates", len(vectorList), len(textList))
	fused := reciprocalRankFusion(vectorList, textList)

	results, err := s.hydrate(ctx, ownerID, fused, opts.Category)
	if err != nil {
		return nil, fmt.Errorf("hydrate results: %w", err)
	}

	if len(results) > limit {
		results = results[:limit]
	}

	if opts.Rerank && s.reranker != nil {
		results = s.rerank(ctx, query, results)
	}

	if opts.ExpandGraph {
		results = s.expandGraph(ctx, ownerID, results, limit)
	}

	logger.Info("Final results: %d", len(results))
	return results, nil
}

// ListCategories returns the owner's distinct content categories.
func (s *QueryService) ListCategories(ctx context.Context, ownerID string) ([]string, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("list categories: %w", domain.ErrInvalidInput)
	}
	return s.contentStore.ListCategories(ctx, ownerID)
}

// vectorSearch embeds the query and searches chunk and entity vectors.
// Chunk hits are folded onto their parent content so the channel yields
// one ranked list of content and entity candidates. The category scopes
// the chunk scan; entities carry no category and are always searched.
func (s *QueryService) vectorSearch(
	ctx context.Context, ownerID, query, category string, limit int,
) ([]candidate, error) {
	if s.embeddingService == nil {
		logger.Debug("Vector search unavailable: embedding service is nil")
		return nil, domain.ErrEmbeddingUnavailable
	}

	logger.Debug("Generating query embedding...")
	embedding, err := s.embeddingService.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("generate query embedding: %w", err)
	}
	logger.Debug("Query embedding: %d dimensions", len(embedding))

	var chunkHits, entityHits []driven.VectorHit
	chunkHits, err = s.contentStore.SearchChunkVectors(ctx, ownerID, embedding, category, limit)
	if err != nil {
		return nil, fmt.Errorf("chunk vector search: %w", err)
	}
	if s.graphStore != nil {
		entityHits, err = s.graphStore.SearchEntityVectors(ctx, ownerID, embedding, limit)
		if err != nil {
			return nil, fmt.Errorf("entity vector search: %w", err)
		}
	}

	logger.Debug("Vector search: %d chunk hits, %d entity hits", len(chunkHits), len(entityHits))

	// Merge the two hit sets into one similarity-ordered list, keeping
	// only the best chunk per content record.
	type scored struct {
		cand candidate
		sim  float64
	}
	bestByContent := make(map[string]int)
	merged := make([]scored, 0, len(chunkHits)+len(entityHits))

	for _, hit := range chunkHits {
		if idx, ok := bestByContent[hit.SourceID]; ok {
			if hit.Similarity > merged[idx].sim {
				merged[idx].sim = hit.Similarity
				merged[idx].cand.chunkID = hit.ID
			}
			continue
		}
		bestByContent[hit.SourceID] = len(merged)
		merged = append(merged, scored{
			cand: candidate{contentID: hit.SourceID, chunkID: hit.ID, inVector: true},
			sim:  hit.Similarity,
		})
	}
	for _, hit := range entityHits {
		merged = append(merged, scored{
			cand: candidate{entityID: hit.ID, inVector: true},
			sim:  hit.Similarity,
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].sim > merged[j].sim
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	list := make([]candidate, len(merged))
	for i := range merged {
		list[i] = merged[i].cand
	}
	return list, nil
}

// textSearch performs BM25 keyword search over content.
func (s *QueryService) textSearch(
	ctx context.Context, ownerID, query, category string, limit int,
) ([]candidate, error) {
	hits, err := s.contentStore.SearchText(ctx, ownerID, query, category, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	logger.Debug("Keyword search: %d hits", len(hits))

	list := make([]candidate, len(hits))
	for i, hit := range hits {
		list[i] = candidate{
			contentID:  hit.ContentID,
			highlights: hit.Highlights,
			inText:     true,
		}
	}
	return list, nil
}

// reciprocalRankFusion merges the two ranked lists. Each appearance
// contributes 1/(k+rank+1) to the fused score. Ties are broken by the
// best single-channel rank, then by arrival order, so fusion of the
// same inputs is fully deterministic.
func reciprocalRankFusion(vectorList, textList []candidate) []candidate {
	byKey := make(map[string]*candidate)
	order := 0

	absorb := func(rank int, c candidate) {
		rrf := 1.0 / float64(rrfK+rank+1)
		existing, ok := byKey[c.key()]
		if !ok {
			c.score = rrf
			c.bestRank = rank
			c.order = order
			order++
			byKey[c.key()] = &c
			return
		}
		existing.score += rrf
		if rank < existing.bestRank {
			existing.bestRank = rank
		}
		existing.inVector = existing.inVector || c.inVector
		existing.inText = existing.inText || c.inText
		if existing.chunkID == "" {
			existing.chunkID = c.chunkID
		}
		if len(existing.highlights) == 0 {
			existing.highlights = c.highlights
		}
	}

	for rank, c := range vectorList {
		absorb(rank, c)
	}
	for rank, c := range textList {
		absorb(rank, c)
	}

	fused := make([]candidate, 0, len(byKey))
	for _, c := range byKey {
		fused = append(fused, *c)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		if fused[i].bestRank != fused[j].bestRank {
			return fused[i].bestRank < fused[j].bestRank
		}
		return fused[i].order < fused[j].order
	})

	return fused
}

// hydrate converts fused candidates into full results, dropping records
// deleted since the index was consulted and applying the category
// filter. Entity results carry no category and pass the filter.
func (s *QueryService) hydrate(
	ctx context.Context, ownerID string, fused []candidate, category string,
) ([]domain.QueryResult, error) {
	results := make([]domain.QueryResult, 0, len(fused))

	for _, c := range fused {
		if c.entityID != "" {
			entity, err := s.graphStore.GetEntity(ctx, ownerID, c.entityID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				return nil, fmt.Errorf("get entity %s: %w", c.entityID, err)
			}
			results = append(results, domain.QueryResult{
				ID:       entity.ID,
				Kind:     domain.ResultKindEntity,
				Match:    c.matchKind(),
				Title:    entity.Name,
				Text:     entity.Description,
				SourceID: entity.SourceID,
				Score:    c.score,
			})
			continue
		}

		content, err := s.contentStore.GetContent(ctx, ownerID, c.contentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get content %s: %w", c.contentID, err)
		}
		if category != "" && content.Category != category {
			continue
		}

		result := domain.QueryResult{
			ID:         content.ID,
			Kind:       domain.ResultKindContent,
			Match:      c.matchKind(),
			Title:      content.Title,
			Text:       excerpt(content.Text),
			Category:   content.Category,
			SourceID:   content.ID,
			Score:      c.score,
			Highlights: c.highlights,
		}

		// Prefer the matched chunk's text when vector search found one.
		if c.chunkID != "" {
			chunk, err := s.contentStore.GetChunk(ctx, ownerID, c.chunkID)
			if err == nil {
				result.ID = chunk.ID
				result.Kind = domain.ResultKindChunk
				result.Text = chunk.Text
			} else if !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("get chunk %s: %w", c.chunkID, err)
			}
		}

		results = append(results, result)
	}

	return results, nil
}

// rerank reorders the top window of results using the reranker. Results
// past the window keep their fusion order. Reranker failures leave the
// fusion order untouched.
func (s *QueryService) rerank(
	ctx context.Context, query string, results []domain.QueryResult,
) []domain.QueryResult {
	window := s.rerankTopN
	if window > len(results) {
		window = len(results)
	}
	if window < 2 {
		return results
	}

	docs := make([]string, window)
	for i := 0; i < window; i++ {
		docs[i] = results[i].Title + "\n" + results[i].Text
	}

	logger.Debug("Reranking top %d results", window)
	hits, err := s.reranker.Rerank(ctx, query, docs)
	if err != nil {
		logger.Warn("Rerank failed, keeping fusion order: %v", err)
		return results
	}

	reordered := make([]domain.QueryResult, 0, len(results))
	seen := make(map[int]bool, window)
	for _, hit := range hits {
		if hit.Index < 0 || hit.Index >= window || seen[hit.Index] {
			continue
		}
		seen[hit.Index] = true
		reordered = append(reordered, results[hit.Index])
	}
	// Keep anything the reranker dropped, then the tail past the window.
	for i := 0; i < window; i++ {
		if !seen[i] {
			reordered = append(reordered, results[i])
		}
	}
	reordered = append(reordered, results[window:]...)

	return reordered
}

// expandGraph appends one-hop neighbours of directly matched entities.
// Expanded results are marked graph_expanded, carry no score and are
// never re-ranked above direct matches.
func (s *QueryService) expandGraph(
	ctx context.Context, ownerID string, results []domain.QueryResult, limit int,
) []domain.QueryResult {
	if s.graphStore == nil {
		return results
	}

	present := make(map[string]bool, len(results))
	var matched []domain.QueryResult
	for _, r := range results {
		present[string(r.Kind)+":"+r.ID] = true
		if r.Kind == domain.ResultKindEntity {
			matched = append(matched, r)
		}
	}

	for _, r := range matched {
		neighbours, err := s.graphStore.GetNeighbours(ctx, ownerID, r.ID)
		if err != nil {
			logger.Warn("Graph expansion failed for entity %s: %v", r.ID, err)
			continue
		}
		for _, n := range neighbours {
			key := string(domain.ResultKindEntity) + ":" + n.Entity.ID
			if present[key] {
				continue
			}
			present[key] = true
			results = append(results, domain.QueryResult{
				ID:       n.Entity.ID,
				Kind:     domain.ResultKindEntity,
				Match:    domain.MatchKindGraphExpanded,
				Title:    n.Entity.Name,
				Text:     n.Entity.Description,
				SourceID: n.Entity.SourceID,
				Via:      r.Title,
			})
			if len(results) >= limit*2 {
				return results
			}
		}
	}

	return results
}

// excerpt returns the leading slice of text for display.
func excerpt(text string) string {
	const max = 280
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && text[cut]&0xC0 == 0x80 {
		cut--
	}
	return text[:cut] + "…"
}
