package services

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
)

// --- In-memory fakes shared across service tests ---

// fakeTaskStore implements driven.TaskStore with the same claim
// semantics as the SQLite store: a single mutex guards the
// check-and-flip, so no two claimers can win the same task.
type fakeTaskStore struct {
	mu    sync.Mutex
	tasks map[string]*domain.IngestionTask
	seq   int
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[string]*domain.IngestionTask)}
}

func (s *fakeTaskStore) CreateTask(_ context.Context, task *domain.IngestionTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *task
	s.seq++
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	// Preserve submission order even when timestamps collide.
	cp.CreatedAt = cp.CreatedAt.Add(time.Duration(s.seq) * time.Nanosecond)
	s.tasks[task.ID] = &cp
	return nil
}

func (s *fakeTaskStore) GetTask(_ context.Context, ownerID, id string) (*domain.IngestionTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *fakeTaskStore) ClaimNext(_ context.Context, now time.Time) (*domain.IngestionTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldest *domain.IngestionTask
	for _, t := range s.tasks {
		if t.Status != domain.TaskStatusPending || t.RetryAt.After(now) {
			continue
		}
		if oldest == nil || t.CreatedAt.Before(oldest.CreatedAt) {
			oldest = t
		}
	}
	if oldest == nil {
		return nil, domain.ErrNotFound
	}

	oldest.Status = domain.TaskStatusInProgress
	oldest.Attempts++
	oldest.UpdatedAt = now
	cp := *oldest
	return &cp, nil
}

// settleGuard mirrors the SQLite store: only in_progress tasks settle
// or requeue, and a concurrent cancel wins silently.
func (s *fakeTaskStore) settleGuard(id string) (*domain.IngestionTask, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	switch t.Status {
	case domain.TaskStatusInProgress:
		return t, nil
	case domain.TaskStatusCancelled:
		return nil, nil
	default:
		return nil, domain.ErrTaskNotClaimable
	}
}

func (s *fakeTaskStore) MarkCompleted(_ context.Context, id, contentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.settleGuard(id)
	if err != nil || t == nil {
		return err
	}
	t.Status = domain.TaskStatusCompleted
	t.ContentID = contentID
	return nil
}

func (s *fakeTaskStore) MarkFailed(_ context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.settleGuard(id)
	if err != nil || t == nil {
		return err
	}
	t.Status = domain.TaskStatusError
	t.Error = message
	return nil
}

func (s *fakeTaskStore) Requeue(_ context.Context, id, message, contentID string, retryAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.settleGuard(id)
	if err != nil || t == nil {
		return err
	}
	t.Status = domain.TaskStatusPending
	t.Error = message
	t.ContentID = contentID
	t.RetryAt = retryAt
	return nil
}

func (s *fakeTaskStore) CancelTask(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	if t.Status.IsTerminal() {
		return domain.ErrTaskNotClaimable
	}
	t.Status = domain.TaskStatusCancelled
	return nil
}

func (s *fakeTaskStore) ListActive(_ context.Context, ownerID string) ([]domain.IngestionTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.IngestionTask
	for _, t := range s.tasks {
		if t.OwnerID == ownerID && !t.Status.IsTerminal() {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeTaskStore) ListByStatus(_ context.Context, ownerID string, status domain.TaskStatus) ([]domain.IngestionTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.IngestionTask
	for _, t := range s.tasks {
		if t.OwnerID == ownerID && t.Status == status {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeTaskStore) ResetOrphaned(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.Status == domain.TaskStatusInProgress {
			t.Status = domain.TaskStatusPending
			n++
		}
	}
	return n, nil
}

// fakeContentStore implements driven.ContentStore over maps, with naive
// term-count keyword scoring and brute-force cosine vector scoring.
type fakeContentStore struct {
	mu       sync.Mutex
	contents map[string]*domain.Content
	chunks   map[string]*domain.Chunk
	files    map[string]*domain.FileRef
}

func newFakeContentStore() *fakeContentStore {
	return &fakeContentStore{
		contents: make(map[string]*domain.Content),
		chunks:   make(map[string]*domain.Chunk),
		files:    make(map[string]*domain.FileRef),
	}
}

func (s *fakeContentStore) SaveContent(_ context.Context, content *domain.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *content
	s.contents[content.ID] = &cp
	return nil
}

func (s *fakeContentStore) GetContent(_ context.Context, ownerID, id string) (*domain.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contents[id]
	if !ok || c.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *fakeContentStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range chunks {
		cp := chunks[i]
		s.chunks[cp.ID] = &cp
	}
	return nil
}

func (s *fakeContentStore) GetChunks(_ context.Context, ownerID, sourceID string) ([]domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Chunk
	for _, c := range s.chunks {
		if c.OwnerID == ownerID && c.SourceID == sourceID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *fakeContentStore) GetChunk(_ context.Context, ownerID, id string) (*domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chunks[id]
	if !ok || c.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *fakeContentStore) DeleteContent(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contents[id]
	if !ok || c.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	delete(s.contents, id)
	for cid, ch := range s.chunks {
		if ch.SourceID == id {
			delete(s.chunks, cid)
		}
	}
	return nil
}

func (s *fakeContentStore) SearchText(_ context.Context, ownerID, query, category string, limit int) ([]driven.TextHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	terms := strings.Fields(strings.ToLower(query))
	var hits []driven.TextHit
	for _, c := range s.contents {
		if c.OwnerID != ownerID {
			continue
		}
		if category != "" && c.Category != category {
			continue
		}
		haystack := strings.ToLower(c.Title + " " + c.Text)
		score := 0.0
		for _, term := range terms {
			score += float64(strings.Count(haystack, term))
		}
		if score > 0 {
			hits = append(hits, driven.TextHit{ContentID: c.ID, Score: score})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ContentID < hits[j].ContentID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *fakeContentStore) SearchChunkVectors(_ context.Context, ownerID string, query []float32, category string, limit int) ([]driven.VectorHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var hits []driven.VectorHit
	for _, c := range s.chunks {
		if c.OwnerID != ownerID || len(c.Embedding) == 0 {
			continue
		}
		if category != "" {
			parent, ok := s.contents[c.SourceID]
			if !ok || parent.Category != category {
				continue
			}
		}
		if len(c.Embedding) != len(query) {
			return nil, domain.ErrDimensionMismatch
		}
		hits = append(hits, driven.VectorHit{
			ID:         c.ID,
			SourceID:   c.SourceID,
			Similarity: cosine(query, c.Embedding),
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *fakeContentStore) ListCategories(_ context.Context, ownerID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, c := range s.contents {
		if c.OwnerID == ownerID && c.Category != "" && !seen[c.Category] {
			seen[c.Category] = true
			out = append(out, c.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *fakeContentStore) SaveFileRef(_ context.Context, ref *domain.FileRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ref
	s.files[ref.ID] = &cp
	return nil
}

func (s *fakeContentStore) GetFileRef(_ context.Context, ownerID, id string) (*domain.FileRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok || f.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *fakeContentStore) FindFileRefBySHA256(_ context.Context, ownerID, hash string) (*domain.FileRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if f.OwnerID == ownerID && f.SHA256 == hash {
			cp := *f
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// fakeGraphStore implements driven.GraphStore with merge-on-upsert
// semantics matching the SQLite store.
type fakeGraphStore struct {
	mu       sync.Mutex
	entities map[string]*domain.Entity // keyed by owner|normname|type
	byID     map[string]*domain.Entity
	edges    []*domain.Relationship
}

func newFakeGraphStore() *fakeGraphStore {
	return &fakeGraphStore{
		entities: make(map[string]*domain.Entity),
		byID:     make(map[string]*domain.Entity),
	}
}

func entityKey(ownerID, name string, t domain.EntityType) string {
	return ownerID + "|" + domain.NormalisedName(name) + "|" + string(t)
}

func (s *fakeGraphStore) UpsertEntity(_ context.Context, entity *domain.Entity) (*domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entityKey(entity.OwnerID, entity.Name, entity.Type)
	if existing, ok := s.entities[key]; ok {
		if len(entity.Description) > len(existing.Description) {
			existing.Description = entity.Description
		}
		if len(entity.Embedding) > 0 {
			existing.Embedding = entity.Embedding
		}
		existing.UpdatedAt = time.Now().UTC()
		cp := *existing
		return &cp, nil
	}

	cp := *entity
	s.entities[key] = &cp
	s.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *fakeGraphStore) GetEntity(_ context.Context, ownerID, id string) (*domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok || e.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *fakeGraphStore) FindEntityByName(_ context.Context, ownerID, normalisedName string, t domain.EntityType) (*domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[ownerID+"|"+normalisedName+"|"+string(t)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *fakeGraphStore) SaveRelationship(_ context.Context, rel *domain.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.edges {
		if e.OwnerID == rel.OwnerID && e.FromID == rel.FromID && e.ToID == rel.ToID && e.Type == rel.Type {
			return nil
		}
	}
	cp := *rel
	s.edges = append(s.edges, &cp)
	return nil
}

func (s *fakeGraphStore) GetNeighbours(_ context.Context, ownerID, entityID string) ([]driven.Neighbour, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []driven.Neighbour
	for _, e := range s.edges {
		if e.OwnerID != ownerID {
			continue
		}
		var otherID string
		switch entityID {
		case e.FromID:
			otherID = e.ToID
		case e.ToID:
			otherID = e.FromID
		default:
			continue
		}
		if other, ok := s.byID[otherID]; ok {
			out = append(out, driven.Neighbour{Entity: *other, EdgeType: e.Type, ViaID: entityID})
		}
	}
	return out, nil
}

func (s *fakeGraphStore) SearchEntityVectors(_ context.Context, ownerID string, query []float32, limit int) ([]driven.VectorHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var hits []driven.VectorHit
	for _, e := range s.byID {
		if e.OwnerID != ownerID || len(e.Embedding) == 0 {
			continue
		}
		if len(e.Embedding) != len(query) {
			return nil, domain.ErrDimensionMismatch
		}
		hits = append(hits, driven.VectorHit{ID: e.ID, SourceID: e.SourceID, Similarity: cosine(query, e.Embedding)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *fakeGraphStore) DeleteRelationshipsBySource(_ context.Context, ownerID, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.OwnerID == ownerID && e.SourceID == sourceID {
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept
	return nil
}

func (s *fakeGraphStore) ListEntities(_ context.Context, ownerID string, limit int) ([]domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Entity
	for _, e := range s.byID {
		if e.OwnerID == ownerID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeEmbedder is a deterministic word-bucket embedder: each token
// bumps one dimension, so texts sharing vocabulary land near each
// other. Good enough to exercise real cosine ranking without a model.
type fakeEmbedder struct {
	dims int
	err  error
}

func newFakeEmbedder() *fakeEmbedder { return &fakeEmbedder{dims: 16} }

func (m *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.vector(text), nil
}

func (m *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *fakeEmbedder) vector(text string) []float32 {
	v := make([]float32, m.dims)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		sum := 0
		for _, b := range []byte(tok) {
			sum += int(b)
		}
		v[sum%m.dims]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range v {
			v[i] = float32(float64(v[i]) / norm)
		}
	}
	return v
}

func (m *fakeEmbedder) Dimensions() int            { return m.dims }
func (m *fakeEmbedder) ModelName() string          { return "fake-embed" }
func (m *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (m *fakeEmbedder) Close() error               { return nil }

// fakeLLM implements driven.LLMService returning canned structured
// responses in sequence.
type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
}

func (m *fakeLLM) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "ok", nil
}

func (m *fakeLLM) GenerateStructured(_ context.Context, _ string, _ driven.JSONSchema, _ driven.GenerateOptions) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	idx := m.calls
	m.calls++
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return []byte(m.responses[idx]), nil
}

func (m *fakeLLM) DescribeImage(_ context.Context, _ []byte, _, _ string) (string, error) {
	return "an image", m.err
}

func (m *fakeLLM) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	return "a transcript", m.err
}

func (m *fakeLLM) ModelName() string            { return "fake-llm" }
func (m *fakeLLM) Ping(_ context.Context) error { return nil }
func (m *fakeLLM) Close() error                 { return nil }

// fakeReranker reverses its window, making reordering observable.
type fakeReranker struct {
	err error
}

func (m *fakeReranker) Rerank(_ context.Context, _ string, docs []string) ([]driven.RerankHit, error) {
	if m.err != nil {
		return nil, m.err
	}
	hits := make([]driven.RerankHit, len(docs))
	for i := range docs {
		hits[i] = driven.RerankHit{Index: len(docs) - 1 - i, Score: float64(i)}
	}
	return hits, nil
}

func (m *fakeReranker) ModelName() string { return "fake-rerank" }
func (m *fakeReranker) Close() error      { return nil }

// fakeNormaliser passes text payloads straight through.
type fakeNormaliser struct {
	err error
}

func (m *fakeNormaliser) Normalise(_ context.Context, input *driven.RawInput) (*driven.NormaliseResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &driven.NormaliseResult{Text: input.Payload.Text}, nil
}

func (m *fakeNormaliser) Register(_ driven.Normaliser) {}

// cosine computes cosine similarity for test scoring.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
