package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loreweave/loreweave/internal/core/domain"
)

const validExtraction = `{
	"entities": [
		{"name": "Rust", "entity_type": "technology", "description": "A systems programming language."},
		{"name": "Mozilla", "entity_type": "organization", "description": "The organisation where Rust began."}
	],
	"relationships": [
		{"source": "Rust", "target": "Mozilla", "type": "originated at"}
	]
}`

func testContent() *domain.Content {
	return &domain.Content{
		ID:      "content-1",
		OwnerID: "owner-1",
		Text:    "Rust is a systems language that began at Mozilla.",
	}
}

func TestExtractionService_Extract(t *testing.T) {
	graph := newFakeGraphStore()
	svc := NewExtractionService(&fakeLLM{responses: []string{validExtraction}}, newFakeEmbedder(), graph)

	entities, err := svc.Extract(context.Background(), testContent())
	require.NoError(t, err)
	require.Len(t, entities, 2)

	assert.Equal(t, "Rust", entities[0].Name)
	assert.Equal(t, domain.EntityTypeTechnology, entities[0].Type)
	assert.NotEmpty(t, entities[0].Embedding)

	neighbours, err := graph.GetNeighbours(context.Background(), "owner-1", entities[0].ID)
	require.NoError(t, err)
	require.Len(t, neighbours, 1)
	assert.Equal(t, "Mozilla", neighbours[0].Entity.Name)
}

func TestExtractionService_UnknownEntityTypeBecomesConcept(t *testing.T) {
	graph := newFakeGraphStore()
	llm := &fakeLLM{responses: []string{`{
		"entities": [{"name": "Something", "entity_type": "gadget", "description": "A thing."}],
		"relationships": []
	}`}}
	svc := NewExtractionService(llm, nil, graph)

	entities, err := svc.Extract(context.Background(), testContent())
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, domain.EntityTypeConcept, entities[0].Type)
}

func TestExtractionService_RetriesMalformedResponseOnce(t *testing.T) {
	graph := newFakeGraphStore()
	llm := &fakeLLM{responses: []string{
		`{"entities": [{"name": "X", "bogus": true}], "relationships": []}`,
		validExtraction,
	}}
	svc := NewExtractionService(llm, nil, graph)

	entities, err := svc.Extract(context.Background(), testContent())
	require.NoError(t, err)
	assert.Len(t, entities, 2)
	assert.Equal(t, 2, llm.calls)
}

func TestExtractionService_SecondMalformedResponseIsTerminal(t *testing.T) {
	graph := newFakeGraphStore()
	llm := &fakeLLM{responses: []string{`not json`, `still not json`}}
	svc := NewExtractionService(llm, nil, graph)

	_, err := svc.Extract(context.Background(), testContent())
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.False(t, domain.IsRetryable(err))
	assert.Equal(t, 2, llm.calls)
}

func TestExtractionService_TransportFailureIsTransient(t *testing.T) {
	svc := NewExtractionService(&fakeLLM{err: errors.New("timeout")}, nil, newFakeGraphStore())

	_, err := svc.Extract(context.Background(), testContent())
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.True(t, domain.IsRetryable(err))
}

func TestExtractionService_UpsertIsIdempotent(t *testing.T) {
	graph := newFakeGraphStore()
	svc := NewExtractionService(&fakeLLM{responses: []string{validExtraction}}, newFakeEmbedder(), graph)

	_, err := svc.Extract(context.Background(), testContent())
	require.NoError(t, err)
	_, err = svc.Extract(context.Background(), testContent())
	require.NoError(t, err)

	// Re-extraction merged into the same entities and the same edge.
	entities, err := graph.ListEntities(context.Background(), "owner-1", 0)
	require.NoError(t, err)
	assert.Len(t, entities, 2)
	assert.Len(t, graph.edges, 1)
}

func TestExtractionService_MergeKeepsRicherDescription(t *testing.T) {
	graph := newFakeGraphStore()

	first := &fakeLLM{responses: []string{`{
		"entities": [{"name": "rust", "entity_type": "technology", "description": "A language with a long, detailed description of its ownership model."}],
		"relationships": []
	}`}}
	svc := NewExtractionService(first, nil, graph)
	_, err := svc.Extract(context.Background(), testContent())
	require.NoError(t, err)

	// Same entity under a different case, with a thinner description.
	second := &fakeLLM{responses: []string{`{
		"entities": [{"name": "Rust", "entity_type": "technology", "description": "A language."}],
		"relationships": []
	}`}}
	svc = NewExtractionService(second, nil, graph)
	_, err = svc.Extract(context.Background(), testContent())
	require.NoError(t, err)

	entities, err := graph.ListEntities(context.Background(), "owner-1", 0)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Contains(t, entities[0].Description, "ownership model")
}

func TestExtractionService_DropsUnresolvedRelationships(t *testing.T) {
	graph := newFakeGraphStore()
	llm := &fakeLLM{responses: []string{`{
		"entities": [{"name": "Rust", "entity_type": "technology", "description": "A language."}],
		"relationships": [{"source": "Rust", "target": "Never Extracted", "type": "references"}]
	}`}}
	svc := NewExtractionService(llm, nil, graph)

	_, err := svc.Extract(context.Background(), testContent())
	require.NoError(t, err)
	assert.Empty(t, graph.edges)
}

func TestExtractionService_NoLLM(t *testing.T) {
	svc := NewExtractionService(nil, nil, newFakeGraphStore())
	_, err := svc.Extract(context.Background(), testContent())
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}
