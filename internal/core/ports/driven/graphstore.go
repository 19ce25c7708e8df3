package driven

import (
	"context"

	"github.com/loreweave/loreweave/internal/core/domain"
)

// GraphStore persists knowledge entities and the relationships between
// them. Backed by SQLite.
type GraphStore interface {
	// UpsertEntity stores an entity, merging with any existing entity
	// sharing the same owner, normalised name and type. A merge keeps
	// the richer description and refreshes the embedding. The lookup and
	// write happen in one transaction. Returns the surviving entity.
	UpsertEntity(ctx context.Context, entity *domain.Entity) (*domain.Entity, error)

	// GetEntity retrieves an entity by ID, scoped to the owner.
	GetEntity(ctx context.Context, ownerID, id string) (*domain.Entity, error)

	// FindEntityByName retrieves the owner's entity with the given
	// normalised name and type, or domain.ErrNotFound.
	FindEntityByName(ctx context.Context, ownerID, normalisedName string, entityType domain.EntityType) (*domain.Entity, error)

	// SaveRelationship stores a relationship edge. A duplicate edge
	// (same owner, from, to and type) is a no-op.
	SaveRelationship(ctx context.Context, rel *domain.Relationship) error

	// GetNeighbours returns entities one hop away from the given entity,
	// in either direction, with the connecting edge type.
	GetNeighbours(ctx context.Context, ownerID, entityID string) ([]Neighbour, error)

	// SearchEntityVectors finds the owner's entities nearest to the
	// query vector. Returns domain.ErrDimensionMismatch if a stored
	// vector's length differs from the query's.
	SearchEntityVectors(ctx context.Context, ownerID string, query []float32, limit int) ([]VectorHit, error)

	// DeleteRelationshipsBySource removes edges extracted from a content
	// record. Used for retry cleanup; entities themselves are kept
	// because upserts are idempotent.
	DeleteRelationshipsBySource(ctx context.Context, ownerID, sourceID string) error

	// ListEntities returns the owner's entities, newest first.
	ListEntities(ctx context.Context, ownerID string, limit int) ([]domain.Entity, error)
}

// Neighbour is a one-hop graph expansion result.
type Neighbour struct {
	// Entity is the connected entity.
	Entity domain.Entity

	// EdgeType is the relationship type along the connecting edge.
	EdgeType string

	// ViaID is the directly matched entity the hop started from.
	ViaID string
}
