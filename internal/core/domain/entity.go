package domain

import (
	"strings"
	"time"
)

// EntityType categorises a knowledge-graph entity. The set is closed:
// the extractor maps anything unrecognised to EntityTypeConcept.
type EntityType string

// Entity types.
const (
	EntityTypeIdea         EntityType = "idea"
	EntityTypeProject      EntityType = "project"
	EntityTypeDocument     EntityType = "document"
	EntityTypePage         EntityType = "page"
	EntityTypeTextSnippet  EntityType = "text_snippet"
	EntityTypePerson       EntityType = "person"
	EntityTypeOrganization EntityType = "organization"
	EntityTypePlace        EntityType = "place"
	EntityTypeEvent        EntityType = "event"
	EntityTypeConcept      EntityType = "concept"
	EntityTypeTechnology   EntityType = "technology"
)

// EntityTypes lists every valid entity type.
func EntityTypes() []EntityType {
	return []EntityType{
		EntityTypeIdea, EntityTypeProject, EntityTypeDocument,
		EntityTypePage, EntityTypeTextSnippet, EntityTypePerson,
		EntityTypeOrganization, EntityTypePlace, EntityTypeEvent,
		EntityTypeConcept, EntityTypeTechnology,
	}
}

// IsValid returns true if the entity type is recognised.
func (t EntityType) IsValid() bool {
	for _, v := range EntityTypes() {
		if t == v {
			return true
		}
	}
	return false
}

// ParseEntityType maps a free-form type string onto the closed set,
// defaulting to EntityTypeConcept.
func ParseEntityType(s string) EntityType {
	normalised := strings.ToLower(strings.TrimSpace(s))
	normalised = strings.ReplaceAll(normalised, " ", "_")
	t := EntityType(normalised)
	if t.IsValid() {
		return t
	}
	return EntityTypeConcept
}

// String returns the string representation.
func (t EntityType) String() string {
	return string(t)
}

// Entity is a named knowledge-graph node extracted from content or added
// manually. Identity for dedup purposes is (owner, normalised name, type).
type Entity struct {
	// ID is the unique identifier for the entity.
	ID string

	// OwnerID scopes the entity to one owner.
	OwnerID string

	// SourceID links to the Content the entity was first extracted from.
	SourceID string

	// Name is the display name.
	Name string

	// Type categorises the entity.
	Type EntityType

	// Description summarises what is known about the entity. Merges keep
	// the richer description.
	Description string

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// Embedding is the vector over name+description. Its length must
	// equal the configured embedding dimension.
	Embedding []float32

	// CreatedAt is when the entity was first created.
	CreatedAt time.Time

	// UpdatedAt is when the entity was last merged or edited.
	UpdatedAt time.Time
}

// NormalisedName returns the dedup key form of a name: lowercased with
// runs of whitespace collapsed to single spaces.
func NormalisedName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// EmbeddingText returns the text an entity's vector is computed over.
func (e *Entity) EmbeddingText() string {
	if e.Description == "" {
		return e.Name
	}
	return e.Name + "\n" + e.Description
}

// Relationship is a directed, typed edge between two entities.
// Identity for dedup purposes is (owner, from, to, type).
type Relationship struct {
	// ID is the unique identifier for the relationship.
	ID string

	// OwnerID scopes the edge to one owner.
	OwnerID string

	// FromID is the source entity.
	FromID string

	// ToID is the target entity.
	ToID string

	// Type is the free-text relationship type (e.g. "references").
	Type string

	// SourceID links to the Content the edge was extracted from.
	SourceID string

	// CreatedAt is when the edge was first created.
	CreatedAt time.Time
}
