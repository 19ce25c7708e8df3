package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
)

// graphStore implements driven.GraphStore.
type graphStore struct {
	store *Store
}

var _ driven.GraphStore = (*graphStore)(nil)

const entityColumns = `id, owner_id, source_id, name, normalised_name, type,
	description, metadata, embedding, created_at, updated_at`

// UpsertEntity stores an entity, merging with any existing entity that
// shares the owner, normalised name and type. A merge keeps the richer
// description and refreshes the embedding. The lookup and write happen
// in one transaction so concurrent extraction runs cannot create
// duplicates.
func (s *graphStore) UpsertEntity(ctx context.Context, entity *domain.Entity) (*domain.Entity, error) {
	now := time.Now().UTC()
	normalised := domain.NormalisedName(entity.Name)

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanEntityFrom(tx.QueryRowContext(ctx, `
		SELECT `+entityColumns+` FROM entities
		WHERE owner_id = ? AND normalised_name = ? AND type = ?
	`, entity.OwnerID, normalised, entity.Type))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if existing == nil {
		if entity.CreatedAt.IsZero() {
			entity.CreatedAt = now
		}
		entity.UpdatedAt = now
		metadata, err := marshalMetadata(entity.Metadata)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO entities (`+entityColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, entity.ID, entity.OwnerID, nullString(entity.SourceID), entity.Name,
			normalised, entity.Type, entity.Description, metadata,
			float32SliceToBytes(entity.Embedding), entity.CreatedAt, entity.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("inserting entity: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("committing entity: %w", err)
		}
		return entity, nil
	}

	merged := mergeEntities(existing, entity)
	merged.UpdatedAt = now
	metadata, err := marshalMetadata(merged.Metadata)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE entities
		SET name = ?, description = ?, metadata = ?, embedding = ?, updated_at = ?
		WHERE id = ?
	`, merged.Name, merged.Description, metadata,
		float32SliceToBytes(merged.Embedding), merged.UpdatedAt, merged.ID)
	if err != nil {
		return nil, fmt.Errorf("merging entity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing entity: %w", err)
	}
	return merged, nil
}

// mergeEntities folds an incoming entity into the stored one. The
// stored identity survives; the richer description wins and the fresh
// embedding replaces the stale one.
func mergeEntities(existing, incoming *domain.Entity) *domain.Entity {
	merged := *existing
	if len(incoming.Description) > len(existing.Description) {
		merged.Description = incoming.Description
	}
	if len(incoming.Embedding) > 0 {
		merged.Embedding = incoming.Embedding
	}
	for k, v := range incoming.Metadata {
		if merged.Metadata == nil {
			merged.Metadata = make(map[string]any)
		}
		merged.Metadata[k] = v
	}
	return &merged
}

// GetEntity retrieves an entity by ID, scoped to the owner.
func (s *graphStore) GetEntity(ctx context.Context, ownerID, id string) (*domain.Entity, error) {
	return scanEntityFrom(s.store.db.QueryRowContext(ctx, `
		SELECT `+entityColumns+` FROM entities WHERE id = ? AND owner_id = ?
	`, id, ownerID))
}

// FindEntityByName retrieves the owner's entity with the given
// normalised name and type.
func (s *graphStore) FindEntityByName(ctx context.Context, ownerID, normalisedName string, entityType domain.EntityType) (*domain.Entity, error) {
	return scanEntityFrom(s.store.db.QueryRowContext(ctx, `
		SELECT `+entityColumns+` FROM entities
		WHERE owner_id = ? AND normalised_name = ? AND type = ?
	`, ownerID, normalisedName, entityType))
}

// SaveRelationship stores an edge. A duplicate (same owner, from, to
// and type) is silently ignored.
func (s *graphStore) SaveRelationship(ctx context.Context, rel *domain.Relationship) error {
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO relationships (id, owner_id, from_id, to_id, type, source_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rel.ID, rel.OwnerID, rel.FromID, rel.ToID, rel.Type,
		nullString(rel.SourceID), rel.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving relationship: %w", err)
	}
	return nil
}

// GetNeighbours returns entities one hop away from the given entity,
// in either direction.
func (s *graphStore) GetNeighbours(ctx context.Context, ownerID, entityID string) ([]driven.Neighbour, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT e.id, e.owner_id, e.source_id, e.name, e.normalised_name, e.type,
		       e.description, e.metadata, e.embedding, e.created_at, e.updated_at,
		       r.type
		FROM relationships r
		JOIN entities e ON e.id = CASE WHEN r.from_id = ? THEN r.to_id ELSE r.from_id END
		WHERE r.owner_id = ? AND (r.from_id = ? OR r.to_id = ?)
		ORDER BY e.name
	`, entityID, ownerID, entityID, entityID)
	if err != nil {
		return nil, fmt.Errorf("querying neighbours: %w", err)
	}
	defer rows.Close()

	var neighbours []driven.Neighbour
	for rows.Next() {
		var e domain.Entity
		var sourceID sql.NullString
		var normalised, metadata string
		var embedding []byte
		var edgeType string
		if err := rows.Scan(&e.ID, &e.OwnerID, &sourceID, &e.Name, &normalised, &e.Type,
			&e.Description, &metadata, &embedding, &e.CreatedAt, &e.UpdatedAt,
			&edgeType); err != nil {
			return nil, fmt.Errorf("scanning neighbour: %w", err)
		}
		e.SourceID = sourceID.String
		e.Embedding = bytesToFloat32Slice(embedding)
		if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
			return nil, fmt.Errorf("decoding entity metadata: %w", err)
		}
		neighbours = append(neighbours, driven.Neighbour{
			Entity:   e,
			EdgeType: edgeType,
			ViaID:    entityID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating neighbours: %w", err)
	}
	return neighbours, nil
}

// SearchEntityVectors scans the owner's entity embeddings and returns
// the nearest by cosine similarity.
func (s *graphStore) SearchEntityVectors(ctx context.Context, ownerID string, query []float32, limit int) ([]driven.VectorHit, error) {
	if len(query) == 0 {
		return nil, domain.ErrInvalidInput
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, embedding FROM entities
		WHERE owner_id = ? AND embedding IS NOT NULL
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying entity vectors: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scanning entity vector: %w", err)
		}
		stored := bytesToFloat32Slice(blob)
		if len(stored) == 0 {
			continue
		}
		if len(stored) != len(query) {
			return nil, fmt.Errorf("entity %s has %d dimensions, query has %d: %w",
				id, len(stored), len(query), domain.ErrDimensionMismatch)
		}
		hits = append(hits, driven.VectorHit{
			ID:         id,
			Similarity: cosineSimilarity(query, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entity vectors: %w", err)
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

// DeleteRelationshipsBySource removes the edges extracted from a content
// record. Entities are left in place: upserts are idempotent, so a
// retried extraction converges without them being removed.
func (s *graphStore) DeleteRelationshipsBySource(ctx context.Context, ownerID, sourceID string) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM relationships WHERE owner_id = ? AND source_id = ?
	`, ownerID, sourceID)
	if err != nil {
		return fmt.Errorf("deleting relationships: %w", err)
	}
	return nil
}

// ListEntities returns the owner's entities, newest first.
func (s *graphStore) ListEntities(ctx context.Context, ownerID string, limit int) ([]domain.Entity, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+entityColumns+` FROM entities
		WHERE owner_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var entities []domain.Entity
	for rows.Next() {
		e, err := scanEntityFrom(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entities: %w", err)
	}
	return entities, nil
}

func scanEntityFrom(row rowScanner) (*domain.Entity, error) {
	var e domain.Entity
	var sourceID sql.NullString
	var normalised, metadata string
	var embedding []byte

	err := row.Scan(&e.ID, &e.OwnerID, &sourceID, &e.Name, &normalised, &e.Type,
		&e.Description, &metadata, &embedding, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning entity: %w", err)
	}

	e.SourceID = sourceID.String
	e.Embedding = bytesToFloat32Slice(embedding)
	if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
		return nil, fmt.Errorf("decoding entity metadata: %w", err)
	}
	return &e, nil
}

func marshalMetadata(metadata map[string]any) (string, error) {
	if len(metadata) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("encoding entity metadata: %w", err)
	}
	return string(data), nil
}
