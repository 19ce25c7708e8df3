package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
)

// contentStore implements driven.ContentStore.
type contentStore struct {
	store *Store
}

var _ driven.ContentStore = (*contentStore)(nil)

const contentColumns = `id, owner_id, text, title, category, context, url, file_id, created_at, updated_at`

// SaveContent stores or updates a content record and keeps the keyword
// index entry in sync. The two writes share one transaction.
func (s *contentStore) SaveContent(ctx context.Context, content *domain.Content) error {
	now := time.Now().UTC()
	if content.CreatedAt.IsZero() {
		content.CreatedAt = now
	}
	content.UpdatedAt = now

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO contents (`+contentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			title = excluded.title,
			category = excluded.category,
			context = excluded.context,
			url = excluded.url,
			file_id = excluded.file_id,
			updated_at = excluded.updated_at
	`, content.ID, content.OwnerID, content.Text, content.Title, content.Category,
		content.Context, content.URL, nullString(content.FileID),
		content.CreatedAt, content.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving content: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM content_fts WHERE content_id = ?`, content.ID); err != nil {
		return fmt.Errorf("clearing content index: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO content_fts (title, text, category, context, owner_id, content_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, content.Title, content.Text, content.Category, content.Context,
		content.OwnerID, content.ID)
	if err != nil {
		return fmt.Errorf("indexing content: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing content: %w", err)
	}
	return nil
}

// GetContent retrieves a content record by ID, scoped to the owner.
func (s *contentStore) GetContent(ctx context.Context, ownerID, id string) (*domain.Content, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+contentColumns+` FROM contents WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	return scanContent(row)
}

// SaveChunks replaces the chunk set for the chunks' source content.
func (s *contentStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE source_id = ?`, chunks[0].SourceID); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, source_id, owner_id, position, text, overlap_len, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		_, err := stmt.ExecContext(ctx, c.ID, c.SourceID, c.OwnerID, c.Position,
			c.Text, c.OverlapLen, float32SliceToBytes(c.Embedding))
		if err != nil {
			return fmt.Errorf("saving chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	return nil
}

// GetChunks retrieves all chunks for a content record in position order.
func (s *contentStore) GetChunks(ctx context.Context, ownerID, sourceID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, source_id, owner_id, position, text, overlap_len, embedding
		FROM chunks WHERE source_id = ? AND owner_id = ?
		ORDER BY position
	`, sourceID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var embedding []byte
		if err := rows.Scan(&c.ID, &c.SourceID, &c.OwnerID, &c.Position,
			&c.Text, &c.OverlapLen, &embedding); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Embedding = bytesToFloat32Slice(embedding)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *contentStore) GetChunk(ctx context.Context, ownerID, id string) (*domain.Chunk, error) {
	var c domain.Chunk
	var embedding []byte
	err := s.store.db.QueryRowContext(ctx, `
		SELECT id, source_id, owner_id, position, text, overlap_len, embedding
		FROM chunks WHERE id = ? AND owner_id = ?
	`, id, ownerID).Scan(&c.ID, &c.SourceID, &c.OwnerID, &c.Position,
		&c.Text, &c.OverlapLen, &embedding)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	c.Embedding = bytesToFloat32Slice(embedding)
	return &c, nil
}

// DeleteContent removes a content record, its chunks (by cascade) and
// its keyword index entry.
func (s *contentStore) DeleteContent(ctx context.Context, ownerID, id string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM contents WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting content: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting content: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM content_fts WHERE content_id = ?`, id); err != nil {
		return fmt.Errorf("clearing content index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

// SearchText performs a BM25 keyword search over the owner's content.
// bm25() returns lower-is-better values, so the score is negated to
// make higher better, matching the port contract.
func (s *contentStore) SearchText(ctx context.Context, ownerID, query, category string, limit int) ([]driven.TextHit, error) {
	match := ftsQuote(query)
	if match == "" {
		return nil, nil
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT content_id,
		       -bm25(content_fts, 4.0, 1.0, 2.0, 1.0) AS score,
		       snippet(content_fts, 1, '[', ']', '…', 12)
		FROM content_fts
		WHERE content_fts MATCH ? AND owner_id = ?
		  AND (? = '' OR content_id IN (
		      SELECT id FROM contents WHERE owner_id = ? AND category = ?))
		ORDER BY score DESC
		LIMIT ?
	`, match, ownerID, category, ownerID, category, limit)
	if err != nil {
		return nil, fmt.Errorf("searching content: %w", err)
	}
	defer rows.Close()

	var hits []driven.TextHit
	for rows.Next() {
		var hit driven.TextHit
		var snippet string
		if err := rows.Scan(&hit.ContentID, &hit.Score, &snippet); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		if snippet != "" {
			hit.Highlights = []string{snippet}
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search hits: %w", err)
	}
	return hits, nil
}

// SearchChunkVectors scans the owner's chunk embeddings and returns the
// nearest by cosine similarity, scoped to a category when one is given.
// The corpus is personal-scale, so a brute-force scan stays well within
// interactive latency.
func (s *contentStore) SearchChunkVectors(ctx context.Context, ownerID string, query []float32, category string, limit int) ([]driven.VectorHit, error) {
	if len(query) == 0 {
		return nil, domain.ErrInvalidInput
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT c.id, c.source_id, c.embedding FROM chunks c
		JOIN contents ct ON ct.id = c.source_id
		WHERE c.owner_id = ? AND c.embedding IS NOT NULL
		  AND (? = '' OR ct.category = ?)
	`, ownerID, category, category)
	if err != nil {
		return nil, fmt.Errorf("querying chunk vectors: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var id, sourceID string
		var blob []byte
		if err := rows.Scan(&id, &sourceID, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk vector: %w", err)
		}
		stored := bytesToFloat32Slice(blob)
		if len(stored) != len(query) {
			return nil, fmt.Errorf("chunk %s has %d dimensions, query has %d: %w",
				id, len(stored), len(query), domain.ErrDimensionMismatch)
		}
		hits = append(hits, driven.VectorHit{
			ID:         id,
			SourceID:   sourceID,
			Similarity: cosineSimilarity(query, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk vectors: %w", err)
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

// ListCategories returns the owner's distinct non-empty categories.
func (s *contentStore) ListCategories(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT DISTINCT category FROM contents
		WHERE owner_id = ? AND category != ''
		ORDER BY category
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	return categories, nil
}

// SaveFileRef stores a file reference.
func (s *contentStore) SaveFileRef(ctx context.Context, ref *domain.FileRef) error {
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = time.Now().UTC()
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO file_refs (id, owner_id, sha256, path, file_name, mime_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ref.ID, ref.OwnerID, ref.SHA256, ref.Path, ref.FileName, ref.MIMEType, ref.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving file ref: %w", err)
	}
	return nil
}

// GetFileRef retrieves a file reference by ID, scoped to the owner.
func (s *contentStore) GetFileRef(ctx context.Context, ownerID, id string) (*domain.FileRef, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, owner_id, sha256, path, file_name, mime_type, created_at
		FROM file_refs WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	return scanFileRef(row)
}

// FindFileRefBySHA256 retrieves the owner's file reference with the
// given content hash.
func (s *contentStore) FindFileRefBySHA256(ctx context.Context, ownerID, hash string) (*domain.FileRef, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, owner_id, sha256, path, file_name, mime_type, created_at
		FROM file_refs WHERE owner_id = ? AND sha256 = ?
	`, ownerID, hash)
	return scanFileRef(row)
}

func scanContent(row *sql.Row) (*domain.Content, error) {
	var c domain.Content
	var fileID sql.NullString
	err := row.Scan(&c.ID, &c.OwnerID, &c.Text, &c.Title, &c.Category,
		&c.Context, &c.URL, &fileID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning content: %w", err)
	}
	c.FileID = fileID.String
	return &c, nil
}

func scanFileRef(row *sql.Row) (*domain.FileRef, error) {
	var ref domain.FileRef
	err := row.Scan(&ref.ID, &ref.OwnerID, &ref.SHA256, &ref.Path,
		&ref.FileName, &ref.MIMEType, &ref.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning file ref: %w", err)
	}
	return &ref, nil
}
