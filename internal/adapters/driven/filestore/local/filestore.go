// Package local stores uploaded file bytes on the local filesystem,
// content-addressed by SHA-256 so identical uploads share one copy.
package local

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
)

// Ensure FileStore implements the interface.
var _ driven.FileStore = (*FileStore)(nil)

// FileStore writes file bytes under a data directory and records their
// metadata as FileRefs in the content store.
type FileStore struct {
	dir  string
	refs driven.ContentStore
}

// NewFileStore creates a file store rooted at dataDir.
// If dataDir is empty, defaults to ~/.loreweave/files.
func NewFileStore(dataDir string, refs driven.ContentStore) (*FileStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".loreweave", "files")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating files directory: %w", err)
	}

	return &FileStore{dir: dataDir, refs: refs}, nil
}

// Store writes the file bytes and returns a FileRef. Storing bytes the
// owner already holds returns the existing reference without writing.
func (s *FileStore) Store(ctx context.Context, ownerID, fileName string, data []byte) (*domain.FileRef, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file: %w", domain.ErrInvalidInput)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	existing, err := s.refs.FindFileRefBySHA256(ctx, ownerID, hash)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	path := filepath.Join(s.dir, hash+filepath.Ext(fileName))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("writing file: %w", err)
	}

	ref := &domain.FileRef{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		SHA256:   hash,
		Path:     path,
		FileName: fileName,
		MIMEType: detectMIMEType(fileName, data),
	}
	if err := s.refs.SaveFileRef(ctx, ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// Read returns the stored bytes for a file reference.
func (s *FileStore) Read(ctx context.Context, ref *domain.FileRef) ([]byte, error) {
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s: %w", ref.ID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("reading file %s: %w", ref.ID, err)
	}
	return data, nil
}

// Delete removes the stored bytes for a file reference.
func (s *FileStore) Delete(ctx context.Context, ref *domain.FileRef) error {
	if err := os.Remove(ref.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file %s: %w", ref.ID, err)
	}
	return nil
}

// detectMIMEType prefers the file extension and falls back to content
// sniffing.
func detectMIMEType(fileName string, data []byte) string {
	if byExt := mime.TypeByExtension(filepath.Ext(fileName)); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data)
}
