// Package store keeps board documents as JSON files, one per document id.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"CollabBoard/internal/collab"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrInvalidID = errors.New("invalid document id")
)

const ext = ".json"

// FileStore implements collab.Persistence on a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

var _ collab.Persistence = (*FileStore)(nil)

// Open creates dir if needed.
func Open(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// NewID returns a fresh document id.
func NewID() string {
	return uuid.NewString()
}

func (s *FileStore) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.dir, id+ext), nil
}

func (s *FileStore) Load(ctx context.Context, id string) (collab.Document, error) {
	if err := ctx.Err(); err != nil {
		return collab.Document{}, err
	}
	path, err := s.path(id)
	if err != nil {
		return collab.Document{}, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return collab.Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return collab.Document{}, fmt.Errorf("failed to read %s: %w", id, err)
	}
	var doc collab.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return collab.Document{}, fmt.Errorf("failed to parse %s: %w", id, err)
	}
	return doc, nil
}

// Save writes doc through a temporary file so that a crash never leaves a
// half-written document behind.
func (s *FileStore) Save(ctx context.Context, id string, doc collab.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(s.dir, id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", id, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", id, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", id, err)
	}
	log.Printf("[STORE] Saved %s (%d elements)", id, len(doc.Elements))
	return nil
}

// Delete removes a document. Deleting a missing one is not an error.
func (s *FileStore) Delete(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	return nil
}

// Entry is one listed document.
type Entry struct {
	ID       string
	Metadata collab.Metadata
}

// List returns every readable document, most recently updated first.
func (s *FileStore) List(ctx context.Context) ([]Entry, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	var out []Entry
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || filepath.Ext(name) != ext {
			continue
		}
		id := strings.TrimSuffix(name, ext)
		doc, err := s.Load(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("[STORE] Skipping %s: %v", name, err)
			continue
		}
		out = append(out, Entry{ID: id, Metadata: doc.Metadata})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Metadata.UpdatedAt > out[j].Metadata.UpdatedAt
	})
	return out, nil
}
