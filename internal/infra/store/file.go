package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps one JSON file per collection under root/<tenant>/<key>.json.
// Writes go to a temp file first and are renamed into place.
type FileStore struct {
	root string
	mu   sync.Mutex
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) path(tenant, key string) string {
	return filepath.Join(s.root, url.PathEscape(tenant), url.PathEscape(key)+".json")
}

func (s *FileStore) Read(_ context.Context, tenant, key string) ([]byte, bool, error) {
	if err := checkKey(tenant, key); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(s.path(tenant, key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *FileStore) Write(_ context.Context, tenant, key string, data []byte) error {
	if err := checkKey(tenant, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(tenant, key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}

func (s *FileStore) Close() error { return nil }
