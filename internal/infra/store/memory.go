package store

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Read(_ context.Context, tenant, key string) ([]byte, bool, error) {
	if err := checkKey(tenant, key); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[tenant+"/"+key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (s *MemoryStore) Write(_ context.Context, tenant, key string, data []byte) error {
	if err := checkKey(tenant, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[tenant+"/"+key] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
