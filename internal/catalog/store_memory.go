package catalog

import (
	"context"
	"sync"
)

type MemStore struct {
	mu sync.RWMutex
	c  Catalog
}

func NewMemStore(seed Catalog) *MemStore {
	return &MemStore{c: seed.Clone().normalize()}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Load(ctx context.Context) (Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.c.Clone(), nil
}

func (s *MemStore) Save(ctx context.Context, c Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c = c.Clone().normalize()
	return nil
}
