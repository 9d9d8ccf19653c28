package cartref

import (
	"context"
	"sync"

	"github.com/mkalinowski/storefront-finalizer/internal/application"
)

// MemoryStore is an in-memory cart reference store used in tests and in
// single-instance deployments without redis.
type MemoryStore struct {
	mu   sync.RWMutex
	refs map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{refs: make(map[string]string)}
}

var _ application.CartReferenceStore = (*MemoryStore)(nil)

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cartID, ok := s.refs[key]
	if !ok {
		return "", application.ErrReferenceNotFound
	}
	return cartID, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[key] = cartID
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refs, key)
	return nil
}
