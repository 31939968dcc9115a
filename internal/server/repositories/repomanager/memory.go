package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
)

// InMemoryStore backs the services with a files.MemoryRepository.
// Transactions are serialized; a failed fn does not roll back its writes.
type InMemoryStore struct {
	mu   sync.Mutex
	repo *files.MemoryRepository
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{repo: files.NewMemoryRepository()}
}

func (s *InMemoryStore) Files() files.Repository {
	return s.repo
}

func (s *InMemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repo files.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, s.repo)
}
