package blobstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/dmitrijs2005/filevault/internal/common"
)

type memoryObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
}

// MemoryStore keeps blobs in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	if err := ctx.Err(); err != nil {
		return storageError("put", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memoryObject{data: slices.Clone(data), contentType: contentType, metadata: maps.Clone(metadata)}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageError("get", key, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return slices.Clone(o.data), nil
}

// Metadata returns the metadata stored with key.
func (s *MemoryStore) Metadata(key string) (map[string]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	return maps.Clone(o.metadata), ok
}

// Corrupt overwrites the stored bytes of key, for exercising integrity checks.
func (s *MemoryStore) Corrupt(key string, fn func(b []byte)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[key]
	if ok {
		fn(o.data)
	}
	return ok
}

// Len reports the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
