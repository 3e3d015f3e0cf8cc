// Package memory provides an in-process blob store for tests and the
// single-binary deployment without object storage.
package memory

import (
	"context"
	"sync"

	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/blob"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/internal/util"
)

type object struct {
	data        []byte
	contentType string
}

// Store keeps objects in a map. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
}

var _ blob.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{objects: make(map[string]object)}
}

func (s *Store) Available(ctx context.Context) bool { return true }

func (s *Store) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: util.CopyBytes(data), contentType: contentType}
	return nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *Store) Download(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return util.CopyBytes(obj.data), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}
