package document

import (
	"context"
	"sync"
)

// InMemoryStore backs tests and local development.
type InMemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*Object
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{objects: make(map[string]*Object)}
}

func (s *InMemoryStore) Put(_ context.Context, obj *Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *obj
	cp.Data = append([]byte(nil), obj.Data...)
	s.objects[obj.Key] = &cp
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, key string) (*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *obj
	cp.Data = append([]byte(nil), obj.Data...)
	return &cp, nil
}
