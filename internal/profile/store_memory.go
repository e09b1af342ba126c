package profile

import (
	"context"
	"sync"
)

// InMemoryStore keeps profiles in a map guarded by a mutex. It backs unit
// tests and local development without a database.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	byOwner  map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[string]*Profile),
		byOwner:  make(map[string]string),
	}
}

func (s *InMemoryStore) Insert(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byOwner[p.OwnerID]; exists {
		return ErrDuplicateOwner
	}
	s.profiles[p.ID] = p.Clone()
	s.byOwner[p.OwnerID] = p.ID
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *InMemoryStore) GetByOwner(_ context.Context, ownerID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byOwner[ownerID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.profiles[id].Clone(), nil
}

func (s *InMemoryStore) Update(_ context.Context, id string, patch Patch) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(p)
	return p.Clone(), nil
}

func (s *InMemoryStore) AppendDocument(_ context.Context, id string, ref DocumentRef) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.MedicalDocuments = append(p.MedicalDocuments, ref)
	p.UpdatedAt = ref.UploadedAt
	return p.Clone(), nil
}
