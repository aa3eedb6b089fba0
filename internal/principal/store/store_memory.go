package store

import (
	"context"
	"sync"

	"scangate/internal/principal"
	dErrors "scangate/pkg/domain-errors"
)

// InMemory is a map-backed principal store for tests and single-node demos.
type InMemory struct {
	mu         sync.RWMutex
	principals map[string]*principal.Principal
}

// NewInMemory creates an empty in-memory principal store.
func NewInMemory() *InMemory {
	return &InMemory{principals: make(map[string]*principal.Principal)}
}

func (s *InMemory) FindByID(_ context.Context, id string) (*principal.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.principals[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "principal not found")
	}
	copied := *p
	return &copied, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*principal.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.principals {
		if p.Email == email {
			copied := *p
			return &copied, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "principal not found")
}

func (s *InMemory) Create(_ context.Context, p *principal.Principal) error {
	if p == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "principal is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.principals[p.ID]; exists {
		return dErrors.New(dErrors.CodeConflict, "principal already exists")
	}
	copied := *p
	s.principals[p.ID] = &copied
	return nil
}
