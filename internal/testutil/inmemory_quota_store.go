package testutil

import (
	"context"
	"sync"

	"github.com/vidinfra/tariffd/internal/domain/quota"
	ierr "github.com/vidinfra/tariffd/internal/errors"
)

type InMemoryQuotaStore struct {
	mu          sync.RWMutex
	definitions map[int]*quota.Definition
}

func NewInMemoryQuotaStore() *InMemoryQuotaStore {
	return &InMemoryQuotaStore{
		definitions: make(map[int]*quota.Definition),
	}
}

func (s *InMemoryQuotaStore) GetDefinitions(ctx context.Context) ([]*quota.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*quota.Definition, 0, len(s.definitions))
	for _, def := range s.definitions {
		d := *def
		out = append(out, &d)
	}
	return out, nil
}

func (s *InMemoryQuotaStore) GetDefinition(ctx context.Context, id int) (*quota.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if def, exists := s.definitions[id]; exists {
		d := *def
		return &d, nil
	}
	return nil, ierr.NewError("quota definition not found").
		WithHintf("quota %d is not in the catalog", id).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryQuotaStore) GetDefinitionByProductID(ctx context.Context, productID string) (*quota.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, def := range s.definitions {
		if def.ProductID == productID {
			d := *def
			return &d, nil
		}
	}
	return nil, ierr.NewError("no quota for product").
		WithHintf("product %s has no catalog mapping", productID).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryQuotaStore) SaveDefinition(ctx context.Context, def *quota.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := *def
	s.definitions[def.ID] = &d
	return nil
}

func (s *InMemoryQuotaStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.definitions = make(map[int]*quota.Definition)
}
