package testutil

import (
	"context"
	"sync"

	"github.com/vidinfra/tariffd/internal/domain/tenant"
	ierr "github.com/vidinfra/tariffd/internal/errors"
)

type InMemoryTenantStore struct {
	mu      sync.RWMutex
	tenants map[string]*tenant.Tenant
}

func NewInMemoryTenantStore() *InMemoryTenantStore {
	return &InMemoryTenantStore{
		tenants: make(map[string]*tenant.Tenant),
	}
}

func (s *InMemoryTenantStore) Put(t *tenant.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tenants[t.ID] = t
}

func (s *InMemoryTenantStore) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, exists := s.tenants[id]; exists {
		out := *t
		return &out, nil
	}
	return nil, ierr.NewError("tenant not found").
		WithHintf("tenant %s does not exist", id).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryTenantStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tenants = make(map[string]*tenant.Tenant)
}
