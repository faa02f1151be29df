package testutil

import (
	"context"
	"sync"

	"github.com/vidinfra/tariffd/internal/domain/tariff"
)

type InMemoryTariffStore struct {
	mu      sync.RWMutex
	tariffs map[string]*tariff.Tariff

	// FailWrites makes every UpsertTariff return the given error.
	FailWrites error
	// Upserts counts successful writes.
	Upserts int
}

func NewInMemoryTariffStore() *InMemoryTariffStore {
	return &InMemoryTariffStore{
		tariffs: make(map[string]*tariff.Tariff),
	}
}

func (s *InMemoryTariffStore) GetTariff(ctx context.Context, tenantID string) (*tariff.Tariff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, exists := s.tariffs[tenantID]; exists {
		return t.Clone(), nil
	}
	return nil, tariff.NewTariffNotFoundError(tenantID)
}

func (s *InMemoryTariffStore) UpsertTariff(ctx context.Context, t *tariff.Tariff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites != nil {
		return s.FailWrites
	}

	s.tariffs[t.TenantID] = t.Clone()
	s.Upserts++
	return nil
}

func (s *InMemoryTariffStore) DeleteTariff(ctx context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tariffs, tenantID)
	return nil
}

func (s *InMemoryTariffStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tariffs = make(map[string]*tariff.Tariff)
	s.FailWrites = nil
	s.Upserts = 0
}
