package testutil

import (
	"context"
	"sync"

	"github.com/vidinfra/tariffd/internal/notifier"
	"github.com/vidinfra/tariffd/internal/types"
)

// CapturedNotification is one resource limit change seen by the notifier.
type CapturedNotification struct {
	TenantID string
	Feature  string
	NewValue int64
}

// InMemoryNotifier records every resource limit notification for assertions.
type InMemoryNotifier struct {
	mu     sync.Mutex
	events []CapturedNotification
}

var _ notifier.ChangeNotifier = (*InMemoryNotifier)(nil)

func NewInMemoryNotifier() *InMemoryNotifier {
	return &InMemoryNotifier{}
}

func (n *InMemoryNotifier) NotifyResourceLimitChanged(ctx context.Context, feature string, newValue int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, CapturedNotification{
		TenantID: types.GetTenantID(ctx),
		Feature:  feature,
		NewValue: newValue,
	})
	return nil
}

func (n *InMemoryNotifier) Events() []CapturedNotification {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]CapturedNotification, len(n.events))
	copy(out, n.events)
	return out
}

func (n *InMemoryNotifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = nil
}
