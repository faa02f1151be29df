package lock

import (
	"context"
	"sync"

	ierr "github.com/vidinfra/tariffd/internal/errors"
)

// LocalProvider is an in-process fair lock. It backs single instance
// deployments and tests; clustered deployments use the Redis provider.
type LocalProvider struct {
	mu     sync.Mutex
	queues map[string]*localQueue
}

type localQueue struct {
	held    bool
	waiters []chan struct{}
}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{queues: make(map[string]*localQueue)}
}

type localHandle struct {
	provider *LocalProvider
	key      string
}

func (p *LocalProvider) TryAcquireFair(ctx context.Context, key string) (Handle, error) {
	p.mu.Lock()
	q, ok := p.queues[key]
	if !ok {
		q = &localQueue{}
		p.queues[key] = q
	}

	if !q.held {
		q.held = true
		p.mu.Unlock()
		return &localHandle{provider: p, key: key}, nil
	}

	// FIFO: append ourselves and wait to be signalled.
	grant := make(chan struct{})
	q.waiters = append(q.waiters, grant)
	p.mu.Unlock()

	select {
	case <-grant:
		return &localHandle{provider: p, key: key}, nil
	case <-ctx.Done():
		p.mu.Lock()
		for i, w := range q.waiters {
			if w == grant {
				q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
				break
			}
		}
		p.mu.Unlock()
		// The grant may have raced ctx cancellation; pass it on if so.
		select {
		case <-grant:
			p.release(key)
		default:
		}
		return nil, ierr.WithError(ctx.Err()).
			WithHintf("gave up waiting for lock %s", key).
			Mark(ierr.ErrSystem)
	}
}

func (p *LocalProvider) release(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	q, ok := p.queues[key]
	if !ok {
		return
	}
	if len(q.waiters) > 0 {
		next := q.waiters[0]
		q.waiters = q.waiters[1:]
		close(next)
		return
	}
	q.held = false
	delete(p.queues, key)
}

func (h *localHandle) Release(ctx context.Context) error {
	h.provider.release(h.key)
	return nil
}
