package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	ierr "github.com/vidinfra/tariffd/internal/errors"
	"github.com/vidinfra/tariffd/internal/logger"
	"github.com/vidinfra/tariffd/internal/types"
)

const (
	// queueTTL bounds how long a ticket queue may outlive its last holder, so
	// a crashed process cannot deadlock a tenant forever.
	queueTTL = 30 * time.Second

	pollInterval = 50 * time.Millisecond

	keyPrefix = "lock:v2:"
)

// RedisProvider implements a fair lock as a Redis list used as a FIFO ticket
// queue. Each waiter pushes a unique ticket and the lock belongs to whichever
// ticket sits at the head of the list.
type RedisProvider struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRedisProvider(client *redis.Client, log *logger.Logger) *RedisProvider {
	return &RedisProvider{client: client, log: log}
}

type redisHandle struct {
	provider *RedisProvider
	key      string
	ticket   string
}

func (p *RedisProvider) TryAcquireFair(ctx context.Context, key string) (Handle, error) {
	queueKey := keyPrefix + key
	ticket := types.GenerateUUID()

	if err := p.client.RPush(ctx, queueKey, ticket).Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("failed to enqueue lock ticket for %s", key).
			Mark(ierr.ErrSystem)
	}
	p.client.Expire(ctx, queueKey, queueTTL)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		head, err := p.client.LIndex(ctx, queueKey, 0).Result()
		if err != nil && err != redis.Nil {
			p.abandon(ctx, queueKey, ticket)
			return nil, ierr.WithError(err).
				WithHintf("failed to poll lock queue for %s", key).
				Mark(ierr.ErrSystem)
		}
		if head == ticket {
			return &redisHandle{provider: p, key: queueKey, ticket: ticket}, nil
		}

		select {
		case <-ctx.Done():
			p.abandon(context.WithoutCancel(ctx), queueKey, ticket)
			return nil, ierr.WithError(ctx.Err()).
				WithHintf("gave up waiting for lock %s", key).
				Mark(ierr.ErrSystem)
		case <-ticker.C:
			// Keep the queue alive while we wait.
			p.client.Expire(ctx, queueKey, queueTTL)
		}
	}
}

func (p *RedisProvider) abandon(ctx context.Context, queueKey, ticket string) {
	if err := p.client.LRem(ctx, queueKey, 1, ticket).Err(); err != nil {
		p.log.Warnw("failed to abandon lock ticket", "key", queueKey, "error", err)
	}
}

func (h *redisHandle) Release(ctx context.Context) error {
	if err := h.provider.client.LRem(ctx, h.key, 1, h.ticket).Err(); err != nil {
		return ierr.WithError(err).
			WithHintf("failed to release lock %s", h.key).
			Mark(ierr.ErrSystem)
	}
	return nil
}
