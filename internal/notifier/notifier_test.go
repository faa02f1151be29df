package notifier

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidinfra/tariffd/internal/config"
	"github.com/vidinfra/tariffd/internal/logger"
	pubsubMemory "github.com/vidinfra/tariffd/internal/pubsub/memory"
	"github.com/vidinfra/tariffd/internal/types"
)

func TestNotifyResourceLimitChanged(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelError
	log, err := logger.NewLogger(cfg)
	require.NoError(t, err)

	ps := pubsubMemory.NewPubSub(log)
	notifier := NewPubSubNotifier(ps, log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := ps.Subscribe(ctx, TopicResourceLimits)
	require.NoError(t, err)

	publishCtx := types.SetTenantID(ctx, "tenant-42")
	require.NoError(t, notifier.NotifyResourceLimitChanged(publishCtx, "seats", 25))

	select {
	case msg := <-messages:
		var event ResourceLimitChangedEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, "tenant-42", event.TenantID)
		assert.Equal(t, "seats", event.Feature)
		assert.EqualValues(t, 25, event.NewValue)
		assert.Equal(t, "tenant-42", msg.Metadata.Get("tenant_id"))
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no resource limit event received")
	}
}
