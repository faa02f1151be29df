package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/vidinfra/tariffd/internal/logger"
	"github.com/vidinfra/tariffd/internal/pubsub"
	"github.com/vidinfra/tariffd/internal/types"
)

// TopicResourceLimits carries resource limit change events to live sessions.
const TopicResourceLimits = "tariff.resource_limits"

// ChangeNotifier broadcasts resource limit changes to interested live
// sessions. Delivery is best effort: a failed notification never fails the
// mutation that triggered it.
type ChangeNotifier interface {
	NotifyResourceLimitChanged(ctx context.Context, feature string, newValue int64) error
}

// ResourceLimitChangedEvent is the broadcast payload.
type ResourceLimitChangedEvent struct {
	TenantID  string    `json:"tenant_id"`
	Feature   string    `json:"feature"`
	NewValue  int64     `json:"new_value"`
	ChangedAt time.Time `json:"changed_at"`
}

type pubsubNotifier struct {
	publisher pubsub.Publisher
	log       *logger.Logger
}

func NewPubSubNotifier(publisher pubsub.Publisher, log *logger.Logger) ChangeNotifier {
	return &pubsubNotifier{publisher: publisher, log: log}
}

func (n *pubsubNotifier) NotifyResourceLimitChanged(ctx context.Context, feature string, newValue int64) error {
	event := ResourceLimitChangedEvent{
		TenantID:  types.GetTenantID(ctx),
		Feature:   feature,
		NewValue:  newValue,
		ChangedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(types.GenerateUUID(), payload)
	msg.Metadata.Set("tenant_id", event.TenantID)

	if err := n.publisher.Publish(ctx, TopicResourceLimits, msg); err != nil {
		n.log.Errorw("failed to broadcast resource limit change",
			"tenant_id", event.TenantID,
			"feature", feature,
			"error", err)
		return err
	}
	return nil
}
