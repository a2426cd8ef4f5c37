package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"

	"github.com/kitchenlane/catering-ops/internal/clients"
	"github.com/kitchenlane/catering-ops/internal/models"
	"github.com/kitchenlane/catering-ops/internal/projection"
	"github.com/kitchenlane/catering-ops/internal/refresh"
	"github.com/kitchenlane/catering-ops/pkg/logger"
)

// OrderEventsHandler consumes order change events. Every event is treated as
// a refetch trigger: the view refreshers and the dashboard cache are
// invalidated, and the event is forwarded to the push gateway so devices
// learn to pull. A lost event only delays a screen until its next poll tick.
type OrderEventsHandler struct {
	registry *refresh.Registry
	cache    *projection.SnapshotCache
	push     *clients.PushGatewayClient
	logger   logger.Logger
}

// NewOrderEventsHandler creates a new OrderEventsHandler. The push client may
// be nil when forwarding is disabled.
func NewOrderEventsHandler(
	registry *refresh.Registry,
	cache *projection.SnapshotCache,
	push *clients.PushGatewayClient,
	logger logger.Logger,
) *OrderEventsHandler {
	return &OrderEventsHandler{
		registry: registry,
		cache:    cache,
		push:     push,
		logger:   logger,
	}
}

// HandleMessage handles one consumed change event.
func (h *OrderEventsHandler) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event models.OutboxMessageEvent

	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("Failed to unmarshal change event", "error", err)
		return fmt.Errorf("failed to unmarshal change event: %w", err)
	}

	h.logger.Debug("Handling order change event",
		"eventType", event.EventType,
		"eventID", event.EventID,
		"aggregateID", event.AggregateID)

	switch event.EventType {
	case models.EventOrderCreated, models.EventOrderUpdated,
		models.EventOrderStatusChanged, models.EventOrderDeleted,
		models.EventDriverAssigned:
		h.invalidate(ctx)
	default:
		h.logger.Warn("Unknown event type", "eventType", event.EventType)
		return nil
	}

	h.forward(ctx, &event)

	return nil
}

func (h *OrderEventsHandler) invalidate(ctx context.Context) {
	h.registry.InvalidateAll()

	if h.cache != nil {
		h.cache.Invalidate(ctx)
	}
}

// forward is best effort. The views are already invalidated, so a failed
// push only costs a device its early wakeup.
func (h *OrderEventsHandler) forward(ctx context.Context, event *models.OutboxMessageEvent) {
	if h.push == nil {
		return
	}

	err := h.push.SendNotification(ctx, &clients.Notification{
		EventType: event.EventType,
		OrderID:   event.AggregateID,
		Data:      event.Data,
	})

	if err != nil {
		h.logger.Warn("Push notification dropped",
			"error", err,
			"eventType", event.EventType,
			"orderID", event.AggregateID)
	}
}
