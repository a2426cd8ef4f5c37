package models

import (
	"encoding/json"
	"time"
)

// Event types published on the change-notification topic. Consumers treat
// every event as a refetch trigger; the payload is informational only.
const (
	EventOrderCreated       = "order_created"
	EventOrderUpdated       = "order_updated"
	EventOrderStatusChanged = "order_status_changed"
	EventOrderDeleted       = "order_deleted"
	EventDriverAssigned     = "driver_assigned"
)

// OutboxStatus represents the status of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusCompleted  OutboxStatus = "completed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// OutboxMessage is a change event persisted in the same transaction as the
// mutation it describes, then published asynchronously.
type OutboxMessage struct {
	ID                 int64        `db:"id" json:"id"`
	AggregateType      string       `db:"aggregate_type" json:"aggregate_type"`
	AggregateID        string       `db:"aggregate_id" json:"aggregate_id"`
	EventType          string       `db:"event_type" json:"event_type"`
	Payload            []byte       `db:"payload" json:"payload"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	ProcessedAt        *time.Time   `db:"processed_at" json:"processed_at,omitempty"`
	ProcessingAttempts int          `db:"processing_attempts" json:"processing_attempts"`
	LastError          *string      `db:"last_error" json:"last_error,omitempty"`
	Status             OutboxStatus `db:"status" json:"status"`
}

// OutboxMessageEvent is the payload shape on the wire.
type OutboxMessageEvent struct {
	EventType   string      `json:"event_type"`
	EventID     string      `json:"event_id"`
	AggregateID string      `json:"aggregate_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Data        interface{} `json:"data"`
}

func newOrderEvent(eventType, orderID string, data interface{}) (*OutboxMessage, error) {
	event := OutboxMessageEvent{
		EventType:   eventType,
		EventID:     GenerateID("evt"),
		AggregateID: orderID,
		OccurredAt:  GetCurrentTime(),
		Data:        data,
	}

	payload, err := json.Marshal(event)

	if err != nil {
		return nil, err
	}

	return &OutboxMessage{
		EventType:     eventType,
		Payload:       payload,
		AggregateType: "order",
		AggregateID:   orderID,
		CreatedAt:     GetCurrentTime(),
		Status:        OutboxStatusPending,
	}, nil
}

// NewOrderCreatedEvent creates the change event for a new order.
func NewOrderCreatedEvent(order *Order) (*OutboxMessage, error) {
	return newOrderEvent(EventOrderCreated, order.ID, order)
}

// NewOrderUpdatedEvent creates the change event for a full-order edit.
func NewOrderUpdatedEvent(order *Order) (*OutboxMessage, error) {
	return newOrderEvent(EventOrderUpdated, order.ID, order)
}

// NewOrderDeletedEvent creates the change event for a deleted order.
func NewOrderDeletedEvent(orderID string) (*OutboxMessage, error) {
	return newOrderEvent(EventOrderDeleted, orderID, map[string]interface{}{
		"order_id": orderID,
	})
}

// NewOrderStatusChangedEvent creates the change event for a status transition.
func NewOrderStatusChangedEvent(order *Order, oldStatus OrderStatus) (*OutboxMessage, error) {
	return newOrderEvent(EventOrderStatusChanged, order.ID, map[string]interface{}{
		"order_id":   order.ID,
		"old_status": oldStatus,
		"new_status": order.Status,
	})
}

// NewDriverAssignedEvent creates the change event for a driver assignment.
func NewDriverAssignedEvent(order *Order, driverID string) (*OutboxMessage, error) {
	return newOrderEvent(EventDriverAssigned, order.ID, map[string]interface{}{
		"order_id":  order.ID,
		"driver_id": driverID,
	})
}
