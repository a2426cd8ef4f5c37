package outbox

import (
	"context"
	"fmt"

	"github.com/kitchenlane/catering-ops/internal/models"
	"github.com/kitchenlane/catering-ops/pkg/kafka"
	"github.com/kitchenlane/catering-ops/pkg/logger"
)

// KafkaHandler publishes outbox messages to the change-notification topic.
type KafkaHandler struct {
	producer *kafka.Producer
	topic    string
	logger   logger.Logger
}

// NewKafkaHandler creates a new KafkaHandler.
func NewKafkaHandler(producer *kafka.Producer, topic string, logger logger.Logger) *KafkaHandler {
	return &KafkaHandler{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// HandleMessage publishes one message. The order ID keys the Kafka message so
// events for the same order stay ordered within a partition.
func (h *KafkaHandler) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	key := message.AggregateID

	err := h.producer.SendMessage(ctx, h.topic, key, message.Payload)

	if err != nil {
		h.logger.Error("Failed to publish message to Kafka",
			"error", err,
			"messageID", message.ID,
			"aggregateID", message.AggregateID)
		return fmt.Errorf("failed to publish message to Kafka: %w", err)
	}

	return nil
}
