package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"engrave-queue/internal/common/mq"
	"engrave-queue/internal/domain"
)

// Publisher is the confirm-mode publish call of mq.Client.
type Publisher interface {
	Publish(ctx context.Context, exchange, key, messageID, correlationID string, body []byte, headers amqp.Table) error
}

// RabbitStatusPublisher fans status changes out on notifications_fanout.
type RabbitStatusPublisher struct {
	client Publisher
}

func NewRabbitStatusPublisher(client Publisher) *RabbitStatusPublisher {
	return &RabbitStatusPublisher{client: client}
}

func (p *RabbitStatusPublisher) PublishStatus(ctx context.Context, msg domain.StatusChangeMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal status message: %w", err)
	}
	return p.client.Publish(ctx, mq.NotificationsExchange, "", uuid.NewString(), msg.OrderID, body, amqp.Table{
		"x-source":   serviceName,
		"new-status": string(msg.NewStatus),
	})
}
