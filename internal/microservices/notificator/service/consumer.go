package service

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"

	"engrave-queue/internal/common/logger"
)

// ErrConsumerClosed means the broker closed the delivery channel before shutdown.
var ErrConsumerClosed = errors.New("delivery channel closed by broker")

// Consume handles deliveries until msgs closes, acking, requeueing or
// dead-lettering each one by the handler's verdict. Handlers run detached from
// ctx cancellation; ctx only tells a requested shutdown apart from a lost channel.
func Consume(ctx context.Context, msgs <-chan amqp.Delivery, svc NotificatorServiceInterface, log *logger.Logger) error {
	hctx := context.WithoutCancel(ctx)
	for d := range msgs {
		err := svc.Handle(hctx, d.Body)
		switch {
		case err == nil:
			_ = d.Ack(false)
		case errors.Is(err, ErrDLQ):
			log.Warn("message_dead_lettered", err, map[string]any{"message_id": d.MessageId})
			_ = d.Nack(false, false)
		case errors.Is(err, ErrRequeue):
			_ = d.Nack(false, !d.Redelivered)
			if d.Redelivered {
				log.Warn("message_dead_lettered", err, map[string]any{"message_id": d.MessageId, "redelivered": true})
			}
		default:
			_ = d.Nack(false, true)
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return ErrConsumerClosed
}
