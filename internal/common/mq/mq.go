package mq

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"engrave-queue/internal/common/config"
)

const (
	NotificationsExchange = "notifications_fanout"
	NotificationsQueue    = "notifications.q"
	DeadLetterExchange    = "dlx"
	DeadLetterQueue       = "dlq"
)

type Client struct {
	conn *amqp.Connection
	pub  *amqp.Channel
	acks <-chan amqp.Confirmation

	mu sync.Mutex // one publish in flight at a time
}

// confirmBuffer holds confirms left behind by publishes that gave up waiting.
const confirmBuffer = 16

// Dial opens a connection and a publishing channel in confirm mode.
func Dial(cfg config.MQ) (*Client, error) {
	vhost := cfg.VHost
	if vhost == "" || vhost == "/" {
		vhost = ""
	}
	vhost = url.PathEscape(vhost)
	uri := fmt.Sprintf("amqp://%s:%s@%s:%d/%s", cfg.User, cfg.Pass, cfg.Host, cfg.Port, vhost)
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, confirmBuffer))
	return &Client{conn: conn, pub: ch, acks: acks}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.pub != nil {
		_ = c.pub.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// DeclareAll is idempotent.
func (c *Client) DeclareAll() error {
	ch := c.pub
	if err := ch.ExchangeDeclare(NotificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(DeadLetterExchange, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(NotificationsQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    DeadLetterExchange,
		"x-dead-letter-routing-key": DeadLetterQueue,
	}); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(DeadLetterQueue, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(NotificationsQueue, "", NotificationsExchange, false, nil); err != nil {
		return err
	}
	return ch.QueueBind(DeadLetterQueue, DeadLetterQueue, DeadLetterExchange, false, nil)
}

// Publish sends a persistent JSON message and waits for the broker's ack.
func (c *Client) Publish(ctx context.Context, exchange, key, messageID, correlationID string, body []byte, headers amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq := c.pub.GetNextPublishSeqNo()
	if err := c.pub.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     messageID,
		CorrelationId: correlationID,
		Timestamp:     time.Now().UTC(),
		Headers:       headers,
		Body:          body,
	}); err != nil {
		return err
	}
	return awaitConfirm(ctx, c.acks, seq)
}

// awaitConfirm waits for the confirm of delivery tag seq. Confirms for earlier tags
// belong to publishes that stopped waiting and are discarded.
func awaitConfirm(ctx context.Context, acks <-chan amqp.Confirmation, seq uint64) error {
	for {
		select {
		case conf, ok := <-acks:
			if !ok {
				return errors.New("publish channel closed before confirm")
			}
			if conf.DeliveryTag < seq {
				continue
			}
			if conf.Ack {
				return nil
			}
			return fmt.Errorf("publish NACK from broker (tag %d)", conf.DeliveryTag)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Consume opens a dedicated channel for queue with manual acks.
func (c *Client) Consume(queue, consumer string, prefetch int) (*amqp.Channel, <-chan amqp.Delivery, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, nil, err
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	msgs, err := ch.Consume(queue, consumer, false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	return ch, msgs, nil
}
