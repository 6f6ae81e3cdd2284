package stream

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"engrave-queue/internal/domain"
	"engrave-queue/internal/export"
)

var ErrDisabled = errors.New("kafka disabled")

type Client struct {
	Brokers []string
}

func NewClient(brokers []string) *Client {
	return &Client{Brokers: brokers}
}

func (c *Client) Enabled() bool {
	return len(c.Brokers) > 0
}

func (c *Client) NewWriter(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
}

func PublishJSON(ctx context.Context, w *kafka.Writer, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data, Time: time.Now().UTC()})
}

// OrderEvent is one analytics record: the export row plus what happened to it.
type OrderEvent struct {
	Event string     `json:"event"` // created | status_changed | deleted | snapshot
	At    time.Time  `json:"at"`
	Row   export.Row `json:"row"`
}

// Orders streams order changes keyed by order id, so one order's events stay on one partition.
type Orders struct {
	w *kafka.Writer
}

// NewOrders returns nil when the client has no brokers; a nil *Orders drops events.
func NewOrders(c *Client, topic string) *Orders {
	if !c.Enabled() {
		return nil
	}
	return &Orders{w: c.NewWriter(topic)}
}

func (s *Orders) Publish(ctx context.Context, event string, o domain.Order) error {
	if s == nil {
		return ErrDisabled
	}
	return PublishJSON(ctx, s.w, o.ID, OrderEvent{Event: event, At: time.Now().UTC(), Row: export.FromOrder(o)})
}

// PublishAll writes one event per order in a single batch.
func (s *Orders) PublishAll(ctx context.Context, event string, orders []domain.Order) error {
	if s == nil {
		return ErrDisabled
	}
	at := time.Now().UTC()
	msgs := make([]kafka.Message, 0, len(orders))
	for _, o := range orders {
		data, err := json.Marshal(OrderEvent{Event: event, At: at, Row: export.FromOrder(o)})
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{Key: []byte(o.ID), Value: data, Time: at})
	}
	if len(msgs) == 0 {
		return nil
	}
	return s.w.WriteMessages(ctx, msgs...)
}

func (s *Orders) Close() error {
	if s == nil {
		return nil
	}
	return s.w.Close()
}
