package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"engrave-queue/internal/common/logger"
)

// ErrInvalidToken means the gateway no longer knows the device token.
var ErrInvalidToken = errors.New("push token not registered")

type Push struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Tag   string            `json:"tag"`
	Data  map[string]string `json:"data"`
}

type Pusher interface {
	Push(ctx context.Context, p Push) error
}

// WebhookPusher posts pushes as JSON to a gateway. 404 and 410 answers mean
// the token is gone.
type WebhookPusher struct {
	url    string
	client *http.Client
}

func NewWebhookPusher(url string, timeout time.Duration) *WebhookPusher {
	return &WebhookPusher{url: url, client: &http.Client{Timeout: timeout}}
}

func (wp *WebhookPusher) Push(ctx context.Context, p Push) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wp.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := wp.client.Do(req)
	if err != nil {
		return fmt.Errorf("push gateway: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrInvalidToken
	case resp.StatusCode >= 300:
		return fmt.Errorf("push gateway: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// LogPusher records pushes in the service log when no gateway is configured.
type LogPusher struct {
	log *logger.Logger
}

func NewLogPusher(log *logger.Logger) *LogPusher {
	return &LogPusher{log: log}
}

func (lp *LogPusher) Push(_ context.Context, p Push) error {
	lp.log.Info("push_logged", map[string]any{"tag": p.Tag, "title": p.Title, "body": p.Body})
	return nil
}
