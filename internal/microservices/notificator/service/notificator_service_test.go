package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engrave-queue/internal/common/logger"
	"engrave-queue/internal/domain"
	"engrave-queue/internal/microservices/notificator/repository"
)

type memNotifications struct {
	mu    sync.Mutex
	items []domain.Notification
	err   error
}

func (m *memNotifications) EnsureSchema(context.Context) error { return nil }

func (m *memNotifications) Insert(_ context.Context, n domain.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, have := range m.items {
		if have.OrderID == n.OrderID && have.Type == n.Type {
			return false, nil
		}
	}
	m.items = append(m.items, n)
	return true, nil
}

func (m *memNotifications) List(_ context.Context, userID string, limit int) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Notification{}
	for _, n := range m.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memNotifications) UnreadCount(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, it := range m.items {
		if it.UserID == userID && !it.Read {
			n++
		}
	}
	return n, nil
}

func (m *memNotifications) MarkRead(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].UserID == userID {
			m.items[i].Read = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memNotifications) MarkAllRead(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.items {
		if m.items[i].UserID == userID && !m.items[i].Read {
			m.items[i].Read = true
			n++
		}
	}
	return n, nil
}

func (m *memNotifications) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].UserID == userID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

type memTokens struct {
	tokens  map[string]string
	touched int
}

func (m *memTokens) Upsert(_ context.Context, userID, token string) error {
	m.tokens[userID] = token
	return nil
}

func (m *memTokens) Latest(_ context.Context, userID string) (domain.PushToken, bool, error) {
	t, ok := m.tokens[userID]
	return domain.PushToken{UserID: userID, Token: t}, ok, nil
}

func (m *memTokens) Touch(context.Context, string, string) error {
	m.touched++
	return nil
}

func (m *memTokens) Delete(_ context.Context, userID, _ string) error {
	delete(m.tokens, userID)
	return nil
}

type recPusher struct {
	pushes []Push
	err    error
}

func (p *recPusher) Push(_ context.Context, push Push) error {
	p.pushes = append(p.pushes, push)
	return p.err
}

type fixture struct {
	svc    *NotificatorService
	notes  *memNotifications
	tokens *memTokens
	pusher *recPusher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		notes:  &memNotifications{},
		tokens: &memTokens{tokens: map[string]string{}},
		pusher: &recPusher{},
	}
	f.svc = NewNotificatorService(repository.Repository{NotificationRepo: f.notes, TokenRepo: f.tokens},
		f.pusher, logger.NewWithWriter("test", io.Discard))
	return f
}

func statusBody(t *testing.T, from, to domain.Status, text string) []byte {
	t.Helper()
	b, err := json.Marshal(domain.StatusChangeMessage{
		OrderID:       "ord-1",
		CustomerName:  "Alice",
		Email:         "alice@example.com",
		Category:      "Foil",
		ItemName:      "Blade",
		EngravingText: text,
		OldStatus:     from,
		NewStatus:     to,
		Timestamp:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return b
}

func TestHandleCompletionCreatesNotificationAndPushes(t *testing.T) {
	f := newFixture(t)
	f.tokens.tokens["alice@example.com"] = "tok-1"

	require.NoError(t, f.svc.Handle(context.Background(), statusBody(t, domain.StatusProcessing, domain.StatusCompleted, "Go team")))

	require.Len(t, f.notes.items, 1)
	n := f.notes.items[0]
	assert.Equal(t, "alice@example.com", n.UserID)
	assert.Equal(t, TypeOrderCompleted, n.Type)
	assert.Equal(t, "Order Complete!", n.Title)
	assert.Equal(t, `Your Foil Blade engraving is ready - "Go team"`, n.Message)
	assert.False(t, n.Read)

	require.Len(t, f.pusher.pushes, 1)
	assert.Equal(t, "tok-1", f.pusher.pushes[0].Token)
	assert.Equal(t, "order-ord-1", f.pusher.pushes[0].Tag)
	assert.Equal(t, 1, f.tokens.touched)
}

func TestHandleIgnoresOtherTransitions(t *testing.T) {
	f := newFixture(t)
	for _, tc := range []struct{ from, to domain.Status }{
		{domain.StatusPending, domain.StatusProcessing},
		{domain.StatusProcessing, domain.StatusPending},
		{domain.StatusPending, domain.StatusCancelled},
		{domain.StatusCompleted, domain.StatusCompleted},
	} {
		require.NoError(t, f.svc.Handle(context.Background(), statusBody(t, tc.from, tc.to, "")))
	}
	assert.Empty(t, f.notes.items)
	assert.Empty(t, f.pusher.pushes)
}

func TestHandleRedeliveryNotifiesOnce(t *testing.T) {
	f := newFixture(t)
	f.tokens.tokens["alice@example.com"] = "tok-1"
	body := statusBody(t, domain.StatusProcessing, domain.StatusCompleted, "")

	require.NoError(t, f.svc.Handle(context.Background(), body))
	require.NoError(t, f.svc.Handle(context.Background(), body))
	assert.Len(t, f.notes.items, 1)
	assert.Len(t, f.pusher.pushes, 1)
	assert.Equal(t, "Your Foil Blade engraving is ready", f.notes.items[0].Message)
}

func TestHandleWithoutTokenSkipsPush(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.Handle(context.Background(), statusBody(t, domain.StatusProcessing, domain.StatusCompleted, "")))
	assert.Len(t, f.notes.items, 1)
	assert.Empty(t, f.pusher.pushes)
}

func TestInvalidTokenIsDeleted(t *testing.T) {
	f := newFixture(t)
	f.tokens.tokens["alice@example.com"] = "stale"
	f.pusher.err = ErrInvalidToken

	require.NoError(t, f.svc.Handle(context.Background(), statusBody(t, domain.StatusProcessing, domain.StatusCompleted, "")))
	assert.Empty(t, f.tokens.tokens)
	assert.Zero(t, f.tokens.touched)
}

func TestPushFailureKeepsToken(t *testing.T) {
	f := newFixture(t)
	f.tokens.tokens["alice@example.com"] = "tok-1"
	f.pusher.err = errors.New("gateway down")

	require.NoError(t, f.svc.Handle(context.Background(), statusBody(t, domain.StatusProcessing, domain.StatusCompleted, "")))
	assert.Equal(t, "tok-1", f.tokens.tokens["alice@example.com"])
}

func TestHandleErrorVerdicts(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.svc.Handle(context.Background(), []byte("{")), ErrDLQ)
	assert.ErrorIs(t, f.svc.Handle(context.Background(), []byte(`{"new_status":"completed"}`)), ErrDLQ)

	f.notes.err = errors.New("db down")
	assert.ErrorIs(t, f.svc.Handle(context.Background(), statusBody(t, domain.StatusProcessing, domain.StatusCompleted, "")), ErrRequeue)
}

func TestInboxLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Handle(ctx, statusBody(t, domain.StatusProcessing, domain.StatusCompleted, "")))

	inbox, err := f.svc.Inbox(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, 1, inbox.Unread)

	id := inbox.Notifications[0].ID
	assert.ErrorIs(t, f.svc.MarkRead(ctx, "bob@example.com", id), domain.ErrNotFound)
	require.NoError(t, f.svc.MarkRead(ctx, "alice@example.com", id))

	inbox, err = f.svc.Inbox(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Zero(t, inbox.Unread)

	require.NoError(t, f.svc.Delete(ctx, "alice@example.com", id))
	inbox, err = f.svc.Inbox(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, inbox.Notifications)
}

func TestRegisterToken(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.svc.RegisterToken(context.Background(), "alice@example.com", "  "), domain.ErrValidation)
	require.NoError(t, f.svc.RegisterToken(context.Background(), "alice@example.com", " tok-9 "))
	assert.Equal(t, "tok-9", f.tokens.tokens["alice@example.com"])
}

type ackRecorder struct {
	mu    sync.Mutex
	acks  int
	nacks []bool // requeue flag per nack
}

func (a *ackRecorder) Ack(uint64, bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return nil
}

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks = append(a.nacks, requeue)
	return nil
}

func (a *ackRecorder) Reject(uint64, bool) error { return nil }

func TestConsumeVerdicts(t *testing.T) {
	f := newFixture(t)
	rec := &ackRecorder{}
	good := statusBody(t, domain.StatusProcessing, domain.StatusCompleted, "")

	msgs := make(chan amqp.Delivery, 3)
	msgs <- amqp.Delivery{Acknowledger: rec, Body: good}
	msgs <- amqp.Delivery{Acknowledger: rec, Body: []byte("not json")}
	close(msgs)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, Consume(ctx, msgs, f.svc, logger.NewWithWriter("test", io.Discard)))

	assert.Equal(t, 1, rec.acks)
	assert.Equal(t, []bool{false}, rec.nacks)

	f.notes.err = errors.New("db down")
	other := statusBody(t, domain.StatusProcessing, domain.StatusCompleted, "")
	msgs = make(chan amqp.Delivery, 2)
	msgs <- amqp.Delivery{Acknowledger: rec, Body: other}
	msgs <- amqp.Delivery{Acknowledger: rec, Body: other, Redelivered: true}
	close(msgs)
	assert.ErrorIs(t, Consume(context.Background(), msgs, f.svc, logger.NewWithWriter("test", io.Discard)), ErrConsumerClosed)

	assert.Equal(t, []bool{false, true, false}, rec.nacks, "requeue once, then dead-letter")
}

func TestConsumeReportsLostChannel(t *testing.T) {
	f := newFixture(t)
	msgs := make(chan amqp.Delivery)
	close(msgs)
	assert.ErrorIs(t, Consume(context.Background(), msgs, f.svc, logger.NewWithWriter("test", io.Discard)), ErrConsumerClosed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, Consume(ctx, msgs, f.svc, logger.NewWithWriter("test", io.Discard)), "closed during shutdown")
}

func TestWebhookPusher(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusAccepted)
	tokens := make(chan string, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got Push
		_ = json.NewDecoder(r.Body).Decode(&got)
		tokens <- got.Token
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	p := NewWebhookPusher(srv.URL, time.Second)
	require.NoError(t, p.Push(context.Background(), Push{Token: "tok", Title: "t"}))
	assert.Equal(t, "tok", <-tokens)

	status.Store(http.StatusGone)
	assert.ErrorIs(t, p.Push(context.Background(), Push{Token: "tok"}), ErrInvalidToken)

	status.Store(http.StatusInternalServerError)
	err := p.Push(context.Background(), Push{Token: "tok"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}
