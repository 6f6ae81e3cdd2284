package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"engrave-queue/internal/common/logger"
	"engrave-queue/internal/domain"
	"engrave-queue/internal/microservices/notificator/repository"
)

var (
	ErrRequeue = errors.New("requeue")     // nack(requeue=true)
	ErrDLQ     = errors.New("dead_letter") // nack(requeue=false)
)

const (
	TypeOrderCompleted = "order_completed"
	completedTitle     = "Order Complete!"
	inboxLimit         = 100
)

type NotificatorServiceInterface interface {
	Handle(ctx context.Context, body []byte) error

	Inbox(ctx context.Context, userID string) (domain.NotificationsResponse, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
	RegisterToken(ctx context.Context, userID, token string) error
}

type NotificatorService struct {
	notifications repository.NotificationRepositoryInterface
	tokens        repository.TokenRepositoryInterface
	pusher        Pusher
	log           *logger.Logger
	now           func() time.Time
}

func NewNotificatorService(repo repository.Repository, pusher Pusher, log *logger.Logger) *NotificatorService {
	return &NotificatorService{
		notifications: repo.NotificationRepo,
		tokens:        repo.TokenRepo,
		pusher:        pusher,
		log:           log,
		now:           time.Now,
	}
}

// Handle processes one status change. Only a transition into completed notifies;
// a redelivered completion is recognised and not notified twice.
func (ns *NotificatorService) Handle(ctx context.Context, body []byte) error {
	var msg domain.StatusChangeMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDLQ, err)
	}
	if msg.OrderID == "" || msg.Email == "" {
		return fmt.Errorf("%w: status change without order id or email", ErrDLQ)
	}
	if !msg.Completed() {
		ns.log.Debug("status_change_ignored", map[string]any{"order_id": msg.OrderID, "new_status": msg.NewStatus})
		return nil
	}

	n := domain.Notification{
		ID:        uuid.NewString(),
		UserID:    msg.Email,
		OrderID:   msg.OrderID,
		Type:      TypeOrderCompleted,
		Title:     completedTitle,
		Message:   CompletedMessage(msg),
		CreatedAt: ns.now().UTC(),
	}
	created, err := ns.notifications.Insert(ctx, n)
	if err != nil {
		ns.log.Error("notification_insert_failed", err, map[string]any{"order_id": msg.OrderID})
		return fmt.Errorf("%w: %v", ErrRequeue, err)
	}
	if !created {
		ns.log.Debug("notification_duplicate", map[string]any{"order_id": msg.OrderID})
		return nil
	}
	ns.log.Info("notification_created", map[string]any{"order_id": msg.OrderID, "user_id": msg.Email})

	ns.push(ctx, msg)
	return nil
}

// CompletedMessage is the in-app text for a finished order.
func CompletedMessage(msg domain.StatusChangeMessage) string {
	text := fmt.Sprintf("Your %s %s engraving is ready", msg.Category, msg.ItemName)
	if t := strings.TrimSpace(msg.EngravingText); t != "" {
		text += ` - "` + t + `"`
	}
	return text
}

// push never fails the message; the in-app notification is already stored.
func (ns *NotificatorService) push(ctx context.Context, msg domain.StatusChangeMessage) {
	tok, ok, err := ns.tokens.Latest(ctx, msg.Email)
	if err != nil {
		ns.log.Error("push_token_lookup_failed", err, map[string]any{"user_id": msg.Email})
		return
	}
	if !ok {
		ns.log.Debug("push_skipped_no_token", map[string]any{"user_id": msg.Email})
		return
	}

	err = ns.pusher.Push(ctx, Push{
		Token: tok.Token,
		Title: completedTitle,
		Body:  fmt.Sprintf("Your %s %s engraving is ready!", msg.Category, msg.ItemName),
		Tag:   "order-" + msg.OrderID,
		Data:  map[string]string{"orderId": msg.OrderID, "type": TypeOrderCompleted, "url": "/?tab=history"},
	})
	switch {
	case errors.Is(err, ErrInvalidToken):
		ns.log.Warn("push_token_invalid", err, map[string]any{"user_id": msg.Email})
		if err := ns.tokens.Delete(ctx, msg.Email, tok.Token); err != nil {
			ns.log.Error("push_token_delete_failed", err, map[string]any{"user_id": msg.Email})
		}
	case err != nil:
		ns.log.Error("push_failed", err, map[string]any{"user_id": msg.Email, "order_id": msg.OrderID})
	default:
		if err := ns.tokens.Touch(ctx, msg.Email, tok.Token); err != nil {
			ns.log.Warn("push_token_touch_failed", err, map[string]any{"user_id": msg.Email})
		}
		ns.log.Info("push_sent", map[string]any{"user_id": msg.Email, "order_id": msg.OrderID})
	}
}

func (ns *NotificatorService) Inbox(ctx context.Context, userID string) (domain.NotificationsResponse, error) {
	list, err := ns.notifications.List(ctx, userID, inboxLimit)
	if err != nil {
		return domain.NotificationsResponse{}, err
	}
	unread, err := ns.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return domain.NotificationsResponse{}, err
	}
	return domain.NotificationsResponse{Notifications: list, Unread: unread}, nil
}

func (ns *NotificatorService) MarkRead(ctx context.Context, userID, id string) error {
	return ns.notifications.MarkRead(ctx, userID, id)
}

func (ns *NotificatorService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return ns.notifications.MarkAllRead(ctx, userID)
}

func (ns *NotificatorService) Delete(ctx context.Context, userID, id string) error {
	return ns.notifications.Delete(ctx, userID, id)
}

func (ns *NotificatorService) RegisterToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token is required", domain.ErrValidation)
	}
	return ns.tokens.Upsert(ctx, userID, token)
}
