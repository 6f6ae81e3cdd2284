package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"engrave-queue/internal/cart"
	"engrave-queue/internal/catalog"
	"engrave-queue/internal/common/config"
	"engrave-queue/internal/common/logger"
	"engrave-queue/internal/common/stream"
	"engrave-queue/internal/domain"
	"engrave-queue/internal/export"
	"engrave-queue/internal/microservices/order/repository"
	"engrave-queue/internal/queue"
)

const serviceName = "order-service"

// StatusPublisher delivers status changes to the notification dispatcher.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg domain.StatusChangeMessage) error
}

// OrderStream receives a copy of every order mutation for analytics.
type OrderStream interface {
	Publish(ctx context.Context, event string, o domain.Order) error
}

type OrderServiceInterface interface {
	Catalog() map[string]map[string]catalog.Entry
	IsStaff(id domain.Identity) bool

	Submit(ctx context.Context, id domain.Identity, req domain.CreateOrderRequest) (domain.CreateOrderResponse, error)
	Estimate(req domain.EstimateRequest) (domain.WaitEstimate, error)
	Summary() domain.QueueSummaryResponse
	History(email string) []domain.Order

	StaffOrders(f queue.Filter) []domain.Order
	Stats() domain.Statistics
	AdvanceStatus(ctx context.Context, actor domain.Identity, id, status string) (domain.UpdateStatusResponse, error)
	Remove(ctx context.Context, actor domain.Identity, id string) (domain.RemoveOrderResponse, error)
	Export(w io.Writer) error
	Timeline(ctx context.Context, id string, limit, offset int) ([]domain.StatusLogEntry, error)
}

type OrderService struct {
	engine  *queue.Engine
	catalog *catalog.Catalog
	db      repository.OrderRepositoryInterface
	status  StatusPublisher
	stream  OrderStream
	log     *logger.Logger

	writeTimeout time.Duration
	adminEmail   string
}

func NewOrderService(
	engine *queue.Engine,
	cat *catalog.Catalog,
	db repository.OrderRepositoryInterface,
	status StatusPublisher,
	orders OrderStream,
	log *logger.Logger,
	cfg config.Queue,
) *OrderService {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &OrderService{
		engine:       engine,
		catalog:      cat,
		db:           db,
		status:       status,
		stream:       orders,
		log:          log,
		writeTimeout: cfg.WriteTimeout,
		adminEmail:   strings.TrimSpace(cfg.AdminEmail),
	}
}

func (s *OrderService) Catalog() map[string]map[string]catalog.Entry {
	return s.catalog.Table()
}

func (s *OrderService) IsStaff(id domain.Identity) bool {
	return s.adminEmail != "" && strings.EqualFold(strings.TrimSpace(id.Email), s.adminEmail)
}

// Submit places every cart line as its own pending order. The estimate is taken
// before the new orders join the queue.
func (s *OrderService) Submit(ctx context.Context, id domain.Identity, req domain.CreateOrderRequest) (domain.CreateOrderResponse, error) {
	c, err := cart.FromInputs(s.catalog, req.Items)
	if err != nil {
		return domain.CreateOrderResponse{}, err
	}
	lines := c.Lines()
	estimate := s.engine.EstimateWait(lines)

	orders, err := s.engine.Submit(id.DisplayName(), id.Email, lines)
	if err != nil {
		return domain.CreateOrderResponse{}, err
	}

	wctx, cancel := s.writeContext(ctx)
	defer cancel()

	warn := &domain.DurabilityWarning{Op: "submit"}
	for _, o := range orders {
		if err := s.db.Create(wctx, o, id.Email); err != nil {
			warn.Add(o.ID, err)
			continue
		}
		s.engine.Settle(o)
	}
	for _, o := range orders {
		s.publishStream(wctx, "created", o)
	}

	s.log.Info("orders_submitted", map[string]any{
		"email":  id.Email,
		"orders": len(orders),
		"total":  c.Totals().Cost,
	})

	resp := domain.CreateOrderResponse{Orders: orders, Estimate: estimate}
	if w := s.settle(warn); w != nil {
		resp.Warning = w.Error()
	}
	return resp, nil
}

func (s *OrderService) Estimate(req domain.EstimateRequest) (domain.WaitEstimate, error) {
	c, err := cart.FromInputs(s.catalog, req.Items)
	if err != nil {
		return domain.WaitEstimate{}, err
	}
	return s.engine.EstimateWait(c.Lines()), nil
}

func (s *OrderService) Summary() domain.QueueSummaryResponse {
	return domain.QueueSummaryResponse{
		PendingCustomers: s.engine.PendingCustomerCount(),
		Estimate:         s.engine.EstimateWait(nil),
	}
}

func (s *OrderService) History(email string) []domain.Order {
	return s.engine.OrdersForCustomer(email)
}

func (s *OrderService) StaffOrders(f queue.Filter) []domain.Order {
	return s.engine.Orders(f)
}

func (s *OrderService) Stats() domain.Statistics {
	return s.engine.Statistics()
}

func (s *OrderService) AdvanceStatus(ctx context.Context, actor domain.Identity, id, status string) (domain.UpdateStatusResponse, error) {
	to, ok := domain.ParseStatus(status)
	if !ok {
		return domain.UpdateStatusResponse{}, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}
	t, err := s.engine.AdvanceStatus(id, to)
	if err != nil {
		return domain.UpdateStatusResponse{}, err
	}

	wctx, cancel := s.writeContext(ctx)
	defer cancel()

	warn := &domain.DurabilityWarning{Op: "status change"}
	if err := s.db.UpdateStatus(wctx, id, t.To, t.Order.CompletedAt, actor.Email); err != nil {
		warn.Add(id, err)
	} else {
		s.engine.Settle(t.Order)
	}

	msg := domain.NewStatusChangeMessage(t, actor.Email)
	if err := s.status.PublishStatus(wctx, msg); err != nil {
		s.log.Error("status_publish_failed", err, map[string]any{"order_id": id, "new_status": t.To})
	}
	s.publishStream(wctx, "status_changed", t.Order)

	s.log.Info("order_status_changed", map[string]any{
		"order_id":   id,
		"old_status": t.From,
		"new_status": t.To,
		"changed_by": actor.Email,
	})

	resp := domain.UpdateStatusResponse{Order: t.Order}
	if w := s.settle(warn); w != nil {
		resp.Warning = w.Error()
	}
	return resp, nil
}

func (s *OrderService) Remove(ctx context.Context, actor domain.Identity, id string) (domain.RemoveOrderResponse, error) {
	o, err := s.engine.Remove(id)
	if err != nil {
		return domain.RemoveOrderResponse{}, err
	}

	wctx, cancel := s.writeContext(ctx)
	defer cancel()

	warn := &domain.DurabilityWarning{Op: "delete"}
	if err := s.db.Delete(wctx, id); err != nil {
		warn.Add(id, err)
	} else {
		s.engine.SettleRemoval(id)
	}
	s.publishStream(wctx, "deleted", o)

	s.log.Info("order_removed", map[string]any{"order_id": id, "status": o.Status, "removed_by": actor.Email})

	resp := domain.RemoveOrderResponse{ID: id}
	if w := s.settle(warn); w != nil {
		resp.Warning = w.Error()
	}
	return resp, nil
}

func (s *OrderService) Export(w io.Writer) error {
	return export.WriteCSV(w, s.engine.All())
}

// Timeline reads the stored status history. Unknown ids yield ErrNotFound.
func (s *OrderService) Timeline(ctx context.Context, id string, limit, offset int) ([]domain.StatusLogEntry, error) {
	if _, err := s.engine.Order(id); err != nil {
		return nil, err
	}
	return s.db.Timeline(ctx, id, limit, offset)
}

// writeContext bounds a store write by writeTimeout. It outlives a cancelled
// request so a client hanging up does not abort a write already applied locally.
func (s *OrderService) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
}

// settle logs and returns warn when any write failed.
func (s *OrderService) settle(warn *domain.DurabilityWarning) *domain.DurabilityWarning {
	if len(warn.OrderIDs) == 0 {
		return nil
	}
	s.log.Warn("write_unconfirmed", warn, map[string]any{"op": warn.Op, "order_ids": warn.OrderIDs})
	return warn
}

func (s *OrderService) publishStream(ctx context.Context, event string, o domain.Order) {
	if s.stream == nil {
		return
	}
	if err := s.stream.Publish(ctx, event, o); err != nil && !errors.Is(err, stream.ErrDisabled) {
		s.log.Warn("stream_publish_failed", err, map[string]any{"order_id": o.ID, "event": event})
	}
}
