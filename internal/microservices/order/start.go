package order

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"engrave-queue/internal/common/config"
	"engrave-queue/internal/common/db"
	"engrave-queue/internal/common/httpx"
	"engrave-queue/internal/common/logger"
	"engrave-queue/internal/common/metrics"
	"engrave-queue/internal/common/mq"
	"engrave-queue/internal/common/stream"
	"engrave-queue/internal/domain"
	"engrave-queue/internal/microservices/order/handlers"
	"engrave-queue/internal/microservices/order/repository"
	"engrave-queue/internal/microservices/order/service"
	"engrave-queue/internal/queue"
)

const feedRetryDelay = 2 * time.Second

// Run serves the order API until ctx is done.
func Run(ctx context.Context, cfg config.App, conn *db.Conn, rmq *mq.Client, log *logger.Logger) error {
	cat, err := cfg.CatalogTable()
	if err != nil {
		return err
	}
	engine := queue.NewEngine(cat, queue.Options{RequireEngraving: cfg.Queue.RequireEngraving})

	repo := repository.New(conn.Pool)
	if err := repo.OrderRepo.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := rmq.DeclareAll(); err != nil {
		return fmt.Errorf("declare rabbitmq topology: %w", err)
	}

	orders := stream.NewOrders(stream.NewClient(cfg.Kafka.Brokers), cfg.Kafka.Topic)
	defer func() { _ = orders.Close() }()
	if orders == nil {
		log.Info("order_stream_disabled", nil)
	}

	svc := service.New(engine, cat, *repo, service.NewRabbitStatusPublisher(rmq), orders, log, cfg.Queue)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewServerMetrics(reg, "order")
	metrics.RegisterQueueGauges(reg, engine.Statistics, engine.Unconfirmed)

	go feed(ctx, repo.OrderRepo, engine, log)

	addr := fmt.Sprintf(":%d", cfg.HTTP.OrderPort)
	log.Info("service_started", map[string]any{"addr": addr, "admin_email": cfg.Queue.AdminEmail})
	srv := httpx.New(addr, handlers.Router(handlers.New(svc), m, metrics.Handler(reg)))
	return srv.Run(ctx)
}

// feed keeps the engine's confirmed set in step with the store, resubscribing
// after connection loss.
func feed(ctx context.Context, repo repository.OrderRepositoryInterface, engine *queue.Engine, log *logger.Logger) {
	for {
		err := repo.Subscribe(ctx, func(orders []domain.Order) {
			engine.ApplySnapshot(orders)
			log.Debug("snapshot_applied", map[string]any{"orders": len(orders), "unconfirmed": engine.Unconfirmed()})
		})
		if ctx.Err() != nil {
			return
		}
		log.Error("order_feed_lost", err, map[string]any{"retry_in": feedRetryDelay.String()})
		select {
		case <-time.After(feedRetryDelay):
		case <-ctx.Done():
			return
		}
	}
}
