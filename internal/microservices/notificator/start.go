package notificator

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"engrave-queue/internal/common/config"
	"engrave-queue/internal/common/db"
	"engrave-queue/internal/common/httpx"
	"engrave-queue/internal/common/logger"
	"engrave-queue/internal/common/metrics"
	"engrave-queue/internal/common/mq"
	"engrave-queue/internal/microservices/notificator/handlers"
	"engrave-queue/internal/microservices/notificator/repository"
	"engrave-queue/internal/microservices/notificator/service"
)

const prefetch = 10

// Run consumes status changes and serves the notification inbox until ctx is done.
func Run(ctx context.Context, cfg config.App, conn *db.Conn, rmq *mq.Client, log *logger.Logger) error {
	repo := repository.New(conn.Pool)
	if err := repo.NotificationRepo.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := rmq.DeclareAll(); err != nil {
		return fmt.Errorf("declare rabbitmq topology: %w", err)
	}

	var pusher service.Pusher = service.NewLogPusher(log)
	if cfg.Push.WebhookURL != "" {
		pusher = service.NewWebhookPusher(cfg.Push.WebhookURL, cfg.Push.Timeout)
	}
	svc := service.New(*repo, pusher, log)

	consumerTag := fmt.Sprintf("notificator-%d", os.Getpid())
	ch, msgs, err := rmq.Consume(mq.NotificationsQueue, consumerTag, prefetch)
	if err != nil {
		return fmt.Errorf("consume %s: %w", mq.NotificationsQueue, err)
	}
	defer ch.Close()

	// A lost delivery channel stops the HTTP side too, so the process exits and restarts.
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var (
		wg          sync.WaitGroup
		consumerErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := service.Consume(ctx, msgs, svc.NotificatorService, log); err != nil {
			log.Error("consumer_stopped", err, map[string]any{"queue": mq.NotificationsQueue})
			consumerErr = err
			stop()
		}
	}()
	log.Info("consumer_started", map[string]any{"queue": mq.NotificationsQueue, "prefetch": prefetch})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewServerMetrics(reg, "notification")

	addr := fmt.Sprintf(":%d", cfg.HTTP.NotificationPort)
	log.Info("service_started", map[string]any{"addr": addr})
	srvErr := httpx.New(addr, handlers.Router(handlers.New(svc), m, metrics.Handler(reg))).Run(runCtx)

	log.Info("graceful_shutdown", map[string]any{"consumer": consumerTag})
	_ = ch.Cancel(consumerTag, false)
	wg.Wait()
	if srvErr != nil {
		return srvErr
	}
	if consumerErr != nil {
		return fmt.Errorf("consume %s: %w", mq.NotificationsQueue, consumerErr)
	}
	return nil
}
