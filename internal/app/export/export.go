package export

import (
	"context"
	"fmt"
	"os"
	"time"

	"engrave-queue/internal/app"
	"engrave-queue/internal/common/config"
	"engrave-queue/internal/common/logger"
	"engrave-queue/internal/common/stream"
	"engrave-queue/internal/domain"
	csvexport "engrave-queue/internal/export"
	"engrave-queue/internal/microservices/order/repository"
)

type Options struct {
	// Out is the CSV path; empty picks the dated default name.
	Out string
	// Replay also writes every order to the Kafka stream as a "snapshot" event.
	Replay bool
}

// Run writes the stored queue to a CSV file.
func Run(ctx context.Context, cfg config.App, opts Options) error {
	lg := app.NewLogger("export", cfg)
	deps, err := app.Connect(ctx, cfg, lg, false)
	if err != nil {
		return err
	}
	defer deps.Close()

	orders, err := repository.NewOrderRepository(deps.DB.Pool).List(ctx)
	if err != nil {
		return err
	}

	path := opts.Out
	if path == "" {
		path = csvexport.FileName(time.Now())
	}
	if err := writeFile(path, orders); err != nil {
		return err
	}
	lg.Info("export_written", map[string]any{"path": path, "orders": len(orders)})

	if opts.Replay {
		return replay(ctx, cfg, orders, lg)
	}
	return nil
}

func writeFile(path string, orders []domain.Order) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := csvexport.WriteCSV(f, orders); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func replay(ctx context.Context, cfg config.App, orders []domain.Order, lg *logger.Logger) error {
	s := stream.NewOrders(stream.NewClient(cfg.Kafka.Brokers), cfg.Kafka.Topic)
	if s == nil {
		return fmt.Errorf("replay: %w: set kafka.brokers", stream.ErrDisabled)
	}
	defer func() { _ = s.Close() }()

	if err := s.PublishAll(ctx, "snapshot", orders); err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	lg.Info("export_replayed", map[string]any{"topic": cfg.Kafka.Topic, "orders": len(orders)})
	return nil
}
