package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"engrave-queue/internal/app/export"
	"engrave-queue/internal/app/notify"
	"engrave-queue/internal/app/order"
	"engrave-queue/internal/common/config"
	"engrave-queue/internal/common/logger"
)

const modes = "order-service | notification-subscriber | export"

func main() {
	mode := flag.String("mode", "", modes)
	cfgPath := flag.String("config", "", "path to YAML config (default: ./config.yaml)")
	out := flag.String("out", "", "export: CSV path (default: engraving_queue_export_<date>.csv)")
	replay := flag.Bool("replay", false, "export: also write every order to the Kafka stream")
	flag.Parse()

	lg := logger.New("bootstrap")

	path := *cfgPath
	if path == "" {
		p, err := config.FindConfig()
		if err != nil {
			fmt.Fprintln(os.Stderr, "no config file found: pass --config")
			os.Exit(2)
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		lg.Error("config_load_failed", err, map[string]any{"path": path})
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "order-service":
		lg.Info("service_started", map[string]any{"service": "order-service", "port": cfg.HTTP.OrderPort})
		err = order.Run(ctx, cfg)
	case "notification-subscriber":
		lg.Info("service_started", map[string]any{"service": "notification-subscriber", "port": cfg.HTTP.NotificationPort})
		err = notify.Run(ctx, cfg)
	case "export":
		err = export.Run(ctx, cfg, export.Options{Out: *out, Replay: *replay})
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: "+modes)
		os.Exit(2)
	}
	if err != nil {
		lg.Error("fatal", err, map[string]any{"mode": *mode})
		os.Exit(1)
	}
}
