package app

import (
	"context"
	"fmt"

	"engrave-queue/internal/common/config"
	"engrave-queue/internal/common/db"
	"engrave-queue/internal/common/logger"
	"engrave-queue/internal/common/mq"
)

// Deps are the connections a mode runs on.
type Deps struct {
	DB *db.Conn
	MQ *mq.Client
}

// NewLogger is the mode's logger at the configured level.
func NewLogger(service string, cfg config.App) *logger.Logger {
	lg := logger.New(service)
	if lvl, err := logger.ParseLevel(cfg.Log.Level); err == nil {
		lg.SetLevel(lvl)
	}
	return lg
}

// Connect opens Postgres and, when withMQ is set, RabbitMQ.
func Connect(ctx context.Context, cfg config.App, log *logger.Logger, withMQ bool) (*Deps, error) {
	conn, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	log.Info("db_connected", map[string]any{"host": cfg.Database.Host, "port": cfg.Database.Port, "database": cfg.Database.Name})

	d := &Deps{DB: conn}
	if !withMQ {
		return d, nil
	}

	rmq, err := mq.Dial(cfg.Rabbit)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq connect: %w", err)
	}
	if err := rmq.Ping(); err != nil {
		rmq.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq ping: %w", err)
	}
	log.Info("rabbitmq_connected", map[string]any{"host": cfg.Rabbit.Host, "port": cfg.Rabbit.Port, "vhost": cfg.Rabbit.VHost})
	d.MQ = rmq
	return d, nil
}

func (d *Deps) Close() {
	d.MQ.Close()
	d.DB.Close()
}
