package order

import (
	"context"

	"engrave-queue/internal/app"
	"engrave-queue/internal/common/config"
	ordersvc "engrave-queue/internal/microservices/order"
)

func Run(ctx context.Context, cfg config.App) error {
	lg := app.NewLogger("order-service", cfg)
	deps, err := app.Connect(ctx, cfg, lg, true)
	if err != nil {
		return err
	}
	defer deps.Close()
	return ordersvc.Run(ctx, cfg, deps.DB, deps.MQ, lg)
}
