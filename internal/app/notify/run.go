package notify

import (
	"context"

	"engrave-queue/internal/app"
	"engrave-queue/internal/common/config"
	"engrave-queue/internal/microservices/notificator"
)

func Run(ctx context.Context, cfg config.App) error {
	lg := app.NewLogger("notification-subscriber", cfg)
	deps, err := app.Connect(ctx, cfg, lg, true)
	if err != nil {
		return err
	}
	defer deps.Close()
	return notificator.Run(ctx, cfg, deps.DB, deps.MQ, lg)
}
