package service

import (
	"engrave-queue/internal/catalog"
	"engrave-queue/internal/common/config"
	"engrave-queue/internal/common/logger"
	"engrave-queue/internal/microservices/order/repository"
	"engrave-queue/internal/queue"
)

type Service struct {
	OrderService OrderServiceInterface
}

func New(engine *queue.Engine, cat *catalog.Catalog, repo repository.Repository, status StatusPublisher, stream OrderStream, log *logger.Logger, cfg config.Queue) *Service {
	return &Service{
		OrderService: NewOrderService(engine, cat, repo.OrderRepo, status, stream, log, cfg),
	}
}
