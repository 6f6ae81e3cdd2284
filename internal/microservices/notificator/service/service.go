package service

import (
	"engrave-queue/internal/common/logger"
	"engrave-queue/internal/microservices/notificator/repository"
)

type Service struct {
	NotificatorService NotificatorServiceInterface
}

func New(repo repository.Repository, pusher Pusher, log *logger.Logger) *Service {
	return &Service{NotificatorService: NewNotificatorService(repo, pusher, log)}
}
