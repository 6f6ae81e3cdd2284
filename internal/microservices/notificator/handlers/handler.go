package handlers

import "engrave-queue/internal/microservices/notificator/service"

type Handler struct {
	NotificationHandler *NotificationHandler
}

func New(s *service.Service) *Handler {
	return &Handler{NotificationHandler: NewNotificationHandler(s.NotificatorService)}
}
