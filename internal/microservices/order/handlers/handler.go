package handlers

import "engrave-queue/internal/microservices/order/service"

type Handler struct {
	OrderHandler *OrderHandler
	StaffHandler *StaffHandler
}

func New(s *service.Service) *Handler {
	return &Handler{
		OrderHandler: NewOrderHandler(s.OrderService),
		StaffHandler: NewStaffHandler(s.OrderService),
	}
}
