package handlers

import (
	"fmt"
	"net/http"

	"engrave-queue/internal/common/httpx"
	"engrave-queue/internal/domain"
	"engrave-queue/internal/microservices/order/service"
)

type OrderHandler struct {
	service service.OrderServiceInterface
}

func NewOrderHandler(s service.OrderServiceInterface) *OrderHandler {
	return &OrderHandler{service: s}
}

func (oh *OrderHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, oh.service.Catalog())
}

func (oh *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req domain.CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}

	resp, err := oh.service.Submit(r.Context(), id, req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

func (oh *OrderHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req domain.EstimateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	est, err := oh.service.Estimate(req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, est)
}

func (oh *OrderHandler) Summary(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, oh.service.Summary())
}

func (oh *OrderHandler) Mine(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"orders": nonNil(oh.service.History(id.Email))})
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	id := httpx.IdentityFrom(r)
	if id.Anonymous() {
		httpx.WriteProblem(w, http.StatusUnauthorized, "unauthenticated",
			fmt.Sprintf("missing %s header", httpx.HeaderUserEmail))
		return id, false
	}
	return id, true
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil(orders []domain.Order) []domain.Order {
	if orders == nil {
		return []domain.Order{}
	}
	return orders
}
