package handlers

import (
	"net/http"

	"engrave-queue/internal/common/httpx"
	"engrave-queue/internal/common/metrics"
)

func Router(h *Handler, m *metrics.ServerMetrics, metricsHandler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	nh := h.NotificationHandler

	mux.HandleFunc("GET /api/v1/notifications", m.Wrap("inbox", authed(nh.List)))
	mux.HandleFunc("POST /api/v1/notifications/read-all", m.Wrap("read_all", authed(nh.MarkAllRead)))
	mux.HandleFunc("POST /api/v1/notifications/{id}/read", m.Wrap("read", authed(nh.MarkRead)))
	mux.HandleFunc("DELETE /api/v1/notifications/{id}", m.Wrap("delete", authed(nh.Delete)))
	mux.HandleFunc("PUT /api/v1/push-tokens", m.Wrap("push_token", authed(nh.RegisterToken)))

	mux.HandleFunc("GET /health", httpx.Health)
	mux.Handle("GET /metrics", metricsHandler)
	return mux
}
