package handlers

import (
	"net/http"

	"engrave-queue/internal/common/httpx"
	"engrave-queue/internal/common/metrics"
)

func Router(h *Handler, m *metrics.ServerMetrics, metricsHandler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	oh, sh := h.OrderHandler, h.StaffHandler

	mux.HandleFunc("GET /api/v1/catalog", m.Wrap("catalog", oh.Catalog))
	mux.HandleFunc("POST /api/v1/orders", m.Wrap("submit", oh.Submit))
	mux.HandleFunc("POST /api/v1/orders/estimate", m.Wrap("estimate", oh.Estimate))
	mux.HandleFunc("GET /api/v1/orders/mine", m.Wrap("history", oh.Mine))
	mux.HandleFunc("GET /api/v1/queue/summary", m.Wrap("summary", oh.Summary))

	mux.HandleFunc("GET /api/v1/staff/orders", m.Wrap("staff_list", sh.RequireStaff(sh.List)))
	mux.HandleFunc("GET /api/v1/staff/orders/export.csv", m.Wrap("staff_export", sh.RequireStaff(sh.Export)))
	mux.HandleFunc("GET /api/v1/staff/stats", m.Wrap("staff_stats", sh.RequireStaff(sh.Stats)))
	mux.HandleFunc("PATCH /api/v1/staff/orders/{id}/status", m.Wrap("staff_status", sh.RequireStaff(sh.UpdateStatus)))
	mux.HandleFunc("GET /api/v1/staff/orders/{id}/timeline", m.Wrap("staff_timeline", sh.RequireStaff(sh.Timeline)))
	mux.HandleFunc("DELETE /api/v1/staff/orders/{id}", m.Wrap("staff_delete", sh.RequireStaff(sh.Delete)))

	mux.HandleFunc("GET /health", httpx.Health)
	mux.Handle("GET /metrics", metricsHandler)
	return mux
}
