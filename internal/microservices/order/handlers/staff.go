package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"engrave-queue/internal/common/httpx"
	"engrave-queue/internal/domain"
	"engrave-queue/internal/export"
	"engrave-queue/internal/microservices/order/service"
	"engrave-queue/internal/queue"
)

type StaffHandler struct {
	service service.OrderServiceInterface
	now     func() time.Time
}

func NewStaffHandler(s service.OrderServiceInterface) *StaffHandler {
	return &StaffHandler{service: s, now: time.Now}
}

// RequireStaff lets only the configured admin through.
func (sh *StaffHandler) RequireStaff(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := requireIdentity(w, r)
		if !ok {
			return
		}
		if !sh.service.IsStaff(id) {
			httpx.WriteError(w, fmt.Errorf("%w: staff access required", domain.ErrForbidden))
			return
		}
		next(w, r)
	}
}

func (sh *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tab := q.Get("tab")
	switch tab {
	case "", "all", string(domain.StatusPending), string(domain.StatusProcessing):
	default:
		httpx.WriteProblem(w, http.StatusBadRequest, "validation_error", "tab must be pending, processing or all")
		return
	}
	orders := sh.service.StaffOrders(queue.Filter{Tab: tab, Search: q.Get("q")})
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"orders": nonNil(orders)})
}

func (sh *StaffHandler) Stats(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, sh.service.Stats())
}

func (sh *StaffHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	resp, err := sh.service.AdvanceStatus(r.Context(), httpx.IdentityFrom(r), r.PathValue("id"), req.Status)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (sh *StaffHandler) Delete(w http.ResponseWriter, r *http.Request) {
	resp, err := sh.service.Remove(r.Context(), httpx.IdentityFrom(r), r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (sh *StaffHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	limit := atoiDefault(r.URL.Query().Get("limit"), 50)
	offset := atoiDefault(r.URL.Query().Get("offset"), 0)
	events, err := sh.service.Timeline(r.Context(), id, limit, offset)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"order_id": id, "events": events})
}

// Export buffers the file so a failure can still be reported as JSON.
func (sh *StaffHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := sh.service.Export(&buf); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(sh.now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// atoiDefault returns d for empty, malformed or negative input.
func atoiDefault(s string, d int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return d
	}
	return n
}
