package handlers

import (
	"fmt"
	"net/http"

	"engrave-queue/internal/common/httpx"
	"engrave-queue/internal/domain"
	"engrave-queue/internal/microservices/notificator/service"
)

type NotificationHandler struct {
	service service.NotificatorServiceInterface
}

func NewNotificationHandler(s service.NotificatorServiceInterface) *NotificationHandler {
	return &NotificationHandler{service: s}
}

// authed passes the caller's email as the inbox owner.
func authed(next func(w http.ResponseWriter, r *http.Request, userID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := httpx.IdentityFrom(r)
		if id.Anonymous() {
			httpx.WriteProblem(w, http.StatusUnauthorized, "unauthenticated",
				fmt.Sprintf("missing %s header", httpx.HeaderUserEmail))
			return
		}
		next(w, r, id.Email)
	}
}

func (nh *NotificationHandler) List(w http.ResponseWriter, r *http.Request, userID string) {
	resp, err := nh.service.Inbox(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (nh *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request, userID string) {
	if err := nh.service.MarkRead(r.Context(), userID, r.PathValue("id")); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (nh *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request, userID string) {
	n, err := nh.service.MarkAllRead(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

func (nh *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request, userID string) {
	if err := nh.service.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (nh *NotificationHandler) RegisterToken(w http.ResponseWriter, r *http.Request, userID string) {
	var req domain.RegisterTokenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := nh.service.RegisterToken(r.Context(), userID, req.Token); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
