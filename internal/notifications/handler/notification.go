package handler

import (
	"net/http"
	"strconv"

	"hallbook/internal/notifications/service"
	apperrors "hallbook/pkg/errors"
	httputil "hallbook/pkg/http"
	"hallbook/pkg/logger"
	"hallbook/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type NotificationHandler struct {
	service  service.NotificationService
	verifier middleware.TokenVerifier
	log      *logger.Logger
}

func NewNotificationHandler(service service.NotificationService, verifier middleware.TokenVerifier, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service:  service,
		verifier: verifier,
		log:      log,
	}
}

type countResponse struct {
	Count int `json:"count"`
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	unreadOnly := false
	if raw := r.URL.Query().Get("unread_only"); raw != "" {
		unreadOnly, err = strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, apperrors.InvalidInput("invalid unread_only parameter: "+raw))
			return
		}
	}

	items, err := h.service.List(r.Context(), callerID(r), unreadOnly)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WritePaginated(w, httputil.Page(items, limit, offset), int64(len(items)), limit, offset)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	count, err := h.service.UnreadCount(r.Context(), callerID(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, countResponse{Count: count})
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	n, err := h.service.MarkAsRead(r.Context(), callerID(r), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, n)
}

func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	updated, err := h.service.MarkAllAsRead(r.Context(), callerID(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessage(w, "Notifications marked as read", countResponse{Count: updated})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), callerID(r), ps.ByName("id")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *NotificationHandler) ClearAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	deleted, err := h.service.ClearAll(r.Context(), callerID(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteMessage(w, "Notifications cleared", countResponse{Count: deleted})
}

func callerID(r *http.Request) string {
	return middleware.PrincipalFrom(r.Context()).UserID
}

func (h *NotificationHandler) RegisterRoutes(router *httprouter.Router) {
	auth := func(next httprouter.Handle) httprouter.Handle {
		return middleware.RequireAuth(h.verifier, next)
	}

	router.GET("/api/v1/notifications", auth(h.List))
	router.GET("/api/v1/notifications/unread-count", auth(h.UnreadCount))
	router.POST("/api/v1/notifications/read-all", auth(h.MarkAllAsRead))
	router.POST("/api/v1/notifications/id/:id/read", auth(h.MarkAsRead))
	router.DELETE("/api/v1/notifications/id/:id", auth(h.Delete))
	router.DELETE("/api/v1/notifications", auth(h.ClearAll))
}
