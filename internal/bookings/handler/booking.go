package handler

import (
	"context"
	"net/http"

	"hallbook/internal/bookings/service"
	"hallbook/internal/events"
	apperrors "hallbook/pkg/errors"
	httputil "hallbook/pkg/http"
	"hallbook/pkg/logger"
	"hallbook/pkg/middleware"
	"hallbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service   service.BookingService
	publisher events.Publisher
	verifier  middleware.TokenVerifier
	log       *logger.Logger
}

func NewBookingHandler(
	service service.BookingService,
	publisher events.Publisher,
	verifier middleware.TokenVerifier,
	log *logger.Logger,
) *BookingHandler {
	return &BookingHandler{
		service:   service,
		publisher: publisher,
		verifier:  verifier,
		log:       log,
	}
}

type reasonBody struct {
	Reason string `json:"reason"`
}

type processBody struct {
	Hall string `json:"hall"`
	Date string `json:"date"`
}

type conflictResponse struct {
	Conflict bool           `json:"conflict"`
	Booking  *model.Booking `json:"booking,omitempty"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	principal := middleware.PrincipalFrom(r.Context())
	req.UserID = principal.UserID

	result, err := h.service.Create(r.Context(), &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if result.Queued {
		httputil.WriteAccepted(w, "Slot is taken. You have been added to the waiting list.", result)
		return
	}

	h.publish(r.Context(), events.NewBookingEvent(events.BookingCreated, result.Booking, principal.UserID, ""))
	httputil.WriteCreated(w, "Booking request submitted", result)
}

// List returns bookings matching the query filters. Non-admins only ever
// see their own bookings.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	filter := filterFromQuery(r)
	if principal := middleware.PrincipalFrom(r.Context()); !principal.IsAdmin() {
		filter.UserID = principal.UserID
	}

	bookings, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WritePaginated(w, httputil.Page(bookings, limit, offset), int64(len(bookings)), limit, offset)
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.ownedBooking(r, ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, booking)
}

func (h *BookingHandler) Approve(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal := middleware.PrincipalFrom(r.Context())
	result, err := h.service.Approve(r.Context(), ps.ByName("id"), principal.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.publishStatus(r.Context(), events.BookingApproved, result, principal.UserID, "")
	httputil.WriteMessage(w, "Booking approved", result)
}

func (h *BookingHandler) Reject(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body reasonBody
	if err := decodeOptional(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}

	principal := middleware.PrincipalFrom(r.Context())
	result, err := h.service.Reject(r.Context(), ps.ByName("id"), body.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.publishStatus(r.Context(), events.BookingRejected, result, principal.UserID, result.Booking.RejectionReason)
	httputil.WriteMessage(w, "Booking rejected", result)
}

// Cancel is open to the booking's owner and to admins.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body reasonBody
	if err := decodeOptional(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}

	id := ps.ByName("id")
	if _, err := h.ownedBooking(r, id); err != nil {
		httputil.WriteError(w, err)
		return
	}

	principal := middleware.PrincipalFrom(r.Context())
	result, err := h.service.Cancel(r.Context(), id, body.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.publishStatus(r.Context(), events.BookingCancelled, result, principal.UserID, result.Booking.CancellationReason)
	httputil.WriteMessage(w, "Booking cancelled", result)
}

func (h *BookingHandler) CheckConflict(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	conflict, err := h.service.CheckConflict(r.Context(), q.Get("hall"), q.Get("date"), q.Get("time_from"), q.Get("time_to"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, conflictResponse{Conflict: conflict != nil, Booking: conflict})
}

func (h *BookingHandler) AvailableSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	slots, err := h.service.GetAvailableSlots(r.Context(), q.Get("hall"), q.Get("date"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, slots)
}

func (h *BookingHandler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := h.service.GetBookingStats(r.Context(), filterFromQuery(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, stats)
}

// Export serves CSV as a file download and JSON inside the usual envelope.
func (h *BookingHandler) Export(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	format := service.ExportFormat(r.URL.Query().Get("format"))
	export, err := h.service.ExportBookings(r.Context(), filterFromQuery(r), format)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if export.Format == service.ExportCSV {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="bookings.csv"`)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(export.CSV)); err != nil {
			h.log.Error("failed to write export", "handler", "Export", "error", err)
		}
		return
	}
	httputil.WriteSuccess(w, export.Bookings)
}

// WaitingList returns the caller's entries. Admins get every entry, or one
// user's entries with ?user_id=.
func (h *BookingHandler) WaitingList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal := middleware.PrincipalFrom(r.Context())
	userID := principal.UserID
	if principal.IsAdmin() {
		userID = r.URL.Query().Get("user_id")
	}

	entries, err := h.service.GetWaitingList(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, entries)
}

func (h *BookingHandler) ProcessWaitingList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body processBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}

	notified, err := h.service.ProcessWaitingList(r.Context(), body.Hall, body.Date)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	for _, entry := range notified {
		h.publish(r.Context(), events.NewSlotAvailableEvent(entry))
	}
	httputil.WriteSuccess(w, notified)
}

func (h *BookingHandler) Catalog(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	httputil.WriteSuccess(w, model.Catalog{Halls: model.Halls, Departments: model.Departments})
}

// ownedBooking loads id and hides other users' bookings from non-admins.
func (h *BookingHandler) ownedBooking(r *http.Request, id string) (*model.Booking, error) {
	booking, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	principal := middleware.PrincipalFrom(r.Context())
	if !principal.IsAdmin() && booking.UserID != principal.UserID {
		return nil, apperrors.Forbidden("You can only access your own bookings")
	}
	return booking, nil
}

func (h *BookingHandler) publishStatus(ctx context.Context, t events.Type, result *service.StatusResult, actorID, reason string) {
	h.publish(ctx, events.NewBookingEvent(t, result.Booking, actorID, reason))
	for _, entry := range result.Notified {
		h.publish(ctx, events.NewSlotAvailableEvent(entry))
	}
}

// publish never fails the request: the booking change is already stored.
func (h *BookingHandler) publish(ctx context.Context, ev events.Event) {
	if err := h.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		h.log.Error("Failed to publish event",
			"event_id", ev.ID,
			"type", ev.Type,
			"key", ev.Key(),
			"error", err,
		)
	}
}

func filterFromQuery(r *http.Request) model.BookingFilter {
	q := r.URL.Query()
	return model.BookingFilter{
		UserID:     q.Get("user_id"),
		Status:     model.BookingStatus(q.Get("status")),
		Hall:       q.Get("hall"),
		Date:       q.Get("date"),
		Department: q.Get("department"),
		DateFrom:   q.Get("date_from"),
		DateTo:     q.Get("date_to"),
	}
}

func decodeOptional(r *http.Request, dst any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return httputil.DecodeJSON(r, dst)
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	auth := func(next httprouter.Handle) httprouter.Handle {
		return middleware.RequireAuth(h.verifier, next)
	}
	admin := func(next httprouter.Handle) httprouter.Handle {
		return middleware.RequireRole(h.verifier, next, model.RoleAdmin)
	}

	router.GET("/api/v1/halls", h.Catalog)

	router.POST("/api/v1/bookings", auth(h.Create))
	router.GET("/api/v1/bookings", auth(h.List))
	router.GET("/api/v1/bookings/id/:id", auth(h.GetByID))
	router.POST("/api/v1/bookings/id/:id/approve", admin(h.Approve))
	router.POST("/api/v1/bookings/id/:id/reject", admin(h.Reject))
	router.POST("/api/v1/bookings/id/:id/cancel", auth(h.Cancel))
	router.GET("/api/v1/bookings/conflict", auth(h.CheckConflict))
	router.GET("/api/v1/bookings/slots", auth(h.AvailableSlots))
	router.GET("/api/v1/bookings/stats", admin(h.Stats))
	router.GET("/api/v1/bookings/export", admin(h.Export))

	router.GET("/api/v1/waiting-list", auth(h.WaitingList))
	router.POST("/api/v1/waiting-list/process", admin(h.ProcessWaitingList))
}
