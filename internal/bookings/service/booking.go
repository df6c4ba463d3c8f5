package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	bookingserrors "hallbook/internal/bookings/errors"
	"hallbook/internal/bookings/repository"
	"hallbook/internal/bookings/validator"
	"hallbook/pkg/config"
	apperrors "hallbook/pkg/errors"
	"hallbook/pkg/lock"
	"hallbook/pkg/model"
	"hallbook/pkg/sanitizer"
	"hallbook/pkg/store"

	"github.com/google/uuid"
)

// LockKey is the lock taken around every read-modify-write of the
// bookings collection.
const LockKey = store.CollectionBookings

type BookingService interface {
	CheckConflict(ctx context.Context, hall, date, timeFrom, timeTo string) (*model.Booking, error)
	Create(ctx context.Context, req *model.BookingRequest) (*CreateResult, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	List(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, error)
	UpdateStatus(ctx context.Context, id string, status model.BookingStatus, reason, actorID string) (*StatusResult, error)
	Approve(ctx context.Context, id, approvedBy string) (*StatusResult, error)
	Reject(ctx context.Context, id, reason string) (*StatusResult, error)
	Cancel(ctx context.Context, id, reason string) (*StatusResult, error)
	ProcessWaitingList(ctx context.Context, hall, date string) ([]*model.WaitingListEntry, error)
	GetWaitingList(ctx context.Context, userID string) ([]*model.WaitingListEntry, error)
	GetAvailableSlots(ctx context.Context, hall, date string) ([]model.Slot, error)
	GetBookingStats(ctx context.Context, filter model.BookingFilter) (*model.BookingStats, error)
	ExportBookings(ctx context.Context, filter model.BookingFilter, format ExportFormat) (*Export, error)
	ClaimDueReminders(ctx context.Context, window time.Duration) ([]*model.Booking, error)
	ReleaseReminder(ctx context.Context, id string) error
}

// CreateResult is the outcome of a submission. Exactly one of Booking or
// WaitingEntry is set; Queued tells them apart.
type CreateResult struct {
	Booking      *model.Booking          `json:"booking,omitempty"`
	Occurrences  []*model.Booking        `json:"occurrences,omitempty"`
	Queued       bool                    `json:"queued"`
	WaitingEntry *model.WaitingListEntry `json:"waiting_entry,omitempty"`
}

// StatusResult carries the updated booking and the waiting entries that the
// follow-up reconciliation marked as notified.
type StatusResult struct {
	Booking  *model.Booking            `json:"booking"`
	Notified []*model.WaitingListEntry `json:"notified,omitempty"`
}

type bookingService struct {
	bookings  repository.BookingRepository
	waiting   repository.WaitingListRepository
	store     store.Store
	locker    lock.Locker
	validator *validator.BookingValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewBookingService(
	bookings repository.BookingRepository,
	waiting repository.WaitingListRepository,
	st store.Store,
	locker lock.Locker,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	if locker == nil {
		locker = lock.Noop{}
	}
	return &bookingService{
		bookings:  bookings,
		waiting:   waiting,
		store:     st,
		locker:    locker,
		validator: validator,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *bookingService) CheckConflict(ctx context.Context, hall, date, timeFrom, timeTo string) (*model.Booking, error) {
	if err := s.validator.ValidateSlot(hall, date, timeFrom, timeTo); err != nil {
		return nil, s.validationError(err)
	}

	bookings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return FindConflict(bookings, hall, date, timeFrom, timeTo), nil
}

func (s *bookingService) Create(ctx context.Context, req *model.BookingRequest) (*CreateResult, error) {
	s.sanitize(req)
	if err := s.validator.Validate(req); err != nil {
		return nil, s.validationError(err)
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, release)

	bookings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	if conflict := FindConflict(bookings, req.Hall, req.Date, req.TimeFrom, req.TimeTo); conflict != nil {
		if req.AddToWaitingList {
			entry, err := s.enqueue(ctx, req)
			if err != nil {
				return nil, err
			}
			return &CreateResult{Queued: true, WaitingEntry: entry}, nil
		}

		s.cfg.Log.Info("Booking request conflicts with an active booking",
			"hall", req.Hall,
			"date", req.Date,
			"time_from", req.TimeFrom,
			"time_to", req.TimeTo,
			"conflict_id", conflict.ID,
		)
		return nil, apperrors.SlotConflict(
			fmt.Sprintf("%s is already booked from %s to %s on %s", conflict.Hall, conflict.TimeFrom, conflict.TimeTo, conflict.Date),
			conflict,
		)
	}

	now := s.now()
	booking := &model.Booking{
		ID:         newID("HB", now),
		Hall:       req.Hall,
		Date:       req.Date,
		TimeFrom:   req.TimeFrom,
		TimeTo:     req.TimeTo,
		Department: req.Department,
		Reason:     req.Reason,
		UserID:     req.UserID,
		Status:     model.StatusPending,
		Recurring:  req.Recurring,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	pool := append(bookings, booking)
	occurrences := []*model.Booking{}
	if req.Recurring != nil && req.Recurring.Enabled {
		occurrences, err = expandRecurring(booking, req.Recurring, pool, func() string { return newID("HB", now) })
		if err != nil {
			return nil, apperrors.InvalidInput(err.Error())
		}
		pool = append(pool, occurrences...)
	}

	if err := s.bookings.Save(ctx, pool); err != nil {
		s.cfg.Log.Error("Failed to save bookings",
			"booking_id", booking.ID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"hall", booking.Hall,
		"date", booking.Date,
		"occurrences", len(occurrences),
	)
	return &CreateResult{Booking: booking, Occurrences: occurrences}, nil
}

func (s *bookingService) enqueue(ctx context.Context, req *model.BookingRequest) (*model.WaitingListEntry, error) {
	entries, err := s.waiting.Load(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to load waiting list", "error", err)
		return nil, apperrors.Internal("Failed to load waiting list", err)
	}

	now := s.now()
	entry := &model.WaitingListEntry{
		ID:         newID("WL", now),
		Hall:       req.Hall,
		Date:       req.Date,
		TimeFrom:   req.TimeFrom,
		TimeTo:     req.TimeTo,
		Department: req.Department,
		Reason:     req.Reason,
		UserID:     req.UserID,
		Recurring:  req.Recurring,
		AddedAt:    now,
	}

	if err := s.waiting.Save(ctx, append(entries, entry)); err != nil {
		s.cfg.Log.Error("Failed to save waiting list", "entry_id", entry.ID, "error", err)
		return nil, apperrors.Internal("Failed to add request to waiting list", err)
	}

	s.cfg.Log.Info("Booking request added to waiting list",
		"id", entry.ID,
		"hall", entry.Hall,
		"date", entry.Date,
		"user_id", entry.UserID,
	)
	return entry, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.InvalidInput("Booking ID is required")
	}

	bookings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	booking := findByID(bookings, id)
	if booking == nil {
		return nil, apperrors.NotFoundWithID("Booking", id)
	}
	return booking, nil
}

func (s *bookingService) List(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, error) {
	bookings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return filterAndSort(bookings, filter), nil
}

func (s *bookingService) UpdateStatus(ctx context.Context, id string, status model.BookingStatus, reason, actorID string) (*StatusResult, error) {
	if !status.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Unknown booking status: %s", status))
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, release)

	bookings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	booking := findByID(bookings, id)
	if booking == nil {
		return nil, apperrors.NotFoundWithID("Booking", id)
	}

	if !booking.Status.CanTransitionTo(status) {
		s.cfg.Log.Warn("Rejected booking status transition",
			"id", id,
			"from", booking.Status,
			"to", status,
		)
		return nil, apperrors.Validation(
			fmt.Sprintf("Cannot change booking status from %s to %s", booking.Status, status),
			map[string]any{"error": bookingserrors.ErrInvalidTransition.Error(), "from": booking.Status, "to": status},
		)
	}

	now := s.now()
	booking.Status = status
	booking.UpdatedAt = now
	switch status {
	case model.StatusApproved:
		booking.ApprovedBy = actorID
		booking.ApprovedAt = &now
	case model.StatusRejected:
		booking.RejectionReason = reason
	case model.StatusCancelled:
		booking.CancellationReason = reason
		booking.CancelledAt = &now
	}

	var notified []*model.WaitingListEntry
	err = store.RunInTransaction(ctx, s.store, func(ctx context.Context) error {
		if err := s.bookings.Save(ctx, bookings); err != nil {
			return apperrors.Internal("Failed to update booking status", err)
		}
		var err error
		notified, err = s.reconcile(ctx, bookings, booking.Hall, booking.Date)
		return err
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update booking status",
			"id", id,
			"status", status,
			"error", err,
		)
		return nil, apperrors.AsAppError(err)
	}

	s.cfg.Log.Info("Booking status updated successfully",
		"id", id,
		"status", status,
		"notified_waiting", len(notified),
	)
	return &StatusResult{Booking: booking, Notified: notified}, nil
}

func (s *bookingService) Approve(ctx context.Context, id, approvedBy string) (*StatusResult, error) {
	return s.UpdateStatus(ctx, id, model.StatusApproved, "", approvedBy)
}

func (s *bookingService) Reject(ctx context.Context, id, reason string) (*StatusResult, error) {
	return s.UpdateStatus(ctx, id, model.StatusRejected, sanitizer.SanitizeText(reason), "")
}

func (s *bookingService) Cancel(ctx context.Context, id, reason string) (*StatusResult, error) {
	return s.UpdateStatus(ctx, id, model.StatusCancelled, sanitizer.SanitizeText(reason), "")
}

func (s *bookingService) ProcessWaitingList(ctx context.Context, hall, date string) ([]*model.WaitingListEntry, error) {
	if err := s.validator.ValidateSlot(hall, date, "", ""); err != nil {
		return nil, s.validationError(err)
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, release)

	bookings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	notified, err := s.reconcile(ctx, bookings, hall, date)
	if err != nil {
		return nil, apperrors.AsAppError(err)
	}
	return notified, nil
}

// reconcile marks every unnotified waiting entry for hall and date whose
// interval no longer conflicts with an active booking. It only writes when
// something changed.
func (s *bookingService) reconcile(ctx context.Context, bookings []*model.Booking, hall, date string) ([]*model.WaitingListEntry, error) {
	entries, err := s.waiting.Load(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to load waiting list", err)
	}

	now := s.now()
	notified := []*model.WaitingListEntry{}
	for _, e := range entries {
		if e.Notified || e.Hall != hall || e.Date != date {
			continue
		}
		if FindConflict(bookings, e.Hall, e.Date, e.TimeFrom, e.TimeTo) != nil {
			continue
		}
		e.Notified = true
		e.NotifiedAt = &now
		notified = append(notified, e)
	}

	if len(notified) == 0 {
		return notified, nil
	}
	if err := s.waiting.Save(ctx, entries); err != nil {
		return nil, apperrors.Internal("Failed to update waiting list", err)
	}

	s.cfg.Log.Info("Waiting list reconciled",
		"hall", hall,
		"date", date,
		"notified", len(notified),
	)
	return notified, nil
}

func (s *bookingService) GetWaitingList(ctx context.Context, userID string) ([]*model.WaitingListEntry, error) {
	entries, err := s.waiting.Load(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to load waiting list", "error", err)
		return nil, apperrors.Internal("Failed to load waiting list", err)
	}

	out := make([]*model.WaitingListEntry, 0, len(entries))
	for _, e := range entries {
		if userID == "" || e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AddedAt.After(out[j].AddedAt)
	})
	return out, nil
}

func (s *bookingService) GetAvailableSlots(ctx context.Context, hall, date string) ([]model.Slot, error) {
	if err := s.validator.ValidateSlot(hall, date, "", ""); err != nil {
		return nil, s.validationError(err)
	}

	bookings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return availableSlots(bookings, hall, date), nil
}

func (s *bookingService) GetBookingStats(ctx context.Context, filter model.BookingFilter) (*model.BookingStats, error) {
	bookings, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return computeStats(bookings), nil
}

func (s *bookingService) ExportBookings(ctx context.Context, filter model.BookingFilter, format ExportFormat) (*Export, error) {
	if format == "" {
		format = ExportJSON
	}
	if format != ExportJSON && format != ExportCSV {
		return nil, apperrors.InvalidInput(fmt.Sprintf("%s: %s", bookingserrors.ErrUnknownExportFormat, format))
	}

	bookings, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	if format == ExportCSV {
		return &Export{Format: ExportCSV, CSV: renderCSV(bookings)}, nil
	}
	return &Export{Format: ExportJSON, Bookings: bookings}, nil
}

// ClaimDueReminders stamps and returns the approved bookings that start
// within window from now and have not been reminded yet.
func (s *bookingService) ClaimDueReminders(ctx context.Context, window time.Duration) ([]*model.Booking, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, release)

	bookings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	due := []*model.Booking{}
	for _, b := range bookings {
		if b.Status != model.StatusApproved || b.ReminderSentAt != nil {
			continue
		}
		start, err := StartTime(b, s.cfg.Location())
		if err != nil {
			s.cfg.Log.Warn("Skipping booking with unparsable start", "id", b.ID, "error", err)
			continue
		}
		if start.After(now) && !start.After(now.Add(window)) {
			b.ReminderSentAt = &now
			b.UpdatedAt = now
			due = append(due, b)
		}
	}

	if len(due) == 0 {
		return due, nil
	}
	if err := s.bookings.Save(ctx, bookings); err != nil {
		s.cfg.Log.Error("Failed to stamp reminders", "count", len(due), "error", err)
		return nil, apperrors.Internal("Failed to record reminders", err)
	}
	return due, nil
}

// ReleaseReminder clears a claimed reminder so the next scan picks the
// booking up again.
func (s *bookingService) ReleaseReminder(ctx context.Context, id string) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer s.release(ctx, release)

	bookings, err := s.load(ctx)
	if err != nil {
		return err
	}
	booking := findByID(bookings, id)
	if booking == nil {
		return apperrors.NotFoundWithID("Booking", id)
	}
	if booking.ReminderSentAt == nil {
		return nil
	}

	booking.ReminderSentAt = nil
	booking.UpdatedAt = s.now()
	if err := s.bookings.Save(ctx, bookings); err != nil {
		s.cfg.Log.Error("Failed to release reminder", "id", id, "error", err)
		return apperrors.Internal("Failed to release reminder", err)
	}
	return nil
}

// StartTime combines a booking's date and start clock in the campus zone.
func StartTime(b *model.Booking, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout+" 15:04", b.Date+" "+b.TimeFrom, loc)
}

// --- Helpers ---

func (s *bookingService) load(ctx context.Context) ([]*model.Booking, error) {
	bookings, err := s.bookings.Load(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to load bookings", "error", err)
		return nil, apperrors.Internal("Failed to load bookings", err)
	}
	return bookings, nil
}

func (s *bookingService) acquire(ctx context.Context) (lock.Release, error) {
	release, err := s.locker.Acquire(ctx, LockKey)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, apperrors.Conflict("Bookings are being updated by another request. Please try again.")
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, apperrors.Timeout("Timed out waiting for the bookings lock")
		}
		return nil, apperrors.Internal("Failed to acquire bookings lock", err)
	}
	return release, nil
}

func (s *bookingService) release(ctx context.Context, release lock.Release) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		s.cfg.Log.Warn("Failed to release bookings lock",
			"key", LockKey,
			"error", err,
		)
	}
}

func (s *bookingService) sanitize(req *model.BookingRequest) {
	req.Hall = strings.TrimSpace(req.Hall)
	req.Date = strings.TrimSpace(req.Date)
	req.TimeFrom = strings.TrimSpace(req.TimeFrom)
	req.TimeTo = strings.TrimSpace(req.TimeTo)
	req.Department = sanitizer.SanitizeText(req.Department)
	req.Reason = sanitizer.SanitizeText(req.Reason)
}

func (s *bookingService) validationError(err error) error {
	s.cfg.Log.Warn("Booking validation failed", "error", err)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Booking validation failed", map[string]any{"errors": verrs})
	}
	return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
}

func findByID(bookings []*model.Booking, id string) *model.Booking {
	for _, b := range bookings {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// newID builds "<prefix>-<unix millis>-<9 random upper-case characters>".
func newID(prefix string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:9]
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), suffix)
}
