package service

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"hallbook/internal/bookings/repository"
	"hallbook/internal/bookings/validator"
	"hallbook/pkg/config"
	apperrors "hallbook/pkg/errors"
	"hallbook/pkg/lock"
	"hallbook/pkg/logger"
	"hallbook/pkg/model"
	"hallbook/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ────────────────────────────────────────────────
// Test fixtures
// ────────────────────────────────────────────────

type testEnv struct {
	svc      *bookingService
	store    *store.MemoryStore
	bookings repository.BookingRepository
	waiting  repository.WaitingListRepository
	clock    *stepClock
}

// stepClock advances one minute on every reading so each mutation gets a
// strictly later timestamp.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Output:  io.Discard,
			Service: "test",
		}),
	}
}

func newTestEnv(t *testing.T, locker lock.Locker) *testEnv {
	t.Helper()
	cfg := testConfig()
	st := store.NewMemoryStore()
	bookings := repository.NewBookingRepository(st)
	waiting := repository.NewWaitingListRepository(st)
	clock := &stepClock{now: time.Date(2024, 12, 1, 8, 0, 0, 0, time.UTC)}

	svc := NewBookingService(bookings, waiting, st, locker, validator.NewBookingValidator(cfg.Log), cfg).(*bookingService)
	svc.now = clock.Now

	return &testEnv{svc: svc, store: st, bookings: bookings, waiting: waiting, clock: clock}
}

func (e *testEnv) seed(t *testing.T, bookings ...*model.Booking) {
	t.Helper()
	require.NoError(t, e.bookings.Save(context.Background(), bookings))
}

func request(hall, date, from, to string) *model.BookingRequest {
	return &model.BookingRequest{
		Hall:       hall,
		Date:       date,
		TimeFrom:   from,
		TimeTo:     to,
		Department: "Computer Science",
		Reason:     "Department seminar",
		UserID:     "user-1",
	}
}

func existing(id, hall, date, from, to string, status model.BookingStatus) *model.Booking {
	return &model.Booking{
		ID:         id,
		Hall:       hall,
		Date:       date,
		TimeFrom:   from,
		TimeTo:     to,
		Department: "Civil Engineering",
		Reason:     "Existing event",
		UserID:     "user-0",
		Status:     status,
	}
}

// ────────────────────────────────────────────────
// Conflict detection
// ────────────────────────────────────────────────

func TestOverlaps_Symmetric(t *testing.T) {
	clocks := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "12:00"}
	for _, aFrom := range clocks {
		for _, aTo := range clocks {
			if aFrom >= aTo {
				continue
			}
			for _, bFrom := range clocks {
				for _, bTo := range clocks {
					if bFrom >= bTo {
						continue
					}
					assert.Equal(t,
						Overlaps(aFrom, aTo, bFrom, bTo),
						Overlaps(bFrom, bTo, aFrom, aTo),
						"[%s,%s) vs [%s,%s)", aFrom, aTo, bFrom, bTo,
					)
				}
			}
		}
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                   string
		aFrom, aTo, bFrom, bTo string
		want                   bool
	}{
		{"touching end to start", "09:00", "10:00", "10:00", "11:00", false},
		{"touching start to end", "10:00", "11:00", "09:00", "10:00", false},
		{"partial overlap", "10:30", "11:30", "10:00", "11:00", true},
		{"contained", "10:15", "10:45", "10:00", "11:00", true},
		{"containing", "09:00", "12:00", "10:00", "11:00", true},
		{"identical", "10:00", "11:00", "10:00", "11:00", true},
		{"disjoint", "13:00", "14:00", "10:00", "11:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aFrom, tt.aTo, tt.bFrom, tt.bTo))
		})
	}
}

func TestFindConflict_IgnoresInactiveAndOtherSlots(t *testing.T) {
	pool := []*model.Booking{
		existing("rejected", "Auditorium", "2025-01-01", "10:00", "11:00", model.StatusRejected),
		existing("cancelled", "Auditorium", "2025-01-01", "10:00", "11:00", model.StatusCancelled),
		existing("other-hall", "Seminar Hall 1", "2025-01-01", "10:00", "11:00", model.StatusApproved),
		existing("other-date", "Auditorium", "2025-01-02", "10:00", "11:00", model.StatusApproved),
	}
	assert.Nil(t, FindConflict(pool, "Auditorium", "2025-01-01", "10:00", "11:00"))

	pool = append(pool, existing("pending", "Auditorium", "2025-01-01", "10:30", "12:00", model.StatusPending))
	got := FindConflict(pool, "Auditorium", "2025-01-01", "10:00", "11:00")
	require.NotNil(t, got)
	assert.Equal(t, "pending", got.ID)
}

func TestCheckConflict(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.seed(t, existing("b1", "Auditorium", "2025-01-01", "10:00", "11:00", model.StatusApproved))

	conflict, err := env.svc.CheckConflict(ctx, "Auditorium", "2025-01-01", "10:30", "11:30")
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, "b1", conflict.ID)

	conflict, err = env.svc.CheckConflict(ctx, "Auditorium", "2025-01-01", "11:00", "12:00")
	require.NoError(t, err)
	assert.Nil(t, conflict)

	_, err = env.svc.CheckConflict(ctx, "Auditorium", "2025-01-01", "12:00", "11:00")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

// ────────────────────────────────────────────────
// Creation
// ────────────────────────────────────────────────

func TestCreate_Success(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	res, err := env.svc.Create(ctx, request("Auditorium", "2025-01-01", "10:00", "11:00"))
	require.NoError(t, err)
	require.NotNil(t, res.Booking)
	assert.False(t, res.Queued)
	assert.Empty(t, res.Occurrences)

	b := res.Booking
	assert.True(t, strings.HasPrefix(b.ID, "HB-"), "unexpected id %s", b.ID)
	assert.Len(t, strings.Split(b.ID, "-")[2], 9)
	assert.Equal(t, model.StatusPending, b.Status)
	assert.Equal(t, b.CreatedAt, b.UpdatedAt)
	assert.Equal(t, "user-1", b.UserID)

	stored, err := env.bookings.Load(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, b.ID, stored[0].ID)
}

func TestCreate_ConflictExample(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.seed(t, existing("b1", "Auditorium", "2025-01-01", "10:00", "11:00", model.StatusApproved))

	_, err := env.svc.Create(ctx, request("Auditorium", "2025-01-01", "10:30", "11:30"))
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
	conflict, ok := appErr.Details["conflict"].(*model.Booking)
	require.True(t, ok, "conflict details should carry the booking")
	assert.Equal(t, "b1", conflict.ID)

	res, err := env.svc.Create(ctx, request("Auditorium", "2025-01-01", "11:00", "12:00"))
	require.NoError(t, err)
	assert.NotNil(t, res.Booking)
}

func TestCreate_RejectedAndCancelledDoNotBlock(t *testing.T) {
	for _, status := range []model.BookingStatus{model.StatusRejected, model.StatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.seed(t, existing("b1", "Auditorium", "2025-01-01", "10:00", "11:00", status))

			res, err := env.svc.Create(context.Background(), request("Auditorium", "2025-01-01", "10:30", "11:30"))
			require.NoError(t, err)
			assert.NotNil(t, res.Booking)
		})
	}
}

func TestCreate_QueuesOnConflictWhenRequested(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.seed(t, existing("b1", "Auditorium", "2025-01-01", "10:00", "11:00", model.StatusPending))

	req := request("Auditorium", "2025-01-01", "10:00", "11:00")
	req.AddToWaitingList = true

	res, err := env.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Nil(t, res.Booking)
	require.NotNil(t, res.WaitingEntry)
	assert.True(t, strings.HasPrefix(res.WaitingEntry.ID, "WL-"))
	assert.False(t, res.WaitingEntry.Notified)

	bookings, err := env.bookings.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, bookings, 1, "a queued request must not create a booking")

	entries, err := env.waiting.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "user-1", entries[0].UserID)
}

func TestCreate_WaitingListFlagWithoutConflictBooks(t *testing.T) {
	env := newTestEnv(t, nil)
	req := request("Auditorium", "2025-01-01", "10:00", "11:00")
	req.AddToWaitingList = true

	res, err := env.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.Queued)
	assert.NotNil(t, res.Booking)
}

func TestCreate_ValidationFailure(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.svc.Create(context.Background(), request("Gymnasium", "2025-01-01", "10:00", "11:00"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestCreate_SanitizesText(t *testing.T) {
	env := newTestEnv(t, nil)
	req := request(" Auditorium ", "2025-01-01", "10:00", "11:00")
	req.Reason = "  Guest    lecture\t on AI "

	res, err := env.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Auditorium", res.Booking.Hall)
	assert.Equal(t, "Guest lecture on AI", res.Booking.Reason)
}

// ────────────────────────────────────────────────
// Recurrence
// ────────────────────────────────────────────────

func TestCreate_WeeklyRecurrence(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	req := request("Seminar Hall 2", "2025-01-01", "14:00", "15:00")
	req.Recurring = &model.Recurring{Enabled: true, Frequency: model.FrequencyWeekly, Occurrences: 3}

	res, err := env.svc.Create(ctx, req)
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 2)

	assert.Equal(t, "2025-01-01", res.Booking.Date)
	assert.Equal(t, "2025-01-08", res.Occurrences[0].Date)
	assert.Equal(t, "2025-01-15", res.Occurrences[1].Date)
	for _, o := range res.Occurrences {
		assert.Equal(t, res.Booking.ID, o.ParentBookingID)
		assert.NotEqual(t, res.Booking.ID, o.ID)
		require.NotNil(t, o.Recurring)
		assert.True(t, o.Recurring.IsRecurring)
		assert.Equal(t, model.StatusPending, o.Status)
	}

	stored, err := env.bookings.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestCreate_WeeklyRecurrenceSkipsConflictingWeek(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.seed(t, existing("blocker", "Seminar Hall 2", "2025-01-08", "14:30", "16:00", model.StatusApproved))

	req := request("Seminar Hall 2", "2025-01-01", "14:00", "15:00")
	req.Recurring = &model.Recurring{Enabled: true, Frequency: model.FrequencyWeekly, Occurrences: 3}

	res, err := env.svc.Create(ctx, req)
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 1)
	assert.Equal(t, "2025-01-15", res.Occurrences[0].Date)

	entries, err := env.waiting.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries, "skipped occurrences are never queued")
}

func TestExpandRecurring(t *testing.T) {
	base := &model.Booking{ID: "base", Hall: "Auditorium", Date: "2025-01-31", TimeFrom: "09:00", TimeTo: "10:00", Status: model.StatusPending}
	ids := 0
	newID := func() string {
		ids++
		return "occ-" + string(rune('a'+ids))
	}

	tests := []struct {
		name string
		rec  model.Recurring
		want []string
	}{
		{
			name: "daily",
			rec:  model.Recurring{Enabled: true, Frequency: model.FrequencyDaily, Occurrences: 3},
			want: []string{"2025-02-01", "2025-02-02"},
		},
		{
			name: "monthly normalises short months",
			rec:  model.Recurring{Enabled: true, Frequency: model.FrequencyMonthly, Occurrences: 3},
			want: []string{"2025-03-03", "2025-03-31"},
		},
		{
			name: "end date stops the series",
			rec:  model.Recurring{Enabled: true, Frequency: model.FrequencyDaily, Occurrences: 10, EndDate: "2025-02-02"},
			want: []string{"2025-02-01", "2025-02-02"},
		},
		{
			name: "single occurrence",
			rec:  model.Recurring{Enabled: true, Frequency: model.FrequencyWeekly, Occurrences: 1},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandRecurring(base, &tt.rec, []*model.Booking{base}, newID)
			require.NoError(t, err)
			dates := []string{}
			for _, o := range got {
				dates = append(dates, o.Date)
			}
			assert.Equal(t, tt.want, dates)
		})
	}
}

func TestExpandRecurring_ChecksPoolWithoutMutatingIt(t *testing.T) {
	base := &model.Booking{ID: "base", Hall: "Auditorium", Date: "2025-01-01", TimeFrom: "09:00", TimeTo: "10:00", Status: model.StatusPending}
	blocker := &model.Booking{ID: "blocker", Hall: "Auditorium", Date: "2025-01-03", TimeFrom: "08:00", TimeTo: "09:30", Status: model.StatusApproved}
	pool := []*model.Booking{base, blocker}

	got, err := expandRecurring(base, &model.Recurring{Enabled: true, Frequency: model.FrequencyDaily, Occurrences: 4}, pool, func() string { return "x" })
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2025-01-02", got[0].Date)
	assert.Equal(t, "2025-01-04", got[1].Date)
	assert.Len(t, pool, 2, "the caller's pool must not grow")
}

func TestExpandRecurring_UnknownFrequency(t *testing.T) {
	base := &model.Booking{ID: "base", Date: "2025-01-01"}
	_, err := expandRecurring(base, &model.Recurring{Enabled: true, Frequency: "yearly", Occurrences: 2}, nil, func() string { return "x" })
	assert.Error(t, err)
}

// ────────────────────────────────────────────────
// Status transitions and reconciliation
// ────────────────────────────────────────────────

func TestUpdateStatus_StampsFields(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	first, err := env.svc.Create(ctx, request("Auditorium", "2025-01-01", "10:00", "11:00"))
	require.NoError(t, err)
	second, err := env.svc.Create(ctx, request("Auditorium", "2025-01-01", "12:00", "13:00"))
	require.NoError(t, err)

	approved, err := env.svc.Approve(ctx, first.Booking.ID, "admin-1")
	require.NoError(t, err)
	b := approved.Booking
	assert.Equal(t, model.StatusApproved, b.Status)
	assert.Equal(t, "admin-1", b.ApprovedBy)
	require.NotNil(t, b.ApprovedAt)
	assert.True(t, b.UpdatedAt.After(b.CreatedAt))

	rejected, err := env.svc.Reject(ctx, second.Booking.ID, "Hall under maintenance")
	require.NoError(t, err)
	r := rejected.Booking
	assert.Equal(t, model.StatusRejected, r.Status)
	assert.Equal(t, "Hall under maintenance", r.RejectionReason)
	assert.True(t, r.UpdatedAt.After(r.CreatedAt))

	stored, err := env.svc.GetByID(ctx, first.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, stored.Status)
}

func TestUpdateStatus_CancelStampsReasonAndTime(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.seed(t, existing("b1", "Auditorium", "2025-01-01", "10:00", "11:00", model.StatusApproved))

	res, err := env.svc.Cancel(ctx, "b1", "Event postponed")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, res.Booking.Status)
	assert.Equal(t, "Event postponed", res.Booking.CancellationReason)
	assert.NotNil(t, res.Booking.CancelledAt)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.svc.Approve(context.Background(), "missing", "admin-1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestUpdateStatus_TransitionGuard(t *testing.T) {
	tests := []struct {
		name    string
		from    model.BookingStatus
		to      model.BookingStatus
		wantErr bool
	}{
		{"approve pending", model.StatusPending, model.StatusApproved, false},
		{"re-approve approved", model.StatusApproved, model.StatusApproved, false},
		{"approve cancelled", model.StatusCancelled, model.StatusApproved, true},
		{"approve rejected", model.StatusRejected, model.StatusApproved, true},
		{"reject approved", model.StatusApproved, model.StatusRejected, true},
		{"reset to pending", model.StatusApproved, model.StatusPending, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.seed(t, existing("b1", "Auditorium", "2025-01-01", "10:00", "11:00", tt.from))

			_, err := env.svc.UpdateStatus(context.Background(), "b1", tt.to, "", "admin-1")
			if tt.wantErr {
				assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, existing("b1", "Auditorium", "2025-01-01", "10:00", "11:00", model.StatusPending))

	_, err := env.svc.UpdateStatus(context.Background(), "b1", "archived", "", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestWaitingList_NotifiedAfterCancellation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	held, err := env.svc.Create(ctx, request("Seminar Hall 1", "2025-01-01", "10:00", "11:00"))
	require.NoError(t, err)

	req := request("Seminar Hall 1", "2025-01-01", "10:30", "11:30")
	req.UserID = "user-2"
	req.AddToWaitingList = true
	queued, err := env.svc.Create(ctx, req)
	require.NoError(t, err)
	require.True(t, queued.Queued)

	entries, err := env.waiting.Load(ctx)
	require.NoError(t, err)
	entries = append(entries, &model.WaitingListEntry{
		ID: "other-day", Hall: "Seminar Hall 1", Date: "2025-01-02", TimeFrom: "10:00", TimeTo: "11:00", UserID: "user-3",
	})
	require.NoError(t, env.waiting.Save(ctx, entries))

	approved, err := env.svc.Approve(ctx, held.Booking.ID, "admin-1")
	require.NoError(t, err)
	assert.Empty(t, approved.Notified, "the slot is still held after approval")

	cancelled, err := env.svc.Cancel(ctx, held.Booking.ID, "Speaker unavailable")
	require.NoError(t, err)
	require.Len(t, cancelled.Notified, 1)
	assert.Equal(t, queued.WaitingEntry.ID, cancelled.Notified[0].ID)

	mine, err := env.svc.GetWaitingList(ctx, "user-2")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, mine[0].Notified)
	assert.NotNil(t, mine[0].NotifiedAt)

	untouched, err := env.svc.GetWaitingList(ctx, "user-3")
	require.NoError(t, err)
	require.Len(t, untouched, 1)
	assert.False(t, untouched[0].Notified, "reconciliation is scoped to the booking's hall and date")

	bookings, err := env.bookings.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, bookings, 1, "notified entries are never promoted to bookings")
}

func TestProcessWaitingList(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	require.NoError(t, env.waiting.Save(ctx, []*model.WaitingListEntry{
		{ID: "w1", Hall: "Auditorium", Date: "2025-01-01", TimeFrom: "10:00", TimeTo: "11:00", UserID: "u1"},
		{ID: "w2", Hall: "Auditorium", Date: "2025-01-01", TimeFrom: "13:00", TimeTo: "14:00", UserID: "u2"},
		{ID: "w3", Hall: "Auditorium", Date: "2025-01-01", TimeFrom: "15:00", TimeTo: "16:00", UserID: "u3", Notified: true},
	}))
	env.seed(t, existing("b1", "Auditorium", "2025-01-01", "13:00", "14:00", model.StatusApproved))

	notified, err := env.svc.ProcessWaitingList(ctx, "Auditorium", "2025-01-01")
	require.NoError(t, err)
	require.Len(t, notified, 1)
	assert.Equal(t, "w1", notified[0].ID)

	again, err := env.svc.ProcessWaitingList(ctx, "Auditorium", "2025-01-01")
	require.NoError(t, err)
	assert.Empty(t, again, "entries are notified only once")
}

func TestGetWaitingList_NewestFirst(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, env.waiting.Save(ctx, []*model.WaitingListEntry{
		{ID: "old", UserID: "u1", AddedAt: base},
		{ID: "new", UserID: "u1", AddedAt: base.Add(time.Hour)},
		{ID: "other", UserID: "u2", AddedAt: base.Add(2 * time.Hour)},
	}))

	all, err := env.svc.GetWaitingList(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "other", all[0].ID)

	mine, err := env.svc.GetWaitingList(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "new", mine[0].ID)
	assert.Equal(t, "old", mine[1].ID)
}

// ────────────────────────────────────────────────
// Reads: slots, listing, stats, export
// ────────────────────────────────────────────────

func TestGetAvailableSlots_Empty(t *testing.T) {
	env := newTestEnv(t, nil)

	slots, err := env.svc.GetAvailableSlots(context.Background(), "Auditorium", "2025-01-01")
	require.NoError(t, err)
	require.Len(t, slots, 9)
	assert.Equal(t, "09:00", slots[0].From)
	assert.Equal(t, "18:00", slots[8].To)
	for i, s := range slots {
		assert.True(t, s.Available)
		if i > 0 {
			assert.Equal(t, slots[i-1].To, s.From, "slots must be contiguous")
		}
	}
}

func TestGetAvailableSlots_MarksActiveBookings(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t,
		existing("b1", "Auditorium", "2025-01-01", "10:30", "12:00", model.StatusApproved),
		existing("b2", "Auditorium", "2025-01-01", "15:00", "16:00", model.StatusCancelled),
		existing("b3", "Auditorium", "2025-01-01", "17:00", "18:00", model.StatusPending),
	)

	slots, err := env.svc.GetAvailableSlots(context.Background(), "Auditorium", "2025-01-01")
	require.NoError(t, err)

	unavailable := map[string]bool{}
	for _, s := range slots {
		if !s.Available {
			unavailable[s.From] = true
		}
	}
	assert.Equal(t, map[string]bool{"10:00": true, "11:00": true, "17:00": true}, unavailable)
}

func TestList_FiltersAndSorts(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t,
		existing("a", "Auditorium", "2025-01-01", "09:00", "10:00", model.StatusApproved),
		existing("b", "Auditorium", "2025-01-02", "09:00", "10:00", model.StatusPending),
		existing("c", "Auditorium", "2025-01-02", "14:00", "15:00", model.StatusPending),
		existing("d", "Seminar Hall 1", "2025-01-03", "09:00", "10:00", model.StatusPending),
	)

	all, err := env.svc.List(context.Background(), model.BookingFilter{})
	require.NoError(t, err)
	ids := []string{}
	for _, b := range all {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"d", "c", "b", "a"}, ids)

	pending, err := env.svc.List(context.Background(), model.BookingFilter{Hall: "Auditorium", Status: model.StatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestGetBookingStats(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t,
		existing("a", "Auditorium", "2025-01-10", "09:00", "10:00", model.StatusApproved),
		existing("b", "Auditorium", "2025-02-02", "09:00", "10:00", model.StatusPending),
		existing("c", "Seminar Hall 1", "2024-12-31", "14:00", "15:00", model.StatusRejected),
		existing("d", "Seminar Hall 1", "2025-01-03", "09:00", "10:00", model.StatusCancelled),
	)

	filters := []model.BookingFilter{
		{},
		{Hall: "Auditorium"},
		{Status: model.StatusRejected},
		{DateFrom: "2025-01-01", DateTo: "2025-01-31"},
		{UserID: "nobody"},
	}
	for _, f := range filters {
		stats, err := env.svc.GetBookingStats(context.Background(), f)
		require.NoError(t, err)
		assert.Equal(t, stats.Total, stats.Pending+stats.Approved+stats.Rejected+stats.Cancelled, "filter %+v", f)
	}

	stats, err := env.svc.GetBookingStats(context.Background(), model.BookingFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, map[string]int{"Auditorium": 2, "Seminar Hall 1": 2}, stats.ByHall)
	assert.Equal(t, map[string]int{"Civil Engineering": 4}, stats.ByDepartment)
	assert.Equal(t, []model.MonthCount{
		{Key: "2024-12", Label: "December 2024", Count: 1},
		{Key: "2025-01", Label: "January 2025", Count: 2},
		{Key: "2025-02", Label: "February 2025", Count: 1},
	}, stats.ByMonth)
}

func TestExportBookings(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, existing("a", "Auditorium", "2025-01-10", "09:00", "10:00", model.StatusApproved))

	csv, err := env.svc.ExportBookings(context.Background(), model.BookingFilter{}, ExportCSV)
	require.NoError(t, err)
	assert.Equal(t,
		"ID,Hall,Date,Time From,Time To,Department,Status,Reason\n"+
			"a,Auditorium,2025-01-10,09:00,10:00,Civil Engineering,approved,Existing event",
		csv.CSV,
	)

	js, err := env.svc.ExportBookings(context.Background(), model.BookingFilter{}, "")
	require.NoError(t, err)
	assert.Equal(t, ExportJSON, js.Format)
	assert.Len(t, js.Bookings, 1)

	_, err = env.svc.ExportBookings(context.Background(), model.BookingFilter{}, "xlsx")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestClaimDueReminders(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	// The step clock reads 2024-12-01 08:01 on the first call below.
	env.seed(t,
		existing("soon", "Auditorium", "2024-12-01", "09:00", "10:00", model.StatusApproved),
		existing("pending", "Auditorium", "2024-12-01", "09:00", "10:00", model.StatusPending),
		existing("later", "Auditorium", "2024-12-03", "09:00", "10:00", model.StatusApproved),
		existing("past", "Auditorium", "2024-11-30", "09:00", "10:00", model.StatusApproved),
	)

	due, err := env.svc.ClaimDueReminders(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "soon", due[0].ID)
	require.NotNil(t, due[0].ReminderSentAt)
	assert.Equal(t, *due[0].ReminderSentAt, due[0].UpdatedAt, "claiming a reminder is a mutation")

	again, err := env.svc.ClaimDueReminders(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestReleaseReminder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.seed(t, existing("soon", "Auditorium", "2024-12-01", "09:00", "10:00", model.StatusApproved))

	due, err := env.svc.ClaimDueReminders(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, due, 1)
	claimedAt := due[0].UpdatedAt

	require.NoError(t, env.svc.ReleaseReminder(ctx, "soon"))

	stored, err := env.svc.GetByID(ctx, "soon")
	require.NoError(t, err)
	assert.Nil(t, stored.ReminderSentAt)
	assert.True(t, stored.UpdatedAt.After(claimedAt))

	again, err := env.svc.ClaimDueReminders(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, again, 1, "a released reminder is claimed again")

	err = env.svc.ReleaseReminder(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.AsAppError(err).Code)
}

func TestClaimDueReminders_CampusTimezone(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.svc.cfg.Timezone = "Asia/Kolkata"
	// 08:01 UTC is 13:31 in Kolkata. A 14:00 local start is 29 minutes away,
	// a 09:00 local start has already passed.
	env.seed(t,
		existing("afternoon", "Auditorium", "2024-12-01", "14:00", "15:00", model.StatusApproved),
		existing("morning", "Seminar Hall 1", "2024-12-01", "09:00", "10:00", model.StatusApproved),
	)

	due, err := env.svc.ClaimDueReminders(ctx, time.Hour)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "afternoon", due[0].ID)
}

func TestStartTime(t *testing.T) {
	b := existing("b", "Auditorium", "2024-12-01", "14:00", "15:00", model.StatusApproved)
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	start, err := StartTime(b, kolkata)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 1, 8, 30, 0, 0, time.UTC), start.UTC())

	start, err = StartTime(b, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 1, 14, 0, 0, 0, time.UTC), start)
}

// ────────────────────────────────────────────────
// Concurrency
// ────────────────────────────────────────────────

// barrierRepository holds every Load result until two callers have loaded,
// or a short timeout passes, to force two creates to read the same snapshot.
type barrierRepository struct {
	repository.BookingRepository
	mu      sync.Mutex
	arrived int
	ready   chan struct{}
}

func newBarrierRepository(inner repository.BookingRepository) *barrierRepository {
	return &barrierRepository{BookingRepository: inner, ready: make(chan struct{})}
}

// Load reads first and then waits, so both callers hold a snapshot taken
// before either of them saves.
func (r *barrierRepository) Load(ctx context.Context) ([]*model.Booking, error) {
	bookings, err := r.BookingRepository.Load(ctx)

	r.mu.Lock()
	r.arrived++
	if r.arrived == 2 {
		close(r.ready)
	}
	r.mu.Unlock()

	select {
	case <-r.ready:
	case <-time.After(200 * time.Millisecond):
	}
	return bookings, err
}

func raceCreates(t *testing.T, svc *bookingService) []error {
	t.Helper()
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), request("Auditorium", "2025-01-01", "10:00", "11:00"))
		}(i)
	}
	wg.Wait()
	return errs
}

func TestCreate_StaleReadWithoutLock(t *testing.T) {
	env := newTestEnv(t, lock.Noop{})
	env.svc.bookings = newBarrierRepository(env.bookings)

	errs := raceCreates(t, env.svc)

	// Both requests pass conflict detection against the same empty snapshot.
	// This is the documented last-write-wins gap: both callers are told they
	// booked the slot, and the second save overwrites the first.
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])

	stored, err := env.bookings.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestCreate_LockSerialisesCreates(t *testing.T) {
	env := newTestEnv(t, lock.NewMemory(5*time.Second))
	env.svc.bookings = newBarrierRepository(env.bookings)

	errs := raceCreates(t, env.svc)

	conflicts := 0
	for _, err := range errs {
		if err != nil {
			assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "got %v", err)
			conflicts++
		}
	}
	assert.Equal(t, 1, conflicts)

	stored, err := env.bookings.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
