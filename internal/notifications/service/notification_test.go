package service

import (
	"context"
	"io"
	"testing"
	"time"

	"hallbook/internal/notifications/repository"
	"hallbook/internal/notifications/validator"
	"hallbook/pkg/config"
	apperrors "hallbook/pkg/errors"
	"hallbook/pkg/logger"
	"hallbook/pkg/model"
	"hallbook/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *notificationService {
	t.Helper()
	cfg := &config.Config{
		Log: logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard}),
	}
	repo := repository.NewNotificationRepository(store.NewMemoryStore())
	svc := NewNotificationService(repo, nil, validator.NewNotificationValidator(cfg.Log), cfg).(*notificationService)

	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return start.Add(time.Duration(tick) * time.Minute)
	}
	return svc
}

var sampleBooking = &model.Booking{ID: "HB-1-ABC", Hall: "Auditorium", Date: "2025-01-15", TimeFrom: "10:00"}

func TestCreate_TemplatedNotification(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	n, err := svc.Create(ctx, BookingApproved("user-1", sampleBooking))
	require.NoError(t, err)

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, model.NotificationBookingApproved, n.Type)
	assert.Equal(t, model.PriorityHigh, n.Priority)
	assert.Equal(t, "Your booking for Auditorium on 2025-01-15 has been approved!", n.Message)
	assert.Equal(t, "HB-1-ABC", n.Data.BookingID)
	assert.False(t, n.Read)
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), &model.NotificationRequest{
		Type:    "party",
		Title:   "x",
		Message: "y",
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestCreate_DefaultsPriority(t *testing.T) {
	svc := newTestService(t)

	req := BookingCreated("user-1", sampleBooking)
	req.Priority = ""
	n, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityNormal, n.Priority)
}

func TestList_NewestFirstAndUnreadFilter(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, BookingCreated("user-1", sampleBooking))
	require.NoError(t, err)
	second, err := svc.Create(ctx, BookingReminder("user-1", sampleBooking))
	require.NoError(t, err)
	_, err = svc.Create(ctx, BookingCreated("user-2", sampleBooking))
	require.NoError(t, err)

	list, err := svc.List(ctx, "user-1", false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	_, err = svc.MarkAsRead(ctx, "user-1", first.ID)
	require.NoError(t, err)

	unread, err := svc.List(ctx, "user-1", true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, second.ID, unread[0].ID)

	count, err := svc.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMarkAsRead(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	n, err := svc.Create(ctx, SlotAvailable("user-1", &model.WaitingListEntry{ID: "WL-1", Hall: "Auditorium", Date: "2025-01-15"}))
	require.NoError(t, err)

	_, err = svc.MarkAsRead(ctx, "user-2", n.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "other users cannot touch the item")

	marked, err := svc.MarkAsRead(ctx, "user-1", n.ID)
	require.NoError(t, err)
	assert.True(t, marked.Read)
	require.NotNil(t, marked.ReadAt)
	readAt := *marked.ReadAt

	again, err := svc.MarkAsRead(ctx, "user-1", n.ID)
	require.NoError(t, err)
	assert.True(t, readAt.Equal(*again.ReadAt), "marking twice keeps the first read time")

	_, err = svc.MarkAsRead(ctx, "user-1", "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestMarkAllAsRead(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, BookingCreated("user-1", sampleBooking))
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, BookingCreated("user-2", sampleBooking))
	require.NoError(t, err)

	updated, err := svc.MarkAllAsRead(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, updated)

	updated, err = svc.MarkAllAsRead(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, updated)

	count, err := svc.UnreadCount(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDeleteAndClearAll(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, BookingRejected("user-1", sampleBooking, "Hall under maintenance"))
	require.NoError(t, err)
	assert.Contains(t, a.Message, "Reason: Hall under maintenance")
	_, err = svc.Create(ctx, BookingCancelled("user-1", sampleBooking, ""))
	require.NoError(t, err)
	_, err = svc.Create(ctx, NewBookingRequest("admin-1", sampleBooking))
	require.NoError(t, err)

	assert.True(t, apperrors.HasCode(svc.Delete(ctx, "user-2", a.ID), apperrors.CodeNotFound))
	require.NoError(t, svc.Delete(ctx, "user-1", a.ID))
	assert.True(t, apperrors.HasCode(svc.Delete(ctx, "user-1", a.ID), apperrors.CodeNotFound))

	deleted, err := svc.ClearAll(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	left, err := svc.List(ctx, "admin-1", false)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, model.NotificationNewBookingRequest, left[0].Type)
}

func TestRequiresOwner(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.List(context.Background(), " ", false)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}
