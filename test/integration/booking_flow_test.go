package integration

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"hallbook/pkg/client"
	"hallbook/pkg/middleware"
	"hallbook/pkg/model"
	"hallbook/test/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ServiceName = "hallbook-integration-tests"

// uniqueDate keeps runs against a shared server from colliding on slots.
func uniqueDate(offsetDays int) string {
	days := int(time.Now().UnixNano()%300) + offsetDays
	return time.Now().AddDate(1, 0, days).Format("2006-01-02")
}

type createResult struct {
	Booking *model.Booking `json:"booking"`
	Queued  bool           `json:"queued"`
}

type statusResult struct {
	Booking  *model.Booking            `json:"booking"`
	Notified []*model.WaitingListEntry `json:"notified"`
}

func bookingRequest(hall, date, from, to string) *model.BookingRequest {
	return &model.BookingRequest{
		Hall:       hall,
		Date:       date,
		TimeFrom:   from,
		TimeTo:     to,
		Department: "Computer Science",
		Reason:     "Integration test lecture",
	}
}

func createBooking(t *testing.T, actor *common.Actor, req *model.BookingRequest) *model.Booking {
	t.Helper()
	resp, err := actor.Bookings.Create(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.String())
	var result createResult
	require.NoError(t, resp.DecodeData(&result))
	require.NotNil(t, result.Booking)
	return result.Booking
}

func TestBookingLifecycle(t *testing.T) {
	s := common.NewIntegrationTestSuite(t, ServiceName)
	student := common.RegisterActor(t, s, model.RoleStudent)
	faculty := common.RegisterActor(t, s, model.RoleFaculty)
	admin := common.LoginAdmin(t, s)

	date := uniqueDate(0)
	req := bookingRequest("Auditorium", date, "10:00", "11:00")
	booking := createBooking(t, student, req)
	assert.Equal(t, student.User.ID, booking.UserID)
	assert.Equal(t, model.StatusPending, booking.Status)

	t.Run("overlapping request is rejected", func(t *testing.T) {
		resp, err := faculty.Bookings.Create(bookingRequest("Auditorium", date, "10:30", "11:30"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "CONFLICT", client.GetErrorCode(resp))
	})

	t.Run("conflict check reports the holder", func(t *testing.T) {
		resp, err := faculty.Bookings.CheckConflict("Auditorium", date, "10:30", "11:30")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Conflict bool           `json:"conflict"`
			Booking  *model.Booking `json:"booking"`
		}
		require.NoError(t, resp.DecodeData(&body))
		assert.True(t, body.Conflict)
		assert.Equal(t, booking.ID, body.Booking.ID)
	})

	t.Run("other users cannot read the booking", func(t *testing.T) {
		resp, err := faculty.Bookings.GetByID(booking.ID)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp, err = student.Bookings.GetByID(booking.ID)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		own, err := student.Bookings.DecodeBooking(resp)
		require.NoError(t, err)
		assert.Equal(t, booking.ID, own.ID)
		assert.Equal(t, "10:00", own.TimeFrom)
	})

	queued := bookingRequest("Auditorium", date, "10:00", "11:00")
	queued.AddToWaitingList = true
	resp, err := faculty.Bookings.Create(queued)
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, resp.String())
	var queuedResult createResult
	require.NoError(t, resp.DecodeData(&queuedResult))
	assert.True(t, queuedResult.Queued)

	resp, err = student.Bookings.Approve(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "students cannot approve")

	resp, err = admin.Bookings.Approve(booking.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.String())
	var approved statusResult
	require.NoError(t, resp.DecodeData(&approved))
	assert.Equal(t, model.StatusApproved, approved.Booking.Status)
	assert.Equal(t, admin.User.ID, approved.Booking.ApprovedBy)

	assert.ElementsMatch(t,
		[]model.NotificationType{model.NotificationBookingCreated, model.NotificationBookingApproved},
		common.NotificationTypes(t, student))
	assert.Contains(t, common.NotificationTypes(t, admin), model.NotificationNewBookingRequest)

	resp, err = student.Bookings.Cancel(booking.ID, "Lecture moved online")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.String())
	var cancelled statusResult
	require.NoError(t, resp.DecodeData(&cancelled))
	assert.Equal(t, model.StatusCancelled, cancelled.Booking.Status)
	require.Len(t, cancelled.Notified, 1)
	assert.Equal(t, faculty.User.ID, cancelled.Notified[0].UserID)

	assert.Contains(t, common.NotificationTypes(t, faculty), model.NotificationSlotAvailable)
	assert.NotContains(t, common.NotificationTypes(t, student), model.NotificationBookingCancelled,
		"owners are not told about their own cancellation")

	resp, err = faculty.Bookings.WaitingList()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.Body), `"notified":true`)

	resp, err = faculty.Bookings.Create(bookingRequest("Auditorium", date, "10:00", "11:00"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "the freed slot can be booked")
}

func TestRejectionReachesOwner(t *testing.T) {
	s := common.NewIntegrationTestSuite(t, ServiceName)
	student := common.RegisterActor(t, s, model.RoleStudent)
	admin := common.LoginAdmin(t, s)

	booking := createBooking(t, student, bookingRequest("Seminar Hall 1", uniqueDate(1), "14:00", "15:00"))

	resp, err := admin.Bookings.Reject(booking.ID, "Hall under maintenance")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.String())

	resp, err = admin.Bookings.Approve(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "rejected bookings stay rejected")

	resp, err = student.Notifications.List(true)
	require.NoError(t, err)
	items, err := student.Notifications.DecodeNotifications(resp)
	require.NoError(t, err)
	var rejection *model.Notification
	for _, n := range items {
		if n.Type == model.NotificationBookingRejected {
			rejection = n
		}
	}
	require.NotNil(t, rejection)
	assert.Contains(t, rejection.Message, "Hall under maintenance")
	assert.Equal(t, booking.ID, rejection.Data.BookingID)
}

func TestListingAndReports(t *testing.T) {
	s := common.NewIntegrationTestSuite(t, ServiceName)
	student := common.RegisterActor(t, s, model.RoleStudent)
	other := common.RegisterActor(t, s, model.RoleStudent)
	admin := common.LoginAdmin(t, s)

	date := uniqueDate(2)
	mine := createBooking(t, student, bookingRequest("Seminar Hall 2", date, "09:00", "10:00"))
	createBooking(t, other, bookingRequest("Seminar Hall 2", date, "11:00", "12:00"))

	resp, err := student.Bookings.List(model.BookingFilter{Date: date}, 10, 0)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	bookings, err := student.Bookings.DecodeBookings(resp)
	require.NoError(t, err)
	require.Len(t, bookings, 1, "students only see their own bookings")
	assert.Equal(t, mine.ID, bookings[0].ID)

	resp, err = admin.Bookings.List(model.BookingFilter{Hall: "Seminar Hall 2", Date: date}, 10, 0)
	require.NoError(t, err)
	bookings, err = admin.Bookings.DecodeBookings(resp)
	require.NoError(t, err)
	assert.Len(t, bookings, 2)

	resp, err = student.Bookings.Slots("Seminar Hall 2", date)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var slots []model.Slot
	require.NoError(t, resp.DecodeData(&slots))
	assert.NotEmpty(t, slots)

	resp, err = student.Bookings.Stats(model.BookingFilter{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = admin.Bookings.Stats(model.BookingFilter{Date: date})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats model.BookingStats
	require.NoError(t, resp.DecodeData(&stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Pending)

	resp, err = admin.Bookings.Export(model.BookingFilter{Date: date}, "csv")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	lines := strings.Split(strings.TrimSpace(string(resp.Body)), "\n")
	assert.Len(t, lines, 3, "header plus one row per booking")
}

func TestIdempotentCreate(t *testing.T) {
	s := common.NewIntegrationTestSuite(t, ServiceName)
	student := common.RegisterActor(t, s, model.RoleStudent)
	headers := map[string]string{middleware.IdempotencyHeader: fmt.Sprintf("create-%d", time.Now().UnixNano())}
	req := bookingRequest("Seminar Hall 3", uniqueDate(3), "15:00", "16:00")

	first, err := student.HTTP.POSTWithHeaders("/api/v1/bookings", req, headers)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, first.StatusCode, first.String())

	second, err := student.HTTP.POSTWithHeaders("/api/v1/bookings", req, headers)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, second.StatusCode)
	assert.Equal(t, "true", second.Header.Get("Idempotent-Replayed"))
	assert.Equal(t, string(first.Body), string(second.Body))
}
