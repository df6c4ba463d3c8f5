package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	notificationrepo "hallbook/internal/notifications/repository"
	notifications "hallbook/internal/notifications/service"
	notificationvalidator "hallbook/internal/notifications/validator"
	"hallbook/pkg/config"
	apperrors "hallbook/pkg/errors"
	"hallbook/pkg/kafka"
	"hallbook/pkg/logger"
	"hallbook/pkg/model"
	"hallbook/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAdmins []string

func (a staticAdmins) AdminIDs(context.Context) ([]string, error) { return a, nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	fail   map[string]bool
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail[ev.Key()] {
		return errors.New("broker down")
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fakeReminderSource struct {
	due      []*model.Booking
	claimed  map[string]*model.Booking
	released []string
	window   time.Duration
}

func (f *fakeReminderSource) ClaimDueReminders(_ context.Context, window time.Duration) ([]*model.Booking, error) {
	f.window = window
	if f.claimed == nil {
		f.claimed = map[string]*model.Booking{}
	}
	due := f.due
	f.due = nil
	for _, b := range due {
		f.claimed[b.ID] = b
	}
	return due, nil
}

func (f *fakeReminderSource) ReleaseReminder(_ context.Context, id string) error {
	f.released = append(f.released, id)
	if b, ok := f.claimed[id]; ok {
		delete(f.claimed, id)
		f.due = append(f.due, b)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})
}

func newInbox(t *testing.T) notifications.NotificationService {
	t.Helper()
	log := testLogger()
	repo := notificationrepo.NewNotificationRepository(store.NewMemoryStore())
	return notifications.NewNotificationService(repo, nil, notificationvalidator.NewNotificationValidator(log), &config.Config{Log: log})
}

var booking = &model.Booking{
	ID:       "HB-1700000000000-ABCDEFGHI",
	Hall:     "Seminar Hall 2",
	Date:     "2025-02-10",
	TimeFrom: "14:00",
	TimeTo:   "15:00",
	UserID:   "student-1",
	Status:   model.StatusPending,
}

func TestEvent_Validate(t *testing.T) {
	assert.NoError(t, NewBookingEvent(BookingCreated, booking, "", "").Validate())
	assert.NoError(t, NewSlotAvailableEvent(&model.WaitingListEntry{ID: "WL-1"}).Validate())
	assert.Error(t, Event{Type: BookingApproved}.Validate())
	assert.Error(t, Event{Type: SlotAvailable}.Validate())
	assert.ErrorIs(t, Event{Type: "booking.deleted"}.Validate(), ErrUnknownEventType)
}

func TestEvent_Key(t *testing.T) {
	assert.Equal(t, booking.ID, NewBookingEvent(BookingApproved, booking, "", "").Key())
	assert.Equal(t, "WL-9", NewSlotAvailableEvent(&model.WaitingListEntry{ID: "WL-9"}).Key())
}

func TestNotifier_BookingCreatedNotifiesOwnerAndAdmins(t *testing.T) {
	inbox := newInbox(t)
	n := NewNotifier(inbox, staticAdmins{"admin-1", "admin-2"}, testLogger())
	ctx := context.Background()

	require.NoError(t, n.Handle(ctx, NewBookingEvent(BookingCreated, booking, booking.UserID, "")))

	own, err := inbox.List(ctx, "student-1", false)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, model.NotificationBookingCreated, own[0].Type)

	for _, admin := range []string{"admin-1", "admin-2"} {
		items, err := inbox.List(ctx, admin, false)
		require.NoError(t, err)
		require.Len(t, items, 1, admin)
		assert.Equal(t, model.NotificationNewBookingRequest, items[0].Type)
		assert.Equal(t, booking.ID, items[0].Data.BookingID)
	}
}

func TestNotifier_StatusEvents(t *testing.T) {
	tests := []struct {
		name     string
		event    Event
		wantType model.NotificationType
		wantNone bool
	}{
		{"approved", NewBookingEvent(BookingApproved, booking, "admin-1", ""), model.NotificationBookingApproved, false},
		{"rejected", NewBookingEvent(BookingRejected, booking, "admin-1", "Clash with exams"), model.NotificationBookingRejected, false},
		{"cancelled by admin", NewBookingEvent(BookingCancelled, booking, "admin-1", "Maintenance"), model.NotificationBookingCancelled, false},
		{"cancelled by owner", NewBookingEvent(BookingCancelled, booking, "student-1", ""), "", true},
		{"reminder", NewBookingEvent(BookingReminder, booking, "", ""), model.NotificationBookingReminder, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inbox := newInbox(t)
			n := NewNotifier(inbox, staticAdmins{}, testLogger())
			ctx := context.Background()

			require.NoError(t, n.Handle(ctx, tt.event))

			items, err := inbox.List(ctx, "student-1", false)
			require.NoError(t, err)
			if tt.wantNone {
				assert.Empty(t, items)
				return
			}
			require.Len(t, items, 1)
			assert.Equal(t, tt.wantType, items[0].Type)
		})
	}
}

func TestNotifier_RejectedMessageCarriesReason(t *testing.T) {
	inbox := newInbox(t)
	n := NewNotifier(inbox, staticAdmins{}, testLogger())
	ctx := context.Background()

	require.NoError(t, n.Handle(ctx, NewBookingEvent(BookingRejected, booking, "admin-1", "Clash with exams")))

	items, err := inbox.List(ctx, "student-1", false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Your booking for Seminar Hall 2 on 2025-02-10 was rejected. Reason: Clash with exams", items[0].Message)
}

func TestNotifier_SlotAvailable(t *testing.T) {
	inbox := newInbox(t)
	n := NewNotifier(inbox, staticAdmins{}, testLogger())
	ctx := context.Background()

	entry := &model.WaitingListEntry{ID: "WL-1", Hall: "Auditorium", Date: "2025-02-11", UserID: "faculty-1"}
	require.NoError(t, n.Handle(ctx, NewSlotAvailableEvent(entry)))

	items, err := inbox.List(ctx, "faculty-1", false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.NotificationSlotAvailable, items[0].Type)
	assert.Equal(t, model.PriorityHigh, items[0].Priority)
	assert.Equal(t, "WL-1", items[0].Data.WaitingListID)
}

func TestInProcessPublisher(t *testing.T) {
	var got []Event
	p := NewInProcessPublisher(HandlerFunc(func(_ context.Context, ev Event) error {
		got = append(got, ev)
		return nil
	}))

	require.NoError(t, p.Publish(context.Background(), NewBookingEvent(BookingApproved, booking, "", "")))
	assert.Error(t, p.Publish(context.Background(), Event{Type: BookingApproved}))
	require.Len(t, got, 1)
	assert.Equal(t, BookingApproved, got[0].Type)
}

func TestReminderScanner_ScanOnce(t *testing.T) {
	due := []*model.Booking{
		{ID: "HB-1", UserID: "u1", Hall: "Auditorium", Date: "2025-02-10", TimeFrom: "10:00"},
		{ID: "HB-2", UserID: "u2", Hall: "Auditorium", Date: "2025-02-10", TimeFrom: "11:00"},
	}
	source := &fakeReminderSource{due: due}
	pub := &recordingPublisher{fail: map[string]bool{"HB-2": true}}
	scanner := NewReminderScanner(source, pub, 24*time.Hour, time.Minute, testLogger())

	sent, err := scanner.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 24*time.Hour, source.window)
	require.Len(t, pub.events, 1)
	assert.Equal(t, BookingReminder, pub.events[0].Type)
	assert.Equal(t, "HB-1", pub.events[0].Booking.ID)
	assert.Equal(t, []string{"HB-2"}, source.released, "failed reminders are released")

	pub.mu.Lock()
	delete(pub.fail, "HB-2")
	pub.mu.Unlock()

	sent, err = scanner.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent, "released reminder is retried on the next scan")
	require.Len(t, pub.events, 2)
	assert.Equal(t, "HB-2", pub.events[1].Booking.ID)

	sent, err = scanner.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent, "delivered reminders are not sent twice")
}

func TestReminderScanner_RunStopsOnCancel(t *testing.T) {
	source := &fakeReminderSource{}
	scanner := NewReminderScanner(source, &recordingPublisher{}, time.Hour, 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		scanner.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scanner did not stop after cancellation")
	}
}

func TestKafkaMessage(t *testing.T) {
	ev := NewBookingEvent(BookingApproved, booking, "admin-1", "")

	msg, err := toMessage(ev, "req-7")
	require.NoError(t, err)
	assert.Equal(t, booking.ID, msg.Key)
	assert.Equal(t, "req-7", msg.GetCorrelationID())
	assert.Equal(t, ev.ID, msg.GetEventID())
	assert.Equal(t, string(BookingApproved), msg.GetEventType())

	decoded, err := fromMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, decoded.ID)
	assert.Equal(t, "admin-1", decoded.ActorID)
	assert.Equal(t, booking.Hall, decoded.Booking.Hall)

	_, err = fromMessage(kafka.Message{Value: []byte("{")})
	require.Error(t, err)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))

	_, err = toMessage(Event{Type: "booking.deleted"}, "")
	assert.Error(t, err)
}

func TestDecodeDelivery(t *testing.T) {
	_, err := decodeDelivery([]byte(`{"id":"e1","type":"booking.approved"}`))
	assert.Error(t, err, "approved events need a booking")

	ev, err := decodeDelivery([]byte(`{"id":"e1","type":"waiting.slot_available","entry":{"id":"WL-1","user_id":"u1"}}`))
	require.NoError(t, err)
	assert.Equal(t, "WL-1", ev.Entry.ID)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.Equal(t, kafka.ErrorTypeTransient, kafka.ClassifyError(classify(apperrors.Internal("store down", errors.New("io")))))
	assert.Equal(t, kafka.ErrorTypeTransient, kafka.ClassifyError(classify(apperrors.Timeout("lock"))))
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(classify(apperrors.Validation("bad", nil))))
}
