package bootstrap

import (
	"fmt"

	bookinghandler "hallbook/internal/bookings/handler"
	bookingrepo "hallbook/internal/bookings/repository"
	bookings "hallbook/internal/bookings/service"
	bookingvalidator "hallbook/internal/bookings/validator"
	"hallbook/internal/events"
	identityhandler "hallbook/internal/identity/handler"
	identityrepo "hallbook/internal/identity/repository"
	identity "hallbook/internal/identity/service"
	identityvalidator "hallbook/internal/identity/validator"
	notificationhandler "hallbook/internal/notifications/handler"
	notificationrepo "hallbook/internal/notifications/repository"
	notifications "hallbook/internal/notifications/service"
	notificationvalidator "hallbook/internal/notifications/validator"
	"hallbook/pkg/config"
	"hallbook/pkg/contracts"
	"hallbook/pkg/lock"
	"hallbook/pkg/store"
)

// Services is the domain layer shared by every binary, built on one store
// and one locker.
type Services struct {
	Store         store.Store
	Identity      identity.IdentityService
	Bookings      bookings.BookingService
	Notifications notifications.NotificationService
}

func NewServices(cfg *config.Config) (*Services, error) {
	st, err := store.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create store (%s): %w", cfg.StoreBackend, err)
	}
	locker, err := lock.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create locker (%s): %w", cfg.LockBackend, err)
	}

	identityService, err := identity.NewIdentityService(
		identityrepo.NewUserRepository(st),
		identityrepo.NewSessionRepository(st),
		identityrepo.NewResetTokenRepository(st),
		locker,
		identityvalidator.NewIdentityValidator(cfg.Log),
		cfg,
	)
	if err != nil {
		return nil, fmt.Errorf("create identity service: %w", err)
	}

	bookingService := bookings.NewBookingService(
		bookingrepo.NewBookingRepository(st),
		bookingrepo.NewWaitingListRepository(st),
		st,
		locker,
		bookingvalidator.NewBookingValidator(cfg.Log),
		cfg,
	)

	notificationService := notifications.NewNotificationService(
		notificationrepo.NewNotificationRepository(st),
		locker,
		notificationvalidator.NewNotificationValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Services initialized",
		"store", cfg.StoreBackend,
		"lock", cfg.LockBackend,
		"events", cfg.EventsBackend,
	)
	return &Services{
		Store:         st,
		Identity:      identityService,
		Bookings:      bookingService,
		Notifications: notificationService,
	}, nil
}

// Notifier delivers events into user inboxes.
func (s *Services) Notifier(cfg *config.Config) *events.Notifier {
	return events.NewNotifier(s.Notifications, s.Identity, cfg.Log)
}

// Handlers returns the HTTP surface in registration order.
func (s *Services) Handlers(cfg *config.Config, publisher events.Publisher) []contracts.Handler {
	return []contracts.Handler{
		identityhandler.NewIdentityHandler(s.Identity, cfg.Log),
		bookinghandler.NewBookingHandler(s.Bookings, publisher, s.Identity, cfg.Log),
		notificationhandler.NewNotificationHandler(s.Notifications, s.Identity, cfg.Log),
	}
}
