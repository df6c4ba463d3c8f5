package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"hallbook/internal/bootstrap"
	"hallbook/internal/events"
	"hallbook/pkg/config"
)

const ServiceName = "hallbook-notifier"

// The notifier turns broker events into inbox items and emits booking
// reminders. It has no work to do with the in-process transport, where the
// server handles both.
func main() {
	cfg := config.Load(ServiceName)
	if cfg.EventsBackend == config.EventsInProcess {
		cfg.Log.Fatal("The notifier needs EVENTS_BACKEND=kafka or rabbitmq")
	}
	cfg.Connect()
	defer cfg.GracefulShutdown()

	svc, err := bootstrap.NewServices(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize services", "error", err)
	}

	subscriber, err := events.NewSubscriber(cfg, svc.Notifier(cfg))
	if err != nil {
		cfg.Log.Fatal("Failed to create event subscriber", "backend", cfg.EventsBackend, "error", err)
	}
	defer closeWithLog(cfg, "event subscriber", subscriber.Close)

	publisher, err := events.NewPublisher(cfg, nil)
	if err != nil {
		cfg.Log.Fatal("Failed to create event publisher", "backend", cfg.EventsBackend, "error", err)
	}
	defer closeWithLog(cfg, "event publisher", publisher.Close)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner := events.NewReminderScanner(svc.Bookings, publisher, cfg.ReminderWindow, cfg.ReminderInterval, cfg.Log)
	go scanner.Run(ctx)

	cfg.Log.Info("Notifier started", "backend", cfg.EventsBackend)
	if err := subscriber.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Event subscriber stopped with error", "error", err)
	}
	cfg.Log.Info("Notifier stopped")
}

func closeWithLog(cfg *config.Config, name string, fn func() error) {
	if err := fn(); err != nil {
		cfg.Log.Error("Failed to close "+name, "error", err)
	}
}
