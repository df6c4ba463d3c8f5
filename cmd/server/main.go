package main

import (
	"context"

	"hallbook/internal/bootstrap"
	"hallbook/internal/events"
	"hallbook/pkg/app"
	"hallbook/pkg/config"
)

const ServiceName = "hallbook-server"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Connect()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting hall booking server")
	svc, err := bootstrap.NewServices(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize services", "error", err)
	}

	if err := svc.Identity.EnsureAdmin(context.Background()); err != nil {
		cfg.Log.Fatal("Failed to bootstrap admin user", "error", err)
	}

	publisher, err := events.NewPublisher(cfg, svc.Notifier(cfg))
	if err != nil {
		cfg.Log.Fatal("Failed to create event publisher", "backend", cfg.EventsBackend, "error", err)
	}

	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown("event publisher", publisher.Close)

	// With a broker the notifier process owns reminders.
	if cfg.EventsBackend == config.EventsInProcess {
		scanner := events.NewReminderScanner(svc.Bookings, publisher, cfg.ReminderWindow, cfg.ReminderInterval, cfg.Log)
		go scanner.Run(serverApp.Context())
	}

	serverApp.SetApp(svc.Store, svc.Handlers(cfg, publisher)...)
	serverApp.Run()
}
