package events

import (
	"context"
	"fmt"

	"hallbook/pkg/config"
)

type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

type HandlerFunc func(ctx context.Context, ev Event) error

func (f HandlerFunc) Handle(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Subscriber delivers broker events to a Handler until ctx ends.
type Subscriber interface {
	Run(ctx context.Context) error
	Close() error
}

// InProcessPublisher hands events straight to the handler on the caller's
// goroutine.
type InProcessPublisher struct {
	handler Handler
}

func NewInProcessPublisher(h Handler) *InProcessPublisher {
	return &InProcessPublisher{handler: h}
}

func (p *InProcessPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	return p.handler.Handle(ctx, ev)
}

func (p *InProcessPublisher) Close() error { return nil }

// NewPublisher picks the transport named by EVENTS_BACKEND. local is only
// used by the in-process transport.
func NewPublisher(cfg *config.Config, local Handler) (Publisher, error) {
	switch cfg.EventsBackend {
	case config.EventsInProcess:
		return NewInProcessPublisher(local), nil
	case config.EventsKafka:
		return NewKafkaPublisher(cfg)
	case config.EventsRabbitMQ:
		return NewRabbitPublisher(cfg.RabbitMQURL, cfg.Log)
	default:
		return nil, fmt.Errorf("unsupported events backend: %s", cfg.EventsBackend)
	}
}

func NewSubscriber(cfg *config.Config, h Handler) (Subscriber, error) {
	switch cfg.EventsBackend {
	case config.EventsKafka:
		return NewKafkaSubscriber(cfg, h)
	case config.EventsRabbitMQ:
		return NewRabbitSubscriber(cfg.RabbitMQURL, cfg.RabbitMQQueue, h, cfg.Log)
	default:
		return nil, fmt.Errorf("events backend %s has no broker to subscribe to", cfg.EventsBackend)
	}
}
