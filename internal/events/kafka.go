package events

import (
	"context"
	"encoding/json"
	"fmt"

	"hallbook/pkg/config"
	apperrors "hallbook/pkg/errors"
	"hallbook/pkg/kafka"
	kafka_middleware "hallbook/pkg/kafka/middleware"
	"hallbook/pkg/logger"
	"hallbook/pkg/middleware"
)

const (
	schemaVersion = "1"
	sourceServer  = "hallbook-server"
)

type KafkaPublisher struct {
	producer *kafka.Producer
	metrics  *kafka_middleware.Metrics
	log      *logger.Logger
}

func NewKafkaPublisher(cfg *config.Config) (*KafkaPublisher, error) {
	if cfg.Kafka == nil {
		return nil, fmt.Errorf("kafka configuration is not loaded")
	}

	producer, err := kafka.NewProducer(cfg.Kafka, cfg.Log, cfg.KafkaTopic, cfg.Kafka.DLQTopic(cfg.KafkaTopic))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	metrics := &kafka_middleware.Metrics{}
	if cfg.Kafka.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(metrics.ProducerMiddleware())
	}

	return &KafkaPublisher{producer: producer, metrics: metrics, log: cfg.Log.Component("kafka-publisher")}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	msg, err := toMessage(ev, middleware.RequestID(ctx))
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	p.metrics.Log(p.log)
	return p.producer.Close()
}

// toMessage carries correlationID, usually the id of the HTTP request that
// caused the event, so notifier logs can be joined with server logs.
func toMessage(ev Event, correlationID string) (kafka.Message, error) {
	if err := ev.Validate(); err != nil {
		return kafka.Message{}, kafka.NewPermanentError("invalid event", err)
	}
	return kafka.NewMessage().
		WithKey(ev.Key()).
		WithValue(ev).
		WithEventID(ev.ID).
		WithEventType(string(ev.Type)).
		WithCorrelationID(correlationID).
		WithSchemaVersion(schemaVersion).
		WithSource(sourceServer).
		Build()
}

func fromMessage(msg kafka.Message) (Event, error) {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return Event{}, kafka.NewPermanentError("failed to decode event", err)
	}
	if err := ev.Validate(); err != nil {
		return Event{}, kafka.NewPermanentError("invalid event", err)
	}
	return ev, nil
}

type KafkaSubscriber struct {
	consumer *kafka.Consumer
	metrics  *kafka_middleware.Metrics
	log      *logger.Logger
}

func NewKafkaSubscriber(cfg *config.Config, h Handler) (*KafkaSubscriber, error) {
	if cfg.Kafka == nil {
		return nil, fmt.Errorf("kafka configuration is not loaded")
	}

	consumer, err := kafka.NewConsumer(cfg.Kafka, cfg.Log, cfg.KafkaTopic, cfg.KafkaGroupID, cfg.Kafka.DLQTopic(cfg.KafkaTopic), kafkaHandler(h))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	metrics := &kafka_middleware.Metrics{}
	if cfg.Kafka.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(metrics.ConsumerMiddleware())
	}

	return &KafkaSubscriber{consumer: consumer, metrics: metrics, log: cfg.Log.Component("kafka-subscriber")}, nil
}

func (s *KafkaSubscriber) Run(ctx context.Context) error {
	return s.consumer.Start(ctx)
}

func (s *KafkaSubscriber) Close() error {
	s.metrics.Log(s.log)
	return s.consumer.Close()
}

func kafkaHandler(h Handler) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		ev, err := fromMessage(msg)
		if err != nil {
			return err
		}
		if id := msg.GetCorrelationID(); id != "" {
			ctx = context.WithValue(ctx, middleware.RequestIDKey, id)
		}
		return classify(h.Handle(ctx, ev))
	}
}

// classify marks store and lock failures as retryable. Everything else is
// parked in the DLQ.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case apperrors.HasCode(err, apperrors.CodeInternal),
		apperrors.HasCode(err, apperrors.CodeTimeout),
		apperrors.HasCode(err, apperrors.CodeConflict),
		apperrors.HasCode(err, apperrors.CodeUnavailable):
		return kafka.NewTransientError("notification delivery failed", err)
	default:
		return kafka.NewPermanentError("notification delivery failed", err)
	}
}
