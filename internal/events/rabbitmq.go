package events

import (
	"context"
	"encoding/json"
	"fmt"

	"hallbook/pkg/logger"
	"hallbook/pkg/middleware"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange is the topic exchange events are published to, routed by type.
const Exchange = "hallbook.events"

var bindingKeys = []string{"booking.*", "waiting.*"}

type RabbitPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *logger.Logger
}

func NewRabbitPublisher(url string, log *logger.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	log.Info("Connected to RabbitMQ", "exchange", Exchange)
	return &RabbitPublisher{conn: conn, ch: ch, log: log.Component("rabbitmq-publisher")}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, Exchange, string(ev.Type), false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     ev.ID,
		CorrelationId: middleware.RequestID(ctx),
		Timestamp:     ev.OccurredAt,
		Type:          string(ev.Type),
		Body:          body,
	})
}

func (p *RabbitPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type RabbitSubscriber struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	queue   string
	handler Handler
	log     *logger.Logger
}

func NewRabbitSubscriber(url, queue string, h Handler, log *logger.Logger) (*RabbitSubscriber, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	closeAll := func() {
		_ = ch.Close()
		_ = conn.Close()
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		closeAll()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	for _, key := range bindingKeys {
		if err := ch.QueueBind(q.Name, key, Exchange, false, nil); err != nil {
			closeAll()
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	if err := ch.Qos(8, 0, false); err != nil {
		closeAll()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &RabbitSubscriber{conn: conn, ch: ch, queue: q.Name, handler: h, log: log.Component("rabbitmq-subscriber")}, nil
}

func (s *RabbitSubscriber) Run(ctx context.Context) error {
	deliveries, err := s.ch.ConsumeWithContext(ctx, s.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	s.log.Info("RabbitMQ consumer started", "queue", s.queue)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			s.deliver(ctx, d)
		}
	}
}

func (s *RabbitSubscriber) deliver(ctx context.Context, d amqp.Delivery) {
	ev, err := decodeDelivery(d.Body)
	if err != nil {
		s.log.Error("Dropping malformed event", "routing_key", d.RoutingKey, "error", err)
		_ = d.Nack(false, false)
		return
	}

	if d.CorrelationId != "" {
		ctx = context.WithValue(ctx, middleware.RequestIDKey, d.CorrelationId)
	}
	if err := s.handler.Handle(ctx, ev); err != nil {
		requeue := !d.Redelivered
		s.log.Warn("Failed to handle event",
			"event_id", ev.ID,
			"correlation_id", d.CorrelationId,
			"type", ev.Type,
			"requeue", requeue,
			"error", err,
		)
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}

func decodeDelivery(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, err
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

func (s *RabbitSubscriber) Close() error {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
