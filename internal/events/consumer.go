// internal/events/consumer.go
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"carelink-workers/internal/common/config"
	"carelink-workers/internal/common/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer receives change events from the topic exchange and invokes the
// handlers. Each event type is bound as its own routing key. Events that
// fail schema validation are acked and dropped so a poison message cannot
// wedge the queue; handler failures are nacked without requeue and left to
// the broker's redelivery policy.
type Consumer struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queue     string
	handlers  *Handlers
	logger    logger.Logger
	closeChan chan struct{}
}

func NewConsumer(cfg config.MessagingConfig, handlers *Handlers, log logger.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		cfg.Queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, eventType := range EventTypes() {
		if err := ch.QueueBind(cfg.Queue, eventType, cfg.Exchange, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("failed to bind %s: %w", eventType, err)
		}
	}

	return &Consumer{
		conn:      conn,
		channel:   ch,
		queue:     cfg.Queue,
		handlers:  handlers,
		logger:    log.WithFields(map[string]interface{}{"component": "event-consumer"}),
		closeChan: make(chan struct{}),
	}, nil
}

// Start begins consuming in the background until the context is cancelled or
// the consumer is closed.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.closeChan:
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				c.handle(ctx, d)
			}
		}
	}()

	c.logger.Info("event consumer started", map[string]interface{}{"queue": c.queue})
	return nil
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	eventType := d.RoutingKey

	if err := ValidateEnvelope(eventType, d.Body); err != nil {
		c.logger.Error("dropping invalid event", map[string]interface{}{
			"eventType": eventType,
			"error":     err.Error(),
		})
		_ = d.Ack(false)
		return
	}

	var err error
	switch eventType {
	case TypeSubscriptionUpdated:
		var ev SubscriptionChange
		if err = json.Unmarshal(d.Body, &ev); err == nil {
			err = c.handlers.OnSubscriptionStatusChange(ctx, ev.Before, ev.After)
		}
	case TypeChatMessageCreated:
		var ev ChatMessageEvent
		if err = json.Unmarshal(d.Body, &ev); err == nil {
			err = c.handlers.OnChatMessageCreated(ctx, ev.Message, ev.ChatID)
		}
	case TypeHealthRecordCreated:
		var ev HealthRecordEvent
		if err = json.Unmarshal(d.Body, &ev); err == nil {
			err = c.handlers.OnHealthRecordCreated(ctx, ev.Record, ev.PatientID)
		}
	}

	if err != nil {
		c.logger.Error("event handling failed", map[string]interface{}{
			"eventType": eventType,
			"error":     err.Error(),
		})
		_ = d.Nack(false, false) // redelivery is the broker's policy
		return
	}

	_ = d.Ack(false)
}

// Close stops the delivery loop and tears down the connection.
func (c *Consumer) Close() error {
	close(c.closeChan)
	if err := c.channel.Close(); err != nil {
		_ = c.conn.Close()
		return err
	}
	return c.conn.Close()
}
