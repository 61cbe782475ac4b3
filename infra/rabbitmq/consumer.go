package rabbitmq

import (
	"auctions/pkg/events"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	defaultPrefetchCount = 10
	processTimeout       = 30 * time.Second
)

// EventHandler is a function that processes events
type EventHandler func(ctx context.Context, event *events.Event) error

type Consumer struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	queueName   string
	serviceName string
	workers     int

	inFlight  atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
}

type ConsumerConfig struct {
	Exchange       string   // e.g., "auctions.listing"
	QueueName      string   // e.g., "auctions.summary.v1"
	RoutingKeys    []string // e.g., ["bid.accepted.v1"]
	ServiceName    string   // consumer tag
	PrefetchCount  int      // 0 = default prefetch
	WorkerPoolSize int      // concurrent handlers, 0 = 1
}

// PoolStats is a snapshot of the consumer's worker pool.
type PoolStats struct {
	Workers   int
	InFlight  int64
	Processed int64
	Failed    int64
}

func NewConsumer(url string, config ConsumerConfig) (*Consumer, error) {
	conn, err := dial(url)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		closeAll(nil, conn)
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	prefetchCount := config.PrefetchCount
	if prefetchCount == 0 {
		prefetchCount = defaultPrefetchCount
	}
	if err := channel.Qos(prefetchCount, 0, false); err != nil {
		closeAll(channel, conn)
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	if err := declareTopology(channel, config); err != nil {
		closeAll(channel, conn)
		return nil, err
	}

	zap.L().Info("RabbitMQ consumer created successfully",
		zap.String("queue", config.QueueName),
		zap.String("exchange", config.Exchange),
		zap.Strings("routingKeys", config.RoutingKeys),
		zap.Int("workers", max(config.WorkerPoolSize, 1)),
	)

	return &Consumer{
		conn:        conn,
		channel:     channel,
		queueName:   config.QueueName,
		serviceName: config.ServiceName,
		workers:     max(config.WorkerPoolSize, 1),
	}, nil
}

// declareTopology declares the exchange, the queue and a dead letter queue
// that receives every message rejected by a handler.
func declareTopology(ch *amqp.Channel, config ConsumerConfig) error {
	if err := declareTopicExchange(ch, config.Exchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	dlxName := config.Exchange + ".dlx"
	if err := declareTopicExchange(ch, dlxName); err != nil {
		return fmt.Errorf("failed to declare DLX: %w", err)
	}

	queue, err := ch.QueueDeclare(config.QueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": dlxName,
	})
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	dlqName := config.QueueName + ".dlq"
	if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	for _, routingKey := range config.RoutingKeys {
		if err := ch.QueueBind(dlqName, routingKey, dlxName, false, nil); err != nil {
			return fmt.Errorf("failed to bind DLQ: %w", err)
		}
		if err := ch.QueueBind(queue.Name, routingKey, config.Exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue: %w", err)
		}
	}

	return nil
}

// Consume delivers messages to handler on the worker pool until ctx is
// cancelled or the broker closes the channel.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	msgs, err := c.channel.Consume(
		c.queueName,
		c.serviceName, // consumer tag
		false,         // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	zap.L().Info("Started consuming messages", zap.String("queue", c.queueName), zap.Int("workers", c.workers))

	return c.run(ctx, msgs, handler)
}

func (c *Consumer) run(ctx context.Context, msgs <-chan amqp.Delivery, handler EventHandler) error {
	jobs := make(chan amqp.Delivery)
	var wg sync.WaitGroup

	for i := 0; i < max(c.workers, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range jobs {
				c.handleMessage(ctx, msg, handler)
			}
		}()
	}

	defer func() {
		close(jobs)
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Consumer context cancelled, stopping...")
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				zap.L().Warn("Message channel closed")
				return errors.New("message channel closed")
			}

			select {
			case jobs <- msg:
			case <-ctx.Done():
				_ = msg.Nack(false, true)
				return ctx.Err()
			}
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery, handler EventHandler) {
	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)

	traceID, _ := msg.Headers["x-trace-id"].(string)
	correlationID, _ := msg.Headers["x-correlation-id"].(string)
	service, _ := msg.Headers["x-service"].(string)

	zap.L().Debug("Received message",
		zap.String("queue", c.queueName),
		zap.String("routingKey", msg.RoutingKey),
		zap.String("traceId", traceID),
		zap.String("correlationId", correlationID),
		zap.String("sourceService", service),
	)

	var event events.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		zap.L().Error("Failed to unmarshal event",
			zap.Error(err),
			zap.String("traceId", traceID),
		)
		c.failed.Add(1)
		// malformed messages go to the DLQ
		_ = msg.Nack(false, false)
		return
	}

	processCtx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	if err := handler(processCtx, &event); err != nil {
		zap.L().Error("Failed to process event",
			zap.Error(err),
			zap.String("event", event.Event),
			zap.String("traceId", traceID),
		)
		c.failed.Add(1)
		_ = msg.Nack(false, false)
		return
	}

	c.processed.Add(1)
	if err := msg.Ack(false); err != nil {
		zap.L().Error("Failed to acknowledge message",
			zap.Error(err),
			zap.String("traceId", traceID),
		)
		return
	}

	zap.L().Info("Successfully processed event",
		zap.String("event", event.Event),
		zap.String("traceId", traceID),
	)
}

func (c *Consumer) Stats() PoolStats {
	return PoolStats{
		Workers:   max(c.workers, 1),
		InFlight:  c.inFlight.Load(),
		Processed: c.processed.Load(),
		Failed:    c.failed.Load(),
	}
}

func (c *Consumer) Close() error {
	closeAll(c.channel, c.conn)
	zap.L().Info("RabbitMQ consumer closed")
	return nil
}
