package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/premium-store/internal/model"
)

const (
	orderQueueName = "orders.created"
	dlxExchange    = "orders.dlx"
	dlqQueueName   = "orders.created.dlq"
	idempotencyTTL = 24 * time.Hour
)

// Deduper remembers which orders were already announced.
type Deduper interface {
	Seen(ctx context.Context, orderNumber string) (bool, error)
	Mark(ctx context.Context, orderNumber string) error
}

type RedisDeduper struct{ client *redis.Client }

func NewRedisDeduper(client *redis.Client) *RedisDeduper { return &RedisDeduper{client: client} }

func notifiedKey(orderNumber string) string { return "order_notified:" + orderNumber }

func (d *RedisDeduper) Seen(ctx context.Context, orderNumber string) (bool, error) {
	n, err := d.client.Exists(ctx, notifiedKey(orderNumber)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *RedisDeduper) Mark(ctx context.Context, orderNumber string) error {
	return d.client.Set(ctx, notifiedKey(orderNumber), "1", idempotencyTTL).Err()
}

type NotificationWorker struct {
	channel    *amqp.Channel
	dispatcher *Dispatcher
	dedup      Deduper
	log        *slog.Logger
	done       chan struct{}
	stopped    chan struct{}
}

func NewNotificationWorker(ch *amqp.Channel, d *Dispatcher, dedup Deduper, log *slog.Logger) *NotificationWorker {
	return &NotificationWorker{
		channel:    ch,
		dispatcher: d,
		dedup:      dedup,
		log:        log,
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// SetupRabbitMQ declares exchanges, queues, and bindings (DLX/DLQ).
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, orderQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(orderQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": orderQueueName,
	}); err != nil {
		return fmt.Errorf("declare order queue: %w", err)
	}
	if err := ch.Qos(4, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *NotificationWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(orderQueueName, "notifications", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		defer close(w.stopped)
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("notification worker started")
	return nil
}

// Stop ends consumption and waits for the message in hand to finish.
func (w *NotificationWorker) Stop() {
	close(w.done)
	<-w.stopped
}

func (w *NotificationWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var orderMsg model.OrderMessage
	if err := json.Unmarshal(msg.Body, &orderMsg); err != nil || orderMsg.OrderNumber == "" {
		w.log.Error("unmarshal order message", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("order_number", orderMsg.OrderNumber, "user_id", orderMsg.UserID)

	seen, err := w.dedup.Seen(ctx, orderMsg.OrderNumber)
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if seen {
		log.Info("order already announced, skipping")
		_ = msg.Ack(false)
		return
	}

	if err := w.dispatcher.HandleOrderCreated(ctx, orderMsg); err != nil {
		if errors.Is(err, ErrOrderGone) {
			log.Warn("order deleted before notification", "error", err)
		} else {
			log.Error("dispatch order notifications", "error", err)
		}
		_ = msg.Nack(false, false) // to DLQ
		return
	}

	if err := w.dedup.Mark(ctx, orderMsg.OrderNumber); err != nil {
		log.Error("set idempotency key", "error", err)
	}
	_ = msg.Ack(false)
}
