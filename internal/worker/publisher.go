package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/flicky/premium-store/internal/model"
)

// AMQPPublisher puts order-created events on the durable notification queue.
type AMQPPublisher struct {
	channel *amqp.Channel
}

func NewAMQPPublisher(ch *amqp.Channel) *AMQPPublisher {
	return &AMQPPublisher{channel: ch}
}

func (p *AMQPPublisher) PublishOrderCreated(ctx context.Context, msg model.OrderMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode order message: %w", err)
	}
	err = p.channel.PublishWithContext(ctx, "", orderQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.OrderNumber,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("publish order created: %w", err)
	}
	return nil
}

// InlinePublisher dispatches in a background goroutine when no broker is
// configured. Each dispatch gets its own deadline, detached from the
// request that triggered it.
type InlinePublisher struct {
	dispatcher *Dispatcher
	timeout    time.Duration
	log        *slog.Logger
	wg         sync.WaitGroup
}

func NewInlinePublisher(d *Dispatcher, timeout time.Duration, log *slog.Logger) *InlinePublisher {
	return &InlinePublisher{dispatcher: d, timeout: timeout, log: log}
}

func (p *InlinePublisher) PublishOrderCreated(ctx context.Context, msg model.OrderMessage) error {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		if err := p.dispatcher.HandleOrderCreated(ctx, msg); err != nil {
			p.log.Error("inline order notification", "order_number", msg.OrderNumber, "error", err)
		}
	}()
	return nil
}

// Wait blocks until in-flight dispatches finish.
func (p *InlinePublisher) Wait() { p.wg.Wait() }
