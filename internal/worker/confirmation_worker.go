package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/mkarlin/storefront-api/internal/model"
	"github.com/mkarlin/storefront-api/internal/repository"
)

const (
	orderQueueName = "orders.placed"
	dlxExchange    = "orders.placed.dlx"
	dlqQueueName   = "orders.placed.dlq"
	idempotencyTTL = 24 * time.Hour
)

// ConfirmationWorker consumes order-placed events and records a
// confirmation for each order exactly once. Checkout is already
// committed by the time an event arrives, so the worker never mutates
// order state.
type ConfirmationWorker struct {
	channel     *amqp.Channel
	orderRepo   repository.OrderRepository
	redisClient *redis.Client
	log         *slog.Logger
	done        chan struct{}
}

func NewConfirmationWorker(
	ch *amqp.Channel,
	orderRepo repository.OrderRepository,
	redisClient *redis.Client,
	log *slog.Logger,
) *ConfirmationWorker {
	return &ConfirmationWorker{
		channel:     ch,
		orderRepo:   orderRepo,
		redisClient: redisClient,
		log:         log,
		done:        make(chan struct{}),
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
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *ConfirmationWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(orderQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
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

	w.log.Info("confirmation worker started")
	return nil
}

func (w *ConfirmationWorker) Stop() { close(w.done) }

func (w *ConfirmationWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var placed model.OrderPlacedMessage
	if err := json.Unmarshal(msg.Body, &placed); err != nil {
		w.log.Error("unmarshal order message", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("order_id", placed.OrderID, "user_uid", placed.UserUID)

	// Idempotency check via Redis
	idempotencyKey := "order_confirmed:" + placed.OrderID.String()
	exists, err := w.redisClient.Exists(ctx, idempotencyKey).Result()
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if exists > 0 {
		log.Info("order already confirmed, skipping")
		_ = msg.Ack(false)
		return
	}

	order, err := w.orderRepo.GetByID(ctx, placed.OrderID)
	if err != nil {
		log.Error("load order", "error", err)
		_ = msg.Nack(false, false) // → DLQ
		return
	}
	if order == nil {
		log.Error("order not found")
		_ = msg.Nack(false, false)
		return
	}

	if err := w.redisClient.Set(ctx, idempotencyKey, "1", idempotencyTTL).Err(); err != nil {
		log.Error("set idempotency key", "error", err)
	}

	_ = msg.Ack(false)
	log.Info("order confirmation recorded",
		"total_amount", order.TotalAmount.String(),
		"items", len(order.Items),
	)
}
