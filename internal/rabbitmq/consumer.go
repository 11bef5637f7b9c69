package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	sl "price_monitor/internal/lib/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel часть *amqp.Channel, нужная консьюмеру.
type Channel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Acknowledger подтверждает или отклоняет одно сообщение.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

type Consumer struct {
	ch             Channel
	log            *slog.Logger
	queueName      string
	workerPoolSize int
	wg             sync.WaitGroup
}

func NewConsumer(ch Channel, log *slog.Logger, queueName string, poolSize int) *Consumer {
	if poolSize <= 0 {
		poolSize = 1
	}

	return &Consumer{
		ch:             ch,
		log:            log,
		queueName:      queueName,
		workerPoolSize: poolSize,
	}
}

// Consume запускает обработку очереди в фоне и сразу возвращается.
// Обработка останавливается при отмене ctx или закрытии канала доставок.
func (c *Consumer) Consume(
	ctx context.Context,
	handler func(ctx context.Context, body []byte) error,
) error {
	const op = "rabbitmq.Consume"

	if err := c.ch.Qos(
		c.workerPoolSize,
		0,
		false,
	); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msgs, err := c.ch.Consume(
		c.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.dispatch(ctx, msgs, handler)
	}()

	return nil
}

// Wait блокируется, пока не завершатся все обработчики.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) dispatch(ctx context.Context, msgs <-chan amqp.Delivery, handler func(ctx context.Context, body []byte) error) {
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, c.workerPoolSize)

	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			// * неподтверждённое сообщение брокер вернёт в очередь при закрытии канала
			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				return
			}
			// слот мог освободиться одновременно с отменой
			if ctx.Err() != nil {
				<-semaphore
				return
			}

			wg.Add(1)

			go func(m amqp.Delivery) {
				defer wg.Done()
				defer func() { <-semaphore }()

				c.handle(ctx, m.Body, m.MessageId, m, handler)
			}(msg)
		}
	}
}

// * handle не возвращает сообщение в очередь при ошибке: повторных попыток нет
func (c *Consumer) handle(ctx context.Context, body []byte, msgID string, ack Acknowledger, handler func(ctx context.Context, body []byte) error) {
	const op = "rabbitmq.handle"

	log := c.log.With(
		slog.String("op", op),
		slog.String("message_id", msgID),
	)

	if err := handler(ctx, body); err != nil {
		log.Error("message handling failed", sl.Err(err))

		if err := ack.Nack(false, false); err != nil {
			log.Error("nack failed", sl.Err(err))
		}

		return
	}

	if err := ack.Ack(false); err != nil {
		log.Error("ack failed", sl.Err(err))
	}
}
