package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/wisepicks/internal/lib/sl"
)

const prefetch = 10

// Handler обрабатывает тело сообщения. ctx отменяется при остановке
// потребителя и ограничен handlerTimeout.
type Handler func(ctx context.Context, body []byte) error

const handlerTimeout = 30 * time.Second

// ConsumerMessage создает потребителя сообщений из очереди RabbitMQ.
// Одновременно обрабатывается не больше prefetch сообщений; при ошибке
// обработчика сообщение возвращается в очередь.
func ConsumerMessage(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string, handler Handler) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
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

	log = log.With(slog.String("op", op), slog.String("queue", queueName))
	sem := make(chan struct{}, prefetch)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(delivery amqp.Delivery) {
					defer func() { <-sem }()
					hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
					defer cancel()
					if err := handler(hctx, delivery.Body); err != nil {
						log.Warn("handler failed, requeue",
							slog.String("routing_key", delivery.RoutingKey),
							slog.Bool("redelivered", delivery.Redelivered),
							sl.Err(err))
						if nackErr := delivery.Nack(false, true); nackErr != nil {
							log.Error("failed to nack message", sl.Err(nackErr))
						}
						return
					}
					if ackErr := delivery.Ack(false); ackErr != nil {
						log.Error("failed to ack message", sl.Err(ackErr))
					}
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
