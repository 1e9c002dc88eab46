// Package sender собирает процесс, который читает почтовые события из RabbitMQ
// и отправляет письма по SMTP.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/wisepicks/internal/config"
	"github.com/magabrotheeeer/wisepicks/internal/lib/sl"
	"github.com/magabrotheeeer/wisepicks/internal/lib/smtp"
	"github.com/magabrotheeeer/wisepicks/internal/rabbitmq"
	senderservice "github.com/magabrotheeeer/wisepicks/internal/services/sender"
)

// App приложение рассыльщика.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

// New подключается к брокеру и объявляет очереди.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	senderService := senderservice.NewSenderService(logger, transport, cfg.FrontendURL)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

// Run запускает потребителей обеих очередей и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	consumers := map[string]rabbitmq.Handler{
		rabbitmq.RoutingPremiumActivated: a.senderService.SendPremiumActivated,
		rabbitmq.RoutingPremiumExpiring:  a.senderService.SendPremiumExpiring,
	}
	for _, q := range rabbitmq.GetNotificationQueues() {
		handler, ok := consumers[q.RoutingKey]
		if !ok {
			continue
		}
		if err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, q.QueueName, handler); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), sl.Err(err))
			a.close()
			return err
		}
		a.logger.Info("consumer started", slog.String("queue", q.QueueName))
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")
	a.close()
	return nil
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}
