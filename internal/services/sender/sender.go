// Package sender отправляет письма по событиям из очереди уведомлений.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/wisepicks/internal/lib/sl"
	"github.com/magabrotheeeer/wisepicks/internal/lib/smtp"
	"github.com/magabrotheeeer/wisepicks/internal/models"
)

const dateLayout = "2006-01-02"

// SenderService формирует и отправляет письма.
type SenderService struct {
	transport   smtp.TransportInterface
	log         *slog.Logger
	frontendURL string
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(log *slog.Logger, transport smtp.TransportInterface, frontendURL string) *SenderService {
	return &SenderService{
		transport:   transport,
		log:         log,
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
	}
}

// SendPremiumActivated письмо об активации премиума.
func (s *SenderService) SendPremiumActivated(ctx context.Context, body []byte) error {
	var message models.PremiumActivated
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	subject := "Your WisePicks Premium is active"
	bodyText := fmt.Sprintf("Hello, %s!\n\nYour premium subscription (%s) is active until %s.\n\nPremium tips are available at %s/dashboard.",
		message.Nickname, message.Plan, message.PremiumUntil.UTC().Format(dateLayout), s.frontendURL)

	return s.sendEmail(ctx, []string{message.Email}, subject, bodyText)
}

// SendPremiumExpiring напоминание о скором окончании премиума.
func (s *SenderService) SendPremiumExpiring(ctx context.Context, body []byte) error {
	var message models.PremiumExpiring
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	subject := "Your WisePicks Premium expires soon"
	bodyText := fmt.Sprintf("Hello, %s!\n\nYour premium subscription expires on %s.\n\nRenew it at %s/pricing to keep access to premium tips.",
		message.Nickname, message.PremiumUntil.UTC().Format(dateLayout), s.frontendURL)

	return s.sendEmail(ctx, []string{message.Email}, subject, bodyText)
}

func (s *SenderService) sendEmail(ctx context.Context, to []string, subject, bodyText string) error {
	from := s.transport.GetSMTPUser()
	msg := smtp.Message{From: from, To: to, Subject: subject, Body: bodyText}

	client, err := s.transport.Connect(ctx)
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write(msg.Bytes()); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}
