// Package smtp доставляет письма WisePicks через SMTP-сервер со STARTTLS.
package smtp

import (
	"context"
	"io"
	"strings"
)

// Client команды SMTP-сессии, которые нужны для отправки одного письма.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface открывает SMTP-сессию. Connect прерывает установку
// соединения при отмене ctx.
type TransportInterface interface {
	Connect(ctx context.Context) (Client, error)
	GetSMTPUser() string
}

// Message текстовое письмо в UTF-8.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Bytes собирает заголовки и тело письма с переводами строк CRLF.
// Переводы строк внутри темы заменяются пробелами.
func (m Message) Bytes() []byte {
	subject := strings.NewReplacer("\r", " ", "\n", " ").Replace(m.Subject)
	return []byte(strings.Join([]string{
		"From: " + m.From,
		"To: " + strings.Join(m.To, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		strings.ReplaceAll(m.Body, "\n", "\r\n"),
	}, "\r\n"))
}
