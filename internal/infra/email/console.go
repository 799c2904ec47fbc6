package email

import (
	"context"

	"autoescola-portal/internal/domain"
	"github.com/sirupsen/logrus"
)

// ConsoleMailer logs messages instead of sending them. Used when no SendGrid key is configured.
type ConsoleMailer struct {
	log *logrus.Entry
}

func NewConsoleMailer(log *logrus.Entry) *ConsoleMailer {
	return &ConsoleMailer{log: log}
}

func (m *ConsoleMailer) Send(_ context.Context, msg domain.Email) error {
	m.log.WithFields(logrus.Fields{
		"to":       msg.To,
		"reply_to": msg.ReplyTo,
		"subject":  msg.Subject,
	}).Info(msg.Text)
	return nil
}
