package mailer

import (
	"context"

	"github.com/mikey/contact-guard/internal/core"
	"go.uber.org/zap"
)

// LogMailer logs messages instead of sending them. Meant for development.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a new log mailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Ready always succeeds
func (m *LogMailer) Ready() error {
	return nil
}

// Send logs the message envelope, and the text body at debug level
func (m *LogMailer) Send(_ context.Context, msg *core.OutboundMessage) error {
	m.logger.Info("Email not sent, log mailer configured",
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.String("reply_to", msg.ReplyTo),
		zap.String("subject", msg.Subject))
	m.logger.Debug("Email body", zap.String("text", msg.Text))
	return nil
}
