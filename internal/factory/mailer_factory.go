package factory

import (
	"fmt"

	"github.com/mikey/contact-guard/internal/adapters/mailer"
	"github.com/mikey/contact-guard/internal/config"
	"github.com/mikey/contact-guard/internal/core"
	"go.uber.org/zap"
)

// MailerFactory creates mailers based on configuration
type MailerFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMailerFactory creates a new mailer factory
func NewMailerFactory(cfg *config.Config, logger *zap.Logger) *MailerFactory {
	return &MailerFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMailer creates a mailer based on the configuration
func (f *MailerFactory) CreateMailer() (core.Mailer, error) {
	mailCfg, err := f.cfg.GetMail()
	if err != nil {
		return nil, fmt.Errorf("invalid mail configuration: %w", err)
	}

	switch mailCfg.Provider {
	case "smtp":
		return mailer.NewSMTPMailer(mailCfg.SMTP, mailCfg.Timeout, f.logger), nil
	case "log":
		f.logger.Warn("Using log mailer, submissions will not be delivered")
		return mailer.NewLogMailer(f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", mailCfg.Provider)
	}
}
