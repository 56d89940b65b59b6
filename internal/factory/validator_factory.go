package factory

import (
	"fmt"

	"github.com/mikey/contact-guard/internal/config"
	"github.com/mikey/contact-guard/internal/content"
	"go.uber.org/zap"
)

// ValidatorFactory creates content validators from configuration
type ValidatorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewValidatorFactory creates a new validator factory
func NewValidatorFactory(cfg *config.Config, logger *zap.Logger) *ValidatorFactory {
	return &ValidatorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateValidator creates a validator with the configured timing bounds and
// extra blocked domains
func (f *ValidatorFactory) CreateValidator() (*content.Validator, error) {
	form, err := f.cfg.GetForm()
	if err != nil {
		return nil, fmt.Errorf("invalid form configuration: %w", err)
	}

	blocked := f.cfg.GetStringSlice("spam.blocked_domains")
	if len(blocked) > 0 {
		f.logger.Info("Loaded blocked domains", zap.Strings("domains", blocked))
	}

	return content.NewValidator(content.Options{
		MinFillTime:    form.MinFillTime,
		MaxFormAge:     form.MaxFormAge,
		BlockedDomains: blocked,
	}), nil
}
