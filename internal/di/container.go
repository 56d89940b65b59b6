package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/contact-guard/internal/config"
	"github.com/mikey/contact-guard/internal/content"
	"github.com/mikey/contact-guard/internal/core"
	"github.com/mikey/contact-guard/internal/factory"
	"github.com/mikey/contact-guard/internal/logging"
	"github.com/mikey/contact-guard/internal/ports"
	"github.com/mikey/contact-guard/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	return BuildContainerWithConfig(cfg)
}

// BuildContainerWithConfig creates the container around an existing configuration
func BuildContainerWithConfig(cfg *config.Config) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideContent(container); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewRateLimitFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewMailerFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewServerFactory); err != nil {
		return nil, err
	}

	// Register rate limiter
	if err := container.Provide(func(f *factory.RateLimitFactory) (core.RateLimitStore, error) {
		return f.CreateStore(context.Background())
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.RateLimitFactory, store core.RateLimitStore, logger *zap.Logger) (*core.RateLimiter, error) {
		policy, err := f.CreatePolicy()
		if err != nil {
			return nil, err
		}
		return core.NewRateLimiter(store, policy, logger.Named("ratelimit")), nil
	}); err != nil {
		return nil, err
	}

	// Register mailer
	if err := container.Provide(func(f *factory.MailerFactory) (core.Mailer, error) {
		return f.CreateMailer()
	}); err != nil {
		return nil, err
	}

	// Register contact service
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		limiter *core.RateLimiter,
		validator *content.Validator,
		mailer core.Mailer,
		reviewer core.SubmissionReviewer,
	) (*core.ContactService, error) {
		mailCfg, err := cfg.GetMail()
		if err != nil {
			return nil, err
		}
		reviewCfg, err := cfg.GetReview()
		if err != nil {
			return nil, err
		}
		if len(reviewCfg.TrustedDomains) > 0 {
			logger.Info("Loaded trusted domains", zap.Strings("domains", reviewCfg.TrustedDomains))
		}
		return core.NewContactService(limiter, validator, mailer, reviewer, logger, core.ServiceSettings{
			From:            mailCfg.From,
			To:              mailCfg.To,
			ReviewThreshold: reviewCfg.Threshold,
			ReviewTimeout:   reviewCfg.Timeout,
			TrustedDomains:  reviewCfg.TrustedDomains,
		}), nil
	}); err != nil {
		return nil, err
	}

	// Register server
	if err := container.Provide(func(f *factory.ServerFactory) (ports.Server, error) {
		return f.CreateServer()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideContent registers the validator, text processor and reviewer,
// which the server and the CLI share
func provideContent(container *dig.Container) error {
	if err := container.Provide(factory.NewValidatorFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}

	// Register validator
	if err := container.Provide(func(f *factory.ValidatorFactory) (*content.Validator, error) {
		return f.CreateValidator()
	}); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register reviewer; nil when review is disabled
	return container.Provide(func(f *factory.LLMFactory) (core.SubmissionReviewer, error) {
		return f.CreateReviewer(context.Background())
	})
}
