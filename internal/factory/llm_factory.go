package factory

import (
	"context"
	"fmt"

	"github.com/mikey/contact-guard/internal/adapters/bedrock"
	"github.com/mikey/contact-guard/internal/adapters/gemini"
	"github.com/mikey/contact-guard/internal/adapters/openai"
	"github.com/mikey/contact-guard/internal/config"
	"github.com/mikey/contact-guard/internal/core"
	"github.com/mikey/contact-guard/internal/utils"
	"go.uber.org/zap"
)

// LLMFactory creates submission reviewers
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateReviewer creates a reviewer for the configured provider. It
// returns nil, nil when review is disabled.
func (f *LLMFactory) CreateReviewer(ctx context.Context) (core.SubmissionReviewer, error) {
	reviewCfg, err := f.cfg.GetReview()
	if err != nil {
		return nil, fmt.Errorf("invalid review configuration: %w", err)
	}

	switch reviewCfg.Provider {
	case "", "none":
		return nil, nil
	case "bedrock":
		client, err := bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient(ctx)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gemini":
		client, err := gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient(ctx)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "openai":
		client, err := openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported review provider: %s", reviewCfg.Provider)
	}
}
