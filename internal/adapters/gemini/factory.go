package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/contact-guard/internal/config"
	"github.com/mikey/contact-guard/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Factory creates Gemini clients
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new Gemini factory
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClient creates a new Gemini client. The caller owns it and should Close it.
func (f *Factory) CreateClient(ctx context.Context) (*GeminiClient, error) {
	geminiCfg := f.cfg.GetGemini()
	if geminiCfg.APIKey == "" {
		return nil, errors.New("gemini.api_key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(geminiCfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(geminiCfg.ModelName)
	model.SetTemperature(geminiCfg.Temperature)
	model.SetTopP(geminiCfg.TopP)
	model.SetMaxOutputTokens(int32(geminiCfg.MaxTokens))
	model.SystemInstruction = genai.NewUserContent(genai.Text(utils.ReviewSystemPrompt))
	model.ResponseMIMEType = "application/json"

	c := NewGeminiClient(model, geminiCfg.ModelName, geminiCfg.MaxBodySize, f.logger, f.textProcessor)
	c.closer = client.Close
	return c, nil
}
