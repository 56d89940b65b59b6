package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/contact-guard/internal/content"
	"github.com/mikey/contact-guard/internal/core"
	"github.com/mikey/contact-guard/internal/utils"
	"go.uber.org/zap"
)

// ContentGenerator is satisfied by *genai.GenerativeModel
type ContentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiClient reviews submissions with Google Gemini
type GeminiClient struct {
	model         ContentGenerator
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	closer        func() error
}

// NewGeminiClient creates a new Gemini client around a configured model
func NewGeminiClient(
	model ContentGenerator,
	modelName string,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *GeminiClient {
	return &GeminiClient{
		model:         model,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Close closes the underlying Gemini client, if this reviewer owns one
func (c *GeminiClient) Close() error {
	if c.closer != nil {
		return c.closer()
	}
	return nil
}

// ReviewSubmission asks Gemini whether a submission is spam
func (c *GeminiClient) ReviewSubmission(ctx context.Context, data *content.SanitizedData) (*core.ReviewVerdict, error) {
	prompt := c.textProcessor.ReviewPrompt(data, c.maxBodySize)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("empty response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return nil, errors.New("empty response from Gemini")
	}

	c.logger.Debug("Gemini review completed", zap.String("model", c.modelName))
	return utils.ParseReviewResponse(sb.String(), c.modelName)
}
