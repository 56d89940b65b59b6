package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikey/contact-guard/internal/content"
	"github.com/mikey/contact-guard/internal/core"
	"github.com/mikey/contact-guard/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient reviews submissions with the OpenAI chat completions API
type OpenAIClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// ReviewSubmission asks the model whether a submission is spam
func (c *OpenAIClient) ReviewSubmission(ctx context.Context, data *content.SanitizedData) (*core.ReviewVerdict, error) {
	prompt := c.textProcessor.ReviewPrompt(data, c.maxBodySize)

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.modelName,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: utils.ReviewSystemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
			TopP:        c.topP,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to call OpenAI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("empty response from OpenAI")
	}

	c.logger.Debug("OpenAI review completed",
		zap.String("model", c.modelName),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return utils.ParseReviewResponse(resp.Choices[0].Message.Content, c.modelName)
}
