package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/contact-guard/internal/content"
	"github.com/mikey/contact-guard/internal/core"
)

// ReviewSystemPrompt is sent as the system message where a provider supports one
const ReviewSystemPrompt = "You are a spam detection system. Respond only with JSON."

const reviewPromptFormat = `You are a spam detection system for a personal website contact form. Analyze the following submission and determine if it's spam (SEO offers, marketing blasts, scams, phishing or automated junk). Genuine enquiries, job offers and questions are not spam.
Respond with a JSON object containing:
- is_spam: boolean (true if spam, false if not)
- score: number between 0 and 1 (higher means more likely to be spam)
- confidence: number between 0 and 1 (how confident you are in your assessment)
- explanation: string (brief explanation of why you think it's spam or not)

Submission:
Name: %s
Email: %s
Subject: %s
Message:
%s

Respond only with the JSON object and nothing else.`

type reviewResponse struct {
	IsSpam      bool    `json:"is_spam"`
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// ReviewPrompt renders the review prompt for a submission, with the
// message cut to maxBodySize bytes
func (tp *TextProcessor) ReviewPrompt(data *content.SanitizedData, maxBodySize int) string {
	return fmt.Sprintf(reviewPromptFormat,
		data.Name, data.Email, data.Subject,
		tp.ProcessText(data.Message, maxBodySize))
}

// ParseReviewResponse extracts the verdict JSON from an LLM reply. Models
// sometimes wrap the object in prose or code fences, so the outermost
// braces are tried when the whole reply does not parse.
func ParseReviewResponse(text, model string) (*core.ReviewVerdict, error) {
	var resp reviewResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		start := strings.IndexByte(text, '{')
		end := strings.LastIndexByte(text, '}')
		if start < 0 || end < start {
			return nil, fmt.Errorf("failed to extract JSON from LLM response: %w", err)
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
			return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
		}
	}

	if resp.Score < 0 || resp.Score > 1 {
		return nil, errors.New("LLM score out of range [0, 1]")
	}

	return &core.ReviewVerdict{
		IsSpam:      resp.IsSpam,
		Score:       resp.Score,
		Confidence:  resp.Confidence,
		Explanation: resp.Explanation,
		ReviewedAt:  time.Now(),
		ModelUsed:   model,
	}, nil
}
