package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mikey/contact-guard/internal/config"
	"github.com/mikey/contact-guard/internal/content"
	"github.com/mikey/contact-guard/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var submission = &content.SanitizedData{
	Name:    "Jordan",
	Email:   "jordan@example.com",
	Subject: "Question about your blog",
	Message: "I enjoyed your article on Go generics and had a follow-up question.",
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	v := config.NewEmptyViper()
	v.Set("openai.api_key", "test-key")
	v.Set("openai.base_url", srv.URL+"/v1")
	v.Set("openai.model_name", "gpt-4o-mini")

	logger := zap.NewNop()
	c, err := NewFactory(config.NewFromViper(v), logger, utils.NewTextProcessor(logger)).CreateClient()
	require.NoError(t, err)
	return c
}

func TestReviewSubmission(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant",
				"content": "{\"is_spam\": false, \"score\": 0.02, \"confidence\": 0.95, \"explanation\": \"reader question\"}"}}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 20, "total_tokens": 140}
		}`))
	})

	v, err := c.ReviewSubmission(context.Background(), submission)
	require.NoError(t, err)
	assert.False(t, v.IsSpam)
	assert.Equal(t, 0.02, v.Score)
	assert.Equal(t, "gpt-4o-mini", v.ModelUsed)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Contains(t, messages[1].(map[string]any)["content"], "Subject: Question about your blog")
}

func TestReviewSubmissionAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited", "type": "requests"}}`))
	})

	_, err := c.ReviewSubmission(context.Background(), submission)
	assert.Error(t, err)
}

func TestReviewSubmissionNoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "choices": []}`))
	})

	_, err := c.ReviewSubmission(context.Background(), submission)
	assert.ErrorContains(t, err, "empty response")
}

func TestFactoryRequiresAPIKey(t *testing.T) {
	logger := zap.NewNop()
	_, err := NewFactory(config.NewFromViper(config.NewEmptyViper()), logger, utils.NewTextProcessor(logger)).CreateClient()
	assert.Error(t, err)
}
