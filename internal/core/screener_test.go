package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikey/contact-guard/internal/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestScreener(reviewer SubmissionReviewer, settings ServiceSettings) *Screener {
	return NewScreener(content.NewValidator(content.Options{}), reviewer, zap.NewNop(), settings)
}

func TestScreenStatuses(t *testing.T) {
	ctx := context.Background()

	sc := newTestScreener(nil, defaultSettings()).Screen(ctx, validRequest())
	assert.True(t, sc.Accepted())
	assert.Equal(t, ReviewDisabled, sc.ReviewStatus)
	require.NotNil(t, sc.Validation.SanitizedData)

	reviewer := &fakeReviewer{verdict: &ReviewVerdict{Score: 0.4, ModelUsed: "m"}}
	sc = newTestScreener(reviewer, defaultSettings()).Screen(ctx, validRequest())
	assert.True(t, sc.Accepted())
	assert.Equal(t, ReviewDone, sc.ReviewStatus)
	assert.Equal(t, 0.4, sc.Verdict.Score)

	sc = newTestScreener(&fakeReviewer{err: errors.New("timeout")}, defaultSettings()).Screen(ctx, validRequest())
	assert.True(t, sc.Accepted())
	assert.Equal(t, ReviewFailed, sc.ReviewStatus)
	assert.Nil(t, sc.Verdict)
}

func TestScreenThresholdIsInclusive(t *testing.T) {
	reviewer := &fakeReviewer{verdict: &ReviewVerdict{Score: 0.7, Explanation: "marketing blast"}}
	sc := newTestScreener(reviewer, defaultSettings()).Screen(context.Background(), validRequest())

	var secErr *SecurityError
	require.ErrorAs(t, sc.Err, &secErr)
	assert.Equal(t, []string{"LLM review: marketing blast"}, secErr.Reasons)
}

func TestScreenStopsBeforeReview(t *testing.T) {
	reviewer := &fakeReviewer{verdict: &ReviewVerdict{Score: 0}}
	s := newTestScreener(reviewer, defaultSettings())

	req := validRequest()
	req.Name = "J"
	sc := s.Screen(context.Background(), req)
	assert.Equal(t, []string{"Name must be at least 2 characters"}, sc.SchemaErrors)
	assert.IsType(t, &InvalidInputError{}, sc.Err)

	req = validRequest()
	req.Honeypot = "filled"
	sc = s.Screen(context.Background(), req)
	assert.True(t, sc.Validation.IsSpam)
	assert.Nil(t, sc.Validation.SanitizedData)
	assert.Empty(t, sc.ReviewStatus)

	assert.Equal(t, 0, reviewer.calls)
}

type slowReviewer struct{}

func (slowReviewer) ReviewSubmission(ctx context.Context, _ *content.SanitizedData) (*ReviewVerdict, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestScreenReviewTimeout(t *testing.T) {
	settings := defaultSettings()
	settings.ReviewTimeout = 10 * time.Millisecond

	sc := newTestScreener(slowReviewer{}, settings).Screen(context.Background(), validRequest())
	assert.True(t, sc.Accepted())
	assert.Equal(t, ReviewFailed, sc.ReviewStatus)
}
