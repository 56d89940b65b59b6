package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mikey/contact-guard/internal/adapters/ratelimit"
	"github.com/mikey/contact-guard/internal/content"
	"github.com/mikey/contact-guard/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubService struct {
	err      error
	admitErr error
	admits   int
	gotAddr  string
	gotReq   *core.SubmissionRequest
	stats    *core.RateLimitStats
	statsErr error
}

func (s *stubService) Admit(_ context.Context, addr string) error {
	s.admits++
	s.gotAddr = addr
	return s.admitErr
}

func (s *stubService) Submit(_ context.Context, addr string, req *core.SubmissionRequest) error {
	s.gotAddr = addr
	s.gotReq = req
	return s.err
}

func (s *stubService) HoneypotSession() core.HoneypotSession {
	return core.HoneypotSession{HoneypotFieldName: "website_ab12cd34", FormStartTime: 1700000000000}
}

func (s *stubService) RateLimitStats(context.Context) (*core.RateLimitStats, error) {
	return s.stats, s.statsErr
}

const validBody = `{"name":"Jordan Lee","email":"jordan@example.com","subject":"Frontend role","message":"Hi, I'd like to discuss a frontend role opportunity with your team."}`

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestSubmitSuccess(t *testing.T) {
	svc := &stubService{}
	h := NewHandler(svc, zap.NewNop(), 0, "").Routes()

	rec, resp := do(t, h, http.MethodPost, "/api/contact", validBody, map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, core.MessageSent, resp.Message)
	assert.Empty(t, resp.Error)

	assert.Equal(t, "203.0.113.7", svc.gotAddr)
	require.NotNil(t, svc.gotReq)
	assert.Equal(t, "Jordan Lee", svc.gotReq.Name)
	assert.Nil(t, svc.gotReq.FormStartTime)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestSubmitMethodNotAllowed(t *testing.T) {
	h := NewHandler(&stubService{}, zap.NewNop(), 0, "").Routes()

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec, resp := do(t, h, method, "/api/contact", "", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.False(t, resp.Success)
		assert.Equal(t, "Method not allowed. Use POST.", resp.Message)
		assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	}
}

func TestSubmitMalformedBody(t *testing.T) {
	svc := &stubService{}
	h := NewHandler(svc, zap.NewNop(), 0, "").Routes()

	for _, body := range []string{"", "not json", `{"name": 42}`, `["a"]`} {
		rec, resp := do(t, h, http.MethodPost, "/api/contact", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Invalid form data", resp.Message)
	}
	assert.Nil(t, svc.gotReq)
	assert.Equal(t, 4, svc.admits)
}

func TestSubmitBodyTooLarge(t *testing.T) {
	svc := &stubService{}
	h := NewHandler(svc, zap.NewNop(), 128, "").Routes()

	body := `{"message":"` + strings.Repeat("a", 500) + `"}`
	rec, resp := do(t, h, http.MethodPost, "/api/contact", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid form data", resp.Message)
	assert.Equal(t, "Request body too large", resp.Error)
	assert.Equal(t, 1, svc.admits)
}

func TestSubmitMalformedBodyFromBlockedClient(t *testing.T) {
	svc := &stubService{admitErr: &core.RateLimitError{Message: "Too many requests. Please try again in 60 minutes.", RetryAfter: time.Hour}}
	h := NewHandler(svc, zap.NewNop(), 0, "").Routes()

	rec, resp := do(t, h, http.MethodPost, "/api/contact", `{"name":123}`, map[string]string{"X-Real-IP": "198.51.100.9"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Rate limit exceeded", resp.Error)
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))
	assert.Equal(t, "198.51.100.9", svc.gotAddr)
	assert.Nil(t, svc.gotReq)
}

func TestSubmitErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
		errText string
	}{
		{
			name:    "rate limited",
			err:     &core.RateLimitError{Message: "Too many requests. Please try again in 42 minutes.", RetryAfter: 41*time.Minute + 30*time.Second},
			status:  http.StatusTooManyRequests,
			message: "Too many requests. Please try again in 42 minutes.",
			errText: "Rate limit exceeded",
		},
		{
			name:    "missing recipient",
			err:     &core.ConfigError{Reason: core.MessageNoRecipient},
			status:  http.StatusInternalServerError,
			message: "Email service configuration error",
			errText: "Missing recipient email",
		},
		{
			name:    "schema failure",
			err:     &core.InvalidInputError{Problems: []string{"Name must be at least 2 characters", "Please enter a valid email address"}},
			status:  http.StatusBadRequest,
			message: "Invalid form data",
			errText: "Name must be at least 2 characters, Please enter a valid email address",
		},
		{
			name:    "spam",
			err:     &core.SecurityError{Message: core.MessageSpam, Reasons: []string{"Honeypot field filled"}, Spam: true},
			status:  http.StatusBadRequest,
			message: core.MessageSpam,
			errText: "Security validation failed",
		},
		{
			name:    "delivery failure",
			err:     &core.DeliveryError{Err: errors.New("550 relay denied for secret.internal")},
			status:  http.StatusInternalServerError,
			message: "Failed to send email",
			errText: "Email delivery failed",
		},
		{
			name:    "unexpected",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			message: "An unexpected error occurred. Please try again.",
			errText: "Unknown error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&stubService{err: tt.err}, zap.NewNop(), 0, "").Routes()
			rec, resp := do(t, h, http.MethodPost, "/api/contact", validBody, nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.message, resp.Message)
			assert.Equal(t, tt.errText, resp.Error)
			assert.NotContains(t, rec.Body.String(), "secret.internal")
		})
	}
}

func TestRetryAfterHeader(t *testing.T) {
	h := NewHandler(&stubService{err: &core.RateLimitError{Message: "wait", RetryAfter: 90*time.Second + time.Millisecond}}, zap.NewNop(), 0, "").Routes()
	rec, _ := do(t, h, http.MethodPost, "/api/contact", validBody, nil)
	assert.Equal(t, "91", rec.Header().Get("Retry-After"))

	h = NewHandler(&stubService{err: &core.RateLimitError{Message: "wait", RetryAfter: -time.Second}}, zap.NewNop(), 0, "").Routes()
	rec, _ = do(t, h, http.MethodPost, "/api/contact", validBody, nil)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestSession(t *testing.T) {
	h := NewHandler(&stubService{}, zap.NewNop(), 0, "").Routes()

	req := httptest.NewRequest(http.MethodGet, "/api/contact/session", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var session core.HoneypotSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, "website_ab12cd34", session.HoneypotFieldName)
	assert.Equal(t, int64(1700000000000), session.FormStartTime)
}

func TestStats(t *testing.T) {
	oldest := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := &stubService{stats: &core.RateLimitStats{TotalEntries: 3, BlockedAddresses: 1, OldestEntry: &oldest}}

	t.Run("disabled without token", func(t *testing.T) {
		h := NewHandler(svc, zap.NewNop(), 0, "").Routes()
		req := httptest.NewRequest(http.MethodGet, "/api/contact/stats", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	h := NewHandler(svc, zap.NewNop(), 0, "s3cret").Routes()

	t.Run("wrong token", func(t *testing.T) {
		rec, _ := do(t, h, http.MethodGet, "/api/contact/stats", "", map[string]string{"Authorization": "Bearer nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("authorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/contact/stats", nil)
		req.Header.Set("Authorization", "Bearer s3cret")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.EqualValues(t, 3, body["totalEntries"])
		assert.EqualValues(t, 1, body["blockedIPs"])
		assert.Equal(t, "2024-05-01T10:00:00Z", body["oldestEntry"])
	})

	t.Run("store failure", func(t *testing.T) {
		h := NewHandler(&stubService{statsErr: errors.New("db down")}, zap.NewNop(), 0, "s3cret").Routes()
		rec, _ := do(t, h, http.MethodGet, "/api/contact/stats", "", map[string]string{"Authorization": "Bearer s3cret"})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHealthz(t *testing.T) {
	h := NewHandler(&stubService{}, zap.NewNop(), 0, "").Routes()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first entry", map[string]string{"X-Forwarded-For": " 198.51.100.4 , 10.0.0.2", "X-Real-IP": "10.9.9.9"}, "10.0.0.1:5555", "198.51.100.4"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.5", "CF-Connecting-IP": "198.51.100.6"}, "10.0.0.1:5555", "198.51.100.5"},
		{"cloudflare", map[string]string{"CF-Connecting-IP": "198.51.100.6"}, "10.0.0.1:5555", "198.51.100.6"},
		{"remote addr", nil, "192.0.2.10:43210", "192.0.2.10"},
		{"remote addr without port", nil, "192.0.2.11", "192.0.2.11"},
		{"nothing", nil, "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []*core.OutboundMessage
}

func (m *recordingMailer) Ready() error { return nil }

func (m *recordingMailer) Send(_ context.Context, msg *core.OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func TestContactFlowEndToEnd(t *testing.T) {
	logger := zap.NewNop()
	limiter := core.NewRateLimiter(ratelimit.NewMemoryStore(logger), core.DefaultRateLimitPolicy, logger)
	mailer := &recordingMailer{}
	svc := core.NewContactService(limiter, content.NewValidator(content.Options{}), mailer, nil, logger, core.ServiceSettings{
		From: "noreply@example.org",
		To:   "owner@example.org",
	})
	h := NewHandler(svc, logger, 0, "").Routes()
	headers := map[string]string{"X-Real-IP": "198.51.100.20"}

	rec, resp := do(t, h, http.MethodPost, "/api/contact",
		`{"name":"Jo","email":"jo@x.com","subject":"Hi there","message":"Short msg","honeypot":""}`, headers)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Error, "Message must be at least 10 characters")

	rec, resp = do(t, h, http.MethodPost, "/api/contact",
		`{"name":"Jordan","email":"jordan@example.com","subject":"Hello there","message":"A perfectly normal message.","honeypot":"http://bot.example"}`, headers)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, core.MessageSpam, resp.Message)
	assert.Equal(t, "Security validation failed", resp.Error)

	for i := 0; i < 3; i++ {
		rec, resp = do(t, h, http.MethodPost, "/api/contact", validBody, headers)
		require.Equal(t, http.StatusOK, rec.Code, resp.Error)
	}

	rec, resp = do(t, h, http.MethodPost, "/api/contact", validBody, headers)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Rate limit exceeded", resp.Error)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// other clients are unaffected
	rec, _ = do(t, h, http.MethodPost, "/api/contact", validBody, map[string]string{"X-Real-IP": "198.51.100.21"})
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, mailer.sent, 4)
	assert.Equal(t, "Contact Form: Frontend role", mailer.sent[0].Subject)
	assert.Equal(t, "jordan@example.com", mailer.sent[0].ReplyTo)
}

func TestMistypedBodiesCountAgainstQuota(t *testing.T) {
	logger := zap.NewNop()
	limiter := core.NewRateLimiter(ratelimit.NewMemoryStore(logger), core.DefaultRateLimitPolicy, logger)
	mailer := &recordingMailer{}
	svc := core.NewContactService(limiter, content.NewValidator(content.Options{}), mailer, nil, logger, core.ServiceSettings{
		From: "noreply@example.org",
		To:   "owner@example.org",
	})
	h := NewHandler(svc, logger, 0, "").Routes()
	headers := map[string]string{"X-Real-IP": "198.51.100.9"}

	for i := 0; i < 5; i++ {
		rec, _ := do(t, h, http.MethodPost, "/api/contact", `{"name":123}`, headers)
		require.Equal(t, http.StatusBadRequest, rec.Code, "request %d", i+1)
	}

	rec, resp := do(t, h, http.MethodPost, "/api/contact", `{"name":123}`, headers)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Rate limit exceeded", resp.Error)

	rec, _ = do(t, h, http.MethodPost, "/api/contact", validBody, headers)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Empty(t, mailer.sent)
}
