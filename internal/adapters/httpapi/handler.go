package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mikey/contact-guard/internal/core"
	"go.uber.org/zap"
)

// ContactSubmitter is the part of core.ContactService the handler needs
type ContactSubmitter interface {
	Admit(ctx context.Context, clientAddr string) error
	Submit(ctx context.Context, clientAddr string, req *core.SubmissionRequest) error
	HoneypotSession() core.HoneypotSession
	RateLimitStats(ctx context.Context) (*core.RateLimitStats, error)
}

// Response is the body of every /api/contact reply
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// DefaultMaxBodyBytes caps the submission body when no limit is configured
const DefaultMaxBodyBytes = 64 * 1024

// Handler serves the contact form API
type Handler struct {
	service      ContactSubmitter
	logger       *zap.Logger
	maxBodyBytes int64
	adminToken   string
}

// NewHandler creates a new handler. An empty adminToken disables the stats endpoint.
func NewHandler(service ContactSubmitter, logger *zap.Logger, maxBodyBytes int64, adminToken string) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{
		service:      service,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
		adminToken:   adminToken,
	}
}

// Routes builds the router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "contact-guard"})
	})

	r.HandleFunc("/api/contact", h.Submit)
	r.Get("/api/contact/session", h.Session)
	r.Get("/api/contact/stats", h.Stats)

	return r
}

// Submit handles POST /api/contact
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, Response{
			Message: "Method not allowed. Use POST.",
		})
		return
	}

	clientAddr := ClientIP(r)

	var req core.SubmissionRequest
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Undecodable bodies still count against the client's quota
		if rateErr := h.service.Admit(r.Context(), clientAddr); rateErr != nil {
			h.writeError(w, clientAddr, rateErr)
			return
		}

		reason := "Request body must be a JSON object"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			reason = "Request body too large"
		}
		h.logger.Debug("Malformed submission body", zap.String("client", clientAddr), zap.Error(err))
		writeJSON(w, http.StatusBadRequest, Response{
			Message: "Invalid form data",
			Error:   reason,
		})
		return
	}

	err := h.service.Submit(r.Context(), clientAddr, &req)
	if err == nil {
		writeJSON(w, http.StatusOK, Response{Success: true, Message: core.MessageSent})
		return
	}

	h.writeError(w, clientAddr, err)
}

// writeError maps the service's typed errors onto the response contract.
// Details beyond what the typed errors mark as client-safe stay in logs.
func (h *Handler) writeError(w http.ResponseWriter, clientAddr string, err error) {
	var (
		rateErr     *core.RateLimitError
		configErr   *core.ConfigError
		inputErr    *core.InvalidInputError
		securityErr *core.SecurityError
		deliveryErr *core.DeliveryError
	)

	switch {
	case errors.As(err, &rateErr):
		h.logger.Info("Rate limit exceeded", zap.String("client", clientAddr))
		w.Header().Set("Retry-After", retryAfterSeconds(rateErr.RetryAfter))
		writeJSON(w, http.StatusTooManyRequests, Response{
			Message: rateErr.Message,
			Error:   "Rate limit exceeded",
		})
	case errors.As(err, &configErr):
		writeJSON(w, http.StatusInternalServerError, Response{
			Message: "Email service configuration error",
			Error:   configErr.Reason,
		})
	case errors.As(err, &inputErr):
		writeJSON(w, http.StatusBadRequest, Response{
			Message: "Invalid form data",
			Error:   strings.Join(inputErr.Problems, ", "),
		})
	case errors.As(err, &securityErr):
		writeJSON(w, http.StatusBadRequest, Response{
			Message: securityErr.Message,
			Error:   "Security validation failed",
		})
	case errors.As(err, &deliveryErr):
		writeJSON(w, http.StatusInternalServerError, Response{
			Message: "Failed to send email",
			Error:   "Email delivery failed",
		})
	default:
		h.logger.Error("Contact form error", zap.String("client", clientAddr), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Response{
			Message: "An unexpected error occurred. Please try again.",
			Error:   "Unknown error",
		})
	}
}

// Session handles GET /api/contact/session
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.HoneypotSession())
}

// Stats handles GET /api/contact/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.adminToken == "" {
		http.NotFound(w, r)
		return
	}

	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
		writeJSON(w, http.StatusUnauthorized, Response{Message: "Unauthorized"})
		return
	}

	stats, err := h.service.RateLimitStats(r.Context())
	if err != nil {
		h.logger.Error("Failed to read rate limit stats", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Response{Message: "Failed to read stats"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
