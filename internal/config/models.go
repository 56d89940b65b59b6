package config

import (
	"fmt"
	"time"
)

// ServerConfig represents the HTTP listener configuration
type ServerConfig struct {
	ListenAddress   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	AdminToken      string
}

// RateLimitConfig represents the per-client rate limiter configuration
type RateLimitConfig struct {
	Store              string
	MaxAttempts        int
	Window             time.Duration
	BlockDuration      time.Duration
	CleanupProbability float64
	SQLitePath         string
	MySQLDSN           string
	PostgresURL        string
}

// FormConfig represents the submission timing bounds
type FormConfig struct {
	MinFillTime time.Duration
	MaxFormAge  time.Duration
}

// SMTPConfig represents the outbound SMTP relay
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	StartTLS bool
}

// MailConfig represents the email delivery configuration
type MailConfig struct {
	Provider string
	From     string
	To       string
	Timeout  time.Duration
	SMTP     SMTPConfig
}

// ReviewConfig represents the optional LLM review of accepted submissions
type ReviewConfig struct {
	Provider       string
	Threshold      float64
	Timeout        time.Duration
	TrustedDomains []string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GetServer returns the server configuration
func (c *Config) GetServer() (ServerConfig, error) {
	read, err := c.GetDuration("server.read_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	write, err := c.GetDuration("server.write_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	shutdown, err := c.GetDuration("server.shutdown_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		ReadTimeout:     read,
		WriteTimeout:    write,
		ShutdownTimeout: shutdown,
		MaxBodyBytes:    c.GetInt64("server.max_body_bytes"),
		AdminToken:      c.GetString("server.admin_token"),
	}, nil
}

// GetRateLimit returns the rate limiter configuration
func (c *Config) GetRateLimit() (RateLimitConfig, error) {
	window, err := c.GetDuration("ratelimit.window")
	if err != nil {
		return RateLimitConfig{}, err
	}
	block, err := c.GetDuration("ratelimit.block_duration")
	if err != nil {
		return RateLimitConfig{}, err
	}
	maxAttempts := c.GetInt("ratelimit.max_attempts")
	if maxAttempts < 1 {
		return RateLimitConfig{}, fmt.Errorf("ratelimit.max_attempts must be at least 1, got %d", maxAttempts)
	}
	return RateLimitConfig{
		Store:              c.GetString("ratelimit.store"),
		MaxAttempts:        maxAttempts,
		Window:             window,
		BlockDuration:      block,
		CleanupProbability: c.GetFloat64("ratelimit.cleanup_probability"),
		SQLitePath:         c.GetString("ratelimit.sqlite_path"),
		MySQLDSN:           c.GetString("ratelimit.mysql_dsn"),
		PostgresURL:        c.GetString("ratelimit.postgres_url"),
	}, nil
}

// GetForm returns the submission timing configuration
func (c *Config) GetForm() (FormConfig, error) {
	minFill, err := c.GetDuration("form.min_fill_time")
	if err != nil {
		return FormConfig{}, err
	}
	maxAge, err := c.GetDuration("form.max_form_age")
	if err != nil {
		return FormConfig{}, err
	}
	return FormConfig{MinFillTime: minFill, MaxFormAge: maxAge}, nil
}

// GetMail returns the email delivery configuration
func (c *Config) GetMail() (MailConfig, error) {
	timeout, err := c.GetDuration("mail.timeout")
	if err != nil {
		return MailConfig{}, err
	}
	return MailConfig{
		Provider: c.GetString("mail.provider"),
		From:     c.GetString("mail.from"),
		To:       c.GetString("mail.to"),
		Timeout:  timeout,
		SMTP: SMTPConfig{
			Host:     c.GetString("mail.smtp.host"),
			Port:     c.GetInt("mail.smtp.port"),
			Username: c.GetString("mail.smtp.username"),
			Password: c.GetString("mail.smtp.password"),
			StartTLS: c.GetBool("mail.smtp.starttls"),
		},
	}, nil
}

// GetReview returns the LLM review configuration
func (c *Config) GetReview() (ReviewConfig, error) {
	timeout, err := c.GetDuration("spam.review.timeout")
	if err != nil {
		return ReviewConfig{}, err
	}
	return ReviewConfig{
		Provider:       c.GetString("spam.review.provider"),
		Threshold:      c.GetFloat64("spam.review.threshold"),
		Timeout:        timeout,
		TrustedDomains: c.GetStringSlice("spam.trusted_domains"),
	}, nil
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}
