package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"os"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/mikey/contact-guard/internal/config"
	"github.com/mikey/contact-guard/internal/core"
	"go.uber.org/zap"
)

// SMTPMailer delivers messages through an SMTP relay
type SMTPMailer struct {
	cfg       config.SMTPConfig
	timeout   time.Duration
	logger    *zap.Logger
	dialer    *net.Dialer
	tlsConfig *tls.Config
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(cfg config.SMTPConfig, timeout time.Duration, logger *zap.Logger) *SMTPMailer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SMTPMailer{
		cfg:       cfg,
		timeout:   timeout,
		logger:    logger,
		dialer:    &net.Dialer{},
		tlsConfig: &tls.Config{ServerName: cfg.Host},
	}
}

// Ready reports whether a relay is configured
func (m *SMTPMailer) Ready() error {
	if m.cfg.Host == "" {
		return errors.New("mail.smtp.host is not set")
	}
	if m.cfg.Port <= 0 {
		return fmt.Errorf("invalid mail.smtp.port %d", m.cfg.Port)
	}
	return nil
}

// Send delivers the message to msg.To
func (m *SMTPMailer) Send(ctx context.Context, msg *core.OutboundMessage) error {
	if err := m.Ready(); err != nil {
		return err
	}

	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	raw, err := buildMessage(msg, hostname)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	conn, err := m.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return fmt.Errorf("failed to set connection deadline: %w", err)
		}
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if m.cfg.StartTLS {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return errors.New("SMTP server does not support STARTTLS")
		}
		if err := c.StartTLS(m.tlsConfig); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if m.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("SMTP server does not support AUTH")
		}
		if err := c.Auth(sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := c.Mail(from.Address, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := c.Rcpt(to.Address, nil); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(raw); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// already accepted by the server
		m.logger.Warn("QUIT command failed", zap.Error(err))
	}

	m.logger.Debug("Email sent",
		zap.String("relay", addr),
		zap.String("to", to.Address),
		zap.Int("size", len(raw)))
	return nil
}
