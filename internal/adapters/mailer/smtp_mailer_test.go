package mailer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/mikey/contact-guard/internal/config"
	"github.com/mikey/contact-guard/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type received struct {
	from   string
	to     []string
	data   []byte
	authed bool
}

type testBackend struct {
	mu       sync.Mutex
	messages []received
}

func (b *testBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &testSession{backend: b}, nil
}

func (b *testBackend) last() received {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.messages[len(b.messages)-1]
}

type testSession struct {
	backend *testBackend
	current received
}

func (s *testSession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (s *testSession) Auth(_ string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(_, username, password string) error {
		if username != "relay" || password != "s3cret" {
			return errors.New("invalid credentials")
		}
		s.current.authed = true
		return nil
	}), nil
}

func (s *testSession) Reset() {
	s.current = received{authed: s.current.authed}
}

func (s *testSession) Logout() error {
	return nil
}

func (s *testSession) Mail(from string, _ *smtp.MailOptions) error {
	s.current.from = from
	return nil
}

func (s *testSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.current.to = append(s.current.to, to)
	return nil
}

func (s *testSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.current.data = data
	s.backend.mu.Lock()
	s.backend.messages = append(s.backend.messages, s.current)
	s.backend.mu.Unlock()
	return nil
}

func startTestServer(t *testing.T) (*testBackend, config.SMTPConfig) {
	t.Helper()
	backend := &testBackend{}
	server := smtp.NewServer(backend)
	server.Domain = "localhost"
	server.ReadTimeout = 5 * time.Second
	server.WriteTimeout = 5 * time.Second
	server.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go server.Serve(l)
	t.Cleanup(func() { server.Close() })

	addr := l.Addr().(*net.TCPAddr)
	return backend, config.SMTPConfig{Host: "127.0.0.1", Port: addr.Port}
}

func testMessage() *core.OutboundMessage {
	return &core.OutboundMessage{
		From:    "Contact Form <noreply@example.org>",
		To:      "owner@example.org",
		ReplyTo: "jordan@example.com",
		Subject: "Contact Form: Café opening",
		Text:    "Name: Jordan\n\nMessage:\nHello there",
		HTML:    "<p>Hello there</p>",
		Date:    time.Date(2026, 10, 17, 14, 30, 0, 0, time.UTC),
	}
}

func TestSMTPMailerSend(t *testing.T) {
	backend, cfg := startTestServer(t)
	cfg.Username = "relay"
	cfg.Password = "s3cret"
	m := NewSMTPMailer(cfg, 5*time.Second, zap.NewNop())

	require.NoError(t, m.Ready())
	require.NoError(t, m.Send(context.Background(), testMessage()))

	got := backend.last()
	assert.True(t, got.authed)
	assert.Equal(t, "noreply@example.org", got.from)
	assert.Equal(t, []string{"owner@example.org"}, got.to)

	msg, err := mail.ReadMessage(bytes.NewReader(got.data))
	require.NoError(t, err)
	assert.Equal(t, "jordan@example.com", msg.Header.Get("Reply-To"))

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Contact Form: Café opening", subject)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	bodies := map[string]string{}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		ct, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		b, err := io.ReadAll(part)
		require.NoError(t, err)
		bodies[ct] = strings.ReplaceAll(string(b), "\r\n", "\n")
	}
	assert.Equal(t, "Name: Jordan\n\nMessage:\nHello there", bodies["text/plain"])
	assert.Equal(t, "<p>Hello there</p>", bodies["text/html"])
}

func TestSMTPMailerAuthRejected(t *testing.T) {
	_, cfg := startTestServer(t)
	cfg.Username = "relay"
	cfg.Password = "wrong"
	m := NewSMTPMailer(cfg, 5*time.Second, zap.NewNop())

	err := m.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestSMTPMailerStartTLSUnsupported(t *testing.T) {
	_, cfg := startTestServer(t)
	cfg.StartTLS = true
	m := NewSMTPMailer(cfg, 5*time.Second, zap.NewNop())

	err := m.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STARTTLS")
}

func TestSMTPMailerReady(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{Port: 587}, 0, zap.NewNop())
	assert.Error(t, m.Ready())
	assert.Error(t, m.Send(context.Background(), testMessage()))

	m = NewSMTPMailer(config.SMTPConfig{Host: "smtp.example.org"}, 0, zap.NewNop())
	assert.Error(t, m.Ready())
}

func TestBuildMessageRejectsHeaderInjection(t *testing.T) {
	msg := testMessage()
	msg.ReplyTo = "a@example.com\r\nBcc: victim@example.com"

	_, err := buildMessage(msg, "example.org")
	assert.Error(t, err)
}

func TestLogMailer(t *testing.T) {
	m := NewLogMailer(zap.NewNop())
	assert.NoError(t, m.Ready())
	assert.NoError(t, m.Send(context.Background(), testMessage()))
}
