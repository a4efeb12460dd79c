// internal/app/system/mailer/mailer.go
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Email is one outbound message. Kind labels it for logs and metrics.
type Email struct {
	Kind     string
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
}

// SMTPSender delivers mail through an SMTP relay (Mailpit locally, SES in
// production). Authentication is used only when User is set.
type SMTPSender struct {
	cfg Config
}

func NewSMTPSender(cfg Config) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send delivers e. net/smtp has no context support, so ctx only gates the
// start of the attempt.
func (s *SMTPSender) Send(ctx context.Context, e Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	}
	msg, err := buildMessage(s.cfg.From, s.cfg.FromName, e, time.Now())
	if err != nil {
		return err
	}
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{e.To}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", e.To, err)
	}
	return nil
}

// buildMessage renders e as a multipart/alternative MIME message.
func buildMessage(from, fromName string, e Email, now time.Time) ([]byte, error) {
	if _, err := mail.ParseAddress(e.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", e.To, err)
	}
	sender := (&mail.Address{Name: fromName, Address: from}).String()
	boundary := "ah-" + uuid.NewString()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", sender)
	fmt.Fprintf(&buf, "To: %s\r\n", e.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", e.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	parts := []struct{ ctype, body string }{
		{"text/plain", e.TextBody},
		{"text/html", e.HTMLBody},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		fmt.Fprintf(&buf, "Content-Type: %s; charset=utf-8\r\n", p.ctype)
		buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
		qp := quotedprintable.NewWriter(&buf)
		if _, err := qp.Write([]byte(p.body)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
		buf.WriteString("\r\n")
	}
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes(), nil
}

// LogSender logs mail instead of sending it. Used when mail is disabled.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(_ context.Context, e Email) error {
	s.Log.Info("mail disabled; not sent",
		zap.String("kind", e.Kind),
		zap.String("to", e.To),
		zap.String("subject", e.Subject))
	return nil
}

// Recorder captures sent mail in memory. Fail makes Send return an error
// for the listed recipients.
type Recorder struct {
	mu   sync.Mutex
	sent []Email
	Fail map[string]error
}

func (r *Recorder) Send(_ context.Context, e Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.Fail[e.To]; ok {
		return err
	}
	r.sent = append(r.sent, e)
	return nil
}

// Sent returns a copy of the delivered messages.
func (r *Recorder) Sent() []Email {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Email, len(r.sent))
	copy(out, r.sent)
	return out
}

// SentTo returns the delivered messages addressed to to.
func (r *Recorder) SentTo(to string) []Email {
	var out []Email
	for _, e := range r.Sent() {
		if e.To == to {
			out = append(out, e)
		}
	}
	return out
}
