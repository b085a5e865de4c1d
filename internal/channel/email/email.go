// Package email implements the email channel over an authenticated SMTP
// submission session (STARTTLS on port 587).
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"workoutbot/internal/channel"
	logx "workoutbot/pkg/logx"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
	// Timeout bounds the whole session (dial through QUIT).
	Timeout time.Duration
}

// Adapter delivers message bodies as single-part plain-text mail to one fixed
// recipient. Every send opens a fresh session; the connection is closed on
// every exit path, success or failure.
type Adapter struct {
	cfg Config
	log logx.Logger
}

func New(cfg Config, log logx.Logger) *Adapter {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if strings.TrimSpace(cfg.From) == "" {
		cfg.From = cfg.Username
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{cfg: cfg, log: log}
}

func (a *Adapter) Kind() channel.Kind { return channel.KindEmail }

func (a *Adapter) Send(ctx context.Context, msg channel.Message) error {
	if err := a.submit(ctx, msg); err != nil {
		return &channel.SendError{
			Channel: channel.KindEmail,
			Body:    msg.Body,
			Err:     fmt.Errorf("to %s: %w", a.cfg.To, err),
		}
	}
	a.log.Debug("email sent", logx.String("to", a.cfg.To))
	return nil
}

func (a *Adapter) submit(ctx context.Context, msg channel.Message) error {
	if strings.TrimSpace(a.cfg.To) == "" {
		return errors.New("recipient address is empty")
	}
	if strings.TrimSpace(a.cfg.From) == "" {
		return errors.New("sender address is empty")
	}

	addr := net.JoinHostPort(a.cfg.Host, strconv.Itoa(a.cfg.Port))
	d := net.Dialer{Timeout: a.cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	// One deadline for the whole session keeps the worst-case blocking bounded.
	_ = conn.SetDeadline(time.Now().Add(a.cfg.Timeout))

	c, err := smtp.NewClient(conn, a.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	// Close tears down the socket on every path; Quit below ends the session
	// cleanly on success and makes the later Close a no-op.
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); !ok {
		return fmt.Errorf("server %s does not support STARTTLS", a.cfg.Host)
	}
	if err := c.StartTLS(&tls.Config{ServerName: a.cfg.Host}); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	auth := smtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.Host)
	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Mail(a.cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(a.cfg.To); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(buildMessage(a.cfg.From, a.cfg.To, msg.Subject, msg.Body)); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// buildMessage renders a single-part text/plain RFC 5322 message.
func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
