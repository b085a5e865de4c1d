package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"workoutbot/internal/channel"
	logx "workoutbot/pkg/logx"
)

func TestBuildMessage(t *testing.T) {
	t.Parallel()
	got := string(buildMessage("bot@example.com", "me@example.com", "🏋️ Monday Workout Plan", "• Squats\n   - Set 1: 60 × 5 reps"))

	want := "From: bot@example.com\r\n" +
		"To: me@example.com\r\n" +
		"Subject: 🏋️ Monday Workout Plan\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		"• Squats\n   - Set 1: 60 × 5 reps\r\n"
	if got != want {
		t.Fatalf("message:\n%q\nwant:\n%q", got, want)
	}
}

func TestBuildMessageHeaderBodySplit(t *testing.T) {
	t.Parallel()
	got := string(buildMessage("a@x", "b@x", "s", "body"))
	head, body, ok := strings.Cut(got, "\r\n\r\n")
	if !ok {
		t.Fatal("missing blank line between headers and body")
	}
	for _, h := range []string{"From: a@x", "To: b@x", "Subject: s", "MIME-Version: 1.0"} {
		if !strings.Contains(head, h) {
			t.Errorf("headers missing %q", h)
		}
	}
	if body != "body\r\n" {
		t.Errorf("body = %q", body)
	}
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()
	a := New(Config{Host: "smtp.example.com", Username: "user@example.com", To: "me@example.com"}, logx.Nop())
	if a.cfg.Port != 587 {
		t.Errorf("Port = %d, want 587", a.cfg.Port)
	}
	if a.cfg.From != "user@example.com" {
		t.Errorf("From = %q, want username fallback", a.cfg.From)
	}
	if a.cfg.Timeout <= 0 {
		t.Errorf("Timeout = %v", a.cfg.Timeout)
	}
	if a.Kind() != channel.KindEmail {
		t.Errorf("Kind = %v", a.Kind())
	}
}

func TestSendMissingRecipient(t *testing.T) {
	t.Parallel()
	a := New(Config{Host: "smtp.example.com", Username: "user@example.com"}, logx.Nop())

	err := a.Send(context.Background(), channel.Message{Subject: "s", Body: "plan"})
	if err == nil {
		t.Fatal("expected error for empty recipient")
	}
	var se *channel.SendError
	if !errors.As(err, &se) {
		t.Fatalf("error type = %T, want *channel.SendError", err)
	}
	if se.Channel != channel.KindEmail {
		t.Errorf("Channel = %v", se.Channel)
	}
	if se.Body != "plan" {
		t.Errorf("Body = %q", se.Body)
	}
}

func TestSendDialFailure(t *testing.T) {
	t.Parallel()
	// Port 1 on localhost: nothing listens there, dial fails fast.
	a := New(Config{
		Host:     "127.0.0.1",
		Port:     1,
		Username: "user@example.com",
		To:       "me@example.com",
		Timeout:  2 * time.Second,
	}, logx.Nop())

	err := a.Send(context.Background(), channel.Message{Subject: "s", Body: "plan"})
	if err == nil {
		t.Fatal("expected dial error")
	}
	var se *channel.SendError
	if !errors.As(err, &se) {
		t.Fatalf("error type = %T, want *channel.SendError", err)
	}
	if !strings.Contains(se.Error(), "me@example.com") {
		t.Errorf("error %q does not name the recipient", se.Error())
	}
}
