package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
timezone: Asia/Kolkata
logging:
  level: info
  console: true
catalog:
  path: ./workouts.json
delivery_log:
  path: ./notification_logs.log
http:
  addr: ":8080"
  base_url: "https://workout.example.com"
telegram:
  chat_id: 123456789
email:
  host: smtp.gmail.com
  from: bot@example.com
  to: me@example.com
`

func TestParseValidYAML(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, validYAML))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Timezone != "Asia/Kolkata" {
		t.Errorf("Timezone = %q", cfg.Timezone)
	}
	if cfg.Telegram.ChatID != 123456789 {
		t.Errorf("ChatID = %d", cfg.Telegram.ChatID)
	}
	if cfg.Email.Host != "smtp.gmail.com" || cfg.Email.To != "me@example.com" {
		t.Errorf("email config = %+v", cfg.Email)
	}
	// Defaults fill for omitted fields.
	if cfg.Email.Port != 587 {
		t.Errorf("Email.Port = %d, want 587 default", cfg.Email.Port)
	}
	if cfg.Schedule.MorningAt != "07:00" || cfg.Schedule.EveningAt != "17:00" || cfg.Schedule.ReportAt != "21:00" {
		t.Errorf("schedule defaults = %+v", cfg.Schedule)
	}
	if cfg.DeliveryLog.Driver != "file" {
		t.Errorf("DeliveryLog.Driver = %q, want file default", cfg.DeliveryLog.Driver)
	}
}

func TestParseDefaultsOnEmptyConfig(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "{}\n"))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Timezone != "Asia/Kolkata" {
		t.Errorf("Timezone = %q, want default", cfg.Timezone)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Dispatcher.Workers != 2 || cfg.Dispatcher.QueueSize != 32 || cfg.Dispatcher.HistorySize != 100 {
		t.Errorf("dispatcher defaults = %+v", cfg.Dispatcher)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "timzone: Asia/Kolkata\n"))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "timezone: [unterminated\n"))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestParseMissingFile(t *testing.T) {
	t.Parallel()
	m := NewManager(filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadCommitsAndGetReturns(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, validYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get did not return the committed config")
	}
}

func TestSubscribePublishUnsubscribe(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, validYAML))

	ch := m.Subscribe(1)
	cfg := &Config{Timezone: "UTC"}
	m.publish(cfg)

	select {
	case got := <-ch:
		if got.Timezone != "UTC" {
			t.Fatalf("got %+v", got)
		}
	default:
		t.Fatal("subscriber did not receive the published config")
	}

	// Full buffer: publish drops the stale value and delivers the newest.
	m.publish(&Config{Timezone: "UTC"})
	m.publish(&Config{Timezone: "Asia/Kolkata"})
	select {
	case got := <-ch:
		if got.Timezone != "Asia/Kolkata" {
			t.Fatalf("stale config delivered: %+v", got)
		}
	default:
		t.Fatal("newest config not delivered")
	}

	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after Unsubscribe")
	}
}

func TestWatchPublishesOnChange(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, validYAML)
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ch := m.Subscribe(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()

	// Give the watcher time to install before writing.
	time.Sleep(300 * time.Millisecond)
	updated := strings.Replace(validYAML, "level: info", "level: debug", 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case got := <-ch:
		if got.Logging.Level != "debug" {
			t.Fatalf("reloaded config has level %q", got.Logging.Level)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no config published after file change")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not exit on cancel")
	}
}

func TestWatchIgnoresInvalidRewrite(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, validYAML)
	m := NewManager(path)
	prev, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ch := m.Subscribe(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()

	time.Sleep(300 * time.Millisecond)
	if err := os.WriteFile(path, []byte("not: [valid"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case got := <-ch:
		t.Fatalf("invalid config was published: %+v", got)
	case <-time.After(1 * time.Second):
	}
	if m.Get() != prev {
		t.Fatal("committed config changed after invalid rewrite")
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "  123:abc  ")
	t.Setenv("EMAIL_ADDRESS", "bot@example.com")
	t.Setenv("EMAIL_PASSWORD", "app password")

	c := CredentialsFromEnv()
	if c.TelegramToken != "123:abc" {
		t.Errorf("TelegramToken = %q", c.TelegramToken)
	}
	if c.SMTPUsername != "bot@example.com" {
		t.Errorf("SMTPUsername = %q", c.SMTPUsername)
	}
	if c.SMTPPassword != "app password" {
		t.Errorf("SMTPPassword = %q", c.SMTPPassword)
	}
}
