package config

import (
	"os"
	"strings"
)

type Config struct {
	// Timezone is the IANA zone all triggers and timestamps are evaluated in.
	// It is deliberately not the host zone: "07:00" means the same civil time
	// wherever the process runs.
	Timezone string `json:"timezone,omitempty"`

	Logging     LoggingConfig     `json:"logging"`
	Catalog     CatalogConfig     `json:"catalog"`
	DeliveryLog DeliveryLogConfig `json:"delivery_log"`
	HTTP        HTTPConfig        `json:"http"`
	Telegram    TelegramConfig    `json:"telegram"`
	Email       EmailConfig       `json:"email"`
	Schedule    ScheduleConfig    `json:"schedule,omitempty"`
	Dispatcher  DispatcherConfig  `json:"dispatcher,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CatalogConfig struct {
	// Path to the workouts JSON file, keyed by weekday name.
	Path string `json:"path"`
}

// DeliveryLogConfig selects the durable delivery-attempt store.
//
// Driver values:
//   - "file": one plain-text line per attempt (default)
//   - "sqlite": SQLite database file
type DeliveryLogConfig struct {
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path"`
}

type HTTPConfig struct {
	Addr string `json:"addr,omitempty"`
	// BaseURL is the public base used in the "useful links" block of every
	// message (e.g. "https://workoutbot.example.com").
	BaseURL string `json:"base_url,omitempty"`
}

// TelegramConfig holds the chat destination. The bot token comes from the
// environment (TELEGRAM_BOT_TOKEN), never from the config file.
type TelegramConfig struct {
	ChatID int64 `json:"chat_id"`
}

// EmailConfig holds the mail-submission endpoint and recipient. The account
// username/password come from the environment (EMAIL_ADDRESS/EMAIL_PASSWORD).
type EmailConfig struct {
	Host string `json:"host"`
	Port int    `json:"port,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to"`
}

// ScheduleConfig holds the trigger cadences. The set of triggers itself is
// fixed; only the civil times are tunable.
type ScheduleConfig struct {
	MorningAt string `json:"morning_at,omitempty"` // HH:MM, default "07:00"
	EveningAt string `json:"evening_at,omitempty"` // HH:MM, default "17:00"
	ReportAt  string `json:"report_at,omitempty"`  // HH:MM Sunday, default "21:00"
}

type DispatcherConfig struct {
	Workers     int `json:"workers,omitempty"`
	QueueSize   int `json:"queue_size,omitempty"`
	HistorySize int `json:"history_size,omitempty"`
}

// WithDefaults returns a copy with defaults filled in for omitted fields.
func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.Timezone) == "" {
		c.Timezone = "Asia/Kolkata"
	}
	if strings.TrimSpace(c.Catalog.Path) == "" {
		c.Catalog.Path = "./workouts.json"
	}
	if strings.TrimSpace(c.DeliveryLog.Driver) == "" {
		c.DeliveryLog.Driver = "file"
	}
	if strings.TrimSpace(c.DeliveryLog.Path) == "" {
		c.DeliveryLog.Path = "./notification_logs.log"
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Email.Port == 0 {
		c.Email.Port = 587
	}
	if strings.TrimSpace(c.Schedule.MorningAt) == "" {
		c.Schedule.MorningAt = "07:00"
	}
	if strings.TrimSpace(c.Schedule.EveningAt) == "" {
		c.Schedule.EveningAt = "17:00"
	}
	if strings.TrimSpace(c.Schedule.ReportAt) == "" {
		c.Schedule.ReportAt = "21:00"
	}
	if c.Dispatcher.Workers <= 0 {
		c.Dispatcher.Workers = 2
	}
	if c.Dispatcher.QueueSize <= 0 {
		c.Dispatcher.QueueSize = 32
	}
	if c.Dispatcher.HistorySize <= 0 {
		c.Dispatcher.HistorySize = 100
	}
	return c
}

// Credentials are supplied out-of-band via the environment (optionally loaded
// from a .env file by main). Missing values are not validated here: they
// surface as channel-level send failures at first use.
type Credentials struct {
	TelegramToken string
	SMTPUsername  string
	SMTPPassword  string
}

func CredentialsFromEnv() Credentials {
	return Credentials{
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		SMTPUsername:  strings.TrimSpace(os.Getenv("EMAIL_ADDRESS")),
		SMTPPassword:  os.Getenv("EMAIL_PASSWORD"),
	}
}
