// Package deliverylog is the durable, append-only record of delivery
// attempts. Every append is independently flushed: the process may be killed
// between scheduled jobs without losing history.
package deliverylog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	logx "workoutbot/pkg/logx"
)

type Level string

const (
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

// Attempt is one logged outcome of trying to send through a channel.
type Attempt struct {
	At      time.Time
	Level   Level
	Channel string
	Message string
}

// Line renders the attempt in the log's canonical single-line form.
func (a Attempt) Line() string {
	return fmt.Sprintf("%s - %s - %s", a.At.Format(time.RFC3339), a.Level, a.Message)
}

// Log is the persistence contract. Append is synchronous and safe for
// concurrent callers; records are never edited or deleted by the running
// process. ReadAll returns the full contents verbatim for display.
type Log interface {
	Append(a Attempt) error
	ReadAll() (string, error)
	Close() error
}

// Config selects the backend.
//
// Driver values:
//   - "file": one plain-text line per attempt
//   - "sqlite": SQLite database file
type Config struct {
	Driver string
	Path   string
}

// Open initializes the configured delivery log store.
func Open(cfg Config, log logx.Logger) (Log, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown delivery log driver: " + cfg.Driver)
	}
}
