package deliverylog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "workoutbot/pkg/logx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS attempts (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	at      TEXT NOT NULL,
	level   TEXT NOT NULL,
	channel TEXT NOT NULL,
	message TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS attempts_at ON attempts(at);
`

type sqliteLog struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Log, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteLog{db: db, log: log}, nil
}

func (l *sqliteLog) Append(a Attempt) error {
	if a.At.IsZero() {
		a.At = time.Now()
	}
	_, err := l.db.ExecContext(context.Background(),
		`INSERT INTO attempts(at, level, channel, message) VALUES(?,?,?,?)`,
		a.At.Format(time.RFC3339Nano), string(a.Level), a.Channel, a.Message,
	)
	return err
}

func (l *sqliteLog) ReadAll() (string, error) {
	rows, err := l.db.QueryContext(context.Background(),
		`SELECT at, level, channel, message FROM attempts ORDER BY at, id`)
	if err != nil {
		return "", fmt.Errorf("read delivery log: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var at, level, ch, msg string
		if err := rows.Scan(&at, &level, &ch, &msg); err != nil {
			return "", fmt.Errorf("read delivery log: %w", err)
		}
		a := Attempt{Level: Level(level), Channel: ch, Message: msg}
		if t, perr := time.Parse(time.RFC3339Nano, at); perr == nil {
			a.At = t
		}
		b.WriteString(a.Line())
		b.WriteString("\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("read delivery log: %w", err)
	}
	return b.String(), nil
}

func (l *sqliteLog) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
