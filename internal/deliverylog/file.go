package deliverylog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "workoutbot/pkg/logx"
)

// fileLog is the dependency-free backend: one line per attempt, appended and
// fsynced before Append returns. The mutex serializes writers so concurrent
// appends never interleave partial lines.
type fileLog struct {
	log  logx.Logger
	path string

	mu sync.Mutex
	f  *os.File
}

func openFile(cfg Config, log logx.Logger) (Log, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("delivery log path is required for file driver")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &fileLog{log: log, path: path, f: f}, nil
}

func (l *fileLog) Append(a Attempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return errors.New("delivery log closed")
	}
	if _, err := l.f.WriteString(a.Line() + "\n"); err != nil {
		return err
	}
	return l.f.Sync()
}

func (l *fileLog) ReadAll() (string, error) {
	b, err := os.ReadFile(l.path)
	if err != nil {
		return "", fmt.Errorf("read delivery log: %w", err)
	}
	return string(b), nil
}

func (l *fileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}
