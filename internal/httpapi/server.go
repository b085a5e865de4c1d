// Package httpapi exposes the manual-trigger and log-read endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	logx "workoutbot/pkg/logx"
)

type Config struct {
	Addr string
}

// Hooks are the collaborators the endpoints drive. SendToday runs the plan
// send for both channels synchronously; ReadLog returns the full delivery
// log contents.
type Hooks struct {
	SendToday func(ctx context.Context)
	ReadLog   func() (string, error)
}

// Server manages the HTTP listener lifecycle.
type Server struct {
	mu   sync.Mutex
	log  logx.Logger
	srv  *http.Server
	ln   net.Listener
	addr string
}

func New(log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{log: log.With(logx.String("comp", "http"))}
}

// Start binds the listener and begins serving. It returns the bound address
// (useful when cfg.Addr has port 0).
func (s *Server) Start(cfg Config, h Hooks) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return s.addr, nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/send-today-workout", s.handleSendToday(h))
	mux.HandleFunc("/logs", s.handleLogs(h))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr:        cfg.Addr,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return "", err
	}

	s.srv = srv
	s.ln = ln
	s.addr = ln.Addr().String()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("http server error", logx.String("addr", s.addr), logx.Err(err))
		}
	}()
	s.log.Info("http listening", logx.String("addr", s.addr))
	return s.addr, nil
}

func (s *Server) handleSendToday(h Hooks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.SendToday(r.Context())

		// Per-channel failures are deliberately swallowed at this boundary:
		// true delivery status is only discoverable via /logs.
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "Messages sent successfully."})
	}
}

func (s *Server) handleLogs(h Hooks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		content, err := h.ReadLog()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(content))
	}
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.ln = nil
	addr := s.addr
	s.addr = ""
	s.mu.Unlock()

	if srv == nil {
		return
	}
	shutdownCtx := ctx
	if shutdownCtx == nil {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
	}
	s.log.Info("http stopped", logx.String("addr", addr))
}
