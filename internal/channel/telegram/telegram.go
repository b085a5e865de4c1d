// Package telegram implements the chat channel over the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"workoutbot/internal/channel"
	logx "workoutbot/pkg/logx"
)

// Telegram rejects messages above 4096 chars; stay under it with headroom.
const textLimit = 4000

type Config struct {
	Token  string
	ChatID int64
	// RatePerSec bounds outbound sends (chunked messages count individually).
	// Telegram throttles bots around one message per second per chat.
	RatePerSec int
	// Timeout bounds each API call. The dispatcher enforces no timeout of its
	// own, so this is the worst-case blocking bound for a chat send.
	Timeout time.Duration
}

// Adapter delivers message bodies to one fixed chat. The underlying bot
// client is created lazily on first send: missing or invalid credentials are
// a send-time failure, not a startup failure.
type Adapter struct {
	cfg     Config
	log     logx.Logger
	limiter *rate.Limiter

	mu  sync.Mutex
	bot *tele.Bot
}

func New(cfg Config, log logx.Logger) *Adapter {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{
		cfg:     cfg,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

func (a *Adapter) Kind() channel.Kind { return channel.KindTelegram }

// Send delivers body to the configured chat, chunking long messages at
// newline boundaries. Any transport failure is returned as *channel.SendError
// carrying the original body.
func (a *Adapter) Send(ctx context.Context, msg channel.Message) error {
	bot, err := a.client()
	if err != nil {
		return &channel.SendError{Channel: channel.KindTelegram, Body: msg.Body, Err: err}
	}

	chat := &tele.Chat{ID: a.cfg.ChatID}
	for _, chunk := range splitText(msg.Body, textLimit) {
		if err := a.limiter.Wait(ctx); err != nil {
			return &channel.SendError{Channel: channel.KindTelegram, Body: msg.Body, Err: err}
		}
		if _, err := bot.Send(chat, chunk, &tele.SendOptions{DisableWebPagePreview: true}); err != nil {
			return &channel.SendError{Channel: channel.KindTelegram, Body: msg.Body, Err: err}
		}
	}
	a.log.Debug("telegram message sent", logx.Int64("chat_id", a.cfg.ChatID))
	return nil
}

func (a *Adapter) client() (*tele.Bot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bot != nil {
		return a.bot, nil
	}
	if strings.TrimSpace(a.cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	// No poller: this adapter only sends. The HTTP client timeout is the
	// transport-level bound on a blocking send.
	b, err := tele.NewBot(tele.Settings{
		Token:  a.cfg.Token,
		Client: &http.Client{Timeout: a.cfg.Timeout},
	})
	if err != nil {
		return nil, err
	}
	a.bot = b
	return b, nil
}

// splitText splits long plain-text messages into chunks that are safe to
// send, preferring newline boundaries near the end of each window.
func splitText(s string, limit int) []string {
	if limit <= 0 {
		limit = textLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}

		if end < len(rs) {
			cut := -1
			for i := end - 1; i > start; i-- {
				if rs[i] == '\n' {
					// Avoid extremely small chunks.
					if i-start >= limit/3 {
						cut = i + 1
						break
					}
				}
			}
			if cut != -1 {
				end = cut
			}
		}

		chunk := strings.TrimRight(string(rs[start:end]), "\n")
		out = append(out, chunk)

		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
