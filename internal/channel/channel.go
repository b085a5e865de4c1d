// Package channel defines the delivery-channel contract shared by the chat
// and email adapters.
package channel

import (
	"context"
	"fmt"
)

// Kind identifies a delivery transport.
type Kind string

const (
	KindTelegram Kind = "telegram"
	KindEmail    Kind = "email"
)

// Message is one outbound notification. Chat transports ignore Subject.
type Message struct {
	Subject string
	Body    string
}

// Adapter sends a formatted body to one fixed destination over a specific
// transport. A failed send returns *SendError; adapters never panic past
// their own boundary, so a bad send can never take down the dispatcher.
type Adapter interface {
	Kind() Kind
	Send(ctx context.Context, msg Message) error
}

// SendError wraps any transport-layer failure (auth, rate limit, network,
// invalid destination). It carries the undelivered body so the caller can
// log it for postmortem instead of losing the content.
type SendError struct {
	Channel Kind
	Body    string
	Err     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s send failed: %v", e.Channel, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
