// Package email delivers outbound mail (the schedule digest) through an
// external provider.
package email

import (
	"context"
	"time"
)

// Message is one outbound email.
type Message struct {
	To      []string
	From    string // e.g. "Feeminton <noreply@feeminton.app>"; empty uses the sender default
	Subject string
	HTML    string
	Text    string            // plain-text alternative
	Tags    map[string]string // provider tags for filtering, e.g. {"kind": "digest"}
	// RequestID ties the mail to the page request that triggered it.
	RequestID string
}

// Receipt is what the provider hands back.
type Receipt struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}
