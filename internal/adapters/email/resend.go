package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

// ErrNoRecipients is returned when a message has no To address.
var ErrNoRecipients = errors.New("email has no recipients")

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a new ResendSender with the given API key and default from address.
// PRE: apiKey is a valid Resend API key; from is a valid sender address
// POST: Returns a ready-to-use sender
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// Send delivers one message via Resend.
// PRE: msg has at least one recipient and a subject
// POST: Email is queued for delivery; returns the Resend message ID
func (s *ResendSender) Send(ctx context.Context, msg Message) (Receipt, error) {
	if len(msg.To) == 0 {
		return Receipt{}, ErrNoRecipients
	}
	sent, err := s.client.Emails.SendWithContext(ctx, s.params(msg))
	if err != nil {
		slog.Error("resend_send_failed", "error", err, "to", msg.To, "subject", msg.Subject, "request_id", msg.RequestID)
		return Receipt{}, fmt.Errorf("resend send failed: %w", err)
	}

	slog.Info("resend_sent", "message_id", sent.Id, "to", msg.To, "subject", msg.Subject, "request_id", msg.RequestID)
	return Receipt{MessageID: sent.Id, SentAt: time.Now()}, nil
}

func (s *ResendSender) params(msg Message) *resend.SendEmailRequest {
	from := msg.From
	if from == "" {
		from = s.from
	}
	p := &resend.SendEmailRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	for name, value := range msg.Tags {
		p.Tags = append(p.Tags, resend.Tag{Name: name, Value: value})
	}
	if msg.RequestID != "" {
		p.Headers = map[string]string{"X-Request-Id": msg.RequestID}
	}
	return p
}
