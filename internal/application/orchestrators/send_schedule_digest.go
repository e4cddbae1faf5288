package orchestrators

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"feeminton/internal/adapters/email"
	"feeminton/internal/domain/calendar"
	"feeminton/internal/domain/schedule"
)

// digestRenderer escapes raw HTML in the Markdown source.
var digestRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// SendDigestInput carries input for the digest orchestrator.
type SendDigestInput struct {
	GroupID   int
	GroupName string
	Month     calendar.YearMonth
	Created   []schedule.Schedule
	Planned   int
	Failure   error // the error that stopped the batch, if any
	RequestID string
}

// SendDigestDeps holds dependencies for SendScheduleDigest.
type SendDigestDeps struct {
	Sender email.Sender
	To     []string
	From   string
}

// BuildDigestMarkdown writes the digest body as Markdown.
// PRE: none
// POST: One bullet per created schedule, in input order
func BuildDigestMarkdown(input SendDigestInput) string {
	var b strings.Builder
	group := input.GroupName
	if group == "" {
		group = fmt.Sprintf("group #%d", input.GroupID)
	}
	fmt.Fprintf(&b, "# Schedules for %s\n\n", group)
	fmt.Fprintf(&b, "Month: **%s**. Created **%d** of %d planned.\n\n", input.Month.Label(), len(input.Created), input.Planned)
	for _, s := range input.Created {
		p := s.ScheduleDate.Parts()
		fmt.Fprintf(&b, "- %s at %s (ID %d)\n", p.DisplayDate(), p.Time, s.ID)
	}
	if input.Failure != nil {
		fmt.Fprintf(&b, "\n> The batch stopped early: %s\n", input.Failure.Error())
	}
	return b.String()
}

// ExecuteSendScheduleDigest mails a summary of a recurring batch.
// PRE: deps.To is non-empty
// POST: One message sent; the caller only logs a failure
func ExecuteSendScheduleDigest(ctx context.Context, input SendDigestInput, deps SendDigestDeps) (email.Receipt, error) {
	md := BuildDigestMarkdown(input)
	var html bytes.Buffer
	if err := digestRenderer.Convert([]byte(md), &html); err != nil {
		return email.Receipt{}, fmt.Errorf("render digest: %w", err)
	}

	subject := fmt.Sprintf("%d schedules created for %s", len(input.Created), input.Month.Label())
	if input.Failure != nil {
		subject = fmt.Sprintf("Schedule batch stopped after %d of %d for %s", len(input.Created), input.Planned, input.Month.Label())
	}

	receipt, err := deps.Sender.Send(ctx, email.Message{
		To:        deps.To,
		From:      deps.From,
		Subject:   subject,
		HTML:      html.String(),
		Text:      md,
		Tags:      map[string]string{"kind": "schedule_digest"},
		RequestID: input.RequestID,
	})
	if err != nil {
		slog.Error("digest_event", "event", "send_failed", "group_id", input.GroupID, "error", err)
		return email.Receipt{}, err
	}
	slog.Info("digest_event", "event", "sent", "group_id", input.GroupID, "message_id", receipt.MessageID)
	return receipt, nil
}
