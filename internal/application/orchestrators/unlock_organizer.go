package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"feeminton/internal/domain/organizer"
)

// ErrInvalidPasscode is returned for a wrong or empty passcode.
var ErrInvalidPasscode = errors.New("invalid passcode")

// SessionUnlocker flips the organizer flag of a view-session.
type SessionUnlocker interface {
	SetOrganizer(token string, organizer bool) bool
}

// UnlockOrganizerInput carries input for the unlock orchestrator.
type UnlockOrganizerInput struct {
	SessionToken string
	Passcode     string
}

// UnlockOrganizerDeps holds dependencies for UnlockOrganizer.
type UnlockOrganizerDeps struct {
	Gate     organizer.Gate
	Sessions SessionUnlocker
}

// ExecuteUnlockOrganizer checks the passcode and unlocks the session.
// PRE: SessionToken names a live session
// POST: On success the session may toggle, delete and create
func ExecuteUnlockOrganizer(_ context.Context, input UnlockOrganizerInput, deps UnlockOrganizerDeps) error {
	if err := deps.Gate.Check(input.Passcode); err != nil {
		slog.Warn("organizer_event", "event", "unlock_rejected")
		return ErrInvalidPasscode
	}
	if !deps.Sessions.SetOrganizer(input.SessionToken, true) {
		return errors.New("session expired, reload the page")
	}
	slog.Info("organizer_event", "event", "unlocked")
	return nil
}
