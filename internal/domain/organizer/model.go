// Package organizer holds the passcode that unlocks mutating actions
// (toggle, delete, create) for a browser session.
package organizer

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MinPasscodeLength is the shortest passcode HashPasscode accepts.
const MinPasscodeLength = 8

// hashCost matches the cost used for stored credentials elsewhere.
const hashCost = 12

// Domain errors
var (
	ErrEmptyPasscode    = errors.New("passcode cannot be empty")
	ErrPasscodeTooShort = errors.New("passcode must be at least 8 characters")
	ErrWrongPasscode    = errors.New("wrong passcode")
	ErrInvalidHash      = errors.New("organizer hash must be a bcrypt hash")
)

// Gate checks passcodes against a bcrypt hash. A Gate with an empty hash is
// open: every session may mutate.
type Gate struct {
	hash string
}

// NewGate wraps a bcrypt hash; an empty hash yields an open gate.
// PRE: hash is empty or starts with "$2"
// POST: Returns ErrInvalidHash for anything else
func NewGate(hash string) (Gate, error) {
	hash = strings.TrimSpace(hash)
	if hash != "" && !strings.HasPrefix(hash, "$2") {
		return Gate{}, ErrInvalidHash
	}
	return Gate{hash: hash}, nil
}

// Enabled reports whether a passcode is required.
func (g Gate) Enabled() bool {
	return g.hash != ""
}

// Check verifies a passcode.
// PRE: none
// INVARIANT: Gate fields are not mutated
func (g Gate) Check(passcode string) error {
	if !g.Enabled() {
		return nil
	}
	if passcode == "" {
		return ErrEmptyPasscode
	}
	if err := bcrypt.CompareHashAndPassword([]byte(g.hash), []byte(passcode)); err != nil {
		return ErrWrongPasscode
	}
	return nil
}

// HashPasscode produces the value for FEEMINTON_ORGANIZER_HASH.
// PRE: passcode has at least MinPasscodeLength characters
// POST: Returns a bcrypt hash
func HashPasscode(passcode string) (string, error) {
	if passcode == "" {
		return "", ErrEmptyPasscode
	}
	if len(passcode) < MinPasscodeLength {
		return "", ErrPasscodeTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), hashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
