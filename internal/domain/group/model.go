package group

import (
	"errors"
	"strings"
)

// MaxNameLength bounds group display names.
const MaxNameLength = 80

// Domain errors
var (
	ErrEmptyName   = errors.New("group name cannot be empty")
	ErrNameTooLong = errors.New("group name cannot exceed 80 characters")
)

// Group is a set of members who share a practice schedule.
type Group struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Validate checks if the Group has valid data.
// PRE: Group struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (g *Group) Validate() error {
	name := strings.TrimSpace(g.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}
