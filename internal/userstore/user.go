package userstore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

// Status captures whether an identity is active or suspended.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ErrNameTaken is returned when a .rep name is already claimed by another user.
var ErrNameTaken = errors.New("name already claimed")

// ErrNotFound is returned when no identity matches the query.
var ErrNotFound = errors.New("user not found")

// User represents a FreeSpace identity known to the reward service. The ID is
// the opaque platform identifier; Name is the claimed .rep name (empty until
// the user claims one).
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	ReferrerID string    `json:"referrer_id,omitempty"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// repNamePattern constrains claimable names: lowercase alphanumerics and
// hyphens, 3-32 chars, no leading/trailing hyphen.
var repNamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{1,30})[a-z0-9]$`)

// NormalizeName lowercases and trims a candidate .rep name, stripping an
// optional ".rep" suffix.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(name, ".rep")
}

// ValidName reports whether a normalized name is claimable.
func ValidName(name string) bool {
	return repNamePattern.MatchString(name)
}

// Store persists FreeSpace identities and referral links.
type Store interface {
	// Ensure creates the identity row for id if absent and returns it.
	Ensure(ctx context.Context, id string) (*User, error)
	// ClaimName assigns a .rep name to the user. referrerName optionally
	// links the claim to an existing user's name for referral bonuses.
	// Claiming an already-taken name returns ErrNameTaken.
	ClaimName(ctx context.Context, id, name, referrerName string) (*User, error)
	// FindByName resolves a claimed name to its identity.
	FindByName(ctx context.Context, name string) (*User, error)
	// ReferrerOf returns the referrer's user id, or "" when the user was
	// not referred.
	ReferrerOf(ctx context.Context, id string) (string, error)
	Close() error
}
