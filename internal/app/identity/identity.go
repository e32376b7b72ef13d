/*
Package identity contains the registry for durable user identities and invite codes.

This file defines the User struct and the store contract the registry runs against.
A User is created on first login for a given display name and is never mutated or
deleted afterwards; the name is the durable identity key.
*/
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by store lookups when no user matches the given key.
var ErrNotFound = errors.New("identity: user not found")

// Conflict field names, matching the unique constraints the store enforces.
const (
	FieldName       = "name"
	FieldInviteCode = "invite_code"
)

// ConflictError is returned by Store.CreateUser when an insert loses against a
// unique constraint. Field reports which key collided so the registry can tell
// a lost first-login race apart from an invite-code collision.
type ConflictError struct {
	Field string
}

// Error implements the standard Go error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("identity: conflicting %s on user insert", e.Field)
}

// User represents a durable chat participant identity.
type User struct {
	// ID is the surrogate key assigned by the store.
	ID uuid.UUID `json:"-"`

	// Name is the unique display name, treated as the durable identity key.
	Name string `json:"name"`

	// InviteCode is the unique 6-character referral code generated at first login.
	InviteCode string `json:"inviteCode"`

	// CreatedAt records the first successful login for this name.
	CreatedAt time.Time `json:"-"`
}

// Store is the persistence contract the registry depends on. The production
// implementation lives in internal/app/store; uniqueness of both name and
// invite_code is enforced by the store, not by the registry.
type Store interface {
	// GetUserByName looks a user up by display name. Returns ErrNotFound when absent.
	GetUserByName(ctx context.Context, name string) (*User, error)

	// GetUserByInviteCode looks a user up by invite code. Returns ErrNotFound when absent.
	GetUserByInviteCode(ctx context.Context, code string) (*User, error)

	// CreateUser inserts a new user. Returns *ConflictError when the name or
	// invite code already exists.
	CreateUser(ctx context.Context, name string, inviteCode string) (*User, error)
}
