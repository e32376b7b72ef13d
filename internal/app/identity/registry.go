/*
Package identity contains the registry for durable user identities and invite codes.

This file defines the Registry struct, which owns user resolution and invite-code
issuance. Creation follows an optimistic insert-then-retry pattern: the store's
unique constraints are the sole serialization point, and constraint violations are
resolved locally instead of surfacing to the caller.
*/
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"friendchat/internal/pkg/logx"
	"friendchat/internal/pkg/randx"
)

// maxCreateAttempts bounds the regenerate-and-retry loop for invite-code
// collisions. The 36^6 code space makes more than one retry vanishingly rare.
const maxCreateAttempts = 5

// Registry resolves and creates durable user identities.
type Registry struct {
	store Store

	// structured logger with Registry context.
	logger zerolog.Logger
}

// NewRegistry constructs a Registry backed by the given store.
func NewRegistry(store Store) *Registry {
	return &Registry{
		store:  store,
		logger: logx.Logger().With().Str("component", "Registry").Logger(),
	}
}

// ResolveOrCreate looks a user up by display name, creating the identity with a
// fresh unique invite code on first login. It is idempotent per name: two
// concurrent first logins for the same name resolve to the same user, with the
// losing writer re-reading the winner's record rather than failing the caller.
func (r *Registry) ResolveOrCreate(ctx context.Context, name string) (*User, error) {
	user, err := r.store.GetUserByName(ctx, name)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("lookup user %q: %w", name, err)
	}

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		code, err := randx.InviteCode()
		if err != nil {
			return nil, fmt.Errorf("generate invite code: %w", err)
		}

		user, err = r.store.CreateUser(ctx, name, code)
		if err == nil {
			r.logger.Info().
				Str("name", name).
				Str("invite_code", code).
				Msg("New user created on first login.")
			return user, nil
		}

		var conflict *ConflictError
		if !errors.As(err, &conflict) {
			return nil, fmt.Errorf("create user %q: %w", name, err)
		}

		switch conflict.Field {
		case FieldName:
			// Lost the first-login race. The record exists now, so re-read it.
			r.logger.Info().
				Str("name", name).
				Msg("Concurrent first login detected, re-reading existing user.")

			user, err = r.store.GetUserByName(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("re-read user %q after lost insert race: %w", name, err)
			}
			return user, nil

		case FieldInviteCode:
			r.logger.Warn().
				Str("name", name).
				Int("attempt", attempt).
				Msg("Invite code collision, regenerating.")
			continue

		default:
			return nil, fmt.Errorf("create user %q: unexpected conflict on %q", name, conflict.Field)
		}
	}

	return nil, fmt.Errorf("create user %q: exhausted %d invite code attempts", name, maxCreateAttempts)
}

// ValidateInviteCode resolves the user owning the given invite code, for display
// as the "referred by" identity. Returns ErrNotFound when the code belongs to no
// user; the code grants no privilege beyond that display.
func (r *Registry) ValidateInviteCode(ctx context.Context, code string) (*User, error) {
	if !randx.IsValidInviteCode(code) {
		return nil, ErrNotFound
	}

	user, err := r.store.GetUserByInviteCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup invite code: %w", err)
	}

	return user, nil
}
