/*
Package store provides the PostgreSQL implementations of the identity and archive
persistence contracts, built on a pgx connection pool.

This file implements the identity.Store contract. The users table carries unique
constraints on both name and invite_code; violations are translated into
identity.ConflictError values keyed by the violated constraint so the registry
can resolve races locally.
*/
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"friendchat/internal/app/db"
	"friendchat/internal/app/identity"
)

// user table unique constraint names, as declared in the migrations.
const (
	userNameConstraint       = "users_name_key"
	userInviteCodeConstraint = "users_invite_code_key"
)

// UserStore persists durable user identities in PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore constructs a UserStore on the given connection pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// GetUserByName looks a user up by display name.
func (s *UserStore) GetUserByName(ctx context.Context, name string) (*identity.User, error) {
	const query = `
		SELECT id, name, invite_code, created_at
		FROM users
		WHERE name = $1`

	return s.scanUser(s.pool.QueryRow(ctx, query, name))
}

// GetUserByInviteCode looks a user up by invite code.
func (s *UserStore) GetUserByInviteCode(ctx context.Context, code string) (*identity.User, error) {
	const query = `
		SELECT id, name, invite_code, created_at
		FROM users
		WHERE invite_code = $1`

	return s.scanUser(s.pool.QueryRow(ctx, query, code))
}

// CreateUser inserts a new user row. Unique violations come back as
// *identity.ConflictError naming the colliding field.
func (s *UserStore) CreateUser(ctx context.Context, name string, inviteCode string) (*identity.User, error) {
	const query = `
		INSERT INTO users (name, invite_code)
		VALUES ($1, $2)
		RETURNING id, name, invite_code, created_at`

	user, err := s.scanUser(s.pool.QueryRow(ctx, query, name, inviteCode))
	if err != nil {
		switch db.UniqueViolationConstraint(err) {
		case userNameConstraint:
			return nil, &identity.ConflictError{Field: identity.FieldName}
		case userInviteCodeConstraint:
			return nil, &identity.ConflictError{Field: identity.FieldInviteCode}
		}
		return nil, err
	}

	return user, nil
}

// scanUser reads one user row, mapping pgx.ErrNoRows to identity.ErrNotFound.
func (s *UserStore) scanUser(row pgx.Row) (*identity.User, error) {
	var user identity.User

	err := row.Scan(&user.ID, &user.Name, &user.InviteCode, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrNotFound
		}
		return nil, err
	}

	return &user, nil
}
