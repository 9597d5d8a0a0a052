package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CreateUser inserts a new user row keyed by the keccak256 digest of a
// freshly generated master-key credential. secretDigest is the digest, not
// the raw credential; the caller is responsible for digesting it.
func (s *Store) CreateUser(ctx context.Context, secretDigest string) (User, error) {
	u := User{ID: uuid.New(), Secret: secretDigest}
	const q = `
		INSERT INTO users (id, secret, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		RETURNING created_at, updated_at`
	if err := s.db.QueryRowContext(ctx, q, u.ID, u.Secret).Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return User{}, fmt.Errorf("store: create user: %w", err)
	}
	return u, nil
}

// GetUserBySecret looks up a user by the keccak256 digest of their
// master-key credential, returning ErrNotFound if no such user exists.
func (s *Store) GetUserBySecret(ctx context.Context, secretDigest string) (User, error) {
	const q = `
		SELECT id, secret, created_at, updated_at
		FROM users
		WHERE secret = $1`
	var u User
	err := s.db.QueryRowContext(ctx, q, secretDigest).Scan(&u.ID, &u.Secret, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("store: get user by secret: %w", err)
	}
	return u, nil
}
