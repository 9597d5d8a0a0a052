package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CreateShareParams are the fields needed to persist a newly issued share.
type CreateShareParams struct {
	KeyID     uuid.UUID
	Secret    string
	UserIndex string
	Owner     ShareOwner
}

// CreateShare inserts a new share row with status "granted".
func (s *Store) CreateShare(ctx context.Context, p CreateShareParams) (Share, error) {
	sh := Share{
		ID:        uuid.New(),
		KeyID:     p.KeyID,
		Secret:    p.Secret,
		UserIndex: p.UserIndex,
		Owner:     p.Owner,
		Status:    ShareStatusGranted,
	}
	const q = `
		INSERT INTO shares (id, key_id, secret, user_index, owner, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, q, sh.ID, sh.KeyID, sh.Secret, sh.UserIndex, sh.Owner, sh.Status).
		Scan(&sh.CreatedAt, &sh.UpdatedAt)
	if err != nil {
		return Share{}, fmt.Errorf("store: create share: %w", err)
	}
	return sh, nil
}

// GetShareBySecret looks up a share by the keccak256 digest of its hex
// y-value, returning ErrNotFound if no such share exists.
func (s *Store) GetShareBySecret(ctx context.Context, secretDigest string) (Share, error) {
	const q = `
		SELECT id, key_id, secret, user_index, owner, status, created_at, updated_at
		FROM shares
		WHERE secret = $1`
	return s.scanShare(s.db.QueryRowContext(ctx, q, secretDigest))
}

// GetShareByID looks up a share by its ID, returning ErrNotFound if absent.
func (s *Store) GetShareByID(ctx context.Context, id uuid.UUID) (Share, error) {
	const q = `
		SELECT id, key_id, secret, user_index, owner, status, created_at, updated_at
		FROM shares
		WHERE id = $1`
	return s.scanShare(s.db.QueryRowContext(ctx, q, id))
}

// RevokeShareByID marks a share revoked, returning ErrNotFound if it
// doesn't exist.
func (s *Store) RevokeShareByID(ctx context.Context, id uuid.UUID) (Share, error) {
	const q = `
		UPDATE shares
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, key_id, secret, user_index, owner, status, created_at, updated_at`
	return s.scanShare(s.db.QueryRowContext(ctx, q, id, ShareStatusRevoked))
}

func (s *Store) scanShare(row *sql.Row) (Share, error) {
	var sh Share
	err := row.Scan(&sh.ID, &sh.KeyID, &sh.Secret, &sh.UserIndex, &sh.Owner, &sh.Status, &sh.CreatedAt, &sh.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Share{}, ErrNotFound
	}
	if err != nil {
		return Share{}, fmt.Errorf("store: scan share: %w", err)
	}
	return sh, nil
}
