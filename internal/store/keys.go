package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CreateKeyParams are the fields needed to persist a newly custodied key.
type CreateKeyParams struct {
	UserID     uuid.UUID
	LocalKey   string
	LocalIndex string
	CloudKey   string
	Address    string
}

// CreateKey inserts a new key row.
func (s *Store) CreateKey(ctx context.Context, p CreateKeyParams) (Key, error) {
	k := Key{
		ID:         uuid.New(),
		UserID:     p.UserID,
		LocalKey:   p.LocalKey,
		LocalIndex: p.LocalIndex,
		CloudKey:   p.CloudKey,
		Address:    p.Address,
	}
	const q = `
		INSERT INTO keys (id, user_id, local_key, local_index, cloud_key, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, q, k.ID, k.UserID, k.LocalKey, k.LocalIndex, k.CloudKey, k.Address).
		Scan(&k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		return Key{}, fmt.Errorf("store: create key: %w", err)
	}
	return k, nil
}

// GetKeyByID looks up a key by its ID, returning ErrNotFound if absent.
func (s *Store) GetKeyByID(ctx context.Context, id uuid.UUID) (Key, error) {
	const q = `
		SELECT id, user_id, local_key, local_index, cloud_key, address, created_at, updated_at
		FROM keys
		WHERE id = $1`
	var k Key
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&k.ID, &k.UserID, &k.LocalKey, &k.LocalIndex, &k.CloudKey, &k.Address, &k.CreatedAt, &k.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Key{}, ErrNotFound
	}
	if err != nil {
		return Key{}, fmt.Errorf("store: get key by id: %w", err)
	}
	return k, nil
}
