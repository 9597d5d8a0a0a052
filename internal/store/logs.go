package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CreateLogParams are the fields needed to append an audit log entry.
type CreateLogParams struct {
	KeyID   uuid.UUID
	Action  string
	Data    []byte
	Message *string
}

// CreateLog appends a new audit log row. Logging never blocks a custody
// operation on success; callers write logs fire-and-forget and only warn on
// failure (see internal/custody).
func (s *Store) CreateLog(ctx context.Context, p CreateLogParams) (Log, error) {
	l := Log{
		ID:      uuid.New(),
		KeyID:   p.KeyID,
		Action:  p.Action,
		Data:    p.Data,
		Message: p.Message,
	}
	const q = `
		INSERT INTO logs (id, key_id, action, data, message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, q, l.ID, l.KeyID, l.Action, l.Data, l.Message).
		Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Log{}, fmt.Errorf("store: create log: %w", err)
	}
	return l, nil
}

// GetLogsByKeyID returns every audit log row for a key, in no particular
// guaranteed order beyond what the database returns.
func (s *Store) GetLogsByKeyID(ctx context.Context, keyID uuid.UUID) ([]Log, error) {
	const q = `
		SELECT id, key_id, action, data, message, created_at, updated_at
		FROM logs
		WHERE key_id = $1`
	rows, err := s.db.QueryContext(ctx, q, keyID)
	if err != nil {
		return nil, fmt.Errorf("store: get logs by key id: %w", err)
	}
	defer rows.Close()

	var logs []Log
	for rows.Next() {
		var l Log
		if err := rows.Scan(&l.ID, &l.KeyID, &l.Action, &l.Data, &l.Message, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: get logs by key id: %w", err)
	}
	return logs, nil
}
