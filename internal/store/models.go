package store

import (
	"time"

	"github.com/google/uuid"
)

// ShareOwner identifies who was holding a share at grant time.
type ShareOwner string

const (
	ShareOwnerAdmin   ShareOwner = "admin"
	ShareOwnerGuest   ShareOwner = "guest"
	ShareOwnerUnknown ShareOwner = "unknown"
)

// ShareStatus tracks whether a share is still usable for reconstruction.
type ShareStatus string

const (
	ShareStatusGranted ShareStatus = "granted"
	ShareStatusRevoked ShareStatus = "revoked"
	ShareStatusUnknown ShareStatus = "unknown"
)

// User is a tenant of the service, authenticated by the keccak256 digest of
// an opaque master-key credential.
type User struct {
	ID        uuid.UUID
	Secret    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Key is one custodied secp256k1 key. LocalKey and LocalIndex are the hex
// y/x halves of the share kept in the database; CloudKey is the vault slot
// name holding the vault-side share.
type Key struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	LocalKey   string
	LocalIndex string
	CloudKey   string
	Address    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Share is a third share of some Key, handed to a client and looked up by
// the keccak256 digest of its hex y-value.
type Share struct {
	ID        uuid.UUID
	KeyID     uuid.UUID
	Secret    string
	UserIndex string
	Owner     ShareOwner
	Status    ShareStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Log is an append-only audit record of a custody operation on a Key.
type Log struct {
	ID        uuid.UUID
	KeyID     uuid.UUID
	Action    string
	Data      []byte
	Message   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
