// Package secretstore stores and retrieves the vault-side Shamir share
// under a randomly generated slot name in a Vault KV v2 mount.
package secretstore

import (
	"context"
	"errors"
	"fmt"

	vault "github.com/hashicorp/vault/api"

	"github.com/luxfi/kms/pkg/polynomial"
)

// mount is the KV v2 secrets engine mount point every slot lives under.
const mount = "secret"

// ErrStorage wraps any failure talking to the backing Vault instance.
var ErrStorage = errors.New("secretstore: storage error")

// Store puts and gets ShareStore values in a Vault KV v2 mount.
type Store struct {
	client *vault.Client
}

// New builds a Store from a Vault address and token. The token is expected
// to already carry whatever policy is needed to read/write under mount.
func New(address, token string) (*Store, error) {
	cfg := vault.DefaultConfig()
	cfg.Address = address
	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("secretstore: new client: %w", err)
	}
	client.SetToken(token)
	return &Store{client: client}, nil
}

// Put writes share under slot. A slot name should come from pkg/random's
// Alphanumeric generator so that it cannot be guessed. The write is a
// check-and-set with version 0, so Vault rejects it if slot already holds a
// value; that collision is reported as ErrStorage like any other failure.
func (s *Store) Put(ctx context.Context, slot string, share polynomial.ShareStore) error {
	data := map[string]any{"x": share.X, "y": share.Y}
	_, err := s.client.KVv2(mount).Put(ctx, slot, data, vault.WithCheckAndSet(0))
	if err != nil {
		return fmt.Errorf("secretstore: put %s: %w: %w", slot, ErrStorage, err)
	}
	return nil
}

// Get reads back the share stored under slot.
func (s *Store) Get(ctx context.Context, slot string) (polynomial.ShareStore, error) {
	secret, err := s.client.KVv2(mount).Get(ctx, slot)
	if err != nil {
		return polynomial.ShareStore{}, fmt.Errorf("secretstore: get %s: %w: %w", slot, ErrStorage, err)
	}

	x, ok := secret.Data["x"].(string)
	if !ok {
		return polynomial.ShareStore{}, fmt.Errorf("secretstore: get %s: %w: missing x", slot, ErrStorage)
	}
	y, ok := secret.Data["y"].(string)
	if !ok {
		return polynomial.ShareStore{}, fmt.Errorf("secretstore: get %s: %w: missing y", slot, ErrStorage)
	}
	return polynomial.ShareStore{X: x, Y: y}, nil
}
