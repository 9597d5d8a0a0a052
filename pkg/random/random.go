// Package random produces uniform random bytes and alphanumeric strings from
// a cryptographically secure source, used for polynomial coefficients,
// evaluation points, user-facing secrets, and vault slot names.
package random

import (
	"crypto/rand"
	"fmt"
)

const alphanumeric = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Bytes returns n cryptographically secure random bytes.
func Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("random: read: %w", err)
	}
	return b, nil
}

// Alphanumeric returns an n-character string drawn uniformly from the
// 62-character set [0-9A-Za-z], used for user-visible credentials and vault
// slot names. The default call site in the custody protocol always uses
// n=8, matching the wire format documented in SPEC_FULL.md; callers that
// want a wider credential/slot space (see the Open Question in spec.md §9)
// can call this directly with a larger n.
func Alphanumeric(n int) (string, error) {
	out := make([]byte, n)
	// Rejection sampling keeps every character uniform over the 62-symbol
	// alphabet: 256 is not a multiple of 62, so reducing a raw byte mod 62
	// would bias the low symbols.
	idx := make([]byte, 1)
	for i := 0; i < n; i++ {
		for {
			if _, err := rand.Read(idx); err != nil {
				return "", fmt.Errorf("random: read: %w", err)
			}
			if int(idx[0]) < (256/len(alphanumeric))*len(alphanumeric) {
				out[i] = alphanumeric[int(idx[0])%len(alphanumeric)]
				break
			}
		}
	}
	return string(out), nil
}
