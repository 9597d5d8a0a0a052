// Package digest provides the one-way mapping from bearer credentials to a
// fixed-width equality key, used both as the stored form of user/share
// secrets and as the lookup key against the share registry.
package digest

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/crypto"
)

// Of returns the lowercase hex encoding of Keccak-256 of the UTF-8 bytes of
// s. There is no salt: the inputs are either server-generated high-entropy
// secrets or externally random credentials, and the purpose is equality
// indexing rather than password hashing.
func Of(s string) string {
	sum := crypto.Keccak256([]byte(s))
	return hex.EncodeToString(sum)
}
