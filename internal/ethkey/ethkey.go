// Package ethkey derives Ethereum addresses and produces ECDSA signatures
// from transiently reconstructed secp256k1 private keys. The caller passes
// the key in; this package never persists one.
package ethkey

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressFromPrivateKey derives the 0x-prefixed Ethereum address for the
// secp256k1 key encoded by the given 32-byte big-endian private key.
func AddressFromPrivateKey(privateKey []byte) (string, error) {
	priv, err := toECDSA(privateKey)
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(priv.PublicKey).Hex(), nil
}

// SignPersonalMessage signs message using the Ethereum "personal_sign"
// convention: keccak256("\x19Ethereum Signed Message:\n" + len(message) +
// message), then a recoverable secp256k1 ECDSA signature over that digest.
// It returns the 65-byte r‖s‖v signature.
func SignPersonalMessage(privateKey []byte, message []byte) ([]byte, error) {
	priv, err := toECDSA(privateKey)
	if err != nil {
		return nil, err
	}

	digest := PersonalMessageDigest(message)
	sig, err := crypto.Sign(digest, priv)
	if err != nil {
		return nil, fmt.Errorf("ethkey: sign: %w", err)
	}
	return sig, nil
}

// PersonalMessageDigest computes the Ethereum "personal_sign" digest for
// message: keccak256("\x19Ethereum Signed Message:\n" + len(message) +
// message).
func PersonalMessageDigest(message []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	return crypto.Keccak256([]byte(prefix), message)
}

// VerifyPersonalMessage reports whether sig is a valid personal-message
// signature over message by the key at address.
func VerifyPersonalMessage(address string, message, sig []byte) (bool, error) {
	if len(sig) != 65 {
		return false, fmt.Errorf("ethkey: signature must be 65 bytes, got %d", len(sig))
	}
	digest := PersonalMessageDigest(message)

	// crypto.SigToPub expects v in {0,1}.
	normalized := append([]byte(nil), sig...)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}

	pub, err := crypto.SigToPub(digest, normalized)
	if err != nil {
		return false, fmt.Errorf("ethkey: recover: %w", err)
	}
	return common.HexToAddress(address) == crypto.PubkeyToAddress(*pub), nil
}

func toECDSA(privateKey []byte) (*ecdsa.PrivateKey, error) {
	if len(privateKey) != 32 {
		return nil, fmt.Errorf("ethkey: private key must be 32 bytes, got %d", len(privateKey))
	}
	priv, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, fmt.Errorf("ethkey: invalid private key: %w", err)
	}
	return priv, nil
}
