// Package field implements modular arithmetic over the prime field used by
// the custody engine's secret-sharing polynomials: the order of the
// secp256k1 group.
package field

import (
	"encoding/hex"
	"math/big"
)

// P is the secp256k1 group order. All arithmetic in this package is modulo P.
var P, _ = new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16)

// Element is a value in the field Z/pZ. The zero value is not a valid
// Element; use Zero, FromBig, or FromBytes.
type Element struct {
	v *big.Int
}

// Zero returns the additive identity.
func Zero() Element {
	return Element{v: new(big.Int)}
}

// FromBig reduces x modulo P and returns the resulting Element. x is not
// mutated.
func FromBig(x *big.Int) Element {
	v := new(big.Int).Mod(x, P)
	return Element{v: v}
}

// FromBytes interprets b as a big-endian unsigned integer and reduces it
// modulo P.
func FromBytes(b []byte) Element {
	return FromBig(new(big.Int).SetBytes(b))
}

// Big returns the element's value as a big.Int in [0, P). The returned value
// is a copy; mutating it does not affect e.
func (e Element) Big() *big.Int {
	return new(big.Int).Set(e.v)
}

// Bytes returns the element's big-endian representation, left-padded with
// zeroes to 32 bytes.
func (e Element) Bytes() []byte {
	b := e.v.Bytes()
	if len(b) >= 32 {
		return b
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// IsZero reports whether e is the additive identity.
func (e Element) IsZero() bool {
	return e.v.Sign() == 0
}

// Equal reports whether e and o represent the same residue.
func (e Element) Equal(o Element) bool {
	return e.v.Cmp(o.v) == 0
}

// Add returns e + o mod P.
func (e Element) Add(o Element) Element {
	sum := new(big.Int).Add(e.v, o.v)
	sum.Mod(sum, P)
	return Element{v: sum}
}

// Sub returns e - o mod P, computed as (e + (P - o mod P)) mod P to keep
// every intermediate value non-negative, per the custody engine's field
// arithmetic contract.
func (e Element) Sub(o Element) Element {
	negO := new(big.Int).Sub(P, o.v)
	negO.Mod(negO, P)
	sum := new(big.Int).Add(e.v, negO)
	sum.Mod(sum, P)
	return Element{v: sum}
}

// Mul returns e * o mod P.
func (e Element) Mul(o Element) Element {
	prod := new(big.Int).Mul(e.v, o.v)
	prod.Mod(prod, P)
	return Element{v: prod}
}

// Inverse returns the multiplicative inverse of e modulo P, computed via
// Fermat's little theorem as e^(P-2) mod P. The caller must never invoke
// Inverse on the zero element; the polynomial engine only does so on
// differences of distinct x-coordinates, which are guaranteed nonzero by its
// own precondition.
func (e Element) Inverse() Element {
	if e.IsZero() {
		panic("field: inverse of zero")
	}
	exp := new(big.Int).Sub(P, big.NewInt(2))
	inv := new(big.Int).Exp(e.v, exp, P)
	return Element{v: inv}
}

// String renders the element as lowercase hex, unpadded. It is meant for
// logging and error messages; callers that need a stable, round-trippable
// encoding (storage, digesting) must use Bytes and hex-encode that instead,
// since Text(16) can yield an odd number of hex digits.
func (e Element) String() string {
	return e.v.Text(16)
}

// HexBytes renders the element's 32-byte big-endian form as lowercase hex.
// Unlike String, this always yields an even-length, fixed-width string, so
// it is safe to hex.DecodeString and to digest deterministically.
func (e Element) HexBytes() string {
	return hex.EncodeToString(e.Bytes())
}
