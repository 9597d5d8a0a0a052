// Package polynomial implements Shamir (k, n) secret sharing over the field
// in pkg/field: share generation, Lagrange reconstruction, and resharing
// (proactive issuance of a new share at a fresh evaluation point).
//
// Unlike the conventional scheme, x-coordinates are drawn uniformly at
// random rather than assigned the small sequential integers 1..n. This is
// intentional: the custody protocol lets the x-coordinate itself carry secret
// material (see the custody package), so knowing a share's y-value without
// its paired x-value must not be enough to reconstruct anything.
package polynomial

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/kms/pkg/field"
	"github.com/luxfi/kms/pkg/random"
)

// Share is a single point (X, Y) on the secret polynomial.
type Share struct {
	X field.Element
	Y field.Element
}

// ShareStore is the hex-string serialization of a Share used for storage
// (the vault slot value and the database's local_key/local_index columns).
// It round-trips Share via hex(big-endian bytes).
type ShareStore struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// ToStore converts a Share to its hex-string storage form. It uses the
// fixed-width byte encoding (HexBytes), not Element.String, so the result is
// always valid, even-length hex.
func (s Share) ToStore() ShareStore {
	return ShareStore{X: s.X.HexBytes(), Y: s.Y.HexBytes()}
}

// FromStore parses a ShareStore back into a Share.
func FromStore(s ShareStore) (Share, error) {
	x, ok := new(big.Int).SetString(s.X, 16)
	if !ok {
		return Share{}, fmt.Errorf("polynomial: parse x %q: %w", s.X, ErrBigIntParse)
	}
	y, ok := new(big.Int).SetString(s.Y, 16)
	if !ok {
		return Share{}, fmt.Errorf("polynomial: parse y %q: %w", s.Y, ErrBigIntParse)
	}
	return Share{X: field.FromBig(x), Y: field.FromBig(y)}, nil
}

// ErrBigIntParse is returned when a stored hex value fails to parse as an
// integer; this indicates corrupted storage, not caller error.
var ErrBigIntParse = errors.New("polynomial: stored value is not a valid hex integer")

// GenerateShares constructs a degree-(k-1) polynomial f with f(0) = secret
// and independent uniform coefficients, then evaluates it at n independent
// uniform random x-coordinates, returning the n resulting shares.
func GenerateShares(secret field.Element, n, k int) ([]Share, error) {
	if k < 1 {
		return nil, errors.New("polynomial: threshold must be at least 1")
	}
	if n < k {
		return nil, errors.New("polynomial: n must be at least the threshold k")
	}

	coeffs := make([]field.Element, k)
	coeffs[0] = secret
	for i := 1; i < k; i++ {
		c, err := randomElement()
		if err != nil {
			return nil, fmt.Errorf("polynomial: random coefficient: %w", err)
		}
		coeffs[i] = c
	}

	shares := make([]Share, n)
	for i := 0; i < n; i++ {
		x, err := randomElement()
		if err != nil {
			return nil, fmt.Errorf("polynomial: random x: %w", err)
		}
		shares[i] = Share{X: x, Y: evaluate(coeffs, x)}
	}
	return shares, nil
}

// evaluate computes f(x) mod p via Horner's method, given f's coefficients in
// increasing order of power (coeffs[0] is the constant term).
func evaluate(coeffs []field.Element, x field.Element) field.Element {
	result := field.Zero()
	for i := len(coeffs) - 1; i >= 0; i-- {
		result = result.Mul(x).Add(coeffs[i])
	}
	return result
}

// ReconstructSecret performs Lagrange interpolation at z=0 over the given
// shares, which must have pairwise-distinct x-coordinates. Any subset of
// size >= k suffices to recover the secret; this function does not itself
// enforce a minimum size, since the caller (the custody protocol) always
// supplies exactly the threshold number of shares.
func ReconstructSecret(shares []Share) (field.Element, error) {
	if len(shares) == 0 {
		return field.Element{}, errors.New("polynomial: no shares supplied")
	}
	if err := requireDistinctX(shares); err != nil {
		return field.Element{}, err
	}

	sum := field.Zero()
	for i, si := range shares {
		coeff := lagrangeCoefficientAtZero(shares, i)
		sum = sum.Add(si.Y.Mul(coeff))
	}
	return sum, nil
}

// AddShare reshares the polynomial implied by the given shares at a fresh,
// uniformly random evaluation point x', without ever materializing the
// polynomial's coefficients or its constant term. The returned Share is
// mathematically a valid share of the same polynomial as the input shares.
func AddShare(shares []Share) (Share, error) {
	if err := requireDistinctX(shares); err != nil {
		return Share{}, err
	}

	newX, err := randomElement()
	if err != nil {
		return Share{}, fmt.Errorf("polynomial: random x: %w", err)
	}

	sum := field.Zero()
	for i, si := range shares {
		coeff := lagrangeCoefficientAt(shares, i, newX)
		sum = sum.Add(si.Y.Mul(coeff))
	}
	return Share{X: newX, Y: sum}, nil
}

// lagrangeCoefficientAtZero computes L_i(0) = prod_{j != i} x_j / (x_j - x_i).
func lagrangeCoefficientAtZero(shares []Share, i int) field.Element {
	return lagrangeCoefficientAt(shares, i, field.Zero())
}

// lagrangeCoefficientAt computes L_i(z) = prod_{j != i} (z - x_j) / (x_i - x_j).
// At z=0 this specializes to prod_{j != i} x_j * (x_j - x_i)^-1, matching
// reconstruction; at an arbitrary z it gives the coefficient used to
// evaluate the interpolated polynomial at a fresh point without revealing
// its coefficients, which is exactly what resharing needs.
func lagrangeCoefficientAt(shares []Share, i int, z field.Element) field.Element {
	xi := shares[i].X
	num := fieldOne()
	den := fieldOne()
	for j, sj := range shares {
		if j == i {
			continue
		}
		num = num.Mul(z.Sub(sj.X))
		den = den.Mul(xi.Sub(sj.X))
	}
	return num.Mul(den.Inverse())
}

func requireDistinctX(shares []Share) error {
	seen := make(map[string]struct{}, len(shares))
	for _, s := range shares {
		key := s.X.String()
		if _, ok := seen[key]; ok {
			return errors.New("polynomial: shares must have pairwise-distinct x-coordinates")
		}
		seen[key] = struct{}{}
	}
	return nil
}

func randomElement() (field.Element, error) {
	b, err := random.Bytes(32)
	if err != nil {
		return field.Element{}, err
	}
	return field.FromBytes(b), nil
}

func fieldOne() field.Element {
	return field.FromBig(big.NewInt(1))
}
