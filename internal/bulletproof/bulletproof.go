// bulletproof.go - Types and parameters for the bulletproof range-proof engine.
//
// Implements logarithmic-size zero-knowledge range proofs built from an
// inner-product argument, following:
//
//	Bulletproofs: Short Proofs for Confidential Transactions and More
//	Bünz, Bootle, Boneh, Poelstra, Wuille, Maxwell (2018)

package bulletproof

import (
	"errors"
	"fmt"
	"io"
	"math/bits"

	"zkengine/internal/group"
)

// ErrValueOutOfRange reports a value outside [0, 2^n) for the configured bit
// size n.
var ErrValueOutOfRange = errors.New("bulletproof: value out of range")

// DeserializationError reports malformed proof bytes.
type DeserializationError struct {
	Reason string
}

func (e *DeserializationError) Error() string {
	return "bulletproof: cannot deserialize proof: " + e.Reason
}

// InnerProductProof is the recursive argument that halves the committed
// vectors each round. For an n-bit range, L and R hold log2(n) entries each.
type InnerProductProof struct {
	L []group.Point
	R []group.Point
	A group.Scalar
	B group.Scalar
}

// RangeProof proves that a Pedersen-committed value lies in [0, 2^n) without
// revealing it.
type RangeProof struct {
	A    group.Point // commitment to the bit vectors
	S    group.Point // commitment to the blinding vectors
	T1   group.Point // commitment to the degree-1 coefficient of t(X)
	T2   group.Point // commitment to the degree-2 coefficient of t(X)
	TauX group.Scalar
	Mu   group.Scalar
	THat group.Scalar // t(x) = <l(x), r(x)>
	IPP  InnerProductProof
}

// Rounds returns the number of inner-product rounds carried by the proof.
func (p *RangeProof) Rounds() int {
	return len(p.IPP.L)
}

// Params fixes the bit size and generators for one range-proof domain.
type Params struct {
	N      int // bit size of the range, power of two, at most group.MaxRangeBits
	Rounds int // log2(N)

	G  group.Point // value base
	H  group.Point // blinding base
	Gi []group.Point
	Hi []group.Point

	rng io.Reader
}

// NewParams derives the generator set for n-bit range proofs. Blinding
// randomness is drawn from rng.
func NewParams(n int, rng io.Reader) (*Params, error) {
	if n <= 0 || n > group.MaxRangeBits || bits.OnesCount(uint(n)) != 1 {
		return nil, fmt.Errorf("range bit size must be a power of two in [1, %d], got %d", group.MaxRangeBits, n)
	}
	gi, hi, err := group.VectorGenerators(n)
	if err != nil {
		return nil, err
	}
	return &Params{
		N:      n,
		Rounds: bits.TrailingZeros(uint(n)),
		G:      group.Basepoint(),
		H:      group.BlindingBasepoint(),
		Gi:     gi,
		Hi:     hi,
		rng:    rng,
	}, nil
}

// Commit returns the Pedersen commitment value·G + blinding·H that proofs
// from these params open.
func (p *Params) Commit(value uint64, blinding *group.Scalar) group.Point {
	return group.PedersenCommit(value, blinding)
}
