// group.go - Scalar and curve-point arithmetic over BN254 G1.
//
// All proof engines in this module work over a single prime-order group. Scalars
// are elements of the BN254 scalar field with a canonical 32-byte little-endian
// wire encoding; points use the canonical 32-byte compressed encoding.

package group

import (
	"fmt"
	"io"
	"math/big"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Scalar is an integer modulo the group order, always reduced into [0, order).
type Scalar = fr.Element

// Point is an element of the prime-order group.
type Point = bn254.G1Affine

// Byte sizes of the canonical wire encodings.
const (
	ScalarSize = fr.Bytes
	PointSize  = bn254.SizeOfG1AffineCompressed
)

// NewScalar returns v as a scalar.
func NewScalar(v uint64) Scalar {
	var s Scalar
	s.SetUint64(v)
	return s
}

// RandomScalar samples a uniformly random scalar from rng.
// It reads 64 bytes so the modular reduction bias is negligible.
func RandomScalar(rng io.Reader) (Scalar, error) {
	var s Scalar
	var buf [2 * ScalarSize]byte
	if _, err := io.ReadFull(rng, buf[:]); err != nil {
		return s, fmt.Errorf("sampling scalar: %w", err)
	}
	s.SetBytes(buf[:])
	return s, nil
}

// RandomNonzeroScalar samples a uniformly random nonzero scalar from rng.
func RandomNonzeroScalar(rng io.Reader) (Scalar, error) {
	for {
		s, err := RandomScalar(rng)
		if err != nil || !s.IsZero() {
			return s, err
		}
	}
}

// BatchInvert inverts every scalar with a single field inversion.
// Zero entries stay zero.
func BatchInvert(s []Scalar) []Scalar {
	return fr.BatchInvert(s)
}

// ScalarBytes returns the canonical 32-byte little-endian encoding of s.
func ScalarBytes(s *Scalar) [ScalarSize]byte {
	be := s.Bytes()
	var le [ScalarSize]byte
	for i := 0; i < ScalarSize; i++ {
		le[i] = be[ScalarSize-1-i]
	}
	return le
}

// ScalarFromBytes decodes a canonical 32-byte little-endian scalar.
// Encodings that are not reduced into [0, order) are rejected.
func ScalarFromBytes(buf []byte) (Scalar, error) {
	var s Scalar
	if len(buf) != ScalarSize {
		return s, fmt.Errorf("scalar encoding must be %d bytes, got %d", ScalarSize, len(buf))
	}
	var be [ScalarSize]byte
	for i := 0; i < ScalarSize; i++ {
		be[i] = buf[ScalarSize-1-i]
	}
	if err := s.SetBytesCanonical(be[:]); err != nil {
		return s, fmt.Errorf("non-canonical scalar: %w", err)
	}
	return s, nil
}

// PointBytes returns the canonical 32-byte compressed encoding of p.
func PointBytes(p *Point) [PointSize]byte {
	return p.Bytes()
}

// PointFromBytes decodes a canonical 32-byte compressed point.
// The decode includes the curve and subgroup membership checks.
func PointFromBytes(buf []byte) (Point, error) {
	var p Point
	if len(buf) != PointSize {
		return p, fmt.Errorf("point encoding must be %d bytes, got %d", PointSize, len(buf))
	}
	if _, err := p.SetBytes(buf); err != nil {
		return p, fmt.Errorf("invalid point encoding: %w", err)
	}
	return p, nil
}

// GroupOps is the narrow arithmetic surface the ElGamal engine is written
// against. Retargeting the module to another constant-time group means
// providing another implementation of this interface (and regenerating the
// Pedersen parameters); the proof logic itself does not change.
type GroupOps interface {
	ScalarAdd(a, b *Scalar) Scalar
	ScalarSub(a, b *Scalar) Scalar
	ScalarMul(a, b *Scalar) Scalar
	ScalarInverse(a *Scalar) Scalar
	RandomScalar() (Scalar, error)

	PointAdd(p, q *Point) Point
	PointSub(p, q *Point) Point
	PointMul(s *Scalar, p *Point) Point
	BaseMul(s *Scalar) Point
	Compress(p *Point) [PointSize]byte
	Decompress(buf []byte) (Point, error)
}

// BN254Ops implements GroupOps over BN254 G1 with an injected CSPRNG.
// The zero value is not usable; construct with NewBN254Ops.
type BN254Ops struct {
	rng io.Reader
}

// NewBN254Ops returns a BN254 group backed by rng. Pass crypto/rand.Reader in
// production; tests may inject a deterministic reader.
func NewBN254Ops(rng io.Reader) *BN254Ops {
	return &BN254Ops{rng: rng}
}

func (g *BN254Ops) ScalarAdd(a, b *Scalar) Scalar {
	var r Scalar
	r.Add(a, b)
	return r
}

func (g *BN254Ops) ScalarSub(a, b *Scalar) Scalar {
	var r Scalar
	r.Sub(a, b)
	return r
}

func (g *BN254Ops) ScalarMul(a, b *Scalar) Scalar {
	var r Scalar
	r.Mul(a, b)
	return r
}

func (g *BN254Ops) ScalarInverse(a *Scalar) Scalar {
	var r Scalar
	r.Inverse(a)
	return r
}

func (g *BN254Ops) RandomScalar() (Scalar, error) {
	return RandomScalar(g.rng)
}

func (g *BN254Ops) PointAdd(p, q *Point) Point {
	var r Point
	r.Add(p, q)
	return r
}

func (g *BN254Ops) PointSub(p, q *Point) Point {
	var r Point
	r.Sub(p, q)
	return r
}

func (g *BN254Ops) PointMul(s *Scalar, p *Point) Point {
	var r Point
	r.ScalarMultiplication(p, s.BigInt(new(big.Int)))
	return r
}

func (g *BN254Ops) BaseMul(s *Scalar) Point {
	var r Point
	r.ScalarMultiplicationBase(s.BigInt(new(big.Int)))
	return r
}

func (g *BN254Ops) Compress(p *Point) [PointSize]byte {
	return PointBytes(p)
}

func (g *BN254Ops) Decompress(buf []byte) (Point, error) {
	return PointFromBytes(buf)
}
