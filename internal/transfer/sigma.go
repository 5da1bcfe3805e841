// sigma.go - Sigma protocols for ciphertext validity and equality.
//
// Both protocols are standard Schnorr-style proofs of knowledge made
// non-interactive with the same Fiat-Shamir transcript the bulletproof
// engine uses. A validity proof shows a ciphertext is well-formed for its
// claimed public key; an equality proof shows two ciphertexts under possibly
// different keys encrypt the same amount, without revealing it.

package transfer

import (
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	fiatshamir "github.com/consensys/gnark-crypto/fiat-shamir"

	"zkengine/internal/bulletproof"
	"zkengine/internal/elgamal"
	"zkengine/internal/group"
)

// ValidityProof proves knowledge of (amount, blinding) with
// commitment = amount·G + blinding·H and handle = blinding·pub.
type ValidityProof struct {
	Y1 group.Point // k_m·G + k_r·H
	Y2 group.Point // k_r·pub
	Zm group.Scalar
	Zr group.Scalar
}

// EqualityProof proves two ciphertexts under different public keys encrypt
// the same amount.
type EqualityProof struct {
	Y1  group.Point // k_m·G + k_r1·H
	Y2  group.Point // k_r1·pub1
	Y3  group.Point // k_m·G + k_r2·H
	Y4  group.Point // k_r2·pub2
	Zm  group.Scalar
	Zr1 group.Scalar
	Zr2 group.Scalar
}

func sigmaChallenge(domain string, points ...*group.Point) (group.Scalar, error) {
	fs := fiatshamir.NewTranscript(sha256.New(), domain)
	for _, p := range points {
		buf := group.PointBytes(p)
		if err := fs.Bind(domain, buf[:]); err != nil {
			return group.Scalar{}, err
		}
	}
	var c group.Scalar
	b, err := fs.ComputeChallenge(domain)
	if err != nil {
		return c, err
	}
	c.SetBytes(b)
	return c, nil
}

// ProveValidity builds a validity proof for ct under pub, given the amount
// and the blinding the ciphertext was produced with.
func ProveValidity(rng io.Reader, ct *elgamal.Ciphertext, pub *group.Point, amount uint64, blinding *group.Scalar) (*ValidityProof, error) {
	km, err := group.RandomScalar(rng)
	if err != nil {
		return nil, fmt.Errorf("validity proof: %w", err)
	}
	kr, err := group.RandomScalar(rng)
	if err != nil {
		return nil, fmt.Errorf("validity proof: %w", err)
	}

	proof := &ValidityProof{
		Y1: group.PedersenCommitScalar(&km, &kr),
		Y2: mulPoint(&kr, pub),
	}

	c, err := sigmaChallenge("validity", pub, &ct.Commitment, &ct.Handle, &proof.Y1, &proof.Y2)
	if err != nil {
		return nil, err
	}

	m := group.NewScalar(amount)
	proof.Zm.Mul(&c, &m)
	proof.Zm.Add(&proof.Zm, &km)
	proof.Zr.Mul(&c, blinding)
	proof.Zr.Add(&proof.Zr, &kr)
	return proof, nil
}

// VerifyValidity checks that ct is well-formed for pub.
func VerifyValidity(proof *ValidityProof, ct *elgamal.Ciphertext, pub *group.Point) bool {
	if proof == nil {
		return false
	}
	c, err := sigmaChallenge("validity", pub, &ct.Commitment, &ct.Handle, &proof.Y1, &proof.Y2)
	if err != nil {
		return false
	}
	// Zm·G + Zr·H == Y1 + c·C
	lhs := group.PedersenCommitScalar(&proof.Zm, &proof.Zr)
	rhs := mulAdd(&c, &ct.Commitment, &proof.Y1)
	if !lhs.Equal(&rhs) {
		return false
	}
	// Zr·pub == Y2 + c·D
	lhs = mulPoint(&proof.Zr, pub)
	rhs = mulAdd(&c, &ct.Handle, &proof.Y2)
	return lhs.Equal(&rhs)
}

// ProveEquality builds an equality proof for ct1 under pub1 and ct2 under
// pub2, both encrypting amount with blindings r1 and r2.
func ProveEquality(rng io.Reader, ct1, ct2 *elgamal.Ciphertext, pub1, pub2 *group.Point, amount uint64, r1, r2 *group.Scalar) (*EqualityProof, error) {
	km, err := group.RandomScalar(rng)
	if err != nil {
		return nil, fmt.Errorf("equality proof: %w", err)
	}
	kr1, err := group.RandomScalar(rng)
	if err != nil {
		return nil, fmt.Errorf("equality proof: %w", err)
	}
	kr2, err := group.RandomScalar(rng)
	if err != nil {
		return nil, fmt.Errorf("equality proof: %w", err)
	}

	proof := &EqualityProof{
		Y1: group.PedersenCommitScalar(&km, &kr1),
		Y2: mulPoint(&kr1, pub1),
		Y3: group.PedersenCommitScalar(&km, &kr2),
		Y4: mulPoint(&kr2, pub2),
	}
	c, err := sigmaChallenge("equality",
		pub1, pub2,
		&ct1.Commitment, &ct1.Handle, &ct2.Commitment, &ct2.Handle,
		&proof.Y1, &proof.Y2, &proof.Y3, &proof.Y4)
	if err != nil {
		return nil, err
	}

	m := group.NewScalar(amount)
	proof.Zm.Mul(&c, &m)
	proof.Zm.Add(&proof.Zm, &km)
	proof.Zr1.Mul(&c, r1)
	proof.Zr1.Add(&proof.Zr1, &kr1)
	proof.Zr2.Mul(&c, r2)
	proof.Zr2.Add(&proof.Zr2, &kr2)
	return proof, nil
}

// VerifyEquality checks that ct1 under pub1 and ct2 under pub2 encrypt the
// same amount.
func VerifyEquality(proof *EqualityProof, ct1, ct2 *elgamal.Ciphertext, pub1, pub2 *group.Point) bool {
	if proof == nil {
		return false
	}
	c, err := sigmaChallenge("equality",
		pub1, pub2,
		&ct1.Commitment, &ct1.Handle, &ct2.Commitment, &ct2.Handle,
		&proof.Y1, &proof.Y2, &proof.Y3, &proof.Y4)
	if err != nil {
		return false
	}

	lhs := group.PedersenCommitScalar(&proof.Zm, &proof.Zr1)
	rhs := mulAdd(&c, &ct1.Commitment, &proof.Y1)
	if !lhs.Equal(&rhs) {
		return false
	}
	lhs = mulPoint(&proof.Zr1, pub1)
	rhs = mulAdd(&c, &ct1.Handle, &proof.Y2)
	if !lhs.Equal(&rhs) {
		return false
	}
	lhs = group.PedersenCommitScalar(&proof.Zm, &proof.Zr2)
	rhs = mulAdd(&c, &ct2.Commitment, &proof.Y3)
	if !lhs.Equal(&rhs) {
		return false
	}
	lhs = mulPoint(&proof.Zr2, pub2)
	rhs = mulAdd(&c, &ct2.Handle, &proof.Y4)
	return lhs.Equal(&rhs)
}

// Bytes serializes the proof as Y1, Y2, Zm, Zr (32 bytes each).
func (p *ValidityProof) Bytes() []byte {
	return packFields([]*group.Point{&p.Y1, &p.Y2}, []*group.Scalar{&p.Zm, &p.Zr})
}

// ValidityProofFromBytes deserializes a 128-byte validity proof.
func ValidityProofFromBytes(buf []byte) (*ValidityProof, error) {
	var p ValidityProof
	if err := unpackFields(buf, []*group.Point{&p.Y1, &p.Y2}, []*group.Scalar{&p.Zm, &p.Zr}); err != nil {
		return nil, err
	}
	return &p, nil
}

// Bytes serializes the proof as Y1..Y4, Zm, Zr1, Zr2 (32 bytes each).
func (p *EqualityProof) Bytes() []byte {
	return packFields([]*group.Point{&p.Y1, &p.Y2, &p.Y3, &p.Y4}, []*group.Scalar{&p.Zm, &p.Zr1, &p.Zr2})
}

// EqualityProofFromBytes deserializes a 224-byte equality proof.
func EqualityProofFromBytes(buf []byte) (*EqualityProof, error) {
	var p EqualityProof
	if err := unpackFields(buf, []*group.Point{&p.Y1, &p.Y2, &p.Y3, &p.Y4}, []*group.Scalar{&p.Zm, &p.Zr1, &p.Zr2}); err != nil {
		return nil, err
	}
	return &p, nil
}

func packFields(points []*group.Point, scalars []*group.Scalar) []byte {
	out := make([]byte, 0, 32*(len(points)+len(scalars)))
	for _, p := range points {
		b := group.PointBytes(p)
		out = append(out, b[:]...)
	}
	for _, s := range scalars {
		b := group.ScalarBytes(s)
		out = append(out, b[:]...)
	}
	return out
}

func unpackFields(buf []byte, points []*group.Point, scalars []*group.Scalar) error {
	want := 32 * (len(points) + len(scalars))
	if len(buf) != want {
		return &bulletproof.DeserializationError{Reason: fmt.Sprintf("need %d bytes, got %d", want, len(buf))}
	}
	off := 0
	var err error
	for _, p := range points {
		if *p, err = group.PointFromBytes(buf[off : off+32]); err != nil {
			return &bulletproof.DeserializationError{Reason: err.Error()}
		}
		off += 32
	}
	for _, s := range scalars {
		if *s, err = group.ScalarFromBytes(buf[off : off+32]); err != nil {
			return &bulletproof.DeserializationError{Reason: err.Error()}
		}
		off += 32
	}
	return nil
}

func mulPoint(s *group.Scalar, p *group.Point) group.Point {
	var r group.Point
	r.ScalarMultiplication(p, s.BigInt(new(big.Int)))
	return r
}

func mulAdd(c *group.Scalar, p, base *group.Point) group.Point {
	r := mulPoint(c, p)
	r.Add(&r, base)
	return r
}
