// serialize.go - Fixed binary layout for range proofs.
//
// Field order: A, S, T1, T2, tauX, mu, tHat, a, b, L[0..rounds), R[0..rounds).
// Each point and scalar is 32 bytes, so a proof is 32·(9 + 2·rounds) bytes.
// This ordering is a wire contract with downstream verifiers and must not
// change.

package bulletproof

import (
	"fmt"

	"zkengine/internal/group"
)

const (
	fieldSize = 32
	// minProofSize is the size of a proof with zero inner-product rounds.
	minProofSize = 9 * fieldSize
)

// Bytes serializes the proof into the fixed layout.
func (p *RangeProof) Bytes() []byte {
	rounds := p.Rounds()
	out := make([]byte, 0, minProofSize+2*rounds*fieldSize)

	for _, pt := range []*group.Point{&p.A, &p.S, &p.T1, &p.T2} {
		b := group.PointBytes(pt)
		out = append(out, b[:]...)
	}
	for _, sc := range []*group.Scalar{&p.TauX, &p.Mu, &p.THat, &p.IPP.A, &p.IPP.B} {
		b := group.ScalarBytes(sc)
		out = append(out, b[:]...)
	}
	for i := range p.IPP.L {
		b := group.PointBytes(&p.IPP.L[i])
		out = append(out, b[:]...)
	}
	for i := range p.IPP.R {
		b := group.PointBytes(&p.IPP.R[i])
		out = append(out, b[:]...)
	}
	return out
}

// ProofFromBytes deserializes a proof from the fixed layout. The round-trip
// through Bytes is exact and order-preserving.
func ProofFromBytes(buf []byte) (*RangeProof, error) {
	if len(buf) < minProofSize {
		return nil, &DeserializationError{Reason: fmt.Sprintf("need at least %d bytes, got %d", minProofSize, len(buf))}
	}
	rem := len(buf) - minProofSize
	if rem%(2*fieldSize) != 0 {
		return nil, &DeserializationError{Reason: fmt.Sprintf("trailing %d bytes do not hold whole L/R rounds", rem)}
	}
	rounds := rem / (2 * fieldSize)
	if rounds > 6 { // log2(MaxRangeBits)
		return nil, &DeserializationError{Reason: fmt.Sprintf("%d inner-product rounds exceeds the 64-bit domain", rounds)}
	}

	var proof RangeProof
	off := 0
	next := func() []byte {
		f := buf[off : off+fieldSize]
		off += fieldSize
		return f
	}

	var err error
	for _, pt := range []*group.Point{&proof.A, &proof.S, &proof.T1, &proof.T2} {
		if *pt, err = group.PointFromBytes(next()); err != nil {
			return nil, &DeserializationError{Reason: err.Error()}
		}
	}
	for _, sc := range []*group.Scalar{&proof.TauX, &proof.Mu, &proof.THat, &proof.IPP.A, &proof.IPP.B} {
		if *sc, err = group.ScalarFromBytes(next()); err != nil {
			return nil, &DeserializationError{Reason: err.Error()}
		}
	}
	proof.IPP.L = make([]group.Point, rounds)
	proof.IPP.R = make([]group.Point, rounds)
	for i := 0; i < rounds; i++ {
		if proof.IPP.L[i], err = group.PointFromBytes(next()); err != nil {
			return nil, &DeserializationError{Reason: err.Error()}
		}
	}
	for i := 0; i < rounds; i++ {
		if proof.IPP.R[i], err = group.PointFromBytes(next()); err != nil {
			return nil, &DeserializationError{Reason: err.Error()}
		}
	}
	return &proof, nil
}
