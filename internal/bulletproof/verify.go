// verify.go - Range-proof verification.

package bulletproof

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"

	"zkengine/internal/group"
)

// Verify checks proof against the Pedersen commitment it claims to open.
// Every Fiat-Shamir challenge is recomputed from the proof's own committed
// values in prover order. The result is false for any tampered or
// structurally malformed proof; Verify never panics.
func (p *Params) Verify(proof *RangeProof, commitment *group.Point) bool {
	if proof == nil || commitment == nil {
		return false
	}
	if len(proof.IPP.L) != p.Rounds || len(proof.IPP.R) != p.Rounds {
		return false
	}
	ok, err := p.verify(proof, commitment)
	return err == nil && ok
}

func (p *Params) verify(proof *RangeProof, commitment *group.Point) (bool, error) {
	n := p.N
	ts := newTranscript(p.Rounds)

	// Recompute the challenge chain.
	if err := ts.bindPoints("y", commitment, &proof.A, &proof.S); err != nil {
		return false, err
	}
	y, err := ts.challenge("y")
	if err != nil {
		return false, err
	}
	z, err := ts.challenge("z")
	if err != nil {
		return false, err
	}
	if err := ts.bindPoints("x", &proof.T1, &proof.T2); err != nil {
		return false, err
	}
	x, err := ts.challenge("x")
	if err != nil {
		return false, err
	}
	if err := ts.bindScalars("w", &proof.TauX, &proof.Mu, &proof.THat); err != nil {
		return false, err
	}
	w, err := ts.challenge("w")
	if err != nil {
		return false, err
	}
	u := make([]group.Scalar, p.Rounds)
	for j := 0; j < p.Rounds; j++ {
		id := fmt.Sprintf("u%d", j)
		if err := ts.bindPoints(id, &proof.IPP.L[j], &proof.IPP.R[j]); err != nil {
			return false, err
		}
		u[j], err = ts.challenge(id)
		if err != nil {
			return false, err
		}
	}

	yPow := scalarPowers(&y, n)
	twoPow := powersOfTwo(n)
	var yInv group.Scalar
	yInv.Inverse(&y)
	yInvPow := scalarPowers(&yInv, n)

	var zz, zzz group.Scalar
	zz.Mul(&z, &z)
	zzz.Mul(&zz, &z)

	// Check 1 (polynomial identity):
	//   tHat·G + tauX·H == z²·V + δ(y,z)·G + x·T1 + x²·T2
	// with δ(y,z) = (z - z²)·Σ y^i - z³·Σ 2^i. Everything is moved to one
	// side and compared against the identity in a single multi-exp.
	if ok, err := p.checkPolynomial(proof, commitment, yPow, twoPow, &z, &zz, &zzz, &x); !ok || err != nil {
		return ok, err
	}

	// Check 2 (inner-product relation).
	return p.checkInnerProduct(proof, yInvPow, twoPow, &z, &zz, &x, &w, u)
}

func (p *Params) checkPolynomial(proof *RangeProof, commitment *group.Point, yPow, twoPow []group.Scalar, z, zz, zzz, x *group.Scalar) (bool, error) {
	var sumY, sumTwo group.Scalar
	for i := 0; i < p.N; i++ {
		sumY.Add(&sumY, &yPow[i])
		sumTwo.Add(&sumTwo, &twoPow[i])
	}
	var delta, t group.Scalar
	delta.Sub(z, zz)
	delta.Mul(&delta, &sumY)
	t.Mul(zzz, &sumTwo)
	delta.Sub(&delta, &t)

	var xx group.Scalar
	xx.Mul(x, x)

	points := []group.Point{p.G, p.H, *commitment, proof.T1, proof.T2}
	scalars := make([]group.Scalar, 5)
	scalars[0].Sub(&proof.THat, &delta) // (tHat - δ)·G
	scalars[1] = proof.TauX             // tauX·H
	scalars[2].Neg(zz)                  // -z²·V
	scalars[3].Neg(x)                   // -x·T1
	scalars[4].Neg(&xx)                 // -x²·T2

	var acc group.Point
	if _, err := acc.MultiExp(points, scalars, ecc.MultiExpConfig{}); err != nil {
		return false, err
	}
	return acc.IsInfinity(), nil
}

func (p *Params) checkInnerProduct(proof *RangeProof, yInvPow, twoPow []group.Scalar, z, zz, x, w *group.Scalar, u []group.Scalar) (bool, error) {
	n := p.N
	rounds := p.Rounds

	s := foldScalars(u, n)
	sInv := make([]group.Scalar, n)
	copy(sInv, s)
	sInv = group.BatchInvert(sInv)

	// One multi-exp over A, S, G, H, L/R, Gi, Hi; the result must be the
	// identity point.
	points := make([]group.Point, 0, 4+2*rounds+2*n)
	scalars := make([]group.Scalar, 0, 4+2*rounds+2*n)

	var one group.Scalar
	one.SetOne()
	points = append(points, proof.A)
	scalars = append(scalars, one)
	points = append(points, proof.S)
	scalars = append(scalars, *x)

	// (w·(tHat - a·b))·G
	var gCoeff group.Scalar
	gCoeff.Mul(&proof.IPP.A, &proof.IPP.B)
	gCoeff.Sub(&proof.THat, &gCoeff)
	gCoeff.Mul(&gCoeff, w)
	points = append(points, p.G)
	scalars = append(scalars, gCoeff)

	// -mu·H
	var hCoeff group.Scalar
	hCoeff.Neg(&proof.Mu)
	points = append(points, p.H)
	scalars = append(scalars, hCoeff)

	for j := 0; j < rounds; j++ {
		var uu, uuInv group.Scalar
		uu.Mul(&u[j], &u[j])
		uuInv.Inverse(&uu)
		points = append(points, proof.IPP.L[j])
		scalars = append(scalars, uu)
		points = append(points, proof.IPP.R[j])
		scalars = append(scalars, uuInv)
	}

	for i := 0; i < n; i++ {
		// Gi[i]: -z - a·s[i]
		var gi group.Scalar
		gi.Mul(&proof.IPP.A, &s[i])
		gi.Add(&gi, z)
		gi.Neg(&gi)
		points = append(points, p.Gi[i])
		scalars = append(scalars, gi)

		// Hi[i]: z + y^{-i}·(z²·2^i - b·s[i]⁻¹)
		var hi, t group.Scalar
		hi.Mul(zz, &twoPow[i])
		t.Mul(&proof.IPP.B, &sInv[i])
		hi.Sub(&hi, &t)
		hi.Mul(&hi, &yInvPow[i])
		hi.Add(&hi, z)
		points = append(points, p.Hi[i])
		scalars = append(scalars, hi)
	}

	var acc group.Point
	if _, err := acc.MultiExp(points, scalars, ecc.MultiExpConfig{}); err != nil {
		return false, err
	}
	return acc.IsInfinity(), nil
}
