// innerproduct.go - Recursive inner-product argument.
//
// Proves knowledge of vectors a, b with P = <a, G> + <b, H> + <a, b>·Q,
// halving the working vectors each round. For the 64-bit range domain this
// yields exactly 6 rounds of compressed points.

package bulletproof

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"

	"zkengine/internal/group"
)

// proveInnerProduct consumes (and mutates) the vectors a, b and the generator
// vectors gVec, hVec. The transcript must already contain the challenges up
// to and including "w".
func proveInnerProduct(ts *transcript, gVec, hVec []group.Point, q *group.Point, a, b []group.Scalar) (InnerProductProof, error) {
	n := len(a)
	rounds := 0
	for k := n; k > 1; k >>= 1 {
		rounds++
	}
	proof := InnerProductProof{
		L: make([]group.Point, 0, rounds),
		R: make([]group.Point, 0, rounds),
	}

	for j := 0; n > 1; j++ {
		half := n / 2

		cL := innerProduct(a[:half], b[half:n])
		cR := innerProduct(a[half:n], b[:half])

		l, err := foldCommit(gVec[half:n], hVec[:half], q, a[:half], b[half:n], &cL)
		if err != nil {
			return proof, err
		}
		r, err := foldCommit(gVec[:half], hVec[half:n], q, a[half:n], b[:half], &cR)
		if err != nil {
			return proof, err
		}
		proof.L = append(proof.L, l)
		proof.R = append(proof.R, r)

		id := fmt.Sprintf("u%d", j)
		if err := ts.bindPoints(id, &l, &r); err != nil {
			return proof, err
		}
		u, err := ts.challenge(id)
		if err != nil {
			return proof, err
		}
		var uInv group.Scalar
		uInv.Inverse(&u)

		// Fold: a' = u·a_lo + u⁻¹·a_hi, b' = u⁻¹·b_lo + u·b_hi,
		// G' = u⁻¹·G_lo + u·G_hi, H' = u·H_lo + u⁻¹·H_hi.
		for i := 0; i < half; i++ {
			var t1, t2 group.Scalar
			t1.Mul(&a[i], &u)
			t2.Mul(&a[half+i], &uInv)
			a[i].Add(&t1, &t2)

			t1.Mul(&b[i], &uInv)
			t2.Mul(&b[half+i], &u)
			b[i].Add(&t1, &t2)

			gLo := scalarMul(&uInv, &gVec[i])
			gHi := scalarMul(&u, &gVec[half+i])
			gVec[i].Add(&gLo, &gHi)

			hLo := scalarMul(&u, &hVec[i])
			hHi := scalarMul(&uInv, &hVec[half+i])
			hVec[i].Add(&hLo, &hHi)
		}
		n = half
	}

	proof.A = a[0]
	proof.B = b[0]
	return proof, nil
}

// foldCommit computes <as, gs> + <bs, hs> + c·Q in one multi-exp.
func foldCommit(gs, hs []group.Point, q *group.Point, as, bs []group.Scalar, c *group.Scalar) (group.Point, error) {
	points := make([]group.Point, 0, len(gs)+len(hs)+1)
	scalars := make([]group.Scalar, 0, len(gs)+len(hs)+1)
	points = append(points, gs...)
	scalars = append(scalars, as...)
	points = append(points, hs...)
	scalars = append(scalars, bs...)
	points = append(points, *q)
	scalars = append(scalars, *c)

	var out group.Point
	if _, err := out.MultiExp(points, scalars, ecc.MultiExpConfig{}); err != nil {
		return out, fmt.Errorf("inner-product round commitment: %w", err)
	}
	return out, nil
}

// foldScalars returns, for every index i in [0, n), the product
// Π_j u_j^{±1} with the sign picked by the bits of i (most significant round
// first). These are the verifier-side aggregate coefficients of the folded
// generator vectors.
func foldScalars(challenges []group.Scalar, n int) []group.Scalar {
	rounds := len(challenges)
	inv := make([]group.Scalar, rounds)
	copy(inv, challenges)
	inv = group.BatchInvert(inv)

	out := make([]group.Scalar, n)
	for i := 0; i < n; i++ {
		out[i].SetOne()
		for j := 0; j < rounds; j++ {
			bit := (i >> uint(rounds-1-j)) & 1
			if bit == 1 {
				out[i].Mul(&out[i], &challenges[j])
			} else {
				out[i].Mul(&out[i], &inv[j])
			}
		}
	}
	return out
}
