// prove.go - Range-proof generation.

package bulletproof

import (
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"

	"zkengine/internal/group"
)

// Prove generates a range proof that value lies in [0, 2^N), opening the
// commitment value·G + blinding·H. Every blinding vector and nonce is drawn
// fresh from the params CSPRNG.
func (p *Params) Prove(value uint64, blinding *group.Scalar) (*RangeProof, error) {
	n := p.N
	if n < group.MaxRangeBits && value >= uint64(1)<<uint(n) {
		return nil, fmt.Errorf("%w: %d does not fit in %d bits", ErrValueOutOfRange, value, n)
	}

	v := p.Commit(value, blinding)
	ts := newTranscript(p.Rounds)

	// Step 1: bit-decompose the value: aL holds the bits, aR = aL - 1.
	one := group.NewScalar(1)
	aL := make([]group.Scalar, n)
	aR := make([]group.Scalar, n)
	for i := 0; i < n; i++ {
		aL[i].SetUint64((value >> uint(i)) & 1)
		aR[i].Sub(&aL[i], &one)
	}

	// Step 2: commit to the bit vectors (A) and fresh blinding vectors (S).
	alpha, err := group.RandomScalar(p.rng)
	if err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}
	a, err := p.vectorCommit(&alpha, aL, aR)
	if err != nil {
		return nil, err
	}
	sL, err := randomVector(p.rng, n)
	if err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}
	sR, err := randomVector(p.rng, n)
	if err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}
	rho, err := group.RandomScalar(p.rng)
	if err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}
	s, err := p.vectorCommit(&rho, sL, sR)
	if err != nil {
		return nil, err
	}

	// Step 3: challenges y, z over (V, A, S).
	if err := ts.bindPoints("y", &v, &a, &s); err != nil {
		return nil, err
	}
	y, err := ts.challenge("y")
	if err != nil {
		return nil, err
	}
	z, err := ts.challenge("z")
	if err != nil {
		return nil, err
	}

	// Step 4: build l(X), r(X) and the coefficients of t(X) = <l(X), r(X)>.
	yPow := scalarPowers(&y, n)
	twoPow := powersOfTwo(n)
	var zz group.Scalar
	zz.Mul(&z, &z)

	l0 := make([]group.Scalar, n) // aL - z·1
	r0 := make([]group.Scalar, n) // y^i·(aR + z·1) + z²·2^i
	r1 := make([]group.Scalar, n) // y^i·sR
	for i := 0; i < n; i++ {
		l0[i].Sub(&aL[i], &z)

		var t group.Scalar
		t.Add(&aR[i], &z)
		t.Mul(&t, &yPow[i])
		var t2 group.Scalar
		t2.Mul(&zz, &twoPow[i])
		r0[i].Add(&t, &t2)

		r1[i].Mul(&yPow[i], &sR[i])
	}
	t1 := innerProduct(l0, r1)
	t1.Add(&t1, ip(sL, r0))
	t2c := innerProduct(sL, r1)

	// Step 5: commit to t1 and t2, derive challenge x.
	tau1, err := group.RandomScalar(p.rng)
	if err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}
	tau2, err := group.RandomScalar(p.rng)
	if err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}
	capT1 := group.PedersenCommitScalar(&t1, &tau1)
	capT2 := group.PedersenCommitScalar(&t2c, &tau2)
	if err := ts.bindPoints("x", &capT1, &capT2); err != nil {
		return nil, err
	}
	x, err := ts.challenge("x")
	if err != nil {
		return nil, err
	}

	// Step 6: blinding aggregates and the evaluation of l, r, t at x.
	var xx, tauX, mu group.Scalar
	xx.Mul(&x, &x)
	tauX.Mul(&tau2, &xx)
	var t group.Scalar
	t.Mul(&tau1, &x)
	tauX.Add(&tauX, &t)
	t.Mul(&zz, blinding)
	tauX.Add(&tauX, &t)

	mu.Mul(&rho, &x)
	mu.Add(&mu, &alpha)

	lVec := make([]group.Scalar, n)
	rVec := make([]group.Scalar, n)
	for i := 0; i < n; i++ {
		lVec[i].Mul(&sL[i], &x)
		lVec[i].Add(&lVec[i], &l0[i])
		rVec[i].Mul(&r1[i], &x)
		rVec[i].Add(&rVec[i], &r0[i])
	}
	tHat := innerProduct(lVec, rVec)

	// Step 7: challenge w fixes the inner-product base Q = w·G.
	if err := ts.bindScalars("w", &tauX, &mu, &tHat); err != nil {
		return nil, err
	}
	w, err := ts.challenge("w")
	if err != nil {
		return nil, err
	}
	q := scalarMul(&w, &p.G)

	// Step 8: run the inner-product argument over (Gi, Hi') with
	// Hi'[i] = y^{-i}·Hi[i].
	var yInv group.Scalar
	yInv.Inverse(&y)
	yInvPow := scalarPowers(&yInv, n)
	gVec := make([]group.Point, n)
	hVec := make([]group.Point, n)
	copy(gVec, p.Gi)
	for i := 0; i < n; i++ {
		hVec[i] = scalarMul(&yInvPow[i], &p.Hi[i])
	}
	ipp, err := proveInnerProduct(ts, gVec, hVec, &q, lVec, rVec)
	if err != nil {
		return nil, err
	}

	return &RangeProof{
		A:    a,
		S:    s,
		T1:   capT1,
		T2:   capT2,
		TauX: tauX,
		Mu:   mu,
		THat: tHat,
		IPP:  ipp,
	}, nil
}

// vectorCommit computes blind·H + <left, Gi> + <right, Hi> in one multi-exp.
func (p *Params) vectorCommit(blind *group.Scalar, left, right []group.Scalar) (group.Point, error) {
	n := p.N
	points := make([]group.Point, 0, 2*n+1)
	scalars := make([]group.Scalar, 0, 2*n+1)
	points = append(points, p.H)
	scalars = append(scalars, *blind)
	points = append(points, p.Gi...)
	scalars = append(scalars, left...)
	points = append(points, p.Hi...)
	scalars = append(scalars, right...)

	var out group.Point
	if _, err := out.MultiExp(points, scalars, ecc.MultiExpConfig{}); err != nil {
		return out, fmt.Errorf("vector commitment: %w", err)
	}
	return out, nil
}

func randomVector(rng io.Reader, n int) ([]group.Scalar, error) {
	out := make([]group.Scalar, n)
	for i := range out {
		s, err := group.RandomScalar(rng)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func innerProduct(a, b []group.Scalar) group.Scalar {
	var sum, t group.Scalar
	for i := range a {
		t.Mul(&a[i], &b[i])
		sum.Add(&sum, &t)
	}
	return sum
}

// ip is innerProduct returning a pointer, for chained Add calls.
func ip(a, b []group.Scalar) *group.Scalar {
	s := innerProduct(a, b)
	return &s
}

// scalarPowers returns [1, x, x², ..., x^(n-1)].
func scalarPowers(x *group.Scalar, n int) []group.Scalar {
	out := make([]group.Scalar, n)
	out[0].SetOne()
	for i := 1; i < n; i++ {
		out[i].Mul(&out[i-1], x)
	}
	return out
}

func powersOfTwo(n int) []group.Scalar {
	two := group.NewScalar(2)
	return scalarPowers(&two, n)
}

func scalarMul(s *group.Scalar, p *group.Point) group.Point {
	var out group.Point
	out.ScalarMultiplication(p, s.BigInt(new(big.Int)))
	return out
}
