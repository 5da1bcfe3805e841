// pedersen.go - Pedersen commitments over the fixed generator pair (G, H).

package group

import "math/big"

// PedersenCommit commits to a 64-bit value: value·G + blinding·H.
// The commitment is binding under the discrete-log assumption and hiding for
// a uniformly random blinding.
func PedersenCommit(value uint64, blinding *Scalar) Point {
	v := NewScalar(value)
	return PedersenCommitScalar(&v, blinding)
}

// PedersenCommitScalar commits to an arbitrary scalar value: value·G + blinding·H.
func PedersenCommitScalar(value, blinding *Scalar) Point {
	var vG, rH Point
	vG.ScalarMultiplicationBase(value.BigInt(new(big.Int)))
	h := BlindingBasepoint()
	rH.ScalarMultiplication(&h, blinding.BigInt(new(big.Int)))
	vG.Add(&vG, &rH)
	return vG
}
