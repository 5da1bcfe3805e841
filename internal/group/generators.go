// generators.go - Deterministic generator derivation for commitments and proofs.
//
// The Pedersen blinding base H and the bulletproof generator vectors Gi, Hi are
// derived by hashing fixed domain-separation tags to the curve, so every party
// recomputes identical parameters without a trusted setup.

package group

import (
	"fmt"
	"sync"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
)

// MaxRangeBits is the largest supported range-proof bit size.
const MaxRangeBits = 64

const generatorDST = "confidential-transfer:bn254:generators:v1"

var (
	paramsOnce sync.Once

	basePoint     Point
	blindingPoint Point
	vectorG       [MaxRangeBits]Point
	vectorH       [MaxRangeBits]Point
)

func deriveParams() {
	_, _, g1Aff, _ := bn254.Generators()
	basePoint = g1Aff

	blindingPoint = mustHashToG1("pedersen:H")
	for i := 0; i < MaxRangeBits; i++ {
		vectorG[i] = mustHashToG1(fmt.Sprintf("vector:G:%d", i))
		vectorH[i] = mustHashToG1(fmt.Sprintf("vector:H:%d", i))
	}
}

func mustHashToG1(tag string) Point {
	p, err := bn254.HashToG1([]byte(tag), []byte(generatorDST))
	if err != nil {
		// Hash-to-curve over a fixed tag cannot fail at runtime; a failure
		// here means the library contract changed.
		panic(fmt.Sprintf("group: hash-to-curve for %q: %v", tag, err))
	}
	return p
}

// Basepoint returns the value generator G.
func Basepoint() Point {
	paramsOnce.Do(deriveParams)
	return basePoint
}

// BlindingBasepoint returns the Pedersen blinding generator H.
func BlindingBasepoint() Point {
	paramsOnce.Do(deriveParams)
	return blindingPoint
}

// VectorGenerators returns the first n entries of the Gi and Hi generator
// vectors used by the bulletproof engine. n must be at most MaxRangeBits.
func VectorGenerators(n int) ([]Point, []Point, error) {
	if n <= 0 || n > MaxRangeBits {
		return nil, nil, fmt.Errorf("vector generator count must be in [1, %d], got %d", MaxRangeBits, n)
	}
	paramsOnce.Do(deriveParams)
	gi := make([]Point, n)
	hi := make([]Point, n)
	copy(gi, vectorG[:n])
	copy(hi, vectorH[:n])
	return gi, hi, nil
}
