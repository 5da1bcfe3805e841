// transcript.go - Fiat-Shamir transcript for range proofs.
//
// Challenges are derived with the gnark-crypto fiat-shamir transcript over
// SHA-256, with the fixed schedule y, z, x, w, u0..u{rounds-1}. The transcript
// chains each challenge over the previous one, so prover and verifier must bind
// the same values in the same order; reordering breaks soundness.

package bulletproof

import (
	"crypto/sha256"
	"fmt"

	fiatshamir "github.com/consensys/gnark-crypto/fiat-shamir"

	"zkengine/internal/group"
)

type transcript struct {
	fs *fiatshamir.Transcript
}

func newTranscript(rounds int) *transcript {
	ids := []string{"y", "z", "x", "w"}
	for j := 0; j < rounds; j++ {
		ids = append(ids, fmt.Sprintf("u%d", j))
	}
	return &transcript{fs: fiatshamir.NewTranscript(sha256.New(), ids...)}
}

func (t *transcript) bindPoints(id string, points ...*group.Point) error {
	for _, p := range points {
		buf := group.PointBytes(p)
		if err := t.fs.Bind(id, buf[:]); err != nil {
			return err
		}
	}
	return nil
}

func (t *transcript) bindScalars(id string, scalars ...*group.Scalar) error {
	for _, s := range scalars {
		if err := t.fs.Bind(id, s.Marshal()); err != nil {
			return err
		}
	}
	return nil
}

func (t *transcript) challenge(id string) (group.Scalar, error) {
	var c group.Scalar
	b, err := t.fs.ComputeChallenge(id)
	if err != nil {
		return c, err
	}
	c.SetBytes(b)
	return c, nil
}
