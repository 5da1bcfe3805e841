// elgamal.go - Twisted ElGamal encryption of 64-bit token amounts.
//
// A ciphertext is a Pedersen commitment to the amount plus a decryption handle
// binding the blinding factor to the recipient's public key. Ciphertexts under
// the same key are homomorphically additive component-wise.
//
// Keys live on the blinding base H (Public = Secret·H), so decryption cancels
// the blinding term: commitment - Secret⁻¹·handle = amount·G.

package elgamal

import (
	"fmt"

	"zkengine/internal/group"
)

// Keypair holds an ElGamal decryption key and the matching public key.
type Keypair struct {
	Secret group.Scalar
	Public group.Point
}

// Ciphertext is a twisted ElGamal ciphertext of a 64-bit amount.
type Ciphertext struct {
	Commitment group.Point // amount·G + blinding·H
	Handle     group.Point // blinding·Public
}

// DecryptionError reports that the bounded discrete-log search exhausted its
// budget without recovering the amount.
type DecryptionError struct {
	MaxValue uint64
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("elgamal: no amount found in [0, %d]", e.MaxValue)
}

// Engine encrypts and decrypts amounts over an injected group implementation.
type Engine struct {
	ops group.GroupOps
}

// NewEngine returns an ElGamal engine over ops.
func NewEngine(ops group.GroupOps) *Engine {
	return &Engine{ops: ops}
}

// GenerateKeypair samples a fresh keypair. The secret is a uniformly random
// nonzero scalar; it is never reused across calls.
func (e *Engine) GenerateKeypair() (*Keypair, error) {
	var secret group.Scalar
	for {
		s, err := e.ops.RandomScalar()
		if err != nil {
			return nil, fmt.Errorf("keypair generation: %w", err)
		}
		if !s.IsZero() {
			secret = s
			break
		}
	}
	h := group.BlindingBasepoint()
	return &Keypair{
		Secret: secret,
		Public: e.ops.PointMul(&secret, &h),
	}, nil
}

// Encrypt encrypts amount under pub with a fresh random blinding factor.
// The blinding is returned alongside the ciphertext: it is the opening of the
// commitment component and is needed to build range proofs on the amount.
func (e *Engine) Encrypt(amount uint64, pub *group.Point) (Ciphertext, group.Scalar, error) {
	blinding, err := e.ops.RandomScalar()
	if err != nil {
		return Ciphertext{}, group.Scalar{}, fmt.Errorf("encrypt: %w", err)
	}
	return e.EncryptWithBlinding(amount, pub, &blinding), blinding, nil
}

// EncryptWithBlinding encrypts amount under pub with a caller-supplied
// blinding factor. The blinding must be fresh and uniformly random; reuse
// breaks the hiding property.
func (e *Engine) EncryptWithBlinding(amount uint64, pub *group.Point, blinding *group.Scalar) Ciphertext {
	return Ciphertext{
		Commitment: group.PedersenCommit(amount, blinding),
		Handle:     e.ops.PointMul(blinding, pub),
	}
}

// Decrypt recovers the amount from ct using secret, searching [0, maxValue].
//
// The cancellation commitment - secret⁻¹·handle leaves amount·G; the amount is
// then found by a bounded linear discrete-log search. The linear search only
// scales to small balances; callers hold the upper bound, and larger balances
// need a different recovery strategy before raising the bound.
func (e *Engine) Decrypt(ct *Ciphertext, secret *group.Scalar, maxValue uint64) (uint64, error) {
	if secret.IsZero() {
		return 0, fmt.Errorf("decrypt: zero secret key")
	}
	inv := e.ops.ScalarInverse(secret)
	unblind := e.ops.PointMul(&inv, &ct.Handle)
	target := e.ops.PointSub(&ct.Commitment, &unblind)

	// Walk k·G upward until it matches amount·G.
	base := group.Basepoint()
	var acc group.Point // starts at the identity
	for k := uint64(0); ; k++ {
		if acc.Equal(&target) {
			return k, nil
		}
		if k == maxValue {
			return 0, &DecryptionError{MaxValue: maxValue}
		}
		acc.Add(&acc, &base)
	}
}

// Add returns the component-wise sum of two ciphertexts. Under one key,
// Dec(Add(Enc(a), Enc(b))) = a + b.
func Add(a, b *Ciphertext) Ciphertext {
	var out Ciphertext
	out.Commitment.Add(&a.Commitment, &b.Commitment)
	out.Handle.Add(&a.Handle, &b.Handle)
	return out
}

// Sub returns the component-wise difference of two ciphertexts.
func Sub(a, b *Ciphertext) Ciphertext {
	var out Ciphertext
	out.Commitment.Sub(&a.Commitment, &b.Commitment)
	out.Handle.Sub(&a.Handle, &b.Handle)
	return out
}
