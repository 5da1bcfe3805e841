// transfer.go - Confidential-transfer proof composition.
//
// Combines range, validity, and equality proofs into a transfer bundle: the
// amount leaving the source equals the amount arriving at the destination,
// the amount is non-negative, and every ciphertext is well-formed for its
// claimed public key. Nothing about the amount is revealed.

package transfer

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"zkengine/internal/bulletproof"
	"zkengine/internal/elgamal"
	"zkengine/internal/group"
)

var (
	// ErrAmountRange reports a transfer amount outside [0, 2^64).
	ErrAmountRange = errors.New("transfer: amount outside [0, 2^64)")

	// ErrInsufficientBalance reports a transfer exceeding the decryptable
	// source balance.
	ErrInsufficientBalance = errors.New("transfer: amount exceeds source balance")
)

// TransferProof is the proof bundle for a balance-backed transfer.
type TransferProof struct {
	Range          *bulletproof.RangeProof // amount ∈ [0, 2^64), opens the dest commitment
	Equality       *EqualityProof          // amount removed == amount received
	SourceValidity *ValidityProof          // ciphertext subtracted from the source
	DestValidity   *ValidityProof
}

// TransferResult carries the proof bundle and the post-transfer ciphertexts.
type TransferResult struct {
	Proof            *TransferProof
	NewSourceBalance elgamal.Ciphertext
	DestCiphertext   elgamal.Ciphertext
}

// AuditorProof lets a designated auditor, and only that auditor, decrypt the
// transfer amount.
type AuditorProof struct {
	Ciphertext elgamal.Ciphertext
	Equality   *EqualityProof // dest ↔ auditor
}

// ConfidentialTransferProof is the balance-free transfer bundle with optional
// auditor disclosure.
type ConfidentialTransferProof struct {
	SenderCiphertext elgamal.Ciphertext
	DestCiphertext   elgamal.Ciphertext
	Range            *bulletproof.RangeProof
	Equality         *EqualityProof // sender ↔ dest
	SenderValidity   *ValidityProof
	DestValidity     *ValidityProof
	Auditor          *AuditorProof // nil when no auditor key was supplied
}

// Composer assembles transfer proof bundles.
type Composer struct {
	elg    *elgamal.Engine
	params *bulletproof.Params
	rng    io.Reader
}

// NewComposer returns a composer over the given group, range-proof params,
// and CSPRNG.
func NewComposer(ops group.GroupOps, params *bulletproof.Params, rng io.Reader) *Composer {
	return &Composer{
		elg:    elgamal.NewEngine(ops),
		params: params,
		rng:    rng,
	}
}

// GenerateTransferProof proves a transfer of amount out of sourceBalance to
// destPub. maxBalance bounds the discrete-log search used to open the source
// balance; the transfer fails with ErrInsufficientBalance when the decrypted
// balance is below amount.
func (c *Composer) GenerateTransferProof(sourceBalance elgamal.Ciphertext, amount uint64, sender *elgamal.Keypair, destPub *group.Point, maxBalance uint64) (*TransferResult, error) {
	balance, err := c.elg.Decrypt(&sourceBalance, &sender.Secret, maxBalance)
	if err != nil {
		return nil, fmt.Errorf("opening source balance: %w", err)
	}
	if balance < amount {
		return nil, fmt.Errorf("%w: balance %d, amount %d", ErrInsufficientBalance, balance, amount)
	}

	// Step 1: encrypt the amount under both keys; the source copy is
	// homomorphically subtracted from the balance.
	srcAmount, rSrc, err := c.elg.Encrypt(amount, &sender.Public)
	if err != nil {
		return nil, err
	}
	destCt, rDest, err := c.elg.Encrypt(amount, destPub)
	if err != nil {
		return nil, err
	}
	newSource := elgamal.Sub(&sourceBalance, &srcAmount)

	// Step 2: range proof on the amount, opening the dest commitment.
	rangeProof, err := c.params.Prove(amount, &rDest)
	if err != nil {
		return nil, fmt.Errorf("range proof: %w", err)
	}

	// Step 3: equality across keys, validity for each ciphertext.
	eq, err := ProveEquality(c.rng, &srcAmount, &destCt, &sender.Public, destPub, amount, &rSrc, &rDest)
	if err != nil {
		return nil, err
	}
	srcValidity, err := ProveValidity(c.rng, &srcAmount, &sender.Public, amount, &rSrc)
	if err != nil {
		return nil, err
	}
	destValidity, err := ProveValidity(c.rng, &destCt, destPub, amount, &rDest)
	if err != nil {
		return nil, err
	}

	return &TransferResult{
		Proof: &TransferProof{
			Range:          rangeProof,
			Equality:       eq,
			SourceValidity: srcValidity,
			DestValidity:   destValidity,
		},
		NewSourceBalance: newSource,
		DestCiphertext:   destCt,
	}, nil
}

// VerifyTransferProof checks a transfer bundle against the pre- and
// post-transfer ciphertexts. The subtracted amount ciphertext is recomputed
// as sourceBalance - newSource.
func (c *Composer) VerifyTransferProof(proof *TransferProof, sourceBalance, newSource, destCt elgamal.Ciphertext, senderPub, destPub *group.Point) bool {
	if proof == nil {
		return false
	}
	srcAmount := elgamal.Sub(&sourceBalance, &newSource)
	if !c.params.Verify(proof.Range, &destCt.Commitment) {
		return false
	}
	if !VerifyEquality(proof.Equality, &srcAmount, &destCt, senderPub, destPub) {
		return false
	}
	return VerifyValidity(proof.SourceValidity, &srcAmount, senderPub) &&
		VerifyValidity(proof.DestValidity, &destCt, destPub)
}

// GenerateConfidentialTransferProof encrypts amount under the sender and
// destination keys (and, when auditorPub is non-nil, under the auditor key
// with an equality proof enabling auditor disclosure) and proves the bundle
// consistent. Amounts cross this API as big integers; negative values and
// values at or above 2^64 are rejected with ErrAmountRange.
func (c *Composer) GenerateConfidentialTransferProof(amount *big.Int, sender *elgamal.Keypair, destPub, auditorPub *group.Point) (*ConfidentialTransferProof, error) {
	if amount == nil || amount.Sign() < 0 || amount.BitLen() > 64 {
		return nil, fmt.Errorf("%w: %s", ErrAmountRange, amount)
	}
	amt := amount.Uint64()

	senderCt, rSender, err := c.elg.Encrypt(amt, &sender.Public)
	if err != nil {
		return nil, err
	}
	destCt, rDest, err := c.elg.Encrypt(amt, destPub)
	if err != nil {
		return nil, err
	}

	rangeProof, err := c.params.Prove(amt, &rDest)
	if err != nil {
		return nil, fmt.Errorf("range proof: %w", err)
	}
	eq, err := ProveEquality(c.rng, &senderCt, &destCt, &sender.Public, destPub, amt, &rSender, &rDest)
	if err != nil {
		return nil, err
	}
	senderValidity, err := ProveValidity(c.rng, &senderCt, &sender.Public, amt, &rSender)
	if err != nil {
		return nil, err
	}
	destValidity, err := ProveValidity(c.rng, &destCt, destPub, amt, &rDest)
	if err != nil {
		return nil, err
	}

	proof := &ConfidentialTransferProof{
		SenderCiphertext: senderCt,
		DestCiphertext:   destCt,
		Range:            rangeProof,
		Equality:         eq,
		SenderValidity:   senderValidity,
		DestValidity:     destValidity,
	}

	if auditorPub != nil {
		auditorCt, rAud, err := c.elg.Encrypt(amt, auditorPub)
		if err != nil {
			return nil, err
		}
		audEq, err := ProveEquality(c.rng, &destCt, &auditorCt, destPub, auditorPub, amt, &rDest, &rAud)
		if err != nil {
			return nil, err
		}
		proof.Auditor = &AuditorProof{
			Ciphertext: auditorCt,
			Equality:   audEq,
		}
	}
	return proof, nil
}

// VerifyConfidentialTransferProof checks the full bundle, including the
// auditor disclosure when present. auditorPub must be non-nil exactly when
// the proof carries an auditor bundle.
func (c *Composer) VerifyConfidentialTransferProof(proof *ConfidentialTransferProof, senderPub, destPub, auditorPub *group.Point) bool {
	if proof == nil {
		return false
	}
	if !c.params.Verify(proof.Range, &proof.DestCiphertext.Commitment) {
		return false
	}
	if !VerifyEquality(proof.Equality, &proof.SenderCiphertext, &proof.DestCiphertext, senderPub, destPub) {
		return false
	}
	if !VerifyValidity(proof.SenderValidity, &proof.SenderCiphertext, senderPub) ||
		!VerifyValidity(proof.DestValidity, &proof.DestCiphertext, destPub) {
		return false
	}
	if (proof.Auditor == nil) != (auditorPub == nil) {
		return false
	}
	if proof.Auditor != nil {
		return VerifyEquality(proof.Auditor.Equality, &proof.DestCiphertext, &proof.Auditor.Ciphertext, destPub, auditorPub)
	}
	return true
}
