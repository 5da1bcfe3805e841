// main.go - End-to-end confidential transfer walkthrough.
//
// Runs the full proof pipeline once: key generation, amount encryption, a
// balance-backed transfer with range/equality/validity proofs, auditor
// disclosure, and batched proof generation through the manager.
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/rs/zerolog"

	"zkengine/internal/batch"
	"zkengine/internal/bulletproof"
	"zkengine/internal/elgamal"
	"zkengine/internal/group"
	"zkengine/internal/transfer"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	if err := run(log); err != nil {
		log.Error().Err(err).Msg("walkthrough failed")
		os.Exit(1)
	}
}

func run(log zerolog.Logger) error {
	// =========================================================================
	// 1. SETUP: GROUP, PARAMETERS, KEYS
	// =========================================================================

	ops := group.NewBN254Ops(rand.Reader)
	eng := elgamal.NewEngine(ops)
	params, err := bulletproof.NewParams(group.MaxRangeBits, rand.Reader)
	if err != nil {
		return err
	}

	alice, err := eng.GenerateKeypair()
	if err != nil {
		return err
	}
	bob, err := eng.GenerateKeypair()
	if err != nil {
		return err
	}
	auditor, err := eng.GenerateKeypair()
	if err != nil {
		return err
	}
	log.Info().Msg("keys generated for alice, bob, and the auditor")

	// =========================================================================
	// 2. BALANCE-BACKED TRANSFER
	// =========================================================================

	const initialBalance = 5_000_000
	balanceCt, _, err := eng.Encrypt(initialBalance, &alice.Public)
	if err != nil {
		return err
	}

	composer := transfer.NewComposer(ops, params, rand.Reader)
	start := time.Now()
	res, err := composer.GenerateTransferProof(balanceCt, 1_500_000, alice, &bob.Public, initialBalance)
	if err != nil {
		return err
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("transfer proof generated")

	if !composer.VerifyTransferProof(res.Proof, balanceCt, res.NewSourceBalance, res.DestCiphertext, &alice.Public, &bob.Public) {
		return fmt.Errorf("transfer proof rejected")
	}
	newBalance, err := eng.Decrypt(&res.NewSourceBalance, &alice.Secret, initialBalance)
	if err != nil {
		return err
	}
	received, err := eng.Decrypt(&res.DestCiphertext, &bob.Secret, initialBalance)
	if err != nil {
		return err
	}
	log.Info().
		Uint64("new_balance", newBalance).
		Uint64("received", received).
		Msg("transfer verified and decrypted")

	// =========================================================================
	// 3. AUDITOR DISCLOSURE
	// =========================================================================

	ctProof, err := composer.GenerateConfidentialTransferProof(big.NewInt(250_000), alice, &bob.Public, &auditor.Public)
	if err != nil {
		return err
	}
	if !composer.VerifyConfidentialTransferProof(ctProof, &alice.Public, &bob.Public, &auditor.Public) {
		return fmt.Errorf("confidential transfer proof rejected")
	}
	audited, err := eng.Decrypt(&ctProof.Auditor.Ciphertext, &auditor.Secret, 1_000_000)
	if err != nil {
		return err
	}
	log.Info().Uint64("amount", audited).Msg("auditor decrypted the transfer amount")

	// =========================================================================
	// 4. BATCHED PROOF GENERATION
	// =========================================================================

	mgr := batch.NewManager(batch.DefaultConfig(), params, rand.Reader, log)
	reqs := make([]batch.RangeProofRequest, 8)
	for i := range reqs {
		blinding, err := group.RandomScalar(rand.Reader)
		if err != nil {
			return err
		}
		reqs[i] = batch.RangeProofRequest{Value: uint64(1000 * (i + 1)), Blinding: blinding}
	}
	if _, err := mgr.AddRangeProofTasks(reqs, 1); err != nil {
		return err
	}

	batchRes, err := mgr.ProcessBatch(context.Background())
	if err != nil {
		return err
	}
	groups, err := batch.SplitProofBatches(batchRes.Proofs, batch.DefaultConfig().MaxTransactionSize)
	if err != nil {
		return err
	}
	log.Info().
		Int("proofs", len(batchRes.Proofs)).
		Int("failures", len(batchRes.Failures)).
		Int("transactions", len(groups)).
		Uint64("compute_units", batchRes.ComputeUnits).
		Bool("accelerated", batchRes.Performance.UsedAccelerated).
		Msg("batch processed")

	return nil
}
