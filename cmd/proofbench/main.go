// main.go - Range-proof backend benchmark.
//
// Generates a configurable batch of range proofs on the software and
// accelerated backends, verifies every proof, and reports per-proof timings
// and the measured speedup. Also drives the same workload through the batch
// manager, exercising scheduling, compute budgeting, and transaction packing.
//
// Usage:
//
//	proofbench [config.json]
package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"zkengine/internal/batch"
	"zkengine/internal/bulletproof"
	"zkengine/internal/group"
)

func main() {
	configPath := "proofbench.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "proofbench: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "proofbench: invalid config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("benchmark failed")
		os.Exit(1)
	}
}

func run(cfg *Config, log zerolog.Logger) error {
	params, err := bulletproof.NewParams(cfg.RangeBits, rand.Reader)
	if err != nil {
		return err
	}
	reqs, err := randomWorkload(cfg.NumProofs, cfg.RangeBits)
	if err != nil {
		return err
	}
	log.Info().
		Int("proofs", cfg.NumProofs).
		Int("range_bits", cfg.RangeBits).
		Int("rounds", cfg.Rounds).
		Msg("workload generated")

	// =========================================================================
	// 1. RAW BACKEND COMPARISON
	// =========================================================================

	ctx := context.Background()
	software := batch.NewSoftwareBackend(params)
	accelerated := batch.NewAcceleratedBackend(params, cfg.ParallelWorkers)

	swAvg, err := benchmarkBackend(ctx, software, params, reqs, cfg.Rounds)
	if err != nil {
		return fmt.Errorf("software backend: %w", err)
	}
	accAvg, err := benchmarkBackend(ctx, accelerated, params, reqs, cfg.Rounds)
	if err != nil {
		return fmt.Errorf("accelerated backend: %w", err)
	}

	log.Info().
		Dur("software_per_proof", swAvg).
		Dur("accelerated_per_proof", accAvg).
		Float64("speedup", float64(swAvg)/float64(accAvg)).
		Int("workers", cfg.ParallelWorkers).
		Msg("backend comparison")

	// =========================================================================
	// 2. MANAGED PIPELINE
	// =========================================================================

	mgrCfg := batch.Config{
		MaxProofsPerBatch:         cfg.MaxProofsPerBatch,
		MaxComputeUnits:           cfg.MaxComputeUnits,
		MaxTransactionSize:        cfg.MaxTransactionSize,
		ParallelWorkers:           cfg.ParallelWorkers,
		UseAccelerated:            cfg.UseAccelerated,
		AcceleratedBatchThreshold: cfg.AcceleratedBatchThreshold,
	}
	mgr := batch.NewManager(mgrCfg, params, rand.Reader, log)
	if _, err := mgr.AddRangeProofTasks(reqs, 1); err != nil {
		return err
	}

	var proofs, transactions int
	var units uint64
	for {
		res, err := mgr.ProcessBatch(ctx)
		if err != nil {
			return err
		}
		if len(res.Proofs) == 0 && len(res.Failures) == 0 {
			break
		}
		groups, err := batch.SplitProofBatches(res.Proofs, cfg.MaxTransactionSize)
		if err != nil {
			return err
		}
		proofs += len(res.Proofs)
		transactions += len(groups)
		units += res.ComputeUnits
		for _, f := range res.Failures {
			log.Warn().Str("task", f.TaskID).Err(f.Err).Msg("task failed")
		}
	}

	totalProofs, totalBatches := mgr.Totals()
	log.Info().
		Int("proofs", proofs).
		Int("transactions", transactions).
		Uint64("compute_units", units).
		Uint64("total_proofs", totalProofs).
		Uint64("total_batches", totalBatches).
		Msg("managed pipeline complete")
	return nil
}

// randomWorkload samples n range-proof requests with values inside the n-bit
// domain.
func randomWorkload(n, bits int) ([]batch.RangeProofRequest, error) {
	mask := ^uint64(0)
	if bits < 64 {
		mask = (uint64(1) << uint(bits)) - 1
	}
	reqs := make([]batch.RangeProofRequest, n)
	for i := range reqs {
		blinding, err := group.RandomScalar(rand.Reader)
		if err != nil {
			return nil, err
		}
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return nil, err
		}
		reqs[i] = batch.RangeProofRequest{Value: binary.LittleEndian.Uint64(buf[:]) & mask, Blinding: blinding}
	}
	return reqs, nil
}

// benchmarkBackend times rounds runs of the full batch and verifies every
// proof of the last run.
func benchmarkBackend(ctx context.Context, backend batch.ProofBackend, params *bulletproof.Params, reqs []batch.RangeProofRequest, rounds int) (time.Duration, error) {
	var proofs []*bulletproof.RangeProof
	start := time.Now()
	for r := 0; r < rounds; r++ {
		var err error
		proofs, err = backend.BatchRangeProofs(ctx, reqs)
		if err != nil {
			return 0, err
		}
	}
	avg := time.Since(start) / time.Duration(rounds*len(reqs))

	for i, proof := range proofs {
		commitment := params.Commit(reqs[i].Value, &reqs[i].Blinding)
		if !params.Verify(proof, &commitment) {
			return 0, fmt.Errorf("%s proof %d failed verification", backend.Name(), i)
		}
	}
	return avg, nil
}
