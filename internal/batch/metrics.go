// metrics.go - Proof-generation performance tracking.
//
// Keeps a smoothed software-baseline time per proof across batches so the
// accelerated path can report a speedup factor once both paths have been
// measured.

package batch

import (
	"sync"
	"time"
)

// Performance summarizes one processed batch.
type Performance struct {
	UsedAccelerated bool
	AvgTimePerProof time.Duration
	// Speedup is softwareBaseline/acceleratedAvg, 0 until both paths have
	// been measured.
	Speedup float64
}

// proofMetrics accumulates timing across batches.
type proofMetrics struct {
	mu sync.Mutex

	softwareAvg  time.Duration // EWMA of software per-proof time
	totalProofs  uint64
	totalBatches uint64
}

func newProofMetrics() *proofMetrics {
	return &proofMetrics{}
}

// observeSoftware folds a software-path per-proof time into the baseline.
func (m *proofMetrics) observeSoftware(avg time.Duration) {
	if avg <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.softwareAvg == 0 {
		m.softwareAvg = avg
		return
	}
	// EWMA with alpha = 1/4.
	m.softwareAvg = (3*m.softwareAvg + avg) / 4
}

func (m *proofMetrics) softwareBaseline() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.softwareAvg
}

func (m *proofMetrics) observeBatch(proofs int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalBatches++
	m.totalProofs += uint64(proofs)
}

// Totals reports proofs and batches processed since construction.
func (m *proofMetrics) Totals() (proofs, batches uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalProofs, m.totalBatches
}
