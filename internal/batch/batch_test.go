package batch

import (
	"context"
	"crypto/rand"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"zkengine/internal/bulletproof"
	"zkengine/internal/elgamal"
	"zkengine/internal/group"
)

// Tests run over the 8-bit domain to keep proof generation fast.
const testBits = 8

func testParams(t *testing.T) *bulletproof.Params {
	t.Helper()
	params, err := bulletproof.NewParams(testBits, rand.Reader)
	require.NoError(t, err)
	return params
}

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	return NewManager(cfg, testParams(t), rand.Reader, zerolog.Nop())
}

func rangeSpec(t *testing.T, value uint64, priority int) TaskSpec {
	t.Helper()
	blinding, err := group.RandomScalar(rand.Reader)
	require.NoError(t, err)
	return TaskSpec{
		Kind:     KindRange,
		Priority: priority,
		Range:    &RangeProofRequest{Value: value, Blinding: blinding},
	}
}

// countingBackend delegates to the software backend and counts batch calls.
type countingBackend struct {
	inner ProofBackend
	calls atomic.Int64
}

func (b *countingBackend) Name() string    { return "counting" }
func (b *countingBackend) Available() bool { return true }

func (b *countingBackend) BatchRangeProofs(ctx context.Context, reqs []RangeProofRequest) ([]*bulletproof.RangeProof, error) {
	b.calls.Add(1)
	return b.inner.BatchRangeProofs(ctx, reqs)
}

// failingBackend always errors, forcing the software fallback.
type failingBackend struct{}

func (failingBackend) Name() string    { return "failing" }
func (failingBackend) Available() bool { return true }

func (failingBackend) BatchRangeProofs(context.Context, []RangeProofRequest) ([]*bulletproof.RangeProof, error) {
	return nil, errors.New("device lost")
}

func TestAddTaskValidation(t *testing.T) {
	m := newTestManager(t, Config{})

	_, err := m.AddTask(TaskSpec{Kind: KindRange, Priority: 1})
	require.Error(t, err, "range task without a request must be rejected")
	_, err = m.AddTask(TaskSpec{Kind: ProofKind(99)})
	require.Error(t, err, "unknown kind must be rejected")

	id, err := m.AddTask(rangeSpec(t, 7, 1))
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, 1, m.GetStatus().Pending)
}

func TestProcessBatchEmptyQueue(t *testing.T) {
	m := newTestManager(t, Config{UseAccelerated: false})
	res, err := m.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Empty(t, res.Proofs)
	require.Empty(t, res.Failures)
}

func TestProcessBatchPriorityOrder(t *testing.T) {
	m := newTestManager(t, Config{UseAccelerated: false})

	low, err := m.AddTask(rangeSpec(t, 1, 1))
	require.NoError(t, err)
	high, err := m.AddTask(rangeSpec(t, 2, 9))
	require.NoError(t, err)
	mid, err := m.AddTask(rangeSpec(t, 3, 5))
	require.NoError(t, err)

	res, err := m.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Proofs, 3)
	require.Empty(t, res.Failures)

	got := []string{res.Proofs[0].TaskID, res.Proofs[1].TaskID, res.Proofs[2].TaskID}
	require.Equal(t, []string{high, mid, low}, got, "higher priority must complete first")
}

func TestProcessBatchFIFOWithinPriority(t *testing.T) {
	m := newTestManager(t, Config{UseAccelerated: false})

	var ids []string
	for v := uint64(0); v < 4; v++ {
		id, err := m.AddTask(rangeSpec(t, v, 3))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	res, err := m.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Proofs, len(ids))
	for i, p := range res.Proofs {
		require.Equal(t, ids[i], p.TaskID, "equal priority must run in insertion order")
	}
}

func TestProcessBatchHonorsBatchSize(t *testing.T) {
	m := newTestManager(t, Config{MaxProofsPerBatch: 2, UseAccelerated: false})
	for v := uint64(0); v < 5; v++ {
		_, err := m.AddTask(rangeSpec(t, v, 1))
		require.NoError(t, err)
	}

	res, err := m.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Proofs, 2)
	require.Equal(t, 3, m.GetStatus().Pending)
}

func TestProcessBatchHonorsComputeBudget(t *testing.T) {
	// Budget for two range proofs but not three.
	cfg := Config{MaxComputeUnits: 2 * KindRange.ComputeUnits(), UseAccelerated: false}
	m := newTestManager(t, cfg)
	for v := uint64(0); v < 3; v++ {
		_, err := m.AddTask(rangeSpec(t, v, 1))
		require.NoError(t, err)
	}

	res, err := m.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Proofs, 2)
	require.Equal(t, 2*KindRange.ComputeUnits(), res.ComputeUnits)
	require.Equal(t, 1, m.GetStatus().Pending)
}

func TestProcessBatchRejectsUnpayableTask(t *testing.T) {
	cfg := Config{MaxComputeUnits: KindRange.ComputeUnits() - 1, UseAccelerated: false}
	m := newTestManager(t, cfg)
	_, err := m.AddTask(rangeSpec(t, 1, 1))
	require.NoError(t, err)

	_, err = m.ProcessBatch(context.Background())
	require.Error(t, err, "a task that can never fit the budget is a configuration error")
}

func TestMixedKindBatch(t *testing.T) {
	params := testParams(t)
	m := NewManager(Config{UseAccelerated: false}, params, rand.Reader, zerolog.Nop())

	eng := elgamal.NewEngine(group.NewBN254Ops(rand.Reader))
	kp1, err := eng.GenerateKeypair()
	require.NoError(t, err)
	kp2, err := eng.GenerateKeypair()
	require.NoError(t, err)

	ct1, r1, err := eng.Encrypt(55, &kp1.Public)
	require.NoError(t, err)
	ct2, r2, err := eng.Encrypt(55, &kp2.Public)
	require.NoError(t, err)

	_, err = m.AddTask(TaskSpec{Kind: KindValidity, Priority: 1, Validity: &ValidityProofRequest{
		Ciphertext: ct1, Pub: kp1.Public, Amount: 55, Blinding: r1,
	}})
	require.NoError(t, err)
	_, err = m.AddTask(TaskSpec{Kind: KindEquality, Priority: 1, Equality: &EqualityProofRequest{
		Ct1: ct1, Ct2: ct2, Pub1: kp1.Public, Pub2: kp2.Public, Amount: 55, R1: r1, R2: r2,
	}})
	require.NoError(t, err)
	_, err = m.AddTask(rangeSpec(t, 200, 1))
	require.NoError(t, err)

	res, err := m.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Proofs, 3)
	require.Empty(t, res.Failures)
	require.Len(t, res.Instructions, 3)

	sizes := map[ProofKind]int{}
	for _, p := range res.Proofs {
		sizes[p.Kind] = len(p.Proof)
	}
	require.Equal(t, 128, sizes[KindValidity])
	require.Equal(t, 224, sizes[KindEquality])
	require.Equal(t, 32*(9+2*3), sizes[KindRange], "8-bit proofs carry 3 inner-product rounds")
}

func TestAcceleratedThreshold(t *testing.T) {
	params := testParams(t)
	backend := &countingBackend{inner: NewAcceleratedBackend(params, 4)}
	cfg := Config{UseAccelerated: true, AcceleratedBatchThreshold: 4}
	m := NewManagerWithBackend(cfg, params, rand.Reader, zerolog.Nop(), backend)

	// Below the threshold: software path, no backend call.
	_, err := m.AddRangeProofTasks([]RangeProofRequest{
		{Value: 1}, {Value: 2}, {Value: 3},
	}, 1)
	require.NoError(t, err)
	res, err := m.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Proofs, 3)
	require.False(t, res.Performance.UsedAccelerated)
	require.EqualValues(t, 0, backend.calls.Load())

	// At the threshold: exactly one backend call for the whole batch.
	_, err = m.AddRangeProofTasks([]RangeProofRequest{
		{Value: 4}, {Value: 5}, {Value: 6}, {Value: 7},
	}, 1)
	require.NoError(t, err)
	res, err = m.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Proofs, 4)
	require.True(t, res.Performance.UsedAccelerated)
	require.EqualValues(t, 1, backend.calls.Load())
}

func TestAcceleratedFallbackLosesNoTasks(t *testing.T) {
	params := testParams(t)
	cfg := Config{UseAccelerated: true, AcceleratedBatchThreshold: 2}
	m := NewManagerWithBackend(cfg, params, rand.Reader, zerolog.Nop(), failingBackend{})

	ids, err := m.AddRangeProofTasks([]RangeProofRequest{
		{Value: 10}, {Value: 20}, {Value: 30}, {Value: 40},
	}, 1)
	require.NoError(t, err)
	require.Len(t, ids, 4)

	res, err := m.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Proofs, 4, "every task must be regenerated in software")
	require.Empty(t, res.Failures)
	require.False(t, res.Performance.UsedAccelerated)
	require.Equal(t, 4, m.GetStatus().Completed)
}

func TestGeneratedProofsVerify(t *testing.T) {
	params := testParams(t)
	m := NewManager(Config{UseAccelerated: false}, params, rand.Reader, zerolog.Nop())

	blinding, err := group.RandomScalar(rand.Reader)
	require.NoError(t, err)
	_, err = m.AddTask(TaskSpec{Kind: KindRange, Priority: 1, Range: &RangeProofRequest{Value: 99, Blinding: blinding}})
	require.NoError(t, err)

	res, err := m.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Proofs, 1)

	proof, err := bulletproof.ProofFromBytes(res.Proofs[0].Proof)
	require.NoError(t, err)
	commitment := params.Commit(99, &blinding)
	require.True(t, params.Verify(proof, &commitment))
}

func TestRetryThenTerminalFailure(t *testing.T) {
	// 300 is outside the 8-bit domain, so generation fails on every attempt.
	m := newTestManager(t, Config{MaxRetries: 2, UseAccelerated: false})
	id, err := m.AddTask(rangeSpec(t, 300, 1))
	require.NoError(t, err)

	res, err := m.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Empty(t, res.Proofs)
	require.Empty(t, res.Failures, "first failure must requeue, not fail terminally")
	require.Equal(t, 1, m.GetStatus().Pending)

	res, err = m.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	require.Equal(t, id, res.Failures[0].TaskID)
	require.ErrorIs(t, res.Failures[0].Err, bulletproof.ErrValueOutOfRange)

	failed := m.GetFailedTasks()
	require.Len(t, failed, 1)
	require.Equal(t, id, failed[0].TaskID)
	require.Equal(t, 1, m.GetStatus().Failed)
}

func TestProofTimeout(t *testing.T) {
	m := newTestManager(t, Config{MaxRetries: 1, ProofTimeout: time.Nanosecond, UseAccelerated: false})
	id, err := m.AddTask(rangeSpec(t, 5, 1))
	require.NoError(t, err)

	res, err := m.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	require.Equal(t, id, res.Failures[0].TaskID)

	var timeoutErr *TaskTimeoutError
	require.ErrorAs(t, res.Failures[0].Err, &timeoutErr)
	require.Equal(t, time.Nanosecond, timeoutErr.Timeout)
}

func TestCancelPending(t *testing.T) {
	m := newTestManager(t, Config{UseAccelerated: false})
	keep, err := m.AddTask(rangeSpec(t, 1, 1))
	require.NoError(t, err)
	drop, err := m.AddTask(rangeSpec(t, 2, 1))
	require.NoError(t, err)

	require.True(t, m.CancelPending(drop))
	require.False(t, m.CancelPending(drop), "second cancel must report no-op")
	require.False(t, m.CancelPending("no-such-task"))

	res, err := m.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Proofs, 1)
	require.Equal(t, keep, res.Proofs[0].TaskID)
}

func TestClearCompleted(t *testing.T) {
	m := newTestManager(t, Config{UseAccelerated: false})
	_, err := m.AddTask(rangeSpec(t, 1, 1))
	require.NoError(t, err)
	_, err = m.AddTask(rangeSpec(t, 2, 1))
	require.NoError(t, err)

	_, err = m.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, m.GetStatus().Completed)

	proofs, batches := m.Totals()
	require.EqualValues(t, 2, proofs)
	require.EqualValues(t, 1, batches)

	require.Equal(t, 2, m.ClearCompleted())
	require.Equal(t, Status{}, m.GetStatus())
	require.Equal(t, 0, m.ClearCompleted())
}

func TestSplitProofBatches(t *testing.T) {
	proof := func(id string, size int) GeneratedProof {
		return GeneratedProof{TaskID: id, Kind: KindRange, Proof: make([]byte, size)}
	}

	t.Run("packs in order", func(t *testing.T) {
		proofs := []GeneratedProof{
			proof("a", 100), proof("b", 100), proof("c", 100),
		}
		// Each proof costs 136 with overhead; two fit in 300, not three.
		groups, err := SplitProofBatches(proofs, 300)
		require.NoError(t, err)
		require.Len(t, groups, 2)
		require.Len(t, groups[0], 2)
		require.Len(t, groups[1], 1)
		require.Equal(t, "a", groups[0][0].TaskID)
		require.Equal(t, "b", groups[0][1].TaskID)
		require.Equal(t, "c", groups[1][0].TaskID)
	})

	t.Run("empty input", func(t *testing.T) {
		groups, err := SplitProofBatches(nil, 1232)
		require.NoError(t, err)
		require.Empty(t, groups)
	})

	t.Run("oversized proof", func(t *testing.T) {
		_, err := SplitProofBatches([]GeneratedProof{proof("big", 2000)}, 1232)
		require.Error(t, err)
	})

	t.Run("invalid limit", func(t *testing.T) {
		_, err := SplitProofBatches([]GeneratedProof{proof("a", 10)}, 0)
		require.Error(t, err)
	})
}

func TestSubscribe(t *testing.T) {
	m := newTestManager(t, Config{UseAccelerated: false})
	_, err := m.AddTask(rangeSpec(t, 1, 1))
	require.NoError(t, err)

	ch, cancel := m.Subscribe(time.Millisecond)
	select {
	case st := <-ch:
		require.Equal(t, 1, st.Pending)
	case <-time.After(time.Second):
		t.Fatal("no status update within a second")
	}

	cancel()
	cancel() // idempotent
	for range ch {
	}
}

func TestBackendAvailability(t *testing.T) {
	params := testParams(t)
	require.True(t, NewSoftwareBackend(params).Available())
	require.False(t, NewSoftwareBackend(nil).Available())
	require.True(t, NewAcceleratedBackend(params, 4).Available())
	require.False(t, NewAcceleratedBackend(params, 0).Available())
}

func TestBackendsAgreeOnBatchOrder(t *testing.T) {
	params := testParams(t)
	reqs := make([]RangeProofRequest, 6)
	for i := range reqs {
		blinding, err := group.RandomScalar(rand.Reader)
		require.NoError(t, err)
		reqs[i] = RangeProofRequest{Value: uint64(i * 40), Blinding: blinding}
	}

	ctx := context.Background()
	swProofs, err := NewSoftwareBackend(params).BatchRangeProofs(ctx, reqs)
	require.NoError(t, err)
	accProofs, err := NewAcceleratedBackend(params, 3).BatchRangeProofs(ctx, reqs)
	require.NoError(t, err)
	require.Len(t, accProofs, len(reqs))

	for i := range reqs {
		commitment := params.Commit(reqs[i].Value, &reqs[i].Blinding)
		require.True(t, params.Verify(swProofs[i], &commitment), "software proof %d", i)
		require.True(t, params.Verify(accProofs[i], &commitment), "accelerated proof %d", i)
	}
}
