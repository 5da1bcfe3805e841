// manager.go - Priority scheduling of proof generation across backends.
//
// The manager owns a priority queue of proof tasks and processes them in
// batches bounded by count and compute units. Range-proof batches large
// enough to clear the accelerated threshold go to the accelerated backend in
// one call; a backend failure transparently falls back to per-task software
// generation with zero lost tasks. Queue mutation is single-writer: only the
// manager goroutine touches the queue and status counters.

package batch

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"zkengine/internal/bulletproof"
	"zkengine/internal/transfer"
)

// Config tunes the batch manager. Zero fields take defaults.
type Config struct {
	MaxProofsPerBatch         int
	MaxComputeUnits           uint64
	MaxTransactionSize        int
	MaxRetries                int
	ParallelWorkers           int
	ProofTimeout              time.Duration
	UseAccelerated            bool
	AcceleratedBatchThreshold int
}

// DefaultConfig returns the default manager configuration.
func DefaultConfig() Config {
	return Config{
		MaxProofsPerBatch:         16,
		MaxComputeUnits:           1_400_000,
		MaxTransactionSize:        1232,
		MaxRetries:                3,
		ParallelWorkers:           4,
		ProofTimeout:              30 * time.Second,
		UseAccelerated:            true,
		AcceleratedBatchThreshold: 4,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxProofsPerBatch <= 0 {
		c.MaxProofsPerBatch = d.MaxProofsPerBatch
	}
	if c.MaxComputeUnits == 0 {
		c.MaxComputeUnits = d.MaxComputeUnits
	}
	if c.MaxTransactionSize <= 0 {
		c.MaxTransactionSize = d.MaxTransactionSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.ParallelWorkers <= 0 {
		c.ParallelWorkers = d.ParallelWorkers
	}
	if c.ProofTimeout <= 0 {
		c.ProofTimeout = d.ProofTimeout
	}
	if c.AcceleratedBatchThreshold <= 0 {
		c.AcceleratedBatchThreshold = d.AcceleratedBatchThreshold
	}
	return c
}

// GeneratedProof is one successfully generated, serialized proof.
type GeneratedProof struct {
	TaskID string
	Kind   ProofKind
	Proof  []byte
}

// VerificationInstruction is the account-agnostic opcode+payload pair handed
// to the external transaction-building layer.
type VerificationInstruction struct {
	Opcode  ProofKind
	Payload []byte
}

// BatchResult reports one ProcessBatch call.
type BatchResult struct {
	Proofs       []GeneratedProof
	Failures     []TaskFailure
	Instructions []VerificationInstruction
	ComputeUnits uint64
	Performance  Performance
}

// Status is a consistent snapshot of the queue counters.
type Status struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// Manager schedules proof generation across the software and accelerated
// backends.
type Manager struct {
	cfg     Config
	log     zerolog.Logger
	params  *bulletproof.Params
	rng     io.Reader
	backend ProofBackend

	mu       sync.Mutex
	queue    taskQueue
	tasks    map[string]*Task
	nextSeq  uint64
	canceled map[string]struct{}

	metrics *proofMetrics
}

// NewManager returns a manager using the accelerated backend built from cfg.
func NewManager(cfg Config, params *bulletproof.Params, rng io.Reader, log zerolog.Logger) *Manager {
	cfg = cfg.withDefaults()
	return NewManagerWithBackend(cfg, params, rng, log, NewAcceleratedBackend(params, cfg.ParallelWorkers))
}

// NewManagerWithBackend returns a manager with an explicit accelerated
// backend; tests inject failing or counting backends here.
func NewManagerWithBackend(cfg Config, params *bulletproof.Params, rng io.Reader, log zerolog.Logger, backend ProofBackend) *Manager {
	return &Manager{
		cfg:      cfg.withDefaults(),
		log:      log.With().Str("component", "batch").Logger(),
		params:   params,
		rng:      rng,
		backend:  backend,
		tasks:    make(map[string]*Task),
		canceled: make(map[string]struct{}),
		metrics:  newProofMetrics(),
	}
}

// AddTask enqueues a proof task and returns its id.
func (m *Manager) AddTask(spec TaskSpec) (string, error) {
	if err := spec.validate(); err != nil {
		return "", fmt.Errorf("batch: invalid task: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &Task{
		ID:       uuid.NewString(),
		Kind:     spec.Kind,
		Priority: spec.Priority,
		Status:   StatusPending,
		spec:     spec,
		seq:      m.nextSeq,
	}
	m.nextSeq++
	m.tasks[t.ID] = t
	m.queue.push(t)
	return t.ID, nil
}

// AddRangeProofTasks bulk-enqueues range-proof tasks at one priority.
func (m *Manager) AddRangeProofTasks(reqs []RangeProofRequest, priority int) ([]string, error) {
	ids := make([]string, 0, len(reqs))
	for i := range reqs {
		req := reqs[i]
		id, err := m.AddTask(TaskSpec{Kind: KindRange, Priority: priority, Range: &req})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CancelPending drops a pending task from the queue. Advisory: a task already
// dequeued into a batch runs to completion or failure.
func (m *Manager) CancelPending(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.Status != StatusPending {
		return false
	}
	m.canceled[id] = struct{}{}
	delete(m.tasks, id)
	return true
}

// GetStatus returns consistent queue counters.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s Status
	for _, t := range m.tasks {
		switch t.Status {
		case StatusPending:
			s.Pending++
		case StatusProcessing:
			s.Processing++
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// GetFailedTasks returns terminal failures with their last error.
func (m *Manager) GetFailedTasks() []TaskFailure {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []TaskFailure
	for _, t := range m.tasks {
		if t.Status == StatusFailed {
			out = append(out, TaskFailure{TaskID: t.ID, Kind: t.Kind, Err: t.LastErr})
		}
	}
	return out
}

// ClearCompleted purges terminal successes, leaving pending and failed tasks
// untouched. Returns the number purged.
func (m *Manager) ClearCompleted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, t := range m.tasks {
		if t.Status == StatusCompleted {
			delete(m.tasks, id)
			n++
		}
	}
	return n
}

// Totals reports proofs and batches processed since construction.
func (m *Manager) Totals() (proofs, batches uint64) {
	return m.metrics.Totals()
}

// ProcessBatch dequeues up to MaxProofsPerBatch tasks, highest priority
// first, and generates their proofs. It returns an error only for
// programmer or configuration mistakes; task-level failures are retried or
// reported through the result and GetFailedTasks.
func (m *Manager) ProcessBatch(ctx context.Context) (*BatchResult, error) {
	tasks, err := m.dequeueBatch()
	if err != nil {
		return nil, err
	}
	result := &BatchResult{}
	if len(tasks) == 0 {
		return result, nil
	}

	var rangeTasks, otherTasks []*Task
	for _, t := range tasks {
		if t.Kind == KindRange {
			rangeTasks = append(rangeTasks, t)
		} else {
			otherTasks = append(otherTasks, t)
		}
	}

	start := time.Now()
	usedAccelerated := false
	softwareTasks := otherTasks

	if m.cfg.UseAccelerated && m.backend != nil && m.backend.Available() && len(rangeTasks) >= m.cfg.AcceleratedBatchThreshold {
		if done := m.runAccelerated(ctx, rangeTasks, result); done {
			usedAccelerated = true
		} else {
			// Transparent fallback: every dequeued task is regenerated on
			// the software path.
			softwareTasks = append(softwareTasks, rangeTasks...)
		}
	} else {
		softwareTasks = append(softwareTasks, rangeTasks...)
	}

	var softwareDur time.Duration
	if len(softwareTasks) > 0 {
		swStart := time.Now()
		m.runSoftware(ctx, softwareTasks, result)
		softwareDur = time.Since(swStart)
	}

	m.finishBatch(result, tasks)

	elapsed := time.Since(start)
	if n := len(result.Proofs); n > 0 {
		result.Performance.AvgTimePerProof = elapsed / time.Duration(n)
	}
	result.Performance.UsedAccelerated = usedAccelerated
	if sw := countCompleted(softwareTasks); sw > 0 {
		m.metrics.observeSoftware(softwareDur / time.Duration(sw))
	}
	if usedAccelerated {
		if baseline := m.metrics.softwareBaseline(); baseline > 0 && result.Performance.AvgTimePerProof > 0 {
			result.Performance.Speedup = float64(baseline) / float64(result.Performance.AvgTimePerProof)
		}
	}
	m.metrics.observeBatch(len(result.Proofs))

	m.log.Debug().
		Int("proofs", len(result.Proofs)).
		Int("failures", len(result.Failures)).
		Uint64("compute_units", result.ComputeUnits).
		Bool("accelerated", usedAccelerated).
		Dur("elapsed", elapsed).
		Msg("batch processed")
	return result, nil
}

// dequeueBatch pops tasks under the count and compute-unit limits and marks
// them processing.
func (m *Manager) dequeueBatch() ([]*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var tasks []*Task
	var units uint64
	for len(tasks) < m.cfg.MaxProofsPerBatch {
		top := m.queue.peek()
		if top == nil {
			break
		}
		if _, dropped := m.canceled[top.ID]; dropped {
			m.queue.pop()
			delete(m.canceled, top.ID)
			continue
		}
		cost := top.Kind.ComputeUnits()
		if cost > m.cfg.MaxComputeUnits {
			return nil, fmt.Errorf("batch: task %s needs %d compute units, budget is %d", top.ID, cost, m.cfg.MaxComputeUnits)
		}
		if units+cost > m.cfg.MaxComputeUnits {
			break
		}
		t := m.queue.pop()
		t.Status = StatusProcessing
		units += cost
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// runAccelerated sends all range tasks to the backend in one call. Returns
// false when the backend failed and the tasks still need software generation.
func (m *Manager) runAccelerated(ctx context.Context, tasks []*Task, result *BatchResult) bool {
	reqs := make([]RangeProofRequest, len(tasks))
	for i, t := range tasks {
		reqs[i] = *t.spec.Range
	}
	proofs, err := m.backend.BatchRangeProofs(ctx, reqs)
	if err != nil {
		berr := &BackendError{Backend: m.backend.Name(), Err: err}
		m.log.Warn().Err(berr).Int("tasks", len(tasks)).Msg("accelerated backend failed, falling back to software")
		return false
	}
	for i, t := range tasks {
		m.completeTask(t, proofs[i].Bytes(), result)
	}
	return true
}

// runSoftware generates each task's proof individually, honoring the
// per-task timeout.
func (m *Manager) runSoftware(ctx context.Context, tasks []*Task, result *BatchResult) {
	for _, t := range tasks {
		payload, err := m.generateWithTimeout(ctx, t)
		if err != nil {
			m.failTask(t, err, result)
			continue
		}
		m.completeTask(t, payload, result)
	}
}

// generateWithTimeout runs one proof generation bounded by ProofTimeout.
// Generation is not preemptible: on timeout the goroutine runs to completion
// and its result is dropped.
func (m *Manager) generateWithTimeout(ctx context.Context, t *Task) ([]byte, error) {
	type genResult struct {
		payload []byte
		err     error
	}
	ch := make(chan genResult, 1)
	go func() {
		payload, err := m.generate(t)
		ch <- genResult{payload, err}
	}()

	timer := time.NewTimer(m.cfg.ProofTimeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		return r.payload, r.err
	case <-timer.C:
		return nil, &TaskTimeoutError{TaskID: t.ID, Timeout: m.cfg.ProofTimeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) generate(t *Task) ([]byte, error) {
	switch t.Kind {
	case KindRange:
		req := t.spec.Range
		proof, err := m.params.Prove(req.Value, &req.Blinding)
		if err != nil {
			return nil, err
		}
		return proof.Bytes(), nil
	case KindValidity:
		req := t.spec.Validity
		proof, err := transfer.ProveValidity(m.rng, &req.Ciphertext, &req.Pub, req.Amount, &req.Blinding)
		if err != nil {
			return nil, err
		}
		return proof.Bytes(), nil
	case KindEquality:
		req := t.spec.Equality
		proof, err := transfer.ProveEquality(m.rng, &req.Ct1, &req.Ct2, &req.Pub1, &req.Pub2, req.Amount, &req.R1, &req.R2)
		if err != nil {
			return nil, err
		}
		return proof.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown proof kind %d", t.Kind)
	}
}

func (m *Manager) completeTask(t *Task, payload []byte, result *BatchResult) {
	m.mu.Lock()
	t.Status = StatusCompleted
	m.mu.Unlock()
	result.Proofs = append(result.Proofs, GeneratedProof{TaskID: t.ID, Kind: t.Kind, Proof: payload})
	result.Instructions = append(result.Instructions, VerificationInstruction{Opcode: t.Kind, Payload: payload})
	result.ComputeUnits += t.Kind.ComputeUnits()
}

func (m *Manager) failTask(t *Task, err error, result *BatchResult) {
	m.mu.Lock()
	t.RetryCount++
	t.LastErr = err
	retry := t.RetryCount < m.cfg.MaxRetries
	if retry {
		t.Status = StatusPending
	} else {
		t.Status = StatusFailed
	}
	m.mu.Unlock()

	if retry {
		m.log.Debug().Str("task", t.ID).Int("retry", t.RetryCount).Err(err).Msg("task requeued")
		return
	}
	result.Failures = append(result.Failures, TaskFailure{TaskID: t.ID, Kind: t.Kind, Err: err})
	m.log.Warn().Str("task", t.ID).Err(err).Msg("task failed terminally")
}

// finishBatch re-enqueues retrying tasks under the lock.
func (m *Manager) finishBatch(result *BatchResult, tasks []*Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tasks {
		if t.Status == StatusPending {
			m.queue.push(t)
		}
	}
}

func countCompleted(tasks []*Task) int {
	n := 0
	for _, t := range tasks {
		if t.Status == StatusCompleted {
			n++
		}
	}
	return n
}
