// task.go - Proof task model for the batch manager.

package batch

import (
	"fmt"
	"time"

	"zkengine/internal/elgamal"
	"zkengine/internal/group"
)

// ProofKind tags a task and doubles as the verification-instruction opcode.
type ProofKind uint8

const (
	KindRange ProofKind = iota + 1
	KindValidity
	KindEquality
)

func (k ProofKind) String() string {
	switch k {
	case KindRange:
		return "range"
	case KindValidity:
		return "validity"
	case KindEquality:
		return "equality"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ComputeUnits returns the abstract verification cost charged against the
// per-batch compute budget.
func (k ProofKind) ComputeUnits() uint64 {
	switch k {
	case KindRange:
		return 100_000
	case KindValidity:
		return 6_500
	case KindEquality:
		return 8_000
	default:
		return 0
	}
}

// TaskStatus is the lifecycle state of a proof task.
type TaskStatus int

const (
	StatusPending TaskStatus = iota
	StatusProcessing
	StatusCompleted
	StatusFailed
)

func (s TaskStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// RangeProofRequest asks for a range proof opening value·G + blinding·H.
type RangeProofRequest struct {
	Value    uint64
	Blinding group.Scalar
}

// ValidityProofRequest asks for a proof that Ciphertext is well-formed for Pub.
type ValidityProofRequest struct {
	Ciphertext elgamal.Ciphertext
	Pub        group.Point
	Amount     uint64
	Blinding   group.Scalar
}

// EqualityProofRequest asks for a proof that two ciphertexts encrypt the same
// amount under their respective keys.
type EqualityProofRequest struct {
	Ct1, Ct2   elgamal.Ciphertext
	Pub1, Pub2 group.Point
	Amount     uint64
	R1, R2     group.Scalar
}

// TaskSpec is the tagged-variant payload of a proof task: exactly the request
// matching Kind must be set.
type TaskSpec struct {
	Kind     ProofKind
	Priority int

	Range    *RangeProofRequest
	Validity *ValidityProofRequest
	Equality *EqualityProofRequest
}

func (s *TaskSpec) validate() error {
	switch s.Kind {
	case KindRange:
		if s.Range == nil {
			return fmt.Errorf("range task without range request")
		}
	case KindValidity:
		if s.Validity == nil {
			return fmt.Errorf("validity task without validity request")
		}
	case KindEquality:
		if s.Equality == nil {
			return fmt.Errorf("equality task without equality request")
		}
	default:
		return fmt.Errorf("unknown proof kind %d", s.Kind)
	}
	return nil
}

// Task is a queued proof-generation job. It is owned exclusively by the
// manager's queue until it reaches a terminal state.
type Task struct {
	ID         string
	Kind       ProofKind
	Priority   int
	RetryCount int
	Status     TaskStatus
	LastErr    error

	spec TaskSpec
	seq  uint64 // insertion order, the priority tiebreak
}

// TaskFailure reports one failed generation attempt.
type TaskFailure struct {
	TaskID string
	Kind   ProofKind
	Err    error
}

// TaskTimeoutError reports a task exceeding the per-task generation budget.
// The in-flight computation is not preemptible and runs to completion; only
// its result is discarded.
type TaskTimeoutError struct {
	TaskID  string
	Timeout time.Duration
}

func (e *TaskTimeoutError) Error() string {
	return fmt.Sprintf("batch: task %s exceeded proof timeout %s", e.TaskID, e.Timeout)
}
