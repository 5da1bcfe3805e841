// split.go - Packing generated proofs into size-bounded groups.

package batch

import "fmt"

// instructionOverhead is the fixed per-proof verification-instruction
// overhead counted against the transaction size: a one-byte opcode plus the
// instruction framing the downstream transaction layer adds around every
// payload.
const instructionOverhead = 36

// SplitProofBatches packs proofs, in order, into the fewest groups whose
// serialized size (proof bytes plus fixed per-proof instruction overhead)
// stays within maxTransactionSize.
func SplitProofBatches(proofs []GeneratedProof, maxTransactionSize int) ([][]GeneratedProof, error) {
	if maxTransactionSize <= 0 {
		return nil, fmt.Errorf("batch: max transaction size must be positive, got %d", maxTransactionSize)
	}
	var groups [][]GeneratedProof
	var current []GeneratedProof
	used := 0
	for _, p := range proofs {
		size := len(p.Proof) + instructionOverhead
		if size > maxTransactionSize {
			return nil, fmt.Errorf("batch: proof %s (%d bytes with overhead) exceeds max transaction size %d", p.TaskID, size, maxTransactionSize)
		}
		if used+size > maxTransactionSize && len(current) > 0 {
			groups = append(groups, current)
			current = nil
			used = 0
		}
		current = append(current, p)
		used += size
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups, nil
}
