// queue.go - Priority queue over pending proof tasks.
//
// Strictly higher priority dequeues first; ties break by insertion order so
// batch composition is deterministic.

package batch

import "container/heap"

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].Priority != q[j].Priority {
		return q[i].Priority > q[j].Priority
	}
	return q[i].seq < q[j].seq
}

func (q taskQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *taskQueue) Push(x any) { *q = append(*q, x.(*Task)) }

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

func (q *taskQueue) push(t *Task) { heap.Push(q, t) }

func (q *taskQueue) pop() *Task {
	if q.Len() == 0 {
		return nil
	}
	return heap.Pop(q).(*Task)
}

func (q *taskQueue) peek() *Task {
	if q.Len() == 0 {
		return nil
	}
	return (*q)[0]
}
