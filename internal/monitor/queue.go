package monitor

import (
	"sync"

	"github.com/weatheragent/core/internal/domain"
)

// SignalQueue is the Monitor's single-producer, single-consumer FIFO of
// pending trade signals, deduplicated by (conditionId, tokenId). The
// Monitor enqueues; the Executor drains via Snapshot/Remove.
type SignalQueue struct {
	mu      sync.Mutex
	order   []string
	pending map[string]domain.TradeSignal
}

// NewSignalQueue builds an empty queue.
func NewSignalQueue() *SignalQueue {
	return &SignalQueue{pending: make(map[string]domain.TradeSignal)}
}

// Enqueue adds sig unless an equivalent signal is already pending for the
// same key. Reports whether it was added.
func (q *SignalQueue) Enqueue(sig domain.TradeSignal) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := sig.Key()
	if _, exists := q.pending[key]; exists {
		return false
	}
	q.pending[key] = sig
	q.order = append(q.order, key)
	return true
}

// Snapshot returns the pending signals in FIFO (enqueue) order.
func (q *SignalQueue) Snapshot() []domain.TradeSignal {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.TradeSignal, 0, len(q.order))
	for _, key := range q.order {
		if sig, ok := q.pending[key]; ok {
			out = append(out, sig)
		}
	}
	return out
}

// Remove drops the pending signal matching sig's key, if present. Removing
// an already-absent key is a no-op.
func (q *SignalQueue) Remove(sig domain.TradeSignal) {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := sig.Key()
	if _, ok := q.pending[key]; !ok {
		return
	}
	delete(q.pending, key)
	for i, k := range q.order {
		if k == key {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// Len reports the number of pending signals.
func (q *SignalQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}
