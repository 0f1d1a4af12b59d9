package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weatheragent/core/internal/domain"
)

func sig(conditionID, tokenID string) domain.TradeSignal {
	return domain.TradeSignal{
		Market: domain.Market{ConditionID: conditionID},
		Bin:    domain.Bin{TokenID: tokenID},
	}
}

func TestSignalQueueEnqueueDedups(t *testing.T) {
	q := NewSignalQueue()

	assert.True(t, q.Enqueue(sig("c1", "t1")))
	assert.False(t, q.Enqueue(sig("c1", "t1")))
	assert.Equal(t, 1, q.Len())
}

func TestSignalQueueSnapshotPreservesFIFOOrder(t *testing.T) {
	q := NewSignalQueue()
	q.Enqueue(sig("c1", "t1"))
	q.Enqueue(sig("c2", "t2"))
	q.Enqueue(sig("c3", "t3"))

	snapshot := q.Snapshot()
	assert.Equal(t, []string{"c1|t1", "c2|t2", "c3|t3"}, []string{
		snapshot[0].Key(), snapshot[1].Key(), snapshot[2].Key(),
	})
}

func TestSignalQueueRemoveIsIdempotent(t *testing.T) {
	q := NewSignalQueue()
	q.Enqueue(sig("c1", "t1"))
	q.Enqueue(sig("c2", "t2"))

	q.Remove(sig("c1", "t1"))
	q.Remove(sig("c1", "t1")) // second removal is a no-op

	snapshot := q.Snapshot()
	assert.Len(t, snapshot, 1)
	assert.Equal(t, "c2|t2", snapshot[0].Key())
}

func TestSignalQueueAllowsReenqueueAfterRemoval(t *testing.T) {
	q := NewSignalQueue()
	q.Enqueue(sig("c1", "t1"))
	q.Remove(sig("c1", "t1"))

	assert.True(t, q.Enqueue(sig("c1", "t1")))
	assert.Equal(t, 1, q.Len())
}
