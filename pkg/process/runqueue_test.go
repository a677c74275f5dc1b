package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func drainQueue(q *runQueue) []Pid {
	var out []Pid
	for {
		pid, ok := q.dequeueHighest()
		if !ok {
			return out
		}
		out = append(out, pid)
	}
}

func TestRunQueueHigherPriorityFirst(t *testing.T) {
	q := newRunQueue()
	q.enqueue(10, PriorityHigh)
	q.enqueue(11, PriorityLow)
	q.enqueue(12, PriorityNormal)
	q.enqueue(13, PriorityRealtime)
	q.enqueue(14, PriorityIdle)

	assert.Equal(t, []Pid{13, 10, 12, 11, 14}, drainQueue(q))
	assert.Equal(t, 0, q.len())
}

func TestRunQueueFIFOWithinPriority(t *testing.T) {
	q := newRunQueue()
	q.enqueue(5, PriorityNormal)
	q.enqueue(6, PriorityNormal)
	q.enqueue(7, PriorityNormal)

	assert.Equal(t, []Pid{5, 6, 7}, drainQueue(q))
}

func TestRunQueueDoubleEnqueuePanics(t *testing.T) {
	q := newRunQueue()
	q.enqueue(5, PriorityNormal)
	assert.Panics(t, func() { q.enqueue(5, PriorityHigh) })
}

func TestRunQueueRemove(t *testing.T) {
	q := newRunQueue()
	q.enqueue(5, PriorityNormal)
	q.enqueue(6, PriorityNormal)

	assert.True(t, q.remove(5))
	assert.False(t, q.remove(5), "second removal is a no-op")
	assert.False(t, q.contains(5))
	assert.Equal(t, []Pid{6}, drainQueue(q))
}

func TestRunQueueRequeueChangesLevel(t *testing.T) {
	q := newRunQueue()
	q.enqueue(5, PriorityLow)
	q.enqueue(6, PriorityNormal)

	q.requeue(5, PriorityHigh)
	assert.Equal(t, []Pid{5, 6}, drainQueue(q))
}

func TestRunQueueHighest(t *testing.T) {
	q := newRunQueue()
	_, ok := q.highest()
	assert.False(t, ok)

	q.enqueue(5, PriorityLow)
	q.enqueue(6, PriorityHigh)
	prio, ok := q.highest()
	assert.True(t, ok)
	assert.Equal(t, PriorityHigh, prio)
}
