package process

// runQueue is the ready set: one FIFO deque per priority level. Among Ready
// tasks the highest priority wins, ties broken by enqueue order, which keeps
// equal-priority cohorts starvation-free as long as priorities hold still.
//
// The queue never holds a pid whose table state is not Ready; every path
// that moves a task out of Ready removes it here in the same critical
// section.
type runQueue struct {
	levels [numPriorities][]Pid
	member map[Pid]Priority
}

func newRunQueue() *runQueue {
	return &runQueue{member: make(map[Pid]Priority)}
}

// enqueue appends pid to the tail of its priority level.
func (q *runQueue) enqueue(pid Pid, prio Priority) {
	if _, queued := q.member[pid]; queued {
		panic("process: pid enqueued twice")
	}
	q.levels[prio] = append(q.levels[prio], pid)
	q.member[pid] = prio
}

// dequeueHighest pops the head of the highest non-empty level.
func (q *runQueue) dequeueHighest() (Pid, bool) {
	for prio := numPriorities - 1; prio >= PriorityIdle; prio-- {
		level := q.levels[prio]
		if len(level) == 0 {
			continue
		}
		pid := level[0]
		q.levels[prio] = level[1:]
		delete(q.member, pid)
		return pid, true
	}
	return 0, false
}

// highest reports the priority of the best queued task without removing it.
func (q *runQueue) highest() (Priority, bool) {
	for prio := numPriorities - 1; prio >= PriorityIdle; prio-- {
		if len(q.levels[prio]) > 0 {
			return prio, true
		}
	}
	return 0, false
}

// remove takes pid out of the queue, wherever it sits. Used when a task
// blocks, stops, or exits.
func (q *runQueue) remove(pid Pid) bool {
	prio, queued := q.member[pid]
	if !queued {
		return false
	}
	level := q.levels[prio]
	for i, p := range level {
		if p == pid {
			q.levels[prio] = append(level[:i], level[i+1:]...)
			break
		}
	}
	delete(q.member, pid)
	return true
}

// requeue moves pid to the tail of a new priority level, for policy-driven
// priority changes.
func (q *runQueue) requeue(pid Pid, prio Priority) {
	if q.remove(pid) {
		q.enqueue(pid, prio)
	}
}

// contains reports whether pid is queued.
func (q *runQueue) contains(pid Pid) bool {
	_, queued := q.member[pid]
	return queued
}

// len returns the number of queued tasks.
func (q *runQueue) len() int {
	return len(q.member)
}
