package process

import (
	"fmt"
	"sort"
)

// table is the authoritative set of task records and the pid allocator.
// It is owned by the Kernel and guarded by the kernel lock; the lock is held
// only for individual reads and writes, never across a blocking operation.
type table struct {
	capacity int
	tasks    map[Pid]*Task
	nextPID  Pid
}

func newTable(capacity int) *table {
	return &table{
		capacity: capacity,
		tasks:    make(map[Pid]*Task),
		nextPID:  1,
	}
}

// full reports whether no slot is available for a new task.
func (tb *table) full() bool {
	return len(tb.tasks) >= tb.capacity
}

// allocPID hands out the next pid. Pids are monotone; a freed slot's pid is
// never reused within the counter's range.
func (tb *table) allocPID() Pid {
	pid := tb.nextPID
	tb.nextPID++
	return pid
}

// insert adds a task record. A duplicate pid means the allocator was
// bypassed, which is kernel-fatal.
func (tb *table) insert(t *Task) {
	if _, exists := tb.tasks[t.PID]; exists {
		panic(fmt.Sprintf("process: duplicate pid %d in task table", t.PID))
	}
	tb.tasks[t.PID] = t
}

// lookup returns the task for pid. Absent and Dead slots both report
// ErrNoSuchProcess.
func (tb *table) lookup(pid Pid) (*Task, error) {
	t, ok := tb.tasks[pid]
	if !ok || t.State == StateDead {
		return nil, fmt.Errorf("%w: pid %d", ErrNoSuchProcess, pid)
	}
	return t, nil
}

// get returns the task for pid and panics when it is missing. It is used on
// paths where absence indicates corrupted scheduler state, such as a queued
// pid with no table entry.
func (tb *table) get(pid Pid) *Task {
	t, ok := tb.tasks[pid]
	if !ok {
		panic(fmt.Sprintf("process: pid %d not in task table", pid))
	}
	return t
}

// free removes a slot. Only Dead tasks may be freed.
func (tb *table) free(pid Pid) {
	t, ok := tb.tasks[pid]
	if !ok {
		panic(fmt.Sprintf("process: freeing unknown pid %d", pid))
	}
	if t.State != StateDead {
		panic(fmt.Sprintf("process: freeing pid %d in state %s", pid, t.State))
	}
	delete(tb.tasks, pid)
}

// len returns the number of live slots.
func (tb *table) len() int {
	return len(tb.tasks)
}

// snapshot returns all tasks ordered by pid.
func (tb *table) snapshot() []*Task {
	out := make([]*Task, 0, len(tb.tasks))
	for _, t := range tb.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}
