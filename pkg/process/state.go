package process

import "fmt"

// TaskState is the lifecycle state of a task.
type TaskState string

const (
	// StateReady indicates the task is runnable and waiting for the CPU.
	StateReady TaskState = "ready"
	// StateRunning indicates the task is on the CPU. At most one task is
	// Running at any instant.
	StateRunning TaskState = "running"
	// StateBlocked indicates the task is parked on a wait channel.
	StateBlocked TaskState = "blocked"
	// StateStopped indicates the task was suspended by a stop signal.
	StateStopped TaskState = "stopped"
	// StateZombie indicates the task has terminated but its status has not
	// been collected by its parent.
	StateZombie TaskState = "zombie"
	// StateDead indicates the table slot is being reclaimed. A Dead task
	// never appears in the run queue.
	StateDead TaskState = "dead"
)

// StateTransition is one edge of the lifecycle state machine.
type StateTransition struct {
	From TaskState
	To   TaskState
}

// ValidTransitions defines all legal state changes.
var ValidTransitions = []StateTransition{
	// Selected by the scheduler.
	{From: StateReady, To: StateRunning},
	// Preempted or yielded.
	{From: StateRunning, To: StateReady},
	// Blocking branch of wait.
	{From: StateRunning, To: StateBlocked},
	// Awaited event occurred.
	{From: StateBlocked, To: StateReady},
	// Exit or fatal signal.
	{From: StateRunning, To: StateZombie},
	// Fatal signal while parked, queued, or stopped.
	{From: StateBlocked, To: StateZombie},
	{From: StateReady, To: StateZombie},
	{From: StateStopped, To: StateZombie},
	// Stop signal.
	{From: StateRunning, To: StateStopped},
	{From: StateReady, To: StateStopped},
	{From: StateBlocked, To: StateStopped},
	// Continue signal.
	{From: StateStopped, To: StateReady},
	// Continue signal while the task's wait is still outstanding.
	{From: StateStopped, To: StateBlocked},
	// Reaped by the parent or the reaper.
	{From: StateZombie, To: StateDead},
}

// IsValidTransition checks whether from→to is a legal state change.
func IsValidTransition(from, to TaskState) bool {
	for _, t := range ValidTransitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}

// transition moves the task to a new state. An illegal transition panics:
// every caller is a kernel path that must already hold the state invariants,
// so a violation means the scheduler state is corrupt.
func (t *Task) transition(to TaskState) {
	if !IsValidTransition(t.State, to) {
		panic(fmt.Sprintf("process: %v: %s -> %s for pid %d", ErrInvalidTransition, t.State, to, t.PID))
	}
	t.State = to
}
