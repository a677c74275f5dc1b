/*
Package process is the scheduling and lifecycle core of the kernel: it owns
the task table and the run queue, drives preemptive priority scheduling over
a single logical CPU, and implements the process-control syscalls (fork,
execve, exit, wait4, kill) on top of them.

# Task States

Tasks move through a strict state machine:

  - Ready: runnable, queued for the CPU
  - Running: on the CPU; at most one task at any instant
  - Blocked: parked on a wait channel (the blocking branch of wait4)
  - Stopped: suspended by a stop signal until continued
  - Zombie: terminated, exit status not yet collected by the parent
  - Dead: table slot being reclaimed

The run queue only ever holds Ready tasks; any path that moves a task out of
Ready removes it from the queue in the same critical section.

# Scheduling

Scheduling is preemptive and priority-based. Each timer tick decrements the
running task's time slice; when the slice is exhausted, or a strictly
higher-priority task becomes Ready, the task is preempted and re-enqueued
behind its priority cohort. Equal priorities are served FIFO, so no
equal-priority task starves while priorities hold still. An empty queue
idles the CPU until the next interrupt.

# Usage

Booting and forking:

	k := process.New(cfg, process.NewSimCPU(), allocator, loader, policy)
	initPid, err := k.Boot()
	if err != nil {
		// Handle error
	}

	child, err := k.Fork(ctx)
	if err != nil {
		// Handle error
	}

	// Drive time from the timer collaborator
	k.Tick()

# Signals

Each task carries pending and blocked signal bitmaps and a 64-entry
disposition table (default, ignore, or handler). Delivery happens at the
safe points: when a task is about to resume Running, and when a signal
arrives whose default action cannot wait (fatal signals, stop, continue).
SIGKILL and SIGSTOP can be neither blocked, ignored, nor handled. A fatal
signal delivered to a task blocked in wait4 tears the wait down and turns
the task into a Zombie whose status encodes the signal.

# Failure semantics

Every syscall validates its preconditions before committing any mutation: a
failed fork leaves the parent untouched, and a failed execve leaves the
caller's pid, descriptors, and image exactly as they were. Syscall failures
are ordinary error returns; an internal inconsistency between the task table
and the run queue panics, since it means scheduler state is corrupt.
*/
package process
