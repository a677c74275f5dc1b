package process

import "errors"

// Syscall errors. Every failure in this package is returned to the calling
// task as one of these sentinels (possibly wrapped); none are kernel-fatal.
// Internal invariant violations (a queued pid that is not Ready, freeing a
// non-Dead slot) panic instead, since they indicate corrupted scheduler state.
var (
	// ErrResourceExhausted indicates the task table or memory allocator is full.
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrNoSuchProcess indicates the target pid does not name a live task.
	ErrNoSuchProcess = errors.New("no such process")
	// ErrNoChildren indicates a wait was issued by a task with no children.
	ErrNoChildren = errors.New("no child processes")
	// ErrPermissionDenied indicates the security policy vetoed the call.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNoSuchFile indicates the exec target could not be found.
	ErrNoSuchFile = errors.New("no such file")
	// ErrExecFormat indicates the exec target is not a valid executable.
	ErrExecFormat = errors.New("exec format error")
	// ErrInvalidSignal indicates a signal number outside 1..NSIG.
	ErrInvalidSignal = errors.New("invalid signal")
	// ErrInvalidTransition indicates a disallowed task state change.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrInvalidPriority indicates a priority outside the defined levels.
	ErrInvalidPriority = errors.New("invalid priority")
	// ErrInterrupted indicates a blocking call was torn down because the
	// calling task was terminated by a signal.
	ErrInterrupted = errors.New("interrupted")
	// ErrLimitExceeded indicates a per-task resource limit was hit.
	ErrLimitExceeded = errors.New("resource limit exceeded")
)
