package process

import (
	"github.com/google/uuid"

	"kernos/pkg/mem"
)

// Pid is a process identifier. Pids are positive; 0 is the "no process"
// sentinel used for the root task's parent and for the idle CPU.
type Pid int

// WaitAny is the wait target that matches any child.
const WaitAny Pid = -1

// Priority is the run-queue ordering key. Higher values are scheduled first;
// priorities are set by policy, never by the task itself.
type Priority int

const (
	// PriorityIdle runs only when nothing else is ready.
	PriorityIdle Priority = iota
	// PriorityLow is for background work.
	PriorityLow
	// PriorityNormal is the default.
	PriorityNormal
	// PriorityHigh is for interactive work.
	PriorityHigh
	// PriorityRealtime preempts everything else.
	PriorityRealtime

	numPriorities
)

// Credentials are a task's user and group identity. They are copied from the
// parent at fork and mutated only by the explicit privilege syscalls.
type Credentials struct {
	UID, GID   uint32
	EUID, EGID uint32
	Umask      uint32
}

// OpenFile is an open-file object. Several descriptors (across tasks, after
// fork) may reference the same OpenFile and therefore share its offset.
type OpenFile struct {
	// ID uniquely identifies the object for the lifetime of the kernel.
	ID string
	// Path is the file the object was opened on.
	Path string
	// Offset is the shared read/write position.
	Offset int64
	// refs counts descriptors referencing the object; guarded by the kernel lock.
	refs int
}

// NewOpenFile creates an open-file object with a single reference.
func NewOpenFile(path string) *OpenFile {
	return &OpenFile{ID: uuid.New().String(), Path: path, refs: 1}
}

// Refs returns the current descriptor reference count.
func (f *OpenFile) Refs() int {
	return f.refs
}

// FileDesc is one slot of a task's descriptor table. Fork duplicates the
// slot but shares the underlying OpenFile.
type FileDesc struct {
	FD   int
	File *OpenFile
	// CloseOnExec marks the descriptor to be closed by a successful exec.
	CloseOnExec bool
}

// Limits are the per-task resource limits enforced by this core.
type Limits struct {
	// MaxFiles caps the descriptor table.
	MaxFiles int
}

// DefaultLimits returns the limits applied to tasks that inherit nothing.
func DefaultLimits() Limits {
	return Limits{MaxFiles: 256}
}

// Task is the process control block: one record per schedulable unit. All
// fields are guarded by the kernel lock; tasks are never touched outside it.
type Task struct {
	// PID is unique among all non-freed tasks.
	PID Pid
	// PPID is the parent's pid, 0 for the root task. It is fixed at creation
	// and changes only when orphan reparenting redirects it to the reaper.
	PPID Pid
	// PGID and SID are the process group and session, own group at creation.
	PGID Pid
	SID  Pid

	Name string
	Args []string
	Env  []string
	Cwd  string

	State    TaskState
	Priority Priority

	// Context is valid only while the task is off the CPU.
	Context Context
	// Space is the task's memory context, exclusively owned outside fork.
	Space *mem.AddressSpace

	Creds  Credentials
	Limits Limits

	// Files maps descriptor numbers to open files.
	Files  map[int]*FileDesc
	nextFD int

	// ExitStatus is valid only once State is Zombie.
	ExitStatus WaitStatus
	// Children lists pids whose PPID is this task's pid, kept in sync on
	// fork, exit, and reparenting.
	Children []Pid
	// adopted marks a task reparented to the reaper; such tasks are reaped
	// automatically when they exit.
	adopted bool

	// Pending and Blocked are the signal bitmaps; Handlers the disposition
	// table indexed by signal number.
	Pending  SigSet
	Blocked  SigSet
	Handlers [NSIG + 1]Disposition
	// HandlerQueue lists caught signals awaiting handler invocation at the
	// next resume point; drained by the userland dispatch collaborator.
	HandlerQueue []Signal

	// CPUTime counts timer ticks spent Running.
	CPUTime uint64
	// StartTick is the kernel tick at creation.
	StartTick uint64
	// SliceLeft is the remaining time slice in ticks.
	SliceLeft int
}

// newTask builds a Ready task with default credentials, empty signal state,
// and the standard descriptors installed.
func newTask(pid Pid, name string, creds Credentials, startTick uint64) *Task {
	t := &Task{
		PID:      pid,
		PGID:     pid,
		SID:      pid,
		Name:     name,
		Cwd:      "/",
		State:    StateReady,
		Priority: PriorityNormal,
		Creds:    creds,
		Limits:   DefaultLimits(),
		Files:    make(map[int]*FileDesc),
		nextFD:   3,

		StartTick: startTick,
	}
	t.initStdFiles()
	return t
}

// initStdFiles installs stdin, stdout, and stderr.
func (t *Task) initStdFiles() {
	for fd, path := range map[int]string{0: "/dev/stdin", 1: "/dev/stdout", 2: "/dev/stderr"} {
		t.Files[fd] = &FileDesc{FD: fd, File: NewOpenFile(path)}
	}
}

// AllocFD returns the next free descriptor number, honoring MaxFiles.
func (t *Task) AllocFD() (int, error) {
	if t.Limits.MaxFiles > 0 && len(t.Files) >= t.Limits.MaxFiles {
		return 0, ErrLimitExceeded
	}
	fd := t.nextFD
	t.nextFD++
	return fd, nil
}

// OpenPath installs a descriptor on a fresh open-file object for path.
func (t *Task) OpenPath(path string, closeOnExec bool) (int, error) {
	fd, err := t.AllocFD()
	if err != nil {
		return 0, err
	}
	t.Files[fd] = &FileDesc{FD: fd, File: NewOpenFile(path), CloseOnExec: closeOnExec}
	return fd, nil
}

// CloseFD drops a descriptor, releasing the open-file reference.
func (t *Task) CloseFD(fd int) bool {
	desc, ok := t.Files[fd]
	if !ok {
		return false
	}
	desc.File.refs--
	delete(t.Files, fd)
	return true
}

// dupFiles duplicates the descriptor table for a forked child: new slots,
// shared open-file objects.
func (t *Task) dupFiles() map[int]*FileDesc {
	files := make(map[int]*FileDesc, len(t.Files))
	for fd, desc := range t.Files {
		desc.File.refs++
		files[fd] = &FileDesc{FD: fd, File: desc.File, CloseOnExec: desc.CloseOnExec}
	}
	return files
}

// closeAllFiles drops the whole descriptor table on exit.
func (t *Task) closeAllFiles() {
	for fd, desc := range t.Files {
		desc.File.refs--
		delete(t.Files, fd)
	}
}

// IsRoot reports whether the task runs with effective uid 0.
func (t *Task) IsRoot() bool {
	return t.Creds.EUID == 0
}

// SendSignal marks sig pending. Masked signals stay pending until unblocked;
// only delivery honors the mask.
func (t *Task) SendSignal(sig Signal) {
	t.Pending = t.Pending.Add(sig)
}

// AddChild records a child pid.
func (t *Task) AddChild(pid Pid) {
	for _, c := range t.Children {
		if c == pid {
			return
		}
	}
	t.Children = append(t.Children, pid)
}

// RemoveChild forgets a child pid.
func (t *Task) RemoveChild(pid Pid) {
	for i, c := range t.Children {
		if c == pid {
			t.Children = append(t.Children[:i], t.Children[i+1:]...)
			return
		}
	}
}

// HasChildren reports whether any child is still attached.
func (t *Task) HasChildren() bool {
	return len(t.Children) > 0
}

// WaitStatus encodes how a task terminated, in the traditional layout:
// normal exit carries the code in the high byte, signal termination carries
// the signal number in the low byte.
type WaitStatus int

// Exited reports a normal exit.
func (s WaitStatus) Exited() bool {
	return s&0xff == 0
}

// ExitStatus returns the exit code of a normal exit.
func (s WaitStatus) ExitStatus() int {
	return int(s) >> 8
}

// Signaled reports termination by signal.
func (s WaitStatus) Signaled() bool {
	return s&0xff != 0
}

// TermSignal returns the terminating signal.
func (s WaitStatus) TermSignal() Signal {
	return Signal(s & 0xff)
}

// exitStatus builds the WaitStatus for a normal exit with the given code.
func exitStatus(code int) WaitStatus {
	return WaitStatus(code << 8)
}

// signalStatus builds the WaitStatus for termination by sig.
func signalStatus(sig Signal) WaitStatus {
	return WaitStatus(sig & 0xff)
}
