package process

import (
	"context"
	"fmt"
	"sync"

	"github.com/op/go-logging"

	"kernos/pkg/config"
	"kernos/pkg/image"
	"kernos/pkg/mem"
	"kernos/pkg/security"
)

var log = logging.MustGetLogger("process")

// ImageLoader is the filesystem collaborator consulted during exec.
type ImageLoader interface {
	Load(ctx context.Context, path string) (*image.Image, error)
}

// Authorizer is the security-policy collaborator consulted before fork and
// exec complete.
type Authorizer interface {
	Authorize(ctx context.Context, req *security.Request) error
}

// waiter parks a task blocked in wait until a matching child changes state.
type waiter struct {
	target Pid
	ch     chan waitResult
}

type waitResult struct {
	pid    Pid
	status WaitStatus
	err    error
}

// Kernel owns the task table, the run queue, and the CPU context, and
// implements the process-control syscalls on top of them. All mutable state
// sits behind a single lock held for short critical sections and never
// across a context switch or a blocking wait.
//
// Lock order is table before queue, which the single lock makes trivial; the
// rule matters only if the structures are ever split.
type Kernel struct {
	mu sync.Mutex

	table *table
	queue *runQueue

	cpu    CPU
	memory *mem.Allocator
	loader ImageLoader
	policy Authorizer

	// current is the Running task's pid, 0 while the CPU idles.
	current Pid
	// reaper adopts and reaps orphans; conventionally the init task.
	reaper Pid

	ticks     uint64
	timeSlice int

	// waiters is keyed by the blocked task's own pid.
	waiters map[Pid]*waiter
}

// New assembles a kernel from its collaborators. Call Boot exactly once
// afterwards to create the init task and start scheduling.
func New(cfg *config.Config, cpu CPU, memory *mem.Allocator, loader ImageLoader, policy Authorizer) *Kernel {
	return &Kernel{
		table:     newTable(cfg.MaxTasks),
		queue:     newRunQueue(),
		cpu:       cpu,
		memory:    memory,
		loader:    loader,
		policy:    policy,
		timeSlice: cfg.TimeSlice,
		waiters:   make(map[Pid]*waiter),
	}
}

// Boot creates the init task with root credentials, makes it the designated
// reaper, and puts it on the CPU.
func (k *Kernel) Boot() (Pid, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.reaper != 0 {
		return 0, fmt.Errorf("process: kernel already booted")
	}
	space, err := k.memory.NewSpace(0)
	if err != nil {
		return 0, fmt.Errorf("%w: init address space: %v", ErrResourceExhausted, err)
	}

	pid := k.table.allocPID()
	t := newTask(pid, "init", Credentials{Umask: 0o022}, k.ticks)
	t.Context = NewKernelContext(0, 0)
	t.Space = space
	k.table.insert(t)
	k.reaper = pid

	t.transition(StateRunning)
	t.SliceLeft = k.timeSlice
	k.current = pid
	k.cpu.Restore(&t.Context)

	log.Infof("boot: init task pid=%d", pid)
	return pid, nil
}

// Spawn creates a kernel-owned task parented to init, used at boot to start
// system services without going through fork.
func (k *Kernel) Spawn(name string, prio Priority, entry uint64) (Pid, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.table.full() {
		return 0, fmt.Errorf("%w: task table full", ErrResourceExhausted)
	}
	space, err := k.memory.NewSpace(entry)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrResourceExhausted, err)
	}

	pid := k.table.allocPID()
	t := newTask(pid, name, Credentials{Umask: 0o022}, k.ticks)
	t.PPID = k.reaper
	t.Priority = prio
	t.Context = NewKernelContext(entry, 0)
	t.Space = space
	k.table.insert(t)
	if k.reaper != 0 {
		k.table.get(k.reaper).AddChild(pid)
	}
	k.queue.enqueue(pid, prio)

	log.Debugf("spawn: %s pid=%d prio=%d", name, pid, prio)
	return pid, nil
}

// CurrentPID returns the Running task's pid, 0 while the CPU idles. Exposed
// for blocking I/O implementations elsewhere in the kernel.
func (k *Kernel) CurrentPID() Pid {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current
}

// Ticks returns the number of timer ticks observed since boot.
func (k *Kernel) Ticks() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.ticks
}

// Lookup returns the task record for pid. The returned pointer must be
// treated as read-only outside the kernel.
func (k *Kernel) Lookup(pid Pid) (*Task, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.table.lookup(pid)
}

// Tasks returns all live tasks ordered by pid.
func (k *Kernel) Tasks() []*Task {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.table.snapshot()
}

// TaskCount returns the number of occupied table slots.
func (k *Kernel) TaskCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.table.len()
}

// ReadyCount returns the number of queued Ready tasks.
func (k *Kernel) ReadyCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.queue.len()
}

// mustCurrent returns the Running task; calling a syscall with an idle CPU
// is a kernel bug.
func (k *Kernel) mustCurrent() *Task {
	if k.current == 0 {
		panic("process: syscall with no running task")
	}
	return k.table.get(k.current)
}
