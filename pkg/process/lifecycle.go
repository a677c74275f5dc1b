package process

import (
	"context"
	"errors"
	"fmt"

	"kernos/pkg/image"
	"kernos/pkg/mem"
	"kernos/pkg/security"
	"kernos/pkg/tracing"
)

// Wait options.
const (
	// WNOHANG makes wait return immediately instead of blocking.
	WNOHANG = 1
)

// Fork creates a child task as a near-copy of the caller: duplicated address
// space (full page copy), duplicated descriptor table sharing the open-file
// objects, copied credentials, inherited priority and dispositions. The
// child is enqueued Ready with 0 planted as its fork return value; the
// parent receives the child's pid. On any failure no child is created and
// the parent is unaffected.
func (k *Kernel) Fork(ctx context.Context) (pid Pid, err error) {
	ctx, span := tracing.StartSpan(ctx, "fork")
	defer func() { span.End(err) }()

	k.mu.Lock()
	caller := k.mustCurrent()
	callerPID := caller.PID
	req := &security.Request{PID: int(callerPID), UID: caller.Creds.EUID, Action: security.ActionFork}
	k.mu.Unlock()

	// The policy gate runs without the kernel lock; the collaborator may
	// block.
	if k.policy != nil {
		if err := k.policy.Authorize(ctx, req); err != nil {
			return 0, fmt.Errorf("%w: fork by pid %d", ErrPermissionDenied, callerPID)
		}
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	// The caller may have been killed while the policy deliberated.
	parent, lerr := k.table.lookup(callerPID)
	if lerr != nil || parent.State == StateZombie {
		return 0, fmt.Errorf("%w: fork by pid %d", ErrInterrupted, callerPID)
	}

	// Validate every precondition before committing any mutation.
	if k.table.full() {
		return 0, fmt.Errorf("%w: task table full", ErrResourceExhausted)
	}
	space, err := parent.Space.Duplicate()
	if err != nil {
		return 0, fmt.Errorf("%w: address space: %v", ErrResourceExhausted, err)
	}

	child := parent.forkChild(k.table.allocPID(), space, k.ticks)

	// The child resumes from the parent's register state with the syscall
	// return value replaced by the success-in-child sentinel.
	if k.current == parent.PID {
		k.cpu.Save(&child.Context)
	} else {
		child.Context = parent.Context
	}
	child.Context.SetReturn(0)

	k.table.insert(child)
	parent.AddChild(child.PID)
	k.queue.enqueue(child.PID, child.Priority)

	span.WithAttributes(map[string]string{"child": fmt.Sprint(child.PID)})
	log.Debugf("fork: parent=%d child=%d", parent.PID, child.PID)
	return child.PID, nil
}

// forkChild builds the child PCB. Pending signals are not inherited; the
// blocked mask and handler table are.
func (t *Task) forkChild(pid Pid, space *mem.AddressSpace, tick uint64) *Task {
	return &Task{
		PID:       pid,
		PPID:      t.PID,
		PGID:      pid,
		SID:       t.SID,
		Name:      t.Name,
		Args:      append([]string(nil), t.Args...),
		Env:       append([]string(nil), t.Env...),
		Cwd:       t.Cwd,
		State:     StateReady,
		Priority:  t.Priority,
		Space:     space,
		Creds:     t.Creds,
		Limits:    t.Limits,
		Files:     t.dupFiles(),
		nextFD:    t.nextFD,
		Blocked:   t.Blocked,
		Handlers:  t.Handlers,
		StartTick: tick,
	}
}

// Execve replaces the calling task's image under the same pid. The policy
// gate and the image load both run before anything is mutated, so a failed
// exec leaves the task exactly as it was. On success the address space is
// swapped, close-on-exec descriptors are closed, caught signals revert to
// their defaults, and the task continues from the new entry point.
func (k *Kernel) Execve(ctx context.Context, path string, argv, envp []string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "execve")
	span.WithAttributes(map[string]string{"path": path})
	defer func() { span.End(err) }()

	k.mu.Lock()
	caller := k.mustCurrent()
	pid := caller.PID
	req := &security.Request{PID: int(pid), UID: caller.Creds.EUID, Action: security.ActionExec, Target: path}
	k.mu.Unlock()

	// Policy and image load happen without the kernel lock: both may block
	// on their collaborators.
	if k.policy != nil {
		if err := k.policy.Authorize(ctx, req); err != nil {
			return fmt.Errorf("%w: exec %s", ErrPermissionDenied, path)
		}
	}
	img, err := k.loader.Load(ctx, path)
	if err != nil {
		switch {
		case errors.Is(err, image.ErrBadFormat):
			return fmt.Errorf("%w: %s", ErrExecFormat, path)
		default:
			return fmt.Errorf("%w: %s", ErrNoSuchFile, path)
		}
	}
	space, err := k.memory.NewSpaceFromPages(img.Entry, img.Pages)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResourceExhausted, err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	// The caller may have been killed while the image loaded.
	t, lerr := k.table.lookup(pid)
	if lerr != nil || t.State == StateZombie {
		space.Release()
		return fmt.Errorf("%w: exec %s", ErrInterrupted, path)
	}

	old := t.Space
	t.Space = space
	old.Release()

	for fd, desc := range t.Files {
		if desc.CloseOnExec {
			desc.File.refs--
			delete(t.Files, fd)
		}
	}
	for sig := range t.Handlers {
		if t.Handlers[sig].Kind == DispositionHandler {
			t.Handlers[sig] = Disposition{}
		}
	}
	t.HandlerQueue = nil

	t.Name = path
	t.Args = append([]string(nil), argv...)
	t.Env = append([]string(nil), envp...)
	t.Context = NewUserContext(img.Entry, userStackTop)
	if t.PID == k.current {
		// Execution continues immediately in the new image.
		k.cpu.Restore(&t.Context)
	}

	log.Debugf("execve: pid=%d image=%s entry=%#x", pid, path, img.Entry)
	return nil
}

// Exit terminates the calling task: it becomes a Zombie holding the exit
// code, its resources are released, its children are reparented to the
// reaper, and its parent is signalled and woken if it was blocked in a
// matching wait. The init task may not exit.
func (k *Kernel) Exit(code int) {
	k.mu.Lock()
	defer k.mu.Unlock()

	t := k.mustCurrent()
	if t.PID == k.reaper {
		panic("process: init exited")
	}
	log.Debugf("exit: pid=%d code=%d", t.PID, code)
	k.terminate(t, exitStatus(code))
	k.reschedule()
}

// Wait4 collects a terminated child. A matching Zombie is reaped
// synchronously; otherwise the caller blocks until one appears, unless
// WNOHANG is set, in which case it returns pid 0. A caller with no children
// fails with ErrNoChildren; naming a pid that is not a live child fails
// with ErrNoSuchProcess. target WaitAny (or any non-positive pid) matches
// any child.
func (k *Kernel) Wait4(ctx context.Context, target Pid, options int) (pid Pid, status WaitStatus, err error) {
	ctx, span := tracing.StartSpan(ctx, "wait4")
	span.WithAttributes(map[string]string{"target": fmt.Sprint(target)})
	defer func() { span.End(err) }()

	k.mu.Lock()

	t := k.mustCurrent()
	if !t.HasChildren() {
		k.mu.Unlock()
		return 0, 0, fmt.Errorf("%w: pid %d", ErrNoChildren, t.PID)
	}
	if target > 0 {
		found := false
		for _, cpid := range t.Children {
			if cpid == target {
				found = true
				break
			}
		}
		if !found {
			k.mu.Unlock()
			return 0, 0, fmt.Errorf("%w: pid %d is not a child of %d", ErrNoSuchProcess, target, t.PID)
		}
	}

	if c := k.findZombieChild(t, target); c != nil {
		pid, status := c.PID, c.ExitStatus
		k.reap(c)
		k.mu.Unlock()
		return pid, status, nil
	}

	if options&WNOHANG != 0 {
		k.mu.Unlock()
		return 0, 0, nil
	}

	// Block until a matching child changes state. The kernel lock is not
	// held across the wait.
	ch := make(chan waitResult, 1)
	k.waiters[t.PID] = &waiter{target: target, ch: ch}
	k.blockCurrent(t)
	k.mu.Unlock()

	select {
	case r := <-ch:
		return r.pid, r.status, r.err
	case <-ctx.Done():
		// Shutdown path only: a blocked wait has no task-visible
		// cancellation. Re-check the channel after deregistering, since a
		// result may have raced with the cancellation.
		k.mu.Lock()
		if _, registered := k.waiters[t.PID]; registered {
			delete(k.waiters, t.PID)
			if t.State == StateBlocked {
				k.wake(t)
			}
		}
		k.mu.Unlock()
		select {
		case r := <-ch:
			return r.pid, r.status, r.err
		default:
		}
		return 0, 0, ctx.Err()
	}
}

// terminate is the shared teardown for exit and fatal signals. It moves the
// task to Zombie, releases its address space and descriptors, reparents its
// children to the reaper, and notifies the parent. A task whose parent is
// already gone, or that was previously adopted by the reaper, is reaped on
// the spot. Caller holds the lock; if the task was Running the caller must
// reschedule afterwards.
func (k *Kernel) terminate(t *Task, status WaitStatus) {
	switch t.State {
	case StateRunning:
		k.current = 0
	case StateReady:
		k.queue.remove(t.PID)
	}
	// A task dying while blocked (or stopped mid-wait) has its wait torn
	// down with it.
	if w, ok := k.waiters[t.PID]; ok {
		delete(k.waiters, t.PID)
		w.ch <- waitResult{err: fmt.Errorf("%w: task terminated", ErrInterrupted)}
	}
	t.transition(StateZombie)
	t.ExitStatus = status

	if t.Space != nil {
		t.Space.Release()
		t.Space = nil
	}
	t.closeAllFiles()
	t.HandlerQueue = nil

	// Orphan reparenting: the reaper adopts all children, reaping any that
	// are already zombies.
	if len(t.Children) > 0 {
		reaper := k.table.get(k.reaper)
		for _, cpid := range t.Children {
			c := k.table.get(cpid)
			c.PPID = k.reaper
			c.adopted = true
			reaper.AddChild(cpid)
			if c.State == StateZombie && !k.deliverToWaiter(reaper, c) {
				k.reap(c)
			}
		}
		t.Children = nil
	}

	parent, err := k.table.lookup(t.PPID)
	if err != nil {
		// Parent already dead: no one will ever wait for this task.
		k.reap(t)
		return
	}
	parent.SendSignal(SIGCHLD)
	if k.deliverToWaiter(parent, t) {
		return
	}
	if t.adopted {
		// Adopted orphans are reaped automatically by the reaper.
		k.reap(t)
	}
}

// deliverToWaiter completes a parent's blocked wait with the zombie child,
// reaping it and waking the parent. Returns false when the parent is not
// blocked in a matching wait; a parent stopped mid-wait keeps the child as a
// zombie until it is continued. Caller holds the lock.
func (k *Kernel) deliverToWaiter(parent *Task, child *Task) bool {
	w, ok := k.waiters[parent.PID]
	if !ok || parent.State != StateBlocked || (w.target > 0 && w.target != child.PID) {
		return false
	}
	delete(k.waiters, parent.PID)
	result := waitResult{pid: child.PID, status: child.ExitStatus}
	k.reap(child)
	k.wake(parent)
	w.ch <- result
	return true
}

// findZombieChild returns the first zombie child of t matching the wait
// target, nil when none has terminated yet. Caller holds the lock.
func (k *Kernel) findZombieChild(t *Task, target Pid) *Task {
	for _, cpid := range t.Children {
		if target > 0 && cpid != target {
			continue
		}
		c := k.table.get(cpid)
		if c.State == StateZombie {
			return c
		}
	}
	return nil
}

// reap frees a zombie's table slot and detaches it from its parent. Caller
// holds the lock.
func (k *Kernel) reap(t *Task) {
	t.transition(StateDead)
	if parent, err := k.table.lookup(t.PPID); err == nil {
		parent.RemoveChild(t.PID)
	}
	k.table.free(t.PID)
	log.Debugf("reap: pid=%d status=%#x", t.PID, int(t.ExitStatus))
}
