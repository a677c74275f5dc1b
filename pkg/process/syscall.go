package process

import "fmt"

// Getpid returns the calling task's pid. Pure read, never fails.
func (k *Kernel) Getpid() Pid {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.mustCurrent().PID
}

// Getppid returns the calling task's parent pid.
func (k *Kernel) Getppid() Pid {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.mustCurrent().PPID
}

// Getuid returns the caller's real user ID.
func (k *Kernel) Getuid() uint32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.mustCurrent().Creds.UID
}

// Geteuid returns the caller's effective user ID.
func (k *Kernel) Geteuid() uint32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.mustCurrent().Creds.EUID
}

// Getgid returns the caller's real group ID.
func (k *Kernel) Getgid() uint32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.mustCurrent().Creds.GID
}

// Getegid returns the caller's effective group ID.
func (k *Kernel) Getegid() uint32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.mustCurrent().Creds.EGID
}

// Setuid changes the caller's user identity. Root may set any uid; an
// unprivileged task may only switch its effective uid between its real and
// effective ids.
func (k *Kernel) Setuid(uid uint32) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	t := k.mustCurrent()
	switch {
	case t.Creds.EUID == 0:
		t.Creds.UID = uid
		t.Creds.EUID = uid
	case uid == t.Creds.UID || uid == t.Creds.EUID:
		t.Creds.EUID = uid
	default:
		return fmt.Errorf("%w: setuid %d by pid %d", ErrPermissionDenied, uid, t.PID)
	}
	return nil
}

// Setgid changes the caller's group identity under the same rules as Setuid.
func (k *Kernel) Setgid(gid uint32) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	t := k.mustCurrent()
	switch {
	case t.Creds.EUID == 0:
		t.Creds.GID = gid
		t.Creds.EGID = gid
	case gid == t.Creds.GID || gid == t.Creds.EGID:
		t.Creds.EGID = gid
	default:
		return fmt.Errorf("%w: setgid %d by pid %d", ErrPermissionDenied, gid, t.PID)
	}
	return nil
}

// SetPriority changes a task's scheduling priority. Priorities are policy
// state: root may change anyone's, other callers only tasks with their own
// uid. A Ready task is requeued at its new level.
func (k *Kernel) SetPriority(target Pid, prio Priority) error {
	if prio < PriorityIdle || prio >= numPriorities {
		return fmt.Errorf("%w: %d out of range", ErrInvalidPriority, prio)
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	caller := k.mustCurrent()
	t, err := k.table.lookup(target)
	if err != nil {
		return err
	}
	if !caller.IsRoot() && caller.Creds.EUID != t.Creds.UID {
		return fmt.Errorf("%w: pid %d may not renice pid %d", ErrPermissionDenied, caller.PID, target)
	}
	t.Priority = prio
	if t.State == StateReady {
		k.queue.requeue(t.PID, prio)
	}
	return nil
}

// Kill sends a signal to a task. Signal 0 probes for existence without
// delivering anything. Masked blockable signals stay pending until the
// target unblocks them; SIGKILL and SIGSTOP always take effect. Fatal
// signals reach Blocked targets immediately, tearing down their wait.
func (k *Kernel) Kill(target Pid, sig Signal) error {
	if sig != 0 && !sig.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSignal, sig)
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	t, err := k.table.lookup(target)
	if err != nil {
		return err
	}
	if sig == 0 || t.State == StateZombie {
		return nil
	}
	// The reaper ignores signals it has not installed a handler for.
	if t.PID == k.reaper && t.Handlers[sig].Kind == DispositionDefault {
		return nil
	}
	t.SendSignal(sig)
	k.deliverUrgent(t, sig)
	return nil
}

// Raise sends a signal to the calling task itself.
func (k *Kernel) Raise(sig Signal) error {
	return k.Kill(k.Getpid(), sig)
}

// deliverUrgent applies the immediate effects of a just-sent signal: fatal
// defaults terminate the target in any state, stops suspend Ready and
// Running targets, continue resumes a Stopped one. Signals with a handler
// or ignore disposition, and masked signals, wait for the target's next
// resume point. Caller holds the lock.
func (k *Kernel) deliverUrgent(t *Task, sig Signal) {
	if !sig.Unblockable() && t.Blocked.Has(sig) {
		return
	}
	disp := t.Handlers[sig]
	if sig.Unblockable() {
		disp = Disposition{Kind: DispositionDefault}
	}
	if disp.Kind != DispositionDefault {
		return
	}

	switch DefaultActionFor(sig) {
	case ActionTerminate, ActionCoreDump:
		t.Pending = t.Pending.Del(sig)
		wasRunning := t.State == StateRunning
		k.terminate(t, signalStatus(sig))
		if wasRunning {
			k.reschedule()
		}
	case ActionStop:
		if t.State == StateReady || t.State == StateRunning || t.State == StateBlocked {
			t.Pending = t.Pending.Del(sig)
			wasRunning := t.State == StateRunning
			k.stopTask(t)
			if wasRunning {
				k.reschedule()
			}
		}
	case ActionContinue:
		t.Pending = t.Pending.Del(sig)
		k.continueTask(t)
	}
}

// Sigprocmask examines and changes the caller's blocked-signal mask. The
// mask can never cover SIGKILL or SIGSTOP. The previous mask is returned.
func (k *Kernel) Sigprocmask(how int, set SigSet) (SigSet, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	t := k.mustCurrent()
	old := t.Blocked
	switch how {
	case SigBlock:
		t.Blocked |= set
	case SigUnblock:
		t.Blocked &^= set
	case SigSetMask:
		t.Blocked = set
	default:
		return old, fmt.Errorf("%w: sigprocmask how=%d", ErrInvalidSignal, how)
	}
	t.Blocked = t.Blocked.Del(SIGKILL).Del(SIGSTOP)
	return old, nil
}

// Sigpending returns the caller's signals that are pending but blocked.
func (k *Kernel) Sigpending() SigSet {
	k.mu.Lock()
	defer k.mu.Unlock()

	t := k.mustCurrent()
	return t.Pending & t.Blocked
}

// Sigaction installs a disposition for sig and returns the previous one.
// The dispositions of SIGKILL and SIGSTOP cannot be changed.
func (k *Kernel) Sigaction(sig Signal, disp *Disposition) (Disposition, error) {
	if !sig.Valid() || sig.Unblockable() {
		return Disposition{}, fmt.Errorf("%w: sigaction %d", ErrInvalidSignal, sig)
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	t := k.mustCurrent()
	old := t.Handlers[sig]
	if disp != nil {
		t.Handlers[sig] = *disp
	}
	return old, nil
}

// TakeHandlerQueue drains the caught signals recorded for pid, for the
// userland dispatch collaborator to invoke at the task's resume point.
func (k *Kernel) TakeHandlerQueue(pid Pid) ([]Signal, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	t, err := k.table.lookup(pid)
	if err != nil {
		return nil, err
	}
	queue := t.HandlerQueue
	t.HandlerQueue = nil
	return queue, nil
}
