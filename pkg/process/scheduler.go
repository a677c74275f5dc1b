package process

// Tick is the timer interrupt entry point. It accounts the running task's
// time, and preempts it when its slice is exhausted or a strictly
// higher-priority task is Ready. With an idle CPU it simply dispatches the
// next Ready task, if any.
func (k *Kernel) Tick() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.ticks++

	if k.current == 0 {
		if k.queue.len() > 0 {
			k.reschedule()
		}
		return
	}

	t := k.table.get(k.current)
	t.CPUTime++
	t.SliceLeft--

	preempt := t.SliceLeft <= 0
	if best, ok := k.queue.highest(); ok && best > t.Priority {
		preempt = true
	}
	if !preempt {
		return
	}
	if k.queue.len() == 0 {
		// Sole runnable task: keep the CPU, recharge the slice.
		t.SliceLeft = k.timeSlice
		return
	}
	k.preemptCurrent(t)
	k.reschedule()
}

// YieldNow voluntarily gives up the CPU. The caller is re-enqueued behind
// its priority cohort; with an empty queue it keeps running.
func (k *Kernel) YieldNow() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.current == 0 || k.queue.len() == 0 {
		return
	}
	t := k.table.get(k.current)
	k.preemptCurrent(t)
	k.reschedule()
}

// preemptCurrent moves the running task back to Ready. Caller holds the lock.
func (k *Kernel) preemptCurrent(t *Task) {
	k.cpu.Save(&t.Context)
	t.transition(StateReady)
	k.queue.enqueue(t.PID, t.Priority)
	k.current = 0
}

// blockCurrent parks the running task in Blocked state and picks the next
// task. Caller holds the lock and has already registered the wake-up source.
func (k *Kernel) blockCurrent(t *Task) {
	k.cpu.Save(&t.Context)
	t.transition(StateBlocked)
	k.current = 0
	k.reschedule()
}

// Block parks the calling task until Unblock. The wake-up source must be
// registered before calling; pair with Unblock from blocking I/O
// implementations elsewhere in the kernel.
func (k *Kernel) Block() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.blockCurrent(k.mustCurrent())
}

// Unblock moves a Blocked task back to Ready. Counterpart of Block; no-op
// for other states.
func (k *Kernel) Unblock(pid Pid) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	t, err := k.table.lookup(pid)
	if err != nil {
		return err
	}
	if t.State == StateBlocked {
		k.wake(t)
	}
	return nil
}

// wake transitions a Blocked task to Ready and enqueues it. Caller holds the
// lock.
func (k *Kernel) wake(t *Task) {
	t.transition(StateReady)
	k.queue.enqueue(t.PID, t.Priority)
}

// reschedule picks the next task off the run queue, delivers its pending
// signals, and puts it on the CPU. If signal delivery kills or stops a
// candidate the next one is tried; an empty queue leaves the CPU idle until
// the next interrupt. Caller holds the lock with no task Running.
func (k *Kernel) reschedule() {
	for {
		pid, ok := k.queue.dequeueHighest()
		if !ok {
			k.current = 0
			return
		}
		t := k.table.get(pid)
		if t.State != StateReady {
			panic("process: run queue held pid " + t.Name + " in state " + string(t.State))
		}
		if !k.deliverPending(t) {
			continue
		}
		t.transition(StateRunning)
		t.SliceLeft = k.timeSlice
		k.current = pid
		k.cpu.Restore(&t.Context)
		log.Debugf("switch: pid=%d %s", pid, t.Name)
		return
	}
}

// deliverPending applies the task's deliverable signals at the safe point
// before it resumes Running. It returns false when delivery terminated or
// stopped the task, in which case it must not be put on the CPU.
func (k *Kernel) deliverPending(t *Task) bool {
	for sig := Signal(1); sig <= NSIG; sig++ {
		if !t.Pending.Has(sig) {
			continue
		}
		if !sig.Unblockable() && t.Blocked.Has(sig) {
			continue
		}
		t.Pending = t.Pending.Del(sig)

		disp := t.Handlers[sig]
		if sig.Unblockable() {
			disp = Disposition{Kind: DispositionDefault}
		}
		switch disp.Kind {
		case DispositionIgnore:
			continue
		case DispositionHandler:
			// Recorded for the userland dispatch collaborator; invocation
			// happens outside this core at the resume boundary.
			t.HandlerQueue = append(t.HandlerQueue, sig)
			continue
		}

		switch DefaultActionFor(sig) {
		case ActionIgnore, ActionContinue:
			continue
		case ActionStop:
			k.stopTask(t)
			return false
		case ActionTerminate, ActionCoreDump:
			k.terminate(t, signalStatus(sig))
			return false
		}
	}
	return true
}

// stopTask suspends a task until SIGCONT. A task blocked in wait keeps its
// waiter registered; the wait is resolved when the task is continued. Caller
// holds the lock.
func (k *Kernel) stopTask(t *Task) {
	switch t.State {
	case StateReady:
		k.queue.remove(t.PID)
		t.transition(StateStopped)
	case StateRunning:
		k.cpu.Save(&t.Context)
		t.transition(StateStopped)
		k.current = 0
	case StateBlocked:
		t.transition(StateStopped)
	}
	log.Debugf("stop: pid=%d", t.PID)
}

// continueTask resumes a Stopped task. A task that was stopped while blocked
// in wait has its wait completed on the spot when a matching child died in
// the meantime, and goes back to Blocked otherwise. Caller holds the lock.
func (k *Kernel) continueTask(t *Task) {
	if t.State != StateStopped {
		return
	}
	// Drop pending stop signals so the task does not immediately re-stop.
	for _, sig := range []Signal{SIGSTOP, SIGTSTP, SIGTTIN, SIGTTOU} {
		t.Pending = t.Pending.Del(sig)
	}
	if w, waiting := k.waiters[t.PID]; waiting {
		if c := k.findZombieChild(t, w.target); c != nil {
			delete(k.waiters, t.PID)
			pid, status := c.PID, c.ExitStatus
			k.reap(c)
			t.transition(StateReady)
			k.queue.enqueue(t.PID, t.Priority)
			w.ch <- waitResult{pid: pid, status: status}
			log.Debugf("continue: pid=%d wait completed by pid=%d", t.PID, pid)
			return
		}
		t.transition(StateBlocked)
		log.Debugf("continue: pid=%d back to wait", t.PID)
		return
	}
	t.transition(StateReady)
	k.queue.enqueue(t.PID, t.Priority)
	log.Debugf("continue: pid=%d", t.PID)
}
