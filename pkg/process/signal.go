package process

// Signal is a POSIX signal number.
type Signal int

// Standard signal numbers.
const (
	SIGHUP   Signal = 1
	SIGINT   Signal = 2
	SIGQUIT  Signal = 3
	SIGILL   Signal = 4
	SIGTRAP  Signal = 5
	SIGABRT  Signal = 6
	SIGBUS   Signal = 7
	SIGFPE   Signal = 8
	SIGKILL  Signal = 9
	SIGUSR1  Signal = 10
	SIGSEGV  Signal = 11
	SIGUSR2  Signal = 12
	SIGPIPE  Signal = 13
	SIGALRM  Signal = 14
	SIGTERM  Signal = 15
	SIGCHLD  Signal = 17
	SIGCONT  Signal = 18
	SIGSTOP  Signal = 19
	SIGTSTP  Signal = 20
	SIGTTIN  Signal = 21
	SIGTTOU  Signal = 22
	SIGURG   Signal = 23
	SIGXCPU  Signal = 24
	SIGXFSZ  Signal = 25
	SIGWINCH Signal = 28
	SIGSYS   Signal = 31
)

// NSIG is the number of signal slots per task.
const NSIG = 64

// Valid reports whether s is a deliverable signal number.
func (s Signal) Valid() bool {
	return s >= 1 && s <= NSIG
}

// Unblockable reports whether s takes effect regardless of the signal mask.
// SIGKILL and SIGSTOP can be neither blocked, ignored, nor handled.
func (s Signal) Unblockable() bool {
	return s == SIGKILL || s == SIGSTOP
}

// SigSet is a bitmap of signals; bit sig-1 represents signal sig.
type SigSet uint64

// NewSigSet builds a set from the given signals.
func NewSigSet(sigs ...Signal) SigSet {
	var s SigSet
	for _, sig := range sigs {
		s = s.Add(sig)
	}
	return s
}

// Has reports whether sig is in the set.
func (s SigSet) Has(sig Signal) bool {
	if !sig.Valid() {
		return false
	}
	return s&(1<<uint(sig-1)) != 0
}

// Add returns the set with sig included.
func (s SigSet) Add(sig Signal) SigSet {
	if !sig.Valid() {
		return s
	}
	return s | 1<<uint(sig-1)
}

// Del returns the set with sig removed.
func (s SigSet) Del(sig Signal) SigSet {
	if !sig.Valid() {
		return s
	}
	return s &^ (1 << uint(sig-1))
}

// Empty reports whether the set contains no signals.
func (s SigSet) Empty() bool {
	return s == 0
}

// How a sigprocmask call combines the supplied set with the current mask.
const (
	// SigBlock adds the set to the mask.
	SigBlock = iota
	// SigUnblock removes the set from the mask.
	SigUnblock
	// SigSetMask replaces the mask with the set.
	SigSetMask
)

// DispositionKind tags what a task does with a delivered signal.
type DispositionKind int

const (
	// DispositionDefault applies the signal's default action.
	DispositionDefault DispositionKind = iota
	// DispositionIgnore discards the signal.
	DispositionIgnore
	// DispositionHandler queues a registered handler for invocation at the
	// task's next resume point.
	DispositionHandler
)

// Disposition is one slot of a task's signal handler table.
type Disposition struct {
	Kind DispositionKind
	// Handler is the user-space handler entry point, meaningful only when
	// Kind is DispositionHandler.
	Handler uint64
}

// DefaultAction is the kernel-side effect of a signal whose disposition is
// DispositionDefault.
type DefaultAction int

const (
	// ActionTerminate kills the task.
	ActionTerminate DefaultAction = iota
	// ActionIgnore discards the signal.
	ActionIgnore
	// ActionCoreDump kills the task (core files are outside this core).
	ActionCoreDump
	// ActionStop suspends the task until continued.
	ActionStop
	// ActionContinue resumes a stopped task.
	ActionContinue
)

// DefaultActionFor returns the POSIX default action for sig.
func DefaultActionFor(sig Signal) DefaultAction {
	switch sig {
	case SIGCHLD, SIGURG, SIGWINCH:
		return ActionIgnore
	case SIGSTOP, SIGTSTP, SIGTTIN, SIGTTOU:
		return ActionStop
	case SIGCONT:
		return ActionContinue
	case SIGABRT, SIGBUS, SIGFPE, SIGILL, SIGQUIT, SIGSEGV, SIGSYS, SIGTRAP, SIGXCPU, SIGXFSZ:
		return ActionCoreDump
	default:
		return ActionTerminate
	}
}
