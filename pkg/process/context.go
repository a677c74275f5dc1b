package process

// Context is a task's saved CPU register snapshot. It is opaque to the
// scheduler except for save and restore: the scheduler moves whole Contexts
// between tasks and the CPU and never inspects individual registers. A
// Context is valid only while its task is off the CPU; the Running task's
// registers live in the CPU itself.
type Context struct {
	// Regs are the general-purpose registers. Regs[0] carries the syscall
	// return value by convention.
	Regs [16]uint64
	// IP is the instruction pointer.
	IP uint64
	// SP is the stack pointer.
	SP uint64
	// BP is the frame pointer.
	BP uint64
	// Flags is the processor status word.
	Flags uint64
	// User marks a user-mode context as opposed to a kernel-mode one.
	User bool
}

// defaultFlags has the interrupt-enable bit set.
const defaultFlags = 0x202

// userStackTop is where a fresh user stack is placed after exec.
const userStackTop = 0x7ffff000

// NewKernelContext builds an entry state for a kernel-mode task.
func NewKernelContext(entry, stackTop uint64) Context {
	return Context{IP: entry, SP: stackTop, BP: stackTop, Flags: defaultFlags}
}

// NewUserContext builds an entry state for a user-mode task.
func NewUserContext(entry, stackTop uint64) Context {
	return Context{IP: entry, SP: stackTop, BP: stackTop, Flags: defaultFlags, User: true}
}

// SetReturn plants a syscall return value into the saved registers. It is how
// fork arranges for the child to observe 0 when it first resumes.
func (c *Context) SetReturn(v int64) {
	c.Regs[0] = uint64(v)
}

// Return reads the planted syscall return value.
func (c *Context) Return() int64 {
	return int64(c.Regs[0])
}

// CPU abstracts the hardware context-switch primitive: saving the live
// register state into a Context and restoring a Context onto the processor.
// The real implementation lives in the architecture layer; SimCPU stands in
// for it everywhere else.
type CPU interface {
	// Save captures the live register state into dst.
	Save(dst *Context)
	// Restore loads src onto the processor.
	Restore(src *Context)
}

// SimCPU is a simulated single processor: the live context is just a value
// held in memory. It is the CPU used by tests and demos.
type SimCPU struct {
	live Context
}

// NewSimCPU creates a simulated CPU with an empty live context.
func NewSimCPU() *SimCPU {
	return &SimCPU{}
}

// Save copies the live context into dst.
func (c *SimCPU) Save(dst *Context) {
	*dst = c.live
}

// Restore makes src the live context.
func (c *SimCPU) Restore(src *Context) {
	c.live = *src
}

// Live returns the current on-CPU context.
func (c *SimCPU) Live() Context {
	return c.live
}
