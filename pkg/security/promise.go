package security

import "strings"

// Promise represents the process-control capabilities granted to a subject,
// inspired by OpenBSD's pledge system. Each promise is a bit flag that can be
// combined using bitwise OR.
type Promise uint64

const (
	// PromiseFork allows creating child processes.
	PromiseFork Promise = 1 << iota
	// PromiseExec allows replacing the process image.
	PromiseExec
	// PromiseSignal allows sending signals to other processes.
	PromiseSignal
)

// PromiseAll grants every capability.
const PromiseAll = PromiseFork | PromiseExec | PromiseSignal

// Has returns true if the promise includes the specified capability.
func (p Promise) Has(cap Promise) bool {
	return p&cap != 0
}

// With returns a new promise with the additional capability included.
func (p Promise) With(cap Promise) Promise {
	return p | cap
}

// Without returns a new promise with the specified capability removed.
func (p Promise) Without(cap Promise) Promise {
	return p &^ cap
}

// String returns a comma-separated list of capability names.
func (p Promise) String() string {
	var names []string
	if p.Has(PromiseFork) {
		names = append(names, "fork")
	}
	if p.Has(PromiseExec) {
		names = append(names, "exec")
	}
	if p.Has(PromiseSignal) {
		names = append(names, "signal")
	}
	return strings.Join(names, ",")
}
