// Package security implements the policy engine consulted before fork and
// exec complete. It combines pledge-style promises granted per user with
// unveil-style path restrictions on executable images.
package security

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrDenied is returned when the policy vetoes an action.
var ErrDenied = errors.New("permission denied")

// Action identifies the process-control operation being authorized.
type Action int

const (
	// ActionFork is the creation of a child process.
	ActionFork Action = iota
	// ActionExec is the replacement of a process image.
	ActionExec
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionFork:
		return "fork"
	case ActionExec:
		return "exec"
	default:
		return "unknown"
	}
}

// Request describes an action awaiting authorization.
type Request struct {
	// PID is the calling process.
	PID int
	// UID is the caller's effective user ID.
	UID uint32
	// Action is the operation being attempted.
	Action Action
	// Target is the executable path for exec; empty for fork.
	Target string
}

// Engine is the central authority deciding whether process-control actions
// proceed. The zero policy is permissive: unknown users hold every promise
// and no paths are restricted.
type Engine struct {
	mu sync.RWMutex
	// promises maps user IDs to their granted capabilities.
	promises map[uint32]Promise
	// deniedPrefixes lists executable path prefixes no one may exec.
	deniedPrefixes []string
}

// NewEngine creates a permissive engine.
func NewEngine() *Engine {
	return &Engine{promises: make(map[uint32]Promise)}
}

// Grant restricts a user to exactly the given promises. A user that has never
// been granted anything holds every promise.
func (e *Engine) Grant(uid uint32, p Promise) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.promises[uid] = p
}

// DenyPathPrefix registers an executable path prefix that exec must reject
// for every user.
func (e *Engine) DenyPathPrefix(prefix string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deniedPrefixes = append(e.deniedPrefixes, prefix)
}

// Authorize returns nil if the request may proceed and an error wrapping
// ErrDenied otherwise.
func (e *Engine) Authorize(ctx context.Context, req *Request) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	promises, restricted := e.promises[req.UID]
	if !restricted {
		promises = PromiseAll
	}

	var need Promise
	switch req.Action {
	case ActionFork:
		need = PromiseFork
	case ActionExec:
		need = PromiseExec
	default:
		return fmt.Errorf("%w: unknown action %d", ErrDenied, req.Action)
	}
	if !promises.Has(need) {
		return fmt.Errorf("%w: uid %d lacks %s promise", ErrDenied, req.UID, req.Action)
	}

	if req.Action == ActionExec {
		for _, prefix := range e.deniedPrefixes {
			if strings.HasPrefix(req.Target, prefix) {
				return fmt.Errorf("%w: path %s is restricted", ErrDenied, req.Target)
			}
		}
	}
	return nil
}
