package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnknownUserHoldsEveryPromise(t *testing.T) {
	e := NewEngine()
	ctx := context.Background()

	assert.NoError(t, e.Authorize(ctx, &Request{PID: 1, UID: 1000, Action: ActionFork}))
	assert.NoError(t, e.Authorize(ctx, &Request{PID: 1, UID: 1000, Action: ActionExec, Target: "/bin/sh"}))
}

func TestGrantRestricts(t *testing.T) {
	e := NewEngine()
	ctx := context.Background()

	e.Grant(1000, PromiseFork)
	assert.NoError(t, e.Authorize(ctx, &Request{UID: 1000, Action: ActionFork}))
	assert.ErrorIs(t, e.Authorize(ctx, &Request{UID: 1000, Action: ActionExec, Target: "/bin/sh"}), ErrDenied)

	// Other users are untouched.
	assert.NoError(t, e.Authorize(ctx, &Request{UID: 1001, Action: ActionExec, Target: "/bin/sh"}))
}

func TestGrantNothingDeniesEverything(t *testing.T) {
	e := NewEngine()
	ctx := context.Background()

	e.Grant(500, 0)
	assert.ErrorIs(t, e.Authorize(ctx, &Request{UID: 500, Action: ActionFork}), ErrDenied)
	assert.ErrorIs(t, e.Authorize(ctx, &Request{UID: 500, Action: ActionExec}), ErrDenied)
}

func TestDenyPathPrefix(t *testing.T) {
	e := NewEngine()
	ctx := context.Background()

	e.DenyPathPrefix("/sbin/")
	assert.ErrorIs(t, e.Authorize(ctx, &Request{UID: 0, Action: ActionExec, Target: "/sbin/reboot"}), ErrDenied)
	assert.NoError(t, e.Authorize(ctx, &Request{UID: 0, Action: ActionExec, Target: "/bin/ls"}))

	// Fork never consults path restrictions.
	assert.NoError(t, e.Authorize(ctx, &Request{UID: 0, Action: ActionFork}))
}

func TestPromiseOperations(t *testing.T) {
	p := PromiseFork.With(PromiseSignal)
	assert.True(t, p.Has(PromiseFork))
	assert.True(t, p.Has(PromiseSignal))
	assert.False(t, p.Has(PromiseExec))

	p = p.Without(PromiseFork)
	assert.False(t, p.Has(PromiseFork))

	assert.Equal(t, "fork,exec,signal", PromiseAll.String())
	assert.Equal(t, "signal", p.String())
}
