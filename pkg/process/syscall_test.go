package process

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentitySyscalls(t *testing.T) {
	k, initPid := newTestKernel(t)
	ctx := context.Background()

	assert.Equal(t, initPid, k.Getpid())
	assert.Equal(t, Pid(0), k.Getppid(), "init has no parent")
	assert.Equal(t, uint32(0), k.Getuid())
	assert.Equal(t, uint32(0), k.Geteuid())

	child, err := k.Fork(ctx)
	require.NoError(t, err)
	runUntilCurrent(t, k, child)

	assert.Equal(t, child, k.Getpid())
	assert.Equal(t, initPid, k.Getppid())
}

func TestSetuidRootDropsPrivilege(t *testing.T) {
	k, _ := newTestKernel(t)

	require.NoError(t, k.Setuid(1000))
	assert.Equal(t, uint32(1000), k.Getuid())
	assert.Equal(t, uint32(1000), k.Geteuid())

	// Privilege drop is one way.
	assert.ErrorIs(t, k.Setuid(0), ErrPermissionDenied)
	assert.ErrorIs(t, k.Setuid(1001), ErrPermissionDenied)
	assert.NoError(t, k.Setuid(1000), "setting to the current uid stays legal")
}

func TestSetuidBetweenRealAndEffective(t *testing.T) {
	k, initPid := newTestKernel(t)

	it, err := k.Lookup(initPid)
	require.NoError(t, err)
	it.Creds = Credentials{UID: 500, GID: 500, EUID: 1000, EGID: 1000}

	require.NoError(t, k.Setuid(500))
	assert.Equal(t, uint32(500), k.Geteuid())

	assert.ErrorIs(t, k.Setuid(777), ErrPermissionDenied)
}

func TestSetgid(t *testing.T) {
	k, _ := newTestKernel(t)

	require.NoError(t, k.Setgid(200))
	assert.Equal(t, uint32(200), k.Getgid())
	assert.Equal(t, uint32(200), k.Getegid())

	require.NoError(t, k.Setuid(1000))
	assert.ErrorIs(t, k.Setgid(300), ErrPermissionDenied)
}

func TestSetPriority(t *testing.T) {
	k, _ := newTestKernel(t)
	ctx := context.Background()

	c1, err := k.Fork(ctx)
	require.NoError(t, err)
	c2, err := k.Fork(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, k.SetPriority(c1, Priority(-1)), ErrInvalidPriority)
	assert.ErrorIs(t, k.SetPriority(c1, numPriorities), ErrInvalidPriority)
	assert.ErrorIs(t, k.SetPriority(99, PriorityHigh), ErrNoSuchProcess)

	// Boosting the second child reorders the queue ahead of the first.
	require.NoError(t, k.SetPriority(c2, PriorityHigh))
	k.YieldNow()
	assert.Equal(t, c2, k.CurrentPID())

	ct, err := k.Lookup(c2)
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, ct.Priority)
}

func TestSetPriorityRequiresPrivilege(t *testing.T) {
	k, _ := newTestKernel(t)
	ctx := context.Background()

	child, err := k.Fork(ctx)
	require.NoError(t, err)
	runUntilCurrent(t, k, child)

	require.NoError(t, k.Setuid(1000))
	assert.ErrorIs(t, k.SetPriority(1, PriorityLow), ErrPermissionDenied,
		"unprivileged task may not renice a root task")
	assert.NoError(t, k.SetPriority(child, PriorityLow), "own task is fair game")
}
