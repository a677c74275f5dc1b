package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kernos/pkg/config"
	"kernos/pkg/mem"
)

// newTestKernel boots a kernel on a simulated CPU with no image loader and a
// permissive (nil) policy. Tests that exec pass their own loader.
func newTestKernel(t *testing.T) (*Kernel, Pid) {
	t.Helper()
	k := New(config.Default(), NewSimCPU(), mem.NewAllocator(1024), nil, nil)
	initPid, err := k.Boot()
	require.NoError(t, err)
	require.Equal(t, Pid(1), initPid)
	return k, initPid
}

// assertConsistent checks the cross-structure invariants: at most one task
// Running, and run-queue membership exactly mirroring the Ready state.
func assertConsistent(t *testing.T, k *Kernel) {
	t.Helper()
	k.mu.Lock()
	defer k.mu.Unlock()

	running := 0
	for _, task := range k.table.snapshot() {
		switch task.State {
		case StateRunning:
			running++
			assert.Equal(t, task.PID, k.current, "running task must be current")
			assert.False(t, k.queue.contains(task.PID), "running task must not be queued")
		case StateReady:
			assert.True(t, k.queue.contains(task.PID), "ready task pid %d must be queued", task.PID)
		default:
			assert.False(t, k.queue.contains(task.PID), "pid %d in state %s must not be queued", task.PID, task.State)
		}
	}
	assert.LessOrEqual(t, running, 1, "at most one task may be Running")
}

// runUntilCurrent yields the CPU until pid is the running task. It fails the
// test rather than looping forever.
func runUntilCurrent(t *testing.T, k *Kernel, pid Pid) {
	t.Helper()
	for i := 0; i < 64; i++ {
		if k.CurrentPID() == pid {
			return
		}
		k.YieldNow()
	}
	t.Fatalf("pid %d never became current (current=%d)", pid, k.CurrentPID())
}
