package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextReturnRegister(t *testing.T) {
	c := NewUserContext(0x400000, userStackTop)
	assert.Equal(t, uint64(0x400000), c.IP)
	assert.Equal(t, uint64(userStackTop), c.SP)

	c.SetReturn(-1)
	assert.Equal(t, int64(-1), c.Return())
	c.SetReturn(42)
	assert.Equal(t, int64(42), c.Return())
}

func TestSimCPURoundTrip(t *testing.T) {
	cpu := NewSimCPU()

	a := NewUserContext(0x1000, 0x8000)
	a.Regs[4] = 0xdeadbeef
	cpu.Restore(&a)

	live := cpu.Live()
	assert.Equal(t, uint64(0x1000), live.IP)
	assert.Equal(t, uint64(0xdeadbeef), live.Regs[4])

	var b Context
	cpu.Save(&b)
	assert.Equal(t, a, b, "save reproduces the restored context")

	// Saving into one task's slot must not alias the live registers.
	b.Regs[4] = 0
	assert.Equal(t, uint64(0xdeadbeef), cpu.Live().Regs[4])
}
