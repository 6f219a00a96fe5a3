package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(64)

	loc, err := cpu.Resolve(MakeOperandReg(25, 2))
	assert.NoError(err)
	assert.Equal(2, loc.Width())
	assert.False(loc.IsFloat())
	assert.True(loc.Writable())
	loc.SetBits(0x1234)
	assert.Equal(uint8(0x12), cpu.Register.Get(25))
	assert.Equal(uint8(0x34), cpu.Register.Get(0))

	loc, err = cpu.Resolve(MakeOperandFloat(3))
	assert.NoError(err)
	assert.True(loc.IsFloat())
	assert.Equal(4, loc.Width())
	loc.SetBits(math.Float32bits(2))
	assert.Equal(float32(2), cpu.Float.Get(3))

	loc, err = cpu.Resolve(MakeOperandImm(2, 0xbeef))
	assert.NoError(err)
	assert.False(loc.Writable())
	assert.Equal(uint32(0xbeef), loc.Bits())
	loc.SetBits(0)
	assert.Equal(uint32(0xbeef), loc.Bits())

	loc, err = cpu.Resolve(MakeOperandImmFloat(0.5))
	assert.NoError(err)
	assert.True(loc.IsFloat())
	assert.Equal(uint32(0x3f000000), loc.Bits())

	loc, err = cpu.Resolve(MakeOperandAbs(4, 0x10).AsFloat())
	assert.NoError(err)
	assert.True(loc.IsFloat())
	loc.SetBits(math.Float32bits(-1))
	assert.Equal(float32(-1), cpu.Memory.GetFloat(0x10))

	_, err = cpu.Resolve(MakeOperandAbs(4, 61))
	assert.ErrorIs(err, ErrMemoryRange)

	_, err = cpu.Resolve(Operand{Mode: Mode(16)})
	assert.ErrorIs(err, ErrOperandDecode)
}

func TestResolve_Pointer(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(64)
	op := MakeOperandPtrOffset(1, Chain{Index: 0, Width: 2}, 2, 1)

	cpu.Register.WriteChain(0, 2, 0x0010)
	cpu.Memory.Set8(0x12, 0xaa)
	cpu.Memory.Set8(0x22, 0xbb)

	loc, err := cpu.Resolve(op)
	assert.NoError(err)
	assert.Equal(uint32(0xaa), loc.Bits())

	// Pointer registers are read at resolution.
	cpu.Register.WriteChain(0, 2, 0x0020)
	assert.Equal(uint32(0xaa), loc.Bits())
	loc, err = cpu.Resolve(op)
	assert.NoError(err)
	assert.Equal(uint32(0xbb), loc.Bits())

	assert.Equal(uint32(0x22), cpu.Address(op))
	cpu.Register.Set(5, 0x04)
	assert.Equal(uint32(0x24), cpu.Address(MakeOperandPtrIndex(1, Chain{Index: 0, Width: 2}, Chain{Index: 5, Width: 1})))
	assert.Equal(uint32(0x34), cpu.Address(MakeOperandAbsIndex(1, 0x30, Chain{Index: 5, Width: 1})))
}

func TestRole(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(16)
	cpu.Float.Set(0, 3.9)
	loc, err := cpu.Resolve(MakeOperandFloat(0))
	assert.NoError(err)

	assert.Equal(uint32(3), ROLE_COUNT.Read(loc))
	assert.Equal(math.Float32bits(3.9), ROLE_VALUE.Read(loc))

	cpu.Register.Set(0, 0x81)
	loc, err = cpu.Resolve(MakeOperandReg(0, 1))
	assert.NoError(err)
	assert.Equal(uint32(0x81), ROLE_COUNT.Read(loc))
	assert.Equal(uint32(0x81), ROLE_VALUE.Read(loc))

	cpu.Float.Set(0, -1)
	assert.Equal(uint32(0), ROLE_COUNT.Read(loc0(cpu)))
	cpu.Float.Set(0, 1e10)
	assert.Equal(uint32(0xffffffff), ROLE_COUNT.Read(loc0(cpu)))
	cpu.Float.Set(0, float32(math.NaN()))
	assert.Equal(uint32(0), ROLE_COUNT.Read(loc0(cpu)))
	assert.Equal(uint32(0), clampCount(math.Inf(-1)))
	assert.Equal(uint32(0xffffffff), clampCount(math.Inf(1)))
	assert.Equal(uint32(7), clampCount(7.99))

	assert.Equal("count", ROLE_COUNT.String())
	assert.Equal("value", ROLE_VALUE.String())
}

func TestTruncateFloat(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		value  float64
		width  int
		result uint32
	}{
		{3.9, 1, 3},
		{-3.9, 1, 0xfd},
		{256.5, 1, 0},
		{256.5, 2, 0x100},
		{-1, 4, 0xffffffff},
		{math.NaN(), 4, 0},
		{math.Inf(1), 2, 0xffff},
		{math.Inf(-1), 4, 0},
	}

	for _, entry := range table {
		assert.Equal(entry.result, truncateFloat(entry.value, entry.width), "%v", entry.value)
	}

	assert.Equal(int64(-1), signExtend(0xff, 1))
	assert.Equal(int64(0x7f), signExtend(0x7f, 1))
	assert.Equal(int64(-2), signExtend(0xfffffffe, 4))
	assert.Equal(int64(0x1234), signExtend(0x1234, 3))
}

// loc0 resolves F0.
func loc0(cpu *Cpu) (loc Location) {
	loc, _ = cpu.Resolve(MakeOperandFloat(0))
	return
}
