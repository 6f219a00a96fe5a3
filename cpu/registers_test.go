package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisters_Chain(t *testing.T) {
	assert := assert.New(t)

	values := []uint32{0, 1, 0x7f, 0x80, 0xff, 0x1234, 0xabcdef, 0x89abcdef, 0xffffffff}

	for width := 1; width <= 4; width++ {
		for start := range REGISTER_COUNT {
			for _, value := range values {
				var regs Registers
				regs.WriteChain(start, width, value)
				assert.Equal(value&widthMask(width), regs.ReadChain(start, width),
					"start %v width %v value %#x", start, width, value)
			}
		}
	}
}

func TestRegisters_BigEndian(t *testing.T) {
	assert := assert.New(t)

	var regs Registers
	regs.WriteChain(0, 4, 0x11223344)
	assert.Equal(uint8(0x11), regs.Get(0))
	assert.Equal(uint8(0x22), regs.Get(1))
	assert.Equal(uint8(0x33), regs.Get(2))
	assert.Equal(uint8(0x44), regs.Get(3))
	assert.Equal(uint32(0x1122), regs.ReadChain(0, 2))
	assert.Equal(uint32(0x3344), regs.ReadChain(2, 2))
}

func TestRegisters_Wrap(t *testing.T) {
	assert := assert.New(t)

	var regs Registers
	// YZAB
	regs.WriteChain(24, 4, 0xa1b2c3d4)
	assert.Equal(uint8(0xa1), regs.Get(24))
	assert.Equal(uint8(0xb2), regs.Get(25))
	assert.Equal(uint8(0xc3), regs.Get(0))
	assert.Equal(uint8(0xd4), regs.Get(1))

	regs.Set(26, 0x55)
	assert.Equal(uint8(0x55), regs.Get(0))
	assert.Equal(uint8(0x55), regs.Get(-26))
}

func TestRegisters_Truncate(t *testing.T) {
	assert := assert.New(t)

	var regs Registers
	regs.WriteChain(5, 2, 0xabcdef)
	assert.Equal(uint32(0xcdef), regs.ReadChain(5, 2))
	assert.Equal(uint8(0), regs.Get(4))
	assert.Equal(uint8(0), regs.Get(7))

	regs.Reset()
	assert.Equal(Registers{}, regs)
}

func TestRegisterName(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		name  string
		start int
		width int
	}{
		{"A", 0, 1},
		{"AB", 0, 2},
		{"XYZ", 23, 3},
		{"YZAB", 24, 4},
		{"ZA", 25, 2},
		{"Z", 25, 1},
	}

	for _, entry := range table {
		assert.Equal(entry.name, RegisterName(entry.start, entry.width))

		start, width, ok := ParseRegister(entry.name)
		assert.True(ok, entry.name)
		assert.Equal(entry.start, start, entry.name)
		assert.Equal(entry.width, width, entry.name)
	}

	start, width, ok := ParseRegister("yzab")
	assert.True(ok)
	assert.Equal(24, start)
	assert.Equal(4, width)

	for _, bad := range []string{"", "AC", "ABCDE", "F0", "BA", "A1", "loop"} {
		_, _, ok := ParseRegister(bad)
		assert.False(ok, bad)
	}
}

func TestFloatRegisters(t *testing.T) {
	assert := assert.New(t)

	var fr FloatRegisters
	fr.Set(3, 1.5)
	assert.Equal(float32(1.5), fr.Get(3))
	assert.Equal(uint32(0x3fc00000), fr.GetBits(3))

	// NaN payloads survive.
	fr.SetBits(15, 0x7fc01234)
	assert.Equal(uint32(0x7fc01234), fr.GetBits(15))

	fr.Reset()
	assert.Equal(FloatRegisters{}, fr)

	for n := range FLOAT_COUNT {
		index, ok := ParseFloatRegister(FloatRegisterName(n))
		assert.True(ok)
		assert.Equal(n, index)
	}

	index, ok := ParseFloatRegister("f12")
	assert.True(ok)
	assert.Equal(12, index)

	for _, bad := range []string{"F", "F16", "F-1", "F+1", "G0", "Fx"} {
		_, ok := ParseFloatRegister(bad)
		assert.False(ok, bad)
	}
}
