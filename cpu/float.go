package cpu

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FloatRegisters is the float register file, F0..F15.
//
// Registers hold raw IEEE-754 patterns, so bit-pattern opcodes round trip
// every value including NaN payloads.
type FloatRegisters [FLOAT_COUNT]uint32

// Get returns the value of a float register.
func (fr *FloatRegisters) Get(index int) float32 {
	return math.Float32frombits(fr[index])
}

// Set sets the value of a float register.
func (fr *FloatRegisters) Set(index int, value float32) {
	fr[index] = math.Float32bits(value)
}

// GetBits returns the raw pattern of a float register.
func (fr *FloatRegisters) GetBits(index int) uint32 {
	return fr[index]
}

// SetBits sets the raw pattern of a float register.
func (fr *FloatRegisters) SetBits(index int, bits uint32) {
	fr[index] = bits
}

// Reset clears all float registers to +0.0.
func (fr *FloatRegisters) Reset() {
	clear(fr[:])
}

// FloatRegisterName returns the assembly name of a float register.
func FloatRegisterName(index int) string {
	return fmt.Sprintf("F%d", index)
}

// ParseFloatRegister parses F0..F15.
func ParseFloatRegister(name string) (index int, ok bool) {
	if len(name) < 2 || (name[0] != 'F' && name[0] != 'f') {
		return
	}
	if strings.HasPrefix(name[1:], "+") || strings.HasPrefix(name[1:], "-") {
		return
	}
	value, err := strconv.Atoi(name[1:])
	if err != nil || value < 0 || value >= FLOAT_COUNT {
		return
	}
	index = value
	ok = true
	return
}
