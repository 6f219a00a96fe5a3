package cpu

import (
	"strings"
)

// Registers is the general purpose register file, A..Z.
//
// Any 1 to 4 consecutive registers form a chain, read and written as one
// big-endian unsigned integer. Chains wrap from Z back to A.
type Registers [REGISTER_COUNT]uint8

// Get returns a single register.
func (r *Registers) Get(index int) uint8 {
	return r[wrapRegister(index)]
}

// Set sets a single register.
func (r *Registers) Set(index int, value uint8) {
	r[wrapRegister(index)] = value
}

// ReadChain reads the width byte chain starting at start, most significant
// byte first.
func (r *Registers) ReadChain(start int, width int) (value uint32) {
	for n := range width {
		value = (value << 8) | uint32(r[wrapRegister(start+n)])
	}
	return
}

// WriteChain writes the low width bytes of value to the chain starting at
// start.
func (r *Registers) WriteChain(start int, width int, value uint32) {
	for n := width - 1; n >= 0; n-- {
		r[wrapRegister(start+n)] = uint8(value)
		value >>= 8
	}
}

// Reset clears all registers.
func (r *Registers) Reset() {
	clear(r[:])
}

func wrapRegister(index int) int {
	index %= REGISTER_COUNT
	if index < 0 {
		index += REGISTER_COUNT
	}
	return index
}

// RegisterName returns the assembly name of a register chain, e.g. "YZAB".
func RegisterName(start int, width int) string {
	var sb strings.Builder
	for n := range width {
		sb.WriteByte(byte('A' + wrapRegister(start+n)))
	}
	return sb.String()
}

// ParseRegister parses a register chain name. Letters must be consecutive,
// wrapping from Z to A.
func ParseRegister(name string) (start int, width int, ok bool) {
	name = strings.ToUpper(name)
	if len(name) < 1 || len(name) > 4 {
		return
	}
	for n := range len(name) {
		c := name[n]
		if c < 'A' || c > 'Z' {
			return
		}
		if n > 0 && int(c-'A') != wrapRegister(int(name[n-1]-'A')+1) {
			return
		}
	}

	start = int(name[0] - 'A')
	width = len(name)
	ok = true
	return
}
