package cpu

import (
	"math"
)

// Memory is a flat, big-endian, byte addressable store.
//
// The typed accessors assume the range was validated with Check; the
// Operand Resolver and instruction fetch always do so.
type Memory struct {
	Data []byte
}

// NewMemory creates a zeroed memory of size bytes.
func NewMemory(size uint) (mem *Memory) {
	mem = &Memory{
		Data: make([]byte, size),
	}
	return
}

// Size returns the memory size in bytes.
func (mem *Memory) Size() int {
	return len(mem.Data)
}

// Check verifies that width bytes at addr are inside memory.
func (mem *Memory) Check(addr uint32, width int) (err error) {
	end := uint64(addr) + uint64(width)
	if end > uint64(len(mem.Data)) {
		err = ErrAddress{Address: uint64(addr), Width: width}
	}
	return
}

// Reset zeroes all of memory.
func (mem *Memory) Reset() {
	clear(mem.Data)
}

// Load copies data into memory at addr.
func (mem *Memory) Load(addr uint32, data []byte) (err error) {
	err = mem.Check(addr, len(data))
	if err != nil {
		return
	}
	copy(mem.Data[addr:], data)
	return
}

// Slice returns n bytes of memory starting at addr.
func (mem *Memory) Slice(addr uint32, n int) (data []byte, err error) {
	err = mem.Check(addr, n)
	if err != nil {
		return
	}
	data = mem.Data[addr : int(addr)+n]
	return
}

// Get reads a width byte big-endian value.
func (mem *Memory) Get(addr uint32, width int) (value uint32) {
	for n := range width {
		value = (value << 8) | uint32(mem.Data[int(addr)+n])
	}
	return
}

// Set writes the low width bytes of value, big-endian.
func (mem *Memory) Set(addr uint32, width int, value uint32) {
	for n := width - 1; n >= 0; n-- {
		mem.Data[int(addr)+n] = uint8(value)
		value >>= 8
	}
}

func (mem *Memory) Get8(addr uint32) uint8 {
	return mem.Data[addr]
}

func (mem *Memory) Set8(addr uint32, value uint8) {
	mem.Data[addr] = value
}

func (mem *Memory) Get16(addr uint32) uint16 {
	return uint16(mem.Get(addr, 2))
}

func (mem *Memory) Set16(addr uint32, value uint16) {
	mem.Set(addr, 2, uint32(value))
}

// Get24 reads a 24-bit value into the low bits of the result.
func (mem *Memory) Get24(addr uint32) uint32 {
	return mem.Get(addr, 3)
}

func (mem *Memory) Set24(addr uint32, value uint32) {
	mem.Set(addr, 3, value)
}

func (mem *Memory) Get32(addr uint32) uint32 {
	return mem.Get(addr, 4)
}

func (mem *Memory) Set32(addr uint32, value uint32) {
	mem.Set(addr, 4, value)
}

// GetFloat reinterprets 4 bytes at addr as an IEEE-754 value.
func (mem *Memory) GetFloat(addr uint32) float32 {
	return math.Float32frombits(mem.Get32(addr))
}

func (mem *Memory) SetFloat(addr uint32, value float32) {
	mem.Set32(addr, math.Float32bits(value))
}
