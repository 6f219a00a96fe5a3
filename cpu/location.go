package cpu

import (
	"fmt"
	"math"
)

// Location is a resolved operand: a readable, possibly writable slot of a
// known width and value domain.
//
// Bits and SetBits move the raw pattern: an integer masked to Width bytes,
// or the IEEE-754 pattern of a float location.
type Location interface {
	Width() int     // Width in bytes.
	IsFloat() bool  // Float value domain.
	Writable() bool // Can be a destination.
	Bits() uint32   // Raw value.
	SetBits(uint32) // Store a raw value, truncated to Width.
}

// chainLocation is a register chain.
type chainLocation struct {
	regs  *Registers
	chain Chain
}

func (loc *chainLocation) Width() int     { return loc.chain.Width }
func (loc *chainLocation) IsFloat() bool  { return false }
func (loc *chainLocation) Writable() bool { return true }
func (loc *chainLocation) Bits() uint32 {
	return loc.regs.ReadChain(loc.chain.Index, loc.chain.Width)
}
func (loc *chainLocation) SetBits(value uint32) {
	loc.regs.WriteChain(loc.chain.Index, loc.chain.Width, value)
}
func (loc *chainLocation) String() string { return loc.chain.String() }

// floatLocation is a float register.
type floatLocation struct {
	floats *FloatRegisters
	index  int
}

func (loc *floatLocation) Width() int           { return 4 }
func (loc *floatLocation) IsFloat() bool        { return true }
func (loc *floatLocation) Writable() bool       { return true }
func (loc *floatLocation) Bits() uint32         { return loc.floats.GetBits(loc.index) }
func (loc *floatLocation) SetBits(value uint32) { loc.floats.SetBits(loc.index, value) }
func (loc *floatLocation) String() string       { return FloatRegisterName(loc.index) }

// memoryLocation is a range-checked memory cell.
type memoryLocation struct {
	mem     *Memory
	address uint32
	width   int
	float   bool
}

func (loc *memoryLocation) Width() int     { return loc.width }
func (loc *memoryLocation) IsFloat() bool  { return loc.float }
func (loc *memoryLocation) Writable() bool { return true }
func (loc *memoryLocation) Bits() uint32 {
	return loc.mem.Get(loc.address, loc.width)
}
func (loc *memoryLocation) SetBits(value uint32) {
	loc.mem.Set(loc.address, loc.width, value)
}
func (loc *memoryLocation) String() string {
	return fmt.Sprintf("(0x%06x)", loc.address)
}

// immediateLocation is a literal from the instruction stream.
type immediateLocation struct {
	width int
	float bool
	value uint32
}

func (loc *immediateLocation) Width() int       { return loc.width }
func (loc *immediateLocation) IsFloat() bool    { return loc.float }
func (loc *immediateLocation) Writable() bool   { return false }
func (loc *immediateLocation) Bits() uint32     { return loc.value }
func (loc *immediateLocation) SetBits(_ uint32) {}
func (loc *immediateLocation) String() string   { return fmt.Sprintf("0x%x", loc.value) }

// Address computes the effective address of a memory operand from live
// register state.
func (cpu *Cpu) Address(op Operand) (addr uint32) {
	if op.Mode.Pointer() {
		addr = cpu.Register.ReadChain(op.Base.Index, op.Base.Width)
	} else {
		addr = op.Value
	}

	if op.Mode.ConstOffset() {
		addr += op.Offset
	}
	if op.Mode.RegOffset() {
		addr += cpu.Register.ReadChain(op.OffsetReg.Index, op.OffsetReg.Width)
	}

	return
}

// Resolve turns an operand descriptor into a Location.
//
// Pointer and offset registers are read at every call. Resolution never
// modifies machine state; memory ranges are checked here so a Location
// never faults.
func (cpu *Cpu) Resolve(op Operand) (loc Location, err error) {
	switch op.Mode {
	case MODE_REG:
		loc = &chainLocation{regs: &cpu.Register, chain: Chain{Index: op.Index, Width: op.Width}}
	case MODE_FREG:
		loc = &floatLocation{floats: &cpu.Float, index: op.Index}
	case MODE_IMM:
		loc = &immediateLocation{width: op.Width, value: op.Value & widthMask(op.Width)}
	case MODE_IMMF:
		loc = &immediateLocation{width: 4, float: true, value: op.Value}
	default:
		// Hand built operands can carry modes no descriptor encodes.
		if !op.Mode.Memory() {
			err = ErrOperandDecode
			return
		}
		addr := cpu.Address(op)
		err = cpu.Memory.Check(addr, op.Width)
		if err != nil {
			return
		}
		loc = &memoryLocation{mem: cpu.Memory, address: addr, width: op.Width, float: op.Mode.Float()}
	}

	return
}

// Role selects how an integer is read from a float Location.
//
//go:generate go tool stringer -linecomment -type=Role
type Role int

const (
	ROLE_VALUE = Role(0) // value: a float's raw IEEE-754 pattern
	ROLE_COUNT = Role(1) // count: a float's numeric value, truncated and clamped
)

// Read reads loc as an unsigned integer under the role's float rule.
func (role Role) Read(loc Location) uint32 {
	if role == ROLE_COUNT && loc.IsFloat() {
		return clampCount(float64(math.Float32frombits(loc.Bits())))
	}
	return loc.Bits()
}

// clampCount truncates a float count toward zero into [0, 0xffffffff].
// NaN and negative values count as 0.
func clampCount(value float64) uint32 {
	switch {
	case math.IsNaN(value), value <= 0:
		return 0
	case value >= math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(value)
}

// numericOf returns the numeric value of loc: a float's value, or an
// integer's unsigned value.
func numericOf(loc Location) float64 {
	if loc.IsFloat() {
		return float64(math.Float32frombits(loc.Bits()))
	}
	return float64(loc.Bits())
}

// signedOf returns an integer loc sign extended from its own width.
func signedOf(loc Location) int64 {
	return signExtend(loc.Bits(), loc.Width())
}

// storeNumeric stores a numeric value into loc, converting domains: float
// locations take the nearest float32, integer locations the value truncated
// toward zero and reduced modulo the width.
func storeNumeric(loc Location, value float64) {
	if loc.IsFloat() {
		loc.SetBits(math.Float32bits(float32(value)))
		return
	}
	loc.SetBits(truncateFloat(value, loc.Width()))
}

// storeInteger stores a signed integer into loc, converting to float for
// float locations.
func storeInteger(loc Location, value int64) {
	if loc.IsFloat() {
		loc.SetBits(math.Float32bits(float32(value)))
		return
	}
	loc.SetBits(uint32(value) & widthMask(loc.Width()))
}

// copyValue implements LD: a numeric copy between value domains.
func copyValue(dst, src Location) {
	switch {
	case dst.IsFloat() == src.IsFloat():
		dst.SetBits(src.Bits() & widthMask(dst.Width()))
	default:
		storeNumeric(dst, numericOf(src))
	}
}

// truncateFloat truncates value toward zero into a width byte two's
// complement integer. NaN is 0; values beyond 64 bits saturate first.
func truncateFloat(value float64, width int) uint32 {
	var whole int64
	switch {
	case math.IsNaN(value):
		whole = 0
	case value >= 0x1p63:
		whole = math.MaxInt64
	case value < -0x1p63:
		whole = math.MinInt64
	default:
		whole = int64(value)
	}
	return uint32(whole) & widthMask(width)
}

// signExtend interprets the low width bytes of value as two's complement.
func signExtend(value uint32, width int) int64 {
	shift := 64 - 8*uint(width)
	return int64(uint64(value)<<shift) >> shift
}
