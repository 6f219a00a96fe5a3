package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"math"
	"strings"
)

// INSTRUCTION_MAX is the longest possible encoded instruction: opcode,
// condition, and three operands with a 3 byte address and 3 byte offset.
const INSTRUCTION_MAX = 1 + 1 + 3*(1+3+3)

var _cpu_defines = map[string]string{
	"REGISTER_COUNT": fmt.Sprintf("%v", REGISTER_COUNT),
	"FLOAT_COUNT":    fmt.Sprintf("%v", FLOAT_COUNT),
	"STACK_LIMIT":    fmt.Sprintf("%v", STACK_LIMIT),
	"CODE_BASE":      fmt.Sprintf("0x%x", CODE_BASE),
	"ADDRESS_MASK":   fmt.Sprintf("0x%x", ADDRESS_MASK),
}

// Cpu is the simulation context for the Continuum93 CPU.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Pc       uint32         // Program counter.
	Register Registers      // General purpose registers, A..Z.
	Float    FloatRegisters // Float registers, F0..F15.
	Flags    Flags          // Flag register.
	Memory   *Memory        // Linear memory.
	Stack    Stack          // Call stack.
	Halted   bool           // Set by BREAK.

	Ticks int // Executed instruction counter.

	RepeatLimit int // If non-zero, block instructions may not repeat more often.

	// ColorConverter maps a packed 24-bit RGB value to the packed HSB
	// value written by RGB2HSB.
	ColorConverter func(rgb uint32) (hsb uint32)
}

// NewCpu creates a new CPU with a specifically sized memory.
func NewCpu(size uint) (cpu *Cpu) {
	cpu = &Cpu{
		Memory:         NewMemory(size),
		Pc:             CODE_BASE,
		ColorConverter: RGBToHSB,
	}

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	var sb strings.Builder

	state := "running"
	if cpu.Halted {
		state = "halted"
	}
	fmt.Fprintf(&sb, "   pc: %06x (%v)\n", cpu.Pc, state)
	fmt.Fprintf(&sb, "flags: %v\n", cpu.Flags)

	for row := 0; row < REGISTER_COUNT; row += 13 {
		var cells []string
		for n := row; n < min(row+13, REGISTER_COUNT); n++ {
			cells = append(cells, fmt.Sprintf("%c=%02x", 'A'+n, cpu.Register[n]))
		}
		fmt.Fprintf(&sb, " regs: %v\n", strings.Join(cells, " "))
	}

	for row := 0; row < FLOAT_COUNT; row += 4 {
		var cells []string
		for n := row; n < row+4; n++ {
			cells = append(cells, fmt.Sprintf("%-4v%-12g", FloatRegisterName(n)+"=", cpu.Float.Get(n)))
		}
		fmt.Fprintf(&sb, "float: %v\n", strings.TrimSpace(strings.Join(cells, " ")))
	}

	top, ok := cpu.Stack.Peek()
	if ok {
		fmt.Fprintf(&sb, "stack: %06x (depth %d)\n", top, len(cpu.Stack.Data))
	} else {
		fmt.Fprintf(&sb, "stack: ------\n")
	}

	text = sb.String()
	return
}

// Reset the CPU state.
// - Clears the registers, float registers, flags, stack and memory.
// - Zeros the tick counter.
// - Sets the program counter to CODE_BASE.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.Register.Reset()
	cpu.Float.Reset()
	cpu.Flags.Reset()
	cpu.Stack.Reset()
	cpu.Memory.Reset()
	cpu.Halted = false
	cpu.Ticks = 0
	cpu.Pc = CODE_BASE
}

// FetchInstruction decodes the instruction at the program counter.
func (cpu *Cpu) FetchInstruction() (inst Instruction, err error) {
	avail := cpu.Memory.Size() - int(min(uint64(cpu.Pc), uint64(cpu.Memory.Size())))
	code, err := cpu.Memory.Slice(cpu.Pc, min(avail, INSTRUCTION_MAX))
	if err == nil && len(code) == 0 {
		err = ErrAddress{Address: uint64(cpu.Pc), Width: 1}
	}
	if err != nil {
		err = errors.Join(ErrOpcode{Pc: cpu.Pc}, err)
		return
	}

	inst, err = Decode(code)
	if err != nil {
		err = errors.Join(ErrOpcode{Pc: cpu.Pc, Code: code[:1]}, err)
		return
	}

	return
}

// Tick executes a single CPU instruction cycle.
func (cpu *Cpu) Tick() (err error) {
	if cpu.Halted {
		err = ErrHalted
		return
	}

	inst, err := cpu.FetchInstruction()
	if err != nil {
		return
	}

	err = cpu.Execute(inst)
	return
}

// argError tags operand failures with their position.
var argError = [...]error{ErrOpcodeArg1, ErrOpcodeArg2, ErrOpcodeArg3}

// resolveAll resolves every operand of an instruction.
func (cpu *Cpu) resolveAll(inst Instruction) (locs []Location, err error) {
	locs = make([]Location, len(inst.Operands))
	for n, op := range inst.Operands {
		locs[n], err = cpu.Resolve(op)
		if err != nil {
			err = errors.Join(argError[n], err)
			return
		}
	}
	return
}

// writable verifies that loc can be written, tagging a failure with arg.
func writable(arg error, loc Location) (err error) {
	if !loc.Writable() {
		err = errors.Join(arg, ErrTargetReadOnly)
	}
	return
}

// Execute executes a single decoded instruction located at the program
// counter.
func (cpu *Cpu) Execute(inst Instruction) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode{Pc: cpu.Pc, Code: inst.Encode()}, err)
		}
	}()
	if cpu.Verbose {
		log.Printf("%06x: %v", cpu.Pc, inst)
	}

	next_pc := cpu.Pc + uint32(inst.Length())

	locs, err := cpu.resolveAll(inst)
	if err != nil {
		return
	}

	op := inst.Opcode.Base()
	switch {
	case inst.Opcode.Block():
		err = writable(ErrOpcodeArg1, locs[0])
		if err != nil {
			return
		}
		err = cpu.repeat(op, inst.Operands[1], locs[0], locs[1], locs[2])
	case op == OP_NOP:
		// pass
	case op == OP_BREAK:
		cpu.Halted = true
	case op == OP_JP, op == OP_JPC:
		if op == OP_JPC && !cpu.Flags.Test(inst.Cond) {
			break
		}
		next_pc = ROLE_COUNT.Read(locs[0])
	case op == OP_CALL, op == OP_CALLC:
		if op == OP_CALLC && !cpu.Flags.Test(inst.Cond) {
			break
		}
		err = cpu.Stack.Push(next_pc)
		if err != nil {
			return
		}
		next_pc = ROLE_COUNT.Read(locs[0])
	case op == OP_RET:
		next_pc, err = cpu.Stack.Pop()
		if err != nil {
			return
		}
	case op == OP_LD:
		err = writable(ErrOpcodeArg1, locs[0])
		if err != nil {
			return
		}
		copyValue(locs[0], locs[1])
	case op == OP_CP:
		cpu.compare(locs[0], locs[1], false)
	case op == OP_SCP:
		cpu.compare(locs[0], locs[1], true)
	case op == OP_BIT:
		result := locs[0].Bits() & ROLE_VALUE.Read(locs[1])
		cpu.Flags.SetZero(result == 0)
	case op == OP_DIVR, op == OP_SDIVR:
		err = writable(ErrOpcodeArg1, locs[0])
		if err != nil {
			return
		}
		err = writable(ErrOpcodeArg3, locs[2])
		if err != nil {
			return
		}
		err = cpu.divide(op == OP_SDIVR, locs[0], locs[1], locs[2])
	case op == OP_INC, op == OP_DEC:
		err = writable(ErrOpcodeArg1, locs[0])
		if err != nil {
			return
		}
		cpu.step(op == OP_DEC, locs[0])
	case op == OP_RGB2HSB:
		err = writable(ErrOpcodeArg1, locs[0])
		if err != nil {
			return
		}
		rgb := ROLE_VALUE.Read(locs[1]) & 0xffffff
		locs[0].SetBits(cpu.ColorConverter(rgb) & widthMask(locs[0].Width()))
	default:
		err = writable(ErrOpcodeArg1, locs[0])
		if err != nil {
			return
		}
		err = cpu.apply(op, locs[0], locs[1])
	}
	if err != nil {
		return
	}

	cpu.Pc = next_pc
	cpu.Ticks += 1

	return
}

// repeat applies a block operation count times to the same destination.
// The value operand is resolved again for every repetition.
func (cpu *Cpu) repeat(op Opcode, value Operand, dst Location, src Location, count Location) (err error) {
	times := ROLE_COUNT.Read(count)
	if cpu.RepeatLimit > 0 && uint64(times) > uint64(cpu.RepeatLimit) {
		err = errors.Join(ErrOpcodeArg3, ErrRepeatLimit)
		return
	}
	for n := range times {
		if n > 0 {
			src, err = cpu.Resolve(value)
			if err != nil {
				err = errors.Join(ErrOpcodeArg2, err)
				return
			}
		}
		err = cpu.apply(op, dst, src)
		if err != nil {
			return
		}
	}
	return
}

// apply performs a single dest, value operation.
func (cpu *Cpu) apply(op Opcode, dst, src Location) (err error) {
	switch op {
	case OP_ADD, OP_SUB, OP_MUL:
		cpu.arithmetic(op, dst, src)
	case OP_DIV, OP_SDIV:
		err = cpu.divide(op == OP_SDIV, dst, src, nil)
	case OP_AND, OP_OR, OP_XOR, OP_NAND, OP_NOR, OP_XNOR:
		result := doBitwise(op, dst.Bits(), ROLE_VALUE.Read(src)) & widthMask(dst.Width())
		dst.SetBits(result)
		cpu.Flags.SetZero(result == 0)
	case OP_SL, OP_SR, OP_RL, OP_RR:
		dst.SetBits(doShift(op, dst.Bits(), dst.Width(), ROLE_COUNT.Read(src)))
	default:
		err = ErrOpcodeDecode
	}
	return
}

// compare sets the flags from comparing a to b.
func (cpu *Cpu) compare(a, b Location, signed bool) {
	if a.IsFloat() || b.IsFloat() {
		if signed {
			SetFromComparison(&cpu.Flags, signedNumericOf(a), signedNumericOf(b))
		} else {
			SetFromComparison(&cpu.Flags, numericOf(a), numericOf(b))
		}
		return
	}

	width := min(a.Width(), b.Width())
	av := a.Bits() & widthMask(width)
	bv := b.Bits() & widthMask(width)
	if signed {
		SetFromComparison(&cpu.Flags, signExtend(av, width), signExtend(bv, width))
	} else {
		SetFromComparison(&cpu.Flags, av, bv)
	}
}

// arithmetic performs ADD, SUB or MUL.
func (cpu *Cpu) arithmetic(op Opcode, dst, src Location) {
	if dst.IsFloat() || src.IsFloat() {
		a := float32(numericOf(dst))
		b := float32(numericOf(src))
		var result float32
		switch op {
		case OP_ADD:
			result = a + b
		case OP_SUB:
			result = a - b
		case OP_MUL:
			result = a * b
		}
		storeNumeric(dst, float64(result))
		cpu.Flags.SetZero(numericOf(dst) == 0)
		return
	}

	a := dst.Bits()
	b := src.Bits()
	var result uint32
	switch op {
	case OP_ADD:
		result = a + b
	case OP_SUB:
		result = a - b
	case OP_MUL:
		result = a * b
	}
	result &= widthMask(dst.Width())
	dst.SetBits(result)
	cpu.Flags.SetZero(result == 0)
}

// step performs INC or DEC.
func (cpu *Cpu) step(down bool, dst Location) {
	if dst.IsFloat() {
		value := math.Float32frombits(dst.Bits())
		if down {
			value -= 1
		} else {
			value += 1
		}
		dst.SetBits(math.Float32bits(value))
		cpu.Flags.SetZero(value == 0)
		return
	}

	value := dst.Bits()
	if down {
		value -= 1
	} else {
		value += 1
	}
	value &= widthMask(dst.Width())
	dst.SetBits(value)
	cpu.Flags.SetZero(value == 0)
}

// divide performs DIV or SDIV, with an optional remainder location.
// Nothing is written when the divisor is zero.
func (cpu *Cpu) divide(signed bool, dst, src, rem Location) (err error) {
	if dst.IsFloat() || src.IsFloat() {
		var a, b float64
		if signed {
			a, b = signedNumericOf(dst), signedNumericOf(src)
		} else {
			a, b = numericOf(dst), numericOf(src)
		}
		if float32(b) == 0 {
			err = ErrDivisionByZero
			return
		}
		quotient := float32(a) / float32(b)
		storeNumeric(dst, float64(quotient))
		if rem != nil {
			storeNumeric(rem, math.Mod(float64(float32(a)), float64(float32(b))))
		}
		cpu.Flags.SetZero(numericOf(dst) == 0)
		return
	}

	if signed {
		a, b := signedOf(dst), signedOf(src)
		if b == 0 {
			err = ErrDivisionByZero
			return
		}
		storeInteger(dst, a/b)
		if rem != nil {
			storeInteger(rem, a%b)
		}
	} else {
		a, b := dst.Bits(), src.Bits()
		if b == 0 {
			err = ErrDivisionByZero
			return
		}
		dst.SetBits((a / b) & widthMask(dst.Width()))
		if rem != nil {
			storeInteger(rem, int64(a%b))
		}
	}
	cpu.Flags.SetZero(dst.Bits() == 0)

	return
}

// signedNumericOf returns the numeric value of loc, with integers sign
// extended from their width.
func signedNumericOf(loc Location) float64 {
	if loc.IsFloat() {
		return numericOf(loc)
	}
	return float64(signedOf(loc))
}

// doBitwise performs the requested bitwise operation.
func doBitwise(op Opcode, input uint32, value uint32) (output uint32) {
	switch op {
	case OP_AND: // and
		output = input & value
	case OP_OR: // or
		output = input | value
	case OP_XOR: // xor
		output = input ^ value
	case OP_NAND: // nand
		output = ^(input & value)
	case OP_NOR: // nor
		output = ^(input | value)
	case OP_XNOR: // xnor
		output = ^(input ^ value)
	}

	return
}

// doShift shifts or rotates the width byte input by count modulo the bit
// width.
func doShift(op Opcode, input uint32, width int, count uint32) (output uint32) {
	size := uint32(8 * width)
	mask := widthMask(width)
	input &= mask
	count %= size

	switch op {
	case OP_SL:
		output = input << count
	case OP_SR:
		output = input >> count
	case OP_RL:
		output = input<<count | input>>(size-count)
	case OP_RR:
		output = input>>count | input<<(size-count)
	}

	output &= mask
	return
}
