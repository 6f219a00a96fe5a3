package cpu

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Mode is an operand addressing mode.
//
// An operand is encoded as a descriptor byte, followed by a payload whose
// length is fixed by the descriptor:
//
//	mode<<4 | (width-1)<<2 | (aux-1)
//
// For memory modes width is the access width. aux is the size of a
// constant offset and is 1 for every other mode.
//
//go:generate go tool stringer -linecomment -type=Mode
type Mode int

const (
	MODE_REG        = Mode(0)  // reg
	MODE_FREG       = Mode(1)  // freg
	MODE_IMM        = Mode(2)  // imm
	MODE_IMMF       = Mode(3)  // immf
	MODE_ABS        = Mode(4)  // abs
	MODE_ABS_CONST  = Mode(5)  // abs+const
	MODE_ABS_REG    = Mode(6)  // abs+reg
	MODE_PTR        = Mode(7)  // ptr
	MODE_PTR_CONST  = Mode(8)  // ptr+const
	MODE_PTR_REG    = Mode(9)  // ptr+reg
	MODE_FABS       = Mode(10) // fabs
	MODE_FABS_CONST = Mode(11) // fabs+const
	MODE_FABS_REG   = Mode(12) // fabs+reg
	MODE_FPTR       = Mode(13) // fptr
	MODE_FPTR_CONST = Mode(14) // fptr+const
	MODE_FPTR_REG   = Mode(15) // fptr+reg

	mode_float_shift = MODE_FABS - MODE_ABS
)

// Memory returns true if the mode addresses memory.
func (mode Mode) Memory() bool {
	return mode >= MODE_ABS && mode <= MODE_FPTR_REG
}

// Float returns true if the mode selects the float value domain.
func (mode Mode) Float() bool {
	return mode == MODE_FREG || mode == MODE_IMMF || mode >= MODE_FABS
}

// integer returns the integer-domain equivalent of a memory mode.
func (mode Mode) integer() Mode {
	if mode >= MODE_FABS {
		return mode - mode_float_shift
	}
	return mode
}

// Pointer returns true if the memory base is a register chain.
func (mode Mode) Pointer() bool {
	switch mode.integer() {
	case MODE_PTR, MODE_PTR_CONST, MODE_PTR_REG:
		return true
	}
	return false
}

// ConstOffset returns true if the mode carries a literal offset.
func (mode Mode) ConstOffset() bool {
	switch mode.integer() {
	case MODE_ABS_CONST, MODE_PTR_CONST:
		return true
	}
	return false
}

// RegOffset returns true if the mode carries a register chain offset.
func (mode Mode) RegOffset() bool {
	switch mode.integer() {
	case MODE_ABS_REG, MODE_PTR_REG:
		return true
	}
	return false
}

// Chain is a register chain reference: Width registers starting at Index.
type Chain struct {
	Index int
	Width int
}

func (c Chain) String() string {
	return RegisterName(c.Index, c.Width)
}

// encode packs a pointer or offset chain into its payload byte.
func (c Chain) encode() byte {
	return byte((c.Width-1)<<5 | c.Index)
}

func decodeChain(b byte) (c Chain, err error) {
	c = Chain{Index: int(b & 0x1f), Width: int(b>>5) + 1}
	if c.Index >= REGISTER_COUNT || c.Width > 3 {
		err = ErrOperandDecode
	}
	return
}

// Operand is a decoded operand descriptor.
type Operand struct {
	Mode  Mode
	Width int    // Chain width, immediate width, or memory access width, in bytes.
	Index int    // Register chain start, or float register index.
	Value uint32 // Immediate value, immediate float bits, or absolute address.

	Base        Chain  // Pointer base chain.
	Offset      uint32 // Constant offset.
	OffsetWidth int    // Size of the constant offset, in bytes.
	OffsetReg   Chain  // Register chain offset.
}

// MakeOperandReg creates a register chain operand.
func MakeOperandReg(start, width int) Operand {
	return Operand{Mode: MODE_REG, Width: width, Index: start}
}

// MakeOperandFloat creates a float register operand.
func MakeOperandFloat(index int) Operand {
	return Operand{Mode: MODE_FREG, Width: 4, Index: index}
}

// MakeOperandImm creates a width byte immediate operand.
func MakeOperandImm(width int, value uint32) Operand {
	return Operand{Mode: MODE_IMM, Width: width, Value: value & widthMask(width)}
}

// MakeOperandImmFloat creates a float immediate operand.
func MakeOperandImmFloat(value float32) Operand {
	return Operand{Mode: MODE_IMMF, Width: 4, Value: math.Float32bits(value)}
}

// MakeOperandAbs creates an absolute memory operand, (addr).
func MakeOperandAbs(width int, addr uint32) Operand {
	return Operand{Mode: MODE_ABS, Width: width, Value: addr & ADDRESS_MASK}
}

// MakeOperandAbsOffset creates an absolute memory operand with a literal
// offset, (addr + offset).
func MakeOperandAbsOffset(width int, addr uint32, offset uint32, offsetWidth int) Operand {
	return Operand{Mode: MODE_ABS_CONST, Width: width, Value: addr & ADDRESS_MASK,
		Offset: offset & widthMask(offsetWidth), OffsetWidth: offsetWidth}
}

// MakeOperandAbsIndex creates an absolute memory operand with a register
// offset, (addr + R).
func MakeOperandAbsIndex(width int, addr uint32, index Chain) Operand {
	return Operand{Mode: MODE_ABS_REG, Width: width, Value: addr & ADDRESS_MASK, OffsetReg: index}
}

// MakeOperandPtr creates a register pointer operand, (ABC).
func MakeOperandPtr(width int, base Chain) Operand {
	return Operand{Mode: MODE_PTR, Width: width, Base: base}
}

// MakeOperandPtrOffset creates a register pointer operand with a literal
// offset, (ABC + offset).
func MakeOperandPtrOffset(width int, base Chain, offset uint32, offsetWidth int) Operand {
	return Operand{Mode: MODE_PTR_CONST, Width: width, Base: base,
		Offset: offset & widthMask(offsetWidth), OffsetWidth: offsetWidth}
}

// MakeOperandPtrIndex creates a register pointer operand with a register
// offset, (ABC + R).
func MakeOperandPtrIndex(width int, base Chain, index Chain) Operand {
	return Operand{Mode: MODE_PTR_REG, Width: width, Base: base, OffsetReg: index}
}

// AsFloat moves a memory operand into the float value domain.
func (op Operand) AsFloat() Operand {
	if op.Mode.Memory() && !op.Mode.Float() {
		op.Mode += mode_float_shift
		op.Width = 4
	}
	return op
}

// Writable returns true if the operand can be a destination.
func (op Operand) Writable() bool {
	return op.Mode != MODE_IMM && op.Mode != MODE_IMMF
}

// aux returns the descriptor aux field value.
func (op Operand) aux() int {
	if op.Mode.ConstOffset() {
		return op.OffsetWidth
	}
	return 1
}

// Size returns the encoded size of the operand, in bytes.
func (op Operand) Size() (size int) {
	size = 1
	switch mode := op.Mode.integer(); mode {
	case MODE_REG, MODE_FREG:
		size += 1
	case MODE_IMM:
		size += op.Width
	case MODE_IMMF:
		size += 4
	default:
		if mode.Pointer() {
			size += 1
		} else {
			size += 3
		}
		if mode.ConstOffset() {
			size += op.OffsetWidth
		}
		if mode.RegOffset() {
			size += 1
		}
	}
	return
}

// Encode returns the descriptor and payload bytes of the operand.
func (op Operand) Encode() (code []byte) {
	code = append(code, byte(op.Mode)<<4|byte(op.Width-1)<<2|byte(op.aux()-1))

	switch mode := op.Mode.integer(); mode {
	case MODE_REG, MODE_FREG:
		code = append(code, byte(op.Index))
	case MODE_IMM, MODE_IMMF:
		code = appendBigEndian(code, op.Width, op.Value)
	default:
		if mode.Pointer() {
			code = append(code, op.Base.encode())
		} else {
			code = appendBigEndian(code, 3, op.Value)
		}
		if mode.ConstOffset() {
			code = appendBigEndian(code, op.OffsetWidth, op.Offset)
		}
		if mode.RegOffset() {
			code = append(code, op.OffsetReg.encode())
		}
	}

	return
}

// DecodeOperand decodes one operand from the start of code, returning it and
// its encoded size.
func DecodeOperand(code []byte) (op Operand, size int, err error) {
	if len(code) == 0 {
		err = ErrTruncated
		return
	}

	desc := code[0]
	op.Mode = Mode(desc >> 4)
	op.Width = int((desc>>2)&3) + 1
	aux := int(desc&3) + 1

	if op.Mode.ConstOffset() {
		if aux > 3 {
			err = ErrOperandDecode
			return
		}
		op.OffsetWidth = aux
	} else if aux != 1 {
		err = ErrOperandDecode
		return
	}

	if op.Mode.Float() && op.Width != 4 {
		err = ErrOperandDecode
		return
	}

	size = op.Size()
	if len(code) < size {
		err = ErrTruncated
		return
	}
	payload := code[1:size]

	switch mode := op.Mode.integer(); mode {
	case MODE_REG:
		op.Index = int(payload[0])
		if op.Index >= REGISTER_COUNT {
			err = ErrOperandDecode
		}
	case MODE_FREG:
		op.Index = int(payload[0])
		if op.Index >= FLOAT_COUNT {
			err = ErrOperandDecode
		}
	case MODE_IMM, MODE_IMMF:
		op.Value = readBigEndian(payload, op.Width)
	default:
		if mode.Pointer() {
			op.Base, err = decodeChain(payload[0])
			payload = payload[1:]
		} else {
			op.Value = readBigEndian(payload, 3)
			payload = payload[3:]
		}
		if err != nil {
			return
		}
		if mode.ConstOffset() {
			op.Offset = readBigEndian(payload, op.OffsetWidth)
		}
		if mode.RegOffset() {
			op.OffsetReg, err = decodeChain(payload[0])
		}
	}

	return
}

// String returns the assembly language form of the operand.
func (op Operand) String() string {
	switch op.Mode {
	case MODE_REG:
		return RegisterName(op.Index, op.Width)
	case MODE_FREG:
		return FloatRegisterName(op.Index)
	case MODE_IMM:
		return fmt.Sprintf("0x%x", op.Value)
	case MODE_IMMF:
		text := strconv.FormatFloat(float64(math.Float32frombits(op.Value)), 'g', -1, 32)
		if !strings.ContainsAny(text, ".eEnN") {
			text += ".0"
		}
		return text
	}

	var sb strings.Builder
	if op.Mode.Float() {
		sb.WriteString("float ")
	}
	sb.WriteString("(")
	if op.Mode.Pointer() {
		sb.WriteString(op.Base.String())
	} else {
		fmt.Fprintf(&sb, "0x%06x", op.Value)
	}
	if op.Mode.ConstOffset() {
		fmt.Fprintf(&sb, " + 0x%x", op.Offset)
	}
	if op.Mode.RegOffset() {
		fmt.Fprintf(&sb, " + %v", op.OffsetReg)
	}
	sb.WriteString(")")
	return sb.String()
}

// widthMask returns the mask of a width byte value.
func widthMask(width int) uint32 {
	if width >= 4 {
		return 0xffffffff
	}
	return (1 << (8 * width)) - 1
}

func appendBigEndian(code []byte, width int, value uint32) []byte {
	for n := width - 1; n >= 0; n-- {
		code = append(code, byte(value>>(8*n)))
	}
	return code
}

func readBigEndian(data []byte, width int) (value uint32) {
	for n := range width {
		value = (value << 8) | uint32(data[n])
	}
	return
}
