package cpu

import (
	"fmt"
	"strings"
)

// Opcode is the first byte of an instruction.
type Opcode uint8

const (
	OP_NOP   = Opcode(0x00) // NOP
	OP_BREAK = Opcode(0x01) // BREAK
	OP_JP    = Opcode(0x02) // JP
	OP_JPC   = Opcode(0x03) // JP cc
	OP_CALL  = Opcode(0x04) // CALL
	OP_CALLC = Opcode(0x05) // CALL cc
	OP_RET   = Opcode(0x06) // RET

	OP_LD  = Opcode(0x10) // LD
	OP_CP  = Opcode(0x11) // CP
	OP_SCP = Opcode(0x12) // SCP
	OP_BIT = Opcode(0x13) // BIT

	OP_ADD   = Opcode(0x18) // ADD
	OP_SUB   = Opcode(0x19) // SUB
	OP_MUL   = Opcode(0x1a) // MUL
	OP_DIV   = Opcode(0x1b) // DIV
	OP_SDIV  = Opcode(0x1c) // SDIV
	OP_DIVR  = Opcode(0x1d) // DIV with remainder
	OP_SDIVR = Opcode(0x1e) // SDIV with remainder
	OP_INC   = Opcode(0x1f) // INC
	OP_DEC   = Opcode(0x20) // DEC

	OP_AND  = Opcode(0x28) // AND
	OP_OR   = Opcode(0x29) // OR
	OP_XOR  = Opcode(0x2a) // XOR
	OP_NAND = Opcode(0x2b) // NAND
	OP_NOR  = Opcode(0x2c) // NOR
	OP_XNOR = Opcode(0x2d) // XNOR

	OP_SL = Opcode(0x30) // SL
	OP_SR = Opcode(0x31) // SR
	OP_RL = Opcode(0x32) // RL
	OP_RR = Opcode(0x33) // RR

	OP_RGB2HSB = Opcode(0x38) // RGB2HSB

	OP_BLOCK = Opcode(0x80) // Block/repeat flag: dest, value, repeat.
)

// opcodeInfo describes the encoding shape of an opcode.
type opcodeInfo struct {
	name     string
	operands int  // Operand descriptors following the opcode.
	cond     bool // A condition byte precedes the operands.
	block    bool // Has a block/repeat form.
}

var opcodeTable = map[Opcode]opcodeInfo{
	OP_NOP:     {name: "NOP"},
	OP_BREAK:   {name: "BREAK"},
	OP_JP:      {name: "JP", operands: 1},
	OP_JPC:     {name: "JP", operands: 1, cond: true},
	OP_CALL:    {name: "CALL", operands: 1},
	OP_CALLC:   {name: "CALL", operands: 1, cond: true},
	OP_RET:     {name: "RET"},
	OP_LD:      {name: "LD", operands: 2},
	OP_CP:      {name: "CP", operands: 2},
	OP_SCP:     {name: "SCP", operands: 2},
	OP_BIT:     {name: "BIT", operands: 2},
	OP_ADD:     {name: "ADD", operands: 2, block: true},
	OP_SUB:     {name: "SUB", operands: 2, block: true},
	OP_MUL:     {name: "MUL", operands: 2, block: true},
	OP_DIV:     {name: "DIV", operands: 2, block: true},
	OP_SDIV:    {name: "SDIV", operands: 2, block: true},
	OP_DIVR:    {name: "DIV", operands: 3},
	OP_SDIVR:   {name: "SDIV", operands: 3},
	OP_INC:     {name: "INC", operands: 1},
	OP_DEC:     {name: "DEC", operands: 1},
	OP_AND:     {name: "AND", operands: 2, block: true},
	OP_OR:      {name: "OR", operands: 2, block: true},
	OP_XOR:     {name: "XOR", operands: 2, block: true},
	OP_NAND:    {name: "NAND", operands: 2, block: true},
	OP_NOR:     {name: "NOR", operands: 2, block: true},
	OP_XNOR:    {name: "XNOR", operands: 2, block: true},
	OP_SL:      {name: "SL", operands: 2, block: true},
	OP_SR:      {name: "SR", operands: 2, block: true},
	OP_RL:      {name: "RL", operands: 2, block: true},
	OP_RR:      {name: "RR", operands: 2, block: true},
	OP_RGB2HSB: {name: "RGB2HSB", operands: 2},
}

// Base returns the opcode with the block flag removed.
func (op Opcode) Base() Opcode {
	return op &^ OP_BLOCK
}

// Block returns true for the block/repeat form of an opcode.
func (op Opcode) Block() bool {
	return op&OP_BLOCK != 0
}

// info returns the encoding shape of the opcode.
func (op Opcode) info() (info opcodeInfo, ok bool) {
	info, ok = opcodeTable[op.Base()]
	if !ok {
		return
	}
	if op.Block() {
		if !info.block {
			ok = false
			return
		}
		info.operands = 3
	}
	return
}

// Valid returns true if the opcode has a defined encoding.
func (op Opcode) Valid() bool {
	_, ok := op.info()
	return ok
}

// Operands returns the number of operand descriptors the opcode takes.
func (op Opcode) Operands() int {
	info, _ := op.info()
	return info.operands
}

func (op Opcode) String() string {
	info, ok := op.info()
	if !ok {
		return fmt.Sprintf("Opcode(0x%02x)", uint8(op))
	}
	return info.name
}

// Cond is a jump condition code.
//
//go:generate go tool stringer -linecomment -type=Cond
type Cond uint8

const (
	COND_Z   = Cond(0) // Z
	COND_NZ  = Cond(1) // NZ
	COND_EQ  = Cond(2) // EQ
	COND_NE  = Cond(3) // NE
	COND_GT  = Cond(4) // GT
	COND_GTE = Cond(5) // GTE
	COND_LT  = Cond(6) // LT
	COND_LTE = Cond(7) // LTE
)

// condMap maps condition names.
var condMap = map[string]Cond{
	"Z":   COND_Z,
	"NZ":  COND_NZ,
	"EQ":  COND_EQ,
	"NE":  COND_NE,
	"GT":  COND_GT,
	"GTE": COND_GTE,
	"LT":  COND_LT,
	"LTE": COND_LTE,
}

func (cond Cond) Valid() bool {
	return cond <= COND_LTE
}

// Instruction is a decoded instruction.
type Instruction struct {
	Opcode   Opcode
	Cond     Cond
	Operands []Operand
}

// MakeInstruction creates an instruction.
func MakeInstruction(op Opcode, operands ...Operand) Instruction {
	return Instruction{Opcode: op, Operands: operands}
}

// MakeInstructionCond creates a conditional instruction.
func MakeInstructionCond(op Opcode, cond Cond, operands ...Operand) Instruction {
	return Instruction{Opcode: op, Cond: cond, Operands: operands}
}

// Length returns the encoded length of the instruction, in bytes.
func (inst Instruction) Length() (length int) {
	length = 1
	info, _ := inst.Opcode.info()
	if info.cond {
		length++
	}
	for _, op := range inst.Operands {
		length += op.Size()
	}
	return
}

// Encode returns the instruction bytes.
func (inst Instruction) Encode() (code []byte) {
	code = append(code, byte(inst.Opcode))
	info, _ := inst.Opcode.info()
	if info.cond {
		code = append(code, byte(inst.Cond))
	}
	for _, op := range inst.Operands {
		code = append(code, op.Encode()...)
	}
	return
}

// Decode decodes one instruction from the start of code.
func Decode(code []byte) (inst Instruction, err error) {
	if len(code) == 0 {
		err = ErrTruncated
		return
	}

	inst.Opcode = Opcode(code[0])
	info, ok := inst.Opcode.info()
	if !ok {
		err = ErrOpcodeDecode
		return
	}
	code = code[1:]

	if info.cond {
		if len(code) == 0 {
			err = ErrTruncated
			return
		}
		inst.Cond = Cond(code[0])
		if !inst.Cond.Valid() {
			err = ErrOpcodeCond
			return
		}
		code = code[1:]
	}

	if info.operands > 0 {
		inst.Operands = make([]Operand, info.operands)
	}
	for n := range info.operands {
		var size int
		inst.Operands[n], size, err = DecodeOperand(code)
		if err != nil {
			return
		}
		code = code[size:]
	}

	return
}

// String returns the assembly language representation of this instruction.
func (inst Instruction) String() (out string) {
	var args []string
	info, _ := inst.Opcode.info()
	if info.cond {
		args = append(args, inst.Cond.String())
	}
	for n, op := range inst.Operands {
		args = append(args, op.String())
		if n == 1 && inst.Opcode.Block() {
			args = append(args, fmt.Sprintf("%d", inst.Operands[0].Width))
		}
	}

	out = inst.Opcode.String()
	if len(args) > 0 {
		out += " " + strings.Join(args, ", ")
	}
	return
}
