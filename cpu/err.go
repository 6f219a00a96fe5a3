package cpu

import (
	"errors"

	"github.com/EnthusiastGuy/Continuum-93-sub002/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrHalted         = errors.New(f("halted"))
	ErrStackEmpty     = errors.New(f("stack empty"))
	ErrStackFull      = errors.New(f("stack full"))
	ErrDivisionByZero = errors.New(f("division by zero"))
	ErrMemoryRange    = errors.New(f("memory out of range"))
	ErrTargetReadOnly = errors.New(f("target not writable"))
	ErrRepeatLimit    = errors.New(f("repeat count over limit"))

	// Instruction decode errors
	ErrOpcodeDecode  = errors.New(f("decode"))
	ErrOperandDecode = errors.New(f("operand decode"))
	ErrOpcodeArg1    = errors.New(f("arg1"))
	ErrOpcodeArg2    = errors.New(f("arg2"))
	ErrOpcodeArg3    = errors.New(f("arg3"))
	ErrOpcodeCond    = errors.New(f("cond"))
	ErrTruncated     = errors.New(f("truncated instruction"))

	// Assembler errors
	ErrEquateSyntax    = errors.New(f(".equ syntax"))
	ErrEquateDuplicate = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate  = errors.New(f("label duplicated"))
	ErrLabelInvalid    = errors.New(f("label invalid"))
	ErrMacroSyntax     = errors.New(f(".macro syntax"))
	ErrMacroNesting    = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate  = errors.New(f(".macro duplicated"))
	ErrMacroLonely     = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm = errors.New(f(".endm without .macro"))
	ErrDataSyntax      = errors.New(f(".db syntax"))
	ErrOperandCount    = errors.New(f("wrong number of operands"))
	ErrOperandInvalid  = errors.New(f("operand invalid"))
	ErrOpcodeInvalid   = errors.New(f("opcode invalid"))
	ErrRegisterInvalid = errors.New(f("register invalid"))
	ErrTargetInvalid   = errors.New(f("target invalid"))
	ErrValueRange      = errors.New(f("value out of range"))
	ErrWidthInvalid    = errors.New(f("width invalid"))
)

// ErrLabelMissing reports a label that was referenced but never defined.
type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// ErrOpcode tags an execution failure with the faulting instruction.
type ErrOpcode struct {
	Pc   uint32
	Code []byte
}

func (eo ErrOpcode) Error() string {
	return f("bad opcode at 0x%06x % x", eo.Pc, eo.Code)
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

// ErrAddress reports an access outside of memory.
type ErrAddress struct {
	Address uint64
	Width   int
}

func (err ErrAddress) Error() string {
	return f("address 0x%x width %d out of range", err.Address, err.Width)
}

func (err ErrAddress) Unwrap() error {
	return ErrMemoryRange
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseOperand string

func (err ErrParseOperand) Error() string {
	return f("'%v' is not a valid operand", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
