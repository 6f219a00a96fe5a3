package cpu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":         "0",
	"MEMORY_SIZE":    fmt.Sprintf("%#x", MEMORY_SIZE),
	"ADDRESS_MASK":   fmt.Sprintf("%#x", ADDRESS_MASK),
	"REGISTER_COUNT": fmt.Sprintf("%v", REGISTER_COUNT),
	"FLOAT_COUNT":    fmt.Sprintf("%v", FLOAT_COUNT),
}

// Assembler is a two pass macro assembler for the Continuum93 CPU.
//
// The first pass encodes every line, leaving zeroed placeholders for label
// references. The second pass links the labels into the placeholders.
type Assembler struct {
	Verbose bool    // If set, verbosely logs the assembler actions.
	Origin  uint32  // Address of the first assembled byte.
	Lines   []Line  // List of assembled lines.
	Errors  []error // Diagnostics of the last Parse.

	predefine map[string]string   // Predefines
	Label     map[string]uint32   // Map of labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	pc        uint32   // Address of the next assembled byte.
	expansion int      // Macro expansion counter, for local labels.
	program   *Program // Last successfully assembled program.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// Build assembles source text, returning the number of errors found.
// The diagnostics are in Errors.
func (asm *Assembler) Build(text string) int {
	_, _ = asm.Parse(strings.NewReader(text))
	return len(asm.Errors)
}

// Code returns the compiled code of the last error free build.
func (asm *Assembler) Code() []byte {
	if asm.program == nil {
		return nil
	}
	return asm.program.Binary()
}

// literal is a numeric literal.
type literal struct {
	value   int64   // Integer value.
	float   float64 // Float value.
	isFloat bool    // Set for float literals.
}

// isNumeric returns true if a word should be parsed as a literal.
func isNumeric(word string) bool {
	if len(word) == 0 {
		return false
	}
	c := word[0]
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '~' || c == '.'
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (lit literal, err error) {
	invert := false
	if len(word) > 0 && word[0] == '~' {
		invert = true
		word = word[1:]
	}
	if len(word) == 0 || word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseNumber(word)
		return
	}

	v64, perr := strconv.ParseInt(word, 0, 64)
	if perr == nil {
		lit.value = v64
		if invert {
			lit.value = ^v64
		}
		return
	}

	if !invert {
		value, ok := parseBinaryFloat(word)
		if ok {
			lit = literal{float: value, isFloat: true}
			return
		}
		value, perr = strconv.ParseFloat(word, 64)
		if perr == nil {
			lit = literal{float: value, isFloat: true}
			return
		}
	}

	err = ErrParseNumber(word)
	return
}

// parseBinaryFloat parses a binary literal with a fractional part, such as
// 0b10.01.
func parseBinaryFloat(word string) (value float64, ok bool) {
	negative := false
	if strings.HasPrefix(word, "-") {
		negative = true
		word = word[1:]
	}
	if !strings.HasPrefix(word, "0b") && !strings.HasPrefix(word, "0B") {
		return
	}
	whole, frac, found := strings.Cut(word[2:], ".")
	if !found || len(whole)+len(frac) == 0 {
		return
	}

	for _, c := range whole {
		if c != '0' && c != '1' {
			return
		}
		value = value*2 + float64(c-'0')
	}
	scale := 0.5
	for _, c := range frac {
		if c != '0' && c != '1' {
			return
		}
		value += scale * float64(c-'0')
		scale /= 2
	}

	if negative {
		value = -value
	}
	ok = true
	return
}

// fits returns true if value can be encoded in width bytes, as either a
// signed or an unsigned integer.
func fits(value int64, width int) bool {
	size := 8 * uint(width)
	return value >= -(int64(1)<<(size-1)) && value < int64(1)<<size
}

// widthOf returns the minimal width holding an unsigned value.
func widthOf(value uint64) (width int) {
	width = 1
	for width < 4 && value > uint64(widthMask(width)) {
		width++
	}
	return
}

// argKind classifies a parsed operand.
type argKind int

const (
	argNone     = argKind(iota) // none
	argRegister                 // register chain
	argFloat                    // float register
	argLiteral                  // numeric literal
	argLabel                    // label reference
	argMemory                   // memory reference
	argString                   // string, for .db
)

// term is the base or offset of a memory reference.
type term struct {
	kind  argKind // argRegister, argLiteral or argLabel; argNone for no offset.
	chain Chain
	value uint32
	label string
}

// argument is a parsed operand.
type argument struct {
	kind  argKind
	text  string
	chain Chain   // Register chain.
	index int     // Float register index.
	lit   literal // Literal value.
	label string  // Label name.
	str   []byte  // String bytes.

	float  bool // Memory reference is in the float value domain.
	base   term // Memory base.
	offset term // Memory offset.
}

// natural returns the width the argument implies, or 0.
func (arg argument) natural() int {
	switch arg.kind {
	case argRegister:
		return arg.chain.Width
	case argFloat:
		return 4
	case argMemory:
		if arg.float {
			return 4
		}
	}
	return 0
}

// isLocation returns true for register, float register and memory
// arguments.
func (arg argument) isLocation() bool {
	switch arg.kind {
	case argRegister, argFloat, argMemory:
		return true
	}
	return false
}

// isFloat returns true for float domain locations.
func (arg argument) isFloat() bool {
	return arg.kind == argFloat || (arg.kind == argMemory && arg.float)
}

var labelRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// parseArgument parses a single operand.
func (asm *Assembler) parseArgument(text string) (arg argument, err error) {
	text = strings.TrimSpace(text)
	arg.text = text

	if len(text) == 0 {
		err = ErrOperandInvalid
		return
	}

	if text[0] == '"' {
		var str string
		str, err = strconv.Unquote(text)
		if err != nil {
			err = ErrParseOperand(text)
			return
		}
		arg.kind = argString
		arg.str = []byte(str)
		return
	}

	if len(text) > 5 && strings.EqualFold(text[:5], "float") {
		rest := strings.TrimSpace(text[5:])
		if strings.HasPrefix(rest, "(") {
			arg.float = true
			text = rest
		}
	}

	if strings.HasPrefix(text, "(") {
		if !strings.HasSuffix(text, ")") {
			err = ErrParseOperand(arg.text)
			return
		}
		err = asm.parseMemory(&arg, text[1:len(text)-1])
		return
	}

	if index, ok := ParseFloatRegister(text); ok {
		arg.kind = argFloat
		arg.index = index
		return
	}

	if start, width, ok := ParseRegister(text); ok {
		arg.kind = argRegister
		arg.chain = Chain{Index: start, Width: width}
		return
	}

	if isNumeric(text) {
		arg.kind = argLiteral
		arg.lit, err = asm.valueOf(text)
		return
	}

	if labelRe.MatchString(text) {
		arg.kind = argLabel
		arg.label = text
		return
	}

	err = ErrParseOperand(text)
	return
}

// parseMemory parses the inside of a (base [+ offset]) reference.
func (asm *Assembler) parseMemory(arg *argument, inner string) (err error) {
	parts := strings.Split(inner, "+")
	if len(parts) > 2 {
		err = ErrParseOperand(arg.text)
		return
	}

	arg.kind = argMemory
	arg.base, err = asm.parseTerm(parts[0])
	if err != nil {
		return
	}
	if len(parts) == 2 {
		arg.offset, err = asm.parseTerm(parts[1])
	}
	return
}

// parseTerm parses a memory base or offset.
func (asm *Assembler) parseTerm(text string) (t term, err error) {
	text = strings.TrimSpace(text)

	if start, width, ok := ParseRegister(text); ok {
		if width > 3 {
			err = ErrRegisterInvalid
			return
		}
		t.kind = argRegister
		t.chain = Chain{Index: start, Width: width}
		return
	}

	if isNumeric(text) {
		var lit literal
		lit, err = asm.valueOf(text)
		if err != nil {
			return
		}
		if lit.isFloat {
			err = ErrOperandInvalid
			return
		}
		if lit.value < 0 || lit.value > ADDRESS_MASK {
			err = ErrValueRange
			return
		}
		t.kind = argLiteral
		t.value = uint32(lit.value)
		return
	}

	if labelRe.MatchString(text) {
		if _, ok := ParseFloatRegister(text); ok {
			err = ErrOperandInvalid
			return
		}
		t.kind = argLabel
		t.label = text
		return
	}

	err = ErrParseOperand(text)
	return
}

// fieldRef is a label reference inside an encoded operand.
type fieldRef struct {
	label  string
	offset int // Byte offset in the operand encoding.
	width  int
}

// location builds a register, float register or memory operand. Memory
// takes width bytes, in the float domain when float is set.
func location(arg argument, width int, float bool) (op Operand, refs []fieldRef, err error) {
	switch arg.kind {
	case argRegister:
		op = MakeOperandReg(arg.chain.Index, arg.chain.Width)
		return
	case argFloat:
		op = MakeOperandFloat(arg.index)
		return
	case argMemory:
		// handled below
	default:
		err = ErrTargetInvalid
		return
	}

	pointer := arg.base.kind == argRegister
	if arg.base.kind == argLabel {
		refs = append(refs, fieldRef{label: arg.base.label, offset: 1, width: 3})
	}
	addr := arg.base.value

	offset := arg.offset
	offsetAt := 1 + 3
	if pointer {
		offsetAt = 1 + 1
	}

	switch offset.kind {
	case argNone:
		if pointer {
			op = MakeOperandPtr(width, arg.base.chain)
		} else {
			op = MakeOperandAbs(width, addr)
		}
	case argRegister:
		if pointer {
			op = MakeOperandPtrIndex(width, arg.base.chain, offset.chain)
		} else {
			op = MakeOperandAbsIndex(width, addr, offset.chain)
		}
	case argLiteral, argLabel:
		offsetWidth := widthOf(uint64(offset.value))
		if offset.kind == argLabel {
			offsetWidth = 3
			refs = append(refs, fieldRef{label: offset.label, offset: offsetAt, width: 3})
		}
		if pointer {
			op = MakeOperandPtrOffset(width, arg.base.chain, offset.value, offsetWidth)
		} else {
			op = MakeOperandAbsOffset(width, addr, offset.value, offsetWidth)
		}
	}

	if float || arg.float {
		op = op.AsFloat()
	}

	return
}

// immediate builds a literal or label operand of width bytes. In a float
// context, negative and float literals are encoded as floats.
func immediate(arg argument, width int, float bool) (op Operand, refs []fieldRef, err error) {
	switch arg.kind {
	case argLiteral:
		lit := arg.lit
		switch {
		case lit.isFloat:
			op = MakeOperandImmFloat(float32(lit.float))
		case float && lit.value < 0:
			op = MakeOperandImmFloat(float32(lit.value))
		default:
			if float {
				width = 4
			}
			if !fits(lit.value, width) {
				err = ErrValueRange
				return
			}
			op = MakeOperandImm(width, uint32(lit.value))
		}
	case argLabel:
		if float {
			width = 4
		}
		op = MakeOperandImm(width, 0)
		refs = []fieldRef{{label: arg.label, offset: 1, width: width}}
	default:
		err = ErrOperandInvalid
	}
	return
}

// counter builds a count operand: literals take their minimal width.
func counter(arg argument) (op Operand, refs []fieldRef, err error) {
	switch {
	case arg.isLocation():
		op, refs, err = location(arg, 1, false)
	case arg.kind == argLiteral && !arg.lit.isFloat:
		if arg.lit.value < 0 || !fits(arg.lit.value, 4) {
			err = ErrValueRange
			return
		}
		op = MakeOperandImm(widthOf(uint64(arg.lit.value)), uint32(arg.lit.value))
	default:
		op, refs, err = immediate(arg, 3, false)
	}
	return
}

// shape selects how a dest, value operand pair is encoded.
type shape struct {
	width      int  // Width from a mnemonic suffix or block width specifier.
	block      bool // The width also applies to register destinations.
	numeric    bool // Literals are converted to the destination value domain.
	count      bool // The value is a count.
	valueWidth int  // Width of a memory or literal value, if fixed.
}

// pair builds the dest and value operands of an instruction.
//
// Width is inferred from the shape, then the destination, then the value,
// defaulting to 8 bits.
func (sh shape) pair(dst, src argument) (ops []Operand, refs [][]fieldRef, err error) {
	ops = make([]Operand, 2)
	refs = make([][]fieldRef, 2)

	width := sh.width
	if width == 0 {
		width = dst.natural()
	}
	if width == 0 && !sh.count {
		width = src.natural()
	}
	if width == 0 {
		width = 1
	}

	float := dst.isFloat() || (dst.kind == argMemory && src.kind == argFloat)

	switch {
	case dst.kind == argRegister && sh.block && sh.width != 0:
		ops[0] = MakeOperandReg(dst.chain.Index, sh.width)
	case dst.kind == argFloat && sh.block && sh.width != 0 && sh.width != 4:
		err = ErrWidthInvalid
	case dst.isLocation():
		ops[0], refs[0], err = location(dst, width, float)
	default:
		ops[0], refs[0], err = immediate(dst, width, false)
	}
	if err != nil {
		err = errors.Join(ErrOpcodeArg1, err)
		return
	}

	valueWidth := width
	if sh.valueWidth != 0 {
		valueWidth = sh.valueWidth
	}

	switch {
	case sh.count:
		ops[1], refs[1], err = counter(src)
	case src.isLocation():
		ops[1], refs[1], err = location(src, valueWidth, dst.kind == argFloat)
	default:
		ops[1], refs[1], err = immediate(src, valueWidth, sh.numeric && float)
	}
	if err != nil {
		err = errors.Join(ErrOpcodeArg2, err)
		return
	}

	return
}

// mnemonicMap maps mnemonic names to base opcodes.
var mnemonicMap = map[string]Opcode{
	"NOP":     OP_NOP,
	"BREAK":   OP_BREAK,
	"JP":      OP_JP,
	"CALL":    OP_CALL,
	"RET":     OP_RET,
	"LD":      OP_LD,
	"CP":      OP_CP,
	"SCP":     OP_SCP,
	"BIT":     OP_BIT,
	"ADD":     OP_ADD,
	"SUB":     OP_SUB,
	"MUL":     OP_MUL,
	"DIV":     OP_DIV,
	"SDIV":    OP_SDIV,
	"INC":     OP_INC,
	"DEC":     OP_DEC,
	"AND":     OP_AND,
	"OR":      OP_OR,
	"XOR":     OP_XOR,
	"NAND":    OP_NAND,
	"NOR":     OP_NOR,
	"XNOR":    OP_XNOR,
	"SL":      OP_SL,
	"SR":      OP_SR,
	"RL":      OP_RL,
	"RR":      OP_RR,
	"RGB2HSB": OP_RGB2HSB,
}

// suffixWidth maps mnemonic width suffixes.
var suffixWidth = []struct {
	suffix string
	width  int
}{
	{"32", 4},
	{"24", 3},
	{"16", 2},
	{"8", 1},
}

// parseMnemonic parses a mnemonic, with an optional width suffix.
func parseMnemonic(word string) (op Opcode, width int, err error) {
	word = strings.ToUpper(word)
	op, ok := mnemonicMap[word]
	if ok {
		return
	}

	for _, entry := range suffixWidth {
		base, found := strings.CutSuffix(word, entry.suffix)
		if !found {
			continue
		}
		op, ok = mnemonicMap[base]
		if !ok {
			continue
		}
		switch op {
		case OP_NOP, OP_BREAK, OP_RET, OP_JP, OP_CALL:
			err = ErrWidthInvalid
			return
		}
		width = entry.width
		return
	}

	err = ErrOpcodeInvalid
	return
}

// reserved returns true for names that cannot be labels.
func reserved(name string) bool {
	if _, _, ok := ParseRegister(name); ok {
		return true
	}
	if _, ok := ParseFloatRegister(name); ok {
		return true
	}
	if _, ok := condMap[strings.ToUpper(name)]; ok {
		return true
	}
	if _, _, err := parseMnemonic(name); err == nil {
		return true
	}
	return strings.EqualFold(name, "float")
}

// parseArguments parses a list of operands.
func (asm *Assembler) parseArguments(texts []string) (args []argument, err error) {
	args = make([]argument, len(texts))
	for n, text := range texts {
		args[n], err = asm.parseArgument(text)
		if err != nil {
			if n < len(argError) {
				err = errors.Join(argError[n], err)
			}
			return
		}
	}
	return
}

// encode builds an instruction from a base opcode, a suffix width and the
// operand texts. It returns the label references of each operand.
func (asm *Assembler) encode(op Opcode, suffix int, texts []string) (inst Instruction, refs [][]fieldRef, err error) {
	var cond Cond

	switch op {
	case OP_JP, OP_CALL:
		if len(texts) == 2 {
			var ok bool
			cond, ok = condMap[strings.ToUpper(strings.TrimSpace(texts[0]))]
			if !ok {
				err = errors.Join(ErrOpcodeArg1, ErrOpcodeCond)
				return
			}
			if op == OP_JP {
				op = OP_JPC
			} else {
				op = OP_CALLC
			}
			texts = texts[1:]
		}
	}

	args, err := asm.parseArguments(texts)
	if err != nil {
		return
	}

	var ops []Operand
	switch op {
	case OP_NOP, OP_BREAK, OP_RET:
		if len(args) != 0 {
			err = ErrOperandCount
			return
		}
	case OP_JP, OP_JPC, OP_CALL, OP_CALLC:
		if len(args) != 1 {
			err = ErrOperandCount
			return
		}
		ops = make([]Operand, 1)
		refs = make([][]fieldRef, 1)
		if args[0].isLocation() {
			ops[0], refs[0], err = location(args[0], 3, false)
		} else {
			ops[0], refs[0], err = immediate(args[0], 3, false)
		}
	case OP_INC, OP_DEC:
		if len(args) != 1 {
			err = ErrOperandCount
			return
		}
		width := suffix
		if width == 0 {
			width = max(args[0].natural(), 1)
		}
		ops = make([]Operand, 1)
		refs = make([][]fieldRef, 1)
		ops[0], refs[0], err = location(args[0], width, false)
	case OP_LD, OP_CP, OP_SCP, OP_BIT, OP_RGB2HSB:
		if len(args) != 2 {
			err = ErrOperandCount
			return
		}
		if (op == OP_LD || op == OP_RGB2HSB) && !args[0].isLocation() {
			err = errors.Join(ErrOpcodeArg1, ErrTargetInvalid)
			return
		}
		sh := shape{width: suffix, numeric: op == OP_LD || op == OP_CP || op == OP_SCP}
		if op == OP_RGB2HSB {
			sh.valueWidth = 3
			if suffix == 0 && args[0].kind == argMemory {
				sh.width = 4
			}
		}
		ops, refs, err = sh.pair(args[0], args[1])
	default:
		if len(args) < 2 || len(args) > 4 {
			err = ErrOperandCount
			return
		}
		if !args[0].isLocation() {
			err = errors.Join(ErrOpcodeArg1, ErrTargetInvalid)
			return
		}
		sh := shape{
			width:   suffix,
			numeric: op >= OP_ADD && op <= OP_SDIV,
			count:   op >= OP_SL && op <= OP_RR,
		}
		switch {
		case len(args) == 2:
			ops, refs, err = sh.pair(args[0], args[1])
		case len(args) == 3 && (op == OP_DIV || op == OP_SDIV) && args[2].isLocation():
			ops, refs, err = sh.pair(args[0], args[1])
			if err != nil {
				return
			}
			var rem Operand
			var rem_refs []fieldRef
			rem, rem_refs, err = location(args[2], ops[0].Width, false)
			if err != nil {
				err = errors.Join(ErrOpcodeArg3, err)
				return
			}
			ops = append(ops, rem)
			refs = append(refs, rem_refs)
			if op == OP_DIV {
				op = OP_DIVR
			} else {
				op = OP_SDIVR
			}
		default:
			size := args[2]
			if size.kind != argLiteral || size.lit.isFloat || size.lit.value < 1 || size.lit.value > 4 {
				err = errors.Join(ErrOpcodeArg3, ErrWidthInvalid)
				return
			}
			if suffix != 0 && int64(suffix) != size.lit.value {
				err = ErrWidthInvalid
				return
			}
			sh.width = int(size.lit.value)
			sh.block = true
			ops, refs, err = sh.pair(args[0], args[1])
			if err != nil {
				return
			}
			repeat := MakeOperandImm(1, 1)
			var repeat_refs []fieldRef
			if len(args) == 4 {
				repeat, repeat_refs, err = counter(args[3])
				if err != nil {
					err = errors.Join(ErrOpcodeArg3, err)
					return
				}
			}
			ops = append(ops, repeat)
			refs = append(refs, repeat_refs)
			op |= OP_BLOCK
		}
	}
	if err != nil {
		return
	}

	inst = MakeInstructionCond(op, cond, ops...)
	return
}

// linkOffsets turns operand label references into Links.
func linkOffsets(inst Instruction, refs [][]fieldRef) (links []Link) {
	offset := 1
	if inst.Opcode == OP_JPC || inst.Opcode == OP_CALLC {
		offset++
	}
	for n, op := range inst.Operands {
		if n < len(refs) {
			for _, ref := range refs[n] {
				links = append(links, Link{Label: ref.label, Offset: offset + ref.offset, Width: ref.width})
			}
		}
		offset += op.Size()
	}
	return
}

// parseData encodes the operands of a .db line.
func (asm *Assembler) parseData(texts []string) (data []byte, err error) {
	for _, text := range texts {
		var arg argument
		arg, err = asm.parseArgument(text)
		if err != nil {
			return
		}
		switch {
		case arg.kind == argString:
			data = append(data, arg.str...)
		case arg.kind == argLiteral && !arg.lit.isFloat && fits(arg.lit.value, 1):
			data = append(data, byte(arg.lit.value))
		default:
			err = ErrDataSyntax
			return
		}
	}

	if len(data) == 0 {
		err = ErrDataSyntax
	}
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (text string, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		if !isNumeric(str) {
			// Ignore non-numeric equates. They may be registers
			// or something else.
			continue
		}
		lit, lerr := asm.valueOf(str)
		if lerr != nil {
			continue
		}
		if lit.isFloat {
			pred[key] = starlark.Float(lit.float)
		} else {
			pred[key] = starlark.MakeInt64(lit.value)
		}
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = errors.Join(ErrParseExpression(expr), err)
		return
	}
	switch rc := dict["rc"].(type) {
	case starlark.Int:
		value, ok := rc.Int64()
		if !ok {
			err = ErrParseExpression(expr)
			return
		}
		text = strconv.FormatInt(value, 10)
	case starlark.Float:
		text = strconv.FormatFloat(float64(rc), 'g', -1, 64)
		if !strings.ContainsAny(text, ".eEnN") {
			text += ".0"
		}
	default:
		err = ErrParseExpression(expr)
	}
	return
}

// expandParens replaces every $(...) in a line by its value.
func (asm *Assembler) expandParens(line string) (out string, err error) {
	for {
		start := strings.Index(line, "$(")
		if start < 0 {
			break
		}
		depth := 0
		end := -1
		for n := start + 1; n < len(line); n++ {
			if line[n] == '(' {
				depth++
			} else if line[n] == ')' {
				depth--
				if depth == 0 {
					end = n
					break
				}
			}
		}
		if end < 0 {
			err = ErrParseExpression(line[start+2:])
			return
		}
		var value string
		value, err = asm.parenEval(line[start+2 : end])
		if err != nil {
			return
		}
		line = line[:start] + value + line[end+1:]
	}

	out = line
	return
}

var charRe = regexp.MustCompile(`'\\?[^']'`)

// expandChars replaces 'x' character literals by their values.
func expandChars(line string) string {
	return charRe.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "t":
				str = "\t"
			case "e":
				str = "\033"
			case "0":
				str = "\000"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})
}

// stripComment removes a ';' comment, ignoring quoted semicolons.
func stripComment(text string) string {
	var quote byte
	for n := 0; n < len(text); n++ {
		c := text[n]
		switch {
		case quote != 0:
			if c == '\\' {
				n++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ';':
			return text[:n]
		}
	}
	return text
}

// cutWord splits the first whitespace separated word from text.
func cutWord(text string) (word string, rest string) {
	text = strings.TrimSpace(text)
	n := strings.IndexAny(text, " \t")
	if n < 0 {
		return text, ""
	}
	return text[:n], strings.TrimSpace(text[n:])
}

// splitOperands splits comma separated operands, ignoring commas inside
// parenthesis and strings.
func splitOperands(text string) (operands []string) {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return
	}

	depth := 0
	quote := false
	start := 0
	for n := 0; n < len(text); n++ {
		c := text[n]
		switch {
		case quote:
			if c == '\\' {
				n++
			} else if c == '"' {
				quote = false
			}
		case c == '"':
			quote = true
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			operands = append(operands, strings.TrimSpace(text[start:n]))
			start = n + 1
		}
	}
	operands = append(operands, strings.TrimSpace(text[start:]))

	return
}

var identRe = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)

// substitute replaces equates in an operand.
func (asm *Assembler) substitute(operand string) string {
	if strings.HasPrefix(operand, "\"") {
		return operand
	}
	return identRe.ReplaceAllStringFunc(operand, func(word string) string {
		equate, ok := asm.Equate[word]
		if ok {
			return equate
		}
		return word
	})
}

// defineLabel sets a label to the current address.
func (asm *Assembler) defineLabel(label string) (err error) {
	if !labelRe.MatchString(label) || reserved(label) {
		err = ErrLabelInvalid
		return
	}
	_, ok := asm.Label[label]
	if ok {
		err = ErrLabelDuplicate
		return
	}

	asm.Label[label] = asm.pc
	return
}

// parseLine parses a single line into a mnemonic and its operands.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	line = expandChars(line)

	line, err = asm.expandParens(line)
	if err != nil {
		return
	}

	word, rest := cutWord(line)
	if len(word) == 0 {
		return
	}

	// .equ CONST VALUE
	if strings.EqualFold(word, ".equ") {
		name, value := cutWord(rest)
		if !labelRe.MatchString(name) || len(value) == 0 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[name]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[name] = value
		return
	}

	for strings.HasSuffix(word, ":") {
		err = asm.defineLabel(strings.TrimSuffix(word, ":"))
		if err != nil {
			return
		}
		word, rest = cutWord(rest)
		if len(word) == 0 {
			return
		}
	}

	operands := splitOperands(rest)
	for n, operand := range operands {
		operands[n] = asm.substitute(operand)
	}

	// .macro processing
	macro, ok := asm.Macro[word]
	if ok {
		name := word

		if len(operands) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = operands[n]
		}
		defer func() { asm.Equate = old_equate }()

		asm.expansion++
		local := fmt.Sprintf("%v_%v_", name, asm.expansion)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err == nil {
				err = asm.parseWords(words, lineno)
			}
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	words = append([]string{word}, operands...)
	return
}

// parseWords assembles a mnemonic and its operands.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	// no-op
	if len(words) == 0 {
		return
	}

	line := Line{LineNo: lineno, Pc: asm.pc, Words: words}

	if strings.EqualFold(words[0], ".db") {
		line.Data = true
		line.Code, err = asm.parseData(words[1:])
		if err != nil {
			return
		}
	} else {
		var op Opcode
		var width int
		op, width, err = parseMnemonic(words[0])
		if err != nil {
			return
		}
		var inst Instruction
		var refs [][]fieldRef
		inst, refs, err = asm.encode(op, width, words[1:])
		if err != nil {
			return
		}
		line.Code = inst.Encode()
		line.Links = linkOffsets(inst, refs)
	}

	if uint64(asm.pc)+uint64(len(line.Code)) > MEMORY_SIZE {
		err = ErrValueRange
		return
	}

	asm.pc += uint32(len(line.Code))
	asm.Lines = append(asm.Lines, line)

	return
}

// fail records a diagnostic for a line.
func (asm *Assembler) fail(lineno int, line string, err error) {
	var syntax_err *ErrSyntax
	if !errors.As(err, &syntax_err) {
		err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
	}
	if asm.Verbose {
		log.Printf("%v", err)
	}
	asm.Errors = append(asm.Errors, err)
}

// link patches every label reference.
func (asm *Assembler) link() {
	for n := range asm.Lines {
		line := &asm.Lines[n]
		for _, link := range line.Links {
			addr, ok := asm.Label[link.Label]
			if !ok {
				asm.fail(line.LineNo, strings.Join(line.Words, " "), ErrLabelMissing(link.Label))
				continue
			}
			if addr > widthMask(link.Width) {
				asm.fail(line.LineNo, strings.Join(line.Words, " "), ErrValueRange)
				continue
			}
			for b := range link.Width {
				line.Code[link.Offset+b] = byte(addr >> (8 * (link.Width - 1 - b)))
			}
		}
	}
}

// Parse parses an input stream into a Program.
//
// Errors do not stop the assembly: each faulty line is recorded in Errors,
// and the joined diagnostics are returned with a nil Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var lineno int
	var macro *Macro

	asm.Errors = nil
	asm.Lines = nil
	asm.program = nil
	asm.pc = asm.Origin
	asm.expansion = 0
	asm.Label = make(map[string]uint32, 16)
	asm.Macro = make(map[string](*Macro))
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line := strings.TrimSpace(stripComment(text))
		directive, rest := cutWord(line)

		// .macro NAME arg...
		if strings.EqualFold(directive, ".macro") {
			if macro != nil {
				asm.fail(lineno, line, ErrMacroNesting)
				continue
			}
			name, args := cutWord(rest)
			macro = &Macro{
				LineNo: lineno + 1,
				Args: strings.FieldsFunc(args, func(r rune) bool {
					return r == ',' || r == ' ' || r == '\t'
				}),
			}
			if !labelRe.MatchString(name) {
				asm.fail(lineno, line, ErrMacroSyntax)
				continue
			}
			_, ok := asm.Macro[name]
			if ok {
				asm.fail(lineno, line, ErrMacroDuplicate)
				continue
			}
			asm.Macro[name] = macro
			continue
		}

		if strings.EqualFold(directive, ".endm") {
			if macro == nil {
				asm.fail(lineno, line, ErrMacroLonelyEndm)
				continue
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, lerr := asm.parseLine(line, lineno)
		if lerr == nil {
			lerr = asm.parseWords(words, lineno)
		}
		if lerr != nil {
			asm.fail(lineno, line, lerr)
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		asm.fail(lineno, "", ErrMacroLonely)
	}

	// Final linking of labels.
	asm.link()

	if len(asm.Errors) != 0 {
		err = errors.Join(asm.Errors...)
		return
	}

	prog = &Program{
		Origin: asm.Origin,
		Lines:  slices.Clone(asm.Lines),
		Labels: maps.Clone(asm.Label),
	}
	asm.program = prog

	return
}
