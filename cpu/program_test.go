package cpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testProgram() *Program {
	return &Program{
		Origin: 0x100,
		Lines: []Line{
			{LineNo: 1, Pc: 0x100, Words: []string{"LD", "A", "3"},
				Code: MakeInstruction(OP_LD, MakeOperandReg(0, 1), MakeOperandImm(1, 3)).Encode()},
			{LineNo: 2, Pc: 0x105, Words: []string{"CP", "A", "3"},
				Code: MakeInstruction(OP_CP, MakeOperandReg(0, 1), MakeOperandImm(1, 3)).Encode()},
			{LineNo: 3, Pc: 0x10a, Words: []string{".db", "1", "2"},
				Code: []byte{1, 2}, Data: true},
			{LineNo: 4, Pc: 0x10c, Words: []string{"BREAK"},
				Code: MakeInstruction(OP_BREAK).Encode()},
		},
	}
}

func TestProgram_Debug(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	dbg := prog.Debug(0x100)
	assert.NotNil(dbg.Line)
	assert.Equal(1, dbg.LineNo)
	assert.Equal(0, dbg.Index)

	dbg = prog.Debug(0x107)
	assert.NotNil(dbg.Line)
	assert.Equal(2, dbg.LineNo)
	assert.Equal(2, dbg.Index)

	dbg = prog.Debug(0x10c)
	assert.NotNil(dbg.Line)
	assert.Equal(4, dbg.LineNo)
	assert.Equal(0, dbg.Index)
}

func TestProgram_Debug_NotFound(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	dbg := prog.Debug(0x0ff)
	assert.Nil(dbg.Line)
	assert.Equal(0, dbg.Index)

	dbg = prog.Debug(0x10d)
	assert.Nil(dbg.Line)
}

func TestProgram_Binary(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	bin := prog.Binary()
	assert.Equal(13, len(bin))
	assert.Equal(byte(OP_LD), bin[0])
	assert.Equal(byte(OP_CP), bin[5])
	assert.Equal([]byte{1, 2}, bin[10:12])
	assert.Equal(byte(OP_BREAK), bin[12])

	empty := &Program{}
	assert.Nil(empty.Binary())
}

func TestProgram_Instructions(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	var pcs []uint32
	var ops []Opcode
	for pc, inst := range prog.Instructions() {
		pcs = append(pcs, pc)
		ops = append(ops, inst.Opcode)
	}

	assert.Equal([]uint32{0x100, 0x105, 0x10c}, pcs)
	assert.Equal([]Opcode{OP_LD, OP_CP, OP_BREAK}, ops)

	// Early exit
	count := 0
	for range prog.Instructions() {
		count++
		break
	}
	assert.Equal(1, count)
}

func TestProgram_Listing(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	lines := strings.Split(strings.TrimSpace(prog.Listing()), "\n")
	assert.Equal(4, len(lines))
	assert.True(strings.HasPrefix(lines[0], "000100: 10 00 00 20 03"), lines[0])
	assert.True(strings.HasSuffix(lines[0], "; 1: LD A, 3"), lines[0])
	assert.True(strings.HasSuffix(lines[3], "; 4: BREAK"), lines[3])
}
