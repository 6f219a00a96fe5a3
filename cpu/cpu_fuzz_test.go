package cpu

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func shl(input uint32, width int, rot uint32) uint32 {
	rot %= uint32(8 * width)
	return (input << rot) & widthMask(width)
}

func shr(input uint32, width int, rot uint32) uint32 {
	rot %= uint32(8 * width)
	return (input & widthMask(width)) >> rot
}

func fuzzSeeds(f *testing.F) {
	for _, inst := range []Instruction{
		MakeInstruction(OP_NOP),
		MakeInstruction(OP_BREAK),
		MakeInstruction(OP_LD, regA, imm(3)),
		MakeInstruction(OP_LD, regF0, MakeOperandAbsOffset(4, 0x100, 0x1234, 2).AsFloat()),
		MakeInstruction(OP_ADD, MakeOperandPtrIndex(2, Chain{Index: 0, Width: 3}, Chain{Index: 3, Width: 1}), regF1),
		MakeInstruction(OP_DIVR, regA, imm(7), regB),
		MakeInstruction(OP_SL|OP_BLOCK, MakeOperandAbs(4, 0x20), imm(1), imm(3)),
		MakeInstructionCond(OP_JPC, COND_GTE, MakeOperandImm(3, 0x40)),
		MakeInstructionCond(OP_CALLC, COND_LT, MakeOperandReg(24, 3)),
		MakeInstruction(OP_RGB2HSB, MakeOperandReg(0, 4), MakeOperandImm(3, 0x00ff00)),
	} {
		f.Add(inst.Encode())
	}
	f.Add([]byte{})
	f.Add([]byte{0xff, 0xff, 0xff})
}

func FuzzDecode(f *testing.F) {
	fuzzSeeds(f)

	f.Fuzz(func(t *testing.T, code []byte) {
		assert := assert.New(t)

		inst, err := Decode(code)
		if err != nil {
			assert.True(errors.Is(err, ErrTruncated) ||
				errors.Is(err, ErrOpcodeDecode) ||
				errors.Is(err, ErrOperandDecode) ||
				errors.Is(err, ErrOpcodeCond), "%v", err)
			return
		}

		length := inst.Length()
		assert.LessOrEqual(length, len(code))
		assert.LessOrEqual(length, INSTRUCTION_MAX)
		assert.Equal(inst.Opcode.Operands(), len(inst.Operands))

		encoded := inst.Encode()
		assert.True(bytes.Equal(code[:length], encoded), "%v: % x != % x", inst, code[:length], encoded)

		again, err := Decode(encoded)
		assert.NoError(err)
		assert.Equal(inst, again)
	})
}

func FuzzCpu(f *testing.F) {
	fuzzSeeds(f)

	f.Fuzz(func(t *testing.T, code []byte) {
		assert := assert.New(t)

		inst, err := Decode(code)
		if err != nil {
			return
		}
		// Keep block repeat counts small.
		if inst.Opcode.Block() {
			count := inst.Operands[2]
			if count.Mode != MODE_IMM || count.Width != 1 {
				return
			}
		}

		cpu := NewCpu(1024)
		cpu.Pc = 0x100
		assert.NoError(cpu.Memory.Load(cpu.Pc, code))
		cpu.Register.WriteChain(0, 4, 0x00000210)
		cpu.Register.WriteChain(4, 4, 0x50607080)
		cpu.Register.WriteChain(24, 2, 0x0003)
		cpu.Float.Set(0, 2.5)
		cpu.Float.Set(1, -7)

		err = cpu.Tick()
		if err != nil {
			assert.ErrorIs(err, ErrOpcode{}, "%v: %v", inst, err)
			assert.Equal(uint32(0x100), cpu.Pc)
			assert.Equal(0, cpu.Ticks)
			return
		}

		assert.Equal(1, cpu.Ticks)
		switch inst.Opcode {
		case OP_JP, OP_JPC, OP_CALL, OP_CALLC, OP_RET:
		default:
			assert.Equal(uint32(0x100+inst.Length()), cpu.Pc, "%v", inst)
		}
	})
}

func FuzzShift(f *testing.F) {
	f.Add(uint32(0x12345678), uint8(4), uint8(1))
	f.Add(uint32(0x80000001), uint8(31), uint8(4))
	f.Add(uint32(0xff), uint8(200), uint8(2))

	f.Fuzz(func(t *testing.T, value uint32, count uint8, width uint8) {
		assert := assert.New(t)

		w := int(width%4) + 1
		mask := widthMask(w)

		left := doShift(OP_SL, value, w, uint32(count))
		right := doShift(OP_SR, value, w, uint32(count))
		assert.Equal(shl(value, w, uint32(count)), left)
		assert.Equal(shr(value, w, uint32(count)), right)

		rl := doShift(OP_RL, value, w, uint32(count))
		rr := doShift(OP_RR, value, w, uint32(count))
		assert.Equal(value&mask, doShift(OP_RR, rl, w, uint32(count)))
		assert.Equal(value&mask, doShift(OP_RL, rr, w, uint32(count)))
		assert.LessOrEqual(rl, mask)
	})
}
