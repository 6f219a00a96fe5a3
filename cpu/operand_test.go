package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperand_Encode(t *testing.T) {
	assert := assert.New(t)

	abc := Chain{Index: 0, Width: 3}
	d := Chain{Index: 3, Width: 1}

	table := []struct {
		name    string
		operand Operand
		code    []byte
		text    string
	}{
		{"reg", MakeOperandReg(1, 2), []byte{0x04, 0x01}, "BC"},
		{"freg", MakeOperandFloat(7), []byte{0x1c, 0x07}, "F7"},
		{"imm", MakeOperandImm(2, 0x1234), []byte{0x24, 0x12, 0x34}, "0x1234"},
		{"imm_truncate", MakeOperandImm(1, 0x1234), []byte{0x20, 0x34}, "0x34"},
		{"immf", MakeOperandImmFloat(1), []byte{0x3c, 0x3f, 0x80, 0x00, 0x00}, "1.0"},
		{"immf_frac", MakeOperandImmFloat(-2.5), []byte{0x3c, 0xc0, 0x20, 0x00, 0x00}, "-2.5"},
		{"abs", MakeOperandAbs(1, 0x000100), []byte{0x40, 0x00, 0x01, 0x00}, "(0x000100)"},
		{"abs_const", MakeOperandAbsOffset(2, 0x100, 0x20, 1), []byte{0x54, 0x00, 0x01, 0x00, 0x20}, "(0x000100 + 0x20)"},
		{"abs_const3", MakeOperandAbsOffset(1, 0x100, 0x12345, 3), []byte{0x52, 0x00, 0x01, 0x00, 0x01, 0x23, 0x45}, "(0x000100 + 0x12345)"},
		{"abs_reg", MakeOperandAbsIndex(1, 0x100, d), []byte{0x60, 0x00, 0x01, 0x00, 0x03}, "(0x000100 + D)"},
		{"ptr", MakeOperandPtr(1, abc), []byte{0x70, 0x40}, "(ABC)"},
		{"ptr_const", MakeOperandPtrOffset(4, abc, 0x1234, 2), []byte{0x8d, 0x40, 0x12, 0x34}, "(ABC + 0x1234)"},
		{"ptr_reg", MakeOperandPtrIndex(1, abc, d), []byte{0x90, 0x40, 0x03}, "(ABC + D)"},
		{"fabs", MakeOperandAbs(1, 0x100).AsFloat(), []byte{0xac, 0x00, 0x01, 0x00}, "float (0x000100)"},
		{"fptr_reg", MakeOperandPtrIndex(1, abc, d).AsFloat(), []byte{0xfc, 0x40, 0x03}, "float (ABC + D)"},
	}

	for _, entry := range table {
		code := entry.operand.Encode()
		assert.Equal(entry.code, code, entry.name)
		assert.Equal(len(code), entry.operand.Size(), entry.name)
		assert.Equal(entry.text, entry.operand.String(), entry.name)

		decoded, size, err := DecodeOperand(code)
		assert.NoError(err, entry.name)
		assert.Equal(len(code), size, entry.name)
		assert.Equal(entry.operand, decoded, entry.name)
	}
}

func TestOperand_Decode_Invalid(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		name string
		code []byte
		err  error
	}{
		{"empty", []byte{}, ErrTruncated},
		{"short_imm", []byte{0x2c, 0x00, 0x00}, ErrTruncated},
		{"reg_range", []byte{0x00, 26}, ErrOperandDecode},
		{"freg_range", []byte{0x1c, 16}, ErrOperandDecode},
		{"freg_width", []byte{0x10, 0}, ErrOperandDecode},
		{"aux_reg", []byte{0x01, 0}, ErrOperandDecode},
		{"aux_const", []byte{0x53, 0, 0, 0, 0, 0, 0, 0}, ErrOperandDecode},
		{"chain_width", []byte{0x70, 0x60}, ErrOperandDecode},
		{"chain_index", []byte{0x70, 0x1a}, ErrOperandDecode},
		{"offset_chain", []byte{0x90, 0x00, 0x7f}, ErrOperandDecode},
	}

	for _, entry := range table {
		_, _, err := DecodeOperand(entry.code)
		assert.ErrorIs(err, entry.err, entry.name)
	}
}

func TestMode(t *testing.T) {
	assert := assert.New(t)

	assert.False(MODE_REG.Memory())
	assert.False(MODE_IMMF.Memory())
	assert.True(MODE_ABS.Memory())
	assert.True(MODE_FPTR_REG.Memory())

	assert.True(MODE_FREG.Float())
	assert.True(MODE_IMMF.Float())
	assert.False(MODE_PTR.Float())
	assert.True(MODE_FABS.Float())

	assert.True(MODE_FPTR_CONST.Pointer())
	assert.True(MODE_FPTR_CONST.ConstOffset())
	assert.False(MODE_FPTR_CONST.RegOffset())
	assert.True(MODE_ABS_REG.RegOffset())

	assert.Equal("fabs+reg", MODE_FABS_REG.String())
	assert.Equal("Mode(16)", Mode(16).String())

	assert.True(MakeOperandReg(0, 1).Writable())
	assert.False(MakeOperandImm(1, 0).Writable())
	assert.False(MakeOperandImmFloat(0).Writable())

	// Only memory operands move to the float domain.
	assert.Equal(MODE_REG, MakeOperandReg(0, 2).AsFloat().Mode)
	fptr := MakeOperandPtr(1, Chain{Index: 0, Width: 2}).AsFloat()
	assert.Equal(MODE_FPTR, fptr.Mode)
	assert.Equal(4, fptr.Width)
}
