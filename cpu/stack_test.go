package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStack_Push(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	assert.True(s.Empty())
	assert.False(s.Full())

	err := s.Push(0x123456)
	assert.NoError(err)
	assert.False(s.Empty())
	assert.Equal(1, len(s.Data))
	assert.Equal(uint32(0x123456), s.Data[0])
}

func TestStack_Pop(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	assert.NoError(s.Push(0x123456))
	assert.NoError(s.Push(0xABCDEF))

	val, err := s.Pop()
	assert.NoError(err)
	assert.Equal(uint32(0xABCDEF), val)
	assert.Equal(1, len(s.Data))

	val, err = s.Pop()
	assert.NoError(err)
	assert.Equal(uint32(0x123456), val)
	assert.Equal(0, len(s.Data))
}

func TestStack_Pop_Empty(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	val, err := s.Pop()
	assert.ErrorIs(err, ErrStackEmpty)
	assert.Equal(uint32(0), val)
}

func TestStack_Peek(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	_, ok := s.Peek()
	assert.False(ok)

	assert.NoError(s.Push(0x000010))
	assert.NoError(s.Push(0x000020))

	val, ok := s.Peek()
	assert.True(ok)
	assert.Equal(uint32(0x000020), val)
	assert.Equal(2, len(s.Data))
}

func TestStack_Full(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	for n := range STACK_LIMIT {
		assert.NoError(s.Push(uint32(n)))
	}
	assert.True(s.Full())

	err := s.Push(0xdead)
	assert.ErrorIs(err, ErrStackFull)
	assert.Equal(STACK_LIMIT, len(s.Data))

	val, err := s.Pop()
	assert.NoError(err)
	assert.Equal(uint32(STACK_LIMIT-1), val)
	assert.False(s.Full())
}

func TestStack_Reset(t *testing.T) {
	assert := assert.New(t)

	s := &Stack{}
	s.Reset()
	assert.True(s.Empty())

	assert.NoError(s.Push(1))
	assert.NoError(s.Push(2))
	s.Reset()
	assert.True(s.Empty())
	assert.Equal(0, len(s.Data))
}
