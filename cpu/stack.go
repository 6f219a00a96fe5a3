package cpu

const (
	STACK_LIMIT = 256 // Maximum call depth
)

// Stack is the CALL/RET return address stack.
type Stack struct {
	Data []uint32
}

// Push pushes a return address.
func (s *Stack) Push(value uint32) (err error) {
	if s.Full() {
		err = ErrStackFull
		return
	}
	s.Data = append(s.Data, value)
	return
}

// Pop removes and returns the most recent return address.
func (s *Stack) Pop() (value uint32, err error) {
	value, ok := s.Peek()
	if !ok {
		err = ErrStackEmpty
		return
	}
	s.Data = s.Data[:len(s.Data)-1]
	return
}

func (s *Stack) Empty() bool {
	return len(s.Data) == 0
}

func (s *Stack) Full() bool {
	return len(s.Data) >= STACK_LIMIT
}

// Peek returns the most recent return address, if any.
func (s *Stack) Peek() (value uint32, ok bool) {
	if s.Empty() {
		return
	}

	return s.Data[len(s.Data)-1], true
}

func (s *Stack) Reset() {
	if len(s.Data) > 0 {
		s.Data = s.Data[:0]
	}
}
