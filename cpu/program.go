package cpu

import (
	"fmt"
	"iter"
	"strings"
)

// Link is a label reference that is patched into a line's code once all
// labels are known.
type Link struct {
	Label  string // Referenced label.
	Offset int    // Byte offset in the line's code.
	Width  int    // Field width, in bytes.
}

// Line is a single assembled source line.
type Line struct {
	LineNo int      // Source line number.
	Pc     uint32   // Address of the first byte of Code.
	Words  []string // Mnemonic and operands, after equate and macro expansion.
	Code   []byte   // Encoded bytes.
	Data   bool     // Set for .db lines, which hold no instruction.
	Links  []Link   // Unresolved label references.
}

func (line *Line) String() string {
	text := strings.Join(line.Words, " ")
	if len(line.Words) > 1 {
		text = line.Words[0] + " " + strings.Join(line.Words[1:], ", ")
	}
	return fmt.Sprintf("%06x: %-24s ; %d: %v", line.Pc, fmt.Sprintf("% x", line.Code), line.LineNo, text)
}

// Program is an assembled program listing.
type Program struct {
	Origin uint32            // Load address of the first line.
	Lines  []Line            // Assembled lines, in address order.
	Labels map[string]uint32 // Label addresses.
}

// Debug locates the line that holds a program counter.
type Debug struct {
	*Line
	Index int // Offset of the program counter in the line's code.
}

// Debug returns the line containing pc, if any.
func (prog *Program) Debug(pc uint32) (dbg Debug) {
	for n, line := range prog.Lines {
		if pc >= line.Pc && pc < line.Pc+uint32(len(line.Code)) {
			dbg = Debug{
				Line:  &prog.Lines[n],
				Index: int(pc - line.Pc),
			}
			break
		}
	}

	return
}

// Binary returns the program image, to be loaded at Origin.
func (prog *Program) Binary() (bins []byte) {
	for _, line := range prog.Lines {
		bins = append(bins, line.Code...)
	}

	return
}

// Instructions iterates over the decoded instructions of the program.
func (prog *Program) Instructions() iter.Seq2[uint32, Instruction] {
	return func(yield func(pc uint32, inst Instruction) bool) {
		for _, line := range prog.Lines {
			if line.Data || len(line.Code) == 0 {
				continue
			}
			inst, err := Decode(line.Code)
			if err != nil {
				continue
			}
			if !yield(line.Pc, inst) {
				return
			}
		}
	}
}

// Listing returns the program listing as text.
func (prog *Program) Listing() string {
	var sb strings.Builder
	for n := range prog.Lines {
		sb.WriteString(prog.Lines[n].String())
		sb.WriteString("\n")
	}
	return sb.String()
}
