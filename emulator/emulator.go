package emulator

import (
	"fmt"
	"io"
	"iter"
	"maps"

	"github.com/EnthusiastGuy/Continuum-93-sub002/cpu"
	"github.com/EnthusiastGuy/Continuum-93-sub002/internal"
)

const (
	MEMORY_SIZE = cpu.MEMORY_SIZE // Emulated memory size.
)

var _emulator_defines = map[string]string{
	"MEMORY_SIZE": fmt.Sprintf("0x%x", MEMORY_SIZE),
}

// Emulator state. CPU + loaded program.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently loaded program listing.
	MaxTicks int          // If non-zero, Run stops with ErrTickLimit after this many instructions, and block instructions may not repeat more often.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(MEMORY_SIZE),
		Program: &cpu.Program{},
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Assembler returns an assembler with the emulator's defines.
func (emu *Emulator) Assembler() (asm *cpu.Assembler) {
	asm = &cpu.Assembler{Verbose: emu.Verbose}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}
	return
}

// Load installs a program and resets the emulator to run it.
func (emu *Emulator) Load(prog *cpu.Program) (err error) {
	emu.Program = prog
	err = emu.Reset()
	return
}

// LoadImage installs a raw code image at base, and resets the emulator to
// run it.
func (emu *Emulator) LoadImage(r io.Reader, base uint32) (err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return
	}

	prog := &cpu.Program{
		Origin: base,
		Lines:  []cpu.Line{{Pc: base, Code: data, Data: true}},
	}

	err = emu.Load(prog)
	return
}

// Reset the emulator state: clears the CPU, writes the program image to
// memory, and points the program counter at its origin.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	emu.Cpu.Reset()

	err = emu.Cpu.Memory.Load(emu.Program.Origin, emu.Program.Binary())
	if err != nil {
		return
	}

	emu.Cpu.Pc = emu.Program.Origin

	return
}

// Instruction returns the instruction at the program counter.
func (emu *Emulator) Instruction() (inst cpu.Instruction, err error) {
	inst, err = emu.Cpu.FetchInstruction()
	return
}

// LineNo returns the current line number for the executing instruction.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Line == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single tick of the emulator. done is set once the CPU
// has halted.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity and repeat budget
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.RepeatLimit = emu.MaxTicks

	if emu.Cpu.Halted {
		done = true
		return
	}

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	err = emu.Cpu.Tick()
	if err != nil {
		return
	}

	done = emu.Cpu.Halted
	return
}

// Run executes until the CPU halts, or a fatal error occurs.
func (emu *Emulator) Run() (err error) {
	for {
		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}
		if emu.MaxTicks > 0 && emu.Cpu.Ticks >= emu.MaxTicks {
			err = ErrTickLimit
			return
		}
	}
}
