package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/davecgh/go-spew/spew"

	"github.com/EnthusiastGuy/Continuum-93-sub002/emulator"
)

func main() {
	var compile string
	var image string
	var origin string
	var save string
	var listing bool
	var dump bool
	var verbose bool
	var max_ticks int

	flag.StringVar(&compile, "c", "", ".asm file to compile")
	flag.StringVar(&image, "b", "", "raw code image to load")
	flag.StringVar(&origin, "o", "0", "load address of the program")
	flag.StringVar(&save, "s", "", "save compiled image to file, do not execute")
	flag.BoolVar(&listing, "l", false, "print the assembly listing")
	flag.BoolVar(&dump, "d", false, "dump the CPU state after execution")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.IntVar(&max_ticks, "m", 0, "maximum instructions to execute (0 for no limit)")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if (len(compile) == 0) == (len(image) == 0) {
		log.Fatalf("%v: exactly one of -c or -b is required", os.Args[0])
	}

	base, err := strconv.ParseUint(origin, 0, 24)
	if err != nil {
		log.Fatalf("%v: -o %v: %v", os.Args[0], origin, err)
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.MaxTicks = max_ticks

	// Compile a new instruction stream.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := emu.Assembler()
		asm.Origin = uint32(base)
		prog, err := asm.Parse(inf)
		if err != nil {
			for _, diag := range asm.Errors {
				log.Printf("%v: %v", compile, diag)
			}
			log.Fatalf("%v: %d errors", compile, len(asm.Errors))
		}

		if listing {
			fmt.Print(prog.Listing())
		}

		if len(save) != 0 {
			err = os.WriteFile(save, prog.Binary(), 0o644)
			if err != nil {
				log.Fatalf("%v: %v", save, err)
			}
			return
		}

		err = emu.Load(prog)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	} else {
		inf, err := os.Open(image)
		if err != nil {
			log.Fatalf("%v: %v", image, err)
		}
		defer inf.Close()

		err = emu.LoadImage(inf, uint32(base))
		if err != nil {
			log.Fatalf("%v: %v", image, err)
		}
	}

	err = emu.Run()
	if err != nil {
		log.Print(err)
	}

	fmt.Print(emu.Cpu.String())
	if dump {
		spew.Dump(emu.Cpu.Register, emu.Cpu.Float, emu.Cpu.Flags, emu.Cpu.Stack)
	}

	if err != nil {
		os.Exit(1)
	}
}
