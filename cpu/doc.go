// Package cpu implements the execution engine and assembler for the
// Continuum93 system.
//
// The CPU consists of a program counter (PC), 26 general-purpose 8-bit
// registers (A-Z) that combine into wrapping 16, 24 and 32-bit chains,
// 16 IEEE-754 float registers (F0-F15), a flag register, a return stack,
// and a flat byte addressable memory.
//
// Every instruction operand decodes to an Operand descriptor, which the
// Operand Resolver turns into a Location: a width and value-domain typed
// read/write handle onto a register chain, a float register, a memory cell
// or an immediate. Opcodes are written once against Locations.
//
// The assembler provides a two-pass assembly language for the Continuum93
// instruction set, supporting macros, labels, equates, and compile-time
// expression evaluation.
package cpu
