package cpu

const (
	MEMORY_SIZE    = 0x100_0000 // Default memory size (24-bit literal address space).
	ADDRESS_MASK   = 0xff_ffff  // Mask of an encoded literal address.
	CODE_BASE      = 0x00_0000  // Default assembly origin.
	REGISTER_COUNT = 26         // General purpose registers A..Z.
	FLOAT_COUNT    = 16         // Float registers F0..F15.
)
