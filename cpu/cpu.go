// Package cpu implements the MOS Technology 6502 microprocessor at the
// instruction level, as used in the NES.

package cpu

import (
	"fmt"
	"time"

	"gomos/mask"
	"gomos/mem"
)

// https://www.nesdev.org/wiki/CPU#Frequencies

var (
	tick = 1e9 / 1789773 // cannot be inlined into time.Duration, even with cast
	Tick = time.Nanosecond * time.Duration(tick)
)

const (
	// Stack instructions (PHA, PLA, PHP, PLP, JSR, RTS, RTI) always access
	// the 01 page. The Cpu stores only the low byte of the next free slot.
	StackPage = uint16(0x0100)

	// ResetVector holds the word that seeds the ProgramCounter on Reset.
	ResetVector = uint16(0xFFFC)

	// LoadAddr is where Load places program images, and the value Load
	// writes into the reset vector.
	LoadAddr = uint16(0x0600)

	stackInit = byte(0xFD)
)

// The Cpu has no memory of its own (aside from a handful of small registers).
// Instead, it performs every access through a Bus that provides memory.
type Cpu struct {
	Bus mem.Bus

	// https://www.nesdev.org/wiki/Status_flags#Flags

	// Flags are the 8 bits that make up the status register (the P
	// register). B and Unused are not physical bits: they exist only in
	// the copies pushed onto the stack by PHP, where both read as 1.
	//
	// 7654 3210
	// NV1B DIZC
	Flags struct {
		Negative         bool // bit 7; bit 7 of the last result
		Overflow         bool // bit 6; signed overflow on ADC/SBC, bit 6 on BIT
		Unused           bool // bit 5; always 1 on pushed copies
		B                bool // bit 4; pushed copies only
		Decimal          bool // bit 3; stored and togglable, never consulted
		DisableInterrupt bool // bit 2
		Zero             bool // bit 1; last result was zero
		Carry            bool // bit 0
	}

	Accumulator byte
	X           byte
	Y           byte

	// Stack is the low byte of the next free slot in the 01 page.
	Stack byte

	// The ProgramCounter holds the address of the next byte to fetch.
	// Apart from branches and jumps, it only ever moves forward.
	ProgramCounter uint16

	// Cycles accumulates the base cycle count of every instruction
	// executed so far. Page-cross penalties are not modelled.
	Cycles uint64
}

// New returns a Cpu wired to a flat 64 kB RAM, with registers zeroed,
// DisableInterrupt set, and the stack pointer at its post-reset position.
func New() *Cpu {
	c := &Cpu{Bus: mem.NewRAM()}
	c.initFlags()
	c.Stack = stackInit
	return c
}

func (c *Cpu) initFlags() {
	c.Flags.Negative = false
	c.Flags.Overflow = false
	c.Flags.Unused = true
	c.Flags.B = false
	c.Flags.Decimal = false
	c.Flags.DisableInterrupt = true
	c.Flags.Zero = false
	c.Flags.Carry = false
}

// Read reads one byte from the given addr.
func (c *Cpu) Read(addr uint16) byte {
	return c.Bus.Read(addr)
}

// Write passes data to the Bus, which actually performs the write.
func (c *Cpu) Write(addr uint16, data byte) {
	c.Bus.Write(addr, data)
}

// ReadWord reads a little-endian word starting at addr.
func (c *Cpu) ReadWord(addr uint16) uint16 {
	return mem.ReadWord(c.Bus, addr)
}

// WriteWord stores a little-endian word starting at addr.
func (c *Cpu) WriteWord(addr uint16, w uint16) {
	mem.WriteWord(c.Bus, addr, w)
}

// StatusByte packs the individual flags into the NV1B DIZC status byte. The B
// and Unused bits are reported as stored; PHP forces both high in the pushed
// copy itself.
func (c *Cpu) StatusByte() byte {
	var p byte
	p = mask.Put(p, mask.B0, c.Flags.Carry)
	p = mask.Put(p, mask.B1, c.Flags.Zero)
	p = mask.Put(p, mask.B2, c.Flags.DisableInterrupt)
	p = mask.Put(p, mask.B3, c.Flags.Decimal)
	p = mask.Put(p, mask.B4, c.Flags.B)
	p = mask.Put(p, mask.B5, c.Flags.Unused)
	p = mask.Put(p, mask.B6, c.Flags.Overflow)
	p = mask.Put(p, mask.B7, c.Flags.Negative)
	return p
}

// setStatusByte spreads a packed status byte back into the flag fields. PLP
// and RTI are responsible for forcing B and Unused afterwards.
func (c *Cpu) setStatusByte(p byte) {
	c.Flags.Carry = mask.IsSet(p, mask.B0)
	c.Flags.Zero = mask.IsSet(p, mask.B1)
	c.Flags.DisableInterrupt = mask.IsSet(p, mask.B2)
	c.Flags.Decimal = mask.IsSet(p, mask.B3)
	c.Flags.B = mask.IsSet(p, mask.B4)
	c.Flags.Unused = mask.IsSet(p, mask.B5)
	c.Flags.Overflow = mask.IsSet(p, mask.B6)
	c.Flags.Negative = mask.IsSet(p, mask.B7)
}

// push writes a byte to the next free stack slot, then moves the stack
// pointer down. The pointer wraps within the 01 page.
func (c *Cpu) push(data byte) {
	c.Write(StackPage|uint16(c.Stack), data)
	c.Stack--
}

// pop moves the stack pointer up, then reads the byte there.
func (c *Cpu) pop() byte {
	c.Stack++
	return c.Read(StackPage | uint16(c.Stack))
}

// pushWord pushes a word high byte first, so that the two stack bytes end up
// in little-endian order like everywhere else in memory.
func (c *Cpu) pushWord(w uint16) {
	c.push(mask.Hi(w))
	c.push(mask.Lo(w))
}

func (c *Cpu) popWord() uint16 {
	lo := c.pop()
	hi := c.pop()
	return mask.Word(hi, lo)
}

// An AddressingMode tells the Cpu where to look for an instruction's operand.
// There are 13 possible modes.
//
// Most instructions can index the full 64 kB range of memory, that is, 256
// pages of 256 bytes. The exceptions are the ZeroPage and Indirect modes,
// whose pointer arithmetic is confined to the first page.
type AddressingMode int

// https://www.nesdev.org/wiki/CPU_addressing_modes

const (
	// no operand bytes

	Implied     AddressingMode = iota // no operand at all
	Accumulator                       // operate on Cpu.Accumulator

	// 1 operand byte

	Immediate // the operand is the byte after the opcode
	ZeroPage  // 0x0000-0x00ff
	ZeroPageX
	ZeroPageY // LDX, STX only
	IndirectX // pointer in page 0, indexed before the indirection
	IndirectY // pointer in page 0, indexed after the indirection
	Relative  // branches; signed displacement from the next instruction

	// 2 operand bytes

	Absolute
	AbsoluteX
	AbsoluteY
	Indirect // JMP only
)

// operandAddr resolves the effective operand address for the current
// instruction. The ProgramCounter must point at the first operand byte; it is
// not advanced here (the run loop owns that, via the opcode length).
//
// Implied, Accumulator, Relative, and Indirect instructions never have a
// plain operand address; asking for one is a bug in the core, not in the
// program being run.
func (c *Cpu) operandAddr(a AddressingMode) uint16 {
	switch a {

	case Immediate:
		return c.ProgramCounter

	case ZeroPage:
		return uint16(c.Read(c.ProgramCounter))

	case ZeroPageX:
		// the index is added before zero-extension, so it wraps within
		// page 0
		return uint16(c.Read(c.ProgramCounter) + c.X)

	case ZeroPageY:
		return uint16(c.Read(c.ProgramCounter) + c.Y)

	case Absolute:
		return c.ReadWord(c.ProgramCounter)

	case AbsoluteX:
		return c.ReadWord(c.ProgramCounter) + uint16(c.X)

	case AbsoluteY:
		return c.ReadWord(c.ProgramCounter) + uint16(c.Y)

	case IndirectX:
		// both pointer bytes are fetched from page 0, with the X offset
		// applied before the indirection
		ptr := c.Read(c.ProgramCounter) + c.X
		lo := c.Read(uint16(ptr))
		hi := c.Read(uint16(ptr + 1))
		return mask.Word(hi, lo)

	case IndirectY:
		// unlike IndirectX, the Y offset is applied after the
		// indirection, across the whole address space
		ptr := c.Read(c.ProgramCounter)
		lo := c.Read(uint16(ptr))
		hi := c.Read(uint16(ptr + 1))
		return mask.Word(hi, lo) + uint16(c.Y)
	}

	panic(fmt.Sprintf("cpu: addressing mode %d has no operand address", a))
}

// An UnknownOpcode error reports a fetched byte with no entry in the opcode
// table: either a buggy program, or a valid unofficial opcode this core does
// not implement.
type UnknownOpcode struct {
	Op byte
	PC uint16
}

func (e UnknownOpcode) Error() string {
	return fmt.Sprintf("unknown opcode 0x%02X at 0x%04X", e.Op, e.PC)
}

// Step fetches and executes the single instruction at the current
// ProgramCounter. It reports true when the fetched opcode is BRK, which halts
// the machine without executing anything.
func (c *Cpu) Step() (halted bool, err error) {
	b := c.Read(c.ProgramCounter)
	op, legal := Opcodes[b]
	if !legal {
		return false, UnknownOpcode{Op: b, PC: c.ProgramCounter}
	}
	c.ProgramCounter++

	if b == 0x00 { // BRK
		return true, nil
	}

	// Branches that take, and the jump/return instructions, set the
	// ProgramCounter themselves; everything else has it advanced past the
	// operand bytes here.
	before := c.ProgramCounter
	op.Instruction(c, op.AddressingMode)
	if c.ProgramCounter == before {
		c.ProgramCounter += uint16(op.Len - 1)
	}

	c.Cycles += uint64(op.Cycles)
	return false, nil
}

// Reset zeroes the working registers, restores the initial flags and stack
// pointer, and loads the ProgramCounter from the reset vector.
func (c *Cpu) Reset() {
	c.Accumulator = 0
	c.X = 0
	c.Y = 0
	c.initFlags()
	c.Stack = stackInit
	c.ProgramCounter = c.ReadWord(ResetVector)
}

// Load copies a program image into memory at LoadAddr and points the reset
// vector there. Images longer than the space between LoadAddr and the top of
// memory are truncated.
//
// Load does not touch the registers: call Reset (or use LoadAndRun) before
// Run.
func (c *Cpu) Load(program []byte) {
	if space := int(0x10000 - uint32(LoadAddr)); len(program) > space {
		program = program[:space]
	}
	for i, b := range program {
		c.Write(LoadAddr+uint16(i), b)
	}
	c.WriteWord(ResetVector, LoadAddr)
}

// Run executes instructions from the current ProgramCounter until a BRK
// opcode is fetched, at which point it returns nil. The only error is an
// UnknownOpcode.
func (c *Cpu) Run() error {
	return c.RunWithCallback(func(*Cpu) {})
}

// RunWithCallback is Run with a hook invoked before each opcode fetch. The
// callback may inspect or mutate the Cpu; calling Run from inside it is
// undefined.
func (c *Cpu) RunWithCallback(callback func(*Cpu)) error {
	for {
		callback(c)
		halted, err := c.Step()
		if err != nil {
			return err
		}
		if halted {
			return nil
		}
	}
}

// LoadAndRun loads a program image, resets, and runs it to the first BRK.
func (c *Cpu) LoadAndRun(program []byte) error {
	c.Load(program)
	c.Reset()
	return c.Run()
}
