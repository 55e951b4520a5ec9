package mem

import "gomos/mask"

// A Bus is a byte-addressable 16-bit address space. The Cpu performs every
// memory access through one, which keeps the core ignorant of mirroring,
// MMIO, and cartridge banking; an integrator that needs those substitutes its
// own implementation with the same contract.
type Bus interface {
	Read(addr uint16) byte
	Write(addr uint16, data byte)
}

// RAM is the simplest possible Bus: a flat 64 kB array with no divisions,
// zeroed on construction.
type RAM struct {
	cells [64 * 1024]byte
}

func NewRAM() *RAM {
	return &RAM{}
}

func (r *RAM) Read(addr uint16) byte {
	return r.cells[addr]
}

func (r *RAM) Write(addr uint16, data byte) {
	r.cells[addr] = data
}

// ReadWord reads a little-endian word from b: the low byte at addr, the high
// byte at addr+1. The second address wraps around the top of the space.
func ReadWord(b Bus, addr uint16) uint16 {
	lo := b.Read(addr)
	hi := b.Read(addr + 1)
	return mask.Word(hi, lo)
}

// WriteWord stores a little-endian word to b, low byte first. The second
// address wraps around the top of the space.
func WriteWord(b Bus, addr uint16, w uint16) {
	b.Write(addr, mask.Lo(w))
	b.Write(addr+1, mask.Hi(w))
}
