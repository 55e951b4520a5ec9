package cpu

// An Opcode is associated with a unique byte value (0x00-0xff). There are 256
// possible encodings, but only 151 correspond to an official Cpu instruction,
// mapped onto 56 mnemonics.
//
// The Opcode carries with it the total instruction length in bytes (opcode
// plus operands), the base number of clock Cycles the instruction costs, and
// the AddressingMode that tells the Cpu how to locate the operand. Multiple
// Opcodes may execute the same Instruction, differing only in how the operand
// is reached.
type Opcode struct {
	AddressingMode AddressingMode

	// Len is 1, 2, or 3: the opcode byte plus zero to two operand bytes.
	// The run loop advances the ProgramCounter by Len-1 after an
	// instruction that did not set it itself.
	Len byte

	// Base clock cycles, typically 2 to 7. Page-cross and branch-taken
	// penalties are not modelled; see Cpu.Cycles.
	Cycles byte

	// An Instruction usually modifies or copies register(s). The operand,
	// if any, is located through the AddressingMode, not passed as an
	// argument.
	Instruction func(c *Cpu, mode AddressingMode)

	Name string // for the debugger and trace output
}

// The Opcodes table lists all 151 byte values recognised by the Cpu. It is
// populated once, at package init, and never written afterwards.
var Opcodes = map[byte]Opcode{
	// http://www.6502.org/tutorials/6502opcodes.html
	// https://www.nesdev.org/obelisk-6502-guide/reference.html

	0x69: {Instruction: (*Cpu).ADC, Name: "ADC", Len: 2, Cycles: 2, AddressingMode: Immediate},
	0x65: {Instruction: (*Cpu).ADC, Name: "ADC", Len: 2, Cycles: 3, AddressingMode: ZeroPage},
	0x75: {Instruction: (*Cpu).ADC, Name: "ADC", Len: 2, Cycles: 4, AddressingMode: ZeroPageX},
	0x6D: {Instruction: (*Cpu).ADC, Name: "ADC", Len: 3, Cycles: 4, AddressingMode: Absolute},
	0x7D: {Instruction: (*Cpu).ADC, Name: "ADC", Len: 3, Cycles: 4, AddressingMode: AbsoluteX},
	0x79: {Instruction: (*Cpu).ADC, Name: "ADC", Len: 3, Cycles: 4, AddressingMode: AbsoluteY},
	0x61: {Instruction: (*Cpu).ADC, Name: "ADC", Len: 2, Cycles: 6, AddressingMode: IndirectX},
	0x71: {Instruction: (*Cpu).ADC, Name: "ADC", Len: 2, Cycles: 5, AddressingMode: IndirectY},
	0x29: {Instruction: (*Cpu).AND, Name: "AND", Len: 2, Cycles: 2, AddressingMode: Immediate},
	0x25: {Instruction: (*Cpu).AND, Name: "AND", Len: 2, Cycles: 3, AddressingMode: ZeroPage},
	0x35: {Instruction: (*Cpu).AND, Name: "AND", Len: 2, Cycles: 4, AddressingMode: ZeroPageX},
	0x2D: {Instruction: (*Cpu).AND, Name: "AND", Len: 3, Cycles: 4, AddressingMode: Absolute},
	0x3D: {Instruction: (*Cpu).AND, Name: "AND", Len: 3, Cycles: 4, AddressingMode: AbsoluteX},
	0x39: {Instruction: (*Cpu).AND, Name: "AND", Len: 3, Cycles: 4, AddressingMode: AbsoluteY},
	0x21: {Instruction: (*Cpu).AND, Name: "AND", Len: 2, Cycles: 6, AddressingMode: IndirectX},
	0x31: {Instruction: (*Cpu).AND, Name: "AND", Len: 2, Cycles: 5, AddressingMode: IndirectY},
	0x0A: {Instruction: (*Cpu).ASL, Name: "ASL", Len: 1, Cycles: 2, AddressingMode: Accumulator},
	0x06: {Instruction: (*Cpu).ASL, Name: "ASL", Len: 2, Cycles: 5, AddressingMode: ZeroPage},
	0x16: {Instruction: (*Cpu).ASL, Name: "ASL", Len: 2, Cycles: 6, AddressingMode: ZeroPageX},
	0x0E: {Instruction: (*Cpu).ASL, Name: "ASL", Len: 3, Cycles: 6, AddressingMode: Absolute},
	0x1E: {Instruction: (*Cpu).ASL, Name: "ASL", Len: 3, Cycles: 7, AddressingMode: AbsoluteX},
	0x24: {Instruction: (*Cpu).BIT, Name: "BIT", Len: 2, Cycles: 3, AddressingMode: ZeroPage},
	0x2C: {Instruction: (*Cpu).BIT, Name: "BIT", Len: 3, Cycles: 4, AddressingMode: Absolute},
	0x00: {Instruction: (*Cpu).BRK, Name: "BRK", Len: 1, Cycles: 7, AddressingMode: Implied},
	0xC9: {Instruction: (*Cpu).CMP, Name: "CMP", Len: 2, Cycles: 2, AddressingMode: Immediate},
	0xC5: {Instruction: (*Cpu).CMP, Name: "CMP", Len: 2, Cycles: 3, AddressingMode: ZeroPage},
	0xD5: {Instruction: (*Cpu).CMP, Name: "CMP", Len: 2, Cycles: 4, AddressingMode: ZeroPageX},
	0xCD: {Instruction: (*Cpu).CMP, Name: "CMP", Len: 3, Cycles: 4, AddressingMode: Absolute},
	0xDD: {Instruction: (*Cpu).CMP, Name: "CMP", Len: 3, Cycles: 4, AddressingMode: AbsoluteX},
	0xD9: {Instruction: (*Cpu).CMP, Name: "CMP", Len: 3, Cycles: 4, AddressingMode: AbsoluteY},
	0xC1: {Instruction: (*Cpu).CMP, Name: "CMP", Len: 2, Cycles: 6, AddressingMode: IndirectX},
	0xD1: {Instruction: (*Cpu).CMP, Name: "CMP", Len: 2, Cycles: 5, AddressingMode: IndirectY},
	0xE0: {Instruction: (*Cpu).CPX, Name: "CPX", Len: 2, Cycles: 2, AddressingMode: Immediate},
	0xE4: {Instruction: (*Cpu).CPX, Name: "CPX", Len: 2, Cycles: 3, AddressingMode: ZeroPage},
	0xEC: {Instruction: (*Cpu).CPX, Name: "CPX", Len: 3, Cycles: 4, AddressingMode: Absolute},
	0xC0: {Instruction: (*Cpu).CPY, Name: "CPY", Len: 2, Cycles: 2, AddressingMode: Immediate},
	0xC4: {Instruction: (*Cpu).CPY, Name: "CPY", Len: 2, Cycles: 3, AddressingMode: ZeroPage},
	0xCC: {Instruction: (*Cpu).CPY, Name: "CPY", Len: 3, Cycles: 4, AddressingMode: Absolute},
	0xC6: {Instruction: (*Cpu).DEC, Name: "DEC", Len: 2, Cycles: 5, AddressingMode: ZeroPage},
	0xD6: {Instruction: (*Cpu).DEC, Name: "DEC", Len: 2, Cycles: 6, AddressingMode: ZeroPageX},
	0xCE: {Instruction: (*Cpu).DEC, Name: "DEC", Len: 3, Cycles: 6, AddressingMode: Absolute},
	0xDE: {Instruction: (*Cpu).DEC, Name: "DEC", Len: 3, Cycles: 7, AddressingMode: AbsoluteX},
	0x49: {Instruction: (*Cpu).EOR, Name: "EOR", Len: 2, Cycles: 2, AddressingMode: Immediate},
	0x45: {Instruction: (*Cpu).EOR, Name: "EOR", Len: 2, Cycles: 3, AddressingMode: ZeroPage},
	0x55: {Instruction: (*Cpu).EOR, Name: "EOR", Len: 2, Cycles: 4, AddressingMode: ZeroPageX},
	0x4D: {Instruction: (*Cpu).EOR, Name: "EOR", Len: 3, Cycles: 4, AddressingMode: Absolute},
	0x5D: {Instruction: (*Cpu).EOR, Name: "EOR", Len: 3, Cycles: 4, AddressingMode: AbsoluteX},
	0x59: {Instruction: (*Cpu).EOR, Name: "EOR", Len: 3, Cycles: 4, AddressingMode: AbsoluteY},
	0x41: {Instruction: (*Cpu).EOR, Name: "EOR", Len: 2, Cycles: 6, AddressingMode: IndirectX},
	0x51: {Instruction: (*Cpu).EOR, Name: "EOR", Len: 2, Cycles: 5, AddressingMode: IndirectY},
	0xE6: {Instruction: (*Cpu).INC, Name: "INC", Len: 2, Cycles: 5, AddressingMode: ZeroPage},
	0xF6: {Instruction: (*Cpu).INC, Name: "INC", Len: 2, Cycles: 6, AddressingMode: ZeroPageX},
	0xEE: {Instruction: (*Cpu).INC, Name: "INC", Len: 3, Cycles: 6, AddressingMode: Absolute},
	0xFE: {Instruction: (*Cpu).INC, Name: "INC", Len: 3, Cycles: 7, AddressingMode: AbsoluteX},
	0x4C: {Instruction: (*Cpu).JMP, Name: "JMP", Len: 3, Cycles: 3, AddressingMode: Absolute},
	0x6C: {Instruction: (*Cpu).JMP, Name: "JMP", Len: 3, Cycles: 5, AddressingMode: Indirect},
	0x20: {Instruction: (*Cpu).JSR, Name: "JSR", Len: 3, Cycles: 6, AddressingMode: Absolute},
	0xA9: {Instruction: (*Cpu).LDA, Name: "LDA", Len: 2, Cycles: 2, AddressingMode: Immediate},
	0xA5: {Instruction: (*Cpu).LDA, Name: "LDA", Len: 2, Cycles: 3, AddressingMode: ZeroPage},
	0xB5: {Instruction: (*Cpu).LDA, Name: "LDA", Len: 2, Cycles: 4, AddressingMode: ZeroPageX},
	0xAD: {Instruction: (*Cpu).LDA, Name: "LDA", Len: 3, Cycles: 4, AddressingMode: Absolute},
	0xBD: {Instruction: (*Cpu).LDA, Name: "LDA", Len: 3, Cycles: 4, AddressingMode: AbsoluteX},
	0xB9: {Instruction: (*Cpu).LDA, Name: "LDA", Len: 3, Cycles: 4, AddressingMode: AbsoluteY},
	0xA1: {Instruction: (*Cpu).LDA, Name: "LDA", Len: 2, Cycles: 6, AddressingMode: IndirectX},
	0xB1: {Instruction: (*Cpu).LDA, Name: "LDA", Len: 2, Cycles: 5, AddressingMode: IndirectY},
	0xA2: {Instruction: (*Cpu).LDX, Name: "LDX", Len: 2, Cycles: 2, AddressingMode: Immediate},
	0xA6: {Instruction: (*Cpu).LDX, Name: "LDX", Len: 2, Cycles: 3, AddressingMode: ZeroPage},
	0xB6: {Instruction: (*Cpu).LDX, Name: "LDX", Len: 2, Cycles: 4, AddressingMode: ZeroPageY},
	0xAE: {Instruction: (*Cpu).LDX, Name: "LDX", Len: 3, Cycles: 4, AddressingMode: Absolute},
	0xBE: {Instruction: (*Cpu).LDX, Name: "LDX", Len: 3, Cycles: 4, AddressingMode: AbsoluteY},
	0xA0: {Instruction: (*Cpu).LDY, Name: "LDY", Len: 2, Cycles: 2, AddressingMode: Immediate},
	0xA4: {Instruction: (*Cpu).LDY, Name: "LDY", Len: 2, Cycles: 3, AddressingMode: ZeroPage},
	0xB4: {Instruction: (*Cpu).LDY, Name: "LDY", Len: 2, Cycles: 4, AddressingMode: ZeroPageX},
	0xAC: {Instruction: (*Cpu).LDY, Name: "LDY", Len: 3, Cycles: 4, AddressingMode: Absolute},
	0xBC: {Instruction: (*Cpu).LDY, Name: "LDY", Len: 3, Cycles: 4, AddressingMode: AbsoluteX},
	0x4A: {Instruction: (*Cpu).LSR, Name: "LSR", Len: 1, Cycles: 2, AddressingMode: Accumulator},
	0x46: {Instruction: (*Cpu).LSR, Name: "LSR", Len: 2, Cycles: 5, AddressingMode: ZeroPage},
	0x56: {Instruction: (*Cpu).LSR, Name: "LSR", Len: 2, Cycles: 6, AddressingMode: ZeroPageX},
	0x4E: {Instruction: (*Cpu).LSR, Name: "LSR", Len: 3, Cycles: 6, AddressingMode: Absolute},
	0x5E: {Instruction: (*Cpu).LSR, Name: "LSR", Len: 3, Cycles: 7, AddressingMode: AbsoluteX},
	0xEA: {Instruction: (*Cpu).NOP, Name: "NOP", Len: 1, Cycles: 2, AddressingMode: Implied},
	0x09: {Instruction: (*Cpu).ORA, Name: "ORA", Len: 2, Cycles: 2, AddressingMode: Immediate},
	0x05: {Instruction: (*Cpu).ORA, Name: "ORA", Len: 2, Cycles: 3, AddressingMode: ZeroPage},
	0x15: {Instruction: (*Cpu).ORA, Name: "ORA", Len: 2, Cycles: 4, AddressingMode: ZeroPageX},
	0x0D: {Instruction: (*Cpu).ORA, Name: "ORA", Len: 3, Cycles: 4, AddressingMode: Absolute},
	0x1D: {Instruction: (*Cpu).ORA, Name: "ORA", Len: 3, Cycles: 4, AddressingMode: AbsoluteX},
	0x19: {Instruction: (*Cpu).ORA, Name: "ORA", Len: 3, Cycles: 4, AddressingMode: AbsoluteY},
	0x01: {Instruction: (*Cpu).ORA, Name: "ORA", Len: 2, Cycles: 6, AddressingMode: IndirectX},
	0x11: {Instruction: (*Cpu).ORA, Name: "ORA", Len: 2, Cycles: 5, AddressingMode: IndirectY},
	0x2A: {Instruction: (*Cpu).ROL, Name: "ROL", Len: 1, Cycles: 2, AddressingMode: Accumulator},
	0x26: {Instruction: (*Cpu).ROL, Name: "ROL", Len: 2, Cycles: 5, AddressingMode: ZeroPage},
	0x36: {Instruction: (*Cpu).ROL, Name: "ROL", Len: 2, Cycles: 6, AddressingMode: ZeroPageX},
	0x2E: {Instruction: (*Cpu).ROL, Name: "ROL", Len: 3, Cycles: 6, AddressingMode: Absolute},
	0x3E: {Instruction: (*Cpu).ROL, Name: "ROL", Len: 3, Cycles: 7, AddressingMode: AbsoluteX},
	0x6A: {Instruction: (*Cpu).ROR, Name: "ROR", Len: 1, Cycles: 2, AddressingMode: Accumulator},
	0x66: {Instruction: (*Cpu).ROR, Name: "ROR", Len: 2, Cycles: 5, AddressingMode: ZeroPage},
	0x76: {Instruction: (*Cpu).ROR, Name: "ROR", Len: 2, Cycles: 6, AddressingMode: ZeroPageX},
	0x6E: {Instruction: (*Cpu).ROR, Name: "ROR", Len: 3, Cycles: 6, AddressingMode: Absolute},
	0x7E: {Instruction: (*Cpu).ROR, Name: "ROR", Len: 3, Cycles: 7, AddressingMode: AbsoluteX},
	0x40: {Instruction: (*Cpu).RTI, Name: "RTI", Len: 1, Cycles: 6, AddressingMode: Implied},
	0x60: {Instruction: (*Cpu).RTS, Name: "RTS", Len: 1, Cycles: 6, AddressingMode: Implied},
	0xE9: {Instruction: (*Cpu).SBC, Name: "SBC", Len: 2, Cycles: 2, AddressingMode: Immediate},
	0xE5: {Instruction: (*Cpu).SBC, Name: "SBC", Len: 2, Cycles: 3, AddressingMode: ZeroPage},
	0xF5: {Instruction: (*Cpu).SBC, Name: "SBC", Len: 2, Cycles: 4, AddressingMode: ZeroPageX},
	0xED: {Instruction: (*Cpu).SBC, Name: "SBC", Len: 3, Cycles: 4, AddressingMode: Absolute},
	0xFD: {Instruction: (*Cpu).SBC, Name: "SBC", Len: 3, Cycles: 4, AddressingMode: AbsoluteX},
	0xF9: {Instruction: (*Cpu).SBC, Name: "SBC", Len: 3, Cycles: 4, AddressingMode: AbsoluteY},
	0xE1: {Instruction: (*Cpu).SBC, Name: "SBC", Len: 2, Cycles: 6, AddressingMode: IndirectX},
	0xF1: {Instruction: (*Cpu).SBC, Name: "SBC", Len: 2, Cycles: 5, AddressingMode: IndirectY},
	0x85: {Instruction: (*Cpu).STA, Name: "STA", Len: 2, Cycles: 3, AddressingMode: ZeroPage},
	0x95: {Instruction: (*Cpu).STA, Name: "STA", Len: 2, Cycles: 4, AddressingMode: ZeroPageX},
	0x8D: {Instruction: (*Cpu).STA, Name: "STA", Len: 3, Cycles: 4, AddressingMode: Absolute},
	0x9D: {Instruction: (*Cpu).STA, Name: "STA", Len: 3, Cycles: 5, AddressingMode: AbsoluteX},
	0x99: {Instruction: (*Cpu).STA, Name: "STA", Len: 3, Cycles: 5, AddressingMode: AbsoluteY},
	0x81: {Instruction: (*Cpu).STA, Name: "STA", Len: 2, Cycles: 6, AddressingMode: IndirectX},
	0x91: {Instruction: (*Cpu).STA, Name: "STA", Len: 2, Cycles: 6, AddressingMode: IndirectY},
	0x86: {Instruction: (*Cpu).STX, Name: "STX", Len: 2, Cycles: 3, AddressingMode: ZeroPage},
	0x96: {Instruction: (*Cpu).STX, Name: "STX", Len: 2, Cycles: 4, AddressingMode: ZeroPageY},
	0x8E: {Instruction: (*Cpu).STX, Name: "STX", Len: 3, Cycles: 4, AddressingMode: Absolute},
	0x84: {Instruction: (*Cpu).STY, Name: "STY", Len: 2, Cycles: 3, AddressingMode: ZeroPage},
	0x94: {Instruction: (*Cpu).STY, Name: "STY", Len: 2, Cycles: 4, AddressingMode: ZeroPageX},
	0x8C: {Instruction: (*Cpu).STY, Name: "STY", Len: 3, Cycles: 4, AddressingMode: Absolute},

	// clear, set
	0x18: {Instruction: (*Cpu).CLC, Name: "CLC", Len: 1, Cycles: 2, AddressingMode: Implied},
	0x38: {Instruction: (*Cpu).SEC, Name: "SEC", Len: 1, Cycles: 2, AddressingMode: Implied},
	0x58: {Instruction: (*Cpu).CLI, Name: "CLI", Len: 1, Cycles: 2, AddressingMode: Implied},
	0x78: {Instruction: (*Cpu).SEI, Name: "SEI", Len: 1, Cycles: 2, AddressingMode: Implied},
	0xB8: {Instruction: (*Cpu).CLV, Name: "CLV", Len: 1, Cycles: 2, AddressingMode: Implied},
	0xD8: {Instruction: (*Cpu).CLD, Name: "CLD", Len: 1, Cycles: 2, AddressingMode: Implied},
	0xF8: {Instruction: (*Cpu).SED, Name: "SED", Len: 1, Cycles: 2, AddressingMode: Implied},

	// increment, decrement, transfer
	0xAA: {Instruction: (*Cpu).TAX, Name: "TAX", Len: 1, Cycles: 2, AddressingMode: Implied},
	0x8A: {Instruction: (*Cpu).TXA, Name: "TXA", Len: 1, Cycles: 2, AddressingMode: Implied},
	0xCA: {Instruction: (*Cpu).DEX, Name: "DEX", Len: 1, Cycles: 2, AddressingMode: Implied},
	0xE8: {Instruction: (*Cpu).INX, Name: "INX", Len: 1, Cycles: 2, AddressingMode: Implied},
	0xA8: {Instruction: (*Cpu).TAY, Name: "TAY", Len: 1, Cycles: 2, AddressingMode: Implied},
	0x98: {Instruction: (*Cpu).TYA, Name: "TYA", Len: 1, Cycles: 2, AddressingMode: Implied},
	0x88: {Instruction: (*Cpu).DEY, Name: "DEY", Len: 1, Cycles: 2, AddressingMode: Implied},
	0xC8: {Instruction: (*Cpu).INY, Name: "INY", Len: 1, Cycles: 2, AddressingMode: Implied},

	// branch
	0x10: {Instruction: (*Cpu).BPL, Name: "BPL", Len: 2, Cycles: 2, AddressingMode: Relative},
	0x30: {Instruction: (*Cpu).BMI, Name: "BMI", Len: 2, Cycles: 2, AddressingMode: Relative},
	0x50: {Instruction: (*Cpu).BVC, Name: "BVC", Len: 2, Cycles: 2, AddressingMode: Relative},
	0x70: {Instruction: (*Cpu).BVS, Name: "BVS", Len: 2, Cycles: 2, AddressingMode: Relative},
	0x90: {Instruction: (*Cpu).BCC, Name: "BCC", Len: 2, Cycles: 2, AddressingMode: Relative},
	0xB0: {Instruction: (*Cpu).BCS, Name: "BCS", Len: 2, Cycles: 2, AddressingMode: Relative},
	0xD0: {Instruction: (*Cpu).BNE, Name: "BNE", Len: 2, Cycles: 2, AddressingMode: Relative},
	0xF0: {Instruction: (*Cpu).BEQ, Name: "BEQ", Len: 2, Cycles: 2, AddressingMode: Relative},

	// stack
	0x9A: {Instruction: (*Cpu).TXS, Name: "TXS", Len: 1, Cycles: 2, AddressingMode: Implied},
	0xBA: {Instruction: (*Cpu).TSX, Name: "TSX", Len: 1, Cycles: 2, AddressingMode: Implied},
	0x48: {Instruction: (*Cpu).PHA, Name: "PHA", Len: 1, Cycles: 3, AddressingMode: Implied},
	0x68: {Instruction: (*Cpu).PLA, Name: "PLA", Len: 1, Cycles: 4, AddressingMode: Implied},
	0x08: {Instruction: (*Cpu).PHP, Name: "PHP", Len: 1, Cycles: 3, AddressingMode: Implied},
	0x28: {Instruction: (*Cpu).PLP, Name: "PLP", Len: 1, Cycles: 4, AddressingMode: Implied},
}
