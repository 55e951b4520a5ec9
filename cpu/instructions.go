package cpu

// One method per mnemonic, in the order of the obelisk reference:
// https://www.nesdev.org/obelisk-6502-guide/reference.html
//
// Every Instruction receives the AddressingMode of the opcode it was reached
// through; instructions with a single encoding ignore it. None of them
// advance the ProgramCounter past their operand bytes (the run loop owns
// that), so an instruction that leaves the ProgramCounter untouched here is
// one that "did not jump".

import "gomos/mask"

// operand resolves and reads the instruction's operand byte.
func (c *Cpu) operand(mode AddressingMode) byte {
	return c.Read(c.operandAddr(mode))
}

// updateZN sets the Zero and Negative flags from an 8-bit result. Every load,
// transfer, and ALU result funnels through here; no other flags are touched.
func (c *Cpu) updateZN(v byte) {
	c.Flags.Zero = v == 0
	c.Flags.Negative = mask.IsSet(v, mask.B7)
}

func (c *Cpu) setA(v byte) {
	c.Accumulator = v
	c.updateZN(v)
}

func (c *Cpu) setX(v byte) {
	c.X = v
	c.updateZN(v)
}

func (c *Cpu) setY(v byte) {
	c.Y = v
	c.updateZN(v)
}

// addToA adds m and the carry into the Accumulator, setting Carry to the 9th
// bit of the unsigned sum and Overflow iff the signed interpretation
// overflowed. ADC passes the operand through directly; SBC passes its
// complement, which turns A-m-(1-C) into the same addition.
func (c *Cpu) addToA(m byte) {
	sum := uint16(c.Accumulator) + uint16(m)
	if c.Flags.Carry {
		sum++
	}
	c.Flags.Carry = sum > 0xff

	// the result's sign is wrong iff it differs from the sign of both
	// addends
	r := byte(sum)
	c.Flags.Overflow = (m^r)&(r^c.Accumulator)&0x80 != 0

	c.setA(r)
}

// compare subtracts m from a register value without storing the result:
// Carry reports reg >= m (unsigned), Zero and Negative describe reg-m.
func (c *Cpu) compare(reg, m byte) {
	c.Flags.Carry = m <= reg
	c.updateZN(reg - m)
}

// branch adds the signed displacement at the ProgramCounter when the
// condition holds. The displacement is relative to the instruction after the
// branch.
func (c *Cpu) branch(condition bool) {
	if !condition {
		return
	}
	rel := c.Read(c.ProgramCounter)
	c.ProgramCounter = c.ProgramCounter + 1 + uint16(int8(rel))
}

// ADC - Add with Carry
func (c *Cpu) ADC(mode AddressingMode) {
	c.addToA(c.operand(mode))
}

// AND - Logical AND
func (c *Cpu) AND(mode AddressingMode) {
	c.setA(c.Accumulator & c.operand(mode))
}

// ASL - Arithmetic Shift Left
func (c *Cpu) ASL(mode AddressingMode) {
	if mode == Accumulator {
		c.Flags.Carry = mask.IsSet(c.Accumulator, mask.B7)
		c.setA(c.Accumulator << 1)
		return
	}
	addr := c.operandAddr(mode)
	v := c.Read(addr)
	c.Flags.Carry = mask.IsSet(v, mask.B7)
	v <<= 1
	c.Write(addr, v)
	c.updateZN(v)
}

// BCC - Branch if Carry Clear
func (c *Cpu) BCC(AddressingMode) {
	c.branch(!c.Flags.Carry)
}

// BCS - Branch if Carry Set
func (c *Cpu) BCS(AddressingMode) {
	c.branch(c.Flags.Carry)
}

// BEQ - Branch if Equal
func (c *Cpu) BEQ(AddressingMode) {
	c.branch(c.Flags.Zero)
}

// BIT - Bit Test. The Accumulator masks the operand but is not modified:
// Zero reports the masked result, while Negative and Overflow copy bits 7
// and 6 of the operand itself.
func (c *Cpu) BIT(mode AddressingMode) {
	m := c.operand(mode)
	c.Flags.Zero = c.Accumulator&m == 0
	c.Flags.Negative = mask.IsSet(m, mask.B7)
	c.Flags.Overflow = mask.IsSet(m, mask.B6)
}

// BMI - Branch if Minus
func (c *Cpu) BMI(AddressingMode) {
	c.branch(c.Flags.Negative)
}

// BNE - Branch if Not Equal
func (c *Cpu) BNE(AddressingMode) {
	c.branch(!c.Flags.Zero)
}

// BPL - Branch if Positive
func (c *Cpu) BPL(AddressingMode) {
	c.branch(!c.Flags.Negative)
}

// BRK - Force Interrupt. The run loop halts on the fetch itself, so this body
// never executes; the table entry exists for the Len/Cycles/Name metadata.
func (c *Cpu) BRK(AddressingMode) {}

// BVC - Branch if Overflow Clear
func (c *Cpu) BVC(AddressingMode) {
	c.branch(!c.Flags.Overflow)
}

// BVS - Branch if Overflow Set
func (c *Cpu) BVS(AddressingMode) {
	c.branch(c.Flags.Overflow)
}

// CLC - Clear Carry Flag
func (c *Cpu) CLC(AddressingMode) {
	c.Flags.Carry = false
}

// CLD - Clear Decimal Mode
func (c *Cpu) CLD(AddressingMode) {
	c.Flags.Decimal = false
}

// CLI - Clear Interrupt Disable
func (c *Cpu) CLI(AddressingMode) {
	c.Flags.DisableInterrupt = false
}

// CLV - Clear Overflow Flag
func (c *Cpu) CLV(AddressingMode) {
	c.Flags.Overflow = false
}

// CMP - Compare
func (c *Cpu) CMP(mode AddressingMode) {
	c.compare(c.Accumulator, c.operand(mode))
}

// CPX - Compare X Register
func (c *Cpu) CPX(mode AddressingMode) {
	c.compare(c.X, c.operand(mode))
}

// CPY - Compare Y Register
func (c *Cpu) CPY(mode AddressingMode) {
	c.compare(c.Y, c.operand(mode))
}

// DEC - Decrement Memory
func (c *Cpu) DEC(mode AddressingMode) {
	addr := c.operandAddr(mode)
	v := c.Read(addr) - 1
	c.Write(addr, v)
	c.updateZN(v)
}

// DEX - Decrement X Register
func (c *Cpu) DEX(AddressingMode) {
	c.setX(c.X - 1)
}

// DEY - Decrement Y Register
func (c *Cpu) DEY(AddressingMode) {
	c.setY(c.Y - 1)
}

// EOR - Exclusive OR
func (c *Cpu) EOR(mode AddressingMode) {
	c.setA(c.Accumulator ^ c.operand(mode))
}

// INC - Increment Memory
func (c *Cpu) INC(mode AddressingMode) {
	addr := c.operandAddr(mode)
	v := c.Read(addr) + 1
	c.Write(addr, v)
	c.updateZN(v)
}

// INX - Increment X Register
func (c *Cpu) INX(AddressingMode) {
	c.setX(c.X + 1)
}

// INY - Increment Y Register
func (c *Cpu) INY(AddressingMode) {
	c.setY(c.Y + 1)
}

// JMP - Jump. The indirect form reproduces the 6502's page-boundary defect: a
// pointer at $xxFF takes its high byte from $xx00 instead of the next page.
func (c *Cpu) JMP(mode AddressingMode) {
	target := c.ReadWord(c.ProgramCounter)
	if mode == Indirect {
		if mask.Lo(target) == 0xFF {
			lo := c.Read(target)
			hi := c.Read(target & 0xFF00)
			target = mask.Word(hi, lo)
		} else {
			target = c.ReadWord(target)
		}
	}
	c.ProgramCounter = target
}

// JSR - Jump to Subroutine. The pushed return address points at the last byte
// of the JSR itself; RTS compensates with its +1.
func (c *Cpu) JSR(AddressingMode) {
	c.pushWord(c.ProgramCounter + 1)
	c.ProgramCounter = c.ReadWord(c.ProgramCounter)
}

// LDA - Load Accumulator
func (c *Cpu) LDA(mode AddressingMode) {
	c.setA(c.operand(mode))
}

// LDX - Load X Register
func (c *Cpu) LDX(mode AddressingMode) {
	c.setX(c.operand(mode))
}

// LDY - Load Y Register
func (c *Cpu) LDY(mode AddressingMode) {
	c.setY(c.operand(mode))
}

// LSR - Logical Shift Right
func (c *Cpu) LSR(mode AddressingMode) {
	if mode == Accumulator {
		c.Flags.Carry = mask.IsSet(c.Accumulator, mask.B0)
		c.setA(c.Accumulator >> 1)
		return
	}
	addr := c.operandAddr(mode)
	v := c.Read(addr)
	c.Flags.Carry = mask.IsSet(v, mask.B0)
	v >>= 1
	c.Write(addr, v)
	c.updateZN(v)
}

// NOP - No Operation
func (c *Cpu) NOP(AddressingMode) {}

// ORA - Logical Inclusive OR
func (c *Cpu) ORA(mode AddressingMode) {
	c.setA(c.Accumulator | c.operand(mode))
}

// PHA - Push Accumulator
func (c *Cpu) PHA(AddressingMode) {
	c.push(c.Accumulator)
}

// PHP - Push Processor Status. The pushed copy always has B and Unused set,
// whatever the live flags say.
func (c *Cpu) PHP(AddressingMode) {
	p := c.StatusByte()
	p = mask.Set(p, mask.B4)
	p = mask.Set(p, mask.B5)
	c.push(p)
}

// PLA - Pull Accumulator
func (c *Cpu) PLA(AddressingMode) {
	c.setA(c.pop())
}

// PLP - Pull Processor Status. B and Unused are not real bits, so the pulled
// copy has B forced clear and Unused forced set.
func (c *Cpu) PLP(AddressingMode) {
	c.setStatusByte(c.pop())
	c.Flags.B = false
	c.Flags.Unused = true
}

// ROL - Rotate Left
func (c *Cpu) ROL(mode AddressingMode) {
	rol := func(v byte) byte {
		oldCarry := c.Flags.Carry
		c.Flags.Carry = mask.IsSet(v, mask.B7)
		v <<= 1
		if oldCarry {
			v = mask.Set(v, mask.B0)
		}
		return v
	}
	if mode == Accumulator {
		c.setA(rol(c.Accumulator))
		return
	}
	addr := c.operandAddr(mode)
	v := rol(c.Read(addr))
	c.Write(addr, v)
	c.updateZN(v)
}

// ROR - Rotate Right
func (c *Cpu) ROR(mode AddressingMode) {
	ror := func(v byte) byte {
		oldCarry := c.Flags.Carry
		c.Flags.Carry = mask.IsSet(v, mask.B0)
		v >>= 1
		if oldCarry {
			v = mask.Set(v, mask.B7)
		}
		return v
	}
	if mode == Accumulator {
		c.setA(ror(c.Accumulator))
		return
	}
	addr := c.operandAddr(mode)
	v := ror(c.Read(addr))
	c.Write(addr, v)
	c.updateZN(v)
}

// RTI - Return from Interrupt. Restores the flags, then the ProgramCounter,
// with no +1: the pushed address is the return point itself.
func (c *Cpu) RTI(AddressingMode) {
	c.setStatusByte(c.pop())
	c.Flags.B = false
	c.Flags.Unused = true
	c.ProgramCounter = c.popWord()
}

// RTS - Return from Subroutine
func (c *Cpu) RTS(AddressingMode) {
	c.ProgramCounter = c.popWord() + 1
}

// SBC - Subtract with Carry: A-m-(1-C), expressed as the addition of m's
// two's complement minus one, so addToA produces the right Carry and
// Overflow.
func (c *Cpu) SBC(mode AddressingMode) {
	c.addToA(^c.operand(mode))
}

// SEC - Set Carry Flag
func (c *Cpu) SEC(AddressingMode) {
	c.Flags.Carry = true
}

// SED - Set Decimal Flag
func (c *Cpu) SED(AddressingMode) {
	c.Flags.Decimal = true
}

// SEI - Set Interrupt Disable
func (c *Cpu) SEI(AddressingMode) {
	c.Flags.DisableInterrupt = true
}

// STA - Store Accumulator
func (c *Cpu) STA(mode AddressingMode) {
	c.Write(c.operandAddr(mode), c.Accumulator)
}

// STX - Store X Register
func (c *Cpu) STX(mode AddressingMode) {
	c.Write(c.operandAddr(mode), c.X)
}

// STY - Store Y Register
func (c *Cpu) STY(mode AddressingMode) {
	c.Write(c.operandAddr(mode), c.Y)
}

// TAX - Transfer Accumulator to X
func (c *Cpu) TAX(AddressingMode) {
	c.setX(c.Accumulator)
}

// TAY - Transfer Accumulator to Y
func (c *Cpu) TAY(AddressingMode) {
	c.setY(c.Accumulator)
}

// TSX - Transfer Stack Pointer to X
func (c *Cpu) TSX(AddressingMode) {
	c.setX(c.Stack)
}

// TXA - Transfer X to Accumulator
func (c *Cpu) TXA(AddressingMode) {
	c.setA(c.X)
}

// TXS - Transfer X to Stack Pointer. The only transfer that leaves the flags
// alone.
func (c *Cpu) TXS(AddressingMode) {
	c.Stack = c.X
}

// TYA - Transfer Y to Accumulator
func (c *Cpu) TYA(AddressingMode) {
	c.setA(c.Y)
}
