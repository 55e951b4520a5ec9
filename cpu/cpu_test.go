package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	c := New()
	c.Load([]byte{0xa9, 0x05, 0x00})

	assert.Equal(t, c.Read(0x0600), byte(0xa9))
	assert.Equal(t, c.Read(0x0601), byte(0x05))
	assert.Equal(t, c.Read(0x0602), byte(0x00))

	// the reset vector now points at the image
	assert.Equal(t, c.ReadWord(ResetVector), uint16(0x0600))

	c.Reset()
	assert.Equal(t, c.ProgramCounter, uint16(0x0600))
	assert.Equal(t, c.Stack, byte(0xfd))
	assert.Equal(t, c.StatusByte(), byte(0b0010_0100))
}

func TestLdaImmediate(t *testing.T) {
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0xa9, 0x05, 0x00}))
	assert.Equal(t, c.Accumulator, byte(0x05))
	assert.False(t, c.Flags.Zero)
	assert.False(t, c.Flags.Negative)
}

func TestLdaZeroFlag(t *testing.T) {
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0xa9, 0x00, 0x00}))
	assert.True(t, c.Flags.Zero)
}

func TestLdaNegativeFlag(t *testing.T) {
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0xa9, 0xff, 0x00}))
	assert.True(t, c.Flags.Negative)
}

func TestLdaFromMemory(t *testing.T) {
	c := New()
	c.Write(0x10, 0x55)
	require.NoError(t, c.LoadAndRun([]byte{0xa5, 0x10, 0x00}))
	assert.Equal(t, c.Accumulator, byte(0x55))
}

func TestFourOpsWorkingTogether(t *testing.T) {
	// LDA #$c0; TAX; INX; BRK
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0xa9, 0xc0, 0xaa, 0xe8, 0x00}))
	assert.Equal(t, c.X, byte(0xc1))

	// 3 instructions at 2 base cycles each; the BRK fetch is not executed
	assert.Equal(t, c.Cycles, uint64(6))
}

func TestInxWrapsThroughZero(t *testing.T) {
	c := New()
	c.Load([]byte{0xe8, 0xe8, 0x00})
	c.Reset()
	c.X = 0xff
	require.NoError(t, c.Run())
	assert.Equal(t, c.X, byte(0x01))
}

func TestAdcOverflow(t *testing.T) {
	// SEC; LDA #$50; ADC #$50 -- both addends positive, result negative
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0x38, 0xa9, 0x50, 0x69, 0x50, 0x00}))
	assert.Equal(t, c.Accumulator, byte(0xa1))
	assert.True(t, c.Flags.Overflow)
	assert.False(t, c.Flags.Carry)
	assert.True(t, c.Flags.Negative)
}

func TestAdcCarryIdentity(t *testing.T) {
	// for every A, m, and incoming carry, the unsigned sum survives intact
	// in the result byte plus the outgoing carry
	c := New()
	for a := range 256 {
		for m := range 256 {
			for _, carry := range []bool{false, true} {
				c.Accumulator = byte(a)
				c.Flags.Carry = carry
				c.addToA(byte(m))

				want := a + m
				if carry {
					want++
				}
				got := int(c.Accumulator)
				if c.Flags.Carry {
					got += 256
				}
				if got != want {
					t.Fatalf("A=%d m=%d C=%v: got %d, want %d", a, m, carry, got, want)
				}
			}
		}
	}
}

func TestSbcRoundTrip(t *testing.T) {
	// ADC m then, with carry set, SBC m restores the accumulator
	for _, a := range []byte{0x00, 0x01, 0x40, 0x7f, 0x80, 0xc3, 0xff} {
		for _, m := range []byte{0x00, 0x01, 0x50, 0x7f, 0x80, 0xff} {
			c := New()
			c.Accumulator = a
			c.Flags.Carry = false
			c.addToA(m)

			c.Flags.Carry = true
			c.addToA(^m)
			assert.Equal(t, c.Accumulator, a, "A=%02x m=%02x", a, m)
		}
	}
}

func TestSbc(t *testing.T) {
	// SEC; LDA #$10; SBC #$03
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0x38, 0xa9, 0x10, 0xe9, 0x03, 0x00}))
	assert.Equal(t, c.Accumulator, byte(0x0d))
	assert.True(t, c.Flags.Carry) // no borrow
}

func TestUpdateZNTouchesNothingElse(t *testing.T) {
	for v := range 256 {
		c := New()
		before := c.StatusByte()
		c.updateZN(byte(v))

		assert.Equal(t, c.Flags.Zero, v == 0)
		assert.Equal(t, c.Flags.Negative, v&0x80 != 0)

		// only bits 1 and 7 may differ
		diff := c.StatusByte() ^ before
		assert.Equal(t, diff&^byte(0b1000_0010), byte(0))
	}
}

func TestCompare(t *testing.T) {
	for _, tt := range []struct {
		reg, m  byte
		c, z, n bool
	}{
		{0x10, 0x10, true, true, false},
		{0x11, 0x10, true, false, false},
		{0x0f, 0x10, false, false, true},
		{0x00, 0x01, false, false, true},
		{0xff, 0x00, true, false, true},
		{0x80, 0x7f, true, false, false},
	} {
		c := New()
		c.compare(tt.reg, tt.m)
		assert.Equal(t, c.Flags.Carry, tt.c, "C for %02x cmp %02x", tt.reg, tt.m)
		assert.Equal(t, c.Flags.Zero, tt.z, "Z for %02x cmp %02x", tt.reg, tt.m)
		assert.Equal(t, c.Flags.Negative, tt.n, "N for %02x cmp %02x", tt.reg, tt.m)
	}
}

func TestCmpImmediate(t *testing.T) {
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0xa9, 0x10, 0xc9, 0x10, 0x00}))
	assert.True(t, c.Flags.Zero)
	assert.True(t, c.Flags.Carry)
	assert.False(t, c.Flags.Negative)
}

func TestBit(t *testing.T) {
	// A masks the operand to zero, while N and V mirror operand bits 7/6
	c := New()
	c.Write(0x10, 0xc0)
	require.NoError(t, c.LoadAndRun([]byte{0xa9, 0x0f, 0x24, 0x10, 0x00}))
	assert.Equal(t, c.Accumulator, byte(0x0f)) // untouched
	assert.True(t, c.Flags.Zero)
	assert.True(t, c.Flags.Negative)
	assert.True(t, c.Flags.Overflow)
}

func TestShifts(t *testing.T) {
	// ASL A: carry takes the old bit 7
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0xa9, 0x81, 0x0a, 0x00}))
	assert.Equal(t, c.Accumulator, byte(0x02))
	assert.True(t, c.Flags.Carry)

	// LSR A: carry takes the old bit 0
	c = New()
	require.NoError(t, c.LoadAndRun([]byte{0xa9, 0x01, 0x4a, 0x00}))
	assert.Equal(t, c.Accumulator, byte(0x00))
	assert.True(t, c.Flags.Carry)
	assert.True(t, c.Flags.Zero)

	// ASL on memory writes back and leaves A alone
	c = New()
	c.Write(0x10, 0x40)
	require.NoError(t, c.LoadAndRun([]byte{0x06, 0x10, 0x00}))
	assert.Equal(t, c.Read(0x10), byte(0x80))
	assert.True(t, c.Flags.Negative)
	assert.False(t, c.Flags.Carry)
}

func TestRotates(t *testing.T) {
	// SEC; LDA #$80; ROL A -- the old carry enters at bit 0, bit 7 leaves
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0x38, 0xa9, 0x80, 0x2a, 0x00}))
	assert.Equal(t, c.Accumulator, byte(0x01))
	assert.True(t, c.Flags.Carry)

	// SEC; LDA #$01; ROR A -- the old carry enters at bit 7, bit 0 leaves
	c = New()
	require.NoError(t, c.LoadAndRun([]byte{0x38, 0xa9, 0x01, 0x6a, 0x00}))
	assert.Equal(t, c.Accumulator, byte(0x80))
	assert.True(t, c.Flags.Carry)
	assert.True(t, c.Flags.Negative)
}

func TestIncDecMemory(t *testing.T) {
	c := New()
	c.Write(0x10, 0xff)
	require.NoError(t, c.LoadAndRun([]byte{0xe6, 0x10, 0x00}))
	assert.Equal(t, c.Read(0x10), byte(0x00))
	assert.True(t, c.Flags.Zero)

	c = New()
	c.Write(0x10, 0x00)
	require.NoError(t, c.LoadAndRun([]byte{0xc6, 0x10, 0x00}))
	assert.Equal(t, c.Read(0x10), byte(0xff))
	assert.True(t, c.Flags.Negative)
}

func TestBranchLoop(t *testing.T) {
	// LDX #$08; loop: DEX; BNE loop
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0xa2, 0x08, 0xca, 0xd0, 0xfd, 0x00}))
	assert.Equal(t, c.X, byte(0x00))
	assert.True(t, c.Flags.Zero)
}

func TestBranchNotTaken(t *testing.T) {
	// LDA #$01 (clears Z); BEQ +2 skipped; LDX #$07
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0xa9, 0x01, 0xf0, 0x02, 0xa2, 0x07, 0x00}))
	assert.Equal(t, c.X, byte(0x07))
}

func TestJmpAbsolute(t *testing.T) {
	// JMP $0605; (dead LDA #$01); LDX #$07 at $0605
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0x4c, 0x05, 0x06, 0xa9, 0x01, 0xa2, 0x07, 0x00}))
	assert.Equal(t, c.X, byte(0x07))
	assert.Equal(t, c.Accumulator, byte(0x00))
}

func TestJmpIndirect(t *testing.T) {
	c := New()
	c.WriteWord(0x0210, 0x0605)
	require.NoError(t, c.LoadAndRun([]byte{0x6c, 0x10, 0x02, 0xa9, 0x01, 0xa2, 0x07, 0x00}))
	assert.Equal(t, c.X, byte(0x07))
	assert.Equal(t, c.Accumulator, byte(0x00))
}

func TestJmpIndirectPageBoundaryBug(t *testing.T) {
	// a pointer at $02ff takes its high byte from $0200, not $0300
	c := New()
	c.Write(0x02ff, 0x34)
	c.Write(0x0300, 0x77) // must be ignored
	c.Write(0x0200, 0x12)
	require.NoError(t, c.LoadAndRun([]byte{0x6c, 0xff, 0x02}))

	// memory at $1234 is zeroed, so the fetch there is the halting BRK
	assert.Equal(t, c.ProgramCounter, uint16(0x1235))
}

func TestJsrRts(t *testing.T) {
	// JSR $0605; BRK; (pad); INX; RTS
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0x20, 0x05, 0x06, 0x00, 0x00, 0xe8, 0x60}))
	assert.Equal(t, c.X, byte(0x01))
	assert.Equal(t, c.Stack, byte(0xfd)) // balanced again
	assert.Equal(t, c.ProgramCounter, uint16(0x0604))
}

func TestStackBalance(t *testing.T) {
	// LDA #$42; PHA; LDA #$00; PLA
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0xa9, 0x42, 0x48, 0xa9, 0x00, 0x68, 0x00}))
	assert.Equal(t, c.Accumulator, byte(0x42))
	assert.Equal(t, c.Stack, byte(0xfd))
	assert.False(t, c.Flags.Zero)
}

func TestStackPointerWraps(t *testing.T) {
	c := New()
	c.Stack = 0x00
	c.push(0xab)
	assert.Equal(t, c.Stack, byte(0xff))
	assert.Equal(t, c.Read(0x0100), byte(0xab))
	assert.Equal(t, c.pop(), byte(0xab))
	assert.Equal(t, c.Stack, byte(0x00))
}

func TestPushWordOrder(t *testing.T) {
	// high byte pushed first, so the word sits little-endian in memory
	c := New()
	c.pushWord(0x1234)
	assert.Equal(t, c.Read(0x01fd), byte(0x12))
	assert.Equal(t, c.Read(0x01fc), byte(0x34))
	assert.Equal(t, c.popWord(), uint16(0x1234))
}

func TestPhpForcesBAndUnused(t *testing.T) {
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0x08, 0x00}))

	pushed := c.Read(0x01fd)
	assert.Equal(t, pushed, byte(0b0011_0100))
	assert.True(t, pushed&0b0011_0000 == 0b0011_0000)

	// the live flags were not disturbed
	assert.False(t, c.Flags.B)
}

func TestPlpClearsBSetsUnused(t *testing.T) {
	// LDA #$ff; PHA; PLP
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0xa9, 0xff, 0x48, 0x28, 0x00}))
	assert.False(t, c.Flags.B)
	assert.True(t, c.Flags.Unused)
	assert.Equal(t, c.StatusByte(), byte(0xef))
}

func TestRti(t *testing.T) {
	// hand-build an interrupt frame: return address $0610, flags $c3
	// LDA #$06; PHA; LDA #$10; PHA; LDA #$c3; PHA; RTI
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{
		0xa9, 0x06, 0x48,
		0xa9, 0x10, 0x48,
		0xa9, 0xc3, 0x48,
		0x40,
	}))

	// RTI lands on $0610 (a zeroed BRK), with no +1 adjustment
	assert.Equal(t, c.ProgramCounter, uint16(0x0611))
	assert.True(t, c.Flags.Negative)
	assert.True(t, c.Flags.Overflow)
	assert.True(t, c.Flags.Zero)
	assert.True(t, c.Flags.Carry)
	assert.False(t, c.Flags.B)
	assert.True(t, c.Flags.Unused)
}

func TestTransfers(t *testing.T) {
	// LDX #$00; TXS -- TXS must not touch the flags
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0xa2, 0x00, 0x9a, 0x00}))
	assert.Equal(t, c.Stack, byte(0x00))
	assert.True(t, c.Flags.Zero) // still set from LDX

	// TSX does update them
	c = New()
	require.NoError(t, c.LoadAndRun([]byte{0xba, 0x00}))
	assert.Equal(t, c.X, byte(0xfd))
	assert.True(t, c.Flags.Negative)
}

func TestFlagInstructions(t *testing.T) {
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0x38, 0xf8, 0x78, 0x00}))
	assert.True(t, c.Flags.Carry)
	assert.True(t, c.Flags.Decimal)
	assert.True(t, c.Flags.DisableInterrupt)

	require.NoError(t, c.LoadAndRun([]byte{0x18, 0xd8, 0x58, 0xb8, 0x00}))
	assert.False(t, c.Flags.Carry)
	assert.False(t, c.Flags.Decimal)
	assert.False(t, c.Flags.DisableInterrupt)
	assert.False(t, c.Flags.Overflow)
}

func TestDecimalFlagIgnoredByAdc(t *testing.T) {
	// SED; LDA #$09; CLC; ADC #$01 -- NES arithmetic stays binary
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0xf8, 0xa9, 0x09, 0x18, 0x69, 0x01, 0x00}))
	assert.Equal(t, c.Accumulator, byte(0x0a))
	assert.True(t, c.Flags.Decimal)
}

func TestAddressingModes(t *testing.T) {
	c := New()
	c.ProgramCounter = 0x0600

	c.Write(0x0600, 0x42)
	assert.Equal(t, c.operandAddr(Immediate), uint16(0x0600))
	assert.Equal(t, c.operandAddr(ZeroPage), uint16(0x0042))

	// zero page indexing wraps within page 0
	c.X = 0xff
	c.Y = 0x02
	assert.Equal(t, c.operandAddr(ZeroPageX), uint16(0x0041))
	assert.Equal(t, c.operandAddr(ZeroPageY), uint16(0x0044))

	c.WriteWord(0x0600, 0x1234)
	assert.Equal(t, c.operandAddr(Absolute), uint16(0x1234))
	assert.Equal(t, c.operandAddr(AbsoluteX), uint16(0x1333))
	assert.Equal(t, c.operandAddr(AbsoluteY), uint16(0x1236))

	// absolute indexing wraps at 16 bits
	c.WriteWord(0x0600, 0xffff)
	c.X = 0x02
	assert.Equal(t, c.operandAddr(AbsoluteX), uint16(0x0001))
}

func TestIndirectModes(t *testing.T) {
	c := New()
	c.ProgramCounter = 0x0600

	// (indirect,X): pointer arithmetic stays in page 0
	c.Write(0x0600, 0xfe)
	c.X = 0x03
	c.Write(0x0001, 0x34) // (0xfe+0x03)%256 = 0x01
	c.Write(0x0002, 0x12)
	assert.Equal(t, c.operandAddr(IndirectX), uint16(0x1234))

	// (indirect),Y: pointer high byte wraps to $00
	c = New()
	c.ProgramCounter = 0x0600
	c.Write(0x0600, 0xff)
	c.Write(0x00ff, 0x10)
	c.Write(0x0000, 0x20)
	c.Y = 0x05
	assert.Equal(t, c.operandAddr(IndirectY), uint16(0x2015))
}

func TestResolverRejectsImplied(t *testing.T) {
	c := New()
	assert.Panics(t, func() { c.operandAddr(Implied) })
	assert.Panics(t, func() { c.operandAddr(Accumulator) })
	assert.Panics(t, func() { c.operandAddr(Relative) })
	assert.Panics(t, func() { c.operandAddr(Indirect) })
}

func TestUnknownOpcode(t *testing.T) {
	c := New()
	err := c.LoadAndRun([]byte{0xff})
	require.Error(t, err)

	var unknown UnknownOpcode
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, unknown.Op, byte(0xff))
	assert.Equal(t, unknown.PC, uint16(0x0600))
	assert.Equal(t, err.Error(), "unknown opcode 0xFF at 0x0600")
}

func TestOpcodeTable(t *testing.T) {
	assert.Len(t, Opcodes, 151)

	for b, op := range Opcodes {
		assert.NotEmpty(t, op.Name, "opcode %02x", b)
		assert.NotNil(t, op.Instruction, "opcode %02x", b)
		assert.Contains(t, []byte{1, 2, 3}, op.Len, "opcode %02x", b)
		assert.NotZero(t, op.Cycles, "opcode %02x", b)

		// length is fully determined by the addressing mode
		switch op.AddressingMode {
		case Implied, Accumulator:
			assert.Equal(t, op.Len, byte(1), "opcode %02x", b)
		case Absolute, AbsoluteX, AbsoluteY, Indirect:
			assert.Equal(t, op.Len, byte(3), "opcode %02x", b)
		default:
			assert.Equal(t, op.Len, byte(2), "opcode %02x", b)
		}
	}
}

func TestRunWithCallback(t *testing.T) {
	c := New()
	c.Load([]byte{0xa9, 0xc0, 0xaa, 0xe8, 0x00})
	c.Reset()

	// the callback fires once per fetch, the halting BRK included
	var fetches int
	require.NoError(t, c.RunWithCallback(func(*Cpu) { fetches++ }))
	assert.Equal(t, fetches, 4)
}

func TestCallbackCanHaltTheRun(t *testing.T) {
	// an endless loop: JMP $0600. the callback pulls the plug by patching
	// the jump target to BRK after a few laps
	c := New()
	c.Load([]byte{0x4c, 0x00, 0x06})
	c.Reset()

	// the patch lands before the 10th fetch, which then reads the BRK
	var laps int
	require.NoError(t, c.RunWithCallback(func(c *Cpu) {
		laps++
		if laps == 10 {
			c.Write(0x0600, 0x00)
		}
	}))
	assert.Equal(t, laps, 10)
}

func TestLoadTruncatesOversizedImages(t *testing.T) {
	image := make([]byte, 0x10000)
	for i := range image {
		image[i] = 0xea
	}
	c := New()
	c.Load(image)

	// filled up to the top of memory, but the vector write still lands
	assert.Equal(t, c.Read(0xfffb), byte(0xea))
	assert.Equal(t, c.ReadWord(ResetVector), uint16(0x0600))
}
