package cpu

import (
	"testing"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/require"
)

// registers is the whole observable register file, for snapshot comparisons.
type registers struct {
	A, X, Y, S byte
	PC         uint16
	P          byte
}

func snapshot(c *Cpu) registers {
	return registers{
		A:  c.Accumulator,
		X:  c.X,
		Y:  c.Y,
		S:  c.Stack,
		PC: c.ProgramCounter,
		P:  c.StatusByte(),
	}
}

func TestMultiplyProgram(t *testing.T) {
	// multiply 10 by 3 through repeated addition:
	//
	//   LDX #$0a        STX $0000
	//   LDX #$03        STX $0001
	//   LDY $0000
	//   LDA #$00        CLC
	//   loop: ADC $0001 DEY
	//   BNE loop
	//   STA $0002       BRK
	program := []byte{
		0xa2, 0x0a, 0x8e, 0x00, 0x00,
		0xa2, 0x03, 0x8e, 0x01, 0x00,
		0xac, 0x00, 0x00,
		0xa9, 0x00, 0x18,
		0x6d, 0x01, 0x00, 0x88,
		0xd0, 0xfa,
		0x8d, 0x02, 0x00,
		0x00,
	}

	c := New()
	require.NoError(t, c.LoadAndRun(program))

	want := registers{
		A:  30,
		X:  3,
		Y:  0,
		S:  0xfd,
		PC: 0x061a,            // one past the halting BRK at $0619
		P:  byte(0b0010_0110), // I and U from reset; Z from the final DEY
	}
	if diff := deep.Equal(snapshot(c), want); diff != nil {
		t.Error(diff)
	}

	require.Equal(t, c.Read(0x0000), byte(10))
	require.Equal(t, c.Read(0x0001), byte(3))
	require.Equal(t, c.Read(0x0002), byte(30))
}

func TestSubroutineProgram(t *testing.T) {
	// JSR into a tiny INX subroutine, then fall onto BRK
	c := New()
	require.NoError(t, c.LoadAndRun([]byte{0x20, 0x05, 0x06, 0x00, 0x00, 0xe8, 0x60}))

	want := registers{
		A:  0,
		X:  1,
		Y:  0,
		S:  0xfd,
		PC: 0x0604,
		P:  byte(0b0010_0100),
	}
	if diff := deep.Equal(snapshot(c), want); diff != nil {
		t.Error(diff)
	}
}

func TestResetRestoresTheRegisterFile(t *testing.T) {
	c := New()
	c.Load([]byte{0x00})
	c.Accumulator = 0x42
	c.X = 0x43
	c.Y = 0x44
	c.Stack = 0x00
	c.Flags.Carry = true
	c.Flags.Decimal = true

	c.Reset()

	want := registers{
		A:  0,
		X:  0,
		Y:  0,
		S:  0xfd,
		PC: 0x0600,
		P:  byte(0b0010_0100),
	}
	if diff := deep.Equal(snapshot(c), want); diff != nil {
		t.Error(diff)
	}
}
