package cpu

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"

	"gomos/mask"
)

// The debugger is a small interactive TUI that single-steps the executor:
// space/j executes one instruction, r resets the machine, q quits. It renders
// the head of the zero page, the tail of the stack page, and the first rows of
// the program image at LoadAddr, with the byte at the ProgramCounter bracketed.

type model struct {
	cpu *Cpu

	prevPC uint16
	halted bool
	err    error
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case " ", "j":
			if m.halted {
				return m, nil
			}
			m.prevPC = m.cpu.ProgramCounter
			m.halted, m.err = m.cpu.Step()
			if m.err != nil {
				return m, tea.Quit
			}

		case "r":
			m.cpu.Reset()
			m.prevPC = m.cpu.ProgramCounter
			m.halted = false
		}
	}
	return m, nil
}

// renderRow renders 16 bytes of memory as a line. The current PC is
// bracketed.
func (m model) renderRow(start uint16) string {
	if start%16 != 0 {
		panic("start must be a multiple of 16")
	}
	s := fmt.Sprintf("%04x | ", start)
	for i := range uint16(16) {
		b := m.cpu.Read(start + i)
		if start+i == m.cpu.ProgramCounter {
			s += fmt.Sprintf("[%02x] ", b)
		} else {
			s += fmt.Sprintf(" %02x  ", b)
		}
	}
	return s
}

func (m model) status() string {
	var flags string
	p := m.cpu.StatusByte()
	for bit := mask.B7; ; bit-- {
		if mask.IsSet(p, bit) {
			flags += "/ "
		} else {
			flags += "  "
		}
		if bit == mask.B0 {
			break
		}
	}

	state := "running"
	if m.halted {
		state = "halted"
	}

	return fmt.Sprintf(`
PC: %04x (%04x)
 A: %02x
 X: %02x
 Y: %02x
 S: %02x
 P: %02x  %s
N V _ B D I Z C
`,
		m.cpu.ProgramCounter,
		m.prevPC,
		m.cpu.Accumulator,
		m.cpu.X,
		m.cpu.Y,
		m.cpu.Stack,
		p,
		state,
	) + flags
}

func (m model) pageTable() string {
	header := "addr | "
	for b := range uint16(16) {
		header += fmt.Sprintf("  %01x  ", b)
	}

	rows := []string{header}

	offsets := []uint16{
		// head of the zero page
		0x0000, 0x0010, 0x0020, 0x0030,
		// where the stack lives
		0x01e0, 0x01f0,
		// the program image
		LoadAddr,
		LoadAddr + 16*1,
		LoadAddr + 16*2,
		LoadAddr + 16*3,
		LoadAddr + 16*4,
	}
	for _, o := range offsets {
		rows = append(rows, m.renderRow(o))
	}
	return strings.Join(rows, "\n")
}

func (m model) View() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			m.pageTable(),
			m.status(),
		),
		"",
		spew.Sdump(Opcodes[m.cpu.Read(m.cpu.ProgramCounter)]),
	)
}

// Debug loads the program image, resets, and starts an interactive TUI
// stepping it instruction by instruction.
func (c *Cpu) Debug(program []byte) error {
	c.Load(program)
	c.Reset()

	m, err := tea.NewProgram(model{
		cpu:    c,
		prevPC: c.ProgramCounter,
	}).Run()
	if err != nil {
		return err
	}
	if x := m.(model); x.err != nil {
		return x.err
	}
	return nil
}
