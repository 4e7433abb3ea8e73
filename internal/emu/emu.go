// Package emu wires cart, bus, cpu, and ppu together into a runnable
// Machine and drives the per-frame loop a host (the ebiten UI, or a
// headless CLI) steps once per vsync.
package emu

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/aldermoor/dmgo/internal/bus"
	"github.com/aldermoor/dmgo/internal/cart"
	"github.com/aldermoor/dmgo/internal/cpu"
	"github.com/aldermoor/dmgo/internal/joypad"
)

// Buttons is the logical pressed/released state of all eight buttons for
// one input sample.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

func (b Buttons) mask() byte {
	var m byte
	if b.Right {
		m |= joypad.Right
	}
	if b.Left {
		m |= joypad.Left
	}
	if b.Up {
		m |= joypad.Up
	}
	if b.Down {
		m |= joypad.Down
	}
	if b.A {
		m |= joypad.A
	}
	if b.B {
		m |= joypad.B
	}
	if b.Select {
		m |= joypad.Select
	}
	if b.Start {
		m |= joypad.Start
	}
	return m
}

// Machine owns one running cartridge's CPU, bus, and PPU.
type Machine struct {
	cfg Config

	cart *cart.Cartridge
	bus  *bus.Bus
	cpu  *cpu.CPU

	romPath string
}

// New constructs a Machine with no cartridge loaded; call LoadROMFromFile
// or LoadCartridge before stepping it.
func New(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// LoadCartridge wires a fresh Bus and CPU around rom. If boot is non-empty
// it is mapped at 0x0000-0x00FF and the CPU starts executing it directly;
// otherwise the CPU is seeded with the documented post-boot register state.
func (m *Machine) LoadCartridge(rom []byte, boot []byte) error {
	c, err := cart.Load(rom)
	if err != nil {
		return fmt.Errorf("emu: %w", err)
	}
	m.cart = c
	m.bus = bus.New(c)
	m.cpu = cpu.New(m.bus)

	if len(boot) > 0 {
		if err := m.bus.SetBootROM(boot); err != nil {
			return fmt.Errorf("emu: %w", err)
		}
	} else {
		m.cpu.ResetNoBoot()
	}
	return nil
}

// LoadROMFromFile reads rom from path and wires it via LoadCartridge with no
// boot ROM (the CPU starts in the documented post-boot register state).
func (m *Machine) LoadROMFromFile(path string) error {
	return m.LoadROMFromFileWithBoot(path, "")
}

// LoadROMFromFileWithBoot is LoadROMFromFile, additionally mapping the boot
// ROM image at bootPath at 0x0000-0x00FF until the game detaches it.
func (m *Machine) LoadROMFromFileWithBoot(path string, bootPath string) error {
	rom, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("emu: reading ROM: %w", err)
	}
	var boot []byte
	if bootPath != "" {
		boot, err = os.ReadFile(bootPath)
		if err != nil {
			return fmt.Errorf("emu: reading boot ROM: %w", err)
		}
	}
	if err := m.LoadCartridge(rom, boot); err != nil {
		return err
	}
	m.romPath = path
	return nil
}

// ROMPath returns the path LoadROMFromFile most recently loaded from.
func (m *Machine) ROMPath() string { return m.romPath }

// Header exposes the loaded cartridge's parsed header, for display and
// logging.
func (m *Machine) Header() cart.Header { return m.cart.Header }

// SetButtons replaces the currently-pressed button state for the next
// Step/StepFrame calls.
func (m *Machine) SetButtons(b Buttons) { m.bus.SetJoypadState(b.mask()) }

// SetSerialWriter attaches a sink for serial-port output, used by headless
// test-ROM tooling to observe blargg-style pass/fail reports.
func (m *Machine) SetSerialWriter(w io.Writer) { m.bus.SetSerialWriter(w) }

// StepFrame runs the CPU until the PPU reports a completed frame, per the
// frame driver loop: step the CPU, spend its charged M-cycles against the
// bus (advancing the PPU and OAM-DMA) each instruction, until FrameDone.
func (m *Machine) StepFrame() {
	for !m.bus.PPU().FrameDone() {
		if m.cfg.Trace {
			m.traceStep()
			continue
		}
		m.cpu.Step()
	}
	m.bus.PPU().AckFrameDone()
}

// traceStep steps one instruction, then logs its PC and opcode with the
// registers as they stand after it ran. The fields are those of
// cmd/cpurunner's "-trace" line up to IME; IF and IE are not printed.
func (m *Machine) traceStep() {
	pc := m.cpu.PC
	op := m.bus.Read(pc)
	m.cpu.Step()
	log.Printf("PC=%04X OP=%02X A=%02X F=%02X B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X SP=%04X IME=%t",
		pc, op, m.cpu.A, m.cpu.F, m.cpu.B, m.cpu.C, m.cpu.D, m.cpu.E, m.cpu.H, m.cpu.L, m.cpu.SP, m.cpu.IME)
}

// StepFrameNoRender runs one frame like StepFrame but skips scanline
// rendering, for headless test-ROM harnesses that only care about CPU
// execution and serial output.
func (m *Machine) StepFrameNoRender() {
	m.bus.PPU().SetRenderEnabled(false)
	m.StepFrame()
	m.bus.PPU().SetRenderEnabled(true)
}

// FrameBuffer returns the most recently rendered frame's packed RGBA
// pixels, 160x144.
func (m *Machine) FrameBuffer() []uint32 { return m.bus.PPU().FrameBuffer() }

// FrameBufferRGBA returns the same frame as a flat byte slice in
// image.RGBA's R,G,B,A byte order, for PNG encoding or upload to a texture.
func (m *Machine) FrameBufferRGBA() []byte {
	fb := m.bus.PPU().FrameBuffer()
	out := make([]byte, len(fb)*4)
	for i, px := range fb {
		out[i*4+0] = byte(px >> 24)
		out[i*4+1] = byte(px >> 16)
		out[i*4+2] = byte(px >> 8)
		out[i*4+3] = byte(px)
	}
	return out
}

// CPU exposes the underlying CPU for debug tooling (cpurunner).
func (m *Machine) CPU() *cpu.CPU { return m.cpu }

// Bus exposes the underlying bus for debug tooling.
func (m *Machine) Bus() *bus.Bus { return m.bus }
