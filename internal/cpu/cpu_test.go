package cpu

import (
	"testing"

	"github.com/aldermoor/dmgo/internal/bus"
	"github.com/aldermoor/dmgo/internal/cart"
)

func newCPUWithROM(t *testing.T, code []byte) *CPU {
	t.Helper()
	rom := make([]byte, 0x8000)
	copy(rom, code)
	c, err := cart.Load(rom)
	if err != nil {
		t.Fatalf("cart.Load: %v", err)
	}
	return New(bus.New(c))
}

func TestCPU_NopAndPC(t *testing.T) {
	c := newCPUWithROM(t, []byte{0x00})
	c.Step()
	if c.PC != 1 {
		t.Fatalf("PC after NOP got %#04x want 0x0001", c.PC)
	}
}

func TestCPU_LD_A_d8_And_XOR_A(t *testing.T) {
	c := newCPUWithROM(t, []byte{0x3E, 0x12, 0xAF}) // LD A,0x12; XOR A
	c.Step()
	if c.A != 0x12 {
		t.Fatalf("A after LD got %02x want 12", c.A)
	}
	c.Step()
	if c.A != 0x00 {
		t.Fatalf("A after XOR got %02x want 00", c.A)
	}
	if c.F&flagZ == 0 {
		t.Fatalf("Z flag not set after XOR A")
	}
}

func TestCPU_LD_a16_A_and_LD_A_a16(t *testing.T) {
	prog := []byte{0x3E, 0x77, 0xEA, 0x00, 0xC0, 0x3E, 0x00, 0xFA, 0x00, 0xC0}
	c := newCPUWithROM(t, prog)
	c.Step() // LD A,77
	c.Step() // LD (C000),A
	if a := c.bus.Read(0xC000); a != 0x77 {
		t.Fatalf("WRAM at C000 got %02x want 77", a)
	}
	c.Step() // LD A,00
	c.Step() // LD A,(C000)
	if c.A != 0x77 {
		t.Fatalf("A after LD A,(C000) got %02x want 77", c.A)
	}
}

func TestCPU_JP_and_JR(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[0x0000] = 0xC3
	rom[0x0001] = 0x10
	rom[0x0002] = 0x00
	rom[0x0010] = 0x18 // JR -2 (infinite self-loop)
	rom[0x0011] = 0xFE
	c, err := cart.Load(rom)
	if err != nil {
		t.Fatalf("cart.Load: %v", err)
	}
	cpu := New(bus.New(c))
	cpu.Step() // JP
	if cpu.PC != 0x0010 {
		t.Fatalf("PC after JP got %#04x want 0x0010", cpu.PC)
	}
	pcBefore := cpu.PC
	cpu.Step() // JR -2
	if cpu.PC != pcBefore {
		t.Fatalf("JR -2 PC got %#04x want %#04x", cpu.PC, pcBefore)
	}
}

func TestCPU_INC_B_Flags(t *testing.T) {
	c := newCPUWithROM(t, []byte{0x04, 0x04}) // INC B twice
	c.B = 0x0F
	c.F = flagC
	c.Step()
	if c.B != 0x10 {
		t.Fatalf("INC B result got %02x want 10", c.B)
	}
	if c.F&flagH == 0 {
		t.Fatalf("INC B should set H flag")
	}
	if c.F&flagC == 0 {
		t.Fatalf("INC B should preserve C flag")
	}
	c.B = 0xFF
	c.Step()
	if c.B != 0x00 || c.F&flagZ == 0 {
		t.Fatalf("INC B to 0 should set Z flag, B=%02x F=%02x", c.B, c.F)
	}
}

func TestCPU_LD_16bit_and_LDH(t *testing.T) {
	prog := []byte{
		0x21, 0x00, 0xC0, // LD HL,C000
		0x36, 0x5A, // LD (HL),5A
		0x3E, 0x00, // LD A,00
		0xF0, 0x00, // LD A,(FF00+0)
		0xE0, 0x01, // LD (FF00+1),A
	}
	c := newCPUWithROM(t, prog)
	c.Bus().Write(0xFF00, 0x30) // deselect both matrices -> lower nibble reads 0x0F

	for i := 0; i < 5; i++ {
		c.Step()
	}
	if v := c.Bus().Read(0xC000); v != 0x5A {
		t.Fatalf("WRAM C000 got %02x want 5A", v)
	}
	if v := c.Bus().Read(0xFF01); v != c.A {
		t.Fatalf("LDH (FF00+1),A expected write to FF01 with A=%02x got %02x", c.A, v)
	}
}

func TestCPU_CALL_RET(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[0x0000] = 0xCD
	rom[0x0001] = 0x05
	rom[0x0002] = 0x00
	rom[0x0005] = 0xC9 // RET
	c, err := cart.Load(rom)
	if err != nil {
		t.Fatalf("cart.Load: %v", err)
	}
	cpu := New(bus.New(c))
	cpu.Step() // CALL
	if cpu.PC != 0x0005 {
		t.Fatalf("PC after CALL got %#04x want 0005", cpu.PC)
	}
	cpu.Step() // RET
	if cpu.PC != 0x0003 {
		t.Fatalf("RET did not return to 0003; PC=%#04x", cpu.PC)
	}
}

func TestCPU_IllegalOpcodeLocksCPU(t *testing.T) {
	c := newCPUWithROM(t, []byte{0xD3, 0x00})
	c.Step()
	if !c.locked {
		t.Fatalf("expected CPU to lock on illegal opcode 0xD3")
	}
	pc := c.PC
	c.Step() // must be a total no-op once locked
	if c.PC != pc {
		t.Fatalf("locked CPU should not advance PC: got %#04x want %#04x", c.PC, pc)
	}
}

func TestCPU_EITakesEffectAfterFollowingInstruction(t *testing.T) {
	// EI; NOP; NOP — IME must still be false right after EI and during the
	// immediately-following NOP, and true only once that NOP has completed.
	c := newCPUWithROM(t, []byte{0xFB, 0x00, 0x00})
	c.Step() // EI
	if c.IME {
		t.Fatalf("IME should not be enabled immediately after EI")
	}
	c.Step() // NOP right after EI: still runs with IME false
	if c.IME {
		t.Fatalf("IME should not be enabled until after the instruction following EI")
	}
	c.Step() // the NOP after that: EI's delay has now elapsed
	if !c.IME {
		t.Fatalf("IME should be enabled by the second instruction after EI")
	}
}

func TestCPU_HaltStallsUntilIRQThenDispatches(t *testing.T) {
	c := newCPUWithROM(t, []byte{0x76}) // HALT
	c.IME = true
	c.Bus().Write(0xFFFF, bus.IRQVBlank)
	c.Step() // enters halted state, no IRQ pending yet
	if !c.halted {
		t.Fatalf("expected CPU to be halted")
	}
	c.Bus().Write(0xFF0F, bus.IRQVBlank) // raise VBlank
	c.Step()                             // should unhalt and dispatch to 0x40
	if c.halted {
		t.Fatalf("expected CPU to wake from HALT")
	}
	if c.PC != 0x40 {
		t.Fatalf("expected dispatch to VBlank vector 0x40, got %#04x", c.PC)
	}
}
