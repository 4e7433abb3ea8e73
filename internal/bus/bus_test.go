package bus

import (
	"testing"

	"github.com/aldermoor/dmgo/internal/cart"
	"github.com/aldermoor/dmgo/internal/joypad"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	rom := make([]byte, 0x8000)
	c, err := cart.Load(rom)
	if err != nil {
		t.Fatalf("cart.Load: %v", err)
	}
	return New(c)
}

func TestBus_ROMAndRAM(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[0x0100] = 0x42
	c, err := cart.Load(rom)
	if err != nil {
		t.Fatalf("cart.Load: %v", err)
	}
	b := New(c)

	if got := b.Read(0x0100); got != 0x42 {
		t.Fatalf("ROM read got %02x, want 42", got)
	}

	b.Write(0xC000, 0x99)
	if got := b.Read(0xC000); got != 0x99 {
		t.Fatalf("RAM read got %02x, want 99", got)
	}

	// Echo RAM 0xE000-0xFDFF mirrors 0xC000-0xDDFF
	b.Write(0xE000, 0x55)
	if got := b.Read(0xC000); got != 0x55 {
		t.Fatalf("Echo write did not mirror to WRAM: got %02x", got)
	}

	b.Write(0xFF80, 0xAB)
	if got := b.Read(0xFF80); got != 0xAB {
		t.Fatalf("HRAM read got %02x, want AB", got)
	}

	// ROM-only cart has no external RAM.
	if got := b.Read(0xA123); got != 0xFF {
		t.Fatalf("Ext RAM (ROM-only) got %02x, want FF", got)
	}
}

func TestBus_VRAM_OAM_InterruptRegs(t *testing.T) {
	b := newTestBus(t)

	b.Write(0x8000, 0x11)
	if got := b.Read(0x8000); got != 0x11 {
		t.Fatalf("VRAM read got %02x, want 11", got)
	}

	b.Write(0xFE00, 0x22)
	if got := b.Read(0xFE00); got != 0x22 {
		t.Fatalf("OAM read got %02x, want 22", got)
	}

	b.Write(0xFF0F, 0x3F)
	if got := b.Read(0xFF0F); got != 0xE0|0x1F {
		t.Fatalf("IF read got %02x, want %02x", got, 0xE0|0x1F)
	}

	b.Write(0xFFFF, 0x1B)
	if got := b.Read(0xFFFF); got != 0x1B {
		t.Fatalf("IE read got %02x, want 1B", got)
	}
}

func TestBus_JoypadMultiplexAndIRQ(t *testing.T) {
	b := newTestBus(t)

	if got := b.Read(0xFF00); got&0x0F != 0x0F {
		t.Fatalf("JOYP default lower bits got %02x want 0x0F", got&0x0F)
	}

	b.Write(0xFF00, 0x20) // P14=0 selects D-Pad
	b.SetJoypadState(joypad.Right | joypad.Up)
	if got := b.Read(0xFF00); got&0x0F != 0x0A {
		t.Fatalf("JOYP D-Pad got %02x want 0x0A", got&0x0F)
	}
	if got := b.Read(0xFF0F) & IRQJoypad; got == 0 {
		t.Fatalf("expected joypad IRQ on falling edge")
	}
}

func TestBus_TimerIsAnAcceptOnlyStub(t *testing.T) {
	b := newTestBus(t)

	b.Write(0xFF05, 0x42) // TIMA
	if got := b.Read(0xFF05); got != 0x42 {
		t.Fatalf("TIMA got %02x want 42", got)
	}
	b.Write(0xFF04, 0x99) // DIV: any write resets to 0
	if got := b.Read(0xFF04); got != 0x00 {
		t.Fatalf("DIV after write got %02x want 00", got)
	}
}

type serialSink struct{ got []byte }

func (s *serialSink) Write(p []byte) (int, error) {
	s.got = append(s.got, p...)
	return len(p), nil
}

func TestBus_SerialTransferWritesToSinkAndRaisesIRQ(t *testing.T) {
	b := newTestBus(t)
	var sink serialSink
	b.SetSerialWriter(&sink)

	b.Write(0xFF01, 'P')
	b.Write(0xFF02, 0x81) // start transfer (internal clock)
	if string(sink.got) != "P" {
		t.Fatalf("sink got %q want %q", sink.got, "P")
	}
	if b.Read(0xFF0F)&IRQSerial == 0 {
		t.Fatalf("expected serial IRQ after transfer")
	}
	if b.Read(0xFF02)&0x80 != 0 {
		t.Fatalf("transfer-in-progress bit should clear once complete")
	}
}

func TestBus_APURegistersAreWritableAndReadable(t *testing.T) {
	b := newTestBus(t)
	b.Write(0xFF12, 0xF3)
	if got := b.Read(0xFF12); got != 0xF3 {
		t.Fatalf("NR12 got %02x want F3", got)
	}
}

func TestBus_BootROMOverlayAndDetach(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[0] = 0xAA
	c, err := cart.Load(rom)
	if err != nil {
		t.Fatalf("cart.Load: %v", err)
	}
	b := New(c)
	boot := make([]byte, 0x100)
	boot[0] = 0x55
	if err := b.SetBootROM(boot); err != nil {
		t.Fatalf("SetBootROM: %v", err)
	}
	if got := b.Read(0x0000); got != 0x55 {
		t.Fatalf("boot overlay got %02x want 55", got)
	}
	b.Write(0xFF50, 0x01)
	if got := b.Read(0x0000); got != 0xAA {
		t.Fatalf("after detach got %02x want AA (cart byte)", got)
	}
}

func TestBus_IRQAggregationPriorityAndAck(t *testing.T) {
	b := newTestBus(t)
	b.Write(0xFFFF, IRQVBlank|IRQStat|IRQTimer)
	b.Write(0xFF0F, IRQStat|IRQVBlank)
	if !b.HasIRQ() {
		t.Fatalf("expected a pending IRQ")
	}
	if v := b.AckIRQ(); v != 0x40 {
		t.Fatalf("expected VBlank vector 0x40 first, got %#02x", v)
	}
	if v := b.AckIRQ(); v != 0x48 {
		t.Fatalf("expected STAT vector 0x48 next, got %#02x", v)
	}
	if b.HasIRQ() {
		t.Fatalf("no IRQ should remain pending (timer never requested)")
	}
}
