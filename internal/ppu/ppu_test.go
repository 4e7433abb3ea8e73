package ppu

import "testing"

func newTestPPU() *PPU {
	p := New(func(bit int) {})
	p.CPUWrite(0xFF40, 0x91) // LCD on, BG on, tile data 0x8000, map 0x9800
	return p
}

func TestPPU_ModeSequenceWithinLine(t *testing.T) {
	p := newTestPPU()
	if m := p.CPURead(0xFF41) & 0x03; m != modeOAM {
		t.Fatalf("initial mode got %d want OAM", m)
	}
	p.Tick(79)
	if m := p.CPURead(0xFF41) & 0x03; m != modeOAM {
		t.Fatalf("mode at clock=79 got %d want OAM", m)
	}
	p.Tick(1) // clock=80
	if m := p.CPURead(0xFF41) & 0x03; m != modeDrawing {
		t.Fatalf("mode at clock=80 got %d want Drawing", m)
	}
	p.Tick(229) // clock=309
	if m := p.CPURead(0xFF41) & 0x03; m != modeDrawing {
		t.Fatalf("mode at clock=309 got %d want Drawing", m)
	}
	p.Tick(1) // clock=310
	if m := p.CPURead(0xFF41) & 0x03; m != modeHBlank {
		t.Fatalf("mode at clock=310 got %d want HBlank", m)
	}
	p.Tick(146) // clock=456 -> line done
	if p.LY() != 1 {
		t.Fatalf("LY got %d want 1", p.LY())
	}
	if m := p.CPURead(0xFF41) & 0x03; m != modeOAM {
		t.Fatalf("mode after line got %d want OAM", m)
	}
}

func TestPPU_LYSequenceAndVBlank(t *testing.T) {
	p := newTestPPU()
	for i := 0; i < 144; i++ {
		p.Tick(456)
	}
	if p.LY() != 144 {
		t.Fatalf("LY after 144 lines got %d want 144", p.LY())
	}
	if m := p.CPURead(0xFF41) & 0x03; m != modeVBlank {
		t.Fatalf("mode at LY=144 got %d want VBlank", m)
	}
	for i := 0; i < 10; i++ { // LY 144..153, wraps to 0 at 154
		p.Tick(456)
	}
	if p.LY() != 0 {
		t.Fatalf("LY after full VBlank got %d want 0 (wrap at 154)", p.LY())
	}
	if !p.FrameDone() {
		t.Fatalf("expected frame-done after LY wraps to 0")
	}
}

type fakeVRAM []byte

func (f fakeVRAM) Read(addr uint16) byte { return f[addr-0x8000] }

func TestPPU_BGScanlinePeriodicity(t *testing.T) {
	mem := make(fakeVRAM, 0x2000)
	for i := range mem {
		mem[i] = byte(i * 37)
	}
	const period = 256
	scx, scy := 10, 20
	a := RenderBGScanline(mem, false, true, byte(scx), byte(scy), 5)
	b := RenderBGScanline(mem, false, true, byte(scx+period), byte(scy+period), 5)
	if a != b {
		t.Fatalf("scanline not periodic over 256: %v vs %v", a, b)
	}
}

func TestPPU_BGPPaletteRoundTrip(t *testing.T) {
	p := newTestPPU()
	p.CPUWrite(0xFF47, 0xE4)
	if got := p.CPURead(0xFF47); got != 0xE4 {
		t.Fatalf("BGP got %#02x want 0xE4", got)
	}
	for ci := byte(0); ci < 4; ci++ {
		if shade := shadeFromPaletteByte(0xE4, ci); shade != ci {
			t.Fatalf("0xE4 identity mapping: ci=%d shade=%d", ci, shade)
		}
	}
}

func TestPPU_VRAMInaccessibleDuringDrawing(t *testing.T) {
	p := newTestPPU()
	p.CPUWrite(0x8000, 0x42)
	p.Tick(80) // enter Drawing
	if got := p.CPURead(0x8000); got != 0xFF {
		t.Fatalf("VRAM read during Drawing got %#02x want 0xFF", got)
	}
	p.CPUWrite(0x8000, 0x99) // dropped, still in Drawing
	p.Tick(230)              // enter HBlank
	if got := p.CPURead(0x8000); got != 0x42 {
		t.Fatalf("VRAM byte got %#02x want 0x42 (write during Drawing dropped)", got)
	}
}

func TestPPU_LYCCoincidenceSetsSTATBit(t *testing.T) {
	p := newTestPPU()
	p.CPUWrite(0xFF45, 0)
	if p.CPURead(0xFF41)&statCoincidenceBit == 0 {
		t.Fatalf("expected coincidence bit set for LY=LYC=0")
	}
	p.CPUWrite(0xFF45, 5)
	if p.CPURead(0xFF41)&statCoincidenceBit != 0 {
		t.Fatalf("expected coincidence bit clear for LY=0 LYC=5")
	}
}
