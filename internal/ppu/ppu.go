// Package ppu implements the DMG picture processing unit: VRAM/OAM storage,
// the LCDC/STAT/scroll/palette I/O registers, the OAM-scan/Drawing/HBlank/
// VBlank mode state machine, and a background-only scanline renderer.
package ppu

// InterruptRequester is invoked by the PPU to request an interrupt source:
// bit 0 for VBlank, bit 1 for STAT. The bus owns IE/IF and decides whether
// the request is actually enabled.
type InterruptRequester func(bit int)

const (
	modeHBlank  = 0
	modeVBlank  = 1
	modeOAM     = 2
	modeDrawing = 3
)

const (
	statCoincidenceIRQ = 1 << 6
	statMode2IRQ       = 1 << 5
	statMode1IRQ       = 1 << 4
	statMode0IRQ       = 1 << 3
	statCoincidenceBit = 1 << 2
)

// PPU owns VRAM, OAM, and the LCD's I/O registers.
type PPU struct {
	vram [0x2000]byte // 0x8000-0x9FFF
	oam  [0xA0]byte   // 0xFE00-0xFE9F

	lcdc byte // FF40
	stat byte // FF41: bits 6-3 enables (writable), bits 2-0 mode/coincidence (synthesized)
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	clock     int // T-states accumulated within the current line
	frameDone bool
	render    bool

	fb [160 * 144]uint32

	req InterruptRequester
}

// New returns a PPU that reports interrupt requests through req.
func New(req InterruptRequester) *PPU {
	return &PPU{req: req, render: true}
}

// SetRenderEnabled toggles scanline rendering. Headless test-ROM runs that
// only care about serial output disable it to skip framebuffer work.
func (p *PPU) SetRenderEnabled(enabled bool) { p.render = enabled }

// vramView implements VRAMReader by reading straight out of VRAM, bypassing
// the CPU-visibility gating CPURead applies during mode 3 — the renderer
// runs at the HBlank/OAM boundary, not mid-Drawing, and always needs the
// real bytes.
type vramView struct{ p *PPU }

func (v vramView) Read(addr uint16) byte { return v.p.vram[addr-0x8000] }

// CPURead returns a byte for VRAM, OAM, or a PPU I/O register. VRAM is
// inaccessible to the CPU during mode 3 and OAM during modes 2 and 3 (both
// read back 0xFF).
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if p.stat&0x03 == modeDrawing {
			return 0xFF
		}
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == modeOAM || m == modeDrawing {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		return 0x80 | p.stat
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// CPUWrite handles a CPU write to VRAM, OAM, or a PPU I/O register.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if p.stat&0x03 == modeDrawing {
			return
		}
		p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == modeOAM || m == modeDrawing {
			return
		}
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		switch {
		case prev&0x80 != 0 && value&0x80 == 0: // LCD turned off
			p.ly = 0
			p.clock = 0
			p.setMode(modeHBlank)
			p.updateLYC()
		case prev&0x80 == 0 && value&0x80 != 0: // LCD turned on
			p.ly = 0
			p.clock = 0
			p.setMode(modeOAM)
			p.updateLYC()
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		// LY is read-only on real hardware; kept write-free here too.
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

func (p *PPU) setMode(m byte) { p.stat = (p.stat &^ 0x03) | (m & 0x03) }

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= statCoincidenceBit
		if p.stat&statCoincidenceIRQ != 0 {
			p.requestSTAT()
		}
	} else {
		p.stat &^= statCoincidenceBit
	}
}

func (p *PPU) requestSTAT()   { p.req(1) }
func (p *PPU) requestVBlank() { p.req(0) }

// Tick advances the PPU by tStates T-states (4 per CPU M-cycle), running
// the OAM-scan -> Drawing -> HBlank -> VBlank state machine described in
// spec section 4.4. It is a no-op while the LCD is disabled.
func (p *PPU) Tick(tStates int) {
	if p.lcdc&0x80 == 0 || tStates <= 0 {
		return
	}
	for i := 0; i < tStates; i++ {
		p.clock++
		switch p.stat & 0x03 {
		case modeOAM:
			if p.clock >= 80 {
				p.setMode(modeDrawing)
			}
		case modeDrawing:
			if p.clock >= 80+230 {
				p.setMode(modeHBlank)
				if p.stat&statMode0IRQ != 0 {
					p.requestSTAT()
				}
			}
		case modeHBlank:
			if p.clock >= 456 {
				if p.render {
					p.renderLine(p.ly)
				}
				p.clock -= 456
				p.ly++
				p.updateLYC()
				if p.ly == 144 {
					p.setMode(modeVBlank)
					p.requestVBlank()
					if p.stat&statMode1IRQ != 0 {
						p.requestSTAT()
					}
				} else {
					p.setMode(modeOAM)
				}
			}
		case modeVBlank:
			if p.clock >= 456 {
				p.clock -= 456
				p.ly++
				if p.ly == 154 {
					p.ly = 0
					p.setMode(modeOAM)
					if p.stat&statMode2IRQ != 0 {
						p.requestSTAT()
					}
					p.frameDone = true
				}
				p.updateLYC()
			}
		}
	}
}

// renderLine draws background pixels for scanline ly (0..143) into the
// framebuffer, following spec section 4.4's per-pixel formula.
func (p *PPU) renderLine(ly byte) {
	if ly >= 144 {
		return
	}
	bgMap := p.lcdc&0x08 != 0
	tileData8000 := p.lcdc&0x10 != 0
	indices := RenderBGScanline(vramView{p}, bgMap, tileData8000, p.scx, p.scy, ly)
	row := int(ly) * 160
	for x := 0; x < 160; x++ {
		shade := shadeFromPaletteByte(p.bgp, indices[x])
		p.fb[row+x] = dmgPalette[shade]
	}
}

// FrameBuffer returns the 160x144 packed-pixel framebuffer. The slice is
// shared with the PPU's internal storage; callers should treat it as a
// snapshot valid until the next call into the PPU.
func (p *PPU) FrameBuffer() []uint32 { return p.fb[:] }

// FrameDone reports whether a full frame (through the end of VBlank) has
// completed since the last AckFrameDone.
func (p *PPU) FrameDone() bool { return p.frameDone }

// AckFrameDone clears the frame-done flag.
func (p *PPU) AckFrameDone() { p.frameDone = false }

// LY returns the current scanline, exposed for tests and debug tooling.
func (p *PPU) LY() byte { return p.ly }
