// Package bus implements the CPU-visible DMG address space: cartridge,
// work/high RAM, the boot ROM overlay, OAM-DMA, and IRQ aggregation. It
// wires the cartridge, joypad, APU, and PPU components together and owns
// the M-cycle-to-T-state credit accounting the CPU spends against it.
package bus

import (
	"fmt"
	"io"

	"github.com/aldermoor/dmgo/internal/apu"
	"github.com/aldermoor/dmgo/internal/cart"
	"github.com/aldermoor/dmgo/internal/joypad"
	"github.com/aldermoor/dmgo/internal/ppu"
)

// IRQ bits within IE (0xFFFF) and IF (0xFF0F), in dispatch-priority order.
const (
	IRQVBlank = 1 << 0
	IRQStat   = 1 << 1
	IRQTimer  = 1 << 2
	IRQSerial = 1 << 3
	IRQJoypad = 1 << 4
)

var irqVectors = [5]uint16{0x40, 0x48, 0x50, 0x58, 0x60}

// Bus owns the full 64 KiB address space and everything mapped into it.
type Bus struct {
	cart *cart.Cartridge

	wram [0x2000]byte // 0xC000-0xDFFF, mirrored at 0xE000-0xFDFF
	hram [0x7F]byte   // 0xFF80-0xFFFE

	ppu    *ppu.PPU
	apu    *apu.APU
	joypad *joypad.Joypad

	ie    byte // 0xFFFF
	ifReg byte // 0xFF0F, lower 5 bits used

	// Timer is an accept-only stub register bank: writes are stored and
	// read back, but it neither advances nor raises an interrupt.
	timerRegs [4]byte // FF04-FF07: DIV, TIMA, TMA, TAC

	// Serial performs real, instantaneous byte transfers (no shift-clock
	// timing model) so test ROMs that report pass/fail over the serial
	// port can be driven headlessly.
	sb     byte // FF01
	sc     byte // FF02
	serial io.Writer

	dma       byte // FF46
	dmaActive bool
	dmaSrc    uint16
	dmaIndex  int

	bootROM     [0x100]byte
	bootLoaded  bool
	bootEnabled bool

	pendingMCycles int
}

// New constructs a Bus around c. The PPU is wired to raise VBlank/STAT
// through IF; the joypad and APU start in their reset states.
func New(c *cart.Cartridge) *Bus {
	b := &Bus{cart: c, apu: apu.New(), joypad: joypad.New()}
	b.ppu = ppu.New(func(bit int) { b.ifReg |= 1 << bit })
	b.timerRegs[3] = 0xF8 // TAC unused bits read high
	return b
}

// PPU exposes the PPU for the frame driver's present step.
func (b *Bus) PPU() *ppu.PPU { return b.ppu }

// SetBootROM installs a 256-byte boot ROM to overlay 0x0000-0x00FF until a
// non-zero write to 0xFF50 detaches it.
func (b *Bus) SetBootROM(data []byte) error {
	if len(data) != 0x100 {
		return fmt.Errorf("bus: boot ROM must be exactly 256 bytes, got %d", len(data))
	}
	copy(b.bootROM[:], data)
	b.bootLoaded = true
	b.bootEnabled = true
	return nil
}

// SetJoypadState replaces which buttons are currently pressed, raising the
// joypad IRQ if any newly-selected line has a falling edge.
func (b *Bus) SetJoypadState(mask byte) {
	if b.joypad.SetState(mask) {
		b.ifReg |= IRQJoypad
	}
}

// SetSerialWriter attaches a sink that receives each byte transferred over
// the serial port. Used headlessly to capture blargg-style test ROM output.
func (b *Bus) SetSerialWriter(w io.Writer) { b.serial = w }

func (b *Bus) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if b.bootEnabled && addr < 0x0100 {
			return b.bootROM[addr]
		}
		return b.cart.Read(addr)
	case addr >= 0x8000 && addr <= 0x9FFF:
		return b.ppu.CPURead(addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return b.cart.Read(addr)
	case addr >= 0xC000 && addr <= 0xDFFF:
		return b.wram[addr-0xC000]
	case addr >= 0xE000 && addr <= 0xFDFF:
		return b.wram[addr-0x2000-0xC000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if b.dmaActive {
			return 0xFF
		}
		return b.ppu.CPURead(addr)
	case addr >= 0xFEA0 && addr <= 0xFEFF:
		return 0xFF // unusable region
	case addr == 0xFF00:
		return b.joypad.ReadP1()
	case addr == 0xFF01:
		return b.sb
	case addr == 0xFF02:
		return 0x7E | b.sc
	case addr >= 0xFF04 && addr <= 0xFF07:
		return b.timerRegs[addr-0xFF04]
	case addr == 0xFF0F:
		return 0xE0 | (b.ifReg & 0x1F)
	case addr >= 0xFF10 && addr <= 0xFF26:
		return b.apu.CPURead(addr)
	case addr == 0xFF46:
		return b.dma
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B:
		return b.ppu.CPURead(addr)
	case addr == 0xFF50:
		return 0xFF
	case addr >= 0xFF80 && addr <= 0xFFFE:
		return b.hram[addr-0xFF80]
	case addr == 0xFFFF:
		return b.ie
	default:
		return 0xFF
	}
}

func (b *Bus) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000:
		b.cart.Write(addr, value)
	case addr >= 0x8000 && addr <= 0x9FFF:
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xA000 && addr <= 0xBFFF:
		b.cart.Write(addr, value)
	case addr >= 0xC000 && addr <= 0xDFFF:
		b.wram[addr-0xC000] = value
	case addr >= 0xE000 && addr <= 0xFDFF:
		b.wram[addr-0x2000-0xC000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if b.dmaActive {
			return
		}
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xFEA0 && addr <= 0xFEFF:
		// unusable region, writes ignored
	case addr == 0xFF00:
		if b.joypad.WriteP1(value) {
			b.ifReg |= IRQJoypad
		}
	case addr == 0xFF01:
		b.sb = value
	case addr == 0xFF02:
		b.sc = value & 0x81
		if b.sc&0x80 != 0 {
			if b.serial != nil {
				_, _ = b.serial.Write([]byte{b.sb})
			}
			b.ifReg |= IRQSerial
			b.sc &^= 0x80
		}
	case addr >= 0xFF04 && addr <= 0xFF07:
		if addr == 0xFF04 {
			value = 0 // DIV resets to 0 on any write
		}
		b.timerRegs[addr-0xFF04] = value
	case addr == 0xFF0F:
		b.ifReg = value & 0x1F
	case addr >= 0xFF10 && addr <= 0xFF26:
		b.apu.CPUWrite(addr, value)
	case addr == 0xFF46:
		b.dma = value
		b.dmaActive = true
		b.dmaSrc = uint16(value) << 8
		b.dmaIndex = 0
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B:
		b.ppu.CPUWrite(addr, value)
	case addr == 0xFF50:
		if value != 0x00 {
			b.bootEnabled = false
		}
	case addr >= 0xFF80 && addr <= 0xFFFE:
		b.hram[addr-0xFF80] = value
	case addr == 0xFFFF:
		b.ie = value
	}
}

// Delay accumulates mCycles M-cycles of CPU time without yet advancing the
// rest of the system. The CPU calls this once per bus access within an
// instruction, then calls Spend once the instruction completes.
func (b *Bus) Delay(mCycles int) { b.pendingMCycles += mCycles }

// Spend converts the accumulated M-cycle credit into T-states (4 per
// M-cycle) and advances the PPU and OAM-DMA engine one T-state at a time.
func (b *Bus) Spend() {
	n := b.pendingMCycles
	b.pendingMCycles = 0
	for i := 0; i < n*4; i++ {
		b.tickOneTState()
	}
}

func (b *Bus) tickOneTState() {
	b.ppu.Tick(1)
	if b.dmaActive {
		if b.dmaIndex < 0xA0 {
			v := b.dmaSourceByte(b.dmaIndex)
			b.ppu.CPUWrite(0xFE00+uint16(b.dmaIndex), v)
			b.dmaIndex++
		}
		if b.dmaIndex >= 0xA0 {
			b.dmaActive = false
		}
	}
}

// dmaSourceByte reads one OAM-DMA source byte through the normal bus read
// path, so cart/WRAM/VRAM are read exactly as the CPU would read them. A
// source address inside OAM itself reads 0xFF.
func (b *Bus) dmaSourceByte(i int) byte {
	addr := b.dmaSrc + uint16(i)
	if addr >= 0xFE00 && addr <= 0xFE9F {
		return 0xFF
	}
	return b.Read(addr)
}

// HasIRQ reports whether any enabled interrupt is pending.
func (b *Bus) HasIRQ() bool { return b.ie&b.ifReg&0x1F != 0 }

// AckIRQ clears the highest-priority pending enabled interrupt and returns
// its dispatch vector. Priority, highest first: VBlank, STAT, Timer,
// Serial, Joypad. Returns 0 if none is pending.
func (b *Bus) AckIRQ() uint16 {
	pending := b.ie & b.ifReg & 0x1F
	for bit := 0; bit < 5; bit++ {
		if pending&(1<<bit) != 0 {
			b.ifReg &^= 1 << bit
			return irqVectors[bit]
		}
	}
	return 0
}
