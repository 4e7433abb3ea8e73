package ppu

// dmgPalette maps a 2-bit DMG color index to a packed 32-bit RGBA pixel
// using the classic DMG-green LCD tint. Byte order is R,G,B,A from bit 31
// down to bit 0 (i.e. 0xRRGGBBAA), matching image.RGBA's in-memory layout
// when written four bytes at a time.
var dmgPalette = [4]uint32{
	packRGB(224, 248, 208), // White
	packRGB(136, 192, 112), // Light grey
	packRGB(52, 104, 86),   // Dark grey
	packRGB(8, 24, 32),     // Black
}

func packRGB(r, g, b byte) uint32 {
	return uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | 0xFF
}

// shadeFromPaletteByte decodes one of the four 2-bit slots of a BGP/OBP
// register and returns the DMG shade (0..3) that colorIndex maps to.
func shadeFromPaletteByte(palette byte, colorIndex byte) byte {
	return (palette >> (colorIndex * 2)) & 0x03
}
