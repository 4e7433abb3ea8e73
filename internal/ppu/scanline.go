package ppu

// RenderBGScanline renders 160 background color indices (0..3, pre-palette)
// for scanline ly, per spec section 4.4:
//
//  1. real_x = (SCX+x) mod 256, real_y = (SCY+ly) mod 256
//  2. tile map base is 0x9C00 if bgMap else 0x9800
//  3. tile data address is unsigned (0x8000-based) or signed (0x9000-based)
//     depending on tileData8000
//  4. two bitplane bytes are unpacked MSB-first into a color index per pixel
//
// It walks tiles left to right via a small FIFO so the SCX fine-scroll
// offset only needs to discard pixels from the first tile fetched.
func RenderBGScanline(mem VRAMReader, bgMap, tileData8000 bool, scx, scy, ly byte) [160]byte {
	var out [160]byte

	realY := scy + ly // byte addition wraps mod 256, matching (SCY+y) mod 256
	fineY := realY & 7
	mapY := uint16(realY>>3) & 31

	mapBase := uint16(0x9800)
	if bgMap {
		mapBase = 0x9C00
	}

	tileX := uint16(scx>>3) & 31
	fineX := int(scx & 7)
	tileIndexAddr := mapBase + mapY*32 + tileX

	f := newBGFetcher(mem)
	f.fetchTileRow(tileIndexAddr, tileData8000, fineY)
	for i := 0; i < fineX; i++ {
		f.q.pop()
	}

	for x := 0; x < 160; x++ {
		if f.q.Len() == 0 {
			tileX = (tileX + 1) & 31
			tileIndexAddr = mapBase + mapY*32 + tileX
			f.fetchTileRow(tileIndexAddr, tileData8000, fineY)
		}
		out[x] = f.q.pop()
	}
	return out
}
