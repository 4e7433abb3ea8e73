package main

import (
	"flag"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aldermoor/dmgo/internal/cart"
	"github.com/aldermoor/dmgo/internal/emu"
	"github.com/aldermoor/dmgo/internal/ui"
)

type cliFlags struct {
	BootROM string
	Scale   int
	Title   string
	Trace   bool

	// headless
	Headless bool
	Frames   int
	PNGOut   string
	Expect   string // expected framebuffer CRC32 hex (e.g., "1a2b3c4d")
}

func parseFlags() (cliFlags, string) {
	var f cliFlags
	flag.StringVar(&f.BootROM, "bootrom", "", "path to a DMG boot ROM")
	flag.IntVar(&f.Scale, "scale", 3, "window scale")
	flag.StringVar(&f.Title, "title", "dmgo", "window title")
	flag.BoolVar(&f.Trace, "trace", false, "log each CPU instruction")

	flag.BoolVar(&f.Headless, "headless", false, "run without a window")
	flag.IntVar(&f.Frames, "frames", 300, "frames to run in headless mode")
	flag.StringVar(&f.PNGOut, "outpng", "", "write the final framebuffer to a PNG at this path")
	flag.StringVar(&f.Expect, "expect", "", "assert the final framebuffer's CRC32 (hex)")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: dmgo [flags] <rom.gb>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	return f, flag.Arg(0)
}

func runHeadless(m *emu.Machine, frames int, pngPath, expectCRC string) error {
	if frames <= 0 {
		frames = 1
	}

	start := time.Now()
	for i := 0; i < frames; i++ {
		m.StepFrame()
	}
	dur := time.Since(start)

	fb := m.FrameBufferRGBA()
	crc := crc32.ChecksumIEEE(fb)
	fps := float64(frames) / dur.Seconds()

	log.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%08x",
		frames, dur.Truncate(time.Millisecond), fps, crc)

	if pngPath != "" {
		if err := saveFramePNG(fb, 160, 144, pngPath); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", pngPath)
	}

	if expectCRC != "" {
		want := strings.TrimPrefix(strings.ToLower(expectCRC), "0x")
		got := fmt.Sprintf("%08x", crc)
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

func saveFramePNG(pix []byte, w, h int, path string) error {
	img := &image.RGBA{
		Pix:    make([]byte, len(pix)),
		Stride: 4 * w,
		Rect:   image.Rect(0, 0, w, h),
	}
	copy(img.Pix, pix)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func main() {
	f, romPath := parseFlags()

	rom, err := os.ReadFile(romPath)
	if err != nil {
		log.Fatalf("read ROM: %v", err)
	}
	if h, err := cart.ParseHeader(rom); err == nil {
		log.Printf("ROM: %q type=%s banks=%d ram=%dB", h.Title, h.CartTypeStr, h.ROMBanks, h.RAMSizeBytes)
	}

	var boot []byte
	if f.BootROM != "" {
		boot, err = os.ReadFile(f.BootROM)
		if err != nil {
			log.Fatalf("read boot ROM: %v", err)
		}
	}

	m := emu.New(emu.Config{Trace: f.Trace, LimitFPS: !f.Headless})
	if err := m.LoadCartridge(rom, boot); err != nil {
		log.Fatalf("load cartridge: %v", err)
	}

	if f.Headless {
		if err := runHeadless(m, f.Frames, f.PNGOut, f.Expect); err != nil {
			log.Fatal(err)
		}
		return
	}

	app := ui.NewApp(ui.Config{Title: f.Title, Scale: f.Scale}, m)
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
