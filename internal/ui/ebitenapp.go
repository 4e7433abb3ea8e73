package ui

import (
	"math"

	"github.com/aldermoor/dmgo/internal/emu"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// App is an ebiten.Game that presents a Machine's framebuffer and forwards
// keyboard input to its joypad. There is no menu, no save states, and no
// audio: this host only drives the picture.
type App struct {
	cfg Config
	m   *emu.Machine
	tex *ebiten.Image
}

// NewApp wires cfg and m into a runnable ebiten.Game. It sets the tick rate
// to the DMG's ~59.7275 Hz frame rate rounded to a whole number of ticks per
// second, which is 60 TPS; one emulated frame runs per tick, so the fractional
// native rate is not reproduced.
func NewApp(cfg Config, m *emu.Machine) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(160*cfg.Scale, 144*cfg.Scale)
	ebiten.SetTPS(int(math.Round(4194304.0 / 70224.0)))
	return &App{cfg: cfg, m: m}
}

// Run blocks until the window is closed.
func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	var btn emu.Buttons
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		btn.Right = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		btn.Left = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		btn.Up = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		btn.Down = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyZ) {
		btn.A = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyX) {
		btn.B = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyEnter) {
		btn.Start = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyShiftRight) {
		btn.Select = true
	}
	a.m.SetButtons(btn)
	a.m.StepFrame()
	return nil
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(160, 144)
	}
	a.tex.WritePixels(a.m.FrameBufferRGBA())
	screen.DrawImage(a.tex, nil)
}

func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) { return 160, 144 }
