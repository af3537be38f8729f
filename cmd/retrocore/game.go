package main

import (
	"context"

	"github.com/hajimehoshi/ebiten/v2"

	"retrocore/core"
	"retrocore/nes"
)

// batteryBacked is implemented by core.System values whose cartridge
// can hold save RAM; it isn't part of core.System itself since not
// every console family needs it.
type batteryBacked interface {
	SaveBattery() []byte
	LoadBattery(data []byte)
}

// game adapts a core.System to ebiten's Game interface. The emulation
// loop runs on its own goroutine and hands completed frames to Draw
// through a single-slot channel: the emulation goroutine blocks on the
// channel send once its buffer is full, which paces emulation to the display's
// vsync the same way the teacher split Bus.Run(ctx) from
// ebiten.RunGame across two goroutines.
type game struct {
	sys core.System

	frames chan core.Frame
	cancel context.CancelFunc

	last     core.Frame
	haveLast bool
}

func runVideo(sys core.System, path string, scale int) error {
	ctx, cancel := context.WithCancel(context.Background())
	g := &game{sys: sys, frames: make(chan core.Frame, 1), cancel: cancel}

	go g.emulate(ctx)

	ebiten.SetWindowSize(256*scale, 240*scale)
	ebiten.SetWindowTitle("retrocore - " + path)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	err := ebiten.RunGame(g)
	cancel()
	return err
}

func (g *game) emulate(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		g.sys.RunFrame()
		frame, ok := g.sys.PollVideo()
		if !ok {
			continue
		}

		select {
		case g.frames <- frame:
		case <-ctx.Done():
			return
		}
	}
}

func (g *game) Update() error {
	g.pollInput()

	select {
	case f := <-g.frames:
		g.last = f
		g.haveLast = true
	default:
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	if !g.haveLast {
		return
	}

	pix := make([]byte, len(g.last.Pixels)*4)
	for i, p := range g.last.Pixels {
		pix[i*4+0] = byte(p >> 16) // R
		pix[i*4+1] = byte(p >> 8)  // G
		pix[i*4+2] = byte(p)       // B
		pix[i*4+3] = byte(p >> 24) // A
	}
	screen.WritePixels(pix)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if g.haveLast {
		return g.last.Width, g.last.Height
	}
	return 256, 240
}

// pollInput maps the keyboard to controller 0. Only the NES package
// is wired today, so this reaches for its button constants directly;
// a second console family will need its own mapping here keyed off
// which package registry.Load actually resolved to.
func (g *game) pollInput() {
	var buttons uint32
	press := func(k ebiten.Key, bit uint32) {
		if ebiten.IsKeyPressed(k) {
			buttons |= bit
		}
	}
	press(ebiten.KeyZ, nes.ButtonA)
	press(ebiten.KeyX, nes.ButtonB)
	press(ebiten.KeyShiftRight, nes.ButtonSelect)
	press(ebiten.KeyEnter, nes.ButtonStart)
	press(ebiten.KeyUp, nes.ButtonUp)
	press(ebiten.KeyDown, nes.ButtonDown)
	press(ebiten.KeyLeft, nes.ButtonLeft)
	press(ebiten.KeyRight, nes.ButtonRight)

	g.sys.SetInput(0, core.ControllerState{Buttons: buttons})
}
