package host

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/harlanreed/dmgcore/dmg"
	"github.com/harlanreed/dmgcore/dmg/memory"
	"github.com/harlanreed/dmgcore/dmg/ppu"
)

const (
	scaleX    = 2
	scaleY    = 1
	frameTime = time.Second / 60
)

var shadeChars = [4]rune{'█', '▓', '▒', '░'}

// Terminal is a tcell-backed Backend rendering the framebuffer as block
// characters, one frame per 1/60s tick, polling keyboard input on a
// separate goroutine.
type Terminal struct {
	screen  tcell.Screen
	running bool
}

// NewTerminal constructs and initializes a tcell screen.
func NewTerminal() (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("initialize terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("initialize terminal: %w", err)
	}
	return &Terminal{screen: screen}, nil
}

// Run drives the emulator at 60fps until the user quits (Escape/Ctrl-C)
// or a termination signal arrives.
func (t *Terminal) Run(d *dmg.Driver) error {
	t.running = true
	defer t.screen.Fini()

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go t.handleInput(d)

	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	for t.running {
		select {
		case <-ticker.C:
			if err := d.RunUntilFrame(); err != nil {
				slog.Error("emulation stopped", "error", err)
				return err
			}
			t.render(d)
			t.screen.Show()
		case <-signals:
			t.running = false
		}
	}

	return nil
}

func (t *Terminal) handleInput(d *dmg.Driver) {
	for t.running {
		ev := t.screen.PollEvent()
		key, ok := ev.(*tcell.EventKey)
		if !ok {
			continue
		}

		switch key.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			t.running = false
			return
		case tcell.KeyEnter:
			d.SetButton(memory.ButtonStart, true)
		case tcell.KeyRight:
			d.SetButton(memory.ButtonRight, true)
		case tcell.KeyLeft:
			d.SetButton(memory.ButtonLeft, true)
		case tcell.KeyUp:
			d.SetButton(memory.ButtonUp, true)
		case tcell.KeyDown:
			d.SetButton(memory.ButtonDown, true)
		case tcell.KeyRune:
			switch key.Rune() {
			case 'a':
				d.SetButton(memory.ButtonA, true)
			case 's':
				d.SetButton(memory.ButtonB, true)
			case 'q':
				d.SetButton(memory.ButtonSelect, true)
			case ' ':
				if d.DebuggerState() == dmg.Paused {
					d.SetDebuggerState(dmg.Running)
				} else {
					d.SetDebuggerState(dmg.Paused)
				}
			case 'n':
				d.RequestStep(dmg.StepInstruction)
			case 'f':
				d.RequestStep(dmg.StepFrame)
			}
		}
	}
}

func (t *Terminal) render(d *dmg.Driver) {
	frame := d.ConsumeFrame()
	for y := 0; y < ppu.Height; y++ {
		for x := 0; x < ppu.Width; x++ {
			shade := frame.At(x, y)
			style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
			for sx := 0; sx < scaleX; sx++ {
				t.screen.SetContent(x*scaleX+sx, y*scaleY, shadeChars[shade], nil, style)
			}
		}
	}
}
