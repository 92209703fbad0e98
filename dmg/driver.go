// Package dmg assembles the CPU, MMU, PPU and peripheral packages into a
// runnable emulator driver, advancing them in the fixed per-step order
// (CPU, then timer, then OAM DMA, then PPU) hardware's shared clock
// implies.
package dmg

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/harlanreed/dmgcore/dmg/addr"
	"github.com/harlanreed/dmgcore/dmg/config"
	"github.com/harlanreed/dmgcore/dmg/cpu"
	"github.com/harlanreed/dmgcore/dmg/dmgerr"
	"github.com/harlanreed/dmgcore/dmg/memory"
	"github.com/harlanreed/dmgcore/dmg/ppu"
	"github.com/harlanreed/dmgcore/dmg/save"
	"github.com/harlanreed/dmgcore/dmg/serial"
)

const cyclesPerFrame = 70224

// DebuggerState mirrors the driver's run mode: free-running, paused, or
// single-stepping by instruction or by frame.
type DebuggerState int

const (
	Running DebuggerState = iota
	Paused
	StepInstruction
	StepFrame
)

// Driver is the single owner of every emulated component. It holds the
// CPU, MMU and PPU by value-equivalent pointers constructed together at
// New, and is the only thing that calls their Tick/Step methods.
type Driver struct {
	cpu    *cpu.CPU
	mmu    *memory.MMU
	ppu    *ppu.PPU
	serial *serial.Port
	saver  *save.Manager

	debuggerMu    sync.RWMutex
	debuggerState DebuggerState
	stepRequested bool

	instructionCount uint64
	frameCount       uint64
}

// New constructs a Driver from ROM bytes and a configuration, wiring the
// PPU's and timer's interrupt requests back into the MMU's InterruptBus.
func New(rom []byte, cfg config.Config, serialSink io.Writer) (*Driver, error) {
	header, err := memory.ParseHeader(rom)
	if err != nil {
		return nil, err
	}
	slog.Info("cartridge loaded", "title", header.Title, "mbc", header.MBC, "rom_banks", header.ROMBankCount, "ram_banks", header.RAMBankCount)

	mbc := memory.NewMBC(header, rom)

	if serialSink == nil {
		serialSink = os.Stdout
	}

	d := &Driver{}

	var mmu *memory.MMU
	videoUnit := ppu.New(func(i addr.Interrupt) { mmu.Interrupts.Request(i) })
	serialPort := serial.New(serialSink, func() { mmu.Interrupts.Request(addr.SerialInterrupt) })
	mmu = memory.New(mbc, videoUnit, serialPort)

	d.cpu = cpu.New(mmu)
	d.mmu = mmu
	d.ppu = videoUnit
	d.serial = serialPort

	switch cfg.Emulation.TickMode {
	case "mcycle":
		d.cpu.SetTickMode(cpu.MCycle)
	case "tcycle":
		d.cpu.SetTickMode(cpu.TCycle)
	default:
		d.cpu.SetTickMode(cpu.Instruction)
	}

	if header.HasBattery {
		savePath := cfg.Save.Directory + "/" + header.Title + ".sav"
		d.saver = save.New(savePath)
		ramSize := header.RAMBankCount * 0x2000
		if header.MBC == memory.MBC2Type {
			ramSize = 512
		}
		if ramSize > 0 {
			data, err := d.saver.Load(ramSize)
			if err != nil {
				slog.Warn("battery save could not be loaded, starting with blank RAM", "error", err)
			} else if data != nil {
				mbc.LoadBattery(data)
			}
		}
	}

	return d, nil
}

// Step advances the CPU by one instruction (or one CPU.Step call in a
// cycle-granular tick mode) and then advances every other component by
// the same number of T-cycles, in the fixed order the shared clock
// requires: CPU, timer, OAM DMA, PPU, serial.
func (d *Driver) Step() (int, error) {
	cycles, err := d.cpu.Step()
	if err != nil {
		var illegal *cpu.IllegalOpcodeError
		if errors.As(err, &illegal) {
			return 0, dmgerr.NewCpu(dmgerr.CpuIllegalOpcode, d.cpu.PC(), illegal.Opcode, "illegal opcode executed")
		}
		return 0, err
	}

	d.mmu.Timer().Tick(cycles)
	d.mmu.TickDMA(cycles)
	d.ppu.Tick(cycles)
	d.serial.Tick(cycles)

	d.instructionCount++
	return cycles, nil
}

// RunUntilFrame steps the driver until a full 70224-cycle frame has
// elapsed, honoring the current debugger state exactly as the teacher's
// driver does: paused emulators do nothing, step modes execute once and
// revert to Paused, and running emulators execute until frame boundary.
func (d *Driver) RunUntilFrame() error {
	d.debuggerMu.RLock()
	state := d.debuggerState
	d.debuggerMu.RUnlock()

	switch state {
	case Paused:
		return nil

	case StepInstruction:
		d.debuggerMu.Lock()
		requested := d.stepRequested
		d.stepRequested = false
		d.debuggerMu.Unlock()
		if !requested {
			return nil
		}
		if _, err := d.Step(); err != nil {
			return err
		}
		d.SetDebuggerState(Paused)
		return nil

	case StepFrame:
		d.debuggerMu.Lock()
		requested := d.stepRequested
		d.stepRequested = false
		d.debuggerMu.Unlock()
		if !requested {
			return nil
		}
		if err := d.runFrame(); err != nil {
			return err
		}
		d.SetDebuggerState(Paused)
		return nil

	default:
		return d.runFrame()
	}
}

func (d *Driver) runFrame() error {
	total := 0
	for total < cyclesPerFrame {
		cycles, err := d.Step()
		if err != nil {
			return err
		}
		total += cycles
	}
	d.frameCount++
	if d.frameCount%60 == 0 {
		slog.Debug("frame completed", "frame", d.frameCount, "pc", fmt.Sprintf("0x%04X", d.cpu.PC()))
	}
	return nil
}

// ConsumeFrame returns the PPU's frame buffer (see ppu.PPU.FrameBuffer). It
// neither waits for a frame boundary nor clears the PPU's frame-ready flag.
func (d *Driver) ConsumeFrame() *ppu.FrameBuffer { return d.ppu.FrameBuffer() }

// SetButton forwards a button press/release event to the joypad.
func (d *Driver) SetButton(b memory.Button, pressed bool) {
	d.mmu.Joypad().SetButton(b, pressed)
}

// CPU exposes the underlying CPU for debug tooling and tests.
func (d *Driver) CPU() *cpu.CPU { return d.cpu }

// MMU exposes the underlying MMU for debug tooling and tests.
func (d *Driver) MMU() *memory.MMU { return d.mmu }

// InstructionCount returns the number of instructions executed since
// construction.
func (d *Driver) InstructionCount() uint64 { return d.instructionCount }

// FrameCount returns the number of complete frames rendered.
func (d *Driver) FrameCount() uint64 { return d.frameCount }

// SetDebuggerState transitions the driver's run mode.
func (d *Driver) SetDebuggerState(s DebuggerState) {
	d.debuggerMu.Lock()
	defer d.debuggerMu.Unlock()
	d.debuggerState = s
}

// DebuggerState returns the driver's current run mode.
func (d *Driver) DebuggerState() DebuggerState {
	d.debuggerMu.RLock()
	defer d.debuggerMu.RUnlock()
	return d.debuggerState
}

// RequestStep arms a single-step (instruction or frame) in the
// corresponding state; the next RunUntilFrame call consumes it.
func (d *Driver) RequestStep(s DebuggerState) {
	d.debuggerMu.Lock()
	defer d.debuggerMu.Unlock()
	d.stepRequested = true
	d.debuggerState = s
}

// PersistBattery writes the cartridge's battery-backed RAM to disk, if
// the cartridge has one. Safe to call even when it doesn't.
func (d *Driver) PersistBattery() error {
	if d.saver == nil {
		return nil
	}
	battery := d.mmu.Battery()
	if battery == nil {
		return nil
	}
	return d.saver.Save(battery)
}
