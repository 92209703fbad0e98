// Package memory implements the DMG address space: region dispatch across
// ROM/VRAM/WRAM/OAM/IO/HRAM, the cartridge memory bank controllers, the
// timer and joypad peripherals, and the OAM DMA engine. Serial registers
// are routed to a port supplied by the caller (see dmg/serial).
package memory

import (
	"github.com/harlanreed/dmgcore/dmg/addr"
	"github.com/harlanreed/dmgcore/dmg/apu"
)

// VideoUnit is the subset of PPU behavior the MMU needs: register
// read/write dispatch and the two bus-access locks the PPU imposes
// during modes 2/3 (OAM) and mode 3 (VRAM). Declared here rather than
// imported from dmg/ppu so the two packages don't import each other.
type VideoUnit interface {
	ReadRegister(address uint16) uint8
	WriteRegister(address uint16, value uint8)
	ReadVRAM(address uint16) uint8
	WriteVRAM(address uint16, value uint8)
	ReadOAM(address uint16) uint8
	WriteOAM(address uint16, value uint8)
	VRAMLocked() bool
	OAMLocked() bool
}

// InterruptBus is the flat IE/IF register pair, shared by value semantics
// across every component that can request or check interrupts; it holds
// no back-pointers to other subsystems.
type InterruptBus struct {
	IE uint8
	IF uint8
}

// Request sets the IF bit for the given interrupt source.
func (b *InterruptBus) Request(i addr.Interrupt) {
	b.IF |= 1 << i.Bit()
}

// MMU dispatches the full DMG address space, owning the cartridge
// controller, WRAM/HRAM, and the timer/joypad/serial/APU peripherals,
// and mediating PPU bus locks and OAM DMA.
type MMU struct {
	mbc    MBC
	wram   [0x2000]byte
	hram   [0x7F]byte
	video  VideoUnit
	timer  *Timer
	pad    *Joypad
	serial interface {
		Read(uint16) uint8
		Write(uint16, uint8)
	}
	apu *apu.APU

	Interrupts InterruptBus

	dmaActive  bool
	dmaSource  uint16
	dmaCursor  int
	dmaTCycles int
}

// New constructs an MMU wired to the given cartridge controller and video
// unit and serial port; timer/joypad/apu are constructed internally, the
// timer's and joypad's interrupt callbacks closing over the MMU's own
// InterruptBus.
func New(mbc MBC, video VideoUnit, serial interface {
	Read(uint16) uint8
	Write(uint16, uint8)
}) *MMU {
	m := &MMU{mbc: mbc, video: video, serial: serial, apu: apu.New()}
	m.timer = NewTimer(func() { m.Interrupts.Request(addr.TimerInterrupt) })
	m.pad = NewJoypad(func() { m.Interrupts.Request(addr.JoypadInterrupt) })
	return m
}

// Timer returns the MMU's owned Timer so the driver can advance it.
func (m *MMU) Timer() *Timer { return m.timer }

// Joypad returns the MMU's owned Joypad so the driver can forward input
// events to it.
func (m *MMU) Joypad() *Joypad { return m.pad }

// Battery returns the cartridge's battery-backed RAM image, or nil if it
// has none.
func (m *MMU) Battery() []byte { return m.mbc.Battery() }

// ReadByte reads a single byte from the full address space.
func (m *MMU) ReadByte(address uint16) uint8 {
	switch {
	case address <= addr.ROMBankNEnd:
		return m.mbc.ReadROM(address)
	case address <= addr.VRAMEnd:
		if m.video.VRAMLocked() {
			return 0xFF
		}
		return m.video.ReadVRAM(address)
	case address <= addr.SRAMEnd:
		return m.mbc.ReadRAM(address)
	case address <= addr.WRAMEnd:
		return m.wram[address-addr.WRAMStart]
	case address <= addr.EchoEnd:
		return m.wram[address-addr.EchoStart]
	case address <= addr.OAMEnd:
		if m.video.OAMLocked() || m.dmaActive {
			return 0xFF
		}
		return m.video.ReadOAM(address)
	case address <= addr.NotUsableEnd:
		return 0xFF
	case address <= addr.IOEnd:
		return m.readIO(address)
	case address < addr.IE:
		return m.hram[address-addr.HRAMStart]
	default:
		return m.Interrupts.IE
	}
}

// WriteByte writes a single byte to the full address space.
func (m *MMU) WriteByte(address uint16, value uint8) {
	switch {
	case address <= addr.ROMBankNEnd:
		m.mbc.WriteROM(address, value)
	case address <= addr.VRAMEnd:
		if m.video.VRAMLocked() {
			return
		}
		m.video.WriteVRAM(address, value)
	case address <= addr.SRAMEnd:
		m.mbc.WriteRAM(address, value)
	case address <= addr.WRAMEnd:
		m.wram[address-addr.WRAMStart] = value
	case address <= addr.EchoEnd:
		m.wram[address-addr.EchoStart] = value
	case address <= addr.OAMEnd:
		if m.video.OAMLocked() || m.dmaActive {
			return
		}
		m.video.WriteOAM(address, value)
	case address <= addr.NotUsableEnd:
		// writes silently discarded
	case address <= addr.IOEnd:
		m.writeIO(address, value)
	case address < addr.IE:
		m.hram[address-addr.HRAMStart] = value
	default:
		m.Interrupts.IE = value
	}
}

// ReadWord/WriteWord provide little-endian 16-bit access atop ReadByte/
// WriteByte, matching how the CPU and stack operations consume memory.
func (m *MMU) ReadWord(address uint16) uint16 {
	lo := m.ReadByte(address)
	hi := m.ReadByte(address + 1)
	return uint16(lo) | uint16(hi)<<8
}

func (m *MMU) WriteWord(address uint16, value uint16) {
	m.WriteByte(address, uint8(value))
	m.WriteByte(address+1, uint8(value>>8))
}

func (m *MMU) readIO(address uint16) uint8 {
	switch {
	case address == addr.P1:
		return m.pad.Read()
	case address == addr.SB || address == addr.SC:
		return m.serial.Read(address)
	case address >= addr.DIV && address <= addr.TAC:
		return m.timer.Read(address)
	case address == addr.IF:
		return m.Interrupts.IF | 0xE0
	case address >= addr.AudioStart && address <= addr.WaveRAMEnd:
		return m.apu.ReadRegister(address)
	case address >= addr.LCDC && address <= addr.WX:
		return m.video.ReadRegister(address)
	default:
		return 0xFF
	}
}

func (m *MMU) writeIO(address uint16, value uint8) {
	switch {
	case address == addr.P1:
		m.pad.Write(value)
	case address == addr.SB || address == addr.SC:
		m.serial.Write(address, value)
	case address >= addr.DIV && address <= addr.TAC:
		m.timer.Write(address, value)
	case address == addr.IF:
		m.Interrupts.IF = value & 0x1F
	case address == addr.DMA:
		m.StartDMA(value)
	case address >= addr.AudioStart && address <= addr.WaveRAMEnd:
		m.apu.WriteRegister(address, value)
	case address >= addr.LCDC && address <= addr.WX:
		m.video.WriteRegister(address, value)
	}
}

// StartDMA begins an OAM DMA transfer from source*0x100; the 160-byte
// copy is paced by TickDMA rather than performed instantaneously, since
// guest software (and the region locks above) observes it in progress.
func (m *MMU) StartDMA(source uint8) {
	m.dmaActive = true
	m.dmaSource = uint16(source) << 8
	m.dmaCursor = 0
	m.dmaTCycles = 0
}

// TickDMA advances an in-flight OAM DMA by the given number of T-cycles,
// copying one byte every 4 accumulated T-cycles (640 T-cycles total for
// the full 160-byte transfer), reading through the normal ROM/RAM path so
// cartridge-sourced DMA sees banked data correctly.
func (m *MMU) TickDMA(cycles int) {
	if !m.dmaActive {
		return
	}
	m.dmaTCycles += cycles
	for m.dmaTCycles >= 4 && m.dmaActive {
		m.dmaTCycles -= 4
		value := m.readDMAByte(m.dmaSource + uint16(m.dmaCursor))
		m.video.WriteOAM(addr.OAMStart+uint16(m.dmaCursor), value)
		m.dmaCursor++
		if m.dmaCursor >= 0xA0 {
			m.dmaActive = false
		}
	}
}

// readDMAByte bypasses the OAM/VRAM bus locks the DMA engine itself
// imposes, matching hardware where the DMA unit - not the CPU - drives
// these reads.
func (m *MMU) readDMAByte(address uint16) uint8 {
	switch {
	case address <= addr.ROMBankNEnd:
		return m.mbc.ReadROM(address)
	case address <= addr.VRAMEnd:
		return m.video.ReadVRAM(address)
	case address <= addr.SRAMEnd:
		return m.mbc.ReadRAM(address)
	case address <= addr.WRAMEnd:
		return m.wram[address-addr.WRAMStart]
	case address <= addr.EchoEnd:
		return m.wram[address-addr.EchoStart]
	default:
		return 0xFF
	}
}

// DMAInProgress reports whether an OAM DMA transfer is still copying.
func (m *MMU) DMAInProgress() bool { return m.dmaActive }

// Reset restores peripheral registers to their documented post-boot
// values; WRAM/HRAM contents are left as-is, matching real hardware where
// RAM powers on in an indeterminate state.
func (m *MMU) Reset() {
	m.timer.Reset()
	m.pad.Reset()
	m.apu.Reset()
	m.Interrupts = InterruptBus{}
	m.dmaActive = false
	m.dmaCursor = 0
	m.dmaTCycles = 0
}
