package ppu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harlanreed/dmgcore/dmg/addr"
)

func newTestPPU() (*PPU, *[]addr.Interrupt) {
	var fired []addr.Interrupt
	p := New(func(i addr.Interrupt) { fired = append(fired, i) })
	p.WriteRegister(addr.LCDC, 0x80) // LCD on, everything else default off
	p.ly = 0
	p.mode = ModeOAMScan
	p.cycles = 0
	return p, &fired
}

func TestPPU_ModeSequenceWithinOneScanline(t *testing.T) {
	p, _ := newTestPPU()

	p.Tick(oamScanCycles - 1)
	assert.Equal(t, ModeOAMScan, p.mode)
	p.Tick(1)
	assert.Equal(t, ModeTransfer, p.mode)

	p.Tick(transferCycles)
	assert.Equal(t, ModeHBlank, p.mode)

	p.Tick(hblankCycles)
	assert.Equal(t, ModeOAMScan, p.mode)
	assert.Equal(t, uint8(1), p.ly)
}

func TestPPU_EntersVBlankAfterLine143AndFiresInterrupt(t *testing.T) {
	p, fired := newTestPPU()
	p.ly = 143

	p.Tick(scanlineCycles) // finish line 143 entirely
	assert.Equal(t, ModeVBlank, p.mode)
	assert.Equal(t, uint8(144), p.ly)
	assert.Contains(t, *fired, addr.VBlankInterrupt)
}

func TestPPU_FrameWrapsAtLine154(t *testing.T) {
	p, _ := newTestPPU()
	p.ly = 153
	p.mode = ModeVBlank
	p.cycles = 0

	p.Tick(scanlineCycles)
	assert.Equal(t, uint8(0), p.ly)
	assert.True(t, p.ConsumeFrameReady())
	assert.Equal(t, ModeOAMScan, p.mode)
}

func TestPPU_LYCCoincidenceSetsStatBitAndFiresWhenEnabled(t *testing.T) {
	p, fired := newTestPPU()
	p.WriteRegister(addr.STAT, statLYCIrq)
	p.WriteRegister(addr.LYC, 5)
	p.ly = 4
	p.mode = ModeHBlank
	p.cycles = 0

	p.Tick(hblankCycles) // advances LY to 5
	assert.Equal(t, uint8(5), p.ly)
	assert.NotZero(t, p.stat&statLYCEqual)
	assert.Contains(t, *fired, addr.LCDStatInterrupt)
}

func TestPPU_BackgroundDisabledShowsPaletteColorZero(t *testing.T) {
	p, _ := newTestPPU()
	p.WriteRegister(addr.LCDC, lcdcEnable) // BG bit (0x01) left clear
	p.WriteRegister(addr.BGP, 0x03)        // color 0 maps to shade 3
	p.ly = 0
	p.mode = ModeOAMScan
	p.cycles = 0

	p.Tick(oamScanCycles)
	p.Tick(1) // render happens on Transfer entry

	assert.Equal(t, Shade(3), p.frame.At(0, 0))
}

func TestPPU_WindowDoesNotRenderWhenBackgroundDisabled(t *testing.T) {
	p, _ := newTestPPU()
	// LCD on, window enabled, BG (bit 0) left clear.
	p.WriteRegister(addr.LCDC, lcdcEnable|lcdcWindowEnable)
	p.WriteRegister(addr.BGP, 0x01) // color 0 maps to shade 1
	p.WriteRegister(addr.WY, 0)
	p.WriteRegister(addr.WX, 7)
	p.ly = 0
	p.mode = ModeOAMScan
	p.cycles = 0
	p.windowLine = 0

	p.Tick(oamScanCycles)
	p.Tick(1) // render happens on Transfer entry

	assert.Equal(t, Shade(1), p.frame.At(0, 0), "disabled-BG color 0 shade must win, not the window layer")
	assert.Equal(t, 0, p.windowLine, "window must not advance its line counter when BG is disabled")
}

func TestPPU_VRAMAndOAMLockedOnlyWhileLCDEnabledAndInRelevantModes(t *testing.T) {
	p, _ := newTestPPU()
	p.mode = ModeHBlank
	assert.False(t, p.VRAMLocked())
	assert.False(t, p.OAMLocked())

	p.mode = ModeOAMScan
	assert.False(t, p.VRAMLocked())
	assert.True(t, p.OAMLocked())

	p.mode = ModeTransfer
	assert.True(t, p.VRAMLocked())
	assert.True(t, p.OAMLocked())
}
