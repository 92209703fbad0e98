// Package ppu implements the DMG picture-processing unit's mode state
// machine, register file, and background/window/sprite scanline renderer.
package ppu

import "github.com/harlanreed/dmgcore/dmg/addr"

// Mode is the PPU's current rendering stage, matching STAT bits 1-0.
type Mode uint8

const (
	ModeHBlank Mode = 0
	ModeVBlank Mode = 1
	ModeOAMScan Mode = 2
	ModeTransfer Mode = 3
)

const (
	oamScanCycles  = 80
	transferCycles = 172
	hblankCycles   = 204
	scanlineCycles = oamScanCycles + transferCycles + hblankCycles // 456
	frameCycles    = scanlineCycles * 154                          // 70224
)

const (
	lcdcEnable         = 0x80
	lcdcWindowMap      = 0x40
	lcdcWindowEnable   = 0x20
	lcdcTileDataSelect = 0x10
	lcdcBGMap          = 0x08
	lcdcSpriteSize     = 0x04
	lcdcSpriteEnable   = 0x02
	lcdcBGEnable       = 0x01

	statLYCIrq    = 0x40
	statOAMIrq    = 0x20
	statVBlankIrq = 0x10
	statHBlankIrq = 0x08
	statLYCEqual  = 0x04
)

// PPU owns VRAM, OAM, and the LCD register file, and advances the mode
// state machine in fixed-cycle steps, rendering each scanline once on
// entry to Transfer.
type PPU struct {
	vram [0x2000]uint8
	oam  [0xA0]uint8

	lcdc, stat, scy, scx, ly, lyc uint8
	bgp, obp0, obp1               uint8
	wy, wx                        uint8

	mode       Mode
	cycles     int
	windowLine int
	rendered   bool

	frame    FrameBuffer
	bgIndex  [Size]uint8 // raw 0-3 background/window color index, for sprite priority
	priority spritePriority

	frameReady bool

	requestInterrupt func(addr.Interrupt)
}

// New constructs a PPU with LY/mode at their documented post-boot values
// (mid-VBlank, as if the boot ROM had just finished).
func New(requestInterrupt func(addr.Interrupt)) *PPU {
	p := &PPU{requestInterrupt: requestInterrupt, mode: ModeVBlank, ly: 144}
	p.frame.Clear()
	return p
}

// Reset restores the documented power-on register values.
func (p *PPU) Reset() {
	*p = PPU{requestInterrupt: p.requestInterrupt, mode: ModeVBlank, ly: 144}
	p.frame.Clear()
}

// VRAMLocked reports whether the CPU's view of VRAM is currently blocked
// (Transfer mode only).
func (p *PPU) VRAMLocked() bool {
	return p.lcdEnabled() && p.mode == ModeTransfer
}

// OAMLocked reports whether the CPU's view of OAM is currently blocked
// (OAM scan and Transfer modes).
func (p *PPU) OAMLocked() bool {
	return p.lcdEnabled() && (p.mode == ModeOAMScan || p.mode == ModeTransfer)
}

func (p *PPU) lcdEnabled() bool { return p.lcdc&lcdcEnable != 0 }

func (p *PPU) ReadVRAM(address uint16) uint8  { return p.vram[address-addr.VRAMStart] }
func (p *PPU) WriteVRAM(address uint16, v uint8) { p.vram[address-addr.VRAMStart] = v }
func (p *PPU) ReadOAM(address uint16) uint8   { return p.oam[address-addr.OAMStart] }
func (p *PPU) WriteOAM(address uint16, v uint8) { p.oam[address-addr.OAMStart] = v }

// FrameBuffer returns the buffer the renderer draws into. It is not
// double-buffered: each scanline is written into it as it is rendered, so
// away from a frame boundary it holds lines of both the current and the
// previous frame.
func (p *PPU) FrameBuffer() *FrameBuffer { return &p.frame }

// ConsumeFrameReady reports and clears the "a new frame just completed"
// flag, letting a driver poll for frame pacing without a channel.
func (p *PPU) ConsumeFrameReady() bool {
	r := p.frameReady
	p.frameReady = false
	return r
}

// ReadRegister reads one of LCDC/STAT/SCY/SCX/LY/LYC/BGP/OBP0/OBP1/WY/WX.
func (p *PPU) ReadRegister(address uint16) uint8 {
	switch address {
	case addr.LCDC:
		return p.lcdc
	case addr.STAT:
		return p.stat | 0x80 | uint8(p.mode)
	case addr.SCY:
		return p.scy
	case addr.SCX:
		return p.scx
	case addr.LY:
		return p.ly
	case addr.LYC:
		return p.lyc
	case addr.BGP:
		return p.bgp
	case addr.OBP0:
		return p.obp0
	case addr.OBP1:
		return p.obp1
	case addr.WY:
		return p.wy
	case addr.WX:
		return p.wx
	default:
		return 0xFF
	}
}

// WriteRegister writes one of the LCD registers. Writes to LY are
// ignored (read-only on real hardware); a write to STAT or LYC
// re-evaluates the coincidence flag immediately.
func (p *PPU) WriteRegister(address uint16, value uint8) {
	switch address {
	case addr.LCDC:
		wasEnabled := p.lcdEnabled()
		p.lcdc = value
		if wasEnabled && !p.lcdEnabled() {
			p.mode = ModeHBlank
			p.ly = 0
			p.cycles = 0
		}
	case addr.STAT:
		p.stat = value & 0x78
		p.updateCoincidence()
	case addr.SCY:
		p.scy = value
	case addr.SCX:
		p.scx = value
	case addr.LYC:
		p.lyc = value
		p.updateCoincidence()
	case addr.BGP:
		p.bgp = value
	case addr.OBP0:
		p.obp0 = value
	case addr.OBP1:
		p.obp1 = value
	case addr.WY:
		p.wy = value
	case addr.WX:
		p.wx = value
	}
}

func (p *PPU) updateCoincidence() {
	equal := p.ly == p.lyc
	if equal {
		p.stat |= statLYCEqual
		if p.stat&statLYCIrq != 0 {
			p.requestInterrupt(addr.LCDStatInterrupt)
		}
	} else {
		p.stat &^= statLYCEqual
	}
}

func (p *PPU) setMode(m Mode) {
	p.mode = m
	switch m {
	case ModeOAMScan:
		if p.stat&statOAMIrq != 0 {
			p.requestInterrupt(addr.LCDStatInterrupt)
		}
	case ModeVBlank:
		p.requestInterrupt(addr.VBlankInterrupt)
		if p.stat&statVBlankIrq != 0 {
			p.requestInterrupt(addr.LCDStatInterrupt)
		}
	case ModeHBlank:
		if p.stat&statHBlankIrq != 0 {
			p.requestInterrupt(addr.LCDStatInterrupt)
		}
	}
}

// Tick advances the PPU by the given number of T-cycles.
func (p *PPU) Tick(cycles int) {
	if !p.lcdEnabled() {
		return
	}

	p.cycles += cycles

	for {
		switch p.mode {
		case ModeOAMScan:
			if p.cycles < oamScanCycles {
				return
			}
			p.cycles -= oamScanCycles
			p.setMode(ModeTransfer)
			p.rendered = false

		case ModeTransfer:
			if !p.rendered {
				p.renderScanline()
				p.rendered = true
			}
			if p.cycles < transferCycles {
				return
			}
			p.cycles -= transferCycles
			p.setMode(ModeHBlank)

		case ModeHBlank:
			if p.cycles < hblankCycles {
				return
			}
			p.cycles -= hblankCycles
			p.advanceLine()

		case ModeVBlank:
			if p.cycles < scanlineCycles {
				return
			}
			p.cycles -= scanlineCycles
			p.advanceLine()
		}
	}
}

func (p *PPU) advanceLine() {
	p.ly++
	if p.ly == 154 {
		p.ly = 0
		p.windowLine = 0
		p.frameReady = true
	}
	p.updateCoincidence()

	switch {
	case p.ly == 144:
		p.setMode(ModeVBlank)
	case p.ly < 144:
		p.setMode(ModeOAMScan)
	}
}

func (p *PPU) renderScanline() {
	line := int(p.ly)
	if line >= Height {
		return
	}

	if p.lcdc&lcdcBGEnable == 0 {
		color0 := p.bgp & 0x03
		for x := 0; x < Width; x++ {
			p.frame.Set(x, line, Shade(color0))
			p.bgIndex[line*Width+x] = 0
		}
	} else {
		p.renderBackground(line)
	}

	if p.lcdc&lcdcBGEnable != 0 && p.lcdc&lcdcWindowEnable != 0 {
		p.renderWindow(line)
	}

	if p.lcdc&lcdcSpriteEnable != 0 {
		p.renderSprites(line)
	}
}

func (p *PPU) bgTileBase() (tileData uint16, signed bool) {
	if p.lcdc&lcdcTileDataSelect != 0 {
		return addr.TileDataUnsigned, false
	}
	return addr.TileDataSigned, true
}

func (p *PPU) tileAddress(base uint16, signed bool, tileNumber uint8, rowOffset int) uint16 {
	if signed {
		return uint16(int(base) + int(int8(tileNumber))*16 + rowOffset)
	}
	return base + uint16(tileNumber)*16 + uint16(rowOffset)
}

func (p *PPU) renderBackground(line int) {
	tileData, signed := p.bgTileBase()
	tileMap := addr.TileMap0
	if p.lcdc&lcdcBGMap != 0 {
		tileMap = addr.TileMap1
	}

	scrolledY := (line + int(p.scy)) & 0xFF
	tileRow := scrolledY / 8
	pixelY := scrolledY % 8

	for x := 0; x < Width; x++ {
		scrolledX := (x + int(p.scx)) & 0xFF
		tileCol := scrolledX / 8
		pixelX := scrolledX % 8

		mapAddr := tileMap + uint16(tileRow*32+tileCol)
		tileNumber := p.vram[mapAddr-addr.VRAMStart]

		rowAddr := p.tileAddress(tileData, signed, tileNumber, pixelY*2)
		low := p.vram[rowAddr-addr.VRAMStart]
		high := p.vram[rowAddr+1-addr.VRAMStart]

		colorIdx := pixelColor(low, high, pixelX)
		shade := (p.bgp >> (colorIdx * 2)) & 0x03

		p.frame.Set(x, line, Shade(shade))
		p.bgIndex[line*Width+x] = colorIdx
	}
}

func (p *PPU) renderWindow(line int) {
	wy := int(p.wy)
	wx := int(p.wx) - 7
	if line < wy || wx >= Width {
		return
	}

	tileData, signed := p.bgTileBase()
	tileMap := addr.TileMap0
	if p.lcdc&lcdcWindowMap != 0 {
		tileMap = addr.TileMap1
	}

	tileRow := p.windowLine / 8
	pixelY := p.windowLine % 8
	drew := false

	for x := 0; x < Width; x++ {
		screenX := x
		windowX := screenX - wx
		if windowX < 0 {
			continue
		}
		drew = true

		tileCol := windowX / 8
		pixelX := windowX % 8

		mapAddr := tileMap + uint16(tileRow*32+tileCol)
		tileNumber := p.vram[mapAddr-addr.VRAMStart]

		rowAddr := p.tileAddress(tileData, signed, tileNumber, pixelY*2)
		low := p.vram[rowAddr-addr.VRAMStart]
		high := p.vram[rowAddr+1-addr.VRAMStart]

		colorIdx := pixelColor(low, high, pixelX)
		shade := (p.bgp >> (colorIdx * 2)) & 0x03

		p.frame.Set(screenX, line, Shade(shade))
		p.bgIndex[line*Width+screenX] = colorIdx
	}

	if drew {
		p.windowLine++
	}
}

func (p *PPU) renderSprites(line int) {
	height := 8
	if p.lcdc&lcdcSpriteSize != 0 {
		height = 16
	}

	type candidate struct {
		oamIndex int
		y, x     int
		tile     uint8
		flags    uint8
	}

	var candidates []candidate
	for i := 0; i < 40 && len(candidates) < 10; i++ {
		base := i * 4
		y := int(p.oam[base]) - 16
		if line < y || line >= y+height {
			continue
		}
		candidates = append(candidates, candidate{
			oamIndex: i,
			y:        y,
			x:        int(p.oam[base+1]) - 8,
			tile:     p.oam[base+2],
			flags:    p.oam[base+3],
		})
	}

	p.priority.clear()
	for _, c := range candidates {
		for col := 0; col < 8; col++ {
			p.priority.tryClaim(c.x+col, c.oamIndex, c.x)
		}
	}

	for _, c := range candidates {
		tile := c.tile
		if height == 16 {
			tile &^= 0x01
		}

		rowInSprite := line - c.y
		if c.flags&0x40 != 0 { // Y flip
			rowInSprite = height - 1 - rowInSprite
		}

		tileNumber := tile
		if height == 16 && rowInSprite >= 8 {
			tileNumber = tile | 0x01
			rowInSprite -= 8
		}

		rowAddr := addr.TileDataUnsigned + uint16(tileNumber)*16 + uint16(rowInSprite*2)
		low := p.vram[rowAddr-addr.VRAMStart]
		high := p.vram[rowAddr+1-addr.VRAMStart]

		palette := p.obp0
		if c.flags&0x10 != 0 {
			palette = p.obp1
		}

		for col := 0; col < 8; col++ {
			screenX := c.x + col
			if screenX < 0 || screenX >= Width {
				continue
			}
			if p.priority.ownerOf(screenX) != c.oamIndex {
				continue
			}

			pixelX := col
			if c.flags&0x20 != 0 { // X flip
				pixelX = 7 - col
			}
			colorIdx := pixelColor(low, high, pixelX)
			if colorIdx == 0 {
				continue // transparent
			}

			if c.flags&0x80 != 0 && p.bgIndex[line*Width+screenX] != 0 {
				continue // behind non-zero background/window pixel
			}

			shade := (palette >> (colorIdx * 2)) & 0x03
			p.frame.Set(screenX, line, Shade(shade))
		}
	}
}

func pixelColor(low, high uint8, pixelX int) uint8 {
	bitIndex := uint(7 - pixelX)
	var c uint8
	if low&(1<<bitIndex) != 0 {
		c |= 1
	}
	if high&(1<<bitIndex) != 0 {
		c |= 2
	}
	return c
}
