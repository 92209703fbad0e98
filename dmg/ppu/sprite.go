package ppu

// spritePriority resolves, per scanline, which of the (up to 10) selected
// sprites owns each of the 160 columns: lower OAM index wins ties, and on
// DMG (no CGB X-priority rule) a strictly smaller X coordinate always wins
// regardless of OAM order.
type spritePriority struct {
	owner [Width]int // sprite index owning this column, -1 if unclaimed
	ownerX [Width]int
}

func (p *spritePriority) clear() {
	for i := range p.owner {
		p.owner[i] = -1
		p.ownerX[i] = 0
	}
}

func (p *spritePriority) tryClaim(column, spriteIndex, spriteX int) {
	if column < 0 || column >= Width {
		return
	}
	current := p.owner[column]
	if current == -1 {
		p.owner[column] = spriteIndex
		p.ownerX[column] = spriteX
		return
	}
	if spriteX < p.ownerX[column] {
		p.owner[column] = spriteIndex
		p.ownerX[column] = spriteX
	}
}

func (p *spritePriority) ownerOf(column int) int {
	if column < 0 || column >= Width {
		return -1
	}
	return p.owner[column]
}
