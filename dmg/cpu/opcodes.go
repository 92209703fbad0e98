package cpu

// The unprefixed opcode space decomposes cleanly into four 64-entry blocks
// selected by the top two bits of the opcode (x = opcode>>6). Within each
// block, the remaining six bits split into z = opcode&7, y = (opcode>>3)&7,
// p = (opcode>>4)&3 and q = (opcode>>3)&1 — the classic Z80/LR35902
// decoding shape. Building the dispatch this way keeps the 256-entry table
// exhaustive (every byte maps to a defined behavior, illegal opcodes
// included) without hand-writing 256 near-duplicate functions.

func (c *CPU) execute(opcode uint8) (int, error) {
	if illegalOpcodes[opcode] {
		return 0, &IllegalOpcodeError{Opcode: opcode}
	}

	x := opcode >> 6
	z := opcode & 7
	y := (opcode >> 3) & 7
	p := (opcode >> 4) & 3
	q := (opcode >> 3) & 1

	switch x {
	case 0:
		return c.executeBlock0(opcode, z, y, p, q)
	case 1:
		return c.executeBlock1(z, y)
	case 2:
		return c.executeBlock2(z, y)
	default:
		return c.executeBlock3(opcode, z, y, p, q)
	}
}

func (c *CPU) executeBlock0(opcode, z, y, p, q uint8) (int, error) {
	switch z {
	case 0:
		switch {
		case y == 0: // NOP
			return 4, nil
		case y == 1: // LD (nn),SP
			address := c.fetchWord()
			c.bus.WriteByte(address, uint8(c.regs.sp.get()))
			c.bus.WriteByte(address+1, uint8(c.regs.sp.get()>>8))
			return 20, nil
		case y == 2: // STOP
			c.fetchByte() // consume the trailing 0x00
			c.stopped = true
			return 4, nil
		case y == 3: // JR e8
			offset := int8(c.fetchByte())
			c.regs.pc.set(uint16(int32(c.regs.pc.get()) + int32(offset)))
			return 12, nil
		default: // JR cc,e8
			offset := int8(c.fetchByte())
			if c.checkCond(y - 4) {
				c.regs.pc.set(uint16(int32(c.regs.pc.get()) + int32(offset)))
				return 12, nil
			}
			return 8, nil
		}
	case 1:
		if q == 0 { // LD rr,nn
			c.setRR(p, c.fetchWord())
			return 12, nil
		}
		// ADD HL,rr
		c.addHL(c.getRR(p))
		return 8, nil
	case 2:
		address := c.indirectAddress(p)
		if q == 0 {
			c.bus.WriteByte(address, c.regs.af.high())
		} else {
			c.regs.af.setHigh(c.bus.ReadByte(address))
		}
		switch p {
		case 2:
			c.regs.hl.incr()
		case 3:
			c.regs.hl.decr()
		}
		return 8, nil
	case 3:
		if q == 0 {
			c.setRR(p, c.getRR(p)+1)
		} else {
			c.setRR(p, c.getRR(p)-1)
		}
		return 8, nil
	case 4:
		if y == 6 {
			c.bus.WriteByte(c.regs.hl.get(), c.inc8(c.bus.ReadByte(c.regs.hl.get())))
			return 12, nil
		}
		c.setR8(y, c.inc8(c.getR8(y)))
		return 4, nil
	case 5:
		if y == 6 {
			c.bus.WriteByte(c.regs.hl.get(), c.dec8(c.bus.ReadByte(c.regs.hl.get())))
			return 12, nil
		}
		c.setR8(y, c.dec8(c.getR8(y)))
		return 4, nil
	case 6:
		n := c.fetchByte()
		c.setR8(y, n)
		if y == 6 {
			return 12, nil
		}
		return 8, nil
	default: // z == 7
		switch y {
		case 0:
			a := c.regs.af.high()
			c.regs.af.setHigh(c.rlc(a))
			c.regs.clearFlag(flagZ)
		case 1:
			a := c.regs.af.high()
			c.regs.af.setHigh(c.rrc(a))
			c.regs.clearFlag(flagZ)
		case 2:
			a := c.regs.af.high()
			c.regs.af.setHigh(c.rl(a))
			c.regs.clearFlag(flagZ)
		case 3:
			a := c.regs.af.high()
			c.regs.af.setHigh(c.rr(a))
			c.regs.clearFlag(flagZ)
		case 4:
			c.daa()
		case 5:
			c.regs.af.setHigh(^c.regs.af.high())
			c.regs.setFlag(flagN)
			c.regs.setFlag(flagH)
		case 6:
			c.regs.clearFlag(flagN)
			c.regs.clearFlag(flagH)
			c.regs.setFlag(flagC)
		case 7:
			c.regs.clearFlag(flagN)
			c.regs.clearFlag(flagH)
			c.regs.writeFlag(flagC, !c.regs.hasFlag(flagC))
		}
		return 4, nil
	}
}

// indirectAddress resolves the (BC)/(DE)/(HL+)/(HL-) addressing used by the
// z==2 family of block 0.
func (c *CPU) indirectAddress(p uint8) uint16 {
	switch p {
	case 0:
		return c.regs.bc.get()
	case 1:
		return c.regs.de.get()
	default:
		return c.regs.hl.get()
	}
}

func (c *CPU) executeBlock1(z, y uint8) (int, error) {
	if z == 6 && y == 6 {
		c.enterHalt()
		return 4, nil
	}

	value := c.getR8(z)
	c.setR8(y, value)

	if z == 6 || y == 6 {
		return 8, nil
	}
	return 4, nil
}

func (c *CPU) executeBlock2(z, y uint8) (int, error) {
	c.aluOp(y, c.getR8(z))
	if z == 6 {
		return 8, nil
	}
	return 4, nil
}

func (c *CPU) executeBlock3(opcode, z, y, p, q uint8) (int, error) {
	switch z {
	case 0:
		switch {
		case y <= 3: // RET cc
			if c.checkCond(y) {
				c.regs.pc.set(c.pop())
				return 20, nil
			}
			return 8, nil
		case y == 4: // LDH (n),A
			n := c.fetchByte()
			c.bus.WriteByte(0xFF00+uint16(n), c.regs.af.high())
			return 12, nil
		case y == 5: // ADD SP,e8
			offset := int8(c.fetchByte())
			c.regs.sp.set(c.addSPSigned(c.regs.sp.get(), offset))
			return 16, nil
		case y == 6: // LDH A,(n)
			n := c.fetchByte()
			c.regs.af.setHigh(c.bus.ReadByte(0xFF00 + uint16(n)))
			return 12, nil
		default: // LD HL,SP+e8
			offset := int8(c.fetchByte())
			c.regs.hl.set(c.addSPSigned(c.regs.sp.get(), offset))
			return 12, nil
		}
	case 1:
		if q == 0 { // POP rr2
			c.setRR2(p, c.pop())
			return 12, nil
		}
		switch p {
		case 0: // RET
			c.regs.pc.set(c.pop())
			return 16, nil
		case 1: // RETI
			c.regs.pc.set(c.pop())
			c.ime = true
			c.imeScheduled = false
			return 16, nil
		case 2: // JP (HL)
			c.regs.pc.set(c.regs.hl.get())
			return 4, nil
		default: // LD SP,HL
			c.regs.sp.set(c.regs.hl.get())
			return 8, nil
		}
	case 2:
		switch {
		case y <= 3: // JP cc,nn
			target := c.fetchWord()
			if c.checkCond(y) {
				c.regs.pc.set(target)
				return 16, nil
			}
			return 12, nil
		case y == 4: // LD (C),A
			c.bus.WriteByte(0xFF00+uint16(c.regs.bc.low()), c.regs.af.high())
			return 8, nil
		case y == 5: // LD (nn),A
			c.bus.WriteByte(c.fetchWord(), c.regs.af.high())
			return 16, nil
		case y == 6: // LD A,(C)
			c.regs.af.setHigh(c.bus.ReadByte(0xFF00 + uint16(c.regs.bc.low())))
			return 8, nil
		default: // LD A,(nn)
			c.regs.af.setHigh(c.bus.ReadByte(c.fetchWord()))
			return 16, nil
		}
	case 3:
		switch y {
		case 0: // JP nn
			c.regs.pc.set(c.fetchWord())
			return 16, nil
		case 6: // DI
			c.ime = false
			c.imeScheduled = false
			return 4, nil
		case 7: // EI
			c.requestEI()
			return 4, nil
		default:
			return 0, &IllegalOpcodeError{Opcode: opcode}
		}
	case 4:
		if y > 3 {
			return 0, &IllegalOpcodeError{Opcode: opcode}
		}
		target := c.fetchWord()
		if c.checkCond(y) {
			c.push(c.regs.pc.get())
			c.regs.pc.set(target)
			return 24, nil
		}
		return 12, nil
	case 5:
		if q == 0 { // PUSH rr2
			c.push(c.getRR2(p))
			return 16, nil
		}
		if p == 0 { // CALL nn
			target := c.fetchWord()
			c.push(c.regs.pc.get())
			c.regs.pc.set(target)
			return 24, nil
		}
		return 0, &IllegalOpcodeError{Opcode: opcode}
	case 6: // ALU A,n
		n := c.fetchByte()
		c.aluOp(y, n)
		return 8, nil
	default: // z == 7, RST
		c.push(c.regs.pc.get())
		c.regs.pc.set(uint16(y) * 8)
		return 16, nil
	}
}

// enterHalt implements the documented HALT entry: with IME set, the CPU
// sleeps (Step returns 4 T-cycles per call) until IE&IF becomes non-zero.
// With IME clear and a pending, enabled interrupt already latched, HALT is
// not entered at all (the HALT-bug PC-repeat quirk is left unimplemented,
// per the open question in spec.md §9).
func (c *CPU) enterHalt() {
	ie := c.bus.ReadByte(0xFFFF)
	ifr := c.bus.ReadByte(0xFF0F)
	if !c.ime && ie&ifr&0x1F != 0 {
		return
	}
	c.halted = true
}
