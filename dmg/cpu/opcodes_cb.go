package cpu

// The CB-prefixed table is fully regular: op = (opcode>>3)&7 selects the
// shift/rotate for opcodes below 0x40, and the three 64-entry blocks above
// it are BIT/RES/SET, each indexed by bit number b=(opcode>>3)&7 and
// register r=opcode&7 (0=B 1=C 2=D 3=E 4=H 5=L 6=(HL) 7=A).
func (c *CPU) executeCB(opcode uint8) (int, error) {
	r := opcode & 7
	op := (opcode >> 3) & 7

	value := c.getR8(r)
	indirect := r == 6

	switch {
	case opcode < 0x40:
		var result uint8
		switch op {
		case 0:
			result = c.rlc(value)
		case 1:
			result = c.rrc(value)
		case 2:
			result = c.rl(value)
		case 3:
			result = c.rr(value)
		case 4:
			result = c.sla(value)
		case 5:
			result = c.sra(value)
		case 6:
			result = c.swap(value)
		default:
			result = c.srl(value)
		}
		c.setR8(r, result)
		if indirect {
			return 16, nil
		}
		return 8, nil

	case opcode < 0x80: // BIT b,r
		c.bitTest(op, value)
		if indirect {
			return 12, nil
		}
		return 8, nil

	case opcode < 0xC0: // RES b,r
		c.setR8(r, value&^(1<<op))
		if indirect {
			return 16, nil
		}
		return 8, nil

	default: // SET b,r
		c.setR8(r, value|(1<<op))
		if indirect {
			return 16, nil
		}
		return 8, nil
	}
}
