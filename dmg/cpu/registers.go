package cpu

import "github.com/harlanreed/dmgcore/dmg/bit"

// Register8 is an 8-bit CPU register type. The register file keeps A and F
// inside the AF Register16 and reads every half as a plain uint8, so no
// code in this package currently uses Register8.
type Register8 uint8

func (r Register8) get() uint8 { return uint8(r) }

func (r *Register8) set(v uint8) { *r = Register8(v) }

// Register16 is a 16-bit CPU register pair.
type Register16 uint16

func (r Register16) get() uint16 { return uint16(r) }

func (r *Register16) set(v uint16) { *r = Register16(v) }

func (r Register16) high() uint8 { return bit.High(uint16(r)) }

func (r Register16) low() uint8 { return bit.Low(uint16(r)) }

func (r *Register16) setHigh(v uint8) {
	*r = Register16(bit.Combine(v, r.low()))
}

func (r *Register16) setLow(v uint8) {
	*r = Register16(bit.Combine(r.high(), v))
}

func (r *Register16) incr() { *r++ }

func (r *Register16) decr() { *r-- }

// Flag is one of the four architectural flags packed into the low byte of AF.
type Flag uint8

const (
	flagZ Flag = 0x80
	flagN Flag = 0x40
	flagH Flag = 0x20
	flagC Flag = 0x10
)

// Registers holds the full Sharp LR35902 register file.
type Registers struct {
	af Register16
	bc Register16
	de Register16
	hl Register16
	sp Register16
	pc Register16
}

// reset restores the documented post-boot register values (no boot ROM is
// executed, so the core seeds these directly).
func (r *Registers) reset() {
	r.af.set(0x01B0)
	r.bc.set(0x0013)
	r.de.set(0x00D8)
	r.hl.set(0x014D)
	r.pc.set(0x0100)
	r.sp.set(0xFFFE)
}

// flagIndex returns the bit position of f within the F register.
func flagIndex(f Flag) uint8 {
	switch f {
	case flagZ:
		return 7
	case flagN:
		return 6
	case flagH:
		return 5
	default:
		return 4
	}
}

func (r *Registers) setFlag(f Flag) {
	r.af.setLow(bit.Set(flagIndex(f), r.af.low()))
}

func (r *Registers) clearFlag(f Flag) {
	r.af.setLow(bit.Reset(flagIndex(f), r.af.low()))
}

func (r *Registers) writeFlag(f Flag, set bool) {
	r.af.setLow(bit.WriteBit(flagIndex(f), r.af.low(), set))
}

func (r *Registers) hasFlag(f Flag) bool {
	return bit.IsSet(flagIndex(f), r.af.low())
}

// setF overwrites the flag byte, masking the permanently-zero low nibble.
func (r *Registers) setF(v uint8) {
	r.af.setLow(v & 0xF0)
}
