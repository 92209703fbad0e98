package memory

const (
	romBankSize = 0x4000
	ramBankSize = 0x2000
)

// MBC is the cartridge-side half of the address bus: everything in
// 0x0000-0x7FFF (ROM, possibly bank-switched) and 0xA000-0xBFFF (external
// RAM, if present) is routed here by the MMU.
type MBC interface {
	ReadROM(address uint16) uint8
	WriteROM(address uint16, value uint8) // bank-select writes; ROM itself is read-only
	ReadRAM(address uint16) uint8
	WriteRAM(address uint16, value uint8)

	// Battery returns the persistable RAM image, or nil if the cartridge
	// has no battery-backed RAM.
	Battery() []byte
	LoadBattery(data []byte)
}

func bankedROMOffset(bank, address int) int {
	return bank*romBankSize + int(uint16(address)&0x3FFF)
}

// NewMBC constructs the controller matching h.MBC, wrapping rom and sizing
// external RAM per h.RAMBankCount.
func NewMBC(h CartridgeHeader, rom []byte) MBC {
	ramSize := h.RAMBankCount * ramBankSize
	switch h.MBC {
	case MBC1Type:
		return &mbc1{rom: rom, ram: make([]byte, max(ramSize, ramBankSize)), hasRAM: h.RAMBankCount > 0}
	case MBC2Type:
		return &mbc2{rom: rom, ram: make([]byte, 512)}
	case MBC3Type:
		return &mbc3{rom: rom, ram: make([]byte, max(ramSize, ramBankSize)), hasRAM: h.RAMBankCount > 0, hasRTC: h.HasRTC}
	case MBC5Type:
		return &mbc5{rom: rom, ram: make([]byte, max(ramSize, ramBankSize)), hasRAM: h.RAMBankCount > 0}
	default:
		return &romOnly{rom: rom}
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// romOnly serves carts with no bank switching (32KB ROM, no RAM).
type romOnly struct {
	rom []byte
}

func (m *romOnly) ReadROM(address uint16) uint8 {
	if int(address) < len(m.rom) {
		return m.rom[address]
	}
	return 0xFF
}
func (m *romOnly) WriteROM(uint16, uint8)    {}
func (m *romOnly) ReadRAM(uint16) uint8      { return 0xFF }
func (m *romOnly) WriteRAM(uint16, uint8)    {}
func (m *romOnly) Battery() []byte           { return nil }
func (m *romOnly) LoadBattery([]byte)        {}

// mbc1 implements the classic 5-bit ROM-bank / 2-bit RAM-bank controller,
// including the mode register that repurposes the 2-bit field as the
// upper ROM-bank bits in mode 0 or as a RAM bank / extra ROM-bank select
// in mode 1, and the bank-0 alias quirk at banks 0x00/0x20/0x40/0x60.
type mbc1 struct {
	rom    []byte
	ram    []byte
	hasRAM bool

	ramEnabled bool
	bank5      uint8 // low 5 bits of the selected ROM bank
	bank2      uint8 // high 2 bits, shared between ROM and RAM bank depending on mode
	mode       uint8 // 0 = ROM banking mode, 1 = RAM banking mode
}

func (m *mbc1) romBank() int {
	bank := int(m.bank5)
	if bank == 0 {
		bank = 1
	}
	if m.mode == 0 {
		bank |= int(m.bank2) << 5
	}
	return bank
}

func (m *mbc1) ReadROM(address uint16) uint8 {
	if address < 0x4000 {
		bank := 0
		if m.mode == 1 {
			bank = int(m.bank2) << 5
		}
		off := bankedROMOffset(bank, int(address))
		if off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	}
	off := bankedROMOffset(m.romBank(), int(address))
	if off < len(m.rom) {
		return m.rom[off]
	}
	return 0xFF
}

func (m *mbc1) WriteROM(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ramEnabled = value&0x0F == 0x0A
	case address < 0x4000:
		bank := value & 0x1F
		if bank == 0 {
			bank = 1
		}
		m.bank5 = bank
	case address < 0x6000:
		m.bank2 = value & 0x03
	default:
		m.mode = value & 0x01
	}
}

func (m *mbc1) ramOffset(address uint16) int {
	bank := 0
	if m.mode == 1 {
		bank = int(m.bank2)
	}
	return bank*ramBankSize + int(address&0x1FFF)
}

func (m *mbc1) ReadRAM(address uint16) uint8 {
	if !m.hasRAM || !m.ramEnabled {
		return 0xFF
	}
	off := m.ramOffset(address)
	if off < len(m.ram) {
		return m.ram[off]
	}
	return 0xFF
}

func (m *mbc1) WriteRAM(address uint16, value uint8) {
	if !m.hasRAM || !m.ramEnabled {
		return
	}
	off := m.ramOffset(address)
	if off < len(m.ram) {
		m.ram[off] = value
	}
}

func (m *mbc1) Battery() []byte {
	if !m.hasRAM {
		return nil
	}
	return m.ram
}
func (m *mbc1) LoadBattery(data []byte) { copy(m.ram, data) }

// mbc2 has a fixed 16KB/16KB ROM split and 512x4-bit built-in RAM; RAM
// enable and bank select share the same register range, distinguished by
// address bit 8.
type mbc2 struct {
	rom []byte
	ram []byte // 512 nibbles, stored one per byte for simplicity

	ramEnabled bool
	romBank    uint8
}

func (m *mbc2) ReadROM(address uint16) uint8 {
	if address < 0x4000 {
		if int(address) < len(m.rom) {
			return m.rom[address]
		}
		return 0xFF
	}
	bank := int(m.romBank)
	if bank == 0 {
		bank = 1
	}
	off := bankedROMOffset(bank, int(address))
	if off < len(m.rom) {
		return m.rom[off]
	}
	return 0xFF
}

func (m *mbc2) WriteROM(address uint16, value uint8) {
	if address >= 0x4000 {
		return
	}
	if address&0x0100 == 0 {
		m.ramEnabled = value&0x0F == 0x0A
		return
	}
	bank := value & 0x0F
	if bank == 0 {
		bank = 1
	}
	m.romBank = bank
}

func (m *mbc2) ReadRAM(address uint16) uint8 {
	if !m.ramEnabled {
		return 0xFF
	}
	idx := int(address&0x1FF)
	if idx < len(m.ram) {
		return m.ram[idx] | 0xF0
	}
	return 0xFF
}

func (m *mbc2) WriteRAM(address uint16, value uint8) {
	if !m.ramEnabled {
		return
	}
	idx := int(address & 0x1FF)
	if idx < len(m.ram) {
		m.ram[idx] = value & 0x0F
	}
}

func (m *mbc2) Battery() []byte      { return m.ram }
func (m *mbc2) LoadBattery(d []byte) { copy(m.ram, d) }

// mbc3 adds a full 7-bit ROM bank register, 4 RAM banks or a 5-register
// RTC selected by the same register, and a latch-on-write-sequence
// mechanism for reading a stable RTC snapshot. The RTC does not advance
// with wall-clock time in this core; its registers are read/write storage
// only, which is sufficient for software that merely probes for RTC
// presence.
type mbc3 struct {
	rom    []byte
	ram    []byte
	hasRAM bool
	hasRTC bool

	ramEnabled bool
	romBank    uint8
	ramBank    uint8 // 0x00-0x03 selects RAM; 0x08-0x0C selects an RTC register

	rtc       [5]uint8
	latchByte uint8
}

func (m *mbc3) ReadROM(address uint16) uint8 {
	if address < 0x4000 {
		if int(address) < len(m.rom) {
			return m.rom[address]
		}
		return 0xFF
	}
	bank := int(m.romBank)
	if bank == 0 {
		bank = 1
	}
	off := bankedROMOffset(bank, int(address))
	if off < len(m.rom) {
		return m.rom[off]
	}
	return 0xFF
}

func (m *mbc3) WriteROM(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ramEnabled = value&0x0F == 0x0A
	case address < 0x4000:
		bank := value & 0x7F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	case address < 0x6000:
		m.ramBank = value
	default:
		if m.latchByte == 0x00 && value == 0x01 {
			// latch: no-op beyond recording the sequence, RTC is static
		}
		m.latchByte = value
	}
}

func (m *mbc3) ReadRAM(address uint16) uint8 {
	if !m.ramEnabled {
		return 0xFF
	}
	if m.hasRTC && m.ramBank >= 0x08 && m.ramBank <= 0x0C {
		return m.rtc[m.ramBank-0x08]
	}
	if !m.hasRAM {
		return 0xFF
	}
	off := int(m.ramBank)*ramBankSize + int(address&0x1FFF)
	if off < len(m.ram) {
		return m.ram[off]
	}
	return 0xFF
}

func (m *mbc3) WriteRAM(address uint16, value uint8) {
	if !m.ramEnabled {
		return
	}
	if m.hasRTC && m.ramBank >= 0x08 && m.ramBank <= 0x0C {
		m.rtc[m.ramBank-0x08] = value
		return
	}
	if !m.hasRAM {
		return
	}
	off := int(m.ramBank)*ramBankSize + int(address&0x1FFF)
	if off < len(m.ram) {
		m.ram[off] = value
	}
}

func (m *mbc3) Battery() []byte {
	if !m.hasRAM {
		return nil
	}
	return m.ram
}
func (m *mbc3) LoadBattery(d []byte) { copy(m.ram, d) }

// mbc5 widens the ROM bank register to 9 bits (supporting up to 512
// banks) and, unlike mbc1, allows bank 0 to be explicitly selected for
// the switchable window.
type mbc5 struct {
	rom    []byte
	ram    []byte
	hasRAM bool

	ramEnabled bool
	romBankLo  uint8
	romBankHi  uint8
	ramBank    uint8
}

func (m *mbc5) romBank() int {
	return int(m.romBankHi)<<8 | int(m.romBankLo)
}

func (m *mbc5) ReadROM(address uint16) uint8 {
	if address < 0x4000 {
		if int(address) < len(m.rom) {
			return m.rom[address]
		}
		return 0xFF
	}
	off := bankedROMOffset(m.romBank(), int(address))
	if off < len(m.rom) {
		return m.rom[off]
	}
	return 0xFF
}

func (m *mbc5) WriteROM(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		m.ramEnabled = value&0x0F == 0x0A
	case address < 0x3000:
		m.romBankLo = value
	case address < 0x4000:
		m.romBankHi = value & 0x01
	case address < 0x6000:
		m.ramBank = value & 0x0F
	}
}

func (m *mbc5) ReadRAM(address uint16) uint8 {
	if !m.hasRAM || !m.ramEnabled {
		return 0xFF
	}
	off := int(m.ramBank)*ramBankSize + int(address&0x1FFF)
	if off < len(m.ram) {
		return m.ram[off]
	}
	return 0xFF
}

func (m *mbc5) WriteRAM(address uint16, value uint8) {
	if !m.hasRAM || !m.ramEnabled {
		return
	}
	off := int(m.ramBank)*ramBankSize + int(address&0x1FFF)
	if off < len(m.ram) {
		m.ram[off] = value
	}
}

func (m *mbc5) Battery() []byte {
	if !m.hasRAM {
		return nil
	}
	return m.ram
}
func (m *mbc5) LoadBattery(d []byte) { copy(m.ram, d) }
