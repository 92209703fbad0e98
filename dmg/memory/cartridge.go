package memory

import "github.com/harlanreed/dmgcore/dmg/dmgerr"

// MBCType identifies the memory bank controller a cartridge header
// declares, derived from the cartridge-type byte at 0x0147.
type MBCType int

const (
	MBCNone MBCType = iota
	MBC1Type
	MBC2Type
	MBC3Type
	MBC5Type
)

var romSizeKB = [9]int{32, 64, 128, 256, 512, 1024, 2048, 4096, 8192}
var ramSizeBanks = [6]int{0, 0, 1, 4, 16, 8}

// CartridgeHeader is the parsed subset of the 0x0100-0x014F header this
// core needs to select a controller and validate the image.
type CartridgeHeader struct {
	Title         string
	MBC           MBCType
	HasBattery    bool
	HasRTC        bool
	ROMBankCount  int
	RAMBankCount  int
	HeaderChecksum uint8
}

// ParseHeader reads and validates the cartridge header embedded in rom. It
// returns a RomError (per the typed error taxonomy) if rom is too short to
// contain a header or the header checksum does not match.
func ParseHeader(rom []byte) (CartridgeHeader, error) {
	if len(rom) < 0x150 {
		return CartridgeHeader{}, dmgerr.NewRom(dmgerr.RomTooSmall, "rom image shorter than header region")
	}

	var sum uint8
	for i := 0x0134; i <= 0x014C; i++ {
		sum = sum - rom[i] - 1
	}
	want := rom[0x014D]
	if sum != want {
		return CartridgeHeader{}, dmgerr.NewRom(dmgerr.RomHeaderChecksum, "cartridge header checksum mismatch")
	}

	h := CartridgeHeader{
		Title:          parseTitle(rom[0x0134:0x0144]),
		HeaderChecksum: want,
	}

	cartType := rom[0x0147]
	mbc, battery, rtc, ok := decodeCartridgeType(cartType)
	if !ok {
		return CartridgeHeader{}, dmgerr.NewRom(dmgerr.RomUnsupportedMBC, "unsupported cartridge type byte")
	}
	h.MBC, h.HasBattery, h.HasRTC = mbc, battery, rtc

	romCode := int(rom[0x0148])
	if romCode < len(romSizeKB) {
		h.ROMBankCount = romSizeKB[romCode] * 1024 / 0x4000
	} else {
		h.ROMBankCount = 2
	}

	ramCode := int(rom[0x0149])
	if h.MBC == MBC2Type {
		h.RAMBankCount = 1 // MBC2's built-in 512x4 RAM, not header-declared
	} else if ramCode < len(ramSizeBanks) {
		h.RAMBankCount = ramSizeBanks[ramCode]
	}

	return h, nil
}

func parseTitle(raw []byte) string {
	end := len(raw)
	for i, b := range raw {
		if b == 0 {
			end = i
			break
		}
	}
	return string(raw[:end])
}

// decodeCartridgeType maps a cartridge-type byte to its controller and
// feature flags. ok is false for any byte this core does not recognize
// (MMM01, HuC1/3, pocket camera, etc.), in which case the caller must
// reject the load rather than fall back to a working configuration.
func decodeCartridgeType(code uint8) (mbc MBCType, battery bool, rtc bool, ok bool) {
	switch code {
	case 0x00:
		return MBCNone, false, false, true
	case 0x01, 0x02:
		return MBC1Type, false, false, true
	case 0x03:
		return MBC1Type, true, false, true
	case 0x05:
		return MBC2Type, false, false, true
	case 0x06:
		return MBC2Type, true, false, true
	case 0x0F, 0x10:
		return MBC3Type, true, true, true
	case 0x11, 0x12:
		return MBC3Type, false, false, true
	case 0x13:
		return MBC3Type, true, false, true
	case 0x19, 0x1A, 0x1C, 0x1D:
		return MBC5Type, false, false, true
	case 0x1B, 0x1E:
		return MBC5Type, true, false, true
	default:
		return MBCNone, false, false, false
	}
}

// GlobalChecksum returns the 16-bit big-endian checksum stored at
// 0x014E-0x014F, purely informational on real hardware (never validated by
// the boot ROM) but retained so front ends can report it.
func GlobalChecksum(rom []byte) uint16 {
	if len(rom) < 0x150 {
		return 0
	}
	return uint16(rom[0x014E])<<8 | uint16(rom[0x014F])
}
