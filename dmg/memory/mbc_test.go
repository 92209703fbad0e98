package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fakeROM(banks int) []byte {
	rom := make([]byte, banks*romBankSize)
	for bank := 0; bank < banks; bank++ {
		rom[bank*romBankSize] = uint8(bank) // each bank's first byte identifies it
	}
	return rom
}

func TestMBC1_BankZeroAliasesToBankOne(t *testing.T) {
	rom := fakeROM(8)
	m := &mbc1{rom: rom}
	m.WriteROM(0x2000, 0x00) // select bank 0 -> hardware aliases to 1
	assert.Equal(t, uint8(1), m.ReadROM(0x4000))
}

func TestMBC1_SelectsRequestedBank(t *testing.T) {
	rom := fakeROM(8)
	m := &mbc1{rom: rom}
	m.WriteROM(0x2000, 0x05)
	assert.Equal(t, uint8(5), m.ReadROM(0x4000))
}

func TestMBC1_RAMDisabledByDefault(t *testing.T) {
	rom := fakeROM(2)
	m := &mbc1{rom: rom, ram: make([]byte, ramBankSize), hasRAM: true}
	m.WriteRAM(0xA000, 0x42)
	assert.Equal(t, uint8(0xFF), m.ReadRAM(0xA000))

	m.WriteROM(0x0000, 0x0A) // enable RAM
	m.WriteRAM(0xA000, 0x42)
	assert.Equal(t, uint8(0x42), m.ReadRAM(0xA000))
}

func TestMBC2_RAMIsNibbleWide(t *testing.T) {
	m := &mbc2{rom: fakeROM(2), ram: make([]byte, 512)}
	m.WriteROM(0x0000, 0x0A) // enable (bit 8 clear)
	m.WriteRAM(0xA000, 0xF7)
	assert.Equal(t, uint8(0xF7), m.ReadRAM(0xA000), "only the low nibble is stored, high nibble always reads back as 1s")
}

func TestMBC5_SupportsWideBankSelection(t *testing.T) {
	rom := fakeROM(300)
	m := &mbc5{rom: rom}
	m.WriteROM(0x2000, 0x2B) // low 8 bits of bank
	m.WriteROM(0x3000, 0x01) // high bit -> bank 256+43 = 299
	bank := m.romBank()
	assert.Equal(t, 299, bank)
	assert.Equal(t, uint8(bank), m.ReadROM(0x4000)) // fakeROM's marker byte is uint8(bank)
}

func TestROMOnly_IgnoresBankSelectWrites(t *testing.T) {
	rom := fakeROM(2)
	m := &romOnly{rom: rom}
	m.WriteROM(0x2000, 0xFF)
	assert.Equal(t, rom[0x4000], m.ReadROM(0x4000))
}
