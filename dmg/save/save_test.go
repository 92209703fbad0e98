package save

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSave_LoadMissingFileReturnsNilWithoutError(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "nonexistent.sav"))
	data, err := m.Load(0x2000)
	assert.NoError(t, err)
	assert.Nil(t, data)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.sav")
	m := New(path)

	ram := make([]byte, 0x2000)
	for i := range ram {
		ram[i] = byte(i)
	}

	assert.NoError(t, m.Save(ram))

	loaded, err := m.Load(0x2000)
	assert.NoError(t, err)
	assert.Equal(t, ram, loaded)
}

func TestSave_FileFormatIsRAMPlusSixteenBitBigEndianSumChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "format.sav")
	m := New(path)

	ram := []byte{0x01, 0x02, 0x03, 0xFF}
	assert.NoError(t, m.Save(ram))

	raw, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Len(t, raw, len(ram)+2, "file must be ramSize+2 bytes, not ramSize+4")
	assert.Equal(t, ram, raw[:len(ram)])

	var want uint16
	for _, b := range ram {
		want += uint16(b)
	}
	got := uint16(raw[len(ram)])<<8 | uint16(raw[len(ram)+1])
	assert.Equal(t, want, got)
}

func TestSave_CorruptedChecksumIsDetected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.sav")
	m := New(path)
	ram := make([]byte, 0x2000)
	assert.NoError(t, m.Save(ram))

	raw, err := os.ReadFile(path)
	assert.NoError(t, err)
	raw[0] ^= 0xFF // corrupt the RAM payload without touching the checksum
	assert.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = m.Load(0x2000)
	assert.Error(t, err)
}
