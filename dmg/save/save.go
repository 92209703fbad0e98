// Package save persists and restores battery-backed cartridge RAM images.
package save

import (
	"encoding/binary"
	"os"

	"github.com/harlanreed/dmgcore/dmg/dmgerr"
)

// Manager loads and writes battery save files for a cartridge's external
// RAM: a flat dump of the RAM buffer followed by a 16-bit big-endian
// checksum, so a truncated or corrupted file is detected rather than
// silently loaded.
type Manager struct {
	path string
}

// New returns a Manager that reads and writes path.
func New(path string) *Manager {
	return &Manager{path: path}
}

// checksum sums every byte of data mod 2^16.
func checksum(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return sum
}

// Load reads the save file at the manager's path and returns the RAM
// image it contains. A missing file is not an error - it means the game
// has never been saved - and returns (nil, nil). A present but corrupt
// file (size or checksum mismatch against ramSize) returns a SaveError.
func (m *Manager) Load(ramSize int) ([]byte, error) {
	raw, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, dmgerr.NewFile(dmgerr.FileUnreadable, m.path, err)
	}

	if len(raw) != ramSize+2 {
		return nil, dmgerr.NewSave(dmgerr.SaveSizeMismatch, m.path, "save file size does not match cartridge RAM size")
	}

	data := raw[:ramSize]
	wantChecksum := binary.BigEndian.Uint16(raw[ramSize:])
	if checksum(data) != wantChecksum {
		return nil, dmgerr.NewSave(dmgerr.SaveChecksumMismatch, m.path, "save file checksum does not match contents")
	}

	return data, nil
}

// Save writes ram to the manager's path, appending its 16-bit checksum.
func (m *Manager) Save(ram []byte) error {
	out := make([]byte, len(ram)+2)
	copy(out, ram)
	binary.BigEndian.PutUint16(out[len(ram):], checksum(ram))

	if err := os.WriteFile(m.path, out, 0o644); err != nil {
		return dmgerr.NewSave(dmgerr.SaveWriteFailed, m.path, err.Error())
	}
	return nil
}
