package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoypad_UnselectedMatrixReadsAllHigh(t *testing.T) {
	j := NewJoypad(nil)
	j.Write(0x30) // neither matrix selected
	assert.Equal(t, uint8(0xFF), j.Read())
}

func TestJoypad_PressedButtonReadsLow(t *testing.T) {
	j := NewJoypad(nil)
	j.SetButton(ButtonA, true)
	j.Write(0x10) // select action buttons (bit 5 clear)
	assert.Equal(t, uint8(0xDE), j.Read())
}

func TestJoypad_PressTransitionRequestsInterruptOnlyWhenSelected(t *testing.T) {
	fired := 0
	j := NewJoypad(func() { fired++ })

	j.Write(0x10) // select actions
	j.SetButton(ButtonA, true)
	assert.Equal(t, 1, fired)

	j.SetButton(ButtonA, false)
	j.SetButton(ButtonUp, true) // direction line not selected
	assert.Equal(t, 1, fired)
}
