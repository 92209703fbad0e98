package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harlanreed/dmgcore/dmg/addr"
)

func TestTimer_DisabledNeverIncrementsTIMA(t *testing.T) {
	tm := NewTimer(nil)
	tm.Write(addr.TAC, 0x00) // disabled
	for i := 0; i < 100000; i++ {
		tm.Tick(1)
	}
	assert.Equal(t, uint8(0), tm.Read(addr.TIMA))
}

func TestTimer_EnabledIncrementsOnFallingEdge(t *testing.T) {
	tm := NewTimer(nil)
	tm.Write(addr.DIV, 0) // resets internal counter to 0
	tm.Write(addr.TAC, 0x05) // enabled, freq select 01 -> bit 3 (every 16 cycles)

	for i := 0; i < 16; i++ {
		tm.Tick(1)
	}
	assert.Equal(t, uint8(1), tm.Read(addr.TIMA))
}

func TestTimer_OverflowReloadsFromTMAAfterDelayAndFiresInterrupt(t *testing.T) {
	fired := false
	tm := NewTimer(func() { fired = true })
	tm.Write(addr.TMA, 0x7A)
	tm.Write(addr.DIV, 0)
	tm.Write(addr.TAC, 0x05)
	tm.Write(addr.TIMA, 0xFF)

	for i := 0; i < 16; i++ {
		tm.Tick(1)
	}
	assert.Equal(t, uint8(0x00), tm.Read(addr.TIMA), "TIMA reads 0x00 during the overflow window")
	assert.False(t, fired)

	for i := 0; i < 4; i++ {
		tm.Tick(1)
	}
	assert.Equal(t, uint8(0x7A), tm.Read(addr.TIMA))
	assert.True(t, fired)
}

func TestTimer_WriteDuringOverflowWindowCancelsReload(t *testing.T) {
	tm := NewTimer(nil)
	tm.Write(addr.TMA, 0x50)
	tm.Write(addr.DIV, 0)
	tm.Write(addr.TAC, 0x05)
	tm.Write(addr.TIMA, 0xFF)

	for i := 0; i < 16; i++ {
		tm.Tick(1)
	}
	tm.Write(addr.TIMA, 0x10) // write during the 4-cycle window cancels the reload

	for i := 0; i < 4; i++ {
		tm.Tick(1)
	}
	assert.Equal(t, uint8(0x10), tm.Read(addr.TIMA))
}

func TestTimer_DIVWriteResetsCounterAndCanTriggerFallingEdge(t *testing.T) {
	tm := NewTimer(nil)
	tm.Write(addr.DIV, 0)
	tm.Write(addr.TAC, 0x05) // enabled, selected bit is counter bit 3

	for i := 0; i < 12; i++ {
		tm.Tick(1)
	}
	before := tm.Read(addr.TIMA)

	tm.Write(addr.DIV, 0xFF) // resets counter to 0; selected bit was set, so this is a falling edge
	assert.Equal(t, before+1, tm.Read(addr.TIMA))
}
