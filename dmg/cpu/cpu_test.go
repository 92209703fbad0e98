package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubBus is a bare slice-backed Bus for opcode-level tests.
type stubBus struct {
	mem [0x10000]uint8
}

func (b *stubBus) ReadByte(address uint16) uint8        { return b.mem[address] }
func (b *stubBus) WriteByte(address uint16, value uint8) { b.mem[address] = value }

func newTestCPU(program ...uint8) (*CPU, *stubBus) {
	bus := &stubBus{}
	copy(bus.mem[0x0100:], program)
	c := New(bus)
	return c, bus
}

func TestReset_SeedsDocumentedPostBootState(t *testing.T) {
	c, _ := newTestCPU()
	assert.Equal(t, uint16(0x01B0), c.AF())
	assert.Equal(t, uint16(0x0013), c.BC())
	assert.Equal(t, uint16(0x00D8), c.DE())
	assert.Equal(t, uint16(0x014D), c.HL())
	assert.Equal(t, uint16(0x0100), c.PC())
	assert.Equal(t, uint16(0xFFFE), c.SP())
}

func TestStep_NOPTakesFourCyclesAndAdvancesPC(t *testing.T) {
	c, _ := newTestCPU(0x00)
	cycles, err := c.Step()
	assert.NoError(t, err)
	assert.Equal(t, 4, cycles)
	assert.Equal(t, uint16(0x0101), c.PC())
	assert.Equal(t, uint64(4), c.Cycles())
}

func TestStep_AddAWithCarrySetsAllFlags(t *testing.T) {
	// LD A,0xFF ; LD B,0x01 ; ADD A,B
	c, _ := newTestCPU(0x3E, 0xFF, 0x06, 0x01, 0x80)
	for i := 0; i < 3; i++ {
		_, err := c.Step()
		assert.NoError(t, err)
	}
	assert.Equal(t, uint16(0x00)<<8, c.AF()&0xFF00)
	assert.True(t, c.FlagZ())
	assert.False(t, c.FlagN())
	assert.True(t, c.FlagH())
	assert.True(t, c.FlagC())
}

func TestStep_ConditionalJumpTakenCostsTwelveCycles(t *testing.T) {
	// LD A,1 ; OR A,A (clears Z since A!=0) ; JR NZ,+2 (taken)
	c, _ := newTestCPU(0x3E, 0x01, 0xB7, 0x20, 0x02, 0x00, 0x00)
	_, err := c.Step() // LD A,1
	assert.NoError(t, err)
	_, err = c.Step() // OR A,A
	assert.NoError(t, err)
	assert.False(t, c.FlagZ())

	cycles, err := c.Step() // JR NZ,+2 -> taken since Z is clear
	assert.NoError(t, err)
	assert.Equal(t, 12, cycles)
	assert.Equal(t, uint16(0x0107), c.PC())
}

func TestStep_IllegalOpcodeReturnsError(t *testing.T) {
	c, _ := newTestCPU(0xD3)
	_, err := c.Step()
	assert.Error(t, err)
	var illegal *IllegalOpcodeError
	assert.ErrorAs(t, err, &illegal)
	assert.Equal(t, uint8(0xD3), illegal.Opcode)
}

func TestStep_HaltNotEnteredWhenInterruptPendingAndIMEClear(t *testing.T) {
	c, bus := newTestCPU(0x76, 0x00) // HALT; NOP
	bus.mem[0xFFFF] = 0x01           // IE: VBlank enabled
	bus.mem[0xFF0F] = 0x01           // IF: VBlank pending

	_, err := c.Step() // enterHalt observes pending+enabled, does not halt
	assert.NoError(t, err)
	assert.False(t, c.Halted())
}

func TestMaybeServiceInterrupt_PushesPCAndJumpsToVector(t *testing.T) {
	c, bus := newTestCPU(0x00)
	c.ime = true
	bus.mem[0xFFFF] = 0x01 // IE VBlank
	bus.mem[0xFF0F] = 0x01 // IF VBlank
	c.SetSP(0xFFFE)
	c.SetPC(0x0150)

	cycles, err := c.Step()
	assert.NoError(t, err)
	assert.Equal(t, 20, cycles)
	assert.Equal(t, uint16(0x0040), c.PC())
	assert.False(t, c.IME())
	assert.Equal(t, uint8(0x00), bus.mem[0xFF0F])
}

func TestMaybeServiceInterrupt_FromHaltCostsTwentyFourCycles(t *testing.T) {
	c, bus := newTestCPU(0x76, 0x00) // HALT; NOP
	c.ime = true
	bus.mem[0xFFFF] = 0x01 // IE VBlank
	c.SetSP(0xFFFE)

	// Enter HALT first: no interrupt pending yet.
	_, err := c.Step()
	assert.NoError(t, err)
	assert.True(t, c.Halted())

	// Now raise the interrupt and service it from the halted state.
	bus.mem[0xFF0F] = 0x01
	cycles, err := c.Step()
	assert.NoError(t, err)
	assert.Equal(t, 24, cycles)
	assert.False(t, c.Halted())
	assert.Equal(t, uint16(0x0040), c.PC())
}

func TestExecuteCB_BitTestSetsZeroFlagWhenBitClear(t *testing.T) {
	// LD A,0x00 ; CB 47 = BIT 0,A
	c, _ := newTestCPU(0x3E, 0x00, 0xCB, 0x47)
	_, err := c.Step()
	assert.NoError(t, err)
	_, err = c.Step()
	assert.NoError(t, err)
	assert.True(t, c.FlagZ())
	assert.False(t, c.FlagN())
	assert.True(t, c.FlagH())
}

func TestDisassemble_NOP(t *testing.T) {
	_, bus := newTestCPU(0x00)
	mnemonic, length := Disassemble(bus, 0x0100)
	assert.Equal(t, "NOP", mnemonic)
	assert.Equal(t, 1, length)
}
