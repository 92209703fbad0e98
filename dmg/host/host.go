// Package host defines the display/input boundary between the emulator
// driver and a concrete front end, and provides a tcell-based terminal
// backend.
package host

import "github.com/harlanreed/dmgcore/dmg"

// Backend renders frames produced by a Driver and forwards input back
// into it until Run returns (on quit or a fatal error).
type Backend interface {
	Run(d *dmg.Driver) error
}
