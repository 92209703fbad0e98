// Package config loads and validates the TOML configuration file for
// front-end concerns. The driver reads the CPU tick mode and the save
// directory and the CLI reads the log level at startup; the frame cap,
// autosave interval and input bindings are validated or defaulted here
// but nothing else reads them.
package config

import (
	"time"

	"github.com/BurntSushi/toml"

	"github.com/harlanreed/dmgcore/dmg/dmgerr"
)

// Config is the root TOML document shape.
type Config struct {
	Emulation Emulation `toml:"emulation"`
	Save      Save      `toml:"save"`
	Input     Input     `toml:"input"`
	Logging   Logging   `toml:"logging"`
}

// Emulation controls the CPU stepping granularity and frame pacing.
type Emulation struct {
	TickMode   string `toml:"tick_mode"`   // "instruction", "mcycle", or "tcycle"
	FrameCap   bool   `toml:"frame_cap"`   // not read; the terminal backend always paces at 60fps
	BootSkip   bool   `toml:"boot_skip"`   // always true: no boot ROM is executed
}

// Save controls battery-save persistence.
type Save struct {
	Directory        string        `toml:"directory"`
	AutosaveInterval time.Duration `toml:"autosave_interval"`
}

// Input maps the eight DMG buttons to host key names. The terminal backend
// does not read these bindings; it uses fixed keys (arrows, Enter, a, s, q).
type Input struct {
	Up     string `toml:"up"`
	Down   string `toml:"down"`
	Left   string `toml:"left"`
	Right  string `toml:"right"`
	A      string `toml:"a"`
	B      string `toml:"b"`
	Start  string `toml:"start"`
	Select string `toml:"select"`
}

// Logging controls the slog handler level.
type Logging struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Emulation: Emulation{TickMode: "instruction", FrameCap: true, BootSkip: true},
		Save:      Save{Directory: ".", AutosaveInterval: 30 * time.Second},
		Input: Input{
			Up: "ArrowUp", Down: "ArrowDown", Left: "ArrowLeft", Right: "ArrowRight",
			A: "z", B: "x", Start: "Enter", Select: "Shift",
		},
		Logging: Logging{Level: "info"},
	}
}

// Load decodes the TOML file at path over Default(), so keys missing from
// the file keep their default values, then validates the result. A key
// present with an invalid value is an error; it is not reset to default.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, dmgerr.NewConfig(dmgerr.ConfigParseFailed, "", err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects semantically invalid configuration, converting it to a
// ConfigError rather than letting an invalid value propagate into the
// driver.
func (c Config) Validate() error {
	switch c.Emulation.TickMode {
	case "instruction", "mcycle", "tcycle":
	default:
		return dmgerr.NewConfig(dmgerr.ConfigInvalidValue, "emulation.tick_mode", "must be instruction, mcycle, or tcycle")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return dmgerr.NewConfig(dmgerr.ConfigInvalidValue, "logging.level", "must be debug, info, warn, or error")
	}

	if c.Save.AutosaveInterval < 0 {
		return dmgerr.NewConfig(dmgerr.ConfigInvalidValue, "save.autosave_interval", "must not be negative")
	}

	return nil
}
