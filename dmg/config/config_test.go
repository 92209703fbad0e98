package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_MissingFieldsFallBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte("[emulation]\ntick_mode = \"mcycle\"\n"), 0o644)
	assert.NoError(t, err)

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "mcycle", cfg.Emulation.TickMode)
	assert.Equal(t, Default().Logging.Level, cfg.Logging.Level)
}

func TestLoad_InvalidTickModeIsRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte("[emulation]\ntick_mode = \"bogus\"\n"), 0o644)
	assert.NoError(t, err)

	_, err = Load(path)
	assert.Error(t, err)
}

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidate_NegativeAutosaveIntervalIsRejected(t *testing.T) {
	cfg := Default()
	cfg.Save.AutosaveInterval = -1
	assert.Error(t, cfg.Validate())
}
