// Package cliapp wires the emulator core to a urfave/cli command-line
// interface: run (play a ROM), info (print cartridge header details),
// and config (print the effective configuration).
package cliapp

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/harlanreed/dmgcore/dmg"
	"github.com/harlanreed/dmgcore/dmg/config"
	"github.com/harlanreed/dmgcore/dmg/host"
	"github.com/harlanreed/dmgcore/dmg/memory"
)

// New builds the top-level CLI application.
func New() *cli.App {
	app := cli.NewApp()
	app.Name = "dmgcore"
	app.Usage = "dmgcore [options] <ROM file>"
	app.Description = "A Game Boy (DMG) execution core"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "path to a TOML configuration file",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "run headless for N frames instead of opening a terminal display",
			Value: 0,
		},
	}
	app.Action = runAction
	app.Commands = []cli.Command{
		{
			Name:      "info",
			Usage:     "print cartridge header information",
			ArgsUsage: "<ROM file>",
			Action:    infoAction,
		},
		{
			Name:   "config",
			Usage:  "print the effective configuration",
			Action: configAction,
		},
	}

	return app
}

func loadConfig(c *cli.Context) (config.Config, error) {
	path := c.String("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func romPath(c *cli.Context) (string, error) {
	if c.NArg() == 0 {
		return "", errors.New("no ROM path provided")
	}
	return c.Args().Get(0), nil
}

func runAction(c *cli.Context) error {
	path, err := romPath(c)
	if err != nil {
		cli.ShowAppHelp(c)
		return err
	}

	rom, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rom: %w", err)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	setupLogging(cfg)

	driver, err := dmg.New(rom, cfg, os.Stdout)
	if err != nil {
		return err
	}

	if frames := c.Int("frames"); frames > 0 {
		for i := 0; i < frames; i++ {
			if err := driver.RunUntilFrame(); err != nil {
				return err
			}
		}
		return driver.PersistBattery()
	}

	terminal, err := host.NewTerminal()
	if err != nil {
		return err
	}

	runErr := terminal.Run(driver)
	if err := driver.PersistBattery(); err != nil {
		slog.Error("battery save failed", "error", err)
	}
	return runErr
}

func infoAction(c *cli.Context) error {
	path, err := romPath(c)
	if err != nil {
		return err
	}

	rom, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rom: %w", err)
	}

	header, err := memory.ParseHeader(rom)
	if err != nil {
		return err
	}

	fmt.Printf("Title:       %s\n", header.Title)
	fmt.Printf("MBC:         %v\n", header.MBC)
	fmt.Printf("Battery:     %v\n", header.HasBattery)
	fmt.Printf("RTC:         %v\n", header.HasRTC)
	fmt.Printf("ROM banks:   %d\n", header.ROMBankCount)
	fmt.Printf("RAM banks:   %d\n", header.RAMBankCount)
	fmt.Printf("Global sum:  0x%04X\n", memory.GlobalChecksum(rom))
	return nil
}

func configAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	fmt.Printf("%+v\n", cfg)
	return nil
}

func setupLogging(cfg config.Config) {
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
