// Command dmgcore runs the DMG execution core from the command line.
package main

import (
	"log/slog"
	"os"

	"github.com/harlanreed/dmgcore/dmg/cliapp"
)

func main() {
	app := cliapp.New()
	if err := app.Run(os.Args); err != nil {
		slog.Error("dmgcore exited with error", "error", err)
		os.Exit(1)
	}
}
