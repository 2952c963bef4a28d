// Command fullscreen-check verifies the dashboard layout in fullscreen mode.
package main

import (
	"os"

	"github.com/rocketship-ai/uiprobe/internal/cli"
)

func main() {
	cmd := cli.NewScenarioCmd("fullscreen-layout")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
