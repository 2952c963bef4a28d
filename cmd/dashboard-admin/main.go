// Command dashboard-admin runs the full dashboard and admin workflow scenario.
package main

import (
	"os"

	"github.com/rocketship-ai/uiprobe/internal/cli"
)

func main() {
	cmd := cli.NewScenarioCmd("dashboard-admin")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
