package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates a new root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uiprobe",
		Short: "uiprobe UI scenario runner",
		Long: `uiprobe drives a browser through scripted scenarios against the dashboard
and its /admin page, and reports every check it makes.`,
		SilenceUsage:     true,
		PersistentPreRun: initLogging,
	}

	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	cmd.AddCommand(
		NewRunCmd(),
		NewValidateCmd(),
		NewListCmd(),
		NewHistoryCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// NewScenarioCmd returns a stand-alone command that runs one built-in
// scenario and accepts the run flags.
func NewScenarioCmd(name string) *cobra.Command {
	cmd := &cobra.Command{
		Use:              name,
		Short:            "Run the " + name + " scenario",
		Args:             cobra.NoArgs,
		SilenceUsage:     true,
		PersistentPreRun: initLogging,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, []string{name})
		},
	}
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	addRunFlags(cmd)
	return cmd
}

func initLogging(cmd *cobra.Command, args []string) {
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		_ = os.Setenv("UIPROBE_LOG", "DEBUG")
	}
	InitLogging()
}
