package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rocketship-ai/uiprobe/internal/scenarios"
)

// NewListCmd creates a new list command
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := scenarios.All()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if _, err := fmt.Fprintf(w, "NAME\tSTEPS\tDESCRIPTION\n"); err != nil {
				return err
			}
			for _, s := range all {
				if _, err := fmt.Fprintf(w, "%s\t%d\t%s\n", s.Name, len(s.Steps), truncate(s.Description, 70)); err != nil {
					return err
				}
			}
			return w.Flush()
		},
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
