package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X martianoff/dbridge/internal/commands.Version=...".
// Empty Commit and BuildDate are not printed.
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

func newVersionCommand(tool string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the " + tool + " release and the build it came from",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s version %s\n", tool, Version)
			if Commit != "" {
				fmt.Fprintf(out, "  commit: %s\n", Commit)
			}
			if BuildDate != "" {
				fmt.Fprintf(out, "  built: %s\n", BuildDate)
			}
		},
	}
}
