package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smazurov/debezel/internal/version"
)

// CreateVersionCmd creates the version command.
func CreateVersionCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			if !verbose {
				fmt.Fprintln(w, version.String())
				return
			}
			info := version.Get()
			fmt.Fprintln(w, renderPairs([][2]string{
				{"Version", info.Version},
				{"Commit", info.GitCommit},
				{"Built", info.BuildDate},
				{"Go", info.GoVersion},
				{"Platform", info.Platform},
			}))
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print full build information")
	return cmd
}
