// Package cli provides the cobra command tree for badgesync.
package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/orbidlo/badgesync/internal/version"
)

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "badgesync",
		Short: "Keep Advent of Code star badges in sync with the leaderboard",
		Long: `badgesync - keep Advent of Code star badges in sync with the leaderboard

Badgesync fetches your star count from a private leaderboard, rewrites the
shields.io badge embedded in the target file and commits the change back to
the repository. When the badge is already current, nothing is committed.`,
		Version:       version.FullVersion(),
		SilenceErrors: true, // error printing happens in main
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the root command with the given output streams.
func Execute(stdout, stderr io.Writer) error {
	rootCmd := NewRootCmd()
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.Execute()
}
