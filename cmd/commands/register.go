package commands

import (
	"github.com/spf13/cobra"

	"github.com/pluqqy/pdfdeck/internal/cli"
)

var globalFlags cli.GlobalFlags

// Register adds the persistent flags and the document commands to root
func Register(root *cobra.Command) {
	pf := root.PersistentFlags()
	pf.BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "Only print errors and results")
	pf.BoolVar(&globalFlags.NoColor, "no-color", false, "Print plain text markers instead of symbols")
	pf.BoolVarP(&globalFlags.SkipConfirm, "yes", "y", false, "Answer yes to every confirmation")
	pf.StringVar(&globalFlags.Server, "server", "", "Document service URL (overrides "+cli.ServerEnv+" and settings)")
	pf.StringVarP(&globalFlags.Output, "output", "o", "text", "Output format: text, json or yaml")

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cli.SetGlobalFlags(globalFlags)
	}

	root.AddCommand(
		NewUploadCommand(),
		NewInfoCommand(),
		NewAddCommand(),
		NewMoveCommand(),
		NewDeleteCommand(),
		NewUndoCommand(),
		NewDownloadCommand(),
		NewMergeCommand(),
	)
}
