package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pluqqy/pdfdeck/internal/cli"
)

var undoStatusOnly bool

// NewUndoCommand creates the undo command
func NewUndoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo <file-id>",
		Short: "Revert the last change to a document",
		Long: `Revert the last page change the service recorded for a document.

The service keeps a bounded history per document.

Examples:
  pdfdeck undo 3f2a9c

  # Only report whether undo is possible
  pdfdeck undo 3f2a9c --status`,
		Args:    cobra.ExactArgs(1),
		PreRunE: requireProject,
		RunE:    runUndo,
	}

	cmd.Flags().BoolVar(&undoStatusOnly, "status", false, "Show the undo history size instead of undoing")

	return cmd
}

func runUndo(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	cc := cli.NewCommandContext()

	if undoStatusOnly {
		if err := cli.ValidateFileID(args[0]); err != nil {
			return err
		}
		status, err := cc.Client().UndoStatus(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to read undo status of %s: %w", args[0], err)
		}
		return output(status)
	}

	ctrl, tabID, err := openSession(ctx, cc, args[0])
	if err != nil {
		return err
	}
	if err := ctrl.Undo(ctx, tabID); err != nil {
		return err
	}
	return output(sessionResult(ctrl, tabID, "Reverted the last change"))
}
