package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pluqqy/pdfdeck/internal/cli"
)

// NewMoveCommand creates the move command
func NewMoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "move <file-id> <from> <to>",
		Short: "Swap two pages of a document",
		Long: `Swap the pages at two 1-based positions.

Examples:
  # Move page 3 up one position
  pdfdeck move 3f2a9c 3 2`,
		Args:    cobra.ExactArgs(3),
		PreRunE: requireProject,
		RunE:    runMove,
	}
}

func runMove(cmd *cobra.Command, args []string) error {
	from, err := cli.ParsePageNumber(args[1])
	if err != nil {
		return err
	}
	to, err := cli.ParsePageNumber(args[2])
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	ctrl, tabID, err := openSession(ctx, cli.NewCommandContext(), args[0])
	if err != nil {
		return err
	}
	if err := ctrl.MovePage(ctx, tabID, from-1, to-1); err != nil {
		return err
	}
	return output(sessionResult(ctrl, tabID, fmt.Sprintf("Moved page %d to position %d", from, to)))
}
