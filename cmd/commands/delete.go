package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pluqqy/pdfdeck/internal/cli"
)

// NewDeleteCommand creates the delete command
func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <file-id> <page>",
		Short: "Delete a page from a document",
		Long: `Delete one page, given by its 1-based position.

The last remaining page of a document cannot be deleted. The change can
be reverted with 'pdfdeck undo'.

Examples:
  # Delete page 2 (with confirmation)
  pdfdeck delete 3f2a9c 2

  # Delete without confirmation
  pdfdeck delete 3f2a9c 2 --yes`,
		Args:    cobra.ExactArgs(2),
		PreRunE: requireProject,
		RunE:    runDelete,
	}
}

func runDelete(cmd *cobra.Command, args []string) error {
	page, err := cli.ParsePageNumber(args[1])
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	ctrl, tabID, err := openSession(ctx, cli.NewCommandContext(), args[0])
	if err != nil {
		return err
	}

	sess, _ := ctrl.Registry().Get(tabID)
	confirmed, err := cli.Confirm(fmt.Sprintf("Delete page %d of %s?", page, sess.Filename), false)
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !confirmed {
		cli.PrintInfo("Deletion cancelled")
		return nil
	}

	if err := ctrl.DeletePage(ctx, tabID, page-1); err != nil {
		return err
	}
	return output(sessionResult(ctrl, tabID, fmt.Sprintf("Deleted page %d", page)))
}
