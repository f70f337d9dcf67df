package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pluqqy/pdfdeck/internal/cli"
	"github.com/pluqqy/pdfdeck/pkg/files"
	"github.com/pluqqy/pdfdeck/pkg/pagerange"
)

var (
	addPages    string
	addPosition string
)

// NewAddCommand creates the add command
func NewAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <file-id> <source>",
		Short: "Insert pages from another document",
		Long: `Insert a range of pages from a source document into a document.

The source is either a file id on the service or a local PDF, which is
uploaded first. Pages use the same range syntax as the TUI: "1-3,5".
Positions are 1-based; the default appends after the last page.

Examples:
  # Append every page of appendix.pdf
  pdfdeck add 3f2a9c appendix.pdf

  # Insert pages 2 to 4 of another document before page 1
  pdfdeck add 3f2a9c 81bd07 --pages 2-4 --at 1`,
		Args:    cobra.ExactArgs(2),
		PreRunE: requireProject,
		RunE:    runAdd,
	}

	cmd.Flags().StringVarP(&addPages, "pages", "p", "", "Pages of the source to insert (default all)")
	cmd.Flags().StringVar(&addPosition, "at", "", "1-based insert position (default end)")

	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	cc := cli.NewCommandContext()

	ctrl, tabID, err := openSession(ctx, cc, args[0])
	if err != nil {
		return err
	}

	sourceID := args[1]
	var sourcePages int
	if info, statErr := os.Stat(sourceID); statErr == nil && !info.IsDir() {
		src := files.LocalSource{Path: sourceID}
		rc, err := src.Open()
		if err != nil {
			return err
		}
		uploaded, err := cc.Client().Upload(ctx, src.Name(), rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", sourceID, err)
		}
		sourceID, sourcePages = uploaded.FileID, uploaded.PageCount
	} else {
		if err := cli.ValidateFileID(sourceID); err != nil {
			return err
		}
		info, err := cc.Client().Info(ctx, sourceID)
		if err != nil {
			return fmt.Errorf("failed to read source %s: %w", sourceID, err)
		}
		sourcePages = info.PageCount
	}

	indices := pagerange.All(sourcePages)
	if addPages != "" {
		indices = pagerange.Parse(addPages, sourcePages)
		if len(indices) == 0 {
			return fmt.Errorf("invalid page range %q for a %d page document", addPages, sourcePages)
		}
	}

	sess, _ := ctrl.Registry().Get(tabID)
	at := sess.PageCount
	if addPosition != "" {
		if at, err = pagerange.ParsePosition(addPosition, sess.PageCount); err != nil {
			return err
		}
	}

	if err := ctrl.InsertPages(ctx, tabID, sourceID, indices, at); err != nil {
		return err
	}
	return output(sessionResult(ctrl, tabID, fmt.Sprintf("Added page(s) %s", pagerange.Format(indices))))
}
