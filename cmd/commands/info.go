package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pluqqy/pdfdeck/internal/cli"
)

// InfoResult describes a document held by the service
type InfoResult struct {
	FileID    string `json:"file_id" yaml:"file_id"`
	Filename  string `json:"filename" yaml:"filename"`
	PageCount int    `json:"page_count" yaml:"page_count"`
	CanUndo   bool   `json:"can_undo" yaml:"can_undo"`
	UndoCount int    `json:"undo_count" yaml:"undo_count"`
}

// FormatText implements cli.TextFormatter
func (r InfoResult) FormatText(w io.Writer) error {
	t := cli.NewTableFormatter(w)
	t.Row("File id:", r.FileID)
	t.Row("Filename:", r.Filename)
	t.Row("Pages:", fmt.Sprint(r.PageCount))
	t.Row("Undo steps:", fmt.Sprint(r.UndoCount))
	return t.Flush()
}

// NewInfoCommand creates the info command
func NewInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file-id>",
		Short: "Show page count and undo history of a document",
		Example: `  pdfdeck info 3f2a9c
  pdfdeck info 3f2a9c --output yaml`,
		Args:    cobra.ExactArgs(1),
		PreRunE: requireProject,
		RunE:    runInfo,
	}
}

func runInfo(cmd *cobra.Command, args []string) error {
	fileID := args[0]
	if err := cli.ValidateFileID(fileID); err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	client := cli.NewCommandContext().Client()
	info, err := client.Info(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", fileID, err)
	}
	status, err := client.UndoStatus(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to read undo status of %s: %w", fileID, err)
	}
	return output(InfoResult{
		FileID:    fileID,
		Filename:  info.Filename,
		PageCount: info.PageCount,
		CanUndo:   status.CanUndo,
		UndoCount: status.UndoCount,
	})
}
