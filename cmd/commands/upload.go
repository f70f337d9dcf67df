package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pluqqy/pdfdeck/internal/cli"
	"github.com/pluqqy/pdfdeck/pkg/files"
)

// NewUploadCommand creates the upload command
func NewUploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a PDF to the document service",
		Long: `Upload a local PDF to the document service and print its file id.

The file id is what every other command works on.

Examples:
  # Upload a document
  pdfdeck upload report.pdf

  # Print only the id, as JSON
  pdfdeck upload report.pdf --output json`,
		Args:    cobra.ExactArgs(1),
		PreRunE: requireProject,
		RunE:    runUpload,
	}
}

func runUpload(cmd *cobra.Command, args []string) error {
	if err := cli.ValidateFilePath(args[0]); err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	src := files.LocalSource{Path: args[0]}
	rc, err := src.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	result, err := cli.NewCommandContext().Client().Upload(ctx, src.Name(), rc)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", args[0], err)
	}
	return output(DocumentResult{
		FileID:    result.FileID,
		Filename:  result.Filename,
		PageCount: result.PageCount,
		Message:   "Uploaded " + result.Filename,
	})
}
