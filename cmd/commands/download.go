package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pluqqy/pdfdeck/internal/cli"
	"github.com/pluqqy/pdfdeck/pkg/files"
)

var downloadName string

// NewDownloadCommand creates the download command
func NewDownloadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "download <file-id>",
		Short:   "Save a document from the service",
		Aliases: []string{"save"},
		Long: `Download the current state of a document into the download directory
from settings (output.download_dir).

Examples:
  pdfdeck download 3f2a9c
  pdfdeck download 3f2a9c --name final.pdf`,
		Args:    cobra.ExactArgs(1),
		PreRunE: requireProject,
		RunE:    runDownload,
	}

	cmd.Flags().StringVarP(&downloadName, "name", "n", "", "File name to save as (default the document's name)")

	return cmd
}

// DownloadResult reports where a document was saved
type DownloadResult struct {
	FileID string `json:"file_id" yaml:"file_id"`
	Path   string `json:"path" yaml:"path"`
	Size   int64  `json:"size" yaml:"size"`
}

func (r DownloadResult) String() string {
	return fmt.Sprintf("Saved %s (%s)", r.Path, cli.FormatBytes(r.Size))
}

func runDownload(cmd *cobra.Command, args []string) error {
	fileID := args[0]
	if err := cli.ValidateFileID(fileID); err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	cc := cli.NewCommandContext()
	client := cc.Client()
	name := downloadName
	if name == "" {
		info, err := client.Info(ctx, fileID)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", fileID, err)
		}
		name = info.Filename
	}

	data, err := client.Download(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", fileID, err)
	}
	path, err := files.NewDownloadSaver(cc.LoadSettingsWithDefault().Output.DownloadDir).Save(ctx, name, data)
	if err != nil {
		return err
	}
	return output(DownloadResult{FileID: fileID, Path: path, Size: int64(len(data))})
}
