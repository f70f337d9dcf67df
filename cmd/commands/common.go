package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/pluqqy/pdfdeck/internal/cli"
	"github.com/pluqqy/pdfdeck/pkg/render"
	"github.com/pluqqy/pdfdeck/pkg/session"
)

// newDecoder picks the decoder for headless sessions; nil means pdfcpu
var newDecoder = func() render.Decoder { return nil }

// DocumentResult is printed by commands that change a document
type DocumentResult struct {
	FileID    string `json:"file_id" yaml:"file_id"`
	Filename  string `json:"filename,omitempty" yaml:"filename,omitempty"`
	PageCount int    `json:"page_count" yaml:"page_count"`
	Message   string `json:"-" yaml:"-"`
}

// FormatText implements cli.TextFormatter
func (r DocumentResult) FormatText(w io.Writer) error {
	if r.Message != "" {
		cli.PrintSuccess("%s", r.Message)
	}
	t := cli.NewTableFormatter(w)
	t.Row("File id:", r.FileID)
	if r.Filename != "" {
		t.Row("Filename:", r.Filename)
	}
	t.Row("Pages:", fmt.Sprint(r.PageCount))
	return t.Flush()
}

func requireProject(cmd *cobra.Command, args []string) error {
	if err := cli.ValidateOutputFormat(cli.Flags().Output); err != nil {
		return err
	}
	return cli.NewCommandContext().ValidateProject()
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

func output(data interface{}) error {
	return cli.OutputResults(cli.Stdout(), cli.Flags().Output, data)
}

// openSession attaches fileID in a headless controller and returns its tab
func openSession(ctx context.Context, cc *cli.CommandContext, fileID string) (*session.Controller, string, error) {
	if err := cli.ValidateFileID(fileID); err != nil {
		return nil, "", err
	}
	ctrl := cc.Controller(cc.Client(), newDecoder())
	tabID, err := ctrl.Attach(ctx, fileID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open document %s: %w", fileID, err)
	}
	return ctrl, tabID, nil
}

func sessionResult(ctrl *session.Controller, tabID, message string) DocumentResult {
	sess, _ := ctrl.Registry().Get(tabID)
	return DocumentResult{
		FileID:    sess.FileID,
		Filename:  sess.Filename,
		PageCount: sess.PageCount,
		Message:   message,
	}
}
