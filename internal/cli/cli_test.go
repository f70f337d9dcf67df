package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pluqqy/pdfdeck/pkg/files"
	"github.com/pluqqy/pdfdeck/pkg/models"
)

func captureIO(t *testing.T, input string) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	oldIn, oldOut, oldErr, oldFlags := stdin, stdout, stderr, flags
	t.Cleanup(func() {
		stdin, stdout, stderr, flags = oldIn, oldOut, oldErr, oldFlags
	})
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	SetIO(strings.NewReader(input), out, errOut)
	return out, errOut
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		defaultYes bool
		skip       bool
		want       bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "full yes", input: "YES\n", want: true},
		{name: "no", input: "n\n", defaultYes: true, want: false},
		{name: "empty takes default no", input: "\n", want: false},
		{name: "empty takes default yes", input: "\n", defaultYes: true, want: true},
		{name: "no trailing newline", input: "y", want: true},
		{name: "skip confirm", input: "", skip: true, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := captureIO(t, tt.input)
			SetGlobalFlags(GlobalFlags{SkipConfirm: tt.skip})

			got, err := Confirm("Delete page 2?", tt.defaultYes)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if !tt.skip {
				assert.Contains(t, out.String(), "Delete page 2?")
			}
		})
	}
}

func TestConfirm_EOF(t *testing.T) {
	captureIO(t, "")
	SetGlobalFlags(GlobalFlags{})

	_, err := Confirm("Continue?", false)
	assert.ErrorIs(t, err, io.EOF)
}

func TestPrinters(t *testing.T) {
	out, errOut := captureIO(t, "")

	SetGlobalFlags(GlobalFlags{NoColor: true})
	PrintSuccess("saved %s", "a.pdf")
	PrintInfo("%d pages", 3)
	PrintWarning("slow")
	PrintError("failed")
	assert.Equal(t, "OK: saved a.pdf\nINFO: 3 pages\n", out.String())
	assert.Equal(t, "WARNING: slow\nERROR: failed\n", errOut.String())

	out.Reset()
	errOut.Reset()
	SetGlobalFlags(GlobalFlags{Quiet: true})
	PrintSuccess("hidden")
	PrintInfo("hidden")
	PrintError("shown")
	assert.Empty(t, out.String())
	assert.Equal(t, "✗ shown\n", errOut.String())
}

type textResult struct {
	Name string `json:"name" yaml:"name"`
}

func (r textResult) FormatText(w io.Writer) error {
	_, err := io.WriteString(w, "name is "+r.Name+"\n")
	return err
}

func TestOutputResults(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{format: "json", want: "{\n  \"name\": \"a.pdf\"\n}\n"},
		{format: "yaml", want: "name: a.pdf\n"},
		{format: "text", want: "name is a.pdf\n"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, OutputResults(&buf, tt.format, textResult{Name: "a.pdf"}))
			assert.Equal(t, tt.want, buf.String())
		})
	}

	var buf bytes.Buffer
	assert.Error(t, OutputResults(&buf, "xml", textResult{}))
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		512:             "512 B",
		2048:            "2.0 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for in, want := range tests {
		if got := FormatBytes(in); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestValidators(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	assert.NoError(t, ValidateFilePath(file))
	assert.ErrorContains(t, ValidateFilePath(dir), "is a directory")
	assert.ErrorContains(t, ValidateFilePath(filepath.Join(dir, "nope.pdf")), "does not exist")

	assert.NoError(t, ValidateOutputFormat("yaml"))
	assert.Error(t, ValidateOutputFormat("xml"))

	assert.NoError(t, ValidateFileID("3f2a"))
	assert.Error(t, ValidateFileID(" "))
	assert.Error(t, ValidateFileID("../x"))

	n, err := ParsePageNumber(" 4 ")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	_, err = ParsePageNumber("0")
	assert.Error(t, err)
	_, err = ParsePageNumber("two")
	assert.Error(t, err)
}

func TestCommandContext_ValidateProject(t *testing.T) {
	tempDir := t.TempDir()
	oldWd, _ := os.Getwd()
	defer os.Chdir(oldWd)
	os.Chdir(tempDir)

	cc := NewCommandContext()
	assert.ErrorContains(t, cc.ValidateProject(), "pdfdeck init")

	require.NoError(t, files.InitProjectStructure())
	assert.NoError(t, cc.ValidateProject())
}

func TestCommandContext_ServerURL(t *testing.T) {
	captureIO(t, "")
	settings := models.DefaultSettings()
	settings.Server.BaseURL = "http://from-settings"
	cc := &CommandContext{Settings: settings}

	t.Setenv(ServerEnv, "")
	SetGlobalFlags(GlobalFlags{})
	assert.Equal(t, "http://from-settings", cc.ServerURL())

	t.Setenv(ServerEnv, "http://from-env")
	assert.Equal(t, "http://from-env", cc.ServerURL())

	SetGlobalFlags(GlobalFlags{Server: "http://from-flag"})
	assert.Equal(t, "http://from-flag", cc.ServerURL())
	assert.Equal(t, "http://from-flag", cc.Client().BaseURL)
}
