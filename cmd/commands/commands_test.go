package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pluqqy/pdfdeck/internal/cli"
	"github.com/pluqqy/pdfdeck/pkg/files"
	"github.com/pluqqy/pdfdeck/pkg/render"
	"github.com/pluqqy/pdfdeck/pkg/testhelpers"
)

type testEnv struct {
	fake   *testhelpers.FakeService
	server string
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func setupEnv(t *testing.T, initProject bool) *testEnv {
	t.Helper()

	tempDir := t.TempDir()
	oldDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(tempDir))
	t.Cleanup(func() { os.Chdir(oldDir) })
	if initProject {
		require.NoError(t, files.InitProjectStructure())
	}

	fake := testhelpers.NewFakeService()
	srv := testhelpers.NewServer(fake)
	t.Cleanup(srv.Close)

	oldDecoder := newDecoder
	newDecoder = func() render.Decoder { return &testhelpers.LabelDecoder{} }
	t.Cleanup(func() { newDecoder = oldDecoder })

	env := &testEnv{fake: fake, server: srv.URL, out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	cli.SetIO(strings.NewReader(""), env.out, env.errOut)
	t.Cleanup(func() { cli.SetIO(os.Stdin, os.Stdout, os.Stderr) })
	return env
}

func (e *testEnv) run(args ...string) error {
	root := &cobra.Command{Use: "pdfdeck", SilenceUsage: true, SilenceErrors: true}
	Register(root)
	root.SetArgs(append(args, "--server", e.server, "--no-color"))
	return root.Execute()
}

func (e *testEnv) runJSON(t *testing.T, v interface{}, args ...string) {
	t.Helper()
	e.out.Reset()
	require.NoError(t, e.run(append(args, "--output", "json")...))
	require.NoError(t, json.Unmarshal(e.out.Bytes(), v))
}

func writeDoc(t *testing.T, name string, pages ...string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(name, testhelpers.EncodeLabels(pages), 0644))
	return name
}

func TestCommands_RequireProject(t *testing.T) {
	env := setupEnv(t, false)

	err := env.run("info", "file000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdfdeck init")
}

func TestCommands_InvalidOutputFormat(t *testing.T) {
	env := setupEnv(t, true)

	err := env.run("info", "file000", "--output", "xml")
	assert.ErrorContains(t, err, "invalid output format")
}

func TestUploadAndInfo(t *testing.T) {
	env := setupEnv(t, true)
	writeDoc(t, "a.pdf", "A1", "A2", "A3")

	var uploaded DocumentResult
	env.runJSON(t, &uploaded, "upload", "a.pdf")
	assert.Equal(t, 3, uploaded.PageCount)
	assert.Equal(t, "a.pdf", uploaded.Filename)

	var info InfoResult
	env.runJSON(t, &info, "info", uploaded.FileID)
	assert.Equal(t, InfoResult{FileID: uploaded.FileID, Filename: "a.pdf", PageCount: 3}, info)

	env.out.Reset()
	require.NoError(t, env.run("info", uploaded.FileID))
	assert.Contains(t, env.out.String(), "Pages:")
	assert.Contains(t, env.out.String(), "3")
}

func TestUpload_MissingFile(t *testing.T) {
	env := setupEnv(t, true)

	err := env.run("upload", "missing.pdf")
	assert.ErrorContains(t, err, "does not exist")
	assert.Zero(t, env.fake.Calls(testhelpers.OpUpload))
}

func TestAdd(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
		want  []string
	}{
		{name: "all pages at end", want: []string{"T1", "T2", "S1", "S2", "S3"}},
		{name: "range at start", flags: []string{"--pages", "2-3", "--at", "1"}, want: []string{"S2", "S3", "T1", "T2"}},
		{name: "single page in middle", flags: []string{"-p", "1", "--at", "2"}, want: []string{"T1", "S1", "T2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupEnv(t, true)
			target := env.fake.Seed("t.pdf", "T1", "T2")
			source := env.fake.Seed("s.pdf", "S1", "S2", "S3")

			var result DocumentResult
			env.runJSON(t, &result, append([]string{"add", target, source}, tt.flags...)...)
			assert.Equal(t, tt.want, env.fake.Pages(target))
			assert.Equal(t, len(tt.want), result.PageCount)
		})
	}
}

func TestAdd_LocalSourceIsUploaded(t *testing.T) {
	env := setupEnv(t, true)
	target := env.fake.Seed("t.pdf", "T1")
	writeDoc(t, "extra.pdf", "E1", "E2")

	require.NoError(t, env.run("add", target, "extra.pdf"))
	assert.Equal(t, []string{"T1", "E1", "E2"}, env.fake.Pages(target))
	assert.Equal(t, 1, env.fake.Calls(testhelpers.OpUpload))
}

func TestAdd_InvalidInput(t *testing.T) {
	env := setupEnv(t, true)
	target := env.fake.Seed("t.pdf", "T1", "T2")
	source := env.fake.Seed("s.pdf", "S1")

	assert.ErrorContains(t, env.run("add", target, source, "--pages", "5-9"), "invalid page range")
	assert.Error(t, env.run("add", target, source, "--at", "9"))
	assert.Zero(t, env.fake.Calls(testhelpers.OpAddRange))
}

func TestMove(t *testing.T) {
	env := setupEnv(t, true)
	id := env.fake.Seed("t.pdf", "T1", "T2", "T3")

	require.NoError(t, env.run("move", id, "1", "3"))
	assert.Equal(t, []string{"T3", "T2", "T1"}, env.fake.Pages(id))

	assert.Error(t, env.run("move", id, "2", "2"))
	assert.Error(t, env.run("move", id, "0", "1"))
	assert.Error(t, env.run("move", id, "1", "4"))
	assert.Equal(t, 1, env.fake.Calls(testhelpers.OpReorder))
}

func TestDelete(t *testing.T) {
	env := setupEnv(t, true)
	id := env.fake.Seed("t.pdf", "T1", "T2", "T3")

	var result DocumentResult
	env.runJSON(t, &result, "delete", id, "2", "--yes")
	assert.Equal(t, 2, result.PageCount)
	assert.Equal(t, []string{"T1", "T3"}, env.fake.Pages(id))
}

func TestDelete_DeclinedConfirmation(t *testing.T) {
	env := setupEnv(t, true)
	id := env.fake.Seed("t.pdf", "T1", "T2")
	cli.SetIO(strings.NewReader("n\n"), nil, nil)

	require.NoError(t, env.run("delete", id, "1"))
	assert.Equal(t, []string{"T1", "T2"}, env.fake.Pages(id))
	assert.Contains(t, env.out.String(), "Deletion cancelled")
}

func TestDelete_LastPageRejected(t *testing.T) {
	env := setupEnv(t, true)
	id := env.fake.Seed("t.pdf", "T1")

	err := env.run("delete", id, "1", "--yes")
	assert.ErrorContains(t, err, "at least one page")
	assert.Zero(t, env.fake.Calls(testhelpers.OpDelete))
}

func TestUndo(t *testing.T) {
	env := setupEnv(t, true)
	id := env.fake.Seed("t.pdf", "T1", "T2")

	err := env.run("undo", id)
	assert.ErrorContains(t, err, "No undo history available")

	require.NoError(t, env.run("delete", id, "1", "--yes"))

	var status struct {
		CanUndo   bool `json:"can_undo"`
		UndoCount int  `json:"undo_count"`
	}
	env.runJSON(t, &status, "undo", id, "--status")
	assert.True(t, status.CanUndo)
	assert.Equal(t, 1, status.UndoCount)

	var result DocumentResult
	env.runJSON(t, &result, "undo", id)
	assert.Equal(t, 2, result.PageCount)
	assert.Equal(t, []string{"T1", "T2"}, env.fake.Pages(id))
}

func TestDownload(t *testing.T) {
	env := setupEnv(t, true)
	id := env.fake.Seed("report.pdf", "R1", "R2")

	var result DownloadResult
	env.runJSON(t, &result, "download", id)
	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1", "R2"}, testhelpers.DecodeLabels(data))
	assert.Equal(t, "report.pdf", result.Path)

	env.runJSON(t, &result, "download", id, "--name", "copy")
	assert.Equal(t, "copy.pdf", result.Path)
	assert.FileExists(t, "copy.pdf")
}

func TestMerge_Standalone(t *testing.T) {
	env := setupEnv(t, true)
	writeDoc(t, "a.pdf", "A1", "A2")
	writeDoc(t, "b.pdf", "B1")
	writeDoc(t, "c.pdf", "C1", "C2")

	var result MergeOutput
	env.runJSON(t, &result, "merge", "a.pdf", "b.pdf", "c.pdf", "--name", "bundle", "--save")
	assert.Equal(t, 3, result.Files)
	assert.Equal(t, 5, result.PageCount)
	assert.Equal(t, []string{"A1", "A2", "B1", "C1", "C2"}, env.fake.Pages(result.FileID))
	assert.Equal(t, "bundle.pdf", result.SavedTo)
	assert.FileExists(t, "bundle.pdf")
}

func TestMerge_Into(t *testing.T) {
	env := setupEnv(t, true)
	target := env.fake.Seed("t.pdf", "T1", "T2")
	writeDoc(t, "x.pdf", "X1")
	writeDoc(t, "y.pdf", "Y1", "Y2")

	var result MergeOutput
	env.runJSON(t, &result, "merge", "x.pdf", "y.pdf", "--into", target, "--at", "2")
	assert.Equal(t, target, result.FileID)
	assert.Equal(t, []string{"T1", "X1", "Y1", "Y2", "T2"}, env.fake.Pages(target))
}

func TestMerge_NeedsTwoFiles(t *testing.T) {
	env := setupEnv(t, true)
	writeDoc(t, "a.pdf", "A1")

	assert.Error(t, env.run("merge", "a.pdf"))
	assert.Zero(t, env.fake.Calls(testhelpers.OpUpload))
}
