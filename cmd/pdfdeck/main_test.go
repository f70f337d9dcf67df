package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pluqqy/pdfdeck/internal/cli"
	"github.com/pluqqy/pdfdeck/pkg/files"
	"github.com/pluqqy/pdfdeck/pkg/models"
)

type closeSpy struct {
	io.Closer
	closed bool
}

func (c *closeSpy) Close() error {
	c.closed = true
	return c.Closer.Close()
}

func setupRun(t *testing.T, run func(tea.Model) error) *closeSpy {
	t.Helper()

	tempDir := t.TempDir()
	oldDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(tempDir))
	t.Cleanup(func() { os.Chdir(oldDir) })
	require.NoError(t, files.InitProjectStructure())

	spy := &closeSpy{}
	oldOpen, oldRun := openLog, runProgram
	openLog = func(settings models.LogSettings) (*slog.Logger, io.Closer, error) {
		logger, closer, err := files.OpenLog(settings)
		spy.Closer = closer
		return logger, spy, err
	}
	runProgram = run
	t.Cleanup(func() { openLog, runProgram = oldOpen, oldRun })
	return spy
}

func TestRunTUI_ProgramFailureClosesLog(t *testing.T) {
	spy := setupRun(t, func(tea.Model) error { return errors.New("no tty") })

	cc := cli.NewCommandContext()
	cc.Settings = models.DefaultSettings()
	err := runTUI(cc, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tty")
	assert.True(t, spy.closed)

	data, err := os.ReadFile(filepath.Join(files.PdfdeckDir, files.LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Terminal UI failed.")
}

func TestRunTUI_CleanExitClosesLog(t *testing.T) {
	var ran bool
	spy := setupRun(t, func(m tea.Model) error {
		ran = m != nil
		return nil
	})

	cc := cli.NewCommandContext()
	cc.Settings = models.DefaultSettings()
	require.NoError(t, runTUI(cc, []string{"a.pdf"}))

	assert.True(t, ran)
	assert.True(t, spy.closed)
}
