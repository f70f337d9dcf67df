package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pluqqy/pdfdeck/pkg/files"
	"github.com/pluqqy/pdfdeck/pkg/models"
	"github.com/pluqqy/pdfdeck/pkg/remote"
	"github.com/pluqqy/pdfdeck/pkg/render"
	"github.com/pluqqy/pdfdeck/pkg/session"
)

// ServerEnv overrides the configured service URL
const ServerEnv = "PDFDECK_SERVER"

// CommandContext manages project validation and common command context
type CommandContext struct {
	ProjectPath string
	Settings    *models.Settings
	validated   bool
}

// NewCommandContext creates a new command context
func NewCommandContext() *CommandContext {
	return &CommandContext{
		ProjectPath: files.PdfdeckDir,
	}
}

// ValidateProject ensures the project is initialized
func (c *CommandContext) ValidateProject() error {
	if c.validated {
		return nil
	}

	if _, err := os.Stat(c.ProjectPath); os.IsNotExist(err) {
		return fmt.Errorf("no .pdfdeck directory found. Run 'pdfdeck init' first")
	}

	c.validated = true
	return nil
}

// LoadSettingsWithDefault loads settings or returns default if error
func (c *CommandContext) LoadSettingsWithDefault() *models.Settings {
	if c.Settings != nil {
		return c.Settings
	}

	settings, err := files.ReadSettings()
	if err != nil {
		PrintWarning("Using default settings: %v", err)
		settings = models.DefaultSettings()
	}

	c.Settings = settings
	return settings
}

// ServerURL returns the service base URL: the --server flag, then the
// PDFDECK_SERVER environment variable, then settings
func (c *CommandContext) ServerURL() string {
	if s := strings.TrimSpace(flags.Server); s != "" {
		return s
	}
	if s := strings.TrimSpace(os.Getenv(ServerEnv)); s != "" {
		return s
	}
	return c.LoadSettingsWithDefault().Server.BaseURL
}

// Logger returns a stderr logger for one-shot commands
func (c *CommandContext) Logger() *slog.Logger {
	return files.StderrLogger(c.LoadSettingsWithDefault().Log)
}

// Client builds the document service client from settings
func (c *CommandContext) Client() *remote.Client {
	settings := c.LoadSettingsWithDefault()
	return remote.NewClient(c.ServerURL(),
		remote.WithTimeout(settings.Server.Timeout),
		remote.WithLogger(c.Logger()),
	)
}

// Controller builds a headless session controller on service. decoder nil
// means the pdfcpu decoder.
func (c *CommandContext) Controller(service session.DocumentService, decoder render.Decoder) *session.Controller {
	settings := c.LoadSettingsWithDefault()
	if decoder == nil {
		decoder = render.NewPDFDecoder()
	}
	return session.NewController(session.NewRegistry(), service, decoder, nil,
		session.WithLogger(c.Logger()),
		session.WithSaver(files.NewDownloadSaver(settings.Output.DownloadDir)),
		session.WithZoomDebounce(settings.View.ZoomDebounce),
	)
}
