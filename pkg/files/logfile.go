package files

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pluqqy/pdfdeck/pkg/models"
)

// ParseLevel maps a settings log level to a slog level; unknown values are info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// OpenLog opens the diagnostic log inside .pdfdeck. The returned closer
// closes the log file.
func OpenLog(settings models.LogSettings) (*slog.Logger, io.Closer, error) {
	name := settings.File
	if name == "" {
		name = LogFileName
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(PdfdeckDir, name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log %s: %w", path, err)
	}
	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: ParseLevel(settings.Level)})
	return slog.New(handler), f, nil
}

// StderrLogger logs warnings and above to stderr for one-shot commands
func StderrLogger(settings models.LogSettings) *slog.Logger {
	level := max(ParseLevel(settings.Level), slog.LevelWarn)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
