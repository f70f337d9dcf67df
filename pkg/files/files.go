package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	PdfdeckDir   = ".pdfdeck"
	SettingsFile = "settings.yaml"
	LogFileName  = "pdfdeck.log"
)

// InitProjectStructure creates the .pdfdeck directory and writes default
// settings unless a settings file already exists
func InitProjectStructure() error {
	if err := os.MkdirAll(PdfdeckDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", PdfdeckDir, err)
	}

	if _, err := os.Stat(SettingsPath()); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check settings: %w", err)
	}

	return WriteSettings(nil)
}

// ProjectExists reports whether the working directory has a .pdfdeck directory
func ProjectExists() bool {
	info, err := os.Stat(PdfdeckDir)
	return err == nil && info.IsDir()
}

// SettingsPath returns the path of the settings file
func SettingsPath() string {
	return filepath.Join(PdfdeckDir, SettingsFile)
}

// WriteFile writes data to path, creating parent directories
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}
