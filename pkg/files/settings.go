package files

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pluqqy/pdfdeck/pkg/models"
)

// ReadSettings loads .pdfdeck/settings.yaml. A missing file yields the
// default settings; fields left out of the file keep their defaults.
func ReadSettings() (*models.Settings, error) {
	data, err := os.ReadFile(SettingsPath())
	if errors.Is(err, os.ErrNotExist) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	settings := models.DefaultSettings()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	settings.Normalize()
	return settings, nil
}

// WriteSettings saves settings to .pdfdeck/settings.yaml. Nil writes the
// defaults.
func WriteSettings(settings *models.Settings) error {
	if settings == nil {
		settings = models.DefaultSettings()
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return WriteFile(SettingsPath(), data)
}
