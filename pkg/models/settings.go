package models

import "time"

// Settings represents the application configuration
type Settings struct {
	Server ServerSettings `yaml:"server"`
	View   ViewSettings   `yaml:"view"`
	Output OutputSettings `yaml:"output"`
	Log    LogSettings    `yaml:"log"`
}

// ServerSettings controls how the remote document service is reached
type ServerSettings struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"` // 0 means no client-side timeout
}

// ViewSettings tunes rendering and current-page tracking
type ViewSettings struct {
	InitialPages       int           `yaml:"initial_pages"` // pages rendered before the tab switch completes
	BackgroundDelay    time.Duration `yaml:"background_delay"`
	ZoomDebounce       time.Duration `yaml:"zoom_debounce"`
	ScrollDebounce     time.Duration `yaml:"scroll_debounce"`
	VisibilityDebounce time.Duration `yaml:"visibility_debounce"`
	MaxWidth           float64       `yaml:"max_width"` // in points; 0 disables fit-to-width
}

// OutputSettings controls where saved documents go
type OutputSettings struct {
	DownloadDir string `yaml:"download_dir"`
}

// LogSettings controls the diagnostic log
type LogSettings struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`
}

// DefaultSettings returns the default configuration
func DefaultSettings() *Settings {
	return &Settings{
		Server: ServerSettings{
			BaseURL: "http://localhost:8000",
		},
		View: ViewSettings{
			InitialPages:       3,
			BackgroundDelay:    100 * time.Millisecond,
			ZoomDebounce:       150 * time.Millisecond,
			ScrollDebounce:     100 * time.Millisecond,
			VisibilityDebounce: 50 * time.Millisecond,
			MaxWidth:           0,
		},
		Output: OutputSettings{
			DownloadDir: "./",
		},
		Log: LogSettings{
			Level: "info",
			File:  "pdfdeck.log",
		},
	}
}

// Normalize fills zero values with defaults so partial settings files work
func (s *Settings) Normalize() {
	def := DefaultSettings()
	if s.Server.BaseURL == "" {
		s.Server.BaseURL = def.Server.BaseURL
	}
	if s.View.InitialPages <= 0 {
		s.View.InitialPages = def.View.InitialPages
	}
	if s.View.BackgroundDelay <= 0 {
		s.View.BackgroundDelay = def.View.BackgroundDelay
	}
	if s.View.ZoomDebounce <= 0 {
		s.View.ZoomDebounce = def.View.ZoomDebounce
	}
	if s.View.ScrollDebounce <= 0 {
		s.View.ScrollDebounce = def.View.ScrollDebounce
	}
	if s.View.VisibilityDebounce <= 0 {
		s.View.VisibilityDebounce = def.View.VisibilityDebounce
	}
	if s.Output.DownloadDir == "" {
		s.Output.DownloadDir = def.Output.DownloadDir
	}
	if s.Log.Level == "" {
		s.Log.Level = def.Log.Level
	}
	if s.Log.File == "" {
		s.Log.File = def.Log.File
	}
}
