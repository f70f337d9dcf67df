package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pluqqy/pdfdeck/pkg/session"
)

// LocalSource is a PDF file on disk offered for upload
type LocalSource struct {
	Path string
}

// Name returns the file's base name, used as the upload filename
func (s LocalSource) Name() string {
	return filepath.Base(s.Path)
}

// Open opens the file for reading
func (s LocalSource) Open() (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.Path, err)
	}
	return f, nil
}

// PathResolver resolves typed paths relative to Base and expands a leading ~
type PathResolver struct {
	Base string
}

// Resolve implements session.SourceResolver. The file must exist and be a
// regular file; its content is only checked by the service.
func (r PathResolver) Resolve(path string) (session.Source, error) {
	path = strings.Trim(strings.TrimSpace(path), `"'`)
	if path == "" {
		return nil, fmt.Errorf("no file given")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to expand %s: %w", path, err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	if !filepath.IsAbs(path) && r.Base != "" {
		path = filepath.Join(r.Base, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return LocalSource{Path: path}, nil
}
