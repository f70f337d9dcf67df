package files

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultDownloadName is used when a document has no usable filename
const DefaultDownloadName = "document.pdf"

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._ -]+`)

// SanitizeFileName reduces name to a plain file name ending in .pdf
// Examples:
//
//	"report.pdf"       → "report.pdf"
//	"../etc/passwd"    → "passwd.pdf"
//	"Q3: draft?"       → "Q3- draft-.pdf"
func SanitizeFileName(name string) string {
	name = filepath.Base(filepath.Clean("/" + strings.TrimSpace(name)))
	if name == "/" {
		return DefaultDownloadName
	}
	name = unsafeNameChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, " .")
	if name == "" || strings.EqualFold(name, "pdf") {
		return DefaultDownloadName
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

// DownloadSaver writes downloaded documents into Dir
type DownloadSaver struct {
	Dir string
}

// NewDownloadSaver creates a saver for dir; empty means the working directory
func NewDownloadSaver(dir string) *DownloadSaver {
	if dir == "" {
		dir = "."
	}
	return &DownloadSaver{Dir: dir}
}

// Save writes data under a sanitized filename and returns the written path
func (s *DownloadSaver) Save(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(s.Dir, SanitizeFileName(filename))
	if err := WriteFile(path, data); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", filename, err)
	}
	return path, nil
}
