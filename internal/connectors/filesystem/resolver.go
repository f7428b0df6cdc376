package filesystem

import (
	"path/filepath"
	"strings"
)

// ResolvePath converts a file:// URI or a relative path to a clean
// absolute path. Paths that cannot be made absolute are only cleaned.
func ResolvePath(uri string) string {
	path := strings.TrimPrefix(uri, "file://")
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
