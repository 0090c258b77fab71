package extractors

import (
	"path/filepath"
	"strings"
)

// TitleFromFilename derives a human-readable title from a file path:
// the base name without its extension, with underscores and dashes
// turned into spaces.
func TitleFromFilename(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}
