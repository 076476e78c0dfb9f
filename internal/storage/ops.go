package storage

import (
	"os"
	"strings"

	"github.com/cesargomez89/downtil/internal/constants"
)

// Sanitize replaces characters that are illegal in file names with "_" and
// appends ext when given. Empty names become "download".
func Sanitize(name, ext string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "download"
	}

	mapped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(constants.InvalidPathChars, r) || r < 0x20 {
			return '_'
		}
		return r
	}, name)

	out := strings.TrimRight(mapped, ".")
	if out == "" {
		out = "download"
	}
	ext = strings.TrimLeft(ext, ".")
	if ext == "" {
		return out
	}
	return out + "." + ext
}

func EnsureDir(path string) error {
	return os.MkdirAll(path, constants.DirPermissions)
}

func WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, constants.FilePermissions)
}

// Exists reports whether path is an existing regular file.
func Exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
