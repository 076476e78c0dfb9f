// Package filecache finds previously produced files in the flat output directory.
package filecache

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cesargomez89/downtil/internal/constants"
	"github.com/cesargomez89/downtil/internal/storage"
)

// Index answers whether a finished file already exists for a source and variant.
type Index interface {
	FindExisting(sourceID, tag string) (string, bool)
	FindBySource(sourceID string) (string, bool)
	OutputTemplate(tag string) string
	Purge() (int, error)
	Dir() string
}

// Dir is an Index backed by a single directory.
type Dir struct {
	path string
}

func New(path string) (*Dir, error) {
	if err := storage.EnsureDir(path); err != nil {
		return nil, fmt.Errorf("create downloads dir: %w", err)
	}
	return &Dir{path: path}, nil
}

func (d *Dir) Dir() string {
	return d.path
}

// FileName builds the cache file name for a title, source and variant.
func FileName(title, sourceID, tag, ext string) string {
	return fmt.Sprintf("%s [%s] [%s].%s", title, sourceID, tag, ext)
}

// OutputTemplate is the yt-dlp output template that yields FileName layout.
func (d *Dir) OutputTemplate(tag string) string {
	return filepath.Join(d.path, fmt.Sprintf("%%(title).%dB [%%(id)s] [%s].%%(ext)s", constants.ExtractorTitleBytes, tag))
}

// FindExisting returns the newest file whose stem ends with "[sourceID] [tag]".
func (d *Dir) FindExisting(sourceID, tag string) (string, bool) {
	if sourceID == "" || tag == "" {
		return "", false
	}
	suffix := "[" + sourceID + "] [" + tag + "]"
	return d.newest(func(stem string) bool {
		return strings.HasSuffix(stem, suffix)
	})
}

// FindBySource returns the newest untagged file whose stem ends with
// "[sourceID]". Files carrying a variant tag are left to FindExisting.
func (d *Dir) FindBySource(sourceID string) (string, bool) {
	if sourceID == "" {
		return "", false
	}
	suffix := "[" + sourceID + "]"
	return d.newest(func(stem string) bool {
		return strings.HasSuffix(stem, suffix)
	})
}

func (d *Dir) newest(match func(stem string) bool) (string, bool) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return "", false
	}

	var best string
	var bestMod time.Time
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if IsTemp(name) {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if !match(stem) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestMod) {
			best = filepath.Join(d.path, name)
			bestMod = info.ModTime()
		}
	}
	return best, best != ""
}

// Purge removes every regular file in the directory.
func (d *Dir) Purge() (int, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read downloads dir: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(d.path, e.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// IsTemp reports whether name is an in-progress extractor artifact.
// Only the extensions after the last "]" count, since titles may contain dots.
func IsTemp(name string) bool {
	tail := strings.ToLower(name)
	if i := strings.LastIndex(tail, "]"); i >= 0 {
		tail = tail[i+1:]
	}

	// "x.mp4.part", "x.f137.mp4.ytdl"
	if isTempExt(filepath.Ext(tail)) {
		return true
	}
	// "x.temp.mp4"
	inner := strings.TrimSuffix(tail, filepath.Ext(tail))
	return isTempExt(filepath.Ext(inner))
}

func isTempExt(ext string) bool {
	return ext != "" && slices.Contains(constants.TempExtensions, ext)
}
