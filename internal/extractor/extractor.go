// Package extractor wraps the external media extractor behind a small interface:
// Probe resolves metadata for a URL, Fetch produces a file and reports progress.
package extractor

import (
	"context"
	"errors"

	"github.com/cesargomez89/downtil/internal/domain"
)

var (
	ErrNoSubtitles = errors.New("no subtitles available")
	ErrNoThumbnail = errors.New("no thumbnail available")
	ErrNoMetadata  = errors.New("extractor returned no metadata")
)

type Prober interface {
	Probe(ctx context.Context, url string) (*domain.Metadata, error)
}

type Extractor interface {
	Prober
	// Fetch downloads url according to opts and returns the final file path.
	// The path may be empty when the extractor could not report it.
	Fetch(ctx context.Context, url string, opts FetchOptions, progress ProgressFunc) (string, error)
}

// FetchOptions is the per-variant configuration handed to the extractor.
type FetchOptions struct {
	Format            string `json:"format,omitempty"`
	OutputTemplate    string `json:"output_template,omitempty"`
	MergeOutputFormat string `json:"merge_output_format,omitempty"`
	RemuxVideo        string `json:"remux_video,omitempty"`
	AudioFormat       string `json:"audio_format,omitempty"`
	AudioQuality      string `json:"audio_quality,omitempty"`
	ExtractAudio      bool   `json:"extract_audio,omitempty"`
	EmbedMetadata     bool   `json:"embed_metadata,omitempty"`
	EmbedThumbnail    bool   `json:"embed_thumbnail,omitempty"`
}

type EventKind int

const (
	EventDownloading EventKind = iota
	EventFinished
	EventPostprocess
)

func (k EventKind) String() string {
	switch k {
	case EventDownloading:
		return "downloading"
	case EventFinished:
		return "finished"
	case EventPostprocess:
		return "postprocess"
	default:
		return "unknown"
	}
}

// Event is a single progress notification emitted during Fetch.
type Event struct {
	Speed      *float64
	ETA        *float64
	Name       string
	Kind       EventKind
	Downloaded int64
	Total      int64
	Done       bool
}

// ProgressFunc receives events synchronously from the fetching goroutine.
type ProgressFunc func(Event)

func (f ProgressFunc) emit(e Event) {
	if f != nil {
		f(e)
	}
}
