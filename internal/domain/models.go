package domain

import (
	"strings"
	"time"
)

// Kind identifies a platform plus output variant, e.g. "yt-hd".
type Kind string

type Stage string

const (
	StageQueued         Stage = "queued"
	StageStarting       Stage = "starting"
	StageDownloading    Stage = "downloading"
	StagePostprocessing Stage = "postprocessing"
	StageReady          Stage = "ready"
	StageError          Stage = "error"
)

// PostprocessStarted is the stage shown while a named post-processor runs.
func PostprocessStarted(name string) Stage {
	return Stage(name + "…")
}

// PostprocessDone is the stage shown once a named post-processor finished.
func PostprocessDone(name string) Stage {
	return Stage(name + " done")
}

// IsTerminal reports whether no further transition may happen.
func (s Stage) IsTerminal() bool {
	return s == StageReady || s == StageError
}

// IsRunning reports whether the job holds an admission slot.
func (s Stage) IsRunning() bool {
	return s != "" && s != StageQueued && !s.IsTerminal()
}

// Job represents a work item and its observable state
type Job struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Speed       *float64  `json:"speed"`
	ETA         *float64  `json:"eta"`
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	DedupKey    string    `json:"dedup_key,omitempty"`
	Title       string    `json:"title"`
	Stage       Stage     `json:"stage"`
	FilePath    string    `json:"-"`
	FileName    string    `json:"file_name,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Error       string    `json:"error,omitempty"`
	Progress    float64   `json:"progress"`
}

// Ready reports whether the job produced a downloadable file.
func (j *Job) Ready() bool {
	return j.FilePath != "" && j.Error == ""
}

// Metadata is what the extractor resolves for a source URL.
type Metadata struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Creator       string    `json:"creator,omitempty"`
	Thumbnail     string    `json:"thumbnail,omitempty"`
	WebpageURL    string    `json:"webpage_url,omitempty"`
	Subtitle      *Subtitle `json:"subtitle,omitempty"`
	MaxHeight     int       `json:"max_height,omitempty"`
	BestAudioKbps int       `json:"best_audio_kbps,omitempty"`
}

// Subtitle is the default subtitle track chosen for a source.
type Subtitle struct {
	URL  string `json:"url"`
	Ext  string `json:"ext"`
	Lang string `json:"lang"`
}

// DisplayTitle falls back to the description and then the given default.
func (m *Metadata) DisplayTitle(fallback string) string {
	if t := strings.TrimSpace(m.Title); t != "" {
		return t
	}
	if d := strings.TrimSpace(m.Description); d != "" {
		return d
	}
	return fallback
}

// DisplayCreator returns the uploader or "Unknown".
func (m *Metadata) DisplayCreator() string {
	if m.Creator != "" {
		return m.Creator
	}
	return "Unknown"
}
