package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cesargomez89/downtil/internal/domain"
	"github.com/cesargomez89/downtil/internal/storage"
)

// MockExtractor is an in-process Extractor for tests and local development.
// Fetch renders the output template and writes a small file there.
type MockExtractor struct {
	// Meta is returned by Probe for any URL not found in ByURL.
	Meta  domain.Metadata
	ByURL map[string]domain.Metadata

	// FetchErr makes every Fetch fail.
	FetchErr error
	// Panic makes Fetch panic with the given value.
	Panic any
	// Block, when set, is waited on before Fetch writes anything.
	Block chan struct{}
	// Events are replayed through the progress callback.
	Events []Event
	// Ext overrides the written file's extension.
	Ext string
	// SkipPath makes Fetch return an empty path so callers must locate the file.
	SkipPath bool
	// NoFile makes Fetch succeed without writing anything.
	NoFile bool

	mu      sync.Mutex
	probes  int
	fetches int
	active  int
	peak    int
}

func NewMockExtractor() *MockExtractor {
	return &MockExtractor{
		Meta: domain.Metadata{
			ID:            "mock123",
			Title:         "Mock Video",
			Creator:       "Mock Channel",
			Thumbnail:     "https://example.com/thumb.jpg",
			MaxHeight:     2160,
			BestAudioKbps: 160,
		},
	}
}

func (m *MockExtractor) Probe(ctx context.Context, url string) (*domain.Metadata, error) {
	m.mu.Lock()
	m.probes++
	m.mu.Unlock()

	meta, ok := m.lookup(url)
	if !ok {
		return nil, ErrNoMetadata
	}
	return &meta, nil
}

func (m *MockExtractor) lookup(url string) (domain.Metadata, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if meta, ok := m.ByURL[url]; ok {
		return meta, true
	}
	return m.Meta, m.Meta.ID != ""
}

func (m *MockExtractor) Fetch(ctx context.Context, url string, opts FetchOptions, progress ProgressFunc) (string, error) {
	m.mu.Lock()
	m.fetches++
	m.active++
	if m.active > m.peak {
		m.peak = m.active
	}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
	}()

	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.Panic != nil {
		panic(m.Panic)
	}
	for _, e := range m.Events {
		progress.emit(e)
	}
	if m.FetchErr != nil {
		return "", m.FetchErr
	}
	if opts.OutputTemplate == "" {
		return "", errors.New("mock: no output template")
	}

	meta, ok := m.lookup(url)
	if !ok {
		meta = domain.Metadata{ID: "unknown", Title: "unknown"}
	}
	ext := m.Ext
	if ext == "" {
		ext = opts.AudioFormat
	}
	if ext == "" {
		ext = "mp4"
	}
	path := strings.NewReplacer(
		"%(title).200B", meta.Title,
		"%(id)s", meta.ID,
		"%(ext)s", ext,
	).Replace(opts.OutputTemplate)

	if m.NoFile {
		return "", nil
	}
	if err := storage.WriteFile(path, []byte("media")); err != nil {
		return "", fmt.Errorf("mock write: %w", err)
	}
	if m.SkipPath {
		return "", nil
	}
	return path, nil
}

// Calls returns how many times Probe and Fetch ran.
func (m *MockExtractor) Calls() (probes, fetches int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.probes, m.fetches
}

// PeakConcurrency is the highest number of overlapping Fetch calls seen.
func (m *MockExtractor) PeakConcurrency() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}
