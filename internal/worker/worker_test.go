package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cesargomez89/downtil/internal/domain"
	"github.com/cesargomez89/downtil/internal/extractor"
	"github.com/cesargomez89/downtil/internal/filecache"
	"github.com/cesargomez89/downtil/internal/jobs"
	"github.com/cesargomez89/downtil/internal/logger"
	"github.com/cesargomez89/downtil/internal/platform"
	"github.com/cesargomez89/downtil/internal/progress"
	"github.com/cesargomez89/downtil/internal/queue"
)

type fakeTagger struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (f *fakeTagger) Tag(ctx context.Context, filePath string, meta *domain.Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, filePath)
	return f.err
}

type harness struct {
	reg   *jobs.Registry
	queue *queue.Queue
	files *filecache.Dir
	mock  *extractor.MockExtractor
	pool  *Pool
}

func newHarness(t *testing.T, workers, maxActive int, tagger Tagger) *harness {
	t.Helper()
	files, err := filecache.New(t.TempDir())
	if err != nil {
		t.Fatalf("filecache.New failed: %v", err)
	}
	log := logger.Default()
	reg := jobs.NewRegistry()
	q := queue.New(reg, 64, maxActive)
	mock := extractor.NewMockExtractor()
	pool := NewPool(q, mock, progress.NewReporter(reg, log), files, reg, tagger, workers, log)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		pool.Stop()
	})
	return &harness{reg: reg, queue: q, files: files, mock: mock, pool: pool}
}

func (h *harness) submit(t *testing.T, variant string, meta domain.Metadata) string {
	t.Helper()
	v, ok := platform.VariantFor(platform.YouTube, variant)
	if !ok {
		t.Fatalf("unknown variant %s", variant)
	}
	id := h.reg.Create(v.Kind, "", "title", "")
	task := queue.Task{JobID: id, URL: "https://www.youtube.com/watch?v=" + meta.ID, Variant: v, Meta: meta}
	task.Variant.Options.OutputTemplate = h.files.OutputTemplate(v.Tag())
	if err := h.queue.Enqueue(task); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	return id
}

func waitTerminal(t *testing.T, reg *jobs.Registry, id string) domain.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if j, ok := reg.Get(id); ok && j.Stage.IsTerminal() {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return domain.Job{}
}

func TestPoolCompletesJob(t *testing.T) {
	h := newHarness(t, 2, 2, nil)
	h.mock.Events = []extractor.Event{
		{Kind: extractor.EventDownloading, Downloaded: 50, Total: 100},
		{Kind: extractor.EventFinished},
	}

	id := h.submit(t, "hd", domain.Metadata{ID: "mock123", Title: "Mock Video"})
	j := waitTerminal(t, h.reg, id)

	if j.Stage != domain.StageReady {
		t.Fatalf("Expected ready, got %s (%s)", j.Stage, j.Error)
	}
	if j.Progress != 100 {
		t.Errorf("Expected progress 100, got %v", j.Progress)
	}
	if _, err := os.Stat(j.FilePath); err != nil {
		t.Errorf("Expected file on disk: %v", err)
	}
	if want := "Mock Video [mock123] [yt-hd].mp4"; j.FileName != want {
		t.Errorf("Expected file name %q, got %q", want, j.FileName)
	}
	if s := h.queue.Stats(); s.Running != 0 {
		t.Errorf("Expected no running slots, got %d", s.Running)
	}
}

func TestPoolFetchErrorReleasesSlot(t *testing.T) {
	h := newHarness(t, 1, 1, nil)
	h.mock.FetchErr = errors.New("HTTP Error 403")

	id := h.submit(t, "hd", domain.Metadata{ID: "mock123", Title: "Mock Video"})
	j := waitTerminal(t, h.reg, id)
	if j.Stage != domain.StageError {
		t.Fatalf("Expected error stage, got %s", j.Stage)
	}
	if j.Error == "" {
		t.Error("Expected error message")
	}

	h.mock.FetchErr = nil
	next := h.submit(t, "hd", domain.Metadata{ID: "mock123", Title: "Mock Video"})
	if j := waitTerminal(t, h.reg, next); j.Stage != domain.StageReady {
		t.Errorf("Expected worker to keep going, got %s (%s)", j.Stage, j.Error)
	}
}

func TestPoolRecoversFromPanic(t *testing.T) {
	h := newHarness(t, 1, 1, nil)
	h.mock.Panic = "boom"

	id := h.submit(t, "hd", domain.Metadata{ID: "mock123", Title: "Mock Video"})
	j := waitTerminal(t, h.reg, id)
	if j.Stage != domain.StageError {
		t.Fatalf("Expected error stage, got %s", j.Stage)
	}
	if j.Error != "panic: boom" {
		t.Errorf("Expected 'panic: boom', got %q", j.Error)
	}

	h.mock.Panic = nil
	next := h.submit(t, "hd", domain.Metadata{ID: "mock123", Title: "Mock Video"})
	if j := waitTerminal(t, h.reg, next); j.Stage != domain.StageReady {
		t.Errorf("Expected pool to survive the panic, got %s", j.Stage)
	}
}

func TestPoolResolvesUnreportedPath(t *testing.T) {
	h := newHarness(t, 1, 1, nil)
	h.mock.SkipPath = true

	id := h.submit(t, "hd", domain.Metadata{ID: "mock123", Title: "Mock Video"})
	j := waitTerminal(t, h.reg, id)
	if j.Stage != domain.StageReady {
		t.Fatalf("Expected ready, got %s (%s)", j.Stage, j.Error)
	}
	if filepath.Dir(j.FilePath) != h.files.Dir() {
		t.Errorf("Expected file inside %s, got %s", h.files.Dir(), j.FilePath)
	}
}

func TestPoolMissingFile(t *testing.T) {
	h := newHarness(t, 1, 1, nil)
	h.mock.NoFile = true

	id := h.submit(t, "hd", domain.Metadata{ID: "mock123", Title: "Mock Video"})
	j := waitTerminal(t, h.reg, id)
	if j.Stage != domain.StageError {
		t.Fatalf("Expected error stage, got %s", j.Stage)
	}
	if j.Error != ErrFileMissing.Error() {
		t.Errorf("Expected %q, got %q", ErrFileMissing.Error(), j.Error)
	}
}

func TestPoolDoesNotServeOtherVariant(t *testing.T) {
	h := newHarness(t, 1, 1, nil)
	hd := filepath.Join(h.files.Dir(), filecache.FileName("Mock Video", "mock123", "yt-hd", "mp4"))
	if err := os.WriteFile(hd, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	h.mock.NoFile = true

	id := h.submit(t, "audio", domain.Metadata{ID: "mock123", Title: "Mock Video"})
	j := waitTerminal(t, h.reg, id)
	if j.Stage != domain.StageError {
		t.Fatalf("Expected error stage, got %s (file %s)", j.Stage, j.FilePath)
	}
	if j.Error != ErrFileMissing.Error() {
		t.Errorf("Expected %q, got %q", ErrFileMissing.Error(), j.Error)
	}
}

func TestPoolResolvesUntaggedFile(t *testing.T) {
	h := newHarness(t, 1, 1, nil)
	untagged := filepath.Join(h.files.Dir(), "Mock Video [mock123].mp3")
	if err := os.WriteFile(untagged, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}
	h.mock.NoFile = true

	id := h.submit(t, "audio", domain.Metadata{ID: "mock123", Title: "Mock Video"})
	j := waitTerminal(t, h.reg, id)
	if j.Stage != domain.StageReady {
		t.Fatalf("Expected ready, got %s (%s)", j.Stage, j.Error)
	}
	if j.FilePath != untagged {
		t.Errorf("Expected %s, got %s", untagged, j.FilePath)
	}
}

func TestPoolDottedTitle(t *testing.T) {
	h := newHarness(t, 1, 1, nil)
	h.mock.Meta = domain.Metadata{ID: "abc99", Title: "Lecture.part.2"}

	id := h.submit(t, "hd", domain.Metadata{ID: "abc99", Title: "Lecture.part.2"})
	j := waitTerminal(t, h.reg, id)
	if j.Stage != domain.StageReady {
		t.Fatalf("Expected ready, got %s (%s)", j.Stage, j.Error)
	}
	if want := "Lecture.part.2 [abc99] [yt-hd].mp4"; j.FileName != want {
		t.Errorf("Expected file name %q, got %q", want, j.FileName)
	}
}

func TestPoolAdmissionBound(t *testing.T) {
	h := newHarness(t, 6, 2, nil)
	block := make(chan struct{})
	h.mock.Block = block

	var ids []string
	for i := 0; i < 6; i++ {
		ids = append(ids, h.submit(t, "hd", domain.Metadata{ID: "mock123", Title: "Mock Video"}))
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.queue.Stats().Running < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	if s := h.queue.Stats(); s.Running != 2 {
		t.Errorf("Expected 2 running, got %d", s.Running)
	}

	close(block)
	for _, id := range ids {
		waitTerminal(t, h.reg, id)
	}
	if peak := h.mock.PeakConcurrency(); peak > 2 {
		t.Errorf("Expected at most 2 concurrent fetches, got %d", peak)
	}
}

func TestPoolTagsAudioVariants(t *testing.T) {
	tagger := &fakeTagger{err: errors.New("no frames")}
	h := newHarness(t, 1, 1, tagger)

	id := h.submit(t, "audio", domain.Metadata{ID: "mock123", Title: "Mock Video"})
	j := waitTerminal(t, h.reg, id)
	if j.Stage != domain.StageReady {
		t.Fatalf("Expected tagging failure not to fail the job, got %s (%s)", j.Stage, j.Error)
	}

	tagger.mu.Lock()
	defer tagger.mu.Unlock()
	if len(tagger.paths) != 1 || tagger.paths[0] != j.FilePath {
		t.Errorf("Expected tagger called once with %s, got %v", j.FilePath, tagger.paths)
	}
}

func TestPoolSkipsTaggingForVideo(t *testing.T) {
	tagger := &fakeTagger{}
	h := newHarness(t, 1, 1, tagger)

	id := h.submit(t, "hd", domain.Metadata{ID: "mock123", Title: "Mock Video"})
	waitTerminal(t, h.reg, id)

	tagger.mu.Lock()
	defer tagger.mu.Unlock()
	if len(tagger.paths) != 0 {
		t.Errorf("Expected no tagging for video, got %v", tagger.paths)
	}
}
