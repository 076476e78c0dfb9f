package app

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cesargomez89/downtil/internal/domain"
	"github.com/cesargomez89/downtil/internal/filecache"
	"github.com/cesargomez89/downtil/internal/jobs"
	"github.com/cesargomez89/downtil/internal/logger"
	"github.com/cesargomez89/downtil/internal/platform"
	"github.com/cesargomez89/downtil/internal/queue"
)

func newTestJobService(t *testing.T, capacity int) (*JobService, *filecache.Dir) {
	t.Helper()
	files, err := filecache.New(t.TempDir())
	if err != nil {
		t.Fatalf("filecache.New failed: %v", err)
	}
	reg := jobs.NewRegistry()
	q := queue.New(reg, capacity, 1)
	return NewJobService(reg, q, files, logger.Default()), files
}

func hdVariant(t *testing.T) platform.Variant {
	t.Helper()
	v, ok := platform.VariantFor(platform.YouTube, "hd")
	if !ok {
		t.Fatal("hd variant missing")
	}
	return v
}

func TestStartEnqueuesNewJob(t *testing.T) {
	svc, _ := newTestJobService(t, 10)
	v := hdVariant(t)
	meta := &domain.Metadata{ID: "abc", Title: "Clip"}

	res := svc.Start(v, meta, "https://www.youtube.com/watch?v=abc")
	if !res.Owner || res.Reused {
		t.Errorf("Expected owner without reuse, got %+v", res)
	}

	st, ok := svc.Status(res.JobID)
	if !ok {
		t.Fatal("Expected job status")
	}
	if st.Job.Stage != domain.StageQueued {
		t.Errorf("Expected queued, got %s", st.Job.Stage)
	}
	if st.QueuePosition != 1 {
		t.Errorf("Expected queue position 1, got %d", st.QueuePosition)
	}
	if st.Job.Title != "YouTube - Clip" {
		t.Errorf("Expected title 'YouTube - Clip', got %q", st.Job.Title)
	}
	if st.Job.DisplayName != "Clip.mp4" {
		t.Errorf("Expected display name Clip.mp4, got %q", st.Job.DisplayName)
	}
}

func TestStartJoinsInFlightJob(t *testing.T) {
	svc, _ := newTestJobService(t, 10)
	v := hdVariant(t)
	meta := &domain.Metadata{ID: "abc", Title: "Clip"}

	first := svc.Start(v, meta, "u")
	second := svc.Start(v, meta, "u")

	if second.JobID != first.JobID {
		t.Errorf("Expected same job id, got %s and %s", first.JobID, second.JobID)
	}
	if second.Owner {
		t.Error("Expected second caller not to own the job")
	}
	if s := svc.GetStats(); s.Queue.Pending != 1 {
		t.Errorf("Expected 1 pending task, got %d", s.Queue.Pending)
	}
}

func TestStartConcurrentCallersShareOneJob(t *testing.T) {
	svc, _ := newTestJobService(t, 100)
	v := hdVariant(t)
	meta := &domain.Metadata{ID: "abc", Title: "Clip"}

	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = svc.Start(v, meta, "u").JobID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("Expected all callers on %s, got %s", ids[0], id)
		}
	}
	if s := svc.GetStats(); s.Jobs.Total != 1 {
		t.Errorf("Expected 1 job, got %d", s.Jobs.Total)
	}
}

func TestStartReusesCachedFile(t *testing.T) {
	svc, files := newTestJobService(t, 10)
	v := hdVariant(t)
	meta := &domain.Metadata{ID: "abc", Title: "Clip"}

	path := filepath.Join(files.Dir(), filecache.FileName("Clip", "abc", v.Tag(), v.Ext))
	if err := os.WriteFile(path, []byte("media"), 0644); err != nil {
		t.Fatal(err)
	}

	res := svc.Start(v, meta, "u")
	if !res.Reused || !res.Owner {
		t.Errorf("Expected reused owner result, got %+v", res)
	}

	j, _ := svc.GetJob(res.JobID)
	if j.Stage != domain.StageReady {
		t.Errorf("Expected ready, got %s", j.Stage)
	}
	if j.Progress != 100 {
		t.Errorf("Expected progress 100, got %v", j.Progress)
	}
	if j.FilePath != path {
		t.Errorf("Expected file %s, got %s", path, j.FilePath)
	}
	if s := svc.GetStats(); s.Queue.Pending != 0 {
		t.Errorf("Expected nothing enqueued, got %d", s.Queue.Pending)
	}
}

func TestStartOtherVariantIsNotReused(t *testing.T) {
	svc, files := newTestJobService(t, 10)
	hd := hdVariant(t)
	audio, _ := platform.VariantFor(platform.YouTube, "audio")
	meta := &domain.Metadata{ID: "abc", Title: "Clip"}

	path := filepath.Join(files.Dir(), filecache.FileName("Clip", "abc", hd.Tag(), hd.Ext))
	if err := os.WriteFile(path, []byte("media"), 0644); err != nil {
		t.Fatal(err)
	}

	res := svc.Start(audio, meta, "u")
	if res.Reused {
		t.Error("Expected audio variant not to reuse the hd file")
	}
}

func TestStartQueueFullMarksJobFailed(t *testing.T) {
	svc, _ := newTestJobService(t, 1)
	v := hdVariant(t)

	_ = svc.Start(v, &domain.Metadata{ID: "one", Title: "One"}, "u1")
	res := svc.Start(v, &domain.Metadata{ID: "two", Title: "Two"}, "u2")

	if !res.Owner {
		t.Error("Expected caller to own the failed job")
	}
	j, _ := svc.GetJob(res.JobID)
	if j.Stage != domain.StageError {
		t.Errorf("Expected error stage, got %s", j.Stage)
	}
	if j.Error != queue.ErrQueueFull.Error() {
		t.Errorf("Expected %q, got %q", queue.ErrQueueFull.Error(), j.Error)
	}

	// a failed job is not joined by later callers
	retry := svc.Start(v, &domain.Metadata{ID: "two", Title: "Two"}, "u2")
	if retry.JobID == res.JobID {
		t.Error("Expected a new job after a failure")
	}
}

func TestFailRecordsErroredJob(t *testing.T) {
	svc, _ := newTestJobService(t, 10)
	res := svc.Fail(hdVariant(t), "", errors.New("probe failed"))

	j, ok := svc.GetJob(res.JobID)
	if !ok {
		t.Fatal("Expected job to exist")
	}
	if j.Stage != domain.StageError || j.Error != "probe failed" {
		t.Errorf("Expected error stage with message, got %s %q", j.Stage, j.Error)
	}
	if j.Title != "YouTube" {
		t.Errorf("Expected title YouTube, got %q", j.Title)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	svc, _ := newTestJobService(t, 10)
	if _, ok := svc.Status("missing"); ok {
		t.Error("Expected unknown job to report not found")
	}
}

func TestDedupKey(t *testing.T) {
	if got := DedupKey("yt-hd", "abc"); got != "yt-hd:abc" {
		t.Errorf("Expected yt-hd:abc, got %s", got)
	}
}
