package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/cesargomez89/downtil/internal/domain"
	"github.com/cesargomez89/downtil/internal/extractor"
	"github.com/cesargomez89/downtil/internal/filecache"
	"github.com/cesargomez89/downtil/internal/jobs"
	"github.com/cesargomez89/downtil/internal/logger"
	"github.com/cesargomez89/downtil/internal/progress"
	"github.com/cesargomez89/downtil/internal/queue"
	"github.com/cesargomez89/downtil/internal/storage"
)

var ErrFileMissing = errors.New("download finished but file missing")

const tagStage = "Tagging"

// Tagger writes metadata into a finished audio file.
type Tagger interface {
	Tag(ctx context.Context, filePath string, meta *domain.Metadata) error
}

// Pool runs a fixed number of executors pulling from the queue.
type Pool struct {
	Queue     *queue.Queue
	Extractor extractor.Extractor
	Reporter  *progress.Reporter
	Files     filecache.Index
	Jobs      *jobs.Registry
	Tagger    Tagger
	Size      int
	Logger    *logger.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewPool(q *queue.Queue, ex extractor.Extractor, rep *progress.Reporter, files filecache.Index, registry *jobs.Registry, tagger Tagger, size int, log *logger.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		Queue:     q,
		Extractor: ex,
		Reporter:  rep,
		Files:     files,
		Jobs:      registry,
		Tagger:    tagger,
		Size:      size,
		Logger:    log.WithComponent("worker"),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.Logger.Info("Starting worker pool", "size", p.Size)

	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.Size; i++ {
		p.wg.Add(1)
		go p.loop(ctx)
	}
}

func (p *Pool) Stop() {
	p.Logger.Info("Stopping worker pool")
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Pool) loop(ctx context.Context) {
	defer p.wg.Done()

	for {
		task, err := p.Queue.Next(ctx)
		if err != nil {
			return
		}
		if err := p.Queue.Admit(ctx, task); err != nil {
			p.Queue.Drop(task.JobID)
			p.Jobs.MarkFailed(task.JobID, "server shutting down")
			return
		}
		p.runJob(ctx, task)
	}
}

func (p *Pool) runJob(ctx context.Context, task queue.Task) {
	defer p.Queue.Release()

	log := p.Logger.WithJob(task.JobID, string(task.Variant.Kind))
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic in job", "panic", r)
			p.Jobs.MarkFailed(task.JobID, fmt.Sprintf("panic: %v", r))
		}
	}()

	log.Info("Running job", "url", task.URL)

	path, err := p.execute(ctx, task, log)
	if err != nil {
		log.Error("Job failed", "error", err)
		p.Jobs.MarkFailed(task.JobID, err.Error())
		return
	}

	p.Jobs.MarkReady(task.JobID, path, filepath.Base(path), "")
	log.Info("Job completed", "file", filepath.Base(path))
}

func (p *Pool) execute(ctx context.Context, task queue.Task, log *logger.Logger) (string, error) {
	report := p.Reporter.For(task.JobID)

	reported, err := p.Extractor.Fetch(ctx, task.URL, task.Variant.Options, report)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}

	path, ok := p.resolve(reported, task)
	if !ok {
		return "", ErrFileMissing
	}

	if task.Variant.IsAudio() && task.Variant.TagInProcess && p.Tagger != nil {
		report(extractor.Event{Kind: extractor.EventPostprocess, Name: tagStage})
		if err := p.Tagger.Tag(ctx, path, &task.Meta); err != nil {
			log.Warn("Failed to tag file", "file", filepath.Base(path), "error", err)
		}
		report(extractor.Event{Kind: extractor.EventPostprocess, Name: tagStage, Done: true})
	}
	return path, nil
}

// resolve finds the produced file: the path the extractor reported, then the
// cache entry for this variant, then an untagged file named after the source.
func (p *Pool) resolve(reported string, task queue.Task) (string, bool) {
	if storage.Exists(reported) && !filecache.IsTemp(filepath.Base(reported)) {
		return reported, true
	}
	if path, ok := p.Files.FindExisting(task.SourceID(), task.Variant.Tag()); ok {
		return path, true
	}
	return p.Files.FindBySource(task.SourceID())
}
