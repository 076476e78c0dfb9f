package app

import (
	"path/filepath"

	"github.com/cesargomez89/downtil/internal/domain"
	"github.com/cesargomez89/downtil/internal/filecache"
	"github.com/cesargomez89/downtil/internal/jobs"
	"github.com/cesargomez89/downtil/internal/logger"
	"github.com/cesargomez89/downtil/internal/platform"
	"github.com/cesargomez89/downtil/internal/queue"
	"github.com/cesargomez89/downtil/internal/storage"
)

type JobService struct {
	Jobs   *jobs.Registry
	Queue  *queue.Queue
	Files  filecache.Index
	Logger *logger.Logger
}

func NewJobService(registry *jobs.Registry, q *queue.Queue, files filecache.Index, log *logger.Logger) *JobService {
	return &JobService{
		Jobs:   registry,
		Queue:  q,
		Files:  files,
		Logger: log.WithComponent("jobs"),
	}
}

// StartResult tells the caller which job to follow and whether the caller
// created it.
type StartResult struct {
	JobID string
	Owner bool
	// Reused is set when a finished file was already on disk.
	Reused bool
}

// DedupKey identifies one variant of one source.
func DedupKey(kind domain.Kind, sourceID string) string {
	return string(kind) + ":" + sourceID
}

// Start reuses a finished file, joins an in-flight job, or enqueues new work,
// in that order.
func (s *JobService) Start(v platform.Variant, meta *domain.Metadata, sourceURL string) StartResult {
	title := platform.JobTitle(v.Platform, meta)
	display := storage.Sanitize(meta.Title, v.Ext)
	key := DedupKey(v.Kind, meta.ID)

	if path, ok := s.Files.FindExisting(meta.ID, v.Tag()); ok {
		id := s.Jobs.Create(v.Kind, key, title, display)
		s.Jobs.MarkReady(id, path, filepath.Base(path), display)
		s.Logger.Info("Reusing cached file", "job_id", id, "kind", v.Kind, "source_id", meta.ID)
		return StartResult{JobID: id, Owner: true, Reused: true}
	}

	id, created := s.Jobs.ClaimInFlight(v.Kind, key, title, display)
	if !created {
		s.Logger.Info("Job already in flight", "job_id", id, "kind", v.Kind, "source_id", meta.ID)
		return StartResult{JobID: id}
	}

	task := queue.Task{
		JobID:   id,
		URL:     sourceURL,
		Variant: v,
		Meta:    *meta,
	}
	task.Variant.Options.OutputTemplate = s.Files.OutputTemplate(v.Tag())

	if err := s.Queue.Enqueue(task); err != nil {
		s.Logger.Warn("Failed to enqueue job", "job_id", id, "kind", v.Kind, "error", err)
		s.Jobs.MarkFailed(id, err.Error())
		return StartResult{JobID: id, Owner: true}
	}

	s.Logger.Info("Job enqueued", "job_id", id, "kind", v.Kind, "source_id", meta.ID)
	return StartResult{JobID: id, Owner: true}
}

// Fail records a job that could not be started, e.g. because the source
// could not be probed, so the caller still has a job page to follow.
func (s *JobService) Fail(v platform.Variant, title string, cause error) StartResult {
	if title == "" {
		title = platform.Name(v.Platform)
	}
	id := s.Jobs.Create(v.Kind, "", title, "")
	s.Jobs.MarkFailed(id, cause.Error())
	s.Logger.Warn("Job failed before enqueue", "job_id", id, "kind", v.Kind, "error", cause)
	return StartResult{JobID: id, Owner: true}
}

func (s *JobService) GetJob(id string) (domain.Job, bool) {
	return s.Jobs.Get(id)
}

// Status is a job snapshot plus its place in the queue.
type Status struct {
	Job           domain.Job
	QueuePosition int
}

func (s *JobService) Status(id string) (*Status, bool) {
	j, ok := s.Jobs.Get(id)
	if !ok {
		return nil, false
	}
	return &Status{Job: j, QueuePosition: s.Queue.Position(id)}, true
}

// Stats aggregates registry and queue counters for health checks.
type Stats struct {
	Jobs  jobs.Stats  `json:"jobs"`
	Queue queue.Stats `json:"queue"`
}

func (s *JobService) GetStats() Stats {
	return Stats{Jobs: s.Jobs.Stats(), Queue: s.Queue.Stats()}
}
