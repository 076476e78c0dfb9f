// Package progress translates extractor events into job state.
package progress

import (
	"github.com/cesargomez89/downtil/internal/domain"
	"github.com/cesargomez89/downtil/internal/extractor"
	"github.com/cesargomez89/downtil/internal/jobs"
	"github.com/cesargomez89/downtil/internal/logger"
)

type Reporter struct {
	jobs *jobs.Registry
	log  *logger.Logger
}

func NewReporter(registry *jobs.Registry, log *logger.Logger) *Reporter {
	return &Reporter{
		jobs: registry,
		log:  log.WithComponent("progress"),
	}
}

// For returns the callback handed to the extractor for one job.
func (r *Reporter) For(jobID string) extractor.ProgressFunc {
	return func(e extractor.Event) {
		r.Report(jobID, e)
	}
}

// Report applies one event. Events for unknown or finished jobs are dropped.
func (r *Reporter) Report(jobID string, e extractor.Event) {
	applied := r.jobs.Modify(jobID, func(j *domain.Job) {
		switch e.Kind {
		case extractor.EventDownloading:
			applyDownload(j, e)
		case extractor.EventFinished:
			j.Stage = domain.StagePostprocessing
			j.Progress = 100
		case extractor.EventPostprocess:
			name := e.Name
			if name == "" {
				name = "postprocess"
			}
			if e.Done {
				j.Stage = domain.PostprocessDone(name)
			} else {
				j.Stage = domain.PostprocessStarted(name)
			}
		}
	})
	if !applied {
		r.log.Debug("Dropped progress event", "job_id", jobID, "event", e.Kind.String())
	}
}

// applyDownload keeps progress non-decreasing while the job stays in one
// download episode. A new episode (e.g. the audio stream after the video)
// starts from its own reported value.
func applyDownload(j *domain.Job, e extractor.Event) {
	sameEpisode := j.Stage == domain.StageDownloading
	j.Stage = domain.StageDownloading

	if e.Total > 0 {
		p := clamp(float64(e.Downloaded) / float64(e.Total) * 100)
		if !sameEpisode || p > j.Progress {
			j.Progress = p
		}
	}
	if e.Speed != nil {
		v := *e.Speed
		j.Speed = &v
	}
	if e.ETA != nil {
		v := *e.ETA
		j.ETA = &v
	}
}

func clamp(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
