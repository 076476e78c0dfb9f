// Package jobs holds the in-memory job registry shared by workers and HTTP handlers.
package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cesargomez89/downtil/internal/domain"
)

// Patch lists the fields to merge into a job. Nil fields are left alone.
type Patch struct {
	Stage    *domain.Stage
	Progress *float64
	Speed    *float64
	ETA      *float64
	Error    *string
}

// Registry is the single owner of job records.
type Registry struct {
	jobs  map[string]*domain.Job
	byKey map[string]string
	now   func() time.Time
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		jobs:  make(map[string]*domain.Job),
		byKey: make(map[string]string),
		now:   time.Now,
	}
}

// Create inserts a queued job and returns its id. A non-empty dedupKey
// replaces any previous mapping for that key.
func (r *Registry) Create(kind domain.Kind, dedupKey, title, displayName string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLocked(kind, dedupKey, title, displayName)
}

func (r *Registry) createLocked(kind domain.Kind, dedupKey, title, displayName string) string {
	id := uuid.New().String()
	now := r.now()
	r.jobs[id] = &domain.Job{
		ID:          id,
		Kind:        kind,
		DedupKey:    dedupKey,
		Title:       title,
		DisplayName: displayName,
		Stage:       domain.StageQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if dedupKey != "" {
		r.byKey[dedupKey] = id
	}
	return id
}

// ClaimInFlight returns the in-flight job registered for dedupKey, or creates
// a new one. Both happen in one critical section so concurrent callers with
// the same key always end up with the same job.
func (r *Registry) ClaimInFlight(kind domain.Kind, dedupKey, title, displayName string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byKey[dedupKey]; ok {
		if j, ok := r.jobs[id]; ok && !j.Stage.IsTerminal() && j.Error == "" {
			return id, false
		}
	}
	return r.createLocked(kind, dedupKey, title, displayName), true
}

// Get returns a copy of the job.
func (r *Registry) Get(id string) (domain.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return *j, true
}

// LookupByDedupKey returns the job id last registered for key.
func (r *Registry) LookupByDedupKey(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byKey[key]
	return id, ok
}

// Update merges p into the job. It is a no-op for unknown or terminal jobs.
func (r *Registry) Update(id string, p Patch) bool {
	return r.Modify(id, func(j *domain.Job) {
		if p.Stage != nil {
			j.Stage = *p.Stage
		}
		if p.Progress != nil {
			j.Progress = *p.Progress
		}
		if p.Speed != nil {
			j.Speed = ptr(*p.Speed)
		}
		if p.ETA != nil {
			j.ETA = ptr(*p.ETA)
		}
		if p.Error != nil {
			j.Error = *p.Error
		}
	})
}

// Modify runs fn against the live record under the registry lock.
// fn must not block. Terminal jobs are never handed to fn.
func (r *Registry) Modify(id string, fn func(j *domain.Job)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok || j.Stage.IsTerminal() {
		return false
	}
	fn(j)
	j.UpdatedAt = r.now()
	return true
}

// MarkReady moves the job to ready with its output file populated.
func (r *Registry) MarkReady(id, filePath, fileName, displayName string) bool {
	return r.Modify(id, func(j *domain.Job) {
		j.Stage = domain.StageReady
		j.Progress = 100
		j.FilePath = filePath
		j.FileName = fileName
		if displayName != "" {
			j.DisplayName = displayName
		}
		j.Error = ""
	})
}

// MarkFailed moves the job to error with a human-readable message.
func (r *Registry) MarkFailed(id, msg string) bool {
	if msg == "" {
		msg = "unknown error"
	}
	return r.Modify(id, func(j *domain.Job) {
		j.Stage = domain.StageError
		j.Error = msg
		j.FilePath = ""
		j.FileName = ""
	})
}

// Stats counts jobs by coarse state.
type Stats struct {
	Total   int `json:"total"`
	Queued  int `json:"queued"`
	Running int `json:"running"`
	Ready   int `json:"ready"`
	Failed  int `json:"failed"`
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s Stats
	for _, j := range r.jobs {
		s.Total++
		switch {
		case j.Stage == domain.StageQueued:
			s.Queued++
		case j.Stage == domain.StageReady:
			s.Ready++
		case j.Stage == domain.StageError:
			s.Failed++
		case j.Stage.IsRunning():
			s.Running++
		}
	}
	return s
}

func ptr[T any](v T) *T {
	return &v
}
