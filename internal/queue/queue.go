// Package queue holds pending download tasks and bounds how many run at once.
package queue

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/cesargomez89/downtil/internal/domain"
	"github.com/cesargomez89/downtil/internal/jobs"
	"github.com/cesargomez89/downtil/internal/platform"
)

var ErrQueueFull = errors.New("download queue is full")

// Task is one unit of work handed from the HTTP layer to the worker pool.
type Task struct {
	Meta    domain.Metadata
	Variant platform.Variant
	JobID   string
	URL     string
}

// SourceID is the media id the cached file name is keyed on.
func (t Task) SourceID() string {
	return t.Meta.ID
}

// Queue is a FIFO dispatch channel plus a pending list for position lookups
// and a weighted semaphore for admission.
type Queue struct {
	jobs     *jobs.Registry
	tasks    chan Task
	slots    *semaphore.Weighted
	pending  []string
	mu       sync.Mutex
	capacity int
	maxSlots int
	running  int
}

// New creates a queue holding up to capacity waiting tasks with at most
// maxActive admitted at a time.
func New(registry *jobs.Registry, capacity, maxActive int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	if maxActive < 1 {
		maxActive = 1
	}
	return &Queue{
		jobs:     registry,
		tasks:    make(chan Task, capacity),
		slots:    semaphore.NewWeighted(int64(maxActive)),
		capacity: capacity,
		maxSlots: maxActive,
	}
}

// Enqueue records the task as pending and hands it to the dispatch channel.
// The job's stage is set to queued. A full channel returns ErrQueueFull and
// leaves nothing pending.
func (q *Queue) Enqueue(task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	select {
	case q.tasks <- task:
	default:
		return ErrQueueFull
	}
	q.pending = append(q.pending, task.JobID)

	stage := domain.StageQueued
	q.jobs.Update(task.JobID, jobs.Patch{Stage: &stage})
	return nil
}

// Position is the 1-based place of jobID among waiting tasks, or 0.
func (q *Queue) Position(jobID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, id := range q.pending {
		if id == jobID {
			return i + 1
		}
	}
	return 0
}

// Next blocks until a task is available or ctx is done.
func (q *Queue) Next(ctx context.Context) (Task, error) {
	select {
	case t := <-q.tasks:
		return t, nil
	case <-ctx.Done():
		return Task{}, ctx.Err()
	}
}

// Admit waits for a free slot, then removes the task from the pending list
// and marks the job as starting. Callers must Release after a nil return.
func (q *Queue) Admit(ctx context.Context, task Task) error {
	if err := q.slots.Acquire(ctx, 1); err != nil {
		return err
	}

	q.mu.Lock()
	q.removePendingLocked(task.JobID)
	q.running++
	q.mu.Unlock()

	stage := domain.StageStarting
	q.jobs.Update(task.JobID, jobs.Patch{Stage: &stage})
	return nil
}

// Release returns a slot taken by Admit.
func (q *Queue) Release() {
	q.mu.Lock()
	if q.running > 0 {
		q.running--
	}
	q.mu.Unlock()
	q.slots.Release(1)
}

// Drop removes a task that will never be admitted from the pending list.
func (q *Queue) Drop(jobID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removePendingLocked(jobID)
}

func (q *Queue) removePendingLocked(jobID string) {
	for i, id := range q.pending {
		if id == jobID {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

// Stats is a snapshot of queue occupancy.
type Stats struct {
	Pending  int `json:"pending"`
	Running  int `json:"running"`
	Slots    int `json:"slots"`
	Capacity int `json:"capacity"`
}

func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Pending:  len(q.pending),
		Running:  q.running,
		Slots:    q.maxSlots,
		Capacity: q.capacity,
	}
}
