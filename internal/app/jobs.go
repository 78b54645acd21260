package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/phishscan/internal/logging"
	"github.com/raysh454/phishscan/internal/model"
)

var ErrJobNotFound = errors.New("job not found")

type JobEventType string

const (
	JobEventStatus   JobEventType = "status"
	JobEventProgress JobEventType = "progress"
	JobEventResult   JobEventType = "result"
)

type JobEvent struct {
	JobID string       `json:"job_id"`
	Type  JobEventType `json:"type"`

	// For status changes
	Status JobStatus `json:"status,omitempty"`
	Error  string    `json:"error,omitempty"`

	// For progress
	Evaluator string `json:"evaluator,omitempty"`
	Signals   int    `json:"signals,omitempty"`
	Processed int    `json:"processed,omitempty"`
	Total     int    `json:"total,omitempty"`

	// For the final result
	Result *model.ScanResult `json:"result,omitempty"`
}

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "done"
	JobFailed   JobStatus = "failed"
	JobCanceled JobStatus = "canceled"
)

// Finished reports whether the status is terminal.
func (s JobStatus) Finished() bool {
	return s == JobDone || s == JobFailed || s == JobCanceled
}

type Job struct {
	ID        string            `json:"id"`
	Status    JobStatus         `json:"status"`
	Error     string            `json:"error,omitempty"`
	StartedAt time.Time         `json:"started_at"`
	EndedAt   time.Time         `json:"ended_at"`
	Result    *model.ScanResult `json:"result,omitempty"`
	Events    <-chan JobEvent   `json:"-"`

	events chan JobEvent
}

// snapshot copies j so callers can read it without holding jobsMu.
func (j *Job) snapshot() *Job {
	cp := *j
	return &cp
}

func (o *Orchestrator) emitJobEvent(jobID string, ev JobEvent) {
	o.jobsMu.Lock()
	job, ok := o.jobs[jobID]
	o.jobsMu.Unlock()
	if !ok || job == nil || job.events == nil {
		return
	}

	// Non-blocking send; drop if buffer is full.
	select {
	case job.events <- ev:
	default:
	}
}

func (o *Orchestrator) setStatus(jobID string, status JobStatus, errMsg string) {
	o.jobsMu.Lock()
	if j, ok := o.jobs[jobID]; ok {
		j.Status = status
		j.Error = errMsg
	}
	o.jobsMu.Unlock()
	o.emitJobEvent(jobID, JobEvent{
		JobID:  jobID,
		Type:   JobEventStatus,
		Status: status,
		Error:  errMsg,
	})
}

// StartScanJob scans p in the background. The returned job's Events channel
// carries status, per-evaluator progress and the final result, and is closed
// when the job ends.
func (o *Orchestrator) StartScanJob(ctx context.Context, p *model.Payload) (*Job, error) {
	if p == nil {
		return nil, fmt.Errorf("StartScanJob: nil payload")
	}
	select {
	case <-o.stop:
		return nil, fmt.Errorf("StartScanJob: orchestrator closed")
	default:
	}

	buf := o.cfg.Jobs.EventBuffer
	if buf <= 0 {
		buf = 16
	}
	events := make(chan JobEvent, buf)
	job := &Job{
		ID:        uuid.New().String(),
		Status:    JobPending,
		StartedAt: time.Now().UTC(),
		Events:    events,
		events:    events,
	}
	jobID := job.ID

	jobCtx, cancel := context.WithCancel(ctx)

	o.jobsMu.Lock()
	o.jobs[jobID] = job
	o.jobCancels[jobID] = cancel
	started := job.snapshot()
	o.jobsMu.Unlock()

	o.emitJobEvent(jobID, JobEvent{
		JobID:  jobID,
		Type:   JobEventStatus,
		Status: JobPending,
	})

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("scan job panicked",
					logging.Field{Key: "job_id", Value: jobID},
					logging.Field{Key: "panic", Value: fmt.Sprint(r)})
				o.setStatus(jobID, JobFailed, fmt.Sprintf("panic: %v", r))
			}

			o.jobsMu.Lock()
			if j, ok := o.jobs[jobID]; ok {
				j.EndedAt = time.Now().UTC()
			}
			if c, ok := o.jobCancels[jobID]; ok {
				c()
				delete(o.jobCancels, jobID)
			}
			o.jobsMu.Unlock()

			// Close events channel so websocket loop can terminate cleanly
			close(events)
		}()

		o.setStatus(jobID, JobRunning, "")

		result := o.scan(jobCtx, p, func(name string, signals, done, total int) {
			o.emitJobEvent(jobID, JobEvent{
				JobID:     jobID,
				Type:      JobEventProgress,
				Evaluator: name,
				Signals:   signals,
				Processed: done,
				Total:     total,
			})
		})

		select {
		case <-jobCtx.Done():
			o.setStatus(jobID, JobCanceled, jobCtx.Err().Error())
		default:
			o.jobsMu.Lock()
			if j, ok := o.jobs[jobID]; ok {
				j.Status = JobDone
				j.Result = result
			}
			o.jobsMu.Unlock()
			o.emitJobEvent(jobID, JobEvent{
				JobID:  jobID,
				Type:   JobEventResult,
				Status: JobDone,
				Result: result,
			})
		}
	}()

	return started, nil
}

// CancelJob cancels a running job. Canceling a finished job is a no-op.
func (o *Orchestrator) CancelJob(jobID string) error {
	o.jobsMu.Lock()
	_, known := o.jobs[jobID]
	cancel := o.jobCancels[jobID]
	o.jobsMu.Unlock()

	if !known {
		return ErrJobNotFound
	}
	if cancel != nil {
		cancel()
	}
	return nil
}

// GetJob returns a snapshot of the job, or nil when it is unknown or expired.
func (o *Orchestrator) GetJob(jobID string) *Job {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	j, ok := o.jobs[jobID]
	if !ok {
		return nil
	}
	return j.snapshot()
}

// ListJobs returns snapshots of all known jobs, oldest first.
func (o *Orchestrator) ListJobs() []*Job {
	o.jobsMu.Lock()
	out := make([]*Job, 0, len(o.jobs))
	for _, j := range o.jobs {
		out = append(out, j.snapshot())
	}
	o.jobsMu.Unlock()

	sort.Slice(out, func(i, k int) bool {
		if out[i].StartedAt.Equal(out[k].StartedAt) {
			return out[i].ID < out[k].ID
		}
		return out[i].StartedAt.Before(out[k].StartedAt)
	})
	return out
}

// pruneJobs drops finished jobs that ended before now-retention.
func (o *Orchestrator) pruneJobs(now time.Time) int {
	retention := o.cfg.Jobs.Retention
	if retention <= 0 {
		return 0
	}
	cutoff := now.Add(-retention)

	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	removed := 0
	for id, j := range o.jobs {
		if j.Status.Finished() && !j.EndedAt.IsZero() && j.EndedAt.Before(cutoff) {
			delete(o.jobs, id)
			removed++
		}
	}
	return removed
}

func (o *Orchestrator) startJanitor() {
	retention := o.cfg.Jobs.Retention
	if retention <= 0 {
		return
	}
	interval := min(max(retention/2, time.Second), time.Minute)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-o.stop:
				return
			case now := <-ticker.C:
				if n := o.pruneJobs(now); n > 0 {
					o.logger.Debug("expired finished jobs", logging.Field{Key: "count", Value: n})
				}
			}
		}
	}()
}
