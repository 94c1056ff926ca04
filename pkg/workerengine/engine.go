// Package workerengine is the worker's single-slot job serializer: it
// accepts a transcription request, runs the pipeline on a background
// goroutine guarded by one mutex representing the GPU, and exposes job
// status to the HTTP layer via an in-memory, bounded-history store.
package workerengine

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meetscribe/meetscribe/pkg/workerpipeline"
)

// Status is the lifecycle state of a Job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job is the worker's in-memory record of one transcription request.
type Job struct {
	JobID          string
	Status         Status
	ProgressStep   string
	ProgressDetail string
	StartedAt      *time.Time
	CompletedAt    *time.Time
	Result         *workerpipeline.Result
	Error          string
}

// Request carries what's needed to run one pipeline invocation.
type Request struct {
	// JobID, if non-empty, is used as-is instead of minting a fresh one.
	// The worker HTTP API populates this from metadata.job_id so the
	// frontend's job identifier and the worker's agree.
	JobID   string
	WorkDir string // removed entirely once the pipeline finishes, win or lose

	MicPath           string
	TabPath           string
	Meeting           workerpipeline.MeetingInfo
	LocalSpeakerName  string
	RemoteSpeakerName string
	MicStartOffset    float64
	TabStartOffset    float64
}

// Engine owns the single GPU slot: Submit always accepts a job (it
// queues rather than rejects), but Pipeline.Process calls are serialized
// through gpuMu, so only one runs against the device at a time.
type Engine struct {
	pipeline *workerpipeline.Pipeline

	gpuMu        sync.Mutex
	currentJobID string // guarded by mu, set only while gpuMu is held

	mu         sync.Mutex
	jobs       map[string]*Job
	order      []string // completion order, oldest first, for history eviction
	maxHistory int
}

// New builds an engine around pipeline, retaining at most maxHistory
// terminal jobs (default 10 if maxHistory <= 0).
func New(pipeline *workerpipeline.Pipeline, maxHistory int) *Engine {
	if maxHistory <= 0 {
		maxHistory = 10
	}
	return &Engine{
		pipeline:   pipeline,
		jobs:       make(map[string]*Job),
		maxHistory: maxHistory,
	}
}

// Submit registers a new job and starts it on a background goroutine,
// returning its ID immediately. The caller (HTTP handler) returns before
// the pipeline finishes; progress and the terminal result are observed
// via Get.
func (e *Engine) Submit(req Request) string {
	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}
	job := &Job{JobID: jobID, Status: StatusQueued}

	e.mu.Lock()
	e.jobs[jobID] = job
	e.mu.Unlock()

	go e.run(jobID, req)

	return jobID
}

// Get returns the job, or nil if it's unknown (never submitted, or
// evicted from bounded history).
func (e *Engine) Get(jobID string) *Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, ok := e.jobs[jobID]
	if !ok {
		return nil
	}
	clone := *job
	return &clone
}

func (e *Engine) run(jobID string, req Request) {
	e.gpuMu.Lock()
	defer e.gpuMu.Unlock()

	if req.WorkDir != "" {
		defer func() {
			if err := os.RemoveAll(req.WorkDir); err != nil {
				slog.Warn("workerengine: failed to remove job work directory", "job_id", jobID, "dir", req.WorkDir, "error", err)
			}
		}()
	}

	e.mu.Lock()
	e.currentJobID = jobID
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.currentJobID = ""
		e.mu.Unlock()
	}()

	now := time.Now().UTC()
	e.setStatus(jobID, StatusProcessing, func(j *Job) { j.StartedAt = &now })

	report := func(step, detail string) {
		e.setStatus(jobID, StatusProcessing, func(j *Job) {
			j.ProgressStep = step
			j.ProgressDetail = detail
		})
	}

	result, err := e.pipeline.Process(context.Background(), workerpipeline.ProcessRequest{
		MicPath:           req.MicPath,
		TabPath:           req.TabPath,
		Meeting:           req.Meeting,
		LocalSpeakerName:  req.LocalSpeakerName,
		RemoteSpeakerName: req.RemoteSpeakerName,
		MicStartOffset:    req.MicStartOffset,
		TabStartOffset:    req.TabStartOffset,
	}, report)

	completedAt := time.Now().UTC()
	if err != nil {
		slog.Error("workerengine: job failed", "job_id", jobID, "error", err)
		e.setStatus(jobID, StatusFailed, func(j *Job) {
			j.Error = err.Error()
			j.CompletedAt = &completedAt
		})
	} else {
		e.setStatus(jobID, StatusCompleted, func(j *Job) {
			j.Result = result
			j.CompletedAt = &completedAt
		})
	}

	e.recordTerminal(jobID)
}

func (e *Engine) setStatus(jobID string, status Status, mutate func(*Job)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, ok := e.jobs[jobID]
	if !ok {
		return
	}
	job.Status = status
	if mutate != nil {
		mutate(job)
	}
}

// recordTerminal appends jobID to the completion-ordered history and
// evicts the oldest entries once the bound is exceeded.
func (e *Engine) recordTerminal(jobID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.order = append(e.order, jobID)
	for len(e.order) > e.maxHistory {
		evict := e.order[0]
		e.order = e.order[1:]
		delete(e.jobs, evict)
	}
}

// PendingCount reports how many jobs are tracked, for diagnostics.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.jobs)
}

// CurrentJob reports whether the GPU slot is currently held and, if so,
// which job holds it. Used by the health endpoint.
func (e *Engine) CurrentJob() (locked bool, jobID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentJobID != "", e.currentJobID
}

// ModelName reports the underlying pipeline's model identifier.
func (e *Engine) ModelName() string {
	return e.pipeline.ModelName
}

// Device reports the underlying pipeline's compute device.
func (e *Engine) Device() string {
	return e.pipeline.Device
}
