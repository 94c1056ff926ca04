// Package orchestrator composes the GPU probe/wake/submit/poll path with
// the CPU fallback into the single decision the frontend needs per job:
// did transcription succeed, and by which path.
package orchestrator

import (
	"context"
	"log/slog"

	"github.com/meetscribe/meetscribe/pkg/gpuclient"
	"github.com/meetscribe/meetscribe/pkg/workerpipeline"
)

// Prober is the subset of gpuclient.HealthProbe the orchestrator needs.
type Prober interface {
	IsAvailable(ctx context.Context) bool
}

// Waker is the subset of gpuwaker.Waker the orchestrator needs. TryWake
// intentionally takes no context, matching gpuwaker.Waker's own signature.
type Waker interface {
	TryWake(jobID string) bool
}

// Poller is the subset of gpuclient.SubmitPoller the orchestrator needs.
type Poller interface {
	Submit(ctx context.Context, micPath, tabPath string, metadata map[string]any) (workerJobID string, result *gpuclient.SubmitResult, err error)
	Poll(ctx context.Context, workerJobID string) (*gpuclient.SubmitResult, error)
}

// Fallback is the subset of fallback.Transcriber the orchestrator needs.
type Fallback interface {
	Run(ctx context.Context, req workerpipeline.ProcessRequest, report workerpipeline.ProgressFunc) (*workerpipeline.Result, error)
	IsEnabled() bool
}

// Orchestrator composes probe -> wake -> submit/poll -> fallback for one
// transcription job. Waker and Fallback may be nil (unconfigured).
type Orchestrator struct {
	Probe    Prober
	Waker    Waker
	Poller   Poller
	Fallback Fallback
}

// New builds an Orchestrator from its four collaborators.
func New(probe Prober, waker Waker, poller Poller, fb Fallback) *Orchestrator {
	return &Orchestrator{Probe: probe, Waker: waker, Poller: poller, Fallback: fb}
}

// Request carries one job's transcription inputs.
type Request struct {
	JobID    string
	MicPath  string
	TabPath  string
	Metadata map[string]any
	Meeting  workerpipeline.MeetingInfo

	LocalSpeakerName  string
	RemoteSpeakerName string
}

// TranscriptionResult is the orchestrator's terminal answer. Callers
// distinguish success/failure solely by Success; the other fields are
// populated according to which path produced the result.
type TranscriptionResult struct {
	Success      bool
	Segments     []gpuclient.SegmentPayload
	Formatted    string
	Stats        map[string]any
	Error        string
	UsedFallback bool
}

// Run executes the composed decision: probe, wake if needed, submit/poll
// if the GPU is available, otherwise fall back to CPU if configured.
func (o *Orchestrator) Run(ctx context.Context, req Request) *TranscriptionResult {
	if req.MicPath == "" && req.TabPath == "" {
		return &TranscriptionResult{Success: false, Error: "at least one of mic_path, tab_path is required"}
	}

	gpuAvailable := o.Probe != nil && o.Probe.IsAvailable(ctx)
	if !gpuAvailable && o.Waker != nil {
		gpuAvailable = o.Waker.TryWake(req.JobID)
	}

	if gpuAvailable && o.Poller != nil {
		if result, err := o.runGPU(ctx, req); err == nil {
			return result
		} else {
			slog.Warn("orchestrator: GPU path failed, considering fallback", "job_id", req.JobID, "error", err)
		}
	}

	if o.Fallback != nil && o.Fallback.IsEnabled() {
		return o.runFallback(ctx, req)
	}

	return &TranscriptionResult{Success: false, Error: "GPU unavailable and fallback disabled"}
}

func (o *Orchestrator) runGPU(ctx context.Context, req Request) (*TranscriptionResult, error) {
	workerJobID, result, err := o.Poller.Submit(ctx, req.MicPath, req.TabPath, req.Metadata)
	if err != nil {
		return nil, err
	}

	if result == nil {
		result, err = o.Poller.Poll(ctx, workerJobID)
		if err != nil {
			return nil, err
		}
	}

	return &TranscriptionResult{
		Success:   true,
		Segments:  result.Segments,
		Formatted: result.Formatted,
		Stats:     result.Stats,
	}, nil
}

func (o *Orchestrator) runFallback(ctx context.Context, req Request) *TranscriptionResult {
	result, err := o.Fallback.Run(ctx, workerpipeline.ProcessRequest{
		MicPath:           req.MicPath,
		TabPath:           req.TabPath,
		Meeting:           req.Meeting,
		LocalSpeakerName:  req.LocalSpeakerName,
		RemoteSpeakerName: req.RemoteSpeakerName,
	}, nil)
	if err != nil {
		slog.Error("orchestrator: fallback transcription failed", "job_id", req.JobID, "error", err)
		return &TranscriptionResult{Success: false, Error: err.Error(), UsedFallback: true}
	}

	segments := make([]gpuclient.SegmentPayload, len(result.Segments))
	for i, s := range result.Segments {
		segments[i] = gpuclient.SegmentPayload{Speaker: s.Speaker, Text: s.Text, Start: s.Start, End: s.End}
	}

	return &TranscriptionResult{
		Success:      true,
		Segments:     segments,
		Formatted:    result.Formatted,
		Stats:        result.Stats,
		UsedFallback: true,
	}
}
