// Package fallback runs the worker's transcription pipeline in-process,
// on CPU, when the GPU worker cannot be reached or woken. It's the same
// pkg/workerpipeline.Pipeline the worker service runs, just invoked
// synchronously inside the frontend process instead of over HTTP.
package fallback

import (
	"context"
	"fmt"
	"time"

	"github.com/meetscribe/meetscribe/pkg/workerpipeline"
)

// ErrUnavailable means the fallback transcriber isn't configured
// (disabled by config, or no pipeline wired in).
var ErrUnavailable = fmt.Errorf("fallback transcriber unavailable")

// Transcriber runs workerpipeline.Pipeline.Process directly, without a
// network hop to a GPU worker.
type Transcriber struct {
	pipeline *workerpipeline.Pipeline
	enabled  bool
}

// New builds a fallback transcriber around pipeline. enabled mirrors
// config.FallbackConfig.Enabled — Run returns ErrUnavailable immediately
// when false, regardless of whether pipeline is non-nil.
func New(pipeline *workerpipeline.Pipeline, enabled bool) *Transcriber {
	return &Transcriber{pipeline: pipeline, enabled: enabled}
}

// Run executes the pipeline synchronously and returns its result. report
// may be nil.
func (t *Transcriber) Run(ctx context.Context, req workerpipeline.ProcessRequest, report workerpipeline.ProgressFunc) (*workerpipeline.Result, error) {
	if !t.enabled || t.pipeline == nil {
		return nil, ErrUnavailable
	}
	if report == nil {
		report = func(string, string) {}
	}
	return t.pipeline.Process(ctx, req, report)
}

// IsEnabled reports whether this transcriber was configured on.
func (t *Transcriber) IsEnabled() bool {
	return t.enabled && t.pipeline != nil
}

// DefaultAudioTimeout is a 300s bound for the ffmpeg conversion stage,
// for callers building a fallback pipeline.
const DefaultAudioTimeout = 300 * time.Second
