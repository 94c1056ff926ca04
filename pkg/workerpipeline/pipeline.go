package workerpipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meetscribe/meetscribe/pkg/audio"
)

// ErrModelError wraps a failure inside a Transcriber implementation: the
// inference call itself raised. A Diarizer failure is logged and the
// pipeline continues without it; it is not returned as ErrModelError.
var ErrModelError = fmt.Errorf("model inference failed")

// ProgressFunc reports which pipeline stage is currently running, for a
// caller (WorkerJobEngine) to surface as progress_step/progress_detail.
type ProgressFunc func(step, detail string)

// Pipeline runs the full convert -> transcribe -> diarize -> merge ->
// format sequence for one job. Transcriber and Diarizer are injected so
// the actual models stay swappable.
type Pipeline struct {
	Transcriber  Transcriber
	Diarizer     Diarizer
	AudioTimeout time.Duration

	// Device and ModelName are carried into Result.Stats for
	// observability; they describe the Transcriber implementation, not
	// the pipeline itself.
	Device    string
	ModelName string
}

// NewPipeline builds a pipeline over the given model implementations.
func NewPipeline(transcriber Transcriber, diarizer Diarizer, audioTimeout time.Duration) *Pipeline {
	return &Pipeline{Transcriber: transcriber, Diarizer: diarizer, AudioTimeout: audioTimeout}
}

// ProcessRequest carries one job's full set of pipeline inputs.
type ProcessRequest struct {
	MicPath           string
	TabPath           string
	Meeting           MeetingInfo
	LocalSpeakerName  string
	RemoteSpeakerName string

	// MicStartOffset/TabStartOffset shift each track's segment timestamps
	// before merging, so two recordings that didn't start at the same
	// wall-clock instant still interleave correctly. Default 0.
	MicStartOffset float64
	TabStartOffset float64
}

// Process runs the pipeline over optional mic/tab tracks. At least one of
// MicPath, TabPath must be non-empty. Diarization runs against the
// primary track — tab if present, otherwise mic — since the tab track
// usually carries every remote participant, making it the richer
// diarization source; diarization failure is logged and non-fatal, per
// the original pipeline's behavior of keeping default labels.
func (p *Pipeline) Process(ctx context.Context, req ProcessRequest, report ProgressFunc) (*Result, error) {
	if req.MicPath == "" && req.TabPath == "" {
		return nil, fmt.Errorf("workerpipeline: at least one of mic_path, tab_path is required")
	}

	var micSegments, tabSegments []Segment
	var micWav, tabWav string

	if req.MicPath != "" {
		report("converting_mic", "")
		wavPath, err := audio.ConvertToWAV(ctx, req.MicPath, p.AudioTimeout)
		if err != nil {
			return nil, err
		}
		micWav = wavPath

		report("transcribing_mic", "")
		micSegments, err = p.Transcriber.TranscribeFile(ctx, wavPath)
		if err != nil {
			return nil, fmt.Errorf("%w: mic track: %v", ErrModelError, err)
		}
		relabel(micSegments, req.LocalSpeakerName)
	}

	if req.TabPath != "" {
		report("converting_tab", "")
		wavPath, err := audio.ConvertToWAV(ctx, req.TabPath, p.AudioTimeout)
		if err != nil {
			return nil, err
		}
		tabWav = wavPath

		report("transcribing_tab", "")
		tabSegments, err = p.Transcriber.TranscribeFile(ctx, wavPath)
		if err != nil {
			return nil, fmt.Errorf("%w: tab track: %v", ErrModelError, err)
		}
		relabel(tabSegments, req.RemoteSpeakerName)
	}

	report("diarizing", "")
	primaryWav := tabWav
	primarySegments := tabSegments
	if primaryWav == "" {
		primaryWav = micWav
		primarySegments = micSegments
	}
	if primaryWav != "" {
		turns, err := p.Diarizer.Diarize(ctx, primaryWav)
		if err != nil {
			slog.Warn("workerpipeline: diarization failed, keeping default speaker labels", "error", err)
		} else {
			assignSpeakers(primarySegments, turns)
		}
	}

	report("merging", "")
	merged := mergeTranscripts(micSegments, req.MicStartOffset, tabSegments, req.TabStartOffset)

	stats := map[string]any{
		"total_segments": len(merged),
		"mic_segments":   len(micSegments),
		"tab_segments":   len(tabSegments),
		"device":         p.Device,
		"model":          p.ModelName,
	}

	return &Result{
		Meeting:   req.Meeting,
		Segments:  merged,
		Formatted: formatTranscript(merged),
		Stats:     stats,
	}, nil
}

// relabel sets a track's default speaker label before diarization runs.
// Diarization overwrites it for whichever track is the primary; for the
// non-primary track, or when diarization fails, this default stands as
// the final label.
func relabel(segments []Segment, speakerName string) {
	if speakerName == "" {
		return
	}
	for i := range segments {
		segments[i].Speaker = speakerName
	}
}
