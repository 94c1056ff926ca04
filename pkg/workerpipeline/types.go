// Package workerpipeline implements the worker's transcription pipeline:
// convert to WAV, transcribe each track, diarize, merge, and format. The
// actual speech and diarization models are pluggable — this package
// supplies deterministic stubs and the glue; a real deployment swaps in
// whatever STT/diarization library it prefers behind the same
// interfaces.
package workerpipeline

import "context"

// Segment is one labeled, time-bounded utterance. Field tags match the
// wire shape the frontend's gpuclient package decodes.
type Segment struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Turn is one contiguous diarization interval: "who spoke when",
// independent of what was said.
type Turn struct {
	Start   float64
	End     float64
	Speaker string
}

// Transcriber converts an audio file into an ordered list of segments.
type Transcriber interface {
	TranscribeFile(ctx context.Context, path string) ([]Segment, error)
}

// Diarizer partitions an audio file into speaker turns.
type Diarizer interface {
	Diarize(ctx context.Context, path string) ([]Turn, error)
}

// Result is the pipeline's terminal output, held in the worker's in-memory
// job history (it is not written to disk) and relayed to the frontend
// either synchronously (legacy) or via polling.
type Result struct {
	Meeting   MeetingInfo    `json:"meeting"`
	Segments  []Segment      `json:"segments"`
	Formatted string         `json:"formatted"`
	Stats     map[string]any `json:"stats"`
}

// MeetingInfo carries the caller-supplied metadata through to the output
// payload unchanged.
type MeetingInfo struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	Duration float64 `json:"duration"`
	Platform string `json:"platform"`
	URL      string `json:"url"`
}
