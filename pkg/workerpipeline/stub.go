package workerpipeline

import "context"

// StubTranscriber returns a single fixed segment spanning the whole
// track. It stands in for a real speech-to-text model (faster-whisper,
// whisper.cpp bindings, a cloud STT API) behind the Transcriber
// interface; swapping it out requires no change to the pipeline.
type StubTranscriber struct {
	// Duration is the length in seconds attributed to the single segment
	// this stub produces.
	Duration float64
}

func (t StubTranscriber) TranscribeFile(_ context.Context, path string) ([]Segment, error) {
	duration := t.Duration
	if duration <= 0 {
		duration = 1.0
	}
	return []Segment{{Speaker: "SPEAKER_00", Text: "[transcription unavailable: stub transcriber]", Start: 0, End: duration}}, nil
}

// StubDiarizer returns no turns, leaving assignSpeakers' fallback (keep
// the segment's existing speaker) in effect. It stands in for a real
// diarization model (pyannote.audio, a hosted diarization API).
type StubDiarizer struct{}

func (StubDiarizer) Diarize(_ context.Context, path string) ([]Turn, error) {
	return nil, nil
}
