// Package extraction is a narrow client for the LLM post-extraction
// black box: given a finished transcript, it asks an external service
// to summarize it. No wire format beyond "POST the transcript text" is
// mandated, so a deterministic stub ships alongside the HTTP client.
// Extraction failures are always caught and logged by the caller — they
// never fail the transcription job or meeting.
package extraction

import (
	"context"
)

// Summary is whatever structured output the LLM extraction step
// produced. Stats is left as a free-form bag since the extraction
// service's schema isn't part of this system's contract.
type Summary struct {
	Title       string         `json:"title,omitempty"`
	Overview    string         `json:"overview,omitempty"`
	KeyPoints   []string       `json:"key_points,omitempty"`
	ActionItems []string       `json:"action_items,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Extractor turns a finished transcript into a Summary.
type Extractor interface {
	Extract(ctx context.Context, transcript string) (Summary, error)
}
