package extraction

import "context"

// NoopExtractor never runs real extraction; it's the default wiring when
// no LLM endpoint is configured. Extract always returns a zero Summary
// and a nil error, so callers don't need a separate "disabled" branch.
type NoopExtractor struct{}

// Extract implements Extractor.
func (NoopExtractor) Extract(context.Context, string) (Summary, error) {
	return Summary{}, nil
}
