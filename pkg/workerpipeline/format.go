package workerpipeline

import (
	"fmt"
	"strings"
)

// formatTimestamp renders seconds as HH:MM:SS, floored to whole seconds.
func formatTimestamp(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatTranscript renders segments as the human-readable
// "[HH:MM:SS] Speaker: text" projection, one line per segment in the order
// given.
func formatTranscript(segments []Segment) string {
	lines := make([]string, 0, len(segments))
	for _, s := range segments {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", formatTimestamp(s.Start), s.Speaker, s.Text))
	}
	return strings.Join(lines, "\n")
}
