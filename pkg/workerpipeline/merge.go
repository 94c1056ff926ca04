package workerpipeline

import "sort"

// mergeTranscripts combines the mic and tab tracks into one timeline. Each
// track's segments are shifted by its offset (both tracks usually start
// recording at the same wall-clock moment, so offsets are normally zero;
// they exist to support tracks that began recording at different times),
// then the combined set is stably sorted by start time so same-start
// segments keep their original track order (mic before tab).
func mergeTranscripts(micSegments []Segment, micOffset float64, tabSegments []Segment, tabOffset float64) []Segment {
	merged := make([]Segment, 0, len(micSegments)+len(tabSegments))

	for _, s := range micSegments {
		s.Start += micOffset
		s.End += micOffset
		merged = append(merged, s)
	}
	for _, s := range tabSegments {
		s.Start += tabOffset
		s.End += tabOffset
		merged = append(merged, s)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Start < merged[j].Start
	})

	return merged
}
