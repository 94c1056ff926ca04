package workerpipeline

import (
	"strconv"
	"strings"
)

// assignSpeakers relabels each segment with the diarization turn it
// overlaps most. A segment with no overlapping turn keeps its existing
// speaker label, normalized by friendlyLabel like any turn label. Ties keep whichever turn was encountered first, since
// the running best is only replaced by a strictly greater overlap.
func assignSpeakers(segments []Segment, turns []Turn) {
	for i := range segments {
		seg := &segments[i]
		bestSpeaker := seg.Speaker
		bestOverlap := 0.0

		for _, turn := range turns {
			overlap := min(seg.End, turn.End) - max(seg.Start, turn.Start)
			if overlap > bestOverlap {
				bestOverlap = overlap
				bestSpeaker = turn.Speaker
			}
		}


		seg.Speaker = friendlyLabel(bestSpeaker)
	}
}

// friendlyLabel turns a raw diarization label like "SPEAKER_00" into a
// 1-indexed human label "Speaker 1". Labels that don't match the expected
// shape pass through unchanged.
func friendlyLabel(label string) string {
	idx := strings.LastIndex(label, "_")
	if idx == -1 {
		return label
	}
	num, err := strconv.Atoi(label[idx+1:])
	if err != nil {
		return label
	}
	return "Speaker " + strconv.Itoa(num+1)
}
