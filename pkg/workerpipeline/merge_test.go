package workerpipeline

import "testing"

func TestMergeTranscripts_SortsByStartTimeAcrossTracks(t *testing.T) {
	mic := []Segment{{Speaker: "Me", Text: "second", Start: 5, End: 6}}
	tab := []Segment{{Speaker: "Speaker 1", Text: "first", Start: 0, End: 1}}

	merged := mergeTranscripts(mic, 0, tab, 0)

	if len(merged) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(merged))
	}
	if merged[0].Text != "first" || merged[1].Text != "second" {
		t.Errorf("expected [first, second], got [%s, %s]", merged[0].Text, merged[1].Text)
	}
}

func TestMergeTranscripts_AppliesPerTrackOffsets(t *testing.T) {
	mic := []Segment{{Speaker: "Me", Text: "a", Start: 0, End: 1}}
	tab := []Segment{{Speaker: "Speaker 1", Text: "b", Start: 0, End: 1}}

	merged := mergeTranscripts(mic, 10, tab, 0)

	if len(merged) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(merged))
	}
	// Tab's unshifted segment (start 0) now sorts before mic's shifted one (start 10).
	if merged[0].Text != "b" || merged[1].Text != "a" {
		t.Errorf("expected [b, a] after offset, got [%s, %s]", merged[0].Text, merged[1].Text)
	}
	if merged[1].Start != 10 {
		t.Errorf("expected mic segment shifted to start=10, got %v", merged[1].Start)
	}
}

func TestMergeTranscripts_StableOrderOnTiedStart(t *testing.T) {
	mic := []Segment{{Speaker: "Me", Text: "mic", Start: 0, End: 1}}
	tab := []Segment{{Speaker: "Speaker 1", Text: "tab", Start: 0, End: 1}}

	merged := mergeTranscripts(mic, 0, tab, 0)

	if merged[0].Text != "mic" || merged[1].Text != "tab" {
		t.Errorf("expected mic before tab on tied start, got [%s, %s]", merged[0].Text, merged[1].Text)
	}
}
