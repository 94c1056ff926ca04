// Package models defines the persisted entities shared by the frontend
// service: meetings, their transcripts and segments, and the background
// jobs that produce them.
package models

import "time"

// MeetingStatus is the lifecycle state of a Meeting.
type MeetingStatus string

const (
	MeetingProcessing MeetingStatus = "processing"
	MeetingCompleted  MeetingStatus = "completed"
	MeetingFailed     MeetingStatus = "failed"
)

// Meeting is created at upload time and updated by the frontend's
// background transcription task once transcription reaches a terminal
// state.
type Meeting struct {
	ID            int64
	Title         string
	Date          time.Time
	Duration      *float64
	Platform      *string
	URL           *string
	Status        MeetingStatus
	AudioFile     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ExtractedData map[string]any
}

// Transcript holds the full text and formatted projection of a Meeting's
// segments. At most one exists per meeting; a re-transcription replaces it
// atomically along with its segments.
type Transcript struct {
	MeetingID int64
	FullText  string
	Formatted string
	Stats     map[string]any
	CreatedAt time.Time
}

// Segment is one labeled, time-bounded utterance belonging to a meeting.
type Segment struct {
	ID        int64
	MeetingID int64
	Speaker   string
	Text      string
	StartTime float64
	EndTime   float64
}

// JobStatus is the lifecycle state of a FrontendJob.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status accepts no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// FrontendJob tracks a single transcription dispatch across frontend
// restarts. Foreign-keyed to Meeting via MeetingID.
type FrontendJob struct {
	JobID     string
	MeetingID int64
	Status    JobStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	Result    map[string]any
	Error     *string
}
