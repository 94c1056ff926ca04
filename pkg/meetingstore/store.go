// Package meetingstore persists Meeting, Transcript and Segment records.
package meetingstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/meetscribe/meetscribe/pkg/models"
)

// ErrNotFound is returned when an operation targets a meeting (or, for
// UpdateSegmentText, a segment) that doesn't exist.
var ErrNotFound = errors.New("meetingstore: meeting not found")

// Store persists meetings together with their (at most one) transcript and
// ordered segments.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new meeting in the processing state and returns it with
// its assigned ID and timestamps populated.
func (s *Store) Create(ctx context.Context, m models.Meeting) (*models.Meeting, error) {
	if m.Status == "" {
		m.Status = models.MeetingProcessing
	}
	now := time.Now().UTC()

	var extractedJSON []byte
	if m.ExtractedData != nil {
		var err error
		extractedJSON, err = json.Marshal(m.ExtractedData)
		if err != nil {
			return nil, fmt.Errorf("meetingstore: marshal extracted data: %w", err)
		}
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO meetings (title, date, duration, platform, url, status, audio_file, extracted_data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		 RETURNING id`,
		m.Title, m.Date, m.Duration, m.Platform, m.URL, m.Status, m.AudioFile, extractedJSON, now,
	)
	if err := row.Scan(&m.ID); err != nil {
		return nil, fmt.Errorf("meetingstore: create: %w", err)
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	return &m, nil
}

// UpdateMeta edits a meeting's title and/or date. A nil argument leaves
// that field unchanged.
func (s *Store) UpdateMeta(ctx context.Context, meetingID int64, title *string, date *time.Time) error {
	if title == nil && date == nil {
		return nil
	}

	m, err := s.Get(ctx, meetingID)
	if err != nil {
		return err
	}
	if m == nil {
		return ErrNotFound
	}
	if title != nil {
		m.Title = *title
	}
	if date != nil {
		m.Date = *date
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE meetings SET title = $1, date = $2, updated_at = $3 WHERE id = $4`,
		m.Title, m.Date, time.Now().UTC(), meetingID,
	)
	if err != nil {
		return fmt.Errorf("meetingstore: update meta: %w", err)
	}
	return checkAffected(res, ErrNotFound)
}

// UpdateStatus transitions a meeting's status.
func (s *Store) UpdateStatus(ctx context.Context, meetingID int64, status models.MeetingStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE meetings SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), meetingID,
	)
	if err != nil {
		return fmt.Errorf("meetingstore: update status: %w", err)
	}
	return checkAffected(res, ErrNotFound)
}

// SaveExtractedData stores the LLM post-extraction payload on a meeting.
// A failure to extract never reaches this far; callers simply skip it.
func (s *Store) SaveExtractedData(ctx context.Context, meetingID int64, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("meetingstore: marshal extracted data: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE meetings SET extracted_data = $1, updated_at = $2 WHERE id = $3`,
		payload, time.Now().UTC(), meetingID,
	)
	if err != nil {
		return fmt.Errorf("meetingstore: save extracted data: %w", err)
	}
	return checkAffected(res, ErrNotFound)
}

// SaveTranscript atomically replaces a meeting's transcript and segments.
// Re-transcription (e.g. after a speaker rename triggers no re-run, but a
// manual re-submit does) fully discards the previous segment set.
func (s *Store) SaveTranscript(ctx context.Context, meetingID int64, t models.Transcript, segments []models.Segment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("meetingstore: save transcript: %w", err)
	}
	defer tx.Rollback()

	statsJSON, err := json.Marshal(t.Stats)
	if err != nil {
		return fmt.Errorf("meetingstore: marshal stats: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO transcripts (meeting_id, full_text, formatted, stats, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (meeting_id) DO UPDATE SET full_text = EXCLUDED.full_text, formatted = EXCLUDED.formatted, stats = EXCLUDED.stats, created_at = EXCLUDED.created_at`,
		meetingID, t.FullText, t.Formatted, statsJSON, now,
	)
	if err != nil {
		return fmt.Errorf("meetingstore: upsert transcript: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM segments WHERE meeting_id = $1`, meetingID); err != nil {
		return fmt.Errorf("meetingstore: clear segments: %w", err)
	}

	for _, seg := range segments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO segments (meeting_id, speaker, text, start_time, end_time) VALUES ($1, $2, $3, $4, $5)`,
			meetingID, seg.Speaker, seg.Text, seg.StartTime, seg.EndTime,
		); err != nil {
			return fmt.Errorf("meetingstore: insert segment: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE meetings SET status = $1, updated_at = $2 WHERE id = $3`,
		models.MeetingCompleted, now, meetingID,
	); err != nil {
		return fmt.Errorf("meetingstore: mark completed: %w", err)
	}

	return tx.Commit()
}

// Get returns a meeting by ID, or nil if it doesn't exist.
func (s *Store) Get(ctx context.Context, meetingID int64) (*models.Meeting, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, date, duration, platform, url, status, audio_file, extracted_data, created_at, updated_at
		 FROM meetings WHERE id = $1`,
		meetingID,
	)
	m, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// List returns all meetings ordered by date, most recent first.
func (s *Store) List(ctx context.Context) ([]models.Meeting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, date, duration, platform, url, status, audio_file, extracted_data, created_at, updated_at
		 FROM meetings ORDER BY date DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("meetingstore: list: %w", err)
	}
	defer rows.Close()

	var out []models.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("meetingstore: list: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// GetTranscript returns a meeting's transcript and its segments ordered by
// start time, or nil if no transcript has been saved yet.
func (s *Store) GetTranscript(ctx context.Context, meetingID int64) (*models.Transcript, []models.Segment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT meeting_id, full_text, formatted, stats, created_at FROM transcripts WHERE meeting_id = $1`,
		meetingID,
	)
	var t models.Transcript
	var statsJSON []byte
	if err := row.Scan(&t.MeetingID, &t.FullText, &t.Formatted, &statsJSON, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("meetingstore: get transcript: %w", err)
	}
	if len(statsJSON) > 0 {
		if err := json.Unmarshal(statsJSON, &t.Stats); err != nil {
			return nil, nil, fmt.Errorf("meetingstore: unmarshal stats: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, meeting_id, speaker, text, start_time, end_time FROM segments WHERE meeting_id = $1 ORDER BY start_time ASC`,
		meetingID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("meetingstore: get segments: %w", err)
	}
	defer rows.Close()

	var segments []models.Segment
	for rows.Next() {
		var seg models.Segment
		if err := rows.Scan(&seg.ID, &seg.MeetingID, &seg.Speaker, &seg.Text, &seg.StartTime, &seg.EndTime); err != nil {
			return nil, nil, fmt.Errorf("meetingstore: scan segment: %w", err)
		}
		segments = append(segments, seg)
	}
	return &t, segments, rows.Err()
}

// UpdateSpeaker renames every segment attributed to oldName within a
// meeting's transcript, returning the number of segments changed.
func (s *Store) UpdateSpeaker(ctx context.Context, meetingID int64, oldName, newName string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE segments SET speaker = $1 WHERE meeting_id = $2 AND speaker = $3`,
		newName, meetingID, oldName,
	)
	if err != nil {
		return 0, fmt.Errorf("meetingstore: update speaker: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("meetingstore: update speaker: %w", err)
	}
	return int(affected), nil
}

// UpdateSegmentText edits a single segment's transcribed text.
func (s *Store) UpdateSegmentText(ctx context.Context, segmentID int64, text string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE segments SET text = $1 WHERE id = $2`, text, segmentID)
	if err != nil {
		return fmt.Errorf("meetingstore: update segment: %w", err)
	}
	return checkAffected(res, ErrNotFound)
}

// Delete removes a meeting along with its transcript and segments via
// cascading foreign keys.
func (s *Store) Delete(ctx context.Context, meetingID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM meetings WHERE id = $1`, meetingID)
	if err != nil {
		return fmt.Errorf("meetingstore: delete: %w", err)
	}
	return checkAffected(res, ErrNotFound)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row scanner) (*models.Meeting, error) {
	var m models.Meeting
	var extractedJSON []byte
	if err := row.Scan(&m.ID, &m.Title, &m.Date, &m.Duration, &m.Platform, &m.URL, &m.Status, &m.AudioFile, &extractedJSON, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if len(extractedJSON) > 0 {
		if err := json.Unmarshal(extractedJSON, &m.ExtractedData); err != nil {
			return nil, fmt.Errorf("meetingstore: unmarshal extracted data: %w", err)
		}
	}
	return &m, nil
}

func checkAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
