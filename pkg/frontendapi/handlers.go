package frontendapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/meetscribe/meetscribe/pkg/meetingstore"
	"github.com/meetscribe/meetscribe/pkg/models"
	"github.com/meetscribe/meetscribe/pkg/orchestrator"
	"github.com/meetscribe/meetscribe/pkg/workerpipeline"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type uploadResponse struct {
	JobID     string `json:"job_id"`
	MeetingID int64  `json:"meeting_id"`
	Status    string `json:"status"`
}

// handleUpload handles POST /api/upload: it accepts mic_file and/or
// tab_file multipart parts plus meeting metadata as form fields, creates
// the meeting and job records, and dispatches transcription on a
// background goroutine. It returns 202 immediately — callers poll
// GET /api/status/{job_id} for the outcome.
func (s *Server) handleUpload(c *gin.Context) {
	title := c.PostForm("title")
	if title == "" {
		title = "Untitled meeting"
	}
	platform := c.PostForm("platform")
	url := c.PostForm("url")
	localSpeaker := c.PostForm("local_speaker")
	remoteSpeaker := c.PostForm("remote_speaker")
	micStartOffset, _ := strconv.ParseFloat(c.PostForm("mic_start_offset"), 64)
	tabStartOffset, _ := strconv.ParseFloat(c.PostForm("tab_start_offset"), 64)

	meetingDate := time.Now().UTC()
	if raw := c.PostForm("date"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			meetingDate = parsed
		}
	}

	jobID := uuid.NewString()
	workDir := filepath.Join(s.uploadDir, jobID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not allocate upload directory"})
		return
	}

	micPath, err := saveUploadedPart(c, workDir, "mic_file")
	if err != nil {
		_ = os.RemoveAll(workDir)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tabPath, err := saveUploadedPart(c, workDir, "tab_file")
	if err != nil {
		_ = os.RemoveAll(workDir)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if micPath == "" && tabPath == "" {
		_ = os.RemoveAll(workDir)
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one of mic_file or tab_file is required"})
		return
	}

	audioFile := micPath
	if audioFile == "" {
		audioFile = tabPath
	}

	localSpeakerName := localSpeaker
	if localSpeakerName == "" {
		localSpeakerName = s.localSpeakerName
	}
	remoteSpeakerName := remoteSpeaker
	if remoteSpeakerName == "" {
		remoteSpeakerName = s.remoteSpeakerName
	}

	ctx := c.Request.Context()
	meeting, err := s.meetings.Create(ctx, models.Meeting{
		Title:     title,
		Date:      meetingDate,
		Platform:  nonEmptyPtr(platform),
		URL:       nonEmptyPtr(url),
		AudioFile: nonEmptyPtr(audioFile),
	})
	if err != nil {
		_ = os.RemoveAll(workDir)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create meeting record"})
		return
	}

	if _, err := s.jobs.Create(ctx, jobID, meeting.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create job record"})
		return
	}

	go s.runTranscription(jobID, meeting.ID, orchestrator.Request{
		JobID:   jobID,
		MicPath: micPath,
		TabPath: tabPath,
		Metadata: map[string]any{
			"job_id":           jobID,
			"title":            title,
			"date":             meetingDate.Format(time.RFC3339),
			"platform":         platform,
			"url":              url,
			"local_speaker":    localSpeakerName,
			"remote_speaker":   remoteSpeakerName,
			"mic_start_offset": micStartOffset,
			"tab_start_offset": tabStartOffset,
		},
		Meeting: workerpipeline.MeetingInfo{
			Title:    title,
			Date:     meetingDate.Format(time.RFC3339),
			Platform: platform,
			URL:      url,
		},
		LocalSpeakerName:  localSpeakerName,
		RemoteSpeakerName: remoteSpeakerName,
	})

	c.JSON(http.StatusAccepted, uploadResponse{JobID: jobID, MeetingID: meeting.ID, Status: "queued"})
}

// runTranscription runs the orchestrator to completion and persists the
// outcome. It owns its own context since the HTTP request that triggered
// it has already returned.
func (s *Server) runTranscription(jobID string, meetingID int64, req orchestrator.Request) {
	ctx := context.Background()

	_ = s.jobs.UpdateStatus(ctx, jobID, models.JobProcessing, nil, "")
	_ = s.meetings.UpdateStatus(ctx, meetingID, models.MeetingProcessing)

	result := s.orch.Run(ctx, req)
	if !result.Success {
		slog.Error("frontendapi: transcription failed", "job_id", jobID, "error", result.Error)
		_ = s.jobs.UpdateStatus(ctx, jobID, models.JobFailed, nil, result.Error)
		_ = s.meetings.UpdateStatus(ctx, meetingID, models.MeetingFailed)
		return
	}

	segments := make([]models.Segment, len(result.Segments))
	var fullText strings.Builder
	for i, seg := range result.Segments {
		segments[i] = models.Segment{MeetingID: meetingID, Speaker: seg.Speaker, Text: seg.Text, StartTime: seg.Start, EndTime: seg.End}
		if i > 0 {
			fullText.WriteByte('\n')
		}
		fullText.WriteString(seg.Speaker + ": " + seg.Text)
	}

	if err := s.meetings.SaveTranscript(ctx, meetingID, models.Transcript{
		FullText:  fullText.String(),
		Formatted: result.Formatted,
		Stats:     result.Stats,
	}, segments); err != nil {
		slog.Error("frontendapi: failed to save transcript", "job_id", jobID, "error", err)
		_ = s.jobs.UpdateStatus(ctx, jobID, models.JobFailed, nil, err.Error())
		_ = s.meetings.UpdateStatus(ctx, meetingID, models.MeetingFailed)
		return
	}

	_ = s.jobs.UpdateStatus(ctx, jobID, models.JobCompleted, map[string]any{
		"meeting_id":    meetingID,
		"used_fallback": result.UsedFallback,
	}, "")

	summary, err := s.extractor.Extract(ctx, fullText.String())
	if err != nil {
		slog.Warn("frontendapi: post-extraction failed, continuing without it", "job_id", jobID, "error", err)
		return
	}
	if err := s.meetings.SaveExtractedData(ctx, meetingID, map[string]any{
		"title":        summary.Title,
		"overview":     summary.Overview,
		"key_points":   summary.KeyPoints,
		"action_items": summary.ActionItems,
	}); err != nil {
		slog.Warn("frontendapi: failed to save extracted data", "job_id", jobID, "error", err)
	}
}

// handleStatus handles GET /api/status/{job_id}, the frontend's own
// durable job record — distinct from the worker's in-memory job tracked
// by pkg/workerengine.
func (s *Server) handleStatus(c *gin.Context) {
	job, err := s.jobs.Get(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load job"})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	resp := gin.H{
		"job_id":     job.JobID,
		"meeting_id": job.MeetingID,
		"status":     string(job.Status),
		"created_at": job.CreatedAt,
		"updated_at": job.UpdatedAt,
	}
	if job.Result != nil {
		resp["result"] = job.Result
	}
	if job.Error != nil {
		resp["error"] = *job.Error
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListTranscripts(c *gin.Context) {
	meetings, err := s.meetings.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list meetings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"meetings": meetings})
}

func (s *Server) handleGetTranscript(c *gin.Context) {
	id, ok := s.parseMeetingID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	meeting, err := s.meetings.Get(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load meeting"})
		return
	}
	if meeting == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
		return
	}

	transcript, segments, err := s.meetings.GetTranscript(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load transcript"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"meeting":    meeting,
		"transcript": transcript,
		"segments":   segments,
	})
}

type patchMeetingRequest struct {
	Title *string `json:"title"`
	Date  *string `json:"date"`
}

func (s *Server) handlePatchMeeting(c *gin.Context) {
	id, ok := s.parseMeetingID(c)
	if !ok {
		return
	}

	var req patchMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var datePtr *time.Time
	if req.Date != nil {
		parsed, err := time.Parse(time.RFC3339, *req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be RFC3339"})
			return
		}
		datePtr = &parsed
	}

	if err := s.meetings.UpdateMeta(c.Request.Context(), id, req.Title, datePtr); err != nil {
		if errors.Is(err, meetingstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update meeting"})
		return
	}
	c.Status(http.StatusNoContent)
}

type patchSpeakersRequest struct {
	OldName string `json:"old_name" binding:"required"`
	NewName string `json:"new_name" binding:"required"`
}

func (s *Server) handlePatchSpeakers(c *gin.Context) {
	id, ok := s.parseMeetingID(c)
	if !ok {
		return
	}

	var req patchSpeakersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	count, err := s.meetings.UpdateSpeaker(c.Request.Context(), id, req.OldName, req.NewName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not rename speaker"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated_segments": count})
}

type patchSegmentRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) handlePatchSegment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid segment id"})
		return
	}

	var req patchSegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.meetings.UpdateSegmentText(c.Request.Context(), id, req.Text); err != nil {
		if errors.Is(err, meetingstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "segment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update segment"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteMeeting(c *gin.Context) {
	id, ok := s.parseMeetingID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	meeting, err := s.meetings.Get(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load meeting"})
		return
	}

	if err := s.meetings.Delete(ctx, id); err != nil {
		if errors.Is(err, meetingstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete meeting"})
		return
	}

	if meeting != nil && meeting.AudioFile != nil {
		if err := os.RemoveAll(filepath.Dir(*meeting.AudioFile)); err != nil {
			slog.Warn("frontendapi: failed to remove meeting's upload directory", "meeting_id", id, "error", err)
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleMeetingAudio(c *gin.Context) {
	id, ok := s.parseMeetingID(c)
	if !ok {
		return
	}

	meeting, err := s.meetings.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load meeting"})
		return
	}
	if meeting == nil || meeting.AudioFile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no audio file for this meeting"})
		return
	}
	c.File(*meeting.AudioFile)
}

func (s *Server) parseMeetingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meeting id"})
		return 0, false
	}
	return id, true
}

// saveUploadedPart copies the named multipart field to workDir, returning
// "" (no error) if the field wasn't supplied at all.
func saveUploadedPart(c *gin.Context, workDir, field string) (string, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return "", nil
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	destPath := filepath.Join(workDir, sanitizeFilename(fileHeader.Filename))
	dest, err := os.Create(destPath)
	if err != nil {
		return "", err
	}
	defer dest.Close()

	if _, err := io.Copy(dest, src); err != nil {
		return "", err
	}
	return destPath, nil
}

// sanitizeFilename strips path separators, null bytes, ".." traversal
// segments, and any character that isn't a word character, dot, or
// hyphen from an uploaded filename.
func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\x00", ""))
	base = strings.ReplaceAll(base, "..", "")

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		}
	}

	clean := b.String()
	if clean == "" {
		clean = "upload"
	}
	return clean
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
