package workerapi

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meetscribe/meetscribe/pkg/workerengine"
	"github.com/meetscribe/meetscribe/pkg/workerpipeline"
)

// handleHealth answers the frontend's gpuclient.HealthProbe and reports
// the worker's model/GPU-slot state for operator visibility.
func (s *Server) handleHealth(c *gin.Context) {
	locked, currentJob := s.engine.CurrentJob()
	resp := gin.H{
		"status":       "ok",
		"model":        s.engine.ModelName(),
		"device":       s.engine.Device(),
		"model_loaded": true,
		"locked":       locked,
	}
	if currentJob != "" {
		resp["current_job"] = currentJob
	}
	c.JSON(http.StatusOK, resp)
}

// transcribeMetadata mirrors the recognized keys of the `metadata` JSON
// field per the worker's POST /transcribe contract.
type transcribeMetadata struct {
	JobID          string  `json:"job_id"`
	RequestID      string  `json:"request_id"`
	Title          string  `json:"title"`
	Date           string  `json:"date"`
	Duration       float64 `json:"duration"`
	Platform       string  `json:"platform"`
	URL            string  `json:"url"`
	LocalSpeaker   string  `json:"local_speaker"`
	RemoteSpeaker  string  `json:"remote_speaker"`
	MicStartOffset float64 `json:"mic_start_offset"`
	TabStartOffset float64 `json:"tab_start_offset"`
}

// handleTranscribe handles POST /transcribe: it accepts the mic_file
// and/or tab_file multipart parts plus a metadata JSON field, submits
// the job to the engine, and returns 202 with a job_id for the caller
// to poll at GET /jobs/{id}.
func (s *Server) handleTranscribe(c *gin.Context) {
	var meta transcribeMetadata
	if raw := c.PostForm("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid metadata: " + err.Error()})
			return
		}
	}

	workDir, err := os.MkdirTemp("", "meetscribe-job-*")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not allocate work directory"})
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

	localSpeakerName := meta.LocalSpeaker
	if localSpeakerName == "" {
		localSpeakerName = "Me"
	}
	remoteSpeakerName := meta.RemoteSpeaker
	if remoteSpeakerName == "" {
		remoteSpeakerName = "Speaker"
	}

	jobID := s.engine.Submit(workerengine.Request{
		JobID:   meta.JobID,
		WorkDir: workDir,
		MicPath: micPath,
		TabPath: tabPath,
		Meeting: workerpipeline.MeetingInfo{
			Title:    meta.Title,
			Date:     meta.Date,
			Duration: meta.Duration,
			Platform: meta.Platform,
			URL:      meta.URL,
		},
		LocalSpeakerName:  localSpeakerName,
		RemoteSpeakerName: remoteSpeakerName,
		MicStartOffset:    meta.MicStartOffset,
		TabStartOffset:    meta.TabStartOffset,
	})

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID, "status": "queued"})
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
// hyphen from an uploaded filename before it's joined onto workDir.
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

type jobResponse struct {
	JobID          string                   `json:"job_id"`
	Status         string                   `json:"status"`
	ProgressStep   string                   `json:"progress_step"`
	ProgressDetail string                   `json:"progress_detail"`
	ElapsedSeconds *float64                 `json:"elapsed_seconds,omitempty"`
	Result         *transcribeResultPayload `json:"result,omitempty"`
	Error          string                   `json:"error,omitempty"`
}

type transcribeResultPayload struct {
	Success   bool                     `json:"success"`
	Segments  []workerpipeline.Segment `json:"segments"`
	Formatted string                   `json:"formatted"`
	Stats     map[string]any           `json:"stats"`
	Error     string                   `json:"error"`
}

// handleGetJob handles GET /jobs/{id}, the poll side of gpuclient's
// submit/poll protocol.
func (s *Server) handleGetJob(c *gin.Context) {
	job := s.engine.Get(c.Param("id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	resp := jobResponse{
		JobID:          job.JobID,
		Status:         string(job.Status),
		ProgressStep:   job.ProgressStep,
		ProgressDetail: job.ProgressDetail,
		Error:          job.Error,
	}
	if job.StartedAt != nil {
		end := job.CompletedAt
		var elapsed float64
		if end != nil {
			elapsed = end.Sub(*job.StartedAt).Seconds()
		} else {
			elapsed = time.Since(*job.StartedAt).Seconds()
		}
		resp.ElapsedSeconds = &elapsed
	}
	if job.Status == workerengine.StatusCompleted && job.Result != nil {
		resp.Result = &transcribeResultPayload{
			Success:   true,
			Segments:  job.Result.Segments,
			Formatted: job.Result.Formatted,
			Stats:     job.Result.Stats,
		}
	}

	c.JSON(http.StatusOK, resp)
}
