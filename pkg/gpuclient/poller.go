package gpuclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// SegmentPayload is one labeled, time-bounded utterance as carried over
// the wire between worker and frontend.
type SegmentPayload struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// SubmitResult is the terminal payload of a transcription job, whether
// obtained from a legacy synchronous worker or from polling an async one.
type SubmitResult struct {
	Success   bool             `json:"success"`
	Segments  []SegmentPayload `json:"segments"`
	Formatted string           `json:"formatted"`
	Stats     map[string]any   `json:"stats"`
	Error     string           `json:"error"`
}

// SubmitPoller implements the two-phase submit/poll protocol against a
// GPU worker, transparently falling back to treating a synchronous 200
// response as already-terminal (the legacy worker contract).
type SubmitPoller struct {
	BaseURL      string
	WorkerToken  string
	SubmitTimeout time.Duration
	Timeout      time.Duration
	PollInterval time.Duration
}

// NewSubmitPoller builds a poller against a worker listening at baseURL.
func NewSubmitPoller(baseURL, workerToken string, submitTimeout, timeout, pollInterval time.Duration) *SubmitPoller {
	return &SubmitPoller{
		BaseURL:       baseURL,
		WorkerToken:   workerToken,
		SubmitTimeout: submitTimeout,
		Timeout:       timeout,
		PollInterval:  pollInterval,
	}
}

// Submit POSTs optional mic/tab audio files plus a metadata blob to
// /transcribe. micPath and tabPath may be empty; at least one is expected
// to carry content.
//
// On a 202 response, the returned workerJobID is non-empty and result is
// nil: the caller must poll. On a 200 response (legacy worker), result is
// populated directly and workerJobID is empty.
func (p *SubmitPoller) Submit(ctx context.Context, micPath, tabPath string, metadata map[string]any) (workerJobID string, result *SubmitResult, err error) {
	body, contentType, err := buildMultipart(micPath, tabPath, metadata)
	if err != nil {
		return "", nil, fmt.Errorf("gpuclient: build submit request: %w", err)
	}

	client := &http.Client{
		Timeout: p.Timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: p.SubmitTimeout}).DialContext,
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/transcribe", body)
	if err != nil {
		return "", nil, fmt.Errorf("gpuclient: build submit request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if p.WorkerToken != "" {
		req.Header.Set("X-Worker-Token", p.WorkerToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		var accepted struct {
			JobID string `json:"job_id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
			return "", nil, fmt.Errorf("gpuclient: decode 202 response: %w", err)
		}
		return accepted.JobID, nil, nil
	case http.StatusOK:
		var legacy SubmitResult
		if err := json.NewDecoder(resp.Body).Decode(&legacy); err != nil {
			return "", nil, fmt.Errorf("gpuclient: decode legacy response: %w", err)
		}
		return "", &legacy, nil
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return "", nil, fmt.Errorf("%w: HTTP %d: %s", ErrSubmitRejected, resp.StatusCode, string(respBody))
	}
}

type pollResponse struct {
	Status         string         `json:"status"`
	ProgressStep   string         `json:"progress_step"`
	ProgressDetail string         `json:"progress_detail"`
	Result         *SubmitResult  `json:"result"`
	Error          string         `json:"error"`
}

// Poll waits for workerJobID to reach a terminal state, or for the job
// timeout to elapse.
func (p *SubmitPoller) Poll(ctx context.Context, workerJobID string) (*SubmitResult, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	deadline := time.Now().Add(p.Timeout)

	var lastStep, lastDetail string

	for {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w", ErrWorkerTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.PollInterval):
		}

		status, result, jobErr, step, detail, pollErr := p.pollOnce(ctx, client, workerJobID)
		if pollErr != nil {
			if isTerminalPollError(pollErr) {
				return nil, pollErr
			}
			slog.Warn("gpuclient: poll attempt failed, retrying", "error", pollErr)
			continue
		}

		switch status {
		case "completed":
			if result == nil {
				result = &SubmitResult{}
			}
			result.Success = true
			return result, nil
		case "failed":
			return nil, fmt.Errorf("worker reported failure: %s", jobErr)
		case "queued", "processing":
			if step != lastStep || detail != lastDetail {
				slog.Info("gpuclient: job progress", "job_id", workerJobID, "step", step, "detail", detail)
				lastStep, lastDetail = step, detail
			}
			continue
		default:
			slog.Warn("gpuclient: unexpected poll status, retrying", "status", status)
			continue
		}
	}
}

func (p *SubmitPoller) pollOnce(ctx context.Context, client *http.Client, workerJobID string) (status string, result *SubmitResult, jobErr, step, detail string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/jobs/%s", p.BaseURL, workerJobID), nil)
	if err != nil {
		return "", nil, "", "", "", err
	}
	if p.WorkerToken != "" {
		req.Header.Set("X-Worker-Token", p.WorkerToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", nil, "", "", "", fmt.Errorf("transport error: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body pollResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", nil, "", "", "", fmt.Errorf("decode poll response: %w", err)
		}
		return body.Status, body.Result, body.Error, body.ProgressStep, body.ProgressDetail, nil
	case http.StatusNotFound:
		return "", nil, "", "", "", ErrWorkerLost
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", nil, "", "", "", ErrAuthFailure
	default:
		return "", nil, "", "", "", fmt.Errorf("unexpected poll status HTTP %d", resp.StatusCode)
	}
}

func isTerminalPollError(err error) bool {
	switch {
	case err == ErrWorkerLost, err == ErrAuthFailure:
		return true
	default:
		return false
	}
}

func buildMultipart(micPath, tabPath string, metadata map[string]any) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	if micPath != "" {
		if err := attachFile(w, "mic_file", micPath); err != nil {
			return nil, "", err
		}
	}
	if tabPath != "" {
		if err := attachFile(w, "tab_file", tabPath); err != nil {
			return nil, "", err
		}
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, "", fmt.Errorf("marshal metadata: %w", err)
	}
	if err := w.WriteField("metadata", string(metadataJSON)); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf, w.FormDataContentType(), nil
}

func attachFile(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}
