package gpuclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meetscribe/meetscribe/pkg/gpuclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempAudioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mic.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF....WAVEfmt "), 0o600))
	return path
}

func TestSubmitPoller_HappyPathAsyncWorker(t *testing.T) {
	var polls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "abc"})
	})
	mux.HandleFunc("/jobs/abc", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&polls, 1)
		if n == 1 {
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "processing", "progress_step": "transcribing_tab"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "completed",
			"result": gpuclient.SubmitResult{
				Segments:  []gpuclient.SegmentPayload{{Speaker: "Speaker 1", Text: "hi", Start: 0, End: 1.2}},
				Formatted: "[00:00:00] Speaker 1: hi",
				Stats:     map[string]any{"total_segments": 1},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	poller := gpuclient.NewSubmitPoller(srv.URL, "", time.Second, 5*time.Second, 20*time.Millisecond)
	jobID, result, err := poller.Submit(context.Background(), tempAudioFile(t), "", map[string]any{})
	require.NoError(t, err)
	require.Nil(t, result)
	require.Equal(t, "abc", jobID)

	final, err := poller.Poll(context.Background(), jobID)
	require.NoError(t, err)
	require.True(t, final.Success)
	assert.Len(t, final.Segments, 1)
	assert.Equal(t, "hi", final.Segments[0].Text)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&polls), int32(2))
}

func TestSubmitPoller_LegacySynchronousWorkerSkipsPolling(t *testing.T) {
	pollCalled := false
	mux := http.NewServeMux()
	mux.HandleFunc("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(gpuclient.SubmitResult{
			Segments:  []gpuclient.SegmentPayload{{Speaker: "Speaker 1", Text: "hi", Start: 0, End: 1}},
			Formatted: "[00:00:00] Speaker 1: hi",
		})
	})
	mux.HandleFunc("/jobs/", func(w http.ResponseWriter, r *http.Request) {
		pollCalled = true
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	poller := gpuclient.NewSubmitPoller(srv.URL, "", time.Second, 5*time.Second, 20*time.Millisecond)
	jobID, result, err := poller.Submit(context.Background(), tempAudioFile(t), "", map[string]any{})
	require.NoError(t, err)
	require.Empty(t, jobID)
	require.NotNil(t, result)
	assert.False(t, pollCalled)
}

func TestSubmitPoller_WorkerRestartMidJobReturnsWorkerLost(t *testing.T) {
	var polls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "x"})
	})
	mux.HandleFunc("/jobs/x", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&polls, 1)
		if n == 1 {
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "processing"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	poller := gpuclient.NewSubmitPoller(srv.URL, "", time.Second, 5*time.Second, 10*time.Millisecond)
	jobID, _, err := poller.Submit(context.Background(), tempAudioFile(t), "", nil)
	require.NoError(t, err)

	_, err = poller.Poll(context.Background(), jobID)
	require.ErrorIs(t, err, gpuclient.ErrWorkerLost)
}

func TestSubmitPoller_PollTimeoutReturnsWorkerTimeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "slow"})
	})
	mux.HandleFunc("/jobs/slow", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "processing"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	poller := gpuclient.NewSubmitPoller(srv.URL, "", time.Second, 200*time.Millisecond, 50*time.Millisecond)
	jobID, _, err := poller.Submit(context.Background(), tempAudioFile(t), "", nil)
	require.NoError(t, err)

	_, err = poller.Poll(context.Background(), jobID)
	require.ErrorIs(t, err, gpuclient.ErrWorkerTimeout)
}

func TestSubmitPoller_AuthFailureOnPollFailsFastWithOneAttempt(t *testing.T) {
	var polls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "secure"})
	})
	mux.HandleFunc("/jobs/secure", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&polls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	poller := gpuclient.NewSubmitPoller(srv.URL, "", time.Second, 5*time.Second, 10*time.Millisecond)
	jobID, _, err := poller.Submit(context.Background(), tempAudioFile(t), "", nil)
	require.NoError(t, err)

	_, err = poller.Poll(context.Background(), jobID)
	require.ErrorIs(t, err, gpuclient.ErrAuthFailure)
	assert.Equal(t, int32(1), atomic.LoadInt32(&polls))
}

func TestSubmitPoller_SubmitRejectedOnNon200Non202(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	poller := gpuclient.NewSubmitPoller(srv.URL, "", time.Second, 5*time.Second, 10*time.Millisecond)
	_, _, err := poller.Submit(context.Background(), tempAudioFile(t), "", nil)
	require.ErrorIs(t, err, gpuclient.ErrSubmitRejected)
}
