package workerapi_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/meetscribe/pkg/workerapi"
	"github.com/meetscribe/meetscribe/pkg/workerengine"
	"github.com/meetscribe/meetscribe/pkg/workerpipeline"
)

func newTestServer(workerToken string) *workerapi.Server {
	pipeline := workerpipeline.NewPipeline(workerpipeline.StubTranscriber{Duration: 1}, workerpipeline.StubDiarizer{}, time.Second)
	engine := workerengine.New(pipeline, 10)
	return workerapi.NewServer(engine, workerToken)
}

func TestHandleHealth_ReturnsOKWithoutToken(t *testing.T) {
	s := newTestServer("")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status      string `json:"status"`
		Model       string `json:"model"`
		Locked      bool   `json:"locked"`
		ModelLoaded bool   `json:"model_loaded"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.False(t, body.Locked)
	assert.True(t, body.ModelLoaded)
}

func buildTranscribeRequest(t *testing.T, metadata map[string]any) *http.Request {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	part, err := w.CreateFormFile("mic_file", "mic.wav")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-wav"))
	require.NoError(t, err)

	metaJSON, err := json.Marshal(metadata)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("metadata", string(metaJSON)))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/transcribe", buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHandleTranscribe_AcceptsUploadAndReturnsJobID(t *testing.T) {
	s := newTestServer("")
	req := buildTranscribeRequest(t, map[string]any{"title": "standup", "local_speaker": "Me"})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.JobID)
}

func TestHandleTranscribe_RejectsRequestWithNoFiles(t *testing.T) {
	s := newTestServer("")
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	require.NoError(t, w.WriteField("metadata", "{}"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/transcribe", buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTranscribe_RequiresWorkerTokenWhenConfigured(t *testing.T) {
	s := newTestServer("secret")
	req := buildTranscribeRequest(t, map[string]any{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req2 := buildTranscribeRequest(t, map[string]any{})
	req2.Header.Set("X-Worker-Token", "secret")
	rec2 := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusAccepted, rec2.Code)
}

func TestHandleTranscribe_HonorsMetadataJobID(t *testing.T) {
	s := newTestServer("")
	req := buildTranscribeRequest(t, map[string]any{"job_id": "caller-chosen-id"})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "caller-chosen-id", body.JobID)
}

func TestHandleGetJob_UnknownIDReturns404(t *testing.T) {
	s := newTestServer("")
	req := httptest.NewRequest(http.MethodGet, "/jobs/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetJob_EventuallyReportsCompletedWithResult(t *testing.T) {
	s := newTestServer("")
	req := buildTranscribeRequest(t, map[string]any{"local_speaker": "Me"})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var submitResp struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitResp))

	deadline := time.Now().Add(2 * time.Second)
	var pollResp struct {
		Status string `json:"status"`
		Result *struct {
			Success  bool `json:"success"`
			Segments []struct {
				Speaker string `json:"speaker"`
			} `json:"segments"`
		} `json:"result"`
	}
	for time.Now().Before(deadline) {
		pollReq := httptest.NewRequest(http.MethodGet, "/jobs/"+submitResp.JobID, nil)
		pollRec := httptest.NewRecorder()
		s.Handler().ServeHTTP(pollRec, pollReq)
		require.Equal(t, http.StatusOK, pollRec.Code)
		require.NoError(t, json.Unmarshal(pollRec.Body.Bytes(), &pollResp))
		if pollResp.Status == "completed" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	require.Equal(t, "completed", pollResp.Status)
	require.NotNil(t, pollResp.Result)
	assert.True(t, pollResp.Result.Success)
	assert.NotEmpty(t, pollResp.Result.Segments)
}
