package frontendapi_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/meetscribe/pkg/dbtest"
	"github.com/meetscribe/meetscribe/pkg/frontendapi"
	"github.com/meetscribe/meetscribe/pkg/gpuclient"
	"github.com/meetscribe/meetscribe/pkg/jobstore"
	"github.com/meetscribe/meetscribe/pkg/meetingstore"
	"github.com/meetscribe/meetscribe/pkg/migrate"
	"github.com/meetscribe/meetscribe/pkg/orchestrator"
)

// fakePoller answers the orchestrator's submit/poll protocol synchronously
// so tests don't depend on a real GPU worker.
type fakePoller struct{ result *gpuclient.SubmitResult }

func (f fakePoller) Submit(context.Context, string, string, map[string]any) (string, *gpuclient.SubmitResult, error) {
	return "", f.result, nil
}

func (f fakePoller) Poll(context.Context, string) (*gpuclient.SubmitResult, error) {
	return f.result, nil
}

type fakeProber struct{ available bool }

func (f fakeProber) IsAvailable(context.Context) bool { return f.available }

func newTestServer(t *testing.T, db *sql.DB, apiToken string) *frontendapi.Server {
	t.Helper()
	require.NoError(t, migrate.Migrate(context.Background(), db))

	orch := orchestrator.New(
		fakeProber{available: true},
		nil,
		fakePoller{result: &gpuclient.SubmitResult{
			Success:   true,
			Formatted: "[00:00:00] Me: hello",
			Segments:  []gpuclient.SegmentPayload{{Speaker: "Me", Text: "hello", Start: 0, End: 1}},
			Stats:     map[string]any{"total_segments": 1},
		}},
		nil,
	)

	return frontendapi.NewServer(frontendapi.Config{
		Meetings:     meetingstore.New(db),
		Jobs:         jobstore.New(db),
		Orchestrator: orch,
		UploadDir:    t.TempDir(),
		APIToken:     apiToken,
	})
}

func buildUploadRequest(t *testing.T, title string) *http.Request {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	part, err := w.CreateFormFile("mic_file", "mic.wav")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-wav"))
	require.NoError(t, err)
	require.NoError(t, w.WriteField("title", title))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHandleUpload_DispatchesAndEventuallyCompletesTranscript(t *testing.T) {
	db := dbtest.Open(t)
	s := newTestServer(t, db, "")

	req := buildUploadRequest(t, "standup")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var uploadResp struct {
		JobID     string `json:"job_id"`
		MeetingID int64  `json:"meeting_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploadResp))
	require.NotEmpty(t, uploadResp.JobID)
	require.NotZero(t, uploadResp.MeetingID)

	deadline := time.Now().Add(2 * time.Second)
	var statusResp struct {
		Status string `json:"status"`
	}
	for time.Now().Before(deadline) {
		statusReq := httptest.NewRequest(http.MethodGet, "/api/status/"+uploadResp.JobID, nil)
		statusRec := httptest.NewRecorder()
		s.Handler().ServeHTTP(statusRec, statusReq)
		require.Equal(t, http.StatusOK, statusRec.Code)
		require.NoError(t, json.Unmarshal(statusRec.Body.Bytes(), &statusResp))
		if statusResp.Status == "completed" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, "completed", statusResp.Status)

	transcriptReq := httptest.NewRequest(http.MethodGet, "/api/transcripts/"+itoa(uploadResp.MeetingID), nil)
	transcriptRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(transcriptRec, transcriptReq)
	require.Equal(t, http.StatusOK, transcriptRec.Code)

	var transcriptResp struct {
		Segments []struct {
			Speaker string `json:"Speaker"`
		} `json:"segments"`
	}
	require.NoError(t, json.Unmarshal(transcriptRec.Body.Bytes(), &transcriptResp))
	require.Len(t, transcriptResp.Segments, 1)
	assert.Equal(t, "Me", transcriptResp.Segments[0].Speaker)
}

func TestHandleUpload_RejectsRequestWithNoFiles(t *testing.T) {
	db := dbtest.Open(t)
	s := newTestServer(t, db, "")

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	require.NoError(t, w.WriteField("title", "empty"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_RequiresBearerTokenWhenConfigured(t *testing.T) {
	db := dbtest.Open(t)
	s := newTestServer(t, db, "secret")

	req := httptest.NewRequest(http.MethodGet, "/api/transcripts", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/api/transcripts", nil)
	req2.Header.Set("Authorization", "Bearer secret")
	rec2 := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestHealth_NeverRequiresAuth(t *testing.T) {
	db := dbtest.Open(t)
	s := newTestServer(t, db, "secret")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlePatchMeeting_UpdatesTitle(t *testing.T) {
	db := dbtest.Open(t)
	s := newTestServer(t, db, "")

	uploadRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(uploadRec, buildUploadRequest(t, "original title"))
	require.Equal(t, http.StatusAccepted, uploadRec.Code)
	var uploadResp struct {
		MeetingID int64 `json:"meeting_id"`
	}
	require.NoError(t, json.Unmarshal(uploadRec.Body.Bytes(), &uploadResp))

	patchBody, err := json.Marshal(map[string]any{"title": "renamed title"})
	require.NoError(t, err)
	patchReq := httptest.NewRequest(http.MethodPatch, "/api/meetings/"+itoa(uploadResp.MeetingID), bytes.NewReader(patchBody))
	patchReq.Header.Set("Content-Type", "application/json")
	patchRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(patchRec, patchReq)
	assert.Equal(t, http.StatusNoContent, patchRec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/api/transcripts/"+itoa(uploadResp.MeetingID), nil)
	getRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(getRec, getReq)
	var getResp struct {
		Meeting struct {
			Title string `json:"Title"`
		} `json:"meeting"`
	}
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &getResp))
	assert.Equal(t, "renamed title", getResp.Meeting.Title)
}

func TestHandleDeleteMeeting_RemovesMeeting(t *testing.T) {
	db := dbtest.Open(t)
	s := newTestServer(t, db, "")

	uploadRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(uploadRec, buildUploadRequest(t, "to be deleted"))
	var uploadResp struct {
		MeetingID int64 `json:"meeting_id"`
	}
	require.NoError(t, json.Unmarshal(uploadRec.Body.Bytes(), &uploadResp))

	delReq := httptest.NewRequest(http.MethodDelete, "/api/meetings/"+itoa(uploadResp.MeetingID), nil)
	delRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(delRec, delReq)
	assert.Equal(t, http.StatusNoContent, delRec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/api/transcripts/"+itoa(uploadResp.MeetingID), nil)
	getRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusNotFound, getRec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
