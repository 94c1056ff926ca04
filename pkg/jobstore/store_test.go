package jobstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meetscribe/meetscribe/pkg/dbtest"
	"github.com/meetscribe/meetscribe/pkg/jobstore"
	"github.com/meetscribe/meetscribe/pkg/meetingstore"
	"github.com/meetscribe/meetscribe/pkg/migrate"
	"github.com/meetscribe/meetscribe/pkg/models"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*jobstore.Store, int64) {
	t.Helper()
	db := dbtest.Open(t)
	require.NoError(t, migrate.Migrate(context.Background(), db))

	meetings := meetingstore.New(db)
	meeting, err := meetings.Create(context.Background(), models.Meeting{Title: "standup", Date: time.Now().UTC()})
	require.NoError(t, err)

	return jobstore.New(db), meeting.ID
}

func TestStore_CreateAndGet(t *testing.T) {
	store, meetingID := newStore(t)
	ctx := context.Background()
	jobID := uuid.NewString()

	created, err := store.Create(ctx, jobID, meetingID)
	require.NoError(t, err)
	require.Equal(t, models.JobQueued, created.Status)

	got, err := store.Get(ctx, jobID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, jobID, got.JobID)
	require.Equal(t, meetingID, got.MeetingID)
}

func TestStore_CreateDuplicateJobIDFails(t *testing.T) {
	store, meetingID := newStore(t)
	ctx := context.Background()
	jobID := uuid.NewString()

	_, err := store.Create(ctx, jobID, meetingID)
	require.NoError(t, err)

	_, err = store.Create(ctx, jobID, meetingID)
	require.ErrorIs(t, err, jobstore.ErrDuplicateJob)
}

func TestStore_GetMissingReturnsNil(t *testing.T) {
	store, _ := newStore(t)
	got, err := store.Get(context.Background(), uuid.NewString())
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStore_UpdateStatusOnMissingJobIsNoop(t *testing.T) {
	store, _ := newStore(t)
	err := store.UpdateStatus(context.Background(), uuid.NewString(), models.JobFailed, nil, "boom")
	require.NoError(t, err)
}

func TestStore_UpdateStatusPersistsResultAndError(t *testing.T) {
	store, meetingID := newStore(t)
	ctx := context.Background()
	jobID := uuid.NewString()
	_, err := store.Create(ctx, jobID, meetingID)
	require.NoError(t, err)

	require.NoError(t, store.UpdateStatus(ctx, jobID, models.JobCompleted, map[string]any{"segments": 3}, ""))

	got, err := store.Get(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, models.JobCompleted, got.Status)
	require.Equal(t, float64(3), got.Result["segments"])
	require.Nil(t, got.Error)

	require.NoError(t, store.UpdateStatus(ctx, jobID, models.JobFailed, nil, "worker lost"))
	got, err = store.Get(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, models.JobFailed, got.Status)
	require.NotNil(t, got.Error)
	require.Equal(t, "worker lost", *got.Error)
}

func TestStore_CleanupOldRemovesOnlyTerminalJobsPastMaxAge(t *testing.T) {
	store, meetingID := newStore(t)
	ctx := context.Background()

	freshID := uuid.NewString()
	_, err := store.Create(ctx, freshID, meetingID)
	require.NoError(t, err)
	require.NoError(t, store.UpdateStatus(ctx, freshID, models.JobCompleted, nil, ""))

	stuckID := uuid.NewString()
	_, err = store.Create(ctx, stuckID, meetingID)
	require.NoError(t, err)
	// Still queued, never reached a terminal state: must survive cleanup
	// regardless of age.

	count, err := store.CleanupOld(ctx, -time.Hour) // everything is "older" than now+1h in the past
	require.NoError(t, err)
	require.Equal(t, 1, count)

	got, err := store.Get(ctx, freshID)
	require.NoError(t, err)
	require.Nil(t, got)

	stillThere, err := store.Get(ctx, stuckID)
	require.NoError(t, err)
	require.NotNil(t, stillThere)
}
