package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusStoreInitialize(t *testing.T) {
	db := newTestDB(t)
	meeting := newTestMeeting(t, db)
	store := NewStatusStore(db)

	rows, err := store.ListForMeeting(context.Background(), meeting.ID)
	require.NoError(t, err)
	require.Len(t, rows, len(models.PipelineStages))

	for i, row := range rows {
		assert.Equal(t, models.PipelineStages[i], row.Stage)
		assert.Equal(t, models.StageStatusPending, row.Status)
		assert.Zero(t, row.Progress)
		assert.Nil(t, row.CompletedAt)
	}

	// One row per stage is enforced by the unique index
	err = store.Initialize(context.Background(), meeting.ID, models.PipelineStages)
	assert.Error(t, err)
}

func TestStatusStoreListOrderMatchesPipelineOrder(t *testing.T) {
	db := newTestDB(t)
	meeting := newTestMeeting(t, db)
	store := NewStatusStore(db)

	rows, err := store.ListForMeeting(context.Background(), meeting.ID)
	require.NoError(t, err)

	for i := 1; i < len(rows); i++ {
		assert.True(t, rows[i-1].StartedAt.Before(rows[i].StartedAt),
			"row %d should start before row %d", i-1, i)
	}
}

func TestStatusStoreUpdate(t *testing.T) {
	db := newTestDB(t)
	meeting := newTestMeeting(t, db)
	store := NewStatusStore(db)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, meeting.ID, models.StageTranscription, models.StageStatusProcessing, 10, ""))

	row := stageByName(t, db, meeting.ID, models.StageTranscription)
	assert.Equal(t, models.StageStatusProcessing, row.Status)
	assert.Equal(t, 10, row.Progress)
	assert.Nil(t, row.CompletedAt)

	require.NoError(t, store.Update(ctx, meeting.ID, models.StageTranscription, models.StageStatusFailed, 0, "upstream timeout"))

	row = stageByName(t, db, meeting.ID, models.StageTranscription)
	assert.Equal(t, models.StageStatusFailed, row.Status)
	assert.Equal(t, "upstream timeout", row.ErrorMessage)

	// Recovery clears the error message
	require.NoError(t, store.Update(ctx, meeting.ID, models.StageTranscription, models.StageStatusCompleted, 100, ""))

	row = stageByName(t, db, meeting.ID, models.StageTranscription)
	assert.Equal(t, models.StageStatusCompleted, row.Status)
	assert.Empty(t, row.ErrorMessage)
	require.NotNil(t, row.CompletedAt)
}

func TestStatusStoreCompletedAtSetOnce(t *testing.T) {
	db := newTestDB(t)
	meeting := newTestMeeting(t, db)
	store := NewStatusStore(db)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, meeting.ID, models.StageAIAnalysis, models.StageStatusCompleted, 100, ""))
	first := stageByName(t, db, meeting.ID, models.StageAIAnalysis).CompletedAt
	require.NotNil(t, first)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.Update(ctx, meeting.ID, models.StageAIAnalysis, models.StageStatusCompleted, 100, ""))

	second := stageByName(t, db, meeting.ID, models.StageAIAnalysis).CompletedAt
	require.NotNil(t, second)
	assert.True(t, first.Equal(*second), "completed_at must not move on repeated completion")
}

func TestStatusStoreUpdateUnknownStageIsNoop(t *testing.T) {
	db := newTestDB(t)
	meeting := newTestMeeting(t, db)
	store := NewStatusStore(db)

	err := store.Update(context.Background(), meeting.ID, "nonexistent", models.StageStatusCompleted, 100, "")
	assert.NoError(t, err)

	rows, err := store.ListForMeeting(context.Background(), meeting.ID)
	require.NoError(t, err)
	for _, row := range rows {
		assert.NotEqual(t, "nonexistent", row.Stage)
	}
}
