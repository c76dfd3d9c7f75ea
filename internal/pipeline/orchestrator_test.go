package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Meeting{},
		&models.StageStatus{},
		&models.TimelineEntry{},
		&models.Task{},
		&models.CalendarEvent{},
		&models.Notification{},
	)
	require.NoError(t, err)

	return db
}

func newTestMeeting(t *testing.T, db *gorm.DB) models.Meeting {
	t.Helper()

	user := models.User{Email: "owner@example.com", Name: "Owner", EmailNotifications: true}
	require.NoError(t, db.Create(&user).Error)

	meeting := models.Meeting{
		UserID:   user.ID,
		Title:    "Sprint Planning",
		AudioURL: "https://files.example.com/audio/recording.mp3",
		Status:   models.MeetingStatusProcessing,
	}
	require.NoError(t, db.Create(&meeting).Error)

	store := NewStatusStore(db)
	require.NoError(t, store.Initialize(context.Background(), meeting.ID, models.PipelineStages))

	return meeting
}

type stubTranscriber struct {
	result *TranscriptionResult
	err    error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audioURL string) (*TranscriptionResult, error) {
	return s.result, s.err
}

type stubExtractor struct {
	timeline    *TimelineData
	timelineErr error
	tasks       []TaskData
	tasksErr    error
	summary     json.RawMessage
	summaryErr  error
}

func (s *stubExtractor) ExtractTimeline(ctx context.Context, transcript string, durationSeconds int) (*TimelineData, error) {
	return s.timeline, s.timelineErr
}

func (s *stubExtractor) ExtractTasks(ctx context.Context, transcript string, timeline *TimelineData) ([]TaskData, error) {
	return s.tasks, s.tasksErr
}

func (s *stubExtractor) Summarize(ctx context.Context, transcript string, timeline *TimelineData, tasks []TaskData) (json.RawMessage, error) {
	return s.summary, s.summaryErr
}

type stubCalendar struct {
	result *CalendarSyncResult
	err    error
	calls  int
}

func (s *stubCalendar) SyncTasks(ctx context.Context, tasks []models.Task, meetingTitle string) (*CalendarSyncResult, error) {
	s.calls++
	return s.result, s.err
}

type stubNotifier struct {
	err   error
	calls int
}

func (s *stubNotifier) SendMeetingSummary(ctx context.Context, user models.User, meeting models.Meeting, timeline []models.TimelineEntry, tasks []models.Task) error {
	s.calls++
	return s.err
}

type panicExtractor struct {
	stubExtractor
}

func (p *panicExtractor) ExtractTimeline(ctx context.Context, transcript string, durationSeconds int) (*TimelineData, error) {
	panic("extractor blew up")
}

func happyExtractor() *stubExtractor {
	return &stubExtractor{
		timeline: &TimelineData{
			Entries: []TimelineEntryData{
				{Timestamp: "02:30", TimestampMinutes: 2.5, EventType: "decision", Title: "Ship Friday", Content: "Release agreed", Participants: []string{"Ana", "Raj"}},
				{Timestamp: "10:00", TimestampMinutes: 10, Title: "Budget review", Content: "Q3 numbers"},
			},
			Summary:      "Planning session",
			KeyDecisions: []string{"Ship Friday"},
		},
		tasks: []TaskData{
			{Title: "Prepare release notes", AssignedTo: "Ana", Deadline: "2024-01-25", Priority: "high"},
			{Title: "Review budget", Deadline: "next sprint"},
		},
		summary: json.RawMessage(`{"overview":"Planning session","key_points":["Ship Friday"]}`),
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stageByName(t *testing.T, db *gorm.DB, meetingID uuid.UUID, stage string) models.StageStatus {
	t.Helper()
	var row models.StageStatus
	require.NoError(t, db.First(&row, "meeting_id = ? AND stage = ?", meetingID, stage).Error)
	return row
}

func TestPipelineHappyPath(t *testing.T) {
	db := newTestDB(t)
	meeting := newTestMeeting(t, db)

	transcriber := &stubTranscriber{result: &TranscriptionResult{Transcript: "full transcript text", DurationSeconds: 1800}}
	extractor := happyExtractor()
	cal := &stubCalendar{result: &CalendarSyncResult{EventsCreated: 2}}
	notifier := &stubNotifier{}

	o := NewOrchestrator(db, transcriber, extractor, cal, notifier, quietLogger())
	o.Run(context.Background(), meeting.ID, meeting.AudioURL, meeting.Title)

	var updated models.Meeting
	require.NoError(t, db.First(&updated, "id = ?", meeting.ID).Error)
	assert.Equal(t, models.MeetingStatusCompleted, updated.Status)
	require.NotNil(t, updated.Transcript)
	assert.Equal(t, "full transcript text", *updated.Transcript)
	assert.Equal(t, 1800, updated.Duration)
	assert.JSONEq(t, `{"overview":"Planning session","key_points":["Ship Friday"]}`, string(updated.Summary))

	for _, stage := range models.PipelineStages {
		row := stageByName(t, db, meeting.ID, stage)
		assert.Equal(t, models.StageStatusCompleted, row.Status, stage)
		assert.Equal(t, 100, row.Progress, stage)
		assert.NotNil(t, row.CompletedAt, stage)
		assert.Empty(t, row.ErrorMessage, stage)
	}

	var timeline []models.TimelineEntry
	require.NoError(t, db.Where("meeting_id = ?", meeting.ID).Order("timestamp_minutes ASC").Find(&timeline).Error)
	require.Len(t, timeline, 2)
	assert.Equal(t, "decision", timeline[0].EventType)
	// Missing event type falls back to discussion
	assert.Equal(t, "discussion", timeline[1].EventType)

	var tasks []models.Task
	require.NoError(t, db.Where("meeting_id = ?", meeting.ID).Order("created_at ASC").Find(&tasks).Error)
	require.Len(t, tasks, 2)
	assert.Equal(t, meeting.UserID, tasks[0].UserID)
	require.NotNil(t, tasks[0].Deadline)
	assert.Equal(t, "2024-01-25", tasks[0].Deadline.Format("2006-01-02"))
	assert.Equal(t, models.TaskPriorityHigh, tasks[0].Priority)
	// Unparseable deadline stays null, defaults fill priority and status
	assert.Nil(t, tasks[1].Deadline)
	assert.Equal(t, models.TaskPriorityMedium, tasks[1].Priority)
	assert.Equal(t, models.TaskStatusPending, tasks[1].Status)

	assert.Equal(t, 1, cal.calls)
	assert.Equal(t, 1, notifier.calls)
}

func TestPipelineTranscriptionFailureIsFatal(t *testing.T) {
	db := newTestDB(t)
	meeting := newTestMeeting(t, db)

	transcriber := &stubTranscriber{err: errors.New("speech service unavailable")}
	extractor := happyExtractor()
	cal := &stubCalendar{result: &CalendarSyncResult{}}
	notifier := &stubNotifier{}

	o := NewOrchestrator(db, transcriber, extractor, cal, notifier, quietLogger())
	o.Run(context.Background(), meeting.ID, meeting.AudioURL, meeting.Title)

	var updated models.Meeting
	require.NoError(t, db.First(&updated, "id = ?", meeting.ID).Error)
	assert.Equal(t, models.MeetingStatusFailed, updated.Status)
	assert.Nil(t, updated.Transcript)

	row := stageByName(t, db, meeting.ID, models.StageTranscription)
	assert.Equal(t, models.StageStatusFailed, row.Status)
	assert.Equal(t, 0, row.Progress)
	assert.Contains(t, row.ErrorMessage, "speech service unavailable")

	// Later stages never start
	for _, stage := range []string{models.StageAIAnalysis, models.StageTaskExtraction, models.StageCalendarSync} {
		row := stageByName(t, db, meeting.ID, stage)
		assert.Equal(t, models.StageStatusPending, row.Status, stage)
	}

	var timelineCount, taskCount int64
	db.Model(&models.TimelineEntry{}).Where("meeting_id = ?", meeting.ID).Count(&timelineCount)
	db.Model(&models.Task{}).Where("meeting_id = ?", meeting.ID).Count(&taskCount)
	assert.Zero(t, timelineCount)
	assert.Zero(t, taskCount)
	assert.Zero(t, cal.calls)
	assert.Zero(t, notifier.calls)
}

func TestPipelineTaskExtractionFailureIsFatal(t *testing.T) {
	db := newTestDB(t)
	meeting := newTestMeeting(t, db)

	transcriber := &stubTranscriber{result: &TranscriptionResult{Transcript: "text", DurationSeconds: 60}}
	extractor := happyExtractor()
	extractor.tasksErr = errors.New("model returned malformed JSON")
	cal := &stubCalendar{}

	o := NewOrchestrator(db, transcriber, extractor, cal, nil, quietLogger())
	o.Run(context.Background(), meeting.ID, meeting.AudioURL, meeting.Title)

	var updated models.Meeting
	require.NoError(t, db.First(&updated, "id = ?", meeting.ID).Error)
	assert.Equal(t, models.MeetingStatusFailed, updated.Status)

	// Earlier stages keep their completed status
	assert.Equal(t, models.StageStatusCompleted, stageByName(t, db, meeting.ID, models.StageTranscription).Status)
	assert.Equal(t, models.StageStatusCompleted, stageByName(t, db, meeting.ID, models.StageAIAnalysis).Status)

	row := stageByName(t, db, meeting.ID, models.StageTaskExtraction)
	assert.Equal(t, models.StageStatusFailed, row.Status)
	assert.Contains(t, row.ErrorMessage, "malformed JSON")

	assert.Equal(t, models.StageStatusPending, stageByName(t, db, meeting.ID, models.StageCalendarSync).Status)
	assert.Zero(t, cal.calls)
}

func TestPipelineCalendarFailureIsBypassed(t *testing.T) {
	db := newTestDB(t)
	meeting := newTestMeeting(t, db)

	transcriber := &stubTranscriber{result: &TranscriptionResult{Transcript: "text", DurationSeconds: 60}}
	extractor := happyExtractor()
	cal := &stubCalendar{err: errors.New("calendar write refused")}
	notifier := &stubNotifier{}

	o := NewOrchestrator(db, transcriber, extractor, cal, notifier, quietLogger())
	o.Run(context.Background(), meeting.ID, meeting.AudioURL, meeting.Title)

	var updated models.Meeting
	require.NoError(t, db.First(&updated, "id = ?", meeting.ID).Error)
	assert.Equal(t, models.MeetingStatusCompleted, updated.Status)

	row := stageByName(t, db, meeting.ID, models.StageCalendarSync)
	assert.Equal(t, models.StageStatusFailed, row.Status)
	assert.Contains(t, row.ErrorMessage, "calendar write refused")

	// Tasks survive the calendar failure and the user is still notified
	var taskCount int64
	db.Model(&models.Task{}).Where("meeting_id = ?", meeting.ID).Count(&taskCount)
	assert.EqualValues(t, 2, taskCount)
	assert.Equal(t, 1, notifier.calls)
}

func TestPipelineSkipsCalendarWithoutTasks(t *testing.T) {
	db := newTestDB(t)
	meeting := newTestMeeting(t, db)

	transcriber := &stubTranscriber{result: &TranscriptionResult{Transcript: "text", DurationSeconds: 60}}
	extractor := happyExtractor()
	extractor.tasks = nil
	cal := &stubCalendar{err: errors.New("should not be called")}

	o := NewOrchestrator(db, transcriber, extractor, cal, nil, quietLogger())
	o.Run(context.Background(), meeting.ID, meeting.AudioURL, meeting.Title)

	assert.Zero(t, cal.calls)
	row := stageByName(t, db, meeting.ID, models.StageCalendarSync)
	assert.Equal(t, models.StageStatusCompleted, row.Status)

	var updated models.Meeting
	require.NoError(t, db.First(&updated, "id = ?", meeting.ID).Error)
	assert.Equal(t, models.MeetingStatusCompleted, updated.Status)
}

func TestPipelineSummaryFailureIsBypassed(t *testing.T) {
	db := newTestDB(t)
	meeting := newTestMeeting(t, db)

	transcriber := &stubTranscriber{result: &TranscriptionResult{Transcript: "text", DurationSeconds: 60}}
	extractor := happyExtractor()
	extractor.summaryErr = errors.New("quota exceeded")

	o := NewOrchestrator(db, transcriber, extractor, &stubCalendar{result: &CalendarSyncResult{}}, nil, quietLogger())
	o.Run(context.Background(), meeting.ID, meeting.AudioURL, meeting.Title)

	var updated models.Meeting
	require.NoError(t, db.First(&updated, "id = ?", meeting.ID).Error)
	assert.Equal(t, models.MeetingStatusCompleted, updated.Status)
	assert.Empty(t, updated.Summary)
}

func TestPipelineNotificationFailureIsSwallowed(t *testing.T) {
	db := newTestDB(t)
	meeting := newTestMeeting(t, db)

	transcriber := &stubTranscriber{result: &TranscriptionResult{Transcript: "text", DurationSeconds: 60}}
	notifier := &stubNotifier{err: errors.New("smtp down")}

	o := NewOrchestrator(db, transcriber, happyExtractor(), &stubCalendar{result: &CalendarSyncResult{}}, notifier, quietLogger())
	o.Run(context.Background(), meeting.ID, meeting.AudioURL, meeting.Title)

	var updated models.Meeting
	require.NoError(t, db.First(&updated, "id = ?", meeting.ID).Error)
	assert.Equal(t, models.MeetingStatusCompleted, updated.Status)
	assert.Equal(t, 1, notifier.calls)
}

func TestPipelineRespectsNotificationOptOut(t *testing.T) {
	db := newTestDB(t)
	meeting := newTestMeeting(t, db)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", meeting.UserID).Update("email_notifications", false).Error)

	transcriber := &stubTranscriber{result: &TranscriptionResult{Transcript: "text", DurationSeconds: 60}}
	notifier := &stubNotifier{}

	o := NewOrchestrator(db, transcriber, happyExtractor(), &stubCalendar{result: &CalendarSyncResult{}}, notifier, quietLogger())
	o.Run(context.Background(), meeting.ID, meeting.AudioURL, meeting.Title)

	assert.Zero(t, notifier.calls)
}

func TestPipelinePanicLeavesMeetingFailed(t *testing.T) {
	db := newTestDB(t)
	meeting := newTestMeeting(t, db)

	transcriber := &stubTranscriber{result: &TranscriptionResult{Transcript: "text", DurationSeconds: 60}}
	extractor := &panicExtractor{}

	o := NewOrchestrator(db, transcriber, extractor, &stubCalendar{}, nil, quietLogger())

	require.NotPanics(t, func() {
		o.Run(context.Background(), meeting.ID, meeting.AudioURL, meeting.Title)
	})

	var updated models.Meeting
	require.NoError(t, db.First(&updated, "id = ?", meeting.ID).Error)
	assert.Equal(t, models.MeetingStatusFailed, updated.Status)
}

func TestPipelineSurvivesCallerCancellation(t *testing.T) {
	db := newTestDB(t)

	t.Run("completes normally", func(t *testing.T) {
		meeting := newTestMeeting(t, db)

		transcriber := &stubTranscriber{result: &TranscriptionResult{Transcript: "text", DurationSeconds: 60}}
		o := NewOrchestrator(db, transcriber, happyExtractor(), &stubCalendar{}, nil, quietLogger())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		o.Run(ctx, meeting.ID, meeting.AudioURL, meeting.Title)

		var updated models.Meeting
		require.NoError(t, db.First(&updated, "id = ?", meeting.ID).Error)
		assert.Equal(t, models.MeetingStatusCompleted, updated.Status)
	})

	t.Run("failure write lands", func(t *testing.T) {
		meeting := newTestMeeting(t, db)

		transcriber := &stubTranscriber{err: errors.New("stt unavailable")}
		o := NewOrchestrator(db, transcriber, happyExtractor(), &stubCalendar{}, nil, quietLogger())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		o.Run(ctx, meeting.ID, meeting.AudioURL, meeting.Title)

		var updated models.Meeting
		require.NoError(t, db.First(&updated, "id = ?", meeting.ID).Error)
		assert.Equal(t, models.MeetingStatusFailed, updated.Status,
			"meeting must reach a terminal status even when the caller is gone")
	})
}

func TestParseDeadline(t *testing.T) {
	deadline := parseDeadline("2024-03-15")
	require.NotNil(t, deadline)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), deadline.UTC())

	assert.Nil(t, parseDeadline(""))
	assert.Nil(t, parseDeadline("next week"))
	assert.Nil(t, parseDeadline("2024-03-15T10:00:00Z"))
	assert.Nil(t, parseDeadline("15/03/2024"))
}
