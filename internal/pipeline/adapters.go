// Package pipeline sequences the processing stages that turn an
// uploaded meeting recording into a transcript, timeline, task list,
// calendar entries, and an emailed summary.
package pipeline

import (
	"context"
	"encoding/json"

	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/models"
)

// TranscriptionResult is the output of the transcription capability.
type TranscriptionResult struct {
	Transcript      string
	DurationSeconds int
}

// Transcriber converts an uploaded audio file into text.
// Implementations must be safe for concurrent use across meetings.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (*TranscriptionResult, error)
}

// TimelineEntryData is a single extracted timeline event before persistence.
type TimelineEntryData struct {
	Timestamp        string   `json:"timestamp"`
	TimestampMinutes float64  `json:"timestamp_minutes"`
	EventType        string   `json:"event_type"`
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	Participants     []string `json:"participants"`
}

// TimelineData is the full analysis output for one transcript.
type TimelineData struct {
	Entries      []TimelineEntryData `json:"timeline"`
	Summary      string              `json:"summary"`
	KeyDecisions []string            `json:"key_decisions"`
	ActionItems  []string            `json:"action_items"`
}

// TaskData is a single proposed task before persistence. Deadline is the
// raw string from the extractor; the orchestrator parses it and leaves
// the persisted deadline null when it is not a plain calendar date.
type TaskData struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssignedTo  string `json:"assigned_to"`
	Deadline    string `json:"deadline"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
}

// Extractor derives structured artifacts from a transcript.
// Implementations must be safe for concurrent use across meetings.
type Extractor interface {
	ExtractTimeline(ctx context.Context, transcript string, durationSeconds int) (*TimelineData, error)
	ExtractTasks(ctx context.Context, transcript string, timeline *TimelineData) ([]TaskData, error)
	Summarize(ctx context.Context, transcript string, timeline *TimelineData, tasks []TaskData) (json.RawMessage, error)
}

// CalendarSyncResult reports how many calendar events were created.
type CalendarSyncResult struct {
	EventsCreated int
}

// Calendar creates calendar entries for persisted tasks.
type Calendar interface {
	SyncTasks(ctx context.Context, tasks []models.Task, meetingTitle string) (*CalendarSyncResult, error)
}

// Notifier delivers the post-pipeline meeting summary to the owning user.
type Notifier interface {
	SendMeetingSummary(ctx context.Context, user models.User, meeting models.Meeting, timeline []models.TimelineEntry, tasks []models.Task) error
}
