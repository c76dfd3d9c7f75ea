package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// deadlineLayout is the only calendar-date format the pipeline accepts
// from the extractor. Anything else leaves the deadline null; defaulting
// policy belongs to the calendar adapter, not persistence.
const deadlineLayout = "2006-01-02"

// Orchestrator drives the four processing stages in fixed order,
// persisting stage outputs and progress as it goes.
//
// Failure policy: transcription, AI analysis, and task extraction are
// hard stages whose failure marks the meeting failed and stops the run.
// Calendar sync and summary generation are soft: their failures are
// recorded and bypassed. Notification failures are swallowed entirely.
type Orchestrator struct {
	db          *gorm.DB
	statuses    *StatusStore
	transcriber Transcriber
	extractor   Extractor
	calendar    Calendar
	notifier    Notifier
	logger      *slog.Logger
}

// NewOrchestrator wires an Orchestrator with its four capabilities.
// All capabilities are required except notifier, which may be nil when
// email delivery is not configured.
func NewOrchestrator(db *gorm.DB, transcriber Transcriber, extractor Extractor, calendar Calendar, notifier Notifier, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		db:          db,
		statuses:    NewStatusStore(db),
		transcriber: transcriber,
		extractor:   extractor,
		calendar:    calendar,
		notifier:    notifier,
		logger:      logger,
	}
}

// Run executes the full pipeline for one meeting. It is invoked exactly
// once per meeting, after the meeting record and its pending stage rows
// exist. Run never returns an error and never panics: any fault leaves
// the meeting in a terminal status, never dangling at processing.
//
// Cancellation is not supported mid-pipeline. The caller's context is
// detached from its cancelation so a dropped upload connection cannot
// abort stage writes, in particular the failure write itself.
func (o *Orchestrator) Run(ctx context.Context, meetingID uuid.UUID, audioURL, title string) {
	ctx = context.WithoutCancel(ctx)
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Pipeline panic recovered",
				"meeting_id", meetingID,
				"panic", fmt.Sprint(r),
			)
			o.markMeetingFailed(ctx, meetingID)
		}
	}()

	if err := o.process(ctx, meetingID, audioURL, title); err != nil {
		o.logger.Error("Pipeline failed",
			"meeting_id", meetingID,
			"error", err.Error(),
		)
		o.markMeetingFailed(ctx, meetingID)
	}
}

// process runs the hard stages, the soft stages, and finalization.
// A returned error means a hard stage failed.
func (o *Orchestrator) process(ctx context.Context, meetingID uuid.UUID, audioURL, title string) error {
	// Stage 1: transcription
	o.logger.Info("Starting transcription", "meeting_id", meetingID)
	o.updateStatus(ctx, meetingID, models.StageTranscription, models.StageStatusProcessing, 10, "")

	transcription, err := o.transcriber.Transcribe(ctx, audioURL)
	if err != nil {
		o.updateStatus(ctx, meetingID, models.StageTranscription, models.StageStatusFailed, 0, err.Error())
		return fmt.Errorf("transcription failed: %w", err)
	}

	if err := o.db.WithContext(ctx).Model(&models.Meeting{}).
		Where("id = ?", meetingID).
		Updates(map[string]interface{}{
			"transcript": transcription.Transcript,
			"duration":   transcription.DurationSeconds,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
		o.updateStatus(ctx, meetingID, models.StageTranscription, models.StageStatusFailed, 0, err.Error())
		return fmt.Errorf("failed to persist transcript: %w", err)
	}

	o.updateStatus(ctx, meetingID, models.StageTranscription, models.StageStatusCompleted, 100, "")
	o.logger.Info("Transcription completed", "meeting_id", meetingID, "duration_seconds", transcription.DurationSeconds)

	// Stage 2: AI analysis (timeline)
	o.logger.Info("Starting AI analysis", "meeting_id", meetingID)
	o.updateStatus(ctx, meetingID, models.StageAIAnalysis, models.StageStatusProcessing, 20, "")

	timeline, err := o.extractor.ExtractTimeline(ctx, transcription.Transcript, transcription.DurationSeconds)
	if err != nil {
		o.updateStatus(ctx, meetingID, models.StageAIAnalysis, models.StageStatusFailed, 0, err.Error())
		return fmt.Errorf("timeline extraction failed: %w", err)
	}

	if err := o.persistTimeline(ctx, meetingID, timeline); err != nil {
		o.updateStatus(ctx, meetingID, models.StageAIAnalysis, models.StageStatusFailed, 0, err.Error())
		return fmt.Errorf("failed to persist timeline: %w", err)
	}

	o.updateStatus(ctx, meetingID, models.StageAIAnalysis, models.StageStatusCompleted, 100, "")
	o.logger.Info("AI analysis completed", "meeting_id", meetingID, "entries", len(timeline.Entries))

	// Stage 3: task extraction
	o.logger.Info("Starting task extraction", "meeting_id", meetingID)
	o.updateStatus(ctx, meetingID, models.StageTaskExtraction, models.StageStatusProcessing, 30, "")

	taskData, err := o.extractor.ExtractTasks(ctx, transcription.Transcript, timeline)
	if err != nil {
		o.updateStatus(ctx, meetingID, models.StageTaskExtraction, models.StageStatusFailed, 0, err.Error())
		return fmt.Errorf("task extraction failed: %w", err)
	}

	tasks, err := o.persistTasks(ctx, meetingID, taskData)
	if err != nil {
		o.updateStatus(ctx, meetingID, models.StageTaskExtraction, models.StageStatusFailed, 0, err.Error())
		return fmt.Errorf("failed to persist tasks: %w", err)
	}

	o.updateStatus(ctx, meetingID, models.StageTaskExtraction, models.StageStatusCompleted, 100, "")
	o.logger.Info("Task extraction completed", "meeting_id", meetingID, "tasks", len(tasks))

	// Stage 4: calendar sync (soft, record outcome and continue regardless)
	o.logger.Info("Starting calendar sync", "meeting_id", meetingID)
	o.updateStatus(ctx, meetingID, models.StageCalendarSync, models.StageStatusProcessing, 40, "")

	if len(tasks) == 0 {
		o.updateStatus(ctx, meetingID, models.StageCalendarSync, models.StageStatusCompleted, 100, "")
		o.logger.Info("Calendar sync completed (no tasks to sync)", "meeting_id", meetingID)
	} else if syncResult, err := o.calendar.SyncTasks(ctx, tasks, title); err != nil {
		o.updateStatus(ctx, meetingID, models.StageCalendarSync, models.StageStatusFailed, 0, err.Error())
		o.logger.Warn("Calendar sync failed", "meeting_id", meetingID, "error", err.Error())
	} else {
		o.updateStatus(ctx, meetingID, models.StageCalendarSync, models.StageStatusCompleted, 100, "")
		o.logger.Info("Calendar sync completed", "meeting_id", meetingID, "events_created", syncResult.EventsCreated)
	}

	// Summary generation (soft, bypassed on failure like calendar sync)
	summary, err := o.extractor.Summarize(ctx, transcription.Transcript, timeline, taskData)
	if err != nil {
		o.logger.Warn("Summary generation failed", "meeting_id", meetingID, "error", err.Error())
	} else if len(summary) > 0 {
		if err := o.db.WithContext(ctx).Model(&models.Meeting{}).
			Where("id = ?", meetingID).
			Update("summary", datatypes.JSON(summary)).Error; err != nil {
			o.logger.Warn("Failed to persist summary", "meeting_id", meetingID, "error", err.Error())
		}
	}

	// Finalize
	if err := o.db.WithContext(ctx).Model(&models.Meeting{}).
		Where("id = ?", meetingID).
		Updates(map[string]interface{}{
			"status":     models.MeetingStatusCompleted,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
		return fmt.Errorf("failed to finalize meeting: %w", err)
	}
	o.logger.Info("Pipeline finished", "meeting_id", meetingID)

	// Notification failures must never revert the completed status
	o.notify(ctx, meetingID)

	return nil
}

func (o *Orchestrator) persistTimeline(ctx context.Context, meetingID uuid.UUID, timeline *TimelineData) error {
	for _, entry := range timeline.Entries {
		participants, err := json.Marshal(entry.Participants)
		if err != nil {
			return err
		}
		eventType := entry.EventType
		if eventType == "" {
			eventType = "discussion"
		}
		row := models.TimelineEntry{
			MeetingID:        meetingID,
			Timestamp:        entry.Timestamp,
			TimestampMinutes: entry.TimestampMinutes,
			EventType:        eventType,
			Title:            entry.Title,
			Content:          entry.Content,
			Participants:     datatypes.JSON(participants),
		}
		if err := o.db.WithContext(ctx).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) persistTasks(ctx context.Context, meetingID uuid.UUID, taskData []TaskData) ([]models.Task, error) {
	var meeting models.Meeting
	if err := o.db.WithContext(ctx).First(&meeting, "id = ?", meetingID).Error; err != nil {
		return nil, err
	}

	tasks := make([]models.Task, 0, len(taskData))
	for _, data := range taskData {
		row := models.Task{
			MeetingID:   meetingID,
			UserID:      meeting.UserID,
			Title:       data.Title,
			Description: data.Description,
			AssignedTo:  data.AssignedTo,
			Deadline:    parseDeadline(data.Deadline),
			Priority:    defaultString(data.Priority, models.TaskPriorityMedium),
			Status:      defaultString(data.Status, models.TaskStatusPending),
		}
		if err := o.db.WithContext(ctx).Create(&row).Error; err != nil {
			return nil, err
		}
		tasks = append(tasks, row)
	}
	return tasks, nil
}

// notify looks up the owning user's preference and sends the summary
// email. Every failure path is logged and discarded.
func (o *Orchestrator) notify(ctx context.Context, meetingID uuid.UUID) {
	if o.notifier == nil {
		return
	}

	var meeting models.Meeting
	if err := o.db.WithContext(ctx).First(&meeting, "id = ?", meetingID).Error; err != nil {
		o.logger.Warn("Notification skipped: meeting lookup failed", "meeting_id", meetingID, "error", err.Error())
		return
	}
	var user models.User
	if err := o.db.WithContext(ctx).First(&user, "id = ?", meeting.UserID).Error; err != nil {
		o.logger.Warn("Notification skipped: user lookup failed", "meeting_id", meetingID, "error", err.Error())
		return
	}
	if !user.EmailNotifications {
		o.logger.Info("Email notifications disabled for user, skipping", "meeting_id", meetingID, "user_id", user.ID)
		return
	}

	var timeline []models.TimelineEntry
	if err := o.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("timestamp_minutes ASC").
		Find(&timeline).Error; err != nil {
		o.logger.Warn("Notification skipped: timeline lookup failed", "meeting_id", meetingID, "error", err.Error())
		return
	}
	var tasks []models.Task
	if err := o.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("priority DESC, created_at ASC").
		Find(&tasks).Error; err != nil {
		o.logger.Warn("Notification skipped: task lookup failed", "meeting_id", meetingID, "error", err.Error())
		return
	}

	if err := o.notifier.SendMeetingSummary(ctx, user, meeting, timeline, tasks); err != nil {
		o.logger.Warn("Email notification failed", "meeting_id", meetingID, "error", err.Error())
	}
}

func (o *Orchestrator) updateStatus(ctx context.Context, meetingID uuid.UUID, stage, status string, progress int, errMessage string) {
	if err := o.statuses.Update(ctx, meetingID, stage, status, progress, errMessage); err != nil {
		o.logger.Error("Failed to update stage status",
			"meeting_id", meetingID,
			"stage", stage,
			"error", err.Error(),
		)
	}
}

func (o *Orchestrator) markMeetingFailed(ctx context.Context, meetingID uuid.UUID) {
	if err := o.db.WithContext(ctx).Model(&models.Meeting{}).
		Where("id = ?", meetingID).
		Updates(map[string]interface{}{
			"status":     models.MeetingStatusFailed,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
		o.logger.Error("Failed to mark meeting failed", "meeting_id", meetingID, "error", err.Error())
	}
}

// parseDeadline accepts only a plain calendar date and returns nil for
// anything else.
func parseDeadline(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	deadline, err := time.Parse(deadlineLayout, raw)
	if err != nil {
		return nil
	}
	return &deadline
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
