// Package calendar implements the Calendar capability with durable,
// database-backed events.
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/models"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/pipeline"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Deadline defaulting policy lives here, not in the pipeline: a task
// with no parseable deadline gets an event one week out.
const defaultDeadlineDays = 7

// Service persists calendar events for extracted tasks.
// Safe for concurrent use across meetings.
type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewService creates a calendar service backed by the given database
func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// SyncTasks creates one calendar event per task and back-fills each
// task's calendar_event_id.
func (s *Service) SyncTasks(ctx context.Context, tasks []models.Task, meetingTitle string) (*pipeline.CalendarSyncResult, error) {
	created := 0
	for _, task := range tasks {
		event, err := s.createEvent(ctx, task, meetingTitle)
		if err != nil {
			return nil, fmt.Errorf("calendar sync error: %w", err)
		}

		eventID := event.ID.String()
		if err := s.db.WithContext(ctx).Model(&models.Task{}).
			Where("id = ?", task.ID).
			Update("calendar_event_id", eventID).Error; err != nil {
			return nil, fmt.Errorf("calendar sync error: %w", err)
		}
		created++
	}

	s.logger.Info("Created calendar events", "count", created, "meeting_title", meetingTitle)
	return &pipeline.CalendarSyncResult{EventsCreated: created}, nil
}

func (s *Service) createEvent(ctx context.Context, task models.Task, meetingTitle string) (*models.CalendarEvent, error) {
	deadline := time.Now().UTC().AddDate(0, 0, defaultDeadlineDays)
	if task.Deadline != nil {
		deadline = *task.Deadline
	}
	// Default slot: one hour starting at 09:00 on the deadline day
	start := time.Date(deadline.Year(), deadline.Month(), deadline.Day(), 9, 0, 0, 0, deadline.Location())
	end := start.Add(time.Hour)

	event := models.CalendarEvent{
		TaskID:       task.ID,
		MeetingTitle: meetingTitle,
		Title:        task.Title,
		Description:  formatDescription(task, meetingTitle),
		StartTime:    start,
		EndTime:      end,
		AllDay:       false,
		Priority:     task.Priority,
		AssignedTo:   task.AssignedTo,
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// UpdateTaskStatus mirrors a task status change onto its calendar
// events. Called by the task CRUD surface, not by the pipeline.
func (s *Service) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status string) error {
	result := s.db.WithContext(ctx).Model(&models.CalendarEvent{}).
		Where("task_id = ?", taskID).
		Updates(map[string]interface{}{
			"description": gorm.Expr("description || ?", fmt.Sprintf("\nStatus: %s", strings.ToUpper(status))),
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update calendar event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no calendar event for task %s", taskID)
	}
	return nil
}

// DeleteTaskEvents removes all events created for a task and reports how
// many were deleted.
func (s *Service) DeleteTaskEvents(ctx context.Context, taskID uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Delete(&models.CalendarEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete calendar events: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// UpcomingEvents lists events starting within the next daysAhead days,
// ordered by start time.
func (s *Service) UpcomingEvents(ctx context.Context, daysAhead int) ([]models.CalendarEvent, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, daysAhead)
	var events []models.CalendarEvent
	err := s.db.WithContext(ctx).
		Where("start_time <= ?", cutoff).
		Order("start_time ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming events: %w", err)
	}
	return events, nil
}

func formatDescription(task models.Task, meetingTitle string) string {
	assignee := task.AssignedTo
	if assignee == "" {
		assignee = "Unassigned"
	}
	parts := []string{
		fmt.Sprintf("Task from meeting: %s", meetingTitle),
		"",
		fmt.Sprintf("Description: %s", task.Description),
		fmt.Sprintf("Assigned to: %s", assignee),
		fmt.Sprintf("Priority: %s", strings.ToUpper(task.Priority)),
		fmt.Sprintf("Status: %s", strings.ToUpper(task.Status)),
	}
	return strings.Join(parts, "\n")
}
