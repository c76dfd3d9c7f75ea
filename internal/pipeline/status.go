package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusStore is the durable record of per-stage progress for a meeting.
type StatusStore struct {
	db *gorm.DB
}

// NewStatusStore creates a StatusStore backed by the given database
func NewStatusStore(db *gorm.DB) *StatusStore {
	return &StatusStore{db: db}
}

// Initialize creates one pending row per stage in a single transaction.
// Must run before the orchestrator starts so that pollers always see a
// complete picture.
func (s *StatusStore) Initialize(ctx context.Context, meetingID uuid.UUID, stages []string) error {
	base := time.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, stage := range stages {
			row := models.StageStatus{
				MeetingID: meetingID,
				Stage:     stage,
				Status:    models.StageStatusPending,
				Progress:  0,
				// Strictly increasing start times keep ListForMeeting's
				// ordering aligned with pipeline order.
				StartedAt: base.Add(time.Duration(i) * time.Microsecond),
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to create %s status row: %w", stage, err)
			}
		}
		return nil
	})
}

// Update is a point update keyed by (meetingID, stage). Re-applying the
// same status is harmless: completed_at is COALESCEd so it is set once,
// on the first transition to completed, and never cleared or moved.
func (s *StatusStore) Update(ctx context.Context, meetingID uuid.UUID, stage, status string, progress int, errMessage string) error {
	updates := map[string]interface{}{
		"status":        status,
		"progress":      progress,
		"error_message": errMessage,
	}
	if status == models.StageStatusCompleted {
		updates["completed_at"] = gorm.Expr("COALESCE(completed_at, ?)", time.Now().UTC())
	}

	result := s.db.WithContext(ctx).
		Model(&models.StageStatus{}).
		Where("meeting_id = ? AND stage = ?", meetingID, stage).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update %s status: %w", stage, result.Error)
	}
	return nil
}

// ListForMeeting returns all stage rows for a meeting ordered by start
// time. Rows are created before the pipeline begins, so this matches
// pipeline order.
func (s *StatusStore) ListForMeeting(ctx context.Context, meetingID uuid.UUID) ([]models.StageStatus, error) {
	var rows []models.StageStatus
	err := s.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("started_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stage statuses: %w", err)
	}
	return rows, nil
}
