package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrMeetingNotFound is returned when status is queried for an unknown meeting.
var ErrMeetingNotFound = errors.New("meeting not found")

// StageProgress is one stage row of a progress report.
type StageProgress struct {
	Stage        string     `json:"step"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// StatusReport assembles a meeting with its stage rows for polling clients.
type StatusReport struct {
	MeetingID     uuid.UUID       `json:"meeting_id"`
	MeetingStatus string          `json:"meeting_status"`
	Title         string          `json:"title"`
	CreatedAt     time.Time       `json:"created_at"`
	Stages        []StageProgress `json:"processing_steps"`
}

// StatusService is the read path for pipeline progress. It never mutates
// pipeline state and may be called concurrently with an in-flight run.
type StatusService struct {
	db       *gorm.DB
	statuses *StatusStore
}

// NewStatusService creates a StatusService backed by the given database
func NewStatusService(db *gorm.DB) *StatusService {
	return &StatusService{db: db, statuses: NewStatusStore(db)}
}

// GetStatus returns the progress report for a meeting. A meeting with no
// stage rows yet yields an empty (non-nil) stage list so pollers in the
// window between meeting creation and stage initialization see "not yet
// started" rather than an error.
func (s *StatusService) GetStatus(ctx context.Context, meetingID uuid.UUID) (*StatusReport, error) {
	var meeting models.Meeting
	if err := s.db.WithContext(ctx).First(&meeting, "id = ?", meetingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, fmt.Errorf("failed to load meeting: %w", err)
	}

	rows, err := s.statuses.ListForMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	stages := make([]StageProgress, 0, len(rows))
	for _, row := range rows {
		started := row.StartedAt
		stages = append(stages, StageProgress{
			Stage:        row.Stage,
			Status:       row.Status,
			Progress:     row.Progress,
			ErrorMessage: row.ErrorMessage,
			StartedAt:    &started,
			CompletedAt:  row.CompletedAt,
		})
	}

	return &StatusReport{
		MeetingID:     meeting.ID,
		MeetingStatus: meeting.Status,
		Title:         meeting.Title,
		CreatedAt:     meeting.CreatedAt,
		Stages:        stages,
	}, nil
}
