package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Pipeline stage names, in execution order
const (
	StageTranscription  = "transcription"
	StageAIAnalysis     = "ai_analysis"
	StageTaskExtraction = "task_extraction"
	StageCalendarSync   = "calendar_sync"
)

// Stage status constants
const (
	StageStatusPending    = "pending"
	StageStatusProcessing = "processing"
	StageStatusCompleted  = "completed"
	StageStatusFailed     = "failed"
)

// PipelineStages lists the stages in the order the orchestrator runs them
var PipelineStages = []string{
	StageTranscription,
	StageAIAnalysis,
	StageTaskExtraction,
	StageCalendarSync,
}

// StageStatus tracks per-stage progress for one meeting. Exactly one row
// exists per (meeting, stage) pair, created pending before the pipeline
// starts. CompletedAt is set on the first transition to completed and is
// never cleared.
type StageStatus struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	MeetingID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_stage_statuses_meeting_stage" json:"meeting_id"`
	Stage        string     `gorm:"not null;uniqueIndex:idx_stage_statuses_meeting_stage" json:"step"`
	Status       string     `gorm:"not null;default:'pending'" json:"status"`
	Progress     int        `gorm:"not null;default:0" json:"progress"` // 0-100, advisory only
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// BeforeCreate assigns a UUID primary key when one is not provided
func (s *StageStatus) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}
	return nil
}
