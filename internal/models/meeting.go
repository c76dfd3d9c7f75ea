package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Meeting status constants
const (
	MeetingStatusProcessing = "processing"
	MeetingStatusCompleted  = "completed"
	MeetingStatusFailed     = "failed"
)

// Meeting is the aggregate root for one uploaded recording and the
// artifacts derived from it. Transcript and Summary stay nil until the
// corresponding pipeline stage completes.
type Meeting struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User       User           `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Title      string         `gorm:"not null" json:"title"`
	AudioURL   string         `gorm:"type:text" json:"audio_url"`
	Transcript *string        `gorm:"type:text" json:"transcript"`
	Summary    datatypes.JSON `json:"summary"`
	Status     string         `gorm:"not null;default:'processing';index" json:"status"`
	Duration   int            `json:"duration"` // seconds, measured by the transcriber
	FileSize   int64          `json:"file_size"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`

	// Associations
	StageStatuses   []StageStatus   `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	TimelineEntries []TimelineEntry `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Tasks           []Task          `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

// BeforeCreate assigns a UUID primary key when one is not provided
func (m *Meeting) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
