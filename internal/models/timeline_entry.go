package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TimelineEntry is a single event extracted from the transcript,
// positioned by a fractional minute offset into the meeting. Entries are
// written in bulk by the analysis stage and never updated afterwards;
// display order is always by TimestampMinutes.
type TimelineEntry struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MeetingID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"meeting_id"`
	Timestamp        string         `json:"timestamp"` // "mm:ss" label as produced by the extractor
	TimestampMinutes float64        `gorm:"not null" json:"timestamp_minutes"`
	EventType        string         `gorm:"not null" json:"event_type"` // discussion, decision, task_assignment, question, action_item, presentation
	Title            string         `gorm:"not null" json:"title"`
	Content          string         `gorm:"type:text" json:"content"`
	Participants     datatypes.JSON `json:"participants"`
	CreatedAt        time.Time      `json:"created_at"`
}

// BeforeCreate assigns a UUID primary key when one is not provided
func (e *TimelineEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
