package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task priority constants
const (
	TaskPriorityHigh   = "high"
	TaskPriorityMedium = "medium"
	TaskPriorityLow    = "low"
)

// Task status constants
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
)

// Task is an actionable item extracted from a meeting. The owning user
// is denormalized from the meeting so tasks remain a general-purpose
// to-do list that users can edit independently of pipeline state.
type Task struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	MeetingID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"meeting_id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Title           string     `gorm:"not null" json:"title"`
	Description     string     `gorm:"type:text" json:"description"`
	AssignedTo      string     `json:"assigned_to"` // free text; "Unassigned" allowed
	Deadline        *time.Time `json:"deadline"`
	Priority        string     `gorm:"not null;default:'medium'" json:"priority"`
	Status          string     `gorm:"not null;default:'pending'" json:"status"`
	CalendarEventID *string    `json:"calendar_event_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key when one is not provided
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
