package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification type constants
const (
	NotificationTypeMeetingSummary = "meeting_summary"
	NotificationTypeTaskReminder   = "task_reminder"
)

// Notification is a delivery-history row for user-facing notifications.
// The pipeline records one per attempted summary email; the reminder
// worker records one per reminder batch.
type Notification struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Type        string     `gorm:"not null" json:"type"`
	Title       string     `gorm:"not null" json:"title"`
	Message     string     `gorm:"type:text;not null" json:"message"`
	EmailSent   bool       `gorm:"not null;default:false" json:"email_sent"`
	EmailSentAt *time.Time `json:"email_sent_at"`
	ReadAt      *time.Time `json:"read_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key when one is not provided
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
