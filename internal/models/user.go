package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an application user with notification preferences
type User struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email              string     `gorm:"uniqueIndex;not null" json:"email"`
	Name               string     `gorm:"not null;default:''" json:"name"`
	EmailNotifications bool       `gorm:"not null;default:true" json:"email_notifications"`
	InAppNotifications bool       `gorm:"not null;default:true" json:"in_app_notifications"`
	LastLoginAt        *time.Time `json:"last_login_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	// Associations
	AuthIdentities []AuthIdentity `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Meetings       []Meeting      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Tasks          []Task         `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Notifications  []Notification `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

// BeforeCreate assigns a UUID primary key when one is not provided
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
