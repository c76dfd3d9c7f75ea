package models

import (
	"time"

	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/crypto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var encryptor *crypto.TokenEncryptor

// InitEncryption initializes the token encryptor for the models package.
// Must be called before any database operations involving AuthIdentity.
func InitEncryption(encryptionKey string) error {
	var err error
	encryptor, err = crypto.NewTokenEncryptor(encryptionKey)
	return err
}

// AuthIdentity represents a user's OAuth identity with encrypted token storage
type AuthIdentity struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User           User       `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Provider       string     `gorm:"not null;uniqueIndex:idx_auth_identities_provider_user" json:"provider"` // e.g., "google"
	ProviderUserID string     `gorm:"not null;uniqueIndex:idx_auth_identities_provider_user" json:"-"`
	AccessToken    string     `gorm:"type:text" json:"-"` // stored encrypted
	RefreshToken   string     `gorm:"type:text" json:"-"` // stored encrypted
	TokenExpiry    *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// BeforeSave encrypts tokens before saving to database.
// Always encrypts non-empty tokens (GCM produces different output each time due to random nonce).
func (a *AuthIdentity) BeforeSave(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if encryptor == nil {
		// Allow operations without encryption (e.g., for testing or if encryption not initialized)
		return nil
	}

	if a.AccessToken != "" {
		encrypted, err := encryptor.Encrypt(a.AccessToken)
		if err != nil {
			return err
		}
		a.AccessToken = encrypted
	}

	if a.RefreshToken != "" {
		encrypted, err := encryptor.Encrypt(a.RefreshToken)
		if err != nil {
			return err
		}
		a.RefreshToken = encrypted
	}

	return nil
}

// AfterFind decrypts tokens after loading from database
func (a *AuthIdentity) AfterFind(tx *gorm.DB) error {
	if encryptor == nil {
		return nil
	}

	if a.AccessToken != "" {
		decrypted, err := encryptor.Decrypt(a.AccessToken)
		if err != nil {
			return err
		}
		a.AccessToken = decrypted
	}

	if a.RefreshToken != "" {
		decrypted, err := encryptor.Decrypt(a.RefreshToken)
		if err != nil {
			return err
		}
		a.RefreshToken = decrypted
	}

	return nil
}
