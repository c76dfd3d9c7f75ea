package auth

import (
	"log"
	"net/http"
	"time"

	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/models"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"
	"gorm.io/gorm"
)

// HandleLogin initiates the Google OAuth flow
func HandleLogin(c *gin.Context) {
	// Gothic requires the "provider" query parameter
	q := c.Request.URL.Query()
	q.Add("provider", "google")
	c.Request.URL.RawQuery = q.Encode()

	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// HandleCallback completes the OAuth flow, upserts the user and their
// auth identity, and stores the user id in the session.
func HandleCallback(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Request.URL.Query()
		q.Add("provider", "google")
		c.Request.URL.RawQuery = q.Encode()

		gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
		if err != nil {
			log.Printf("Auth error: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
			return
		}

		now := time.Now().UTC()
		var user models.User
		result := db.Where("email = ?", gothUser.Email).First(&user)
		switch {
		case result.Error == gorm.ErrRecordNotFound:
			user = models.User{
				Email:       gothUser.Email,
				Name:        gothUser.Name,
				LastLoginAt: &now,
			}
			if err := db.Create(&user).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
				return
			}
		case result.Error == nil:
			db.Model(&user).Updates(map[string]interface{}{
				"name":          gothUser.Name,
				"last_login_at": now,
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up user"})
			return
		}

		// Upsert the OAuth identity; tokens are encrypted by the model hooks
		identity := models.AuthIdentity{
			UserID:         user.ID,
			Provider:       "google",
			ProviderUserID: gothUser.UserID,
			AccessToken:    gothUser.AccessToken,
			RefreshToken:   gothUser.RefreshToken,
		}
		if !gothUser.ExpiresAt.IsZero() {
			expiry := gothUser.ExpiresAt
			identity.TokenExpiry = &expiry
		}
		var existing models.AuthIdentity
		lookup := db.Where("provider = ? AND provider_user_id = ?", "google", gothUser.UserID).First(&existing)
		if lookup.Error == gorm.ErrRecordNotFound {
			db.Create(&identity)
		} else if lookup.Error == nil {
			identity.ID = existing.ID
			db.Save(&identity)
		}

		session := sessions.Default(c)
		session.Set("user_id", user.ID.String())
		session.Set("user_email", user.Email)
		session.Set("user_name", user.Name)
		if err := session.Save(); err != nil {
			log.Printf("Session save error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
			return
		}

		log.Printf("User authenticated: %s (%s)", user.Name, user.Email)
		c.JSON(http.StatusOK, gin.H{
			"user_id": user.ID,
			"email":   user.Email,
			"name":    user.Name,
		})
	}
}

// HandleLogout clears the session
func HandleLogout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()

	if err := session.Save(); err != nil {
		log.Printf("Session clear error: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetProfileHandler returns the authenticated user's profile and
// notification preferences.
func GetProfileHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c, db)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":                   user.ID,
			"email":                user.Email,
			"name":                 user.Name,
			"email_notifications":  user.EmailNotifications,
			"in_app_notifications": user.InAppNotifications,
		})
	}
}

// UpdateProfileHandler updates name and notification preferences
func UpdateProfileHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c, db)
		if !ok {
			return
		}

		var body struct {
			Name               *string `json:"name"`
			EmailNotifications *bool   `json:"email_notifications"`
			InAppNotifications *bool   `json:"in_app_notifications"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		updates := map[string]interface{}{}
		if body.Name != nil {
			updates["name"] = *body.Name
		}
		if body.EmailNotifications != nil {
			updates["email_notifications"] = *body.EmailNotifications
		}
		if body.InAppNotifications != nil {
			updates["in_app_notifications"] = *body.InAppNotifications
		}
		if len(updates) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no valid fields to update"})
			return
		}

		if err := db.Model(&user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
