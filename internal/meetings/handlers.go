// Package meetings exposes the audio upload and meeting read endpoints.
package meetings

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/auth"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/models"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/pipeline"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxUploadBytes caps audio uploads at 100MB, matching the storage bucket policy.
const maxUploadBytes = 100 << 20

var allowedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".mp4":  true,
	".webm": true,
}

var contentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".webm": "audio/webm",
}

// UploadAudioHandler accepts a multipart recording, stores it, and runs the
// processing pipeline before responding.
func UploadAudioHandler(db *gorm.DB, store *storage.Client, orchestrator *pipeline.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c, db)
		if !ok {
			return
		}

		fileHeader, err := c.FormFile("audio")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is required"})
			return
		}

		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		if !allowedExtensions[ext] {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported file type %q, allowed: mp3, wav, m4a, mp4, webm", ext)})
			return
		}
		if fileHeader.Size > maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds the 100MB limit"})
			return
		}

		title := strings.TrimSpace(c.PostForm("title"))
		if title == "" {
			title = strings.TrimSuffix(fileHeader.Filename, ext)
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
			return
		}
		if len(data) > maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds the 100MB limit"})
			return
		}

		objectPath := fmt.Sprintf("%s/%s%s", user.ID, uuid.New(), ext)
		audioURL, err := store.Upload(c.Request.Context(), objectPath, data, contentTypes[ext])
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to store audio file"})
			return
		}

		meeting := models.Meeting{
			UserID:   user.ID,
			Title:    title,
			AudioURL: audioURL,
			Status:   models.MeetingStatusProcessing,
			FileSize: int64(len(data)),
		}
		if err := db.WithContext(c.Request.Context()).Create(&meeting).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create meeting"})
			return
		}

		// Stage rows must exist before the pipeline starts so status
		// polls never observe a meeting without stages.
		statuses := pipeline.NewStatusStore(db)
		if err := statuses.Initialize(c.Request.Context(), meeting.ID, models.PipelineStages); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initialize pipeline"})
			return
		}

		// Pipeline runs to a terminal status within this request.
		orchestrator.Run(c.Request.Context(), meeting.ID, audioURL, title)

		var processed models.Meeting
		if err := db.First(&processed, "id = ?", meeting.ID).Error; err != nil {
			processed = meeting
		}

		c.JSON(http.StatusOK, gin.H{
			"meeting_id": meeting.ID,
			"title":      title,
			"status":     processed.Status,
		})
	}
}

// GetStatusHandler reports per-stage pipeline progress for a meeting.
func GetStatusHandler(db *gorm.DB, statuses *pipeline.StatusService) gin.HandlerFunc {
	return func(c *gin.Context) {
		meetingID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meeting id"})
			return
		}

		report, err := statuses.GetStatus(c.Request.Context(), meetingID)
		if err != nil {
			if errors.Is(err, pipeline.ErrMeetingNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load status"})
			return
		}

		c.JSON(http.StatusOK, report)
	}
}

type meetingSummary struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Status        string    `json:"status"`
	Duration      int       `json:"duration"`
	TaskCount     int64     `json:"task_count"`
	TimelineCount int64     `json:"timeline_count"`
	CreatedAt     string    `json:"created_at"`
}

// ListMeetingsHandler returns the caller's meetings, newest first, with
// artifact counts for list rendering.
func ListMeetingsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c, db)
		if !ok {
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		if page < 1 {
			page = 1
		}
		perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
		if perPage < 1 || perPage > 100 {
			perPage = 20
		}

		var total int64
		if err := db.Model(&models.Meeting{}).Where("user_id = ?", user.ID).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list meetings"})
			return
		}

		var records []models.Meeting
		err := db.Where("user_id = ?", user.ID).
			Order("created_at DESC").
			Offset((page - 1) * perPage).
			Limit(perPage).
			Find(&records).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list meetings"})
			return
		}

		summaries := make([]meetingSummary, 0, len(records))
		for _, m := range records {
			var taskCount, timelineCount int64
			db.Model(&models.Task{}).Where("meeting_id = ?", m.ID).Count(&taskCount)
			db.Model(&models.TimelineEntry{}).Where("meeting_id = ?", m.ID).Count(&timelineCount)

			summaries = append(summaries, meetingSummary{
				ID:            m.ID,
				Title:         m.Title,
				Status:        m.Status,
				Duration:      m.Duration,
				TaskCount:     taskCount,
				TimelineCount: timelineCount,
				CreatedAt:     m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"meetings": summaries,
			"page":     page,
			"per_page": perPage,
			"total":    total,
		})
	}
}

// GetMeetingHandler returns a meeting with its timeline and tasks.
func GetMeetingHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c, db)
		if !ok {
			return
		}

		meetingID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meeting id"})
			return
		}

		var meeting models.Meeting
		if err := db.First(&meeting, "id = ? AND user_id = ?", meetingID, user.ID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
			return
		}

		var timeline []models.TimelineEntry
		db.Where("meeting_id = ?", meetingID).Order("timestamp_minutes ASC").Find(&timeline)

		var tasks []models.Task
		db.Where("meeting_id = ?", meetingID).Order("created_at ASC").Find(&tasks)

		c.JSON(http.StatusOK, gin.H{
			"meeting":  meeting,
			"timeline": timeline,
			"tasks":    tasks,
		})
	}
}

// DeleteMeetingHandler removes a meeting, its stored audio, and all
// derived rows. The audio delete is best effort; orphaned objects are
// cheaper than a meeting the user cannot remove.
func DeleteMeetingHandler(db *gorm.DB, store *storage.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c, db)
		if !ok {
			return
		}

		meetingID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meeting id"})
			return
		}

		var meeting models.Meeting
		if err := db.First(&meeting, "id = ? AND user_id = ?", meetingID, user.ID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
			return
		}

		if meeting.AudioURL != "" {
			if objectPath := store.ObjectPath(meeting.AudioURL); objectPath != "" {
				_ = store.Delete(c.Request.Context(), objectPath)
			}
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			for _, model := range []interface{}{
				&models.StageStatus{}, &models.TimelineEntry{}, &models.Task{},
			} {
				if err := tx.Where("meeting_id = ?", meetingID).Delete(model).Error; err != nil {
					return err
				}
			}
			return tx.Delete(&meeting).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete meeting"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"deleted": meetingID})
	}
}
