// Package tasks exposes the task management endpoints.
package tasks

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/auth"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/calendar"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/models"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var validStatuses = map[string]bool{
	models.TaskStatusPending:    true,
	models.TaskStatusInProgress: true,
	models.TaskStatusCompleted:  true,
}

var validPriorities = map[string]bool{
	models.TaskPriorityHigh:   true,
	models.TaskPriorityMedium: true,
	models.TaskPriorityLow:    true,
}

// ListTasksHandler returns the caller's tasks with optional status,
// priority, and meeting filters. Tasks with deadlines sort first.
func ListTasksHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c, db)
		if !ok {
			return
		}

		query := db.Where("user_id = ?", user.ID)

		if status := c.Query("status"); status != "" {
			if !validStatuses[status] {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
				return
			}
			query = query.Where("status = ?", status)
		}
		if priority := c.Query("priority"); priority != "" {
			if !validPriorities[priority] {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority filter"})
				return
			}
			query = query.Where("priority = ?", priority)
		}
		if meetingID := c.Query("meeting_id"); meetingID != "" {
			id, err := uuid.Parse(meetingID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meeting id"})
				return
			}
			query = query.Where("meeting_id = ?", id)
		}

		var records []models.Task
		if err := query.Order("deadline ASC NULLS LAST, created_at DESC").Find(&records).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tasks"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"tasks": records, "count": len(records)})
	}
}

// GetTaskHandler returns one task owned by the caller.
func GetTaskHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c, db)
		if !ok {
			return
		}

		task, ok := loadTask(c, db, user.ID)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, gin.H{"task": task})
	}
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	AssignedTo  *string `json:"assigned_to"`
	Deadline    *string `json:"deadline"`
	Priority    *string `json:"priority"`
}

// UpdateTaskHandler applies a partial update. Only fields present in
// the body change; an empty deadline string clears the deadline.
func UpdateTaskHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c, db)
		if !ok {
			return
		}

		task, ok := loadTask(c, db, user.ID)
		if !ok {
			return
		}

		var req updateTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		updates := map[string]interface{}{}
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "title cannot be empty"})
				return
			}
			updates["title"] = title
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.AssignedTo != nil {
			updates["assigned_to"] = *req.AssignedTo
		}
		if req.Priority != nil {
			if !validPriorities[*req.Priority] {
				c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be high, medium, or low"})
				return
			}
			updates["priority"] = *req.Priority
		}
		if req.Deadline != nil {
			if *req.Deadline == "" {
				updates["deadline"] = nil
			} else {
				deadline, err := time.Parse("2006-01-02", *req.Deadline)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "deadline must be YYYY-MM-DD"})
					return
				}
				updates["deadline"] = deadline
			}
		}

		if len(updates) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
			return
		}
		updates["updated_at"] = time.Now().UTC()

		if err := db.Model(&task).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update task"})
			return
		}

		db.First(&task, "id = ?", task.ID)
		c.JSON(http.StatusOK, gin.H{"task": task})
	}
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateTaskStatusHandler changes a task's status and mirrors the
// change onto any linked calendar event. The calendar write is best
// effort.
func UpdateTaskStatusHandler(db *gorm.DB, cal *calendar.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c, db)
		if !ok {
			return
		}

		task, ok := loadTask(c, db, user.ID)
		if !ok {
			return
		}

		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
			return
		}
		if !validStatuses[req.Status] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be pending, in_progress, or completed"})
			return
		}

		if err := db.Model(&task).Updates(map[string]interface{}{
			"status":     req.Status,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update status"})
			return
		}

		if task.CalendarEventID != nil {
			_ = cal.UpdateTaskStatus(c.Request.Context(), task.ID, req.Status)
		}

		task.Status = req.Status
		c.JSON(http.StatusOK, gin.H{"task": task})
	}
}

// DeleteTaskHandler removes a task and its calendar events.
func DeleteTaskHandler(db *gorm.DB, cal *calendar.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c, db)
		if !ok {
			return
		}

		task, ok := loadTask(c, db, user.ID)
		if !ok {
			return
		}

		removed, err := cal.DeleteTaskEvents(c.Request.Context(), task.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete calendar events"})
			return
		}

		if err := db.Delete(&task).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete task"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"deleted": task.ID, "calendar_events_removed": removed})
	}
}

type upcomingTask struct {
	models.Task
	DaysUntil int  `json:"days_until"`
	IsOverdue bool `json:"is_overdue"`
}

// UpcomingTasksHandler returns incomplete tasks due within the window,
// overdue ones included.
func UpcomingTasksHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c, db)
		if !ok {
			return
		}

		days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
		if err != nil || days < 1 || days > 90 {
			days = 7
		}

		now := time.Now().UTC()
		cutoff := now.AddDate(0, 0, days)

		var records []models.Task
		err = db.Where("user_id = ? AND status <> ? AND deadline IS NOT NULL AND deadline <= ?",
			user.ID, models.TaskStatusCompleted, cutoff).
			Order("deadline ASC").
			Find(&records).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tasks"})
			return
		}

		upcoming := make([]upcomingTask, 0, len(records))
		for _, task := range records {
			daysUntil := int(time.Until(*task.Deadline).Hours() / 24)
			upcoming = append(upcoming, upcomingTask{
				Task:      task,
				DaysUntil: daysUntil,
				IsOverdue: task.Deadline.Before(now),
			})
		}

		c.JSON(http.StatusOK, gin.H{"tasks": upcoming, "days": days, "count": len(upcoming)})
	}
}

// TaskStatsHandler aggregates the caller's tasks for the dashboard.
func TaskStatsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c, db)
		if !ok {
			return
		}

		var records []models.Task
		if err := db.Where("user_id = ?", user.ID).Find(&records).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tasks"})
			return
		}

		byStatus := map[string]int{}
		byPriority := map[string]int{}
		var overdue, dueThisWeek int

		now := time.Now().UTC()
		weekEnd := now.AddDate(0, 0, 7)

		for _, task := range records {
			byStatus[task.Status]++
			byPriority[task.Priority]++

			if task.Deadline == nil || task.Status == models.TaskStatusCompleted {
				continue
			}
			if task.Deadline.Before(now) {
				overdue++
			} else if task.Deadline.Before(weekEnd) {
				dueThisWeek++
			}
		}

		completionRate := 0.0
		if len(records) > 0 {
			completionRate = float64(byStatus[models.TaskStatusCompleted]) / float64(len(records)) * 100
		}

		c.JSON(http.StatusOK, gin.H{
			"total":           len(records),
			"by_status":       byStatus,
			"by_priority":     byPriority,
			"overdue":         overdue,
			"due_this_week":   dueThisWeek,
			"completion_rate": completionRate,
		})
	}
}

// TriggerRemindersHandler enqueues an immediate reminder sweep for the
// caller's due tasks. Delivery happens in the background worker.
func TriggerRemindersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c, db)
		if !ok {
			return
		}

		if err := worker.EnqueueSendReminders(user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue reminders"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"queued": true})
	}
}

// loadTask fetches the task in the URL parameter scoped to the owner.
// Writes the error response and returns ok=false when missing.
func loadTask(c *gin.Context, db *gorm.DB, userID uuid.UUID) (models.Task, bool) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return models.Task{}, false
	}

	var task models.Task
	if err := db.First(&task, "id = ? AND user_id = ?", taskID, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return models.Task{}, false
	}
	return task, true
}
