package tasks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/calendar"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB, models.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Task{}, &models.CalendarEvent{}))

	user := models.User{Email: "owner@example.com", Name: "Owner"}
	require.NoError(t, db.Create(&user).Error)

	cal := calendar.NewService(db, slog.New(slog.NewTextHandler(io.Discard, nil)))

	router := gin.New()
	// Stand-in for the session middleware
	router.Use(func(c *gin.Context) {
		c.Set("user_id", user.ID.String())
		c.Next()
	})
	router.GET("/tasks", ListTasksHandler(db))
	router.GET("/tasks/stats", TaskStatsHandler(db))
	router.GET("/tasks/upcoming", UpcomingTasksHandler(db))
	router.GET("/tasks/:id", GetTaskHandler(db))
	router.PATCH("/tasks/:id", UpdateTaskHandler(db))
	router.PATCH("/tasks/:id/status", UpdateTaskStatusHandler(db, cal))
	router.DELETE("/tasks/:id", DeleteTaskHandler(db, cal))

	return router, db, user
}

func createTask(t *testing.T, db *gorm.DB, userID uuid.UUID, title, priority, status string, deadline *time.Time) models.Task {
	t.Helper()
	task := models.Task{
		MeetingID: uuid.New(),
		UserID:    userID,
		Title:     title,
		Priority:  priority,
		Status:    status,
		Deadline:  deadline,
	}
	require.NoError(t, db.Create(&task).Error)
	return task
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListTasksFiltering(t *testing.T) {
	router, db, user := newTestRouter(t)

	createTask(t, db, user.ID, "High pending", models.TaskPriorityHigh, models.TaskStatusPending, nil)
	createTask(t, db, user.ID, "Low done", models.TaskPriorityLow, models.TaskStatusCompleted, nil)

	// Another user's task must not leak
	other := models.User{Email: "other@example.com"}
	require.NoError(t, db.Create(&other).Error)
	createTask(t, db, other.ID, "Foreign", models.TaskPriorityHigh, models.TaskStatusPending, nil)

	w := doJSON(router, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Tasks []models.Task `json:"tasks"`
		Count int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)

	w = doJSON(router, http.MethodGet, "/tasks?status=pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Tasks, 1)
	assert.Equal(t, "High pending", body.Tasks[0].Title)

	w = doJSON(router, http.MethodGet, "/tasks?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTask(t *testing.T) {
	router, db, user := newTestRouter(t)
	task := createTask(t, db, user.ID, "Draft report", models.TaskPriorityMedium, models.TaskStatusPending, nil)

	w := doJSON(router, http.MethodPatch, "/tasks/"+task.ID.String(), map[string]string{
		"title":    "Draft quarterly report",
		"priority": "high",
		"deadline": "2024-02-01",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.Task
	require.NoError(t, db.First(&updated, "id = ?", task.ID).Error)
	assert.Equal(t, "Draft quarterly report", updated.Title)
	assert.Equal(t, models.TaskPriorityHigh, updated.Priority)
	require.NotNil(t, updated.Deadline)
	assert.Equal(t, "2024-02-01", updated.Deadline.Format("2006-01-02"))

	w = doJSON(router, http.MethodPatch, "/tasks/"+task.ID.String(), map[string]string{"priority": "urgent"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPatch, "/tasks/"+task.ID.String(), map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPatch, "/tasks/"+uuid.NewString(), map[string]string{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateTaskStatus(t *testing.T) {
	router, db, user := newTestRouter(t)
	task := createTask(t, db, user.ID, "Review PR", models.TaskPriorityMedium, models.TaskStatusPending, nil)

	w := doJSON(router, http.MethodPatch, fmt.Sprintf("/tasks/%s/status", task.ID), map[string]string{"status": "in_progress"})
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.Task
	require.NoError(t, db.First(&updated, "id = ?", task.ID).Error)
	assert.Equal(t, models.TaskStatusInProgress, updated.Status)

	w = doJSON(router, http.MethodPatch, fmt.Sprintf("/tasks/%s/status", task.ID), map[string]string{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteTaskRemovesCalendarEvents(t *testing.T) {
	router, db, user := newTestRouter(t)
	task := createTask(t, db, user.ID, "Review PR", models.TaskPriorityMedium, models.TaskStatusPending, nil)

	event := models.CalendarEvent{TaskID: task.ID, Title: task.Title}
	require.NoError(t, db.Create(&event).Error)

	w := doJSON(router, http.MethodDelete, "/tasks/"+task.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var taskCount, eventCount int64
	db.Model(&models.Task{}).Where("id = ?", task.ID).Count(&taskCount)
	db.Model(&models.CalendarEvent{}).Where("task_id = ?", task.ID).Count(&eventCount)
	assert.Zero(t, taskCount)
	assert.Zero(t, eventCount)
}

func TestUpcomingTasks(t *testing.T) {
	router, db, user := newTestRouter(t)

	overdue := time.Now().UTC().AddDate(0, 0, -2)
	soon := time.Now().UTC().AddDate(0, 0, 3)
	far := time.Now().UTC().AddDate(0, 0, 30)

	createTask(t, db, user.ID, "Overdue", models.TaskPriorityHigh, models.TaskStatusPending, &overdue)
	createTask(t, db, user.ID, "Soon", models.TaskPriorityMedium, models.TaskStatusPending, &soon)
	createTask(t, db, user.ID, "Far out", models.TaskPriorityLow, models.TaskStatusPending, &far)
	createTask(t, db, user.ID, "Done", models.TaskPriorityLow, models.TaskStatusCompleted, &soon)

	w := doJSON(router, http.MethodGet, "/tasks/upcoming?days=7", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Tasks []struct {
			Title     string `json:"title"`
			IsOverdue bool   `json:"is_overdue"`
		} `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Tasks, 2)
	assert.Equal(t, "Overdue", body.Tasks[0].Title)
	assert.True(t, body.Tasks[0].IsOverdue)
	assert.Equal(t, "Soon", body.Tasks[1].Title)
	assert.False(t, body.Tasks[1].IsOverdue)
}

func TestTaskStats(t *testing.T) {
	router, db, user := newTestRouter(t)

	overdue := time.Now().UTC().AddDate(0, 0, -1)
	thisWeek := time.Now().UTC().AddDate(0, 0, 3)

	createTask(t, db, user.ID, "A", models.TaskPriorityHigh, models.TaskStatusPending, &overdue)
	createTask(t, db, user.ID, "B", models.TaskPriorityMedium, models.TaskStatusInProgress, &thisWeek)
	createTask(t, db, user.ID, "C", models.TaskPriorityLow, models.TaskStatusCompleted, nil)
	createTask(t, db, user.ID, "D", models.TaskPriorityLow, models.TaskStatusCompleted, nil)

	w := doJSON(router, http.MethodGet, "/tasks/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		Total          int            `json:"total"`
		ByStatus       map[string]int `json:"by_status"`
		ByPriority     map[string]int `json:"by_priority"`
		Overdue        int            `json:"overdue"`
		DueThisWeek    int            `json:"due_this_week"`
		CompletionRate float64        `json:"completion_rate"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[models.TaskStatusCompleted])
	assert.Equal(t, 2, stats.ByPriority[models.TaskPriorityLow])
	assert.Equal(t, 1, stats.Overdue)
	assert.Equal(t, 1, stats.DueThisWeek)
	assert.InDelta(t, 50.0, stats.CompletionRate, 0.01)
}
