package database

import (
	"log"
	"time"

	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SeedDevData populates the database with a demo user and one fully
// processed meeting for local development.
// Idempotent: skips if data already exists.
func SeedDevData(db *gorm.DB) error {
	var existingUser models.User
	result := db.Where("email = ?", "demo@meetassist.local").First(&existingUser)
	if result.Error == nil {
		log.Println("Seed data already exists, skipping")
		return nil
	}

	user := models.User{
		Email:              "demo@meetassist.local",
		Name:               "Demo User",
		EmailNotifications: true,
		InAppNotifications: true,
	}
	if err := db.Create(&user).Error; err != nil {
		return err
	}

	transcript := "Welcome everyone. Today we reviewed the Q3 roadmap, agreed to ship the " +
		"reporting dashboard by the end of the month, and Sarah will own the customer " +
		"interviews. Mike raised concerns about the data migration timeline."
	now := time.Now().UTC()
	meeting := models.Meeting{
		UserID:     user.ID,
		Title:      "Q3 Planning Sync",
		AudioURL:   "https://example.invalid/meeting-audio/demo.mp3",
		Transcript: &transcript,
		Summary:    datatypes.JSON([]byte(`{"executive_summary":"Q3 roadmap reviewed; dashboard ship date agreed.","next_steps":["Schedule follow-up","Begin customer interviews"]}`)),
		Status:     models.MeetingStatusCompleted,
		Duration:   1860,
		FileSize:   4 << 20,
	}
	if err := db.Create(&meeting).Error; err != nil {
		return err
	}

	completed := now
	for _, stage := range models.PipelineStages {
		status := models.StageStatus{
			MeetingID:   meeting.ID,
			Stage:       stage,
			Status:      models.StageStatusCompleted,
			Progress:    100,
			CompletedAt: &completed,
		}
		if err := db.Create(&status).Error; err != nil {
			return err
		}
	}

	entries := []models.TimelineEntry{
		{
			MeetingID:        meeting.ID,
			Timestamp:        "00:30",
			TimestampMinutes: 0.5,
			EventType:        "discussion",
			Title:            "Roadmap review",
			Content:          "Walked through the Q3 roadmap items and priorities.",
			Participants:     datatypes.JSON([]byte(`["Sarah","Mike"]`)),
		},
		{
			MeetingID:        meeting.ID,
			Timestamp:        "14:00",
			TimestampMinutes: 14,
			EventType:        "decision",
			Title:            "Dashboard ship date",
			Content:          "Agreed to ship the reporting dashboard by end of month.",
			Participants:     datatypes.JSON([]byte(`["Sarah"]`)),
		},
	}
	for i := range entries {
		if err := db.Create(&entries[i]).Error; err != nil {
			return err
		}
	}

	deadline := now.AddDate(0, 0, 7)
	task := models.Task{
		MeetingID:   meeting.ID,
		UserID:      user.ID,
		Title:       "Run customer interviews",
		Description: "Schedule and run five customer interviews before the dashboard launch.",
		AssignedTo:  "Sarah",
		Deadline:    &deadline,
		Priority:    models.TaskPriorityHigh,
		Status:      models.TaskStatusPending,
	}
	if err := db.Create(&task).Error; err != nil {
		return err
	}

	log.Println("Seeded dev data: 1 user, 1 meeting, 4 stage statuses, 2 timeline entries, 1 task")
	return nil
}
