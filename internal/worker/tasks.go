package worker

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskSendReminders = "tasks:send_reminders"
)

// Package-level Asynq client (singleton)
var client *asynq.Client

// InitClient initializes the global Asynq client for task enqueueing.
// Must be called before any EnqueueX functions.
func InitClient(redisURL string) error {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return err
	}

	client = asynq.NewClient(opt)
	return nil
}

// CloseClient closes the Asynq client connection gracefully.
func CloseClient() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// EnqueueSendReminders enqueues an on-demand reminder sweep for one user,
// or for all users when userID is uuid.Nil. The scheduled daily sweep is
// registered separately and always covers all users.
func EnqueueSendReminders(userID uuid.UUID) error {
	payload, err := json.Marshal(map[string]string{
		"user_id": userID.String(),
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(
		TaskSendReminders,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Retention(24*time.Hour),
	)

	_, err = client.Enqueue(task)
	return err
}
