package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/config"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/email"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/models"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger interface
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Run starts the Asynq worker server and blocks until shutdown signal.
// Use this for standalone worker mode.
func Run(cfg *config.Config, db *gorm.DB, mailer *email.Service) error {
	srv, mux, err := newServer(cfg, db, mailer)
	if err != nil {
		return err
	}

	// Run blocks and handles its own signal interception
	return srv.Run(mux)
}

// Start starts the Asynq worker in non-blocking mode and returns a stop function.
// Use this for embedded mode so the caller can coordinate shutdown.
func Start(cfg *config.Config, db *gorm.DB, mailer *email.Service) (stop func(), err error) {
	srv, mux, err := newServer(cfg, db, mailer)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() { srv.Shutdown() }, nil
}

func newServer(cfg *config.Config, db *gorm.DB, mailer *email.Service) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := NewLogger(cfg.LogLevel, cfg.LogFormat)

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     5,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
			Logger: &asynqLoggerAdapter{logger: logger},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskSendReminders, handleSendReminders(logger, db, mailer, cfg.ReminderDays))

	logger.Info("Worker starting", "concurrency", 5, "redis", cfg.RedisURL)
	return srv, mux, nil
}

// handleSendReminders emails each user a digest of their incomplete tasks
// due within the reminder window. An empty or nil user_id in the payload
// means all users.
func handleSendReminders(logger *slog.Logger, db *gorm.DB, mailer *email.Service, reminderDays int) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload struct {
			UserID string `json:"user_id"`
		}
		if len(task.Payload()) > 0 {
			if err := json.Unmarshal(task.Payload(), &payload); err != nil {
				// Invalid payload - don't retry
				return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
			}
		}

		if !mailer.Enabled() {
			logger.Info("Email delivery disabled, skipping reminders")
			return nil
		}

		cutoff := time.Now().UTC().AddDate(0, 0, reminderDays)

		query := db.WithContext(ctx).
			Where("status <> ? AND deadline IS NOT NULL AND deadline <= ?", models.TaskStatusCompleted, cutoff)
		if payload.UserID != "" {
			userID, err := uuid.Parse(payload.UserID)
			if err != nil {
				return fmt.Errorf("invalid user_id: %w", asynq.SkipRetry)
			}
			if userID != uuid.Nil {
				query = query.Where("user_id = ?", userID)
			}
		}

		var dueTasks []models.Task
		if err := query.Order("deadline ASC").Find(&dueTasks).Error; err != nil {
			return fmt.Errorf("failed to query due tasks: %w", err)
		}
		if len(dueTasks) == 0 {
			logger.Info("No due tasks, skipping reminders")
			return nil
		}

		byUser := map[uuid.UUID][]models.Task{}
		for _, t := range dueTasks {
			byUser[t.UserID] = append(byUser[t.UserID], t)
		}

		var sent, skipped int
		for userID, userTasks := range byUser {
			var user models.User
			if err := db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
				logger.Warn("Reminder skipped, user not found", "user_id", userID)
				skipped++
				continue
			}
			if !user.EmailNotifications {
				skipped++
				continue
			}

			if err := mailer.SendTaskReminder(ctx, user, userTasks); err != nil {
				logger.Warn("Reminder email failed", "user_id", userID, "error", err)
				skipped++
				continue
			}
			sent++
		}

		logger.Info("Reminder sweep completed", "sent", sent, "skipped", skipped, "due_tasks", len(dueTasks))
		return nil
	}
}
