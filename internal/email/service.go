// Package email implements the Notifier capability over SMTP.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/models"
	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
)

// Service sends meeting summary and task reminder emails. When SMTP
// credentials are absent the service constructs in disabled mode and
// every send is skipped with a warning.
type Service struct {
	dialer   *gomail.Dialer
	db       *gorm.DB
	from     string
	fromName string
	enabled  bool
	logger   *slog.Logger
}

// NewService creates an email service. Pass empty address/password to
// get a disabled service that records skipped notifications.
func NewService(db *gorm.DB, smtpServer string, smtpPort int, address, password, fromName string, logger *slog.Logger) *Service {
	svc := &Service{
		db:       db,
		from:     address,
		fromName: fromName,
		logger:   logger,
	}
	if address == "" || password == "" {
		logger.Warn("Email credentials not configured, email notifications disabled")
		return svc
	}
	svc.dialer = gomail.NewDialer(smtpServer, smtpPort, address, password)
	svc.enabled = true
	return svc
}

// Enabled reports whether the service can actually deliver mail
func (s *Service) Enabled() bool { return s.enabled }

// SendMeetingSummary emails the processed meeting's summary, timeline,
// and tasks to the owning user, and records a notification history row.
func (s *Service) SendMeetingSummary(ctx context.Context, user models.User, meeting models.Meeting, timeline []models.TimelineEntry, tasks []models.Task) error {
	data := summaryData{
		UserName: user.Name,
		Meeting: meetingData{
			Title:     meeting.Title,
			Duration:  formatDuration(meeting.Duration),
			CreatedAt: meeting.CreatedAt.Format("2006-01-02 15:04"),
			Status:    meeting.Status,
		},
	}
	for _, entry := range timeline {
		data.Timeline = append(data.Timeline, timelineItem{
			Timestamp: entry.Timestamp,
			EventType: entry.EventType,
			Title:     entry.Title,
			Content:   entry.Content,
		})
	}
	for _, task := range tasks {
		data.Tasks = append(data.Tasks, newTaskItem(task))
	}

	subject := fmt.Sprintf("Meeting Summary: %s", meeting.Title)
	err := s.send(user.Email, subject, data, renderSummaryHTML)
	s.recordNotification(ctx, user.ID, models.NotificationTypeMeetingSummary, subject,
		fmt.Sprintf("Summary email for meeting %q", meeting.Title), err == nil)
	return err
}

// SendTaskReminder emails a digest of tasks coming due
func (s *Service) SendTaskReminder(ctx context.Context, user models.User, tasks []models.Task) error {
	data := summaryData{UserName: user.Name}
	for _, task := range tasks {
		data.Tasks = append(data.Tasks, newTaskItem(task))
	}

	subject := fmt.Sprintf("Task Reminders - %d pending tasks", len(tasks))
	err := s.send(user.Email, subject, data, renderReminderHTML)
	s.recordNotification(ctx, user.ID, models.NotificationTypeTaskReminder, subject,
		fmt.Sprintf("Reminder email for %d task(s)", len(tasks)), err == nil)
	return err
}

func (s *Service) send(to, subject string, data summaryData, render func(summaryData) (string, error)) error {
	if !s.enabled {
		s.logger.Warn("Email service not enabled, skipping email", "to", to, "subject", subject)
		return fmt.Errorf("email service not enabled")
	}

	html, err := render(data)
	if err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.from, s.fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", renderSummaryText(data))
	msg.AddAlternative("text/html", html)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	s.logger.Info("Email sent", "to", to, "subject", subject)
	return nil
}

// recordNotification writes a history row; failures here are logged and
// never propagated, since delivery already happened (or didn't).
func (s *Service) recordNotification(ctx context.Context, userID uuid.UUID, kind, title, message string, sent bool) {
	if s.db == nil {
		return
	}
	row := models.Notification{
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Message:   message,
		EmailSent: sent,
	}
	if sent {
		now := time.Now().UTC()
		row.EmailSentAt = &now
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.logger.Warn("Failed to record notification", "error", err.Error())
	}
}

func newTaskItem(task models.Task) taskItem {
	deadline := "none"
	if task.Deadline != nil {
		deadline = task.Deadline.Format("2006-01-02")
	}
	assignee := task.AssignedTo
	if assignee == "" {
		assignee = "Unassigned"
	}
	return taskItem{
		Title:       task.Title,
		Description: task.Description,
		AssignedTo:  assignee,
		Deadline:    deadline,
		Priority:    task.Priority,
		Status:      task.Status,
	}
}
