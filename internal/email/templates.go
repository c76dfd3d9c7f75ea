package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// summaryData feeds the meeting summary templates
type summaryData struct {
	UserName string
	Meeting  meetingData
	Timeline []timelineItem
	Tasks    []taskItem
}

type meetingData struct {
	Title     string
	Duration  string
	CreatedAt string
	Status    string
}

type timelineItem struct {
	Timestamp string
	EventType string
	Title     string
	Content   string
}

type taskItem struct {
	Title       string
	Description string
	AssignedTo  string
	Deadline    string
	Priority    string
	Status      string
}

var summaryHTML = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; }
.header { background: #667eea; color: white; padding: 30px; border-radius: 10px; text-align: center; margin-bottom: 30px; }
.section { background: #f8f9fa; padding: 25px; margin-bottom: 25px; border-radius: 8px; border-left: 4px solid #667eea; }
.section h2 { color: #667eea; margin-top: 0; }
.timeline-item { background: white; padding: 15px; margin-bottom: 15px; border-radius: 6px; border-left: 3px solid #28a745; }
.timeline-time { font-weight: bold; color: #28a745; font-size: 0.9em; }
.task-item { background: white; padding: 15px; margin-bottom: 10px; border-radius: 6px; border-left: 3px solid #ffc107; }
.task-meta { color: #666; font-size: 0.9em; }
</style>
</head>
<body>
<div class="header">
<h1>Meeting Summary</h1>
<p>{{.Meeting.Title}}</p>
</div>
<p>Hi {{.UserName}},</p>
<p>Your meeting has been processed. Here is what we found.</p>
<div class="section">
<h2>Meeting Details</h2>
<p>Duration: {{.Meeting.Duration}}<br>Recorded: {{.Meeting.CreatedAt}}<br>Status: {{.Meeting.Status}}</p>
</div>
{{if .Timeline}}<div class="section">
<h2>Timeline</h2>
{{range .Timeline}}<div class="timeline-item">
<div class="timeline-time">{{.Timestamp}} &middot; {{.EventType}}</div>
<div><strong>{{.Title}}</strong></div>
<div>{{.Content}}</div>
</div>
{{end}}</div>{{end}}
{{if .Tasks}}<div class="section">
<h2>Action Items</h2>
{{range .Tasks}}<div class="task-item">
<div><strong>{{.Title}}</strong></div>
<div>{{.Description}}</div>
<div class="task-meta">Assigned to: {{.AssignedTo}} &middot; Priority: {{.Priority}} &middot; Deadline: {{.Deadline}}</div>
</div>
{{end}}</div>{{end}}
<p>— AI Meeting Assistant</p>
</body>
</html>
`))

var reminderHTML = template.Must(template.New("reminder").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; color: #333;">
<h2>Task Reminders</h2>
<p>Hi {{.UserName}}, you have {{len .Tasks}} task(s) coming due:</p>
<ul>
{{range .Tasks}}<li><strong>{{.Title}}</strong> — due {{.Deadline}} ({{.Priority}} priority, assigned to {{.AssignedTo}})</li>
{{end}}</ul>
<p>— AI Meeting Assistant</p>
</body>
</html>
`))

func renderSummaryHTML(data summaryData) (string, error) {
	var buf bytes.Buffer
	if err := summaryHTML.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderSummaryText(data summaryData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meeting Summary: %s\n\n", data.Meeting.Title)
	fmt.Fprintf(&b, "Hi %s,\n\nYour meeting has been processed.\n\n", data.UserName)
	fmt.Fprintf(&b, "Duration: %s\nRecorded: %s\n\n", data.Meeting.Duration, data.Meeting.CreatedAt)

	if len(data.Timeline) > 0 {
		b.WriteString("Timeline:\n")
		for _, item := range data.Timeline {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", item.Timestamp, item.Title, item.Content)
		}
		b.WriteString("\n")
	}

	if len(data.Tasks) > 0 {
		b.WriteString("Action Items:\n")
		for _, task := range data.Tasks {
			fmt.Fprintf(&b, "  - %s (assigned to %s, %s priority, due %s)\n",
				task.Title, task.AssignedTo, task.Priority, task.Deadline)
		}
		b.WriteString("\n")
	}

	b.WriteString("-- AI Meeting Assistant\n")
	return b.String()
}

func renderReminderHTML(data summaryData) (string, error) {
	var buf bytes.Buffer
	if err := reminderHTML.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatDuration(seconds int) string {
	if seconds <= 0 {
		return "unknown"
	}
	d := time.Duration(seconds) * time.Second
	minutes := int(d.Minutes())
	if minutes < 1 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm", minutes)
}
