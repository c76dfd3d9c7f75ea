// Package ai implements the Extractor capability against the Gemini
// generateContent API. Model responses are fenced JSON; every payload is
// schema-validated before it reaches the pipeline.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/pipeline"
	"github.com/go-resty/resty/v2"
	"github.com/kaptinlin/jsonschema"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client calls Gemini for timeline extraction, task extraction, and
// summary generation. Safe for concurrent use across meetings.
type Client struct {
	http           *resty.Client
	apiKey         string
	model          string
	prompts        *promptSet
	timelineSchema *jsonschema.Schema
	tasksSchema    *jsonschema.Schema
}

// NewClient creates a Gemini-backed extractor for the given model
func NewClient(apiKey, model string) (*Client, error) {
	prompts, err := loadPrompts()
	if err != nil {
		return nil, err
	}
	timelineSchema, err := compileSchema("timeline")
	if err != nil {
		return nil, err
	}
	tasksSchema, err := compileSchema("tasks")
	if err != nil {
		return nil, err
	}

	return &Client{
		http: resty.New().
			SetBaseURL(defaultBaseURL).
			SetTimeout(5 * time.Minute),
		apiKey:         apiKey,
		model:          model,
		prompts:        prompts,
		timelineSchema: timelineSchema,
		tasksSchema:    tasksSchema,
	}, nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// ExtractTimeline asks the model for an ordered event timeline
func (c *Client) ExtractTimeline(ctx context.Context, transcript string, durationSeconds int) (*pipeline.TimelineData, error) {
	prompt := fmt.Sprintf(c.prompts.Timeline, transcript, durationSeconds)

	payload, raw, err := c.generateObject(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("timeline generation error: %w", err)
	}
	if err := validatePayload(c.timelineSchema, payload); err != nil {
		return nil, fmt.Errorf("timeline generation error: %w", err)
	}

	var timeline pipeline.TimelineData
	if err := json.Unmarshal(raw, &timeline); err != nil {
		return nil, fmt.Errorf("timeline generation error: %w", err)
	}
	return &timeline, nil
}

// ExtractTasks asks the model for actionable tasks, with the timeline as context
func (c *Client) ExtractTasks(ctx context.Context, transcript string, timeline *pipeline.TimelineData) ([]pipeline.TaskData, error) {
	timelineContext := "[]"
	if timeline != nil && len(timeline.Entries) > 0 {
		if encoded, err := json.MarshalIndent(timeline.Entries, "", "  "); err == nil {
			timelineContext = string(encoded)
		}
	}
	prompt := fmt.Sprintf(c.prompts.Tasks, transcript, timelineContext)

	payload, raw, err := c.generateObject(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("task extraction error: %w", err)
	}
	if err := validatePayload(c.tasksSchema, payload); err != nil {
		return nil, fmt.Errorf("task extraction error: %w", err)
	}

	var decoded struct {
		Tasks []pipeline.TaskData `json:"tasks"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("task extraction error: %w", err)
	}
	return decoded.Tasks, nil
}

// Summarize asks the model for a structured meeting summary. The result
// is persisted opaquely; no schema is enforced beyond being an object.
func (c *Client) Summarize(ctx context.Context, transcript string, timeline *pipeline.TimelineData, tasks []pipeline.TaskData) (json.RawMessage, error) {
	timelineContext := "[]"
	if timeline != nil {
		if encoded, err := json.MarshalIndent(timeline.Entries, "", "  "); err == nil {
			timelineContext = string(encoded)
		}
	}
	tasksContext := "[]"
	if encoded, err := json.MarshalIndent(tasks, "", "  "); err == nil {
		tasksContext = string(encoded)
	}
	prompt := fmt.Sprintf(c.prompts.Summary, transcript, timelineContext, tasksContext)

	_, raw, err := c.generateObject(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("summary generation error: %w", err)
	}
	return json.RawMessage(raw), nil
}

// generateObject runs one generateContent call and returns the decoded
// JSON object from the model's first candidate, plus its raw bytes.
func (c *Client) generateObject(ctx context.Context, prompt string) (map[string]interface{}, []byte, error) {
	if c.apiKey == "" {
		return nil, nil, fmt.Errorf("AI API key not configured")
	}

	var response generateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(generateRequest{
			Contents: []content{{Parts: []part{{Text: prompt}}}},
		}).
		SetResult(&response).
		Post(fmt.Sprintf("/models/%s:generateContent", c.model))
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, nil, fmt.Errorf("model API returned %d: %s", resp.StatusCode(), resp.String())
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return nil, nil, fmt.Errorf("model returned no candidates")
	}

	raw, err := extractJSON(response.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, nil, err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, nil, fmt.Errorf("failed to decode model output: %w", err)
	}
	return payload, raw, nil
}
