// Package transcription implements the Transcriber capability against
// the Speech-to-Text AI service on RapidAPI.
package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/pipeline"
	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://speech-to-text-ai.p.rapidapi.com"

// Client calls the Speech-to-Text AI transcription endpoint.
// Safe for concurrent use across meetings.
type Client struct {
	http   *resty.Client
	apiKey string
}

// NewClient creates a transcription client with the given RapidAPI key
func NewClient(apiKey string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(defaultBaseURL).
			SetTimeout(10 * time.Minute),
		apiKey: apiKey,
	}
}

// Transcribe submits the audio URL and returns the transcript text and
// measured duration. The service resolves immediately; there is no
// polling step.
func (c *Client) Transcribe(ctx context.Context, audioURL string) (*pipeline.TranscriptionResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("transcription API key not configured")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-rapidapi-key", c.apiKey).
		SetHeader("x-rapidapi-host", "speech-to-text-ai.p.rapidapi.com").
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetQueryParams(map[string]string{
			"url":  audioURL,
			"lang": "en",
			"task": "transcribe",
		}).
		Post("/transcribe")
	if err != nil {
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("transcription service returned %d: %s", resp.StatusCode(), resp.String())
	}

	transcript, duration, err := extractTranscript(resp.Body())
	if err != nil {
		return nil, err
	}

	return &pipeline.TranscriptionResult{
		Transcript:      transcript,
		DurationSeconds: duration,
	}, nil
}

// extractTranscript tolerates the service's loosely specified response
// shapes: the text may arrive under "text", "transcript", or
// "transcription", and duration is optional.
func extractTranscript(body []byte) (string, int, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		// Some responses are a bare JSON string
		var text string
		if err := json.Unmarshal(body, &text); err == nil && text != "" {
			return text, 0, nil
		}
		return "", 0, fmt.Errorf("failed to parse transcription response: %w", err)
	}

	var transcript string
	for _, key := range []string{"text", "transcript", "transcription"} {
		if value, ok := payload[key].(string); ok && value != "" {
			transcript = value
			break
		}
	}
	if transcript == "" {
		return "", 0, fmt.Errorf("transcription response contained no text")
	}

	duration := 0
	if value, ok := payload["duration"].(float64); ok {
		duration = int(value)
	}

	return transcript, duration, nil
}
