// Package storage provides the Supabase Storage client used for
// uploaded meeting audio.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to the Supabase Storage HTTP API for a single bucket.
type Client struct {
	http   *resty.Client
	bucket string
}

// NewClient creates a storage client for the given project URL, service
// key, and bucket.
func NewClient(projectURL, serviceKey, bucket string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(projectURL, "/")).
			SetAuthToken(serviceKey).
			SetTimeout(2 * time.Minute),
		bucket: bucket,
	}
}

// Upload stores the file under objectPath and returns its public URL
func (c *Client) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("Cache-Control", "max-age=3600").
		SetBody(bytes.NewReader(data)).
		Post(fmt.Sprintf("/storage/v1/object/%s/%s", c.bucket, objectPath))
	if err != nil {
		return "", fmt.Errorf("storage upload failed: %w", err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("storage upload returned %d: %s", resp.StatusCode(), resp.String())
	}

	return c.PublicURL(objectPath), nil
}

// Delete removes the file at objectPath
func (c *Client) Delete(ctx context.Context, objectPath string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/storage/v1/object/%s/%s", c.bucket, objectPath))
	if err != nil {
		return fmt.Errorf("storage delete failed: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("storage delete returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// PublicURL returns the public download URL for an object. The bucket is
// provisioned public, so no signing is involved.
func (c *Client) PublicURL(objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.http.BaseURL, c.bucket, objectPath)
}

// ObjectPath extracts the bucket-relative object path from a public URL
// produced by PublicURL. Returns empty when the URL is not ours.
func (c *Client) ObjectPath(publicURL string) string {
	marker := fmt.Sprintf("/storage/v1/object/public/%s/", c.bucket)
	idx := strings.Index(publicURL, marker)
	if idx == -1 {
		return ""
	}
	return publicURL[idx+len(marker):]
}
