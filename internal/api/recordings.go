package api

import (
	"context"
	"fmt"
)

// Recording is an uploaded source media file
type Recording struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	CreatedAt string  `json:"created_at,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	FilePath  string  `json:"file_path,omitempty"`
	FileSize  int64   `json:"file_size,omitempty"`
	Status    string  `json:"status,omitempty"`
	URL       string  `json:"url,omitempty"`
}

// ListRecordings fetches all uploaded recordings
func (c *Client) ListRecordings(ctx context.Context) ([]Recording, error) {
	var out []Recording
	err := c.getJSON(ctx, "/api/recordings", &out)
	return out, err
}

// DeleteRecording removes a recording, optionally cascading to its jobs
func (c *Client) DeleteRecording(ctx context.Context, id string, cascade bool) error {
	path := fmt.Sprintf("/api/recordings/%s?cascade=%t", id, cascade)
	var out okResponse
	return c.delete(ctx, path, &out)
}
