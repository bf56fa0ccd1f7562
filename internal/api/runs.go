package api

import (
	"context"
	"net/url"
	"strconv"
)

// Run is one parse attempt over an uploaded paper
type Run struct {
	ID        string                 `json:"id"`
	PaperID   string                 `json:"paper_id"`
	BatchID   string                 `json:"batch_id,omitempty"`
	Status    string                 `json:"status"`
	TaskState string                 `json:"task_state,omitempty"`
	ErrorMsg  string                 `json:"error_msg,omitempty"`
	CreatedAt string                 `json:"created_at,omitempty"`
	Result    map[string]interface{} `json:"result,omitempty"`
}

// Paper is an uploaded PDF source document
type Paper struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	FileHash  string `json:"file_hash,omitempty"`
	SourcePDF string `json:"source_pdf,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Element is a structured table or figure extracted from a paper
type Element struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Label      string      `json:"label,omitempty"`
	Caption    string      `json:"caption,omitempty"`
	Content    interface{} `json:"content"`
	OrderIndex int         `json:"order_index"`
}

// RunDetail bundles one run with its paper, current metadata and elements
type RunDetail struct {
	Run      Run                    `json:"run"`
	Paper    Paper                  `json:"paper"`
	Metadata map[string]interface{} `json:"metadata"`
	Elements []Element              `json:"elements"`
}

// MetadataVersion is one append-only snapshot of a run's metadata
type MetadataVersion struct {
	ID        string   `json:"id"`
	RunID     string   `json:"run_id"`
	OMIPID    string   `json:"omip_id,omitempty"`
	Title     string   `json:"title,omitempty"`
	Authors   []string `json:"authors,omitempty"`
	Year      int      `json:"year,omitempty"`
	CreatedAt string   `json:"created_at,omitempty"`
}

// RunsQuery filters and pages run listings
type RunsQuery struct {
	Status    string
	TaskState string
	Limit     int
	Offset    int
}

func (q RunsQuery) encode() string {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.TaskState != "" {
		v.Set("task_state", q.TaskState)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if encoded := v.Encode(); encoded != "" {
		return "?" + encoded
	}
	return ""
}

// GetRun fetches one run with paper, metadata and elements
func (c *Client) GetRun(ctx context.Context, id string) (RunDetail, error) {
	var out RunDetail
	err := c.getJSON(ctx, "/api/runs/"+id, &out)
	return out, err
}

// ListRuns fetches run summaries matching the query
func (c *Client) ListRuns(ctx context.Context, q RunsQuery) ([]Run, error) {
	var out []Run
	err := c.getJSON(ctx, "/api/runs"+q.encode(), &out)
	return out, err
}

// CountRuns returns the number of runs matching the query
func (c *Client) CountRuns(ctx context.Context, q RunsQuery) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.getJSON(ctx, "/api/runs/count"+q.encode(), &out)
	return out.Count, err
}

// UpdateRunMetadata saves metadata for a run; the backend records a new version
func (c *Client) UpdateRunMetadata(ctx context.Context, id string, metadata map[string]interface{}) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.putJSON(ctx, "/api/runs/"+id+"/metadata", metadata, &out)
	return out, err
}

// RunVersions lists the metadata version history, newest first
func (c *Client) RunVersions(ctx context.Context, id string) ([]MetadataVersion, error) {
	var out []MetadataVersion
	err := c.getJSON(ctx, "/api/runs/"+id+"/versions", &out)
	return out, err
}

// RunVersionContent fetches one historical metadata snapshot
func (c *Client) RunVersionContent(ctx context.Context, id, versionID string) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.getJSON(ctx, "/api/runs/"+id+"/versions/"+versionID, &out)
	return out, err
}

// RetryRun re-enqueues one run
func (c *Client) RetryRun(ctx context.Context, id string) error {
	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	return c.postJSON(ctx, "/api/runs/"+id+"/retry", struct{}{}, &out)
}

// RetryAllFailed re-enqueues every failed run and returns the count
func (c *Client) RetryAllFailed(ctx context.Context) (int, error) {
	var out struct {
		Success      bool `json:"success"`
		RetriedCount int  `json:"retried_count"`
	}
	err := c.postJSON(ctx, "/api/runs/retry-failed", struct{}{}, &out)
	return out.RetriedCount, err
}
