package api

import (
	"context"
	"fmt"
	"io"
	"strconv"
)

// JobMeta holds the backend's free-form progress hints for a job
type JobMeta struct {
	Progress    *int   `json:"progress,omitempty"`
	Phase       string `json:"phase,omitempty"`
	Filename    string `json:"filename,omitempty"`
	RecordingID string `json:"recording_id,omitempty"`
}

// ResultInput references the original uploaded media of a finished job
type ResultInput struct {
	FilePath string `json:"file_path"`
}

// RawSegment is a transcript segment as the backend emits it
type RawSegment struct {
	SegmentID        int     `json:"segment_id"`
	StartTime        float64 `json:"start_time"`
	EndTime          float64 `json:"end_time"`
	Transcript       string  `json:"transcript"`
	TranscriptMarked string  `json:"transcript_marked,omitempty"`
	Label            string  `json:"label,omitempty"`
	Classification   string  `json:"classification,omitempty"`
}

// RawClip is a server-generated video slice inside a job result
type RawClip struct {
	ID    string  `json:"id,omitempty"`
	File  string  `json:"file,omitempty"`
	Start float64 `json:"start,omitempty"`
	End   float64 `json:"end,omitempty"`
}

// JobResult is the opaque payload of a finished job
type JobResult struct {
	Segments   []RawSegment           `json:"segments"`
	Clips      []RawClip              `json:"clips,omitempty"`
	Statistics map[string]interface{} `json:"statistics,omitempty"`
	Input      *ResultInput           `json:"input,omitempty"`
}

// Job is one server-tracked unit of background work
type Job struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	Meta       JobMeta    `json:"meta"`
	Result     *JobResult `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	EnqueuedAt string     `json:"enqueued_at"`
	StartedAt  string     `json:"started_at,omitempty"`
	EndedAt    string     `json:"ended_at,omitempty"`
}

// JobBuckets is the full job set grouped by lifecycle state
type JobBuckets struct {
	Queued   []Job `json:"queued"`
	Started  []Job `json:"started"`
	Finished []Job `json:"finished"`
	Failed   []Job `json:"failed"`
}

// All flattens the buckets in queued, started, finished, failed order
func (b JobBuckets) All() []Job {
	out := make([]Job, 0, len(b.Queued)+len(b.Started)+len(b.Finished)+len(b.Failed))
	out = append(out, b.Queued...)
	out = append(out, b.Started...)
	out = append(out, b.Finished...)
	out = append(out, b.Failed...)
	return out
}

// UploadFile is one multipart file to submit for processing
type UploadFile struct {
	Field  string
	Name   string
	Reader io.Reader
}

type jobsCreated struct {
	Jobs []string `json:"jobs"`
}

// StartJobsRequest asks the backend to process already-uploaded recordings
type StartJobsRequest struct {
	RecordingIDs []string `json:"recording_ids"`
	CutClips     bool     `json:"cut_clips"`
	ASRStreaming bool     `json:"asr_streaming,omitempty"`
	GlossaryLang string   `json:"glossary_lang,omitempty"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// UploadJobs submits media files and returns the created job ids
func (c *Client) UploadJobs(ctx context.Context, files []UploadFile, cutClips bool) ([]string, error) {
	for i := range files {
		if files[i].Field == "" {
			files[i].Field = "files"
		}
	}
	var out jobsCreated
	fields := map[string]string{"cut_clips": strconv.FormatBool(cutClips)}
	if err := c.postMultipart(ctx, "/api/jobs/upload", files, fields, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// ListJobs fetches the bucketed set of all jobs
func (c *Client) ListJobs(ctx context.Context) (JobBuckets, error) {
	var out JobBuckets
	err := c.getJSON(ctx, "/api/jobs", &out)
	return out, err
}

// GetJob fetches one job with its full result payload
func (c *Client) GetJob(ctx context.Context, id string) (Job, error) {
	var out Job
	err := c.getJSON(ctx, "/api/jobs/"+id, &out)
	return out, err
}

// StartJobs enqueues processing for existing recordings
func (c *Client) StartJobs(ctx context.Context, req StartJobsRequest) ([]string, error) {
	var out jobsCreated
	if err := c.postJSON(ctx, "/api/jobs/start", req, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// DeleteJob removes a job, optionally purging its stored outputs
func (c *Client) DeleteJob(ctx context.Context, id string, purge bool) error {
	path := fmt.Sprintf("/api/jobs/%s?purge=%t", id, purge)
	var out okResponse
	return c.delete(ctx, path, &out)
}
