package api

import "context"

// SegmentUpdate carries one caller-supplied edit into a merge request
type SegmentUpdate struct {
	SegmentID  int     `json:"segment_id"`
	Transcript *string `json:"transcript,omitempty"`
	Label      *string `json:"label,omitempty"`
}

// MergeRequest asks the backend to stitch a course-only artifact
type MergeRequest struct {
	Updates      []SegmentUpdate `json:"updates"`
	MakeVideo    bool            `json:"make_video"`
	MakeSubtitle bool            `json:"make_subtitle"`
}

// SubtitleURLs lists the subtitle formats produced by a merge
type SubtitleURLs struct {
	SRT  string `json:"srt,omitempty"`
	VTT  string `json:"vtt,omitempty"`
	JSON string `json:"json,omitempty"`
}

// MergeMapping relates a kept segment's original and merged time range
type MergeMapping struct {
	SegmentID int     `json:"segment_id"`
	OldStart  float64 `json:"old_start"`
	OldEnd    float64 `json:"old_end"`
	NewStart  float64 `json:"new_start"`
	NewEnd    float64 `json:"new_end"`
}

// MergeResponse describes the produced course-only artifact
type MergeResponse struct {
	VideoURL      string         `json:"video_url,omitempty"`
	SubtitleURL   string         `json:"subtitle_url,omitempty"`
	SubtitleURLs  *SubtitleURLs  `json:"subtitle_urls,omitempty"`
	KeptSegments  int            `json:"kept_segments"`
	TotalDuration float64        `json:"total_duration"`
	Mapping       []MergeMapping `json:"mapping"`
}

// MergeCourse produces a filtered course-only video/subtitle for a job.
// The backend decides which segments are kept; callers send the full
// current segment list as updates.
func (c *Client) MergeCourse(ctx context.Context, jobID string, req MergeRequest) (MergeResponse, error) {
	var out MergeResponse
	err := c.postJSON(ctx, "/api/jobs/"+jobID+"/merge/course", req, &out)
	return out, err
}
