// Package detail resolves one job's full result into display-ready
// segments, clips, statistics and a playable media URL, polling until
// the job reaches a terminal state.
package detail

import (
	"context"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coursecut/dashboard/internal/api"
	"github.com/coursecut/dashboard/internal/poller"
	"github.com/coursecut/dashboard/internal/types"
)

// Snapshot is the fully-mapped state of one job
type Snapshot struct {
	ID            string          `json:"id"`
	Status        string          `json:"status"`
	StatusLabel   string          `json:"status_label"`
	Progress      int             `json:"progress"`
	Phase         string          `json:"phase,omitempty"`
	RecordingName string          `json:"recording_name"`
	RecordingID   string          `json:"recording_id,omitempty"`
	CreatedAt     string          `json:"created_at,omitempty"`
	Error         string          `json:"error,omitempty"`
	Segments      []types.Segment `json:"segments"`
	Clips         []types.Clip    `json:"clips"`
	Statistics    map[string]int  `json:"statistics"`
	MediaURL      string          `json:"media_url,omitempty"`
}

// Terminal reports whether the snapshot's job can still change
func (s Snapshot) Terminal() bool {
	return types.IsTerminal(s.Status)
}

// Detail is the single-job view-model
type Detail struct {
	client *api.Client
	jobID  string
	poll   *poller.Poller[Snapshot]

	mu         sync.RWMutex
	mediaURL   string
	urlVersion uint64
}

// New creates a detail view-model for one job id
func New(client *api.Client, jobID string, interval time.Duration) *Detail {
	d := &Detail{
		client: client,
		jobID:  jobID,
	}
	d.poll = poller.New(interval, d.fetch, Snapshot.Terminal)
	return d
}

// JobID returns the tracked job id
func (d *Detail) JobID() string {
	return d.jobID
}

// Start begins polling; the poller stops itself on a terminal status
func (d *Detail) Start(ctx context.Context) {
	d.poll.Start(ctx)
}

// Stop cancels polling
func (d *Detail) Stop() {
	d.poll.Stop()
}

// Done is closed once polling has ended
func (d *Detail) Done() <-chan struct{} {
	return d.poll.Done()
}

// Snapshot returns the latest mapped job state
func (d *Detail) Snapshot() (Snapshot, bool) {
	return d.poll.Snapshot()
}

// Loading is true until the first fetch settles
func (d *Detail) Loading() bool {
	return d.poll.Loading()
}

// Err returns the most recent polling error, if any
func (d *Detail) Err() string {
	return d.poll.Err()
}

// MediaURL returns the resolved playable URL and a version counter
// that increments only when the URL actually changes.
func (d *Detail) MediaURL() (string, uint64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.mediaURL, d.urlVersion
}

func (d *Detail) fetch(ctx context.Context) (Snapshot, error) {
	job, err := d.client.GetJob(ctx, d.jobID)
	if err != nil {
		return Snapshot{}, err
	}
	snap := mapJob(job)
	d.resolveMediaURL(job)
	snap.MediaURL, _ = d.MediaURL()
	return snap, nil
}

// resolveMediaURL applies the media precedence rule on every poll but
// publishes only on change, so consumers are not rerendered for free.
func (d *Detail) resolveMediaURL(job api.Job) {
	url := mediaURL(job)

	d.mu.Lock()
	defer d.mu.Unlock()
	if url == d.mediaURL {
		return
	}
	d.mediaURL = url
	d.urlVersion++
}

// mediaURL picks the playable source: the original uploaded input if
// the result references it, otherwise the first generated clip file,
// otherwise empty (player shows its empty state).
func mediaURL(job api.Job) string {
	if job.Result == nil {
		return ""
	}
	if job.Result.Input != nil && job.Result.Input.FilePath != "" {
		if base := path.Base(strings.ReplaceAll(job.Result.Input.FilePath, "\\", "/")); base != "." && base != "/" {
			return "/uploads/" + base
		}
	}
	if len(job.Result.Clips) > 0 && job.Result.Clips[0].File != "" {
		return job.Result.Clips[0].File
	}
	return ""
}

func mapJob(job api.Job) Snapshot {
	progress := 0
	if job.Meta.Progress != nil {
		progress = *job.Meta.Progress
	} else if job.Status == types.StatusFinished {
		progress = 100
	}

	snap := Snapshot{
		ID:            job.ID,
		Status:        job.Status,
		StatusLabel:   types.StatusLabel(job.Status),
		Progress:      progress,
		Phase:         job.Meta.Phase,
		RecordingName: job.Meta.Filename,
		RecordingID:   job.Meta.RecordingID,
		CreatedAt:     job.EnqueuedAt,
		Error:         job.Error,
		Statistics:    map[string]int{},
	}
	if snap.RecordingName == "" {
		snap.RecordingName = "untitled"
	}

	if job.Result == nil {
		return snap
	}

	snap.Segments = make([]types.Segment, 0, len(job.Result.Segments))
	snap.Clips = make([]types.Clip, 0, len(job.Result.Segments))
	for i, raw := range job.Result.Segments {
		seg := mapSegment(raw, i)
		snap.Segments = append(snap.Segments, seg)
		snap.Clips = append(snap.Clips, clipFor(seg))
		snap.Statistics[seg.Class]++
	}
	return snap
}

// mapSegment fills in a missing segment id from the position and
// normalizes the raw classification label.
func mapSegment(raw api.RawSegment, index int) types.Segment {
	id := raw.SegmentID
	if id == 0 {
		id = index + 1
	}
	return types.Segment{
		ID:     id,
		Start:  raw.StartTime,
		End:    raw.EndTime,
		Text:   raw.Transcript,
		Marked: raw.TranscriptMarked,
		Class:  classify(raw),
	}
}

// classify maps the backend's free-form label onto the fixed set
func classify(raw api.RawSegment) string {
	label := raw.Label
	if label == "" {
		label = raw.Classification
	}
	switch {
	case label == "":
		return types.ClassUnlabeled
	case strings.Contains(label, "Course"):
		return types.ClassCore
	case strings.Contains(label, "Jokes"):
		return types.ClassDigression
	default:
		return label
	}
}

// clipFor derives the display clip positionally correlated with a segment
func clipFor(seg types.Segment) types.Clip {
	return types.Clip{
		ID:             strconv.Itoa(seg.ID),
		Number:         seg.ID,
		StartLabel:     types.FormatClock(seg.Start),
		EndLabel:       types.FormatClock(seg.End),
		Start:          seg.Start,
		End:            seg.End,
		Duration:       seg.Duration(),
		Transcript:     seg.Text,
		TranscriptHTML: seg.Marked,
		Class:          seg.Class,
	}
}
