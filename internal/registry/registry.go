// Package registry aggregates every backend job into display summaries,
// refreshed by polling the bucketed job list.
package registry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/coursecut/dashboard/internal/api"
	"github.com/coursecut/dashboard/internal/poller"
	"github.com/coursecut/dashboard/internal/storage"
	"github.com/coursecut/dashboard/internal/types"
)

// DefaultInterval is the list-view refresh rate
const DefaultInterval = 3 * time.Second

// Summary is one job row ready for display
type Summary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status"`
	StatusLabel string `json:"status_label"`
	Progress    int    `json:"progress"`
	Phase       string `json:"phase,omitempty"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	CanView     bool   `json:"can_view"`
	// Tracked marks jobs started through this dashboard
	Tracked bool `json:"tracked"`
}

// BulkResult summarizes a bulk delete; item outcomes are independent
type BulkResult struct {
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// Registry is the job-list view-model. It owns one poller over the
// bucketed list and the advisory set of remembered job ids.
type Registry struct {
	client *api.Client
	db     *storage.TrackedJobDB
	poll   *poller.Poller[[]Summary]

	mu      sync.RWMutex
	tracked map[string]struct{}
}

// New creates a registry. db may be nil; tracking then lives in memory
// only. Remembered ids from a previous session are seeded into the
// tracked set; the server list remains authoritative.
func New(client *api.Client, db *storage.TrackedJobDB, interval time.Duration) *Registry {
	if interval <= 0 {
		interval = DefaultInterval
	}
	r := &Registry{
		client:  client,
		db:      db,
		tracked: make(map[string]struct{}),
	}
	if db != nil {
		ids, err := db.RememberedIDs()
		if err != nil {
			log.Printf("Could not load remembered job ids: %v", err)
		}
		for _, id := range ids {
			r.tracked[id] = struct{}{}
		}
	}
	// The job list has no terminal state; the poller runs until Stop
	r.poll = poller.New(interval, r.fetch, nil)
	return r
}

// Start begins list polling
func (r *Registry) Start(ctx context.Context) {
	r.poll.Start(ctx)
}

// Stop ends list polling
func (r *Registry) Stop() {
	r.poll.Stop()
}

// Jobs returns the latest summaries and whether a list has loaded yet
func (r *Registry) Jobs() ([]Summary, bool) {
	return r.poll.Snapshot()
}

// Loading is true until the first list response settles
func (r *Registry) Loading() bool {
	return r.poll.Loading()
}

// Err returns the most recent polling error, if any
func (r *Registry) Err() string {
	return r.poll.Err()
}

// Refresh performs one synchronous fetch, for callers that just mutated
// server state and want the next render to reflect it.
func (r *Registry) Refresh(ctx context.Context) ([]Summary, error) {
	return r.fetch(ctx)
}

func (r *Registry) fetch(ctx context.Context) ([]Summary, error) {
	buckets, err := r.client.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	r.reconcileTracked(buckets)

	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := buckets.All()
	summaries := make([]Summary, 0, len(jobs))
	for _, j := range jobs {
		_, tracked := r.tracked[j.ID]
		summaries = append(summaries, summarize(j, tracked))
	}
	return summaries, nil
}

// reconcileTracked silently drops remembered ids the server no longer
// recognizes. Persistence failures are logged and ignored; the set is
// advisory only.
func (r *Registry) reconcileTracked(buckets api.JobBuckets) {
	known := make(map[string]struct{})
	for _, j := range buckets.All() {
		known[j.ID] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.tracked {
		if _, ok := known[id]; ok {
			continue
		}
		delete(r.tracked, id)
		if r.db != nil {
			if err := r.db.Forget(id); err != nil {
				log.Printf("Could not forget stale job %s: %v", id, err)
			}
		}
	}
}

// Track remembers ids of jobs started through this dashboard
func (r *Registry) Track(ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.tracked[id] = struct{}{}
		if r.db != nil {
			if err := r.db.Remember(id, ""); err != nil {
				log.Printf("Could not persist tracked job %s: %v", id, err)
			}
		}
	}
}

// Tracked reports whether a job id was started through this dashboard
func (r *Registry) Tracked(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tracked[id]
	return ok
}

// StartProcessing enqueues processing for recordings and tracks the
// returned job ids.
func (r *Registry) StartProcessing(ctx context.Context, req api.StartJobsRequest) ([]string, error) {
	ids, err := r.client.StartJobs(ctx, req)
	if err != nil {
		return nil, err
	}
	r.Track(ids...)
	return ids, nil
}

// Upload sends files to the backend for processing and tracks the
// created job ids.
func (r *Registry) Upload(ctx context.Context, files []api.UploadFile, cutClips bool) ([]string, error) {
	ids, err := r.client.UploadJobs(ctx, files, cutClips)
	if err != nil {
		return nil, err
	}
	r.Track(ids...)
	return ids, nil
}

// Delete removes one job. A 404 means the job is already gone
// server-side and is treated as success.
func (r *Registry) Delete(ctx context.Context, id string, purge bool) error {
	err := r.client.DeleteJob(ctx, id, purge)
	if err != nil && !api.IsNotFound(err) {
		return err
	}
	r.mu.Lock()
	delete(r.tracked, id)
	r.mu.Unlock()
	if r.db != nil {
		if ferr := r.db.Forget(id); ferr != nil {
			log.Printf("Could not forget deleted job %s: %v", id, ferr)
		}
	}
	return nil
}

// DeleteMany deletes a batch of jobs; each item's outcome is
// independent and one failure never aborts the rest.
func (r *Registry) DeleteMany(ctx context.Context, ids []string, purge bool) BulkResult {
	var result BulkResult
	for _, id := range ids {
		if err := r.Delete(ctx, id, purge); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, id+": "+err.Error())
			continue
		}
		result.Succeeded++
	}
	return result
}

// summarize maps a raw job to its display row. Progress defaults to
// 100 for finished jobs and 0 otherwise when the backend reports none.
func summarize(j api.Job, tracked bool) Summary {
	progress := 0
	if j.Meta.Progress != nil {
		progress = *j.Meta.Progress
	} else if j.Status == types.StatusFinished {
		progress = 100
	}

	return Summary{
		ID:          j.ID,
		DisplayName: displayName(j),
		Status:      j.Status,
		StatusLabel: types.StatusLabel(j.Status),
		Progress:    progress,
		Phase:       j.Meta.Phase,
		Error:       j.Error,
		CreatedAt:   createdAt(j),
		CanView:     j.Status == types.StatusFinished,
		Tracked:     tracked,
	}
}

// displayName prefers the original filename, falling back to a
// truncated job id.
func displayName(j api.Job) string {
	if j.Meta.Filename != "" {
		return j.Meta.Filename
	}
	if len(j.ID) > 8 {
		return j.ID[:8]
	}
	return j.ID
}

func createdAt(j api.Job) string {
	if j.EnqueuedAt != "" {
		return j.EnqueuedAt
	}
	if j.StartedAt != "" {
		return j.StartedAt
	}
	return j.EndedAt
}
