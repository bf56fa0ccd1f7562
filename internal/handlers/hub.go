package handlers

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/coursecut/dashboard/internal/api"
	"github.com/coursecut/dashboard/internal/detail"
	"github.com/coursecut/dashboard/internal/playback"
)

// View bundles the per-job detail poller with its playback session
type View struct {
	Detail  *detail.Detail
	Session *playback.Session
}

// Sync pushes the latest detail snapshot into the playback session.
// The job id keys the segment list's identity, so re-syncing the same
// job is a no-op and never clobbers local edits.
func (v *View) Sync() (detail.Snapshot, bool) {
	snap, ok := v.Detail.Snapshot()
	if !ok {
		return snap, false
	}
	if snap.Terminal() && len(snap.Segments) > 0 {
		v.Session.Load(snap.ID, snap.Segments, snap.Clips)
	}
	return snap, true
}

// Hub owns one View per job a client is looking at. Views are created
// on first access and their pollers stop on their own once the job
// reaches a terminal status; Release tears one down early.
type Hub struct {
	client   *api.Client
	interval time.Duration
	baseCtx  context.Context

	mu    sync.Mutex
	views map[string]*View
}

// NewHub creates an empty view hub. Pollers started by Open outlive
// the requests that open them, so they run on baseCtx, not on request
// contexts.
func NewHub(baseCtx context.Context, client *api.Client, interval time.Duration) *Hub {
	return &Hub{
		client:   client,
		interval: interval,
		baseCtx:  baseCtx,
		views:    make(map[string]*View),
	}
}

// Open returns the view for a job, starting its poller on first use
func (h *Hub) Open(jobID string) *View {
	h.mu.Lock()
	defer h.mu.Unlock()

	if v, ok := h.views[jobID]; ok {
		return v
	}

	d := detail.New(h.client, jobID, h.interval)
	d.Start(h.baseCtx)
	v := &View{Detail: d, Session: playback.NewSession()}
	h.views[jobID] = v
	log.Printf("Opened job view: %s", jobID)
	return v
}

// Peek returns an already-open view without creating one
func (h *Hub) Peek(jobID string) (*View, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.views[jobID]
	return v, ok
}

// Release stops a job's poller and drops its view
func (h *Hub) Release(jobID string) {
	h.mu.Lock()
	v, ok := h.views[jobID]
	delete(h.views, jobID)
	h.mu.Unlock()

	if ok {
		v.Detail.Stop()
		log.Printf("Released job view: %s", jobID)
	}
}

// Close stops every open view
func (h *Hub) Close() {
	h.mu.Lock()
	views := h.views
	h.views = make(map[string]*View)
	h.mu.Unlock()

	for id, v := range views {
		v.Detail.Stop()
		log.Printf("Released job view: %s", id)
	}
}
