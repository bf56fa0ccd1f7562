// Package poller provides the shared polling primitive behind every
// job-tracking view. A Poller repeatedly calls a fetch function at a
// fixed interval, keeps the latest snapshot, and stops itself as soon
// as the snapshot reaches a terminal state.
package poller

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval matches the detail-view refresh rate
const DefaultInterval = 1500 * time.Millisecond

// FetchFunc produces the next snapshot
type FetchFunc[T any] func(ctx context.Context) (T, error)

// TerminalFunc reports whether a snapshot can no longer change
type TerminalFunc[T any] func(T) bool

// Poller drives one eventually-consistent snapshot from a backend.
// A fetch error after the first successful snapshot keeps the previous
// snapshot and records the error; the loop keeps running. A snapshot
// recognized as terminal stops the loop for good.
type Poller[T any] struct {
	interval time.Duration
	fetch    FetchFunc[T]
	terminal TerminalFunc[T]

	mu       sync.RWMutex
	snapshot T
	have     bool
	loading  bool
	errMsg   string
	stopped  bool

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a poller; it does nothing until Start is called.
func New[T any](interval time.Duration, fetch FetchFunc[T], terminal TerminalFunc[T]) *Poller[T] {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller[T]{
		interval: interval,
		fetch:    fetch,
		terminal: terminal,
		loading:  true,
		done:     make(chan struct{}),
	}
}

// Start begins polling with an immediate first fetch
func (p *Poller[T]) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
	go p.run(ctx)
}

// Stop cancels the loop. No snapshot or error updates happen after
// Stop returns, even from a fetch that is still in flight.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	p.stopped = true
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Done is closed when the loop has exited
func (p *Poller[T]) Done() <-chan struct{} {
	return p.done
}

// Snapshot returns the latest snapshot and whether one exists yet
func (p *Poller[T]) Snapshot() (T, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot, p.have
}

// Loading is true only until the first fetch settles
func (p *Poller[T]) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}

// Err returns the message of the most recent failed fetch, or "".
// It is cleared by the next successful fetch.
func (p *Poller[T]) Err() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.errMsg
}

func (p *Poller[T]) run(ctx context.Context) {
	defer close(p.done)

	if p.tick(ctx) {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.tick(ctx) {
				return
			}
		}
	}
}

// tick fetches once and applies the result. It returns true when the
// loop should end, either because the snapshot is terminal or because
// the poller was stopped while the fetch was in flight.
func (p *Poller[T]) tick(ctx context.Context) bool {
	snap, err := p.fetch(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	// A late response must not be applied after a stop decision
	if p.stopped || ctx.Err() != nil {
		return true
	}

	p.loading = false
	if err != nil {
		p.errMsg = err.Error()
		return false
	}

	p.errMsg = ""
	p.snapshot = snap
	p.have = true
	return p.terminal != nil && p.terminal(snap)
}
