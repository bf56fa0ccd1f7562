// Package playback keeps a video player's position, the clip list and
// the editable transcript segments mutually synchronized. Segment text
// edits live here, in memory, until an export persists a derived
// artifact; the upstream job result is never touched.
package playback

import (
	"sync"

	"github.com/coursecut/dashboard/internal/api"
	"github.com/coursecut/dashboard/internal/types"
)

// DefaultDeadband is the window, in seconds, inside which a seek
// request is considered an echo of the player's own time reports and
// ignored. Without it, player time updates fed back as seeks would
// stutter playback.
const DefaultDeadband = 0.3

// Command is an instruction for the video player
type Command struct {
	Type     string  `json:"type"`
	Time     float64 `json:"time"`
	Autoplay bool    `json:"autoplay"`
}

// ScrollInfo describes one scrollable list viewport
type ScrollInfo struct {
	Top        float64 `json:"top"`
	Height     float64 `json:"height"`
	ViewHeight float64 `json:"view_height"`
}

// MirrorTop maps a scroll position from one list viewport onto another
// proportionally, for side-by-side clip/segment lists that mirror each
// other's scrolling.
func MirrorTop(src, dst ScrollInfo) float64 {
	srcRange := src.Height - src.ViewHeight
	dstRange := dst.Height - dst.ViewHeight
	if srcRange <= 0 || dstRange <= 0 {
		return 0
	}
	top := src.Top / srcRange * dstRange
	if top < 0 {
		return 0
	}
	if top > dstRange {
		return dstRange
	}
	return top
}

// Session owns the synchronized playback and edit state for one job
type Session struct {
	mu sync.RWMutex

	revision string
	segments []types.Segment
	clips    []types.Clip

	current        float64
	selectedClipID string

	editingID int
	editText  string

	deadband float64
	commands chan Command
}

// NewSession creates an empty session
func NewSession() *Session {
	return &Session{
		editingID: -1,
		deadband:  DefaultDeadband,
		commands:  make(chan Command, 16),
	}
}

// Commands yields player instructions produced by seeks. The channel
// is buffered; when a consumer lags, older commands are dropped in
// favor of the newest.
func (s *Session) Commands() <-chan Command {
	return s.commands
}

// Load seeds the session from an upstream snapshot. The revision keys
// the identity of the incoming segment list: reloading the same
// revision is a no-op so poll ticks of the same job never clobber
// local edits, while a different revision (new job, reprocessing)
// resets everything — discarding edits by design.
func (s *Session) Load(revision string, segments []types.Segment, clips []types.Clip) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if revision == s.revision {
		return false
	}

	s.revision = revision
	s.segments = append([]types.Segment(nil), segments...)
	s.clips = append([]types.Clip(nil), clips...)
	s.current = 0
	s.selectedClipID = ""
	s.editingID = -1
	s.editText = ""
	return true
}

// Revision returns the identity key of the loaded segment list
func (s *Session) Revision() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// ReportTime records where the player says it is. Reports never feed
// back into the player; they only move the derived active clip and
// segment.
func (s *Session) ReportTime(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = t
}

// Seek requests an external jump. Requests within the deadband of the
// reported player position are echoes of our own time updates and are
// dropped; real jumps update state and emit a player command.
func (s *Session) Seek(t float64) bool {
	return s.seek(t, true)
}

func (s *Session) seek(t float64, autoplay bool) bool {
	s.mu.Lock()
	delta := t - s.current
	if delta < 0 {
		delta = -delta
	}
	if delta <= s.deadband {
		s.mu.Unlock()
		return false
	}
	s.current = t
	s.mu.Unlock()

	s.emit(Command{Type: "seek", Time: t, Autoplay: autoplay})
	return true
}

// SelectClip highlights a clip without interrupting playback
func (s *Session) SelectClip(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedClipID = id
}

// SelectedClipID returns the highlighted clip id, if any
func (s *Session) SelectedClipID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedClipID
}

// PlayClip highlights a clip and seeks the player to its start
func (s *Session) PlayClip(id string) bool {
	s.mu.Lock()
	var clip *types.Clip
	for i := range s.clips {
		if s.clips[i].ID == id {
			clip = &s.clips[i]
			break
		}
	}
	if clip == nil {
		s.mu.Unlock()
		return false
	}
	s.selectedClipID = id
	start := clip.Start
	s.mu.Unlock()

	s.seek(start, true)
	return true
}

// ClickSegment seeks the player to a segment's start time
func (s *Session) ClickSegment(id int) bool {
	s.mu.RLock()
	var start float64
	found := false
	for _, seg := range s.segments {
		if seg.ID == id {
			start = seg.Start
			found = true
			break
		}
	}
	s.mu.RUnlock()

	if !found {
		return false
	}
	s.seek(start, true)
	return true
}

// BeginEdit opens a segment for text editing and returns its current
// text. Starting an edit on another segment abandons the previous one;
// only one segment is ever in edit mode.
func (s *Session) BeginEdit(id int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seg := range s.segments {
		if seg.ID == id {
			s.editingID = id
			s.editText = seg.Text
			return seg.Text, true
		}
	}
	return "", false
}

// CommitEdit replaces a segment's text in the local copy and leaves
// edit mode. The segments slice is replaced, not mutated in place.
// Nothing is sent to the backend.
func (s *Session) CommitEdit(id int, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, seg := range s.segments {
		if seg.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	updated := append([]types.Segment(nil), s.segments...)
	updated[idx].Text = text
	s.segments = updated

	if s.editingID == id {
		s.editingID = -1
		s.editText = ""
	}
	return true
}

// CancelEdit leaves edit mode without applying the pending text
func (s *Session) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editingID = -1
	s.editText = ""
}

// Editing returns the segment id currently in edit mode, if any
func (s *Session) Editing() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.editingID < 0 {
		return 0, false
	}
	return s.editingID, true
}

// CurrentTime returns the last known player position
func (s *Session) CurrentTime() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Segments returns a copy of the local, possibly edited segment list
func (s *Session) Segments() []types.Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Segment(nil), s.segments...)
}

// Clips returns a copy of the clip list
func (s *Session) Clips() []types.Clip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Clip(nil), s.clips...)
}

// Updates reduces the full current segment list to the edit payload a
// course merge expects. The backend decides which segments are kept;
// no filtering happens here.
func (s *Session) Updates() []api.SegmentUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	updates := make([]api.SegmentUpdate, 0, len(s.segments))
	for _, seg := range s.segments {
		text := seg.Text
		updates = append(updates, api.SegmentUpdate{
			SegmentID:  seg.ID,
			Transcript: &text,
		})
	}
	return updates
}

// ActiveClip returns the clip containing the current time. Intervals
// are start-inclusive and end-exclusive so a boundary instant belongs
// to the next clip; the final clip keeps its end. First match wins on
// malformed overlapping input.
func (s *Session) ActiveClip() (types.Clip, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, c := range s.clips {
		if within(s.current, c.Start, c.End, i == len(s.clips)-1) {
			return c, true
		}
	}
	return types.Clip{}, false
}

// ActiveSegment returns the segment containing the current time, under
// the same boundary rule as ActiveClip.
func (s *Session) ActiveSegment() (types.Segment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeSegmentLocked()
}

func (s *Session) activeSegmentLocked() (types.Segment, bool) {
	for i, seg := range s.segments {
		if within(s.current, seg.Start, seg.End, i == len(s.segments)-1) {
			return seg, true
		}
	}
	return types.Segment{}, false
}

// CurrentSubtitle returns the active segment's (possibly edited) text
func (s *Session) CurrentSubtitle() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if seg, ok := s.activeSegmentLocked(); ok {
		return seg.Text
	}
	return ""
}

// ScrollTarget returns the list item id that should be scrolled into
// view: an explicit selection wins over the time-derived active clip.
// Scrolling is a side effect for the consumer; it never changes
// session state.
func (s *Session) ScrollTarget() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedClipID != "" {
		return s.selectedClipID
	}
	for i, c := range s.clips {
		if within(s.current, c.Start, c.End, i == len(s.clips)-1) {
			return c.ID
		}
	}
	return ""
}

func within(t, start, end float64, last bool) bool {
	if t < start {
		return false
	}
	if last {
		return t <= end
	}
	return t < end
}

// emit delivers a command without ever blocking a state mutation; a
// full buffer sheds the oldest command first.
func (s *Session) emit(cmd Command) {
	for {
		select {
		case s.commands <- cmd:
			return
		default:
		}
		select {
		case <-s.commands:
		default:
		}
	}
}
