package handlers

import (
	"encoding/json"
	"log"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/coursecut/dashboard/internal/playback"
)

// PlayerHandler bridges a browser video player to its job's playback
// session over a WebSocket. The browser reports player time and user
// actions; the session answers with seek commands and the derived
// subtitle/highlight state.
type PlayerHandler struct {
	hub *Hub
}

// NewPlayerHandler creates a player bridge handler
func NewPlayerHandler(hub *Hub) *PlayerHandler {
	return &PlayerHandler{hub: hub}
}

type playerMessage struct {
	Type      string               `json:"type"`
	Time      float64              `json:"time,omitempty"`
	ClipID    string               `json:"clip_id,omitempty"`
	SegmentID int                  `json:"segment_id,omitempty"`
	Text      string               `json:"text,omitempty"`
	Scroll    *playback.ScrollInfo `json:"scroll,omitempty"`
	Peer      *playback.ScrollInfo `json:"peer,omitempty"`
}

type playerState struct {
	Type          string  `json:"type"`
	Subtitle      string  `json:"subtitle"`
	ActiveClipID  string  `json:"active_clip_id,omitempty"`
	ActiveSegment int     `json:"active_segment_id,omitempty"`
	ScrollTarget  string  `json:"scroll_target,omitempty"`
	EditingID     int     `json:"editing_id,omitempty"`
	Editing       bool    `json:"editing"`
	Time          float64 `json:"time"`
}

// Handle processes one player WebSocket connection
func (h *PlayerHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	jobID := c.Params("id")
	connID := uuid.New().String()
	log.Printf("Player connected: job=%s conn=%s", jobID, connID)

	view := h.hub.Open(jobID)
	view.Sync()
	session := view.Session

	out := make(chan interface{}, 32)
	done := make(chan struct{})

	// Single writer; concurrent WriteJSON on one conn is not safe.
	go func() {
		for {
			select {
			case msg := <-out:
				if err := c.WriteJSON(msg); err != nil {
					log.Printf("Player write error: conn=%s: %v", connID, err)
					return
				}
			case <-done:
				return
			}
		}
	}()

	// Forward seek commands produced by the session.
	go func() {
		for {
			select {
			case cmd := <-session.Commands():
				select {
				case out <- cmd:
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()

	defer close(done)

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			log.Printf("Player disconnected: job=%s conn=%s: %v", jobID, connID, err)
			return
		}

		var msg playerMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("Player message parse error: conn=%s: %v", connID, err)
			continue
		}

		switch msg.Type {
		case "time":
			// Pick up fresh segments if the job just finished.
			view.Sync()
			session.ReportTime(msg.Time)
			h.send(out, stateOf(session))

		case "seek":
			session.Seek(msg.Time)

		case "clip_select":
			session.SelectClip(msg.ClipID)
			h.send(out, stateOf(session))

		case "clip_play":
			if !session.PlayClip(msg.ClipID) {
				log.Printf("Unknown clip %q: job=%s", msg.ClipID, jobID)
			}

		case "segment_click":
			if !session.ClickSegment(msg.SegmentID) {
				log.Printf("Unknown segment %d: job=%s", msg.SegmentID, jobID)
			}

		case "edit_begin":
			if text, ok := session.BeginEdit(msg.SegmentID); ok {
				h.send(out, playerMessage{Type: "edit_text", SegmentID: msg.SegmentID, Text: text})
			}
			h.send(out, stateOf(session))

		case "edit_commit":
			session.CommitEdit(msg.SegmentID, msg.Text)
			h.send(out, stateOf(session))

		case "edit_cancel":
			session.CancelEdit()
			h.send(out, stateOf(session))

		case "scroll":
			if msg.Scroll != nil && msg.Peer != nil {
				top := playback.MirrorTop(*msg.Scroll, *msg.Peer)
				h.send(out, playerMessage{Type: "scroll", Scroll: &playback.ScrollInfo{Top: top}})
			}

		default:
			log.Printf("Unknown player message type %q: conn=%s", msg.Type, connID)
		}
	}
}

func (h *PlayerHandler) send(out chan<- interface{}, msg interface{}) {
	// Drop state updates rather than block the read loop.
	select {
	case out <- msg:
	default:
	}
}

func stateOf(s *playback.Session) playerState {
	state := playerState{
		Type:         "state",
		Subtitle:     s.CurrentSubtitle(),
		ScrollTarget: s.ScrollTarget(),
		Time:         s.CurrentTime(),
	}
	if clip, ok := s.ActiveClip(); ok {
		state.ActiveClipID = clip.ID
	}
	if seg, ok := s.ActiveSegment(); ok {
		state.ActiveSegment = seg.ID
	}
	if id, ok := s.Editing(); ok {
		state.EditingID = id
		state.Editing = true
	}
	return state
}
