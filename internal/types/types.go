package types

import "fmt"

// Job status constants as reported by the processing backend
const (
	StatusQueued   = "queued"
	StatusStarted  = "started"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// Segment classification labels
const (
	ClassCore       = "core content"
	ClassDigression = "digression"
	ClassUnlabeled  = "unclassified"
)

// IsTerminal reports whether a job status can no longer change
func IsTerminal(status string) bool {
	return status == StatusFinished || status == StatusFailed
}

// StatusLabel maps a raw backend status to a display label
func StatusLabel(status string) string {
	switch status {
	case StatusQueued:
		return "Queued"
	case StatusStarted:
		return "Processing"
	case StatusFinished:
		return "Completed"
	case StatusFailed:
		return "Failed"
	default:
		return status
	}
}

// Segment is one transcript unit of a finished job, editable locally
type Segment struct {
	ID    int     `json:"segment_id"`
	Start float64 `json:"start_time"`
	End   float64 `json:"end_time"`
	Text  string  `json:"transcript"`
	// Marked carries the glossary-highlighted variant of Text, if any
	Marked string `json:"transcript_marked,omitempty"`
	Class  string `json:"classification"`
}

// Duration returns the segment length in seconds
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Clip is a display slice positionally correlated with a segment
type Clip struct {
	ID             string  `json:"id"`
	Number         int     `json:"clip_number"`
	StartLabel     string  `json:"start_time"`
	EndLabel       string  `json:"end_time"`
	Start          float64 `json:"start_sec"`
	End            float64 `json:"end_sec"`
	Duration       float64 `json:"duration"`
	Transcript     string  `json:"transcript,omitempty"`
	TranscriptHTML string  `json:"transcript_html,omitempty"`
	Class          string  `json:"classification,omitempty"`
}

// FormatClock renders seconds as mm:ss for clip time labels, rolling
// over to h:mm:ss past an hour.
func FormatClock(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := total % 3600 / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
