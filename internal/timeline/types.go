// Package timeline synthesizes an edit-decision timeline for one multi-camera
// event: audio-based feed alignment, scene-context construction, per-moment
// camera scoring, hysteresis-stabilized segment selection, ad-slot planning,
// and zoom/chapter markers.
package timeline

import "fmt"

// AngleType categorizes what a camera physically shows.
type AngleType string

const (
	AngleWide    AngleType = "wide"
	AngleCloseup AngleType = "closeup"
	AngleCrowd   AngleType = "crowd"
	AngleGoal    AngleType = "goal_angle"
	AngleStage   AngleType = "stage"
	AngleOther   AngleType = "other"
)

// ParseAngleType validates a wire-format angle type string.
func ParseAngleType(s string) (AngleType, error) {
	switch AngleType(s) {
	case AngleWide, AngleCloseup, AngleCrowd, AngleGoal, AngleStage, AngleOther:
		return AngleType(s), nil
	default:
		return "", fmt.Errorf("unknown angle type %q", s)
	}
}

// EventCategory selects the switching profile and pacing rules.
type EventCategory string

const (
	EventSports      EventCategory = "sports"
	EventCeremony    EventCategory = "ceremony"
	EventPerformance EventCategory = "performance"
	EventSpeech      EventCategory = "speech"
	EventLecture     EventCategory = "lecture"
)

// ParseEventCategory validates a wire-format event category string.
func ParseEventCategory(s string) (EventCategory, error) {
	switch EventCategory(s) {
	case EventSports, EventCeremony, EventPerformance, EventSpeech, EventLecture:
		return EventCategory(s), nil
	default:
		return "", fmt.Errorf("unknown event category %q", s)
	}
}

// EmbeddingSegment is one pre-computed semantic embedding covering a time
// window of a single camera's footage.
type EmbeddingSegment struct {
	StartSec float64   `json:"start_sec"`
	EndSec   float64   `json:"end_sec"`
	Vector   []float64 `json:"vector"`
}

// CameraFeed describes one camera angle of the event. Embeddings are opaque
// caller-supplied analysis data; SyncOffsetMs is computed by the Aligner
// relative to the first feed.
type CameraFeed struct {
	ID           string             `json:"id"`
	MediaPath    string             `json:"media_path"`
	Angle        AngleType          `json:"angle_type"`
	Embeddings   []EmbeddingSegment `json:"embeddings"`
	SyncOffsetMs int                `json:"sync_offset_ms"`
}

// SceneContext is a chronological window of the merged event timeline carrying
// an aggregate embedding, an optional inferred scene label, and an
// action-intensity estimate on a 0-10 scale (5 = unknown/medium).
type SceneContext struct {
	StartMs         int
	EndMs           int
	Embedding       []float64
	SceneType       string
	ActionIntensity int
}

// Segment is one contiguous span of the output shown from a single camera.
type Segment struct {
	StartMs  int    `json:"start_ms"`
	EndMs    int    `json:"end_ms"`
	CameraID string `json:"camera_id"`
}

// Duration returns the segment length in milliseconds.
func (s Segment) Duration() int { return s.EndMs - s.StartMs }

// AdSlot is a scored position where an advertisement may be safely inserted.
type AdSlot struct {
	TimestampMs int     `json:"timestamp_ms"`
	DurationMs  int     `json:"duration_ms"`
	Score       float64 `json:"score"`
}

// Zoom marks a moment that deserves zoom emphasis during rendering.
type Zoom struct {
	StartMs    int     `json:"start_ms"`
	DurationMs int     `json:"duration_ms"`
	Factor     float64 `json:"zoom_factor"`
}

// Chapter is a navigation marker.
type Chapter struct {
	TimestampMs int    `json:"timestamp_ms"`
	Title       string `json:"title"`
	Kind        string `json:"type"`
}

// Timeline is the sole synthesis output, immutable once returned. Slices are
// always non-nil so the JSON encoding carries empty arrays, never null.
type Timeline struct {
	Segments []Segment `json:"segments"`
	Zooms    []Zoom    `json:"zooms"`
	AdSlots  []AdSlot  `json:"ad_slots"`
	Chapters []Chapter `json:"chapters"`
}

// NewTimeline returns an empty timeline with allocated slices.
func NewTimeline() *Timeline {
	return &Timeline{
		Segments: []Segment{},
		Zooms:    []Zoom{},
		AdSlots:  []AdSlot{},
		Chapters: []Chapter{},
	}
}

// DurationMs returns the summed duration of all segments.
func (t *Timeline) DurationMs() int {
	total := 0
	for _, s := range t.Segments {
		total += s.Duration()
	}
	return total
}

// CamerasUsed returns the set of camera IDs appearing in segments.
func (t *Timeline) CamerasUsed() map[string]bool {
	used := make(map[string]bool, len(t.Segments))
	for _, s := range t.Segments {
		used[s.CameraID] = true
	}
	return used
}
