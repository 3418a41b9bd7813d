// Package event manages the catalog of events, their camera feeds, and the
// timelines synthesized for them.
package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/Kaibo-Huang/Anchor/internal/timeline"
)

// Event is one production: a named occasion with a category that selects the
// switching profile, and an optional external search index.
type Event struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Category      timeline.EventCategory `json:"category"`
	SearchIndexID string                 `json:"search_index_id,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// Camera is one angle of an event, with caller-supplied embedding analysis
// and the computed sync offset relative to the event's first camera.
type Camera struct {
	ID           string                      `json:"id"`
	EventID      string                      `json:"event_id"`
	MediaPath    string                      `json:"media_path"`
	Angle        timeline.AngleType          `json:"angle_type"`
	SyncOffsetMs int                         `json:"sync_offset_ms"`
	Embeddings   []timeline.EmbeddingSegment `json:"embeddings,omitempty"`
	CreatedAt    time.Time                   `json:"created_at"`
}

// StoredTimeline is a synthesized timeline persisted for an event. The
// payload is immutable once written; re-synthesizing replaces it.
type StoredTimeline struct {
	EventID    string             `json:"event_id"`
	Timeline   *timeline.Timeline `json:"timeline"`
	DurationMs int                `json:"duration_ms"`
	CreatedAt  time.Time          `json:"created_at"`
}

// NewID returns a fresh entity identifier.
func NewID() string {
	return uuid.NewString()
}
