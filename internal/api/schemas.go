package api

import (
	"time"

	"github.com/Kaibo-Huang/Anchor/internal/event"
	"github.com/Kaibo-Huang/Anchor/internal/timeline"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State         string `json:"state"`
	EventsCount   int    `json:"events_count"`
	SearchEnabled bool   `json:"search_enabled"`
}

type CreateEventRequest struct {
	Name          string `json:"name"`
	Category      string `json:"category"`
	SearchIndexID string `json:"search_index_id,omitempty"`
}

type EventResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	SearchIndexID string `json:"search_index_id,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type EventsResponse struct {
	Events []EventResponse `json:"events"`
}

type EmbeddingSegmentInput struct {
	StartSec float64   `json:"start_sec"`
	EndSec   float64   `json:"end_sec"`
	Vector   []float64 `json:"vector"`
}

type AddCameraRequest struct {
	MediaPath  string                  `json:"media_path"`
	AngleType  string                  `json:"angle_type"`
	Embeddings []EmbeddingSegmentInput `json:"embeddings,omitempty"`
}

type CameraResponse struct {
	ID           string `json:"id"`
	EventID      string `json:"event_id"`
	MediaPath    string `json:"media_path"`
	AngleType    string `json:"angle_type"`
	SyncOffsetMs int    `json:"sync_offset_ms"`
	CreatedAt    string `json:"created_at"`
}

type CamerasResponse struct {
	Cameras []CameraResponse `json:"cameras"`
}

type SynthesizeRequest struct {
	MaxDurationMs int `json:"max_duration_ms,omitempty"`
}

type TimelineResponse struct {
	EventID    string             `json:"event_id"`
	DurationMs int                `json:"duration_ms"`
	CreatedAt  string             `json:"created_at"`
	Timeline   *timeline.Timeline `json:"timeline"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func EventToResponse(ev *event.Event) EventResponse {
	return EventResponse{
		ID:            ev.ID,
		Name:          ev.Name,
		Category:      string(ev.Category),
		SearchIndexID: ev.SearchIndexID,
		CreatedAt:     ev.CreatedAt.Format(time.RFC3339),
	}
}

func CameraToResponse(cam *event.Camera) CameraResponse {
	return CameraResponse{
		ID:           cam.ID,
		EventID:      cam.EventID,
		MediaPath:    cam.MediaPath,
		AngleType:    string(cam.Angle),
		SyncOffsetMs: cam.SyncOffsetMs,
		CreatedAt:    cam.CreatedAt.Format(time.RFC3339),
	}
}

func TimelineToResponse(st *event.StoredTimeline) TimelineResponse {
	return TimelineResponse{
		EventID:    st.EventID,
		DurationMs: st.DurationMs,
		CreatedAt:  st.CreatedAt.Format(time.RFC3339),
		Timeline:   st.Timeline,
	}
}
