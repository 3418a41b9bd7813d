package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Kaibo-Huang/Anchor/internal/config"
	"github.com/Kaibo-Huang/Anchor/internal/export"
	"github.com/Kaibo-Huang/Anchor/internal/timeline"
	"github.com/go-chi/chi/v5"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/events", listEventsHandler(cfg))
		r.Post("/events", createEventHandler(cfg))
		r.Get("/events/{id}", getEventHandler(cfg))
		r.Get("/events/{id}/cameras", listCamerasHandler(cfg))
		r.Post("/events/{id}/cameras", addCameraHandler(cfg))
		r.Post("/events/{id}/timeline", synthesizeHandler(cfg))
		r.Get("/events/{id}/timeline", getTimelineHandler(cfg))
		r.Get("/events/{id}/timeline/edl", exportEDLHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: config.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, _ := cfg.EventService.ListEvents(r.Context())

		WriteJSON(w, http.StatusOK, StatusResponse{
			State:         "idle",
			EventsCount:   len(events),
			SearchEnabled: cfg.SearchEnabled,
		})
	}
}

func listEventsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := cfg.EventService.ListEvents(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list events", "INTERNAL_ERROR")
			return
		}

		resp := EventsResponse{Events: make([]EventResponse, len(events))}
		for i, ev := range events {
			resp.Events[i] = EventToResponse(ev)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createEventHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if req.Name == "" {
			WriteError(w, http.StatusBadRequest, "name is required", "BAD_REQUEST")
			return
		}

		ev, err := cfg.EventService.CreateEvent(r.Context(), req.Name, req.Category, req.SearchIndexID)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusCreated, EventToResponse(ev))
	}
}

func getEventHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "event id required", "BAD_REQUEST")
			return
		}

		ev, err := cfg.EventService.GetEvent(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if ev == nil {
			WriteError(w, http.StatusNotFound, "event not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, EventToResponse(ev))
	}
}

func listCamerasHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "id")
		if eventID == "" {
			WriteError(w, http.StatusBadRequest, "event id required", "BAD_REQUEST")
			return
		}

		cameras, err := cfg.EventService.GetCameras(r.Context(), eventID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		resp := CamerasResponse{Cameras: make([]CameraResponse, len(cameras))}
		for i, cam := range cameras {
			resp.Cameras[i] = CameraToResponse(cam)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func addCameraHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "id")
		if eventID == "" {
			WriteError(w, http.StatusBadRequest, "event id required", "BAD_REQUEST")
			return
		}

		var req AddCameraRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if req.MediaPath == "" {
			WriteError(w, http.StatusBadRequest, "media_path is required", "BAD_REQUEST")
			return
		}

		embeddings := make([]timeline.EmbeddingSegment, len(req.Embeddings))
		for i, e := range req.Embeddings {
			embeddings[i] = timeline.EmbeddingSegment{
				StartSec: e.StartSec,
				EndSec:   e.EndSec,
				Vector:   e.Vector,
			}
		}

		cam, err := cfg.EventService.AddCamera(r.Context(), eventID, req.MediaPath, req.AngleType, embeddings)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusCreated, CameraToResponse(cam))
	}
}

func synthesizeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "id")
		if eventID == "" {
			WriteError(w, http.StatusBadRequest, "event id required", "BAD_REQUEST")
			return
		}

		var req SynthesizeRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
				return
			}
		}

		st, err := cfg.EventService.Synthesize(r.Context(), eventID, req.MaxDurationMs)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusCreated, TimelineToResponse(st))
	}
}

func getTimelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "id")
		if eventID == "" {
			WriteError(w, http.StatusBadRequest, "event id required", "BAD_REQUEST")
			return
		}

		st, err := cfg.EventService.GetTimeline(r.Context(), eventID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if st == nil {
			WriteError(w, http.StatusNotFound, "timeline not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, TimelineToResponse(st))
	}
}

func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "id")
		if eventID == "" {
			WriteError(w, http.StatusBadRequest, "event id required", "BAD_REQUEST")
			return
		}

		ev, err := cfg.EventService.GetEvent(r.Context(), eventID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if ev == nil {
			WriteError(w, http.StatusNotFound, "event not found", "NOT_FOUND")
			return
		}

		st, err := cfg.EventService.GetTimeline(r.Context(), eventID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if st == nil {
			WriteError(w, http.StatusNotFound, "timeline not found", "NOT_FOUND")
			return
		}

		cameras, err := cfg.EventService.GetCameras(r.Context(), eventID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		cuts, unresolved := export.ResolveCuts(st.Timeline, cameras)
		if len(cuts) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "no segments could be resolved", "UNRESOLVABLE_SEGMENTS")
			return
		}
		if len(unresolved) > 0 {
			cfg.Logger.Warn("segments skipped during export",
				"event_id", eventID, "unresolved", len(unresolved))
		}

		title := export.SanitizeName(ev.Name, 120)
		if title == "" {
			title = "anchor_export"
		}

		frameRate := 30.0
		if v := r.URL.Query().Get("frame_rate"); v != "" {
			if parsed, perr := parseFrameRate(v); perr == nil {
				frameRate = parsed
			}
		}

		edl := export.GenerateEDL(cuts, title, frameRate)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+title+`.edl"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(edl))
	}
}

func parseFrameRate(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v <= 0 || v > 240 {
		return 0, strconv.ErrRange
	}
	return v, nil
}
