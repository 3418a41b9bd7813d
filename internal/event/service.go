package event

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Kaibo-Huang/Anchor/internal/logging"
	"github.com/Kaibo-Huang/Anchor/internal/timeline"
)

// Aligner computes per-feed sync offsets for an ordered list of media paths.
type Aligner interface {
	Align(ctx context.Context, mediaPaths []string) []int
}

// Prober reads media durations.
type Prober interface {
	DurationMs(ctx context.Context, mediaPath string) (int, error)
}

// Generator synthesizes a timeline from aligned camera feeds.
type Generator interface {
	Generate(ctx context.Context, cameras []timeline.CameraFeed, category timeline.EventCategory,
		indexID string, sourceDurationMs, maxDurationMs int) (*timeline.Timeline, error)
}

// EventService is the catalog and synthesis entry point used by the API.
type EventService interface {
	CreateEvent(ctx context.Context, name, category, searchIndexID string) (*Event, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	ListEvents(ctx context.Context) ([]*Event, error)
	AddCamera(ctx context.Context, eventID, mediaPath, angleType string, embeddings []timeline.EmbeddingSegment) (*Camera, error)
	GetCameras(ctx context.Context, eventID string) ([]*Camera, error)
	Synthesize(ctx context.Context, eventID string, maxDurationMs int) (*StoredTimeline, error)
	GetTimeline(ctx context.Context, eventID string) (*StoredTimeline, error)
}

type Service struct {
	repo         Repository
	aligner      Aligner
	prober       Prober
	generator    Generator
	defaultMaxMs int
	logger       *slog.Logger
}

func NewService(repo Repository, aligner Aligner, prober Prober, generator Generator, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		aligner:   aligner,
		prober:    prober,
		generator: generator,
		logger:    logger,
	}
}

// SetDefaultMaxDuration sets the output cap used when a synthesis request
// does not carry its own.
func (s *Service) SetDefaultMaxDuration(d time.Duration) {
	s.defaultMaxMs = int(d.Milliseconds())
}

func (s *Service) CreateEvent(ctx context.Context, name, category, searchIndexID string) (*Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("event name is required")
	}

	cat, err := timeline.ParseEventCategory(category)
	if err != nil {
		return nil, err
	}

	ev := &Event{
		ID:            NewID(),
		Name:          name,
		Category:      cat,
		SearchIndexID: searchIndexID,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.CreateEvent(ctx, ev); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("event created", "event_id", ev.ID, "category", string(cat))
	}
	return ev, nil
}

func (s *Service) GetEvent(ctx context.Context, id string) (*Event, error) {
	return s.repo.GetEvent(ctx, id)
}

func (s *Service) ListEvents(ctx context.Context) ([]*Event, error) {
	return s.repo.ListEvents(ctx)
}

func (s *Service) AddCamera(ctx context.Context, eventID, mediaPath, angleType string, embeddings []timeline.EmbeddingSegment) (*Camera, error) {
	if strings.TrimSpace(mediaPath) == "" {
		return nil, fmt.Errorf("media path is required")
	}

	angle, err := timeline.ParseAngleType(angleType)
	if err != nil {
		return nil, err
	}

	ev, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, fmt.Errorf("event not found")
	}

	cam := &Camera{
		ID:         NewID(),
		EventID:    eventID,
		MediaPath:  mediaPath,
		Angle:      angle,
		Embeddings: embeddings,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.CreateCamera(ctx, cam); err != nil {
		return nil, err
	}

	if s.logger != nil {
		logging.WithCameraID(s.logger, cam.ID).Info("camera added",
			"event_id", eventID,
			"angle", string(angle),
			"embedding_segments", len(embeddings),
		)
	}
	return cam, nil
}

func (s *Service) GetCameras(ctx context.Context, eventID string) ([]*Camera, error) {
	return s.repo.GetCamerasByEvent(ctx, eventID)
}

// Synthesize aligns the event's cameras, runs timeline generation, and
// persists the result. The run touches nothing outside the catalog until the
// timeline is stored, so a cancelled context simply abandons the work.
func (s *Service) Synthesize(ctx context.Context, eventID string, maxDurationMs int) (*StoredTimeline, error) {
	ev, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, fmt.Errorf("event not found")
	}

	cameras, err := s.repo.GetCamerasByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	feeds := make([]timeline.CameraFeed, len(cameras))
	paths := make([]string, len(cameras))
	for i, cam := range cameras {
		feeds[i] = timeline.CameraFeed{
			ID:         cam.ID,
			MediaPath:  cam.MediaPath,
			Angle:      cam.Angle,
			Embeddings: cam.Embeddings,
		}
		paths[i] = cam.MediaPath
	}

	offsets := s.aligner.Align(ctx, paths)
	for i := range feeds {
		if i < len(offsets) {
			feeds[i].SyncOffsetMs = offsets[i]
			if err := s.repo.UpdateCameraSyncOffset(ctx, feeds[i].ID, offsets[i]); err != nil {
				return nil, err
			}
		}
	}

	sourceDurationMs := s.sourceDuration(ctx, feeds)

	if maxDurationMs <= 0 {
		maxDurationMs = s.defaultMaxMs
	}

	tl, err := s.generator.Generate(ctx, feeds, ev.Category, ev.SearchIndexID, sourceDurationMs, maxDurationMs)
	if err != nil {
		return nil, err
	}

	st := &StoredTimeline{
		EventID:    eventID,
		Timeline:   tl,
		DurationMs: tl.DurationMs(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.SaveTimeline(ctx, st); err != nil {
		return nil, err
	}

	if s.logger != nil {
		logging.WithEventID(s.logger, eventID).Info("timeline stored",
			"segments", len(tl.Segments),
			"duration_ms", st.DurationMs,
		)
	}
	return st, nil
}

// sourceDuration probes the reference feed's duration, falling back to the
// embedding coverage when probing fails. A probe failure degrades the run
// rather than aborting it.
func (s *Service) sourceDuration(ctx context.Context, feeds []timeline.CameraFeed) int {
	if len(feeds) == 0 {
		return 0
	}

	if s.prober != nil {
		if ms, err := s.prober.DurationMs(ctx, feeds[0].MediaPath); err == nil && ms > 0 {
			return ms
		} else if err != nil && s.logger != nil {
			s.logger.Warn("duration probe failed, falling back to embedding coverage",
				"path", feeds[0].MediaPath, "error", err)
		}
	}

	maxEndMs := 0
	for _, feed := range feeds {
		for _, emb := range feed.Embeddings {
			if endMs := int(emb.EndSec * 1000); endMs > maxEndMs {
				maxEndMs = endMs
			}
		}
	}
	return maxEndMs
}

func (s *Service) GetTimeline(ctx context.Context, eventID string) (*StoredTimeline, error) {
	return s.repo.GetTimeline(ctx, eventID)
}
