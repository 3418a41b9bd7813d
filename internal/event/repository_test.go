package event

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/Kaibo-Huang/Anchor/internal/db"
	"github.com/Kaibo-Huang/Anchor/internal/timeline"
)

func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return NewRepository(database.Conn())
}

func testEvent() *Event {
	return &Event{
		ID:            NewID(),
		Name:          "Spring Championship",
		Category:      timeline.EventSports,
		SearchIndexID: "idx-1",
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
}

func TestRepository_EventRoundtrip(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	ev := testEvent()
	if err := repo.CreateEvent(ctx, ev); err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}

	got, err := repo.GetEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetEvent() = nil, want event")
	}
	if got.Name != ev.Name || got.Category != ev.Category || got.SearchIndexID != ev.SearchIndexID {
		t.Errorf("GetEvent() = %+v, want %+v", got, ev)
	}
	if !got.CreatedAt.Equal(ev.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, ev.CreatedAt)
	}
}

func TestRepository_GetEvent_Missing(t *testing.T) {
	repo := setupTestRepo(t)

	got, err := repo.GetEvent(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetEvent() = %+v, want nil", got)
	}
}

func TestRepository_ListAndDeleteEvents(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	ev := testEvent()
	if err := repo.CreateEvent(ctx, ev); err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}

	events, err := repo.ListEvents(ctx)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("ListEvents() = %d events, want 1", len(events))
	}

	if err := repo.DeleteEvent(ctx, ev.ID); err != nil {
		t.Fatalf("DeleteEvent() error = %v", err)
	}
	events, _ = repo.ListEvents(ctx)
	if len(events) != 0 {
		t.Errorf("ListEvents() after delete = %d events, want 0", len(events))
	}
}

func TestRepository_CameraRoundtrip(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	ev := testEvent()
	if err := repo.CreateEvent(ctx, ev); err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}

	cam := &Camera{
		ID:        NewID(),
		EventID:   ev.ID,
		MediaPath: "/media/cam1.mp4",
		Angle:     timeline.AngleWide,
		Embeddings: []timeline.EmbeddingSegment{
			{StartSec: 0, EndSec: 6, Vector: []float64{0.1, 0.2}},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.CreateCamera(ctx, cam); err != nil {
		t.Fatalf("CreateCamera() error = %v", err)
	}

	cameras, err := repo.GetCamerasByEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("GetCamerasByEvent() error = %v", err)
	}
	if len(cameras) != 1 {
		t.Fatalf("cameras = %d, want 1", len(cameras))
	}

	got := cameras[0]
	if got.MediaPath != cam.MediaPath || got.Angle != cam.Angle {
		t.Errorf("camera = %+v, want %+v", got, cam)
	}
	if len(got.Embeddings) != 1 || got.Embeddings[0].Vector[1] != 0.2 {
		t.Errorf("embeddings not preserved: %+v", got.Embeddings)
	}
}

func TestRepository_UpdateCameraSyncOffset(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	ev := testEvent()
	repo.CreateEvent(ctx, ev)

	cam := &Camera{
		ID:        NewID(),
		EventID:   ev.ID,
		MediaPath: "/media/cam1.mp4",
		Angle:     timeline.AngleCloseup,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateCamera(ctx, cam); err != nil {
		t.Fatalf("CreateCamera() error = %v", err)
	}

	if err := repo.UpdateCameraSyncOffset(ctx, cam.ID, -1250); err != nil {
		t.Fatalf("UpdateCameraSyncOffset() error = %v", err)
	}

	cameras, _ := repo.GetCamerasByEvent(ctx, ev.ID)
	if cameras[0].SyncOffsetMs != -1250 {
		t.Errorf("sync offset = %d, want -1250", cameras[0].SyncOffsetMs)
	}
}

func TestRepository_TimelineUpsert(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	ev := testEvent()
	repo.CreateEvent(ctx, ev)

	first := &StoredTimeline{
		EventID: ev.ID,
		Timeline: &timeline.Timeline{
			Segments: []timeline.Segment{{StartMs: 0, EndMs: 10000, CameraID: "cam-1"}},
			Zooms:    []timeline.Zoom{},
			AdSlots:  []timeline.AdSlot{},
			Chapters: []timeline.Chapter{{TimestampMs: 0, Title: "Start", Kind: "section"}},
		},
		DurationMs: 10000,
		CreatedAt:  time.Now().UTC(),
	}
	if err := repo.SaveTimeline(ctx, first); err != nil {
		t.Fatalf("SaveTimeline() error = %v", err)
	}

	second := &StoredTimeline{
		EventID: ev.ID,
		Timeline: &timeline.Timeline{
			Segments: []timeline.Segment{{StartMs: 0, EndMs: 20000, CameraID: "cam-2"}},
			Zooms:    []timeline.Zoom{},
			AdSlots:  []timeline.AdSlot{},
			Chapters: []timeline.Chapter{},
		},
		DurationMs: 20000,
		CreatedAt:  time.Now().UTC(),
	}
	if err := repo.SaveTimeline(ctx, second); err != nil {
		t.Fatalf("SaveTimeline() upsert error = %v", err)
	}

	got, err := repo.GetTimeline(ctx, ev.ID)
	if err != nil {
		t.Fatalf("GetTimeline() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetTimeline() = nil")
	}
	if got.DurationMs != 20000 {
		t.Errorf("duration = %d, want 20000 (upsert replaces)", got.DurationMs)
	}
	if len(got.Timeline.Segments) != 1 || got.Timeline.Segments[0].CameraID != "cam-2" {
		t.Errorf("segments = %+v, want replaced payload", got.Timeline.Segments)
	}
}

func TestRepository_GetTimeline_Missing(t *testing.T) {
	repo := setupTestRepo(t)

	got, err := repo.GetTimeline(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetTimeline() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetTimeline() = %+v, want nil", got)
	}
}

func TestRepository_Config(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	got, err := repo.GetConfig(ctx, "auth_token")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if got != "" {
		t.Errorf("GetConfig() = %q, want empty for unset key", got)
	}

	if err := repo.SetConfig(ctx, "auth_token", "abc"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	if err := repo.SetConfig(ctx, "auth_token", "def"); err != nil {
		t.Fatalf("SetConfig() upsert error = %v", err)
	}

	got, _ = repo.GetConfig(ctx, "auth_token")
	if got != "def" {
		t.Errorf("GetConfig() = %q, want def", got)
	}
}
