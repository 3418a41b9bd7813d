package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Kaibo-Huang/Anchor/internal/timeline"
)

type Repository interface {
	CreateEvent(ctx context.Context, ev *Event) error
	GetEvent(ctx context.Context, id string) (*Event, error)
	ListEvents(ctx context.Context) ([]*Event, error)
	DeleteEvent(ctx context.Context, id string) error

	CreateCamera(ctx context.Context, cam *Camera) error
	GetCamerasByEvent(ctx context.Context, eventID string) ([]*Camera, error)
	UpdateCameraSyncOffset(ctx context.Context, id string, offsetMs int) error

	SaveTimeline(ctx context.Context, st *StoredTimeline) error
	GetTimeline(ctx context.Context, eventID string) (*StoredTimeline, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateEvent(ctx context.Context, ev *Event) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (id, name, category, search_index_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, ev.ID, ev.Name, string(ev.Category), ev.SearchIndexID, ev.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetEvent(ctx context.Context, id string) (*Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, category, search_index_id, created_at
		FROM events WHERE id = ?
	`, id)
	return r.scanEvent(row)
}

func (r *SQLiteRepository) scanEvent(row *sql.Row) (*Event, error) {
	var ev Event
	var category, createdAt string

	err := row.Scan(&ev.ID, &ev.Name, &category, &ev.SearchIndexID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	ev.Category = timeline.EventCategory(category)
	ev.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &ev, nil
}

func (r *SQLiteRepository) ListEvents(ctx context.Context) ([]*Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, category, search_index_id, created_at
		FROM events ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var ev Event
		var category, createdAt string
		if err := rows.Scan(&ev.ID, &ev.Name, &category, &ev.SearchIndexID, &createdAt); err != nil {
			return nil, err
		}
		ev.Category = timeline.EventCategory(category)
		ev.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		events = append(events, &ev)
	}
	return events, rows.Err()
}

func (r *SQLiteRepository) DeleteEvent(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepository) CreateCamera(ctx context.Context, cam *Camera) error {
	embeddings, err := json.Marshal(cam.Embeddings)
	if err != nil {
		return fmt.Errorf("marshal embeddings: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO cameras (id, event_id, media_path, angle_type, sync_offset_ms, embeddings, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, cam.ID, cam.EventID, cam.MediaPath, string(cam.Angle), cam.SyncOffsetMs, string(embeddings), cam.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetCamerasByEvent(ctx context.Context, eventID string) ([]*Camera, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, media_path, angle_type, sync_offset_ms, embeddings, created_at
		FROM cameras WHERE event_id = ? ORDER BY created_at ASC, rowid ASC
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cameras []*Camera
	for rows.Next() {
		var cam Camera
		var angle, embeddings, createdAt string
		if err := rows.Scan(&cam.ID, &cam.EventID, &cam.MediaPath, &angle, &cam.SyncOffsetMs, &embeddings, &createdAt); err != nil {
			return nil, err
		}
		cam.Angle = timeline.AngleType(angle)
		if err := json.Unmarshal([]byte(embeddings), &cam.Embeddings); err != nil {
			return nil, fmt.Errorf("unmarshal embeddings for camera %s: %w", cam.ID, err)
		}
		cam.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		cameras = append(cameras, &cam)
	}
	return cameras, rows.Err()
}

func (r *SQLiteRepository) UpdateCameraSyncOffset(ctx context.Context, id string, offsetMs int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE cameras SET sync_offset_ms = ? WHERE id = ?`, offsetMs, id)
	return err
}

func (r *SQLiteRepository) SaveTimeline(ctx context.Context, st *StoredTimeline) error {
	payload, err := json.Marshal(st.Timeline)
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO timelines (event_id, payload, duration_ms, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(event_id) DO UPDATE SET
			payload = excluded.payload,
			duration_ms = excluded.duration_ms,
			created_at = excluded.created_at
	`, st.EventID, string(payload), st.DurationMs, st.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetTimeline(ctx context.Context, eventID string) (*StoredTimeline, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT event_id, payload, duration_ms, created_at
		FROM timelines WHERE event_id = ?
	`, eventID)

	var st StoredTimeline
	var payload, createdAt string
	err := row.Scan(&st.EventID, &payload, &st.DurationMs, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var tl timeline.Timeline
	if err := json.Unmarshal([]byte(payload), &tl); err != nil {
		return nil, fmt.Errorf("unmarshal timeline for event %s: %w", eventID, err)
	}
	st.Timeline = &tl
	st.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &st, nil
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
