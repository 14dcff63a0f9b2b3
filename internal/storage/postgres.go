package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/vistrackd/internal/config"
	"github.com/your-org/vistrackd/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Streams ---

func (s *PostgresStore) CreateStream(ctx context.Context, st *models.Stream) error {
	st.ID = uuid.New()
	st.Status = models.StreamStatusStopped
	if st.Config == nil {
		st.Config = json.RawMessage("{}")
	}
	return s.pool.QueryRow(ctx,
		`INSERT INTO streams (id, url, stream_type, object_type, fps, status, config)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at, updated_at`,
		st.ID, st.URL, st.StreamType, st.ObjectType, st.FPS, st.Status, st.Config,
	).Scan(&st.CreatedAt, &st.UpdatedAt)
}

func (s *PostgresStore) GetStream(ctx context.Context, id uuid.UUID) (*models.Stream, error) {
	st := &models.Stream{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, url, stream_type, object_type, fps, status, config, error_message, created_at, updated_at
		 FROM streams WHERE id = $1`, id,
	).Scan(&st.ID, &st.URL, &st.StreamType, &st.ObjectType, &st.FPS, &st.Status,
		&st.Config, &st.ErrorMessage, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get stream: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) ListStreams(ctx context.Context) ([]models.Stream, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, url, stream_type, object_type, fps, status, config, error_message, created_at, updated_at
		 FROM streams ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}
	defer rows.Close()

	var streams []models.Stream
	for rows.Next() {
		var st models.Stream
		if err := rows.Scan(&st.ID, &st.URL, &st.StreamType, &st.ObjectType, &st.FPS, &st.Status,
			&st.Config, &st.ErrorMessage, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stream: %w", err)
		}
		streams = append(streams, st)
	}
	return streams, nil
}

func (s *PostgresStore) UpdateStreamStatus(ctx context.Context, id uuid.UUID, status models.StreamStatus, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE streams SET status = $1, error_message = $2 WHERE id = $3`,
		status, errMsg, id)
	return err
}

func (s *PostgresStore) DeleteStream(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM streams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete stream: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stream not found")
	}
	return nil
}

// --- Track events ---

func (s *PostgresStore) CreateTrackEvent(ctx context.Context, ev *models.TrackEvent) error {
	ev.ID = uuid.New()
	ev.CreatedAt = time.Now()
	var vec *pgvector.Vector
	if len(ev.Embedding) > 0 {
		v := pgvector.NewVector(ev.Embedding)
		vec = &v
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO track_events (id, stream_id, track_id, object_type, kind, timestamp, bbox_x, bbox_y, bbox_w, bbox_h, confidence, embedding, snapshot_key, frame_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		ev.ID, ev.StreamID, ev.TrackID, ev.ObjectType, ev.Kind, ev.Timestamp,
		ev.BBoxX, ev.BBoxY, ev.BBoxW, ev.BBoxH, ev.Confidence,
		vec, ev.SnapshotKey, ev.FrameKey, ev.CreatedAt)
	return err
}

func (s *PostgresStore) QueryTrackEvents(ctx context.Context, streamID uuid.UUID, from, to *time.Time, trackID *uint64, limit, offset int) ([]models.TrackEvent, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	baseWhere := "WHERE stream_id = $1"
	args := []interface{}{streamID}
	argIdx := 2

	if from != nil {
		baseWhere += fmt.Sprintf(" AND timestamp >= $%d", argIdx)
		args = append(args, *from)
		argIdx++
	}
	if to != nil {
		baseWhere += fmt.Sprintf(" AND timestamp <= $%d", argIdx)
		args = append(args, *to)
		argIdx++
	}
	if trackID != nil {
		baseWhere += fmt.Sprintf(" AND track_id = $%d", argIdx)
		args = append(args, *trackID)
		argIdx++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM track_events " + baseWhere
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count track events: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, stream_id, track_id, object_type, kind, timestamp, bbox_x, bbox_y, bbox_w, bbox_h, confidence, snapshot_key, frame_key, created_at
		 FROM track_events %s ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`,
		baseWhere, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query track events: %w", err)
	}
	defer rows.Close()

	var events []models.TrackEvent
	for rows.Next() {
		var ev models.TrackEvent
		if err := rows.Scan(&ev.ID, &ev.StreamID, &ev.TrackID, &ev.ObjectType, &ev.Kind, &ev.Timestamp,
			&ev.BBoxX, &ev.BBoxY, &ev.BBoxW, &ev.BBoxH, &ev.Confidence,
			&ev.SnapshotKey, &ev.FrameKey, &ev.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan track event: %w", err)
		}
		events = append(events, ev)
	}
	return events, total, nil
}

func (s *PostgresStore) GetTrackEvent(ctx context.Context, id uuid.UUID) (*models.TrackEvent, error) {
	var ev models.TrackEvent
	err := s.pool.QueryRow(ctx,
		`SELECT id, stream_id, track_id, object_type, kind, timestamp, bbox_x, bbox_y, bbox_w, bbox_h, confidence, snapshot_key, frame_key, created_at
		 FROM track_events WHERE id = $1`, id).
		Scan(&ev.ID, &ev.StreamID, &ev.TrackID, &ev.ObjectType, &ev.Kind, &ev.Timestamp,
			&ev.BBoxX, &ev.BBoxY, &ev.BBoxW, &ev.BBoxH, &ev.Confidence,
			&ev.SnapshotKey, &ev.FrameKey, &ev.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get track event: %w", err)
	}
	return &ev, nil
}

// GetLatestEmbedding returns the most recent stored embedding for a track,
// used to seed a re-identification search from an existing track id.
func (s *PostgresStore) GetLatestEmbedding(ctx context.Context, streamID uuid.UUID, trackID uint64) ([]float32, error) {
	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx,
		`SELECT embedding FROM track_events
		 WHERE stream_id = $1 AND track_id = $2 AND embedding IS NOT NULL
		 ORDER BY timestamp DESC LIMIT 1`, streamID, trackID,
	).Scan(&vec)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest embedding: %w", err)
	}
	return vec.Slice(), nil
}

// SearchTracks finds the closest prior track_events by embedding distance,
// the storage side of the tracker's supplemented re-identification feature.
// Scoped to a single object type so a person embedding is never compared
// against a vehicle embedding.
func (s *PostgresStore) SearchTracks(ctx context.Context, embedding []float32, objectType string, threshold float64, limit int) ([]TrackMatch, error) {
	if limit <= 0 {
		limit = 5
	}
	vec := pgvector.NewVector(embedding)

	rows, err := s.pool.Query(ctx,
		`SELECT track_id, stream_id, object_type, timestamp, score FROM (
		   SELECT DISTINCT ON (track_id, stream_id) track_id, stream_id, object_type, timestamp,
		          1 - (embedding <=> $1) AS score
		   FROM track_events
		   WHERE object_type = $2 AND embedding IS NOT NULL
		     AND 1 - (embedding <=> $1) >= $3
		   ORDER BY track_id, stream_id, timestamp DESC, score DESC
		 ) latest
		 ORDER BY score DESC
		 LIMIT $4`,
		vec, objectType, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("search tracks: %w", err)
	}
	defer rows.Close()

	var matches []TrackMatch
	for rows.Next() {
		var m TrackMatch
		if err := rows.Scan(&m.TrackID, &m.StreamID, &m.ObjectType, &m.Timestamp, &m.Score); err != nil {
			return nil, fmt.Errorf("scan track match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

type TrackMatch struct {
	TrackID    uint64
	StreamID   uuid.UUID
	ObjectType string
	Timestamp  time.Time
	Score      float32
}
