package models

import (
	"time"

	"github.com/google/uuid"
)

// TrackEventKind distinguishes the three points in a track's life that
// produce a persisted event (§4.7 steps 5/6/7 of the tracker core).
type TrackEventKind string

const (
	TrackEventBirth  TrackEventKind = "birth"
	TrackEventUpdate TrackEventKind = "update"
	TrackEventRetire TrackEventKind = "retire"
)

// TrackEvent is one row of a track's history, persisted to Postgres and
// broadcast over WebSocket. Embedding is carried only on birth/update and
// only when the stream's tracker has an embedding term enabled.
type TrackEvent struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	StreamID    uuid.UUID      `json:"stream_id" db:"stream_id"`
	TrackID     uint64         `json:"track_id" db:"track_id"`
	ObjectType  string         `json:"object_type" db:"object_type"`
	Kind        TrackEventKind `json:"kind" db:"kind"`
	Timestamp   time.Time      `json:"timestamp" db:"timestamp"`
	BBoxX       float64        `json:"bbox_x" db:"bbox_x"`
	BBoxY       float64        `json:"bbox_y" db:"bbox_y"`
	BBoxW       float64        `json:"bbox_w" db:"bbox_w"`
	BBoxH       float64        `json:"bbox_h" db:"bbox_h"`
	Confidence  float64        `json:"confidence" db:"confidence"`
	Embedding   []float32      `json:"-" db:"embedding"`
	SnapshotKey string         `json:"snapshot_key" db:"snapshot_key"`
	FrameKey    string         `json:"frame_key" db:"frame_key"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// RegionDTO is the wire form of trackcore.Region published by a detector:
// the raw bounding box plus type and confidence, with no pixel data
// (the tracker re-reads the frame from MinIO via FrameTask.FrameRef).
type RegionDTO struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	ObjectType string  `json:"object_type"`
	Confidence float64 `json:"confidence"`
}

// FrameTask is the message threaded through NATS: the ingestor publishes it
// with Regions empty, the detector fills Regions and republishes it, and the
// tracker consumes the filled version.
type FrameTask struct {
	StreamID   uuid.UUID   `json:"stream_id"`
	FrameID    uuid.UUID   `json:"frame_id"`
	ObjectType string      `json:"object_type"`
	Timestamp  time.Time   `json:"timestamp"`
	FrameRef   string      `json:"frame_ref"` // MinIO object key
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Regions    []RegionDTO `json:"regions,omitempty"`
}
