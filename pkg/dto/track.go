package dto

import "github.com/google/uuid"

type TrackEventResponse struct {
	ID          uuid.UUID  `json:"id"`
	StreamID    uuid.UUID  `json:"stream_id"`
	TrackID     uint64     `json:"track_id"`
	ObjectType  string     `json:"object_type"`
	Kind        string     `json:"kind"`
	Timestamp   string     `json:"timestamp"`
	BBox        [4]float64 `json:"bbox"` // x, y, w, h
	Confidence  float64    `json:"confidence"`
	SnapshotURL string     `json:"snapshot_url,omitempty"`
	FrameURL    string     `json:"frame_url,omitempty"`
	CreatedAt   string     `json:"created_at"`
}

type TrackEventListResponse struct {
	Events []TrackEventResponse `json:"events"`
	Total  int                  `json:"total"`
}

// TrackSearchResult is one hit from a track re-identification search: a
// prior track whose stored embedding is close to the query track's.
type TrackSearchResult struct {
	TrackID     uint64    `json:"track_id"`
	StreamID    uuid.UUID `json:"stream_id"`
	ObjectType  string    `json:"object_type"`
	Timestamp   string    `json:"timestamp"`
	Score       float32   `json:"score"`
	SnapshotURL string    `json:"snapshot_url,omitempty"`
}

// WSTrackEvent is a WebSocket message for real-time track event delivery.
type WSTrackEvent struct {
	Type     string             `json:"type"` // track_birth, track_update, track_retire
	StreamID uuid.UUID          `json:"stream_id"`
	Data     TrackEventResponse `json:"data,omitempty"`
}
