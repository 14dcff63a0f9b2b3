package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/vistrackd/internal/models"
	"github.com/your-org/vistrackd/internal/storage"
	"github.com/your-org/vistrackd/pkg/dto"
)

type TrackHandler struct {
	db    *storage.PostgresStore
	minio *storage.MinIOStore
}

func NewTrackHandler(db *storage.PostgresStore, minio *storage.MinIOStore) *TrackHandler {
	return &TrackHandler{db: db, minio: minio}
}

// List returns track events for a stream, optionally filtered by time range
// and track_id.
func (h *TrackHandler) List(c *gin.Context) {
	streamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stream id"})
		return
	}

	var from, to *time.Time
	if fromStr := c.Query("from"); fromStr != "" {
		if t, err := time.Parse(time.RFC3339, fromStr); err == nil {
			from = &t
		}
	}
	if toStr := c.Query("to"); toStr != "" {
		if t, err := time.Parse(time.RFC3339, toStr); err == nil {
			to = &t
		}
	}

	var trackID *uint64
	if tidStr := c.Query("track_id"); tidStr != "" {
		if id, err := strconv.ParseUint(tidStr, 10, 64); err == nil {
			trackID = &id
		}
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	events, total, err := h.db.QueryTrackEvents(c.Request.Context(), streamID, from, to, trackID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.TrackEventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, trackEventToResponse(&ev))
	}

	c.JSON(http.StatusOK, dto.TrackEventListResponse{Events: resp, Total: total})
}

// Similar finds tracks with embeddings similar to a given track_id, across
// streams of the same object type.
// Required query params: stream_id, track_id.
// Optional: threshold (default 0.7), limit (default 10).
func (h *TrackHandler) Similar(c *gin.Context) {
	streamID, err := uuid.Parse(c.Query("stream_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stream_id required"})
		return
	}

	trackIDStr := c.Query("track_id")
	trackID, err := strconv.ParseUint(trackIDStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "track_id required"})
		return
	}

	threshold := 0.7
	if tStr := c.Query("threshold"); tStr != "" {
		if t, err := strconv.ParseFloat(tStr, 64); err == nil && t > 0 {
			threshold = t
		}
	}

	limit := 10
	if lStr := c.Query("limit"); lStr != "" {
		if l, err := strconv.Atoi(lStr); err == nil && l > 0 {
			limit = l
		}
	}

	embedding, err := h.db.GetLatestEmbedding(c.Request.Context(), streamID, trackID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if embedding == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no embedding found for this track_id"})
		return
	}

	ev, _, err := h.db.QueryTrackEvents(c.Request.Context(), streamID, nil, nil, &trackID, 1, 0)
	objectType := ""
	if err == nil && len(ev) > 0 {
		objectType = ev[0].ObjectType
	}

	matches, err := h.db.SearchTracks(c.Request.Context(), embedding, objectType, threshold, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	results := make([]dto.TrackSearchResult, 0, len(matches))
	for _, m := range matches {
		r := dto.TrackSearchResult{
			TrackID:    m.TrackID,
			StreamID:   m.StreamID,
			ObjectType: m.ObjectType,
			Timestamp:  m.Timestamp.Format(time.RFC3339),
			Score:      m.Score,
		}
		results = append(results, r)
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "total": len(results)})
}

// Frame proxies the full source frame image from MinIO.
func (h *TrackHandler) Frame(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	ev, err := h.db.GetTrackEvent(c.Request.Context(), eventID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}

	if ev.FrameKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no frame for this event"})
		return
	}

	data, err := h.minio.GetObject(c.Request.Context(), ev.FrameKey)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "frame not found"})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}

// Snapshot proxies the cropped object snapshot image from MinIO.
func (h *TrackHandler) Snapshot(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	ev, err := h.db.GetTrackEvent(c.Request.Context(), eventID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}

	if ev.SnapshotKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot for this event"})
		return
	}

	data, err := h.minio.GetObject(c.Request.Context(), ev.SnapshotKey)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}

func trackEventToResponse(ev *models.TrackEvent) dto.TrackEventResponse {
	r := dto.TrackEventResponse{
		ID:         ev.ID,
		StreamID:   ev.StreamID,
		TrackID:    ev.TrackID,
		ObjectType: ev.ObjectType,
		Kind:       string(ev.Kind),
		Timestamp:  ev.Timestamp.Format(time.RFC3339),
		BBox:       [4]float64{ev.BBoxX, ev.BBoxY, ev.BBoxW, ev.BBoxH},
		Confidence: ev.Confidence,
		CreatedAt:  ev.CreatedAt.Format(time.RFC3339),
	}
	if ev.SnapshotKey != "" {
		r.SnapshotURL = "/v1/tracks/" + ev.ID.String() + "/snapshot"
	}
	if ev.FrameKey != "" {
		r.FrameURL = "/v1/tracks/" + ev.ID.String() + "/frame"
	}
	return r
}
