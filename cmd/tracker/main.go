package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/vistrackd/internal/config"
	"github.com/your-org/vistrackd/internal/models"
	"github.com/your-org/vistrackd/internal/observability"
	"github.com/your-org/vistrackd/internal/queue"
	"github.com/your-org/vistrackd/internal/storage"
	"github.com/your-org/vistrackd/internal/trackcore"
)

// streamTracker pairs a tracker with the lock that serializes its Update
// calls, honoring the non-reentrant Update contract (trackcore.Tracker docs)
// when the consumer's worker pool is wider than one.
type streamTracker struct {
	mu      sync.Mutex
	tracker *trackcore.Tracker
	fps     float64
}

// trackerRegistry builds and caches one Tracker per stream.
type trackerRegistry struct {
	mu       sync.Mutex
	settings trackcore.TrackerSettings
	hist     *trackcore.HistogramExtractor
	emb      *trackcore.EmbeddingExtractor
	byStream map[uuid.UUID]*streamTracker
}

func newTrackerRegistry(settings trackcore.TrackerSettings, hist *trackcore.HistogramExtractor, emb *trackcore.EmbeddingExtractor) *trackerRegistry {
	return &trackerRegistry{
		settings: settings,
		hist:     hist,
		emb:      emb,
		byStream: make(map[uuid.UUID]*streamTracker),
	}
}

func (r *trackerRegistry) get(streamID uuid.UUID, fps float64) *streamTracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byStream[streamID]
	if !ok {
		st = &streamTracker{
			tracker: trackcore.NewTracker(r.settings, r.hist, r.emb),
			fps:     fps,
		}
		r.byStream[streamID] = st
	}
	return st
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting tracker", "cpu_cores", runtime.NumCPU())

	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("init onnx runtime", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	settings := cfg.Tracking.TrackerSettings()

	hist := trackcore.NewHistogramExtractor()
	emb := trackcore.NewEmbeddingExtractor(settings.Embeddings)
	defer emb.Close()

	registry := newTrackerRegistry(settings, hist, emb)

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}

	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeRegions(ctx, "trackers", func(ctx context.Context, msg jetstream.Msg) error {
		var task models.FrameTask
		if err := json.Unmarshal(msg.Data(), &task); err != nil {
			slog.Error("unmarshal regions task", "error", err)
			return nil
		}

		frameData, err := minioStore.GetObject(ctx, task.FrameRef)
		if err != nil {
			return fmt.Errorf("load frame %s: %w", task.FrameRef, err)
		}
		img, err := jpeg.Decode(bytes.NewReader(frameData))
		if err != nil {
			return fmt.Errorf("decode jpeg %s: %w", task.FrameRef, err)
		}

		regions := make([]trackcore.Region, 0, len(task.Regions))
		for _, rd := range task.Regions {
			regions = append(regions, trackcore.Region{
				BRect: trackcore.Rect{X: rd.X, Y: rd.Y, W: rd.W, H: rd.H},
				Type:  trackcore.ObjectType(rd.ObjectType),
				Conf:  rd.Confidence,
			})
		}

		fps := float64(cfg.Detect.DefaultFPS)
		st := registry.get(task.StreamID, fps)

		st.mu.Lock()
		before := liveIDs(st.tracker)
		start := time.Now()
		err = st.tracker.Update(ctx, regions, img, st.fps)
		observability.InferenceDuration.WithLabelValues("track_update").Observe(time.Since(start).Seconds())
		if err != nil {
			st.mu.Unlock()
			return fmt.Errorf("tracker update: %w", err)
		}
		after := st.tracker.Tracks()
		afterIDs := liveIDs(st.tracker)
		tracksSnapshot := append([]*trackcore.Track(nil), after...)
		st.mu.Unlock()

		observability.ActiveTracks.WithLabelValues(task.StreamID.String()).Set(float64(len(afterIDs)))

		now := time.Now()
		for _, tr := range tracksSnapshot {
			kind := models.TrackEventUpdate
			if !before[tr.ID] {
				kind = models.TrackEventBirth
			}
			if err := emitTrackEvent(ctx, db, producer, minioStore, img, task.StreamID, tr, kind, now); err != nil {
				slog.Error("emit track event", "track_id", tr.ID, "error", err)
			}
		}
		for id := range before {
			if !afterIDs[id] {
				if err := emitRetireEvent(ctx, db, producer, task.StreamID, id, string(regionType(regions)), now); err != nil {
					slog.Error("emit retire event", "track_id", id, "error", err)
				}
			}
		}

		return nil
	}, 1)
	if err != nil {
		slog.Error("start regions consumer", "error", err)
		os.Exit(1)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("tracker metrics listening", "addr", ":8083")
		if err := http.ListenAndServe(":8083", mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down tracker...")
	cancel()
	time.Sleep(2 * time.Second)
	slog.Info("tracker stopped")
}

func liveIDs(t *trackcore.Tracker) map[uint64]bool {
	ids := make(map[uint64]bool, len(t.Tracks()))
	for _, tr := range t.Tracks() {
		ids[tr.ID] = true
	}
	return ids
}

func regionType(regions []trackcore.Region) trackcore.ObjectType {
	if len(regions) == 0 {
		return ""
	}
	return regions[0].Type
}

// snapshotMinSize/snapshotQuality govern the persisted track-crop image,
// following the teacher's upscaleFace/encodeJPEG defaults for face crops.
const (
	snapshotMinSize = 64
	snapshotQuality = 85
)

func emitTrackEvent(ctx context.Context, db *storage.PostgresStore, producer *queue.Producer, minioStore *storage.MinIOStore, frame image.Image, streamID uuid.UUID, tr *trackcore.Track, kind models.TrackEventKind, ts time.Time) error {
	region := tr.Last()

	ev := &models.TrackEvent{
		ID:         uuid.New(),
		StreamID:   streamID,
		TrackID:    tr.ID,
		ObjectType: string(tr.Type),
		Kind:       kind,
		Timestamp:  ts,
		BBoxX:      region.BRect.X,
		BBoxY:      region.BRect.Y,
		BBoxW:      region.BRect.W,
		BBoxH:      region.BRect.H,
		Confidence: region.Conf,
		CreatedAt:  ts,
	}

	if len(tr.StoredEmb) > 0 {
		emb := make([]float32, len(tr.StoredEmb))
		for i, v := range tr.StoredEmb {
			emb[i] = float32(v)
		}
		ev.Embedding = emb
	}

	if snapshot := trackcore.CropAndEncodeSnapshot(frame, region.BRect, snapshotMinSize, snapshotQuality); snapshot != nil {
		key := fmt.Sprintf("snapshots/%s/%d-%s.jpg", streamID, tr.ID, ev.ID)
		if err := minioStore.PutObject(ctx, key, snapshot, "image/jpeg"); err != nil {
			return fmt.Errorf("upload snapshot: %w", err)
		}
		ev.SnapshotKey = key
	}

	if err := db.CreateTrackEvent(ctx, ev); err != nil {
		return fmt.Errorf("persist track event: %w", err)
	}
	observability.TrackEventsEmitted.WithLabelValues(streamID.String(), string(kind)).Inc()

	if err := producer.PublishEvent(ctx, streamID.String(), ev); err != nil {
		return fmt.Errorf("publish track event: %w", err)
	}
	return nil
}

func emitRetireEvent(ctx context.Context, db *storage.PostgresStore, producer *queue.Producer, streamID uuid.UUID, trackID uint64, objectType string, ts time.Time) error {
	ev := &models.TrackEvent{
		ID:         uuid.New(),
		StreamID:   streamID,
		TrackID:    trackID,
		ObjectType: objectType,
		Kind:       models.TrackEventRetire,
		Timestamp:  ts,
		CreatedAt:  ts,
	}
	if err := db.CreateTrackEvent(ctx, ev); err != nil {
		return fmt.Errorf("persist retire event: %w", err)
	}
	observability.TrackEventsEmitted.WithLabelValues(streamID.String(), string(models.TrackEventRetire)).Inc()

	if err := producer.PublishEvent(ctx, streamID.String(), ev); err != nil {
		return fmt.Errorf("publish retire event: %w", err)
	}
	return nil
}

func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
