package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image/jpeg"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/vistrackd/internal/config"
	"github.com/your-org/vistrackd/internal/detect"
	"github.com/your-org/vistrackd/internal/models"
	"github.com/your-org/vistrackd/internal/observability"
	"github.com/your-org/vistrackd/internal/queue"
	"github.com/your-org/vistrackd/internal/storage"
	"github.com/your-org/vistrackd/internal/trackcore"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting detector",
		"workers", cfg.Detect.WorkerCount,
		"cpu_cores", runtime.NumCPU(),
		"detectors", len(cfg.Detect.Detectors),
	)

	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("init onnx runtime", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	detectors := make(map[trackcore.ObjectType]*detect.Detector)
	for _, entry := range cfg.Detect.Detectors {
		opts, err := ort.NewSessionOptions()
		if err != nil {
			slog.Error("create session options", "error", err)
			os.Exit(1)
		}
		d, err := detect.NewDetector(entry.ModelPath, trackcore.ObjectType(entry.ObjectType), entry.Threshold, opts)
		opts.Destroy()
		if err != nil {
			slog.Error("load detector", "object_type", entry.ObjectType, "path", entry.ModelPath, "error", err)
			os.Exit(1)
		}
		detectors[trackcore.ObjectType(entry.ObjectType)] = d
		slog.Info("loaded detector", "object_type", entry.ObjectType, "path", entry.ModelPath)
	}
	defer func() {
		for _, d := range detectors {
			d.Close()
		}
	}()

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

	err = consumer.ConsumeFrames(ctx, "detectors", func(ctx context.Context, msg jetstream.Msg) error {
		var task models.FrameTask
		if err := json.Unmarshal(msg.Data(), &task); err != nil {
			slog.Error("unmarshal frame task", "error", err)
			return nil
		}

		objectType := task.ObjectType
		if objectType == "" {
			objectType = objectTypeForStream(cfg, task)
		}
		d, ok := detectors[trackcore.ObjectType(objectType)]
		if !ok {
			return fmt.Errorf("no detector registered for object type %q", objectType)
		}

		frameData, err := minioStore.GetObject(ctx, task.FrameRef)
		if err != nil {
			return fmt.Errorf("load frame %s: %w", task.FrameRef, err)
		}

		img, err := jpeg.Decode(bytes.NewReader(frameData))
		if err != nil {
			return fmt.Errorf("decode jpeg %s: %w", task.FrameRef, err)
		}
		bounds := img.Bounds()
		origW, origH := bounds.Dx(), bounds.Dy()

		inW, inH := d.InputSize()
		start := time.Now()
		input := detect.Preprocess(img, inW, inH)
		observability.InferenceDuration.WithLabelValues("preprocess").Observe(time.Since(start).Seconds())

		start = time.Now()
		regions, err := d.Detect(input, origW, origH)
		if err != nil {
			return fmt.Errorf("detect: %w", err)
		}
		observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())
		observability.RegionsDetected.WithLabelValues(task.StreamID.String(), objectType).Add(float64(len(regions)))

		task.Width = origW
		task.Height = origH
		task.Regions = make([]models.RegionDTO, 0, len(regions))
		for _, r := range regions {
			task.Regions = append(task.Regions, models.RegionDTO{
				X:          r.BRect.X,
				Y:          r.BRect.Y,
				W:          r.BRect.W,
				H:          r.BRect.H,
				ObjectType: string(r.Type),
				Confidence: r.Conf,
			})
		}

		if err := producer.PublishRegions(ctx, task.StreamID.String(), task); err != nil {
			return fmt.Errorf("publish regions: %w", err)
		}

		observability.FramesProcessed.WithLabelValues(task.StreamID.String()).Inc()
		return nil
	}, cfg.Detect.WorkerCount)
	if err != nil {
		slog.Error("start frame consumer", "error", err)
		os.Exit(1)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("detector metrics listening", "addr", ":8082")
		if err := http.ListenAndServe(":8082", mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				depth, err := producer.QueueDepth(ctx)
				if err == nil {
					observability.QueueDepth.Set(float64(depth))
				}
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down detector...")
	cancel()
	time.Sleep(2 * time.Second)
	slog.Info("detector stopped")
}

// objectTypeForStream resolves which detector a frame task routes to.
// Streams carry their object type via the ingest command, threaded into
// FrameTask out of band for now: the first configured detector is used as
// a default when a task predates per-stream object-type tagging.
func objectTypeForStream(cfg *config.Config, task models.FrameTask) string {
	if len(cfg.Detect.Detectors) == 0 {
		return ""
	}
	return cfg.Detect.Detectors[0].ObjectType
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
