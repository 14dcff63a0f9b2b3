package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/vistrackd/internal/api"
	"github.com/your-org/vistrackd/internal/api/ws"
	"github.com/your-org/vistrackd/internal/config"
	"github.com/your-org/vistrackd/internal/models"
	"github.com/your-org/vistrackd/internal/observability"
	"github.com/your-org/vistrackd/internal/queue"
	"github.com/your-org/vistrackd/internal/storage"
	"github.com/your-org/vistrackd/pkg/dto"
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

	slog.Info("starting vistrackd API service", "port", cfg.Server.Port)

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
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	hub := ws.NewHub()
	go hub.Run()

	// Start event consumer to broadcast track events via WebSocket. Events
	// themselves are persisted by cmd/tracker; the API only relays them.
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeEvents(ctx, "api-events", func(ctx context.Context, msg jetstream.Msg) error {
		var ev models.TrackEvent
		if err := json.Unmarshal(msg.Data(), &ev); err != nil {
			return err
		}

		wsType := "track_" + string(ev.Kind)

		resp := dto.TrackEventResponse{
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
			resp.SnapshotURL = "/v1/tracks/" + ev.ID.String() + "/snapshot"
		}
		if ev.FrameKey != "" {
			resp.FrameURL = "/v1/tracks/" + ev.ID.String() + "/frame"
		}

		hub.BroadcastEvent(&dto.WSTrackEvent{
			Type:     wsType,
			StreamID: ev.StreamID,
			Data:     resp,
		})

		return nil
	})
	if err != nil {
		slog.Warn("start event consumer", "error", err)
	}

	router := api.NewRouter(api.RouterConfig{
		APIKey:   cfg.Server.APIKey,
		DB:       db,
		MinIO:    minioStore,
		Producer: producer,
		Hub:      hub,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}
