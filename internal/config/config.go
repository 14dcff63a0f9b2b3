package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/your-org/vistrackd/internal/trackcore"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Storage  StorageConfig  `yaml:"storage"`
	Detect   DetectConfig   `yaml:"detect"`
	Tracking TrackingConfig `yaml:"tracking"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// StorageConfig governs retention of frame objects (the frames/ prefix) in
// MinIO, per stream; snapshot objects are not cleaned up.
type StorageConfig struct {
	FrameRetention int `yaml:"frame_retention"`
}

// DetectConfig configures the ingestion/detection side: how many frames per
// second to pull and at what resolution, and one ONNX anchor-based detector
// per tracked object type.
type DetectConfig struct {
	ModelsDir   string          `yaml:"models_dir"`
	DefaultFPS  int             `yaml:"default_fps"`
	MaxFPS      int             `yaml:"max_fps"`
	WorkerCount int             `yaml:"worker_count"`
	FrameWidth  int             `yaml:"frame_width"`
	Detectors   []DetectorEntry `yaml:"detectors"`
}

type DetectorEntry struct {
	ObjectType string  `yaml:"object_type"`
	ModelPath  string  `yaml:"model_path"`
	Threshold  float32 `yaml:"threshold"`
}

// TrackingConfig mirrors the YAML-expressible fields of
// trackcore.TrackerSettings. TrackerSettings() leaves TypeCompat nil
// (same-type matching only), and the extractor gates are derived from the
// weights by trackcore.NewTracker.
type TrackingConfig struct {
	MatchType               string                 `yaml:"match_type"` // "hungarian" or "bipartite"
	DistThreshold           float64                `yaml:"dist_threshold"`
	Weights                 WeightsConfig          `yaml:"weights"`
	Kalman                  KalmanConfigYAML       `yaml:"kalman"`
	MaxTraceLength          int                    `yaml:"max_trace_length"`
	MaxAllowedSkippedFrames int                    `yaml:"max_allowed_skipped_frames"`
	MinStaticTimeSeconds    float64                `yaml:"min_static_time_seconds"`
	MaxStaticTimeSeconds    float64                `yaml:"max_static_time_seconds"`
	MaxSpeedForStatic       float64                `yaml:"max_speed_for_static"`
	UseAbandonedDetection   bool                   `yaml:"use_abandoned_detection"`
	MinAreaRadiusPix        float64                `yaml:"min_area_radius_pix"`
	MinAreaRadiusK          float64                `yaml:"min_area_radius_k"`
	Embeddings              []EmbeddingBackendYAML `yaml:"embeddings"`
}

type WeightsConfig struct {
	Centers    float64 `yaml:"centers"`
	Rects      float64 `yaml:"rects"`
	Jaccard    float64 `yaml:"jaccard"`
	Hist       float64 `yaml:"hist"`
	FeatureCos float64 `yaml:"feature_cos"`
}

type KalmanConfigYAML struct {
	Goal            string  `yaml:"goal"` // "rect" or "point"
	Dt              float64 `yaml:"dt"`
	AccelNoiseMag   float64 `yaml:"accel_noise_mag"`
	UseAcceleration bool    `yaml:"use_acceleration"`
}

type EmbeddingBackendYAML struct {
	Name        string   `yaml:"name"`
	ModelPath   string   `yaml:"model_path"`
	InputLayer  string   `yaml:"input_layer"`
	OutputLayer string   `yaml:"output_layer"`
	InputW      int      `yaml:"input_w"`
	InputH      int      `yaml:"input_h"`
	Dim         int      `yaml:"dim"`
	ObjectTypes []string `yaml:"object_types"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Detect.DefaultFPS == 0 {
		cfg.Detect.DefaultFPS = 5
	}
	if cfg.Detect.MaxFPS == 0 {
		cfg.Detect.MaxFPS = 10
	}
	if cfg.Detect.WorkerCount == 0 {
		cfg.Detect.WorkerCount = 6
	}
	if cfg.Detect.FrameWidth == 0 {
		cfg.Detect.FrameWidth = 640
	}
	if cfg.Tracking.MatchType == "" {
		cfg.Tracking.MatchType = "hungarian"
	}
	if cfg.Tracking.DistThreshold == 0 {
		cfg.Tracking.DistThreshold = 0.7
	}
	if cfg.Tracking.MaxTraceLength == 0 {
		cfg.Tracking.MaxTraceLength = 64
	}
	if cfg.Tracking.MaxAllowedSkippedFrames == 0 {
		cfg.Tracking.MaxAllowedSkippedFrames = 10
	}
	if cfg.Tracking.MaxStaticTimeSeconds == 0 {
		cfg.Tracking.MaxStaticTimeSeconds = 30
	}
	if cfg.Tracking.Kalman.Dt == 0 {
		cfg.Tracking.Kalman.Dt = 1
	}
	if cfg.Tracking.Kalman.AccelNoiseMag == 0 {
		cfg.Tracking.Kalman.AccelNoiseMag = 0.5
	}
	if cfg.Tracking.Kalman.Goal == "" {
		cfg.Tracking.Kalman.Goal = "rect"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VT_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("VT_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("VT_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("VT_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("VT_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("VT_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("VT_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("VT_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("VT_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("VT_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("VT_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("VT_MODELS_DIR"); v != "" {
		cfg.Detect.ModelsDir = v
	}
	if v := os.Getenv("VT_DETECT_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Detect.WorkerCount = n
		}
	}
}

// TrackerSettings translates the YAML-facing TrackingConfig into
// trackcore.TrackerSettings, resolving the match-type and Kalman-goal string
// enums into their trackcore counterparts.
func (c TrackingConfig) TrackerSettings() trackcore.TrackerSettings {
	matchType := trackcore.MatchHungarian
	if c.MatchType == "bipartite" {
		matchType = trackcore.MatchBipartite
	}

	goal := trackcore.GoalRect
	if c.Kalman.Goal == "point" {
		goal = trackcore.GoalPoint
	}

	embeddings := make([]trackcore.EmbeddingBackendConfig, 0, len(c.Embeddings))
	for _, e := range c.Embeddings {
		types := make([]trackcore.ObjectType, 0, len(e.ObjectTypes))
		for _, t := range e.ObjectTypes {
			types = append(types, trackcore.ObjectType(t))
		}
		embeddings = append(embeddings, trackcore.EmbeddingBackendConfig{
			Name:        e.Name,
			ModelPath:   e.ModelPath,
			InputLayer:  e.InputLayer,
			OutputLayer: e.OutputLayer,
			InputW:      e.InputW,
			InputH:      e.InputH,
			Dim:         e.Dim,
			ObjectTypes: types,
		})
	}

	return trackcore.TrackerSettings{
		MatchType:     matchType,
		DistThreshold: c.DistThreshold,
		Weights: trackcore.DistanceWeights{
			Centers:    c.Weights.Centers,
			Rects:      c.Weights.Rects,
			Jaccard:    c.Weights.Jaccard,
			Hist:       c.Weights.Hist,
			FeatureCos: c.Weights.FeatureCos,
		},
		Kalman: trackcore.KalmanConfig{
			Goal:            goal,
			Dt:              c.Kalman.Dt,
			AccelNoiseMag:   c.Kalman.AccelNoiseMag,
			UseAcceleration: c.Kalman.UseAcceleration,
		},
		MaxTraceLength:          c.MaxTraceLength,
		MaxAllowedSkippedFrames: c.MaxAllowedSkippedFrames,
		MinStaticTimeSeconds:    c.MinStaticTimeSeconds,
		MaxStaticTimeSeconds:    c.MaxStaticTimeSeconds,
		MaxSpeedForStatic:       c.MaxSpeedForStatic,
		UseAbandonedDetection:   c.UseAbandonedDetection,
		MinAreaRadiusPix:        c.MinAreaRadiusPix,
		MinAreaRadiusK:          c.MinAreaRadiusK,
		Embeddings:              embeddings,
	}
}
