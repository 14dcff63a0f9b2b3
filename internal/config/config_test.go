package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/vistrackd/internal/trackcore"
)

const minimalYAML = `
server:
  port: 9090
database:
  host: db.internal
  name: vistrackd
tracking:
  match_type: bipartite
  weights:
    centers: 0.4
    jaccard: 0.6
  kalman:
    goal: point
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, minimalYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 20, cfg.Database.MaxConns)
	assert.Equal(t, 5, cfg.Detect.DefaultFPS)
	assert.Equal(t, 10, cfg.Detect.MaxFPS)
	assert.Equal(t, 6, cfg.Detect.WorkerCount)
	assert.Equal(t, 640, cfg.Detect.FrameWidth)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 1.0, cfg.Tracking.Kalman.Dt)
	assert.Equal(t, 0.5, cfg.Tracking.Kalman.AccelNoiseMag)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverridesTakePrecedence(t *testing.T) {
	path := writeTempConfig(t, minimalYAML)

	t.Setenv("VT_SERVER_PORT", "7000")
	t.Setenv("VT_DB_HOST", "overridden-host")
	t.Setenv("VT_API_KEY", "secret-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "overridden-host", cfg.Database.Host)
	assert.Equal(t, "secret-key", cfg.Server.APIKey)
}

func TestDatabaseConfigDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 5432, Name: "db"}
	assert.Equal(t, "postgres://u:p@h:5432/db?sslmode=disable", d.DSN())
}

func TestTrackingConfigTrackerSettingsTranslatesMatchTypeAndGoal(t *testing.T) {
	path := writeTempConfig(t, minimalYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	settings := cfg.Tracking.TrackerSettings()
	assert.Equal(t, trackcore.MatchBipartite, settings.MatchType)
	assert.Equal(t, trackcore.GoalPoint, settings.Kalman.Goal)
	assert.Equal(t, 0.4, settings.Weights.Centers)
	assert.Equal(t, 0.6, settings.Weights.Jaccard)
}

func TestTrackingConfigTrackerSettingsDefaultsToHungarianAndRectGoal(t *testing.T) {
	cfg := TrackingConfig{}
	settings := cfg.TrackerSettings()
	assert.Equal(t, trackcore.MatchHungarian, settings.MatchType)
	assert.Equal(t, trackcore.GoalRect, settings.Kalman.Goal)
}

func TestTrackingConfigTrackerSettingsTranslatesEmbeddings(t *testing.T) {
	cfg := TrackingConfig{
		Embeddings: []EmbeddingBackendYAML{
			{Name: "reid", ModelPath: "reid.onnx", Dim: 256, ObjectTypes: []string{"person", "vehicle"}},
		},
	}
	settings := cfg.TrackerSettings()
	require.Len(t, settings.Embeddings, 1)
	assert.Equal(t, "reid", settings.Embeddings[0].Name)
	assert.Equal(t, []trackcore.ObjectType{"person", "vehicle"}, settings.Embeddings[0].ObjectTypes)
}
