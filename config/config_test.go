package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes into dir for the duration of the test, like t.Chdir
// (which needs Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis://127.0.0.1:6379/0", s.BrokerAddr)
	assert.Equal(t, s.BrokerAddr, s.ResultAddr, "result store defaults to the broker")
	assert.True(t, s.TrackStarted)
	assert.Equal(t, "development", s.Environment)
	assert.Equal(t, 10, s.Concurrency)
	assert.Equal(t, 8*time.Second, s.ShutdownTimeout)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
broker_addr: redis://broker:6379/0
result_addr: redis://results:6379/1
track_started: false
environment: production
concurrency: 4
strict_priority: true
shutdown_timeout: 30s
queues:
  critical: 6
  default: 3
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fxasynq.yaml"), content, 0o644))
	chdir(t, dir)

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis://broker:6379/0", s.BrokerAddr)
	assert.Equal(t, "redis://results:6379/1", s.ResultAddr)
	assert.False(t, s.TrackStarted)
	assert.Equal(t, "production", s.Environment)
	assert.Equal(t, 4, s.Concurrency)
	assert.True(t, s.StrictPriority)
	assert.Equal(t, 30*time.Second, s.ShutdownTimeout)
	assert.Equal(t, map[string]int{"critical": 6, "default": 3}, s.Queues)
}

func TestLoad_EnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("FXASYNQ_BROKER_ADDR", "redis://elsewhere:6380/3")
	t.Setenv("FXASYNQ_CONCURRENCY", "2")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "redis://elsewhere:6380/3", s.BrokerAddr)
	assert.Equal(t, 2, s.Concurrency)
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("FXASYNQ_ENVIRONMENT", "sandbox")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment")
}

func TestSettings_Validate(t *testing.T) {
	valid := func() *Settings {
		return &Settings{
			BrokerAddr:  "redis://127.0.0.1:6379/0",
			Environment: "development",
			Concurrency: 1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"valid", func(s *Settings) {}, ""},
		{"bad environment", func(s *Settings) { s.Environment = "qa" }, "invalid environment"},
		{"empty broker", func(s *Settings) { s.BrokerAddr = "" }, "broker_addr must not be empty"},
		{"bad broker uri", func(s *Settings) { s.BrokerAddr = "http://nope" }, "invalid broker_addr"},
		{"bad result uri", func(s *Settings) { s.ResultAddr = "http://nope" }, "invalid result_addr"},
		{"zero concurrency", func(s *Settings) { s.Concurrency = 0 }, "concurrency must be positive"},
		{"bad queue priority", func(s *Settings) { s.Queues = map[string]int{"default": 0} }, "positive priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSettings_ConnOpts(t *testing.T) {
	s := &Settings{
		BrokerAddr: "redis://127.0.0.1:6379/0",
	}

	broker, err := s.BrokerConnOpt()
	require.NoError(t, err)
	assert.NotNil(t, broker)

	// Result store falls back to the broker when unset.
	result, err := s.ResultConnOpt()
	require.NoError(t, err)
	assert.Equal(t, broker, result)

	s.ResultAddr = "redis://127.0.0.1:6379/1"
	result, err = s.ResultConnOpt()
	require.NoError(t, err)
	assert.NotEqual(t, broker, result)
}

func TestSaveGenerated_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fxasynq.yaml")

	require.NoError(t, SaveGenerated(GenerateMinimal(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "broker_addr: redis://127.0.0.1:6379/0")
}
