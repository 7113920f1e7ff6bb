package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/fluencyboost/fluencyboost/internal/config"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  log_level: debug
providers:
  recognition:
    name: deepgram
    api_key: dg-key
    model: nova-3
    language: en
    audio_path: /tmp/capture
  playback:
    name: elevenlabs
    api_key: xi-key
    speed_factor: 0.8
    audio_path: /tmp/playback
storage:
  backend: postgres
  postgres_dsn: "postgres://localhost/fluencyboost"
practice:
  similarity_weight: 0.7
  confidence_weight: 0.3
  recording_timeout: 10s
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log_level = %q", cfg.Server.LogLevel)
	}
	if cfg.Providers.Recognition.Name != "deepgram" {
		t.Errorf("recognition name = %q", cfg.Providers.Recognition.Name)
	}
	if cfg.Providers.Playback.SpeedFactor != 0.8 {
		t.Errorf("speed_factor = %f", cfg.Providers.Playback.SpeedFactor)
	}
	if cfg.Storage.Backend != config.StoragePostgres {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
	if cfg.Practice.RecordingTimeout != 10*time.Second {
		t.Errorf("recording_timeout = %s", cfg.Practice.RecordingTimeout)
	}
}

func TestLoadFromReader_EmptyConfigIsValid(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Storage.Backend != "" {
		t.Errorf("expected zero-value config, got backend %q", cfg.Storage.Backend)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_adress: ":8080"
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_WeightsMustSumToOne(t *testing.T) {
	t.Parallel()
	yaml := `
practice:
  similarity_weight: 0.7
  confidence_weight: 0.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for weights not summing to 1, got nil")
	}
	if !strings.Contains(err.Error(), "sum to 1") {
		t.Errorf("error should mention weight sum, got: %v", err)
	}
}

func TestValidate_NegativeWeightRejected(t *testing.T) {
	t.Parallel()
	yaml := `
practice:
  similarity_weight: 1.3
  confidence_weight: -0.3
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for negative weight, got nil")
	}
}

func TestValidate_PostgresRequiresDSN(t *testing.T) {
	t.Parallel()
	yaml := `
storage:
  backend: postgres
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for postgres backend without DSN, got nil")
	}
	if !strings.Contains(err.Error(), "postgres_dsn") {
		t.Errorf("error should mention postgres_dsn, got: %v", err)
	}
}

func TestValidate_InvalidStorageBackend(t *testing.T) {
	t.Parallel()
	yaml := `
storage:
  backend: redis
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown storage backend, got nil")
	}
}

func TestValidate_SpeedFactorRange(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  playback:
    speed_factor: 3.0
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range speed factor, got nil")
	}
	if !strings.Contains(err.Error(), "speed_factor") {
		t.Errorf("error should mention speed_factor, got: %v", err)
	}
}

func TestValidate_BuiltinRecognizerRequiresAudioPath(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  recognition:
    name: whisper
    model: /models/ggml-base.en.bin
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing audio_path, got nil")
	}
	if !strings.Contains(err.Error(), "audio_path") {
		t.Errorf("error should mention audio_path, got: %v", err)
	}
}
