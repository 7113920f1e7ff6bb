package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"recognition": {"deepgram", "whisper"},
	"playback":    {"elevenlabs"},
}

// weightEpsilon is the tolerance when checking that the score weights sum
// to one.
const weightEpsilon = 1e-9

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation: warn for unknown provider names; unknown
	// names may still be registered by the host, so this is not an error.
	validateProviderName("recognition", cfg.Providers.Recognition.Name)
	validateProviderName("playback", cfg.Providers.Playback.Name)

	if cfg.Providers.Recognition.Name == "" {
		slog.Warn("providers.recognition is not configured; recording requires clients to deliver recognition results themselves")
	}

	if f := cfg.Providers.Playback.SpeedFactor; f != 0 && (f < 0.5 || f > 2.0) {
		errs = append(errs, fmt.Errorf("providers.playback.speed_factor %.2f is out of range [0.5, 2.0]", f))
	}

	// Server-side recognizers transcribe audio themselves and need a PCM
	// capture path to read from.
	if name := cfg.Providers.Recognition.Name; slices.Contains(ValidProviderNames["recognition"], name) &&
		cfg.Providers.Recognition.AudioPath == "" {
		errs = append(errs, fmt.Errorf("providers.recognition.audio_path is required for provider %q", name))
	}
	if name := cfg.Providers.Playback.Name; slices.Contains(ValidProviderNames["playback"], name) &&
		cfg.Providers.Playback.AudioPath == "" {
		errs = append(errs, fmt.Errorf("providers.playback.audio_path is required for provider %q", name))
	}

	// Storage
	if cfg.Storage.Backend != "" && !cfg.Storage.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("storage.backend %q is invalid; valid values: file, postgres, memory", cfg.Storage.Backend))
	}
	if cfg.Storage.Backend == StoragePostgres && cfg.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.backend is postgres but storage.postgres_dsn is empty"))
	}

	// Practice
	sw, cw := cfg.Practice.SimilarityWeight, cfg.Practice.ConfidenceWeight
	if sw != 0 || cw != 0 {
		if sw < 0 || cw < 0 {
			errs = append(errs, fmt.Errorf("practice weights must be non-negative, got similarity=%.2f confidence=%.2f", sw, cw))
		} else if diff := sw + cw - 1; diff > weightEpsilon || diff < -weightEpsilon {
			errs = append(errs, fmt.Errorf("practice weights must sum to 1, got similarity=%.2f confidence=%.2f", sw, cw))
		}
	}
	if cfg.Practice.RecordingTimeout < 0 {
		errs = append(errs, fmt.Errorf("practice.recording_timeout must not be negative, got %s", cfg.Practice.RecordingTimeout))
	}

	return errors.Join(errs...)
}

// validateProviderName warns when a provider name is not among the built-in
// implementations for its kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	if !slices.Contains(ValidProviderNames[kind], name) {
		slog.Warn("unrecognised provider name; assuming a host-registered implementation",
			"kind", kind,
			"name", name,
			"known", ValidProviderNames[kind],
		)
	}
}
