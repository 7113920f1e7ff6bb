// Package config provides the configuration schema, loader, and provider
// registry for the FluencyBoost pronunciation practice server.
package config

import "time"

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// StorageBackend selects how words and attempts are persisted.
type StorageBackend string

const (
	// StorageFile keeps words in a JSON document and attempts in an
	// append-only JSONL file under the data directory.
	StorageFile StorageBackend = "file"

	// StoragePostgres keeps both in a PostgreSQL database.
	StoragePostgres StorageBackend = "postgres"

	// StorageMemory keeps everything in process memory. Useful for demos
	// and tests; nothing survives a restart.
	StorageMemory StorageBackend = "memory"
)

// IsValid reports whether b is a recognised storage backend.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageFile, StoragePostgres, StorageMemory:
		return true
	}
	return false
}

// Config is the root configuration structure for FluencyBoost.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Storage   StorageConfig   `yaml:"storage"`
	Practice  PracticeConfig  `yaml:"practice"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares which implementation to use for the speech
// capabilities. Each field selects a named provider registered in the
// [Registry]. An empty name disables the capability: recognition degrades to
// results delivered by the client, playback becomes a no-op.
type ProvidersConfig struct {
	Recognition ProviderEntry `yaml:"recognition"`
	Playback    ProviderEntry `yaml:"playback"`
}

// ProviderEntry is the common configuration block shared by both provider
// kinds. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation
	// (e.g., "deepgram", "whisper", "elevenlabs").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API, if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "nova-3",
	// a whisper.cpp model file path, an ElevenLabs voice ID).
	Model string `yaml:"model"`

	// Language is the BCP-47 language tag for recognition or synthesis
	// (e.g., "en-US"). Empty lets the provider use its default.
	Language string `yaml:"language"`

	// SpeedFactor adjusts playback speed for reference audio. Zero means
	// the provider default; the reference pronunciation is usually played
	// slightly slowed (0.8) so learners can hear each syllable.
	SpeedFactor float64 `yaml:"speed_factor"`

	// AudioPath is the file or FIFO carrying raw PCM for server-side
	// providers: the capture stream for recognition (e.g. a FIFO fed by
	// arecord) or the output stream for playback (e.g. a FIFO drained by
	// aplay). Ignored by providers that exchange audio with the client.
	AudioPath string `yaml:"audio_path"`
}

// StorageConfig selects and parameterises the persistence backend.
type StorageConfig struct {
	// Backend selects the storage implementation. Default: file.
	Backend StorageBackend `yaml:"backend"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `yaml:"postgres_dsn"`

	// DataDir is where the file backend keeps words.json and
	// attempts.jsonl. Default: "./data".
	DataDir string `yaml:"data_dir"`
}

// PracticeConfig tunes the scoring and session policy. Zero values mean the
// engine defaults.
type PracticeConfig struct {
	// SimilarityWeight is the text-similarity share of the blended score.
	// Default: 0.7.
	SimilarityWeight float64 `yaml:"similarity_weight"`

	// ConfidenceWeight is the recognizer-confidence share of the blended
	// score. Default: 0.3. SimilarityWeight + ConfidenceWeight must be 1.
	ConfidenceWeight float64 `yaml:"confidence_weight"`

	// RecordingTimeout is how long a recording waits for a recognition
	// result before zero-score feedback. Default: 10s.
	RecordingTimeout time.Duration `yaml:"recording_timeout"`
}
