// Command fluencyboost is the main entry point for the FluencyBoost
// pronunciation practice server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fluencyboost/fluencyboost/internal/app"
	"github.com/fluencyboost/fluencyboost/internal/config"
	"github.com/fluencyboost/fluencyboost/internal/observe"
	"github.com/fluencyboost/fluencyboost/pkg/provider/playback"
	elevenlabstts "github.com/fluencyboost/fluencyboost/pkg/provider/playback/elevenlabs"
	"github.com/fluencyboost/fluencyboost/pkg/provider/recognition"
	"github.com/fluencyboost/fluencyboost/pkg/provider/recognition/deepgram"
	"github.com/fluencyboost/fluencyboost/pkg/provider/recognition/whisper"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "fluencyboost: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "fluencyboost: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("fluencyboost starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"storage", cfg.Storage.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry first: the meter provider must be global before any
	// instruments are created.
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "fluencyboost",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ---- Provider wiring ----

// registerBuiltinProviders wires the provider factories that ship with
// FluencyBoost into reg. Each factory receives a config.ProviderEntry and
// constructs the provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterRecognition("deepgram", func(entry config.ProviderEntry) (recognition.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, deepgram.WithLanguage(entry.Language))
		}
		return deepgram.New(entry.APIKey, fileSource(entry.AudioPath), opts...)
	})

	reg.RegisterRecognition("whisper", func(entry config.ProviderEntry) (recognition.Provider, error) {
		var opts []whisper.Option
		if entry.Language != "" {
			opts = append(opts, whisper.WithLanguage(entry.Language))
		}
		return whisper.New(entry.Model, fileSource(entry.AudioPath), opts...)
	})

	reg.RegisterPlayback("elevenlabs", func(entry config.ProviderEntry) (playback.Provider, error) {
		var opts []elevenlabstts.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabstts.WithVoice(entry.Model))
		}
		if entry.SpeedFactor != 0 {
			opts = append(opts, elevenlabstts.WithSpeed(entry.SpeedFactor))
		}
		return elevenlabstts.New(entry.APIKey, fileSink(entry.AudioPath), opts...)
	})
}

// buildProviders instantiates the providers named in cfg using the registry
// and returns them in an [app.Providers] struct.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.Recognition.Name; name != "" {
		p, err := reg.CreateRecognition(cfg.Providers.Recognition)
		if err != nil {
			return nil, fmt.Errorf("create recognition provider %q: %w", name, err)
		}
		ps.Recognition = p
		slog.Info("provider created", "kind", "recognition", "name", name)
	}

	if name := cfg.Providers.Playback.Name; name != "" {
		p, err := reg.CreatePlayback(cfg.Providers.Playback)
		if err != nil {
			return nil, fmt.Errorf("create playback provider %q: %w", name, err)
		}
		ps.Playback = p
		slog.Info("provider created", "kind", "playback", "name", name)
	}

	return ps, nil
}

// fileSource opens the PCM capture stream at path for each listen. The path
// is typically a FIFO fed by a capture tool (e.g. arecord) or a device file.
func fileSource(path string) recognition.AudioSource {
	return func(ctx context.Context) (io.ReadCloser, error) {
		f, err := os.Open(path)
		if err != nil {
			if os.IsPermission(err) {
				return nil, fmt.Errorf("open %q: %v: %w", path, err, recognition.ErrPermissionDenied)
			}
			return nil, fmt.Errorf("open %q: %w", path, err)
		}
		return f, nil
	}
}

// fileSink opens the PCM output stream at path for each playback. The path
// is typically a FIFO drained by a playback tool (e.g. aplay).
func fileSink(path string) playback.AudioSink {
	return func(ctx context.Context) (io.WriteCloser, error) {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open %q: %w", path, err)
		}
		return f, nil
	}
}

// ---- Logger ----

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
