// Package whisper provides a local recognition provider backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.
//
// The provider is a one-shot recognizer: each Listen call captures audio
// from the configured source, detects the end of the utterance via RMS
// silence analysis, runs a single whisper.cpp inference over the buffered
// speech, and returns the transcript.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/fluencyboost/fluencyboost/pkg/provider/recognition"
)

const (
	// bitsPerSample is fixed at 16 for the 16-bit signed little-endian PCM
	// audio that whisper.cpp expects.
	bitsPerSample = 16

	// defaultRMSThreshold is the root-mean-square energy level (in 16-bit PCM
	// units) below which audio is considered silent. The maximum possible value
	// for 16-bit audio is 32 767; 300 corresponds to near-silence.
	defaultRMSThreshold = 300.0

	defaultLanguage           = "en"
	defaultSampleRate         = 16000
	defaultSilenceThresholdMs = 500
	defaultMaxUtteranceMs     = 10_000

	// readChunkBytes is 100 ms of 16 kHz mono 16-bit PCM.
	readChunkBytes = 3200
)

// Compile-time assertion that Provider implements recognition.Provider.
var _ recognition.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithSampleRate sets the audio sample rate in Hz. This must match the
// actual sample rate of PCM data delivered by the audio source. Defaults
// to 16000.
func WithSampleRate(rate int) Option {
	return func(p *Provider) { p.sampleRate = rate }
}

// WithSilenceThresholdMs sets the consecutive-silence duration (ms) after
// speech that ends the utterance. Defaults to 500 ms.
func WithSilenceThresholdMs(ms int) Option {
	return func(p *Provider) { p.silenceThresholdMs = ms }
}

// WithMaxUtteranceMs sets the maximum buffered speech duration (ms) before
// capture is cut off and inference runs on what was heard. Defaults to
// 10 000 ms (10 s).
func WithMaxUtteranceMs(ms int) Option {
	return func(p *Provider) { p.maxUtteranceMs = ms }
}

// Provider implements recognition.Provider using whisper.cpp Go bindings
// (CGO), eliminating network overhead entirely. The model is loaded once at
// construction and shared across all Listen calls.
type Provider struct {
	model  whisperlib.Model
	source recognition.AudioSource

	language           string
	sampleRate         int
	silenceThresholdMs int
	maxUtteranceMs     int
}

// New creates a Provider that loads the whisper.cpp model from the given
// file path. source must supply the microphone capture stream for each
// Listen call. The caller must call Close when the provider is no longer
// needed.
func New(modelPath string, source recognition.AudioSource, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("whisper: modelPath must not be empty: %w", recognition.ErrUnavailable)
	}
	if source == nil {
		return nil, errors.New("whisper: audio source must not be nil")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &Provider{
		model:              model,
		source:             source,
		language:           defaultLanguage,
		sampleRate:         defaultSampleRate,
		silenceThresholdMs: defaultSilenceThresholdMs,
		maxUtteranceMs:     defaultMaxUtteranceMs,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model. Must be called when the provider is no
// longer needed.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Preflight verifies the model is loaded and the audio source can be opened.
func (p *Provider) Preflight(ctx context.Context) error {
	if p.model == nil {
		return fmt.Errorf("whisper: model not loaded: %w", recognition.ErrUnavailable)
	}
	rc, err := p.source(ctx)
	if err != nil {
		return fmt.Errorf("whisper: open audio source: %w", err)
	}
	if err := rc.Close(); err != nil {
		return fmt.Errorf("whisper: close audio source: %w", err)
	}
	return nil
}

// Listen captures one utterance and transcribes it. It blocks until the
// speaker falls silent, the utterance length cap is hit, the source drains,
// or ctx is cancelled. The capture stream is closed before Listen returns.
func (p *Provider) Listen(ctx context.Context) (recognition.Result, error) {
	if err := ctx.Err(); err != nil {
		return recognition.Result{}, err
	}

	audio, err := p.source(ctx)
	if err != nil {
		return recognition.Result{}, fmt.Errorf("whisper: open audio source: %w", err)
	}
	defer audio.Close()

	pcm, err := p.capture(ctx, audio)
	if err != nil {
		return recognition.Result{}, err
	}
	if len(pcm) == 0 {
		return recognition.Result{}, fmt.Errorf("whisper: %w", recognition.ErrNoSpeech)
	}

	text, confidence, err := p.infer(pcm)
	if err != nil {
		return recognition.Result{}, err
	}
	if text == "" {
		return recognition.Result{}, fmt.Errorf("whisper: %w", recognition.ErrNoSpeech)
	}

	return recognition.Result{Transcript: text, Confidence: confidence}, nil
}

// capture reads PCM from the audio stream and returns the buffered utterance.
// Leading silence before any speech is discarded. The utterance ends after
// silenceThresholdMs of consecutive silence following speech, when the
// buffered speech reaches maxUtteranceMs, or when the stream drains.
func (p *Provider) capture(ctx context.Context, audio io.Reader) ([]byte, error) {
	bytesPerMs := p.sampleRate * (bitsPerSample / 8) / 1000
	if bytesPerMs <= 0 {
		bytesPerMs = 32
	}
	maxBytes := p.maxUtteranceMs * bytesPerMs

	var (
		utterance []byte
		hadSpeech bool
		silenceMs int
	)

	chunk := make([]byte, readChunkBytes)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, rerr := audio.Read(chunk)
		if n > 0 {
			c := chunk[:n]
			rms := computeRMS(c)
			chunkMs := chunkDurationMs(c, p.sampleRate)

			if rms < defaultRMSThreshold {
				if hadSpeech {
					silenceMs += chunkMs
					utterance = append(utterance, c...)
					if silenceMs >= p.silenceThresholdMs {
						return utterance, nil
					}
				}
			} else {
				hadSpeech = true
				silenceMs = 0
				utterance = append(utterance, c...)
				if maxBytes > 0 && len(utterance) >= maxBytes {
					return utterance, nil
				}
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
				if !hadSpeech {
					return nil, nil
				}
				return utterance, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("whisper: read audio: %w", rerr)
		}
	}
}

// infer converts the buffered PCM audio to float32, runs whisper.cpp
// inference using a fresh context, and returns the concatenated text with
// the mean token probability as confidence.
func (p *Provider) infer(pcm []byte) (string, float64, error) {
	samples := pcmToFloat32(pcm)

	// Each whisper context is NOT thread-safe, but the model can be shared
	// across goroutines.
	wctx, err := p.model.NewContext()
	if err != nil {
		return "", 0, fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(p.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", p.language, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", 0, fmt.Errorf("whisper: process audio: %w", err)
	}

	var (
		parts      []string
		probSum    float64
		tokenCount int
	)
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", 0, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
		for _, tok := range segment.Tokens {
			probSum += float64(tok.P)
			tokenCount++
		}
	}

	confidence := 0.0
	if tokenCount > 0 {
		confidence = probSum / float64(tokenCount)
	}
	return strings.Join(parts, " "), confidence, nil
}
