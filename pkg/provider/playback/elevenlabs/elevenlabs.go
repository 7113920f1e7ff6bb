// Package elevenlabs provides an ElevenLabs-backed playback provider using
// the ElevenLabs text-to-speech HTTP API. It implements the
// playback.Provider interface: each Speak call synthesizes the text once and
// writes the resulting PCM audio to the configured sink.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fluencyboost/fluencyboost/pkg/provider/playback"
)

const (
	ttsEndpointFmt   = "https://api.elevenlabs.io/v1/text-to-speech/%s?output_format=%s"
	defaultModel     = "eleven_flash_v2_5"
	defaultVoiceID   = "21m00Tcm4TlvDq8ikWAM"
	defaultOutputFmt = "pcm_16000"

	// defaultSpeed slows reference pronunciation down so learners can hear
	// each syllable. ElevenLabs accepts speeds in [0.7, 1.2].
	defaultSpeed = 0.8
)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithVoice sets the ElevenLabs voice ID used for reference pronunciation.
func WithVoice(voiceID string) Option {
	return func(p *Provider) {
		p.voiceID = voiceID
	}
}

// WithSpeed sets the playback speed factor. Values below 1.0 slow speech
// down; ElevenLabs accepts the range [0.7, 1.2].
func WithSpeed(speed float64) Option {
	return func(p *Provider) {
		p.speed = speed
	}
}

// WithOutputFormat sets the audio output format (e.g., "pcm_16000", "pcm_24000").
func WithOutputFormat(format string) Option {
	return func(p *Provider) {
		p.outputFormat = format
	}
}

// WithHTTPClient overrides the HTTP client. Used by tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements playback.Provider backed by the ElevenLabs HTTP API.
type Provider struct {
	apiKey       string
	sink         playback.AudioSink
	model        string
	voiceID      string
	outputFormat string
	speed        float64
	httpClient   *http.Client
}

var _ playback.Provider = (*Provider)(nil)

// New creates a new ElevenLabs Provider. apiKey must be non-empty and sink
// must accept the synthesized PCM audio for each Speak call.
func New(apiKey string, sink playback.AudioSink, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	if sink == nil {
		return nil, errors.New("elevenlabs: audio sink must not be nil")
	}
	p := &Provider{
		apiKey:       apiKey,
		sink:         sink,
		model:        defaultModel,
		voiceID:      defaultVoiceID,
		outputFormat: defaultOutputFmt,
		speed:        defaultSpeed,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ttsRequest is the JSON payload for POST /v1/text-to-speech/{voice_id}.
type ttsRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

// Speak synthesizes text and streams the resulting audio into the sink. It
// returns once the audio has been handed off; playback itself is the sink's
// responsibility.
func (p *Provider) Speak(ctx context.Context, text string) error {
	if text == "" {
		return errors.New("elevenlabs: text must not be empty")
	}

	body, err := json.Marshal(p.buildRequest(text))
	if err != nil {
		return fmt.Errorf("elevenlabs: encode request: %w", err)
	}

	endpoint := fmt.Sprintf(ttsEndpointFmt, p.voiceID, p.outputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/*")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs: synthesize HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("elevenlabs: synthesize: unexpected status %d", resp.StatusCode)
	}

	out, err := p.sink(ctx)
	if err != nil {
		return fmt.Errorf("elevenlabs: open audio sink: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("elevenlabs: write audio: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("elevenlabs: close audio sink: %w", err)
	}
	return nil
}

// buildRequest constructs the synthesis payload for a single text. Split out
// so tests can verify the payload shape without a real connection.
func (p *Provider) buildRequest(text string) ttsRequest {
	return ttsRequest{
		Text:    text,
		ModelID: p.model,
		VoiceSettings: &voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Speed:           p.speed,
		},
	}
}
