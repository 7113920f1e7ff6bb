// Package deepgram provides a Deepgram-backed recognition provider using the
// Deepgram streaming WebSocket API. It implements the recognition.Provider
// interface as a one-shot recognizer: each Listen call opens a fresh stream,
// forwards captured audio, and returns the first final transcript.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/coder/websocket"
	"github.com/fluencyboost/fluencyboost/pkg/provider/recognition"
)

const (
	deepgramEndpoint  = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-3"
	defaultLanguage   = "en"
	defaultSampleRate = 16000
)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the BCP-47 language code for recognition (e.g., "en", "de-DE").
func WithLanguage(language string) Option {
	return func(p *Provider) {
		p.language = language
	}
}

// WithSampleRate sets the audio sample rate in Hz of the capture stream.
func WithSampleRate(rate int) Option {
	return func(p *Provider) {
		p.sampleRate = rate
	}
}

// Provider implements recognition.Provider backed by the Deepgram streaming API.
type Provider struct {
	apiKey     string
	source     recognition.AudioSource
	model      string
	language   string
	sampleRate int
}

var _ recognition.Provider = (*Provider)(nil)

// New creates a new Deepgram Provider. apiKey must be non-empty and source
// must supply the microphone capture stream for each Listen call.
func New(apiKey string, source recognition.AudioSource, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	if source == nil {
		return nil, errors.New("deepgram: audio source must not be nil")
	}
	p := &Provider{
		apiKey:     apiKey,
		source:     source,
		model:      defaultModel,
		language:   defaultLanguage,
		sampleRate: defaultSampleRate,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Preflight opens and immediately closes the audio source so capture
// permission problems surface before a recording attempt starts.
func (p *Provider) Preflight(ctx context.Context) error {
	rc, err := p.source(ctx)
	if err != nil {
		return fmt.Errorf("deepgram: open audio source: %w", err)
	}
	if err := rc.Close(); err != nil {
		return fmt.Errorf("deepgram: close audio source: %w", err)
	}
	return nil
}

// Listen captures one utterance, streams it to Deepgram over a WebSocket, and
// returns the first final transcript. The capture stream and the connection
// are released before Listen returns on every exit path.
func (p *Provider) Listen(ctx context.Context) (recognition.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	audio, err := p.source(ctx)
	if err != nil {
		return recognition.Result{}, fmt.Errorf("deepgram: open audio source: %w", err)
	}
	defer audio.Close()

	wsURL, err := p.buildURL()
	if err != nil {
		return recognition.Result{}, fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return recognition.Result{}, fmt.Errorf("deepgram: dial: %w (%w)", err, recognition.ErrUnavailable)
	}
	defer conn.Close(websocket.StatusNormalClosure, "listen complete")

	// Forward audio until the source drains or the context is cancelled,
	// then ask Deepgram to flush pending audio. A write failure here also
	// fails the read below, so it is not reported separately.
	go func() {
		buf := make([]byte, 4096)
		for {
			n, rerr := audio.Read(buf)
			if n > 0 {
				if werr := conn.Write(ctx, websocket.MessageBinary, buf[:n]); werr != nil {
					return
				}
			}
			if rerr != nil {
				break
			}
		}
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`))
	}()

	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return recognition.Result{}, ctx.Err()
			}
			// The stream ended without a final transcript.
			return recognition.Result{}, fmt.Errorf("deepgram: stream closed: %w", recognition.ErrNoSpeech)
		}

		res, ok := parseResult(msg)
		if !ok {
			continue
		}
		if res.Transcript == "" {
			return recognition.Result{}, fmt.Errorf("deepgram: %w", recognition.ErrNoSpeech)
		}
		return res, nil
	}
}

// buildURL constructs the Deepgram streaming endpoint URL.
func (p *Provider) buildURL() (string, error) {
	u, err := url.Parse(deepgramEndpoint)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", p.language)
	q.Set("punctuate", "true")
	q.Set("interim_results", "false")
	q.Set("sample_rate", strconv.Itoa(p.sampleRate))
	q.Set("encoding", "linear16")
	q.Set("channels", "1")

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// deepgramResponse is the JSON structure returned by Deepgram for a Results event.
type deepgramResponse struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// parseResult parses a raw Deepgram WebSocket message into a Result. Returns
// (Result, true) only for final Results events; interim results and non-Results
// messages are ignored.
func parseResult(data []byte) (recognition.Result, bool) {
	var resp deepgramResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return recognition.Result{}, false
	}
	if resp.Type != "Results" || !resp.IsFinal {
		return recognition.Result{}, false
	}
	if len(resp.Channel.Alternatives) == 0 {
		return recognition.Result{}, false
	}

	alt := resp.Channel.Alternatives[0]
	return recognition.Result{
		Transcript: alt.Transcript,
		Confidence: alt.Confidence,
	}, true
}
