// Package playback defines the Provider interface for reference-audio
// playback backends.
//
// A playback provider wraps a text-to-speech capability (e.g., ElevenLabs, a
// local synthesizer, or a browser's speechSynthesis relayed to the client)
// and exposes a fire-and-forget Speak call: the engine asks for a word to be
// spoken and does not await or verify completion.
package playback

import (
	"context"
	"io"
)

// AudioSink opens an audio output stream for one playback. Providers that
// synthesize audio themselves call it once per Speak and close the returned
// writer when the synthesized audio has been fully written. The stream
// format is provider-specific; implementations document what they emit.
type AudioSink func(ctx context.Context) (io.WriteCloser, error)

// Provider is the abstraction over any speech playback backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Speak pronounces text. The call returns once playback has been
	// dispatched; it does not wait for the audio to finish. An error means
	// playback could not be started at all (synthesis failure, unreachable
	// backend); the engine logs it and carries on, since reference playback
	// is a convenience rather than a prerequisite for scoring.
	Speak(ctx context.Context, text string) error
}
