// Package recognition defines the Provider interface for speech recognition
// backends.
//
// A recognition provider wraps a speech-to-text capability (e.g., Deepgram, a
// local whisper.cpp model, or a browser relaying Web Speech API results) and
// exposes a uniform one-shot interface: Listen blocks until a single utterance
// has been recognised and returns its transcript together with the
// recognizer's confidence. The practice engine consumes exactly one Result
// per recording attempt.
//
// Implementations must be safe for concurrent use and must honour context
// cancellation: when ctx is cancelled mid-listen, Listen returns promptly and
// releases any held capture resources.
package recognition

import (
	"context"
	"errors"
)

// Sentinel errors forming the recognition failure taxonomy. Providers wrap
// these so callers can classify failures with errors.Is.
var (
	// ErrUnavailable indicates the recognition capability cannot be used on
	// this host at all (missing model, no backend configured). Sessions treat
	// this as fatal for the current word, never retried automatically.
	ErrUnavailable = errors.New("recognition capability unavailable")

	// ErrPermissionDenied indicates the host refused access to the audio
	// input device. Surfaced to the user with a permission prompt.
	ErrPermissionDenied = errors.New("audio input permission denied")

	// ErrNoSpeech indicates the provider completed without hearing any
	// usable speech.
	ErrNoSpeech = errors.New("no speech detected")
)

// Provider is the abstraction over any speech recognition backend.
//
// Implementations must be safe for concurrent use, although the practice
// session only ever runs one Listen call at a time.
type Provider interface {
	// Listen captures one utterance and returns its recognition result.
	// It blocks until the recognizer commits to a final transcript, the
	// provider fails, or ctx is cancelled (in which case ctx.Err() is
	// returned). The returned Result is consumed once per recording attempt
	// and is not retained by the provider.
	//
	// Audio acquisition is scoped to the call: every exit path releases the
	// underlying capture resource before Listen returns.
	Listen(ctx context.Context) (Result, error)

	// Preflight verifies that the capability is usable right now without
	// capturing an utterance: the model is loaded, the backend is reachable,
	// the input device is accessible. Sessions call this before entering the
	// recording phase so permission problems surface as immediate feedback
	// rather than a hung listen. A nil error means Listen is expected to work.
	Preflight(ctx context.Context) error
}
