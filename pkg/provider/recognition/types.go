package recognition

import (
	"context"
	"io"
)

// AudioSource opens a stream of raw audio for one capture. Providers that
// transcribe audio themselves (rather than receiving transcripts from the
// host) call it once per Listen and close the returned reader before
// returning. The stream carries 16 kHz mono 16-bit little-endian PCM unless
// the provider documents otherwise.
//
// Implementations backed by a capture device should return an error wrapping
// [ErrPermissionDenied] when the host refuses device access.
type AudioSource func(ctx context.Context) (io.ReadCloser, error)

// Result represents a committed speech recognition result for one utterance.
type Result struct {
	// Transcript is the recognised speech content, verbatim as reported by
	// the backend. Display code shows it raw; comparison code normalises it
	// first.
	Transcript string

	// Confidence is the recognizer's overall confidence in [0, 1]. Zero when
	// the backend does not report confidence. Values are passed through
	// unvalidated; consumers that feed scores from it must clamp at their
	// boundary if they need the range guarantee.
	Confidence float64
}
