package whisper

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/fluencyboost/fluencyboost/pkg/provider/recognition"
)

// captureProvider builds a Provider with only the fields capture needs. The
// model stays nil; capture never touches it.
func captureProvider() *Provider {
	return &Provider{
		sampleRate:         16000,
		silenceThresholdMs: 500,
		maxUtteranceMs:     10_000,
	}
}

func TestCapture_NoSpeech(t *testing.T) {
	t.Parallel()

	// Pure silence followed by EOF yields no utterance.
	p := captureProvider()
	silence := pcmConstant(0, 16000)

	got, err := p.capture(context.Background(), bytes.NewReader(silence))
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil utterance for pure silence, got %d bytes", len(got))
	}
}

func TestCapture_SpeechThenSilence(t *testing.T) {
	t.Parallel()

	p := captureProvider()

	// 200 ms of speech, then well over the silence threshold of silence.
	var stream []byte
	stream = append(stream, pcmConstant(5000, 3200)...) // 200 ms speech
	stream = append(stream, pcmConstant(0, 16000)...)   // 1 s silence

	got, err := p.capture(context.Background(), bytes.NewReader(stream))
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected a non-empty utterance")
	}
	// The utterance must include all the speech but stop at the silence
	// threshold rather than draining the whole stream.
	if len(got) >= len(stream) {
		t.Errorf("capture consumed the entire stream (%d bytes); expected an early stop", len(got))
	}
	if len(got) < 3200*2 {
		t.Errorf("utterance too short (%d bytes); speech portion was dropped", len(got))
	}
}

func TestCapture_LeadingSilenceDiscarded(t *testing.T) {
	t.Parallel()

	p := captureProvider()

	var stream []byte
	stream = append(stream, pcmConstant(0, 16000)...)   // 1 s leading silence
	stream = append(stream, pcmConstant(5000, 3200)...) // 200 ms speech

	got, err := p.capture(context.Background(), bytes.NewReader(stream))
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	// The utterance should only contain the speech tail, not the leading second.
	if len(got) > 3200*2 {
		t.Errorf("utterance includes leading silence: %d bytes", len(got))
	}
	if len(got) == 0 {
		t.Error("expected the speech portion to be captured")
	}
}

func TestCapture_MaxUtteranceCap(t *testing.T) {
	t.Parallel()

	p := captureProvider()
	p.maxUtteranceMs = 200

	// 1 s of continuous speech with no silence.
	stream := pcmConstant(5000, 16000)

	got, err := p.capture(context.Background(), bytes.NewReader(stream))
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	maxBytes := 200 * 32 // 200 ms at 32 B/ms
	if len(got) < maxBytes {
		t.Errorf("utterance shorter than the cap: %d bytes", len(got))
	}
	// capture stops on the first chunk that crosses the cap.
	if len(got) > maxBytes+readChunkBytes {
		t.Errorf("utterance overran the cap: %d bytes", len(got))
	}
}

func TestCapture_ContextCancelled(t *testing.T) {
	t.Parallel()

	p := captureProvider()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.capture(ctx, bytes.NewReader(pcmConstant(5000, 16000)))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNew_EmptyModelPath(t *testing.T) {
	t.Parallel()

	_, err := New("", func(ctx context.Context) (io.ReadCloser, error) { return nil, nil })
	if !errors.Is(err, recognition.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable for empty model path, got %v", err)
	}
}
