// Package mock provides a test double for the playback package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/fluencyboost/fluencyboost/pkg/provider/playback"
)

// Provider is a mock implementation of playback.Provider that records every
// spoken text.
type Provider struct {
	mu sync.Mutex

	// SpeakErr, if non-nil, is returned by every Speak call.
	SpeakErr error

	// Spoken records the text of every Speak call, in order.
	Spoken []string
}

var _ playback.Provider = (*Provider)(nil)

// Speak records text and returns SpeakErr.
func (p *Provider) Speak(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Spoken = append(p.Spoken, text)
	return p.SpeakErr
}

// SpokenTexts returns a copy of the recorded texts.
func (p *Provider) SpokenTexts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Spoken))
	copy(out, p.Spoken)
	return out
}
