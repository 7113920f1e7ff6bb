// Package mock provides test doubles for the recognition package interfaces.
//
// Use Provider to script Listen outcomes and inspect how the session drives
// the capability:
//
//	p := &mock.Provider{
//	    Results: []recognition.Result{{Transcript: "cafe", Confidence: 0.9}},
//	}
//	res, err := p.Listen(ctx)
package mock

import (
	"context"
	"sync"

	"github.com/fluencyboost/fluencyboost/pkg/provider/recognition"
)

// Provider is a mock implementation of recognition.Provider.
type Provider struct {
	mu sync.Mutex

	// Results are returned by successive Listen calls, in order. When the
	// slice is exhausted, Listen returns recognition.ErrNoSpeech.
	Results []recognition.Result

	// ListenErr, if non-nil, is returned by every Listen call instead of a
	// scripted result.
	ListenErr error

	// PreflightErr, if non-nil, is returned by Preflight.
	PreflightErr error

	// Block, if non-nil, makes Listen wait until the channel is closed (or
	// ctx is cancelled) before returning. Useful for exercising timeout and
	// cancellation paths.
	Block chan struct{}

	// ListenCalls counts Listen invocations.
	ListenCalls int

	// PreflightCalls counts Preflight invocations.
	PreflightCalls int
}

var _ recognition.Provider = (*Provider)(nil)

// Listen returns the next scripted result, honouring Block and ctx.
func (p *Provider) Listen(ctx context.Context) (recognition.Result, error) {
	p.mu.Lock()
	p.ListenCalls++
	block := p.Block
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return recognition.Result{}, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ListenErr != nil {
		return recognition.Result{}, p.ListenErr
	}
	if len(p.Results) == 0 {
		return recognition.Result{}, recognition.ErrNoSpeech
	}
	res := p.Results[0]
	p.Results = p.Results[1:]
	return res, nil
}

// Preflight records the call and returns PreflightErr.
func (p *Provider) Preflight(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PreflightCalls++
	return p.PreflightErr
}
