// Package mock provides a test double for the stt.Provider interface.
//
// The mock records every request for assertion in tests and exposes
// exported fields that control what it returns. It is safe for concurrent
// use via an internal [sync.Mutex].
//
// Typical usage:
//
//	p := &mock.Provider{
//	    Result: &stt.Transcript{Text: "the quick brown fox"},
//	}
//
//	// inject p into the system under test …
//
//	if got := p.CallCount(); got != 1 {
//	    t.Errorf("expected 1 Transcribe call, got %d", got)
//	}
package mock

import (
	"context"
	"sync"

	"github.com/oratio-labs/oratio/pkg/provider/stt"
)

// Compile-time assertion that Provider satisfies stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Provider is a configurable test double for [stt.Provider].
type Provider struct {
	mu sync.Mutex

	// requests records every Transcribe invocation in order.
	requests []stt.Request

	// Result is returned by Transcribe when Err is nil. When both are nil,
	// Transcribe returns an empty transcript.
	Result *stt.Transcript

	// Err is returned by Transcribe when non-nil.
	Err error
}

// Transcribe implements [stt.Provider].
func (m *Provider) Transcribe(_ context.Context, req stt.Request) (*stt.Transcript, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result != nil {
		out := *m.Result
		return &out, nil
	}
	return &stt.Transcript{}, nil
}

// Requests returns a copy of all recorded Transcribe requests.
func (m *Provider) Requests() []stt.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]stt.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns how many times Transcribe was invoked.
func (m *Provider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
