package resilience

import (
	"context"

	"github.com/oratio-labs/oratio/pkg/provider/stt"
)

// Transcriber implements [stt.Provider] with automatic failover across
// multiple speech backends. Each backend has its own circuit breaker, so a
// hosted engine that starts timing out is bypassed without taking live
// assessments down with it.
type Transcriber struct {
	group *FallbackGroup[stt.Provider]
}

// Compile-time interface assertion.
var _ stt.Provider = (*Transcriber)(nil)

// NewTranscriber creates a [Transcriber] with primary as the preferred
// backend.
func NewTranscriber(primary stt.Provider, primaryName string, cfg FallbackConfig) *Transcriber {
	return &Transcriber{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional speech backend as a fallback.
func (t *Transcriber) AddFallback(name string, provider stt.Provider) {
	t.group.AddFallback(name, provider)
}

// Transcribe runs the request against the first healthy backend. If the
// primary fails, the remaining backends are tried in registration order.
func (t *Transcriber) Transcribe(ctx context.Context, req stt.Request) (*stt.Transcript, error) {
	transcript, _, err := Try(t.group, func(p stt.Provider) (*stt.Transcript, error) {
		return p.Transcribe(ctx, req)
	})
	return transcript, err
}
