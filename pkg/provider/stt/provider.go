// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a transcription engine (local whisper.cpp, Google
// Cloud Speech-to-Text, or the OpenAI audio API) and exposes a uniform batch
// interface: the caller hands over a complete recording and receives a
// transcript, with per-word timing and confidence when the backend supports
// it. Reading assessments always operate on finished recordings, so there is
// no streaming surface here.
//
// Implementations must be safe for concurrent use; a single provider serves
// all assessment requests.
package stt

import (
	"context"
	"strings"
	"time"
)

// Audio is a complete recording as raw 16-bit signed little-endian PCM.
type Audio struct {
	// PCM is the sample data, two bytes per sample per channel.
	PCM []byte

	// SampleRate is the sample rate in Hz. Common values: 16000 (STT
	// optimised mono), 44100, 48000.
	SampleRate int

	// Channels is the number of interleaved channels. Providers downmix to
	// mono internally when needed.
	Channels int
}

// Duration returns the play length of the recording, zero when the format
// fields are unset.
func (a Audio) Duration() time.Duration {
	if a.SampleRate <= 0 || a.Channels <= 0 {
		return 0
	}
	samples := len(a.PCM) / (2 * a.Channels)
	return time.Duration(samples) * time.Second / time.Duration(a.SampleRate)
}

// Request carries one transcription job.
type Request struct {
	Audio Audio

	// Language is the BCP-47 language tag for recognition (e.g. "en-US").
	// An empty string uses the provider's default.
	Language string

	// Hints are vocabulary hints that raise recognition probability for
	// expected words. Callers typically pass the passage's own words so the
	// engine favors them over homophones. Providers without a hint API
	// ignore this field.
	Hints []string
}

// WordDetail holds per-word metadata from providers that support word-level
// output.
type WordDetail struct {
	// Word is the recognized token, in the provider's casing.
	Word string

	// Start and End bound the word within the recording.
	Start time.Duration
	End   time.Duration

	// Confidence is the recognition confidence (0.0–1.0), zero when the
	// provider does not report per-word confidence.
	Confidence float64

	// Status is a pre-classification from backends that judge pronunciation
	// themselves ("mispronounced" or "substituted"). Empty for the common
	// case where the engine only recognizes; downstream alignment then
	// classifies by similarity.
	Status string
}

// Transcript is the result of transcribing one recording.
type Transcript struct {
	// Text is the full transcribed text.
	Text string

	// Words contains per-word detail when available. Nil for providers that
	// only return flat text; alignment then falls back to text-only scoring.
	Words []WordDetail

	// Confidence is the overall recognition confidence (0.0–1.0), zero when
	// unreported.
	Confidence float64

	// Duration is the length of the recording as seen by the provider.
	Duration time.Duration
}

// WordTexts returns just the word strings of the transcript detail, or nil
// when no detail exists.
func (t *Transcript) WordTexts() []string {
	if len(t.Words) == 0 {
		return nil
	}
	out := make([]string, len(t.Words))
	for i, w := range t.Words {
		out[i] = w.Word
	}
	return out
}

// NormalizeHints lower-cases, trims, and deduplicates a hint list, keeping
// first-seen order. Providers share it to build their phrase lists.
func NormalizeHints(hints []string) []string {
	seen := make(map[string]struct{}, len(hints))
	out := make([]string, 0, len(hints))
	for _, h := range hints {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// Provider is the abstraction over any STT backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Transcribe converts a complete recording to text. It blocks until the
	// engine finishes or ctx is cancelled.
	Transcribe(ctx context.Context, req Request) (*Transcript, error)
}
