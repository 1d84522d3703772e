package assess

import (
	"context"
	"errors"
	"time"

	"github.com/oratio-labs/oratio/internal/align"
	"github.com/oratio-labs/oratio/internal/audio"
	"github.com/oratio-labs/oratio/internal/observe"
	"github.com/oratio-labs/oratio/internal/text"
	"github.com/oratio-labs/oratio/pkg/provider/stt"
)

// ErrNoProvider is returned by audio paths when no transcription backend is
// configured.
var ErrNoProvider = errors.New("assess: no transcription backend configured")

// Transcription is the assessment-facing view of a transcript. Words always
// carries per-word detail: when the backend returned none, detail is
// synthesised from the text with evenly spread timestamps and Estimated set.
type Transcription struct {
	Text     string             `json:"text"`
	Words    []align.SpokenWord `json:"words"`
	Duration time.Duration      `json:"duration"`

	// Estimated is true when Words was synthesised rather than reported by
	// the backend.
	Estimated bool `json:"estimated,omitempty"`

	// Degraded is true when every backend failed and the empty transcript
	// stands in for a real one.
	Degraded bool `json:"degraded,omitempty"`
}

// Transcribe runs pcm through the configured backend and normalises the
// result. A backend failure yields a degraded empty transcription rather
// than an error: the reading can still be finalized from tracked text.
func (s *Service) Transcribe(ctx context.Context, pcm audio.PCM, language string, hints []string) (*Transcription, error) {
	if s.provider == nil {
		return nil, ErrNoProvider
	}
	if language == "" {
		language = s.defaultLanguage()
	}

	start := time.Now()
	transcript, err := s.provider.Transcribe(ctx, stt.Request{
		Audio: stt.Audio{
			PCM:        pcm.Data,
			SampleRate: pcm.SampleRate,
			Channels:   pcm.Channels,
		},
		Language: language,
		Hints:    hints,
	})
	if s.metrics != nil {
		s.metrics.TranscriptionDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		observe.Logger(ctx).Warn("transcription failed, returning degraded empty result", "err", err)
		if s.metrics != nil {
			s.metrics.RecordProviderRequest(ctx, "transcriber", "error")
			s.metrics.RecordProviderError(ctx, "transcriber")
		}
		return &Transcription{Duration: pcm.Duration(), Degraded: true}, nil
	}
	if s.metrics != nil {
		s.metrics.RecordProviderRequest(ctx, "transcriber", "ok")
	}

	return normalizeTranscript(transcript), nil
}

// normalizeTranscript converts a provider transcript into a [Transcription],
// synthesising word detail when the backend returned flat text only.
func normalizeTranscript(t *stt.Transcript) *Transcription {
	out := &Transcription{
		Text:     t.Text,
		Duration: t.Duration,
	}
	if len(t.Words) > 0 {
		out.Words = make([]align.SpokenWord, len(t.Words))
		for i, w := range t.Words {
			out.Words[i] = align.SpokenWord{
				Text:       w.Word,
				Start:      w.Start,
				End:        w.End,
				Confidence: w.Confidence,
				Status:     align.ExternalStatus(w.Status),
			}
		}
		return out
	}
	out.Words = synthesizeWords(t.Text, t.Duration)
	out.Estimated = len(out.Words) > 0
	return out
}

// synthesizeWords spreads the words of s evenly across duration so
// word-level consumers keep working when a backend reports text only.
// Confidence is left zero: it was never measured.
func synthesizeWords(s string, duration time.Duration) []align.SpokenWord {
	fields := text.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	per := duration / time.Duration(len(fields))
	if per <= 0 {
		per = 500 * time.Millisecond
	}
	words := make([]align.SpokenWord, len(fields))
	for i, f := range fields {
		words[i] = align.SpokenWord{
			Text:  f,
			Start: time.Duration(i) * per,
			End:   time.Duration(i+1) * per,
		}
	}
	return words
}
