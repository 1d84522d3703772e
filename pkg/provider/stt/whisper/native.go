// This file contains the NativeProvider implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/oratio-labs/oratio/internal/audio"
	"github.com/oratio-labs/oratio/pkg/provider/stt"
)

// Compile-time assertion that NativeProvider satisfies stt.Provider.
var _ stt.Provider = (*NativeProvider)(nil)

// NativeProvider implements stt.Provider using whisper.cpp Go bindings
// (CGO), eliminating HTTP overhead entirely. The model is loaded once at
// startup and shared across all concurrent Transcribe calls; each call
// creates its own whisper context.
type NativeProvider struct {
	model    whisperlib.Model
	language string
}

// NativeOption is a functional option for configuring a NativeProvider.
type NativeOption func(*NativeProvider)

// WithNativeLanguage sets the language code for transcription (e.g. "en",
// "de"). Defaults to "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(p *NativeProvider) { p.language = lang }
}

// NewNative creates a NativeProvider that loads the whisper.cpp model from
// the given file path. The caller must call Close when the provider is no
// longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &NativeProvider{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model. Must be called when the provider is no
// longer needed.
func (p *NativeProvider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe implements [stt.Provider]. It runs whisper.cpp inference over
// the whole recording and returns per-word timing interpolated from the
// segment boundaries whisper reports. Per-word confidence is the mean token
// probability of the word's segment.
func (p *NativeProvider) Transcribe(ctx context.Context, req stt.Request) (*stt.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	pcm, dur, err := preparePCM(req.Audio)
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	if audio.RMS(pcm.Data) < silenceRMSThreshold {
		return &stt.Transcript{Duration: dur}, nil
	}

	samples := pcmToFloat32(pcm.Data)
	if pcm.SampleRate != whisperlib.SampleRate {
		samples = resampleFloat32(samples, pcm.SampleRate, whisperlib.SampleRate)
	}

	// Each context is NOT thread-safe, but the model can be shared across
	// goroutines.
	wctx, err := p.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}

	lang := baseLanguage(req.Language)
	if lang == "" {
		lang = p.language
	}
	if err := wctx.SetLanguage(lang); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", lang, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	tr := &stt.Transcript{Duration: dur}
	var parts []string
	var confSum float64
	var confN int

	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}

		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)

		conf := segmentConfidence(segment)
		confSum += conf
		confN++
		tr.Words = append(tr.Words, splitSegmentWords(text, segment.Start, segment.End, conf)...)
	}

	tr.Text = strings.Join(parts, " ")
	if confN > 0 {
		tr.Confidence = confSum / float64(confN)
	}
	return tr, nil
}

// segmentConfidence averages the token probabilities of a segment, 0 when
// the segment carries no tokens.
func segmentConfidence(seg whisperlib.Segment) float64 {
	if len(seg.Tokens) == 0 {
		return 0
	}
	var sum float64
	for _, tok := range seg.Tokens {
		sum += float64(tok.P)
	}
	return sum / float64(len(seg.Tokens))
}

// splitSegmentWords distributes a segment's time span evenly over its
// whitespace-separated words. whisper.cpp reports timing per segment, not
// per word, so word boundaries are an interpolation.
func splitSegmentWords(text string, start, end time.Duration, confidence float64) []stt.WordDetail {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	span := end - start
	if span < 0 {
		span = 0
	}
	out := make([]stt.WordDetail, len(fields))
	for i, f := range fields {
		ws := start + span*time.Duration(i)/time.Duration(len(fields))
		we := start + span*time.Duration(i+1)/time.Duration(len(fields))
		out[i] = stt.WordDetail{
			Word:       f,
			Start:      ws,
			End:        we,
			Confidence: confidence,
		}
	}
	return out
}
