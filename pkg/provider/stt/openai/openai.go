// Package openai provides an STT provider backed by the OpenAI audio
// transcription API (whisper-1 and successors).
//
// The hosted API returns flat text without per-word timing, so transcripts
// from this provider carry no word detail; alignment falls back to
// text-only scoring.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/oratio-labs/oratio/internal/audio"
	"github.com/oratio-labs/oratio/pkg/provider/stt"
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL, for compatible
// third-party endpoints.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// Provider implements stt.Provider using the OpenAI audio API.
type Provider struct {
	client oai.Client
	model  string
}

// New constructs a new OpenAI STT Provider. model is the transcription
// model identifier (e.g. "whisper-1").
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai stt: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai stt: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.timeout))
	}

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  model,
	}, nil
}

// Transcribe implements [stt.Provider]. The recording is downmixed to mono,
// wrapped as WAV, and uploaded to the transcription endpoint.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*stt.Transcript, error) {
	if len(req.Audio.PCM) == 0 {
		return nil, errors.New("openai stt: empty recording")
	}
	sr := req.Audio.SampleRate
	if sr <= 0 {
		sr = 16000
	}
	pcm := audio.StereoToMono(audio.PCM{
		Data:       req.Audio.PCM,
		SampleRate: sr,
		Channels:   max(req.Audio.Channels, 1),
	})
	dur := req.Audio.Duration()

	wavData, err := audio.EncodeWAV(pcm)
	if err != nil {
		return nil, fmt.Errorf("openai stt: %w", err)
	}

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(wavData), "audio.wav", "audio/wav"),
		Model: oai.AudioModel(p.model),
	}
	if req.Language != "" {
		params.Language = oai.String(baseLanguage(req.Language))
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai stt: transcribe: %w", err)
	}

	return &stt.Transcript{
		Text:     strings.TrimSpace(resp.Text),
		Duration: dur,
	}, nil
}

// baseLanguage reduces a BCP-47 tag to its base subtag: the transcription
// endpoint wants ISO-639-1 ("en"), not "en-US".
func baseLanguage(tag string) string {
	if i := strings.IndexByte(tag, '-'); i >= 0 {
		return strings.ToLower(tag[:i])
	}
	return strings.ToLower(tag)
}
