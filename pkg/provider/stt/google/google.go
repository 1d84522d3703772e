// Package google provides a Google Cloud Speech-to-Text STT provider.
//
// It uses the synchronous Recognize API with word time offsets and word
// confidence enabled, so transcripts carry full per-word detail. Requires
// the GOOGLE_APPLICATION_CREDENTIALS environment variable (or ambient GCP
// credentials) to be set.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/oratio-labs/oratio/pkg/provider/stt"
)

const defaultLanguage = "en-US"

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithLanguage sets the default BCP-47 language code for recognition.
// Defaults to "en-US". A per-request language overrides it.
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithModel selects a recognition model (e.g. "latest_long",
// "latest_short"). Empty uses the API default.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// Provider implements stt.Provider using Google Cloud Speech-to-Text.
type Provider struct {
	client   *speech.Client
	language string
	model    string
}

// New creates a Google STT provider. The caller must call Close when the
// provider is no longer needed.
func New(ctx context.Context, opts ...Option) (*Provider, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("google stt: create client: %w", err)
	}
	p := &Provider{client: c, language: defaultLanguage}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the underlying gRPC connection.
func (p *Provider) Close() error { return p.client.Close() }

// Transcribe implements [stt.Provider]. Vocabulary hints become a speech
// context phrase list, which raises recognition probability for the
// passage's own words.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*stt.Transcript, error) {
	if len(req.Audio.PCM) == 0 {
		return nil, errors.New("google stt: empty recording")
	}
	sr := req.Audio.SampleRate
	if sr <= 0 {
		sr = 16000
	}
	lang := req.Language
	if lang == "" {
		lang = p.language
	}

	cfg := &speechpb.RecognitionConfig{
		Encoding:              speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:       int32(sr),
		AudioChannelCount:     int32(max(req.Audio.Channels, 1)),
		LanguageCode:          lang,
		EnableWordTimeOffsets: true,
		EnableWordConfidence:  true,
		Model:                 p.model,
	}
	if hints := stt.NormalizeHints(req.Hints); len(hints) > 0 {
		cfg.SpeechContexts = []*speechpb.SpeechContext{{Phrases: hints}}
	}

	resp, err := p.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: cfg,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: req.Audio.PCM},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("google stt: recognize: %w", err)
	}

	tr := &stt.Transcript{Duration: req.Audio.Duration()}
	var parts []string
	var confSum float64
	var confN int

	for _, res := range resp.Results {
		if len(res.Alternatives) == 0 {
			continue
		}
		alt := res.Alternatives[0]
		text := strings.TrimSpace(alt.Transcript)
		if text != "" {
			parts = append(parts, text)
		}
		confSum += float64(alt.Confidence)
		confN++

		for _, w := range alt.Words {
			tr.Words = append(tr.Words, stt.WordDetail{
				Word:       w.Word,
				Start:      w.StartTime.AsDuration(),
				End:        w.EndTime.AsDuration(),
				Confidence: float64(w.Confidence),
			})
		}
	}

	tr.Text = strings.Join(parts, " ")
	if confN > 0 {
		tr.Confidence = confSum / float64(confN)
	}
	return tr, nil
}
