// Package whisper provides whisper.cpp-backed STT providers.
//
// Two backends exist:
//
//   - [ServerProvider] talks to a running whisper-server binary over its
//     REST API (POST /inference), uploading each recording as a WAV file.
//     It returns flat text only.
//   - [NativeProvider] runs inference in-process through the whisper.cpp CGO
//     bindings. The whisper.cpp static library (libwhisper.a) and headers
//     must be available at link time via LIBRARY_PATH and C_INCLUDE_PATH.
//     It returns per-word timing interpolated from segment boundaries.
//
// Usage:
//
//	p, err := whisper.NewServer("http://localhost:8080", whisper.WithLanguage("en"))
//	tr, err := p.Transcribe(ctx, stt.Request{Audio: rec})
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/oratio-labs/oratio/internal/audio"
	"github.com/oratio-labs/oratio/pkg/provider/stt"
)

const (
	defaultLanguage   = "en"
	defaultSampleRate = 16000

	// silenceRMSThreshold is the root-mean-square energy (in 16-bit PCM
	// units, max 32767) below which a whole recording is treated as silent
	// and skipped without calling the engine.
	silenceRMSThreshold = 300.0
)

// Compile-time assertion that ServerProvider implements stt.Provider.
var _ stt.Provider = (*ServerProvider)(nil)

// ServerOption is a functional option for configuring a ServerProvider.
type ServerOption func(*ServerProvider)

// WithModel sets the model identifier forwarded to the whisper.cpp server
// (e.g. "base.en", "small"). When empty the server uses whichever model it
// was started with — this is the default.
func WithModel(model string) ServerOption {
	return func(p *ServerProvider) { p.model = model }
}

// WithLanguage sets the language code sent to the whisper.cpp server
// (e.g. "en", "de"). Defaults to "en".
func WithLanguage(lang string) ServerOption {
	return func(p *ServerProvider) { p.language = lang }
}

// WithHTTPTimeout sets the per-request timeout for inference calls.
// Defaults to 60 s; long recordings on slow hardware may need more.
func WithHTTPTimeout(d time.Duration) ServerOption {
	return func(p *ServerProvider) { p.httpClient.Timeout = d }
}

// ServerProvider implements stt.Provider backed by a whisper.cpp HTTP
// server. Safe for concurrent use; each Transcribe call is one independent
// inference request.
type ServerProvider struct {
	serverURL  string
	model      string
	language   string
	httpClient *http.Client
}

// NewServer creates a ServerProvider that connects to the whisper.cpp HTTP
// server at serverURL (e.g. "http://localhost:8080").
func NewServer(serverURL string, opts ...ServerOption) (*ServerProvider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &ServerProvider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe implements [stt.Provider]. The recording is downmixed to mono,
// wrapped as WAV, and POSTed to the /inference endpoint as
// multipart/form-data. Silent recordings return an empty transcript without
// touching the server.
func (p *ServerProvider) Transcribe(ctx context.Context, req stt.Request) (*stt.Transcript, error) {
	pcm, dur, err := preparePCM(req.Audio)
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	if audio.RMS(pcm.Data) < silenceRMSThreshold {
		return &stt.Transcript{Duration: dur}, nil
	}

	wavData, err := audio.EncodeWAV(pcm)
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}

	lang := baseLanguage(req.Language)
	if lang == "" {
		lang = p.language
	}

	text, err := p.infer(ctx, wavData, lang)
	if err != nil {
		return nil, err
	}
	return &stt.Transcript{
		Text:     strings.TrimSpace(text),
		Duration: dur,
	}, nil
}

// infer POSTs the WAV payload to the whisper.cpp /inference endpoint and
// returns the transcribed text.
func (p *ServerProvider) infer(ctx context.Context, wavData []byte, language string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wavData); err != nil {
		return "", fmt.Errorf("whisper: write wav data: %w", err)
	}
	if language != "" {
		if err := mw.WriteField("language", language); err != nil {
			return "", fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if p.model != "" {
		if err := mw.WriteField("model", p.model); err != nil {
			return "", fmt.Errorf("whisper: write model field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	endpoint := p.serverURL + "/inference"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whisper: read response body: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("whisper: parse JSON response: %w", err)
	}
	return result.Text, nil
}

// preparePCM validates the recording, downmixes it to mono, and returns the
// mono PCM plus the original duration.
func preparePCM(a stt.Audio) (audio.PCM, time.Duration, error) {
	if len(a.PCM) == 0 {
		return audio.PCM{}, 0, errors.New("empty recording")
	}
	sr := a.SampleRate
	if sr <= 0 {
		sr = defaultSampleRate
	}
	ch := a.Channels
	if ch <= 0 {
		ch = 1
	}
	pcm := audio.PCM{Data: a.PCM, SampleRate: sr, Channels: ch}
	dur := pcm.Duration()
	return audio.StereoToMono(pcm), dur, nil
}

// baseLanguage reduces a BCP-47 tag to its base subtag: whisper.cpp wants
// "en", not "en-US".
func baseLanguage(tag string) string {
	if i := strings.IndexByte(tag, '-'); i >= 0 {
		return strings.ToLower(tag[:i])
	}
	return strings.ToLower(tag)
}
