package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/oratio-labs/oratio/internal/assess"
	"github.com/oratio-labs/oratio/internal/audio"
	"github.com/oratio-labs/oratio/internal/sessionstore"
	"github.com/oratio-labs/oratio/internal/web"
	"github.com/oratio-labs/oratio/pkg/provider/stt"
	"github.com/oratio-labs/oratio/pkg/provider/stt/mock"
)

type testEnv struct {
	store    *sessionstore.MemStore
	provider *mock.Provider
	ts       *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := sessionstore.NewMemStore()
	provider := &mock.Provider{}
	svc := assess.New(assess.Config{Provider: provider, Store: store})

	srv, err := web.New(web.Config{Assess: svc, Store: store})
	if err != nil {
		t.Fatalf("web.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{store: store, provider: provider, ts: ts}
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(e.ts.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestCompareEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/compare", map[string]any{
		"passage":     "The quick brown fox",
		"spoken_text": "the quick brown fox",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if got := body["accuracy_percentage"].(float64); got != 100 {
		t.Errorf("accuracy = %v, want 100", got)
	}
}

func TestCompareEndpoint_WordStatusHonored(t *testing.T) {
	env := newTestEnv(t)

	// "dogs" vs "dog" would score as mispronounced by similarity alone; a
	// backend's own "substituted" verdict on the wire wins.
	resp := env.postJSON(t, "/api/compare", map[string]any{
		"passage":     "dog",
		"spoken_text": "dogs",
		"word_details": []map[string]any{
			{"word": "dogs", "start_time": 0, "end_time": 0.4, "confidence": 0.6, "status": "substituted"},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	stats := body["statistics"].(map[string]any)
	if got := stats["substituted"].(float64); got != 1 {
		t.Errorf("substituted = %v, want 1", got)
	}
	if got := stats["mispronounced"].(float64); got != 0 {
		t.Errorf("mispronounced = %v, want 0", got)
	}
}

func TestCompareEndpoint_EmptyPassage(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/compare", map[string]any{
		"passage":     "",
		"spoken_text": "words",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCompareEndpoint_MalformedBody(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.ts.URL+"/api/compare", "application/json",
		strings.NewReader(`{"passage": `))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/analyze", map[string]any{
		"passage":          "The cat sat on the mat",
		"spoken_text":      "the cat sat on the mat",
		"duration_seconds": 6,
		"grade_level":      3,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if _, ok := body["overall_rating"]; !ok {
		t.Errorf("response missing overall_rating: %v", body)
	}
}

func TestReportEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/report", map[string]any{
		"passage":          "The cat sat on the mat",
		"spoken_text":      "The cat sat on the mat",
		"duration_seconds": 6,
		"grade_level":      3,
		"grammar_evaluation": map[string]any{
			"score":             80,
			"proficiency_level": "Proficient",
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if got := body["accuracy_percentage"].(float64); got != 100 {
		t.Errorf("accuracy = %v, want 100", got)
	}
	if _, ok := body["combined_literacy_score"]; !ok {
		t.Errorf("response missing combined_literacy_score: %v", body)
	}
}

func TestTranscribeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.provider.Result = &stt.Transcript{Text: "hello reader", Duration: time.Second}

	wav, err := audio.EncodeWAV(audio.PCM{
		Data:       make([]byte, 3200),
		SampleRate: 16000,
		Channels:   1,
	})
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	resp, err := http.Post(env.ts.URL+"/api/transcribe?language=en-GB&hint=reader",
		"audio/wav", bytes.NewReader(wav))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["text"] != "hello reader" {
		t.Errorf("text = %v", body["text"])
	}

	reqs := env.provider.Requests()
	if len(reqs) != 1 {
		t.Fatalf("got %d provider requests, want 1", len(reqs))
	}
	if reqs[0].Language != "en-GB" {
		t.Errorf("language = %q, want en-GB", reqs[0].Language)
	}
	if len(reqs[0].Hints) != 1 || reqs[0].Hints[0] != "reader" {
		t.Errorf("hints = %v", reqs[0].Hints)
	}
}

func TestTranscribeEndpoint_NotAudio(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.ts.URL+"/api/transcribe", "audio/wav",
		strings.NewReader("definitely not RIFF"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTrackingLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/tracking", map[string]any{
		"passage":     "The quick brown fox",
		"grade_level": 3,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("prepare status = %d, want 201", resp.StatusCode)
	}
	prep := decode[map[string]any](t, resp)
	id, _ := prep["session_id"].(string)
	if id == "" {
		t.Fatalf("prepare response carries no session_id: %v", prep)
	}

	resp = env.postJSON(t, "/api/tracking/"+id+"/chunks", map[string]any{
		"words": []string{"the", "quick"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chunk status = %d, want 200", resp.StatusCode)
	}
	prog := decode[map[string]any](t, resp)
	if got := prog["cursor"].(float64); got != 2 {
		t.Errorf("cursor = %v, want 2", got)
	}

	resp = env.postJSON(t, "/api/tracking/"+id+"/finalize", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("finalize status = %d, want 200", resp.StatusCode)
	}
	sum := decode[map[string]any](t, resp)
	if sum["completion_level"] != "Partial" {
		t.Errorf("completion_level = %v, want Partial", sum["completion_level"])
	}
}

func TestTrackingEndpoint_UnknownSession(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/tracking/nope/chunks", map[string]any{
		"words": []string{"hi"},
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSessionEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.store.PutSession(ctx, sessionstore.Session{
		ID: "s1", Passage: "some passage", Grade: 4,
	})
	if err != nil {
		t.Fatalf("PutSession: %v", err)
	}

	resp, err := http.Get(env.ts.URL + "/api/sessions?grade=4")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	list := decode[map[string]any](t, resp)
	if got := list["count"].(float64); got != 1 {
		t.Errorf("count = %v, want 1", got)
	}

	resp2, err := http.Get(env.ts.URL + "/api/sessions/s1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp2.StatusCode)
	}

	req, err := http.NewRequest(http.MethodDelete, env.ts.URL+"/api/sessions/s1", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp3, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp3.StatusCode)
	}

	resp4, err := http.Get(env.ts.URL + "/api/sessions/s1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp4.Body.Close()
	if resp4.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", resp4.StatusCode)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(env.ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestLiveWebsocket(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp := env.postJSON(t, "/api/tracking", map[string]any{
		"passage": "The quick brown fox",
	})
	prep := decode[map[string]any](t, resp)
	id := prep["session_id"].(string)

	conn, _, err := websocket.Dial(ctx, env.ts.URL+"/api/tracking/"+id+"/live", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "test done")

	send := func(v any) {
		t.Helper()
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal frame: %v", err)
		}
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}
	recv := func() map[string]any {
		t.Helper()
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		var v map[string]any
		if err := json.Unmarshal(data, &v); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		return v
	}

	send(map[string]any{"type": "chunk", "words": []string{"the", "quick", "brown", "fox"}})
	reply := recv()
	if reply["type"] != "progress" {
		t.Fatalf("reply type = %v, want progress", reply["type"])
	}
	prog := reply["progress"].(map[string]any)
	if got := prog["cursor"].(float64); got != 4 {
		t.Errorf("cursor = %v, want 4", got)
	}

	send(map[string]any{"type": "finalize"})
	reply = recv()
	if reply["type"] != "summary" {
		t.Fatalf("reply type = %v, want summary", reply["type"])
	}
	sum := reply["summary"].(map[string]any)
	if sum["fluency_level"] != "Excellent" {
		t.Errorf("fluency_level = %v, want Excellent", sum["fluency_level"])
	}
}

func TestLiveWebsocket_UnknownSession(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, env.ts.URL+"/api/tracking/nope/live", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "test done")

	data, _ := json.Marshal(map[string]any{"type": "chunk", "words": []string{"hi"}})
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	_, payload, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var reply map[string]any
	if err := json.Unmarshal(payload, &reply); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if reply["type"] != "error" {
		t.Errorf("reply type = %v, want error", reply["type"])
	}
}
