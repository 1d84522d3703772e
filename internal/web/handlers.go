package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/oratio-labs/oratio/internal/align"
	"github.com/oratio-labs/oratio/internal/assess"
	"github.com/oratio-labs/oratio/internal/audio"
	"github.com/oratio-labs/oratio/internal/grammar"
	"github.com/oratio-labs/oratio/internal/sessionstore"
)

// errorResponse is the uniform error body of every API endpoint.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeAssessError maps service sentinels onto HTTP status codes.
func writeAssessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assess.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, assess.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, assess.ErrNoProvider):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// spokenWord is the wire form of one transcribed word.
type spokenWord struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start_time"`
	End        float64 `json:"end_time"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status,omitempty"`
}

func toAlignWords(ws []spokenWord) []align.SpokenWord {
	if len(ws) == 0 {
		return nil
	}
	out := make([]align.SpokenWord, len(ws))
	for i, w := range ws {
		out[i] = align.SpokenWord{
			Text:       w.Word,
			Start:      time.Duration(w.Start * float64(time.Second)),
			End:        time.Duration(w.End * float64(time.Second)),
			Confidence: w.Confidence,
			Status:     align.ExternalStatus(w.Status),
		}
	}
	return out
}

type compareRequest struct {
	Passage    string       `json:"passage"`
	SpokenText string       `json:"spoken_text"`
	Words      []spokenWord `json:"word_details,omitempty"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.cfg.Assess.Compare(r.Context(), assess.CompareRequest{
		Passage:    req.Passage,
		SpokenText: req.SpokenText,
		Words:      toAlignWords(req.Words),
	})
	if err != nil {
		writeAssessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type analyzeRequest struct {
	Passage    string       `json:"passage"`
	SpokenText string       `json:"spoken_text"`
	Words      []spokenWord `json:"word_details,omitempty"`

	// DurationSeconds is the recording length; zero falls back to a
	// grade-typical pace estimate.
	DurationSeconds float64 `json:"duration_seconds"`
	Grade           int     `json:"grade_level"`

	Grammar   *grammar.Evaluation `json:"grammar_evaluation,omitempty"`
	SessionID string              `json:"session_id,omitempty"`
}

func (r analyzeRequest) toService() assess.ReportRequest {
	return assess.ReportRequest{
		Passage:    r.Passage,
		SpokenText: r.SpokenText,
		Words:      toAlignWords(r.Words),
		Duration:   time.Duration(r.DurationSeconds * float64(time.Second)),
		Grade:      r.Grade,
		Grammar:    r.Grammar,
		SessionID:  r.SessionID,
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sum, err := s.cfg.Assess.Analyze(r.Context(), req.toService())
	if err != nil {
		writeAssessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rep, err := s.cfg.Assess.Report(r.Context(), req.toService())
	if err != nil {
		writeAssessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleTranscribe accepts a WAV upload (multipart field "audio", or the
// raw body for audio/wav requests) and returns the normalised transcription.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	data, err := s.readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pcm, err := audio.DecodeWAV(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pcm = audio.StereoToMono(pcm)

	q := r.URL.Query()
	tr, err := s.cfg.Assess.Transcribe(r.Context(), pcm, q.Get("language"), q["hint"])
	if err != nil {
		writeAssessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (s *Server) readUpload(r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, s.cfg.MaxUploadBytes)

	ct := r.Header.Get("Content-Type")
	if ct == "audio/wav" || ct == "audio/x-wav" {
		return io.ReadAll(r.Body)
	}

	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		return nil, errors.New("web: expected a multipart audio upload or audio/wav body")
	}
	f, _, err := r.FormFile("audio")
	if err != nil {
		return nil, errors.New(`web: multipart field "audio" is missing`)
	}
	defer f.Close()
	return io.ReadAll(f)
}

type prepareRequest struct {
	Passage string `json:"passage"`
	Grade   int    `json:"grade_level"`
}

func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	var req prepareRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ls, err := s.cfg.Assess.Prepare(r.Context(), req.Passage, req.Grade)
	if err != nil {
		writeAssessError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ls)
}

type chunkRequest struct {
	Words []string `json:"words"`
}

func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	var req chunkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	prog, err := s.cfg.Assess.Process(r.Context(), r.PathValue("id"), req.Words)
	if err != nil {
		writeAssessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prog)
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	sum, err := s.cfg.Assess.Finalize(r.Context(), r.PathValue("id"))
	if err != nil {
		writeAssessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		writeError(w, http.StatusNotFound, "web: no session store configured")
		return
	}

	var opts []sessionstore.ListOpt
	q := r.URL.Query()
	if g := q.Get("grade"); g != "" {
		grade, err := strconv.Atoi(g)
		if err != nil {
			writeError(w, http.StatusBadRequest, "web: invalid grade filter")
			return
		}
		opts = append(opts, sessionstore.WithGrade(grade))
	}
	if l := q.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil {
			writeError(w, http.StatusBadRequest, "web: invalid limit")
			return
		}
		opts = append(opts, sessionstore.WithLimit(limit))
	}

	sessions, err := s.cfg.Store.ListSessions(r.Context(), opts...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		writeError(w, http.StatusNotFound, "web: no session store configured")
		return
	}
	id := r.PathValue("id")

	sess, err := s.cfg.Store.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "web: session not found: "+id)
		return
	}
	results, err := s.cfg.Store.Results(r.Context(), id, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": sess,
		"results": results,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		writeError(w, http.StatusNotFound, "web: no session store configured")
		return
	}
	if err := s.cfg.Store.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
