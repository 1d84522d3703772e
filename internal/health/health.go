// Package health reports whether the assessment server can take readers.
//
// Liveness (/healthz) only says the process is serving HTTP. Readiness
// (/readyz) says a reading session could actually be run right now: the
// session store answers and, when one is configured, a speech backend is
// available. Deployments that run text-only simply register fewer probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds each readiness probe. A store that cannot answer a
// ping within this window is reported down rather than blocking /readyz.
const probeTimeout = 5 * time.Second

// Checker is a named readiness probe. Check returns nil when the dependency
// can serve an assessment and an error describing the failure otherwise. It
// must respect context cancellation.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// probeResult is the per-dependency entry in the /readyz response.
type probeResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "up" or "down"
	Error   string `json:"error,omitempty"`
	Elapsed string `json:"elapsed"`
}

// snapshot is the response body for both endpoints. Probes is empty on
// /healthz, which never runs any.
type snapshot struct {
	Status string        `json:"status"`
	Probes []probeResult `json:"probes,omitempty"`
}

// Handler serves the /healthz and /readyz endpoints. The probe list is fixed
// at construction, so the handler is safe for concurrent use.
type Handler struct {
	probes []Checker
}

// New creates a [Handler] that runs the given probes, in order, on each
// /readyz request.
func New(probes ...Checker) *Handler {
	p := make([]Checker, len(probes))
	copy(p, probes)
	return &Handler{probes: p}
}

// Healthz reports liveness. A process that reached this handler is alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, snapshot{Status: "alive"})
}

// Readyz runs every probe and reports "ready" with 200 only when all of
// them pass. Any failing probe degrades the whole response to 503 while
// still listing the probes that passed.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	snap := snapshot{Status: "ready"}

	for _, p := range h.probes {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		began := time.Now()
		err := p.Check(ctx)
		elapsed := time.Since(began)
		cancel()

		res := probeResult{
			Name:    p.Name,
			Status:  "up",
			Elapsed: elapsed.Round(time.Microsecond).String(),
		}
		if err != nil {
			res.Status = "down"
			res.Error = err.Error()
			snap.Status = "degraded"
		}
		snap.Probes = append(snap.Probes, res)
	}

	code := http.StatusOK
	if snap.Status != "ready" {
		code = http.StatusServiceUnavailable
	}
	respond(w, code, snap)
}

// Register adds both endpoints to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func respond(w http.ResponseWriter, code int, snap snapshot) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
