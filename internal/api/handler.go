package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/obsidianstack/geiger/internal/alerts"
	"github.com/obsidianstack/geiger/internal/ratestate"
	"github.com/obsidianstack/geiger/internal/source"
	"github.com/obsidianstack/geiger/pkg/types"
)

// DefaultPressTimeout bounds how long a button request waits for queue space.
const DefaultPressTimeout = 5 * time.Second

// Presser accepts button presses; *source.InputSource implements it.
type Presser interface {
	Press(ctx context.Context, k source.Key, p source.Press) error
}

// Screen encodes the last rendered frame; *render.Framebuffer implements it.
type Screen interface {
	PNG(w io.Writer) error
}

// AlertLister lists current alerts; *alerts.Engine implements it.
type AlertLister interface {
	Active() []*alerts.Alert
}

// DropCounter reports backlog drops; *source.Queue implements it.
type DropCounter interface {
	Dropped(k source.Kind) uint64
}

// Deps are the collaborators the handler reads from and writes to. Only
// Guard is required.
type Deps struct {
	Guard  *ratestate.Guard
	Input  Presser
	Screen Screen
	Alerts AlertLister
	Queue  DropCounter

	// State reports the dispatcher lifecycle, e.g. "running".
	State func() string

	PressTimeout time.Duration
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	d       Deps
	started time.Time
	mux     *http.ServeMux
}

// New creates a Handler and registers all routes.
func New(d Deps) http.Handler {
	if d.PressTimeout <= 0 {
		d.PressTimeout = DefaultPressTimeout
	}
	h := &Handler{d: d, started: time.Now(), mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/reading", h.reading)
	h.mux.HandleFunc("/api/v1/reset", h.reset)
	h.mux.HandleFunc("/api/v1/buttons", h.buttons)
	h.mux.HandleFunc("/api/v1/screen.png", h.screen)
	h.mux.HandleFunc("/api/v1/alerts", h.alerts)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// BuildReading snapshots the shared state into its wire form.
func BuildReading(g *ratestate.Guard) types.Reading {
	return g.Snapshot().Reading(types.FormatTime(time.Now()))
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := HealthResponse{
		State:   "running",
		UptimeS: time.Since(h.started).Seconds(),
		Dropped: map[string]uint64{},
	}
	if h.d.State != nil {
		resp.State = h.d.State()
	}
	if h.d.Queue != nil {
		for _, k := range []source.Kind{source.KindPulse, source.KindTick} {
			resp.Dropped[k.String()] = h.d.Queue.Dropped(k)
		}
	}
	if h.d.Alerts != nil {
		for _, a := range h.d.Alerts.Active() {
			if a.State == "firing" {
				resp.AlertCount++
			}
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// reading returns GET /api/v1/reading.
func (h *Handler) reading(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildReading(h.d.Guard))
}

// reset handles POST /api/v1/reset as a short Ok press.
func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.press(w, r, source.KeyOk, source.PressShort)
}

// buttons handles POST /api/v1/buttons.
func (h *Handler) buttons(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ButtonRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<10)).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid json body")
		return
	}
	key, err := source.ParseKey(req.Key)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Press == "" {
		req.Press = "short"
	}
	p, err := source.ParsePress(req.Press)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	h.press(w, r, key, p)
}

func (h *Handler) press(w http.ResponseWriter, r *http.Request, k source.Key, p source.Press) {
	if h.d.Input == nil {
		jsonErr(w, http.StatusServiceUnavailable, "input not available")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.d.PressTimeout)
	defer cancel()

	err := h.d.Input.Press(ctx, k, p)
	switch {
	case err == nil:
	case errors.Is(err, source.ErrInputClosed):
		jsonErr(w, http.StatusServiceUnavailable, "counter is shutting down")
		return
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		jsonErr(w, http.StatusServiceUnavailable, "event queue busy")
		return
	default:
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	ev := source.Button(k, p)
	slog.Info("api: button press", "event", ev.String(), "remote", r.RemoteAddr)
	jsonResp(w, http.StatusAccepted, ButtonResponse{Accepted: true, Event: ev.String()})
}

// screen returns GET /api/v1/screen.png.
func (h *Handler) screen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.d.Screen == nil {
		jsonErr(w, http.StatusNotFound, "no framebuffer")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.d.Screen.PNG(w); err != nil {
		slog.Warn("api: encode screen", "err", err)
	}
}

// alerts returns GET /api/v1/alerts.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	resp := AlertsResponse{Alerts: []*alerts.Alert{}}
	if h.d.Alerts != nil {
		resp.Alerts = append(resp.Alerts, h.d.Alerts.Active()...)
	}
	jsonResp(w, http.StatusOK, resp)
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
