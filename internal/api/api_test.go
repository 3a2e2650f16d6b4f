package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/obsidianstack/geiger/internal/alerts"
	"github.com/obsidianstack/geiger/internal/api"
	"github.com/obsidianstack/geiger/internal/config"
	"github.com/obsidianstack/geiger/internal/ratestate"
	"github.com/obsidianstack/geiger/internal/render"
	"github.com/obsidianstack/geiger/internal/source"
)

// --- test helpers -----------------------------------------------------------

type fixture struct {
	guard *ratestate.Guard
	queue *source.Queue
	input *source.InputSource
	fb    *render.Framebuffer
	alert *alerts.Engine
	h     http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		guard: ratestate.NewGuard(),
		queue: source.NewQueue(source.QueueCapacity),
		fb:    render.NewFramebuffer(),
		alert: alerts.New(config.AlertsConfig{Rules: []config.AlertRule{
			{Name: "busy", Condition: "cps > 2", Severity: "critical"},
		}}),
	}
	f.input = source.NewInputSource(f.queue)
	f.h = api.New(api.Deps{
		Guard:        f.guard,
		Input:        f.input,
		Screen:       f.fb,
		Alerts:       f.alert,
		Queue:        f.queue,
		State:        func() string { return "running" },
		PressTimeout: 50 * time.Millisecond,
	})
	return f
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- /api/v1/health ---------------------------------------------------------

func TestHealth(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < source.QueueCapacity+2; i++ {
		f.queue.Enqueue(context.Background(), source.Pulse(), source.DropWhenFull) //nolint:errcheck
	}

	rr := get(t, f.h, "/api/v1/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp api.HealthResponse
	decode(t, rr, &resp)
	if resp.State != "running" {
		t.Errorf("state: got %q, want running", resp.State)
	}
	if resp.Dropped["pulse"] != 2 {
		t.Errorf("dropped[pulse]: got %d, want 2", resp.Dropped["pulse"])
	}
	if resp.Dropped["tick"] != 0 {
		t.Errorf("dropped[tick]: got %d, want 0", resp.Dropped["tick"])
	}
}

func TestHealth_CountsFiringAlerts(t *testing.T) {
	f := newFixture(t)
	f.alert.Evaluate(api.BuildReading(f.guard))
	f.guard.With(func(st *ratestate.State) { st.CPS = 5 })
	f.alert.Evaluate(api.BuildReading(f.guard))

	var resp api.HealthResponse
	decode(t, get(t, f.h, "/api/v1/health"), &resp)
	if resp.AlertCount != 1 {
		t.Errorf("alert_count: got %d, want 1", resp.AlertCount)
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	if rr := post(t, f.h, "/api/v1/health", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- /api/v1/reading --------------------------------------------------------

func TestReading(t *testing.T) {
	f := newFixture(t)
	f.guard.With(func(st *ratestate.State) {
		st.History.Push(4)
		st.History.Push(7)
		st.CPS = 7
		st.CPM = 11
		st.Accumulator = 2
		st.Scale = 7
	})

	rr := get(t, f.h, "/api/v1/reading")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp map[string]interface{}
	decode(t, rr, &resp)

	if resp["cps"].(float64) != 7 || resp["cpm"].(float64) != 11 || resp["pending"].(float64) != 2 {
		t.Errorf("rates: got %v", resp)
	}
	hist := resp["history"].([]interface{})
	if len(hist) != ratestate.HistoryLen {
		t.Fatalf("history len: got %d, want %d", len(hist), ratestate.HistoryLen)
	}
	if hist[0].(float64) != 7 || hist[1].(float64) != 4 {
		t.Errorf("history not newest first: %v", hist[:3])
	}
	if _, err := time.Parse(time.RFC3339, resp["generated_at"].(string)); err != nil {
		t.Errorf("generated_at: %v", err)
	}
}

// --- /api/v1/reset and /api/v1/buttons --------------------------------------

func TestReset_EnqueuesOkShort(t *testing.T) {
	f := newFixture(t)
	rr := post(t, f.h, "/api/v1/reset", "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202 (%s)", rr.Code, rr.Body.String())
	}
	if got := <-f.queue.Events(); got != source.Button(source.KeyOk, source.PressShort) {
		t.Errorf("event: got %v", got)
	}
}

func TestReset_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	if rr := get(t, f.h, "/api/v1/reset"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

func TestButtons(t *testing.T) {
	cases := []struct {
		name string
		body string
		code int
		want source.Event
	}{
		{"back", `{"key":"back"}`, http.StatusAccepted, source.Button(source.KeyBack, source.PressShort)},
		{"ok long", `{"key":"ok","press":"long"}`, http.StatusAccepted, source.Button(source.KeyOk, source.PressLong)},
		{"unknown key", `{"key":"menu"}`, http.StatusBadRequest, source.Event{}},
		{"unknown press", `{"key":"ok","press":"double"}`, http.StatusBadRequest, source.Event{}},
		{"bad json", `{`, http.StatusBadRequest, source.Event{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			rr := post(t, f.h, "/api/v1/buttons", tc.body)
			if rr.Code != tc.code {
				t.Fatalf("status: got %d, want %d (%s)", rr.Code, tc.code, rr.Body.String())
			}
			if tc.code != http.StatusAccepted {
				if f.queue.Len() != 0 {
					t.Error("rejected request enqueued an event")
				}
				return
			}
			var resp api.ButtonResponse
			decode(t, rr, &resp)
			if !resp.Accepted || resp.Event != tc.want.String() {
				t.Errorf("response: got %+v", resp)
			}
			if got := <-f.queue.Events(); got != tc.want {
				t.Errorf("event: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestButtons_QueueBusy(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < source.QueueCapacity; i++ {
		f.queue.Enqueue(context.Background(), source.Tick(), source.DropWhenFull) //nolint:errcheck
	}
	rr := post(t, f.h, "/api/v1/buttons", `{"key":"ok"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", rr.Code)
	}
	if f.queue.Dropped(source.KindButton) != 0 {
		t.Error("button counted as dropped")
	}
}

func TestButtons_InputClosed(t *testing.T) {
	f := newFixture(t)
	f.input.Stop()
	rr := post(t, f.h, "/api/v1/reset", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", rr.Code)
	}
}

// --- /api/v1/screen.png -----------------------------------------------------

func TestScreen(t *testing.T) {
	f := newFixture(t)
	if err := render.Draw(f.fb, f.guard.Snapshot()); err != nil {
		t.Fatal(err)
	}
	rr := get(t, f.h, "/api/v1/screen.png")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content-type: got %q", ct)
	}
	img, err := png.Decode(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() != 128 || img.Bounds().Dy() != 64 {
		t.Errorf("bounds: got %v", img.Bounds())
	}
}

func TestScreen_NoFramebuffer(t *testing.T) {
	h := api.New(api.Deps{Guard: ratestate.NewGuard()})
	if rr := get(t, h, "/api/v1/screen.png"); rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

// --- /api/v1/alerts ---------------------------------------------------------

func TestAlerts_Empty(t *testing.T) {
	h := api.New(api.Deps{Guard: ratestate.NewGuard()})
	rr := get(t, h, "/api/v1/alerts")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"alerts":[]`) {
		t.Errorf("body: got %s, want empty alerts array", rr.Body.String())
	}
}

func TestAlerts_Firing(t *testing.T) {
	f := newFixture(t)
	f.guard.With(func(st *ratestate.State) { st.CPS = 9 })
	f.alert.Evaluate(api.BuildReading(f.guard))

	var resp api.AlertsResponse
	decode(t, get(t, f.h, "/api/v1/alerts"), &resp)
	if len(resp.Alerts) != 1 || resp.Alerts[0].RuleName != "busy" || resp.Alerts[0].Value != 9 {
		t.Errorf("alerts: got %+v", resp.Alerts)
	}
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	if rr := get(t, f.h, "/api/v1/pipelines"); rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}
