package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obsidianstack/geiger/internal/ratestate"
	"github.com/obsidianstack/geiger/internal/source"
)

const namespace = "geiger"

// DropCounter reports backlog drops; *source.Queue implements it.
type DropCounter interface {
	Dropped(k source.Kind) uint64
}

// Metrics owns a private registry so several instances can coexist in
// tests.
type Metrics struct {
	reg *prometheus.Registry

	events *prometheus.CounterVec
	ticks  prometheus.Counter
	cps    prometheus.Gauge
	cpm    prometheus.Gauge
	scale  prometheus.Gauge
}

// New registers all collectors. Drop counts are read from q at scrape time.
func New(q DropCounter) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events handled by the dispatcher, by kind.",
		}, []string{"kind"}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Sampling ticks folded into the history.",
		}),
		cps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "counts_per_second",
			Help:      "Pulses counted in the last completed second.",
		}),
		cpm: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "counts_per_minute",
			Help:      "Pulses counted over the last 60 seconds.",
		}),
		scale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "display_scale",
			Help:      "Vertical pixels per count on the histogram.",
		}),
	}
	m.scale.Set(ratestate.DefaultScale)

	m.reg.MustRegister(m.events, m.ticks, m.cps, m.cpm, m.scale)
	for _, k := range []source.Kind{source.KindPulse, source.KindTick, source.KindButton} {
		kind := k
		m.reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "events_dropped_total",
			Help:        "Events discarded because the queue was full, by kind.",
			ConstLabels: prometheus.Labels{"kind": kind.String()},
		}, func() float64 { return float64(q.Dropped(kind)) }))
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveEvent counts one dispatched event.
func (m *Metrics) ObserveEvent(ev source.Event) {
	m.events.WithLabelValues(ev.Kind.String()).Inc()
}

// ObserveTick records the rates produced by a tick.
func (m *Metrics) ObserveTick(snap ratestate.Snapshot) {
	m.ticks.Inc()
	m.setRates(snap)
}

// ObserveReset brings the rate gauges in line with cleared counters.
func (m *Metrics) ObserveReset(snap ratestate.Snapshot) {
	m.setRates(snap)
}

func (m *Metrics) setRates(snap ratestate.Snapshot) {
	m.cps.Set(float64(snap.CPS))
	m.cpm.Set(float64(snap.CPM))
	m.scale.Set(snap.Scale)
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
}
