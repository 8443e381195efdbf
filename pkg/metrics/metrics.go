package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "faultstat"
	kindLabel = "kind"
)

// TickStats is what one tick contributes to the exported metrics.
type TickStats struct {
	Sampled    int
	Died       int
	Major      int64
	Minor      int64
	DeltaMajor int64
	DeltaMinor int64
	SwapKB     int64
	PoolSize   int
	PoolFree   int
	PoolFresh  int
	Traced     uint64
	Duration   time.Duration
}

// Recorder keeps self-instrumentation in a private registry and writes it
// to a node-exporter textfile. A nil *Recorder discards everything.
type Recorder struct {
	reg  *prometheus.Registry
	path string

	ticks        prometheus.Counter
	died         prometheus.Counter
	traced       prometheus.Counter
	sampled      prometheus.Gauge
	faults       *prometheus.GaugeVec
	deltas       *prometheus.GaugeVec
	swap         prometheus.Gauge
	poolRecords  *prometheus.GaugeVec
	poolFresh    prometheus.Gauge
	tickDuration prometheus.Histogram
}

// New returns a Recorder that writes to path on every Flush.
func New(path string) *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg:  reg,
		path: path,
		ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Number of completed sampling ticks",
		}),
		died: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processes_died_total",
			Help:      "Processes that disappeared between two ticks",
		}),
		traced: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traced_faults_total",
			Help:      "Page fault events counted by the kernel probe",
		}),
		sampled: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "processes_sampled",
			Help:      "Processes sampled in the last tick",
		}),
		faults: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "faults",
			Help:      "Cumulative page faults summed over live processes",
		}, []string{kindLabel}),
		deltas: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fault_delta",
			Help:      "Change in page faults over the last tick",
		}, []string{kindLabel}),
		swap: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "swap_bytes",
			Help:      "Swap used by sampled processes",
		}),
		poolRecords: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_records",
			Help:      "Fault records owned by the pool",
		}, []string{"state"}),
		poolFresh: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_fresh_allocations",
			Help:      "Records allocated because the free list was empty",
		}),
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent scanning and rendering one tick",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}
}

// Observe records one tick.
func (r *Recorder) Observe(s TickStats) {
	if r == nil {
		return
	}
	r.ticks.Inc()
	r.died.Add(float64(s.Died))
	r.traced.Add(float64(s.Traced))
	r.sampled.Set(float64(s.Sampled))
	r.faults.WithLabelValues("major").Set(float64(s.Major))
	r.faults.WithLabelValues("minor").Set(float64(s.Minor))
	r.deltas.WithLabelValues("major").Set(float64(s.DeltaMajor))
	r.deltas.WithLabelValues("minor").Set(float64(s.DeltaMinor))
	r.swap.Set(float64(s.SwapKB) * 1024)
	r.poolRecords.WithLabelValues("free").Set(float64(s.PoolFree))
	r.poolRecords.WithLabelValues("used").Set(float64(s.PoolSize - s.PoolFree))
	r.poolFresh.Set(float64(s.PoolFresh))
	r.tickDuration.Observe(s.Duration.Seconds())
}

// Flush writes the registry to the textfile atomically.
func (r *Recorder) Flush() error {
	if r == nil || r.path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(r.path, r.reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}
