package pool

import "github.com/prometheus/client_golang/prometheus"

const (
	sourceReused    = "reused"
	sourceCreated   = "created"
	sourceUntracked = "untracked"

	resultPooled    = "pooled"
	resultDestroyed = "destroyed"
	resultDropped   = "dropped"

	resultOK     = "ok"
	resultFailed = "failed"
)

// Metrics captures observability counters for spawn and recycle operations. Methods are nil-safe
// and a single instance may be shared by managers on different goroutines.
type Metrics struct {
	spawnTotal         *prometheus.CounterVec
	recycleTotal       *prometheus.CounterVec
	destroyTotal       *prometheus.CounterVec
	prewarmTotal       prometheus.Counter
	doubleRecycleTotal prometheus.Counter
}

// NewMetrics constructs metrics instruments and registers them with the provided registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		spawnTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{ //nolint:exhaustruct
				Namespace: "spawnpool",
				Subsystem: "pool",
				Name:      "spawn_total",
				Help:      "Total number of spawned instances, labeled by where the instance came from.",
			},
			[]string{"source"},
		),
		recycleTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{ //nolint:exhaustruct
				Namespace: "spawnpool",
				Subsystem: "pool",
				Name:      "recycle_total",
				Help:      "Total number of recycle calls, labeled by outcome.",
			},
			[]string{"result"},
		),
		destroyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{ //nolint:exhaustruct
				Namespace: "spawnpool",
				Subsystem: "pool",
				Name:      "destroy_total",
				Help:      "Total number of host destroy calls, labeled by outcome.",
			},
			[]string{"result"},
		),
		prewarmTotal: prometheus.NewCounter(
			prometheus.CounterOpts{ //nolint:exhaustruct
				Namespace: "spawnpool",
				Subsystem: "pool",
				Name:      "prewarm_total",
				Help:      "Total number of instances created eagerly by CreatePool.",
			},
		),
		doubleRecycleTotal: prometheus.NewCounter(
			prometheus.CounterOpts{ //nolint:exhaustruct
				Namespace: "spawnpool",
				Subsystem: "pool",
				Name:      "double_recycle_total",
				Help:      "Total number of recycle calls for instances already sitting in a pool.",
			},
		),
	}
	reg.MustRegister(m.spawnTotal, m.recycleTotal, m.destroyTotal, m.prewarmTotal, m.doubleRecycleTotal)
	return m
}

func (m *Metrics) incSpawn(source string) {
	if m == nil {
		return
	}
	m.spawnTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) incRecycle(result string) {
	if m == nil {
		return
	}
	m.recycleTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) incDestroy(result string) {
	if m == nil {
		return
	}
	m.destroyTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) incPrewarm() {
	if m == nil {
		return
	}
	m.prewarmTotal.Inc()
}

func (m *Metrics) incDoubleRecycle() {
	if m == nil {
		return
	}
	m.doubleRecycleTotal.Inc()
}
