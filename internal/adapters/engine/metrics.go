package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's prometheus instruments. A nil *Metrics is valid
// and turns every observation into a no-op, so callers that do not scrape
// metrics pay nothing.
type Metrics struct {
	workflowsStarted   prometheus.Counter
	workflowsCompleted prometheus.Counter
	workflowsFailed    prometheus.Counter
	workflowsCancelled prometheus.Counter

	nodeAttempts  *prometheus.CounterVec
	nodeRetries   prometheus.Counter
	nodesSkipped  prometheus.Counter
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	runningNodes  prometheus.Gauge
	nodeDurations prometheus.Histogram
}

// NewMetrics registers the engine instruments on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		workflowsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loom", Name: "workflows_started_total",
			Help: "Workflow executions started.",
		}),
		workflowsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loom", Name: "workflows_completed_total",
			Help: "Workflow executions that finished with status completed.",
		}),
		workflowsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loom", Name: "workflows_failed_total",
			Help: "Workflow executions that finished with status failed.",
		}),
		workflowsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loom", Name: "workflows_cancelled_total",
			Help: "Workflow executions cancelled by the caller.",
		}),
		nodeAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loom", Name: "node_attempts_total",
			Help: "Node execution attempts by terminal status.",
		}, []string{"status"}),
		nodeRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loom", Name: "node_retries_total",
			Help: "Node attempts re-enqueued after failure or timeout.",
		}),
		nodesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loom", Name: "nodes_skipped_total",
			Help: "Nodes skipped because an upstream dependency did not succeed.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loom", Name: "cache_hits_total",
			Help: "Node invocations short-circuited by the result cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loom", Name: "cache_misses_total",
			Help: "Cache lookups that required executing the node.",
		}),
		runningNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "loom", Name: "running_nodes",
			Help: "Node invocations currently in flight.",
		}),
		nodeDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "loom", Name: "node_duration_seconds",
			Help:    "Wall-clock duration of node attempts.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}

	reg.MustRegister(
		m.workflowsStarted, m.workflowsCompleted, m.workflowsFailed, m.workflowsCancelled,
		m.nodeAttempts, m.nodeRetries, m.nodesSkipped,
		m.cacheHits, m.cacheMisses, m.runningNodes, m.nodeDurations,
	)
	return m
}

func (m *Metrics) workflowStarted() {
	if m != nil {
		m.workflowsStarted.Inc()
	}
}

func (m *Metrics) workflowFinished(status string) {
	if m == nil {
		return
	}
	switch status {
	case "completed":
		m.workflowsCompleted.Inc()
	case "failed":
		m.workflowsFailed.Inc()
	case "cancelled":
		m.workflowsCancelled.Inc()
	}
}

func (m *Metrics) nodeAttempt(status string, seconds float64) {
	if m == nil {
		return
	}
	m.nodeAttempts.WithLabelValues(status).Inc()
	m.nodeDurations.Observe(seconds)
}

func (m *Metrics) nodeRetried() {
	if m != nil {
		m.nodeRetries.Inc()
	}
}

func (m *Metrics) nodeSkipped() {
	if m != nil {
		m.nodesSkipped.Inc()
	}
}

func (m *Metrics) cacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) cacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) nodeStarted() {
	if m != nil {
		m.runningNodes.Inc()
	}
}

func (m *Metrics) nodeFinished() {
	if m != nil {
		m.runningNodes.Dec()
	}
}
