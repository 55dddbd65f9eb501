// Package promcollector exports vecmmr metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	db, _ := vecmmr.New(vecmmr.WithMetricsCollector(promcollector.New(reg)))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package promcollector

import (
	"time"

	"github.com/hupe1980/vecmmr"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

var _ vecmmr.MetricsCollector = (*Collector)(nil)

// Options configures New.
type Options struct {
	// Namespace prefixes every metric name. Defaults to "vecmmr".
	Namespace string
	// ConstLabels are attached to every metric.
	ConstLabels prometheus.Labels
}

// Collector implements vecmmr.MetricsCollector on Prometheus counters and
// histograms.
type Collector struct {
	inserts       *prometheus.CounterVec
	insertLatency prometheus.Histogram

	searches      *prometheus.CounterVec
	searchLatency *prometheus.HistogramVec
	searchK       prometheus.Histogram

	rerankPool    prometheus.Histogram
	rerankLatency prometheus.Histogram

	snapshots       *prometheus.CounterVec
	snapshotBytes   *prometheus.CounterVec
	snapshotLatency *prometheus.HistogramVec
}

// New creates a Collector and registers its metrics with reg. A nil reg
// leaves the metrics unregistered.
func New(reg prometheus.Registerer, optFns ...func(o *Options)) *Collector {
	opts := Options{Namespace: "vecmmr"}
	for _, fn := range optFns {
		fn(&opts)
	}

	ns, cl := opts.Namespace, opts.ConstLabels
	latency := prometheus.ExponentialBuckets(1e-5, 4, 10) // 10us to ~2.6s

	c := &Collector{
		inserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "inserts_total", ConstLabels: cl,
			Help: "Total number of row writes",
		}, []string{"status"}),
		insertLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Name: "insert_duration_seconds", ConstLabels: cl,
			Help:    "Latency of row writes",
			Buckets: latency,
		}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "searches_total", ConstLabels: cl,
			Help: "Total number of searches",
		}, []string{"diversified", "status"}),
		searchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: "search_duration_seconds", ConstLabels: cl,
			Help:    "Latency of searches",
			Buckets: latency,
		}, []string{"diversified"}),
		searchK: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Name: "search_k", ConstLabels: cl,
			Help:    "Requested result count per search",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		rerankPool: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Name: "rerank_pool_size", ConstLabels: cl,
			Help:    "Candidates considered per MMR pass",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		rerankLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Name: "rerank_duration_seconds", ConstLabels: cl,
			Help:    "Latency of MMR passes",
			Buckets: latency,
		}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "snapshots_total", ConstLabels: cl,
			Help: "Total number of snapshot saves and loads",
		}, []string{"op", "status"}),
		snapshotBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "snapshot_bytes_total", ConstLabels: cl,
			Help: "Encoded snapshot bytes written or read",
		}, []string{"op"}),
		snapshotLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: "snapshot_duration_seconds", ConstLabels: cl,
			Help:    "Latency of snapshot saves and loads",
			Buckets: latency,
		}, []string{"op"}),
	}

	if reg != nil {
		reg.MustRegister(c.collectors()...)
	}
	return c
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.inserts, c.insertLatency,
		c.searches, c.searchLatency, c.searchK,
		c.rerankPool, c.rerankLatency,
		c.snapshots, c.snapshotBytes, c.snapshotLatency,
	}
}

// RecordInsert implements vecmmr.MetricsCollector.
func (c *Collector) RecordInsert(d time.Duration, err error) {
	c.inserts.WithLabelValues(status(err)).Inc()
	c.insertLatency.Observe(d.Seconds())
}

// RecordSearch implements vecmmr.MetricsCollector.
func (c *Collector) RecordSearch(k int, diversified bool, d time.Duration, err error) {
	div := boolLabel(diversified)
	c.searches.WithLabelValues(div, status(err)).Inc()
	c.searchLatency.WithLabelValues(div).Observe(d.Seconds())
	c.searchK.Observe(float64(k))
}

// RecordRerank implements vecmmr.MetricsCollector.
func (c *Collector) RecordRerank(poolSize int, d time.Duration) {
	c.rerankPool.Observe(float64(poolSize))
	c.rerankLatency.Observe(d.Seconds())
}

// RecordSnapshot implements vecmmr.MetricsCollector.
func (c *Collector) RecordSnapshot(op string, bytes int, d time.Duration, err error) {
	c.snapshots.WithLabelValues(op, status(err)).Inc()
	c.snapshotLatency.WithLabelValues(op).Observe(d.Seconds())
	if err == nil && bytes > 0 {
		c.snapshotBytes.WithLabelValues(op).Add(float64(bytes))
	}
}

func status(err error) string {
	if err != nil {
		return statusError
	}
	return statusOK
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
