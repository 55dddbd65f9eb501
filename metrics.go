package vecmmr

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// See the promcollector package for a Prometheus implementation.
type MetricsCollector interface {
	// RecordInsert is called after each row write.
	RecordInsert(duration time.Duration, err error)

	// RecordSearch is called after each search. diversified reports whether
	// the query carried mmr_lambda.
	RecordSearch(k int, diversified bool, duration time.Duration, err error)

	// RecordRerank is called after each MMR pass with the pool it chose from.
	RecordRerank(poolSize int, duration time.Duration)

	// RecordSnapshot is called after each snapshot save or load.
	// op is "save" or "load"; bytes is the encoded snapshot size.
	RecordSnapshot(op string, bytes int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)                {}
func (NoopMetricsCollector) RecordSearch(int, bool, time.Duration, error)     {}
func (NoopMetricsCollector) RecordRerank(int, time.Duration)                  {}
func (NoopMetricsCollector) RecordSnapshot(string, int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount      atomic.Int64
	InsertErrors     atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	DiversifiedCount atomic.Int64
	RerankCount      atomic.Int64
	RerankPoolTotal  atomic.Int64
	RerankTotalNanos atomic.Int64
	SnapshotSaves    atomic.Int64
	SnapshotLoads    atomic.Int64
	SnapshotErrors   atomic.Int64
	SnapshotBytes    atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(_ time.Duration, err error) {
	b.InsertCount.Add(1)
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(_ int, diversified bool, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if diversified {
		b.DiversifiedCount.Add(1)
	}
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordRerank implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRerank(poolSize int, duration time.Duration) {
	b.RerankCount.Add(1)
	b.RerankPoolTotal.Add(int64(poolSize))
	b.RerankTotalNanos.Add(duration.Nanoseconds())
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(op string, bytes int, _ time.Duration, err error) {
	if err != nil {
		b.SnapshotErrors.Add(1)
		return
	}
	switch op {
	case "save":
		b.SnapshotSaves.Add(1)
	case "load":
		b.SnapshotLoads.Add(1)
	}
	b.SnapshotBytes.Add(int64(bytes))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:      b.InsertCount.Load(),
		InsertErrors:     b.InsertErrors.Load(),
		SearchCount:      b.SearchCount.Load(),
		SearchErrors:     b.SearchErrors.Load(),
		SearchAvgNanos:   avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		DiversifiedCount: b.DiversifiedCount.Load(),
		RerankCount:      b.RerankCount.Load(),
		RerankAvgPool:    avg(b.RerankPoolTotal.Load(), b.RerankCount.Load()),
		RerankAvgNanos:   avg(b.RerankTotalNanos.Load(), b.RerankCount.Load()),
		SnapshotSaves:    b.SnapshotSaves.Load(),
		SnapshotLoads:    b.SnapshotLoads.Load(),
		SnapshotErrors:   b.SnapshotErrors.Load(),
		SnapshotBytes:    b.SnapshotBytes.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount      int64
	InsertErrors     int64
	SearchCount      int64
	SearchErrors     int64
	SearchAvgNanos   int64
	DiversifiedCount int64
	RerankCount      int64
	RerankAvgPool    int64
	RerankAvgNanos   int64
	SnapshotSaves    int64
	SnapshotLoads    int64
	SnapshotErrors   int64
	SnapshotBytes    int64
}
