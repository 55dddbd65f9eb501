package vecmmr

import (
	"log/slog"

	"github.com/hupe1980/vecmmr/blobstore"
	"github.com/hupe1980/vecmmr/codec"
	"github.com/hupe1980/vecmmr/resource"
	"github.com/hupe1980/vecmmr/retriever"
	"github.com/hupe1980/vecmmr/snapshot"
)

type options struct {
	retriever        retriever.Config
	metricsCollector MetricsCollector
	logger           *Logger
	blobStore        blobstore.BlobStore
	codec            codec.Codec
	compression      snapshot.Compression
	keepSnapshots    int
	resources        *resource.Controller
	batchConcurrency int
}

// Option configures a DB.
type Option func(*options)

// WithOverfetchFactor sets the pool multiplier used by diversified queries
// over row sets larger than the exhaustive threshold.
//
// MMR only chooses among the pooled rows, so a larger factor trades query
// time for diversity over a wider window.
func WithOverfetchFactor(factor int) Option {
	return func(o *options) {
		o.retriever.OverfetchFactor = factor
	}
}

// WithExhaustiveThreshold sets the filtered row count up to which diversified
// queries pool every row. Zero always uses the overfetch window.
func WithExhaustiveThreshold(rows int) Option {
	return func(o *options) {
		o.retriever.ExhaustiveThreshold = rows
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &vecmmr.BasicMetricsCollector{}
//	db, _ := vecmmr.New(vecmmr.WithMetricsCollector(metrics))
//	// ... use db ...
//	stats := metrics.GetStats()
//	fmt.Printf("Searches: %d, Avg latency: %dns\n", stats.SearchCount, stats.SearchAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
//	logger := vecmmr.NewJSONLogger(slog.LevelInfo)
//	db, _ := vecmmr.New(vecmmr.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithBlobStore sets the store used by SaveSnapshot and LoadSnapshot.
func WithBlobStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobStore = store
	}
}

// WithCodec configures the codec used for new snapshots.
//
// If nil is passed, codec.Default is used. Loading picks the codec recorded
// in each snapshot.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression configures snapshot compression.
func WithCompression(c snapshot.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithKeepSnapshots retains only the newest n snapshots per table.
// Zero keeps all.
func WithKeepSnapshots(n int) Option {
	return func(o *options) {
		o.keepSnapshots = n
	}
}

// WithResourceController sets the controller that admits queries and
// throttles snapshot IO.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithBatchConcurrency bounds the number of queries BatchSearch runs in
// parallel. Values below 1 select GOMAXPROCS.
func WithBatchConcurrency(n int) Option {
	return func(o *options) {
		o.batchConcurrency = n
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		retriever:        retriever.DefaultConfig(),
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		codec:            codec.Default,
		compression:      snapshot.CompressionZstd,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
