package vecmmr

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/vecmmr/distance"
	"github.com/hupe1980/vecmmr/mmr"
	"github.com/hupe1980/vecmmr/model"
	"github.com/hupe1980/vecmmr/resource"
	"github.com/hupe1980/vecmmr/retriever"
	"github.com/hupe1980/vecmmr/snapshot"
	"github.com/hupe1980/vecmmr/table"
	"golang.org/x/sync/errgroup"
)

// rerankBytesPerCandidate approximates the MMR scratch per pooled row:
// relevance and max-similarity (float64 each) plus the candidate header.
const rerankBytesPerCandidate = 8 + 8 + 48

// DB is a registry of vector tables answering KNN and MMR queries.
// DB is safe for concurrent use.
type DB struct {
	opts      options
	retriever *retriever.Retriever
	snapshots *snapshot.Store // nil without a blob store

	mu     sync.RWMutex
	tables map[string]*table.Table
	closed bool
}

// New creates an empty DB.
func New(optFns ...Option) (*DB, error) {
	opts := applyOptions(optFns)

	r, err := retriever.NewRetriever(opts.retriever)
	if err != nil {
		return nil, translateError(err)
	}

	db := &DB{
		opts:      opts,
		retriever: r,
		tables:    make(map[string]*table.Table),
	}
	if opts.blobStore != nil {
		db.snapshots = snapshot.NewStore(resource.NewThrottledStore(opts.blobStore, opts.resources), func(o *snapshot.Options) {
			o.Codec = opts.codec
			o.Compression = opts.compression
			o.Keep = opts.keepSnapshots
		})
	}
	return db, nil
}

// RetrieverConfig returns the candidate pool settings in effect.
func (db *DB) RetrieverConfig() retriever.Config {
	return db.retriever.Config()
}

// CreateTable creates an empty table.
func (db *DB) CreateTable(name string, schema table.Schema) (*table.Table, error) {
	if err := validateTableName(name); err != nil {
		return nil, err
	}
	t, err := table.New(name, schema)
	if err != nil {
		return nil, translateError(err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, ErrClosed
	}
	if _, ok := db.tables[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrTableExists, name)
	}
	db.tables[name] = t
	db.opts.logger.WithTable(name).Info("table created",
		"dimension", schema.Dimension,
		"metric", schema.Metric.String(),
		"encoding", schema.Encoding.String(),
	)
	return t, nil
}

// Table returns the named table.
func (db *DB) Table(name string) (*table.Table, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return nil, ErrClosed
	}
	t, ok := db.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	return t, nil
}

// DropTable removes a table from the registry. Snapshots are kept.
func (db *DB) DropTable(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	if _, ok := db.tables[name]; !ok {
		return fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	delete(db.tables, name)
	return nil
}

// Compact releases the storage of deleted rows of a table.
func (db *DB) Compact(name string) error {
	t, err := db.Table(name)
	if err != nil {
		return err
	}
	t.Compact()
	return nil
}

// Tables returns the sorted table names.
func (db *DB) Tables() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Insert adds a row to the named table.
func (db *DB) Insert(ctx context.Context, tableName string, row table.Row) error {
	return db.write(ctx, tableName, func(t *table.Table) error {
		return t.Insert(ctx, row)
	})
}

// InsertValues adds a row given as column name → value. Naming mmr_lambda
// fails with ErrConstraintViolation whatever the value.
func (db *DB) InsertValues(ctx context.Context, tableName string, values map[string]any) error {
	return db.write(ctx, tableName, func(t *table.Table) error {
		return t.InsertValues(ctx, values)
	})
}

// UpdateValues assigns columns of an existing row.
func (db *DB) UpdateValues(ctx context.Context, tableName string, id model.RowID, values map[string]any) error {
	return db.write(ctx, tableName, func(t *table.Table) error {
		return t.UpdateValues(ctx, id, values)
	})
}

// Delete removes a row.
func (db *DB) Delete(ctx context.Context, tableName string, id model.RowID) error {
	return db.write(ctx, tableName, func(t *table.Table) error {
		return t.Delete(ctx, id)
	})
}

func (db *DB) write(ctx context.Context, tableName string, fn func(t *table.Table) error) error {
	start := time.Now()
	t, err := db.Table(tableName)
	if err == nil {
		err = translateError(fn(t))
	}
	db.opts.metricsCollector.RecordInsert(time.Since(start), err)
	db.opts.logger.LogInsert(ctx, tableName, err)
	return err
}

// Query runs a resolved query against the named table.
//
// Without MMRLambda the result is the k nearest rows by ascending distance,
// ties by ascending row id. With MMRLambda the nearest-neighbor pool is
// re-ranked by Maximal Marginal Relevance and returned in selection order.
// A failing query returns no rows.
func (db *DB) Query(ctx context.Context, tableName string, q model.Query) (results []Result, err error) {
	start := time.Now()
	defer func() {
		n := len(results)
		db.opts.metricsCollector.RecordSearch(q.K, q.MMRLambda != nil, time.Since(start), err)
		db.opts.logger.LogSearch(ctx, tableName, q.K, q.MMRLambda, n, err)
	}()

	t, err := db.Table(tableName)
	if err != nil {
		return nil, err
	}

	release, err := db.opts.resources.AdmitQuery(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	results, err = db.query(ctx, t, q)
	if err != nil {
		return nil, translateError(err)
	}
	return results, nil
}

func (db *DB) query(ctx context.Context, t *table.Table, q model.Query) ([]Result, error) {
	schema := t.Schema()
	if err := validateQuery(schema, q); err != nil {
		return nil, err
	}
	if q.K == 0 {
		return []Result{}, nil
	}

	kernel, err := distance.NewKernel(schema.Metric, schema.Encoding)
	if err != nil {
		return nil, err
	}

	var out []Result
	err = t.View(func(v *table.View) error {
		pool, err := db.retriever.Retrieve(ctx, v, kernel, retriever.Request{
			Vector:    q.Vector,
			K:         q.K,
			Diversify: q.MMRLambda != nil,
			Partition: q.Partition,
			Filters:   q.DistanceFilters,
		})
		if err != nil {
			return err
		}
		if q.MMRLambda == nil {
			out = materialize(pool)
			return nil
		}

		scratch := int64(len(pool)) * rerankBytesPerCandidate
		if err := db.opts.resources.AcquireMemory(ctx, scratch); err != nil {
			return err
		}
		defer db.opts.resources.ReleaseMemory(scratch)

		start := time.Now()
		ranked, err := mmr.Rerank(ctx, kernel, pool, *q.MMRLambda, q.K)
		db.opts.metricsCollector.RecordRerank(len(pool), time.Since(start))
		if err != nil {
			return err
		}
		out = materialize(ranked)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BatchSearch runs queries in parallel against one table. Results are in
// query order. The first failing query cancels the rest and its error is
// returned.
func (db *DB) BatchSearch(ctx context.Context, tableName string, queries []model.Query) ([][]Result, error) {
	results := make([][]Result, len(queries))

	limit := db.opts.batchConcurrency
	if limit < 1 {
		limit = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, q := range queries {
		g.Go(func() error {
			res, err := db.Query(gctx, tableName, q)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}

	err := g.Wait()
	db.opts.logger.LogBatchSearch(ctx, tableName, len(queries), err)
	if err != nil {
		return nil, err
	}
	return results, nil
}
