package vecmmr

import (
	"context"
	"time"

	"github.com/hupe1980/vecmmr/snapshot"
	"github.com/hupe1980/vecmmr/table"
)

// SaveSnapshot writes the current content of a table to the blob store and
// commits it as the table's latest snapshot.
func (db *DB) SaveSnapshot(ctx context.Context, tableName string) (info snapshot.Info, err error) {
	start := time.Now()
	defer func() {
		db.opts.metricsCollector.RecordSnapshot("save", info.Size, time.Since(start), err)
		db.opts.logger.LogSnapshot(ctx, "save", tableName, info.Blob, err)
	}()

	if db.snapshots == nil {
		return snapshot.Info{}, ErrNoBlobStore
	}
	t, err := db.Table(tableName)
	if err != nil {
		return snapshot.Info{}, err
	}

	info, err = db.snapshots.Save(ctx, t.State())
	if err != nil {
		return snapshot.Info{}, translateError(err)
	}
	return info, nil
}

// LoadSnapshot restores a table from its latest snapshot. An existing table
// of the same name is replaced.
func (db *DB) LoadSnapshot(ctx context.Context, tableName string) (t *table.Table, err error) {
	start := time.Now()
	var info snapshot.Info
	defer func() {
		db.opts.metricsCollector.RecordSnapshot("load", info.Size, time.Since(start), err)
		db.opts.logger.LogSnapshot(ctx, "load", tableName, info.Blob, err)
	}()

	if db.snapshots == nil {
		return nil, ErrNoBlobStore
	}
	if err := validateTableName(tableName); err != nil {
		return nil, err
	}

	st, info, err := db.snapshots.Load(ctx, tableName)
	if err != nil {
		return nil, translateError(err)
	}
	t, err = table.FromState(ctx, st)
	if err != nil {
		return nil, translateError(err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, ErrClosed
	}
	db.tables[tableName] = t
	return t, nil
}

// SnapshotVersions lists the stored snapshot sequence numbers of a table.
func (db *DB) SnapshotVersions(ctx context.Context, tableName string) ([]uint64, error) {
	if db.snapshots == nil {
		return nil, ErrNoBlobStore
	}
	seqs, err := db.snapshots.Versions(ctx, tableName)
	return seqs, translateError(err)
}

// DropSnapshots deletes every stored snapshot of a table. The in-memory
// table, if any, is left alone.
func (db *DB) DropSnapshots(ctx context.Context, tableName string) error {
	if db.snapshots == nil {
		return ErrNoBlobStore
	}
	if err := validateTableName(tableName); err != nil {
		return err
	}
	err := db.snapshots.Drop(ctx, tableName)
	db.opts.logger.LogSnapshot(ctx, "drop", tableName, "", err)
	return translateError(err)
}
