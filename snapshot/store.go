// Package snapshot persists table states to a blob store.
//
// Each table lives under tables/<name>/. Snapshots are immutable blobs named
// snap-<seq>.vmmr; the CURRENT blob holds the name of the latest committed
// snapshot. Save writes the snapshot first and commits CURRENT last, so a
// reader never observes a half-written snapshot.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/hupe1980/vecmmr/blobstore"
	"github.com/hupe1980/vecmmr/codec"
	"github.com/hupe1980/vecmmr/table"
)

const (
	pointerName = "CURRENT"
	blobPrefix  = "snap-"
	blobSuffix  = ".vmmr"
)

var (
	// ErrNoSnapshot is returned when a table has no committed snapshot.
	ErrNoSnapshot = errors.New("snapshot: no committed snapshot")
	// ErrInvalidTableName is returned for names that cannot be used as a path segment.
	ErrInvalidTableName = errors.New("snapshot: invalid table name")
)

// Options configures a Store.
type Options struct {
	// Codec encodes new snapshots. Defaults to codec.Default.
	Codec codec.Codec
	// Compression for new snapshots. Defaults to CompressionZstd.
	Compression Compression
	// Keep is the number of snapshots retained per table after a save.
	// Zero keeps all.
	Keep int
}

// Store saves and loads table snapshots.
type Store struct {
	blobs blobstore.BlobStore
	opts  Options
}

// NewStore creates a snapshot store on top of blobs.
func NewStore(blobs blobstore.BlobStore, optFns ...func(o *Options)) *Store {
	opts := Options{
		Codec:       codec.Default,
		Compression: CompressionZstd,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	return &Store{blobs: blobs, opts: opts}
}

// Info describes a committed snapshot.
type Info struct {
	Table string
	Seq   uint64
	Blob  string
	Size  int
	Rows  int
}

func tableDir(name string) string { return path.Join("tables", name) }

func blobName(name string, seq uint64) string {
	return path.Join(tableDir(name), fmt.Sprintf("%s%020d%s", blobPrefix, seq, blobSuffix))
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	return nil
}

// Save writes a new snapshot of st and commits it as CURRENT.
func (s *Store) Save(ctx context.Context, st table.State) (Info, error) {
	if err := checkName(st.Name); err != nil {
		return Info{}, err
	}

	seqs, err := s.Versions(ctx, st.Name)
	if err != nil {
		return Info{}, err
	}
	var seq uint64 = 1
	if len(seqs) > 0 {
		seq = seqs[len(seqs)-1] + 1
	}

	data, err := Encode(st, s.opts.Codec, s.opts.Compression)
	if err != nil {
		return Info{}, err
	}

	name := blobName(st.Name, seq)
	if err := s.blobs.Put(ctx, name, data); err != nil {
		return Info{}, fmt.Errorf("snapshot: write %s: %w", name, err)
	}
	if err := s.blobs.Put(ctx, path.Join(tableDir(st.Name), pointerName), []byte(name)); err != nil {
		return Info{}, fmt.Errorf("snapshot: commit %s: %w", name, err)
	}

	if s.opts.Keep > 0 {
		if err := s.prune(ctx, st.Name, append(seqs, seq), s.opts.Keep); err != nil {
			return Info{}, err
		}
	}

	return Info{Table: st.Name, Seq: seq, Blob: name, Size: len(data), Rows: len(st.Rows)}, nil
}

// Load reads the CURRENT snapshot of the named table.
func (s *Store) Load(ctx context.Context, name string) (table.State, Info, error) {
	if err := checkName(name); err != nil {
		return table.State{}, Info{}, err
	}

	ptr, err := blobstore.Get(ctx, s.blobs, path.Join(tableDir(name), pointerName))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return table.State{}, Info{}, fmt.Errorf("%w: table %q", ErrNoSnapshot, name)
		}
		return table.State{}, Info{}, err
	}

	target := strings.TrimSpace(string(ptr))
	seq, ok := parseSeq(path.Base(target))
	if !ok || path.Dir(target) != tableDir(name) {
		return table.State{}, Info{}, fmt.Errorf("%w: bad CURRENT pointer %q", ErrCorrupt, target)
	}

	data, err := blobstore.Get(ctx, s.blobs, target)
	if err != nil {
		return table.State{}, Info{}, fmt.Errorf("snapshot: read %s: %w", target, err)
	}
	st, err := Decode(data)
	if err != nil {
		return table.State{}, Info{}, fmt.Errorf("snapshot: decode %s: %w", target, err)
	}
	if st.Name != name {
		return table.State{}, Info{}, fmt.Errorf("%w: %s holds table %q", ErrCorrupt, target, st.Name)
	}

	return st, Info{Table: name, Seq: seq, Blob: target, Size: len(data), Rows: len(st.Rows)}, nil
}

// Versions returns the sequence numbers of all stored snapshots of a table in
// ascending order.
func (s *Store) Versions(ctx context.Context, name string) ([]uint64, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	names, err := s.blobs.List(ctx, tableDir(name)+"/")
	if err != nil {
		return nil, err
	}
	var seqs []uint64
	for _, n := range names {
		if path.Dir(n) != tableDir(name) {
			continue
		}
		if seq, ok := parseSeq(path.Base(n)); ok {
			seqs = append(seqs, seq)
		}
	}
	slices.Sort(seqs)
	return seqs, nil
}

// Drop removes every snapshot of a table and its CURRENT pointer.
func (s *Store) Drop(ctx context.Context, name string) error {
	seqs, err := s.Versions(ctx, name)
	if err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, path.Join(tableDir(name), pointerName)); err != nil {
		return err
	}
	for _, seq := range seqs {
		if err := s.blobs.Delete(ctx, blobName(name, seq)); err != nil {
			return err
		}
	}
	return nil
}

// prune deletes all but the newest keep snapshots.
func (s *Store) prune(ctx context.Context, name string, seqs []uint64, keep int) error {
	if len(seqs) <= keep {
		return nil
	}
	for _, seq := range seqs[:len(seqs)-keep] {
		if err := s.blobs.Delete(ctx, blobName(name, seq)); err != nil {
			return fmt.Errorf("snapshot: prune %d: %w", seq, err)
		}
	}
	return nil
}

func parseSeq(base string) (uint64, bool) {
	if !strings.HasPrefix(base, blobPrefix) || !strings.HasSuffix(base, blobSuffix) {
		return 0, false
	}
	seq, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(base, blobPrefix), blobSuffix), 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}
