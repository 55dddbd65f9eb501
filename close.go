package vecmmr

import (
	"io"

	"github.com/hupe1980/vecmmr/table"
)

// Close releases the tables held by this DB and closes the blob store if it
// implements io.Closer. Every later operation fails with ErrClosed.
func (db *DB) Close() error {
	if db == nil {
		return nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true
	db.tables = map[string]*table.Table{}

	if c, ok := db.opts.blobStore.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
