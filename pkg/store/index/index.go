// Package index implements the durable path to FileRecord map backed by
// BadgerDB, an embedded ordered key-value engine.
package index

import (
	"context"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/syncust/internal/logger"
	"github.com/marmos91/syncust/pkg/metadata"
)

// Options configures the BadgerDB engine behind an Index.
//
// The zero value is usable; zero sizes fall back to defaults sized for a
// command-line process rather than a long-running server.
type Options struct {
	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`

	// SyncWrites fsyncs the write-ahead log on every Set
	SyncWrites bool `mapstructure:"sync_writes"`

	// InMemory keeps the index in memory only (tests, dry runs)
	InMemory bool `mapstructure:"in_memory"`
}

// Entry is one record returned by Entries.
type Entry struct {
	Path   string
	Record *metadata.FileRecord
}

// Index is a durable map from repository-relative path to FileRecord.
//
// Every Set is its own BadgerDB transaction and is visible to later Get and
// Contains calls on the same handle immediately. There is no transaction
// spanning multiple records. BadgerDB itself is safe for concurrent use;
// callers that need check-then-set semantics serialize through Locked.
type Index struct {
	db   *badger.DB
	path string
}

// Open opens or creates the index stored in dir.
func Open(ctx context.Context, dir string, opts Options) (*Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bopts := badger.DefaultOptions(dir)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}

	blockCacheMB := opts.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := opts.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}

	bopts = bopts.
		WithLogger(logger.Badger()).
		WithCompression(options.None). // records are tiny
		WithSyncWrites(opts.SyncWrites).
		WithBlockCacheSize(blockCacheMB << 20).
		WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, &StoreError{
			Code:    ErrStoreUnavailable,
			Message: "failed to open index",
			Path:    dir,
			Err:     err,
		}
	}

	logger.Debug("index opened at %s", dir)

	return &Index{db: db, path: dir}, nil
}

// Path returns the directory the index was opened from.
func (idx *Index) Path() string {
	return idx.path
}

// Close flushes pending writes and releases the engine's directory lock.
func (idx *Index) Close() error {
	if err := idx.db.Close(); err != nil {
		return &StoreError{Code: ErrStoreWrite, Message: "failed to close index", Path: idx.path, Err: err}
	}
	return nil
}

// Set inserts or overwrites the record for rel.
func (idx *Index) Set(ctx context.Context, rel string, rec *metadata.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := keyPath(rel)
	if err != nil {
		return &StoreError{Code: ErrSerialization, Message: "can not serialize key", Path: rel, Err: err}
	}
	value, err := encodeRecord(rec)
	if err != nil {
		return &StoreError{Code: ErrSerialization, Message: "can not serialize record", Path: rel, Err: err}
	}

	err = idx.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return &StoreError{Code: ErrStoreWrite, Message: "failed to write record", Path: rel, Err: err}
	}

	return nil
}

// Get returns the record stored for rel.
//
// Returns:
//   - *metadata.FileRecord: the stored record
//   - error: ErrNotFound, ErrSerialization, ErrStoreRead or ErrDeserialization
func (idx *Index) Get(ctx context.Context, rel string) (*metadata.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := keyPath(rel)
	if err != nil {
		return nil, &StoreError{Code: ErrSerialization, Message: "can not serialize key", Path: rel, Err: err}
	}

	var rec *metadata.FileRecord
	err = idx.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return &StoreError{Code: ErrNotFound, Message: "key not found in index", Path: rel}
		}
		if err != nil {
			return &StoreError{Code: ErrStoreRead, Message: "failed to read record", Path: rel, Err: err}
		}

		return item.Value(func(val []byte) error {
			decoded, err := decodeRecord(val)
			if err != nil {
				return &StoreError{Code: ErrDeserialization, Message: "can not deserialize record", Path: rel, Err: err}
			}
			rec = decoded
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// Contains reports whether rel has a record.
//
// Contains never fails: any serialization or engine error is logged and
// reported as "not contained", so a transient failure makes the caller
// re-hash a path rather than silently skip it.
func (idx *Index) Contains(ctx context.Context, rel string) bool {
	key, err := keyPath(rel)
	if err != nil {
		logger.Warn("can not serialize key %q: %v", rel, err)
		return false
	}
	if ctx.Err() != nil {
		return false
	}

	err = idx.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	switch {
	case err == nil:
		return true
	case err == badger.ErrKeyNotFound:
		return false
	default:
		logger.Warn("index lookup for %q failed: %v", rel, err)
		return false
	}
}

// Count returns the number of records. It scans every key.
func (idx *Index) Count(ctx context.Context) (uint64, error) {
	var n uint64

	err := idx.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixPath)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if n%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			n++
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return 0, err
		}
		return 0, &StoreError{Code: ErrStoreRead, Message: "failed to count records", Err: err}
	}

	return n, nil
}

// Walk calls fn for every record in key order. Returning an error from fn
// stops the walk and returns that error.
func (idx *Index) Walk(ctx context.Context, fn func(rel string, rec *metadata.FileRecord) error) error {
	return idx.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Prefix = []byte(prefixPath)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			rel, err := pathFromKey(item.Key())
			if err != nil {
				return &StoreError{Code: ErrDeserialization, Message: "can not deserialize key", Err: err}
			}

			var rec *metadata.FileRecord
			err = item.Value(func(val []byte) error {
				decoded, err := decodeRecord(val)
				if err != nil {
					return &StoreError{Code: ErrDeserialization, Message: "can not deserialize record", Path: rel, Err: err}
				}
				rec = decoded
				return nil
			})
			if err != nil {
				return err
			}

			if err := fn(rel, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Entries returns a snapshot of every record ordered by key.
func (idx *Index) Entries(ctx context.Context) ([]Entry, error) {
	var out []Entry
	err := idx.Walk(ctx, func(rel string, rec *metadata.FileRecord) error {
		out = append(out, Entry{Path: rel, Record: rec})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
