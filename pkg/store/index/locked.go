package index

import (
	"context"
	"sync"

	"github.com/marmos91/syncust/pkg/metadata"
)

// Locked serializes every existence check and write against an Index
// through one mutex, so at most one goroutine touches it at a time.
type Locked struct {
	mu  sync.Mutex
	idx *Index
}

// NewLocked wraps idx.
func NewLocked(idx *Index) *Locked {
	return &Locked{idx: idx}
}

// Contains is Index.Contains under the lock.
func (l *Locked) Contains(ctx context.Context, rel string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.idx.Contains(ctx, rel)
}

// SetIfAbsent stores rec under rel unless a record already exists. It
// reports whether rec was written. The existence check and the write happen
// under one lock acquisition, so concurrent callers for the same path
// insert at most once.
func (l *Locked) SetIfAbsent(ctx context.Context, rel string, rec *metadata.FileRecord) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.idx.Contains(ctx, rel) {
		return false, nil
	}
	if err := l.idx.Set(ctx, rel, rec); err != nil {
		return false, err
	}
	return true, nil
}
