// Package ingest implements the add path: a directory walk fanned out to a
// pool of hashing workers that insert new records into the index.
package ingest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/syncust/internal/logger"
	"github.com/marmos91/syncust/pkg/metadata"
	"github.com/marmos91/syncust/pkg/store/index"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrDataDirPath is returned when a path inside the repository's data
	// directory is explicitly requested.
	ErrDataDirPath = errors.New("path is inside the repository data directory")

	// ErrOutsideRoot is returned for a path that is not under the repository root.
	ErrOutsideRoot = errors.New("path is outside the repository")
)

// DefaultQueueSize is the path queue capacity used when Options.QueueSize is zero.
const DefaultQueueSize = 1024

// Options tunes the pipeline.
type Options struct {
	// Workers is the number of hashing goroutines. Zero means one less than
	// the number of CPUs, and at least one.
	Workers int

	// QueueSize bounds the queue between the walker and the workers
	QueueSize int

	// Algorithm is the content digest of new records
	Algorithm metadata.Algorithm
}

// Report summarizes one Run.
type Report struct {
	// Added is the number of records written
	Added int

	// Skipped is the number of paths that were already tracked
	Skipped int

	// Failed is the number of paths that could not be read or recorded
	Failed int

	// Bytes is the total length of the regular files added
	Bytes uint64
}

// String renders the summary line logged after a run.
func (r *Report) String() string {
	return humanize.Comma(int64(r.Added)) + " added (" + humanize.Bytes(r.Bytes) + "), " +
		humanize.Comma(int64(r.Skipped)) + " already tracked, " +
		humanize.Comma(int64(r.Failed)) + " failed"
}

// Pipeline ingests paths under one repository root.
type Pipeline struct {
	root    string
	dataDir string
	idx     *index.Locked
	opts    Options
}

// New creates a pipeline for the repository at root whose private data
// lives in dataDir. Both must be absolute and clean.
func New(root, dataDir string, idx *index.Locked, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = max(1, runtime.NumCPU()-1)
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Algorithm == "" {
		opts.Algorithm = metadata.DefaultAlgorithm
	}
	return &Pipeline{root: root, dataDir: dataDir, idx: idx, opts: opts}
}

// counters is the shared, concurrently updated form of Report.
type counters struct {
	added, skipped, failed atomic.Int64
	bytes                  atomic.Uint64
}

func (c *counters) report() *Report {
	return &Report{
		Added:   int(c.added.Load()),
		Skipped: int(c.skipped.Load()),
		Failed:  int(c.failed.Load()),
		Bytes:   c.bytes.Load(),
	}
}

// Run walks every target and records each path not yet in the index.
//
// Targets are absolute paths under the repository root. A target inside the
// data directory, outside the root, or missing fails the whole call before
// any work starts. Once the walk begins, per-path failures are logged and
// counted, never returned.
//
// Run returns only after every queued path has been committed or skipped.
// Cancelling ctx stops the walk; records already written stay intact.
//
// Parameters:
//   - ctx: Controls cancellation of the walk and the workers
//   - targets: Absolute paths to scan recursively
//
// Returns:
//   - *Report: Counts for the paths processed, also on cancellation
//   - error: Setup errors or ctx.Err()
func (p *Pipeline) Run(ctx context.Context, targets []string) (*Report, error) {
	for _, target := range targets {
		if err := p.checkTarget(target); err != nil {
			return nil, err
		}
	}

	var c counters
	paths := make(chan string, p.opts.QueueSize)

	g, gctx := errgroup.WithContext(ctx)

	// ========================================================================
	// Producer: walk targets, closing the queue when done
	// ========================================================================

	g.Go(func() error {
		defer close(paths)
		for _, target := range targets {
			if err := p.walk(gctx, target, paths, &c); err != nil {
				return err
			}
		}
		return nil
	})

	// ========================================================================
	// Workers: hash and record until the queue is drained
	// ========================================================================

	for i := 0; i < p.opts.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case path, ok := <-paths:
					if !ok {
						return nil
					}
					p.process(gctx, path, &c)
				}
			}
		})
	}

	err := g.Wait()
	report := c.report()
	if err != nil {
		return report, err
	}

	logger.Info("ingest: %s", report)
	return report, nil
}

// checkTarget validates an explicitly requested path.
func (p *Pipeline) checkTarget(target string) error {
	if !within(p.root, target) {
		return errors.Wrap(ErrOutsideRoot, target)
	}
	if within(p.dataDir, target) {
		return errors.Wrap(ErrDataDirPath, target)
	}
	if _, err := os.Lstat(target); err != nil {
		return errors.Wrapf(err, "can not add %s", target)
	}
	return nil
}

// walk enqueues target and everything below it, pruning the data directory.
func (p *Pipeline) walk(ctx context.Context, target string, paths chan<- string, c *counters) error {
	return filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			logger.Warn("can not read %s: %v", path, err)
			c.failed.Add(1)
			return nil
		}
		if d.IsDir() && path == p.dataDir {
			return filepath.SkipDir
		}

		select {
		case paths <- path:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// process records one path if it is not tracked yet.
func (p *Pipeline) process(ctx context.Context, path string, c *counters) {
	rel, err := filepath.Rel(p.root, path)
	if err != nil {
		logger.Warn("can not relativize %s: %v", path, err)
		c.failed.Add(1)
		return
	}

	if p.idx.Contains(ctx, rel) {
		logger.Warn("%s is already tracked", rel)
		c.skipped.Add(1)
		return
	}

	rec, err := metadata.Extract(path, p.opts.Algorithm)
	if err != nil {
		logger.Warn("skipping %s: %v", rel, err)
		c.failed.Add(1)
		return
	}

	// Re-check under the lock: another worker may have recorded the path
	// while this one was hashing.
	written, err := p.idx.SetIfAbsent(ctx, rel, rec)
	switch {
	case err != nil:
		logger.Warn("can not record %s: %v", rel, err)
		c.failed.Add(1)
	case !written:
		logger.Warn("%s is already tracked", rel)
		c.skipped.Add(1)
	default:
		logger.Debug("recorded %s", rel)
		c.added.Add(1)
		if rec.HasDigest() {
			c.bytes.Add(rec.Length)
		}
	}
}

// within reports whether path equals root or lies below it.
func within(root, path string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}
