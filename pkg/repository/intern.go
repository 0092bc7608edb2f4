package repository

import (
	"context"
	"os"
	"path/filepath"

	"github.com/marmos91/syncust/internal/logger"
	"github.com/marmos91/syncust/pkg/metadata"
	"github.com/marmos91/syncust/pkg/store/object"
	"github.com/pkg/errors"
)

// InternReport summarizes one Intern pass.
type InternReport struct {
	// Stored is the number of files moved into the object store
	Stored int

	// Deduplicated is the number of files whose content was already stored
	Deduplicated int

	// Linked is the number of paths that already pointed at their object
	Linked int

	// Skipped is the number of paths that drifted from their record or
	// could not be stored
	Skipped int
}

// Intern moves the content of every tracked regular file into the object
// store and leaves a relative symlink in its place.
//
// A path is interned only when it is still a regular file whose current
// digest equals the recorded one; anything else is skipped with a warning,
// since storing it under the recorded digest would corrupt the store.
// Interning an already linked path is a no-op, so Intern can be re-run after
// a partial failure.
func (r *Repository) Intern(ctx context.Context) (*InternReport, error) {
	entries, err := r.idx.Entries(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "can not read index")
	}

	report := &InternReport{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		rec := e.Record
		if !rec.IsRegular() || !rec.HasDigest() {
			continue
		}

		path := filepath.Join(r.root, e.Path)
		if r.objects.Linked(path, rec) {
			report.Linked++
			continue
		}

		// an earlier run moved the bytes but stopped before linking
		if _, err := os.Lstat(path); os.IsNotExist(err) && r.objects.Has(rec) {
			if err := r.objects.Link(path, rec); err != nil {
				logger.Warn("can not relink %s: %v", e.Path, err)
				report.Skipped++
				continue
			}
			logger.Debug("%s: relinked", e.Path)
			report.Linked++
			continue
		}

		if err := r.verify(path, rec); err != nil {
			logger.Warn("not interning %s: %v", e.Path, err)
			report.Skipped++
			continue
		}

		result, err := r.objects.Store(ctx, path, rec)
		if err != nil {
			logger.Warn("can not intern %s: %v", e.Path, err)
			report.Skipped++
			continue
		}

		logger.Debug("%s: %s", e.Path, result)
		switch result {
		case object.Stored:
			report.Stored++
		case object.Deduplicated:
			report.Deduplicated++
		}
	}

	logger.Info("intern: %d stored, %d deduplicated, %d already linked, %d skipped",
		report.Stored, report.Deduplicated, report.Linked, report.Skipped)
	return report, nil
}

// verify checks that path is a regular file matching rec's digest.
func (r *Repository) verify(path string, rec *metadata.FileRecord) error {
	if err := r.settings.Algorithm.ValidateEncoded(rec.Hash); err != nil {
		return errors.Wrap(err, "malformed record digest")
	}

	info, err := metadata.Lstat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return errors.Errorf("no longer a regular file (%s)", info.Mode().Type())
	}

	sum, err := metadata.DigestFile(path, r.settings.Algorithm)
	if err != nil {
		return err
	}
	if sum != rec.Hash {
		return errors.New("content changed since it was added")
	}
	return nil
}
