package halyard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/agilira/go-errors"
)

// Loader merges configuration overrides from one or more sources into a
// Registry. Sources are processed in order (later override earlier), and
// every load pass ends with a cycle check over the references it produced
// unless the check is explicitly deferred.
type Loader struct {
	reg              *Registry
	sources          []Source
	deferCycleChecks bool
	logger           *slog.Logger
}

// NewLoader creates a Loader that merges into reg.
func NewLoader(reg *Registry) *Loader {
	return &Loader{
		reg:     reg,
		sources: make([]Source, 0),
	}
}

// WithSource adds a source. Sources are processed in order (later override
// earlier).
func (l *Loader) WithSource(src Source) *Loader {
	l.sources = append(l.sources, src)
	return l
}

// WithLogger sets an optional logger for debug-level load records.
func (l *Loader) WithLogger(logger *slog.Logger) *Loader {
	l.logger = logger
	return l
}

// DeferCycleChecks controls whether Load skips the post-merge reference
// cycle check. When deferred, call Registry.RunPendingCycleChecks once all
// loads are done. Default: false.
func (l *Loader) DeferCycleChecks(deferred bool) *Loader {
	l.deferCycleChecks = deferred
	return l
}

// Load fetches every source's patch and merges them into the registry in
// order, then cycle-checks the references the merge produced. A failed merge
// may leave earlier sources applied; see Registry.MergePatchFrom.
func (l *Loader) Load(ctx context.Context) error {
	for _, src := range l.sources {
		patch, err := src.Load(ctx)
		if err != nil {
			return fmt.Errorf("load source %s: %w", src.Name(), err)
		}

		if err := l.reg.MergePatchFrom(src.Name(), patch); err != nil {
			return fmt.Errorf("merge source %s: %w", src.Name(), err)
		}

		if l.logger != nil {
			l.logger.Debug("merged configuration source",
				slog.String("source", src.Name()),
				slog.Int("paths", len(patch)))
		}
	}

	if l.deferCycleChecks {
		return nil
	}
	return l.reg.RunPendingCycleChecks()
}

// LoadReader parses halyard-format text from r and merges it into the
// registry, cycle-checking afterwards unless deferred. name identifies the
// source in error messages and provenance.
func (l *Loader) LoadReader(name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, ErrCodeMalformedInput,
			fmt.Sprintf("read %s", name))
	}

	patch, err := Parse(name, data)
	if err != nil {
		return err
	}

	if err := l.reg.MergePatchFrom("file:"+name, patch); err != nil {
		return err
	}

	if l.logger != nil {
		l.logger.Debug("merged configuration source",
			slog.String("source", "file:"+name),
			slog.Int("paths", len(patch)))
	}

	if l.deferCycleChecks {
		return nil
	}
	return l.reg.RunPendingCycleChecks()
}

// LoadFile reads a halyard-format file and merges it into the registry.
func (l *Loader) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return l.LoadReader(filepath.Base(path), f)
}
