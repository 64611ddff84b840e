package seed

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/logger"
	"github.com/rzpsarthak13/joinstore/internal/registry"
	"golang.org/x/sync/errgroup"
)

// Target receives fetched records. *store.Store satisfies it.
type Target interface {
	Load(table string, records []core.Record) error
}

// Entry is one table to fill from one source.
type Entry struct {
	Table  string
	Source Source
}

// Loader fetches sources concurrently and loads them in entry order.
type Loader struct {
	logger logger.Logger
}

// NewLoader creates a loader.
func NewLoader(l logger.Logger) *Loader {
	if l == nil {
		l = logger.NopLogger
	}
	return &Loader{logger: l.WithPrefix("SEED")}
}

// Load fetches every entry and then loads them one table at a time. Nothing is
// loaded if any fetch fails. Sources are closed before Load returns.
func (ld *Loader) Load(ctx context.Context, target Target, entries []Entry) error {
	defer func() {
		for _, e := range entries {
			if err := e.Source.Close(); err != nil {
				ld.logger.Warnf("closing source for %s: %v", e.Table, err)
			}
		}
	}()

	fetched := make([][]core.Record, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	for i := range entries {
		g.Go(func() error {
			recs, err := entries[i].Source.Fetch(gctx)
			if err != nil {
				return errors.Wrapf(err, "seed %s", entries[i].Table)
			}
			fetched[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, e := range entries {
		if err := target.Load(e.Table, fetched[i]); err != nil {
			return errors.Wrapf(err, "seed %s", e.Table)
		}
		ld.logger.Infof("loaded %d record(s) into %s", len(fetched[i]), e.Table)
	}
	return nil
}

// OpenAll opens a source for every seed entry. schemaFor may return nil.
// Sources opened before a failure are closed.
func OpenAll(ctx context.Context, seeds []registry.InternalSeedConfig, schemaFor func(table string) *core.Schema, l logger.Logger) ([]Entry, error) {
	entries := make([]Entry, 0, len(seeds))
	for i, cfg := range seeds {
		src, err := Open(ctx, cfg, schemaFor(cfg.Table), l)
		if err != nil {
			for _, e := range entries {
				e.Source.Close()
			}
			return nil, errors.Wrapf(err, "seed[%d]", i)
		}
		entries = append(entries, Entry{Table: cfg.Table, Source: src})
	}
	return entries, nil
}
