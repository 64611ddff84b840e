// Package joinstore is an in-memory multi-table store with declarative joins.
//
// Typical usage:
//
//	db, _ := joinstore.Open(ctx, cfg)
//	defer db.Close()
//
//	users, _ := db.Table("users")
//	users.Add(joinstore.Record{"id": 1, "name": "Ann", "address": 10})
//
//	out, _ := db.Query(joinstore.QueryDef{
//		Table: "users",
//		Joins: []joinstore.JoinSpec{{JoinName: "userAddresses"}},
//	})
package joinstore

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/changefeed"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/join"
	"github.com/rzpsarthak13/joinstore/internal/logger"
	"github.com/rzpsarthak13/joinstore/internal/metrics"
	"github.com/rzpsarthak13/joinstore/internal/registry"
	"github.com/rzpsarthak13/joinstore/internal/seed"
	"github.com/rzpsarthak13/joinstore/internal/store"
)

// DB owns a store, its change queue and the drainer consuming it.
type DB struct {
	mu      sync.RWMutex
	store   *store.Store
	queue   ChangeQueue
	ownsQ   bool
	drainer *changefeed.Drainer
	logger  logger.Logger
	started bool
	closed  bool
}

// Open validates cfg, creates its tables and joins, and loads its seeds.
func Open(ctx context.Context, cfg *Config, opts ...Option) (*DB, error) {
	if cfg == nil {
		return nil, errors.Wrap(core.ErrInvalidConfig, "config cannot be nil")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	ic := cfg.internal()
	if err := registry.NewConfigManager().Load(ic); err != nil {
		return nil, err
	}

	l := o.logger
	if l == nil {
		var err error
		if l, err = logger.New(ic.Logging); err != nil {
			return nil, err
		}
	}

	var m *metrics.Metrics
	if o.registerer != nil {
		var err error
		if m, err = metrics.New(o.registerer, o.namespace); err != nil {
			return nil, err
		}
	}

	db := &DB{queue: o.queue, logger: l.WithPrefix("DB")}
	if db.queue == nil {
		q, err := changefeed.NewQueue(ic.ChangeFeed, l)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create change queue")
		}
		db.queue, db.ownsQ = q, q != nil
	}

	storeOpts := []store.Option{store.WithLogger(l)}
	if m != nil {
		storeOpts = append(storeOpts, store.WithObserver(m))
	}
	if db.queue != nil {
		storeOpts = append(storeOpts, store.WithChangeQueue(db.queue))
	}
	db.store = store.New(storeOpts...)

	if err := db.store.Apply(ic); err != nil {
		db.closeQueue()
		return nil, err
	}

	if !o.skipSeed && len(ic.Seed) > 0 {
		schemaFor := func(table string) *core.Schema {
			if t, err := db.store.Table(table); err == nil {
				return t.Schema()
			}
			return nil
		}
		entries, err := seed.OpenAll(ctx, ic.Seed, schemaFor, l)
		if err == nil {
			err = seed.NewLoader(l).Load(ctx, db.store, entries)
		}
		if err != nil {
			db.closeQueue()
			return nil, errors.Wrap(err, "failed to seed")
		}
	}

	if o.handler != nil && db.queue != nil {
		dopts := []changefeed.DrainerOption{changefeed.WithDrainLogger(l)}
		if m != nil {
			dopts = append(dopts, changefeed.WithDrainObserver(m))
		}
		db.drainer = changefeed.NewDrainer(db.queue, o.handler, changefeed.DrainerConfig{
			Rate:         ic.ChangeFeed.DrainRate,
			BatchSize:    ic.ChangeFeed.BatchSize,
			PollInterval: 100 * time.Millisecond,
		}, dopts...)
	}

	db.logger.Infof("opened with %d table(s) and %d join(s)", len(db.store.Tables()), len(db.store.Joins()))
	return db, nil
}

// Store returns the underlying store.
func (db *DB) Store() *store.Store { return db.store }

// Table returns a table by name.
func (db *DB) Table(name string) (*Table, error) { return db.store.Table(name) }

// Tables returns every table in creation order.
func (db *DB) Tables() []*Table { return db.store.Tables() }

// AddTable creates a table with hooks and validators that a Config cannot express.
func (db *DB) AddTable(spec TableSpec) (*Table, error) { return db.store.AddTable(spec) }

// AddJoin creates a join between existing tables.
func (db *DB) AddJoin(cfg JoinConfig) (*join.Join, error) { return db.store.AddJoin(cfg) }

// Join returns a join by name.
func (db *DB) Join(name string) (*join.Join, error) { return db.store.Join(name) }

// Joins returns every join in creation order.
func (db *DB) Joins() []*join.Join { return db.store.Joins() }

// Query evaluates def and returns its JSON shape.
func (db *DB) Query(def QueryDef) ([]ItemJSON, error) {
	return db.store.Query(def).JSON()
}

// Subscribe calls fn with the result of def now and after every committed
// change.
func (db *DB) Subscribe(def QueryDef, fn func([]ItemJSON, error)) (cancel func()) {
	return db.store.Subscribe(def, fn)
}

// Start begins draining the change feed. It is a no-op without a drain handler.
func (db *DB) Start(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return errors.New("db is closed")
	}
	if db.started || db.drainer == nil {
		return nil
	}
	if err := db.drainer.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start drainer")
	}
	db.started = true
	return nil
}

// Stop waits for the drainer to finish its current batch.
func (db *DB) Stop() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.started {
		return nil
	}
	if err := db.drainer.Stop(); err != nil {
		return errors.Wrap(err, "failed to stop drainer")
	}
	db.started = false
	return nil
}

// IsRunning reports whether the drainer is running.
func (db *DB) IsRunning() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.started
}

// Close stops the drainer and closes a change queue Open created.
func (db *DB) Close() error {
	if err := db.Stop(); err != nil {
		db.logger.Warnf("error stopping drainer: %v", err)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	return db.closeQueue()
}

func (db *DB) closeQueue() error {
	if !db.ownsQ {
		return nil
	}
	return db.queue.Close()
}
