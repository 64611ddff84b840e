// Package store owns tables and joins by name and routes every mutation
// through the transaction coordinator, so a failed command leaves no table
// partially changed.
package store

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/join"
	"github.com/rzpsarthak13/joinstore/internal/logger"
	"github.com/rzpsarthak13/joinstore/internal/query"
	"github.com/rzpsarthak13/joinstore/internal/registry"
	"github.com/rzpsarthak13/joinstore/internal/txn"
)

// Observer collects command and index metrics.
type Observer interface {
	txn.Observer
	join.IndexObserver
}

// Store is the in-memory database: a set of tables and the joins between
// them. A Store is not safe for concurrent use.
type Store struct {
	tables    *registry.Registry[*Table]
	joins     *registry.Registry[*join.Join]
	lifecycle *registry.LifecycleManager
	coord     *txn.Coordinator

	queue          core.ChangeQueue
	publishTimeout time.Duration
	pending        []*core.ChangeEvent

	subs    map[int]*subscription
	nextSub int

	observer Observer
	base     logger.Logger
	logger   logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) { s.base = l }
}

// WithObserver reports command and index metrics to o.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithChangeQueue publishes committed changes to q.
func WithChangeQueue(q core.ChangeQueue) Option {
	return func(s *Store) { s.queue = q }
}

// WithPublishTimeout bounds each enqueue to the change queue.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Store) { s.publishTimeout = d }
}

// WithLifecycleHook runs h whenever a table or join is added.
func WithLifecycleHook(h registry.LifecycleHook) Option {
	return func(s *Store) { s.lifecycle.RegisterHook(h) }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		tables:         registry.NewTableRegistry[*Table](),
		joins:          registry.NewJoinRegistry[*join.Join](),
		lifecycle:      registry.NewLifecycleManager(),
		publishTimeout: 5 * time.Second,
		subs:           make(map[int]*subscription),
		base:           logger.NopLogger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.base.WithPrefix("STORE")

	coordOpts := []txn.Option{txn.WithLogger(s.base)}
	if s.observer != nil {
		coordOpts = append(coordOpts, txn.WithObserver(s.observer))
	}
	s.coord = txn.NewCoordinator(coordOpts...)
	s.registerCommands()
	s.coord.OnSettled(s.settled)
	return s
}

// Coordinator returns the transaction coordinator running the store's commands.
func (s *Store) Coordinator() *txn.Coordinator { return s.coord }

// AddTable creates a table.
func (s *Store) AddTable(cfg TableConfig) (*Table, error) {
	if cfg.Name == "" {
		return nil, errors.Wrap(core.ErrInvalidConfig, "table name is required")
	}
	if s.tables.Has(cfg.Name) {
		return nil, errors.Wrapf(core.ErrDuplicateTable, "%q", cfg.Name)
	}
	t := newTable(s, cfg)
	if err := s.tables.Register(cfg.Name, t); err != nil {
		return nil, err
	}
	if err := s.lifecycle.ExecuteTableAdded(cfg.Name, cfg.Schema); err != nil {
		_ = s.tables.Unregister(cfg.Name)
		return nil, err
	}
	s.logger.Debugf("added table %s", cfg.Name)
	return t, nil
}

// AddJoin declares a join. Its tables may be added later; they are resolved
// when the join is first read.
func (s *Store) AddJoin(cfg core.JoinConfig) (*join.Join, error) {
	opts := []join.Option{join.WithLogger(s.base)}
	if s.observer != nil {
		opts = append(opts, join.WithObserver(s.observer))
	}
	j, err := join.New(cfg, catalog{s}, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.joins.Register(j.Name(), j); err != nil {
		return nil, err
	}
	if err := s.lifecycle.ExecuteJoinAdded(j.Name(), cfg); err != nil {
		_ = s.joins.Unregister(j.Name())
		return nil, err
	}
	s.logger.Debugf("added join %s (%s)", j.Name(), j.Strategy())
	return j, nil
}

// Table returns the named table.
func (s *Store) Table(name string) (*Table, error) {
	return s.tables.Get(name)
}

// HasTable reports whether the table exists.
func (s *Store) HasTable(name string) bool { return s.tables.Has(name) }

// Has reports whether table holds id.
func (s *Store) Has(table string, id core.Identity) bool {
	t, err := s.tables.Get(table)
	return err == nil && t.Has(id)
}

// Tables returns every table in the order they were added.
func (s *Store) Tables() []*Table { return s.tables.Values() }

// Join returns the named join.
func (s *Store) Join(name string) (*join.Join, error) {
	return s.joins.Get(name)
}

// Joins returns every join in the order they were added.
func (s *Store) Joins() []*join.Join { return s.joins.Values() }

// JoinsFor returns the joins that read table.
func (s *Store) JoinsFor(table string) []*join.Join {
	var out []*join.Join
	for _, j := range s.joins.Values() {
		if j.Touches(table) {
			out = append(out, j)
		}
	}
	return out
}

// Query returns a lazily evaluated query.
func (s *Store) Query(def query.Def) *query.Query {
	return query.New(catalog{s}, def)
}

// invalidate drops the cached indexes of every join reading table.
func (s *Store) invalidate(table string) {
	for _, j := range s.joins.Values() {
		if j.Touches(table) {
			j.Purge()
		}
	}
}
