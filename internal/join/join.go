// Package join indexes and traverses declared relationships between tables.
package join

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/logger"
)

// ViaSeparator joins the two identities of an association record's identity.
const ViaSeparator = "_$via$_"

// ViaIdentity is the identity of the association record linking two records.
func ViaIdentity(fromID, toID core.Identity) string {
	return fmt.Sprintf("%v%s%v", fromID, ViaSeparator, toID)
}

// Join is a named relationship between two tables.
type Join struct {
	config   core.JoinConfig
	name     string
	strategy core.Strategy
	viaTable string

	from *Side
	to   *Side

	catalog  Catalog
	observer IndexObserver
	logger   logger.Logger
}

// Option configures a Join.
type Option func(*Join)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(j *Join) { j.logger = l.WithPrefix("JOIN") }
}

// WithObserver reports index rebuilds to o.
func WithObserver(o IndexObserver) Option {
	return func(j *Join) { j.observer = o }
}

// New validates cfg and returns a join whose tables resolve through catalog.
// Tables are not looked up until an index is needed.
func New(cfg core.JoinConfig, catalog Catalog, opts ...Option) (*Join, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "join %s", cfg.JoinName())
	}
	j := &Join{
		config:   cfg,
		name:     cfg.JoinName(),
		strategy: cfg.Strategy(),
		viaTable: cfg.ViaTable(),
		from:     newSide(core.DirectionFrom, cfg.From),
		to:       newSide(core.DirectionTo, cfg.To),
		catalog:  catalog,
		logger:   logger.NopLogger,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Name returns the join name.
func (j *Join) Name() string { return j.name }

// Config returns the declaration the join was built from.
func (j *Join) Config() core.JoinConfig { return j.config }

// Strategy returns the relationship strategy.
func (j *Join) Strategy() core.Strategy { return j.strategy }

// IsVia reports whether the join goes through an association table.
func (j *Join) IsVia() bool { return j.viaTable != "" }

// ViaTable returns the association table name, or "".
func (j *Join) ViaTable() string { return j.viaTable }

// From returns the from side.
func (j *Join) From() *Side { return j.from }

// To returns the to side.
func (j *Join) To() *Side { return j.to }

// Side returns the side for direction d.
func (j *Join) Side(d core.Direction) *Side {
	if d == core.DirectionFrom {
		return j.from
	}
	return j.to
}

// Tables lists every table the join reads: from, to and the association table.
func (j *Join) Tables() []string {
	names := []string{j.from.TableName()}
	if j.to.TableName() != j.from.TableName() {
		names = append(names, j.to.TableName())
	}
	if j.IsVia() {
		names = append(names, j.viaTable)
	}
	return names
}

// Touches reports whether a change to table can affect the join's indexes.
func (j *Join) Touches(table string) bool {
	for _, name := range j.Tables() {
		if name == table {
			return true
		}
	}
	return false
}

// DirectionFor returns the side table sits on. A self-join reports from.
func (j *Join) DirectionFor(table string) (core.Direction, bool) {
	switch table {
	case j.from.TableName():
		return core.DirectionFrom, true
	case j.to.TableName():
		return core.DirectionTo, true
	}
	return "", false
}

// Purge drops the cached indexes of both sides.
func (j *Join) Purge() {
	j.from.Purge()
	j.to.Purge()
}

func (j *Join) table(s *Side) (core.TableReader, error) {
	t, err := j.catalog.Table(s.TableName())
	if err != nil {
		return nil, errors.Wrapf(err, "join %s %s side", j.name, s.direction)
	}
	return t, nil
}

// Index returns the forward index of side d, building it if needed.
func (j *Join) Index(d core.Direction) (*Index, error) {
	return j.index(j.Side(d))
}

func (j *Join) index(s *Side) (*Index, error) {
	if s.index != nil {
		return s.index, nil
	}
	if j.IsVia() {
		if err := j.indexVia(); err != nil {
			return nil, err
		}
		return s.index, nil
	}
	t, err := j.table(s)
	if err != nil {
		return nil, err
	}
	s.index = BuildIndex(t, s.def)
	s.reverse = nil
	j.observeBuild(s)
	return s.index, nil
}

// ReverseIndex returns the key -> identities index of side d.
func (j *Join) ReverseIndex(d core.Direction) (*Index, error) {
	return j.reverseIndex(j.Side(d))
}

func (j *Join) reverseIndex(s *Side) (*Index, error) {
	if s.reverse != nil && s.index != nil {
		return s.reverse, nil
	}
	ix, err := j.index(s)
	if err != nil {
		return nil, err
	}
	s.reverse = BuildReverseIndex(ix)
	return s.reverse, nil
}

// indexVia fills both forward indexes from the association table: the from
// index maps from identities to linked to identities, and the other way round.
func (j *Join) indexVia() error {
	if _, err := j.table(j.from); err != nil {
		return err
	}
	if _, err := j.table(j.to); err != nil {
		return err
	}

	fromIx, toIx := NewIndex(), NewIndex()
	if j.catalog.HasTable(j.viaTable) {
		via, err := j.catalog.Table(j.viaTable)
		if err != nil {
			return errors.Wrapf(err, "join %s association table", j.name)
		}
		fromField, toField := j.from.TableName(), j.to.TableName()
		via.ForEach(func(_ core.Identity, rec core.Record) bool {
			f, t := rec[fromField], rec[toField]
			if f == nil || t == nil || !core.IsComparable(f) || !core.IsComparable(t) {
				return true
			}
			fromIx.Add(f, t)
			toIx.Add(t, f)
			return true
		})
	}

	j.from.index, j.from.reverse = fromIx, nil
	j.to.index, j.to.reverse = toIx, nil
	j.observeBuild(j.from)
	j.observeBuild(j.to)
	return nil
}

func (j *Join) observeBuild(s *Side) {
	j.logger.Debugf("built %s index of %s (%d keys)", s.direction, j.name, s.index.Len())
	if j.observer != nil {
		j.observer.ObserveIndexBuild(j.name, s.direction, s.index.Len())
	}
}
