// Package query materializes table rows, runs them through selector
// pipelines and attaches related rows across joins.
package query

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/join"
)

// Source resolves the tables and joins a query reads.
type Source interface {
	Table(name string) (core.TableReader, error)
	Join(name string) (*join.Join, error)
	Joins() []*join.Join
}

// Def describes a query over one table.
type Def struct {
	Table string
	Sel   []Selector
	Joins []JoinSpec
}

// JoinSpec attaches related rows. Exactly one of JoinName and TableName is
// set; a TableName is resolved to the single join connecting the two tables.
type JoinSpec struct {
	JoinName  string
	TableName string
	Sel       []Selector
	Joins     []JoinSpec
}

// Query is a memoized evaluation of a Def.
type Query struct {
	source Source
	def    Def

	done  bool
	items []*Item
	err   error
}

// New returns a query over source. Nothing is read until Value is called.
func New(source Source, def Def) *Query {
	return &Query{source: source, def: def}
}

// Def returns the query definition.
func (q *Query) Def() Def { return q.def }

// Value evaluates the query once and returns the result rows.
func (q *Query) Value() ([]*Item, error) {
	if !q.done {
		q.items, q.err = q.eval()
		q.done = true
	}
	return q.items, q.err
}

// JSON returns the serialized result rows.
func (q *Query) JSON() ([]ItemJSON, error) {
	items, err := q.Value()
	if err != nil {
		return nil, err
	}
	return toJSON(items), nil
}

// MarshalJSON implements json.Marshaler.
func (q *Query) MarshalJSON() ([]byte, error) {
	out, err := q.JSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (q *Query) eval() ([]*Item, error) {
	t, err := q.source.Table(q.def.Table)
	if err != nil {
		return nil, errors.Wrap(err, "query")
	}
	items := make([]*Item, 0, t.Size())
	t.ForEach(func(id core.Identity, _ core.Record) bool {
		items = append(items, NewItem(t, id))
		return true
	})
	items = apply(items, q.def.Sel)
	if err := q.attach(items, q.def.Table, q.def.Joins); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Query) resolve(spec JoinSpec, table string) (*join.Join, core.Direction, error) {
	switch {
	case spec.JoinName != "" && spec.TableName != "":
		return nil, "", errors.Wrapf(core.ErrInvalidConfig, "join spec names both join %s and table %s", spec.JoinName, spec.TableName)
	case spec.JoinName != "":
		j, err := q.source.Join(spec.JoinName)
		if err != nil {
			return nil, "", err
		}
		d, err := join.Locate(j, table)
		return j, d, err
	case spec.TableName != "":
		return join.Resolve(q.source.Joins(), table, spec.TableName)
	}
	return nil, "", errors.Wrap(core.ErrInvalidConfig, "join spec names neither a join nor a table")
}

// attach resolves every spec against table and hangs the related rows off
// each item, recursing into nested specs.
func (q *Query) attach(items []*Item, table string, specs []JoinSpec) error {
	for _, spec := range specs {
		j, d, err := q.resolve(spec, table)
		if err != nil {
			return errors.Wrapf(err, "query on %s", table)
		}
		farName := j.Side(d.Opposite()).TableName()
		far, err := q.source.Table(farName)
		if err != nil {
			return errors.Wrapf(err, "join %s", j.Name())
		}
		for _, item := range items {
			ids, err := j.Identities(d, item.Identity())
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				continue
			}
			related := make([]*Item, len(ids))
			for n, id := range ids {
				related[n] = NewItem(far, id)
			}
			related = apply(related, spec.Sel)
			if len(related) == 0 {
				continue
			}
			if err := q.attach(related, farName, spec.Joins); err != nil {
				return err
			}
			item.attach(j.Name(), related)
		}
	}
	return nil
}
