package store

import (
	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/join"
	"github.com/rzpsarthak13/joinstore/internal/query"
	"github.com/rzpsarthak13/joinstore/internal/txn"
)

// JoinTerm says which join to follow from a table and which far records to
// relate. Set exactly one of JoinName and TableName.
type JoinTerm struct {
	JoinName  string
	TableName string

	// Identity names an existing far record, or the identity to store Data
	// under.
	Identity core.Identity

	// Data is upserted into the far table before linking.
	Data core.Record

	// Identities, Datas and DataPairs relate many far records in one step.
	Identities []core.Identity
	Datas      []core.Record
	DataPairs  []join.Pair
}

func (term JoinTerm) pairs() []join.Pair {
	var out []join.Pair
	for _, id := range term.Identities {
		out = append(out, join.Pair{Identity: id})
	}
	for _, rec := range term.Datas {
		out = append(out, join.Pair{Record: rec})
	}
	return append(out, term.DataPairs...)
}

type joinArgs struct {
	table *Table
	id    core.Identity
	term  JoinTerm
}

// Join relates the record id to the far records term names.
func (t *Table) Join(id core.Identity, term JoinTerm) error {
	_, err := t.store.coord.Perform(CmdJoin, joinArgs{table: t, id: id, term: term})
	return err
}

// Unjoin removes the relations between id and the far records term names.
func (t *Table) Unjoin(id core.Identity, term JoinTerm) error {
	_, err := t.store.coord.Perform(CmdUnjoin, joinArgs{table: t, id: id, term: term})
	return err
}

func (t *Table) resolveTerm(term JoinTerm) (*join.Join, core.Direction, error) {
	switch {
	case term.JoinName != "" && term.TableName != "":
		return nil, "", errors.Wrapf(core.ErrInvalidConfig, "join term names both join %s and table %s", term.JoinName, term.TableName)
	case term.JoinName != "":
		j, err := t.store.Join(term.JoinName)
		if err != nil {
			return nil, "", err
		}
		d, err := join.Locate(j, t.name)
		return j, d, err
	case term.TableName != "":
		return join.Resolve(t.store.Joins(), t.name, term.TableName)
	}
	return nil, "", errors.Wrap(core.ErrInvalidConfig, "join term names neither a join nor a table")
}

// prepareJoin resolves the term and backs up every table the join can
// write, creating the association table first so it is covered too.
func (s *Store) prepareJoin(tx *txn.Tx, a joinArgs) (*join.Join, core.Direction, error) {
	j, d, err := a.table.resolveTerm(a.term)
	if err != nil {
		return nil, "", err
	}
	if j.IsVia() {
		if err := s.ensureAssociation(j.ViaTable(), j.From().TableName(), j.To().TableName()); err != nil {
			return nil, "", err
		}
	}
	s.backupNames(tx, j.Tables()...)
	if !a.table.Has(a.id) {
		return nil, "", errors.Wrapf(core.ErrRecordNotFound, "table %s, identity %v", a.table.name, a.id)
	}
	return j, d, nil
}

func link(j *join.Join, d core.Direction, id, farID core.Identity) error {
	if d == core.DirectionFrom {
		return j.Link(id, farID)
	}
	return j.Link(farID, id)
}

func (s *Store) joinAction(tx *txn.Tx, args ...interface{}) (interface{}, error) {
	a, err := argsOf[joinArgs](CmdJoin, args)
	if err != nil {
		return nil, err
	}
	j, d, err := s.prepareJoin(tx, a)
	if err != nil {
		return nil, err
	}
	if pairs := a.term.pairs(); len(pairs) > 0 {
		return nil, j.LinkMany(a.id, d, pairs)
	}

	farID := a.term.Identity
	if a.term.Data != nil {
		far, err := s.tables.Get(j.Side(d.Opposite()).TableName())
		if err != nil {
			return nil, err
		}
		if farID == nil {
			if farID, err = far.IdentityFor(a.term.Data); err != nil {
				return nil, err
			}
		}
		if _, err := tx.Perform(CmdUpdate, updateArgs{table: far, id: farID, data: a.term.Data, upsert: true}); err != nil {
			return nil, err
		}
	}
	if farID == nil {
		return nil, errors.Wrap(core.ErrInvalidConfig, "join term names no far record")
	}
	return nil, link(j, d, a.id, farID)
}

func (s *Store) unjoinAction(tx *txn.Tx, args ...interface{}) (interface{}, error) {
	a, err := argsOf[joinArgs](CmdUnjoin, args)
	if err != nil {
		return nil, err
	}
	j, d, err := s.prepareJoin(tx, a)
	if err != nil {
		return nil, err
	}
	ids := a.term.Identities
	if a.term.Identity != nil {
		ids = append([]core.Identity{a.term.Identity}, ids...)
	}
	if len(ids) == 0 {
		return nil, errors.Wrap(core.ErrInvalidConfig, "unjoin term names no far record")
	}
	for _, farID := range ids {
		fromID, toID := a.id, farID
		if d == core.DirectionTo {
			fromID, toID = farID, a.id
		}
		if err := j.Unlink(fromID, toID); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// ensureAssociation creates the association table of a via join. Its
// records are keyed by the pair of identities they relate.
func (s *Store) ensureAssociation(name, fromField, toField string) error {
	if s.tables.Has(name) {
		return nil
	}
	_, err := s.AddTable(TableConfig{
		Name: name,
		IdentityFunc: func(rec core.Record) (core.Identity, error) {
			return join.ViaIdentity(rec[fromField], rec[toField]), nil
		},
		Validators: []core.RecordValidator{core.RecordValidatorFunc(func(rec core.Record, _ core.Identity) error {
			for _, field := range []string{fromField, toField} {
				v, ok := rec[field]
				if !ok || v == nil {
					return errors.Errorf("missing %s", field)
				}
				if !core.IsComparable(v) {
					return errors.Errorf("%s must be an identity, got %T", field, v)
				}
			}
			return nil
		})},
	})
	if err != nil {
		return errors.Wrapf(err, "association table %s", name)
	}
	s.logger.Infof("created association table %s", name)
	return nil
}

// catalog exposes the store to joins and queries. Writes go through the
// table commands, so they join whatever transaction is running.
type catalog struct {
	*Store
}

var (
	_ join.Catalog = catalog{}
	_ query.Source = catalog{}
)

func (c catalog) Table(name string) (core.TableReader, error) {
	t, err := c.Store.Table(name)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (c catalog) EnsureAssociation(name, fromField, toField string) error {
	return c.ensureAssociation(name, fromField, toField)
}

func (c catalog) IdentityFor(table string, rec core.Record) (core.Identity, error) {
	t, err := c.Store.Table(table)
	if err != nil {
		return nil, err
	}
	return t.IdentityFor(rec)
}

func (c catalog) Add(table string, id core.Identity, rec core.Record) error {
	t, err := c.Store.Table(table)
	if err != nil {
		return err
	}
	_, err = t.Add(rec, WithIdentity(id))
	return err
}

func (c catalog) SetField(table string, id core.Identity, field string, value interface{}) error {
	t, err := c.Store.Table(table)
	if err != nil {
		return err
	}
	return t.SetField(id, field, value)
}

func (c catalog) UpdateMany(table string, entries []core.Entry, replace bool) error {
	t, err := c.Store.Table(table)
	if err != nil {
		return err
	}
	return t.UpdateMany(entries, replace)
}

func (c catalog) Delete(table string, id core.Identity) error {
	t, err := c.Store.Table(table)
	if err != nil {
		return err
	}
	return t.Delete(id)
}

func (c catalog) WithBackup(tables []string, fn func() error) error {
	_, err := c.coord.Perform(CmdWithBackup, withBackupArgs{tables: tables, fn: fn})
	return err
}
