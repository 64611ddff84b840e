package store

import (
	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/collection"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/txn"
)

// Command names registered with the coordinator.
const (
	CmdAdd        = "add"
	CmdUpdate     = "update"
	CmdUpdateMany = "updateMany"
	CmdSetField   = "setField"
	CmdDelete     = "delete"
	CmdGenerate   = "generate"
	CmdJoin       = "join"
	CmdUnjoin     = "unjoin"
	CmdWithBackup = "withBackup"
)

// Keys in tx.Meta.
const (
	metaBackups   = "backups"
	metaEventMark = "eventMark"
)

type addArgs struct {
	table   *Table
	id      core.Identity
	rec     core.Record
	replace bool
}

type updateArgs struct {
	table  *Table
	id     core.Identity
	data   core.Record
	upsert bool
}

type updateManyArgs struct {
	table   *Table
	entries []core.Entry
	replace bool
}

type setFieldArgs struct {
	table *Table
	id    core.Identity
	field string
	value interface{}
}

type deleteArgs struct {
	table *Table
	id    core.Identity
}

type generateArgs struct {
	table   *Table
	n       int
	gen     func(i int) (core.Record, error)
	replace bool
}

type withBackupArgs struct {
	tables []string
	fn     func() error
}

func argsOf[T any](cmd string, args []interface{}) (T, error) {
	var zero T
	if len(args) != 1 {
		return zero, errors.Errorf("%s: want 1 argument, got %d", cmd, len(args))
	}
	a, ok := args[0].(T)
	if !ok {
		return zero, errors.Errorf("%s: unexpected argument %T", cmd, args[0])
	}
	return a, nil
}

func (s *Store) registerCommands() {
	for name, action := range map[string]txn.Action{
		CmdAdd:        s.addAction,
		CmdUpdate:     s.updateAction,
		CmdUpdateMany: s.updateManyAction,
		CmdSetField:   s.setFieldAction,
		CmdDelete:     s.deleteAction,
		CmdGenerate:   s.generateAction,
		CmdJoin:       s.joinAction,
		CmdUnjoin:     s.unjoinAction,
		CmdWithBackup: s.withBackupAction,
	} {
		s.coord.Register(name, txn.Handler{Action: action, Rollback: s.restore})
	}
}

// backup snapshots every table not already saved by this command. The first
// call also marks how many change events preceded the command.
func (s *Store) backup(tx *txn.Tx, tables ...*Table) {
	snaps, ok := tx.Meta[metaBackups].(map[string]*collection.Snapshot)
	if !ok {
		snaps = make(map[string]*collection.Snapshot)
		tx.Meta[metaBackups] = snaps
		tx.Meta[metaEventMark] = len(s.pending)
	}
	for _, t := range tables {
		if _, done := snaps[t.name]; !done {
			snaps[t.name] = t.coll.Snapshot()
		}
	}
}

// backupNames is backup for tables given by name. Unknown names are skipped.
func (s *Store) backupNames(tx *txn.Tx, names ...string) {
	tables := make([]*Table, 0, len(names))
	for _, name := range names {
		if t, err := s.tables.Get(name); err == nil {
			tables = append(tables, t)
		}
	}
	s.backup(tx, tables...)
}

// restore puts every backed up table back and drops the change events the
// command produced. It returns cause unchanged.
func (s *Store) restore(tx *txn.Tx, cause error) error {
	snaps, _ := tx.Meta[metaBackups].(map[string]*collection.Snapshot)
	for name, snap := range snaps {
		t, err := s.tables.Get(name)
		if err != nil {
			continue
		}
		t.coll.Restore(snap)
		s.invalidate(name)
	}
	if mark, ok := tx.Meta[metaEventMark].(int); ok && mark < len(s.pending) {
		s.pending = s.pending[:mark]
	}
	if len(snaps) > 0 {
		s.logger.Debugf("%s restored %d table(s) in tx %s: %v", tx.Command, len(snaps), tx.ID, cause)
	}
	return cause
}

func (s *Store) addAction(tx *txn.Tx, args ...interface{}) (interface{}, error) {
	a, err := argsOf[addArgs](CmdAdd, args)
	if err != nil {
		return nil, err
	}
	t := a.table
	s.backup(tx, t)

	id := a.id
	if id == nil {
		if id, err = t.IdentityFor(a.rec); err != nil {
			return nil, err
		}
	}
	if err := core.CheckIdentity(id); err != nil {
		return nil, errors.Wrapf(err, "table %s", t.name)
	}
	existed := t.Has(id)
	if existed && !a.replace {
		return nil, errors.Wrapf(core.ErrRecordExists, "table %s, identity %v", t.name, id)
	}
	rec, err := t.process(core.CloneRecord(a.rec), id, existed)
	if err != nil {
		return nil, err
	}
	if err := t.put(id, rec, existed); err != nil {
		return nil, err
	}
	if err := t.validateTable(); err != nil {
		return nil, err
	}
	return id, nil
}

func (s *Store) updateAction(tx *txn.Tx, args ...interface{}) (interface{}, error) {
	a, err := argsOf[updateArgs](CmdUpdate, args)
	if err != nil {
		return nil, err
	}
	t := a.table
	s.backup(tx, t)

	existing, ok := t.Get(a.id)
	if !ok {
		if !a.upsert {
			return nil, errors.Wrapf(core.ErrRecordNotFound, "table %s, identity %v", t.name, a.id)
		}
		return tx.Perform(CmdAdd, addArgs{table: t, id: a.id, rec: a.data})
	}
	rec, err := t.process(core.MergeRecord(existing, a.data), a.id, true)
	if err != nil {
		return nil, err
	}
	if err := t.put(a.id, rec, true); err != nil {
		return nil, err
	}
	if err := t.validateTable(); err != nil {
		return nil, err
	}
	return a.id, nil
}

func (s *Store) updateManyAction(tx *txn.Tx, args ...interface{}) (interface{}, error) {
	a, err := argsOf[updateManyArgs](CmdUpdateMany, args)
	if err != nil {
		return nil, err
	}
	t := a.table
	s.backup(tx, t)

	for _, e := range a.entries {
		if e.Record == nil {
			if e.Identity != nil {
				t.remove(e.Identity)
			}
			continue
		}
		id := e.Identity
		if id == nil {
			if id, err = t.IdentityFor(e.Record); err != nil {
				return nil, err
			}
		}
		if err := core.CheckIdentity(id); err != nil {
			return nil, errors.Wrapf(err, "table %s", t.name)
		}
		existing, existed := t.Get(id)
		rec := core.CloneRecord(e.Record)
		if existed && !a.replace {
			rec = core.MergeRecord(existing, e.Record)
		}
		if rec, err = t.process(rec, id, existed); err != nil {
			return nil, err
		}
		if err := t.put(id, rec, existed); err != nil {
			return nil, err
		}
	}
	if err := t.validateTable(); err != nil {
		return nil, err
	}
	return len(a.entries), nil
}

func (s *Store) setFieldAction(tx *txn.Tx, args ...interface{}) (interface{}, error) {
	a, err := argsOf[setFieldArgs](CmdSetField, args)
	if err != nil {
		return nil, err
	}
	return tx.Perform(CmdUpdate, updateArgs{table: a.table, id: a.id, data: core.Record{a.field: a.value}})
}

func (s *Store) deleteAction(tx *txn.Tx, args ...interface{}) (interface{}, error) {
	a, err := argsOf[deleteArgs](CmdDelete, args)
	if err != nil {
		return nil, err
	}
	t := a.table
	s.backup(tx, t)

	if !t.remove(a.id) {
		return nil, errors.Wrapf(core.ErrRecordNotFound, "table %s, identity %v", t.name, a.id)
	}
	if err := t.validateTable(); err != nil {
		return nil, err
	}
	return a.id, nil
}

func (s *Store) generateAction(tx *txn.Tx, args ...interface{}) (interface{}, error) {
	a, err := argsOf[generateArgs](CmdGenerate, args)
	if err != nil {
		return nil, err
	}
	s.backup(tx, a.table)

	ids := make([]core.Identity, 0, a.n)
	for i := 0; i < a.n; i++ {
		rec, err := a.gen(i)
		if err != nil {
			return nil, errors.Wrapf(err, "table %s: generate record %d", a.table.name, i)
		}
		id, err := tx.Perform(CmdAdd, addArgs{table: a.table, rec: rec, replace: a.replace})
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) withBackupAction(tx *txn.Tx, args ...interface{}) (interface{}, error) {
	a, err := argsOf[withBackupArgs](CmdWithBackup, args)
	if err != nil {
		return nil, err
	}
	s.backupNames(tx, a.tables...)
	return nil, a.fn()
}
