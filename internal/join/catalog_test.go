package join

import (
	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/collection"
	"github.com/rzpsarthak13/joinstore/internal/core"
)

// memTable and memCatalog are a bare in-memory Catalog so joins can be
// exercised without the store.
type memTable struct {
	name    string
	idField string
	coll    *collection.Collection
}

func (t *memTable) Name() string                            { return t.name }
func (t *memTable) Has(id core.Identity) bool               { return t.coll.Has(id) }
func (t *memTable) Get(id core.Identity) (core.Record, bool) { return t.coll.Get(id) }
func (t *memTable) Size() int                               { return t.coll.Len() }
func (t *memTable) ForEach(fn func(core.Identity, core.Record) bool) {
	t.coll.ForEach(fn)
}

type memCatalog struct {
	tables map[string]*memTable
	writes int
}

func newMemCatalog() *memCatalog {
	return &memCatalog{tables: make(map[string]*memTable)}
}

func (c *memCatalog) addTable(name, idField string, recs ...core.Record) *memTable {
	t := &memTable{name: name, idField: idField, coll: collection.New()}
	for _, rec := range recs {
		_ = t.coll.Set(rec[idField], rec)
	}
	c.tables[name] = t
	return t
}

func (c *memCatalog) Table(name string) (core.TableReader, error) {
	t, ok := c.tables[name]
	if !ok {
		return nil, errors.Wrapf(core.ErrTableNotFound, "%q", name)
	}
	return t, nil
}

func (c *memCatalog) HasTable(name string) bool {
	_, ok := c.tables[name]
	return ok
}

func (c *memCatalog) EnsureAssociation(name, fromField, toField string) error {
	if !c.HasTable(name) {
		c.addTable(name, "")
	}
	return nil
}

func (c *memCatalog) IdentityFor(table string, rec core.Record) (core.Identity, error) {
	t := c.tables[table]
	id, ok := rec[t.idField]
	if !ok {
		return nil, errors.Wrap(core.ErrInvalidIdentity, "missing identity field")
	}
	return id, nil
}

func (c *memCatalog) Add(table string, id core.Identity, rec core.Record) error {
	c.writes++
	t := c.tables[table]
	if t.coll.Has(id) {
		return core.ErrRecordExists
	}
	return t.coll.Set(id, rec)
}

func (c *memCatalog) SetField(table string, id core.Identity, field string, value interface{}) error {
	c.writes++
	t := c.tables[table]
	rec, ok := t.coll.Get(id)
	if !ok {
		return core.ErrRecordNotFound
	}
	return t.coll.Set(id, core.MergeRecord(rec, core.Record{field: value}))
}

func (c *memCatalog) UpdateMany(table string, entries []core.Entry, replace bool) error {
	c.writes++
	t := c.tables[table]
	for _, e := range entries {
		rec := e.Record
		if existing, ok := t.coll.Get(e.Identity); ok && !replace {
			rec = core.MergeRecord(existing, rec)
		}
		if err := t.coll.Set(e.Identity, rec); err != nil {
			return err
		}
	}
	return nil
}

func (c *memCatalog) Delete(table string, id core.Identity) error {
	c.writes++
	c.tables[table].coll.Delete(id)
	return nil
}

func (c *memCatalog) WithBackup(tables []string, fn func() error) error {
	snaps := make(map[string]*collection.Snapshot)
	for _, name := range tables {
		if t, ok := c.tables[name]; ok {
			snaps[name] = t.coll.Snapshot()
		}
	}
	if err := fn(); err != nil {
		for name, s := range snaps {
			c.tables[name].coll.Restore(s)
		}
		return err
	}
	return nil
}
