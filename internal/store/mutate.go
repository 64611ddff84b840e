package store

import (
	"github.com/rzpsarthak13/joinstore/internal/core"
)

// AddOption adjusts Table.Add.
type AddOption func(*addArgs)

// WithIdentity stores the record under id instead of deriving one.
func WithIdentity(id core.Identity) AddOption {
	return func(a *addArgs) { a.id = id }
}

// Replace lets Add overwrite an existing record.
func Replace() AddOption {
	return func(a *addArgs) { a.replace = true }
}

// Add inserts rec and returns its identity. Adding an identity that is
// already present fails with ErrRecordExists unless Replace is given.
func (t *Table) Add(rec core.Record, opts ...AddOption) (core.Identity, error) {
	a := addArgs{table: t, rec: rec}
	for _, opt := range opts {
		opt(&a)
	}
	return t.store.coord.Perform(CmdAdd, a)
}

// Update merges data into the record stored under id. A missing record is
// added when upsert is set and is an ErrRecordNotFound otherwise.
func (t *Table) Update(id core.Identity, data core.Record, upsert bool) error {
	_, err := t.store.coord.Perform(CmdUpdate, updateArgs{table: t, id: id, data: data, upsert: upsert})
	return err
}

// UpdateMany writes every entry or none. Entries are merged into existing
// records unless replace is set; an entry with a nil Record deletes its
// identity, and one with a nil Identity derives it from the record.
func (t *Table) UpdateMany(entries []core.Entry, replace bool) error {
	_, err := t.store.coord.Perform(CmdUpdateMany, updateManyArgs{table: t, entries: entries, replace: replace})
	return err
}

// SetField sets one field of an existing record.
func (t *Table) SetField(id core.Identity, field string, value interface{}) error {
	_, err := t.store.coord.Perform(CmdSetField, setFieldArgs{table: t, id: id, field: field, value: value})
	return err
}

// Delete removes the record stored under id.
func (t *Table) Delete(id core.Identity) error {
	_, err := t.store.coord.Perform(CmdDelete, deleteArgs{table: t, id: id})
	return err
}

// Generate adds n records built by gen and returns their identities.
func (t *Table) Generate(n int, gen func(i int) (core.Record, error), replace bool) ([]core.Identity, error) {
	out, err := t.store.coord.Perform(CmdGenerate, generateArgs{table: t, n: n, gen: gen, replace: replace})
	if err != nil {
		return nil, err
	}
	return out.([]core.Identity), nil
}
