package join

import (
	"reflect"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
)

// Pair names a far-side record for LinkMany. Record, when set, is upserted
// into the far table; Identity, when nil, is derived from Record.
type Pair struct {
	Identity core.Identity
	Record   core.Record
}

func (j *Join) violation(format string, args ...interface{}) error {
	return errors.Wrapf(core.ErrStrategyViolation, "join %s (%s): "+format, append([]interface{}{j.name, j.strategy}, args...)...)
}

func (j *Join) lookup(s *Side, id core.Identity) (core.Record, error) {
	t, err := j.table(s)
	if err != nil {
		return nil, err
	}
	rec, ok := t.Get(id)
	if !ok {
		return nil, errors.Wrapf(core.ErrRecordNotFound, "join %s: %s has no record %v", j.name, s.TableName(), id)
	}
	return rec, nil
}

// Link relates fromID to toID according to the join strategy. Both records
// must exist.
func (j *Join) Link(fromID, toID core.Identity) error {
	fromRec, err := j.lookup(j.from, fromID)
	if err != nil {
		return err
	}
	toRec, err := j.lookup(j.to, toID)
	if err != nil {
		return err
	}

	switch j.strategy {
	case core.StrategyFieldIdentity:
		return j.writeKey(j.from, fromID, fromRec, toID)
	case core.StrategyIdentityField:
		return j.writeKey(j.to, toID, toRec, fromID)
	case core.StrategyIdentityViaIdentity:
		return j.linkVia(fromID, toID)
	case core.StrategyIdentityIdentity:
		if !core.KeysEqual(fromID, toID) {
			return j.violation("identities %v and %v differ", fromID, toID)
		}
		return nil
	case core.StrategyFieldField:
		if !sharesKey(ExtractKeys(j.from.def, fromID, fromRec), ExtractKeys(j.to.def, toID, toRec)) {
			return j.violation("%v and %v do not share a key", fromID, toID)
		}
		return nil
	}
	return j.violation("unsupported strategy")
}

// writeKey stores key in the side's field. A field already holding a list
// gains the key instead of being replaced.
func (j *Join) writeKey(s *Side, id core.Identity, rec core.Record, key core.Identity) error {
	if !s.def.Writable() {
		return j.violation("%s side of %s has no writable field", s.direction, s.TableName())
	}
	value := interface{}(key)
	if list, ok := asList(rec[s.def.Field]); ok {
		for _, k := range list {
			if core.KeysEqual(k, key) {
				return nil
			}
		}
		value = append(list, key)
	}
	return j.catalog.SetField(s.TableName(), id, s.def.Field, value)
}

func (j *Join) linkVia(fromID, toID core.Identity) error {
	fromField, toField := j.from.TableName(), j.to.TableName()
	if err := j.catalog.EnsureAssociation(j.viaTable, fromField, toField); err != nil {
		return errors.Wrapf(err, "join %s", j.name)
	}
	via, err := j.catalog.Table(j.viaTable)
	if err != nil {
		return err
	}
	id := ViaIdentity(fromID, toID)
	if via.Has(id) {
		return nil
	}
	return j.catalog.Add(j.viaTable, id, core.Record{fromField: fromID, toField: toID})
}

// Unlink removes the relation between fromID and toID. Relations that only
// describe existing data (identity-identity, field-field) cannot be removed.
func (j *Join) Unlink(fromID, toID core.Identity) error {
	switch j.strategy {
	case core.StrategyIdentityViaIdentity:
		return j.unlinkVia(fromID, toID)
	case core.StrategyFieldIdentity:
		rec, err := j.lookup(j.from, fromID)
		if err != nil {
			return err
		}
		return j.clearKey(j.from, fromID, rec, toID)
	case core.StrategyIdentityField:
		rec, err := j.lookup(j.to, toID)
		if err != nil {
			return err
		}
		return j.clearKey(j.to, toID, rec, fromID)
	}
	return j.violation("cannot unlink %v from %v", fromID, toID)
}

func (j *Join) clearKey(s *Side, id core.Identity, rec core.Record, key core.Identity) error {
	if !s.def.Writable() {
		return j.violation("%s side of %s has no writable field", s.direction, s.TableName())
	}
	current, ok := rec[s.def.Field]
	if !ok {
		return nil
	}
	if list, isList := asList(current); isList {
		kept := make([]interface{}, 0, len(list))
		for _, k := range list {
			if !core.KeysEqual(k, key) {
				kept = append(kept, k)
			}
		}
		if len(kept) == len(list) {
			return nil
		}
		return j.catalog.SetField(s.TableName(), id, s.def.Field, kept)
	}
	if !core.KeysEqual(current, key) {
		return nil
	}
	next := core.CloneRecord(rec)
	delete(next, s.def.Field)
	return j.catalog.UpdateMany(s.TableName(), []core.Entry{{Identity: id, Record: next}}, true)
}

// unlinkVia deletes the first association record pairing the two identities.
func (j *Join) unlinkVia(fromID, toID core.Identity) error {
	if !j.catalog.HasTable(j.viaTable) {
		return nil
	}
	via, err := j.catalog.Table(j.viaTable)
	if err != nil {
		return err
	}
	fromField, toField := j.from.TableName(), j.to.TableName()
	var match core.Identity
	via.ForEach(func(id core.Identity, rec core.Record) bool {
		if core.KeysEqual(rec[fromField], fromID) && core.KeysEqual(rec[toField], toID) {
			match = id
			return false
		}
		return true
	})
	if match == nil {
		return nil
	}
	return j.catalog.Delete(j.viaTable, match)
}

// LinkMany relates the record id, which lives on side d, to every pair on
// the far side. Far records given with a Record are upserted first. Every
// table involved is backed up before anything is written.
func (j *Join) LinkMany(id core.Identity, d core.Direction, pairs []Pair) error {
	near, far := j.Side(d), j.Side(d.Opposite())

	tables := j.Tables()
	if j.IsVia() {
		if err := j.catalog.EnsureAssociation(j.viaTable, j.from.TableName(), j.to.TableName()); err != nil {
			return errors.Wrapf(err, "join %s", j.name)
		}
	}

	return j.catalog.WithBackup(tables, func() error {
		nearRec, err := j.lookup(near, id)
		if err != nil {
			return err
		}

		switch {
		case j.IsVia():
			return j.linkManyVia(id, d, pairs)
		case j.strategy == core.StrategyFieldField:
			value, ok := nearRec[near.def.Field]
			if !near.def.Writable() || !ok || value == nil {
				return j.violation("%v has no %s to share", id, near.def.Field)
			}
			return j.assign(far, pairs, value)
		case near.IsIdentity() && far.def.Writable():
			return j.assign(far, pairs, id)
		}
		return j.violation("linkMany from the %s side is not supported", d)
	})
}

func (j *Join) linkManyVia(id core.Identity, d core.Direction, pairs []Pair) error {
	far := j.Side(d.Opposite())
	entries, err := j.resolvePairs(far, pairs, nil)
	if err != nil {
		return err
	}
	if err := j.upsert(far, entries, pairs); err != nil {
		return err
	}
	for _, e := range entries {
		fromID, toID := id, e.Identity
		if d == core.DirectionTo {
			fromID, toID = e.Identity, id
		}
		if err := j.linkVia(fromID, toID); err != nil {
			return err
		}
	}
	return nil
}

// assign writes value into the far field of every pair in one UpdateMany.
func (j *Join) assign(far *Side, pairs []Pair, value interface{}) error {
	entries, err := j.resolvePairs(far, pairs, core.Record{far.def.Field: value})
	if err != nil {
		return err
	}
	return j.catalog.UpdateMany(far.TableName(), entries, false)
}

func (j *Join) upsert(far *Side, entries []core.Entry, pairs []Pair) error {
	var fresh []core.Entry
	for i, p := range pairs {
		if p.Record != nil {
			fresh = append(fresh, entries[i])
		}
	}
	if len(fresh) == 0 {
		return nil
	}
	return j.catalog.UpdateMany(far.TableName(), fresh, false)
}

// resolvePairs fills in identities and records, merging patch into each.
func (j *Join) resolvePairs(far *Side, pairs []Pair, patch core.Record) ([]core.Entry, error) {
	entries := make([]core.Entry, 0, len(pairs))
	for _, p := range pairs {
		rec, id := p.Record, p.Identity
		if rec == nil {
			if id == nil {
				return nil, j.violation("pair has neither identity nor record")
			}
			existing, err := j.lookup(far, id)
			if err != nil {
				return nil, err
			}
			rec = existing
		}
		if id == nil {
			derived, err := j.catalog.IdentityFor(far.TableName(), rec)
			if err != nil {
				return nil, err
			}
			id = derived
		}
		entries = append(entries, core.Entry{Identity: id, Record: core.MergeRecord(rec, patch)})
	}
	return entries, nil
}

func sharesKey(a, b []interface{}) bool {
	for _, x := range a {
		for _, y := range b {
			if core.KeysEqual(x, y) {
				return true
			}
		}
	}
	return false
}

func asList(v interface{}) ([]interface{}, bool) {
	if v == nil {
		return nil, false
	}
	if list, ok := v.([]interface{}); ok {
		return append([]interface{}(nil), list...), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	list := make([]interface{}, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}
	return list, true
}
