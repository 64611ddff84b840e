package join

import "github.com/rzpsarthak13/joinstore/internal/core"

// Identities resolves the identities on the far side of the join related to
// id, which lives on side d. Unknown identities resolve to nothing.
func (j *Join) Identities(d core.Direction, id core.Identity) ([]core.Identity, error) {
	near, far := j.Side(d), j.Side(d.Opposite())

	ix, err := j.index(near)
	if err != nil {
		return nil, err
	}
	mid := ix.Get(id)
	if len(mid) == 0 {
		return nil, nil
	}
	if far.IsIdentity() || j.IsVia() {
		return dedupe(mid), nil
	}

	rev, err := j.reverseIndex(far)
	if err != nil {
		return nil, err
	}
	return union(mid, rev), nil
}

// ToIdentities resolves to-side identities related to a from identity.
func (j *Join) ToIdentities(fromID core.Identity) ([]core.Identity, error) {
	return j.Identities(core.DirectionFrom, fromID)
}

// FromIdentities resolves from-side identities related to a to identity.
func (j *Join) FromIdentities(toID core.Identity) ([]core.Identity, error) {
	return j.Identities(core.DirectionTo, toID)
}

// Entries resolves related identities and loads their records, dropping any
// the far table no longer holds.
func (j *Join) Entries(d core.Direction, id core.Identity) ([]core.Entry, error) {
	ids, err := j.Identities(d, id)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	t, err := j.table(j.Side(d.Opposite()))
	if err != nil {
		return nil, err
	}
	out := make([]core.Entry, 0, len(ids))
	for _, rid := range ids {
		if !t.Has(rid) {
			continue
		}
		rec, _ := t.Get(rid)
		out = append(out, core.Entry{Identity: rid, Record: rec})
	}
	return out, nil
}

// ToRecordsArray returns the to-side records related to fromID.
func (j *Join) ToRecordsArray(fromID core.Identity) ([]core.Record, error) {
	return j.records(core.DirectionFrom, fromID)
}

// FromRecordsArray returns the from-side records related to toID.
func (j *Join) FromRecordsArray(toID core.Identity) ([]core.Record, error) {
	return j.records(core.DirectionTo, toID)
}

func (j *Join) records(d core.Direction, id core.Identity) ([]core.Record, error) {
	entries, err := j.Entries(d, id)
	if err != nil {
		return nil, err
	}
	out := make([]core.Record, len(entries))
	for i, e := range entries {
		out[i] = e.Record
	}
	return out, nil
}

// IdentitiesMap resolves every id in ids, omitting those with no relations.
// The result is keyed by the identities as passed in.
func (j *Join) IdentitiesMap(d core.Direction, ids []core.Identity) (map[core.Identity][]core.Identity, error) {
	out := make(map[core.Identity][]core.Identity)
	for _, id := range ids {
		if !core.IsComparable(id) {
			continue
		}
		related, err := j.Identities(d, id)
		if err != nil {
			return nil, err
		}
		if len(related) > 0 {
			out[id] = related
		}
	}
	return out, nil
}

// ToIdentitiesMap is IdentitiesMap from the from side.
func (j *Join) ToIdentitiesMap(fromIDs []core.Identity) (map[core.Identity][]core.Identity, error) {
	return j.IdentitiesMap(core.DirectionFrom, fromIDs)
}

// FromIdentitiesMap is IdentitiesMap from the to side.
func (j *Join) FromIdentitiesMap(toIDs []core.Identity) (map[core.Identity][]core.Identity, error) {
	return j.IdentitiesMap(core.DirectionTo, toIDs)
}
