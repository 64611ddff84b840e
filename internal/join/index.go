package join

import (
	"reflect"

	"github.com/rzpsarthak13/joinstore/internal/core"
)

// Index maps keys to lists of values, remembering the order keys were first
// added. Keys are compared after core.NormalizeKey.
type Index struct {
	entries map[interface{}][]interface{}
	order   []interface{}
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[interface{}][]interface{})}
}

// Len returns the number of keys.
func (ix *Index) Len() int { return len(ix.entries) }

// Has reports whether key has an entry.
func (ix *Index) Has(key interface{}) bool {
	if !core.IsComparable(key) {
		return false
	}
	_, ok := ix.entries[core.NormalizeKey(key)]
	return ok
}

// Get returns the values stored for key.
func (ix *Index) Get(key interface{}) []interface{} {
	if !core.IsComparable(key) {
		return nil
	}
	return ix.entries[core.NormalizeKey(key)]
}

// Keys returns every key in the order it was first added.
func (ix *Index) Keys() []interface{} {
	return append([]interface{}(nil), ix.order...)
}

// Set replaces the values for key.
func (ix *Index) Set(key interface{}, values []interface{}) {
	k := core.NormalizeKey(key)
	if _, ok := ix.entries[k]; !ok {
		ix.order = append(ix.order, key)
	}
	ix.entries[k] = values
}

// Add appends value under key unless an equal value is already there.
func (ix *Index) Add(key, value interface{}) {
	k := core.NormalizeKey(key)
	existing, ok := ix.entries[k]
	if !ok {
		ix.order = append(ix.order, key)
	}
	for _, v := range existing {
		if core.KeysEqual(v, value) {
			return
		}
	}
	ix.entries[k] = append(existing, value)
}

// ForEach visits keys in insertion order.
func (ix *Index) ForEach(fn func(key interface{}, values []interface{})) {
	for _, key := range ix.order {
		fn(key, ix.entries[core.NormalizeKey(key)])
	}
}

// BuildIndex maps every identity in table to the keys def extracts from its
// record. Records yielding no keys are left out.
func BuildIndex(table core.TableReader, def core.JoinDef) *Index {
	ix := NewIndex()
	table.ForEach(func(id core.Identity, rec core.Record) bool {
		if keys := ExtractKeys(def, id, rec); len(keys) > 0 {
			ix.Set(id, keys)
		}
		return true
	})
	return ix
}

// BuildReverseIndex inverts a forward index: key -> identities holding it.
func BuildReverseIndex(forward *Index) *Index {
	rev := NewIndex()
	forward.ForEach(func(id interface{}, keys []interface{}) {
		for _, key := range keys {
			rev.Add(key, id)
		}
	})
	return rev
}

// ExtractKeys returns the join keys of one record. A field holding a list
// yields one key per element; a missing or nil field yields none.
func ExtractKeys(def core.JoinDef, id core.Identity, rec core.Record) []interface{} {
	switch def.Kind {
	case core.ByIdentity:
		return []interface{}{id}
	case core.ByField:
		if rec == nil {
			return nil
		}
		v, ok := rec[def.Field]
		if !ok {
			return nil
		}
		return keysOf(v)
	case core.ByKeyGenerator:
		if def.KeyGen == nil {
			return nil
		}
		return usableKeys(def.KeyGen(rec, id))
	}
	return nil
}

func keysOf(v interface{}) []interface{} {
	if v == nil {
		return nil
	}
	if list, ok := v.([]interface{}); ok {
		return usableKeys(list)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		list := make([]interface{}, rv.Len())
		for i := range list {
			list[i] = rv.Index(i).Interface()
		}
		return usableKeys(list)
	}
	if !core.IsComparable(v) {
		return nil
	}
	return []interface{}{v}
}

func usableKeys(list []interface{}) []interface{} {
	out := make([]interface{}, 0, len(list))
	for _, k := range list {
		if k != nil && core.IsComparable(k) {
			out = append(out, k)
		}
	}
	return out
}

// union resolves mid keys through a reverse index, keeping the first
// occurrence of every identity.
func union(mid []interface{}, rev *Index) []core.Identity {
	seen := NewIndex()
	var out []core.Identity
	for _, key := range mid {
		for _, id := range rev.Get(key) {
			if seen.Has(id) {
				continue
			}
			seen.Set(id, nil)
			out = append(out, id)
		}
	}
	return out
}

func dedupe(ids []interface{}) []core.Identity {
	seen := NewIndex()
	out := make([]core.Identity, 0, len(ids))
	for _, id := range ids {
		if seen.Has(id) {
			continue
		}
		seen.Set(id, nil)
		out = append(out, id)
	}
	return out
}
