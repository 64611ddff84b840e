// Package collection implements the ordered keyed storage behind every table.
//
// Records live in persistent maps, so a Snapshot is a pair of pointers and
// restoring one is constant time. Transaction backups rely on this: a command
// can snapshot every table it might touch before mutating any of them.
package collection

import (
	"github.com/benbjohnson/immutable"
	"github.com/rzpsarthak13/joinstore/internal/core"
)

type entry struct {
	seq uint64
	id  core.Identity
	rec core.Record
}

// Collection is an insertion-ordered identity -> record map. It is not safe
// for concurrent mutation.
type Collection struct {
	byID  *immutable.Map[string, *entry]       // encoded identity -> entry
	order *immutable.SortedMap[uint64, string] // seq -> encoded identity
	next  uint64
}

// Snapshot is an immutable view of a collection at one point in time.
type Snapshot struct {
	byID  *immutable.Map[string, *entry]
	order *immutable.SortedMap[uint64, string]
	next  uint64
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int { return s.byID.Len() }

// New returns an empty collection.
func New() *Collection {
	return &Collection{
		byID:  immutable.NewMap[string, *entry](&keyHasher{}),
		order: immutable.NewSortedMap[uint64, string](&seqComparer{}),
	}
}

// Len returns the number of records.
func (c *Collection) Len() int { return c.byID.Len() }

func (c *Collection) lookup(id core.Identity) (*entry, bool) {
	if !core.IsComparable(id) {
		return nil, false
	}
	return c.byID.Get(keyOf(id))
}

// Has reports whether id is stored.
func (c *Collection) Has(id core.Identity) bool {
	_, ok := c.lookup(id)
	return ok
}

// Get returns the record stored under id. The record is shared with the
// collection and must not be modified.
func (c *Collection) Get(id core.Identity) (core.Record, bool) {
	e, ok := c.lookup(id)
	if !ok {
		return nil, false
	}
	return e.rec, true
}

// Identity returns the identity as it was first stored, which may differ in
// type from an equal lookup key.
func (c *Collection) Identity(id core.Identity) (core.Identity, bool) {
	e, ok := c.lookup(id)
	if !ok {
		return nil, false
	}
	return e.id, true
}

// Set stores rec under id. A replaced record keeps its position.
func (c *Collection) Set(id core.Identity, rec core.Record) error {
	if err := core.CheckIdentity(id); err != nil {
		return err
	}
	key := keyOf(id)
	if old, ok := c.byID.Get(key); ok {
		c.byID = c.byID.Set(key, &entry{seq: old.seq, id: old.id, rec: rec})
		return nil
	}
	seq := c.next
	c.next++
	c.byID = c.byID.Set(key, &entry{seq: seq, id: id, rec: rec})
	c.order = c.order.Set(seq, key)
	return nil
}

// Delete removes id and reports whether it was present.
func (c *Collection) Delete(id core.Identity) bool {
	e, ok := c.lookup(id)
	if !ok {
		return false
	}
	c.byID = c.byID.Delete(keyOf(id))
	c.order = c.order.Delete(e.seq)
	return true
}

// ForEach calls fn for every record in insertion order until fn returns false.
func (c *Collection) ForEach(fn func(id core.Identity, rec core.Record) bool) {
	forEach(c.byID, c.order, fn)
}

func forEach(byID *immutable.Map[string, *entry], order *immutable.SortedMap[uint64, string], fn func(id core.Identity, rec core.Record) bool) {
	itr := order.Iterator()
	for !itr.Done() {
		_, key, _ := itr.Next()
		e, ok := byID.Get(key)
		if !ok {
			continue
		}
		if !fn(e.id, e.rec) {
			return
		}
	}
}

// Keys returns every identity in insertion order.
func (c *Collection) Keys() []core.Identity {
	keys := make([]core.Identity, 0, c.Len())
	c.ForEach(func(id core.Identity, _ core.Record) bool {
		keys = append(keys, id)
		return true
	})
	return keys
}

// Entries returns every identity and record in insertion order.
func (c *Collection) Entries() []core.Entry {
	out := make([]core.Entry, 0, c.Len())
	c.ForEach(func(id core.Identity, rec core.Record) bool {
		out = append(out, core.Entry{Identity: id, Record: rec})
		return true
	})
	return out
}

// Snapshot captures the current contents.
func (c *Collection) Snapshot() *Snapshot {
	return &Snapshot{byID: c.byID, order: c.order, next: c.next}
}

// Restore replaces the contents with a snapshot taken earlier.
func (c *Collection) Restore(s *Snapshot) {
	c.byID, c.order, c.next = s.byID, s.order, s.next
}

// Clear removes every record.
func (c *Collection) Clear() {
	c.byID = immutable.NewMap[string, *entry](&keyHasher{})
	c.order = immutable.NewSortedMap[uint64, string](&seqComparer{})
}

// Get reads from the snapshot.
func (s *Snapshot) Get(id core.Identity) (core.Record, bool) {
	if !core.IsComparable(id) {
		return nil, false
	}
	e, ok := s.byID.Get(keyOf(id))
	if !ok {
		return nil, false
	}
	return e.rec, true
}

// ForEach iterates the snapshot in insertion order.
func (s *Snapshot) ForEach(fn func(id core.Identity, rec core.Record) bool) {
	forEach(s.byID, s.order, fn)
}
