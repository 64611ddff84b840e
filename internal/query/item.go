package query

import (
	"github.com/rzpsarthak13/joinstore/internal/core"
)

// Item is one row of a query result. Its value is read from the table the
// first time it is asked for.
type Item struct {
	table    core.TableReader
	identity core.Identity

	value    interface{}
	resolved bool

	joins     map[string][]*Item
	joinOrder []string
}

// NewItem returns an unresolved item for id in t.
func NewItem(t core.TableReader, id core.Identity) *Item {
	return &Item{table: t, identity: id}
}

// Table returns the name of the table the item came from.
func (i *Item) Table() string { return i.table.Name() }

// Identity returns the record identity.
func (i *Item) Identity() core.Identity { return i.identity }

// Exists reports whether the record is still in its table.
func (i *Item) Exists() bool { return i.table.Has(i.identity) }

// Value returns the record, or whatever a map selector replaced it with.
// A record missing from the table resolves to nil.
func (i *Item) Value() interface{} {
	if !i.resolved {
		if rec, ok := i.table.Get(i.identity); ok {
			i.value = rec
		}
		i.resolved = true
	}
	return i.value
}

// Record returns Value as a record, if it is one.
func (i *Item) Record() (core.Record, bool) {
	rec, ok := i.Value().(core.Record)
	return rec, ok
}

// Joins returns the attached join results by join name.
func (i *Item) Joins() map[string][]*Item { return i.joins }

// Join returns the items attached under name.
func (i *Item) Join(name string) ([]*Item, bool) {
	items, ok := i.joins[name]
	return items, ok
}

func (i *Item) attach(name string, items []*Item) {
	if i.joins == nil {
		i.joins = make(map[string][]*Item)
	}
	if _, ok := i.joins[name]; !ok {
		i.joinOrder = append(i.joinOrder, name)
	}
	i.joins[name] = items
}

func (i *Item) withValue(v interface{}) *Item {
	next := *i
	next.value, next.resolved = v, true
	return &next
}

// ItemJSON is the serialized form of an Item.
type ItemJSON struct {
	T     string                `json:"t"`
	ID    interface{}           `json:"id"`
	Val   interface{}           `json:"val"`
	Joins map[string][]ItemJSON `json:"$,omitempty"`
}

// JSON converts the item and its attached joins.
func (i *Item) JSON() ItemJSON {
	out := ItemJSON{T: i.Table(), ID: i.identity, Val: i.Value()}
	if len(i.joinOrder) > 0 {
		out.Joins = make(map[string][]ItemJSON, len(i.joinOrder))
		for _, name := range i.joinOrder {
			out.Joins[name] = toJSON(i.joins[name])
		}
	}
	return out
}

func toJSON(items []*Item) []ItemJSON {
	out := make([]ItemJSON, len(items))
	for n, item := range items {
		out[n] = item.JSON()
	}
	return out
}
