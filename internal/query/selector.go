package query

import (
	"slices"
)

// Selector is one stage of a query pipeline. Stages run in order, each over
// the previous stage's output.
type Selector interface {
	Select(items []*Item) []*Item
}

// Map replaces every item's value with the function's result. Identity and
// table are kept.
type Map func(item *Item) interface{}

// Select implements Selector.
func (m Map) Select(items []*Item) []*Item {
	out := make([]*Item, len(items))
	for n, item := range items {
		out[n] = item.withValue(m(item))
	}
	return out
}

// Sort stable-sorts items by their values. The comparator returns a
// negative number when a sorts before b.
type Sort func(a, b interface{}) int

// Select implements Selector.
func (s Sort) Select(items []*Item) []*Item {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b *Item) int {
		return s(a.Value(), b.Value())
	})
	return out
}

// Choose walks items in their current order. Items at positions before From
// or at and after Until are skipped, as are items Filter rejects; the walk
// stops once Count items are chosen. Zero Until and Count mean no bound.
type Choose struct {
	Filter func(item *Item) bool
	From   int
	Until  int
	Count  int
}

// Select implements Selector.
func (c Choose) Select(items []*Item) []*Item {
	out := make([]*Item, 0, len(items))
	for n, item := range items {
		if n < c.From {
			continue
		}
		if c.Until > 0 && n >= c.Until {
			break
		}
		if c.Filter != nil && !c.Filter(item) {
			continue
		}
		out = append(out, item)
		if c.Count > 0 && len(out) == c.Count {
			break
		}
	}
	return out
}

// Filter is shorthand for Choose{Filter: fn}.
func Filter(fn func(item *Item) bool) Choose { return Choose{Filter: fn} }

// Limit is shorthand for Choose{Count: n}.
func Limit(n int) Choose { return Choose{Count: n} }

func apply(items []*Item, sel []Selector) []*Item {
	for _, s := range sel {
		items = s.Select(items)
	}
	return items
}
