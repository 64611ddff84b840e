package query_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/query"
	"github.com/rzpsarthak13/joinstore/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var genders = map[int]string{
	100: "M", 101: "M", 102: "F", 103: "M", 104: "F",
	105: "M", 106: "M", 107: "M", 108: "F", 109: "M",
}

var ages = map[int]int{
	100: 18, 101: 25, 102: 30, 103: 19, 104: 41,
	105: 22, 106: 35, 107: 17, 108: 28, 109: 50,
}

func newPeople(t *testing.T) *store.Store {
	t.Helper()
	s := store.New()
	load := func(cfg store.TableConfig, recs ...core.Record) {
		_, err := s.AddTable(cfg)
		require.NoError(t, err)
		require.NoError(t, s.Load(cfg.Name, recs))
	}

	var users []core.Record
	for id := 100; id <= 109; id++ {
		rec := core.Record{"id": id, "gender": genders[id], "age": ages[id]}
		switch id {
		case 100, 102:
			rec["address"] = 210
		case 101:
			rec["address"] = 220
		}
		users = append(users, rec)
	}
	load(store.TableConfig{Name: "users", IdentityField: "id"}, users...)
	load(store.TableConfig{Name: "addresses", IdentityField: "id"},
		core.Record{"id": 210, "state": "CA"},
		core.Record{"id": 220, "state": "OR"},
	)
	load(store.TableConfig{Name: "states", IdentityField: "abbr"},
		core.Record{"abbr": "CA", "name": "California"},
		core.Record{"abbr": "OR", "name": "Oregon"},
	)
	for _, cfg := range []core.JoinConfig{
		{Name: "userAddresses", From: core.FieldDef("users", "address"), To: core.IdentityDef("addresses")},
		{Name: "addressStates", From: core.FieldDef("addresses", "state"), To: core.IdentityDef("states")},
	} {
		_, err := s.AddJoin(cfg)
		require.NoError(t, err)
	}
	return s
}

func ids(t *testing.T, q *query.Query) []core.Identity {
	t.Helper()
	items, err := q.Value()
	require.NoError(t, err)
	out := make([]core.Identity, len(items))
	for i, item := range items {
		out[i] = item.Identity()
	}
	return out
}

func field(item *query.Item, name string) interface{} {
	rec, _ := item.Record()
	return rec[name]
}

var women = query.Filter(func(item *query.Item) bool { return field(item, "gender") == "F" })

// womenFirst orders by gender only, so ties keep their current order.
var womenFirst = query.Sort(func(a, b interface{}) int {
	rank := func(v interface{}) int {
		if v.(core.Record)["gender"] == "F" {
			return 0
		}
		return 1
	}
	return rank(a) - rank(b)
})

func TestChoose(t *testing.T) {
	s := newPeople(t)
	run := func(sel ...query.Selector) []core.Identity {
		return ids(t, s.Query(query.Def{Table: "users", Sel: sel}))
	}

	assert.Equal(t, []core.Identity{102, 104, 108}, run(women))
	assert.Equal(t, []core.Identity{103, 104, 105, 106, 107, 108, 109}, run(query.Choose{From: 3}))
	assert.Equal(t, []core.Identity{100, 101, 102, 103, 104, 105}, run(query.Choose{Until: 6}))
	assert.Equal(t, []core.Identity{100, 101, 102, 103}, run(query.Limit(4)))
	assert.Equal(t, []core.Identity{104, 108}, run(query.Choose{Filter: women.Filter, From: 3, Until: 9}))
	assert.Equal(t, []core.Identity{102}, run(query.Choose{Filter: women.Filter, Count: 1}))
}

func TestSelectorOrderMatters(t *testing.T) {
	s := newPeople(t)
	run := func(sel ...query.Selector) []core.Identity {
		return ids(t, s.Query(query.Def{Table: "users", Sel: sel}))
	}

	sortThenCount := run(womenFirst, query.Limit(6))
	countThenSort := run(query.Limit(6), womenFirst)
	assert.Equal(t, []core.Identity{102, 104, 108, 100, 101, 103}, sortThenCount)
	assert.Equal(t, []core.Identity{102, 104, 100, 101, 103, 105}, countThenSort)
	assert.NotEqual(t, sortThenCount, countThenSort)

	adults := query.Filter(func(item *query.Item) bool { return field(item, "age").(int) > 20 })
	assert.Equal(t, []core.Identity{102, 104, 101, 105}, run(query.Limit(6), womenFirst, adults))
}

func TestMapKeepsIdentity(t *testing.T) {
	s := newPeople(t)
	items, err := s.Query(query.Def{
		Table: "users",
		Sel: []query.Selector{
			women,
			query.Map(func(item *query.Item) interface{} { return field(item, "age") }),
		},
	}).Value()
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, 102, items[0].Identity())
	assert.Equal(t, 30, items[0].Value())
	assert.Equal(t, "users", items[0].Table())

	rec, ok := items[0].Record()
	assert.False(t, ok)
	assert.Nil(t, rec)

	stored, _ := mustTable(t, s, "users").Get(102)
	assert.Equal(t, "F", stored["gender"], "mapping does not touch stored records")
}

func mustTable(t *testing.T, s *store.Store, name string) *store.Table {
	t.Helper()
	tbl, err := s.Table(name)
	require.NoError(t, err)
	return tbl
}

func TestDeepJoin(t *testing.T) {
	s := newPeople(t)
	out, err := s.Query(query.Def{
		Table: "users",
		Sel:   []query.Selector{query.Limit(1)},
		Joins: []query.JoinSpec{{
			JoinName: "userAddresses",
			Joins:    []query.JoinSpec{{JoinName: "addressStates"}},
		}},
	}).JSON()
	require.NoError(t, err)

	want := []query.ItemJSON{{
		T:   "users",
		ID:  100,
		Val: core.Record{"id": 100, "gender": "M", "age": 18, "address": 210},
		Joins: map[string][]query.ItemJSON{
			"userAddresses": {{
				T:   "addresses",
				ID:  210,
				Val: core.Record{"id": 210, "state": "CA"},
				Joins: map[string][]query.ItemJSON{
					"addressStates": {{
						T:   "states",
						ID:  "CA",
						Val: core.Record{"abbr": "CA", "name": "California"},
					}},
				},
			}},
		},
	}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("query JSON mismatch (-want +got):\n%s", diff)
	}
}

func TestJoinByTableName(t *testing.T) {
	s := newPeople(t)
	items, err := s.Query(query.Def{
		Table: "addresses",
		Joins: []query.JoinSpec{{TableName: "users", Sel: []query.Selector{womenFirst}}},
	}).Value()
	require.NoError(t, err)
	require.Len(t, items, 2)

	related, ok := items[0].Join("userAddresses")
	require.True(t, ok)
	got := make([]core.Identity, len(related))
	for i, item := range related {
		got[i] = item.Identity()
	}
	assert.Equal(t, []core.Identity{102, 100}, got)
}

func TestItemsWithoutRelationsHaveNoEntry(t *testing.T) {
	s := newPeople(t)
	items, err := s.Query(query.Def{
		Table: "users",
		Joins: []query.JoinSpec{{JoinName: "userAddresses"}},
	}).Value()
	require.NoError(t, err)

	_, ok := items[3].Join("userAddresses")
	assert.False(t, ok)
	assert.Nil(t, items[3].JSON().Joins)

	data, err := json.Marshal(items[3].JSON())
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"$"`)

	data, err = json.Marshal(items[0].JSON())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"$":{"userAddresses":[{"t":"addresses","id":210`)
}

func TestFilteredOutJoinsHaveNoEntry(t *testing.T) {
	s := newPeople(t)
	items, err := s.Query(query.Def{
		Table: "users",
		Joins: []query.JoinSpec{{
			JoinName: "userAddresses",
			Sel:      []query.Selector{query.Filter(func(*query.Item) bool { return false })},
		}},
	}).Value()
	require.NoError(t, err)

	for _, item := range items {
		_, ok := item.Join("userAddresses")
		assert.False(t, ok, "user %v", item.Identity())
		assert.Nil(t, item.JSON().Joins)
	}
}

func TestItemExists(t *testing.T) {
	s := newPeople(t)
	items, err := s.Query(query.Def{Table: "users"}).Value()
	require.NoError(t, err)
	require.True(t, items[0].Exists())

	users, err := s.Table("users")
	require.NoError(t, err)
	require.NoError(t, users.Delete(100))

	assert.False(t, items[0].Exists())
	assert.Nil(t, items[0].Value())
	assert.True(t, items[1].Exists())
}

func TestQueryErrors(t *testing.T) {
	s := newPeople(t)

	_, err := s.Query(query.Def{Table: "nope"}).Value()
	assert.True(t, errors.Is(err, core.ErrTableNotFound))

	_, err = s.Query(query.Def{Table: "users", Joins: []query.JoinSpec{{JoinName: "nope"}}}).Value()
	assert.True(t, errors.Is(err, core.ErrJoinNotFound))

	_, err = s.Query(query.Def{Table: "users", Joins: []query.JoinSpec{{TableName: "states"}}}).Value()
	assert.True(t, errors.Is(err, core.ErrJoinNotFound))

	_, err = s.AddJoin(core.JoinConfig{Name: "homes", From: core.FieldDef("users", "home"), To: core.IdentityDef("addresses")})
	require.NoError(t, err)
	_, err = s.Query(query.Def{Table: "users", Joins: []query.JoinSpec{{TableName: "addresses"}}}).Value()
	assert.True(t, errors.Is(err, core.ErrAmbiguousJoin))

	_, err = s.Query(query.Def{Table: "users", Joins: []query.JoinSpec{{}}}).Value()
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))
}

func TestValueIsMemoized(t *testing.T) {
	s := newPeople(t)
	q := s.Query(query.Def{Table: "users", Sel: []query.Selector{women}})
	first := ids(t, q)

	require.NoError(t, mustTable(t, s, "users").SetField(100, "gender", "F"))
	assert.Equal(t, first, ids(t, q))
	assert.Equal(t, []core.Identity{100, 102, 104, 108}, ids(t, s.Query(query.Def{Table: "users", Sel: []query.Selector{women}})))

	data, err := json.Marshal(q)
	require.NoError(t, err)
	var decoded []query.ItemJSON
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 3)
}
