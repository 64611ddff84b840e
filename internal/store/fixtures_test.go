package store

import (
	"encoding/base64"
	"testing"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/stretchr/testify/require"
)

func userRecords() []core.Record {
	return []core.Record{
		{"id": 100, "name": "Adam", "gender": "M", "age": 18, "address": 210},
		{"id": 101, "name": "Ben", "gender": "M", "age": 25, "address": 220},
		{"id": 102, "name": "Cara", "gender": "F", "age": 30, "address": 210},
		{"id": 103, "name": "Dev", "gender": "M", "age": 19, "address": 230},
		{"id": 104, "name": "Eve", "gender": "F", "age": 41},
		{"id": 105, "name": "Finn", "gender": "M", "age": 22, "address": 220},
		{"id": 106, "name": "Gus", "gender": "M", "age": 35},
		{"id": 107, "name": "Hal", "gender": "M", "age": 17},
		{"id": 108, "name": "Ivy", "gender": "F", "age": 28, "address": 230},
		{"id": 109, "name": "Jon", "gender": "M", "age": 50},
	}
}

func mustTable(t *testing.T, s *Store, cfg TableConfig, recs ...core.Record) *Table {
	t.Helper()
	tbl, err := s.AddTable(cfg)
	require.NoError(t, err)
	if len(recs) > 0 {
		require.NoError(t, s.Load(cfg.Name, recs))
	}
	return tbl
}

func mustJoin(t *testing.T, s *Store, cfg core.JoinConfig) {
	t.Helper()
	_, err := s.AddJoin(cfg)
	require.NoError(t, err)
}

// newPeople builds users -> addresses -> states.
func newPeople(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := New(opts...)
	mustTable(t, s, TableConfig{Name: "users", IdentityField: "id"}, userRecords()...)
	mustTable(t, s, TableConfig{Name: "addresses", IdentityField: "id"},
		core.Record{"id": 210, "street": "1 Main St", "state": "CA"},
		core.Record{"id": 220, "street": "2 Oak Ave", "state": "OR"},
		core.Record{"id": 230, "street": "3 Pine Rd", "state": "WA"},
	)
	mustTable(t, s, TableConfig{Name: "states", IdentityField: "abbr"},
		core.Record{"abbr": "CA", "name": "California"},
		core.Record{"abbr": "OR", "name": "Oregon"},
		core.Record{"abbr": "WA", "name": "Washington"},
	)
	mustJoin(t, s, core.JoinConfig{Name: "userAddresses", From: core.FieldDef("users", "address"), To: core.IdentityDef("addresses")})
	mustJoin(t, s, core.JoinConfig{Name: "addressStates", From: core.FieldDef("addresses", "state"), To: core.IdentityDef("states")})
	return s
}

func studentID(rec core.Record) (core.Identity, error) {
	name, ok := rec["name"].(string)
	if !ok || name == "" {
		return nil, errors.New("student needs a name")
	}
	return base64.StdEncoding.EncodeToString([]byte(name)), nil
}

// newCollege builds teachers -> classes and students <-> classes through
// the studentClasses association table.
func newCollege(t *testing.T) *Store {
	t.Helper()
	s := New()
	mustTable(t, s, TableConfig{Name: "teachers", IdentityField: "id"},
		core.Record{"id": "t1", "name": "Prof. Plum"},
		core.Record{"id": "t2", "name": "Dr. White"},
	)
	mustTable(t, s, TableConfig{
		Name:          "classes",
		IdentityField: "code",
		Validators: []core.RecordValidator{core.RecordValidatorFunc(func(rec core.Record, _ core.Identity) error {
			if _, ok := rec["title"].(string); !ok {
				return errors.New("a class needs a title")
			}
			return nil
		})},
	},
		core.Record{"code": "PHYS101", "title": "Physics"},
		core.Record{"code": "CHEM101", "title": "Chemistry"},
		core.Record{"code": "MATH101", "title": "Calculus", "teacher": "t2"},
	)
	mustTable(t, s, TableConfig{Name: "students", IdentityFunc: studentID},
		core.Record{"name": "Bob"},
		core.Record{"name": "Alice"},
	)
	mustJoin(t, s, core.JoinConfig{Name: "teachersToClasses", From: core.IdentityDef("teachers"), To: core.FieldDef("classes", "teacher")})
	mustJoin(t, s, core.JoinConfig{Name: "studentsToClasses", From: core.IdentityDef("students"), To: core.IdentityDef("classes"), Via: core.Via("studentClasses")})
	return s
}

func tableOf(t *testing.T, s *Store, name string) *Table {
	t.Helper()
	tbl, err := s.Table(name)
	require.NoError(t, err)
	return tbl
}
