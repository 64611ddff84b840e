package schema

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userSchema(strict bool) *core.Schema {
	return &core.Schema{
		Table:         "users",
		IdentityField: "id",
		Strict:        strict,
		Columns: []core.Column{
			{Name: "name", Type: "VARCHAR(64)"},
			{Name: "age", Type: "INT"},
			{Name: "state", Type: "CHAR(2)", Nullable: true},
			{Name: "joined", Type: "DATETIME", Nullable: true},
		},
	}
}

func TestSchemaValidator(t *testing.T) {
	v := NewSchemaValidator(userSchema(false))

	require.NoError(t, v.ValidateRecord(core.Record{"id": 100, "name": "Ann", "age": 27, "extra": true}, 100))
	require.NoError(t, v.ValidateRecord(core.Record{"name": "Ann", "age": float64(27), "joined": "2021-03-04"}, 100))

	err := v.ValidateRecord(core.Record{"name": "Ann"}, 100)
	assert.EqualError(t, err, "column 'age' cannot be NULL")

	err = v.ValidateRecord(core.Record{"name": 7, "age": 27}, 100)
	assert.EqualError(t, err, "column 'name': expected VARCHAR(64), got int")

	err = v.ValidateRecord(core.Record{"name": "Ann", "age": 27.5}, 100)
	assert.Error(t, err)

	err = v.ValidateRecord(core.Record{"name": "Ann", "age": 27, "joined": "last tuesday"}, 100)
	assert.Error(t, err)
}

func TestSchemaValidatorStrict(t *testing.T) {
	v := NewSchemaValidator(userSchema(true))
	require.NoError(t, v.ValidateRecord(core.Record{"id": 1, "name": "Ann", "age": 27}, 1))

	err := v.ValidateRecord(core.Record{"id": 1, "name": "Ann", "age": 27, "zip": 1, "city": "x"}, 1)
	assert.EqualError(t, err, "undeclared fields: city, zip")
}

func TestKindOf(t *testing.T) {
	tm := NewTypeMapper()
	assert.Equal(t, KindInt, tm.KindOf("bigint unsigned"))
	assert.Equal(t, KindBool, tm.KindOf("tinyint(1)"))
	assert.Equal(t, KindInt, tm.KindOf("TINYINT(4)"))
	assert.Equal(t, KindString, tm.KindOf("VARCHAR(255)"))
	assert.Equal(t, KindJSON, tm.KindOf("json"))
	assert.Equal(t, KindString, tm.KindOf("GEOMETRY"))
}

func TestConvertFromDBValue(t *testing.T) {
	tm := NewTypeMapper()

	v, err := tm.ConvertFromDBValue([]byte("42"), "INT")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = tm.ConvertFromDBValue([]byte("Ann"), "VARCHAR(10)")
	require.NoError(t, err)
	assert.Equal(t, "Ann", v)

	v, err = tm.ConvertFromDBValue(int64(1), "TINYINT(1)")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = tm.ConvertFromDBValue([]byte(`{"a":[1,2]}`), "JSON")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": []interface{}{1.0, 2.0}}, v)

	v, err = tm.ConvertFromDBValue([]byte("2021-03-04 05:06:07"), "DATETIME")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC), v)

	_, err = tm.ConvertFromDBValue([]byte("x"), "INT")
	assert.Error(t, err)

	v, err = tm.ConvertFromDBValue(nil, "INT")
	require.NoError(t, err)
	assert.Nil(t, v)
}

type fakeRow struct {
	columns []string
	values  []interface{}
}

func (r *fakeRow) Columns() ([]string, error) { return r.columns, nil }

func (r *fakeRow) Scan(dest ...interface{}) error {
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		*(d.(*interface{})) = r.values[i]
	}
	return nil
}

func TestTranslatorFromRow(t *testing.T) {
	row := &fakeRow{
		columns: []string{"id", "name", "age", "note"},
		values:  []interface{}{int64(100), []byte("Ann"), []byte("27"), []byte("hi")},
	}
	rec, err := NewTranslator().FromRow(row, userSchema(false))
	require.NoError(t, err)
	assert.Equal(t, core.Record{"id": int64(100), "name": "Ann", "age": int64(27), "note": "hi"}, rec)

	rec, err = NewTranslator().FromRow(row, nil)
	require.NoError(t, err)
	assert.Equal(t, "27", rec["age"])
}
