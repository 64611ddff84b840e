package schema

import (
	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
)

// Row is the subset of *sql.Rows the translator scans from.
type Row interface {
	Columns() ([]string, error)
	Scan(dest ...interface{}) error
}

// Translator turns database rows into records.
type Translator struct {
	mapper *TypeMapper
}

// NewTranslator creates a new translator.
func NewTranslator() *Translator {
	return &Translator{mapper: NewTypeMapper()}
}

// FromRow scans the current row into a record. Declared columns are converted
// to their schema type; any other column is kept as scanned, with []byte
// turned into string. schema may be nil.
func (t *Translator) FromRow(row Row, schema *core.Schema) (core.Record, error) {
	if row == nil {
		return nil, errors.New("row cannot be nil")
	}
	columns, err := row.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read columns")
	}

	values := make([]interface{}, len(columns))
	ptrs := make([]interface{}, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := row.Scan(ptrs...); err != nil {
		return nil, errors.Wrap(err, "failed to scan row")
	}

	rec := make(core.Record, len(columns))
	for i, name := range columns {
		colType := "TEXT"
		if col, ok := schema.Column(name); ok {
			colType = col.Type
		} else if _, isBytes := values[i].([]byte); !isBytes {
			rec[name] = values[i]
			continue
		}
		v, err := t.mapper.ConvertFromDBValue(values[i], colType)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to convert value for column '%s'", name)
		}
		rec[name] = v
	}
	return rec, nil
}
