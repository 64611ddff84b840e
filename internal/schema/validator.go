package schema

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
)

// Ensure SchemaValidator can be installed as a table's record validator.
var _ core.RecordValidator = &SchemaValidator{}

// SchemaValidator validates records against declared columns.
type SchemaValidator struct {
	schema *core.Schema
	mapper *TypeMapper
}

// NewSchemaValidator creates a validator for schema.
func NewSchemaValidator(schema *core.Schema) *SchemaValidator {
	return &SchemaValidator{
		schema: schema,
		mapper: NewTypeMapper(),
	}
}

// ValidateRecord checks NULL constraints and column types. Strict schemas
// also reject undeclared fields; the identity field is always allowed.
func (sv *SchemaValidator) ValidateRecord(rec core.Record, id core.Identity) error {
	if rec == nil {
		return errors.New("record cannot be nil")
	}

	for _, column := range sv.schema.Columns {
		value, exists := rec[column.Name]
		if !exists || value == nil {
			if !column.Nullable {
				return errors.Errorf("column '%s' cannot be NULL", column.Name)
			}
			continue
		}
		if err := sv.mapper.Check(value, column.Type); err != nil {
			return errors.Wrapf(err, "column '%s'", column.Name)
		}
	}

	if sv.schema.Strict {
		var extra []string
		for field := range rec {
			if field == sv.schema.IdentityField {
				continue
			}
			if _, ok := sv.schema.Column(field); !ok {
				extra = append(extra, field)
			}
		}
		if len(extra) > 0 {
			sort.Strings(extra)
			return errors.Errorf("undeclared fields: %s", strings.Join(extra, ", "))
		}
	}

	return nil
}
