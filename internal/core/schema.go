package core

// Schema declares the columns a table's records carry. It is optional: tables
// without one accept any record shape.
type Schema struct {
	// Table is the name of the table the schema belongs to.
	Table string `yaml:"-" json:"-"`

	// IdentityField is the field holding the record identity, if any.
	IdentityField string `yaml:"-" json:"-"`

	// Columns lists the declared fields.
	Columns []Column `yaml:"columns" json:"columns"`

	// Strict rejects fields that are not declared as columns.
	Strict bool `yaml:"strict" json:"strict"`
}

// Column is one declared field.
type Column struct {
	// Name is the field name.
	Name string `yaml:"name" json:"name"`

	// Type uses SQL type names ("INT", "VARCHAR(64)", "JSON", ...), so the same
	// declaration serves validation and MySQL seeding.
	Type string `yaml:"type" json:"type"`

	// Nullable allows the field to be absent or nil.
	Nullable bool `yaml:"nullable" json:"nullable"`
}

// Column returns the named column.
func (s *Schema) Column(name string) (Column, bool) {
	if s == nil {
		return Column{}, false
	}
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
