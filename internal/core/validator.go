package core

// RecordValidator checks a single record before it is stored. A non-nil error
// rejects the change; plain errors are wrapped into a ValidationError.
type RecordValidator interface {
	ValidateRecord(rec Record, id Identity) error
}

// RecordValidatorFunc adapts a function to RecordValidator.
type RecordValidatorFunc func(rec Record, id Identity) error

// ValidateRecord calls f.
func (f RecordValidatorFunc) ValidateRecord(rec Record, id Identity) error { return f(rec, id) }

// TableValidator checks a whole table after a mutation has been applied.
type TableValidator interface {
	ValidateTable(t TableReader) error
}

// TableValidatorFunc adapts a function to TableValidator.
type TableValidatorFunc func(t TableReader) error

// ValidateTable calls f.
func (f TableValidatorFunc) ValidateTable(t TableReader) error { return f(t) }

// RecordProcessor rewrites a record on its way into a table.
type RecordProcessor func(rec Record, id Identity) (Record, error)

// TableReader is the read contract joins, queries and validators consume.
type TableReader interface {
	Name() string
	Has(id Identity) bool
	Get(id Identity) (Record, bool)
	Size() int
	ForEach(fn func(id Identity, rec Record) bool)
}
