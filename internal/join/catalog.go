package join

import "github.com/rzpsarthak13/joinstore/internal/core"

// Catalog resolves tables by name and performs the writes linking needs. The
// store implements it; every write goes through the store's commands so it is
// validated, backed up and invalidates indexes like any other mutation.
type Catalog interface {
	// Table resolves a table, failing with core.ErrTableNotFound.
	Table(name string) (core.TableReader, error)

	// HasTable reports whether a table is registered.
	HasTable(name string) bool

	// EnsureAssociation creates the association table for a via join if it
	// does not exist yet. Records in it carry fromField and toField.
	EnsureAssociation(name, fromField, toField string) error

	// IdentityFor derives the identity a record would be stored under.
	IdentityFor(table string, rec core.Record) (core.Identity, error)

	// Add inserts a record under id.
	Add(table string, id core.Identity, rec core.Record) error

	// SetField writes one field of an existing record.
	SetField(table string, id core.Identity, field string, value interface{}) error

	// UpdateMany merges (or, with replace, overwrites) records in one command.
	UpdateMany(table string, entries []core.Entry, replace bool) error

	// Delete removes a record.
	Delete(table string, id core.Identity) error

	// WithBackup runs fn after snapshotting every named table, restoring all
	// of them if fn fails.
	WithBackup(tables []string, fn func() error) error
}

// IndexObserver is told whenever a side index is rebuilt.
type IndexObserver interface {
	ObserveIndexBuild(join string, d core.Direction, keys int)
}
