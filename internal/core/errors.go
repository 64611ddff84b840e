package core

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrTableNotFound is returned when a table is referenced by a name the store does not know.
	ErrTableNotFound = errors.New("table not found")

	// ErrDuplicateTable is returned when a table name is registered twice.
	ErrDuplicateTable = errors.New("duplicate table")

	// ErrJoinNotFound is returned when a join is referenced by a name the store does not know.
	ErrJoinNotFound = errors.New("join not found")

	// ErrDuplicateJoin is returned when two joins resolve to the same name.
	ErrDuplicateJoin = errors.New("duplicate join")

	// ErrAmbiguousJoin is returned when a table name matches more than one join.
	ErrAmbiguousJoin = errors.New("multiple matches")

	// ErrRecordNotFound is returned when an identity is absent from its table.
	ErrRecordNotFound = errors.New("record not found")

	// ErrRecordExists is returned when adding a record whose identity is already taken.
	ErrRecordExists = errors.New("record already exists")

	// ErrStrategyViolation is returned when a link operation contradicts the join strategy.
	ErrStrategyViolation = errors.New("strategy violation")

	// ErrValidation is the cause of every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidConfig is returned for malformed table, join or feed configuration.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrCommandPanic wraps a panic raised inside a store command.
	ErrCommandPanic = errors.New("command panicked")

	// ErrInvalidIdentity is returned for nil or non-comparable identities.
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrUnknownCommand is returned by the coordinator for unregistered command names.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrQueueClosed is returned by change queues after Close.
	ErrQueueClosed = errors.New("queue is closed")
)

// ValidationError carries the reason a record or table validator rejected a change.
type ValidationError struct {
	Table    string
	Identity Identity
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Identity == nil {
		return fmt.Sprintf("%s: table %s: %s", ErrValidation, e.Table, e.Reason)
	}
	return fmt.Sprintf("%s: table %s, identity %v: %s", ErrValidation, e.Table, e.Identity, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }
