package core

import (
	"context"
	"time"
)

// OperationType is the kind of change a committed command made to a record.
type OperationType string

const (
	// OperationCreate records a new identity.
	OperationCreate OperationType = "CREATE"

	// OperationUpdate records a replaced or merged record.
	OperationUpdate OperationType = "UPDATE"

	// OperationDelete records a removed identity.
	OperationDelete OperationType = "DELETE"
)

// ChangeEvent is one record-level change from a committed transaction.
type ChangeEvent struct {
	// TxID identifies the outermost command that produced the change.
	TxID string `json:"tx_id"`

	Table     string        `json:"table"`
	Operation OperationType `json:"operation"`
	Identity  Identity      `json:"identity"`

	// Record is the stored record after the change. Nil for deletes.
	Record Record `json:"record,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// ChangeQueue carries committed change events to consumers outside the store.
type ChangeQueue interface {
	// Enqueue adds an event to the queue.
	Enqueue(ctx context.Context, event *ChangeEvent) error

	// Dequeue retrieves up to batchSize events. Returns an empty slice when
	// nothing is available.
	Dequeue(ctx context.Context, batchSize int) ([]*ChangeEvent, error)

	// Size returns the number of queued events.
	Size() int

	// Close releases resources held by the queue.
	Close() error
}
