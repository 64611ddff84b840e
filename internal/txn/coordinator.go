// Package txn dispatches named mutation commands and restores state when one
// fails.
//
// A command is a pair of functions. The action does the work and returns a
// result or an error. When it returns an error the rollback runs with the same
// per-call metadata bag, restores whatever the action backed up into it, and
// returns the error to report. Commands may perform other commands; the whole
// tree settles when the outermost one returns.
package txn

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/logger"
)

// Action performs a command.
type Action func(tx *Tx, args ...interface{}) (interface{}, error)

// Rollback repairs state after a failed action and returns the error the
// caller should see, normally err itself.
type Rollback func(tx *Tx, err error) error

// Handler is the [action, rollback] pair registered under a command name.
type Handler struct {
	Action   Action
	Rollback Rollback
}

// Meta is the per-call metadata bag shared by an action and its rollback.
type Meta map[string]interface{}

// Tx is one command invocation.
type Tx struct {
	// ID is shared by every command in the same tree.
	ID      string
	Command string
	Meta    Meta

	parent *Tx
	coord  *Coordinator
}

// Parent returns the enclosing command, or nil for the outermost one.
func (tx *Tx) Parent() *Tx { return tx.parent }

// Perform runs a nested command inside this one.
func (tx *Tx) Perform(name string, args ...interface{}) (interface{}, error) {
	return tx.coord.Perform(name, args...)
}

// Observer is told about every command that finishes.
type Observer interface {
	ObserveCommand(name string, elapsed time.Duration, err error)
}

// SettledFunc is called when an outermost command returns.
type SettledFunc func(root *Tx, committed bool)

// Coordinator owns the command handlers and the stack of running commands.
// Commands run synchronously on the caller's goroutine.
type Coordinator struct {
	mu       sync.RWMutex
	handlers map[string]Handler

	stack    []*Tx
	settled  map[int]SettledFunc
	nextHook int

	observer Observer
	logger   logger.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) { c.logger = l.WithPrefix("TXN") }
}

// WithObserver reports every command to o.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observer = o }
}

// NewCoordinator returns a coordinator with no handlers.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		handlers: make(map[string]Handler),
		settled:  make(map[int]SettledFunc),
		logger:   logger.NopLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds or replaces the handler for name.
func (c *Coordinator) Register(name string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[name] = h
}

// Has reports whether a handler is registered for name.
func (c *Coordinator) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.handlers[name]
	return ok
}

// Pending reports whether a command is running.
func (c *Coordinator) Pending() bool {
	return len(c.stack) > 0
}

// Current returns the innermost running command, or nil.
func (c *Coordinator) Current() *Tx {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1]
}

// OnSettled registers fn and returns a function that removes it.
func (c *Coordinator) OnSettled(fn SettledFunc) (remove func()) {
	c.mu.Lock()
	id := c.nextHook
	c.nextHook++
	c.settled[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.settled, id)
		c.mu.Unlock()
	}
}

// Perform runs the command registered under name. If the action fails or
// panics, the rollback runs before Perform returns and the error is always
// returned.
func (c *Coordinator) Perform(name string, args ...interface{}) (interface{}, error) {
	c.mu.RLock()
	h, ok := c.handlers[name]
	c.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(core.ErrUnknownCommand, "%q", name)
	}

	tx := &Tx{Command: name, Meta: make(Meta), coord: c}
	if parent := c.Current(); parent != nil {
		tx.parent = parent
		tx.ID = parent.ID
	} else {
		tx.ID = uuid.New().String()
	}

	start := time.Now()
	result, err := c.run(h, tx, args)

	if c.observer != nil {
		c.observer.ObserveCommand(name, time.Since(start), err)
	}
	if tx.parent == nil {
		c.settle(tx, err == nil)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// run executes h with tx on the stack. A panicking action is reported as an
// error so the rollback still runs.
func (c *Coordinator) run(h Handler, tx *Tx, args []interface{}) (result interface{}, err error) {
	c.stack = append(c.stack, tx)
	defer func() { c.stack = c.stack[:len(c.stack)-1] }()

	result, err = call(h.Action, tx, args)
	if err != nil && h.Rollback != nil {
		c.logger.Debugf("rolling back %s (tx %s): %v", tx.Command, tx.ID, err)
		if rerr := h.Rollback(tx, err); rerr != nil {
			err = rerr
		}
	}
	return result, err
}

func call(action Action, tx *Tx, args []interface{}) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = errors.Wrapf(core.ErrCommandPanic, "%s: %v", tx.Command, r)
		}
	}()
	return action(tx, args...)
}

func (c *Coordinator) settle(root *Tx, committed bool) {
	c.mu.RLock()
	hooks := make([]SettledFunc, 0, len(c.settled))
	for i := 0; i < c.nextHook; i++ {
		if fn, ok := c.settled[i]; ok {
			hooks = append(hooks, fn)
		}
	}
	c.mu.RUnlock()

	for _, fn := range hooks {
		fn(root, committed)
	}
}
