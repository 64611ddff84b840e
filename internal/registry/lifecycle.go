package registry

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
)

// LifecycleHook is called when the schema grows. Hooks run synchronously; an
// error aborts the addition.
type LifecycleHook interface {
	// OnTableAdded is called after a table is registered, including
	// association tables created by via joins.
	OnTableAdded(name string, schema *core.Schema) error

	// OnJoinAdded is called after a join is registered.
	OnJoinAdded(name string, cfg core.JoinConfig) error
}

// LifecycleHookFunc lets plain functions act as a hook. Nil fields are skipped.
type LifecycleHookFunc struct {
	OnTableAddedFunc func(name string, schema *core.Schema) error
	OnJoinAddedFunc  func(name string, cfg core.JoinConfig) error
}

// OnTableAdded calls OnTableAddedFunc if it's not nil.
func (f LifecycleHookFunc) OnTableAdded(name string, schema *core.Schema) error {
	if f.OnTableAddedFunc != nil {
		return f.OnTableAddedFunc(name, schema)
	}
	return nil
}

// OnJoinAdded calls OnJoinAddedFunc if it's not nil.
func (f LifecycleHookFunc) OnJoinAdded(name string, cfg core.JoinConfig) error {
	if f.OnJoinAddedFunc != nil {
		return f.OnJoinAddedFunc(name, cfg)
	}
	return nil
}

// LifecycleManager holds registered hooks.
type LifecycleManager struct {
	mu    sync.RWMutex
	hooks []LifecycleHook
}

// NewLifecycleManager creates a manager with no hooks.
func NewLifecycleManager() *LifecycleManager {
	return &LifecycleManager{}
}

// RegisterHook appends a hook.
func (lm *LifecycleManager) RegisterHook(hook LifecycleHook) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.hooks = append(lm.hooks, hook)
}

func (lm *LifecycleManager) snapshot() []LifecycleHook {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return append([]LifecycleHook(nil), lm.hooks...)
}

// ExecuteTableAdded runs every hook, stopping at the first error.
func (lm *LifecycleManager) ExecuteTableAdded(name string, schema *core.Schema) error {
	for i, hook := range lm.snapshot() {
		if err := hook.OnTableAdded(name, schema); err != nil {
			return errors.Wrapf(err, "table hook %d failed for %s", i, name)
		}
	}
	return nil
}

// ExecuteJoinAdded runs every hook, stopping at the first error.
func (lm *LifecycleManager) ExecuteJoinAdded(name string, cfg core.JoinConfig) error {
	for i, hook := range lm.snapshot() {
		if err := hook.OnJoinAdded(name, cfg); err != nil {
			return errors.Wrapf(err, "join hook %d failed for %s", i, name)
		}
	}
	return nil
}

// HookCount returns the number of registered hooks.
func (lm *LifecycleManager) HookCount() int {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return len(lm.hooks)
}
