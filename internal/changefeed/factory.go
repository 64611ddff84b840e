// Package changefeed carries committed change events out of the store:
// queues for the memory, redis and kafka backends, and a rate-limited
// drainer that hands queued events to a consumer.
package changefeed

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/logger"
	"github.com/rzpsarthak13/joinstore/internal/registry"
)

// Factory builds the queue for one backend type. Every factory doubles as
// the config validator for its type.
type Factory interface {
	// Type returns the changefeed.type value the factory serves.
	Type() string

	// Validate checks the changefeed section of cfg.
	Validate(cfg *registry.InternalConfig) error

	// Create connects the queue.
	Create(cfg registry.InternalChangeFeedConfig, l logger.Logger) (core.ChangeQueue, error)
}

var (
	factories  = make(map[string]Factory)
	factoryMux sync.RWMutex
)

// RegisterFactory makes a backend available to NewQueue and to config
// validation. It panics on a nil factory or a duplicate type.
func RegisterFactory(f Factory) {
	if f == nil {
		panic("changefeed factory cannot be nil")
	}
	if f.Type() == "" {
		panic("changefeed factory type cannot be empty")
	}

	factoryMux.Lock()
	if _, exists := factories[f.Type()]; exists {
		factoryMux.Unlock()
		panic(fmt.Sprintf("changefeed factory for type %q is already registered", f.Type()))
	}
	factories[f.Type()] = f
	factoryMux.Unlock()

	registry.RegisterValidator(f)
}

// NewQueue builds the queue cfg asks for. It returns nil for type none.
func NewQueue(cfg registry.InternalChangeFeedConfig, l logger.Logger) (core.ChangeQueue, error) {
	if cfg.Type == "" || cfg.Type == registry.ChangeFeedNone {
		return nil, nil
	}

	factoryMux.RLock()
	f, ok := factories[cfg.Type]
	factoryMux.RUnlock()
	if !ok {
		return nil, errors.Wrapf(core.ErrInvalidConfig, "unsupported changefeed type: %s", cfg.Type)
	}

	if err := f.Validate(&registry.InternalConfig{ChangeFeed: cfg}); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration for %s", cfg.Type)
	}
	if l == nil {
		l = logger.NopLogger
	}
	return f.Create(cfg, l)
}

// RegisteredTypes lists the registered backend types, sorted.
func RegisteredTypes() []string {
	factoryMux.RLock()
	defer factoryMux.RUnlock()

	types := make([]string, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func init() {
	RegisterFactory(memoryFactory{})
	RegisterFactory(redisFactory{})
	RegisterFactory(kafkaFactory{})
}
