package joinstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rzpsarthak13/joinstore/internal/logger"
	"go.uber.org/zap"
)

type options struct {
	logger     logger.Logger
	registerer prometheus.Registerer
	namespace  string
	queue      ChangeQueue
	handler    DrainHandler
	skipSeed   bool
}

// Option configures Open.
type Option func(*options)

// WithZapLogger logs through z instead of a logger built from Config.Logging.
func WithZapLogger(z *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger.NewZap(z)
	}
}

// WithMetrics registers prometheus collectors for commands, index builds
// and drained events on reg.
func WithMetrics(reg prometheus.Registerer, namespace string) Option {
	return func(o *options) {
		o.registerer = reg
		o.namespace = namespace
	}
}

// WithChangeQueue publishes committed changes to q instead of the queue
// Config.ChangeFeed describes.
func WithChangeQueue(q ChangeQueue) Option {
	return func(o *options) {
		o.queue = q
	}
}

// WithDrainHandler consumes the change feed with h once Start is called.
func WithDrainHandler(h DrainHandler) Option {
	return func(o *options) {
		o.handler = h
	}
}

// WithoutSeed skips the sources listed in Config.Seed.
func WithoutSeed() Option {
	return func(o *options) {
		o.skipSeed = true
	}
}
