package changefeed

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/logger"
	"github.com/rzpsarthak13/joinstore/internal/registry"
)

// TypeRedis selects RedisQueue.
const TypeRedis = "redis"

// RedisQueue is a ChangeQueue on a Redis list: RPUSH to enqueue, LPOP to
// dequeue.
type RedisQueue struct {
	client redis.UniversalClient
	key    string
	logger logger.Logger

	mu     sync.RWMutex
	closed bool
}

var _ core.ChangeQueue = (*RedisQueue)(nil)

// NewRedisQueue uses client and the list stored at key.
func NewRedisQueue(client redis.UniversalClient, key string, l logger.Logger) *RedisQueue {
	if key == "" {
		key = "joinstore:changes"
	}
	if l == nil {
		l = logger.NopLogger
	}
	return &RedisQueue{client: client, key: key, logger: l.WithPrefix("REDIS")}
}

func (q *RedisQueue) isClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Enqueue appends the JSON-encoded event to the list.
func (q *RedisQueue) Enqueue(ctx context.Context, event *core.ChangeEvent) error {
	if q.isClosed() {
		return core.ErrQueueClosed
	}
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, q.key, data).Err(); err != nil {
		return errors.Wrapf(err, "RPUSH %s", q.key)
	}
	q.logger.Debugf("pushed %s %s/%v to %s", event.Operation, event.Table, event.Identity, q.key)
	return nil
}

// Dequeue pops up to batchSize events. Entries that fail to decode are
// logged and dropped.
func (q *RedisQueue) Dequeue(ctx context.Context, batchSize int) ([]*core.ChangeEvent, error) {
	if q.isClosed() {
		return nil, core.ErrQueueClosed
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	events := make([]*core.ChangeEvent, 0, batchSize)
	for len(events) < batchSize {
		data, err := q.client.LPop(ctx, q.key).Bytes()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return events, errors.Wrapf(err, "LPOP %s", q.key)
		}
		e, err := decodeEvent(data)
		if err != nil {
			q.logger.Warnf("dropping entry from %s: %v", q.key, err)
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// Size returns the list length, or 0 when Redis cannot be reached.
func (q *RedisQueue) Size() int {
	n, err := q.client.LLen(context.Background(), q.key).Result()
	if err != nil {
		q.logger.Warnf("LLEN %s: %v", q.key, err)
		return 0
	}
	return int(n)
}

// Close closes the client.
func (q *RedisQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	return q.client.Close()
}

type redisFactory struct{}

func (redisFactory) Type() string { return TypeRedis }

func (redisFactory) Validate(cfg *registry.InternalConfig) error {
	rc := cfg.ChangeFeed.Redis
	if rc.Endpoint == "" {
		return errors.Wrap(core.ErrInvalidConfig, "changefeed.redis.endpoint is required")
	}
	if rc.Key == "" {
		return errors.Wrap(core.ErrInvalidConfig, "changefeed.redis.key is required")
	}
	if rc.DB < 0 {
		return errors.Wrap(core.ErrInvalidConfig, "changefeed.redis.db cannot be negative")
	}
	return nil
}

func (redisFactory) Create(cfg registry.InternalChangeFeedConfig, l logger.Logger) (core.ChangeQueue, error) {
	rc := cfg.Redis
	client := redis.NewClient(&redis.Options{
		Addr:         rc.Endpoint,
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		MinIdleConns: rc.MinIdleConns,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
	})

	ctx := context.Background()
	if rc.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rc.DialTimeout)
		defer cancel()
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "failed to connect to Redis at %s", rc.Endpoint)
	}
	l.WithPrefix("REDIS").Infof("connected to %s, list %s", rc.Endpoint, rc.Key)
	return NewRedisQueue(client, rc.Key, l), nil
}
