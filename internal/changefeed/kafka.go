package changefeed

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/logger"
	"github.com/rzpsarthak13/joinstore/internal/registry"
	"github.com/segmentio/kafka-go"
)

// TypeKafka selects KafkaQueue.
const TypeKafka = "kafka"

// KafkaQueue is a ChangeQueue on a Kafka topic. Messages are keyed by table
// so one table's changes stay ordered within a partition.
type KafkaQueue struct {
	writer *kafka.Writer
	reader *kafka.Reader
	topic  string
	logger logger.Logger

	// readWait bounds each read in Dequeue.
	readWait time.Duration

	mu     sync.RWMutex
	closed bool
	size   int // approximate: produced minus consumed by this process
}

var _ core.ChangeQueue = (*KafkaQueue)(nil)

// KafkaQueueConfig holds configuration for KafkaQueue.
type KafkaQueueConfig struct {
	Brokers      []string
	Topic        string
	GroupID      string
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	RequiredAcks int // 0, 1 or -1 (all)
	MinBytes     int
	MaxBytes     int
	MaxWait      time.Duration
}

// NewKafkaQueue builds the writer and the consumer group reader. No
// connection is made until the first write or read.
func NewKafkaQueue(cfg KafkaQueueConfig, l logger.Logger) (*KafkaQueue, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.Wrap(core.ErrInvalidConfig, "at least one Kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.Wrap(core.ErrInvalidConfig, "Kafka topic is required")
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "joinstore"
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	if l == nil {
		l = logger.NopLogger
	}
	l = l.WithPrefix("KAFKA")

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		MaxAttempts:  3,
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: kafka.FirstOffset,
	})

	l.Infof("queue on topic %s (brokers %v, group %s)", cfg.Topic, cfg.Brokers, cfg.GroupID)
	return &KafkaQueue{
		writer:   writer,
		reader:   reader,
		topic:    cfg.Topic,
		logger:   l,
		readWait: cfg.ReadTimeout,
	}, nil
}

func (q *KafkaQueue) isClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Enqueue produces the JSON-encoded event.
func (q *KafkaQueue) Enqueue(ctx context.Context, event *core.ChangeEvent) error {
	if q.isClosed() {
		return core.ErrQueueClosed
	}
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.Table),
		Value: data,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "operation", Value: []byte(event.Operation)},
			{Key: "table", Value: []byte(event.Table)},
			{Key: "tx", Value: []byte(event.TxID)},
		},
	}
	start := time.Now()
	if err := q.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "failed to write to topic %s", q.topic)
	}

	q.mu.Lock()
	q.size++
	q.mu.Unlock()
	q.logger.Debugf("produced %s %s/%v in %v", event.Operation, event.Table, event.Identity, time.Since(start))
	return nil
}

// Dequeue reads up to batchSize events, committing each offset once the
// message is decoded. It stops early when no message arrives in time.
func (q *KafkaQueue) Dequeue(ctx context.Context, batchSize int) ([]*core.ChangeEvent, error) {
	if q.isClosed() {
		return nil, core.ErrQueueClosed
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	events := make([]*core.ChangeEvent, 0, batchSize)
	for len(events) < batchSize {
		readCtx, cancel := context.WithTimeout(ctx, q.readWait)
		msg, err := q.reader.FetchMessage(readCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				break
			}
			return events, errors.Wrapf(err, "failed to read from topic %s", q.topic)
		}

		e, err := decodeEvent(msg.Value)
		if err != nil {
			q.logger.Warnf("dropping message at partition %d offset %d: %v", msg.Partition, msg.Offset, err)
		} else {
			events = append(events, e)
		}
		if err := q.reader.CommitMessages(ctx, msg); err != nil {
			q.logger.Warnf("commit partition %d offset %d: %v", msg.Partition, msg.Offset, err)
		}
	}

	if n := len(events); n > 0 {
		q.mu.Lock()
		q.size -= n
		if q.size < 0 {
			q.size = 0
		}
		q.mu.Unlock()
	}
	return events, nil
}

// Size returns an approximate number of unconsumed events.
func (q *KafkaQueue) Size() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.size
}

// Close closes the writer and the reader.
func (q *KafkaQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true

	werr := q.writer.Close()
	if err := q.reader.Close(); err != nil {
		return errors.Wrap(err, "closing kafka reader")
	}
	return errors.Wrap(werr, "closing kafka writer")
}

type kafkaFactory struct{}

func (kafkaFactory) Type() string { return TypeKafka }

func (kafkaFactory) Validate(cfg *registry.InternalConfig) error {
	kc := cfg.ChangeFeed.Kafka
	if len(kc.Brokers) == 0 {
		return errors.Wrap(core.ErrInvalidConfig, "changefeed.kafka.brokers is required")
	}
	if kc.Topic == "" {
		return errors.Wrap(core.ErrInvalidConfig, "changefeed.kafka.topic is required")
	}
	switch kc.RequiredAcks {
	case -1, 0, 1:
	default:
		return errors.Wrapf(core.ErrInvalidConfig, "changefeed.kafka.required_acks must be -1, 0 or 1, got %d", kc.RequiredAcks)
	}
	return nil
}

func (kafkaFactory) Create(cfg registry.InternalChangeFeedConfig, l logger.Logger) (core.ChangeQueue, error) {
	kc := cfg.Kafka
	return NewKafkaQueue(KafkaQueueConfig{
		Brokers:      kc.Brokers,
		Topic:        kc.Topic,
		GroupID:      kc.GroupID,
		BatchSize:    kc.BatchSize,
		BatchTimeout: kc.BatchTimeout,
		WriteTimeout: kc.WriteTimeout,
		ReadTimeout:  kc.ReadTimeout,
		RequiredAcks: kc.RequiredAcks,
		MinBytes:     kc.MinBytes,
		MaxBytes:     kc.MaxBytes,
		MaxWait:      kc.MaxWait,
	}, l)
}
