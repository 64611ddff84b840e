package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"gopkg.in/yaml.v3"
)

// ConfigValidator validates the change feed section for one queue type.
// Each queue implementation registers its own from init().
type ConfigValidator interface {
	Validate(config *InternalConfig) error

	// Type returns the queue type, e.g. "redis".
	Type() string
}

// SeedValidator validates one seed entry for one source type.
type SeedValidator interface {
	ValidateSeed(seed *InternalSeedConfig) error

	// Type returns the source type, e.g. "mysql".
	Type() string
}

var (
	validatorRegistry     = make(map[string]ConfigValidator)
	seedValidatorRegistry = make(map[string]SeedValidator)
	validatorRegistryMu   sync.RWMutex
)

// RegisterValidator registers a change feed validator. Panics on nil, empty
// type or duplicate type.
func RegisterValidator(validator ConfigValidator) {
	if validator == nil {
		panic("validator cannot be nil")
	}
	if validator.Type() == "" {
		panic("validator type cannot be empty")
	}

	validatorRegistryMu.Lock()
	defer validatorRegistryMu.Unlock()

	if _, exists := validatorRegistry[validator.Type()]; exists {
		panic(fmt.Sprintf("validator for type %q is already registered", validator.Type()))
	}
	validatorRegistry[validator.Type()] = validator
}

// GetValidator returns the change feed validator for a queue type.
func GetValidator(validatorType string) (ConfigValidator, bool) {
	validatorRegistryMu.RLock()
	defer validatorRegistryMu.RUnlock()
	v, ok := validatorRegistry[validatorType]
	return v, ok
}

// RegisterSeedValidator registers a seed validator. Panics like RegisterValidator.
func RegisterSeedValidator(validator SeedValidator) {
	if validator == nil {
		panic("seed validator cannot be nil")
	}
	if validator.Type() == "" {
		panic("seed validator type cannot be empty")
	}

	validatorRegistryMu.Lock()
	defer validatorRegistryMu.Unlock()

	if _, exists := seedValidatorRegistry[validator.Type()]; exists {
		panic(fmt.Sprintf("seed validator for type %q is already registered", validator.Type()))
	}
	seedValidatorRegistry[validator.Type()] = validator
}

// GetSeedValidator returns the seed validator for a source type.
func GetSeedValidator(sourceType string) (SeedValidator, bool) {
	validatorRegistryMu.RLock()
	defer validatorRegistryMu.RUnlock()
	v, ok := seedValidatorRegistry[sourceType]
	return v, ok
}

// ChangeFeedNone disables the change feed.
const ChangeFeedNone = "none"

// ConfigManager loads and validates the schema file.
type ConfigManager struct {
	config *InternalConfig
}

// NewConfigManager returns a manager holding the default configuration.
func NewConfigManager() *ConfigManager {
	return &ConfigManager{config: DefaultInternalConfig()}
}

// DefaultInternalConfig returns an empty schema with defaults for every
// optional section.
func DefaultInternalConfig() *InternalConfig {
	return &InternalConfig{
		ChangeFeed: InternalChangeFeedConfig{
			Type:       ChangeFeedNone,
			BufferSize: 10000,
			BatchSize:  100,
			DrainRate:  100,
			Redis: InternalRedisConfig{
				Endpoint:     "localhost:6379",
				Key:          "joinstore:changes",
				PoolSize:     10,
				MinIdleConns: 2,
				DialTimeout:  5 * time.Second,
				ReadTimeout:  3 * time.Second,
				WriteTimeout: 3 * time.Second,
			},
			Kafka: InternalKafkaConfig{
				Brokers:      []string{"localhost:9092"},
				Topic:        "joinstore-changes",
				GroupID:      "joinstore",
				BatchSize:    100,
				BatchTimeout: 10 * time.Millisecond,
				WriteTimeout: 10 * time.Second,
				ReadTimeout:  10 * time.Second,
				RequiredAcks: -1,
				MinBytes:     1,
				MaxBytes:     10 * 1024 * 1024,
				MaxWait:      100 * time.Millisecond,
			},
		},
		Logging: defaultLogging(),
	}
}

// LoadFromFile loads a schema from a .yaml, .yml or .json file.
func (cm *ConfigManager) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return errors.Wrap(err, "failed to read config file")
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".yaml", ".yml":
		return cm.LoadFromYAML(data)
	case ".json":
		return cm.LoadFromJSON(data)
	default:
		return errors.Wrapf(core.ErrInvalidConfig, "unsupported config file format: %s (supported: .yaml, .yml, .json)", ext)
	}
}

// LoadFromYAML loads a schema from YAML data.
func (cm *ConfigManager) LoadFromYAML(data []byte) error {
	config := DefaultInternalConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, config); err != nil {
			return errors.Wrap(err, "failed to parse YAML config")
		}
	}
	return cm.set(config)
}

// LoadFromJSON loads a schema from JSON data.
func (cm *ConfigManager) LoadFromJSON(data []byte) error {
	config := DefaultInternalConfig()
	if len(data) > 0 {
		if err := json.Unmarshal(data, config); err != nil {
			return errors.Wrap(err, "failed to parse JSON config")
		}
	}
	return cm.set(config)
}

// Load validates config and makes it current.
func (cm *ConfigManager) Load(config *InternalConfig) error {
	if config == nil {
		return errors.Wrap(core.ErrInvalidConfig, "config cannot be nil")
	}
	return cm.set(config)
}

func (cm *ConfigManager) set(config *InternalConfig) error {
	if err := cm.validateConfig(config); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	cm.config = config
	return nil
}

// LoadFromEnv overlays JOINSTORE_* environment variables on the current
// configuration. Examples:
//   - JOINSTORE_CHANGEFEED_TYPE=redis
//   - JOINSTORE_REDIS_ENDPOINT=localhost:6379
//   - JOINSTORE_KAFKA_BROKERS=broker1:9092,broker2:9092
//   - JOINSTORE_LOG_LEVEL=debug
func (cm *ConfigManager) LoadFromEnv() error {
	config := *cm.config
	feed := &config.ChangeFeed

	if val := os.Getenv("JOINSTORE_CHANGEFEED_TYPE"); val != "" {
		feed.Type = val
	}
	envInt("JOINSTORE_CHANGEFEED_BUFFER_SIZE", &feed.BufferSize)
	envInt("JOINSTORE_CHANGEFEED_BATCH_SIZE", &feed.BatchSize)
	envInt("JOINSTORE_CHANGEFEED_DRAIN_RATE", &feed.DrainRate)

	if val := os.Getenv("JOINSTORE_REDIS_ENDPOINT"); val != "" {
		feed.Redis.Endpoint = val
	}
	if val := os.Getenv("JOINSTORE_REDIS_PASSWORD"); val != "" {
		feed.Redis.Password = val
	}
	if val := os.Getenv("JOINSTORE_REDIS_KEY"); val != "" {
		feed.Redis.Key = val
	}
	envInt("JOINSTORE_REDIS_DB", &feed.Redis.DB)
	envInt("JOINSTORE_REDIS_POOL_SIZE", &feed.Redis.PoolSize)

	if val := os.Getenv("JOINSTORE_KAFKA_BROKERS"); val != "" {
		feed.Kafka.Brokers = strings.Split(val, ",")
	}
	if val := os.Getenv("JOINSTORE_KAFKA_TOPIC"); val != "" {
		feed.Kafka.Topic = val
	}
	if val := os.Getenv("JOINSTORE_KAFKA_GROUP_ID"); val != "" {
		feed.Kafka.GroupID = val
	}
	if val := os.Getenv("JOINSTORE_KAFKA_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			feed.Kafka.WriteTimeout = d
		}
	}

	if val := os.Getenv("JOINSTORE_LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("JOINSTORE_LOG_FORMAT"); val != "" {
		config.Logging.Format = val
	}

	return cm.set(&config)
}

func envInt(name string, dst *int) {
	val := os.Getenv(name)
	if val == "" {
		return
	}
	var n int
	if _, err := fmt.Sscanf(val, "%d", &n); err == nil {
		*dst = n
	}
}

// GetConfig returns the current configuration.
func (cm *ConfigManager) GetConfig() *InternalConfig {
	return cm.config
}

// GetTableConfig returns the declaration of one table.
func (cm *ConfigManager) GetTableConfig(name string) (InternalTableConfig, bool) {
	for _, t := range cm.config.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return InternalTableConfig{}, false
}

// validateConfig checks names and references, then hands the change feed and
// seed sections to the validators registered for their types.
func (cm *ConfigManager) validateConfig(config *InternalConfig) error {
	tables := make(map[string]bool, len(config.Tables))
	for i, t := range config.Tables {
		if t.Name == "" {
			return errors.Wrapf(core.ErrInvalidConfig, "tables[%d].name is required", i)
		}
		if tables[t.Name] {
			return errors.Wrapf(core.ErrDuplicateTable, "tables[%d]: %q", i, t.Name)
		}
		tables[t.Name] = true
		for j, c := range t.Columns {
			if c.Name == "" {
				return errors.Wrapf(core.ErrInvalidConfig, "tables[%d].columns[%d].name is required", i, j)
			}
		}
	}

	joins := make(map[string]bool, len(config.Joins))
	for i, j := range config.Joins {
		if err := j.Validate(); err != nil {
			return errors.Wrapf(err, "joins[%d]", i)
		}
		for _, name := range []string{j.From.Table, j.To.Table} {
			if !tables[name] {
				return errors.Wrapf(core.ErrTableNotFound, "joins[%d] references %q", i, name)
			}
		}
		name := j.JoinName()
		if joins[name] {
			return errors.Wrapf(core.ErrDuplicateJoin, "joins[%d]: %q", i, name)
		}
		joins[name] = true
	}

	feed := config.ChangeFeed
	if feed.Type != "" && feed.Type != ChangeFeedNone {
		validator, exists := GetValidator(feed.Type)
		if !exists {
			return errors.Wrapf(core.ErrInvalidConfig, "unsupported changefeed type: %s", feed.Type)
		}
		if err := validator.Validate(config); err != nil {
			return errors.Wrap(err, "changefeed validation failed")
		}
		if feed.BatchSize <= 0 {
			return errors.Wrap(core.ErrInvalidConfig, "changefeed.batch_size must be greater than 0")
		}
		if feed.DrainRate <= 0 {
			return errors.Wrap(core.ErrInvalidConfig, "changefeed.drain_rate must be greater than 0")
		}
	}

	for i := range config.Seed {
		seed := &config.Seed[i]
		if !tables[seed.Table] {
			return errors.Wrapf(core.ErrTableNotFound, "seed[%d] targets %q", i, seed.Table)
		}
		validator, exists := GetSeedValidator(seed.Type)
		if !exists {
			return errors.Wrapf(core.ErrInvalidConfig, "seed[%d]: unsupported type %q", i, seed.Type)
		}
		if err := validator.ValidateSeed(seed); err != nil {
			return errors.Wrapf(err, "seed[%d] validation failed", i)
		}
	}

	return nil
}
