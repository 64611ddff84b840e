package joinstore

import (
	"time"

	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/logger"
	"github.com/rzpsarthak13/joinstore/internal/registry"
)

// Config is the root configuration for a DB: tables, joins, the change
// feed, seeds and logging. The YAML/JSON shape matches the schema file read
// by the joinstore command.
type Config struct {
	// Tables declares the tables to create, in order.
	Tables []TableConfig `yaml:"tables" json:"tables"`

	// Joins declares the joins to create once every table exists.
	Joins []JoinConfig `yaml:"joins" json:"joins"`

	// ChangeFeed selects where committed changes are published.
	ChangeFeed ChangeFeedConfig `yaml:"changefeed" json:"changefeed"`

	// Seed lists sources loaded into tables when the DB opens.
	Seed []SeedConfig `yaml:"seed,omitempty" json:"seed,omitempty"`

	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// TableConfig declares one table.
type TableConfig struct {
	Name string `yaml:"name" json:"name"`

	// Identity is the field holding each record's identity.
	// If empty, records get random uuid identities.
	Identity string `yaml:"identity,omitempty" json:"identity,omitempty"`

	// Columns enables schema validation of every stored record.
	Columns []Column `yaml:"columns,omitempty" json:"columns,omitempty"`

	// Strict rejects fields that are not declared in Columns.
	Strict bool `yaml:"strict,omitempty" json:"strict,omitempty"`
}

// ChangeFeedConfig contains change feed configuration.
type ChangeFeedConfig struct {
	// Type is "none", "memory", "redis" or "kafka".
	Type string `yaml:"type" json:"type"`

	// BufferSize is the capacity of the in-memory queue.
	// Only used when Type is "memory".
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`

	// BatchSize is how many events the drainer dequeues at once.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// DrainRate is the maximum number of events per second handed to the
	// drain handler.
	DrainRate int `yaml:"drain_rate" json:"drain_rate"`

	Redis RedisConfig `yaml:"redis" json:"redis"`
	Kafka KafkaConfig `yaml:"kafka" json:"kafka"`
}

// RedisConfig contains configuration for the Redis list queue.
type RedisConfig struct {
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// DB is the Redis database number (0-15).
	DB int `yaml:"db,omitempty" json:"db,omitempty"`

	// Key is the list the events are pushed to.
	Key string `yaml:"key" json:"key"`

	PoolSize     int           `yaml:"pool_size,omitempty" json:"pool_size,omitempty"`
	MinIdleConns int           `yaml:"min_idle_conns,omitempty" json:"min_idle_conns,omitempty"`
	DialTimeout  time.Duration `yaml:"dial_timeout,omitempty" json:"dial_timeout,omitempty"`
	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty" json:"read_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`
}

// KafkaConfig contains configuration for the Kafka queue.
type KafkaConfig struct {
	// Brokers is a list of Kafka broker addresses (e.g., ["localhost:9092"]).
	Brokers []string `yaml:"brokers" json:"brokers"`

	Topic   string `yaml:"topic" json:"topic"`
	GroupID string `yaml:"group_id" json:"group_id"`

	BatchSize    int           `yaml:"batch_size" json:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout" json:"batch_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`

	// RequiredAcks is the number of acknowledgments required (0, 1, or -1 for all).
	RequiredAcks int `yaml:"required_acks" json:"required_acks"`

	MinBytes int           `yaml:"min_bytes" json:"min_bytes"`
	MaxBytes int           `yaml:"max_bytes" json:"max_bytes"`
	MaxWait  time.Duration `yaml:"max_wait" json:"max_wait"`
}

// SeedConfig loads one table from a file, a MySQL table or a DynamoDB table.
type SeedConfig struct {
	// Type is "file", "mysql" or "dynamodb".
	Type  string `yaml:"type" json:"type"`
	Table string `yaml:"table" json:"table"`

	// Path is a .yaml, .yml or .json list of records. Only used when Type is "file".
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	MySQL    MySQLConfig    `yaml:"mysql,omitempty" json:"mysql,omitempty"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb,omitempty" json:"dynamodb,omitempty"`
}

// MySQLConfig contains configuration for a MySQL seed source.
type MySQLConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Database string `yaml:"database" json:"database"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// SourceTable is the table to read. Defaults to the seeded table's name.
	SourceTable string `yaml:"source_table,omitempty" json:"source_table,omitempty"`

	MaxOpenConns      int           `yaml:"max_open_conns,omitempty" json:"max_open_conns,omitempty"`
	MaxIdleConns      int           `yaml:"max_idle_conns,omitempty" json:"max_idle_conns,omitempty"`
	ConnMaxLifetime   time.Duration `yaml:"conn_max_lifetime,omitempty" json:"conn_max_lifetime,omitempty"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout,omitempty" json:"connection_timeout,omitempty"`
}

// DynamoDBConfig contains configuration for a DynamoDB seed source.
type DynamoDBConfig struct {
	Region    string `yaml:"region" json:"region"`
	TableName string `yaml:"table_name" json:"table_name"`

	// Endpoint overrides the AWS endpoint, e.g. for LocalStack.
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
}

// LoggingConfig selects level (debug, info, warn, error) and format
// (console or json).
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// DefaultConfig returns a configuration with no tables, no change feed and
// console logging at info level.
func DefaultConfig() *Config {
	return fromInternal(registry.DefaultInternalConfig())
}

// LoadConfig reads a schema file and overlays JOINSTORE_* environment
// variables.
func LoadConfig(path string) (*Config, error) {
	cm := registry.NewConfigManager()
	if err := cm.LoadFromFile(path); err != nil {
		return nil, err
	}
	if err := cm.LoadFromEnv(); err != nil {
		return nil, err
	}
	return fromInternal(cm.GetConfig()), nil
}

func (c *Config) internal() *registry.InternalConfig {
	ic := &registry.InternalConfig{
		Joins: append([]core.JoinConfig(nil), c.Joins...),
		ChangeFeed: registry.InternalChangeFeedConfig{
			Type:       c.ChangeFeed.Type,
			BufferSize: c.ChangeFeed.BufferSize,
			BatchSize:  c.ChangeFeed.BatchSize,
			DrainRate:  c.ChangeFeed.DrainRate,
			Redis:      registry.InternalRedisConfig(c.ChangeFeed.Redis),
			Kafka:      registry.InternalKafkaConfig(c.ChangeFeed.Kafka),
		},
		Logging: logger.Config(c.Logging),
	}
	for _, t := range c.Tables {
		ic.Tables = append(ic.Tables, registry.InternalTableConfig(t))
	}
	for _, s := range c.Seed {
		ic.Seed = append(ic.Seed, registry.InternalSeedConfig{
			Type:     s.Type,
			Table:    s.Table,
			Path:     s.Path,
			MySQL:    registry.InternalMySQLConfig(s.MySQL),
			DynamoDB: registry.InternalDynamoDBConfig(s.DynamoDB),
		})
	}
	return ic
}

func fromInternal(ic *registry.InternalConfig) *Config {
	c := &Config{
		Joins: append([]JoinConfig(nil), ic.Joins...),
		ChangeFeed: ChangeFeedConfig{
			Type:       ic.ChangeFeed.Type,
			BufferSize: ic.ChangeFeed.BufferSize,
			BatchSize:  ic.ChangeFeed.BatchSize,
			DrainRate:  ic.ChangeFeed.DrainRate,
			Redis:      RedisConfig(ic.ChangeFeed.Redis),
			Kafka:      KafkaConfig(ic.ChangeFeed.Kafka),
		},
		Logging: LoggingConfig(ic.Logging),
	}
	for _, t := range ic.Tables {
		c.Tables = append(c.Tables, TableConfig(t))
	}
	for _, s := range ic.Seed {
		c.Seed = append(c.Seed, SeedConfig{
			Type:     s.Type,
			Table:    s.Table,
			Path:     s.Path,
			MySQL:    MySQLConfig(s.MySQL),
			DynamoDB: DynamoDBConfig(s.DynamoDB),
		})
	}
	return c
}
