package registry

import (
	"time"

	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/logger"
)

// InternalConfig is the schema file: tables, joins, change feed, seeds and
// logging. pkg/joinstore exposes a public copy to avoid import cycles.
type InternalConfig struct {
	Tables     []InternalTableConfig    `yaml:"tables" json:"tables"`
	Joins      []core.JoinConfig        `yaml:"joins" json:"joins"`
	ChangeFeed InternalChangeFeedConfig `yaml:"changefeed" json:"changefeed"`
	Seed       []InternalSeedConfig     `yaml:"seed" json:"seed"`
	Logging    logger.Config            `yaml:"logging" json:"logging"`
}

// InternalTableConfig declares one table.
type InternalTableConfig struct {
	Name string `yaml:"name" json:"name"`

	// Identity is the field holding each record's identity. Empty means
	// identities are random uuids.
	Identity string `yaml:"identity,omitempty" json:"identity,omitempty"`

	// Columns, when present, enable schema validation of every record.
	Columns []core.Column `yaml:"columns,omitempty" json:"columns,omitempty"`

	// Strict rejects undeclared fields.
	Strict bool `yaml:"strict,omitempty" json:"strict,omitempty"`
}

// Schema returns the declared schema, or nil when no columns are declared.
func (c InternalTableConfig) Schema() *core.Schema {
	if len(c.Columns) == 0 {
		return nil
	}
	return &core.Schema{
		Table:         c.Name,
		IdentityField: c.Identity,
		Columns:       c.Columns,
		Strict:        c.Strict,
	}
}

// InternalChangeFeedConfig configures where committed changes are published.
type InternalChangeFeedConfig struct {
	// Type is none, memory, redis or kafka.
	Type       string              `yaml:"type" json:"type"`
	BufferSize int                 `yaml:"buffer_size" json:"buffer_size"`
	BatchSize  int                 `yaml:"batch_size" json:"batch_size"`
	DrainRate  int                 `yaml:"drain_rate" json:"drain_rate"` // events per second handed to consumers
	Redis      InternalRedisConfig `yaml:"redis" json:"redis"`
	Kafka      InternalKafkaConfig `yaml:"kafka" json:"kafka"`
}

// InternalRedisConfig contains Redis list queue configuration.
type InternalRedisConfig struct {
	Endpoint     string        `yaml:"endpoint" json:"endpoint"`
	Password     string        `yaml:"password,omitempty" json:"password,omitempty"`
	DB           int           `yaml:"db" json:"db"`
	Key          string        `yaml:"key" json:"key"`
	PoolSize     int           `yaml:"pool_size" json:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" json:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// InternalKafkaConfig contains Kafka topic queue configuration.
type InternalKafkaConfig struct {
	Brokers      []string      `yaml:"brokers" json:"brokers"`
	Topic        string        `yaml:"topic" json:"topic"`
	GroupID      string        `yaml:"group_id" json:"group_id"`
	BatchSize    int           `yaml:"batch_size" json:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout" json:"batch_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	RequiredAcks int           `yaml:"required_acks" json:"required_acks"`
	MinBytes     int           `yaml:"min_bytes" json:"min_bytes"`
	MaxBytes     int           `yaml:"max_bytes" json:"max_bytes"`
	MaxWait      time.Duration `yaml:"max_wait" json:"max_wait"`
}

// InternalSeedConfig loads initial records into one table.
type InternalSeedConfig struct {
	// Type is file, mysql or dynamodb.
	Type  string `yaml:"type" json:"type"`
	Table string `yaml:"table" json:"table"`

	// Path is the YAML or JSON file for file seeds.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	MySQL    InternalMySQLConfig    `yaml:"mysql,omitempty" json:"mysql,omitempty"`
	DynamoDB InternalDynamoDBConfig `yaml:"dynamodb,omitempty" json:"dynamodb,omitempty"`
}

// InternalMySQLConfig contains MySQL seed source configuration.
type InternalMySQLConfig struct {
	Host              string        `yaml:"host" json:"host"`
	Port              int           `yaml:"port" json:"port"`
	Database          string        `yaml:"database" json:"database"`
	Username          string        `yaml:"username" json:"username"`
	Password          string        `yaml:"password,omitempty" json:"password,omitempty"`
	SourceTable       string        `yaml:"source_table" json:"source_table"`
	MaxOpenConns      int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns      int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime   time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout" json:"connection_timeout"`
}

// InternalDynamoDBConfig contains DynamoDB seed source configuration.
type InternalDynamoDBConfig struct {
	Region          string `yaml:"region" json:"region"`
	TableName       string `yaml:"table_name" json:"table_name"`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
}

func defaultLogging() logger.Config {
	return logger.Config{Level: "info", Format: "console"}
}
