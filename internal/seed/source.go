// Package seed loads initial records into tables from files, MySQL or DynamoDB.
package seed

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/logger"
	"github.com/rzpsarthak13/joinstore/internal/registry"
)

// Source types accepted in seed configuration.
const (
	TypeFile     = "file"
	TypeMySQL    = "mysql"
	TypeDynamoDB = "dynamodb"
)

// Source produces the records of one table.
type Source interface {
	Fetch(ctx context.Context) ([]core.Record, error)
	Close() error
}

// Open builds the source a seed entry describes. schema may be nil.
func Open(ctx context.Context, cfg registry.InternalSeedConfig, schema *core.Schema, l logger.Logger) (Source, error) {
	if l == nil {
		l = logger.NopLogger
	}
	switch strings.ToLower(cfg.Type) {
	case TypeFile:
		return NewFileSource(cfg.Path), nil
	case TypeMySQL:
		return NewMySQLSource(ctx, cfg.MySQL, schema, l)
	case TypeDynamoDB:
		return NewDynamoDBSource(ctx, cfg.DynamoDB, l)
	}
	return nil, errors.Wrapf(core.ErrInvalidConfig, "unsupported seed type %q", cfg.Type)
}

type fileValidator struct{}

func (fileValidator) Type() string { return TypeFile }

func (fileValidator) ValidateSeed(seed *registry.InternalSeedConfig) error {
	if seed.Path == "" {
		return errors.Wrap(core.ErrInvalidConfig, "path is required for file seeds")
	}
	switch fileFormat(seed.Path) {
	case formatYAML, formatJSON:
		return nil
	}
	return errors.Wrapf(core.ErrInvalidConfig, "unsupported seed file extension: %s", seed.Path)
}

type mysqlValidator struct{}

func (mysqlValidator) Type() string { return TypeMySQL }

func (mysqlValidator) ValidateSeed(seed *registry.InternalSeedConfig) error {
	c := seed.MySQL
	if c.Host == "" {
		return errors.Wrap(core.ErrInvalidConfig, "mysql.host is required")
	}
	if c.Database == "" {
		return errors.Wrap(core.ErrInvalidConfig, "mysql.database is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.Wrapf(core.ErrInvalidConfig, "mysql.port out of range: %d", c.Port)
	}
	return nil
}

type dynamoDBValidator struct{}

func (dynamoDBValidator) Type() string { return TypeDynamoDB }

func (dynamoDBValidator) ValidateSeed(seed *registry.InternalSeedConfig) error {
	if seed.DynamoDB.Region == "" {
		return errors.Wrap(core.ErrInvalidConfig, "dynamodb.region is required")
	}
	if seed.DynamoDB.TableName == "" {
		return errors.Wrap(core.ErrInvalidConfig, "dynamodb.table_name is required")
	}
	return nil
}

func init() {
	registry.RegisterSeedValidator(fileValidator{})
	registry.RegisterSeedValidator(mysqlValidator{})
	registry.RegisterSeedValidator(dynamoDBValidator{})
}
