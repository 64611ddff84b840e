package seed

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/logger"
	"github.com/rzpsarthak13/joinstore/internal/registry"
	"github.com/rzpsarthak13/joinstore/internal/schema"
)

const (
	defaultMySQLPort    = 3306
	defaultMySQLTimeout = 10 * time.Second
)

// MySQLSource reads every row of one MySQL table.
type MySQLSource struct {
	db         *sql.DB
	table      string
	schema     *core.Schema
	translator *schema.Translator
	logger     logger.Logger
}

// mysqlDSN builds the driver DSN for cfg.
func mysqlDSN(cfg registry.InternalMySQLConfig) string {
	port := cfg.Port
	if port == 0 {
		port = defaultMySQLPort
	}
	timeout := cfg.ConnectionTimeout
	if timeout <= 0 {
		timeout = defaultMySQLTimeout
	}

	dc := mysql.NewConfig()
	dc.User = cfg.Username
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", cfg.Host, port)
	dc.DBName = cfg.Database
	dc.ParseTime = true
	dc.Timeout = timeout
	return dc.FormatDSN()
}

// NewMySQLSource opens and pings the database. The table read is
// cfg.SourceTable, falling back to the schema's table name.
func NewMySQLSource(ctx context.Context, cfg registry.InternalMySQLConfig, sch *core.Schema, l logger.Logger) (*MySQLSource, error) {
	table := cfg.SourceTable
	if table == "" && sch != nil {
		table = sch.Table
	}
	if table == "" {
		return nil, errors.Wrap(core.ErrInvalidConfig, "mysql source table is required")
	}

	db, err := sql.Open("mysql", mysqlDSN(cfg))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	timeout := cfg.ConnectionTimeout
	if timeout <= 0 {
		timeout = defaultMySQLTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to ping database at %s", cfg.Host)
	}

	if l == nil {
		l = logger.NopLogger
	}
	return &MySQLSource{
		db:         db,
		table:      table,
		schema:     sch,
		translator: schema.NewTranslator(),
		logger:     l.WithPrefix("MYSQL"),
	}, nil
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Fetch selects every row of the source table.
func (m *MySQLSource) Fetch(ctx context.Context) ([]core.Record, error) {
	query := "SELECT * FROM " + quoteIdent(m.table)
	m.logger.Debugf("executing query: %s", query)
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		m.logger.Errorf("query failed: %v", err)
		return nil, errors.Wrap(err, "failed to execute query")
	}
	recs, err := scanRows(rows, m.translator, m.schema)
	if err != nil {
		return nil, err
	}
	m.logger.Infof("read %d row(s) from %s", len(recs), m.table)
	return recs, nil
}

// Close closes the database handle.
func (m *MySQLSource) Close() error {
	return m.db.Close()
}

// rowIterator is the part of *sql.Rows scanRows walks.
type rowIterator interface {
	schema.Row
	Next() bool
	Err() error
	Close() error
}

func scanRows(rows rowIterator, t *schema.Translator, sch *core.Schema) ([]core.Record, error) {
	defer rows.Close()
	var recs []core.Record
	for rows.Next() {
		rec, err := t.FromRow(rows, sch)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", len(recs))
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating rows")
	}
	return recs, nil
}
