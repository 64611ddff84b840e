package store

import (
	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/registry"
)

// Apply adds the tables and joins a schema file declares.
func (s *Store) Apply(cfg *registry.InternalConfig) error {
	for _, tc := range cfg.Tables {
		if _, err := s.AddTable(TableConfig{
			Name:          tc.Name,
			IdentityField: tc.Identity,
			Schema:        tc.Schema(),
		}); err != nil {
			return errors.Wrapf(err, "table %s", tc.Name)
		}
	}
	for _, jc := range cfg.Joins {
		if _, err := s.AddJoin(jc); err != nil {
			return errors.Wrapf(err, "join %s", jc.JoinName())
		}
	}
	s.logger.Infof("applied schema: %d table(s), %d join(s)", len(cfg.Tables), len(cfg.Joins))
	return nil
}

// Load merges records into table in one transaction. Identities come from
// the table's identity rule.
func (s *Store) Load(table string, records []core.Record) error {
	t, err := s.Table(table)
	if err != nil {
		return err
	}
	entries := make([]core.Entry, len(records))
	for i, rec := range records {
		entries[i] = core.Entry{Record: rec}
	}
	return t.UpdateMany(entries, false)
}
