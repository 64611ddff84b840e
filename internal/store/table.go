package store

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/collection"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/rzpsarthak13/joinstore/internal/join"
	"github.com/rzpsarthak13/joinstore/internal/query"
	"github.com/rzpsarthak13/joinstore/internal/schema"
)

// TableConfig declares a table.
type TableConfig struct {
	Name string

	// IdentityField names the field holding each record's identity.
	IdentityField string

	// IdentityFunc derives the identity from a record. It takes precedence
	// over IdentityField. With neither set, records get random uuids.
	IdentityFunc func(rec core.Record) (core.Identity, error)

	// OnCreate and OnUpdate may rewrite a record before it is stored.
	OnCreate core.RecordProcessor
	OnUpdate core.RecordProcessor

	Validators     []core.RecordValidator
	TableValidator core.TableValidator

	// Schema adds a column validator in front of Validators.
	Schema *core.Schema
}

// Table is a named, ordered set of records. Records returned by reads are
// shared with the table and must not be modified; write through the
// mutation methods instead.
type Table struct {
	name  string
	store *Store
	coll  *collection.Collection

	identityField string
	identityFunc  func(rec core.Record) (core.Identity, error)

	onCreate       core.RecordProcessor
	onUpdate       core.RecordProcessor
	validators     []core.RecordValidator
	tableValidator core.TableValidator
	schema         *core.Schema
}

var _ core.TableReader = (*Table)(nil)

func newTable(s *Store, cfg TableConfig) *Table {
	t := &Table{
		name:           cfg.Name,
		store:          s,
		coll:           collection.New(),
		identityField:  cfg.IdentityField,
		identityFunc:   cfg.IdentityFunc,
		onCreate:       cfg.OnCreate,
		onUpdate:       cfg.OnUpdate,
		tableValidator: cfg.TableValidator,
		schema:         cfg.Schema,
	}
	if cfg.Schema != nil {
		sc := *cfg.Schema
		sc.Table = cfg.Name
		if sc.IdentityField == "" {
			sc.IdentityField = cfg.IdentityField
		}
		t.schema = &sc
		t.validators = append(t.validators, schema.NewSchemaValidator(&sc))
	}
	t.validators = append(t.validators, cfg.Validators...)
	return t
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Schema returns the declared schema, or nil.
func (t *Table) Schema() *core.Schema { return t.schema }

// Has reports whether id is present.
func (t *Table) Has(id core.Identity) bool { return t.coll.Has(id) }

// Get returns the record stored under id.
func (t *Table) Get(id core.Identity) (core.Record, bool) { return t.coll.Get(id) }

// GetMany returns the records for ids, skipping identities that are absent.
func (t *Table) GetMany(ids []core.Identity) []core.Record {
	out := make([]core.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := t.coll.Get(id); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Size returns the number of records.
func (t *Table) Size() int { return t.coll.Len() }

// Keys returns every identity in insertion order.
func (t *Table) Keys() []core.Identity { return t.coll.Keys() }

// Records returns every entry in insertion order.
func (t *Table) Records() []core.Entry { return t.coll.Entries() }

// ForEach calls fn for every record in insertion order until fn returns false.
func (t *Table) ForEach(fn func(id core.Identity, rec core.Record) bool) {
	t.coll.ForEach(fn)
}

// IdentityFor derives the identity rec would be stored under.
func (t *Table) IdentityFor(rec core.Record) (core.Identity, error) {
	switch {
	case t.identityFunc != nil:
		id, err := t.identityFunc(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "table %s identity", t.name)
		}
		return id, nil
	case t.identityField != "":
		id, ok := rec[t.identityField]
		if !ok || id == nil {
			return nil, errors.Wrapf(core.ErrInvalidIdentity, "table %s: record has no %s", t.name, t.identityField)
		}
		return id, nil
	}
	return uuid.New().String(), nil
}

// Query returns a query over this table.
func (t *Table) Query(sel ...query.Selector) *query.Query {
	return t.store.Query(query.Def{Table: t.name, Sel: sel})
}

// Joins returns the joins that read this table.
func (t *Table) Joins() []*join.Join { return t.store.JoinsFor(t.name) }

func (t *Table) validateRecord(rec core.Record, id core.Identity) error {
	for _, v := range t.validators {
		if err := v.ValidateRecord(rec, id); err != nil {
			return validationError(t.name, id, err)
		}
	}
	return nil
}

func (t *Table) validateTable() error {
	if t.tableValidator == nil {
		return nil
	}
	if err := t.tableValidator.ValidateTable(t); err != nil {
		return validationError(t.name, nil, err)
	}
	return nil
}

func validationError(table string, id core.Identity, err error) error {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return err
	}
	return &core.ValidationError{Table: table, Identity: id, Reason: err.Error()}
}

// process runs the create or update processor, then the record validators.
func (t *Table) process(rec core.Record, id core.Identity, existed bool) (core.Record, error) {
	proc := t.onCreate
	if existed {
		proc = t.onUpdate
	}
	if proc != nil {
		out, err := proc(rec, id)
		if err != nil {
			return nil, errors.Wrapf(err, "table %s, identity %v", t.name, id)
		}
		if out != nil {
			rec = out
		}
	}
	if err := t.validateRecord(rec, id); err != nil {
		return nil, err
	}
	return rec, nil
}

// put stores rec and records the change for the running transaction.
func (t *Table) put(id core.Identity, rec core.Record, existed bool) error {
	if err := t.coll.Set(id, rec); err != nil {
		return errors.Wrapf(err, "table %s", t.name)
	}
	t.store.invalidate(t.name)
	op := core.OperationCreate
	if existed {
		op = core.OperationUpdate
	}
	t.store.record(t.name, op, id, rec)
	return nil
}

func (t *Table) remove(id core.Identity) bool {
	if !t.coll.Delete(id) {
		return false
	}
	t.store.invalidate(t.name)
	t.store.record(t.name, core.OperationDelete, id, nil)
	return true
}
