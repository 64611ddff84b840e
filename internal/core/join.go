package core

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Direction names one endpoint of a join.
type Direction string

const (
	// DirectionFrom is the side a join is declared from.
	DirectionFrom Direction = "from"

	// DirectionTo is the side a join is declared to.
	DirectionTo Direction = "to"
)

// Opposite returns the other endpoint.
func (d Direction) Opposite() Direction {
	if d == DirectionFrom {
		return DirectionTo
	}
	return DirectionFrom
}

// Strategy is the relationship shape derived from the two join definitions.
type Strategy string

const (
	StrategyIdentityIdentity    Strategy = "identity-identity"
	StrategyIdentityField       Strategy = "identity-field"
	StrategyFieldIdentity       Strategy = "field-identity"
	StrategyFieldField          Strategy = "field-field"
	StrategyIdentityViaIdentity Strategy = "identity-via-identity"
)

// ResolveStrategy derives the strategy for a pair of definitions.
func ResolveStrategy(from, to JoinDef, via bool) Strategy {
	switch {
	case via:
		return StrategyIdentityViaIdentity
	case !from.IsIdentity() && !to.IsIdentity():
		return StrategyFieldField
	case !from.IsIdentity():
		return StrategyFieldIdentity
	case !to.IsIdentity():
		return StrategyIdentityField
	default:
		return StrategyIdentityIdentity
	}
}

// DefKind tags the variant held by a JoinDef.
type DefKind int

const (
	// ByIdentity keys a record by its own identity.
	ByIdentity DefKind = iota
	// ByField keys a record by the value(s) of one field.
	ByField
	// ByKeyGenerator keys a record by whatever a function derives from it.
	ByKeyGenerator
)

func (k DefKind) String() string {
	switch k {
	case ByIdentity:
		return "identity"
	case ByField:
		return "field"
	case ByKeyGenerator:
		return "keygen"
	}
	return "unknown"
}

// KeyGenerator derives join keys from a record.
type KeyGenerator func(rec Record, id Identity) []interface{}

// JoinDef describes how one side of a join extracts keys from its table.
type JoinDef struct {
	Table  string
	Kind   DefKind
	Field  string
	KeyGen KeyGenerator
}

// IdentityDef keys records of table by identity.
func IdentityDef(table string) JoinDef {
	return JoinDef{Table: table, Kind: ByIdentity}
}

// FieldDef keys records of table by field.
func FieldDef(table, field string) JoinDef {
	return JoinDef{Table: table, Kind: ByField, Field: field}
}

// KeyGenDef keys records of table by the keys gen returns. Link operations
// cannot write through a key generator.
func KeyGenDef(table string, gen KeyGenerator) JoinDef {
	return JoinDef{Table: table, Kind: ByKeyGenerator, KeyGen: gen}
}

// IsIdentity reports whether records are keyed by their own identity.
func (d JoinDef) IsIdentity() bool {
	return d.Kind == ByIdentity
}

// Writable reports whether link operations can store a key in the record.
func (d JoinDef) Writable() bool {
	return d.Kind == ByField && d.Field != ""
}

// Validate checks the variant carries what it needs.
func (d JoinDef) Validate() error {
	if d.Table == "" {
		return errors.Wrap(ErrInvalidConfig, "join definition has no table")
	}
	switch d.Kind {
	case ByIdentity:
	case ByField:
		if d.Field == "" {
			return errors.Wrapf(ErrInvalidConfig, "field definition on %s has no field", d.Table)
		}
	case ByKeyGenerator:
		if d.KeyGen == nil {
			return errors.Wrapf(ErrInvalidConfig, "key generator definition on %s has no function", d.Table)
		}
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown definition kind %d", d.Kind)
	}
	return nil
}

type joinDefDoc struct {
	Table string `yaml:"table" json:"table"`
	Field string `yaml:"field" json:"field"`
}

func (doc joinDefDoc) def() JoinDef {
	if doc.Field == "" {
		return IdentityDef(doc.Table)
	}
	return FieldDef(doc.Table, doc.Field)
}

// UnmarshalYAML accepts a bare table name or {table, field}.
func (d *JoinDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*d = IdentityDef(node.Value)
		return nil
	}
	var doc joinDefDoc
	if err := node.Decode(&doc); err != nil {
		return errors.Wrap(err, "decoding join definition")
	}
	*d = doc.def()
	return nil
}

// UnmarshalJSON accepts a bare table name or {table, field}.
func (d *JoinDef) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*d = IdentityDef(name)
		return nil
	}
	var doc joinDefDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, "decoding join definition")
	}
	*d = doc.def()
	return nil
}

// MarshalYAML writes the shorthand form back out.
func (d JoinDef) MarshalYAML() (interface{}, error) {
	if d.IsIdentity() {
		return d.Table, nil
	}
	return joinDefDoc{Table: d.Table, Field: d.Field}, nil
}

// ViaSpec selects the association-table strategy. Table is empty when the
// name is derived from the join name.
type ViaSpec struct {
	Enabled bool
	Table   string
}

// Via returns an enabled ViaSpec with an explicit association table name.
func Via(table string) ViaSpec { return ViaSpec{Enabled: true, Table: table} }

// UnmarshalYAML accepts `true`, `false` or a table name.
func (v *ViaSpec) UnmarshalYAML(node *yaml.Node) error {
	var enabled bool
	if node.ShortTag() == "!!bool" {
		if err := node.Decode(&enabled); err != nil {
			return errors.Wrap(err, "decoding via")
		}
		*v = ViaSpec{Enabled: enabled}
		return nil
	}
	*v = Via(node.Value)
	return nil
}

// UnmarshalJSON accepts true, false or a table name.
func (v *ViaSpec) UnmarshalJSON(data []byte) error {
	var enabled bool
	if err := json.Unmarshal(data, &enabled); err == nil {
		*v = ViaSpec{Enabled: enabled}
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return errors.Wrap(err, "decoding via")
	}
	*v = Via(name)
	return nil
}

// JoinNameSeparator separates table names in derived join names.
const JoinNameSeparator = ":"

// ViaSuffix is appended to a join name to name its derived association table.
const ViaSuffix = "$via"

// JoinConfig declares a join.
type JoinConfig struct {
	Name string  `yaml:"name,omitempty" json:"name,omitempty"`
	From JoinDef `yaml:"from" json:"from"`
	To   JoinDef `yaml:"to" json:"to"`
	Via  ViaSpec `yaml:"via,omitempty" json:"via,omitempty"`
}

// JoinName returns the explicit name, or the two table names sorted and
// joined so that declaration order does not matter.
func (c JoinConfig) JoinName() string {
	if c.Name != "" {
		return c.Name
	}
	names := []string{c.From.Table, c.To.Table}
	sort.Strings(names)
	return strings.Join(names, JoinNameSeparator)
}

// ViaTable returns the association table name, or "" when via is off.
func (c JoinConfig) ViaTable() string {
	if !c.Via.Enabled {
		return ""
	}
	if c.Via.Table != "" {
		return c.Via.Table
	}
	return c.JoinName() + ViaSuffix
}

// Strategy resolves the join strategy.
func (c JoinConfig) Strategy() Strategy {
	return ResolveStrategy(c.From, c.To, c.Via.Enabled)
}

// Validate checks both definitions and the via constraints.
func (c JoinConfig) Validate() error {
	if err := c.From.Validate(); err != nil {
		return errors.Wrap(err, "from")
	}
	if err := c.To.Validate(); err != nil {
		return errors.Wrap(err, "to")
	}
	if c.Via.Enabled && c.From.Table == c.To.Table {
		return errors.Wrapf(ErrInvalidConfig, "via join %s cannot join %s to itself", c.JoinName(), c.From.Table)
	}
	return nil
}

// Def returns the definition for direction d.
func (c JoinConfig) Def(d Direction) JoinDef {
	if d == DirectionFrom {
		return c.From
	}
	return c.To
}
