package join

import "github.com/rzpsarthak13/joinstore/internal/core"

// Side is one endpoint of a join. It holds the endpoint's definition and the
// lazily built forward and reverse indexes; it names its table rather than
// holding it, and the owning Join resolves the name through its Catalog.
type Side struct {
	direction core.Direction
	def       core.JoinDef

	index   *Index
	reverse *Index
}

func newSide(d core.Direction, def core.JoinDef) *Side {
	return &Side{direction: d, def: def}
}

// Direction returns from or to.
func (s *Side) Direction() core.Direction { return s.direction }

// Def returns the key extraction definition.
func (s *Side) Def() core.JoinDef { return s.def }

// TableName returns the endpoint table name.
func (s *Side) TableName() string { return s.def.Table }

// IsIdentity reports whether records on this side are keyed by identity.
func (s *Side) IsIdentity() bool { return s.def.IsIdentity() }

// Cached reports whether the forward index is built.
func (s *Side) Cached() bool { return s.index != nil }

// Purge drops both indexes.
func (s *Side) Purge() {
	s.index = nil
	s.reverse = nil
}
