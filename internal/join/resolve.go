package join

import (
	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
)

// Locate returns the side of j that table sits on.
func Locate(j *Join, table string) (core.Direction, error) {
	d, ok := j.DirectionFor(table)
	if !ok {
		return "", errors.Wrapf(core.ErrInvalidConfig, "join %s does not touch table %s", j.Name(), table)
	}
	return d, nil
}

// Resolve finds the single join connecting table to other. It fails with
// ErrJoinNotFound when none does and ErrAmbiguousJoin when several do.
func Resolve(joins []*Join, table, other string) (*Join, core.Direction, error) {
	var (
		found *Join
		dir   core.Direction
		n     int
	)
	for _, j := range joins {
		from, to := j.From().TableName(), j.To().TableName()
		switch {
		case from == table && to == other:
			found, dir = j, core.DirectionFrom
		case to == table && from == other:
			found, dir = j, core.DirectionTo
		default:
			continue
		}
		n++
	}
	switch n {
	case 0:
		return nil, "", errors.Wrapf(core.ErrJoinNotFound, "no join between %s and %s", table, other)
	case 1:
		return found, dir, nil
	}
	return nil, "", errors.Wrapf(core.ErrAmbiguousJoin, "%d joins between %s and %s", n, table, other)
}
