package join

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	c := peopleCatalog()
	userAddresses := mustJoin(t, core.JoinConfig{Name: "userAddresses", From: core.FieldDef("users", "address"), To: core.IdentityDef("addresses")}, c)
	addressStates := mustJoin(t, core.JoinConfig{Name: "addressStates", From: core.FieldDef("addresses", "state"), To: core.IdentityDef("states")}, c)
	joins := []*Join{userAddresses, addressStates}

	j, d, err := Resolve(joins, "addresses", "users")
	require.NoError(t, err)
	assert.Same(t, userAddresses, j)
	assert.Equal(t, core.DirectionTo, d)

	j, d, err = Resolve(joins, "addresses", "states")
	require.NoError(t, err)
	assert.Same(t, addressStates, j)
	assert.Equal(t, core.DirectionFrom, d)

	_, _, err = Resolve(joins, "users", "states")
	assert.True(t, errors.Is(err, core.ErrJoinNotFound))

	homes := mustJoin(t, core.JoinConfig{Name: "homes", From: core.FieldDef("users", "home"), To: core.IdentityDef("addresses")}, c)
	_, _, err = Resolve(append(joins, homes), "users", "addresses")
	assert.True(t, errors.Is(err, core.ErrAmbiguousJoin))
}

func TestLocate(t *testing.T) {
	c := peopleCatalog()
	j := mustJoin(t, core.JoinConfig{Name: "userAddresses", From: core.FieldDef("users", "address"), To: core.IdentityDef("addresses")}, c)

	d, err := Locate(j, "addresses")
	require.NoError(t, err)
	assert.Equal(t, core.DirectionTo, d)

	_, err = Locate(j, "states")
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))
}
