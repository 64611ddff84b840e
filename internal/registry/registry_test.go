package registry

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewTableRegistry[int]()
	require.NoError(t, r.Register("users", 1))
	require.NoError(t, r.Register("addresses", 2))
	require.NoError(t, r.Register("states", 3))

	err := r.Register("users", 4)
	assert.True(t, errors.Is(err, core.ErrDuplicateTable))
	assert.True(t, errors.Is(r.Register("", 5), core.ErrInvalidConfig))

	v, err := r.Get("addresses")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = r.Get("ghosts")
	assert.True(t, errors.Is(err, core.ErrTableNotFound))

	assert.Equal(t, []string{"users", "addresses", "states"}, r.List())
	assert.Equal(t, []int{1, 2, 3}, r.Values())

	require.NoError(t, r.Unregister("addresses"))
	assert.Equal(t, []string{"users", "states"}, r.List())
	assert.False(t, r.Has("addresses"))
	assert.Equal(t, 2, r.Count())

	meta, err := r.Metadata("users")
	require.NoError(t, err)
	assert.Equal(t, "users", meta.Name)
	assert.False(t, meta.CreatedAt.IsZero())

	r.Clear()
	assert.Equal(t, 0, r.Count())
}

func TestJoinRegistryErrors(t *testing.T) {
	r := NewJoinRegistry[string]()
	require.NoError(t, r.Register("userAddresses", "x"))
	assert.True(t, errors.Is(r.Register("userAddresses", "y"), core.ErrDuplicateJoin))
	_, err := r.Get("nope")
	assert.True(t, errors.Is(err, core.ErrJoinNotFound))
}

func TestLifecycleManager(t *testing.T) {
	lm := NewLifecycleManager()
	var tables []string
	lm.RegisterHook(LifecycleHookFunc{
		OnTableAddedFunc: func(name string, _ *core.Schema) error {
			tables = append(tables, name)
			return nil
		},
	})
	lm.RegisterHook(LifecycleHookFunc{
		OnJoinAddedFunc: func(name string, _ core.JoinConfig) error {
			return errors.New("joins are frozen")
		},
	})
	assert.Equal(t, 2, lm.HookCount())

	require.NoError(t, lm.ExecuteTableAdded("users", nil))
	assert.Equal(t, []string{"users"}, tables)

	err := lm.ExecuteJoinAdded("userAddresses", core.JoinConfig{})
	assert.EqualError(t, err, "join hook 1 failed for userAddresses: joins are frozen")
}
