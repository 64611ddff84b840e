package txn

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	names []string
}

func (o *recordingObserver) ObserveCommand(name string, _ time.Duration, _ error) {
	o.names = append(o.names, name)
}

func TestPerformCommits(t *testing.T) {
	state := 0
	c := NewCoordinator()
	c.Register("incr", Handler{
		Action: func(tx *Tx, args ...interface{}) (interface{}, error) {
			state += args[0].(int)
			return state, nil
		},
	})

	var settled []bool
	c.OnSettled(func(_ *Tx, committed bool) { settled = append(settled, committed) })

	got, err := c.Perform("incr", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
	assert.Equal(t, []bool{true}, settled)
	assert.False(t, c.Pending())
}

func TestPerformRollsBackAndReraises(t *testing.T) {
	state := []int{1, 2, 3}
	boom := errors.New("boom")

	c := NewCoordinator()
	c.Register("mutate", Handler{
		Action: func(tx *Tx, args ...interface{}) (interface{}, error) {
			tx.Meta["backup"] = append([]int(nil), state...)
			state[0] = 100
			return nil, boom
		},
		Rollback: func(tx *Tx, err error) error {
			state = tx.Meta["backup"].([]int)
			return err
		},
	})

	_, err := c.Perform("mutate")
	assert.Equal(t, boom, err)
	assert.Equal(t, []int{1, 2, 3}, state)
}

func TestNestedCommandsShareTransaction(t *testing.T) {
	obs := &recordingObserver{}
	c := NewCoordinator(WithObserver(obs))

	var innerID string
	c.Register("inner", Handler{
		Action: func(tx *Tx, args ...interface{}) (interface{}, error) {
			innerID = tx.ID
			assert.NotNil(t, tx.Parent())
			return nil, nil
		},
	})
	c.Register("outer", Handler{
		Action: func(tx *Tx, args ...interface{}) (interface{}, error) {
			assert.True(t, c.Pending())
			_, err := tx.Perform("inner")
			return tx.ID, err
		},
	})

	settles := 0
	remove := c.OnSettled(func(*Tx, bool) { settles++ })

	outerID, err := c.Perform("outer")
	require.NoError(t, err)
	assert.Equal(t, outerID, innerID)
	assert.Equal(t, 1, settles, "only the outermost command settles")
	assert.Equal(t, []string{"inner", "outer"}, obs.names)

	remove()
	_, err = c.Perform("outer")
	require.NoError(t, err)
	assert.Equal(t, 1, settles)
}

func TestInnerFailureRollsBackOuter(t *testing.T) {
	a, b := 0, 0
	c := NewCoordinator()
	c.Register("setB", Handler{
		Action: func(tx *Tx, args ...interface{}) (interface{}, error) {
			tx.Meta["b"] = b
			b = 2
			return nil, errors.New("b failed")
		},
		Rollback: func(tx *Tx, err error) error {
			b = tx.Meta["b"].(int)
			return err
		},
	})
	c.Register("setBoth", Handler{
		Action: func(tx *Tx, args ...interface{}) (interface{}, error) {
			tx.Meta["a"] = a
			a = 1
			return tx.Perform("setB")
		},
		Rollback: func(tx *Tx, err error) error {
			a = tx.Meta["a"].(int)
			return errors.Wrap(err, "setBoth")
		},
	})

	var committed *bool
	c.OnSettled(func(_ *Tx, ok bool) { committed = &ok })

	_, err := c.Perform("setBoth")
	require.Error(t, err)
	assert.Equal(t, "setBoth: b failed", err.Error())
	assert.Equal(t, 0, a)
	assert.Equal(t, 0, b)
	require.NotNil(t, committed)
	assert.False(t, *committed)
}

func TestUnknownCommand(t *testing.T) {
	_, err := NewCoordinator().Perform("nope")
	assert.True(t, errors.Is(err, core.ErrUnknownCommand))
}

func TestPanicRollsBackAndSettles(t *testing.T) {
	state := 0
	c := NewCoordinator()
	c.Register("explode", Handler{
		Action: func(tx *Tx, args ...interface{}) (interface{}, error) {
			tx.Meta["state"] = state
			state = 7
			panic("hook exploded")
		},
		Rollback: func(tx *Tx, err error) error {
			state = tx.Meta["state"].(int)
			return err
		},
	})
	c.Register("wrap", Handler{
		Action: func(tx *Tx, args ...interface{}) (interface{}, error) {
			return tx.Perform("explode")
		},
	})
	c.Register("noop", Handler{
		Action: func(tx *Tx, args ...interface{}) (interface{}, error) { return nil, nil },
	})

	var settled []bool
	c.OnSettled(func(_ *Tx, committed bool) { settled = append(settled, committed) })

	_, err := c.Perform("explode")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCommandPanic))
	assert.Contains(t, err.Error(), "hook exploded")
	assert.Equal(t, 0, state)
	assert.False(t, c.Pending())

	_, err = c.Perform("wrap")
	assert.True(t, errors.Is(err, core.ErrCommandPanic))
	assert.False(t, c.Pending())

	_, err = c.Perform("noop")
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true}, settled)
}
