package metrics

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rzpsarthak13/joinstore/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg, "joinstore")
	require.NoError(t, err)

	m.ObserveCommand("add", time.Millisecond, nil)
	m.ObserveCommand("add", time.Millisecond, nil)
	m.ObserveCommand("updateMany", time.Millisecond, errors.New("boom"))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.commands.WithLabelValues("add", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("updateMany", OutcomeError)))

	m.ObserveIndexBuild("userAddresses", core.DirectionFrom, 7)
	m.ObserveIndexBuild("userAddresses", core.DirectionFrom, 9)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.indexBuilds.WithLabelValues("userAddresses", "from")))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.indexKeys.WithLabelValues("userAddresses", "from")))

	m.ObserveDrain("users", nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.drained.WithLabelValues("users", OutcomeOK)))

	_, err = New(reg, "joinstore")
	assert.Error(t, err, "collectors cannot be registered twice")
}
