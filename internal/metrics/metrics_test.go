package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterWatchlistSize(t *testing.T) {
	reg := prometheus.NewRegistry()
	size := 3
	RegisterWatchlistSize(reg, func() int { return size })
	// A second registration is ignored.
	RegisterWatchlistSize(reg, func() int { return -1 })

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "pricenotifier_watchlist_entries", families[0].GetName())
	assert.Equal(t, float64(3), families[0].GetMetric()[0].GetGauge().GetValue())

	size = 7
	families, err = reg.Gather()
	require.NoError(t, err)
	assert.Equal(t, float64(7), families[0].GetMetric()[0].GetGauge().GetValue())
}
