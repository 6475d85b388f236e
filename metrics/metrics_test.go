package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeRegistersMetrics(t *testing.T) {
	srv := Serve("127.0.0.1:0")
	defer srv.Close()

	DecisionsTotal.WithLabelValues("skip", "risk outweighs reward").Inc()
	CycleSeconds.Observe(0.3)

	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["ouro_decisions_total"])
	assert.True(t, names["ouro_cycle_seconds"])
}

func TestCounterValues(t *testing.T) {
	c := OrdersTotal.WithLabelValues("IBM", "accepted")
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
