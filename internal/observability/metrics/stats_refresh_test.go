package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeStatsRefresh(t *testing.T) {
	failing := TimeStatsRefresh("failing", func(context.Context) error {
		return errors.New("store down")
	})
	assert.Error(t, failing(t.Context()))
	assert.Zero(t, lastRefresh(t, "failing"))
	assert.Equal(t, uint64(1), refreshCount(t, "failing", Error))

	healthy := TimeStatsRefresh("healthy", func(context.Context) error { return nil })
	require.NoError(t, healthy(t.Context()))
	require.NoError(t, healthy(t.Context()))
	assert.Positive(t, lastRefresh(t, "healthy"))
	assert.Equal(t, uint64(2), refreshCount(t, "healthy", Success))
}

func lastRefresh(t *testing.T, job string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, statsLastRefreshGauge.WithLabelValues(job).Write(&m))
	return m.GetGauge().GetValue()
}

func refreshCount(t *testing.T, job string, status Outcome) uint64 {
	t.Helper()
	var m dto.Metric
	observer := statsRefreshDuration.WithLabelValues(job, status.String())
	require.NoError(t, observer.(prometheus.Metric).Write(&m))
	return m.GetHistogram().GetSampleCount()
}
