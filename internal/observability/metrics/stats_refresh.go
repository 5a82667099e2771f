package metrics

import (
	"context"
	"time"
)

// TimeStatsRefresh wraps a stats refresh job so every run is timed under job.
// A successful run also moves the last refresh timestamp of job.
func TimeStatsRefresh(job string, refresh func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		start := time.Now()
		err := refresh(ctx)

		status := Success
		if err != nil {
			status = Error
		} else {
			statsLastRefreshGauge.WithLabelValues(job).SetToCurrentTime()
		}
		statsRefreshDuration.WithLabelValues(job, status.String()).Observe(time.Since(start).Seconds())

		return err
	}
}
