package staking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tedkimdev/nft-staking/internal/db"
	"github.com/tedkimdev/nft-staking/internal/db/model"
	"github.com/tedkimdev/nft-staking/internal/observability/metrics"
	"github.com/tedkimdev/nft-staking/internal/types"
	"github.com/tedkimdev/nft-staking/internal/utils/poller"
)

// StartStatsPoller refreshes the overall stats document and the stake gauges
// every interval until ctx is done
func (s *Service) StartStatsPoller(ctx context.Context, interval time.Duration) *poller.Poller {
	statsPoller := poller.NewPoller(
		interval,
		metrics.TimeStatsRefresh("overall_stats", s.UpdateStats),
	)
	go statsPoller.Start(ctx)
	return statsPoller
}

// UpdateStats aggregates the stake records and user accounts into the overall stats
func (s *Service) UpdateStats(ctx context.Context) error {
	stats, err := s.db.CalculateStakeStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to calculate stake stats: %w", err)
	}

	if err := s.db.UpsertOverallStats(ctx, stats, s.clock.Now()); err != nil {
		return fmt.Errorf("failed to update overall stats: %w", err)
	}

	metrics.RecordActiveStakes(stats.ActiveStakes)
	metrics.RecordUnclaimedReward(stats.UnclaimedReward)

	log.Ctx(ctx).Debug().
		Uint64("active_stakes", stats.ActiveStakes).
		Uint64("unclaimed_reward", stats.UnclaimedReward).
		Uint64("claimed_points", stats.ClaimedPoints).
		Msg("stake stats updated")
	return nil
}

func (s *Service) GetOverallStats(ctx context.Context) (*model.OverallStatsDocument, error) {
	stats, err := s.db.GetOverallStats(ctx)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.Wrap(types.ErrNotFound, "stats have not been calculated yet")
		}
		return nil, internalError("failed to get overall stats: %w", err)
	}
	return stats, nil
}
