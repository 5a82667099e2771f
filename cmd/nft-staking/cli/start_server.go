package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
	"github.com/tedkimdev/nft-staking/internal/api"
	"github.com/tedkimdev/nft-staking/internal/config"
	"github.com/tedkimdev/nft-staking/internal/db"
	"github.com/tedkimdev/nft-staking/internal/db/memdb"
	dbmodel "github.com/tedkimdev/nft-staking/internal/db/model"
	"github.com/tedkimdev/nft-staking/internal/ledger"
	"github.com/tedkimdev/nft-staking/internal/observability/metrics"
	"github.com/tedkimdev/nft-staking/internal/observability/tracing"
	"github.com/tedkimdev/nft-staking/internal/program"
	"github.com/tedkimdev/nft-staking/internal/queue"
	"github.com/tedkimdev/nft-staking/internal/staking"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func StartServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Starts the NFT staking program server",
		Args:  cobra.ExactArgs(0),
		RunE:  startServer,
	}

	return cmd
}

func startServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = tracing.InjectTraceID(ctx)
	log := log.Ctx(ctx)

	// load config
	cfgPath := GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		return fmt.Errorf("error while loading config file %s: %w", cfgPath, err)
	}

	programID, err := program.ResolveProgramID(cfg.Program.Cluster, cfg.Program.ProgramID)
	if err != nil {
		return fmt.Errorf("error while resolving program id: %w", err)
	}

	dbClient, closeDb, err := newDbClient(ctx, &cfg.Db)
	if err != nil {
		return err
	}
	defer closeDb()
	dbClient = db.NewDbWithMetrics(dbClient)

	// Create a basic zap logger
	zapLogger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("error while creating zap logger: %w", err)
	}
	defer func() {
		// stderr sync fails on some terminals, nothing to do about it
		_ = zapLogger.Sync()
	}()

	var publisher queue.Publisher = queue.NoopPublisher{}
	if cfg.Queue != nil {
		qm, err := queue.NewQueueManager(cfg.Queue, zapLogger)
		if err != nil {
			return fmt.Errorf("failed to initialize event publisher: %w", err)
		}
		publisher = qm
	} else {
		log.Info().Msg("queue is not configured, stake events will not be published")
	}
	defer publisher.Shutdown()

	// initialize metrics with the metrics port from config
	metricsPort := cfg.Metrics.GetMetricsPort()
	metrics.Init(metricsPort)

	service, err := staking.NewService(dbClient, ledger.SystemClock{}, programID, publisher)
	if err != nil {
		return fmt.Errorf("error while creating staking service: %w", err)
	}
	service.StartStatsPoller(ctx, cfg.Poller.StatsPollingInterval)

	enableMint := cfg.Program.Cluster == program.ClusterLocalnet
	server := api.New(&cfg.Server, api.NewHandler(service, dbClient, enableMint))

	log.Info().
		Str("program_id", programID.String()).
		Str("config_address", service.ConfigAddress().String()).
		Str("cluster", cfg.Program.Cluster).
		Msg("staking program ready")

	var wg conc.WaitGroup
	wg.Go(func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("api server stopped")
			stop()
		}
	})

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shut down api server")
	}
	wg.Wait()

	return nil
}

// newDbClient builds the configured account store. The returned func releases it.
func newDbClient(ctx context.Context, cfg *config.DbConfig) (db.DbInterface, func(), error) {
	if cfg.IsMemory() {
		log.Ctx(ctx).Warn().Msg("using the in-memory account store, state is lost on exit")
		return memdb.New(), func() {}, nil
	}

	if err := dbmodel.Setup(ctx, cfg); err != nil {
		return nil, nil, fmt.Errorf("error while setting up staking db model: %w", err)
	}

	dbClient, err := db.New(ctx, *cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("error while creating db client: %w", err)
	}

	closeDb := func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := dbClient.Close(closeCtx); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to close db client")
		}
	}
	return dbClient, closeDb, nil
}
