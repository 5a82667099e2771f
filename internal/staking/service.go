package staking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	"github.com/tedkimdev/nft-staking/internal/db"
	"github.com/tedkimdev/nft-staking/internal/ledger"
	"github.com/tedkimdev/nft-staking/internal/observability/metrics"
	"github.com/tedkimdev/nft-staking/internal/program"
	"github.com/tedkimdev/nft-staking/internal/queue"
	"github.com/tedkimdev/nft-staking/internal/types"
)

// Service is the staking program. Every instruction runs as one store
// transaction while holding the locks of the accounts it touches, so a failed
// instruction leaves no trace and instructions on disjoint accounts run in parallel.
type Service struct {
	db        db.DbInterface
	clock     ledger.Clock
	addresses *ledger.AddressDeriver
	locker    *ledger.AccountLocker
	publisher queue.Publisher
	vault     *Vault

	config ledger.Address
}

func NewService(
	db db.DbInterface,
	clock ledger.Clock,
	programID solana.PublicKey,
	publisher queue.Publisher,
) (*Service, error) {
	addresses := ledger.NewAddressDeriver(programID)
	cfgAddress, err := addresses.Config()
	if err != nil {
		return nil, err
	}

	if publisher == nil {
		publisher = queue.NoopPublisher{}
	}

	return &Service{
		db:        db,
		clock:     clock,
		addresses: addresses,
		locker:    ledger.NewAccountLocker(),
		publisher: publisher,
		vault:     NewVault(db, addresses),
		config:    cfgAddress,
	}, nil
}

func (s *Service) ProgramID() solana.PublicKey {
	return s.addresses.ProgramID()
}

// ConfigAddress is the address of the single program config account
func (s *Service) ConfigAddress() solana.PublicKey {
	return s.config.Key
}

// accounts lists the keys an instruction writes and the keys it only reads
type accounts struct {
	writes []string
	reads  []string
}

// execute runs fn atomically under the account locks and records the outcome.
// A signed instruction also consumes its nonce in the same transaction. The
// event fn returns is published after commit and before the locks are
// released, so events touching the same account leave in commit order.
func (s *Service) execute(
	ctx context.Context,
	name program.InstructionName,
	accts accounts,
	fn func(ctx context.Context) (*queue.StakeEvent, error),
) error {
	startTime := time.Now()

	nonce, signed := nonceFrom(ctx)
	writes := accts.writes
	if signed {
		writes = append(slices.Clone(accts.writes), nonceLockKey(nonce.signer))
	}

	var ev *queue.StakeEvent
	unlock := s.locker.Lock(writes, accts.reads)
	err := s.db.WithTransaction(ctx, func(ctx context.Context) error {
		if signed {
			if err := s.consumeNonce(ctx, nonce); err != nil {
				return err
			}
		}
		var err error
		ev, err = fn(ctx)
		return err
	})
	if err == nil && ev != nil {
		s.publish(ctx, *ev)
	}
	unlock()

	err = normalizeError(err)

	result := metrics.Success.String()
	if err != nil {
		result = types.CodeOf(err).String()
	}
	metrics.RecordInstructionLatency(time.Since(startTime), name.String(), result)

	if err != nil {
		log.Ctx(ctx).Debug().
			Err(err).
			Str("instruction", name.String()).
			Msg("instruction rejected")
	}
	return err
}

// normalizeError makes sure everything leaving the service is a *types.Error
func normalizeError(err error) error {
	if err == nil {
		return nil
	}

	// checked first, a conflict may surface wrapped in an internal error
	if db.IsTransientError(err) {
		return types.Wrap(types.ErrTransactionConflict, "%s", err.Error())
	}
	var typed *types.Error
	if errors.As(err, &typed) {
		return err
	}
	return types.NewInternalServiceError(err)
}

// publish sends ev after its instruction committed. A failed publish is
// logged and counted, the instruction stays committed.
func (s *Service) publish(ctx context.Context, ev queue.StakeEvent) {
	if err := s.publisher.PushStakeEvent(ctx, &ev); err != nil {
		metrics.RecordQueueSendError()
		log.Ctx(ctx).Error().
			Err(err).
			Str("event_type", string(ev.EventType)).
			Str("owner", ev.Owner).
			Str("asset", ev.Asset).
			Msg("failed to push stake event to the queue")
	}
}

func internalError(format string, args ...any) *types.Error {
	return types.NewInternalServiceError(fmt.Errorf(format, args...))
}
