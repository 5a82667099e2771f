package db

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"github.com/tedkimdev/nft-staking/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Database struct {
	dbName string
	client *mongo.Client
}

func New(ctx context.Context, cfg config.DbConfig) (*Database, error) {
	clientOps := options.Client().ApplyURI(cfg.Address)
	if cfg.Username != "" {
		clientOps.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	return &Database{
		dbName: cfg.DbName,
		client: client,
	}, nil
}

func (db *Database) Ping(ctx context.Context) error {
	return db.client.Ping(ctx, nil)
}

func (db *Database) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

func (db *Database) collection(name string) *mongo.Collection {
	return db.client.Database(db.dbName).Collection(name)
}

// WithTransaction runs fn inside a mongo transaction. Nested calls join the
// outer transaction. The transaction body is not retried here: transient
// failures surface as TransientError and the submitter decides whether to
// resubmit. Only the commit itself is retried when its outcome is unknown.
func (db *Database) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := db.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	if err := session.StartTransaction(); err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	sessCtx := mongo.NewSessionContext(ctx, session)

	if err := fn(sessCtx); err != nil {
		if abortErr := session.AbortTransaction(context.WithoutCancel(ctx)); abortErr != nil {
			log.Ctx(ctx).Warn().Err(abortErr).Msg("failed to abort transaction")
		}
		if hasTransientLabel(err) {
			return &TransientError{Err: err}
		}
		return err
	}

	return commitWithRetry(ctx, func() error {
		return session.CommitTransaction(sessCtx)
	})
}

const (
	maxCommitAttempts  = 3
	commitRetryBackoff = 50 * time.Millisecond
)

// commitWithRetry retries commit while mongo reports an unknown commit
// result. Committing again is idempotent, so the retry either confirms the
// first commit or applies it. A commit whose outcome is still unknown is not
// a TransientError: resubmitting the transaction could apply it twice.
func commitWithRetry(ctx context.Context, commit func() error) error {
	err := retry.Do(
		commit,
		retry.Context(ctx),
		retry.Attempts(maxCommitAttempts),
		retry.Delay(commitRetryBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return hasErrorLabel(err, unknownCommitResultLabel)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Warn().
				Uint("attempt", n+1).
				Err(err).
				Msg("unknown transaction commit result, committing again")
		}),
	)
	if err == nil {
		return nil
	}

	if hasTransientLabel(err) {
		return &TransientError{Err: err}
	}
	if hasErrorLabel(err, unknownCommitResultLabel) {
		return fmt.Errorf("transaction commit result unknown after %d attempts: %w", maxCommitAttempts, err)
	}
	return fmt.Errorf("failed to commit transaction: %w", err)
}
