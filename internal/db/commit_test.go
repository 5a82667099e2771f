package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func labelled(labels ...string) error {
	return mongo.CommandError{Code: 251, Message: "commit failed", Labels: labels}
}

func TestCommitWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown result is committed again", func(t *testing.T) {
		calls := 0
		err := commitWithRetry(ctx, func() error {
			calls++
			if calls < 3 {
				return labelled(unknownCommitResultLabel)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})
	t.Run("result still unknown is not transient", func(t *testing.T) {
		calls := 0
		err := commitWithRetry(ctx, func() error {
			calls++
			return labelled(unknownCommitResultLabel)
		})
		require.Error(t, err)
		assert.Equal(t, maxCommitAttempts, calls)
		assert.False(t, IsTransientError(err))
	})
	t.Run("aborted transaction is transient", func(t *testing.T) {
		calls := 0
		err := commitWithRetry(ctx, func() error {
			calls++
			return labelled(transientTransactionLabel)
		})
		assert.True(t, IsTransientError(err))
		assert.Equal(t, 1, calls)
	})
	t.Run("other errors pass through", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := commitWithRetry(ctx, func() error { return cause })
		assert.ErrorIs(t, err, cause)
		assert.False(t, IsTransientError(err))
	})
}

func TestHasTransientLabel(t *testing.T) {
	assert.True(t, hasTransientLabel(labelled(transientTransactionLabel)))
	assert.False(t, hasTransientLabel(labelled(unknownCommitResultLabel)))
	assert.False(t, hasTransientLabel(errors.New("plain")))
}
