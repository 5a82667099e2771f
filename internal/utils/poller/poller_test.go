package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller(t *testing.T) {
	t.Run("polls until stopped", func(t *testing.T) {
		var calls atomic.Int32
		p := NewPoller(5*time.Millisecond, func(ctx context.Context) error {
			calls.Add(1)
			return errors.New("errors are logged, not fatal")
		})

		done := make(chan struct{})
		go func() {
			p.Start(context.Background())
			close(done)
		}()

		require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
		p.Stop()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("poller did not stop")
		}
	})
	t.Run("stops on context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := NewPoller(time.Hour, func(ctx context.Context) error { return nil })

		done := make(chan struct{})
		go func() {
			p.Start(ctx)
			close(done)
		}()
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("poller ignored cancellation")
		}
		assert.Error(t, ctx.Err())
	})
}
