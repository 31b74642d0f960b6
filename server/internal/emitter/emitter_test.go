package emitter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/assetd/server/internal/emitter"
	"github.com/hedisam/assetd/server/internal/store"
)

func TestEmitter(t *testing.T) {
	t.Run("emit and receive", func(t *testing.T) {
		e := emitter.New(1)
		orphan := &store.Orphan{Name: store.TempPrefix + "abc", DetectedAt: time.Now()}
		err := e.Emit(context.Background(), orphan)
		require.NoError(t, err)

		select {
		case got := <-e.Chan():
			assert.Equal(t, orphan, got)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timed out waiting for orphan on channel")
		}
	})

	t.Run("emit after close", func(t *testing.T) {
		e := emitter.New(1)
		e.Close()
		err := e.Emit(context.Background(), &store.Orphan{})
		require.ErrorIs(t, err, emitter.ErrClosed)
	})

	t.Run("emit context canceled while buffer is full", func(t *testing.T) {
		e := emitter.New(1)
		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, e.Emit(ctx, &store.Orphan{}))
		cancel()
		err := e.Emit(ctx, &store.Orphan{})
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("close unblocks a pending emit", func(t *testing.T) {
		e := emitter.New(1)
		require.NoError(t, e.Emit(context.Background(), &store.Orphan{}))

		errCh := make(chan error, 1)
		go func() {
			errCh <- e.Emit(context.Background(), &store.Orphan{})
		}()

		time.Sleep(20 * time.Millisecond)
		e.Close()

		select {
		case err := <-errCh:
			require.ErrorIs(t, err, emitter.ErrClosed)
		case <-time.After(time.Second):
			t.Fatal("pending emit was not released by close")
		}
	})

	t.Run("close closes channel", func(t *testing.T) {
		e := emitter.New(0)
		e.Close()
		_, ok := <-e.Chan()
		assert.False(t, ok)
	})

	t.Run("close idempotent", func(t *testing.T) {
		e := emitter.New(1)
		e.Close()
		e.Close()
	})
}
