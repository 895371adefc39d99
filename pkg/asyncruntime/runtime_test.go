package asyncruntime

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainAdmissionControl(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ComputeConcurrency = 2
	cfg.MetricsInterval = 0
	rt := New(cfg)
	defer rt.Shutdown(context.Background())

	var current, peak int32
	handles := make([]*TaskHandle, 0, 5)
	for i := 0; i < 5; i++ {
		h, err := rt.Spawn(context.Background(), func(ctx context.Context) error {
			n := atomic.AddInt32(&current, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(50 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return nil
		}, TaskConfig{Domain: Compute})
		require.NoError(t, err)
		handles = append(handles, h)
	}

	for _, h := range handles {
		require.NoError(t, h.Wait(context.Background()))
	}

	assert.LessOrEqual(t, int(atomic.LoadInt32(&peak)), 2)
	snap := rt.Stats()
	assert.EqualValues(t, 5, snap.Spawned)
	assert.EqualValues(t, 5, snap.Completed)
}

func TestTaskTimeout(t *testing.T) {
	rt := New(DefaultConfig())
	defer rt.Shutdown(context.Background())

	h, err := rt.Spawn(context.Background(), func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}, TaskConfig{Domain: Compute, Timeout: 100 * time.Millisecond})
	require.NoError(t, err)

	err = h.Wait(context.Background())
	assert.ErrorIs(t, err, ErrTaskTimedOut)

	snap := rt.Stats()
	assert.EqualValues(t, 1, snap.TimedOut)
	assert.Equal(t, 0, snap.Active)
}

func TestUnknownDomainRejected(t *testing.T) {
	rt := New(DefaultConfig())
	defer rt.Shutdown(context.Background())

	_, err := rt.Spawn(context.Background(), func(ctx context.Context) error { return nil }, TaskConfig{Domain: "bogus"})
	assert.ErrorIs(t, err, ErrDomainNotFound)
}

func TestSetDomainConcurrencyLimitDoesNotAffectInFlight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ComputeConcurrency = 1
	rt := New(cfg)
	defer rt.Shutdown(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	h, err := rt.Spawn(context.Background(), func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}, TaskConfig{Domain: Compute})
	require.NoError(t, err)
	<-started

	require.NoError(t, rt.SetDomainConcurrencyLimit(Compute, 4))

	close(release)
	require.NoError(t, h.Wait(context.Background()))
}

func TestPanicIsContained(t *testing.T) {
	rt := New(DefaultConfig())
	defer rt.Shutdown(context.Background())

	h, err := rt.Spawn(context.Background(), func(ctx context.Context) error {
		panic("boom")
	}, TaskConfig{Domain: Compute})
	require.NoError(t, err)

	err = h.Wait(context.Background())
	assert.Error(t, err)
	assert.Equal(t, uint64(1), rt.Stats().Failed)
}
