package serial_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
	"github.com/liqingnz/btc-timelock-contracts/pkg/ports"
	"github.com/liqingnz/btc-timelock-contracts/pkg/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_RejectsReentrantRun(t *testing.T) {
	exec := serial.New()

	var inner error
	err := exec.Run(context.Background(), func(ctx context.Context) error {
		inner = exec.Run(ctx, func(context.Context) error { return nil })
		return nil
	})

	require.NoError(t, err)
	assert.ErrorIs(t, inner, domain.ErrReentrantCall)
}

func TestExecutor_ViewInsideRun(t *testing.T) {
	exec := serial.New()

	called := false
	err := exec.Run(context.Background(), func(ctx context.Context) error {
		return exec.View(ctx, func() error {
			called = true
			return nil
		})
	})

	require.NoError(t, err)
	assert.True(t, called, "view inside an operation must not deadlock")
}

func TestExecutor_Serializes(t *testing.T) {
	exec := serial.New()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = exec.Run(context.Background(), func(context.Context) error {
				n := atomic.AddInt32(&active, 1)
				for {
					m := atomic.LoadInt32(&maxActive)
					if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
}

type recordingLocker struct {
	mu       sync.Mutex
	locked   []string
	unlocked int
	err      error
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	l.locked = append(l.locked, key)
	l.mu.Unlock()
	return func(context.Context) error {
		l.mu.Lock()
		l.unlocked++
		l.mu.Unlock()
		return nil
	}, nil
}

func TestExecutor_DistributedLock(t *testing.T) {
	locker := &recordingLocker{}
	exec := serial.New(serial.WithLocker(locker, "timelock", time.Second))

	require.True(t, exec.Distributed())
	require.NoError(t, exec.Run(context.Background(), func(context.Context) error { return nil }))

	assert.Equal(t, []string{"timelock"}, locker.locked)
	assert.Equal(t, 1, locker.unlocked)
}

func TestExecutor_DistributedLockFailure(t *testing.T) {
	locker := &recordingLocker{err: errors.New("redis down")}
	exec := serial.New(serial.WithLocker(locker, "timelock", time.Second))

	ran := false
	err := exec.Run(context.Background(), func(context.Context) error {
		ran = true
		return nil
	})

	assert.ErrorContains(t, err, "redis down")
	assert.False(t, ran)
}
