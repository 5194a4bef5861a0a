package userlock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todobot/internal/userlock"
)

func TestMemory_SerializesSameKey(t *testing.T) {
	l := userlock.NewMemory()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "U1")
			require.NoError(t, err)
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, l.Len(), "entries should be released")
}

func TestMemory_DifferentKeysDoNotBlock(t *testing.T) {
	l := userlock.NewMemory()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	unlock1, err := l.Lock(ctx, "U1")
	require.NoError(t, err)
	defer unlock1()

	unlock2, err := l.Lock(ctx, "U2")
	require.NoError(t, err)
	unlock2()
}

func TestMemory_Timeout(t *testing.T) {
	l := userlock.NewMemory()

	unlock, err := l.Lock(context.Background(), "U1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "U1")
	assert.ErrorIs(t, err, userlock.ErrLockTimeout)

	unlock()
	assert.Equal(t, 0, l.Len())
}

func TestMemory_UnlockIsIdempotent(t *testing.T) {
	l := userlock.NewMemory()

	unlock, err := l.Lock(context.Background(), "U1")
	require.NoError(t, err)
	unlock()
	unlock()

	unlock, err = l.Lock(context.Background(), "U1")
	require.NoError(t, err)
	unlock()
}
