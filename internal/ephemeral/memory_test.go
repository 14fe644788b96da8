package ephemeral

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/burstreply-backend/internal/platform/clock"
)

func TestMemorySetExpiresAfterTTL(t *testing.T) {
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	m := NewMemory(clk)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 10*time.Second))
	clk.Advance(9 * time.Second)
	v, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)

	clk.Advance(time.Second)
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemorySetNXOnlyOncePerTTL(t *testing.T) {
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	m := NewMemory(clk)
	ctx := context.Background()

	ok, err := m.SetNX(ctx, "lock", []byte("1"), 6*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.SetNX(ctx, "lock", []byte("1"), 6*time.Second)
	require.NoError(t, err)
	require.False(t, ok)

	clk.Advance(6 * time.Second)
	ok, err = m.SetNX(ctx, "lock", []byte("1"), 6*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMemoryAppendRefreshesTTLAndDrainClears(t *testing.T) {
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	m := NewMemory(clk)
	ctx := context.Background()

	n, err := m.Append(ctx, "group", "a", 10*time.Second)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	clk.Advance(8 * time.Second)
	n, err = m.Append(ctx, "group", "b", 10*time.Second)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
	require.Equal(t, 10*time.Second, m.TTL("group"))

	clk.Advance(8 * time.Second)
	got, err := m.Drain(ctx, "group")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, got)

	got, err = m.Drain(ctx, "group")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestMemoryAppendIsAtomicUnderConcurrency(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Append(ctx, "group", "x", time.Minute)
		}()
	}
	wg.Wait()

	got, err := m.Drain(ctx, "group")
	require.NoError(t, err)
	require.Len(t, got, 50)
}

func TestMemoryScanPrefixSkipsExpiredAndOtherPrefixes(t *testing.T) {
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	m := NewMemory(clk)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "buffer:c1:m1", []byte("1"), 10*time.Second))
	require.NoError(t, m.Set(ctx, "buffer:c1:m2", []byte("2"), 2*time.Second))
	require.NoError(t, m.Set(ctx, "buffer:c10:m3", []byte("3"), 10*time.Second))
	clk.Advance(3 * time.Second)

	got, err := m.ScanPrefix(ctx, "buffer:c1:")
	require.NoError(t, err)
	require.Equal(t, []Entry{{Key: "buffer:c1:m1", Value: []byte("1")}}, got)
}

func TestMemoryWrongTypeIsReported(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	_, err := m.Append(ctx, "k", "x", time.Minute)
	require.ErrorIs(t, err, ErrWrongType)
}
