package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type report struct {
	CycleID  string   `json:"cycle_id"`
	Critical []string `json:"critical"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	mc := NewMemoryCache(WithMemoryCleanup(0), WithMemoryClock(func() time.Time { return now }))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "cycle:latest", report{CycleID: "c1", Critical: []string{"GME"}}, time.Minute))

	var got report
	require.NoError(t, mc.Get(ctx, "cycle:latest", &got))
	assert.Equal(t, "c1", got.CycleID)
	assert.Equal(t, []string{"GME"}, got.Critical)

	now = now.Add(time.Minute)
	assert.ErrorIs(t, mc.Get(ctx, "cycle:latest", &got), ErrCacheMiss)
}

func TestMemoryCacheLock(t *testing.T) {
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	mc := NewMemoryCache(WithMemoryCleanup(0), WithMemoryClock(func() time.Time { return now }))
	defer mc.Close()
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "cycle:lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = mc.TryLock(ctx, "cycle:lock", time.Minute)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "cycle:lock"))
	ok, _ = mc.TryLock(ctx, "cycle:lock", time.Minute)
	assert.True(t, ok)

	// an abandoned lock expires
	now = now.Add(2 * time.Minute)
	ok, _ = mc.TryLock(ctx, "cycle:lock", time.Minute)
	assert.True(t, ok)
}

func TestMemoryCacheEvictsAtCapacity(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(0), WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, mc.Set(ctx, "b", 2, time.Hour))
	require.NoError(t, mc.Set(ctx, "c", 3, time.Hour))

	var v int
	assert.ErrorIs(t, mc.Get(ctx, "a", &v), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "c", &v))
	assert.Equal(t, 3, v)
}

func TestRedisCacheLockAndGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	rc := NewRedisCacheFromClient(db, "hyperadar")
	ctx := context.Background()

	mock.ExpectSetNX("hyperadar:cycle:lock", "locked", time.Minute).SetVal(true)
	mock.ExpectSetNX("hyperadar:cycle:lock", "locked", time.Minute).SetVal(false)
	mock.ExpectDel("hyperadar:cycle:lock").SetVal(1)
	mock.ExpectGet("hyperadar:cycle:latest").SetVal(`{"cycle_id":"c9","critical":["AMC"]}`)
	mock.ExpectGet("hyperadar:missing").RedisNil()
	mock.ExpectSet("hyperadar:cycle:latest", `{"cycle_id":"c10","critical":null}`, time.Hour).SetVal("OK")

	ok, err := rc.TryLock(ctx, "cycle:lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rc.TryLock(ctx, "cycle:lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, rc.Unlock(ctx, "cycle:lock"))

	var got report
	require.NoError(t, rc.Get(ctx, "cycle:latest", &got))
	assert.Equal(t, "c9", got.CycleID)

	err = rc.Get(ctx, "missing", &got)
	assert.True(t, errors.Is(err, ErrCacheMiss))

	require.NoError(t, rc.Set(ctx, "cycle:latest", report{CycleID: "c10"}, time.Hour))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "alerts:GME:5m", Key("alerts", "GME", "5m"))
	assert.Equal(t, "alerts", Key("alerts"))
}
