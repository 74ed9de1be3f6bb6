package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"giveaway-draw-backend/internal/common/cache"
	"giveaway-draw-backend/internal/features/giveaway/repository"
	platformredis "giveaway-draw-backend/internal/platform/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, platformredis.RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := platformredis.NewRedisClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestLockRepository_AcquireRelease(t *testing.T) {
	_, client := newTestClient(t)
	locker := NewLockRepository(client)
	ctx := context.Background()

	lock, err := locker.AcquireLock(ctx, "lock:test", 0, time.Second)
	require.NoError(t, err)

	_, err = locker.AcquireLock(ctx, "lock:test", 0, time.Second)
	assert.ErrorIs(t, err, repository.ErrAlreadyLocked)

	_, err = locker.AcquireLock(ctx, "lock:test", 120*time.Millisecond, time.Second)
	assert.ErrorIs(t, err, repository.ErrLockTimeout)

	require.NoError(t, lock.Release(ctx))

	again, err := locker.AcquireLock(ctx, "lock:test", 0, time.Second)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLockRepository_ReleaseDoesNotStealForeignLock(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewLockRepository(client)
	ctx := context.Background()

	stale, err := locker.AcquireLock(ctx, "lock:test", 0, 100*time.Millisecond)
	require.NoError(t, err)

	// TTL истёк, блокировку забрал другой владелец
	mr.FastForward(200 * time.Millisecond)
	fresh, err := locker.AcquireLock(ctx, "lock:test", 0, time.Second)
	require.NoError(t, err)

	require.NoError(t, stale.Release(ctx))
	assert.True(t, mr.Exists("lock:test"))

	require.NoError(t, fresh.Release(ctx))
	assert.False(t, mr.Exists("lock:test"))
}

func TestLockRepository_WaitsForRelease(t *testing.T) {
	_, client := newTestClient(t)
	locker := NewLockRepository(client)
	ctx := context.Background()

	lock, err := locker.AcquireLock(ctx, "lock:test", 0, 5*time.Second)
	require.NoError(t, err)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = lock.Release(ctx)
	}()

	next, err := locker.AcquireLock(ctx, "lock:test", 2*time.Second, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, next.Release(ctx))
}

func TestLockRepository_MutualExclusion(t *testing.T) {
	_, client := newTestClient(t)
	locker := NewLockRepository(client)
	ctx := context.Background()

	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock, err := locker.AcquireLock(ctx, "lock:shared", 5*time.Second, 5*time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			assert.NoError(t, lock.Release(ctx))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen)
}

func TestReferralLinkRepository(t *testing.T) {
	mr, client := newTestClient(t)
	links := NewReferralLinkRepository(cache.NewCacheService(client))
	ctx := context.Background()

	token, err := links.Issue(ctx, 42, time.Hour)
	require.NoError(t, err)
	assert.Len(t, token, referralTokenLength)

	same, err := links.Issue(ctx, 42, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, token, same)

	userID, err := links.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)

	_, err = links.Resolve(ctx, "unknown")
	assert.ErrorIs(t, err, repository.ErrReferralLinkNotFound)

	mr.FastForward(2 * time.Hour)
	_, err = links.Resolve(ctx, token)
	assert.ErrorIs(t, err, repository.ErrReferralLinkNotFound)

	renewed, err := links.Issue(ctx, 42, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, token, renewed)
}

func TestCaptchaRepository(t *testing.T) {
	mr, client := newTestClient(t)
	captcha := NewCaptchaRepository(client)
	ctx := context.Background()

	require.NoError(t, captcha.SaveChallenge(ctx, "gw-1", 7, "12", time.Minute))

	ok, err := captcha.IsVerified(ctx, "gw-1", 7)
	require.NoError(t, err)
	assert.False(t, ok)

	// неверный ответ сжигает вызов
	ok, err = captcha.Confirm(ctx, "gw-1", 7, "13", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = captcha.Confirm(ctx, "gw-1", 7, "12", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, captcha.SaveChallenge(ctx, "gw-1", 7, "12", time.Minute))
	ok, err = captcha.Confirm(ctx, "gw-1", 7, "12", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = captcha.IsVerified(ctx, "gw-1", 7)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = captcha.IsVerified(ctx, "gw-2", 7)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = captcha.IsVerified(ctx, "gw-1", 7)
	require.NoError(t, err)
	assert.False(t, ok)
}
