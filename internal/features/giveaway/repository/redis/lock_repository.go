package redis

import (
	"context"
	"fmt"
	"time"

	"giveaway-draw-backend/internal/features/giveaway/repository"
	platformredis "giveaway-draw-backend/internal/platform/redis"

	"github.com/google/uuid"
)

const lockRetryInterval = 50 * time.Millisecond

// Снимаем блокировку только если она всё ещё наша
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

type lockRepository struct {
	client platformredis.RedisClient
}

func NewLockRepository(client platformredis.RedisClient) repository.Locker {
	return &lockRepository{client: client}
}

type redisLock struct {
	client platformredis.RedisClient
	key    string
	token  string
}

// AcquireLock получает блокировку, ожидая её освобождения не дольше wait.
// ttl ограничивает время удержания, если владелец упал.
func (r *lockRepository) AcquireLock(ctx context.Context, key string, wait, ttl time.Duration) (repository.Lock, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}
		if ok {
			return &redisLock{client: r.client, key: key, token: token}, nil
		}

		if wait <= 0 {
			return nil, repository.ErrAlreadyLocked
		}
		if !time.Now().Before(deadline) {
			return nil, repository.ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

func (l *redisLock) Release(ctx context.Context) error {
	if err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	return nil
}
