package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"giveaway-draw-backend/internal/features/giveaway/repository"

	"github.com/rs/zerolog"
)

// Один ключ на пару (гив, пользователь): регистрация и бонусы сериализуются вместе
func joinLockKey(giveawayID string, userID int64) string {
	return fmt.Sprintf("lock:join:%s:%d", giveawayID, userID)
}

func drawLockKey(giveawayID string) string {
	return fmt.Sprintf("lock:giveaway:%s", giveawayID)
}

// withLock runs fn while holding key and always releases it afterwards.
// Failure to acquire in time is reported as ErrLockContention.
func withLock(ctx context.Context, locker repository.Locker, key string, wait, ttl time.Duration, logger zerolog.Logger, fn func() error) error {
	lock, err := locker.AcquireLock(ctx, key, wait, ttl)
	if err != nil {
		if errors.Is(err, repository.ErrLockTimeout) || errors.Is(err, repository.ErrAlreadyLocked) {
			return ErrLockContention
		}
		return err
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Error().Err(err).Str("key", key).Msg("Failed to release lock")
		}
	}()

	return fn()
}
