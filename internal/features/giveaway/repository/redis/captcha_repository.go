package redis

import (
	"context"
	"fmt"
	"time"

	"giveaway-draw-backend/internal/features/giveaway/repository"
	platformredis "giveaway-draw-backend/internal/platform/redis"
)

// Любая попытка сжигает вызов; при верном ответе ставим флаг прохождения
const confirmScript = `
local answer = redis.call("GET", KEYS[1])
if not answer then
	return 0
end
redis.call("DEL", KEYS[1])
if answer ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[2], "1", "PX", ARGV[2])
return 1`

type captchaRepository struct {
	client platformredis.RedisClient
}

func NewCaptchaRepository(client platformredis.RedisClient) repository.CaptchaRepository {
	return &captchaRepository{client: client}
}

func makeCaptchaKey(giveawayID string, userID int64) string {
	return fmt.Sprintf("captcha:%s:%d", giveawayID, userID)
}

func makeCaptchaPassedKey(giveawayID string, userID int64) string {
	return fmt.Sprintf("captcha_ok:%s:%d", giveawayID, userID)
}

func (r *captchaRepository) SaveChallenge(ctx context.Context, giveawayID string, userID int64, answer string, ttl time.Duration) error {
	if err := r.client.Set(ctx, makeCaptchaKey(giveawayID, userID), answer, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save captcha: %w", err)
	}
	return nil
}

func (r *captchaRepository) Confirm(ctx context.Context, giveawayID string, userID int64, answer string, ttl time.Duration) (bool, error) {
	keys := []string{makeCaptchaKey(giveawayID, userID), makeCaptchaPassedKey(giveawayID, userID)}
	res, err := r.client.Eval(ctx, confirmScript, keys, answer, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to confirm captcha: %w", err)
	}
	return res == 1, nil
}

func (r *captchaRepository) IsVerified(ctx context.Context, giveawayID string, userID int64) (bool, error) {
	n, err := r.client.Exists(ctx, makeCaptchaPassedKey(giveawayID, userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check captcha: %w", err)
	}
	return n > 0, nil
}
