package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"giveaway-draw-backend/internal/common/cache"
	"giveaway-draw-backend/internal/features/giveaway/repository"
	platformredis "giveaway-draw-backend/internal/platform/redis"
	"giveaway-draw-backend/internal/utils/random"
)

const (
	keyPrefixReferralLink     = "referral_link:"
	keyPrefixReferralLinkUser = "referral_link_user:"

	referralTokenLength   = 10
	maxReferralTokenTries = 5
)

type referralLinkRepository struct {
	cache  *cache.CacheService
	source *random.Source
}

func NewReferralLinkRepository(cacheService *cache.CacheService) repository.ReferralLinkRepository {
	return &referralLinkRepository{cache: cacheService, source: random.Default}
}

func makeReferralLinkKey(token string) string {
	return keyPrefixReferralLink + token
}

func makeReferralLinkUserKey(userID int64) string {
	return fmt.Sprintf("%s%d", keyPrefixReferralLinkUser, userID)
}

// Issue returns the user's live token or mints a new one.
func (r *referralLinkRepository) Issue(ctx context.Context, userID int64, ttl time.Duration) (string, error) {
	var existing string
	err := r.cache.Get(ctx, makeReferralLinkUserKey(userID), &existing)
	switch {
	case err == nil:
		alive, err := r.cache.Exists(ctx, makeReferralLinkKey(existing))
		if err != nil {
			return "", fmt.Errorf("failed to check referral link: %w", err)
		}
		if alive {
			return existing, nil
		}
	case !errors.Is(err, platformredis.Nil):
		return "", fmt.Errorf("failed to get referral link: %w", err)
	}

	for i := 0; i < maxReferralTokenTries; i++ {
		token, err := r.source.String(random.AlphaNumeric, referralTokenLength)
		if err != nil {
			return "", err
		}

		ok, err := r.cache.SetIfAbsent(ctx, makeReferralLinkKey(token), userID, ttl)
		if err != nil {
			return "", fmt.Errorf("failed to store referral link: %w", err)
		}
		if !ok {
			continue
		}

		if err := r.cache.Set(ctx, makeReferralLinkUserKey(userID), token, ttl); err != nil {
			return "", fmt.Errorf("failed to store referral link owner: %w", err)
		}
		return token, nil
	}
	return "", errors.New("failed to generate unique referral token")
}

func (r *referralLinkRepository) Resolve(ctx context.Context, token string) (int64, error) {
	var userID int64
	if err := r.cache.Get(ctx, makeReferralLinkKey(token), &userID); err != nil {
		if errors.Is(err, platformredis.Nil) {
			return 0, repository.ErrReferralLinkNotFound
		}
		return 0, fmt.Errorf("failed to resolve referral link: %w", err)
	}
	return userID, nil
}
