package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"giveaway-draw-backend/internal/features/giveaway/models"
	"giveaway-draw-backend/internal/features/giveaway/repository"

	"github.com/rs/zerolog"
)

// ReferralLedger tracks who invited whom until the invitee is registered.
type ReferralLedger struct {
	referrals    repository.ReferralRepository
	participants repository.ParticipantRepository
	links        repository.ReferralLinkRepository
	linkTTL      time.Duration
	logger       zerolog.Logger
	now          func() time.Time
}

func NewReferralLedger(
	referrals repository.ReferralRepository,
	participants repository.ParticipantRepository,
	links repository.ReferralLinkRepository,
	linkTTL time.Duration,
	logger zerolog.Logger,
) *ReferralLedger {
	return &ReferralLedger{
		referrals:    referrals,
		participants: participants,
		links:        links,
		linkTTL:      linkTTL,
		logger:       logger.With().Str("service", "referral").Logger(),
		now:          time.Now,
	}
}

// Stage records the inviter of userID. A later call overwrites the referrer.
func (l *ReferralLedger) Stage(ctx context.Context, giveawayID string, inviteeID, referrerID int64) error {
	return l.referrals.Upsert(ctx, &models.PendingReferral{
		GiveawayID: giveawayID,
		UserID:     inviteeID,
		ReferrerID: referrerID,
		CreatedAt:  l.now(),
	})
}

// Consume reads and removes the staged referrer. Only the first call sees it.
func (l *ReferralLedger) Consume(ctx context.Context, giveawayID string, inviteeID int64) (int64, bool, error) {
	ref, err := l.referrals.Take(ctx, giveawayID, inviteeID)
	if err != nil {
		if errors.Is(err, repository.ErrPendingReferralNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return ref.ReferrerID, true, nil
}

// IsCircular reports a self-referral or a direct two-step cycle, i.e. the
// referrer already participates having been invited by the invitee.
func (l *ReferralLedger) IsCircular(ctx context.Context, giveawayID string, inviteeID, referrerID int64) (bool, error) {
	if inviteeID == referrerID {
		return true, nil
	}

	referrer, err := l.participants.Get(ctx, giveawayID, referrerID)
	if err != nil {
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check referral cycle: %w", err)
	}
	return referrer.ReferrerID != nil && *referrer.ReferrerID == inviteeID, nil
}

func (l *ReferralLedger) IssueLink(ctx context.Context, userID int64) (string, error) {
	return l.links.Issue(ctx, userID, l.linkTTL)
}

func (l *ReferralLedger) ResolveLink(ctx context.Context, token string) (int64, bool, error) {
	userID, err := l.links.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrReferralLinkNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return userID, true, nil
}
