package service

import (
	"context"

	"giveaway-draw-backend/internal/features/giveaway/models"
)

// SubscriptionChecker reports channel membership of a user.
type SubscriptionChecker interface {
	IsSubscribed(ctx context.Context, channelID, userID int64) (bool, error)
}

// Notifier delivers a direct message. Callers never fail on its errors.
type Notifier interface {
	Notify(ctx context.Context, userID int64, message string) error
}

// ParticipationService defines the join flow exposed to delivery
type ParticipationService interface {
	Join(ctx context.Context, req *models.JoinRequest) (*models.JoinResult, error)
	ConfirmVerification(ctx context.Context, giveawayID string, userID int64, answer string) (*models.JoinResult, error)
}

type BonusService interface {
	CanGrant(ctx context.Context, giveawayID string, userID int64, category models.BonusCategory) (bool, models.BonusDenyReason, error)
	Grant(ctx context.Context, giveawayID string, userID int64, category models.BonusCategory, comment string) (bool, error)
	GrantAsCreator(ctx context.Context, creatorID int64, giveawayID string, req *models.BonusGrantRequest) (bool, error)
}

type ReferralLinkService interface {
	IssueLink(ctx context.Context, userID int64) (string, error)
	ResolveLink(ctx context.Context, token string) (int64, bool, error)
}

// DrawService defines winner drawing operations
type DrawService interface {
	DrawAsCreator(ctx context.Context, creatorID int64, giveawayID string) ([]models.Winner, error)
	GetWinners(ctx context.Context, giveawayID string) ([]models.Winner, error)
}
