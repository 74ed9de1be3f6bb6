package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"giveaway-draw-backend/internal/common/metrics"
	"giveaway-draw-backend/internal/features/giveaway/models"
	"giveaway-draw-backend/internal/features/giveaway/repository"

	"github.com/rs/zerolog"
)

// BonusLedger grants extra tickets at most once per category.
type BonusLedger struct {
	giveaways    repository.GiveawayRepository
	participants repository.ParticipantRepository
	bonuses      repository.BonusRepository
	locker       repository.Locker
	settings     ParticipationSettings
	logger       zerolog.Logger
	now          func() time.Time
}

func NewBonusLedger(
	giveaways repository.GiveawayRepository,
	participants repository.ParticipantRepository,
	bonuses repository.BonusRepository,
	locker repository.Locker,
	settings ParticipationSettings,
	logger zerolog.Logger,
) *BonusLedger {
	return &BonusLedger{
		giveaways:    giveaways,
		participants: participants,
		bonuses:      bonuses,
		locker:       locker,
		settings:     settings,
		logger:       logger.With().Str("service", "bonus").Logger(),
		now:          time.Now,
	}
}

func (b *BonusLedger) CanGrant(ctx context.Context, giveawayID string, userID int64, category models.BonusCategory) (bool, models.BonusDenyReason, error) {
	if err := category.Validate(); err != nil {
		return false, models.BonusDenyNone, ErrInvalidCategory
	}

	giveaway, err := b.giveaways.GetByID(ctx, giveawayID)
	if err != nil {
		if errors.Is(err, repository.ErrGiveawayNotFound) {
			return false, models.BonusDenyNone, ErrNotFound
		}
		return false, models.BonusDenyNone, fmt.Errorf("failed to get giveaway: %w", err)
	}
	// После окончания билеты не меняются
	if !giveaway.AcceptsTickets(b.now()) {
		return false, models.BonusDenyNotActive, nil
	}

	if _, err := b.participants.Get(ctx, giveawayID, userID); err != nil {
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return false, models.BonusDenyNotParticipant, nil
		}
		return false, models.BonusDenyNone, err
	}

	exists, err := b.bonuses.Exists(ctx, giveawayID, userID, category)
	if err != nil {
		return false, models.BonusDenyNone, err
	}
	if exists {
		return false, models.BonusDenyAlreadyGranted, nil
	}
	return true, models.BonusDenyNone, nil
}

// Grant stores the bonus and adds one ticket. It returns false without
// changing anything when the giveaway no longer accepts tickets, the user is
// not a participant or already has it.
func (b *BonusLedger) Grant(ctx context.Context, giveawayID string, userID int64, category models.BonusCategory, comment string) (bool, error) {
	if err := category.Validate(); err != nil {
		return false, ErrInvalidCategory
	}

	var granted bool
	err := withLock(ctx, b.locker, joinLockKey(giveawayID, userID), b.settings.LockWait, b.settings.LockTTL, b.logger, func() error {
		ok, reason, err := b.CanGrant(ctx, giveawayID, userID, category)
		if err != nil {
			return err
		}
		if !ok {
			b.logger.Debug().
				Str("giveaway_id", giveawayID).
				Int64("user_id", userID).
				Str("category", string(category)).
				Str("reason", string(reason)).
				Msg("Bonus not granted")
			return nil
		}

		now := b.now()
		granted, err = b.bonuses.Create(ctx, &models.BonusGrant{
			GiveawayID: giveawayID,
			UserID:     userID,
			Category:   category,
			Comment:    comment,
			Verified:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, ErrLockContention) {
			metrics.RecordLockContention("bonus")
		}
		return false, err
	}

	metrics.RecordBonusGrant(string(category), granted)
	if granted {
		b.logger.Info().
			Str("giveaway_id", giveawayID).
			Int64("user_id", userID).
			Str("category", string(category)).
			Msg("Bonus ticket granted")
	}
	return granted, nil
}

// GrantAsCreator grants a bonus on behalf of the giveaway organizer.
func (b *BonusLedger) GrantAsCreator(ctx context.Context, creatorID int64, giveawayID string, req *models.BonusGrantRequest) (bool, error) {
	giveaway, err := b.giveaways.GetByID(ctx, giveawayID)
	if err != nil {
		if errors.Is(err, repository.ErrGiveawayNotFound) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("failed to get giveaway: %w", err)
	}
	if !giveaway.IsCreator(creatorID) {
		return false, ErrNotOwner
	}
	if giveaway.Status != models.GiveawayStatusActive {
		return false, ErrGiveawayNotActive
	}

	return b.Grant(ctx, giveawayID, req.UserID, req.Category, req.Comment)
}
