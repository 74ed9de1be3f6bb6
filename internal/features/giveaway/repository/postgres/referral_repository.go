package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"giveaway-draw-backend/internal/features/giveaway/models"
	"giveaway-draw-backend/internal/features/giveaway/repository"
)

type referralRepository struct {
	db *sql.DB
}

func NewReferralRepository(db *sql.DB) repository.ReferralRepository {
	return &referralRepository{db: db}
}

// Upsert stages the inviter, replacing any previous one for the same pair.
func (r *referralRepository) Upsert(ctx context.Context, ref *models.PendingReferral) error {
	query := `
		INSERT INTO pending_referrals (giveaway_id, user_id, referrer_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (giveaway_id, user_id)
		DO UPDATE SET referrer_id = EXCLUDED.referrer_id, created_at = EXCLUDED.created_at`

	if _, err := r.db.ExecContext(ctx, query, ref.GiveawayID, ref.UserID, ref.ReferrerID, ref.CreatedAt); err != nil {
		return fmt.Errorf("failed to stage referral: %w", err)
	}
	return nil
}

func (r *referralRepository) Take(ctx context.Context, giveawayID string, userID int64) (*models.PendingReferral, error) {
	query := `
		DELETE FROM pending_referrals
		WHERE giveaway_id = $1 AND user_id = $2
		RETURNING giveaway_id, user_id, referrer_id, created_at`

	var ref models.PendingReferral
	err := r.db.QueryRowContext(ctx, query, giveawayID, userID).Scan(
		&ref.GiveawayID, &ref.UserID, &ref.ReferrerID, &ref.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrPendingReferralNotFound
		}
		return nil, fmt.Errorf("failed to take referral: %w", err)
	}
	return &ref, nil
}

// DeleteForInactiveGiveaways drops staged referrals nobody can consume anymore.
func (r *referralRepository) DeleteForInactiveGiveaways(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM pending_referrals pr
		USING giveaways g
		WHERE pr.giveaway_id = g.id AND g.status <> $1`

	res, err := r.db.ExecContext(ctx, query, models.GiveawayStatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up referrals: %w", err)
	}
	return res.RowsAffected()
}
