package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"giveaway-draw-backend/internal/features/giveaway/models"
	"giveaway-draw-backend/internal/features/giveaway/repository"
)

type bonusRepository struct {
	db *sql.DB
}

func NewBonusRepository(db *sql.DB) repository.BonusRepository {
	return &bonusRepository{db: db}
}

func (r *bonusRepository) Exists(ctx context.Context, giveawayID string, userID int64, category models.BonusCategory) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM bonus_grants
			WHERE giveaway_id = $1 AND user_id = $2 AND category = $3
		)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, giveawayID, userID, string(category)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check bonus grant: %w", err)
	}
	return exists, nil
}

func (r *bonusRepository) Create(ctx context.Context, grant *models.BonusGrant) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	bump := `
		UPDATE participants SET tickets_count = tickets_count + 1
		WHERE giveaway_id = $1 AND user_id = $2`
	res, err := tx.ExecContext(ctx, bump, grant.GiveawayID, grant.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to add bonus ticket: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	} else if n == 0 {
		return false, nil
	}

	insert := `
		INSERT INTO bonus_grants (giveaway_id, user_id, category, comment, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (giveaway_id, user_id, category) DO NOTHING`
	res, err = tx.ExecContext(ctx, insert,
		grant.GiveawayID, grant.UserID, string(grant.Category), grant.Comment, grant.Verified, grant.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to create bonus grant: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	} else if n == 0 {
		// уже начислено, билет не добавляем
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}
