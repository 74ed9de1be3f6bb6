package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"giveaway-draw-backend/internal/features/giveaway/models"
	"giveaway-draw-backend/internal/features/giveaway/repository"
)

type winnerRepository struct {
	db *sql.DB
}

func NewWinnerRepository(db *sql.DB) repository.WinnerRepository {
	return &winnerRepository{db: db}
}

func (r *winnerRepository) CreateTx(ctx context.Context, tx repository.Transaction, winners []models.Winner) error {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO winners (id, giveaway_id, user_id, place, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	for _, w := range winners {
		if _, err := sqlTx.ExecContext(ctx, query, w.ID, w.GiveawayID, w.UserID, w.Place, w.CreatedAt); err != nil {
			return fmt.Errorf("failed to create winner: %w", err)
		}
	}
	return nil
}

func (r *winnerRepository) GetByGiveaway(ctx context.Context, giveawayID string) ([]models.Winner, error) {
	query := `
		SELECT id, giveaway_id, user_id, place, created_at
		FROM winners
		WHERE giveaway_id = $1
		ORDER BY place`

	rows, err := r.db.QueryContext(ctx, query, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to get winners: %w", err)
	}
	defer rows.Close()

	var winners []models.Winner
	for rows.Next() {
		var w models.Winner
		if err := rows.Scan(&w.ID, &w.GiveawayID, &w.UserID, &w.Place, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan winner: %w", err)
		}
		winners = append(winners, w)
	}
	return winners, rows.Err()
}
